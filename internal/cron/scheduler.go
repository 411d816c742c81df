package cron

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/lunarphp/opayo/internal/models"
	"github.com/lunarphp/opayo/internal/opayo"
	"github.com/lunarphp/opayo/internal/payment"
	"github.com/lunarphp/opayo/internal/repository"
)

// Deferred transactions expire at the gateway after 30 days; warn ops
// well before that.
const staleIntentAge = 21 * 24 * time.Hour

// Notifier is the slice of the ops notifier the scheduler uses.
type Notifier interface {
	Enabled() bool
	PaymentCaptured(orderRef, txReference string, amount int, currency string)
}

// CronRepos bundles repositories needed by the scheduled jobs.
type CronRepos struct {
	Order           *repository.OrderRepository
	Transaction     *repository.TransactionRepository
	ReusablePayment *repository.ReusablePaymentRepository
}

// Scheduler runs the reconciliation and housekeeping jobs.
type Scheduler struct {
	cron     *cron.Cron
	repos    *CronRepos
	gateway  payment.Gateway
	notifier Notifier
	logger   *zap.Logger
}

// New creates a new cron scheduler.
func New(repos *CronRepos, gateway payment.Gateway, notifier Notifier, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		cron:     cron.New(),
		repos:    repos,
		gateway:  gateway,
		notifier: notifier,
		logger:   logger,
	}
}

// Start registers and starts all cron jobs.
func (s *Scheduler) Start() {
	s.logger.Info("Starting cron scheduler...")

	// Repair orders left unstamped after a successful capture - every 5 minutes
	s.cron.AddFunc("*/5 * * * *", func() {
		s.logger.Debug("Running: reconcile unplaced paid orders")
		s.reconcileUnplacedOrders()
	})

	// Warn about deferred intents approaching gateway expiry - hourly
	s.cron.AddFunc("0 * * * *", func() {
		s.logger.Debug("Running: check stale intents")
		s.checkStaleIntents()
	})

	// Purge expired saved card tokens - daily at 04:00
	s.cron.AddFunc("0 4 * * *", func() {
		s.logger.Debug("Running: purge expired reusable payments")
		s.purgeExpiredReusables()
	})

	s.cron.Start()
}

// Stop stops the scheduler and returns a context that is done once
// running jobs finish.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

// reconcileUnplacedOrders stamps orders that have a successful capture on
// the ledger but no placed_at, re-checking the gateway first.
func (s *Scheduler) reconcileUnplacedOrders() {
	orders, err := s.repos.Order.FindUnplacedPaid()
	if err != nil {
		s.logger.Error("Reconcile query failed", zap.Error(err))
		return
	}

	for _, order := range orders {
		txs, err := s.repos.Transaction.FindByOrderID(order.ID)
		if err != nil || len(txs) == 0 {
			continue
		}

		// Last successful capture row carries the gateway reference.
		var reference string
		var amount int
		for i := len(txs) - 1; i >= 0; i-- {
			if txs[i].Success && txs[i].Type == models.TransactionTypeCapture {
				reference = txs[i].Reference
				amount = txs[i].Amount
				break
			}
		}
		if reference == "" {
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		tx, err := s.gateway.Transaction(ctx, reference)
		cancel()
		if err != nil || tx.Status != opayo.StatusOk {
			continue
		}

		if err := s.repos.Order.MarkPlaced(order.ID, time.Now()); err != nil {
			s.logger.Error("Reconcile mark placed failed",
				zap.Uint("order_id", order.ID), zap.Error(err))
			continue
		}
		s.logger.Info("Reconciled unplaced order",
			zap.Uint("order_id", order.ID), zap.String("reference", reference))
		if s.notifier.Enabled() {
			s.notifier.PaymentCaptured(order.Reference, reference, amount, order.CurrencyCode)
		}
	}
}

// checkStaleIntents logs deferred authorizations that were never released
// and are approaching the gateway's expiry window.
func (s *Scheduler) checkStaleIntents() {
	cutoff := time.Now().Add(-staleIntentAge)
	txs, err := s.repos.Transaction.FindStaleIntents(cutoff)
	if err != nil {
		s.logger.Error("Stale intent query failed", zap.Error(err))
		return
	}
	for _, tx := range txs {
		s.logger.Warn("Deferred transaction approaching expiry without capture",
			zap.Uint("transaction_id", tx.ID),
			zap.Uint("order_id", tx.OrderID),
			zap.String("reference", tx.Reference))
	}
}

func (s *Scheduler) purgeExpiredReusables() {
	removed, err := s.repos.ReusablePayment.DeleteExpired(time.Now())
	if err != nil {
		s.logger.Error("Reusable payment purge failed", zap.Error(err))
		return
	}
	if removed > 0 {
		s.logger.Info("Purged expired reusable payments", zap.Int64("count", removed))
	}
}
