package payment

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/lunarphp/opayo/internal/models"
	"github.com/lunarphp/opayo/internal/opayo"
	"github.com/lunarphp/opayo/internal/pkg/utils"
	"github.com/lunarphp/opayo/internal/repository"
)

// AuthorizerConfig carries the behaviour switches for the payment flow.
type AuthorizerConfig struct {
	// Policy "automatic" captures immediately (Payment transactions);
	// "manual" defers capture (Deferred transactions).
	Policy          string
	Apply3DSecure   string
	NotificationURL string
	Description     string
}

// CardDetails is what the browser submits per payment attempt: the opaque
// tokenised card identifier, the session key it was minted under, and the
// browser fingerprint for the SCA block. Raw card data never reaches this
// layer.
type CardDetails struct {
	CardIdentifier     string
	MerchantSessionKey string
	Fingerprint        opayo.BrowserFingerprint
	SaveCard           bool
	Reusable           bool
	PriorAuthCode      string
}

// Authorizer drives an order through authorize → 3DS challenge →
// challenge-response → final status, recording the outcome on the ledger.
//
// Callers must serialize concurrent attempts for the same order (the HTTP
// layer does this with a per-order lock); the already-placed check is not
// atomic on its own.
type Authorizer struct {
	gateway   Gateway
	orders    OrderStore
	reusables ReusableStore
	recorder  *Recorder
	cfg       AuthorizerConfig
	logger    *zap.Logger
}

// Saved card tokens are retained for a year after their last use; the
// purge cron removes them past that.
const reusableTokenTTL = 365 * 24 * time.Hour

func NewAuthorizer(gateway Gateway, orders OrderStore, reusables ReusableStore, recorder *Recorder, cfg AuthorizerConfig, logger *zap.Logger) *Authorizer {
	return &Authorizer{
		gateway:   gateway,
		orders:    orders,
		reusables: reusables,
		recorder:  recorder,
		cfg:       cfg,
		logger:    logger,
	}
}

// Authorize starts a payment attempt for an order. The result is always
// reported to the caller; declines are never swallowed.
func (a *Authorizer) Authorize(ctx context.Context, order *models.Order, card CardDetails) *Result {
	if order.Placed() {
		return declined(ReasonAlreadyPlaced, "this order has already been placed")
	}

	transactionType := opayo.TransactionTypePayment
	if a.cfg.Policy != "automatic" {
		transactionType = opayo.TransactionTypeDeferred
	}

	req := opayo.AuthorizationRequest{
		CardIdentifier:     card.CardIdentifier,
		MerchantSessionKey: card.MerchantSessionKey,
		VendorTxCode:       utils.VendorTxCode(order.ID),
		Amount:             order.Total,
		CurrencyCode:       order.CurrencyCode,
		Description:        a.cfg.Description,
		TransactionType:    transactionType,
		Apply3DSecure:      a.cfg.Apply3DSecure,
		NotificationURL:    a.cfg.NotificationURL,
		FirstName:          order.FirstName,
		LastName:           order.LastName,
		CustomerPhone:      order.CustomerPhone,
		BillingAddress: opayo.Address{
			LineOne:    order.BillingLineOne,
			City:       order.BillingCity,
			Postcode:   order.BillingPostcode,
			CountryISO: order.BillingCountryISO,
		},
		Fingerprint:   card.Fingerprint,
		SaveCard:      card.SaveCard,
		Reusable:      card.Reusable,
		PriorAuthCode: card.PriorAuthCode,
	}

	resp, err := a.gateway.Authorize(ctx, req)
	if err != nil {
		a.logger.Error("Opayo authorize failed",
			zap.Uint("order_id", order.ID), zap.Error(err))
		return declined(ReasonGatewayError, "payment could not be processed")
	}

	switch resp.Status {
	case opayo.StatusThreeDAuth:
		return &Result{
			Outcome:       OutcomeChallengeRequired,
			TransactionID: resp.TransactionID,
			Status:        resp.Status,
			Challenge: &Challenge{
				TransactionID: resp.TransactionID,
				AcsURL:        resp.AcsURL,
				AcsTransID:    resp.AcsTransID,
				DsTransID:     resp.DsTransID,
				CReq:          resp.CReq,
				PaReq:         resp.PaReq,
			},
		}
	case opayo.StatusOk, opayo.StatusNotAuthed, opayo.StatusRejected:
		return a.finalize(ctx, order, resp.TransactionID)
	default:
		a.logger.Warn("Opayo returned unhandled status",
			zap.Uint("order_id", order.ID),
			zap.String("status", resp.Status),
			zap.String("status_detail", resp.StatusDetail))
		return &Result{
			Outcome:       OutcomeDeclined,
			TransactionID: resp.TransactionID,
			Status:        resp.Status,
			Reason:        ReasonUnknownGatewayStatus,
			Message:       resp.StatusDetail,
		}
	}
}

// CompleteChallenge resolves a pending 3DS challenge with the payload the
// ACS posted back. The completion endpoints do not return the
// authoritative final state, so the transaction is re-fetched to decide.
func (a *Authorizer) CompleteChallenge(ctx context.Context, order *models.Order, outcome opayo.ChallengeOutcome) *Result {
	if order.Placed() {
		return declined(ReasonAlreadyPlaced, "this order has already been placed")
	}

	resp, err := a.gateway.CompleteChallenge(ctx, outcome)
	if err != nil {
		if errors.Is(err, opayo.ErrNoChallengePayload) {
			return declined(ReasonGatewayError, "challenge response is missing")
		}
		a.logger.Error("Opayo challenge completion failed",
			zap.Uint("order_id", order.ID),
			zap.String("transaction_id", outcome.TransactionID),
			zap.Error(err))
		return declined(ReasonGatewayError, "payment could not be processed")
	}

	if resp.StatusCode == opayo.StatusCodeThreeDSFailed {
		return &Result{
			Outcome:       OutcomeDeclined,
			TransactionID: outcome.TransactionID,
			Status:        resp.Status,
			Reason:        ReasonThreeDSecureFailed,
			Message:       "the extra authentication was not completed",
		}
	}

	return a.finalize(ctx, order, outcome.TransactionID)
}

// finalize fetches the authoritative transaction state, appends the ledger
// row and, on success, stamps the order placed exactly once.
func (a *Authorizer) finalize(ctx context.Context, order *models.Order, transactionID string) *Result {
	tx, err := a.gateway.Transaction(ctx, transactionID)
	if err != nil {
		a.logger.Error("Opayo transaction fetch failed",
			zap.Uint("order_id", order.ID),
			zap.String("transaction_id", transactionID),
			zap.Error(err))
		return declined(ReasonGatewayError, "payment could not be verified")
	}

	if _, err := a.recorder.RecordAuthorization(order, tx); err != nil {
		a.logger.Error("Failed to record transaction",
			zap.Uint("order_id", order.ID),
			zap.String("transaction_id", transactionID),
			zap.Error(err))
	}

	if tx.Status != opayo.StatusOk {
		return &Result{
			Outcome:       OutcomeDeclined,
			TransactionID: tx.TransactionID,
			Status:        tx.Status,
			Reason:        ReasonDeclined,
			Message:       tx.StatusDetail,
		}
	}

	now := time.Now()
	if err := a.orders.MarkPlaced(order.ID, now); err != nil && !errors.Is(err, repository.ErrAlreadyPlaced) {
		a.logger.Error("Failed to mark order placed",
			zap.Uint("order_id", order.ID), zap.Error(err))
	} else {
		order.PlacedAt = &now
	}

	// The gateway flags the card reusable when the cardholder asked to
	// save it (and on every later use of the stored token).
	if card := tx.PaymentMethod.Card; card.Reusable && card.CardIdentifier != "" {
		expires := now.Add(reusableTokenTTL)
		err := a.reusables.Save(&models.ReusablePayment{
			CustomerRef: order.Reference,
			Token:       card.CardIdentifier,
			CardType:    card.CardType,
			LastFour:    card.LastFourDigits,
			AuthCode:    tx.TransactionID,
			ExpiresAt:   &expires,
		})
		if err != nil {
			a.logger.Warn("Failed to store reusable card token",
				zap.Uint("order_id", order.ID), zap.Error(err))
		}
	}

	return &Result{
		Outcome:       OutcomeAuthorized,
		TransactionID: tx.TransactionID,
		Status:        tx.Status,
		Captured:      tx.TransactionType == opayo.TransactionTypePayment,
	}
}
