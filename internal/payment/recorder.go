package payment

import (
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/lunarphp/opayo/internal/models"
	"github.com/lunarphp/opayo/internal/opayo"
)

// DriverName identifies this gateway on ledger rows.
const DriverName = "opayo"

// Recorder maps resolved gateway transactions onto the append-only ledger.
type Recorder struct {
	transactions TransactionStore
	logger       *zap.Logger
}

func NewRecorder(transactions TransactionStore, logger *zap.Logger) *Recorder {
	return &Recorder{transactions: transactions, logger: logger}
}

// MapTransaction builds the ledger row for a fetched gateway transaction.
// Pure; persistence happens in RecordAuthorization.
func MapTransaction(order *models.Order, tx *opayo.Transaction) *models.Transaction {
	success := tx.Status == opayo.StatusOk

	txType := models.TransactionTypeIntent
	if tx.TransactionType == opayo.TransactionTypePayment {
		txType = models.TransactionTypeCapture
	}

	var capturedAt *time.Time
	if success && txType == models.TransactionTypeCapture {
		now := time.Now()
		capturedAt = &now
	}

	meta, _ := json.Marshal(models.TransactionMeta{
		ThreeDSecure: &models.ThreeDSecureMeta{
			Status:       tx.AvsCvcCheck.Status,
			Address:      tx.AvsCvcCheck.Address,
			PostalCode:   tx.AvsCvcCheck.PostalCode,
			SecurityCode: tx.AvsCvcCheck.SecurityCode,
		},
	})

	return &models.Transaction{
		OrderID:    order.ID,
		Success:    success,
		Type:       txType,
		Driver:     DriverName,
		Amount:     tx.Amount.TotalAmount,
		Reference:  tx.TransactionID,
		Status:     tx.Status,
		Notes:      tx.StatusDetail,
		CardType:   tx.PaymentMethod.Card.CardType,
		LastFour:   tx.PaymentMethod.Card.LastFourDigits,
		CapturedAt: capturedAt,
		Meta:       string(meta),
	}
}

// RecordAuthorization appends the ledger row for an authorization outcome,
// successful or not.
func (r *Recorder) RecordAuthorization(order *models.Order, tx *opayo.Transaction) (*models.Transaction, error) {
	row := MapTransaction(order, tx)
	if err := r.transactions.Create(row); err != nil {
		return nil, err
	}
	return row, nil
}

// RecordCapture appends a capture row referencing the original intent.
func (r *Recorder) RecordCapture(parent *models.Transaction, amount int, success bool, notes string) (*models.Transaction, error) {
	var capturedAt *time.Time
	status := "Released"
	if success {
		now := time.Now()
		capturedAt = &now
	} else {
		status = "Failed"
	}

	row := &models.Transaction{
		OrderID:             parent.OrderID,
		ParentTransactionID: &parent.ID,
		Success:             success,
		Type:                models.TransactionTypeCapture,
		Driver:              DriverName,
		Amount:              amount,
		Reference:           parent.Reference,
		Status:              status,
		Notes:               notes,
		CardType:            parent.CardType,
		LastFour:            parent.LastFour,
		CapturedAt:          capturedAt,
	}
	if err := r.transactions.Create(row); err != nil {
		return nil, err
	}
	return row, nil
}

// RecordRefund appends a refund row referencing the refunded transaction.
func (r *Recorder) RecordRefund(parent *models.Transaction, reference string, amount int, success bool, status, notes string) (*models.Transaction, error) {
	row := &models.Transaction{
		OrderID:             parent.OrderID,
		ParentTransactionID: &parent.ID,
		Success:             success,
		Type:                models.TransactionTypeRefund,
		Driver:              DriverName,
		Amount:              amount,
		Reference:           reference,
		Status:              status,
		Notes:               notes,
		CardType:            parent.CardType,
		LastFour:            parent.LastFour,
	}
	if err := r.transactions.Create(row); err != nil {
		return nil, err
	}
	return row, nil
}
