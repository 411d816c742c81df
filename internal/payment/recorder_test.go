package payment

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/lunarphp/opayo/internal/models"
	"github.com/lunarphp/opayo/internal/opayo"
)

func TestMapTransactionSuccessfulPayment(t *testing.T) {
	order := testOrder()
	tx := okTransaction("T-1")
	tx.StatusDetail = "The Authorisation was Successful."
	tx.AvsCvcCheck.Status = "AllMatched"
	tx.AvsCvcCheck.Address = "Matched"
	tx.AvsCvcCheck.PostalCode = "Matched"
	tx.AvsCvcCheck.SecurityCode = "Matched"

	row := MapTransaction(order, tx)

	assert.Equal(t, order.ID, row.OrderID)
	assert.True(t, row.Success)
	assert.Equal(t, models.TransactionTypeCapture, row.Type)
	assert.Equal(t, DriverName, row.Driver)
	assert.Equal(t, 1000, row.Amount)
	assert.Equal(t, "T-1", row.Reference)
	assert.Equal(t, opayo.StatusOk, row.Status)
	assert.Equal(t, "Visa", row.CardType)
	assert.Equal(t, "4242", row.LastFour)
	assert.NotNil(t, row.CapturedAt)

	var meta models.TransactionMeta
	require.NoError(t, json.Unmarshal([]byte(row.Meta), &meta))
	require.NotNil(t, meta.ThreeDSecure)
	assert.Equal(t, "AllMatched", meta.ThreeDSecure.Status)
	assert.Equal(t, "Matched", meta.ThreeDSecure.Address)
}

func TestMapTransactionDeferredBecomesIntent(t *testing.T) {
	tx := okTransaction("T-2")
	tx.TransactionType = opayo.TransactionTypeDeferred

	row := MapTransaction(testOrder(), tx)

	assert.True(t, row.Success)
	assert.Equal(t, models.TransactionTypeIntent, row.Type)
	assert.Nil(t, row.CapturedAt, "deferred transactions are not captured yet")
}

func TestMapTransactionDecline(t *testing.T) {
	tx := okTransaction("T-3")
	tx.Status = opayo.StatusNotAuthed
	tx.StatusDetail = "Card declined by the bank"

	row := MapTransaction(testOrder(), tx)

	assert.False(t, row.Success)
	assert.Nil(t, row.CapturedAt)
	assert.Equal(t, "Card declined by the bank", row.Notes)
}

func TestRecordCapture(t *testing.T) {
	store := &fakeTransactionStore{}
	r := NewRecorder(store, zap.NewNop())

	parent := &models.Transaction{
		ID:        7,
		OrderID:   42,
		Type:      models.TransactionTypeIntent,
		Reference: "T-1",
		CardType:  "Visa",
		LastFour:  "4242",
	}

	row, err := r.RecordCapture(parent, 1000, true, "released")
	require.NoError(t, err)

	require.Len(t, store.rows, 1)
	assert.Equal(t, models.TransactionTypeCapture, row.Type)
	require.NotNil(t, row.ParentTransactionID)
	assert.Equal(t, uint(7), *row.ParentTransactionID)
	assert.Equal(t, "T-1", row.Reference)
	assert.Equal(t, "Released", row.Status)
	assert.NotNil(t, row.CapturedAt)
}

func TestRecordCaptureFailure(t *testing.T) {
	store := &fakeTransactionStore{}
	r := NewRecorder(store, zap.NewNop())

	parent := &models.Transaction{ID: 7, OrderID: 42, Reference: "T-1"}
	row, err := r.RecordCapture(parent, 1000, false, "gateway rejected release")
	require.NoError(t, err)

	assert.False(t, row.Success)
	assert.Equal(t, "Failed", row.Status)
	assert.Nil(t, row.CapturedAt)
}

func TestRecordRefund(t *testing.T) {
	store := &fakeTransactionStore{}
	r := NewRecorder(store, zap.NewNop())

	parent := &models.Transaction{ID: 7, OrderID: 42, Reference: "T-1", CardType: "Visa", LastFour: "4242"}
	row, err := r.RecordRefund(parent, "R-9", 500, true, opayo.StatusOk, "partial refund")
	require.NoError(t, err)

	require.Len(t, store.rows, 1)
	assert.Equal(t, models.TransactionTypeRefund, row.Type)
	assert.Equal(t, "R-9", row.Reference)
	assert.Equal(t, 500, row.Amount)
	require.NotNil(t, row.ParentTransactionID)
	assert.Equal(t, uint(7), *row.ParentTransactionID)
}
