package models

import "time"

// Transaction type values.
const (
	TransactionTypeCapture = "capture"
	TransactionTypeIntent  = "intent"
	TransactionTypeRefund  = "refund"
	TransactionTypeCharge  = "charge"
)

// Transaction maps to the `transactions` table. Rows are append-only:
// captures and refunds create new rows pointing at the original via
// parent_transaction_id, never mutate it.
type Transaction struct {
	ID                  uint       `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	OrderID             uint       `gorm:"column:order_id;index" json:"order_id"`
	ParentTransactionID *uint      `gorm:"column:parent_transaction_id" json:"parent_transaction_id"`
	Success             bool       `gorm:"column:success" json:"success"`
	Type                string     `gorm:"column:type;size:20" json:"type"`
	Driver              string     `gorm:"column:driver;size:20" json:"driver"`
	Amount              int        `gorm:"column:amount" json:"amount"` // minor units
	Reference           string     `gorm:"column:reference;size:100;index" json:"reference"`
	Status              string     `gorm:"column:status;size:50" json:"status"`
	Notes               string     `gorm:"column:notes;size:500" json:"notes"`
	CardType            string     `gorm:"column:card_type;size:50" json:"card_type"`
	LastFour            string     `gorm:"column:last_four;size:4" json:"last_four"`
	CapturedAt          *time.Time `gorm:"column:captured_at" json:"captured_at"`
	Meta                string     `gorm:"column:meta;type:json" json:"meta"`

	CreatedAt time.Time `gorm:"column:created_at" json:"created_at"`
}

func (Transaction) TableName() string {
	return "transactions"
}

// ThreeDSecureMeta holds the gateway's AVS/CVC verification sub-fields,
// stored verbatim for later dispute reference.
type ThreeDSecureMeta struct {
	Status       string `json:"status"`
	Address      string `json:"address"`
	PostalCode   string `json:"postalCode"`
	SecurityCode string `json:"securityCode"`
}

// TransactionMeta is the JSON document stored in the meta column.
type TransactionMeta struct {
	ThreeDSecure *ThreeDSecureMeta `json:"threedSecure,omitempty"`
}
