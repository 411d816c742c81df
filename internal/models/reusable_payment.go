package models

import "time"

// ReusablePayment maps to the `reusable_payments` table: card identifier
// tokens the gateway agreed to keep, plus the prior 3DS authentication
// reference used to skip a fresh challenge on subsequent payments.
type ReusablePayment struct {
	ID          uint       `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	CustomerRef string     `gorm:"column:customer_ref;size:100;index" json:"customer_ref"`
	Token       string     `gorm:"column:token;size:100;uniqueIndex" json:"token"`
	CardType    string     `gorm:"column:card_type;size:50" json:"card_type"`
	LastFour    string     `gorm:"column:last_four;size:4" json:"last_four"`
	AuthCode    string     `gorm:"column:auth_code;size:100" json:"auth_code"`
	ExpiresAt   *time.Time `gorm:"column:expires_at" json:"expires_at"`

	CreatedAt time.Time `gorm:"column:created_at" json:"created_at"`
}

func (ReusablePayment) TableName() string {
	return "reusable_payments"
}
