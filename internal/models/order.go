package models

import "time"

// Order maps to the `orders` table. Order creation belongs to the host
// checkout flow; the payment layer only reads it and stamps placed_at.
type Order struct {
	ID           uint       `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	Reference    string     `gorm:"column:reference;size:40;uniqueIndex" json:"reference"`
	Status       string     `gorm:"column:status;size:50" json:"status"`
	CurrencyCode string     `gorm:"column:currency_code;size:3" json:"currency_code"`
	Total        int        `gorm:"column:total" json:"total"` // minor units
	PlacedAt     *time.Time `gorm:"column:placed_at" json:"placed_at"`

	// Billing address, flattened the way the gateway wants it.
	FirstName         string `gorm:"column:first_name;size:100" json:"first_name"`
	LastName          string `gorm:"column:last_name;size:100" json:"last_name"`
	BillingLineOne    string `gorm:"column:billing_line_one;size:255" json:"billing_line_one"`
	BillingCity       string `gorm:"column:billing_city;size:100" json:"billing_city"`
	BillingPostcode   string `gorm:"column:billing_postcode;size:20" json:"billing_postcode"`
	BillingCountryISO string `gorm:"column:billing_country_iso;size:2" json:"billing_country_iso"`
	CustomerPhone     string `gorm:"column:customer_phone;size:30" json:"customer_phone"`

	CreatedAt time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at" json:"updated_at"`

	Transactions []Transaction `gorm:"foreignKey:OrderID" json:"transactions,omitempty"`
}

func (Order) TableName() string {
	return "orders"
}

// Placed reports whether the order has been finalized.
func (o *Order) Placed() bool {
	return o.PlacedAt != nil
}
