package repository

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/lunarphp/opayo/internal/models"
)

// ReusablePaymentRepository handles saved card token database operations.
type ReusablePaymentRepository struct {
	db *gorm.DB
}

func NewReusablePaymentRepository(db *gorm.DB) *ReusablePaymentRepository {
	return &ReusablePaymentRepository{db: db}
}

// FindByToken returns a saved card by its gateway token.
func (r *ReusablePaymentRepository) FindByToken(token string) (*models.ReusablePayment, error) {
	var rp models.ReusablePayment
	if err := r.db.Where("token = ?", token).First(&rp).Error; err != nil {
		return nil, err
	}
	return &rp, nil
}

// FindByCustomerRef returns all saved cards for a customer.
func (r *ReusablePaymentRepository) FindByCustomerRef(ref string) ([]models.ReusablePayment, error) {
	var rps []models.ReusablePayment
	err := r.db.Where("customer_ref = ?", ref).Find(&rps).Error
	return rps, err
}

// Save upserts a saved card token. Re-using a stored card refreshes its
// prior auth reference and retention window instead of duplicating the row.
func (r *ReusablePaymentRepository) Save(rp *models.ReusablePayment) error {
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "token"}},
		DoUpdates: clause.AssignmentColumns([]string{"auth_code", "expires_at"}),
	}).Create(rp).Error
}

// DeleteExpired removes tokens past their expiry. Returns rows removed.
func (r *ReusablePaymentRepository) DeleteExpired(now time.Time) (int64, error) {
	res := r.db.Where("expires_at IS NOT NULL AND expires_at < ?", now).
		Delete(&models.ReusablePayment{})
	return res.RowsAffected, res.Error
}
