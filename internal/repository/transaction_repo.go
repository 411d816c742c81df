package repository

import (
	"time"

	"gorm.io/gorm"

	"github.com/lunarphp/opayo/internal/models"
)

// TransactionRepository handles the append-only transaction ledger.
// There is intentionally no Update method.
type TransactionRepository struct {
	db *gorm.DB
}

func NewTransactionRepository(db *gorm.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

// Create appends a ledger row.
func (r *TransactionRepository) Create(tx *models.Transaction) error {
	return r.db.Create(tx).Error
}

// FindByID returns a transaction by primary key.
func (r *TransactionRepository) FindByID(id uint) (*models.Transaction, error) {
	var tx models.Transaction
	if err := r.db.First(&tx, id).Error; err != nil {
		return nil, err
	}
	return &tx, nil
}

// FindByReference returns the first transaction carrying a gateway reference.
func (r *TransactionRepository) FindByReference(reference string) (*models.Transaction, error) {
	var tx models.Transaction
	if err := r.db.Where("reference = ?", reference).First(&tx).Error; err != nil {
		return nil, err
	}
	return &tx, nil
}

// FindByOrderID returns all ledger rows for an order, oldest first.
func (r *TransactionRepository) FindByOrderID(orderID uint) ([]models.Transaction, error) {
	var txs []models.Transaction
	err := r.db.Where("order_id = ?", orderID).Order("id ASC").Find(&txs).Error
	return txs, err
}

// FindStaleIntents returns successful intent rows older than the cutoff
// whose order has no capture row yet. Used by the reconciliation cron.
func (r *TransactionRepository) FindStaleIntents(cutoff time.Time) ([]models.Transaction, error) {
	var txs []models.Transaction
	err := r.db.
		Where("type = ? AND success = ? AND created_at < ?", models.TransactionTypeIntent, true, cutoff).
		Where("order_id NOT IN (?)", r.db.Model(&models.Transaction{}).
			Select("order_id").
			Where("type = ?", models.TransactionTypeCapture)).
		Find(&txs).Error
	return txs, err
}
