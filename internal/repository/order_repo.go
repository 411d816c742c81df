package repository

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/lunarphp/opayo/internal/models"
)

// ErrAlreadyPlaced is returned when marking an order placed a second time.
var ErrAlreadyPlaced = errors.New("order already placed")

// OrderRepository handles order database operations.
type OrderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// FindByID returns an order by primary key.
func (r *OrderRepository) FindByID(id uint) (*models.Order, error) {
	var order models.Order
	if err := r.db.First(&order, id).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

// FindByReference returns an order by its merchant reference.
func (r *OrderRepository) FindByReference(reference string) (*models.Order, error) {
	var order models.Order
	if err := r.db.Where("reference = ?", reference).First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

// FindUnplacedPaid returns orders that carry a successful capture row but
// were never stamped placed, e.g. after a crash between recording and
// stamping. The reconciliation cron repairs these.
func (r *OrderRepository) FindUnplacedPaid() ([]models.Order, error) {
	var orders []models.Order
	err := r.db.
		Joins("JOIN transactions ON transactions.order_id = orders.id").
		Where("orders.placed_at IS NULL AND transactions.success = ? AND transactions.type = ?",
			true, models.TransactionTypeCapture).
		Group("orders.id").
		Find(&orders).Error
	return orders, err
}

// MarkPlaced stamps placed_at on an order that has not been placed yet.
// The WHERE clause makes the stamp a one-shot: a second call affects zero
// rows and returns ErrAlreadyPlaced.
func (r *OrderRepository) MarkPlaced(id uint, placedAt time.Time) error {
	res := r.db.Model(&models.Order{}).
		Where("id = ? AND placed_at IS NULL", id).
		Updates(map[string]interface{}{"placed_at": placedAt, "status": "paid"})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrAlreadyPlaced
	}
	return nil
}
