package postgres

import (
	"errors"
	"strconv"
	"strings"

	"gorm.io/gorm"

	"github.com/frahmantamala/workshop-management/internal"
	"github.com/frahmantamala/workshop-management/internal/order"
)

// OrderRepository implements the order.Repository interface using GORM
type OrderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) order.Repository {
	return &OrderRepository{db: db}
}

func (r *OrderRepository) Create(o *order.Order) error {
	return r.db.Create(o).Error
}

func (r *OrderRepository) GetByID(id int64) (*order.Order, error) {
	var o order.Order
	err := r.db.Where("id = ?", id).First(&o).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, internal.ErrOrderNotFound
		}
		return nil, err
	}
	return &o, nil
}

func (r *OrderRepository) ListByService(serviceID int64, limit, offset int) ([]*order.Order, error) {
	var orders []*order.Order
	err := r.db.
		Where("service_id = ?", serviceID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *OrderRepository) Save(o *order.Order) error {
	return r.db.Save(o).Error
}

func (r *OrderRepository) Delete(id int64) error {
	return r.db.Delete(&order.Order{}, id).Error
}

// MaxOrderSuffix scans the service's order numbers for the highest local
// suffix. Numbers are "<serviceNumber>-NNN"; parsing in Go keeps the query
// portable between postgres and sqlite.
func (r *OrderRepository) MaxOrderSuffix(serviceID int64) (int, error) {
	var numbers []string
	err := r.db.Model(&order.Order{}).
		Where("service_id = ?", serviceID).
		Pluck("order_number", &numbers).Error
	if err != nil {
		return 0, err
	}

	max := 0
	for _, n := range numbers {
		idx := strings.LastIndex(n, "-")
		if idx < 0 {
			continue
		}
		suffix, err := strconv.Atoi(n[idx+1:])
		if err != nil {
			continue
		}
		if suffix > max {
			max = suffix
		}
	}
	return max, nil
}
