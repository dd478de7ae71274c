package order

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/frahmantamala/workshop-management/internal"
	"github.com/frahmantamala/workshop-management/internal/core/keymutex"
	"github.com/frahmantamala/workshop-management/internal/tenant"
)

// Repository defines the data access methods for orders.
type Repository interface {
	Create(o *Order) error
	GetByID(id int64) (*Order, error)
	ListByService(serviceID int64, limit, offset int) ([]*Order, error)
	Save(o *Order) error
	Delete(id int64) error
	// MaxOrderSuffix returns the highest numeric suffix used at the service,
	// 0 when there are no orders yet.
	MaxOrderSuffix(serviceID int64) (int, error)
}

// ServiceResolver resolves the owning service for order numbering.
type ServiceResolver interface {
	GetService(id int64) (*tenant.Service, error)
}

// Service handles order business logic. Capability checks happen at the
// router; everything here assumes the caller already passed the gate.
type Service struct {
	repo     Repository
	tenants  ServiceResolver
	numLocks *keymutex.KeyMutex
	logger   *slog.Logger
}

func NewService(repo Repository, tenants ServiceResolver, logger *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		tenants:  tenants,
		numLocks: keymutex.New(),
		logger:   logger,
	}
}

func (s *Service) CreateOrder(serviceID, createdBy int64, dto CreateOrderDTO) (*Order, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	svc, err := s.tenants.GetService(serviceID)
	if err != nil {
		return nil, err
	}

	// The lock covers allocation and insert so two concurrent creates
	// cannot take the same number.
	unlock := s.numLocks.Lock("order_number:" + svc.ServiceNumber)
	defer unlock()

	max, err := s.repo.MaxOrderSuffix(serviceID)
	if err != nil {
		return nil, err
	}
	number := fmt.Sprintf("%s-%03d", svc.ServiceNumber, max+1)

	now := time.Now()
	o := &Order{
		ServiceID:    serviceID,
		OrderNumber:  number,
		CustomerName: dto.CustomerName,
		CarModel:     dto.CarModel,
		Description:  dto.Description,
		Status:       StatusNew,
		CreatedBy:    createdBy,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Create(o); err != nil {
		s.logger.Error("failed to create order", "error", err, "service_id", serviceID)
		return nil, err
	}

	s.logger.Info("order created", "order_id", o.ID, "order_number", o.OrderNumber, "service_id", serviceID)
	return o, nil
}

func (s *Service) GetOrder(serviceID, orderID int64) (*Order, error) {
	o, err := s.repo.GetByID(orderID)
	if err != nil {
		return nil, err
	}
	if o.ServiceID != serviceID {
		return nil, internal.ErrOrderNotFound
	}
	return o, nil
}

func (s *Service) ListOrders(serviceID int64, limit, offset int) ([]*Order, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.ListByService(serviceID, limit, offset)
}

func (s *Service) UpdateOrder(serviceID, orderID int64, dto UpdateOrderDTO) (*Order, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	o, err := s.GetOrder(serviceID, orderID)
	if err != nil {
		return nil, err
	}

	if dto.CustomerName != nil {
		o.CustomerName = *dto.CustomerName
	}
	if dto.CarModel != nil {
		o.CarModel = *dto.CarModel
	}
	if dto.Description != nil {
		o.Description = *dto.Description
	}
	if dto.Status != nil {
		o.Status = *dto.Status
	}
	o.UpdatedAt = time.Now()

	if err := s.repo.Save(o); err != nil {
		s.logger.Error("failed to update order", "error", err, "order_id", orderID)
		return nil, err
	}
	return o, nil
}

func (s *Service) DeleteOrder(serviceID, orderID int64) error {
	if _, err := s.GetOrder(serviceID, orderID); err != nil {
		return err
	}
	if err := s.repo.Delete(orderID); err != nil {
		s.logger.Error("failed to delete order", "error", err, "order_id", orderID)
		return err
	}
	s.logger.Info("order deleted", "order_id", orderID, "service_id", serviceID)
	return nil
}

// NextOrderNumber previews the next "<serviceNumber>-NNN" number. The
// authoritative allocation happens under the same lock inside CreateOrder.
func (s *Service) NextOrderNumber(serviceID int64) (string, error) {
	svc, err := s.tenants.GetService(serviceID)
	if err != nil {
		return "", err
	}

	unlock := s.numLocks.Lock("order_number:" + svc.ServiceNumber)
	defer unlock()

	max, err := s.repo.MaxOrderSuffix(serviceID)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s-%03d", svc.ServiceNumber, max+1), nil
}
