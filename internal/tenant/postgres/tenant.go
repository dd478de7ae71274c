package postgres

import (
	"errors"

	"gorm.io/gorm"

	"github.com/frahmantamala/workshop-management/internal"
	"github.com/frahmantamala/workshop-management/internal/tenant"
)

// TenantRepository implements the tenant.Repository interface using GORM
type TenantRepository struct {
	db *gorm.DB
}

func NewTenantRepository(db *gorm.DB) tenant.Repository {
	return &TenantRepository{db: db}
}

func (r *TenantRepository) CreateService(svc *tenant.Service) error {
	return r.db.Create(svc).Error
}

func (r *TenantRepository) GetServiceByID(id int64) (*tenant.Service, error) {
	var svc tenant.Service
	err := r.db.Where("id = ?", id).First(&svc).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, internal.ErrUnknownService
		}
		return nil, err
	}
	return &svc, nil
}

func (r *TenantRepository) GetServiceByNumber(number string) (*tenant.Service, error) {
	var svc tenant.Service
	err := r.db.Where("service_number = ?", number).First(&svc).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, internal.ErrUnknownService
		}
		return nil, err
	}
	return &svc, nil
}

func (r *TenantRepository) ListServicesByOwner(ownerID int64) ([]*tenant.Service, error) {
	var services []*tenant.Service
	err := r.db.Where("owner_id = ?", ownerID).Order("created_at ASC").Find(&services).Error
	if err != nil {
		return nil, err
	}
	return services, nil
}

func (r *TenantRepository) SaveService(svc *tenant.Service) error {
	return r.db.Save(svc).Error
}

func (r *TenantRepository) DeleteService(id int64) error {
	return r.db.Delete(&tenant.Service{}, id).Error
}

func (r *TenantRepository) CreateMembership(m *tenant.Membership) error {
	return r.db.Create(m).Error
}

func (r *TenantRepository) GetMembershipByID(id int64) (*tenant.Membership, error) {
	var m tenant.Membership
	err := r.db.Where("id = ?", id).First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, internal.ErrMembershipNotFound
		}
		return nil, err
	}
	return &m, nil
}

func (r *TenantRepository) GetActiveMembership(serviceID, userID int64) (*tenant.Membership, error) {
	var m tenant.Membership
	err := r.db.
		Where("service_id = ? AND user_id = ? AND status = ?", serviceID, userID, tenant.MembershipStatusActive).
		First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, internal.ErrMembershipNotFound
		}
		return nil, err
	}
	return &m, nil
}

func (r *TenantRepository) SaveMembership(m *tenant.Membership) error {
	return r.db.Save(m).Error
}

func (r *TenantRepository) DeleteMembership(id int64) error {
	return r.db.Delete(&tenant.Membership{}, id).Error
}

func (r *TenantRepository) ListMembershipsByService(serviceID int64) ([]*tenant.Membership, error) {
	var memberships []*tenant.Membership
	err := r.db.Where("service_id = ?", serviceID).Order("joined_at ASC").Find(&memberships).Error
	if err != nil {
		return nil, err
	}
	return memberships, nil
}

func (r *TenantRepository) ListMembershipsByUser(userID int64) ([]*tenant.Membership, error) {
	var memberships []*tenant.Membership
	err := r.db.Where("user_id = ?", userID).Order("joined_at ASC").Find(&memberships).Error
	if err != nil {
		return nil, err
	}
	return memberships, nil
}
