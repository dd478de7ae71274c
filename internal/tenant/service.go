package tenant

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/frahmantamala/workshop-management/internal"
	"github.com/frahmantamala/workshop-management/internal/core/events"
	"github.com/frahmantamala/workshop-management/internal/core/keymutex"
	"github.com/frahmantamala/workshop-management/internal/user"
)

// Repository defines the data access methods for services and memberships.
type Repository interface {
	CreateService(svc *Service) error
	GetServiceByID(id int64) (*Service, error)
	GetServiceByNumber(number string) (*Service, error)
	ListServicesByOwner(ownerID int64) ([]*Service, error)
	SaveService(svc *Service) error
	DeleteService(id int64) error

	CreateMembership(m *Membership) error
	GetMembershipByID(id int64) (*Membership, error)
	GetActiveMembership(serviceID, userID int64) (*Membership, error)
	SaveMembership(m *Membership) error
	DeleteMembership(id int64) error
	ListMembershipsByService(serviceID int64) ([]*Membership, error)
	ListMembershipsByUser(userID int64) ([]*Membership, error)
}

// UserDirectory is the slice of the user service the directory needs to keep
// the per-user service sets in sync with the authoritative records here.
type UserDirectory interface {
	GetByID(id int64) (*user.User, error)
	AddOwnedService(userID, serviceID int64) (*user.User, error)
	RemoveOwnedService(userID, serviceID int64) error
	AddEmployeeService(userID, serviceID int64) error
	RemoveEmployeeService(userID, serviceID int64) error
	SetRegistrationStatus(userID int64, status user.RegistrationStatus, activeServiceID *int64) error
	SetGlobalRole(userID int64, role user.GlobalRole) error
}

// Directory owns all service and membership records.
type Directory struct {
	repo     Repository
	users    UserDirectory
	eventBus *events.EventBus
	locks    *keymutex.KeyMutex
	logger   *slog.Logger
}

func NewDirectory(repo Repository, users UserDirectory, eventBus *events.EventBus, logger *slog.Logger) *Directory {
	return &Directory{
		repo:     repo,
		users:    users,
		eventBus: eventBus,
		locks:    keymutex.New(),
		logger:   logger,
	}
}

// CreateService registers a new service for ownerID. The service number is a
// global namespace, so creation is serialized per number.
func (d *Directory) CreateService(ownerID int64, dto CreateServiceDTO) (*Service, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	unlock := d.locks.Lock("service_number:" + dto.ServiceNumber)
	defer unlock()

	if existing, err := d.repo.GetServiceByNumber(dto.ServiceNumber); err == nil && existing != nil {
		d.logger.Warn("service number collision", "service_number", dto.ServiceNumber, "owner_id", ownerID)
		return nil, internal.ErrDuplicateServiceNumber
	} else if err != nil {
		if appErr, ok := internal.IsAppError(err); !ok || appErr.Code != internal.ErrCodeUnknownService {
			return nil, err
		}
	}

	now := time.Now()
	svc := &Service{
		OwnerID:       ownerID,
		ServiceNumber: dto.ServiceNumber,
		Name:          dto.Name,
		Address:       dto.Address,
		Phone:         dto.Phone,
		Status:        ServiceStatusActive,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := d.repo.CreateService(svc); err != nil {
		d.logger.Error("failed to create service", "error", err, "service_number", dto.ServiceNumber)
		return nil, err
	}

	owner, err := d.users.AddOwnedService(ownerID, svc.ID)
	if err != nil {
		d.logger.Error("failed to record ownership", "error", err, "service_id", svc.ID, "owner_id", ownerID)
		return nil, err
	}
	if err := d.users.SetRegistrationStatus(ownerID, user.RegistrationStatusRegistered, &svc.ID); err != nil {
		d.logger.Error("failed to mark owner registered", "error", err, "owner_id", ownerID)
		return nil, err
	}

	promoteOwnerOnFirstService(d.users, owner, d.logger)

	d.logger.Info("service created",
		"service_id", svc.ID,
		"service_number", svc.ServiceNumber,
		"owner_id", ownerID)

	d.eventBus.Publish(context.Background(), events.NewServiceCreatedEvent(svc.ID, svc.ServiceNumber, ownerID))

	return svc, nil
}

func (d *Directory) GetService(id int64) (*Service, error) {
	return d.repo.GetServiceByID(id)
}

// GetServiceFor returns the record only when actorID owns the service or
// holds an active membership there. Everyone else gets the same error as for
// an id that does not exist, so service ids cannot be enumerated.
func (d *Directory) GetServiceFor(actorID, serviceID int64) (*Service, error) {
	svc, err := d.repo.GetServiceByID(serviceID)
	if err != nil {
		return nil, err
	}
	if svc.OwnerID == actorID {
		return svc, nil
	}
	if m, err := d.repo.GetActiveMembership(serviceID, actorID); err == nil && m != nil {
		return svc, nil
	}
	return nil, internal.ErrUnknownService
}

func (d *Directory) GetServiceByNumber(number string) (*Service, error) {
	return d.repo.GetServiceByNumber(number)
}

func (d *Directory) ListByOwner(ownerID int64) ([]*Service, error) {
	return d.repo.ListServicesByOwner(ownerID)
}

func (d *Directory) UpdateService(actorID, serviceID int64, dto UpdateServiceDTO) (*Service, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	svc, err := d.repo.GetServiceByID(serviceID)
	if err != nil {
		return nil, err
	}
	if svc.OwnerID != actorID {
		return nil, internal.ErrPermissionDenied
	}

	if dto.Name != nil {
		svc.Name = *dto.Name
	}
	if dto.Address != nil {
		svc.Address = *dto.Address
	}
	if dto.Phone != nil {
		svc.Phone = *dto.Phone
	}
	if dto.Status != nil {
		svc.Status = *dto.Status
	}
	svc.UpdatedAt = time.Now()

	if err := d.repo.SaveService(svc); err != nil {
		d.logger.Error("failed to update service", "error", err, "service_id", serviceID)
		return nil, err
	}
	return svc, nil
}

// DeleteService removes a service and cascades: memberships are deleted and
// the service id is stripped from every affected user's sets. Employee
// history dies with the tenant.
func (d *Directory) DeleteService(actorID, serviceID int64) error {
	svc, err := d.repo.GetServiceByID(serviceID)
	if err != nil {
		return err
	}
	if svc.OwnerID != actorID {
		return internal.ErrPermissionDenied
	}

	memberships, err := d.repo.ListMembershipsByService(serviceID)
	if err != nil {
		return err
	}
	for _, m := range memberships {
		if err := d.removeMembershipRecord(m); err != nil {
			d.logger.Error("failed to cascade membership removal",
				"error", err, "membership_id", m.ID, "service_id", serviceID)
			return err
		}
	}

	if err := d.users.RemoveOwnedService(svc.OwnerID, serviceID); err != nil {
		return err
	}
	if err := d.repo.DeleteService(serviceID); err != nil {
		d.logger.Error("failed to delete service", "error", err, "service_id", serviceID)
		return err
	}

	d.logger.Info("service deleted", "service_id", serviceID, "owner_id", svc.OwnerID)
	return nil
}

// AddMembership hires userID into serviceID. Idempotent: an existing active
// membership is returned unchanged.
func (d *Directory) AddMembership(serviceID, userID int64, role TenantRole, invitedBy *int64, permissions []string) (*Membership, error) {
	unlock := d.locks.Lock(fmt.Sprintf("membership:%d:%d", serviceID, userID))
	defer unlock()

	if _, err := d.repo.GetServiceByID(serviceID); err != nil {
		return nil, err
	}

	if existing, err := d.repo.GetActiveMembership(serviceID, userID); err == nil && existing != nil {
		return existing, nil
	} else if err != nil {
		if appErr, ok := internal.IsAppError(err); !ok || appErr.Code != internal.ErrCodeMembershipNotFound {
			return nil, err
		}
	}

	if role == "" {
		role = RoleEmployee
	}
	if len(permissions) == 0 {
		permissions = DefaultEmployeePermissions()
	}

	now := time.Now()
	m := &Membership{
		ServiceID:   serviceID,
		UserID:      userID,
		Role:        role,
		Permissions: permissions,
		Status:      MembershipStatusActive,
		InvitedBy:   invitedBy,
		JoinedAt:    now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := d.repo.CreateMembership(m); err != nil {
		d.logger.Error("failed to create membership", "error", err, "service_id", serviceID, "user_id", userID)
		return nil, err
	}

	if err := d.users.AddEmployeeService(userID, serviceID); err != nil {
		d.logger.Error("failed to record employee service", "error", err, "service_id", serviceID, "user_id", userID)
		return nil, err
	}

	d.logger.Info("membership created",
		"membership_id", m.ID,
		"service_id", serviceID,
		"user_id", userID,
		"role", m.Role)

	var inviter int64
	if invitedBy != nil {
		inviter = *invitedBy
	}
	d.eventBus.Publish(context.Background(), events.NewMembershipCreatedEvent(m.ID, serviceID, userID, string(m.Role), inviter))

	return m, nil
}

func (d *Directory) RemoveMembership(actorID, membershipID int64) error {
	m, err := d.repo.GetMembershipByID(membershipID)
	if err != nil {
		return err
	}

	if err := d.canManageEmployees(actorID, m.ServiceID); err != nil {
		return err
	}

	if err := d.removeMembershipRecord(m); err != nil {
		return err
	}

	d.logger.Info("membership removed", "membership_id", membershipID, "service_id", m.ServiceID, "user_id", m.UserID)
	return nil
}

func (d *Directory) removeMembershipRecord(m *Membership) error {
	if err := d.repo.DeleteMembership(m.ID); err != nil {
		return err
	}
	if err := d.users.RemoveEmployeeService(m.UserID, m.ServiceID); err != nil {
		return err
	}
	d.eventBus.Publish(context.Background(), events.NewMembershipRemovedEvent(m.ID, m.ServiceID, m.UserID))
	return nil
}

func (d *Directory) UpdateMembership(actorID, membershipID int64, dto UpdateMembershipDTO) (*Membership, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	m, err := d.repo.GetMembershipByID(membershipID)
	if err != nil {
		return nil, err
	}

	if err := d.canManageEmployees(actorID, m.ServiceID); err != nil {
		return nil, err
	}

	if dto.Role != nil {
		m.Role = TenantRole(*dto.Role)
	}
	if dto.Permissions != nil {
		m.Permissions = *dto.Permissions
	}
	if dto.Status != nil {
		m.Status = *dto.Status
	}
	m.UpdatedAt = time.Now()

	if err := d.repo.SaveMembership(m); err != nil {
		d.logger.Error("failed to update membership", "error", err, "membership_id", membershipID)
		return nil, err
	}
	return m, nil
}

// canManageEmployees admits the owner and any member whose role or permission
// set carries manage_employees. Every failure collapses into the same denial.
func (d *Directory) canManageEmployees(actorID, serviceID int64) error {
	actor, err := d.users.GetByID(actorID)
	if err != nil {
		d.logger.Error("failed to load actor for membership change", "error", err, "actor_id", actorID)
		return internal.ErrPermissionDenied
	}

	membership, err := d.repo.GetActiveMembership(serviceID, actorID)
	if err != nil {
		if appErr, ok := internal.IsAppError(err); !ok || appErr.Code != internal.ErrCodeMembershipNotFound {
			d.logger.Error("failed to load actor membership", "error", err, "actor_id", actorID, "service_id", serviceID)
		}
		membership = nil
	}

	if !CanPerform(actor.OwnedServiceIDs, serviceID, membership, CapManageEmployees) {
		d.logger.Warn("membership change denied", "actor_id", actorID, "service_id", serviceID)
		return internal.ErrPermissionDenied
	}
	return nil
}

func (d *Directory) ListMemberships(serviceID int64) ([]*Membership, error) {
	if _, err := d.repo.GetServiceByID(serviceID); err != nil {
		return nil, err
	}
	return d.repo.ListMembershipsByService(serviceID)
}

// ActiveMembership returns the caller's active membership at serviceID, or
// MembershipNotFound.
func (d *Directory) ActiveMembership(serviceID, userID int64) (*Membership, error) {
	return d.repo.GetActiveMembership(serviceID, userID)
}
