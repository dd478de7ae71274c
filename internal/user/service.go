package user

import (
	"log/slog"
	"time"

	"github.com/frahmantamala/workshop-management/internal"
)

// Repository defines the data access methods for users
type Repository interface {
	GetByID(id int64) (*User, error)
	Create(u *User) error
	Save(u *User) error
}

// Service owns all mutation of user records. The service-set and
// registration-status fields are only ever changed through here, by the
// tenant directory and the hiring coordinator.
type Service struct {
	repo   Repository
	logger *slog.Logger
}

func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger,
	}
}

// Upsert creates or refreshes a user from identity claims. The merge is
// idempotent: profile fields are overwritten, server-side fields are kept.
func (s *Service) Upsert(claims IdentityClaims) (*User, error) {
	if claims.ID <= 0 {
		return nil, internal.NewValidationFieldError("id", "user id must be a positive number", internal.ErrCodeInvalidID)
	}

	now := time.Now()

	existing, err := s.repo.GetByID(claims.ID)
	if err != nil {
		if appErr, ok := internal.IsAppError(err); !ok || appErr.Code != internal.ErrCodeUserNotFound {
			s.logger.Error("failed to look up user for upsert", "error", err, "user_id", claims.ID)
			return nil, err
		}

		u := &User{
			ID:                 claims.ID,
			FirstName:          claims.FirstName,
			LastName:           claims.LastName,
			Username:           claims.Username,
			LanguageCode:       claims.LanguageCode,
			Role:               GlobalRoleUser,
			RegistrationStatus: RegistrationStatusUnregistered,
			OwnedServiceIDs:    []int64{},
			EmployeeServiceIDs: []int64{},
			LastSeenAt:         now,
			CreatedAt:          now,
			UpdatedAt:          now,
		}
		if err := s.repo.Create(u); err != nil {
			s.logger.Error("failed to create user", "error", err, "user_id", claims.ID)
			return nil, err
		}

		s.logger.Info("user created", "user_id", u.ID, "username", u.Username)
		return u, nil
	}

	existing.FirstName = claims.FirstName
	existing.LastName = claims.LastName
	existing.Username = claims.Username
	if claims.LanguageCode != "" {
		existing.LanguageCode = claims.LanguageCode
	}
	existing.LastSeenAt = now
	existing.UpdatedAt = now

	if err := s.repo.Save(existing); err != nil {
		s.logger.Error("failed to refresh user", "error", err, "user_id", claims.ID)
		return nil, err
	}

	return existing, nil
}

func (s *Service) GetByID(id int64) (*User, error) {
	return s.repo.GetByID(id)
}

// OwnedServiceIDs exposes just the ownership set for permission decisions.
func (s *Service) OwnedServiceIDs(userID int64) ([]int64, error) {
	u, err := s.repo.GetByID(userID)
	if err != nil {
		return nil, err
	}
	return u.OwnedServiceIDs, nil
}

func (s *Service) SetActiveService(userID, serviceID int64) error {
	u, err := s.repo.GetByID(userID)
	if err != nil {
		return err
	}
	if !u.OwnsService(serviceID) && !u.WorksAtService(serviceID) {
		return internal.ErrPermissionDenied
	}
	u.ActiveServiceID = &serviceID
	u.UpdatedAt = time.Now()
	return s.repo.Save(u)
}

// AddOwnedService appends serviceID to the user's owned set. Idempotent.
func (s *Service) AddOwnedService(userID, serviceID int64) (*User, error) {
	u, err := s.repo.GetByID(userID)
	if err != nil {
		return nil, err
	}
	if u.OwnsService(serviceID) {
		return u, nil
	}
	u.OwnedServiceIDs = append(u.OwnedServiceIDs, serviceID)
	u.ActiveServiceID = &serviceID
	u.UpdatedAt = time.Now()
	if err := s.repo.Save(u); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *Service) RemoveOwnedService(userID, serviceID int64) error {
	u, err := s.repo.GetByID(userID)
	if err != nil {
		return err
	}
	u.OwnedServiceIDs = removeID(u.OwnedServiceIDs, serviceID)
	if u.ActiveServiceID != nil && *u.ActiveServiceID == serviceID {
		u.ActiveServiceID = nil
	}
	u.UpdatedAt = time.Now()
	return s.repo.Save(u)
}

// AddEmployeeService appends serviceID to the user's employee set. Idempotent.
func (s *Service) AddEmployeeService(userID, serviceID int64) error {
	u, err := s.repo.GetByID(userID)
	if err != nil {
		return err
	}
	if u.WorksAtService(serviceID) {
		return nil
	}
	u.EmployeeServiceIDs = append(u.EmployeeServiceIDs, serviceID)
	u.UpdatedAt = time.Now()
	return s.repo.Save(u)
}

func (s *Service) RemoveEmployeeService(userID, serviceID int64) error {
	u, err := s.repo.GetByID(userID)
	if err != nil {
		return err
	}
	u.EmployeeServiceIDs = removeID(u.EmployeeServiceIDs, serviceID)
	if u.ActiveServiceID != nil && *u.ActiveServiceID == serviceID {
		u.ActiveServiceID = nil
	}
	u.UpdatedAt = time.Now()
	return s.repo.Save(u)
}

func (s *Service) SetRegistrationStatus(userID int64, status RegistrationStatus, activeServiceID *int64) error {
	u, err := s.repo.GetByID(userID)
	if err != nil {
		return err
	}
	u.RegistrationStatus = status
	if activeServiceID != nil {
		u.ActiveServiceID = activeServiceID
	}
	u.UpdatedAt = time.Now()
	return s.repo.Save(u)
}

func (s *Service) SetGlobalRole(userID int64, role GlobalRole) error {
	u, err := s.repo.GetByID(userID)
	if err != nil {
		return err
	}
	u.Role = role
	u.UpdatedAt = time.Now()
	return s.repo.Save(u)
}

func removeID(ids []int64, id int64) []int64 {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
