package tenant

import (
	"regexp"
	"strings"

	"github.com/frahmantamala/workshop-management/internal"
	"github.com/frahmantamala/workshop-management/internal/core/common/validation"
)

var serviceNumberPattern = regexp.MustCompile(`^[0-9]{1,10}$`)

type CreateServiceDTO struct {
	ServiceNumber string `json:"service_number"`
	Name          string `json:"name"`
	Address       string `json:"address,omitempty"`
	Phone         string `json:"phone,omitempty"`
}

func (dto CreateServiceDTO) Validate() error {
	v := validation.NewValidator()
	v.Field("name", strings.TrimSpace(dto.Name)).
		Required().
		MaxLength(200)
	v.Field("service_number", dto.ServiceNumber).
		Required().
		Matches(serviceNumberPattern, "service_number must be 1-10 digits")

	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}

type UpdateServiceDTO struct {
	Name    *string `json:"name,omitempty"`
	Address *string `json:"address,omitempty"`
	Phone   *string `json:"phone,omitempty"`
	Status  *string `json:"status,omitempty"`
}

func (dto UpdateServiceDTO) Validate() error {
	if dto.Name != nil && strings.TrimSpace(*dto.Name) == "" {
		return internal.NewValidationFieldError("name", "name cannot be empty", internal.ErrCodeValidationFailed)
	}
	if dto.Status != nil && *dto.Status != ServiceStatusActive && *dto.Status != ServiceStatusInactive {
		return internal.NewValidationFieldError("status", "status must be active or inactive", internal.ErrCodeValidationFailed)
	}
	return nil
}

type AddMembershipDTO struct {
	UserID      int64    `json:"user_id"`
	Role        string   `json:"role,omitempty"`
	Permissions []string `json:"permissions,omitempty"`
}

func (dto AddMembershipDTO) Validate() error {
	if dto.UserID <= 0 {
		return internal.NewValidationFieldError("user_id", "user_id must be a positive number", internal.ErrCodeInvalidID)
	}
	if dto.Role != "" && !validMembershipRole(TenantRole(dto.Role)) {
		return internal.NewValidationFieldError("role", "role must be manager or employee", internal.ErrCodeValidationFailed)
	}
	return nil
}

type UpdateMembershipDTO struct {
	Role        *string   `json:"role,omitempty"`
	Permissions *[]string `json:"permissions,omitempty"`
	Status      *string   `json:"status,omitempty"`
}

func (dto UpdateMembershipDTO) Validate() error {
	if dto.Role != nil && !validMembershipRole(TenantRole(*dto.Role)) {
		return internal.NewValidationFieldError("role", "role must be manager or employee", internal.ErrCodeValidationFailed)
	}
	if dto.Status != nil && *dto.Status != MembershipStatusActive && *dto.Status != MembershipStatusInactive {
		return internal.NewValidationFieldError("status", "status must be active or inactive", internal.ErrCodeValidationFailed)
	}
	return nil
}

// validMembershipRole accepts roles that may be stored on a membership row.
// Owner is implicit from Service.OwnerID and never stored.
func validMembershipRole(role TenantRole) bool {
	return role == RoleManager || role == RoleEmployee
}
