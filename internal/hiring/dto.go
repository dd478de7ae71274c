package hiring

import (
	"github.com/frahmantamala/workshop-management/internal"
	"github.com/frahmantamala/workshop-management/internal/tenant"
)

type ScanDTO struct {
	ServiceID int64     `json:"service_id"`
	Role      string    `json:"role,omitempty"`
	Payload   QRPayload `json:"payload"`
}

func (dto ScanDTO) Validate() error {
	if dto.ServiceID <= 0 {
		return internal.NewValidationFieldError("service_id", "service_id must be a positive number", internal.ErrCodeInvalidID)
	}
	if dto.Role != "" && dto.Role != string(tenant.RoleManager) && dto.Role != string(tenant.RoleEmployee) {
		return internal.NewValidationFieldError("role", "role must be manager or employee", internal.ErrCodeValidationFailed)
	}
	return nil
}

type ResolveDTO struct {
	// ServiceID names the hiring service for general-queue entries. Directed
	// entries carry their own.
	ServiceID *int64 `json:"service_id,omitempty"`
	Role      string `json:"role,omitempty"`
}

func (dto ResolveDTO) Validate() error {
	if dto.ServiceID != nil && *dto.ServiceID <= 0 {
		return internal.NewValidationFieldError("service_id", "service_id must be a positive number", internal.ErrCodeInvalidID)
	}
	if dto.Role != "" && dto.Role != string(tenant.RoleManager) && dto.Role != string(tenant.RoleEmployee) {
		return internal.NewValidationFieldError("role", "role must be manager or employee", internal.ErrCodeValidationFailed)
	}
	return nil
}

// QueueStatsDTO is the employer-facing aggregate.
type QueueStatsDTO struct {
	Pending        int64 `json:"pending"`
	WaitingForHire int64 `json:"waiting_for_hire"`
	Approved       int64 `json:"approved"`
	Rejected       int64 `json:"rejected"`
	Expired        int64 `json:"expired"`
	Total          int64 `json:"total"`
}
