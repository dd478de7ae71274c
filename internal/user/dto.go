package user

import "github.com/frahmantamala/workshop-management/internal"

type SetActiveServiceDTO struct {
	ServiceID int64 `json:"service_id"`
}

func (dto SetActiveServiceDTO) Validate() error {
	if dto.ServiceID <= 0 {
		return internal.NewValidationFieldError("service_id", "service_id must be a positive number", internal.ErrCodeInvalidID)
	}
	return nil
}
