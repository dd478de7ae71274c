package order

import (
	"strings"

	"github.com/frahmantamala/workshop-management/internal"
)

type CreateOrderDTO struct {
	CustomerName string `json:"customer_name,omitempty"`
	CarModel     string `json:"car_model,omitempty"`
	Description  string `json:"description"`
}

func (dto CreateOrderDTO) Validate() error {
	if strings.TrimSpace(dto.Description) == "" {
		return internal.NewValidationFieldError("description", "description is required", internal.ErrCodeValidationFailed)
	}
	return nil
}

type UpdateOrderDTO struct {
	CustomerName *string `json:"customer_name,omitempty"`
	CarModel     *string `json:"car_model,omitempty"`
	Description  *string `json:"description,omitempty"`
	Status       *string `json:"status,omitempty"`
}

func (dto UpdateOrderDTO) Validate() error {
	if dto.Description != nil && strings.TrimSpace(*dto.Description) == "" {
		return internal.NewValidationFieldError("description", "description cannot be empty", internal.ErrCodeValidationFailed)
	}
	if dto.Status != nil && !validStatus(*dto.Status) {
		return internal.NewValidationFieldError("status", "unknown order status", internal.ErrCodeValidationFailed)
	}
	return nil
}
