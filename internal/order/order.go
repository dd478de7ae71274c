package order

import "time"

const (
	StatusNew        = "new"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
	StatusCancelled  = "cancelled"
)

// Order is a repair order inside one service. OrderNumber is unique within
// the service's number namespace, e.g. "1042-007".
type Order struct {
	ID           int64     `json:"id" gorm:"primaryKey"`
	ServiceID    int64     `json:"service_id"`
	OrderNumber  string    `json:"order_number"`
	CustomerName string    `json:"customer_name,omitempty"`
	CarModel     string    `json:"car_model,omitempty"`
	Description  string    `json:"description"`
	Status       string    `json:"status"`
	CreatedBy    int64     `json:"created_by"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (Order) TableName() string {
	return "orders"
}

func validStatus(status string) bool {
	switch status {
	case StatusNew, StatusInProgress, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}
