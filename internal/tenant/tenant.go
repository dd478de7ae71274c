package tenant

import "time"

// TenantRole is a user's role inside a single service.
type TenantRole string

const (
	RoleOwner    TenantRole = "owner"
	RoleManager  TenantRole = "manager"
	RoleEmployee TenantRole = "employee"
)

const (
	ServiceStatusActive   = "active"
	ServiceStatusInactive = "inactive"

	MembershipStatusActive   = "active"
	MembershipStatusInactive = "inactive"
)

// Capability names. Stored per membership as a plain string set so a service
// owner can tailor what each employee may do.
const (
	CapCreateOrders    = "create_orders"
	CapViewOrders      = "view_orders"
	CapEditOrders      = "edit_orders"
	CapDeleteOrders    = "delete_orders"
	CapManageEmployees = "manage_employees"
	CapViewAnalytics   = "view_analytics"
)

// DefaultEmployeePermissions is the capability set granted on hire.
func DefaultEmployeePermissions() []string {
	return []string{CapCreateOrders, CapViewOrders, CapEditOrders}
}

// Service is a single auto-repair shop: the unit of tenancy. The owner is not
// stored as a membership row; ownership is implied by OwnerID.
type Service struct {
	ID            int64     `json:"id" gorm:"primaryKey"`
	OwnerID       int64     `json:"owner_id"`
	ServiceNumber string    `json:"service_number"`
	Name          string    `json:"name"`
	Address       string    `json:"address,omitempty"`
	Phone         string    `json:"phone,omitempty"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (Service) TableName() string {
	return "services"
}

// Membership links an employee to a service with a role and a capability set.
// At most one active membership exists per (ServiceID, UserID).
type Membership struct {
	ID          int64      `json:"id" gorm:"primaryKey"`
	ServiceID   int64      `json:"service_id"`
	UserID      int64      `json:"user_id"`
	Role        TenantRole `json:"role"`
	Permissions []string   `json:"permissions" gorm:"serializer:json"`
	Status      string     `json:"status"`
	InvitedBy   *int64     `json:"invited_by,omitempty"`
	JoinedAt    time.Time  `json:"joined_at"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func (Membership) TableName() string {
	return "memberships"
}

func (m *Membership) IsActive() bool {
	return m.Status == MembershipStatusActive
}

func (m *Membership) HasPermission(capability string) bool {
	for _, p := range m.Permissions {
		if p == capability {
			return true
		}
	}
	return false
}
