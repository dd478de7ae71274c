package user

import (
	"strings"
	"time"
)

// GlobalRole is the app-wide role of a user. It is unrelated to the
// per-service tenant roles; the two vocabularies are kept as distinct types
// on purpose.
type GlobalRole string

const (
	GlobalRoleAdmin     GlobalRole = "admin"
	GlobalRoleModerator GlobalRole = "moderator"
	GlobalRoleUser      GlobalRole = "user"
)

type RegistrationStatus string

const (
	RegistrationStatusUnregistered   RegistrationStatus = "unregistered"
	RegistrationStatusRegistered     RegistrationStatus = "registered"
	RegistrationStatusEmployee       RegistrationStatus = "employee"
	RegistrationStatusWaitingForHire RegistrationStatus = "waiting_for_hire"
)

// User is keyed by the external messaging-platform user id. Profile fields
// are refreshed on every authenticated contact; the server-side fields
// (role, registration status, service sets) survive re-identification.
type User struct {
	ID                 int64              `json:"id" gorm:"primaryKey"`
	FirstName          string             `json:"first_name"`
	LastName           string             `json:"last_name"`
	Username           string             `json:"username"`
	LanguageCode       string             `json:"language_code"`
	Role               GlobalRole         `json:"role" gorm:"default:user"`
	RegistrationStatus RegistrationStatus `json:"registration_status" gorm:"column:registration_status;default:unregistered"`
	OwnedServiceIDs    []int64            `json:"owned_service_ids" gorm:"serializer:json"`
	EmployeeServiceIDs []int64            `json:"employee_service_ids" gorm:"serializer:json"`
	ActiveServiceID    *int64             `json:"active_service_id,omitempty"`
	LastSeenAt         time.Time          `json:"last_seen_at"`
	CreatedAt          time.Time          `json:"created_at"`
	UpdatedAt          time.Time          `json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}

func (u *User) DisplayName() string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name != "" {
		return name
	}
	if u.Username != "" {
		return u.Username
	}
	return "User"
}

func (u *User) OwnsService(serviceID int64) bool {
	for _, id := range u.OwnedServiceIDs {
		if id == serviceID {
			return true
		}
	}
	return false
}

func (u *User) WorksAtService(serviceID int64) bool {
	for _, id := range u.EmployeeServiceIDs {
		if id == serviceID {
			return true
		}
	}
	return false
}

// IdentityClaims is the identity assertion carried by the platform's signed
// init data. Profile fields only; everything else is server-side state.
type IdentityClaims struct {
	ID           int64  `json:"id"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	Username     string `json:"username"`
	LanguageCode string `json:"language_code"`
}
