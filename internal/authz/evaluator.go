package authz

import (
	"log/slog"

	"github.com/frahmantamala/workshop-management/internal"
	"github.com/frahmantamala/workshop-management/internal/tenant"
)

// CanPerform applies the permission model. The pure decision lives in the
// tenant package next to the capability and role definitions; this package
// adds the record loading and the uniform denial on top.
func CanPerform(ownedServiceIDs []int64, serviceID int64, membership *tenant.Membership, capability string) bool {
	return tenant.CanPerform(ownedServiceIDs, serviceID, membership, capability)
}

// UserResolver loads the user-side half of the decision input.
type UserResolver interface {
	OwnedServiceIDs(userID int64) ([]int64, error)
}

// MembershipResolver loads the tenant-side half.
type MembershipResolver interface {
	ActiveMembership(serviceID, userID int64) (*tenant.Membership, error)
}

// Authorizer resolves records and applies CanPerform. Every denial reason
// collapses into ErrPermissionDenied so callers cannot probe which services
// exist.
type Authorizer struct {
	users       UserResolver
	memberships MembershipResolver
	logger      *slog.Logger
}

func NewAuthorizer(users UserResolver, memberships MembershipResolver, logger *slog.Logger) *Authorizer {
	return &Authorizer{
		users:       users,
		memberships: memberships,
		logger:      logger,
	}
}

func (a *Authorizer) CanPerform(userID, serviceID int64, capability string) error {
	owned, err := a.users.OwnedServiceIDs(userID)
	if err != nil {
		a.logger.Error("authz: failed to load user", "error", err, "user_id", userID)
		return internal.ErrPermissionDenied
	}

	membership, err := a.memberships.ActiveMembership(serviceID, userID)
	if err != nil {
		if appErr, ok := internal.IsAppError(err); !ok || appErr.Code != internal.ErrCodeMembershipNotFound {
			a.logger.Error("authz: failed to load membership", "error", err, "user_id", userID, "service_id", serviceID)
		}
		membership = nil
	}

	if !CanPerform(owned, serviceID, membership, capability) {
		a.logger.Warn("permission denied",
			"user_id", userID,
			"service_id", serviceID,
			"capability", capability)
		return internal.ErrPermissionDenied
	}
	return nil
}
