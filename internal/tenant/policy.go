package tenant

import (
	"log/slog"

	"github.com/frahmantamala/workshop-management/internal/user"
)

// CanPerform is the whole permission model as a pure function.
//
// Decision order:
//  1. the service owner may do anything in their own service
//  2. no active membership means no access at all
//  3. owner/manager roles carry every capability
//  4. otherwise the capability must be in the membership's permission set
//
// membership may be nil (no row found).
func CanPerform(ownedServiceIDs []int64, serviceID int64, membership *Membership, capability string) bool {
	for _, id := range ownedServiceIDs {
		if id == serviceID {
			return true
		}
	}

	if membership == nil || !membership.IsActive() || membership.ServiceID != serviceID {
		return false
	}

	if membership.Role == RoleOwner || membership.Role == RoleManager {
		return true
	}

	return membership.HasPermission(capability)
}

// promoteOwnerOnFirstService grants the global admin role to a user when they
// register their first service. Legacy behavior kept deliberately: existing
// installs rely on first-shop owners administering the app. Isolated here so
// it can be retired without touching the registration flow.
func promoteOwnerOnFirstService(users UserDirectory, owner *user.User, logger *slog.Logger) {
	if len(owner.OwnedServiceIDs) != 1 || owner.Role == user.GlobalRoleAdmin {
		return
	}
	if err := users.SetGlobalRole(owner.ID, user.GlobalRoleAdmin); err != nil {
		logger.Error("failed to promote first-service owner", "error", err, "user_id", owner.ID)
		return
	}
	logger.Info("first-service owner promoted to admin", "user_id", owner.ID)
}
