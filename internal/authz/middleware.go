package authz

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi"

	"github.com/frahmantamala/workshop-management/internal"
	"github.com/frahmantamala/workshop-management/internal/transport"
	"github.com/frahmantamala/workshop-management/internal/user"
)

// Gate produces chi middleware that enforces a capability against the
// {serviceID} URL param.
type Gate struct {
	authorizer *Authorizer
	base       *transport.BaseHandler
}

func NewGate(authorizer *Authorizer, base *transport.BaseHandler) *Gate {
	return &Gate{authorizer: authorizer, base: base}
}

// RequireCapability denies with one indistinguishable 403 whether the caller
// lacks access or the service does not exist. A malformed id is the only
// case that reports differently (400).
func (g *Gate) RequireCapability(capability string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u, ok := user.FromContext(r.Context())
			if !ok || u == nil {
				g.base.HandleServiceError(w, internal.NewUnauthorizedError("missing init data", internal.ErrCodeInvalidInitData))
				return
			}

			serviceID, err := strconv.ParseInt(chi.URLParam(r, "serviceID"), 10, 64)
			if err != nil || serviceID <= 0 {
				g.base.HandleServiceError(w, internal.NewValidationFieldError("serviceID", "serviceID must be a positive number", internal.ErrCodeInvalidID))
				return
			}

			if err := g.authorizer.CanPerform(u.ID, serviceID, capability); err != nil {
				g.base.HandleServiceError(w, err)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
