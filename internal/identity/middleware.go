package identity

import (
	"net/http"
	"strings"
	"time"

	"github.com/frahmantamala/workshop-management/internal"
	"github.com/frahmantamala/workshop-management/internal/transport"
	"github.com/frahmantamala/workshop-management/internal/user"
	"github.com/frahmantamala/workshop-management/pkg/logger"
)

// Upserter is the slice of the user service the middleware needs.
type Upserter interface {
	Upsert(claims user.IdentityClaims) (*user.User, error)
}

// Middleware authenticates every request from the mini app. It verifies the
// signed init data, upserts the user record and puts the user on the request
// context. The mini app sends init data as "Authorization: tma <initData>".
func Middleware(verifier *Verifier, users Upserter, base *transport.BaseHandler) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := initDataFromRequest(r)
			if raw == "" {
				base.HandleServiceError(w, internal.NewUnauthorizedError("missing init data", internal.ErrCodeInvalidInitData))
				return
			}

			claims, err := verifier.Verify(raw, time.Now())
			if err != nil {
				base.Logger.Warn("init data verification failed", "error", err, "remote_addr", r.RemoteAddr)
				base.HandleServiceError(w, err)
				return
			}

			u, err := users.Upsert(claims)
			if err != nil {
				base.HandleServiceError(w, err)
				return
			}

			ctx := user.ContextWithUser(r.Context(), u)
			ctx = logger.With(ctx, "userID", u.ID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func initDataFromRequest(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(auth, "tma ") {
		return strings.TrimPrefix(auth, "tma ")
	}
	return r.Header.Get("X-Init-Data")
}
