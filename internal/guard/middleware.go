package guard

import (
	"log/slog"
	"net/http"
	"strings"

	"opsdesk/internal/access"
	"opsdesk/internal/platform/config"
	"opsdesk/internal/platform/middleware"
	"opsdesk/internal/profile"
	"opsdesk/pkg/platform/httputil"
	"opsdesk/pkg/requestcontext"
)

// Middleware is the authoritative per-request check behind the coarse session
// filter: it resolves the session, runs the profile gate and applies the
// access rules, honoring the route table's role requirements. On allow it
// injects the user ID into the request context.
//
// Browser requests are redirected to the landing route on deny; the target
// never varies by reason. API clients receive the verdict as JSON instead.
func Middleware(checker Checker, security config.Security, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if security.IsPublic(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			token := ""
			if c, err := r.Cookie(middleware.SessionCookie); err == nil {
				token = c.Value
			}

			v, err := checker.Check(r.Context(), token, profile.Role(security.RequiredRole(r.URL.Path)))
			if err != nil {
				// Client went away mid-check.
				return
			}
			if !v.Allowed {
				deny(w, r, v)
				return
			}

			ctx := requestcontext.WithUserID(r.Context(), v.Identity.ID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func deny(w http.ResponseWriter, r *http.Request, v access.Verdict) {
	if wantsJSON(r) {
		httputil.WriteJSON(w, statusFor(v.Reason), v)
		return
	}
	http.Redirect(w, r, config.LandingRoute, http.StatusSeeOther)
}

func wantsJSON(r *http.Request) bool {
	accept := r.Header.Get("Accept")
	return strings.Contains(accept, "application/json") ||
		strings.Contains(r.Header.Get("Content-Type"), "application/json")
}

func statusFor(reason access.Reason) int {
	switch reason {
	case access.ReasonNoSession, access.ReasonSessionError, access.ReasonEmailNotConfirmed:
		return http.StatusUnauthorized
	default:
		return http.StatusForbidden
	}
}
