package middleware

import (
	"log/slog"
	"net/http"

	"opsdesk/internal/platform/config"
	"opsdesk/pkg/requestcontext"
)

// SessionCookie carries the access token between requests.
const SessionCookie = "od_session"

// TokenChecker validates that an access token is structurally sound and
// unexpired. It must not consult profile state; that belongs to the guard.
type TokenChecker interface {
	CheckToken(token string) error
}

// SessionFilter is the coarse, fail-closed pre-check run before any protected
// handler: public paths pass untouched, everything else needs a session cookie
// holding a valid token. Fine-grained status and role checks are deliberately
// left to the access guard behind it.
func SessionFilter(security config.Security, checker TokenChecker, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if security.IsPublic(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			cookie, err := r.Cookie(SessionCookie)
			if err != nil || cookie.Value == "" {
				redirectToLanding(w, r)
				return
			}

			if err := checker.CheckToken(cookie.Value); err != nil {
				logger.WarnContext(r.Context(), "session filter rejected request",
					"path", r.URL.Path,
					"error", err.Error(),
					"request_id", requestcontext.RequestID(r.Context()),
				)
				redirectToLanding(w, r)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// redirectToLanding always targets the same route regardless of the failure
// reason, so responses do not reveal which check failed.
func redirectToLanding(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, config.LandingRoute, http.StatusSeeOther)
}
