// Package httptransport assembles the HTTP surface: the platform middleware
// chain, the two-layer access control (edge session filter, then the guard)
// and the feature handlers. It owns no business logic of its own.
package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	activityhandler "opsdesk/internal/activity/handler"
	documentshandler "opsdesk/internal/documents/handler"
	"opsdesk/internal/guard"
	identityhandler "opsdesk/internal/identity/handler"
	"opsdesk/internal/platform/config"
	"opsdesk/internal/platform/metrics"
	"opsdesk/internal/platform/middleware"
	profilehandler "opsdesk/internal/profile/handler"
	"opsdesk/pkg/platform/httputil"
	"opsdesk/pkg/requestcontext"
)

const requestTimeout = 30 * time.Second

// ActivityObserver receives a fire-and-forget signal per authenticated
// request. Satisfied by the activity tracker.
type ActivityObserver interface {
	Observe(userID uuid.UUID)
}

// Deps gathers everything the router mounts. Observer may be nil when
// last-active tracking is disabled; Metrics may be nil in tests.
type Deps struct {
	Logger   *slog.Logger
	Metrics  *metrics.Metrics
	Security config.Security

	TokenChecker  middleware.TokenChecker
	AccessChecker guard.Checker
	Observer      ActivityObserver

	Identity  *identityhandler.Handler
	Profile   *profilehandler.Handler
	Activity  *activityhandler.Handler
	Documents *documentshandler.Handler
}

// NewRouter wires the full request pipeline. Order matters: request metadata
// first so every later layer can log and enrich, then the coarse session
// filter, then the authoritative guard, then the handlers.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RequestTime)
	r.Use(middleware.ClientMetadata)
	r.Use(middleware.Recovery(d.Logger))
	r.Use(middleware.Logger(d.Logger))
	if d.Metrics != nil {
		r.Use(middleware.Latency(d.Metrics))
	}
	r.Use(middleware.Timeout(requestTimeout))
	r.Use(middleware.SessionFilter(d.Security, d.TokenChecker, d.Logger))
	r.Use(guard.Middleware(d.AccessChecker, d.Security, d.Logger))
	if d.Observer != nil {
		r.Use(observeActivity(d.Observer))
	}

	r.Get("/", handleLanding)
	r.Get("/healthz", handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	d.Identity.Register(r)
	d.Profile.Register(r)
	d.Profile.RegisterAdmin(r)
	d.Activity.Register(r)
	d.Documents.Register(r)

	return r
}

// observeActivity notes the authenticated user after the guard has admitted
// the request. The observer throttles and persists on its own schedule.
func observeActivity(observer ActivityObserver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if id := requestcontext.UserID(r.Context()); id != uuid.Nil {
				observer.Observe(id)
			}
			next.ServeHTTP(w, r)
		})
	}
}

// handleLanding is the public landing route and the target of every access
// denial redirect.
func handleLanding(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{
		"service": "opsdesk",
		"status":  "ok",
	})
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
