package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/asaskevich/govalidator"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"opsdesk/internal/activity"
	"opsdesk/internal/identity"
	"opsdesk/internal/platform/config"
	"opsdesk/internal/platform/middleware"
	derrors "opsdesk/pkg/domain-errors"
	"opsdesk/pkg/platform/httputil"
	"opsdesk/pkg/platform/sentinel"
)

// SessionResolver is the slice of the resolver the session endpoint needs.
type SessionResolver interface {
	Resolve(ctx context.Context, accessToken string) (*identity.Session, *identity.Identity, error)
}

// ActivityRecorder notes sign-in and sign-out events.
type ActivityRecorder interface {
	Record(ctx context.Context, userID uuid.UUID, action, details string, metadata map[string]any)
}

// Handler serves the auth endpoints: registration, password and OAuth
// sign-in, sign-out and session introspection. The session access token
// travels in an HTTP-only cookie.
type Handler struct {
	provider identity.Provider
	resolver SessionResolver
	recorder ActivityRecorder
	logger   *slog.Logger
}

func New(provider identity.Provider, resolver SessionResolver, recorder ActivityRecorder, logger *slog.Logger) *Handler {
	return &Handler{provider: provider, resolver: resolver, recorder: recorder, logger: logger}
}

// Register mounts the auth endpoints.
func (h *Handler) Register(r chi.Router) {
	r.Post("/auth/register", h.HandleRegister)
	r.Post("/auth/login", h.HandleLogin)
	r.Get("/auth/oauth/callback", h.HandleOAuthCallback)
	r.Post("/auth/logout", h.HandleLogout)
	r.Get("/auth/session", h.HandleSession)
}

// HandleRegister handles POST /auth/register requests. When the provider
// requires email confirmation no session is issued yet.
func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.Decode[CredentialsRequest](w, r)
	if !ok {
		return
	}

	session, err := h.provider.SignUp(ctx, identity.Credentials{
		Email:    req.Email,
		Password: req.Password,
		FullName: req.FullName,
	})
	if err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			httputil.WriteError(w, derrors.New(derrors.CodeConflict, "account already exists"))
			return
		}
		h.logger.ErrorContext(ctx, "sign-up failed", "email", req.Email, "error", err)
		httputil.WriteError(w, derrors.Wrap(err, derrors.CodeInternal, "sign-up failed"))
		return
	}

	if session == nil {
		httputil.WriteJSON(w, http.StatusAccepted, map[string]string{
			"message": "confirmation email sent",
		})
		return
	}

	h.setSessionCookie(w, session)
	httputil.WriteJSON(w, http.StatusCreated, FromSession(session))
}

// HandleLogin handles POST /auth/login requests.
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.Decode[CredentialsRequest](w, r)
	if !ok {
		return
	}

	session, err := h.provider.SignIn(ctx, identity.Credentials{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		// Bad email and bad password look the same to the caller.
		httputil.WriteError(w, derrors.New(derrors.CodeUnauthorized, "invalid credentials"))
		return
	}

	h.setSessionCookie(w, session)
	if session.Identity != nil {
		h.recorder.Record(ctx, session.Identity.ID, activity.ActionLogin, "signed in", nil)
	}
	httputil.WriteJSON(w, http.StatusOK, FromSession(session))
}

// HandleOAuthCallback handles GET /auth/oauth/callback requests: exchanges
// the one-time code for a session and sends the browser to the landing route.
func (h *Handler) HandleOAuthCallback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	code := r.URL.Query().Get("code")
	if code == "" {
		httputil.WriteError(w, derrors.New(derrors.CodeBadRequest, "missing code"))
		return
	}

	session, err := h.provider.ExchangeCode(ctx, code)
	if err != nil {
		h.logger.WarnContext(ctx, "code exchange failed", "error", err)
		http.Redirect(w, r, config.LandingRoute, http.StatusSeeOther)
		return
	}

	h.setSessionCookie(w, session)
	if session.Identity != nil {
		h.recorder.Record(ctx, session.Identity.ID, activity.ActionLogin, "signed in via oauth", nil)
	}
	http.Redirect(w, r, config.LandingRoute, http.StatusSeeOther)
}

// HandleLogout handles POST /auth/logout requests.
func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	token := sessionToken(r)
	if token != "" {
		if _, ident, err := h.resolver.Resolve(ctx, token); err == nil {
			h.recorder.Record(ctx, ident.ID, activity.ActionLogout, "signed out", nil)
		}
		if err := h.provider.SignOut(ctx, token); err != nil {
			h.logger.WarnContext(ctx, "sign-out failed", "error", err)
		}
	}

	h.clearSessionCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

// HandleSession handles GET /auth/session requests.
func (h *Handler) HandleSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	token := sessionToken(r)
	if token == "" {
		httputil.WriteError(w, derrors.New(derrors.CodeUnauthorized, "no session"))
		return
	}

	session, ident, err := h.resolver.Resolve(ctx, token)
	if err != nil {
		if errors.Is(err, sentinel.ErrNoSession) {
			httputil.WriteError(w, derrors.New(derrors.CodeUnauthorized, "no session"))
			return
		}
		h.logger.WarnContext(ctx, "session introspection failed", "error", err)
		httputil.WriteError(w, derrors.Wrap(err, derrors.CodeInternal, "session lookup failed"))
		return
	}

	session.Identity = ident
	httputil.WriteJSON(w, http.StatusOK, FromSession(session))
}

func sessionToken(r *http.Request) string {
	c, err := r.Cookie(middleware.SessionCookie)
	if err != nil {
		return ""
	}
	return c.Value
}

func (h *Handler) setSessionCookie(w http.ResponseWriter, session *identity.Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    session.AccessToken,
		Path:     "/",
		Expires:  session.ExpiresAt,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *Handler) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// CredentialsRequest carries sign-up and sign-in payloads.
type CredentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
}

func (r CredentialsRequest) Validate() error {
	if !govalidator.IsEmail(r.Email) {
		return errors.New("invalid email")
	}
	if !govalidator.StringLength(r.Password, "8", "128") {
		return errors.New("password must be 8-128 characters")
	}
	return nil
}

// SessionResponse is the wire shape of a session.
type SessionResponse struct {
	ExpiresAt time.Time         `json:"expires_at"`
	Identity  *IdentityResponse `json:"identity,omitempty"`
}

// IdentityResponse is the wire shape of the authenticated principal.
type IdentityResponse struct {
	ID             string `json:"id"`
	Email          string `json:"email"`
	EmailConfirmed bool   `json:"email_confirmed"`
	Provider       string `json:"provider"`
}

// FromSession converts a session to its wire shape. The tokens stay in the
// cookie and are never echoed in the body.
func FromSession(session *identity.Session) SessionResponse {
	resp := SessionResponse{ExpiresAt: session.ExpiresAt}
	if session.Identity != nil {
		resp.Identity = &IdentityResponse{
			ID:             session.Identity.ID.String(),
			Email:          session.Identity.Email,
			EmailConfirmed: session.Identity.EmailConfirmed(),
			Provider:       session.Identity.Provider,
		}
	}
	return resp
}
