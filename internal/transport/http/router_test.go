package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"opsdesk/internal/access"
	"opsdesk/internal/activity"
	activityhandler "opsdesk/internal/activity/handler"
	activitystore "opsdesk/internal/activity/store"
	"opsdesk/internal/documents"
	documentshandler "opsdesk/internal/documents/handler"
	documentsstore "opsdesk/internal/documents/store"
	"opsdesk/internal/identity"
	identityhandler "opsdesk/internal/identity/handler"
	"opsdesk/internal/identity/provider/local"
	"opsdesk/internal/platform/config"
	"opsdesk/internal/profile"
	profilehandler "opsdesk/internal/profile/handler"
	profilesvc "opsdesk/internal/profile/service"
	profilestore "opsdesk/internal/profile/store"
	"opsdesk/pkg/testutil"
)

type observerSpy struct {
	mu   sync.Mutex
	seen []uuid.UUID
}

func (o *observerSpy) Observe(userID uuid.UUID) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.seen = append(o.seen, userID)
}

func (o *observerSpy) count() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.seen)
}

type testServer struct {
	handler  http.Handler
	provider *local.Provider
	profiles *profilesvc.Service
	observer *observerSpy
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	logger := slog.New(slog.DiscardHandler)

	provider := local.New("router-test-key")
	resolver := identity.NewResolver(provider, time.Millisecond)
	profileStore := profilestore.NewMemory()
	profiles := profilesvc.New(profileStore, logger, nil)
	checker := access.NewService(resolver, profiles, logger, nil)

	recorder := activity.NewRecorder(activitystore.NewMemory(), profileStore, logger)
	docs := documents.NewService(
		documentsstore.NewMemoryCollection[documents.Project](),
		documentsstore.NewMemoryCollection[documents.Quotation](),
		documentsstore.NewMemoryCollection[documents.PurchaseOrder](),
		documentsstore.NewMemoryCollection[documents.Party](),
		recorder,
		logger,
	)

	observer := &observerSpy{}
	handler := NewRouter(Deps{
		Logger:        logger,
		Security:      config.DefaultSecurity(),
		TokenChecker:  provider,
		AccessChecker: checker,
		Observer:      observer,
		Identity:      identityhandler.New(provider, resolver, recorder, logger),
		Profile:       profilehandler.New(profiles, logger),
		Activity:      activityhandler.New(recorder, logger),
		Documents:     documentshandler.New(docs, logger),
	})
	return &testServer{handler: handler, provider: provider, profiles: profiles, observer: observer}
}

// signInOAuth walks the OAuth callback and returns the session cookie plus
// the user's ID. OAuth accounts come out approved, so the cookie grants
// access immediately.
func (ts *testServer) signInOAuth(t *testing.T, email string) (*http.Cookie, uuid.UUID) {
	t.Helper()
	code := ts.provider.StageOAuthUser(email, map[string]string{"full_name": "Router Tester"})
	req := testutil.NewRequest(t, http.MethodGet, "/auth/oauth/callback?code="+code)
	w := testutil.DoRequest(ts.handler, req)
	require.Equal(t, http.StatusSeeOther, w.Code)

	cookie := sessionCookie(t, w.Result().Cookies())
	session, err := ts.provider.Session(context.Background(), cookie.Value)
	require.NoError(t, err)
	return cookie, session.Identity.ID
}

func sessionCookie(t *testing.T, cookies []*http.Cookie) *http.Cookie {
	t.Helper()
	for _, c := range cookies {
		if c.Name == "od_session" {
			return c
		}
	}
	t.Fatal("session cookie not set")
	return nil
}

func TestPublicRoutes(t *testing.T) {
	ts := newTestServer(t)

	for _, path := range []string{"/", "/healthz"} {
		req := testutil.NewRequest(t, http.MethodGet, path)
		w := testutil.DoRequest(ts.handler, req)
		require.Equal(t, http.StatusOK, w.Code, path)
	}
}

func TestProtectedRouteWithoutSessionRedirects(t *testing.T) {
	ts := newTestServer(t)

	req := testutil.NewRequest(t, http.MethodGet, "/profile/me")
	w := testutil.DoRequest(ts.handler, req)

	require.Equal(t, http.StatusSeeOther, w.Code)
	require.Equal(t, "/", w.Header().Get("Location"))
}

func TestGarbageTokenRejectedAtEdge(t *testing.T) {
	ts := newTestServer(t)

	req := testutil.NewRequest(t, http.MethodGet, "/profile/me")
	req.AddCookie(&http.Cookie{Name: "od_session", Value: "not-a-token"})
	w := testutil.DoRequest(ts.handler, req)

	require.Equal(t, http.StatusSeeOther, w.Code)
	require.Equal(t, "/", w.Header().Get("Location"))
}

func TestOAuthSignInReachesProfile(t *testing.T) {
	ts := newTestServer(t)
	cookie, userID := ts.signInOAuth(t, "oauth@example.com")

	req := testutil.NewRequest(t, http.MethodGet, "/profile/me")
	req.AddCookie(cookie)
	w := testutil.DoRequest(ts.handler, req)

	require.Equal(t, http.StatusOK, w.Code)
	resp := testutil.UnmarshalResponse[map[string]any](t, w)
	require.Equal(t, "oauth@example.com", (*resp)["email"])
	require.Equal(t, userID.String(), (*resp)["id"])

	require.Positive(t, ts.observer.count())
}

func TestPendingAccountDeniedUntilApproved(t *testing.T) {
	ts := newTestServer(t)

	req := testutil.NewJSONRequest(t, http.MethodPost, "/auth/register", map[string]string{
		"email":     "pending@example.com",
		"password":  "longenough123",
		"full_name": "Pat Pending",
	})
	w := testutil.DoRequest(ts.handler, req)
	require.Equal(t, http.StatusCreated, w.Code)
	cookie := sessionCookie(t, w.Result().Cookies())

	// Password accounts start pending; the guard turns API requests away
	// with the verdict while browsers would be redirected.
	req = testutil.NewRequest(t, http.MethodGet, "/profile/me")
	req.AddCookie(cookie)
	req.Header.Set("Accept", "application/json")
	w = testutil.DoRequest(ts.handler, req)
	require.Equal(t, http.StatusForbidden, w.Code)
	require.Contains(t, w.Body.String(), "pending")

	session, err := ts.provider.Session(context.Background(), cookie.Value)
	require.NoError(t, err)
	_, err = ts.profiles.SetStatus(context.Background(), session.Identity.ID, profile.StatusApproved)
	require.NoError(t, err)

	req = testutil.NewRequest(t, http.MethodGet, "/profile/me")
	req.AddCookie(cookie)
	w = testutil.DoRequest(ts.handler, req)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestAdminRouteRequiresAdminRole(t *testing.T) {
	ts := newTestServer(t)
	cookie, userID := ts.signInOAuth(t, "staff@example.com")

	req := testutil.NewRequest(t, http.MethodGet, "/admin/accounts")
	req.AddCookie(cookie)
	req.Header.Set("Accept", "application/json")
	w := testutil.DoRequest(ts.handler, req)
	require.Equal(t, http.StatusForbidden, w.Code)
	require.Contains(t, w.Body.String(), "role_mismatch")

	_, err := ts.profiles.SetRole(context.Background(), userID, profile.RoleAdmin)
	require.NoError(t, err)

	req = testutil.NewRequest(t, http.MethodGet, "/admin/accounts")
	req.AddCookie(cookie)
	w = testutil.DoRequest(ts.handler, req)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestPendingAccountCanSignOut(t *testing.T) {
	ts := newTestServer(t)

	req := testutil.NewJSONRequest(t, http.MethodPost, "/auth/register", map[string]string{
		"email":     "stuck@example.com",
		"password":  "longenough123",
		"full_name": "Stuck Pending",
	})
	w := testutil.DoRequest(ts.handler, req)
	require.Equal(t, http.StatusCreated, w.Code)
	cookie := sessionCookie(t, w.Result().Cookies())

	// Session introspection works regardless of approval status.
	req = testutil.NewRequest(t, http.MethodGet, "/auth/session")
	req.AddCookie(cookie)
	w = testutil.DoRequest(ts.handler, req)
	require.Equal(t, http.StatusOK, w.Code)

	// So does signing out: the cookie is cleared and the session invalidated
	// even though the account is still pending.
	req = testutil.NewRequest(t, http.MethodPost, "/auth/logout")
	req.AddCookie(cookie)
	w = testutil.DoRequest(ts.handler, req)
	require.Equal(t, http.StatusNoContent, w.Code)

	cleared := sessionCookie(t, w.Result().Cookies())
	require.Empty(t, cleared.Value)
	require.Negative(t, cleared.MaxAge)

	_, err := ts.provider.Session(context.Background(), cookie.Value)
	require.Error(t, err)
}

func TestBrowserDenialRedirectsHome(t *testing.T) {
	ts := newTestServer(t)

	req := testutil.NewJSONRequest(t, http.MethodPost, "/auth/register", map[string]string{
		"email":     "browser@example.com",
		"password":  "longenough123",
		"full_name": "Browser User",
	})
	w := testutil.DoRequest(ts.handler, req)
	require.Equal(t, http.StatusCreated, w.Code)
	cookie := sessionCookie(t, w.Result().Cookies())

	req = testutil.NewRequest(t, http.MethodGet, "/profile/me")
	req.AddCookie(cookie)
	w = testutil.DoRequest(ts.handler, req)

	require.Equal(t, http.StatusSeeOther, w.Code)
	require.Equal(t, "/", w.Header().Get("Location"))
}
