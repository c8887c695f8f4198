// Package hosted implements identity.Provider against the hosted auth
// service's REST API. The service owns credentials and email confirmation;
// this client only exchanges and inspects tokens.
package hosted

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"opsdesk/internal/identity"
	"opsdesk/pkg/platform/sentinel"
)

// Client talks to the hosted auth endpoints with the public API key.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	bus     *identity.EventBus
}

func New(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 15 * time.Second},
		bus:     identity.NewEventBus(),
	}
}

// userPayload is the provider's user resource.
type userPayload struct {
	ID               string            `json:"id"`
	Email            string            `json:"email"`
	EmailConfirmedAt *time.Time        `json:"email_confirmed_at"`
	AppMetadata      map[string]any    `json:"app_metadata"`
	UserMetadata     map[string]string `json:"user_metadata"`
}

// tokenPayload is the provider's token-grant response.
type tokenPayload struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	ExpiresIn    int          `json:"expires_in"`
	User         *userPayload `json:"user"`
}

func (c *Client) SignUp(ctx context.Context, creds identity.Credentials) (*identity.Session, error) {
	body := map[string]any{
		"email":    creds.Email,
		"password": creds.Password,
		"data":     map[string]string{"full_name": creds.FullName},
	}
	var resp tokenPayload
	if err := c.post(ctx, "/auth/v1/signup", "", body, &resp); err != nil {
		return nil, err
	}
	if resp.AccessToken == "" {
		// Confirmation email pending; no session yet.
		return nil, nil
	}
	return c.toSession(resp, identity.EventSignedIn), nil
}

func (c *Client) SignIn(ctx context.Context, creds identity.Credentials) (*identity.Session, error) {
	body := map[string]string{"email": creds.Email, "password": creds.Password}
	var resp tokenPayload
	if err := c.post(ctx, "/auth/v1/token?grant_type=password", "", body, &resp); err != nil {
		return nil, err
	}
	return c.toSession(resp, identity.EventSignedIn), nil
}

func (c *Client) ExchangeCode(ctx context.Context, code string) (*identity.Session, error) {
	body := map[string]string{"auth_code": code}
	var resp tokenPayload
	if err := c.post(ctx, "/auth/v1/token?grant_type=authorization_code", "", body, &resp); err != nil {
		return nil, err
	}
	return c.toSession(resp, identity.EventSignedIn), nil
}

func (c *Client) Session(ctx context.Context, accessToken string) (*identity.Session, error) {
	ident, err := c.Identity(ctx, accessToken)
	if err != nil {
		return nil, err
	}
	return &identity.Session{AccessToken: accessToken, Identity: ident}, nil
}

func (c *Client) Identity(ctx context.Context, accessToken string) (*identity.Identity, error) {
	if accessToken == "" {
		return nil, sentinel.ErrNoSession
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/auth/v1/user", nil)
	if err != nil {
		return nil, err
	}
	c.setHeaders(req, accessToken)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("auth user request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusNotFound:
		return nil, sentinel.ErrNoSession
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("auth user request: status %d", resp.StatusCode)
	}

	var user userPayload
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return nil, fmt.Errorf("decode user payload: %w", err)
	}
	return toIdentity(&user)
}

func (c *Client) Refresh(ctx context.Context, refreshToken string) (*identity.Session, error) {
	body := map[string]string{"refresh_token": refreshToken}
	var resp tokenPayload
	if err := c.post(ctx, "/auth/v1/token?grant_type=refresh_token", "", body, &resp); err != nil {
		return nil, err
	}
	session := c.toSession(resp, identity.EventTokenRefreshed)
	return session, nil
}

func (c *Client) SignOut(ctx context.Context, accessToken string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/auth/v1/logout", nil)
	if err != nil {
		return err
	}
	c.setHeaders(req, accessToken)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("auth logout request: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	c.bus.Publish(identity.Event{Type: identity.EventSignedOut})
	return nil
}

func (c *Client) Subscribe() (<-chan identity.Event, func()) {
	return c.bus.Subscribe()
}

// CheckToken performs the edge filter's coarse validity check: well-formed
// and unexpired. Signature verification stays with the hosted service, which
// every authoritative call goes through anyway.
func (c *Client) CheckToken(token string) error {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return fmt.Errorf("malformed token: %w", err)
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return sentinel.ErrExpired
	}
	if time.Now().After(exp.Time) {
		return sentinel.ErrExpired
	}
	return nil
}

func (c *Client) post(ctx context.Context, path, accessToken string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	c.setHeaders(req, accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("auth request %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("auth request %s: status %d: %s", path, resp.StatusCode, raw)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *Client) setHeaders(req *http.Request, accessToken string) {
	req.Header.Set("apikey", c.apiKey)
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	} else {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
}

func (c *Client) toSession(resp tokenPayload, event identity.EventType) *identity.Session {
	session := &identity.Session{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		ExpiresAt:    time.Now().Add(time.Duration(resp.ExpiresIn) * time.Second),
	}
	if resp.User != nil {
		if ident, err := toIdentity(resp.User); err == nil {
			session.Identity = ident
		}
	}
	c.bus.Publish(identity.Event{Type: event, Session: session})
	return session
}

func toIdentity(user *userPayload) (*identity.Identity, error) {
	id, err := uuid.Parse(user.ID)
	if err != nil {
		return nil, fmt.Errorf("parse user id: %w", err)
	}
	provider := identity.ProviderPassword
	if p, ok := user.AppMetadata["provider"].(string); ok && p != "" {
		provider = p
	}
	return &identity.Identity{
		ID:               id,
		Email:            user.Email,
		EmailConfirmedAt: user.EmailConfirmedAt,
		Provider:         provider,
		Metadata:         user.UserMetadata,
	}, nil
}
