// Package local implements identity.Provider in-process. It backs development
// and tests; production deployments point at the hosted auth service instead.
package local

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"opsdesk/internal/identity"
	"opsdesk/pkg/platform/sentinel"
)

const sessionTTL = 24 * time.Hour

// userRecord is the provider-side principal, separate from the application's
// profile row.
type userRecord struct {
	id           uuid.UUID
	email        string
	passwordHash []byte
	confirmedAt  *time.Time
	provider     string
	metadata     map[string]string
}

// Provider is an in-process auth provider: bcrypt password storage, signed
// JWT access tokens, pluggable session store, and an event bus.
type Provider struct {
	mu          sync.RWMutex
	users       map[string]*userRecord // keyed by email
	oauthCodes  map[string]string      // one-shot code -> email
	sessions    SessionStore
	bus         *identity.EventBus
	signingKey  []byte
	autoConfirm bool
}

// Option configures the local provider.
type Option func(*Provider)

// WithSessionStore swaps the default in-memory session store, e.g. for the
// Redis-backed store in shared dev environments.
func WithSessionStore(store SessionStore) Option {
	return func(p *Provider) { p.sessions = store }
}

// WithoutAutoConfirm makes password signups start unconfirmed, mirroring a
// hosted provider that sends confirmation emails.
func WithoutAutoConfirm() Option {
	return func(p *Provider) { p.autoConfirm = false }
}

func New(signingKey string, opts ...Option) *Provider {
	p := &Provider{
		users:       make(map[string]*userRecord),
		oauthCodes:  make(map[string]string),
		sessions:    NewMemorySessionStore(),
		bus:         identity.NewEventBus(),
		signingKey:  []byte(signingKey),
		autoConfirm: true,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Provider) SignUp(ctx context.Context, creds identity.Credentials) (*identity.Session, error) {
	if creds.Email == "" || creds.Password == "" {
		return nil, errors.New("email and password are required")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(creds.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	p.mu.Lock()
	if _, exists := p.users[creds.Email]; exists {
		p.mu.Unlock()
		return nil, sentinel.ErrConflict
	}
	rec := &userRecord{
		id:           uuid.New(),
		email:        creds.Email,
		passwordHash: hash,
		provider:     identity.ProviderPassword,
		metadata:     map[string]string{"full_name": creds.FullName},
	}
	if p.autoConfirm {
		now := time.Now()
		rec.confirmedAt = &now
	}
	p.users[creds.Email] = rec
	p.mu.Unlock()

	if !p.autoConfirm {
		// No session until the email is confirmed.
		return nil, nil
	}
	return p.issueSession(ctx, rec, identity.EventSignedIn)
}

func (p *Provider) SignIn(ctx context.Context, creds identity.Credentials) (*identity.Session, error) {
	p.mu.RLock()
	rec, ok := p.users[creds.Email]
	p.mu.RUnlock()
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if err := bcrypt.CompareHashAndPassword(rec.passwordHash, []byte(creds.Password)); err != nil {
		return nil, errors.New("invalid credentials")
	}
	return p.issueSession(ctx, rec, identity.EventSignedIn)
}

// StageOAuthUser registers an OAuth principal and returns a one-shot code for
// ExchangeCode, standing in for the hosted provider's redirect dance.
func (p *Provider) StageOAuthUser(email string, metadata map[string]string) string {
	now := time.Now()
	code := uuid.NewString()

	p.mu.Lock()
	defer p.mu.Unlock()
	if _, exists := p.users[email]; !exists {
		p.users[email] = &userRecord{
			id:          uuid.New(),
			email:       email,
			confirmedAt: &now, // OAuth emails arrive verified
			provider:    identity.ProviderGoogle,
			metadata:    metadata,
		}
	}
	p.oauthCodes[code] = email
	return code
}

func (p *Provider) ExchangeCode(ctx context.Context, code string) (*identity.Session, error) {
	p.mu.Lock()
	email, ok := p.oauthCodes[code]
	if ok {
		delete(p.oauthCodes, code)
	}
	rec := p.users[email]
	p.mu.Unlock()

	if !ok || rec == nil {
		return nil, errors.New("invalid or expired authorization code")
	}
	return p.issueSession(ctx, rec, identity.EventSignedIn)
}

func (p *Provider) Session(ctx context.Context, accessToken string) (*identity.Session, error) {
	claims, err := p.parseToken(accessToken)
	if err != nil {
		return nil, sentinel.ErrNoSession
	}

	live, err := p.sessions.Exists(ctx, accessToken)
	if err != nil {
		return nil, fmt.Errorf("session lookup: %w", err)
	}
	if !live {
		return nil, sentinel.ErrNoSession
	}

	ident := p.identityByID(claims.userID)
	if ident == nil {
		return nil, sentinel.ErrNoSession
	}
	return &identity.Session{
		AccessToken: accessToken,
		ExpiresAt:   claims.expiresAt,
		Identity:    ident,
	}, nil
}

func (p *Provider) Identity(ctx context.Context, accessToken string) (*identity.Identity, error) {
	claims, err := p.parseToken(accessToken)
	if err != nil {
		return nil, sentinel.ErrNoSession
	}
	ident := p.identityByID(claims.userID)
	if ident == nil {
		return nil, sentinel.ErrNoSession
	}
	return ident, nil
}

func (p *Provider) Refresh(ctx context.Context, refreshToken string) (*identity.Session, error) {
	// The local provider issues long-lived sessions; refresh is a lookup.
	session, err := p.Session(ctx, refreshToken)
	if err != nil {
		return nil, err
	}
	p.bus.Publish(identity.Event{Type: identity.EventTokenRefreshed, Session: session})
	return session, nil
}

func (p *Provider) SignOut(ctx context.Context, accessToken string) error {
	if err := p.sessions.Delete(ctx, accessToken); err != nil {
		return err
	}
	p.bus.Publish(identity.Event{Type: identity.EventSignedOut})
	return nil
}

func (p *Provider) Subscribe() (<-chan identity.Event, func()) {
	return p.bus.Subscribe()
}

// CheckToken verifies the token signature and expiry. Used by the edge
// filter's coarse session-presence check.
func (p *Provider) CheckToken(token string) error {
	_, err := p.parseToken(token)
	return err
}

// ConfirmEmail marks a principal's email as verified, standing in for the
// confirmation-link click.
func (p *Provider) ConfirmEmail(email string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if rec, ok := p.users[email]; ok && rec.confirmedAt == nil {
		now := time.Now()
		rec.confirmedAt = &now
	}
}

type tokenClaims struct {
	userID    uuid.UUID
	expiresAt time.Time
}

func (p *Provider) issueSession(ctx context.Context, rec *userRecord, event identity.EventType) (*identity.Session, error) {
	expiresAt := time.Now().Add(sessionTTL)
	claims := jwt.MapClaims{
		"sub":   rec.id.String(),
		"email": rec.email,
		"exp":   expiresAt.Unix(),
		"iat":   time.Now().Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.signingKey)
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}

	if err := p.sessions.Save(ctx, token, rec.id, sessionTTL); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}

	session := &identity.Session{
		AccessToken: token,
		ExpiresAt:   expiresAt,
		Identity:    p.toIdentity(rec),
	}
	p.bus.Publish(identity.Event{Type: event, Session: session})
	return session, nil
}

func (p *Provider) parseToken(token string) (*tokenClaims, error) {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return p.signingKey, nil
	})
	if err != nil || !parsed.Valid {
		return nil, sentinel.ErrExpired
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, sentinel.ErrExpired
	}
	sub, _ := claims["sub"].(string)
	userID, err := uuid.Parse(sub)
	if err != nil {
		return nil, sentinel.ErrExpired
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return nil, sentinel.ErrExpired
	}
	return &tokenClaims{userID: userID, expiresAt: exp.Time}, nil
}

func (p *Provider) identityByID(id uuid.UUID) *identity.Identity {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, rec := range p.users {
		if rec.id == id {
			return p.toIdentity(rec)
		}
	}
	return nil
}

func (p *Provider) toIdentity(rec *userRecord) *identity.Identity {
	metadata := make(map[string]string, len(rec.metadata))
	for k, v := range rec.metadata {
		metadata[k] = v
	}
	return &identity.Identity{
		ID:               rec.id,
		Email:            rec.email,
		EmailConfirmedAt: rec.confirmedAt,
		Provider:         rec.provider,
		Metadata:         metadata,
	}
}
