package access

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"opsdesk/internal/access/metrics"
	"opsdesk/internal/identity"
	"opsdesk/internal/profile"
	profilesvc "opsdesk/internal/profile/service"
	derrors "opsdesk/pkg/domain-errors"
	"opsdesk/pkg/platform/sentinel"
)

// SessionResolver is the port into session resolution.
type SessionResolver interface {
	Resolve(ctx context.Context, accessToken string) (*identity.Session, *identity.Identity, error)
}

// ProfileGate is the port into lazy profile creation.
type ProfileGate interface {
	Ensure(ctx context.Context, ident *identity.Identity) (*profile.Profile, error)
}

// Service runs the full check pipeline: resolve the session, pass the
// identity through the profile gate, then apply the rules. Every failure
// along the way becomes a deny verdict; Check never returns an error except
// for context cancellation.
type Service struct {
	resolver SessionResolver
	gate     ProfileGate
	engine   *Engine
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

func NewService(resolver SessionResolver, gate ProfileGate, logger *slog.Logger, m *metrics.Metrics) *Service {
	return &Service{
		resolver: resolver,
		gate:     gate,
		engine:   NewEngine(),
		logger:   logger,
		metrics:  m,
	}
}

// Check evaluates access for the bearer of accessToken against an optional
// required role.
func (s *Service) Check(ctx context.Context, accessToken string, requiredRole profile.Role) (Verdict, error) {
	ctx, span := otel.Tracer("opsdesk/access").Start(ctx, "access.Check",
		trace.WithAttributes(attribute.String("access.required_role", string(requiredRole))))
	defer span.End()
	start := time.Now()

	v, err := s.check(ctx, accessToken, requiredRole)
	if err != nil {
		span.RecordError(err)
		return Verdict{}, err
	}

	span.SetAttributes(
		attribute.Bool("access.allowed", v.Allowed),
		attribute.String("access.reason", string(v.Reason)),
	)
	s.metrics.IncrementOutcome(v.Allowed, string(v.Reason))
	s.metrics.ObserveCheckLatency(time.Since(start))

	if !v.Allowed {
		s.logger.InfoContext(ctx, "access denied", "reason", string(v.Reason))
	}
	return v, nil
}

func (s *Service) check(ctx context.Context, accessToken string, requiredRole profile.Role) (Verdict, error) {
	_, ident, err := s.resolver.Resolve(ctx, accessToken)
	switch {
	case err == nil:
	case errors.Is(err, sentinel.ErrNoSession):
		return Deny(ReasonNoSession), nil
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return Verdict{}, err
	default:
		s.logger.WarnContext(ctx, "session resolution failed", "error", err)
		return Deny(ReasonSessionError), nil
	}

	p, err := s.gate.Ensure(ctx, ident)
	switch {
	case err == nil:
	case errors.Is(err, profilesvc.ErrEmailNotConfirmed):
		return Deny(ReasonEmailNotConfirmed), nil
	case derrors.HasCode(err, derrors.CodeNotFound):
		return Deny(ReasonProfileNotFound), nil
	default:
		s.logger.ErrorContext(ctx, "profile gate failed",
			"user_id", ident.ID.String(),
			"error", err,
		)
		return Deny(ReasonProfileError), nil
	}

	return s.engine.Decide(ident, p, requiredRole), nil
}
