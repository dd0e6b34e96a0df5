package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/userdirectory/userdir-api/internal/api/metrics"
	"github.com/userdirectory/userdir-api/internal/core/domain"
	"github.com/userdirectory/userdir-api/internal/core/ports"
)

// ClaimsKey is the echo.Context key holding *domain.Claims after enrichment.
const ClaimsKey = "claims"

// DefaultProtectedPrefixes are the paths the guard inspects by default.
var DefaultProtectedPrefixes = []string{
	"/home", "/features", "/pricing", "/about", "/blog", "/careers", "/contact", "/users",
}

// Decision is the outcome of the guard for one request.
type Decision string

const (
	DecisionAllow  Decision = "allow"
	DecisionEnrich Decision = "enrich"
	DecisionDeny   Decision = "deny"
)

var (
	errMissingHeader = errors.New("missing authorization header")
	errHeaderFormat  = errors.New("invalid authorization header format")
)

// GuardPolicy selects the protected paths and what happens to requests on
// them that carry no usable token. With Strict unset such requests pass
// through untouched; with Strict set they are denied.
type GuardPolicy struct {
	Prefixes []string
	Strict   bool
}

// Protects reports whether path falls under one of the prefixes. Matching is
// on segment boundaries: "/users" covers "/users" and "/users/1" but not "/usersx".
func (p GuardPolicy) Protects(path string) bool {
	for _, prefix := range p.Prefixes {
		prefix = strings.TrimRight(prefix, "/")
		if prefix == "" {
			continue
		}
		if path == prefix || strings.HasPrefix(path, prefix+"/") {
			return true
		}
	}
	return false
}

// Evaluate decides a single request. The returned error explains why a
// presented token was not accepted; it is nil for allow-on-absent.
func (p GuardPolicy) Evaluate(path, authorization string, verifier ports.TokenVerifier) (Decision, *domain.Claims, error) {
	if !p.Protects(path) {
		return DecisionAllow, nil, nil
	}

	fallback := DecisionAllow
	if p.Strict {
		fallback = DecisionDeny
	}

	token, err := BearerToken(authorization)
	if errors.Is(err, errMissingHeader) {
		return fallback, nil, nil
	}
	if err != nil {
		return fallback, nil, err
	}

	claims, err := verifier.Verify(token)
	if err != nil {
		return fallback, nil, err
	}
	return DecisionEnrich, claims, nil
}

// Guard applies policy to every request. Enriched requests carry the claims
// both on the echo.Context (ClaimsKey) and on the request context.
func Guard(policy GuardPolicy, verifier ports.TokenVerifier, log zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			if !policy.Protects(req.URL.Path) {
				return next(c)
			}

			decision, claims, err := policy.Evaluate(req.URL.Path, req.Header.Get(echo.HeaderAuthorization), verifier)
			metrics.GuardDecisionsTotal.WithLabelValues(string(decision)).Inc()
			if err != nil {
				log.Warn().Err(err).
					Str("path", req.URL.Path).
					Str("decision", string(decision)).
					Msg("bearer token rejected")
			}

			switch decision {
			case DecisionDeny:
				return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
			case DecisionEnrich:
				c.Set(ClaimsKey, claims)
				c.SetRequest(req.WithContext(WithClaims(req.Context(), claims)))
			}
			return next(c)
		}
	}
}

type claimsContextKey struct{}

// WithClaims returns a copy of ctx carrying claims.
func WithClaims(ctx context.Context, claims *domain.Claims) context.Context {
	return context.WithValue(ctx, claimsContextKey{}, claims)
}

// ClaimsFromContext extracts claims attached by the guard.
func ClaimsFromContext(ctx context.Context) (*domain.Claims, bool) {
	claims, ok := ctx.Value(claimsContextKey{}).(*domain.Claims)
	return claims, ok && claims != nil
}

// BearerToken extracts the token from an "Authorization: Bearer <token>" header.
func BearerToken(header string) (string, error) {
	if strings.TrimSpace(header) == "" {
		return "", errMissingHeader
	}
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", errHeaderFormat
	}
	return parts[1], nil
}
