package usecase

import (
	"crypto/subtle"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Credentials are the shared-secret forms a webhook caller may present.
type Credentials struct {
	Bearer string
	Header string
}

// SecretGuard checks inbound shared secrets. Each trust domain has its own
// secret; an empty one rejects every caller.
type SecretGuard struct {
	WebhookSecret string
	ImportSecret  string
	Log           *slog.Logger
}

func (g *SecretGuard) Webhook(c Credentials) error {
	return g.check("webhook", g.WebhookSecret, c.Bearer, c.Header)
}

func (g *SecretGuard) Import(presented string) error {
	return g.check("import", g.ImportSecret, presented)
}

func (g *SecretGuard) check(domain, want string, presented ...string) error {
	if g == nil || want == "" {
		var l *slog.Logger
		if g != nil {
			l = g.Log
		}
		logger(l).Error("shared secret not configured, rejecting request", "domain", domain)
		return ErrUnauthorized("unauthorized")
	}
	for _, p := range presented {
		if p != "" && subtle.ConstantTimeCompare([]byte(p), []byte(want)) == 1 {
			return nil
		}
	}
	return ErrUnauthorized("unauthorized")
}

// AdminAuth issues and verifies dashboard bearer tokens.
type AdminAuth struct {
	Secret string
	TTL    time.Duration
}

func (a *AdminAuth) Issue(subject string) (string, error) {
	if a.Secret == "" {
		return "", ErrUnauthorized("admin secret not configured")
	}
	ttl := a.TTL
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	claims := jwt.MapClaims{
		"sub":  subject,
		"role": "admin",
		"exp":  time.Now().Add(ttl).Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString([]byte(a.Secret))
}

// Verify returns the token subject when token is a valid admin token.
func (a *AdminAuth) Verify(token string) (string, error) {
	if a.Secret == "" {
		return "", ErrUnauthorized("unauthorized")
	}
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (any, error) {
		return []byte(a.Secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil || !parsed.Valid {
		return "", ErrUnauthorized("unauthorized")
	}
	m, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return "", ErrUnauthorized("unauthorized")
	}
	if role, _ := m["role"].(string); role != "admin" {
		return "", ErrUnauthorized("admin role required")
	}
	sub, _ := m["sub"].(string)
	return sub, nil
}
