// Package auth issues and verifies the signed session token that gates the
// admin analytics surface. There is exactly one admin identity.
package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	// CookieName carries the session token.
	CookieName = "admin_token"
	// RoleAdmin is the only role a token can carry.
	RoleAdmin = "admin"
)

var (
	// ErrMissingCredentials is returned when email or password is empty.
	ErrMissingCredentials = errors.New("email and password are required")
	// ErrInvalidCredentials never says which field was wrong.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrInvalidToken covers absent, tampered, expired and foreign tokens.
	ErrInvalidToken = errors.New("invalid or expired session")
)

// Claims is the signed session payload.
type Claims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// Identity is what a verified token asserts.
type Identity struct {
	Email     string `json:"email"`
	Role      string `json:"role"`
	IssuedAt  int64  `json:"iat"`
	ExpiresAt int64  `json:"exp"`
}

type Config struct {
	AdminEmail    string
	AdminPassword string
	Secret        string
	TTL           time.Duration
	// SecureCookie marks the session cookie Secure; set in production.
	SecureCookie bool
}

type Authenticator struct {
	cfg    Config
	secret []byte
	now    func() time.Time
}

func New(cfg Config) *Authenticator {
	if cfg.TTL <= 0 {
		cfg.TTL = 24 * time.Hour
	}
	return &Authenticator{cfg: cfg, secret: []byte(cfg.Secret), now: time.Now}
}

// TTL is the lifetime of issued tokens.
func (a *Authenticator) TTL() time.Duration { return a.cfg.TTL }

// Login checks the credentials against the configured admin and returns a
// signed token on success.
func (a *Authenticator) Login(email, password string) (string, error) {
	if email == "" || password == "" {
		return "", ErrMissingCredentials
	}
	emailOK := subtle.ConstantTimeCompare([]byte(email), []byte(a.cfg.AdminEmail))
	passOK := subtle.ConstantTimeCompare([]byte(password), []byte(a.cfg.AdminPassword))
	if emailOK&passOK != 1 {
		return "", ErrInvalidCredentials
	}

	now := a.now()
	claims := Claims{
		Email: email,
		Role:  RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.cfg.TTL)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return "", fmt.Errorf("sign session: %w", err)
	}
	return token, nil
}

// Verify validates signature, algorithm, expiry and role. Every failure maps
// to ErrInvalidToken.
func (a *Authenticator) Verify(token string) (Identity, error) {
	if token == "" {
		return Identity{}, ErrInvalidToken
	}
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return a.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(a.now),
	)
	if err != nil || !parsed.Valid {
		return Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Role != RoleAdmin || claims.Email != a.cfg.AdminEmail {
		return Identity{}, ErrInvalidToken
	}

	id := Identity{Email: claims.Email, Role: claims.Role, ExpiresAt: claims.ExpiresAt.Unix()}
	if claims.IssuedAt != nil {
		id.IssuedAt = claims.IssuedAt.Unix()
	}
	return id, nil
}

// VerifyRequest verifies the session cookie on r.
func (a *Authenticator) VerifyRequest(r *http.Request) (Identity, error) {
	c, err := r.Cookie(CookieName)
	if err != nil {
		return Identity{}, ErrInvalidToken
	}
	return a.Verify(c.Value)
}

// SetCookie writes the session cookie for token.
func (a *Authenticator) SetCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(a.cfg.TTL.Seconds()),
		HttpOnly: true,
		Secure:   a.cfg.SecureCookie,
		SameSite: http.SameSiteStrictMode,
	})
}

// ClearCookie expires the session cookie. Safe to call without a session.
func (a *Authenticator) ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   a.cfg.SecureCookie,
		SameSite: http.SameSiteStrictMode,
	})
}

type ctxKey struct{}

// WithIdentity attaches a verified identity to ctx.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// IdentityFrom returns the identity attached by WithIdentity.
func IdentityFrom(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(ctxKey{}).(Identity)
	return id, ok
}
