// Package token builds HS256-signed JSON Web Tokens carrying a role and an
// issuer claim. Tokens use the compact serialization: three base64url
// segments (header, claims, signature) joined by dots.
package token

import (
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/golang-jwt/jwt/v5"
)

// Lifetime is the validity window of every issued token (~5 years).
const Lifetime = 157680000 * time.Second

// ErrInvalidUTF8 is returned when a role or issuer claim is not valid UTF-8.
// Such a claim cannot be encoded as JSON without altering it.
var ErrInvalidUTF8 = errors.New("claim is not valid UTF-8")

// Header is the JOSE header. It is the same for every token.
type Header struct {
	Alg string `json:"alg"`
	Typ string `json:"typ"`
}

// DefaultHeader is the header written into every token.
var DefaultHeader = Header{Alg: "HS256", Typ: "JWT"}

// Claims is the token payload. Field order is the serialized key order.
type Claims struct {
	Role      string           `json:"role"`
	Issuer    string           `json:"iss"`
	IssuedAt  *jwt.NumericDate `json:"iat"`
	ExpiresAt *jwt.NumericDate `json:"exp"`
}

var _ jwt.Claims = Claims{}

func (c Claims) GetExpirationTime() (*jwt.NumericDate, error) { return c.ExpiresAt, nil }
func (c Claims) GetIssuedAt() (*jwt.NumericDate, error)       { return c.IssuedAt, nil }
func (c Claims) GetNotBefore() (*jwt.NumericDate, error)      { return nil, nil }
func (c Claims) GetIssuer() (string, error)                   { return c.Issuer, nil }
func (c Claims) GetSubject() (string, error)                  { return "", nil }
func (c Claims) GetAudience() (jwt.ClaimStrings, error)       { return nil, nil }

// Option configures a Builder.
type Option func(*Builder)

// WithClock overrides the time source used for the iat claim.
func WithClock(now func() time.Time) Option {
	return func(b *Builder) {
		b.now = now
	}
}

// Builder signs tokens. It holds no mutable state and is safe for
// concurrent use.
type Builder struct {
	now    func() time.Time
	method *jwt.SigningMethodHMAC
}

// NewBuilder returns a Builder that signs with HS256 and reads the current
// time from time.Now unless overridden.
func NewBuilder(opts ...Option) *Builder {
	b := &Builder{
		now:    time.Now,
		method: jwt.SigningMethodHS256,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Claims returns the payload that Build would sign at the builder's current
// time.
func (b *Builder) Claims(role, issuer string) Claims {
	return claimsAt(role, issuer, b.now())
}

// Build returns the compact JWT for the given secret, role and issuer. The
// secret is used as raw key bytes; role and issuer must be valid UTF-8 or
// ErrInvalidUTF8 is returned.
func (b *Builder) Build(secret, role, issuer string) (string, error) {
	return b.sign(secret, b.Claims(role, issuer))
}

// Sign returns the compact JWT for already assembled claims.
func (b *Builder) Sign(secret string, claims Claims) (string, error) {
	return b.sign(secret, claims)
}

func (b *Builder) sign(secret string, claims Claims) (string, error) {
	if !utf8.ValidString(claims.Role) {
		return "", fmt.Errorf("role: %w", ErrInvalidUTF8)
	}
	if !utf8.ValidString(claims.Issuer) {
		return "", fmt.Errorf("iss: %w", ErrInvalidUTF8)
	}

	headerSeg, err := encodeJSONSegment("header", DefaultHeader)
	if err != nil {
		return "", err
	}
	claimsSeg, err := encodeJSONSegment("claims", claims)
	if err != nil {
		return "", err
	}

	signingString := headerSeg + "." + claimsSeg

	sig, err := b.method.Sign(signingString, []byte(secret))
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}

	return signingString + "." + EncodeSegment(sig), nil
}

// Generate builds a token using the current wall-clock time.
func Generate(secret, role, issuer string) (string, error) {
	return NewBuilder().Build(secret, role, issuer)
}

func claimsAt(role, issuer string, now time.Time) Claims {
	iat := now.Truncate(time.Second)
	return Claims{
		Role:      role,
		Issuer:    issuer,
		IssuedAt:  jwt.NewNumericDate(iat),
		ExpiresAt: jwt.NewNumericDate(iat.Add(Lifetime)),
	}
}
