// Package auth holds the token codec and password hashing used by the
// session services.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/devlearning/devauth/internal/common"
	"github.com/devlearning/devauth/internal/timex"
	"github.com/golang-jwt/jwt/v5"
)

// MinSecretBytes is the shortest HMAC key accepted for HS256.
const MinSecretBytes = 32

// Claims are the access token claims: registered claims plus the role the
// principal had when the token was issued.
type Claims struct {
	jwt.RegisteredClaims
	Role string `json:"role,omitempty"`
}

// TokenInfo is what a verified access token tells us.
type TokenInfo struct {
	Subject   string
	Role      string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Codec mints and verifies HS256 access tokens with a single shared secret.
type Codec struct {
	secret []byte
	ttl    time.Duration
	clock  timex.Clock
	parser *jwt.Parser
}

// Option configures a Codec.
type Option func(*Codec)

// WithClock overrides the time source used for issuing and verification.
func WithClock(clock timex.Clock) Option {
	return func(c *Codec) { c.clock = clock }
}

// NewCodec returns a codec signing with secret. ttl is the lifetime used by
// Issue.
func NewCodec(secret []byte, ttl time.Duration, opts ...Option) (*Codec, error) {
	if len(secret) < MinSecretBytes {
		return nil, fmt.Errorf("%w: got %d bytes, need %d", common.ErrWeakSigningKey, len(secret), MinSecretBytes)
	}
	if ttl <= 0 {
		return nil, common.ErrInvalidTokenTTL
	}

	c := &Codec{
		secret: append([]byte(nil), secret...),
		ttl:    ttl,
		clock:  timex.SystemClock,
	}
	for _, o := range opts {
		o(c)
	}
	c.parser = jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.clock),
	)
	return c, nil
}

// TTL is the access token lifetime used by Issue.
func (c *Codec) TTL() time.Duration { return c.ttl }

// Mint signs a token for subject valid from issuedAt for ttl. issuedAt is
// truncated to the second.
func (c *Codec) Mint(subject string, issuedAt time.Time, ttl time.Duration) (string, error) {
	return c.mint(subject, "", issuedAt, ttl)
}

// Issue mints a token for subject and role at the current time with the
// configured TTL. It returns the token and its expiry.
func (c *Codec) Issue(subject, role string) (string, time.Time, error) {
	now := c.clock().Truncate(time.Second)
	tok, err := c.mint(subject, role, now, c.ttl)
	if err != nil {
		return "", time.Time{}, err
	}
	return tok, now.Add(c.ttl), nil
}

func (c *Codec) mint(subject, role string, issuedAt time.Time, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		return "", common.ErrInvalidTokenTTL
	}
	// iat and exp are whole seconds; truncating iat keeps exp == iat+ttl.
	issuedAt = issuedAt.Truncate(time.Second)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(ttl)),
		},
		Role: role,
	})
	return token.SignedString(c.secret)
}

// Verify checks signature and expiry. A token is expired once the clock
// reaches its exp claim.
func (c *Codec) Verify(tokenString string) (*TokenInfo, error) {
	claims := &Claims{}
	_, err := c.parser.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return c.secret, nil
	})
	if err != nil {
		return nil, mapParseError(err)
	}
	return toInfo(claims), nil
}

// Subject returns the subject without checking the signature or expiry.
// Never use it for authorization.
func (c *Codec) Subject(tokenString string) (string, error) {
	claims, err := c.unverified(tokenString)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

// Expiry returns the exp claim without checking the signature.
func (c *Codec) Expiry(tokenString string) (time.Time, error) {
	claims, err := c.unverified(tokenString)
	if err != nil {
		return time.Time{}, err
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, common.ErrMalformedToken
	}
	return claims.ExpiresAt.Time, nil
}

func (c *Codec) unverified(tokenString string) (*Claims, error) {
	claims := &Claims{}
	if _, _, err := c.parser.ParseUnverified(tokenString, claims); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrMalformedToken, err)
	}
	return claims, nil
}

func mapParseError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return fmt.Errorf("%w: %v", common.ErrMalformedToken, err)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return fmt.Errorf("%w: %v", common.ErrBadSignature, err)
	case errors.Is(err, jwt.ErrTokenExpired):
		return common.ErrTokenExpired
	default:
		// missing exp, bad claim types and the like
		return fmt.Errorf("%w: %v", common.ErrMalformedToken, err)
	}
}

func toInfo(c *Claims) *TokenInfo {
	info := &TokenInfo{Subject: c.Subject, Role: c.Role}
	if c.IssuedAt != nil {
		info.IssuedAt = c.IssuedAt.Time
	}
	if c.ExpiresAt != nil {
		info.ExpiresAt = c.ExpiresAt.Time
	}
	return info
}
