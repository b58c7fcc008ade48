// Package auth verifies identity-provider bearer tokens using JWT.
// Stateless: any instance can verify a token signed with the shared secret.
package auth

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/memomeet/memomeet/adapters/clock"
	"github.com/memomeet/memomeet/ports"
)

// Roles carried in tokens.
const (
	RoleUser     = "user"
	RoleOperator = "operator"
)

var (
	// ErrInvalidToken is returned for malformed, forged or wrongly issued tokens.
	ErrInvalidToken = errors.New("invalid token")

	// ErrTokenExpired is returned for tokens past their expiry.
	ErrTokenExpired = errors.New("token expired")
)

// Claims are the JWT claims issued for a signed-in account.
// The registered subject is the account id.
type Claims struct {
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// AccountID returns the account the token was issued for.
func (c *Claims) AccountID() string {
	return c.Subject
}

// TokenService provides stateless JWT token operations.
// Thread-safe and suitable for concurrent use.
type TokenService struct {
	secret     []byte
	issuer     string
	expiration time.Duration
	clock      ports.Clock
}

// Option configures a TokenService.
type Option func(*TokenService)

// WithClock sets the clock used for issuing and validating tokens.
func WithClock(c ports.Clock) Option {
	return func(s *TokenService) { s.clock = c }
}

// NewTokenService creates a new JWT token service.
// If secret is empty, a random 32-byte secret is generated.
func NewTokenService(secret, issuer string, expiration time.Duration, opts ...Option) *TokenService {
	var secretBytes []byte
	if secret == "" {
		secretBytes = make([]byte, 32)
		rand.Read(secretBytes)
	} else {
		secretBytes = []byte(secret)
	}

	if expiration == 0 {
		expiration = 24 * time.Hour
	}
	if issuer == "" {
		issuer = "memomeet"
	}

	s := &TokenService{
		secret:     secretBytes,
		issuer:     issuer,
		expiration: expiration,
		clock:      clock.Real{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GenerateToken creates a new JWT token for the given account.
func (s *TokenService) GenerateToken(accountID, email, role string) (string, time.Time, error) {
	if accountID == "" {
		return "", time.Time{}, errors.New("account id is required")
	}
	if role == "" {
		role = RoleUser
	}
	now := s.clock.Now()
	expiresAt := now.Add(s.expiration)

	claims := Claims{
		Email: email,
		Role:  role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   accountID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, err
	}

	return signed, expiresAt, nil
}

// ValidateToken validates a JWT token and returns the claims.
func (s *TokenService) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.clock.Now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

// RefreshToken creates a new token with extended expiration.
func (s *TokenService) RefreshToken(tokenString string) (string, time.Time, error) {
	claims, err := s.ValidateToken(tokenString)
	if err != nil {
		return "", time.Time{}, err
	}

	return s.GenerateToken(claims.Subject, claims.Email, claims.Role)
}

// GenerateSecret generates a random secret suitable for JWT signing.
func GenerateSecret() string {
	b := make([]byte, 32)
	rand.Read(b)
	return hex.EncodeToString(b)
}
