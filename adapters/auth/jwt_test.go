package auth_test

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/memomeet/memomeet/adapters/auth"
	"github.com/memomeet/memomeet/adapters/clock"
)

func TestNewTokenService_EmptySecret(t *testing.T) {
	svc := auth.NewTokenService("", "", time.Hour)

	// Should still work
	token, _, err := svc.GenerateToken("acc_1", "a@example.com", auth.RoleUser)
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}
	if _, err := svc.ValidateToken(token); err != nil {
		t.Errorf("ValidateToken failed: %v", err)
	}
}

func TestNewTokenService_DefaultExpiration(t *testing.T) {
	svc := auth.NewTokenService("secret", "", 0)

	_, expiresAt, err := svc.GenerateToken("acc_1", "a@example.com", "")
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}

	// Default should be 24 hours
	expectedExpiry := time.Now().Add(24 * time.Hour)
	if expiresAt.Before(expectedExpiry.Add(-time.Minute)) || expiresAt.After(expectedExpiry.Add(time.Minute)) {
		t.Errorf("expiration should be ~24h, got %v", expiresAt)
	}
}

func TestTokenService_GenerateToken_RequiresAccount(t *testing.T) {
	svc := auth.NewTokenService("secret", "", time.Hour)
	if _, _, err := svc.GenerateToken("", "a@example.com", auth.RoleUser); err == nil {
		t.Error("expected error for empty account id")
	}
}

func TestTokenService_ValidateToken_Success(t *testing.T) {
	svc := auth.NewTokenService("test-secret", "memomeet", time.Hour)

	token, _, err := svc.GenerateToken("acc_123", "user@example.com", auth.RoleOperator)
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}

	claims, err := svc.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken failed: %v", err)
	}
	if claims.AccountID() != "acc_123" {
		t.Errorf("AccountID() = %s, want acc_123", claims.AccountID())
	}
	if claims.Email != "user@example.com" {
		t.Errorf("Email = %s", claims.Email)
	}
	if claims.Role != auth.RoleOperator {
		t.Errorf("Role = %s, want operator", claims.Role)
	}
	if claims.Issuer != "memomeet" {
		t.Errorf("Issuer = %s", claims.Issuer)
	}
}

func TestTokenService_ValidateToken_DefaultRole(t *testing.T) {
	svc := auth.NewTokenService("test-secret", "", time.Hour)
	token, _, _ := svc.GenerateToken("acc_1", "", "")

	claims, err := svc.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken failed: %v", err)
	}
	if claims.Role != auth.RoleUser {
		t.Errorf("Role = %s, want user", claims.Role)
	}
}

func TestTokenService_ValidateToken_Invalid(t *testing.T) {
	svc := auth.NewTokenService("test-secret", "memomeet", time.Hour)
	other := auth.NewTokenService("other-secret", "memomeet", time.Hour)
	otherIssuer := auth.NewTokenService("test-secret", "someone-else", time.Hour)

	wrongSecret, _, _ := other.GenerateToken("acc_1", "", "")
	wrongIssuer, _, _ := otherIssuer.GenerateToken("acc_1", "", "")

	// alg none must never be accepted
	unsigned, _ := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
		Subject:   "acc_1",
		Issuer:    "memomeet",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)

	// tokens without expiry are refused
	noExpiry, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject: "acc_1",
		Issuer:  "memomeet",
	}).SignedString([]byte("test-secret"))

	tests := []struct {
		name  string
		token string
	}{
		{"garbage", "not-a-token"},
		{"empty", ""},
		{"wrong secret", wrongSecret},
		{"wrong issuer", wrongIssuer},
		{"alg none", unsigned},
		{"no expiry", noExpiry},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.ValidateToken(tt.token)
			if !errors.Is(err, auth.ErrInvalidToken) {
				t.Errorf("err = %v, want ErrInvalidToken", err)
			}
		})
	}
}

func TestTokenService_ValidateToken_Expired(t *testing.T) {
	clk := clock.NewManual(time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC))
	svc := auth.NewTokenService("test-secret", "", time.Hour, auth.WithClock(clk))

	token, _, err := svc.GenerateToken("acc_1", "", "")
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}

	clk.Advance(59 * time.Minute)
	if _, err := svc.ValidateToken(token); err != nil {
		t.Fatalf("token should still be valid: %v", err)
	}

	clk.Advance(2 * time.Minute)
	if _, err := svc.ValidateToken(token); !errors.Is(err, auth.ErrTokenExpired) {
		t.Errorf("err = %v, want ErrTokenExpired", err)
	}
}

func TestTokenService_RefreshToken(t *testing.T) {
	clk := clock.NewManual(time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC))
	svc := auth.NewTokenService("test-secret", "", time.Hour, auth.WithClock(clk))

	token, firstExpiry, _ := svc.GenerateToken("acc_1", "a@example.com", auth.RoleUser)
	clk.Advance(30 * time.Minute)

	refreshed, expiresAt, err := svc.RefreshToken(token)
	if err != nil {
		t.Fatalf("RefreshToken failed: %v", err)
	}
	if !expiresAt.After(firstExpiry) {
		t.Errorf("refreshed expiry %v should be after %v", expiresAt, firstExpiry)
	}
	claims, err := svc.ValidateToken(refreshed)
	if err != nil {
		t.Fatalf("ValidateToken failed: %v", err)
	}
	if claims.AccountID() != "acc_1" || claims.Email != "a@example.com" {
		t.Errorf("claims = %+v", claims)
	}

	if _, _, err := svc.RefreshToken("invalid"); err == nil {
		t.Error("expected error refreshing invalid token")
	}
}

func TestGenerateSecret(t *testing.T) {
	s1 := auth.GenerateSecret()
	s2 := auth.GenerateSecret()

	if len(s1) != 64 {
		t.Errorf("secret length = %d, want 64", len(s1))
	}
	if s1 == s2 {
		t.Error("secrets should be unique")
	}
	if strings.Trim(s1, "0123456789abcdef") != "" {
		t.Errorf("secret should be hex: %s", s1)
	}
}
