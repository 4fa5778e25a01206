package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/reloved-shop/reloved-backend/pkg/config"
)

func mintTestToken(t *testing.T, secret, issuer string, userID uuid.UUID, ttl time.Duration) string {
	t.Helper()
	now := time.Now().UTC()
	claims := AccessTokenClaims{
		UserID: userID,
		Email:  "shopper@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
	}
	token, err := jwt.NewWithClaims(jwtSigningMethod, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("signing test token: %v", err)
	}
	return token
}

func TestParseAccessToken(t *testing.T) {
	cfg := config.JWTConfig{Secret: "secret", Issuer: "reloved"}
	userID := uuid.New()
	token := mintTestToken(t, cfg.Secret, cfg.Issuer, userID, 30*time.Minute)

	claims, err := ParseAccessToken(cfg, token)
	if err != nil {
		t.Fatalf("parse access token: %v", err)
	}
	if claims.UserID != userID {
		t.Fatalf("expected user_id %s, got %s", userID, claims.UserID)
	}
	if claims.Issuer != cfg.Issuer {
		t.Fatalf("expected issuer %s, got %s", cfg.Issuer, claims.Issuer)
	}
	if claims.Email != "shopper@example.com" {
		t.Fatalf("email not preserved: %q", claims.Email)
	}
}

func TestParseAccessTokenInvalidSignature(t *testing.T) {
	cfg := config.JWTConfig{Secret: "secret", Issuer: "reloved"}
	token := mintTestToken(t, cfg.Secret, cfg.Issuer, uuid.New(), 10*time.Minute)

	if _, err := ParseAccessToken(cfg, token+"x"); err == nil {
		t.Fatal("expected invalid signature error")
	}
}

func TestParseAccessTokenExpired(t *testing.T) {
	cfg := config.JWTConfig{Secret: "secret", Issuer: "reloved"}
	token := mintTestToken(t, cfg.Secret, cfg.Issuer, uuid.New(), -time.Hour)

	_, err := ParseAccessToken(cfg, token)
	if err == nil {
		t.Fatal("expected expiration error")
	}
	if !strings.Contains(err.Error(), "expired") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestParseAccessTokenWrongIssuer(t *testing.T) {
	cfg := config.JWTConfig{Secret: "secret", Issuer: "reloved"}
	token := mintTestToken(t, cfg.Secret, "someone-else", uuid.New(), 10*time.Minute)

	if _, err := ParseAccessToken(cfg, token); err == nil {
		t.Fatal("expected issuer mismatch error")
	}
}
