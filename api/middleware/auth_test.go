package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/reloved-shop/reloved-backend/internal/cart"
	pkgauth "github.com/reloved-shop/reloved-backend/pkg/auth"
	"github.com/reloved-shop/reloved-backend/pkg/config"
	"github.com/reloved-shop/reloved-backend/pkg/enums"
)

var testJWTConfig = config.JWTConfig{Secret: "test-secret", Issuer: "reloved-test"}

func mintToken(t *testing.T, userID uuid.UUID) string {
	t.Helper()
	claims := pkgauth.AccessTokenClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    testJWTConfig.Issuer,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testJWTConfig.Secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func ownerEcho(t *testing.T, captured *cart.Owner) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		owner, ok := OwnerFromContext(r.Context())
		if !ok {
			t.Fatal("owner missing from context")
		}
		*captured = owner
		w.WriteHeader(http.StatusNoContent)
	})
}

func TestOwnerResolvesUserFromBearerToken(t *testing.T) {
	t.Parallel()
	userID := uuid.New()
	var captured cart.Owner
	handler := Owner(testJWTConfig, nil)(ownerEcho(t, &captured))

	req := httptest.NewRequest(http.MethodGet, "/cart", nil)
	req.Header.Set("Authorization", "Bearer "+mintToken(t, userID))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", w.Code)
	}
	if captured.Kind != enums.OwnerKindUser || captured.ID != userID.String() {
		t.Fatalf("owner = %+v, want user %s", captured, userID)
	}
}

func TestOwnerFallsBackToDeviceHeader(t *testing.T) {
	t.Parallel()
	var captured cart.Owner
	handler := Owner(testJWTConfig, nil)(ownerEcho(t, &captured))

	req := httptest.NewRequest(http.MethodGet, "/cart", nil)
	req.Header.Set("X-Device-Id", "device-42")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", w.Code)
	}
	if captured.Kind != enums.OwnerKindGuest || captured.ID != "device-42" {
		t.Fatalf("owner = %+v, want guest device-42", captured)
	}
}

func TestOwnerRejectsInvalidToken(t *testing.T) {
	t.Parallel()
	handler := Owner(testJWTConfig, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run for an invalid token")
	}))

	req := httptest.NewRequest(http.MethodGet, "/cart", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	// the device header must not rescue a bad token
	req.Header.Set("X-Device-Id", "device-42")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
}

func TestOwnerRejectsAnonymousRequests(t *testing.T) {
	t.Parallel()
	handler := Owner(testJWTConfig, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run without credentials")
	}))

	req := httptest.NewRequest(http.MethodGet, "/cart", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
}

func TestRequireUserRejectsGuests(t *testing.T) {
	t.Parallel()
	handler := RequireUser(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodPost, "/admin", nil)
	req = req.WithContext(WithOwner(req.Context(), cart.GuestOwner("device-1")))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/admin", nil)
	req = req.WithContext(WithOwner(req.Context(), cart.UserOwner("u-1")))
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204 for user", w.Code)
	}
}
