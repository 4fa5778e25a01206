package middleware

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
)

type fakeIdemStore struct {
	data map[string]string
}

func newFakeIdemStore() *fakeIdemStore {
	return &fakeIdemStore{data: make(map[string]string)}
}

func (s *fakeIdemStore) Get(_ context.Context, key string) (string, error) {
	value, ok := s.data[key]
	if !ok {
		return "", redis.Nil
	}
	return value, nil
}

func (s *fakeIdemStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if _, ok := s.data[key]; ok {
		return false, nil
	}
	s.data[key] = value.(string)
	return true, nil
}

func (s *fakeIdemStore) IdempotencyKey(scope, id string) string {
	return "idem:" + scope + ":" + id
}

func (s *fakeIdemStore) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(s.data, key)
	}
	return nil
}

func newIdempotentRouter(store *fakeIdemStore, hits *int) http.Handler {
	r := chi.NewRouter()
	r.Use(Idempotency(store, nil))
	r.Post("/api/v1/checkout", func(w http.ResponseWriter, req *http.Request) {
		*hits++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"order_id":"abc"}`))
	})
	r.Post("/api/v1/cart/lines", func(w http.ResponseWriter, req *http.Request) {
		*hits++
		w.WriteHeader(http.StatusOK)
	})
	return r
}

func TestIdempotencyRequiresKeyOnCheckout(t *testing.T) {
	t.Parallel()
	hits := 0
	router := newIdempotentRouter(newFakeIdemStore(), &hits)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/checkout", bytes.NewBufferString(`{}`)))

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	if hits != 0 {
		t.Fatalf("handler ran %d times, want 0", hits)
	}
}

func TestIdempotencyReplaysStoredResponse(t *testing.T) {
	t.Parallel()
	hits := 0
	router := newIdempotentRouter(newFakeIdemStore(), &hits)

	first := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", bytes.NewBufferString(`{"a":1}`))
	first.Header.Set("Idempotency-Key", "key-1")
	w1 := httptest.NewRecorder()
	router.ServeHTTP(w1, first)
	if w1.Code != http.StatusCreated {
		t.Fatalf("first status = %d, want 201", w1.Code)
	}

	second := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", bytes.NewBufferString(`{"a":1}`))
	second.Header.Set("Idempotency-Key", "key-1")
	w2 := httptest.NewRecorder()
	router.ServeHTTP(w2, second)

	if hits != 1 {
		t.Fatalf("handler ran %d times, want 1", hits)
	}
	if w2.Code != http.StatusCreated {
		t.Fatalf("replay status = %d, want 201", w2.Code)
	}
	if w2.Body.String() != w1.Body.String() {
		t.Fatalf("replay body = %q, want %q", w2.Body.String(), w1.Body.String())
	}
}

func TestIdempotencyRejectsKeyReuseWithDifferentBody(t *testing.T) {
	t.Parallel()
	hits := 0
	router := newIdempotentRouter(newFakeIdemStore(), &hits)

	first := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", bytes.NewBufferString(`{"a":1}`))
	first.Header.Set("Idempotency-Key", "key-1")
	router.ServeHTTP(httptest.NewRecorder(), first)

	second := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", bytes.NewBufferString(`{"a":2}`))
	second.Header.Set("Idempotency-Key", "key-1")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, second)

	if w.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", w.Code)
	}
	if hits != 1 {
		t.Fatalf("handler ran %d times, want 1", hits)
	}
}

func TestIdempotencyIgnoresUnlistedRoutes(t *testing.T) {
	t.Parallel()
	hits := 0
	router := newIdempotentRouter(newFakeIdemStore(), &hits)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/cart/lines", bytes.NewBufferString(`{}`)))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if hits != 1 {
		t.Fatalf("handler ran %d times, want 1", hits)
	}
}
