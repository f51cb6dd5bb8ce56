package middleware

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type memoryIdempotencyStore struct {
	mu     sync.Mutex
	values map[string]string
}

func newMemoryIdempotencyStore() *memoryIdempotencyStore {
	return &memoryIdempotencyStore{values: make(map[string]string)}
}

func (m *memoryIdempotencyStore) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.values[key], nil
}

func (m *memoryIdempotencyStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.values[key]; exists {
		return false, nil
	}
	m.values[key] = value.(string)
	return true, nil
}

func (m *memoryIdempotencyStore) IdempotencyKey(scope, id string) string {
	return "tw:idempotency:" + scope + ":" + id
}

func (m *memoryIdempotencyStore) Del(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		delete(m.values, key)
	}
	return nil
}

func newCloseRouter(store *memoryIdempotencyStore, calls *int) http.Handler {
	r := chi.NewRouter()
	r.Use(Idempotency(store, nil))
	r.Post("/api/v1/drawer/sessions/{sessionId}/close", func(w http.ResponseWriter, r *http.Request) {
		*calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"data":{"status":"closed"}}`))
	})
	return r
}

func TestIdempotencyReplaysStoredResponse(t *testing.T) {
	store := newMemoryIdempotencyStore()
	calls := 0
	router := newCloseRouter(store, &calls)

	path := "/api/v1/drawer/sessions/" + uuid.NewString() + "/close"
	body := `{"closing_balance":"1250.00"}`

	first := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	first.Header.Set("Idempotency-Key", "key-1")
	rec1 := httptest.NewRecorder()
	router.ServeHTTP(rec1, first)

	second := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	second.Header.Set("Idempotency-Key", "key-1")
	rec2 := httptest.NewRecorder()
	router.ServeHTTP(rec2, second)

	if calls != 1 {
		t.Fatalf("expected handler to run once, ran %d times", calls)
	}
	if rec2.Code != rec1.Code {
		t.Fatalf("replay status mismatch: %d vs %d", rec2.Code, rec1.Code)
	}
	if rec2.Body.String() != rec1.Body.String() {
		t.Fatalf("replay body mismatch: %q vs %q", rec2.Body.String(), rec1.Body.String())
	}
}

func TestIdempotencyRejectsKeyReuseWithDifferentBody(t *testing.T) {
	store := newMemoryIdempotencyStore()
	calls := 0
	router := newCloseRouter(store, &calls)

	path := "/api/v1/drawer/sessions/" + uuid.NewString() + "/close"

	first := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(`{"closing_balance":"1250.00"}`))
	first.Header.Set("Idempotency-Key", "key-1")
	router.ServeHTTP(httptest.NewRecorder(), first)

	second := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(`{"closing_balance":"900.00"}`))
	second.Header.Set("Idempotency-Key", "key-1")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, second)

	if calls != 1 {
		t.Fatalf("expected handler to run once, ran %d times", calls)
	}
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d", rec.Code)
	}
}

func TestIdempotencyRequiresHeaderOnGuardedRoutes(t *testing.T) {
	store := newMemoryIdempotencyStore()
	calls := 0
	router := newCloseRouter(store, &calls)

	path := "/api/v1/drawer/sessions/" + uuid.NewString() + "/close"
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(`{}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if calls != 0 {
		t.Fatal("handler should not run without an idempotency key")
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}

// Mounts the middleware on a parent router the way the production router
// does, where the leaf route is not yet resolved when the guard runs.
func newNestedDrawerRouter(store *memoryIdempotencyStore, calls *int) http.Handler {
	r := chi.NewRouter()
	r.Route("/api/v1/drawer", func(r chi.Router) {
		r.Use(Idempotency(store, nil))
		r.Route("/sessions", func(r chi.Router) {
			r.Post("/", func(w http.ResponseWriter, _ *http.Request) {
				*calls++
				w.WriteHeader(http.StatusCreated)
			})
			r.Route("/{sessionId}", func(r chi.Router) {
				r.Post("/close", func(w http.ResponseWriter, _ *http.Request) {
					*calls++
					w.WriteHeader(http.StatusOK)
					_, _ = w.Write([]byte(`{"data":{"status":"closed"}}`))
				})
			})
		})
	})
	return r
}

func TestIdempotencyGuardsNestedCloseRoute(t *testing.T) {
	store := newMemoryIdempotencyStore()
	calls := 0
	router := newNestedDrawerRouter(store, &calls)

	path := "/api/v1/drawer/sessions/" + uuid.NewString() + "/close"
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(`{"closing_balance":"1250.00"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if calls != 0 {
		t.Fatal("handler should not run without an idempotency key")
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}

	keyed := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(`{"closing_balance":"1250.00"}`))
	keyed.Header.Set("Idempotency-Key", "key-1")
	first := httptest.NewRecorder()
	router.ServeHTTP(first, keyed)

	replay := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(`{"closing_balance":"1250.00"}`))
	replay.Header.Set("Idempotency-Key", "key-1")
	second := httptest.NewRecorder()
	router.ServeHTTP(second, replay)

	if calls != 1 {
		t.Fatalf("expected handler to run once, ran %d times", calls)
	}
	if second.Body.String() != first.Body.String() {
		t.Fatalf("replay body mismatch: %q vs %q", second.Body.String(), first.Body.String())
	}
}

func TestIdempotencyGuardsNestedOpenRoute(t *testing.T) {
	store := newMemoryIdempotencyStore()
	calls := 0
	router := newNestedDrawerRouter(store, &calls)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/drawer/sessions", bytes.NewBufferString(`{"opening_balance":"100.00"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if calls != 0 {
		t.Fatal("handler should not run without an idempotency key")
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}

// Store whose SetNX always loses, as if a concurrent request persisted first.
type racingIdempotencyStore struct {
	*memoryIdempotencyStore
}

func (r *racingIdempotencyStore) SetNX(context.Context, string, any, time.Duration) (bool, error) {
	return false, nil
}

func TestIdempotencyLostSetNXRaceStillServesResponse(t *testing.T) {
	store := &racingIdempotencyStore{memoryIdempotencyStore: newMemoryIdempotencyStore()}
	calls := 0
	r := chi.NewRouter()
	r.Use(Idempotency(store, nil))
	r.Post("/api/v1/drawer/sessions/{sessionId}/close", func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/drawer/sessions/"+uuid.NewString()+"/close", bytes.NewBufferString(`{}`))
	req.Header.Set("Idempotency-Key", "key-1")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if calls != 1 {
		t.Fatalf("expected handler to run, ran %d times", calls)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
}

func TestIdempotencySkipsUnguardedRoutes(t *testing.T) {
	store := newMemoryIdempotencyStore()
	r := chi.NewRouter()
	r.Use(Idempotency(store, nil))
	calls := 0
	r.Get("/api/v1/drawer/sessions/{sessionId}/movements", func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/drawer/sessions/"+uuid.NewString()+"/movements", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if calls != 1 {
		t.Fatal("unguarded route should run without idempotency key")
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
}
