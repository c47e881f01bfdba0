package push

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"go.uber.org/zap"
)

type memStore struct{ data map[string]string }

func newMemStore() *memStore { return &memStore{data: make(map[string]string)} }

func (m *memStore) Get(key string) (string, error) { return m.data[key], nil }

func (m *memStore) Set(key, value string) error {
	m.data[key] = value
	return nil
}

func TestAssociate(t *testing.T) {
	var gotAuth atomic.Value
	var gotBody atomic.Value

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth.Store(r.Header.Get("Authorization"))
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		gotBody.Store(body)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	store := newMemStore()
	r := New(srv.URL, "linux", store, zap.NewNop())
	if err := r.SetDeviceID("device-77"); err != nil {
		t.Fatalf("SetDeviceID failed: %v", err)
	}

	if err := r.Associate(context.Background(), "tok-1"); err != nil {
		t.Fatalf("Associate failed: %v", err)
	}

	if gotAuth.Load() != "Bearer tok-1" {
		t.Errorf("auth header = %v", gotAuth.Load())
	}
	body := gotBody.Load().(map[string]string)
	if body["device_id"] != "device-77" || body["platform"] != "linux" {
		t.Errorf("body = %v", body)
	}
}

func TestAssociateWithoutDeviceID(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	r := New(srv.URL, "linux", newMemStore(), zap.NewNop())
	if err := r.Associate(context.Background(), "tok-1"); err != nil {
		t.Fatalf("Associate should no-op: %v", err)
	}
	if called {
		t.Error("no request should be made without a device id")
	}
}

func TestAssociateWithoutEndpoint(t *testing.T) {
	r := New("", "linux", newMemStore(), zap.NewNop())
	if err := r.Associate(context.Background(), "tok-1"); err != nil {
		t.Errorf("empty endpoint must be a no-op: %v", err)
	}
}

func TestAssociateServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	store := newMemStore()
	r := New(srv.URL, "linux", store, zap.NewNop())
	r.SetDeviceID("device-1")

	if err := r.Associate(context.Background(), "tok-1"); err == nil {
		t.Error("server error should surface to the caller for logging")
	}
}
