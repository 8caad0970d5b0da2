package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/ayusman/bodystats/internal/app"
	"github.com/ayusman/bodystats/internal/body"
	"github.com/ayusman/bodystats/internal/store"
)

// newTestStore creates a new Store with a temporary database for testing.
func newTestStore(t *testing.T) *store.Store {
	t.Helper()

	s, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() {
		s.Close()
	})

	return s
}

// newTestApp creates an App recording into a temporary store, fed with the given hand paths.
func newTestApp(t *testing.T, left, right []float64) (*app.App, *store.Store) {
	t.Helper()

	s := newTestStore(t)
	a := app.New(app.Config{Store: s, MaxMinima: 8})
	for _, cs := range body.HandPath("b1", left, right) {
		if _, err := a.Apply(cs); err != nil {
			t.Fatalf("failed to apply change set: %v", err)
		}
	}
	return a, s
}

func doRequest(t *testing.T, h http.Handler, method, target string, body []byte) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, target, bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(v); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
}
