package provider

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

// vendorServer serves canned JSON by request path, counts requests and
// remembers the Authorization header of the last request. A route may be a
// func(*http.Request) any to vary the answer by query.
type vendorServer struct {
	*httptest.Server
	mu   sync.Mutex
	auth string
	hits int
}

func newVendorServer(t *testing.T, routes map[string]any) *vendorServer {
	t.Helper()
	vs := &vendorServer{}
	vs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		vs.mu.Lock()
		vs.auth = r.Header.Get("Authorization")
		vs.hits++
		vs.mu.Unlock()

		body, ok := routes[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		if fn, ok := body.(func(*http.Request) any); ok {
			body = fn(r)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(body)
	}))
	t.Cleanup(vs.Close)
	return vs
}

func (vs *vendorServer) lastAuth() string {
	vs.mu.Lock()
	defer vs.mu.Unlock()
	return vs.auth
}

func (vs *vendorServer) requests() int {
	vs.mu.Lock()
	defer vs.mu.Unlock()
	return vs.hits
}
