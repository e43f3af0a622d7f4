// Package testutil holds helpers shared by package tests: a Postgres setup
// that skips without TEST_PG_DSN, a routed httptest server and an in-memory
// token store.
package testutil

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"golang.org/x/oauth2"
)

// MockServer is an httptest server dispatching on "METHOD /path".
type MockServer struct {
	*httptest.Server
	mu       sync.Mutex
	Handlers map[string]http.HandlerFunc
	Hits     map[string]int
}

// NewMockServer starts a server closed at test cleanup. Unrouted requests
// get 404.
func NewMockServer(t *testing.T) *MockServer {
	t.Helper()
	m := &MockServer{
		Handlers: make(map[string]http.HandlerFunc),
		Hits:     make(map[string]int),
	}
	m.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Method + " " + r.URL.Path
		m.mu.Lock()
		m.Hits[key]++
		handler, ok := m.Handlers[key]
		m.mu.Unlock()
		if ok {
			handler(w, r)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(m.Close)
	return m
}

// Handle routes method and path to h.
func (m *MockServer) Handle(method, path string, h http.HandlerFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Handlers[method+" "+path] = h
}

// HitCount reports how many requests reached method and path.
func (m *MockServer) HitCount(method, path string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Hits[method+" "+path]
}

// JSON answers method and path with status and v encoded as JSON.
func (m *MockServer) JSON(method, path string, status int, v any) {
	m.Handle(method, path, func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, status, v)
	})
}

// MockOAuthTokenResponse answers the token endpoint at path.
func (m *MockServer) MockOAuthTokenResponse(path, accessToken, refreshToken string, expiresIn int) {
	m.JSON(http.MethodPost, path, http.StatusOK, map[string]any{
		"access_token":  accessToken,
		"refresh_token": refreshToken,
		"expires_in":    expiresIn,
		"token_type":    "bearer",
	})
}

// WriteJSON writes v with a JSON content type.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v) //nolint:errcheck // test mock response
}

// TokenStore is an in-memory oauth token store.
type TokenStore struct {
	mu     sync.Mutex
	Tokens map[string]*oauth2.Token
	Saves  int
	// SaveErr, when set, is returned by SaveToken.
	SaveErr error
}

// NewTokenStore returns an empty store.
func NewTokenStore() *TokenStore {
	return &TokenStore{Tokens: make(map[string]*oauth2.Token)}
}

func (s *TokenStore) LoadToken(_ context.Context, provider string) (*oauth2.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tok, ok := s.Tokens[provider]
	if !ok {
		return nil, nil
	}
	cp := *tok
	return &cp, nil
}

func (s *TokenStore) SaveToken(_ context.Context, provider string, tok *oauth2.Token) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.SaveErr != nil {
		return s.SaveErr
	}
	cp := *tok
	s.Tokens[provider] = &cp
	s.Saves++
	return nil
}
