package authclient

import (
	"net/http"
	"sync"
)

// TokenStore is the key-value persistence a session reads and writes its
// tokens through.
type TokenStore interface {
	Get(key string) (string, bool)
	Set(key, value string)
	Delete(key string)
}

// memoryStore is a process-local TokenStore.
type memoryStore struct {
	mu   sync.RWMutex
	data map[string]string
}

func newMemoryStore() *memoryStore {
	return &memoryStore{data: make(map[string]string)}
}

func (m *memoryStore) Get(key string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	return v, ok
}

func (m *memoryStore) Set(key, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
}

func (m *memoryStore) Delete(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
}

// Session holds the token state for a sequence of identity platform calls.
// A session never shares its store with another session, and no session
// ever refreshes a token on its own: a renewed credential is always the
// result of an explicit SignIn.
type Session struct {
	store TokenStore
	// persist controls whether tokens returned by the platform are kept.
	persist bool
}

// NewSession returns a long-lived session backed by the given store; tokens
// returned by the platform are persisted. Pass nil to use an in-memory store.
func NewSession(store TokenStore) *Session {
	return &Session{store: orMemoryStore(store), persist: true}
}

// NewIsolatedSession returns a throwaway session for exactly one call:
// private in-memory store, no persistence. Nothing written through it is
// visible to any other session, so issuing a new credential can never
// replace the operator's own login.
func NewIsolatedSession() *Session {
	return &Session{store: newMemoryStore()}
}

func orMemoryStore(store TokenStore) TokenStore {
	if store == nil {
		return newMemoryStore()
	}
	return store
}

// AccessToken returns the session's current access token, if any.
func (s *Session) AccessToken() (string, bool) {
	return s.store.Get(keyAccessToken)
}

// storeTokens records the token pair when the session persists state.
func (s *Session) storeTokens(access, refresh string) {
	if !s.persist {
		return
	}
	s.store.Set(keyAccessToken, access)
	if refresh != "" {
		s.store.Set(keyRefreshToken, refresh)
	}
}

const (
	keyAccessToken  = "access_token"
	keyRefreshToken = "refresh_token"
)

// stripAuthTransport removes any ambient Authorization header before the
// request leaves the process. Isolated calls go through it so a credential
// belonging to the shared session can never leak into an issuance request.
type stripAuthTransport struct {
	base http.RoundTripper
}

func (t *stripAuthTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())
	clone.Header.Del("Authorization")
	base := t.base
	if base == nil {
		base = http.DefaultTransport
	}
	return base.RoundTrip(clone)
}
