package api

import (
	"sync"

	"github.com/google/uuid"
)

// sessionData is what a session token stands for: enough to rebuild a
// FreeFeed client without keeping the password around.
type sessionData struct {
	AuthToken  string
	BaseURL    string
	APIVersion int
	Username   string
}

// sessionStore keeps sessions in memory. Tokens are random UUIDs; sessions
// live until the process exits.
type sessionStore struct {
	mu       sync.Mutex
	sessions map[string]sessionData
}

func newSessionStore() *sessionStore {
	return &sessionStore{sessions: make(map[string]sessionData)}
}

// Create stores the session and returns its token.
func (s *sessionStore) Create(data sessionData) string {
	token := uuid.NewString()
	s.mu.Lock()
	s.sessions[token] = data
	s.mu.Unlock()
	return token
}

func (s *sessionStore) Get(token string) (sessionData, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.sessions[token]
	return data, ok
}
