// Package authsvc implements the minimal user table and bearer-token
// issuance backing /auth/login and /auth/register: a concrete default the
// collab.AuthVerifier interface can be wired against, not itself part of
// the opaque-collaborator boundary (the boundary is token verification by
// an arbitrary external scheme; something has to issue tokens for the
// default deployment to work standalone).
package authsvc

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/partforge/partsearch/internal/collab"
)

// ErrUserExists is returned by Register for a username already taken.
var ErrUserExists = errors.New("username already registered")

// ErrInvalidCredentials is returned by Login for an unknown username or
// wrong password.
var ErrInvalidCredentials = errors.New("invalid username or password")

type user struct {
	passwordHash string
}

// Service is an in-memory user table plus opaque bearer-token issuance.
// Tokens never expire and are held only in-process, matching the scope
// the upload session registry itself is documented to accept (§9 Open
// Question i): horizontal scale needs a shared store, not specified here.
type Service struct {
	mu     sync.RWMutex
	users  map[string]user
	tokens map[string]string // token -> username
}

// New builds an empty Service.
func New() *Service {
	return &Service{users: make(map[string]user), tokens: make(map[string]string)}
}

// Register creates a new user account.
func (s *Service) Register(username, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.users[username]; exists {
		return ErrUserExists
	}
	s.users[username] = user{passwordHash: hashPassword(password)}
	return nil
}

// Login verifies credentials and issues a new opaque bearer token.
func (s *Service) Login(username, password string) (token string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[username]
	if !ok || u.passwordHash != hashPassword(password) {
		return "", ErrInvalidCredentials
	}
	token = uuid.NewString()
	s.tokens[token] = username
	return token, nil
}

// VerifyToken resolves a bearer token to its username; Verify wraps it to
// satisfy collab.AuthVerifier.
func (s *Service) VerifyToken(token string) (username string, ok bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	username, ok = s.tokens[token]
	return username, ok
}

// Verify implements collab.AuthVerifier over this Service's own token
// table, extracting a bearer token from the Authorization header.
func (s *Service) Verify(r *http.Request) (string, error) {
	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	if token == "" {
		return "", collab.ErrUnauthenticated
	}
	username, ok := s.VerifyToken(token)
	if !ok {
		return "", collab.ErrUnauthenticated
	}
	return username, nil
}

func hashPassword(password string) string {
	sum := sha256.Sum256([]byte(password))
	return hex.EncodeToString(sum[:])
}
