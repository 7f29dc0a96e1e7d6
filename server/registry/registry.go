// Package registry tracks which live connection belongs to which
// authenticated user. It is the authoritative bidirectional map behind the
// single-session-per-user policy and behind every "send directly to user X"
// operation. It never touches room state; tearing down a user's room
// membership on disconnect is the edge layer's job.
package registry

import (
	"context"
	"sync"

	"github.com/hisui-dev/watchparty/server/domain"
	"github.com/hisui-dev/watchparty/server/logging"
)

type session struct {
	conn domain.Sender
	user domain.User
}

// Registry is safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]session // connection id -> session
	users    map[int]string     // user id -> connection id
	logger   logging.Logger
}

func New(logger logging.Logger) *Registry {
	return &Registry{
		sessions: make(map[string]session),
		users:    make(map[int]string),
		logger:   logger.With("module", "registry"),
	}
}

// Register binds a connection to an authenticated user. It fails with
// ErrAlreadyConnected while the user has another live session or while the
// connection is already bound to a user; rebinding would orphan the first
// user's entry and lock them out until restart. The caller is expected to
// refuse the new connection.
func (r *Registry) Register(conn domain.Sender, user domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[conn.ID()]; ok {
		return domain.ErrAlreadyConnected
	}
	if _, ok := r.users[user.ID]; ok {
		return domain.ErrAlreadyConnected
	}

	r.sessions[conn.ID()] = session{conn: conn, user: user}
	r.users[user.ID] = conn.ID()

	r.logger.Info(context.Background(), "session registered",
		"conn", conn.ID(), "user", user.ID, "username", user.Username)
	return nil
}

// Resolve returns the user authenticated on the given connection.
func (r *Registry) Resolve(connID string) (domain.User, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sessions[connID]
	return s.user, ok
}

// Connection returns the live connection of the given user.
func (r *Registry) Connection(userID int) (domain.Sender, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	connID, ok := r.users[userID]
	if !ok {
		return nil, false
	}
	s, ok := r.sessions[connID]
	return s.conn, ok
}

// Remove tears down the mapping for a connection. It is idempotent; removing
// an unknown or already-removed connection is a no-op.
func (r *Registry) Remove(connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[connID]
	if !ok {
		return
	}
	delete(r.sessions, connID)
	delete(r.users, s.user.ID)

	r.logger.Info(context.Background(), "session removed", "conn", connID, "user", s.user.ID)
}

// OnlineUsers lists every currently authenticated user.
func (r *Registry) OnlineUsers() []domain.User {
	r.mu.RLock()
	defer r.mu.RUnlock()

	users := make([]domain.User, 0, len(r.sessions))
	for _, s := range r.sessions {
		users = append(users, s.user)
	}
	return users
}
