// Package room implements the room store and the lifecycle manager: room
// CRUD, membership transitions, host election and the kick path. It is the
// only package that mutates Room state.
package room

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/hisui-dev/watchparty/server/auth"
	"github.com/hisui-dev/watchparty/server/directory"
	"github.com/hisui-dev/watchparty/server/domain"
	"github.com/hisui-dev/watchparty/server/logging"
	"github.com/hisui-dev/watchparty/server/registry"
)

// Service performs all room lifecycle operations. Broadcasts go out through
// the connection registry; the external content directory is only consulted
// by UpdateData.
type Service struct {
	store    *Store
	registry *registry.Registry
	content  directory.ContentDirectory
	logger   logging.Logger
}

func NewService(store *Store, reg *registry.Registry, content directory.ContentDirectory, logger logging.Logger) *Service {
	return &Service{
		store:    store,
		registry: reg,
		content:  content,
		logger:   logger.With("module", "room"),
	}
}

// Create makes a new room with user as its only member and host. A
// non-empty password locks the room. Creating while attached to another room
// first leaves that room, the same way joining does.
func (s *Service) Create(name string, host domain.User, password string) (*Room, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}

	var passwordHash string
	if password != "" {
		if len(password) > auth.MaxPasswordLength {
			return nil, domain.ErrInvalidPassword
		}
		hash, err := auth.HashPassword(password)
		if err != nil {
			return nil, fmt.Errorf("hashing room password: %w", err)
		}
		passwordHash = hash
	}

	if current, ok := s.store.RoomOfUser(host.ID); ok {
		if err := s.Leave(current, host); err != nil && !errors.Is(err, domain.ErrNotInRoom) {
			return nil, err
		}
	}

	r := newRoom(name, host, passwordHash)
	if err := s.store.insert(r); err != nil {
		return nil, err
	}
	s.store.setUserRoom(host.ID, r.id)

	s.logger.Info(context.Background(), "room created",
		"room", r.id, "name", name, "host", host.ID, "locked", r.locked)
	return r, nil
}

// Get looks a room up by id.
func (s *Service) Get(id string) (*Room, bool) { return s.store.Get(id) }

// GetByName looks a room up by its unique name.
func (s *Service) GetByName(name string) (*Room, bool) { return s.store.GetByName(name) }

// Rooms lists every live room.
func (s *Service) Rooms() []*Room { return s.store.Rooms() }

// CurrentRoom resolves the room the user is attached to, if any.
func (s *Service) CurrentRoom(user domain.User) (*Room, bool) {
	return s.store.RoomOfUser(user.ID)
}

// ValidPassword checks a join attempt's password against a locked room.
func (s *Service) ValidPassword(r *Room, password string) bool {
	r.mu.Lock()
	hash := r.passwordHash
	r.mu.Unlock()
	if hash == "" {
		return true
	}
	return auth.VerifyPassword(hash, password)
}

// Join attaches user to r. Switching rooms is always modeled as
// leave-then-join so host election on the old room runs uniformly.
// Re-joining the current room is a membership no-op. The other members are
// told through a user-joined notification.
func (s *Service) Join(r *Room, user domain.User) error {
	if current, ok := s.store.RoomOfUser(user.ID); ok && current != r {
		if err := s.Leave(current, user); err != nil && !errors.Is(err, domain.ErrNotInRoom) {
			return err
		}
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return domain.ErrRoomNotFound
	}
	if r.memberIndex(user.ID) >= 0 {
		r.mu.Unlock()
		s.store.setUserRoom(user.ID, r.id)
		return nil
	}
	r.users = append(r.users, user)
	r.mu.Unlock()

	s.store.setUserRoom(user.ID, r.id)
	s.broadcastExcept(r, user.ID, domain.EventUserJoin, user)

	s.logger.Info(context.Background(), "user joined room", "room", r.id, "user", user.ID)
	return nil
}

// Leave detaches user from r. Exactly one of two outcomes follows: the room
// empties and is deleted, or it survives and, when the host left, the next
// member in join order is elected host. Remaining members are told the user
// left, and separately told about a host change.
func (s *Service) Leave(r *Room, user domain.User) error {
	r.mu.Lock()
	idx := r.memberIndex(user.ID)
	if r.closed || idx < 0 {
		r.mu.Unlock()
		return domain.ErrNotInRoom
	}

	r.users = append(r.users[:idx], r.users[idx+1:]...)
	wasHost := r.host.ID == user.ID

	var newHost *domain.User
	empty := len(r.users) == 0
	if empty {
		r.closed = true
	} else if wasHost {
		r.host = r.users[0]
		h := r.host
		newHost = &h
	}
	r.mu.Unlock()

	s.store.clearUserRoom(user.ID, r.id)

	if empty {
		s.store.remove(r)
		s.logger.Info(context.Background(), "room deleted", "room", r.id)
		return nil
	}

	s.broadcast(r, domain.EventUserLeave, user)
	if newHost != nil {
		s.broadcast(r, domain.EventRoomUpdate, domain.RoomUpdate{Host: *newHost})
		s.logger.Info(context.Background(), "host elected", "room", r.id, "host", newHost.ID)
	}

	s.logger.Info(context.Background(), "user left room", "room", r.id, "user", user.ID)
	return nil
}

// Update hands the host role to another current member. Only the current
// host may call it.
func (s *Service) Update(r *Room, caller domain.User, newHostID int) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return domain.ErrRoomNotFound
	}
	if r.host.ID != caller.ID {
		r.mu.Unlock()
		return domain.ErrNotHost
	}
	idx := r.memberIndex(newHostID)
	if idx < 0 {
		r.mu.Unlock()
		return domain.ErrTargetNotInRoom
	}
	r.host = r.users[idx]
	host := r.host
	r.mu.Unlock()

	s.broadcast(r, domain.EventRoomUpdate, domain.RoomUpdate{Host: host})
	s.logger.Info(context.Background(), "host handed off", "room", r.id, "host", host.ID)
	return nil
}

// UpdateData sets what the room is playing. When the requested episode is
// resolvable within the show the room already holds, only the episode id is
// broadcast and the content directory is not consulted; otherwise the show
// is fetched in full. The fetch is a suspension point, so the room and the
// caller's host role are re-validated after it returns.
func (s *Service) UpdateData(ctx context.Context, r *Room, caller domain.User, showID string, episodeID int) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return domain.ErrRoomNotFound
	}
	if r.host.ID != caller.ID {
		r.mu.Unlock()
		return domain.ErrNotHost
	}

	if r.data != nil && r.data.Show.ID == showID {
		if _, ok := domain.EpisodeByID(r.data.Show, episodeID); ok {
			r.data.EpisodeID = episodeID
			r.mu.Unlock()
			s.broadcast(r, domain.EventRoomUpdateData, domain.RoomDataUpdate{EpisodeID: episodeID})
			return nil
		}
	}
	r.mu.Unlock()

	show, err := s.content.GetShow(ctx, showID)
	if err != nil {
		return err
	}
	if _, ok := domain.EpisodeByID(show, episodeID); !ok {
		return domain.ErrShowNotFound
	}

	// The fetch may have taken a while; the host may have left or the room
	// may be gone by now.
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return domain.ErrRoomNotFound
	}
	if r.host.ID != caller.ID {
		r.mu.Unlock()
		return domain.ErrNotHost
	}
	r.data = &domain.RoomData{Show: show, EpisodeID: episodeID}
	r.mu.Unlock()

	s.broadcast(r, domain.EventRoomUpdateData, domain.RoomDataUpdate{Show: &show, EpisodeID: episodeID})
	s.logger.Info(ctx, "room data updated", "room", r.id, "show", showID, "episode", episodeID)
	return nil
}

// Kick forces target out of the room through the same leave path a
// voluntary departure takes, then instructs the target's client to leave.
// The target's connection itself stays up.
func (s *Service) Kick(r *Room, caller domain.User, targetID int) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return domain.ErrRoomNotFound
	}
	if r.host.ID != caller.ID {
		r.mu.Unlock()
		return domain.ErrNotHost
	}
	idx := r.memberIndex(targetID)
	if idx < 0 {
		r.mu.Unlock()
		return domain.ErrTargetNotInRoom
	}
	target := r.users[idx]
	r.mu.Unlock()

	if err := s.Leave(r, target); err != nil {
		return err
	}
	s.ToUser(targetID, domain.EventForceLeave, r.id)

	s.logger.Info(context.Background(), "user kicked", "room", r.id, "user", targetID, "by", caller.ID)
	return nil
}

// AppendMessage adds a chat message to the room's bounded history.
func (s *Service) AppendMessage(r *Room, m domain.Message) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.messages = append(r.messages, m)
	if len(r.messages) > maxMessages {
		r.messages = r.messages[len(r.messages)-maxMessages:]
	}
}

// Broadcast pushes an event to every member of r.
func (s *Service) Broadcast(r *Room, event string, data any) {
	s.broadcast(r, event, data)
}

// BroadcastExcept pushes an event to every member of r except one user.
func (s *Service) BroadcastExcept(r *Room, exceptUserID int, event string, data any) {
	s.broadcastExcept(r, exceptUserID, event, data)
}

// ToUser pushes an event to a single user's connection, if one is live.
func (s *Service) ToUser(userID int, event string, data any) bool {
	conn, ok := s.registry.Connection(userID)
	if !ok {
		return false
	}
	// Best effort: a send failure means the connection died mid-flight and
	// its disconnect handling is already underway.
	_ = conn.Send(domain.Push{Event: event, Data: data})
	return true
}

func (s *Service) broadcast(r *Room, event string, data any) {
	for _, u := range r.Users() {
		s.ToUser(u.ID, event, data)
	}
}

func (s *Service) broadcastExcept(r *Room, exceptUserID int, event string, data any) {
	for _, u := range r.Users() {
		if u.ID == exceptUserID {
			continue
		}
		s.ToUser(u.ID, event, data)
	}
}
