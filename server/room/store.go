package room

import (
	"sync"

	"github.com/hisui-dev/watchparty/server/domain"
)

// Store owns the canonical set of rooms: the id index, the name uniqueness
// index and the global user-to-room reverse index. Its lock only guards the
// indexes; room contents are guarded by each room's own lock.
type Store struct {
	mu        sync.RWMutex
	rooms     map[string]*Room  // room id -> room
	names     map[string]string // room name -> room id
	userRooms map[int]string    // user id -> room id
}

func NewStore() *Store {
	return &Store{
		rooms:     make(map[string]*Room),
		names:     make(map[string]string),
		userRooms: make(map[int]string),
	}
}

// insert registers a new room, enforcing name uniqueness among live rooms.
func (s *Store) insert(r *Room) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.names[r.name]; taken {
		return domain.ErrNameTaken
	}
	s.rooms[r.id] = r
	s.names[r.name] = r.id
	return nil
}

// remove deletes a room from both indexes. Idempotent.
func (s *Store) remove(r *Room) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.rooms, r.id)
	if s.names[r.name] == r.id {
		delete(s.names, r.name)
	}
}

func (s *Store) Get(id string) (*Room, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.rooms[id]
	return r, ok
}

func (s *Store) GetByName(name string) (*Room, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.names[name]
	if !ok {
		return nil, false
	}
	r, ok := s.rooms[id]
	return r, ok
}

// Rooms lists every live room.
func (s *Store) Rooms() []*Room {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rooms := make([]*Room, 0, len(s.rooms))
	for _, r := range s.rooms {
		rooms = append(rooms, r)
	}
	return rooms
}

// RoomOfUser resolves the room a user is currently attached to.
func (s *Store) RoomOfUser(userID int) (*Room, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.userRooms[userID]
	if !ok {
		return nil, false
	}
	r, ok := s.rooms[id]
	return r, ok
}

func (s *Store) setUserRoom(userID int, roomID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.userRooms[userID] = roomID
}

// clearUserRoom drops the reverse mapping only if it still points at roomID,
// so a leave racing a join into another room cannot erase the newer mapping.
func (s *Store) clearUserRoom(userID int, roomID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.userRooms[userID] == roomID {
		delete(s.userRooms, userID)
	}
}
