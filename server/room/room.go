package room

import (
	"sync"

	"github.com/oklog/ulid/v2"

	"github.com/hisui-dev/watchparty/server/domain"
)

// maxMessages bounds the per-room chat history.
const maxMessages = 100

// Room is the canonical, mutable state of one group-viewing session. All
// mutation goes through the Service; other packages only read through the
// snapshot accessors. Each room carries its own lock so join/leave churn in
// one room never serializes against another.
type Room struct {
	mu           sync.Mutex
	id           string
	name         string
	locked       bool
	passwordHash string
	host         domain.User
	users        []domain.User
	data         *domain.RoomData
	messages     []domain.Message

	// closed marks a deleted room so operations racing with the final leave
	// observe deletion instead of resurrecting it.
	closed bool
}

func newRoom(name string, host domain.User, passwordHash string) *Room {
	return &Room{
		id:           ulid.Make().String(),
		name:         name,
		locked:       passwordHash != "",
		passwordHash: passwordHash,
		host:         host,
		users:        []domain.User{host},
	}
}

func (r *Room) ID() string   { return r.id }
func (r *Room) Name() string { return r.name }

func (r *Room) Locked() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.locked
}

func (r *Room) Host() domain.User {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.host
}

// Users returns the member list in join order.
func (r *Room) Users() []domain.User {
	r.mu.Lock()
	defer r.mu.Unlock()
	users := make([]domain.User, len(r.users))
	copy(users, r.users)
	return users
}

func (r *Room) HasUser(userID int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.memberIndex(userID) >= 0
}

func (r *Room) Data() *domain.RoomData {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.data == nil {
		return nil
	}
	data := *r.data
	return &data
}

func (r *Room) Messages() []domain.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	messages := make([]domain.Message, len(r.messages))
	copy(messages, r.messages)
	return messages
}

// Export builds the client-safe projection of the room. The password hash
// never leaves this package.
func (r *Room) Export() domain.ExportedRoom {
	r.mu.Lock()
	defer r.mu.Unlock()

	users := make([]domain.User, len(r.users))
	copy(users, r.users)
	messages := make([]domain.Message, len(r.messages))
	copy(messages, r.messages)

	var data *domain.RoomData
	if r.data != nil {
		d := *r.data
		data = &d
	}

	return domain.ExportedRoom{
		ID:       r.id,
		Name:     r.name,
		Locked:   r.locked,
		Host:     r.host,
		Users:    users,
		Data:     data,
		Messages: messages,
	}
}

// Partial builds the listing projection used by FETCH_ROOMS.
func (r *Room) Partial() domain.PartialRoom {
	r.mu.Lock()
	defer r.mu.Unlock()

	users := make([]domain.User, len(r.users))
	copy(users, r.users)

	return domain.PartialRoom{
		ID:     r.id,
		Name:   r.name,
		Locked: r.locked,
		Host:   r.host,
		Users:  users,
	}
}

// memberIndex is called with r.mu held.
func (r *Room) memberIndex(userID int) int {
	for i, u := range r.users {
		if u.ID == userID {
			return i
		}
	}
	return -1
}
