package chat

import (
	"context"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hisui-dev/watchparty/server/domain"
	"github.com/hisui-dev/watchparty/server/logging"
	"github.com/hisui-dev/watchparty/server/registry"
	"github.com/hisui-dev/watchparty/server/room"
)

type fakeConn struct {
	mu   sync.Mutex
	id   string
	sent []domain.Push
}

func (c *fakeConn) ID() string { return c.id }

func (c *fakeConn) Send(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if push, ok := v.(domain.Push); ok {
		c.sent = append(c.sent, push)
	}
	return nil
}

func (c *fakeConn) pushes(event string) []domain.Push {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []domain.Push
	for _, p := range c.sent {
		if p.Event == event {
			out = append(out, p)
		}
	}
	return out
}

type fakeContent struct{}

func (fakeContent) GetShow(context.Context, string) (domain.Show, error) {
	return domain.Show{}, domain.ErrShowNotFound
}

var (
	alice = domain.User{ID: 1, Username: "alice"}
	bob   = domain.User{ID: 2, Username: "bob"}
	dev   = domain.User{ID: 3, Username: "dev", Badges: []string{domain.BadgeDeveloper}}
)

type fixture struct {
	chat  *Service
	rooms *room.Service
	room  *room.Room
	conns map[int]*fakeConn
}

func newFixture(t *testing.T, members ...domain.User) *fixture {
	t.Helper()
	logger := logging.NewJSON(io.Discard)
	reg := registry.New(logger)
	rooms := room.NewService(room.NewStore(), reg, fakeContent{}, logger)

	f := &fixture{
		chat:  NewService(rooms, logger),
		rooms: rooms,
		conns: make(map[int]*fakeConn),
	}

	for _, u := range members {
		conn := &fakeConn{id: "conn-" + u.Username}
		require.NoError(t, reg.Register(conn, u))
		f.conns[u.ID] = conn
	}

	r, err := rooms.Create("movie-night", members[0], "")
	require.NoError(t, err)
	for _, u := range members[1:] {
		require.NoError(t, rooms.Join(r, u))
	}
	f.room = r
	return f
}

func TestSendMessage(t *testing.T) {
	f := newFixture(t, alice, bob)

	msg, err := f.chat.SendMessage(f.room, alice, "  hello there  ")
	require.NoError(t, err)

	assert.NotEmpty(t, msg.ID)
	assert.Equal(t, alice, msg.User)
	assert.Equal(t, "hello there", msg.Content)

	history := f.room.Messages()
	require.Len(t, history, 1)
	assert.Equal(t, msg, history[0])

	// Broadcast goes to everyone but the sender.
	require.Len(t, f.conns[bob.ID].pushes(domain.EventRoomMessage), 1)
	assert.Empty(t, f.conns[alice.ID].pushes(domain.EventRoomMessage))
}

func TestSendMessageEmpty(t *testing.T) {
	f := newFixture(t, alice)

	_, err := f.chat.SendMessage(f.room, alice, "   \n\t ")
	assert.ErrorIs(t, err, domain.ErrEmptyMessage)
	assert.Empty(t, f.room.Messages())
}

func TestSendMessageNotInRoom(t *testing.T) {
	f := newFixture(t, alice)

	_, err := f.chat.SendMessage(f.room, bob, "hi")
	assert.ErrorIs(t, err, domain.ErrNotInRoom)
}

func TestSendMessageSanitizesMarkup(t *testing.T) {
	f := newFixture(t, alice, bob)

	msg, err := f.chat.SendMessage(f.room, alice, `<script>alert(1)</script>hi<b>!</b>`)
	require.NoError(t, err)

	assert.NotContains(t, msg.Content, "<script>")
	assert.NotContains(t, msg.Content, "<b>")
	assert.Contains(t, msg.Content, "hi")
}

func TestDeveloperBadgeBypassesSanitization(t *testing.T) {
	f := newFixture(t, dev, bob)

	msg, err := f.chat.SendMessage(f.room, dev, `<b>release notes</b>`)
	require.NoError(t, err)
	assert.Equal(t, `<b>release notes</b>`, msg.Content)
}

func TestSendMessageCapsLength(t *testing.T) {
	f := newFixture(t, dev)

	long := strings.Repeat("a", 600)
	msg, err := f.chat.SendMessage(f.room, dev, long)
	require.NoError(t, err)

	// Trusted users are capped too.
	assert.Len(t, []rune(msg.Content), 500)
}

func TestTypingRelays(t *testing.T) {
	f := newFixture(t, alice, bob)

	f.chat.StartTyping(f.room, alice)
	f.chat.StopTyping(f.room, alice)

	starts := f.conns[bob.ID].pushes(domain.EventUserStartTyping)
	require.Len(t, starts, 1)
	assert.Equal(t, alice.ID, starts[0].Data)
	require.Len(t, f.conns[bob.ID].pushes(domain.EventUserStopTyping), 1)

	// Never echoed back to the typist.
	assert.Empty(t, f.conns[alice.ID].pushes(domain.EventUserStartTyping))
}

func TestTypingFromNonMemberIgnored(t *testing.T) {
	f := newFixture(t, alice)

	f.chat.StartTyping(f.room, bob)
	f.chat.StopTyping(f.room, bob)

	assert.Empty(t, f.conns[alice.ID].pushes(domain.EventUserStartTyping))
	assert.Empty(t, f.conns[alice.ID].pushes(domain.EventUserStopTyping))
}
