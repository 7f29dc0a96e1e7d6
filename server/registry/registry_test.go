package registry

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hisui-dev/watchparty/server/domain"
	"github.com/hisui-dev/watchparty/server/logging"
)

type fakeConn struct {
	id   string
	sent []any
}

func (c *fakeConn) ID() string       { return c.id }
func (c *fakeConn) Send(v any) error { c.sent = append(c.sent, v); return nil }

func newRegistry() *Registry {
	return New(logging.NewJSON(io.Discard))
}

func TestRegisterAndResolve(t *testing.T) {
	r := newRegistry()
	conn := &fakeConn{id: "c1"}
	user := domain.User{ID: 1, Username: "aki"}

	require.NoError(t, r.Register(conn, user))

	got, ok := r.Resolve("c1")
	require.True(t, ok)
	assert.Equal(t, user, got)

	sender, ok := r.Connection(1)
	require.True(t, ok)
	assert.Equal(t, "c1", sender.ID())
}

func TestSingleSessionPerUser(t *testing.T) {
	r := newRegistry()
	user := domain.User{ID: 1, Username: "aki"}

	require.NoError(t, r.Register(&fakeConn{id: "c1"}, user))
	err := r.Register(&fakeConn{id: "c2"}, user)
	assert.ErrorIs(t, err, domain.ErrAlreadyConnected)

	// The first session stays live.
	sender, ok := r.Connection(1)
	require.True(t, ok)
	assert.Equal(t, "c1", sender.ID())

	// After the first connection goes away the user may authenticate again.
	r.Remove("c1")
	assert.NoError(t, r.Register(&fakeConn{id: "c2"}, user))
}

func TestRegisterRefusesBoundConnection(t *testing.T) {
	r := newRegistry()
	conn := &fakeConn{id: "c1"}
	aki := domain.User{ID: 1, Username: "aki"}
	ban := domain.User{ID: 2, Username: "ban"}

	require.NoError(t, r.Register(conn, aki))
	err := r.Register(conn, ban)
	assert.ErrorIs(t, err, domain.ErrAlreadyConnected)

	// The original binding is untouched and the refused user gained none.
	got, ok := r.Resolve("c1")
	require.True(t, ok)
	assert.Equal(t, aki, got)
	_, ok = r.Connection(ban.ID)
	assert.False(t, ok)

	// Removing the connection frees the bound user, not anyone else.
	r.Remove("c1")
	_, ok = r.Connection(aki.ID)
	assert.False(t, ok)
	assert.NoError(t, r.Register(&fakeConn{id: "c2"}, aki))
}

func TestRemoveIsIdempotent(t *testing.T) {
	r := newRegistry()
	require.NoError(t, r.Register(&fakeConn{id: "c1"}, domain.User{ID: 1}))

	r.Remove("c1")
	r.Remove("c1")
	r.Remove("never-existed")

	_, ok := r.Resolve("c1")
	assert.False(t, ok)
	_, ok = r.Connection(1)
	assert.False(t, ok)
}

func TestOnlineUsers(t *testing.T) {
	r := newRegistry()
	require.NoError(t, r.Register(&fakeConn{id: "c1"}, domain.User{ID: 1, Username: "aki"}))
	require.NoError(t, r.Register(&fakeConn{id: "c2"}, domain.User{ID: 2, Username: "ban"}))

	users := r.OnlineUsers()
	assert.Len(t, users, 2)

	ids := []int{users[0].ID, users[1].ID}
	assert.ElementsMatch(t, []int{1, 2}, ids)
}
