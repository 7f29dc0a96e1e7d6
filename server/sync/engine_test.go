package sync

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

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

func (c *fakeConn) syncs() []domain.SyncData {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []domain.SyncData
	for _, p := range c.sent {
		if p.Event == domain.EventRoomSync {
			out = append(out, p.Data.(domain.SyncData))
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
	carol = domain.User{ID: 3, Username: "carol"}
)

type fixture struct {
	engine *Engine
	rooms  *room.Service
	room   *room.Room
	conns  map[int]*fakeConn
}

func newFixture(t *testing.T, members ...domain.User) *fixture {
	t.Helper()
	logger := logging.NewJSON(io.Discard)
	reg := registry.New(logger)
	rooms := room.NewService(room.NewStore(), reg, fakeContent{}, logger)

	f := &fixture{
		engine: NewEngine(rooms, reg, logger),
		rooms:  rooms,
		conns:  make(map[int]*fakeConn),
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

func TestSyncRoomBroadcastsToOthers(t *testing.T) {
	f := newFixture(t, alice, bob, carol)

	data := domain.SyncData{CurrentTime: 120.0, Playing: true}
	require.NoError(t, f.engine.SyncRoom(f.room, alice, data, time.Now()))

	// The caller never receives their own sync.
	assert.Empty(t, f.conns[alice.ID].syncs())

	for _, u := range []domain.User{bob, carol} {
		syncs := f.conns[u.ID].syncs()
		require.Len(t, syncs, 1, "member %s", u.Username)
		assert.True(t, syncs[0].Playing)
		assert.GreaterOrEqual(t, syncs[0].CurrentTime, 120.0)
	}
}

func TestSyncRoomCompensatesProcessingDelay(t *testing.T) {
	f := newFixture(t, alice, bob)

	receivedAt := time.Now().Add(-250 * time.Millisecond)
	data := domain.SyncData{CurrentTime: 60.0, Playing: true}
	require.NoError(t, f.engine.SyncRoom(f.room, alice, data, receivedAt))

	syncs := f.conns[bob.ID].syncs()
	require.Len(t, syncs, 1)
	assert.GreaterOrEqual(t, syncs[0].CurrentTime, 60.25)
}

func TestSyncRoomRequiresHost(t *testing.T) {
	f := newFixture(t, alice, bob)

	err := f.engine.SyncRoom(f.room, bob, domain.SyncData{CurrentTime: 1}, time.Now())
	assert.ErrorIs(t, err, domain.ErrNotHost)

	// No broadcast on authorization failure.
	assert.Empty(t, f.conns[alice.ID].syncs())
	assert.Empty(t, f.conns[bob.ID].syncs())
}

func TestSyncRoomRequiresMembership(t *testing.T) {
	f := newFixture(t, alice, bob)

	err := f.engine.SyncRoom(f.room, carol, domain.SyncData{CurrentTime: 1}, time.Now())
	assert.ErrorIs(t, err, domain.ErrNotInRoom)
}

func TestSyncClientTargetsOneMember(t *testing.T) {
	f := newFixture(t, alice, bob, carol)

	data := domain.SyncData{CurrentTime: 42.0, Playing: false}
	require.NoError(t, f.engine.SyncClient(f.room, alice, bob.ID, data, time.Now()))

	require.Len(t, f.conns[bob.ID].syncs(), 1)
	assert.Empty(t, f.conns[carol.ID].syncs())
	assert.Empty(t, f.conns[alice.ID].syncs())
}

func TestSyncClientErrors(t *testing.T) {
	f := newFixture(t, alice, bob)

	err := f.engine.SyncClient(f.room, bob, alice.ID, domain.SyncData{}, time.Now())
	assert.ErrorIs(t, err, domain.ErrNotHost)

	err = f.engine.SyncClient(f.room, alice, carol.ID, domain.SyncData{}, time.Now())
	assert.ErrorIs(t, err, domain.ErrTargetNotInRoom)
}

func TestRequestSyncReachesHostOnly(t *testing.T) {
	f := newFixture(t, alice, bob, carol)

	f.engine.RequestSync(f.room, bob)

	requests := f.conns[alice.ID].sent
	var got []domain.Push
	for _, p := range requests {
		if p.Event == domain.EventClientRequestSync {
			got = append(got, p)
		}
	}
	require.Len(t, got, 1)
	assert.Equal(t, bob.ID, got[0].Data)

	for _, u := range []domain.User{bob, carol} {
		for _, p := range f.conns[u.ID].sent {
			assert.NotEqual(t, domain.EventClientRequestSync, p.Event)
		}
	}
}

func TestRequestSyncIgnoresNonMembersAndHost(t *testing.T) {
	f := newFixture(t, alice, bob)

	f.engine.RequestSync(f.room, carol) // not a member
	f.engine.RequestSync(f.room, alice) // host asking themselves

	for _, p := range f.conns[alice.ID].sent {
		assert.NotEqual(t, domain.EventClientRequestSync, p.Event)
	}
}
