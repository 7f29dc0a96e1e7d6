// Package sync implements the host-authoritative playback broadcast. The
// engine compensates for server-side processing delay only: the interval
// between the event arriving and the broadcast going out is added to the
// reported position. Network transit to each viewer is deliberately not
// estimated; stale clients recover through the next sync or an explicit
// resync request.
package sync

import (
	"context"
	"time"

	"github.com/hisui-dev/watchparty/server/domain"
	"github.com/hisui-dev/watchparty/server/logging"
	"github.com/hisui-dev/watchparty/server/registry"
	"github.com/hisui-dev/watchparty/server/room"
)

type Engine struct {
	rooms    *room.Service
	registry *registry.Registry
	logger   logging.Logger
}

func NewEngine(rooms *room.Service, reg *registry.Registry, logger logging.Logger) *Engine {
	return &Engine{
		rooms:    rooms,
		registry: reg,
		logger:   logger.With("module", "sync"),
	}
}

// SyncRoom pushes the host's playback state to every other member of r.
// receivedAt is the moment the event arrived at the server; the elapsed
// handling time is folded into the broadcast position. Only the current
// host may sync; nothing is broadcast on an authorization failure.
func (e *Engine) SyncRoom(r *room.Room, caller domain.User, data domain.SyncData, receivedAt time.Time) error {
	if !r.HasUser(caller.ID) {
		return domain.ErrNotInRoom
	}
	if r.Host().ID != caller.ID {
		return domain.ErrNotHost
	}

	data.CurrentTime += time.Since(receivedAt).Seconds()
	e.rooms.BroadcastExcept(r, caller.ID, domain.EventRoomSync, data)
	return nil
}

// SyncClient delivers a sync to exactly one member, typically to bring a
// late joiner or a drifted client back in step.
func (e *Engine) SyncClient(r *room.Room, caller domain.User, targetUserID int, data domain.SyncData, receivedAt time.Time) error {
	if !r.HasUser(caller.ID) {
		return domain.ErrNotInRoom
	}
	if r.Host().ID != caller.ID {
		return domain.ErrNotHost
	}
	if !r.HasUser(targetUserID) {
		return domain.ErrTargetNotInRoom
	}

	data.CurrentTime += time.Since(receivedAt).Seconds()
	e.rooms.ToUser(targetUserID, domain.EventRoomSync, data)
	return nil
}

// RequestSync asks the room's host to push a fresh sync. The request is
// forwarded to the host's connection only, carrying the requester's id. It
// mutates nothing and is silently dropped when it does not apply.
func (e *Engine) RequestSync(r *room.Room, requester domain.User) {
	if !r.HasUser(requester.ID) {
		return
	}
	host := r.Host()
	if host.ID == requester.ID {
		return
	}
	if !e.rooms.ToUser(host.ID, domain.EventClientRequestSync, requester.ID) {
		e.logger.Debug(context.Background(), "host unaddressable for resync request",
			"room", r.ID(), "host", host.ID)
	}
}
