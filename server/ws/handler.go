// Package ws is the websocket edge: it upgrades connections, decodes the
// event envelopes, maps them onto the core services and shapes responses
// and broadcasts. No room or session state lives here.
package ws

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/hisui-dev/watchparty/server/chat"
	"github.com/hisui-dev/watchparty/server/directory"
	"github.com/hisui-dev/watchparty/server/domain"
	"github.com/hisui-dev/watchparty/server/logging"
	"github.com/hisui-dev/watchparty/server/registry"
	"github.com/hisui-dev/watchparty/server/room"
	"github.com/hisui-dev/watchparty/server/sync"
)

// client-facing error strings, matching the responses clients already parse.
const (
	msgTokenRequired        = "User token is required."
	msgGenericError         = "Something went wrong."
	msgInvalidPayload       = "Invalid payload."
	msgNotAuthenticated     = "You must be authenticated."
	msgAlreadyAuthenticated = "You are already authenticated."
	msgAlreadyConnected     = "You are already connected on another device."
	msgNameRequired         = "Room name is required."
	msgNameTaken            = "Room name is already taken."
	msgInvalidPassword      = "The room password doesn't match."
	msgRoomNotFound         = "Room doesn't exist."
	msgNotInRoom            = "You aren't in a room."
	msgNotHost              = "You aren't the host of the room."
	msgTargetNotInRoom      = "That user isn't in the room."
	msgEmptyMessage         = "Message content is required."
	msgShowNotFound         = "Show doesn't exist."
)

// Handler maps inbound events to core operations. One instance serves all
// connections; per-connection ordering comes from each connection's single
// reader goroutine.
type Handler struct {
	registry *registry.Registry
	rooms    *room.Service
	engine   *sync.Engine
	chat     *chat.Service
	users    directory.UserDirectory
	logger   logging.Logger
}

func NewHandler(reg *registry.Registry, rooms *room.Service, engine *sync.Engine, chatService *chat.Service, users directory.UserDirectory, logger logging.Logger) *Handler {
	return &Handler{
		registry: reg,
		rooms:    rooms,
		engine:   engine,
		chat:     chatService,
		users:    users,
		logger:   logger.With("module", "ws"),
	}
}

// HandleMessage processes one inbound frame from conn.
func (h *Handler) HandleMessage(ctx context.Context, conn domain.Sender, raw []byte) {
	receivedAt := time.Now()

	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		_ = conn.Send(domain.NewException(msgInvalidPayload))
		return
	}

	switch env.Event {
	case domain.EventAuthenticate:
		h.handleAuthenticate(ctx, conn, env)
	case domain.EventFetchRooms:
		h.handleFetchRooms(conn, env)
	case domain.EventCreateRoom:
		h.handleCreateRoom(conn, env)
	case domain.EventJoinRoom:
		h.handleJoinRoom(conn, env)
	case domain.EventLeaveRoom:
		h.handleLeaveRoom(conn, env)
	case domain.EventUpdateRoom:
		h.handleUpdateRoom(conn, env)
	case domain.EventUpdateRoomData:
		h.handleUpdateRoomData(ctx, conn, env)
	case domain.EventSyncRoom:
		h.handleSyncRoom(conn, env, receivedAt)
	case domain.EventSyncRoomClient:
		h.handleSyncRoomClient(conn, env, receivedAt)
	case domain.EventSendMessage:
		h.handleSendMessage(conn, env)
	case domain.EventFetchOnlineUsers:
		h.handleFetchOnlineUsers(conn, env)
	case domain.EventKickUser:
		h.handleKickUser(conn, env)
	case domain.EventStartTyping:
		h.handleTyping(conn, true)
	case domain.EventStopTyping:
		h.handleTyping(conn, false)
	case domain.EventRequestRoomSync:
		h.handleRequestRoomSync(conn)
	default:
		h.replyError(conn, env, msgInvalidPayload)
	}
}

// HandleDisconnect runs when a connection goes away, cleanly or not. The
// user's room membership is torn down through the same leave path as an
// explicit leave, then the session mapping is dropped.
func (h *Handler) HandleDisconnect(connID string) {
	if user, ok := h.registry.Resolve(connID); ok {
		if r, ok := h.rooms.CurrentRoom(user); ok {
			if err := h.rooms.Leave(r, user); err != nil && !errors.Is(err, domain.ErrNotInRoom) {
				h.logger.Warn(context.Background(), "leave on disconnect failed",
					"conn", connID, "user", user.ID, "error", err)
			}
		}
	}
	h.registry.Remove(connID)
}

func (h *Handler) handleAuthenticate(ctx context.Context, conn domain.Sender, env Envelope) {
	// A connection carries at most one session for its lifetime. Rebinding
	// it to another user would orphan the current user's registry entry.
	if _, ok := h.registry.Resolve(conn.ID()); ok {
		h.replyError(conn, env, msgAlreadyAuthenticated)
		return
	}

	var p authenticatePayload
	if len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, &p); err != nil {
			h.replyError(conn, env, msgInvalidPayload)
			return
		}
	}
	if p.Token == "" {
		h.replyError(conn, env, msgTokenRequired)
		return
	}

	user, err := h.users.Authenticate(ctx, p.Token)
	if err != nil {
		h.replyError(conn, env, errorMessage(err))
		return
	}

	if err := h.registry.Register(conn, user); err != nil {
		h.replyError(conn, env, errorMessage(err))
		// Single-session policy: the new connection is refused outright.
		if closer, ok := conn.(interface{ Close() error }); ok {
			_ = closer.Close()
		}
		return
	}

	h.replySuccess(conn, env, user)
}

func (h *Handler) handleFetchRooms(conn domain.Sender, env Envelope) {
	if _, ok := h.requireUser(conn, env); !ok {
		return
	}

	rooms := h.rooms.Rooms()
	partials := make([]domain.PartialRoom, 0, len(rooms))
	for _, r := range rooms {
		partials = append(partials, r.Partial())
	}
	h.replySuccess(conn, env, partials)
}

func (h *Handler) handleCreateRoom(conn domain.Sender, env Envelope) {
	user, ok := h.requireUser(conn, env)
	if !ok {
		return
	}

	var p createRoomPayload
	if err := json.Unmarshal(env.Data, &p); err != nil {
		h.replyError(conn, env, msgInvalidPayload)
		return
	}

	r, err := h.rooms.Create(p.Name, user, p.Password)
	if err != nil {
		h.replyError(conn, env, errorMessage(err))
		return
	}
	h.replySuccess(conn, env, r.Export())
}

func (h *Handler) handleJoinRoom(conn domain.Sender, env Envelope) {
	user, ok := h.requireUser(conn, env)
	if !ok {
		return
	}

	var p joinRoomPayload
	if err := json.Unmarshal(env.Data, &p); err != nil || p.ID == "" {
		h.replyError(conn, env, msgInvalidPayload)
		return
	}

	r, found := h.rooms.Get(p.ID)
	if !found {
		h.replyError(conn, env, msgRoomNotFound)
		return
	}
	if r.Locked() && !h.rooms.ValidPassword(r, p.Password) {
		h.replyError(conn, env, msgInvalidPassword)
		return
	}

	if err := h.rooms.Join(r, user); err != nil {
		h.replyError(conn, env, errorMessage(err))
		return
	}
	h.replySuccess(conn, env, r.Export())
}

func (h *Handler) handleLeaveRoom(conn domain.Sender, env Envelope) {
	user, r, ok := h.requireRoom(conn, env)
	if !ok {
		return
	}

	if err := h.rooms.Leave(r, user); err != nil {
		h.replyError(conn, env, errorMessage(err))
		return
	}
	h.replySuccess(conn, env, "Successfully left room.")
}

func (h *Handler) handleUpdateRoom(conn domain.Sender, env Envelope) {
	user, r, ok := h.requireRoom(conn, env)
	if !ok {
		return
	}

	var p updateRoomPayload
	if err := json.Unmarshal(env.Data, &p); err != nil {
		h.replyError(conn, env, msgInvalidPayload)
		return
	}

	if err := h.rooms.Update(r, user, p.HostID); err != nil {
		h.replyError(conn, env, errorMessage(err))
		return
	}
	h.replySuccess(conn, env, "Successfully updated room.")
}

func (h *Handler) handleUpdateRoomData(ctx context.Context, conn domain.Sender, env Envelope) {
	user, r, ok := h.requireRoom(conn, env)
	if !ok {
		return
	}

	var p updateRoomDataPayload
	if err := json.Unmarshal(env.Data, &p); err != nil || p.ShowID == "" {
		h.replyError(conn, env, msgInvalidPayload)
		return
	}

	if err := h.rooms.UpdateData(ctx, r, user, p.ShowID, p.EpisodeID); err != nil {
		h.replyError(conn, env, errorMessage(err))
		return
	}
	h.replySuccess(conn, env, "Successfully updated room data.")
}

func (h *Handler) handleSyncRoom(conn domain.Sender, env Envelope, receivedAt time.Time) {
	user, r, ok := h.requireRoom(conn, env)
	if !ok {
		return
	}

	var data domain.SyncData
	if err := json.Unmarshal(env.Data, &data); err != nil {
		h.replyError(conn, env, msgInvalidPayload)
		return
	}

	if err := h.engine.SyncRoom(r, user, data, receivedAt); err != nil {
		h.replyError(conn, env, errorMessage(err))
		return
	}
	h.replySuccess(conn, env, "Successfully synced room.")
}

func (h *Handler) handleSyncRoomClient(conn domain.Sender, env Envelope, receivedAt time.Time) {
	user, r, ok := h.requireRoom(conn, env)
	if !ok {
		return
	}

	var p domain.SyncClientData
	if err := json.Unmarshal(env.Data, &p); err != nil {
		h.replyError(conn, env, msgInvalidPayload)
		return
	}

	if err := h.engine.SyncClient(r, user, p.UserID, p.Data, receivedAt); err != nil {
		h.replyError(conn, env, errorMessage(err))
		return
	}
	h.replySuccess(conn, env, "Successfully synced room client.")
}

func (h *Handler) handleSendMessage(conn domain.Sender, env Envelope) {
	user, r, ok := h.requireRoom(conn, env)
	if !ok {
		return
	}

	var p sendMessagePayload
	if err := json.Unmarshal(env.Data, &p); err != nil {
		h.replyError(conn, env, msgInvalidPayload)
		return
	}

	message, err := h.chat.SendMessage(r, user, p.Content)
	if err != nil {
		h.replyError(conn, env, errorMessage(err))
		return
	}
	h.replySuccess(conn, env, message)
}

func (h *Handler) handleFetchOnlineUsers(conn domain.Sender, env Envelope) {
	if _, ok := h.requireUser(conn, env); !ok {
		return
	}
	h.replySuccess(conn, env, h.registry.OnlineUsers())
}

func (h *Handler) handleKickUser(conn domain.Sender, env Envelope) {
	user, r, ok := h.requireRoom(conn, env)
	if !ok {
		return
	}

	var p kickUserPayload
	if err := json.Unmarshal(env.Data, &p); err != nil {
		h.replyError(conn, env, msgInvalidPayload)
		return
	}

	if err := h.rooms.Kick(r, user, p.UserID); err != nil {
		h.replyError(conn, env, errorMessage(err))
		return
	}
	h.replySuccess(conn, env, "Successfully kicked user.")
}

// handleTyping and handleRequestRoomSync are fire-and-forget: no callback,
// no error paths, events that don't apply are dropped.
func (h *Handler) handleTyping(conn domain.Sender, start bool) {
	user, ok := h.registry.Resolve(conn.ID())
	if !ok {
		return
	}
	r, ok := h.rooms.CurrentRoom(user)
	if !ok {
		return
	}
	if start {
		h.chat.StartTyping(r, user)
	} else {
		h.chat.StopTyping(r, user)
	}
}

func (h *Handler) handleRequestRoomSync(conn domain.Sender) {
	user, ok := h.registry.Resolve(conn.ID())
	if !ok {
		return
	}
	r, ok := h.rooms.CurrentRoom(user)
	if !ok {
		return
	}
	h.engine.RequestSync(r, user)
}

// requireUser resolves the authenticated user behind conn, answering the
// call with an error when there is none.
func (h *Handler) requireUser(conn domain.Sender, env Envelope) (domain.User, bool) {
	user, ok := h.registry.Resolve(conn.ID())
	if !ok {
		h.replyError(conn, env, msgNotAuthenticated)
		return domain.User{}, false
	}
	return user, true
}

// requireRoom additionally resolves the caller's current room.
func (h *Handler) requireRoom(conn domain.Sender, env Envelope) (domain.User, *room.Room, bool) {
	user, ok := h.requireUser(conn, env)
	if !ok {
		return domain.User{}, nil, false
	}
	r, ok := h.rooms.CurrentRoom(user)
	if !ok {
		h.replyError(conn, env, msgNotInRoom)
		return domain.User{}, nil, false
	}
	return user, r, true
}

func (h *Handler) replySuccess(conn domain.Sender, env Envelope, data any) {
	if env.ID == nil {
		return
	}
	_ = conn.Send(domain.NewSuccessResponse(*env.ID, data))
}

// replyError answers through the callback when the call carried one, and on
// the out-of-band exception channel otherwise.
func (h *Handler) replyError(conn domain.Sender, env Envelope, message string) {
	if env.ID == nil {
		_ = conn.Send(domain.NewException(message))
		return
	}
	_ = conn.Send(domain.NewErrorResponse(*env.ID, message))
}

// errorMessage maps core errors to the strings clients show. Anything
// unrecognized is masked behind a generic message.
func errorMessage(err error) string {
	switch {
	case errors.Is(err, domain.ErrNotAuthenticated):
		return msgNotAuthenticated
	case errors.Is(err, domain.ErrAuthFailed):
		return msgGenericError
	case errors.Is(err, domain.ErrAlreadyConnected):
		return msgAlreadyConnected
	case errors.Is(err, domain.ErrInvalidName):
		return msgNameRequired
	case errors.Is(err, domain.ErrNameTaken):
		return msgNameTaken
	case errors.Is(err, domain.ErrInvalidPassword):
		return msgInvalidPassword
	case errors.Is(err, domain.ErrRoomNotFound):
		return msgRoomNotFound
	case errors.Is(err, domain.ErrNotInRoom):
		return msgNotInRoom
	case errors.Is(err, domain.ErrNotHost):
		return msgNotHost
	case errors.Is(err, domain.ErrTargetNotInRoom):
		return msgTargetNotInRoom
	case errors.Is(err, domain.ErrEmptyMessage):
		return msgEmptyMessage
	case errors.Is(err, domain.ErrShowNotFound):
		return msgShowNotFound
	default:
		return msgGenericError
	}
}
