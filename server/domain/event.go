package domain

// Client-initiated events. Each arrives in an Envelope; events marked with a
// callback in the protocol answer through a Response keyed by the envelope id.
const (
	EventAuthenticate     = "CLIENT:AUTHENTICATE"
	EventFetchRooms       = "CLIENT:FETCH_ROOMS"
	EventCreateRoom       = "CLIENT:CREATE_ROOM"
	EventJoinRoom         = "CLIENT:JOIN_ROOM"
	EventLeaveRoom        = "CLIENT:LEAVE_ROOM"
	EventUpdateRoom       = "CLIENT:UPDATE_ROOM"
	EventUpdateRoomData   = "CLIENT:UPDATE_ROOM_DATA"
	EventSyncRoom         = "CLIENT:SYNC_ROOM"
	EventSyncRoomClient   = "CLIENT:SYNC_ROOM_CLIENT"
	EventSendMessage      = "CLIENT:SEND_MESSAGE"
	EventFetchOnlineUsers = "CLIENT:FETCH_ONLINE_USERS"
	EventKickUser         = "CLIENT:KICK_USER"
	EventStartTyping      = "CLIENT:START_TYPING"
	EventStopTyping       = "CLIENT:STOP_TYPING"
	EventRequestRoomSync  = "CLIENT:REQUEST_ROOM_SYNC"
)

// Server-initiated pushes.
const (
	EventUserJoin          = "ROOM:USER_JOIN"
	EventUserLeave         = "ROOM:USER_LEAVE"
	EventRoomUpdate        = "ROOM:UPDATE"
	EventRoomUpdateData    = "ROOM:UPDATE_DATA"
	EventRoomSync          = "ROOM:SYNC"
	EventRoomMessage       = "ROOM:MESSAGE"
	EventUserStartTyping   = "ROOM:USER_START_TYPING"
	EventUserStopTyping    = "ROOM:USER_STOP_TYPING"
	EventClientRequestSync = "ROOM:CLIENT_REQUEST_ROOM_SYNC"
	EventForceLeave        = "ROOM:FORCE_LEAVE"
	EventResponse          = "RESPONSE"
	EventException         = "exception"
)

// Push is a server-to-client notification.
type Push struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

// Response answers a client call that carried a callback id.
type Response struct {
	Event   string `json:"event"`
	ID      int    `json:"id"`
	Type    string `json:"type"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
}

// ErrorPayload is pushed on the exception channel for calls that could not
// be answered through a callback.
type ErrorPayload struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func NewSuccessResponse(id int, data any) Response {
	return Response{Event: EventResponse, ID: id, Type: "success", Data: data}
}

func NewErrorResponse(id int, message string) Response {
	return Response{Event: EventResponse, ID: id, Type: "error", Message: message}
}

func NewException(message string) Push {
	return Push{Event: EventException, Data: ErrorPayload{Type: "error", Message: message}}
}
