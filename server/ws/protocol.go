package ws

import "encoding/json"

// Envelope is the inbound frame shape. ID is the client-chosen callback id;
// when present the server answers the call exactly once with a Response
// keyed by it. Calls that need an answer but carry no id are reported on
// the exception channel instead.
type Envelope struct {
	Event string          `json:"event"`
	ID    *int            `json:"id,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type authenticatePayload struct {
	Token string `json:"token"`
}

type createRoomPayload struct {
	Name     string `json:"name"`
	Password string `json:"password"`
}

type joinRoomPayload struct {
	ID       string `json:"id"`
	Password string `json:"password"`
}

type updateRoomPayload struct {
	HostID int `json:"hostId"`
}

type updateRoomDataPayload struct {
	ShowID    string `json:"showId"`
	EpisodeID int    `json:"episodeId"`
}

type sendMessagePayload struct {
	Content string `json:"content"`
}

type kickUserPayload struct {
	UserID int `json:"userId"`
}
