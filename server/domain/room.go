package domain

// RoomData describes what a room is currently playing.
type RoomData struct {
	Show      Show `json:"show"`
	EpisodeID int  `json:"episodeId"`
}

// PartialRoom is the listing projection returned by FETCH_ROOMS.
type PartialRoom struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Locked bool   `json:"locked"`
	Host   User   `json:"host"`
	Users  []User `json:"users"`
}

// ExportedRoom is the full client-safe projection of a room. It never
// carries the password hash. Messages are included so a joining client can
// catch up on recent history.
type ExportedRoom struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Locked   bool      `json:"locked"`
	Host     User      `json:"host"`
	Users    []User    `json:"users"`
	Data     *RoomData `json:"data"`
	Messages []Message `json:"messages"`
}

// RoomDataUpdate is the ROOM:UPDATE_DATA broadcast payload. Show is omitted
// when the receiving clients already hold the show object.
type RoomDataUpdate struct {
	Show      *Show `json:"show,omitempty"`
	EpisodeID int   `json:"episodeId"`
}

// RoomUpdate is the ROOM:UPDATE broadcast payload.
type RoomUpdate struct {
	Host User `json:"host"`
}
