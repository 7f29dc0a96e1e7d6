package domain

// SyncData is the host-authoritative playback state.
type SyncData struct {
	CurrentTime float64 `json:"currentTime"`
	Playing     bool    `json:"playing"`
}

// SyncClientData targets a sync at a single room member.
type SyncClientData struct {
	UserID int      `json:"userId"`
	Data   SyncData `json:"data"`
}
