package domain

// Sender addresses one live client connection. The websocket layer provides
// the real implementation; everything above it only ever needs these two
// methods, which keeps the registry and the broadcast paths testable without
// a network.
//
// Send is best-effort: a slow or gone client drops the payload rather than
// blocking the caller.
type Sender interface {
	ID() string
	Send(v any) error
}
