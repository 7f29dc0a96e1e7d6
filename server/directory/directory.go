// Package directory holds the clients for the two external services the
// server depends on: the user directory, which resolves opaque tokens to
// users, and the content directory, which resolves show metadata. Both are
// stateless remote services; the content client adds an optional
// read-through cache bounded by a TTL.
package directory

import (
	"context"

	"github.com/hisui-dev/watchparty/server/domain"
)

// UserDirectory resolves an opaque client token to a user.
type UserDirectory interface {
	Authenticate(ctx context.Context, token string) (domain.User, error)
}

// ContentDirectory resolves a show identifier to its episode structure.
type ContentDirectory interface {
	GetShow(ctx context.Context, showID string) (domain.Show, error)
}

// apiResponse is the envelope both directories answer with.
type apiResponse[T any] struct {
	Type    string `json:"type"`
	Data    T      `json:"data"`
	Message string `json:"message"`
}
