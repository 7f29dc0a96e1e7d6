package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/hisui-dev/watchparty/server/domain"
	"github.com/hisui-dev/watchparty/server/logging"
)

// UserClient talks to the external user directory over HTTP.
type UserClient struct {
	baseURL string
	client  *http.Client
	logger  logging.Logger
}

func NewUserClient(baseURL string, logger logging.Logger) *UserClient {
	return &UserClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
		logger:  logger.With("module", "user_directory"),
	}
}

// Authenticate resolves token to a user. A directory rejection maps to
// ErrAuthFailed; transport or decoding failures map to ErrUpstream.
func (c *UserClient) Authenticate(ctx context.Context, token string) (domain.User, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/user", nil)
	if err != nil {
		return domain.User{}, fmt.Errorf("%w: %v", domain.ErrUpstream, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	res, err := c.client.Do(req)
	if err != nil {
		c.logger.Error(ctx, "user directory unreachable", "error", err)
		return domain.User{}, fmt.Errorf("%w: %v", domain.ErrUpstream, err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusUnauthorized || res.StatusCode == http.StatusForbidden {
		return domain.User{}, domain.ErrAuthFailed
	}
	if res.StatusCode != http.StatusOK {
		return domain.User{}, fmt.Errorf("%w: unexpected status %d", domain.ErrUpstream, res.StatusCode)
	}

	var body apiResponse[domain.User]
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return domain.User{}, fmt.Errorf("%w: %v", domain.ErrUpstream, err)
	}
	if body.Type != "success" {
		return domain.User{}, domain.ErrAuthFailed
	}
	return body.Data, nil
}
