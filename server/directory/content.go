package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/hisui-dev/watchparty/server/domain"
	"github.com/hisui-dev/watchparty/server/logging"
)

// ContentClient talks to the external content directory over HTTP and keeps
// a read-through show cache so repeated episode changes within the same show
// do not refetch the whole show object.
type ContentClient struct {
	baseURL string
	client  *http.Client
	ttl     time.Duration
	logger  logging.Logger

	mu    sync.Mutex
	cache map[string]cachedShow
}

type cachedShow struct {
	show    domain.Show
	expires time.Time
}

func NewContentClient(baseURL string, ttl time.Duration, logger logging.Logger) *ContentClient {
	return &ContentClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
		ttl:     ttl,
		logger:  logger.With("module", "content_directory"),
		cache:   make(map[string]cachedShow),
	}
}

// GetShow resolves a show by id, serving from the cache while the entry is
// fresh. An absent show maps to ErrShowNotFound.
func (c *ContentClient) GetShow(ctx context.Context, showID string) (domain.Show, error) {
	c.mu.Lock()
	if entry, ok := c.cache[showID]; ok && time.Now().Before(entry.expires) {
		c.mu.Unlock()
		return entry.show, nil
	}
	c.mu.Unlock()

	show, err := c.fetchShow(ctx, showID)
	if err != nil {
		return domain.Show{}, err
	}

	if c.ttl > 0 {
		c.mu.Lock()
		c.cache[showID] = cachedShow{show: show, expires: time.Now().Add(c.ttl)}
		c.mu.Unlock()
	}
	return show, nil
}

func (c *ContentClient) fetchShow(ctx context.Context, showID string) (domain.Show, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/shows/"+showID, nil)
	if err != nil {
		return domain.Show{}, fmt.Errorf("%w: %v", domain.ErrUpstream, err)
	}

	res, err := c.client.Do(req)
	if err != nil {
		c.logger.Error(ctx, "content directory unreachable", "error", err)
		return domain.Show{}, fmt.Errorf("%w: %v", domain.ErrUpstream, err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return domain.Show{}, domain.ErrShowNotFound
	}
	if res.StatusCode != http.StatusOK {
		return domain.Show{}, fmt.Errorf("%w: unexpected status %d", domain.ErrUpstream, res.StatusCode)
	}

	var body apiResponse[domain.Show]
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return domain.Show{}, fmt.Errorf("%w: %v", domain.ErrUpstream, err)
	}
	if body.Type != "success" {
		return domain.Show{}, domain.ErrShowNotFound
	}
	return body.Data, nil
}
