package probe

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/carverauto/healthchecker/pkg/logger"
)

const (
	DefaultLivenessURL     = "http://www.test.com"
	defaultLivenessTimeout = 10 * time.Second
)

// HTTPLivenessChecker considers the checker connected when a GET to URL
// answers with a non-error status.
type HTTPLivenessChecker struct {
	url    string
	client *http.Client
	logger logger.Logger
}

func NewHTTPLivenessChecker(url string, timeout time.Duration, log logger.Logger) *HTTPLivenessChecker {
	if url == "" {
		url = DefaultLivenessURL
	}

	if timeout <= 0 {
		timeout = defaultLivenessTimeout
	}

	return &HTTPLivenessChecker{
		url:    url,
		client: &http.Client{Timeout: timeout},
		logger: log,
	}
}

func (c *HTTPLivenessChecker) Connected(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, http.NoBody)
	if err != nil {
		c.logger.Error().Err(err).Str("url", c.url).Msg("invalid liveness url")
		return false
	}

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Debug().Err(err).Str("url", c.url).Msg("liveness request failed")
		return false
	}
	defer func() { _ = resp.Body.Close() }()

	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	return resp.StatusCode < http.StatusBadRequest
}

// AlwaysConnected disables the liveness pre-check.
type AlwaysConnected struct{}

func (AlwaysConnected) Connected(context.Context) bool { return true }
