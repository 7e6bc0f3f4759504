// Package feed holds the HTTP plumbing shared by the provider adapters.
package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/couchcryptid/disaster-feed-service/internal/domain"
)

// DefaultTimeout bounds a single provider request.
const DefaultTimeout = 10 * time.Second

// maxErrorBody caps how much of a non-200 body is echoed into the error.
const maxErrorBody = 512

// NewHTTPClient returns a client with bounded dial, TLS and overall timeouts.
func NewHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	tr := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		DialContext:         (&net.Dialer{Timeout: 5 * time.Second, KeepAlive: 60 * time.Second}).DialContext,
		MaxIdleConns:        20,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 5 * time.Second,
	}
	return &http.Client{Timeout: timeout, Transport: tr}
}

// GetJSON issues a GET to fullURL and decodes a 200 response into out.
// Every failure is returned as a *domain.FetchError for provider.
func GetJSON(ctx context.Context, client *http.Client, provider, fullURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return &domain.FetchError{Provider: provider, Op: "request", Err: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return &domain.FetchError{Provider: provider, Op: "request", Err: classify(err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &domain.FetchError{
			Provider: provider,
			Op:       "status",
			Err:      fmt.Errorf("status %d: %s", resp.StatusCode, body),
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &domain.FetchError{Provider: provider, Op: "decode", Err: classify(err)}
	}
	return nil
}

// classify tags deadline failures with domain.ErrFetchTimeout so callers can
// tell a hung provider from a refused connection.
func classify(err error) error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return fmt.Errorf("%w: %w", domain.ErrFetchTimeout, err)
	}
	return err
}
