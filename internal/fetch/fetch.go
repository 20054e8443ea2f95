// Package fetch retrieves raw decision pages from the court portal. The
// pipeline consumes it through the Fetcher interface so tests can supply
// canned content.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"lexpipe/internal/config"
	"lexpipe/internal/services"
)

// maxBodyBytes caps a single decision page. Portal pages are far smaller;
// anything larger indicates a redirect loop or a misbehaving endpoint.
const maxBodyBytes = 8 << 20

// Fetcher retrieves the raw HTML of one decision page.
type Fetcher interface {
	FetchPage(ctx context.Context, url string) (string, error)
}

// HTTPFetcher is the production Fetcher: a shared rate limiter paces
// requests against the portal, and each request carries the configured
// user agent.
type HTTPFetcher struct {
	client    *http.Client
	limiter   *rate.Limiter
	userAgent string
}

// NewHTTPFetcher builds a fetcher from configuration.
func NewHTTPFetcher(cfg *config.Config) *HTTPFetcher {
	perMinute := cfg.Fetch.RequestsPerMinute
	if perMinute <= 0 {
		perMinute = 30
	}
	timeout := time.Duration(cfg.Fetch.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPFetcher{
		client:    &http.Client{Timeout: timeout},
		limiter:   rate.NewLimiter(rate.Limit(float64(perMinute)/60.0), 1),
		userAgent: cfg.Fetch.UserAgent,
	}
}

// FetchPage downloads one page, honoring the shared rate limit. Transport
// failures and server errors are transient; a 404 and an empty body both
// mean the decision has no retrievable content.
func (f *HTTPFetcher) FetchPage(ctx context.Context, url string) (string, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return "", services.Wrap(services.ErrNoContent, "fetch", "request", "no source url", nil)
	}

	if err := f.limiter.Wait(ctx); err != nil {
		return "", services.Wrap(services.ErrTransient, "fetch", "rate limit", "wait interrupted", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", services.Wrap(services.ErrValidation, "fetch", "request", "build request", err)
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return "", services.Wrap(services.ErrTransient, "fetch", "request", "http get", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return "", services.Wrap(services.ErrNoContent, "fetch", "response", "page not found", nil)
	case resp.StatusCode >= 500:
		return "", services.Wrap(services.ErrTransient, "fetch", "response", fmt.Sprintf("server returned %d", resp.StatusCode), nil)
	case resp.StatusCode != http.StatusOK:
		return "", services.Wrap(services.ErrValidation, "fetch", "response", fmt.Sprintf("unexpected status %d", resp.StatusCode), nil)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", services.Wrap(services.ErrTransient, "fetch", "response", "read body", err)
	}
	content := string(body)
	if strings.TrimSpace(content) == "" {
		return "", services.Wrap(services.ErrNoContent, "fetch", "response", "empty body", nil)
	}
	return content, nil
}
