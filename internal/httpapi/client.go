// Package httpapi is the client for the server's HTTP surface: health
// checks, log backfill, and the restart action.
package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/srvscope/srvscope/internal/errors"
	"github.com/srvscope/srvscope/internal/logger"
	"github.com/srvscope/srvscope/internal/logview"
	"github.com/srvscope/srvscope/internal/telemetry"
)

// DefaultTimeout bounds every request.
const DefaultTimeout = 10 * time.Second

// HealthInfo is the /api/health response. Metrics is present when the
// server inlines a snapshot for poll-based clients.
type HealthInfo struct {
	Status     string              `json:"status,omitempty"`
	BootID     string              `json:"boot_id,omitempty"`
	Components map[string]string   `json:"components,omitempty"`
	Metrics    *telemetry.Snapshot `json:"metrics,omitempty"`
}

type logsResponse struct {
	Logs []logview.Record `json:"logs"`
}

// Client talks to one telemetry server.
type Client struct {
	baseURL string
	http    *http.Client
	log     logger.Logger
}

// NewClient creates a client for the given base URL (scheme and host,
// no trailing slash required).
func NewClient(baseURL string) *Client {
	for len(baseURL) > 0 && baseURL[len(baseURL)-1] == '/' {
		baseURL = baseURL[:len(baseURL)-1]
	}
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: DefaultTimeout},
		log:     logger.NewEnvLogger("[http]"),
	}
}

// Health fetches /api/health and reports the round-trip time.
func (c *Client) Health(ctx context.Context) (*HealthInfo, time.Duration, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/health", nil)
	if err != nil {
		return nil, 0, errors.WrapWithCode(err, errors.ErrHTTP, "Failed to build health request", "")
	}
	req.Header.Set("Cache-Control", "no-store")

	start := time.Now()
	resp, err := c.http.Do(req)
	rtt := time.Since(start)
	if err != nil {
		return nil, rtt, errors.WrapWithCode(err, errors.ErrHTTP,
			"Health check failed",
			"Check the server is running and the URL is correct")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, resp.Body)
		return nil, rtt, errors.New(errors.ErrHTTP,
			fmt.Sprintf("Health check returned HTTP %d", resp.StatusCode),
			"Check the server logs")
	}

	var info HealthInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, rtt, errors.WrapWithCode(err, errors.ErrHTTP, "Malformed health response", "")
	}
	return &info, rtt, nil
}

// Logs fetches up to limit historical records matching level and grep.
func (c *Client) Logs(ctx context.Context, level, grep string, limit int) ([]logview.Record, error) {
	q := url.Values{}
	if level != "" {
		q.Set("level", level)
	}
	if grep != "" {
		q.Set("grep", grep)
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/api/logs?"+q.Encode(), nil)
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrHTTP, "Failed to build logs request", "")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrHTTP,
			"Log fetch failed",
			"Check the server is running and the URL is correct")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, resp.Body)
		return nil, errors.New(errors.ErrHTTP,
			fmt.Sprintf("Log fetch returned HTTP %d", resp.StatusCode), "")
	}

	var body logsResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrHTTP, "Malformed logs response", "")
	}
	return body.Logs, nil
}

// FetchLogs adapts Logs to the logview.Fetcher interface.
func (c *Client) FetchLogs(level, grep string, limit int) ([]logview.Record, error) {
	ctx, cancel := context.WithTimeout(context.Background(), DefaultTimeout)
	defer cancel()
	return c.Logs(ctx, level, grep, limit)
}

// Restart asks the server to restart. The confirmation header is
// required; without it the server rejects the request.
func (c *Client) Restart(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/restart", nil)
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrRestart, "Failed to build restart request", "")
	}
	req.Header.Set("X-Confirm-Restart", "yes")

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrRestart,
			"Restart request failed",
			"Check the server is reachable")
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return errors.New(errors.ErrRestart,
			fmt.Sprintf("Server rejected the restart (HTTP %d)", resp.StatusCode),
			"The server may disallow remote restarts")
	}
	return nil
}
