// Package upstream is the HTTP client for the Hitman API.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"opspanel/internal/domain"

	log "github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
)

const (
	tokensPath     = "/v1/tokens"
	requestsPath   = "/v1/requests"
	pspMetricsSubj = "projectx.v3.metrics.psp"

	maxErrorBody = 1 << 20
)

// Config holds connection settings for the upstream API.
type Config struct {
	BaseURL        string
	Timeout        time.Duration
	AcceptLanguage string
}

// Client implements domain.Upstream.
type Client struct {
	baseURL        string
	timeout        time.Duration
	acceptLanguage string
	transport      *unauthorizedTransport
}

var _ domain.Upstream = (*Client)(nil)

// New creates a Client for cfg.
func New(cfg Config) *Client {
	return &Client{
		baseURL:        strings.TrimRight(cfg.BaseURL, "/"),
		timeout:        cfg.Timeout,
		acceptLanguage: cfg.AcceptLanguage,
		transport:      &unauthorizedTransport{base: http.DefaultTransport},
	}
}

// OnUnauthorized sets the hook run for every 401 response. The hook receives
// the request context, so it can find the session that issued the call.
func (c *Client) OnUnauthorized(fn func(ctx context.Context)) {
	c.transport.setHook(fn)
}

// VerifyToken exchanges a raw access token for the identity behind it.
func (c *Client) VerifyToken(ctx context.Context, token string) (*domain.Identity, error) {
	var out domain.Identity
	body := map[string]string{"token": token}
	if err := c.post(ctx, c.httpClient(""), tokensPath, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// PspMetrics fetches flat PSP metric records. An empty vendor list is sent as
// [] and means every vendor.
func (c *Client) PspMetrics(ctx context.Context, bearer string, q domain.MetricsQuery) ([]domain.MetricRecord, error) {
	var out domain.MetricsResponse
	path := requestsPath + "?subject=" + pspMetricsSubj
	if err := c.post(ctx, c.httpClient(bearer), path, q, &out); err != nil {
		return nil, err
	}
	if out.Elements == nil {
		return []domain.MetricRecord{}, nil
	}
	return out.Elements, nil
}

func (c *Client) httpClient(bearer string) *http.Client {
	var rt http.RoundTripper = c.transport
	if bearer != "" {
		rt = &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: bearer, TokenType: "Bearer"}),
			Base:   c.transport,
		}
	}
	return &http.Client{Transport: rt, Timeout: c.timeout}
}

func (c *Client) post(ctx context.Context, hc *http.Client, path string, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.acceptLanguage != "" {
		req.Header.Set("Accept-Language", c.acceptLanguage)
	}

	resp, err := hc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		apiErr := decodeError(resp.StatusCode, raw)
		log.WithFields(log.Fields{"path": path, "status": resp.StatusCode}).WithError(apiErr).Debug("upstream error")
		return apiErr
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

// unauthorizedTransport runs a hook on every 401 before handing the response
// back to the caller.
type unauthorizedTransport struct {
	base http.RoundTripper

	mu   sync.RWMutex
	hook func(context.Context)
}

func (t *unauthorizedTransport) setHook(fn func(context.Context)) {
	t.mu.Lock()
	t.hook = fn
	t.mu.Unlock()
}

func (t *unauthorizedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.base.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusUnauthorized {
		t.mu.RLock()
		hook := t.hook
		t.mu.RUnlock()
		if hook != nil {
			hook(req.Context())
		}
	}
	return resp, nil
}

// errorWithStatus makes a transport 401 match domain.ErrUnauthorized whatever
// httpStatusCode the body reports.
func errorWithStatus(status int, err error) error {
	if status == http.StatusUnauthorized {
		return fmt.Errorf("%w: %w", domain.ErrUnauthorized, err)
	}
	return err
}
