package passbolt

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

const defaultTimeout = 30 * time.Second

// maxBodySize caps how much of a response is read. A healthcheck report is a
// few kilobytes; anything near the cap is not one.
const maxBodySize = 1 << 20

// Client is the passbolt SDK entry point.
type Client struct {
	baseURL *url.URL
	apiKey  string
	http    *http.Client
}

// New creates a Client for the instance at baseURL. No connection is made
// until the first call.
func New(baseURL string, opts ...Option) (*Client, error) {
	cfg := &clientConfig{timeout: defaultTimeout}
	for _, o := range opts {
		o.apply(cfg)
	}

	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("passbolt: parse base url: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("passbolt: base url %q must be http(s) with a host", baseURL)
	}

	httpClient := cfg.httpClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.timeout}
	}

	return &Client{baseURL: u, apiKey: cfg.apiKey, http: httpClient}, nil
}

// envelope is the legacy API response shape.
type envelope struct {
	Status     string          `json:"status"`
	Servertime int64           `json:"servertime"`
	Body       json.RawMessage `json:"body"`
}

// Healthcheck runs the server side healthchecks and returns the report.
func (c *Client) Healthcheck(ctx context.Context) (Report, error) {
	var report Report
	if err := c.getJSON(ctx, "/healthcheck.json", &report); err != nil {
		return Report{}, err
	}
	return report, nil
}

// Status probes the lightweight liveness endpoint.
func (c *Client) Status(ctx context.Context) error {
	resp, err := c.get(ctx, "/healthcheck/status.json")
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var body string
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodySize)).Decode(&body); err != nil {
		return fmt.Errorf("passbolt: status: decode response: %w", err)
	}
	if body != "OK" {
		return fmt.Errorf("passbolt: status: server answered %q", body)
	}
	return nil
}

// getJSON performs a GET and decodes the enveloped body into out.
func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	resp, err := c.get(ctx, path)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodySize)).Decode(&env); err != nil {
		return fmt.Errorf("passbolt: %s: decode response: %w", path, err)
	}
	if env.Status != "success" {
		return fmt.Errorf("passbolt: %s: server reported status %q", path, env.Status)
	}
	if err := json.Unmarshal(env.Body, out); err != nil {
		return fmt.Errorf("passbolt: %s: decode body: %w", path, err)
	}
	return nil
}

func (c *Client) get(ctx context.Context, path string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL.JoinPath(path).String(), nil)
	if err != nil {
		return nil, fmt.Errorf("passbolt: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("passbolt: %s: %w", path, err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		resp.Body.Close()
		return nil, ErrUnauthorized
	case resp.StatusCode != http.StatusOK:
		resp.Body.Close()
		return nil, fmt.Errorf("passbolt: %s: unexpected status %d", path, resp.StatusCode)
	}
	return resp, nil
}
