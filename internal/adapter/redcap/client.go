// Package redcap talks to a REDCap instance's API endpoint. Only the
// metadata export (data dictionary) is used: field names and their
// annotations feed the extraction stage.
package redcap

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultTimeout = 30 * time.Second

// Config carries the connection settings for one REDCap project.
type Config struct {
	URL      string
	Token    string
	Insecure bool // skip TLS certificate verification
	Timeout  time.Duration
}

// Field is one data-dictionary record. The export carries many more columns;
// only the two driving extraction are decoded.
type Field struct {
	Name       string `json:"field_name"`
	Annotation string `json:"field_annotation"`
}

// Client fetches project metadata over the REDCap API.
type Client struct {
	url        string
	token      string
	httpClient *http.Client
	log        *slog.Logger
}

// New creates a Client. With cfg.Insecure set, certificate verification is
// disabled (some institutional REDCap hosts serve self-signed certificates);
// a warning is logged so the choice is visible in the run output.
func New(cfg Config, logger *slog.Logger) *Client {
	log := logger.With("adapter", "redcap")

	transport := http.DefaultTransport
	if cfg.Insecure {
		t := http.DefaultTransport.(*http.Transport).Clone()
		t.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
		transport = t
		log.Warn("TLS certificate verification disabled")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &Client{
		url:        cfg.URL,
		token:      cfg.Token,
		httpClient: &http.Client{Timeout: timeout, Transport: transport},
		log:        log,
	}
}

// Metadata fetches the project's data dictionary. Any failure here is fatal
// to a run: an API error envelope, an unexpected status, or an undecodable
// body all mean there is nothing to extract from.
func (c *Client) Metadata(ctx context.Context) ([]Field, error) {
	if c.url == "" || c.token == "" {
		return nil, fmt.Errorf("redcap: api url and token are required")
	}

	form := url.Values{}
	form.Set("token", c.token)
	form.Set("content", "metadata")
	form.Set("format", "json")

	c.log.DebugContext(ctx, "redcap metadata request", slog.String("url", c.url))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("redcap: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.ErrorContext(ctx, "redcap request failed", slog.String("error", err.Error()))
		return nil, fmt.Errorf("redcap: request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("redcap: read body: %w", err)
	}

	// REDCap reports problems in-band; the envelope carries a better message
	// than the status line does.
	if msg, ok := errorEnvelope(body); ok {
		return nil, fmt.Errorf("redcap: api error: %s", msg)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("redcap: unexpected status %d", resp.StatusCode)
	}

	var fields []Field
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, fmt.Errorf("redcap: decode json: %w", err)
	}

	c.log.DebugContext(ctx, "redcap metadata response",
		slog.Int("status", resp.StatusCode),
		slog.Int("fields", len(fields)),
	)

	return fields, nil
}

// errorEnvelope reports whether body is REDCap's {"error": "..."} response.
// A successful metadata export is a JSON array, so an object body is already
// suspect.
func errorEnvelope(body []byte) (string, bool) {
	trimmed := strings.TrimSpace(string(body))
	if !strings.HasPrefix(trimmed, "{") {
		return "", false
	}
	var env struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal([]byte(trimmed), &env); err != nil || env.Error == "" {
		return "", false
	}
	return env.Error, true
}
