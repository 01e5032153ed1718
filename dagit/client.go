// Package dagit is an HTTP client for the dagit social-posting service.
package dagit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"memex/config"
)

const (
	DefaultTimeout  = 10 * time.Second
	DefaultFeedSize = 10
)

// Record is a JSON object returned by dagit (identity or post). Its fields
// are passed through to the model untouched.
type Record map[string]any

// DID returns the decentralized identifier of an identity record.
func (r Record) DID() string {
	s, _ := r["did"].(string)
	return s
}

type postRequest struct {
	Content string   `json:"content"`
	Refs    []string `json:"refs,omitempty"`
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
		timeout:    DefaultTimeout,
	}
}

func (c *Client) Whoami(ctx context.Context) (Record, error) {
	var r Record
	if err := c.do(ctx, http.MethodGet, "/api/whoami", nil, &r); err != nil {
		return nil, fmt.Errorf("whoami: %w", err)
	}
	return r, nil
}

// Post publishes content, optionally referencing earlier posts by CID.
func (c *Client) Post(ctx context.Context, content string, refs []string) (Record, error) {
	var r Record
	if err := c.do(ctx, http.MethodPost, "/api/posts", postRequest{Content: content, Refs: refs}, &r); err != nil {
		return nil, fmt.Errorf("post: %w", err)
	}
	return r, nil
}

// Feed returns the most recent posts, newest first as served.
func (c *Client) Feed(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = DefaultFeedSize
	}
	params := url.Values{}
	params.Set("limit", strconv.Itoa(limit))

	var raw json.RawMessage
	if err := c.do(ctx, http.MethodGet, "/api/posts?"+params.Encode(), nil, &raw); err != nil {
		return nil, fmt.Errorf("feed: %w", err)
	}

	var posts []Record
	if err := json.Unmarshal(raw, &posts); err == nil {
		return posts, nil
	}
	var wrapped struct {
		Posts []Record `json:"posts"`
	}
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return nil, fmt.Errorf("decoding feed: %w", err)
	}
	return wrapped.Posts, nil
}

func (c *Client) Read(ctx context.Context, cid string) (Record, error) {
	var r Record
	if err := c.do(ctx, http.MethodGet, "/api/posts/"+url.PathEscape(cid), nil, &r); err != nil {
		return nil, fmt.Errorf("read %s: %w", cid, err)
	}
	return r, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request: %w", err)
		}
		reader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	if config.DebugLog != nil {
		config.DebugLog.Debugf("[dagit] %s %s -> %d", method, path, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
