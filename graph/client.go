// Package graph is an HTTP client for the memex knowledge-graph server.
package graph

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
	// DefaultTimeout bounds every tool request.
	DefaultTimeout = 10 * time.Second

	// ConversationTimeout bounds conversation ingestion and memory loading.
	ConversationTimeout = 5 * time.Second

	maxErrorBody = 512
)

// Client talks to the memex REST API. The base URL is resolved on every
// request so the server may become reachable after the client is built.
type Client struct {
	baseURL    func() string
	httpClient *http.Client
	timeout    time.Duration
}

// NewClient creates a client. baseURL is called once per request; a nil
// baseURL resolves to config.DefaultMemexURL.
func NewClient(baseURL func() string) *Client {
	if baseURL == nil {
		baseURL = func() string { return config.DefaultMemexURL }
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{},
		timeout:    DefaultTimeout,
	}
}

// WithTimeout returns a copy of the client using timeout per request.
func (c *Client) WithTimeout(timeout time.Duration) *Client {
	clone := *c
	clone.timeout = timeout
	return &clone
}

// BaseURL returns the URL the next request will use.
func (c *Client) BaseURL() string {
	return strings.TrimRight(c.baseURL(), "/")
}

// Search runs a full-text query.
func (c *Client) Search(ctx context.Context, query string, limit int) ([]Node, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("limit", strconv.Itoa(limit))

	var resp nodesResponse
	if err := c.do(ctx, http.MethodGet, "/api/query/search?"+params.Encode(), nil, &resp); err != nil {
		return nil, fmt.Errorf("search %q: %w", query, err)
	}
	return resp.Nodes, nil
}

func (c *Client) GetNode(ctx context.Context, id string) (*Node, error) {
	var node Node
	if err := c.do(ctx, http.MethodGet, "/api/nodes/"+url.PathEscape(id), nil, &node); err != nil {
		return nil, fmt.Errorf("get node %s: %w", id, err)
	}
	return &node, nil
}

// GetLinks returns the links touching id. The server may answer with a bare
// array or with {"links": [...]}.
func (c *Client) GetLinks(ctx context.Context, id string) ([]Link, error) {
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodGet, "/api/nodes/"+url.PathEscape(id)+"/links", nil, &raw); err != nil {
		return nil, fmt.Errorf("get links %s: %w", id, err)
	}

	var links []Link
	if err := json.Unmarshal(raw, &links); err == nil {
		return links, nil
	}
	var wrapped linksResponse
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return nil, fmt.Errorf("decoding links for %s: %w", id, err)
	}
	return wrapped.Links, nil
}

func (c *Client) Traverse(ctx context.Context, start string, depth int) (*Traversal, error) {
	params := url.Values{}
	params.Set("start", start)
	params.Set("depth", strconv.Itoa(depth))

	var t Traversal
	if err := c.do(ctx, http.MethodGet, "/api/query/traverse?"+params.Encode(), nil, &t); err != nil {
		return nil, fmt.Errorf("traverse from %s: %w", start, err)
	}
	return &t, nil
}

// Filter lists nodes of one type. Both {"nodes": [...]} and bare arrays are
// accepted.
func (c *Client) Filter(ctx context.Context, nodeType string, limit int) ([]Node, error) {
	params := url.Values{}
	params.Set("type", nodeType)
	params.Set("limit", strconv.Itoa(limit))

	var raw json.RawMessage
	if err := c.do(ctx, http.MethodGet, "/api/query/filter?"+params.Encode(), nil, &raw); err != nil {
		return nil, fmt.Errorf("filter %s: %w", nodeType, err)
	}

	var resp nodesResponse
	if err := json.Unmarshal(raw, &resp); err == nil {
		return resp.Nodes, nil
	}
	var nodes NodeList
	if err := json.Unmarshal(raw, &nodes); err != nil {
		return nil, fmt.Errorf("decoding %s nodes: %w", nodeType, err)
	}
	return nodes, nil
}

// CreateNode stores a node and returns the id assigned by the server, or the
// requested id when the server does not echo one.
func (c *Client) CreateNode(ctx context.Context, req CreateNodeRequest) (string, error) {
	var resp createNodeResponse
	if err := c.do(ctx, http.MethodPost, "/api/nodes", req, &resp); err != nil {
		return "", fmt.Errorf("create node: %w", err)
	}
	switch {
	case resp.ID != "":
		return resp.ID, nil
	case resp.LegacyID != "":
		return resp.LegacyID, nil
	default:
		return req.ID, nil
	}
}

func (c *Client) UpdateNode(ctx context.Context, id string, meta map[string]any) error {
	if err := c.do(ctx, http.MethodPatch, "/api/nodes/"+url.PathEscape(id), updateNodeRequest{Meta: meta}, nil); err != nil {
		return fmt.Errorf("update node %s: %w", id, err)
	}
	return nil
}

func (c *Client) CreateLink(ctx context.Context, source, target, linkType string) error {
	body := createLinkRequest{Source: source, Target: target, Type: linkType}
	if err := c.do(ctx, http.MethodPost, "/api/links", body, nil); err != nil {
		return fmt.Errorf("create link: %w", err)
	}
	return nil
}

// Ingest stores raw content as a content-addressed Source node.
func (c *Client) Ingest(ctx context.Context, content, format string) (string, error) {
	var resp ingestResponse
	if err := c.do(ctx, http.MethodPost, "/api/ingest", ingestRequest{Content: content, Format: format}, &resp); err != nil {
		return "", fmt.Errorf("ingest: %w", err)
	}
	if resp.SourceID == "" {
		return "unknown", nil
	}
	return resp.SourceID, nil
}

// do sends one JSON request bounded by the client timeout. out may be nil.
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

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL()+path, reader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(data))}
	}

	if config.DebugLog != nil {
		config.DebugLog.Debugf("[graph] %s %s -> %d", method, path, resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
