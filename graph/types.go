package graph

import (
	"encoding/json"
	"fmt"
)

// Node is a knowledge-graph node as served by the memex API. Content is the
// raw base64 text of the stored bytes; callers decode it when they need it.
type Node struct {
	ID      string         `json:"ID"`
	Type    string         `json:"Type"`
	Content string         `json:"Content,omitempty"`
	Meta    map[string]any `json:"Meta,omitempty"`
}

// DisplayName prefers the name or title metadata, falling back to the id.
func (n Node) DisplayName() string {
	for _, key := range []string{"name", "title"} {
		if s, ok := n.Meta[key].(string); ok && s != "" {
			return s
		}
	}
	return n.ID
}

// NodeList decodes a node array whose elements are either node objects or
// bare id strings.
type NodeList []Node

func (l *NodeList) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	nodes := make([]Node, 0, len(raw))
	for _, item := range raw {
		var id string
		if err := json.Unmarshal(item, &id); err == nil {
			nodes = append(nodes, Node{ID: id})
			continue
		}
		var n Node
		if err := json.Unmarshal(item, &n); err != nil {
			return fmt.Errorf("decoding node: %w", err)
		}
		nodes = append(nodes, n)
	}
	*l = nodes
	return nil
}

type Link struct {
	Source string         `json:"Source"`
	Target string         `json:"Target"`
	Type   string         `json:"Type"`
	Meta   map[string]any `json:"Meta,omitempty"`
}

// Traversal is the subgraph reachable from a start node.
type Traversal struct {
	Nodes NodeList `json:"nodes"`
	Edges []Link   `json:"edges"`
}

type nodesResponse struct {
	Nodes NodeList `json:"nodes"`
}

type linksResponse struct {
	Links []Link `json:"links"`
}

type CreateNodeRequest struct {
	ID   string         `json:"id"`
	Type string         `json:"type"`
	Meta map[string]any `json:"meta"`
}

type createNodeResponse struct {
	ID       string `json:"id"`
	LegacyID string `json:"ID"`
}

type updateNodeRequest struct {
	Meta map[string]any `json:"meta"`
}

type createLinkRequest struct {
	Source string `json:"source"`
	Target string `json:"target"`
	Type   string `json:"type"`
}

type ingestRequest struct {
	Content string `json:"content"`
	Format  string `json:"format"`
}

type ingestResponse struct {
	SourceID string `json:"source_id"`
}

// StatusError reports a non-2xx response from the memex server.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("status %d", e.StatusCode)
	}
	return fmt.Sprintf("status %d: %s", e.StatusCode, e.Body)
}
