package tools

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"memex/graph"
)

const (
	defaultSearchLimit = 10
	defaultFilterLimit = 20
	defaultDepth       = 2
	maxLinksShown      = 20
	maxTraversalShown  = 10
)

func (e *Executor) search(ctx context.Context, args map[string]any) (string, bool) {
	query := stringArg(args, "query", "")
	limit := intArg(args, "limit", defaultSearchLimit)

	nodes, err := e.graph.Search(ctx, query, limit)
	if err != nil {
		return failure("Search failed", err, false), false
	}
	if len(nodes) == 0 {
		return fmt.Sprintf("No results for '%s'", query), true
	}

	lines := []string{fmt.Sprintf("Found %d results:", len(nodes))}
	for _, n := range nodes {
		lines = append(lines, fmt.Sprintf("  [%s] %s (id: %s)", n.Type, n.DisplayName(), n.ID))
	}
	return strings.Join(lines, "\n"), true
}

func (e *Executor) getNode(ctx context.Context, args map[string]any) (string, bool) {
	id := stringArg(args, "id", "")
	if id == "" {
		return "Error: id is required", false
	}

	n, err := e.graph.GetNode(ctx, id)
	if err != nil {
		if isStatus(err) {
			return "Node not found: " + id, false
		}
		return "Error: " + describe(err), false
	}

	lines := []string{"Node: " + id, "  Type: " + n.Type}
	for _, k := range sortedKeys(n.Meta) {
		if v, ok := scalar(n.Meta[k]); ok {
			lines = append(lines, fmt.Sprintf("  %s: %s", k, v))
		}
	}
	return strings.Join(lines, "\n"), true
}

func (e *Executor) getLinks(ctx context.Context, args map[string]any) (string, bool) {
	id := stringArg(args, "id", "")
	if id == "" {
		return "Error: id is required", false
	}

	links, err := e.graph.GetLinks(ctx, id)
	if err != nil {
		if isStatus(err) {
			return "No links for: " + id, false
		}
		return "Error: " + describe(err), false
	}

	type linkKey struct{ source, target, kind string }
	seen := make(map[linkKey]bool, len(links))
	unique := make([]graph.Link, 0, len(links))
	for _, l := range links {
		k := linkKey{l.Source, l.Target, l.Type}
		if seen[k] {
			continue
		}
		seen[k] = true
		unique = append(unique, l)
	}

	if len(unique) == 0 {
		return "No links for " + id, true
	}

	lines := []string{fmt.Sprintf("Links for %s (%d):", id, len(unique))}
	for _, l := range unique[:min(len(unique), maxLinksShown)] {
		if l.Source == id {
			lines = append(lines, fmt.Sprintf("  --[%s]--> %s", l.Type, l.Target))
		} else {
			lines = append(lines, fmt.Sprintf("  <--[%s]-- %s", l.Type, l.Source))
		}
	}
	if len(unique) > maxLinksShown {
		lines = append(lines, fmt.Sprintf("  ... and %d more", len(unique)-maxLinksShown))
	}
	return strings.Join(lines, "\n"), true
}

func (e *Executor) traverse(ctx context.Context, args map[string]any) (string, bool) {
	start := stringArg(args, "start", "")
	if start == "" {
		return "Error: start is required", false
	}
	depth := intArg(args, "depth", defaultDepth)

	t, err := e.graph.Traverse(ctx, start, depth)
	if err != nil {
		if isStatus(err) {
			return "Traverse failed from: " + start, false
		}
		return "Error: " + describe(err), false
	}
	if len(t.Nodes) == 0 {
		return "No nodes from " + start, true
	}

	lines := []string{fmt.Sprintf("Traversal from %s: %d nodes, %d edges", start, len(t.Nodes), len(t.Edges))}
	for _, n := range t.Nodes[:min(len(t.Nodes), maxTraversalShown)] {
		lines = append(lines, fmt.Sprintf("  [%s] %s", n.Type, n.DisplayName()))
	}
	if len(t.Nodes) > maxTraversalShown {
		lines = append(lines, fmt.Sprintf("  ... and %d more", len(t.Nodes)-maxTraversalShown))
	}
	return strings.Join(lines, "\n"), true
}

func (e *Executor) filter(ctx context.Context, args map[string]any) (string, bool) {
	nodeType := stringArg(args, "type", "")
	if nodeType == "" {
		return "Error: type is required", false
	}
	limit := intArg(args, "limit", defaultFilterLimit)

	nodes, err := e.graph.Filter(ctx, nodeType, limit)
	if err != nil {
		if isStatus(err) {
			return "Filter failed for type: " + nodeType, false
		}
		return "Error: " + describe(err), false
	}
	if len(nodes) == 0 {
		return fmt.Sprintf("No %s nodes found", nodeType), true
	}

	lines := []string{fmt.Sprintf("%s nodes (%d):", nodeType, len(nodes))}
	for _, n := range nodes {
		lines = append(lines, "  "+n.ID)
	}
	return strings.Join(lines, "\n"), true
}

func (e *Executor) createNode(ctx context.Context, args map[string]any) (string, bool) {
	nodeType := stringArg(args, "type", "Note")
	content := stringArg(args, "content", "")
	title := stringArg(args, "title", "")

	req := graph.CreateNodeRequest{
		ID:   NodeID(nodeType, content, title, strconv.FormatInt(e.now().UnixNano(), 10)),
		Type: nodeType,
		Meta: map[string]any{"content": content},
	}
	if title != "" {
		req.Meta["title"] = title
	}

	id, err := e.graph.CreateNode(ctx, req)
	if err != nil {
		return failure("Create failed", err, true), false
	}
	return fmt.Sprintf("Created %s node: %s", nodeType, id), true
}

func (e *Executor) ingest(ctx context.Context, args map[string]any) (string, bool) {
	content := stringArg(args, "content", "")
	if content == "" {
		return "Error: content is required", false
	}
	format := stringArg(args, "format", "text")

	id, err := e.graph.Ingest(ctx, content, format)
	if err != nil {
		return failure("Ingest failed", err, true), false
	}
	return "Ingested as " + id, true
}

func (e *Executor) updateNode(ctx context.Context, args map[string]any) (string, bool) {
	id := stringArg(args, "id", "")
	if id == "" {
		return "Error: id is required", false
	}
	meta := mapArg(args, "meta")
	if meta == nil {
		meta = map[string]any{}
	}

	if err := e.graph.UpdateNode(ctx, id, meta); err != nil {
		return failure("Update failed", err, true), false
	}
	return "Updated node: " + id, true
}

func (e *Executor) createLink(ctx context.Context, args map[string]any) (string, bool) {
	source := stringArg(args, "source", "")
	target := stringArg(args, "target", "")
	linkType := stringArg(args, "type", "related_to")
	if source == "" || target == "" {
		return "Error: source and target are required", false
	}

	if err := e.graph.CreateLink(ctx, source, target, linkType); err != nil {
		return failure("Link failed", err, true), false
	}
	return fmt.Sprintf("Created link: %s --[%s]--> %s", source, linkType, target), true
}

// NodeID derives a short node id: the lower-cased type, a colon, and the
// first 8 hex digits of sha256(content + title + salt).
func NodeID(nodeType, content, title, salt string) string {
	sum := sha256.Sum256([]byte(content + title + salt))
	return strings.ToLower(nodeType) + ":" + hex.EncodeToString(sum[:])[:8]
}

func failure(prefix string, err error, withBody bool) string {
	var statusErr *graph.StatusError
	if errors.As(err, &statusErr) {
		if withBody && statusErr.Body != "" {
			return fmt.Sprintf("%s: %d - %s", prefix, statusErr.StatusCode, statusErr.Body)
		}
		return fmt.Sprintf("%s: %d", prefix, statusErr.StatusCode)
	}
	return fmt.Sprintf("%s: %s", prefix, describe(err))
}

func isStatus(err error) bool {
	var statusErr *graph.StatusError
	return errors.As(err, &statusErr)
}

// describe shortens transport errors for the model.
func describe(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "request timed out"
	case errors.Is(err, context.Canceled):
		return "request cancelled"
	default:
		return err.Error()
	}
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func scalar(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case bool:
		return strconv.FormatBool(t), true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case int:
		return strconv.Itoa(t), true
	case int64:
		return strconv.FormatInt(t, 10), true
	default:
		return "", false
	}
}
