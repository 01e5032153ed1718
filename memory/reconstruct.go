package memory

import (
	"context"
	"encoding/base64"
	"fmt"
	"sort"
	"time"
	"unicode/utf8"

	"memex/config"
	"memex/graph"
	"memex/model"
)

const sourceType = "Source"

// Reconstructor rebuilds recent conversation turns from Source nodes.
type Reconstructor struct {
	graph *graph.Client
}

func NewReconstructor(client *graph.Client) *Reconstructor {
	return &Reconstructor{graph: client.WithTimeout(graph.ConversationTimeout)}
}

type record struct {
	id         string
	content    string
	ingestedAt string
	when       time.Time
}

// LoadRecent fetches up to limit Source nodes and returns the conversation
// turns among them as user/assistant message pairs, oldest first. Records
// that cannot be decoded or parsed are skipped.
func (r *Reconstructor) LoadRecent(ctx context.Context, limit int) ([]model.Message, error) {
	nodes, err := r.graph.Filter(ctx, sourceType, limit)
	if err != nil {
		return nil, fmt.Errorf("loading recent conversations: %w", err)
	}

	records := make([]record, 0, len(nodes))
	for _, n := range nodes {
		if format, _ := n.Meta["format"].(string); format != ConversationFormat {
			continue
		}
		content, ok := decodeContent(n.Content)
		if !ok {
			if config.DebugLog != nil {
				config.DebugLog.Debugf("[memory] skipping %s: undecodable content", n.ID)
			}
			continue
		}
		rec := record{id: n.ID, content: content}
		rec.ingestedAt, _ = n.Meta["ingested_at"].(string)
		rec.when, _ = time.Parse(time.RFC3339Nano, rec.ingestedAt)
		records = append(records, rec)
	}

	sort.SliceStable(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if !a.when.IsZero() && !b.when.IsZero() {
			return a.when.Before(b.when)
		}
		return a.ingestedAt < b.ingestedAt
	})

	messages := make([]model.Message, 0, 2*len(records))
	for _, rec := range records {
		userText, assistantText, ok := ParseTurn(rec.content)
		if !ok {
			continue
		}
		messages = append(messages,
			model.Message{Role: model.RoleUser, Content: userText, Timestamp: rec.when},
			model.Message{Role: model.RoleAssistant, Content: assistantText, Timestamp: rec.when},
		)
	}

	if config.DebugLog != nil {
		config.DebugLog.Infof("[memory] reconstructed %d turns from %d sources", len(messages)/2, len(nodes))
	}
	return messages, nil
}

// decodeContent base64-decodes a node payload, rejecting invalid or
// non-UTF-8 data.
func decodeContent(raw string) (string, bool) {
	if raw == "" {
		return "", false
	}
	data, err := base64.StdEncoding.DecodeString(raw)
	if err != nil || len(data) == 0 || !utf8.Valid(data) {
		return "", false
	}
	return string(data), true
}

// Ingester writes finished turns to the graph as conversation sources.
type Ingester struct {
	graph *graph.Client
}

func NewIngester(client *graph.Client) *Ingester {
	return &Ingester{graph: client.WithTimeout(graph.ConversationTimeout)}
}

// IngestTurn stores the formatted turn and returns its source id.
func (i *Ingester) IngestTurn(ctx context.Context, userText, assistantText string, toolNames []string) (string, error) {
	id, err := i.graph.Ingest(ctx, FormatTurn(userText, assistantText, toolNames), ConversationFormat)
	if err != nil {
		return "", fmt.Errorf("ingesting turn: %w", err)
	}
	return id, nil
}
