package tools

import (
	"context"
	"encoding/json"

	"memex/dagit"
)

func (e *Executor) whoami(ctx context.Context, args map[string]any) (string, bool) {
	me, err := e.dagit.Whoami(ctx)
	if err != nil {
		return "Error: " + describe(err), false
	}
	return indentJSON(me)
}

func (e *Executor) post(ctx context.Context, args map[string]any) (string, bool) {
	content := stringArg(args, "content", "")
	if content == "" {
		return "Error: content is required", false
	}

	p, err := e.dagit.Post(ctx, content, stringsArg(args, "refs"))
	if err != nil {
		return "Error: " + describe(err), false
	}
	return indentJSON(p)
}

func (e *Executor) read(ctx context.Context, args map[string]any) (string, bool) {
	if cid := stringArg(args, "cid", ""); cid != "" {
		p, err := e.dagit.Read(ctx, cid)
		if err != nil {
			return "Error: " + describe(err), false
		}
		return indentJSON(p)
	}

	posts, err := e.dagit.Feed(ctx, intArg(args, "limit", dagit.DefaultFeedSize))
	if err != nil {
		return "Error: " + describe(err), false
	}
	if posts == nil {
		posts = []dagit.Record{}
	}
	return indentJSON(posts)
}

func indentJSON(v any) (string, bool) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "Error: " + err.Error(), false
	}
	return string(data), true
}
