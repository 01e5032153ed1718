package tools

import (
	mcptypes "github.com/mark3labs/mcp-go/mcp"
)

const (
	memexPrefix = "memex_"
	dagitPrefix = "dagit_"
)

func memexTools() []mcptypes.Tool {
	return []mcptypes.Tool{
		mcptypes.NewTool("memex_search",
			mcptypes.WithDescription("Full-text search across all nodes in the knowledge graph"),
			mcptypes.WithString("query", mcptypes.Required(), mcptypes.Description("Search terms")),
			mcptypes.WithNumber("limit", mcptypes.Description("Max results (default 10)")),
		),
		mcptypes.NewTool("memex_get_node",
			mcptypes.WithDescription("Get full details of a specific node by ID"),
			mcptypes.WithString("id", mcptypes.Required(), mcptypes.Description("Node ID (e.g. person:001)")),
		),
		mcptypes.NewTool("memex_get_links",
			mcptypes.WithDescription("Get all relationships for a node"),
			mcptypes.WithString("id", mcptypes.Required(), mcptypes.Description("Node ID")),
		),
		mcptypes.NewTool("memex_traverse",
			mcptypes.WithDescription("Traverse the graph outward from a starting node"),
			mcptypes.WithString("start", mcptypes.Required(), mcptypes.Description("Starting node ID")),
			mcptypes.WithNumber("depth", mcptypes.Description("Hops to follow (default 2)")),
		),
		mcptypes.NewTool("memex_filter",
			mcptypes.WithDescription("List nodes of a given type"),
			mcptypes.WithString("type", mcptypes.Required(), mcptypes.Description("Node type (Person, Document, etc.)")),
			mcptypes.WithNumber("limit", mcptypes.Description("Max results (default 20)")),
		),
		mcptypes.NewTool("memex_create_node",
			mcptypes.WithDescription("Create a new node in the knowledge graph"),
			mcptypes.WithString("type", mcptypes.Required(), mcptypes.Description("Node type (Note, Document, Person, etc.)")),
			mcptypes.WithString("content", mcptypes.Required(), mcptypes.Description("Main content or description")),
			mcptypes.WithString("title", mcptypes.Description("Title or name for the node")),
		),
		mcptypes.NewTool("memex_ingest",
			mcptypes.WithDescription("Ingest raw content as a content-addressed Source node. "+
				"Use this for articles, documents or any longer text the user wants kept. "+
				"Identical content is stored once."),
			mcptypes.WithString("content", mcptypes.Required(), mcptypes.Description("The raw content to ingest")),
			mcptypes.WithString("format", mcptypes.Description("Format hint (text, json, markdown, etc.)")),
		),
		mcptypes.NewTool("memex_update_node",
			mcptypes.WithDescription("Update an existing node's metadata"),
			mcptypes.WithString("id", mcptypes.Required(), mcptypes.Description("Node ID to update")),
			mcptypes.WithObject("meta", mcptypes.Required(), mcptypes.Description("Metadata fields to update")),
		),
		mcptypes.NewTool("memex_create_link",
			mcptypes.WithDescription("Create a relationship between two nodes in the knowledge graph"),
			mcptypes.WithString("source", mcptypes.Required(), mcptypes.Description("Source node ID")),
			mcptypes.WithString("target", mcptypes.Required(), mcptypes.Description("Target node ID")),
			mcptypes.WithString("type", mcptypes.Required(), mcptypes.Description("Relationship type (e.g. related_to, mentions, authored_by)")),
		),
	}
}

func dagitTools() []mcptypes.Tool {
	return []mcptypes.Tool{
		mcptypes.NewTool("dagit_whoami",
			mcptypes.WithDescription("Show the user's decentralized identity (DID)"),
		),
		mcptypes.NewTool("dagit_post",
			mcptypes.WithDescription("Publish a signed post to the dagit network. Only use when the user asks to share something."),
			mcptypes.WithString("content", mcptypes.Required(), mcptypes.Description("Text of the post")),
			mcptypes.WithArray("refs",
				mcptypes.Description("Content IDs of posts this one replies to or references"),
				mcptypes.WithStringItems(),
			),
		),
		mcptypes.NewTool("dagit_read",
			mcptypes.WithDescription("Read one post by content ID, or the most recent posts when no ID is given"),
			mcptypes.WithString("cid", mcptypes.Description("Content ID of the post")),
			mcptypes.WithNumber("limit", mcptypes.Description("Number of recent posts when reading the feed (default 10)")),
		),
	}
}
