// Package tools declares the tools offered to the model and executes them
// against the memex and dagit HTTP services.
package tools

import (
	"slices"

	mcptypes "github.com/mark3labs/mcp-go/mcp"
)

// Registry is the computed tool catalog. The dagit family is included only
// when the integration is configured; that decision is made once, at
// construction.
type Registry struct {
	tools        []mcptypes.Tool
	names        []string
	dagitEnabled bool
}

func NewRegistry(dagitEnabled bool) *Registry {
	tools := memexTools()
	if dagitEnabled {
		tools = append(tools, dagitTools()...)
	}

	names := make([]string, len(tools))
	for i, t := range tools {
		names[i] = t.Name
	}

	return &Registry{
		tools:        tools,
		names:        names,
		dagitEnabled: dagitEnabled,
	}
}

// Tools returns the declarations in catalog order.
func (r *Registry) Tools() []mcptypes.Tool {
	return slices.Clone(r.tools)
}

func (r *Registry) Names() []string {
	return slices.Clone(r.names)
}

func (r *Registry) Has(name string) bool {
	return slices.Contains(r.names, name)
}

func (r *Registry) DagitEnabled() bool {
	return r.dagitEnabled
}
