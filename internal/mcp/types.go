package mcp

import "github.com/Harsha2sai/Maya-One/pkg/types"

// Transport selects the connection mechanism for an MCP server.
type Transport string

const (
	// TransportStdio spawns a subprocess and communicates over stdin/stdout.
	TransportStdio Transport = "stdio"

	// TransportStreamableHTTP communicates via the MCP Streamable HTTP protocol.
	TransportStreamableHTTP Transport = "streamable-http"
)

// IsValid reports whether t is a recognised transport.
func (t Transport) IsValid() bool {
	return t == TransportStdio || t == TransportStreamableHTTP
}

// BudgetTier is re-exported from [types.BudgetTier]; the tier that controls
// which MCP tools are visible to the LLM lives in pkg/types so that both the
// MCP host and the LLM provider boundary share one definition.
type BudgetTier = types.BudgetTier

const (
	BudgetFast     = types.BudgetFast
	BudgetStandard = types.BudgetStandard
	BudgetDeep     = types.BudgetDeep
)
