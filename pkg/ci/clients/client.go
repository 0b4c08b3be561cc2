// Package clients provides the interchangeable client strategies an
// adapter uses to talk to its CI platform: a subprocess-driven CLI client
// and a stdio JSON-RPC MCP client, per spec §4.K.
package clients

import "context"

// Result is what Execute returns: parsed data when the underlying output
// was JSON, plus the raw bytes for callers that want to re-parse.
type Result struct {
	Data any
	Raw  []byte
}

// AuthStatus is the parsed result of an auth-check operation.
type AuthStatus struct {
	Authenticated bool
	Username      string
}

// Client is the protocol every CI client strategy implements.
type Client interface {
	IsAvailable(ctx context.Context) bool
	IsAuthenticated(ctx context.Context) (AuthStatus, error)
	Execute(ctx context.Context, operation string, params map[string]string) (Result, error)
	GetSupportedOperations() []string
}
