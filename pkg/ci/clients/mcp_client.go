package clients

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
)

// StdioTransport is the minimal surface MCPClient needs from an MCP server
// process: a JSON-RPC request/response pair over stdin/stdout. Contract
// only, per spec §4.K — a real stdio subprocess transport is wired by the
// host shell's MCP manager, not by core.
type StdioTransport interface {
	io.Writer // write a framed JSON-RPC request
	io.Reader // read a framed JSON-RPC response
}

type jsonRPCRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int64  `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params"`
}

type jsonRPCResponse struct {
	ID     int64           `json:"id"`
	Result json.RawMessage `json:"result"`
	Error  *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// MCPClient issues a single stdio JSON-RPC "tools/call" per Execute,
// mapping the response into the same Result shape CLIClient returns, so
// adapters can treat both strategies interchangeably.
type MCPClient struct {
	Server    string
	Transport StdioTransport

	mu     sync.Mutex
	reader *bufio.Reader
	nextID atomic.Int64
}

// NewMCPClient wraps an already-connected stdio transport for server.
func NewMCPClient(server string, transport StdioTransport) *MCPClient {
	return &MCPClient{Server: server, Transport: transport, reader: bufio.NewReader(transport)}
}

// IsAvailable reports whether the transport was wired at construction time.
func (c *MCPClient) IsAvailable(ctx context.Context) bool {
	return c.Transport != nil
}

// IsAuthenticated is not meaningful for MCP servers in core's contract;
// MCP auth is handled by the server process itself, so this always reports
// authenticated when the transport is present.
func (c *MCPClient) IsAuthenticated(ctx context.Context) (AuthStatus, error) {
	return AuthStatus{Authenticated: c.Transport != nil}, nil
}

// Execute calls tools/call with operation as the tool name and params as
// its arguments, returning the decoded result.
func (c *MCPClient) Execute(ctx context.Context, operation string, params map[string]string) (Result, error) {
	if c.Transport == nil {
		return Result{}, fmt.Errorf("mcp client %s: no transport configured", c.Server)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	req := jsonRPCRequest{
		JSONRPC: "2.0",
		ID:      c.nextID.Add(1),
		Method:  "tools/call",
		Params: map[string]any{
			"name":      operation,
			"arguments": params,
		},
	}
	payload, err := json.Marshal(req)
	if err != nil {
		return Result{}, fmt.Errorf("mcp client %s: encode request: %w", c.Server, err)
	}
	if _, err := c.Transport.Write(append(payload, '\n')); err != nil {
		return Result{}, fmt.Errorf("mcp client %s: write request: %w", c.Server, err)
	}

	line, err := c.reader.ReadBytes('\n')
	if err != nil && len(line) == 0 {
		return Result{}, fmt.Errorf("mcp client %s: read response: %w", c.Server, err)
	}

	var resp jsonRPCResponse
	if err := json.Unmarshal(line, &resp); err != nil {
		return Result{Raw: line}, nil
	}
	if resp.Error != nil {
		return Result{}, fmt.Errorf("mcp client %s: %s (code %d)", c.Server, resp.Error.Message, resp.Error.Code)
	}

	var data any
	if err := json.Unmarshal(resp.Result, &data); err != nil {
		return Result{Raw: resp.Result}, nil
	}
	return Result{Data: data, Raw: resp.Result}, nil
}

// GetSupportedOperations returns nil: MCP tool discovery is a server-side
// concern outside core's narrow contract (spec §1).
func (c *MCPClient) GetSupportedOperations() []string { return nil }
