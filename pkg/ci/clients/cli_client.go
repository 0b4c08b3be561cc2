package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"github.com/merlya/merlya-core/pkg/credentials"
)

// CommandTemplate is one platform operation's parameterized argv template,
// e.g. {"list_runs": {"gh", "run", "list", "--repo", "{repo}", "--json", "..."}}.
type CommandTemplate struct {
	Binary string
	Args   []string // entries wrapped in {name} are substituted from params
}

// CLIClient drives a platform's CLI binary (gh, glab, ...) as a subprocess
// per operation, per spec §4.K. Never builds a shell string: argv is always
// passed as a list, so user-controlled params can't break out into a shell.
type CLIClient struct {
	Platform        string
	Templates       map[string]CommandTemplate
	AuthCommand     CommandTemplate
	ParseAuthOutput func(exitCode int, stdout, stderr string) AuthStatus
	Timeout         time.Duration

	runCommand func(ctx context.Context, timeout time.Duration, binary string, args []string) (stdout, stderr []byte, exitCode int, err error)
}

// NewCLIClient builds a CLIClient with the real subprocess runner wired in.
func NewCLIClient(platform string, templates map[string]CommandTemplate, authCmd CommandTemplate, parseAuth func(int, string, string) AuthStatus) *CLIClient {
	return &CLIClient{
		Platform:        platform,
		Templates:       templates,
		AuthCommand:     authCmd,
		ParseAuthOutput: parseAuth,
		Timeout:         30 * time.Second,
		runCommand:      runSubprocess,
	}
}

func runSubprocess(ctx context.Context, timeout time.Duration, binary string, args []string) ([]byte, []byte, int, error) {
	runCtx := ctx
	var cancel context.CancelFunc
	if timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(runCtx, binary, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	exitCode := 0
	if exitErr, ok := err.(*exec.ExitError); ok {
		exitCode = exitErr.ExitCode()
	} else if err != nil {
		return stdout.Bytes(), stderr.Bytes(), -1, err
	}
	return stdout.Bytes(), stderr.Bytes(), exitCode, nil
}

func substitute(template []string, params map[string]string) []string {
	out := make([]string, len(template))
	for i, arg := range template {
		if strings.HasPrefix(arg, "{") && strings.HasSuffix(arg, "}") {
			name := strings.TrimSuffix(strings.TrimPrefix(arg, "{"), "}")
			out[i] = params[name]
			continue
		}
		out[i] = arg
	}
	return out
}

// IsAvailable checks whether the CLI binary resolves on PATH.
func (c *CLIClient) IsAvailable(ctx context.Context) bool {
	if len(c.Templates) == 0 {
		return false
	}
	for _, tmpl := range c.Templates {
		_, err := exec.LookPath(tmpl.Binary)
		return err == nil
	}
	return false
}

// IsAuthenticated runs the platform's auth-status command and parses its
// result via ParseAuthOutput.
func (c *CLIClient) IsAuthenticated(ctx context.Context) (AuthStatus, error) {
	if c.ParseAuthOutput == nil {
		return AuthStatus{}, fmt.Errorf("cli client %s: no auth parser configured", c.Platform)
	}
	stdout, stderr, exitCode, err := c.runCommand(ctx, c.Timeout, c.AuthCommand.Binary, c.AuthCommand.Args)
	if err != nil {
		return AuthStatus{}, fmt.Errorf("cli client %s: auth check: %w", c.Platform, err)
	}
	return c.ParseAuthOutput(exitCode, string(stdout), string(stderr)), nil
}

// Execute runs operation's command template with params substituted in,
// parsing stdout as JSON when possible and falling back to the raw bytes
// per spec §7's "malformed CLI JSON output" recovery policy.
func (c *CLIClient) Execute(ctx context.Context, operation string, params map[string]string) (Result, error) {
	tmpl, ok := c.Templates[operation]
	if !ok {
		return Result{}, fmt.Errorf("cli client %s: unsupported operation %q", c.Platform, operation)
	}

	args := substitute(tmpl.Args, params)
	slog.Debug("cli client executing", "platform", c.Platform, "operation", operation,
		"params", credentials.RedactMap(stringMapToAny(params)))

	stdout, stderr, exitCode, err := c.runCommand(ctx, c.Timeout, tmpl.Binary, args)
	if err != nil {
		return Result{}, &CLIError{Platform: c.Platform, Operation: operation, ExitCode: exitCode, Stderr: string(stderr), Err: err}
	}
	if exitCode != 0 {
		return Result{}, &CLIError{Platform: c.Platform, Operation: operation, ExitCode: exitCode, Stderr: string(stderr)}
	}

	var data any
	if jsonErr := json.Unmarshal(stdout, &data); jsonErr != nil {
		return Result{Data: nil, Raw: stdout}, nil
	}
	return Result{Data: data, Raw: stdout}, nil
}

// GetSupportedOperations lists the operations this client's template table
// declares.
func (c *CLIClient) GetSupportedOperations() []string {
	out := make([]string, 0, len(c.Templates))
	for name := range c.Templates {
		out = append(out, name)
	}
	return out
}

func stringMapToAny(m map[string]string) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// CLIError preserves a delegated subprocess's exit code, per spec §6.
type CLIError struct {
	Platform  string
	Operation string
	ExitCode  int
	Stderr    string
	Err       error
}

func (e *CLIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("cli client %s: operation %s: %v", e.Platform, e.Operation, e.Err)
	}
	return fmt.Sprintf("cli client %s: operation %s exited %d: %s", e.Platform, e.Operation, e.ExitCode, e.Stderr)
}

func (e *CLIError) Unwrap() error { return e.Err }
