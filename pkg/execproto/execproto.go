// Package execproto defines an optional grpc transport for the Skill
// Executor (§4.H) to dispatch a host's command execution to a remote
// exec sidecar instead of opening an SSH connection directly — the same
// "alternate transport alongside the default one" shape the teacher's
// pkg/agent/llm_grpc.go gives its LLM router.
//
// protoc isn't available in this build environment, so the service is
// declared as a hand-written grpc.ServiceDesc plus plain Go message
// structs (not generated proto.Message types) encoded with grpc's JSON
// codec. This still exercises google.golang.org/grpc and the
// google.golang.org/protobuf well-known wrapper types (durationpb,
// timestamppb) for the fields that need them, without needing
// protoc-gen-go codegen.
package execproto

import (
	"context"
	"encoding/json"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/encoding"
	"google.golang.org/protobuf/types/known/durationpb"
	"google.golang.org/protobuf/types/known/timestamppb"
)

// ExecRequest asks the sidecar to run a command on behalf of the Skill
// Executor's per-host fan-out.
type ExecRequest struct {
	Host    string             `json:"host"`
	User    string             `json:"user"`
	Command string             `json:"command"`
	Timeout *durationpb.Duration `json:"timeout"`
}

// ExecResponse is the sidecar's result for one ExecRequest.
type ExecResponse struct {
	Success    bool                  `json:"success"`
	Output     string                `json:"output"`
	Error      string                `json:"error"`
	ExitCode   int32                 `json:"exit_code"`
	FinishedAt *timestamppb.Timestamp `json:"finished_at"`
}

// NewExecRequest builds a request, converting timeout into its protobuf
// wrapper form.
func NewExecRequest(host, user, command string, timeout time.Duration) *ExecRequest {
	return &ExecRequest{Host: host, User: user, Command: command, Timeout: durationpb.New(timeout)}
}

// FinishedAtTime converts the protobuf timestamp back to a time.Time.
func (r *ExecResponse) FinishedAtTime() time.Time {
	if r.FinishedAt == nil {
		return time.Time{}
	}
	return r.FinishedAt.AsTime()
}

// ExecClient is the client-side surface the Skill Executor calls when its
// remote-exec transport is configured.
type ExecClient interface {
	Execute(ctx context.Context, req *ExecRequest) (*ExecResponse, error)
}

// ExecServer is the sidecar-side surface a remote exec process implements.
type ExecServer interface {
	Execute(ctx context.Context, req *ExecRequest) (*ExecResponse, error)
}

// jsonCodecName is registered once so grpc.Dial callers can request it via
// grpc.CallContentSubtype/grpc.ForceCodec without protoc-generated codecs.
const jsonCodecName = "json"

type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error)      { return json.Marshal(v) }
func (jsonCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }
func (jsonCodec) Name() string                       { return jsonCodecName }

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

// serviceName is the grpc service name this ServiceDesc registers under.
const serviceName = "merlya.execproto.ExecService"

// ExecServiceDesc is the hand-written grpc.ServiceDesc for ExecService,
// used in place of protoc-gen-go-grpc's generated descriptor.
var ExecServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*ExecServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Execute",
			Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
				req := new(ExecRequest)
				if err := dec(req); err != nil {
					return nil, err
				}
				if interceptor == nil {
					return srv.(ExecServer).Execute(ctx, req)
				}
				info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/Execute"}
				handler := func(ctx context.Context, req any) (any, error) {
					return srv.(ExecServer).Execute(ctx, req.(*ExecRequest))
				}
				return interceptor(ctx, req, info, handler)
			},
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "execproto.proto",
}

// RegisterExecServer registers srv against s using the hand-written
// ServiceDesc.
func RegisterExecServer(s grpc.ServiceRegistrar, srv ExecServer) {
	s.RegisterService(&ExecServiceDesc, srv)
}

// execClient is the grpc.ClientConn-backed ExecClient implementation.
type execClient struct {
	cc *grpc.ClientConn
}

// NewExecClient wraps an established grpc connection.
func NewExecClient(cc *grpc.ClientConn) ExecClient {
	return &execClient{cc: cc}
}

// Execute invokes the remote ExecService.Execute method over cc, forcing
// the JSON codec registered in init().
func (c *execClient) Execute(ctx context.Context, req *ExecRequest) (*ExecResponse, error) {
	resp := new(ExecResponse)
	err := c.cc.Invoke(ctx, "/"+serviceName+"/Execute", req, resp, grpc.CallContentSubtype(jsonCodecName))
	if err != nil {
		return nil, err
	}
	return resp, nil
}
