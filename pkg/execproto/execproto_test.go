package execproto

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewExecRequestConvertsTimeout(t *testing.T) {
	req := NewExecRequest("web-prod-1", "deploy", "uptime", 5*time.Second)
	assert.Equal(t, "web-prod-1", req.Host)
	require.NotNil(t, req.Timeout)
	assert.Equal(t, 5*time.Second, req.Timeout.AsDuration())
}

func TestExecResponseFinishedAtTimeHandlesNil(t *testing.T) {
	var resp ExecResponse
	assert.True(t, resp.FinishedAtTime().IsZero())
}

func TestJSONCodecRoundTrip(t *testing.T) {
	c := jsonCodec{}
	req := NewExecRequest("h", "u", "echo hi", time.Second)
	data, err := c.Marshal(req)
	require.NoError(t, err)

	var out ExecRequest
	require.NoError(t, c.Unmarshal(data, &out))
	assert.Equal(t, req.Host, out.Host)
	assert.Equal(t, req.Command, out.Command)
}
