package credentials_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/merlya/merlya-core/pkg/credentials"
)

func TestResolveVariablesWithholdsSecrets(t *testing.T) {
	s := credentials.NewStore()
	s.Set("db_password", "hunter2", credentials.TypeSecret)
	s.Set("host", "web-prod-1", credentials.TypeHost)

	text := "connect to @host using @db_password"

	llmText := s.ResolveVariables(text, false)
	assert.Contains(t, llmText, "@db_password")
	assert.NotContains(t, llmText, "hunter2")
	assert.Contains(t, llmText, "web-prod-1")

	execText := s.ResolveVariables(text, true)
	assert.Contains(t, execText, "hunter2")
	assert.NotContains(t, execText, "@db_password")
}

func TestResolveVariablesUnknownLeftVerbatim(t *testing.T) {
	s := credentials.NewStore()
	text := s.ResolveVariables("ping @unknown-host", true)
	assert.Equal(t, "ping @unknown-host", text)
}
