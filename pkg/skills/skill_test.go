package skills

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateAppliesDefaultsAndClamps(t *testing.T) {
	cfg := &Config{Name: "restart-service", MaxHosts: 0, TimeoutSeconds: 5000}
	require.NoError(t, cfg.validate(nil))
	assert.Equal(t, defaultMaxHosts, cfg.MaxHosts)
	assert.Equal(t, 600, cfg.TimeoutSeconds)
}

func TestValidateRejectsMissingName(t *testing.T) {
	cfg := &Config{}
	assert.Error(t, cfg.validate(nil))
}

func TestValidateSkipsInvalidPatternsAndKeepsValid(t *testing.T) {
	cfg := &Config{Name: "x", IntentPatterns: []string{"restart (", "restart nginx"}}
	var skipped []string
	require.NoError(t, cfg.validate(func(skill, pattern string, err error) {
		skipped = append(skipped, pattern)
	}))
	require.Len(t, skipped, 1)
	require.Len(t, cfg.compiled, 1)
}

func TestRequiresConfirmationMatchesPrefix(t *testing.T) {
	cfg := &Config{Name: "x", RequireConfirmationFor: []string{"delete", "restart"}}
	assert.True(t, cfg.requiresConfirmation("delete_volume"))
	assert.True(t, cfg.requiresConfirmation("restart_service"))
	assert.False(t, cfg.requiresConfirmation("check_status"))
}

func TestToolAllowedEmptyListAllowsAll(t *testing.T) {
	cfg := &Config{Name: "x"}
	assert.True(t, cfg.toolAllowed("anything"))
}

func TestToolAllowedRestrictsToList(t *testing.T) {
	cfg := &Config{Name: "x", ToolsAllowed: []string{"ssh_exec"}}
	assert.True(t, cfg.toolAllowed("ssh_exec"))
	assert.False(t, cfg.toolAllowed("ssh_delete"))
}
