package skills

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSkill(t *testing.T, name string, patterns []string) *Config {
	cfg := &Config{Name: name, IntentPatterns: patterns}
	require.NoError(t, cfg.validate(nil))
	return cfg
}

func TestRegisterAndGet(t *testing.T) {
	reg := NewRegistry()
	reg.Register(newTestSkill(t, "restart-nginx", nil))

	cfg, ok := reg.Get("restart-nginx")
	require.True(t, ok)
	assert.Equal(t, "restart-nginx", cfg.Name)

	_, ok = reg.Get("missing")
	assert.False(t, ok)
}

func TestRegisterOverwriteReplacesEntry(t *testing.T) {
	reg := NewRegistry()
	reg.Register(newTestSkill(t, "svc", []string{"old"}))
	reg.Register(newTestSkill(t, "svc", []string{"new"}))

	cfg, _ := reg.Get("svc")
	require.Len(t, cfg.compiled, 1)
	assert.Equal(t, "new", cfg.compiled[0].String()[4:]) // strip "(?i)" prefix
}

func TestMatchIntentScoresAndSorts(t *testing.T) {
	reg := NewRegistry()
	reg.Register(newTestSkill(t, "restart", []string{"restart nginx"}))
	reg.Register(newTestSkill(t, "check", []string{"status"}))

	matches := reg.MatchIntent("please restart nginx now")
	require.Len(t, matches, 1)
	assert.Equal(t, "restart", matches[0].Skill.Name)
	assert.InDelta(t, float64(len("restart nginx"))/float64(len("please restart nginx now"))+0.3, matches[0].Confidence, 0.001)
}

func TestMatchIntentReturnsNilOnEmptyInput(t *testing.T) {
	reg := NewRegistry()
	reg.Register(newTestSkill(t, "restart", []string{"restart"}))
	assert.Nil(t, reg.MatchIntent(""))
}

func TestDefaultIsSingleton(t *testing.T) {
	resetDefaultForTest()
	defer resetDefaultForTest()

	a := Default()
	b := Default()
	assert.Same(t, a, b)
}
