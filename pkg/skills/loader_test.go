package skills

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSkillFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestLoadAllUserOverridesBuiltin(t *testing.T) {
	builtinDir := t.TempDir()
	userDir := t.TempDir()

	writeSkillFile(t, builtinDir, "restart.yaml", `
name: restart-nginx
description: builtin version
max_hosts: 5
`)
	writeSkillFile(t, userDir, "restart.yaml", `
name: restart-nginx
description: user override
max_hosts: 20
`)

	reg := NewRegistry()
	require.NoError(t, LoadAll(reg, builtinDir, userDir))

	cfg, ok := reg.Get("restart-nginx")
	require.True(t, ok)
	assert.Equal(t, "user override", cfg.Description)
	assert.Equal(t, 20, cfg.MaxHosts)
	assert.False(t, cfg.Builtin)
}

func TestLoadDirSkipsInvalidFilesButKeepsValidOnes(t *testing.T) {
	dir := t.TempDir()
	writeSkillFile(t, dir, "good.yaml", "name: good-skill\n")
	writeSkillFile(t, dir, "bad.yaml", "name: [this is not a string\n")

	reg := NewRegistry()
	require.NoError(t, LoadDir(reg, dir, true))

	_, ok := reg.Get("good-skill")
	assert.True(t, ok)
	assert.Equal(t, 1, len(reg.All()))
}

func TestLoadDirMissingDirectoryIsNotAnError(t *testing.T) {
	reg := NewRegistry()
	assert.NoError(t, LoadDir(reg, filepath.Join(t.TempDir(), "nope"), true))
}

func TestLoadDirIgnoresNonYAMLFiles(t *testing.T) {
	dir := t.TempDir()
	writeSkillFile(t, dir, "readme.txt", "not a skill")
	writeSkillFile(t, dir, "skill.yml", "name: yml-skill\n")

	reg := NewRegistry()
	require.NoError(t, LoadDir(reg, dir, true))
	assert.Equal(t, 1, len(reg.All()))
}
