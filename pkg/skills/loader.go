package skills

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// LoadDir reads every *.yaml/*.yml file in dir as a skill definition and
// registers it, marking each entry builtin as given. Invalid files are
// logged and skipped rather than aborting the whole load.
func LoadDir(reg *Registry, dir string, builtin bool) error {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("skills: read dir %s: %w", dir, err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := filepath.Ext(entry.Name())
		if ext != ".yaml" && ext != ".yml" {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		cfg, err := loadFile(path)
		if err != nil {
			slog.Warn("skipping invalid skill file", "path", path, "error", err)
			continue
		}
		cfg.Builtin = builtin
		cfg.SourcePath = path
		reg.Register(cfg)
	}
	return nil
}

func loadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}

	if err := cfg.validate(func(skill, pattern string, err error) {
		slog.Warn("invalid intent pattern, skipping", "skill", skill, "pattern", pattern, "error", err)
	}); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadAll loads builtinDir first, then userDir, so user definitions
// override builtins of the same name (Registry.Register logs the overwrite).
func LoadAll(reg *Registry, builtinDir, userDir string) error {
	if err := LoadDir(reg, builtinDir, true); err != nil {
		return err
	}
	return LoadDir(reg, userDir, false)
}
