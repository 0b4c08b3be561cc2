// Package skills holds the skill registry, YAML loader, and host-fanout
// executor that runs a skill's operation across a set of hosts.
package skills

import (
	"fmt"
	"regexp"
)

// Config is a loaded skill definition. Builtin skills are read-only; user
// skills of the same name override them on load.
type Config struct {
	Name                    string   `yaml:"name"`
	Version                 string   `yaml:"version"`
	Description             string   `yaml:"description"`
	IntentPatterns          []string `yaml:"intent_patterns"`
	ToolsAllowed            []string `yaml:"tools_allowed"`
	MaxHosts                int      `yaml:"max_hosts"`
	TimeoutSeconds          int      `yaml:"timeout_seconds"`
	RequireConfirmationFor  []string `yaml:"require_confirmation_for"`
	SystemPrompt            string   `yaml:"system_prompt"`
	Tags                    []string `yaml:"tags"`

	Builtin    bool   `yaml:"-"`
	SourcePath string `yaml:"-"`

	compiled []*regexp.Regexp
}

const (
	defaultMaxHosts       = 10
	defaultTimeoutSeconds = 60
)

// validate fills in defaults, range-clamps bounded fields, and compiles
// intent_patterns. Patterns that fail to compile are logged and skipped,
// not treated as a load error.
func (c *Config) validate(logInvalid func(skill, pattern string, err error)) error {
	if c.Name == "" {
		return fmt.Errorf("skill: name is required")
	}
	if c.MaxHosts <= 0 {
		c.MaxHosts = defaultMaxHosts
	}
	if c.MaxHosts > 100 {
		c.MaxHosts = 100
	}
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = defaultTimeoutSeconds
	}
	if c.TimeoutSeconds < 10 {
		c.TimeoutSeconds = 10
	}
	if c.TimeoutSeconds > 600 {
		c.TimeoutSeconds = 600
	}

	c.compiled = c.compiled[:0]
	for _, pattern := range c.IntentPatterns {
		re, err := regexp.Compile("(?i)" + pattern)
		if err != nil {
			if logInvalid != nil {
				logInvalid(c.Name, pattern, err)
			}
			continue
		}
		c.compiled = append(c.compiled, re)
	}
	return nil
}

// requiresConfirmation reports whether operation is destructive per this
// skill's require_confirmation_for keyword list (word appears at the start
// of the operation label).
func (c *Config) requiresConfirmation(operation string) bool {
	for _, kw := range c.RequireConfirmationFor {
		if hasPrefixWord(operation, kw) {
			return true
		}
	}
	return false
}

func hasPrefixWord(s, prefix string) bool {
	if len(s) < len(prefix) {
		return false
	}
	return s[:len(prefix)] == prefix
}

// toolAllowed reports whether tool may run under this skill. An empty
// ToolsAllowed list means every tool passes.
func (c *Config) toolAllowed(tool string) bool {
	if len(c.ToolsAllowed) == 0 {
		return true
	}
	for _, t := range c.ToolsAllowed {
		if t == tool {
			return true
		}
	}
	return false
}
