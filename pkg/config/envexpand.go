package config

import "os"

// ExpandEnv expands ${VAR}/$VAR references in raw YAML bytes before
// parsing, the same shell-style substitution the teacher's config loader
// applies so secrets never need to be hardcoded into merlya.yaml.
func ExpandEnv(data []byte) []byte {
	return []byte(os.ExpandEnv(string(data)))
}
