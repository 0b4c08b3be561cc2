package credentials

import (
	"log/slog"
	"regexp"
	"strings"
)

// CompiledPattern holds a pre-compiled redaction regex with its literal
// replacement. Mirrors the teacher's masking.CompiledPattern shape.
type CompiledPattern struct {
	Name        string
	Regex       *regexp.Regexp
	Replacement string
}

// Masker is a structural redactor that needs more than a single regex
// (e.g. a connection-string password). Must be defensive: return the
// original line on any parse error.
type Masker interface {
	Name() string
	AppliesTo(line string) bool
	Mask(line string) string
}

// sensitiveNames is the case-insensitive list of key fragments treated as
// sensitive in env assignments, URL query params, and JSON/XML key-value
// pairs.
var sensitiveNames = []string{
	"password", "passwd", "pass", "secret", "token", "api_key", "apikey",
	"api-key", "access_key", "accesskey", "private_key", "privatekey",
	"auth", "credential", "bearer",
}

// builtinPatterns are compiled once at package init. Redaction is applied
// unconditionally and is idempotent (spec §8): a literal "[REDACTED]" never
// matches any pattern's capture group again.
var builtinPatterns = compileBuiltins()

func compileBuiltins() []*CompiledPattern {
	specs := []struct {
		name, pattern, replacement string
	}{
		{
			"cli-flag",
			`(?i)(-p|--password|--token|--api-key|--apikey|--secret|--access-key)(=|\s+)("[^"]*"|'[^']*'|\S+)`,
			`$1$2[REDACTED]`,
		},
		{
			// spec section 4.B: only redact when the assigned value is at
			// least 4 chars, to avoid false positives on short
			// placeholders like "PASS=ab". Quote characters don't count
			// toward that floor; {4,} applies to the content inside the
			// quotes, same as the unquoted case.
			"env-assignment",
			`(?i)(^|[;&\s])(\w*(?:` + sensitiveNameAlternation() + `)\w*\s*=\s*)("[^"]{4,}"|'[^']{4,}'|\S{4,})`,
			`$1$2[REDACTED]`,
		},
		{
			"url-query-param",
			`(?i)([?&]\w*(?:` + sensitiveNameAlternation() + `)\w*=)([^&\s]+)`,
			`$1[REDACTED]`,
		},
		{
			"json-xml-kv",
			`(?i)(["']?\w*(?:` + sensitiveNameAlternation() + `)\w*["']?\s*[:=]\s*)("[^"]*"|'[^']*')`,
			`$1[REDACTED]`,
		},
		{
			"connection-string-password",
			`([a-zA-Z][a-zA-Z0-9+.-]*://[^:/@\s]+:)([^@/\s]+)(@)`,
			`$1[REDACTED]$3`,
		},
	}

	out := make([]*CompiledPattern, 0, len(specs))
	for _, sp := range specs {
		re, err := regexp.Compile(sp.pattern)
		if err != nil {
			slog.Error("failed to compile built-in redaction pattern, skipping", "pattern", sp.name, "error", err)
			continue
		}
		out = append(out, &CompiledPattern{Name: sp.name, Regex: re, Replacement: sp.replacement})
	}
	return out
}

func sensitiveNameAlternation() string {
	out := ""
	for i, n := range sensitiveNames {
		if i > 0 {
			out += "|"
		}
		out += regexp.QuoteMeta(n)
	}
	return out
}

// Redact scrubs sensitive data from a single log line. It is idempotent:
// Redact(Redact(line)) == Redact(line).
func Redact(line string) string {
	out := line
	for _, p := range builtinPatterns {
		out = p.Regex.ReplaceAllString(out, p.Replacement)
	}
	return out
}

// RedactMap recursively redacts string values in a generic structure
// (map[string]any / []any / string), used for logging CLI/API parameters
// whose keys match sensitiveNames regardless of value shape.
func RedactMap(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			if isSensitiveKey(k) {
				out[k] = "[REDACTED]"
				continue
			}
			out[k] = RedactMap(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = RedactMap(val)
		}
		return out
	case string:
		return Redact(t)
	default:
		return v
	}
}

func isSensitiveKey(key string) bool {
	lower := strings.ToLower(key)
	for _, n := range sensitiveNames {
		if strings.Contains(lower, n) {
			return true
		}
	}
	return false
}
