package credentials

import "regexp"

// variableRef matches "@name" occurrences where name matches [A-Za-z][\w-]*.
var variableRef = regexp.MustCompile(`@([A-Za-z][\w-]*)`)

// ResolveVariables substitutes every "@name" occurrence in text with the
// matching variable's value.
//
// When resolveSecrets is false, variables of type Secret are left verbatim
// (token untouched) so that text destined for an LLM never contains a
// secret value. When resolveSecrets is true, every defined variable is
// substituted — this is the form handed to the command executor.
//
// This is the hard dual-resolution invariant from spec §4.B: callers must
// never pass resolveSecrets=true for LLM-bound text.
func (s *Store) ResolveVariables(text string, resolveSecrets bool) string {
	return variableRef.ReplaceAllStringFunc(text, func(match string) string {
		name := match[1:]
		v, ok := s.Get(name)
		if !ok {
			s.warnOnce(name)
			return match
		}
		if v.Type == TypeSecret && !resolveSecrets {
			return match
		}
		return v.Value
	})
}
