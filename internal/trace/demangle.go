package trace

import "regexp"

// Rule extracts a normalized kernel name from a raw trace name.
type Rule struct {
	Name    string
	Pattern *regexp.Regexp
	// Group is the submatch holding the normalized name.
	Group int
}

// DefaultRules are evaluated in order; the first matching rule wins.
//
//	wrapper_saxpy_42 (args)   -> saxpy         (managed-language launch wrapper)
//	saxpy_native(int*, int)   -> saxpy_native  (native call signature)
var DefaultRules = []Rule{
	{Name: "launch-wrapper", Pattern: regexp.MustCompile(`^wrapper_(.+)_\d+\b`), Group: 1},
	{Name: "call-signature", Pattern: regexp.MustCompile(`^([^\s(]+)\(`), Group: 1},
}

// Demangle applies rules to name. Unrecognized names pass through unchanged.
func Demangle(name string, rules []Rule) string {
	for _, r := range rules {
		m := r.Pattern.FindStringSubmatch(name)
		if m != nil && r.Group < len(m) && m[r.Group] != "" {
			return m[r.Group]
		}
	}
	return name
}
