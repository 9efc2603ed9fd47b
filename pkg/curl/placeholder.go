package curl

import (
	"regexp"
	"strings"
)

// placeholderPattern matches {{name}} tokens.
var placeholderPattern = regexp.MustCompile(`\{\{[^{}]+\}\}`)

// Substitute replaces every {{key}} in s with env[key]. Placeholders without a
// value are left intact.
func Substitute(s string, env map[string]string) string {
	if len(env) == 0 || !strings.Contains(s, "{{") {
		return s
	}
	return placeholderPattern.ReplaceAllStringFunc(s, func(match string) string {
		key := strings.TrimSpace(match[2 : len(match)-2])
		if v, ok := env[key]; ok {
			return v
		}
		return match
	})
}

// Placeholders lists the distinct placeholder names used in s, in order of
// first appearance.
func Placeholders(s string) []string {
	matches := placeholderPattern.FindAllString(s, -1)
	if len(matches) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(matches))
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		key := strings.TrimSpace(m[2 : len(m)-2])
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		names = append(names, key)
	}
	return names
}
