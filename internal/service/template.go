package service

import (
	"regexp"
	"strings"
)

// placeholderPattern matches {{name}} placeholders. The name may not contain
// a closing brace, so malformed openings pass through untouched.
var placeholderPattern = regexp.MustCompile(`\{\{([^}]+)\}\}`)

// RenderTemplate substitutes {{name}} placeholders with values from vars in a
// single pass. Placeholder names are trimmed of surrounding whitespace before
// lookup, and names missing from vars render as the empty string. Values are
// inserted literally, so a value containing {{...}} is never re-expanded.
// A nil vars map leaves the content untouched.
func RenderTemplate(content string, vars map[string]string) string {
	if content == "" || vars == nil {
		return content
	}
	return placeholderPattern.ReplaceAllStringFunc(content, func(match string) string {
		name := strings.TrimSpace(match[2 : len(match)-2])
		return vars[name]
	})
}
