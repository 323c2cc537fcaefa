// Package sanitize strips unsafe HTML from user-controlled webhook input
// before it reaches the registry, the LLM prompt, or storage, per spec
// §4.10.
package sanitize

import "github.com/microcosm-cc/bluemonday"

// MaxFieldLen bounds any single user-controlled string field.
const MaxFieldLen = 16384

var policy = newPolicy()

func newPolicy() *bluemonday.Policy {
	p := bluemonday.NewPolicy()
	p.AllowElements("b", "i", "u", "em", "strong", "p", "br", "ul", "ol", "li", "code", "pre")
	p.AllowAttrs("href", "title", "target").OnElements("a")
	p.AllowElements("a")
	p.RequireNoFollowOnLinks(true)
	return p
}

// Text sanitizes a single user-controlled string: strips disallowed HTML,
// then caps the result to MaxFieldLen runes.
func Text(s string) string {
	clean := policy.Sanitize(s)
	if len(clean) <= MaxFieldLen {
		return clean
	}
	r := []rune(clean)
	if len(r) <= MaxFieldLen {
		return clean
	}
	return string(r[:MaxFieldLen])
}

// Map returns a new map holding every value of m sanitized with Text; m
// itself is left unchanged.
func Map(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = Text(v)
	}
	return out
}
