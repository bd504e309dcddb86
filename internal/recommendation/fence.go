package recommendation

import "strings"

// stripFence trims whitespace and one surrounding Markdown code fence,
// with or without a language tag.
func stripFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	body := strings.TrimPrefix(s, "```")
	nl := strings.IndexByte(body, '\n')
	if nl < 0 {
		return strings.TrimSpace(strings.TrimSuffix(body, "```"))
	}
	// Drop the info string ("json", "JSON", ...) on the opening line.
	body = body[nl+1:]
	body = strings.TrimSpace(body)
	body = strings.TrimSuffix(body, "```")
	return strings.TrimSpace(body)
}
