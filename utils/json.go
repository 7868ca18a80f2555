package utils

import (
	"encoding/json"
	"regexp"
	"strings"
)

var (
	codeBlockRe  = regexp.MustCompile("```(?:json|JSON)?\\s*\\n?([\\s\\S]*?)\\n?```")
	jsonObjectRe = regexp.MustCompile(`\{[\s\S]*\}`)
)

// ExtractJSONObject pulls the JSON object out of an LLM response.
// Handles:
// - Raw JSON: {"score": 90, ...}
// - Code blocks: ```json\n{...}\n``` or ```\n{...}\n```
// - Surrounding text: "评分如下：{...} 以上"
// - Trailing notes with braces: "{...} 以上是评分 {注}"
//
// The returned text is not validated; it may still be malformed JSON.
// ok is false when no object-looking span exists at all.
func ExtractJSONObject(content string) (string, bool) {
	content = strings.TrimSpace(content)

	// Unwrap markdown code blocks first
	if matches := codeBlockRe.FindStringSubmatch(content); len(matches) > 1 {
		content = strings.TrimSpace(matches[1])
	}

	// First complete object that is valid JSON on its own
	for _, obj := range balancedObjects(content) {
		if json.Valid([]byte(obj)) {
			return obj, true
		}
	}

	// Outermost { ... }, left for the caller to repair
	if match := jsonObjectRe.FindString(content); match != "" {
		return match, true
	}

	return content, false
}

// balancedObjects returns each top-level {...} span in s, skipping braces
// inside string literals. An unterminated trailing object is not returned.
func balancedObjects(s string) []string {
	var (
		objects []string
		depth   int
		start   int
		inStr   bool
		escaped bool
	)

	for i := 0; i < len(s); i++ {
		ch := s[i]
		if inStr {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inStr = false
			}
			continue
		}

		switch ch {
		case '"':
			if depth > 0 {
				inStr = true
			}
		case '{':
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			if depth > 0 {
				depth--
				if depth == 0 {
					objects = append(objects, s[start:i+1])
				}
			}
		}
	}
	return objects
}
