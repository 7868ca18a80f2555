package normalize

import (
	"regexp"
	"strings"
	"unicode"
)

// leadingLabelRe matches labels models and ASR engines put before the line itself
var leadingLabelRe = regexp.MustCompile(`^(?:下联是|下联|下句|对句|识别结果)\s*[:：]?\s*`)

const openingQuotes = "\"'“‘「『"

// Clean strips a leading label such as "下联：" and any trailing run of
// punctuation or whitespace. It repeats until nothing changes, so
// Clean(Clean(s)) == Clean(s).
func Clean(text string) string {
	s := text
	for {
		prev := s
		s = strings.TrimLeftFunc(s, isLeadingNoise)
		s = leadingLabelRe.ReplaceAllString(s, "")
		s = strings.TrimRightFunc(s, isTrailingNoise)
		if s == prev {
			return s
		}
	}
}

func isLeadingNoise(r rune) bool {
	return unicode.IsSpace(r) || strings.ContainsRune(openingQuotes, r)
}

// isTrailingNoise covers ASCII and full-width punctuation (。，！？、；：…”）)
func isTrailingNoise(r rune) bool {
	return unicode.IsSpace(r) || unicode.IsPunct(r) || r == '~' || r == '～'
}
