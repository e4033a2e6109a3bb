package router

import (
	"encoding/json"
	"regexp"
	"strings"
)

// The preamble pattern is assembled from these variant tables so a new
// backend phrasing quirk is a one-line addition, not a regex rewrite.
var (
	preambleLeads = []string{
		"here's", "here is", "this is", "below is", "sure, here's", "sure, here is",
	}
	preambleAdjectives = []string{
		"corrected", "cleaned", "cleaned-up", "polished", "processed",
		"revised", "edited", "fixed", "improved", "updated", "final",
	}
	preambleNouns = []string{
		"text", "version", "transcript", "transcription", "result", "output", "sentence",
	}
)

var preamblePattern = regexp.MustCompile(
	`(?i)^(?:` + strings.Join(escapeAll(preambleLeads), "|") + `)` +
		`\s+(?:the\s+|your\s+|a\s+)?` +
		`(?:` + strings.Join(escapeAll(preambleAdjectives), "|") + `)` +
		`\s+(?:` + strings.Join(escapeAll(preambleNouns), "|") + `)` +
		`\s*:\s*`)

// quotePairs are the wrapping characters stripped when they enclose the
// entire trimmed string.
var quotePairs = [][2]string{
	{`"`, `"`},
	{`'`, `'`},
	{"“", "”"},
	{"‘", "’"},
	{"«", "»"},
}

func escapeAll(variants []string) []string {
	escaped := make([]string, len(variants))
	for i, v := range variants {
		escaped[i] = regexp.QuoteMeta(v)
	}
	return escaped
}

// extractJSONText reports the "text" field of a JSON object response. The
// field is returned verbatim, with no further stripping.
func extractJSONText(raw string) (string, bool) {
	trimmed := strings.TrimSpace(raw)
	if !strings.HasPrefix(trimmed, "{") {
		return "", false
	}
	var envelope struct {
		Text *string `json:"text"`
	}
	if err := json.Unmarshal([]byte(trimmed), &envelope); err != nil || envelope.Text == nil {
		return "", false
	}
	return *envelope.Text, true
}

// stripWrapping removes a conversational preamble sentence and then one layer
// of wrapping quotes, when present.
func stripWrapping(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.TrimSpace(preamblePattern.ReplaceAllString(s, ""))
	return stripWrappingQuotes(s)
}

// stripWrappingQuotes removes one matched quote pair only when it encloses
// the whole string.
func stripWrappingQuotes(s string) string {
	for _, pair := range quotePairs {
		left, right := pair[0], pair[1]
		if len(s) > len(left)+len(right) && strings.HasPrefix(s, left) && strings.HasSuffix(s, right) {
			inner := s[len(left) : len(s)-len(right)]
			// A quote character inside means the wrap is not a single pair.
			if !strings.Contains(inner, left) && !strings.Contains(inner, right) {
				return strings.TrimSpace(inner)
			}
		}
	}
	return s
}
