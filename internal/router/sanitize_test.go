package router

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExtractJSONText(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
		ok   bool
	}{
		{"clean object", `{"text": "hello"}`, "hello", true},
		{"surrounding whitespace", "  {\"text\": \"hello\"}\n", "hello", true},
		{"extra fields", `{"text": "hello", "confidence": 0.9}`, "hello", true},
		{"empty text field", `{"text": ""}`, "", true},
		{"missing text field", `{"answer": "hello"}`, "", false},
		{"non-string text", `{"text": 42}`, "", false},
		{"bare string", `"hello"`, "", false},
		{"not json", "Here's the corrected text: hello", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := extractJSONText(tt.raw)
			require.Equal(t, tt.ok, ok)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestExtractJSONTextIsVerbatim(t *testing.T) {
	// A text field that itself looks like a preamble must not be stripped.
	got, ok := extractJSONText(`{"text": "Here's the corrected text: hello"}`)
	require.True(t, ok)
	require.Equal(t, "Here's the corrected text: hello", got)
}

func TestStripWrapping(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"plain answer", "Hello there", "Hello there"},
		{"corrected preamble", "Here's the corrected text:\n\nHello there", "Hello there"},
		{"cleaned preamble", "Here is the cleaned version: Hello there", "Hello there"},
		{"polished preamble", "This is your polished transcript:\nHello there", "Hello there"},
		{"case insensitive", "HERE'S THE REVISED TEXT: Hello there", "Hello there"},
		{"curly quotes", "“Hello there”", "Hello there"},
		{"straight quotes", `"Hello there"`, "Hello there"},
		{"preamble then quotes", "Here's the corrected text: \"Hello there\"", "Hello there"},
		{"interior quotes kept", `"Hello" and "goodbye"`, `"Hello" and "goodbye"`},
		{"one layer only", `""Hello""`, `""Hello""`},
		{"mid-text phrase kept", "I said here's the corrected text aloud", "I said here's the corrected text aloud"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, stripWrapping(tt.raw))
		})
	}
}
