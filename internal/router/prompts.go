package router

import (
	"fmt"
	"strings"

	"murmur/internal/config"
)

// processingPrompts are the rewrite instructions per processing mode.
var processingPrompts = map[config.ProcessingMode]string{
	config.ModeClean: `You are a transcription cleanup assistant. Your task is to:
1. Remove filler words (um, uh, like, you know, etc.)
2. Add proper punctuation and capitalization
3. Fix obvious grammatical errors
4. Keep the original meaning and tone intact
5. Do NOT add or remove substantive content

Return ONLY the cleaned text, nothing else.`,

	config.ModePolish: `You are a professional writing assistant. Your task is to:
1. Remove all filler words and verbal tics
2. Add proper punctuation and capitalization
3. Fix grammar and improve clarity
4. Restructure sentences for better flow if needed
5. Maintain the speaker's voice and intent
6. Make it sound natural and professional

Return ONLY the polished text, nothing else.`,
}

// jsonInstruction steers backends with a JSON output mode toward the one
// shape the sanitizer parses.
const jsonInstruction = `Respond with a JSON object of the form {"text": "<your answer>"} and nothing else.`

// buildPrompt assembles the full prompt for one rewrite, appending the user's
// dictionary as vocabulary hints when present.
func buildPrompt(mode config.ProcessingMode, text string, dictionary []string) (string, error) {
	instructions, ok := processingPrompts[mode]
	if !ok {
		return "", fmt.Errorf("no prompt for processing mode %q", mode)
	}

	var b strings.Builder
	b.WriteString(instructions)
	if len(dictionary) > 0 {
		b.WriteString("\n\nVocabulary hints (prefer these spellings when they match what was said): ")
		b.WriteString(strings.Join(dictionary, ", "))
	}
	b.WriteString("\n\n")
	b.WriteString(jsonInstruction)
	b.WriteString("\n\nText to process:\n")
	b.WriteString(text)
	return b.String(), nil
}
