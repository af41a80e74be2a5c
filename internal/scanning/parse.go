package scanning

import "strings"

// cleanTranscription strips model chrome from a transcription response:
// markdown code fences and surrounding whitespace. Returns the empty
// string when nothing readable remains.
func cleanTranscription(text string) string {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```text")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	// Drop lines that are pure fence or whitespace noise.
	lines := strings.Split(text, "\n")
	kept := lines[:0]
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || trimmed == "```" {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n")
}
