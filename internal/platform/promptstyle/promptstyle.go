package promptstyle

import "strings"

const marker = "STEPWISE_PROMPT_STYLE_V1"

const (
	ModeJSON = "json"
	ModeText = "text"
)

// ApplySystem prepends a short guidance block to system prompts.
// Prompts that already carry the block are returned unchanged.
func ApplySystem(system string, mode string) string {
	base := strings.TrimSpace(system)
	if base == "" {
		return base
	}
	if strings.Contains(base, marker) {
		return base
	}
	mode = strings.ToLower(strings.TrimSpace(mode))

	var b strings.Builder
	b.WriteString(marker)
	b.WriteString("\nYou help people break everyday tasks into small, concrete steps.")
	if summary := firstLine(base); summary != "" {
		b.WriteString("\nTask summary: " + summary)
	}
	b.WriteString("\nFollow the system and user instructions precisely.")
	b.WriteString("\nKeep each step short enough to read at a glance.")
	if mode == ModeJSON {
		b.WriteString("\nReturn a single JSON object that conforms to the schema and contains no extra keys.")
	} else {
		b.WriteString("\nDo not add commentary outside the answer.")
	}
	b.WriteString("\n---\n")
	b.WriteString(base)
	return strings.TrimSpace(b.String())
}

func firstLine(s string) string {
	for _, line := range strings.Split(s, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
