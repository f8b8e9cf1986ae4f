// Package lyrics parses timed lyric text into structured lines.
//
// Two formats are supported: LRC (line and optional inline word timing)
// and TTML (XML timed text with per-word spans and translation roles).
// The format is chosen by content sniffing, never by file extension.
package lyrics

import "strings"

// Parse converts raw lyric text into a Document. Text that starts with an
// XML declaration or a <tt root tag, or that contains a <body> tag, is
// parsed as TTML; everything else is treated as LRC.
func Parse(raw string) *Document {
	text := strings.TrimPrefix(raw, "\uFEFF")
	trimmed := strings.TrimSpace(text)

	if strings.HasPrefix(trimmed, "<?xml") ||
		strings.HasPrefix(trimmed, "<tt") ||
		strings.Contains(trimmed, "<body>") {
		return parseTTML(trimmed)
	}
	return parseLRC(text)
}
