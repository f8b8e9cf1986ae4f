package lyrics

import (
	"regexp"
	"sort"
	"strings"
)

var (
	// One or more leading [mm:ss.xx] tags followed by the line text.
	lrcLineRe = regexp.MustCompile(`^((?:\[\d{1,3}:\d{1,2}(?:[.,:]\d{1,3})?\])+)(.*)$`)
	lrcTagRe  = regexp.MustCompile(`\[(\d{1,3}:\d{1,2}(?:[.,:]\d{1,3})?)\]`)
	// Inline word timing: <mm:ss.xx>word
	lrcWordRe = regexp.MustCompile(`<(\d{1,3}:\d{1,2}(?:[.,:]\d{1,3})?)>([^<]*)`)
	// ID tag header: [ti:...], [ar:...], [al:...]
	lrcMetaRe = regexp.MustCompile(`^\[([a-zA-Z]+):(.*)\]$`)
)

// rawEntry is one (timestamp, text) pair before merging. A single source
// line with several leading tags produces several entries sharing text.
type rawEntry struct {
	time  int64
	text  string
	words []Word
}

func parseLRC(raw string) *Document {
	doc := &Document{}
	var entries []rawEntry

	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if m := lrcLineRe.FindStringSubmatch(line); m != nil {
			text := strings.TrimSpace(m[2])
			words, wordText := parseWordTags(text)
			if len(words) > 0 {
				text = wordText
			}
			for _, tag := range lrcTagRe.FindAllStringSubmatch(m[1], -1) {
				entries = append(entries, rawEntry{
					time:  ParseTimestamp(tag[1]),
					text:  text,
					words: words,
				})
			}
			continue
		}

		if m := lrcMetaRe.FindStringSubmatch(line); m != nil {
			value := strings.TrimSpace(m[2])
			switch strings.ToLower(m[1]) {
			case "ti":
				doc.Metadata.Title = value
			case "ar":
				doc.Metadata.Artist = value
			case "al":
				doc.Metadata.Album = value
			}
		}
	}

	sort.SliceStable(entries, func(i, j int) bool { return entries[i].time < entries[j].time })

	doc.Lines = mergeEntries(entries)
	assignEndTimes(doc.Lines)
	return doc
}

// parseWordTags extracts inline <mm:ss.xx>word timing from the trailing text.
// When word tags are present the line's display text is the concatenation of
// the word texts; plain text outside the tags is ignored.
func parseWordTags(text string) ([]Word, string) {
	matches := lrcWordRe.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil, ""
	}

	words := make([]Word, 0, len(matches))
	var sb strings.Builder
	for _, m := range matches {
		words = append(words, Word{
			Text:      m[2],
			StartTime: ParseTimestamp(m[1]),
		})
		sb.WriteString(m[2])
	}

	for i := range words {
		if i+1 < len(words) {
			words[i].EndTime = words[i+1].StartTime
		} else {
			words[i].EndTime = words[i].StartTime + lastWordDuration
		}
	}

	return words, sb.String()
}

// mergeEntries collapses entries sharing an identical timestamp into one
// line. The first entry's text is primary; later distinct texts become the
// translation, newline-joined and deduplicated by containment.
func mergeEntries(entries []rawEntry) []Line {
	var lines []Line
	for _, e := range entries {
		if n := len(lines); n > 0 && lines[n-1].StartTime == e.time {
			last := &lines[n-1]
			if e.text == "" || e.text == last.Content {
				continue
			}
			if last.Translation == "" {
				last.Translation = e.text
			} else if !strings.Contains(last.Translation, e.text) {
				last.Translation += "\n" + e.text
			}
			continue
		}
		lines = append(lines, Line{
			StartTime: e.time,
			Content:   e.text,
			Words:     e.words,
		})
	}
	return lines
}

// assignEndTimes derives each line's end from the next line's start; the
// last line gets a fixed synthetic duration.
func assignEndTimes(lines []Line) {
	for i := range lines {
		if i+1 < len(lines) {
			lines[i].EndTime = lines[i+1].StartTime
		} else {
			lines[i].EndTime = lines[i].StartTime + lastLineDuration
		}
	}
}
