package lyrics

import (
	"encoding/xml"
	"sort"
	"strconv"
	"strings"
)

const ttmlEmptyPlaceholder = "…"

func parseTTML(raw string) *Document {
	doc := &Document{}
	decoder := xml.NewDecoder(strings.NewReader(raw))

	var (
		current     *Line
		inWord      bool
		inTranslate bool
		wordIdx     int
	)

	for {
		tok, err := decoder.Token()
		if err != nil {
			break
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "p":
				current = &Line{
					StartTime: parseTTMLTime(attr(t, "begin")),
					EndTime:   parseTTMLTime(attr(t, "end")),
				}
			case "span":
				if current == nil {
					break
				}
				if strings.Contains(attr(t, "role"), "translation") {
					inTranslate = true
					break
				}
				if begin := attr(t, "begin"); begin != "" {
					start := parseTTMLTime(begin)
					end := start
					if e := attr(t, "end"); e != "" {
						end = parseTTMLTime(e)
					}
					current.Words = append(current.Words, Word{
						StartTime: start,
						EndTime:   end,
					})
					wordIdx = len(current.Words) - 1
					inWord = true
				}
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "p":
				if current != nil {
					if current.Content == "" {
						current.Content = ttmlEmptyPlaceholder
					}
					doc.Lines = append(doc.Lines, *current)
					current = nil
				}
			case "span":
				inWord = false
				inTranslate = false
			}
		case xml.CharData:
			if current == nil {
				break
			}
			text := string(t)
			switch {
			case inTranslate:
				current.Translation += text
			case inWord:
				current.Words[wordIdx].Text += text
				current.Content += text
			default:
				if trimmed := strings.TrimSpace(text); trimmed != "" {
					current.Content += trimmed
				}
			}
		}
	}

	sort.SliceStable(doc.Lines, func(i, j int) bool {
		return doc.Lines[i].StartTime < doc.Lines[j].StartTime
	})
	return doc
}

func attr(el xml.StartElement, name string) string {
	for _, a := range el.Attr {
		if a.Name.Local == name {
			return a.Value
		}
	}
	return ""
}

// parseTTMLTime converts a TTML clock value to milliseconds. TTML carries
// explicit begin/end attributes as "ss.mmm", "mm:ss.mmm" or "hh:mm:ss.mmm";
// unlike LRC tags there is no malformed-colon rewriting here.
func parseTTMLTime(value string) int64 {
	value = strings.TrimSpace(strings.TrimSuffix(value, "s"))
	if value == "" {
		return 0
	}

	parts := strings.Split(value, ":")
	var total float64
	for _, p := range parts {
		f, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return 0
		}
		total = total*60 + f
	}
	return int64(total * 1000)
}
