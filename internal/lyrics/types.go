package lyrics

// Word is one word of a line with its own timing.
type Word struct {
	Text      string `json:"text"`
	StartTime int64  `json:"startTime"`
	EndTime   int64  `json:"endTime"`
}

// Line is one timed lyric line. Words is empty unless the source format
// carries word-level timing. Translation is a newline-joined set of
// secondary texts sharing this line's timestamp.
type Line struct {
	StartTime   int64  `json:"startTime"`
	EndTime     int64  `json:"endTime"`
	Content     string `json:"content"`
	Translation string `json:"translation,omitempty"`
	Words       []Word `json:"words,omitempty"`
}

// Metadata holds the ID-tag header of an LRC document.
type Metadata struct {
	Title  string `json:"title,omitempty"`
	Artist string `json:"artist,omitempty"`
	Album  string `json:"album,omitempty"`
}

// Document is a fully parsed lyric file.
type Document struct {
	Metadata Metadata `json:"metadata"`
	Lines    []Line   `json:"lines"`
}

// lastLineDuration is the synthetic duration assigned to the final line
// when the format carries no explicit end time.
const lastLineDuration = 5000

// lastWordDuration is the synthetic duration for the final timed word of a line.
const lastWordDuration = 500
