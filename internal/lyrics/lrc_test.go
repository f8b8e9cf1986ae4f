package lyrics

import (
	"strings"
	"testing"
)

func TestParseLRCBasic(t *testing.T) {
	raw := strings.Join([]string{
		"[ti:Test Song]",
		"[ar:Some Artist]",
		"[al:Some Album]",
		"",
		"[00:01.00]first line",
		"[00:03.50]second line",
		"[00:06.00]third line",
	}, "\n")

	doc := Parse(raw)

	if doc.Metadata.Title != "Test Song" {
		t.Errorf("title = %q, want %q", doc.Metadata.Title, "Test Song")
	}
	if doc.Metadata.Artist != "Some Artist" {
		t.Errorf("artist = %q", doc.Metadata.Artist)
	}
	if doc.Metadata.Album != "Some Album" {
		t.Errorf("album = %q", doc.Metadata.Album)
	}

	if len(doc.Lines) != 3 {
		t.Fatalf("got %d lines, want 3", len(doc.Lines))
	}

	wantStarts := []int64{1000, 3500, 6000}
	for i, want := range wantStarts {
		if doc.Lines[i].StartTime != want {
			t.Errorf("line %d start = %d, want %d", i, doc.Lines[i].StartTime, want)
		}
	}
}

func TestParseLRCEndTimeDerivation(t *testing.T) {
	raw := "[00:01.00]a\n[00:04.00]b\n[00:09.00]c"
	doc := Parse(raw)

	if len(doc.Lines) != 3 {
		t.Fatalf("got %d lines, want 3", len(doc.Lines))
	}

	for i := 0; i < len(doc.Lines)-1; i++ {
		if doc.Lines[i].EndTime != doc.Lines[i+1].StartTime {
			t.Errorf("line %d end = %d, want next start %d", i, doc.Lines[i].EndTime, doc.Lines[i+1].StartTime)
		}
	}

	last := doc.Lines[len(doc.Lines)-1]
	if last.EndTime != last.StartTime+5000 {
		t.Errorf("last line end = %d, want start+5000 = %d", last.EndTime, last.StartTime+5000)
	}
}

func TestParseLRCSingleLine(t *testing.T) {
	doc := Parse("[00:02.00]only line")
	if len(doc.Lines) != 1 {
		t.Fatalf("got %d lines, want 1", len(doc.Lines))
	}
	if doc.Lines[0].EndTime != 7000 {
		t.Errorf("end = %d, want 7000", doc.Lines[0].EndTime)
	}
}

func TestParseLRCMultipleTimestamps(t *testing.T) {
	// One text played at two recorded times
	doc := Parse("[00:01.00][00:10.00]chorus\n[00:05.00]verse")

	if len(doc.Lines) != 3 {
		t.Fatalf("got %d lines, want 3", len(doc.Lines))
	}

	// Sorted ascending across the duplicated tags
	if doc.Lines[0].Content != "chorus" || doc.Lines[0].StartTime != 1000 {
		t.Errorf("line 0 = %+v", doc.Lines[0])
	}
	if doc.Lines[1].Content != "verse" || doc.Lines[1].StartTime != 5000 {
		t.Errorf("line 1 = %+v", doc.Lines[1])
	}
	if doc.Lines[2].Content != "chorus" || doc.Lines[2].StartTime != 10000 {
		t.Errorf("line 2 = %+v", doc.Lines[2])
	}
}

func TestParseLRCTranslationMerge(t *testing.T) {
	raw := strings.Join([]string{
		"[00:01.00]original text",
		"[00:01.00]translated text",
		"[00:05.00]next line",
	}, "\n")

	doc := Parse(raw)

	if len(doc.Lines) != 2 {
		t.Fatalf("got %d lines, want 2", len(doc.Lines))
	}
	if doc.Lines[0].Content != "original text" {
		t.Errorf("content = %q", doc.Lines[0].Content)
	}
	if doc.Lines[0].Translation != "translated text" {
		t.Errorf("translation = %q", doc.Lines[0].Translation)
	}
}

func TestParseLRCTranslationDedup(t *testing.T) {
	// A third entry whose text already appears as the translation must not
	// be appended twice.
	raw := strings.Join([]string{
		"[00:01.00]original",
		"[00:01.00]translated",
		"[00:01.00]translated",
		"[00:01.00]romanized",
	}, "\n")

	doc := Parse(raw)

	if len(doc.Lines) != 1 {
		t.Fatalf("got %d lines, want 1", len(doc.Lines))
	}
	want := "translated\nromanized"
	if doc.Lines[0].Translation != want {
		t.Errorf("translation = %q, want %q", doc.Lines[0].Translation, want)
	}
}

func TestParseLRCWordTiming(t *testing.T) {
	doc := Parse("[00:01.00]<00:01.00>Hello <00:01.40>world")

	if len(doc.Lines) != 1 {
		t.Fatalf("got %d lines, want 1", len(doc.Lines))
	}
	line := doc.Lines[0]

	if line.Content != "Hello world" {
		t.Errorf("content = %q, want %q", line.Content, "Hello world")
	}
	if len(line.Words) != 2 {
		t.Fatalf("got %d words, want 2", len(line.Words))
	}

	// First word ends where the next starts
	if line.Words[0].StartTime != 1000 || line.Words[0].EndTime != 1400 {
		t.Errorf("word 0 timing = [%d, %d]", line.Words[0].StartTime, line.Words[0].EndTime)
	}
	// Last word gets start+500
	if line.Words[1].StartTime != 1400 || line.Words[1].EndTime != 1900 {
		t.Errorf("word 1 timing = [%d, %d]", line.Words[1].StartTime, line.Words[1].EndTime)
	}
}

func TestParseLRCIgnoresPlainTextAmongWordTags(t *testing.T) {
	doc := Parse("[00:01.00]ignored <00:01.00>a<00:01.20>b")

	if len(doc.Lines) != 1 {
		t.Fatalf("got %d lines, want 1", len(doc.Lines))
	}
	if doc.Lines[0].Content != "ab" {
		t.Errorf("content = %q, want %q", doc.Lines[0].Content, "ab")
	}
}

func TestParseLRCSkipsBlankAndUnknownLines(t *testing.T) {
	raw := "\n\nnot a lyric line\n[by:someone]\n[00:01.00]real\n"
	doc := Parse(raw)

	if len(doc.Lines) != 1 {
		t.Fatalf("got %d lines, want 1", len(doc.Lines))
	}
	if doc.Lines[0].Content != "real" {
		t.Errorf("content = %q", doc.Lines[0].Content)
	}
}

func TestParseLRCSortsOutOfOrder(t *testing.T) {
	doc := Parse("[00:10.00]later\n[00:01.00]earlier")

	if len(doc.Lines) != 2 {
		t.Fatalf("got %d lines, want 2", len(doc.Lines))
	}
	if doc.Lines[0].Content != "earlier" || doc.Lines[1].Content != "later" {
		t.Errorf("lines not sorted: %q, %q", doc.Lines[0].Content, doc.Lines[1].Content)
	}
	if doc.Lines[0].EndTime != doc.Lines[1].StartTime {
		t.Errorf("end/start mismatch after sort")
	}
}
