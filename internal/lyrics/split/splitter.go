// Package split finds the best character index to break one long lyric
// line into two balanced display lines.
//
// The scorer is a hand-tuned typographic heuristic, not an optimum
// search: candidates are atom boundaries in the middle band of the line,
// scored by distance from center, adjacent punctuation and, when the line
// carries word timing, the silence gap around the boundary.
package split

import (
	"strings"

	"github.com/Parallel-SEKAI/kanade/internal/lyrics"
)

const (
	// minLength is the minimum content length eligible for splitting.
	minLength = 6

	// Candidate band, as fractions of the content length.
	rangeLow  = 0.2
	rangeHigh = 0.8

	centerWeight       = 100.0
	removableBonus     = 150.0
	stickyBonus        = 100.0
	forbiddenPenalty   = 1000.0
	gapBonus           = 200.0
	wideGapBonus       = 300.0
	negativeGapPenalty = 50.0

	gapThreshold     = 300 // ms
	wideGapThreshold = 600 // ms
)

const (
	removableChars = ",，、;；　"
	stickyChars    = ".。!！?？…"
	openingChars   = "([{（［｛【〈《「『“‘"
	closingChars   = ")]}）］｝】〉》」』”’\"'"
)

// Result is a chosen split of one line.
type Result struct {
	Index       int    // rune offset of the break in the original content
	First       string `json:"first"`
	Second      string `json:"second"`
	FirstWords  []lyrics.Word
	SecondWords []lyrics.Word
}

// atom is the smallest indivisible unit considered as a boundary candidate.
type atom struct {
	start, end int // rune offsets
	timed      bool
	timeStart  int64
	timeEnd    int64
}

// Split returns the best break for the line, or nil when the content is too
// short or no candidate falls inside the allowed band.
func Split(line lyrics.Line) *Result {
	content := []rune(line.Content)
	if len(content) < minLength {
		return nil
	}

	atoms := decompose(content, line.Words)
	best, found := pickBoundary(content, atoms)
	if !found {
		return nil
	}

	return execute(content, line.Words, best)
}

// decompose breaks the content into atoms. With word timing, atoms align to
// word boundaries located in sequence inside the content; anything that does
// not match falls back to single characters. Without timing, atoms are runs
// of ASCII alphanumerics or single characters.
func decompose(content []rune, words []lyrics.Word) []atom {
	if len(words) > 0 {
		return decomposeByWords(content, words)
	}

	var atoms []atom
	i := 0
	for i < len(content) {
		if isASCIIAlnum(content[i]) {
			j := i
			for j < len(content) && isASCIIAlnum(content[j]) {
				j++
			}
			atoms = append(atoms, atom{start: i, end: j})
			i = j
			continue
		}
		atoms = append(atoms, atom{start: i, end: i + 1})
		i++
	}
	return atoms
}

func decomposeByWords(content []rune, words []lyrics.Word) []atom {
	var atoms []atom
	pos := 0

	appendChars := func(from, to int) {
		for i := from; i < to; i++ {
			atoms = append(atoms, atom{start: i, end: i + 1})
		}
	}

	for _, w := range words {
		text := []rune(w.Text)
		if len(text) == 0 {
			continue
		}
		idx := indexRunes(content, text, pos)
		if idx < 0 {
			// Word data no longer lines up with the content; degrade to
			// single characters for the remainder.
			appendChars(pos, len(content))
			return atoms
		}
		appendChars(pos, idx)
		atoms = append(atoms, atom{
			start:     idx,
			end:       idx + len(text),
			timed:     true,
			timeStart: w.StartTime,
			timeEnd:   w.EndTime,
		})
		pos = idx + len(text)
	}

	appendChars(pos, len(content))
	return atoms
}

// pickBoundary scores every candidate boundary and returns the winner.
// Ties keep the first candidate found, scanning left to right.
func pickBoundary(content []rune, atoms []atom) (int, bool) {
	n := len(content)
	low := float64(n) * rangeLow
	high := float64(n) * rangeHigh
	center := float64(n) / 2

	bestIdx := -1
	bestScore := 0.0

	for i := 0; i+1 < len(atoms); i++ {
		idx := atoms[i].end
		fIdx := float64(idx)
		if fIdx < low || fIdx > high {
			continue
		}

		score := centerWeight * (1 - abs(fIdx-center)/center)

		prev := content[idx-1]
		next := content[idx]
		if strings.ContainsRune(removableChars, prev) {
			score += removableBonus
		} else if strings.ContainsRune(stickyChars, prev) {
			score += stickyBonus
		}
		if strings.ContainsRune(closingChars, next) {
			score -= forbiddenPenalty
		}
		if strings.ContainsRune(openingChars, prev) {
			score -= forbiddenPenalty
		}

		if atoms[i].timed && atoms[i+1].timed {
			gap := atoms[i+1].timeStart - atoms[i].timeEnd
			switch {
			case gap < 0:
				score -= negativeGapPenalty
			case gap > wideGapThreshold:
				score += gapBonus + wideGapBonus
			case gap > gapThreshold:
				score += gapBonus
			}
		}

		if bestIdx < 0 || score > bestScore {
			bestIdx = idx
			bestScore = score
		}
	}

	return bestIdx, bestIdx >= 0
}

// execute materializes the chosen break: a trailing removable character is
// dropped from the first line, a leading space from the second, and timed
// words are partitioned by cumulative character position with straddlers
// going to the first line.
func execute(content []rune, words []lyrics.Word, idx int) *Result {
	first := content[:idx]
	second := content[idx:]

	if len(first) > 0 && strings.ContainsRune(removableChars, first[len(first)-1]) {
		first = first[:len(first)-1]
	}
	if len(second) > 0 && (second[0] == ' ' || second[0] == '　') {
		second = second[1:]
	}

	res := &Result{
		Index:  idx,
		First:  string(first),
		Second: string(second),
	}

	pos := 0
	for _, w := range words {
		if pos < idx {
			res.FirstWords = append(res.FirstWords, w)
		} else {
			res.SecondWords = append(res.SecondWords, w)
		}
		pos += len([]rune(w.Text))
	}

	return res
}

func indexRunes(haystack, needle []rune, from int) int {
	if from > len(haystack) {
		return -1
	}
	limit := len(haystack) - len(needle)
	for i := from; i <= limit; i++ {
		match := true
		for j := range needle {
			if haystack[i+j] != needle[j] {
				match = false
				break
			}
		}
		if match {
			return i
		}
	}
	return -1
}

func isASCIIAlnum(r rune) bool {
	return (r >= '0' && r <= '9') || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}
