package utils

import (
	"strings"
	"unicode/utf8"
)

// DefaultSeparators are tried in order: paragraph, line, word, then a hard character cut.
var DefaultSeparators = []string{"\n\n", "\n", " ", ""}

// SplitText splits a long string into chunks of at most 'chunkSize' characters.
// Consecutive chunks share up to 'overlap' characters to preserve context at boundaries.
// Boundaries prefer paragraphs, then lines, then words. Output is deterministic.
func SplitText(text string, chunkSize int, overlap int) []string {
	if chunkSize <= 0 {
		chunkSize = 1000
	}
	if overlap < 0 || overlap >= chunkSize {
		overlap = 0
	}

	s := splitter{chunkSize: chunkSize, overlap: overlap}
	return s.split(text, DefaultSeparators)
}

type splitter struct {
	chunkSize int
	overlap   int
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}

func (s splitter) split(text string, separators []string) []string {
	separator := separators[len(separators)-1]
	var next []string
	for i, sep := range separators {
		if sep == "" {
			separator = sep
			break
		}
		if strings.Contains(text, sep) {
			separator = sep
			next = separators[i+1:]
			break
		}
	}

	var pieces []string
	if separator == "" {
		pieces = strings.Split(text, "")
	} else {
		for _, p := range strings.Split(text, separator) {
			if p != "" {
				pieces = append(pieces, p)
			}
		}
	}

	var chunks []string
	var good []string
	for _, piece := range pieces {
		if runeLen(piece) < s.chunkSize {
			good = append(good, piece)
			continue
		}
		if len(good) > 0 {
			chunks = append(chunks, s.merge(good, separator)...)
			good = nil
		}
		if len(next) == 0 {
			chunks = append(chunks, piece)
		} else {
			chunks = append(chunks, s.split(piece, next)...)
		}
	}
	if len(good) > 0 {
		chunks = append(chunks, s.merge(good, separator)...)
	}

	return chunks
}

// merge packs pieces into chunks no longer than chunkSize, carrying a tail of
// at most overlap characters into the next chunk.
func (s splitter) merge(pieces []string, separator string) []string {
	sepLen := runeLen(separator)

	var chunks []string
	var current []string
	total := 0

	joined := func() {
		chunk := strings.TrimSpace(strings.Join(current, separator))
		if chunk != "" {
			chunks = append(chunks, chunk)
		}
	}
	extra := func() int {
		if len(current) > 0 {
			return sepLen
		}
		return 0
	}

	for _, piece := range pieces {
		n := runeLen(piece)
		if total+n+extra() > s.chunkSize && len(current) > 0 {
			joined()
			for total > s.overlap || (total+n+extra() > s.chunkSize && total > 0) {
				total -= runeLen(current[0])
				if len(current) > 1 {
					total -= sepLen
				}
				current = current[1:]
			}
		}
		total += n + extra()
		current = append(current, piece)
	}
	if len(current) > 0 {
		joined()
	}

	return chunks
}
