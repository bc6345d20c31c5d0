package chunker

import (
	"strings"
)

const (
	defaultChunkSize    = 1000 // characters
	defaultChunkOverlap = 200  // characters
)

// Splitter breaks long text into bounded, overlapping chunks. Cuts prefer
// paragraph breaks, then line breaks, then sentence ends, then word
// boundaries, before falling back to a hard cut. Splitting is deterministic
// for identical input.
type Splitter struct {
	chunkSize    int
	chunkOverlap int
}

func NewSplitter(chunkSize, chunkOverlap int) *Splitter {
	if chunkSize <= 0 {
		chunkSize = defaultChunkSize
	}
	if chunkOverlap < 0 {
		chunkOverlap = 0
	}
	if chunkOverlap >= chunkSize {
		chunkOverlap = chunkSize / 2
	}
	return &Splitter{chunkSize: chunkSize, chunkOverlap: chunkOverlap}
}

// Split returns the ordered sub-chunks of text. Empty or whitespace-only
// input yields no chunks; any other input yields at least one.
func (s *Splitter) Split(text string) []string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil
	}

	runes := []rune(trimmed)
	if len(runes) <= s.chunkSize {
		return []string{trimmed}
	}

	var chunks []string
	start := 0
	for start < len(runes) {
		end := start + s.chunkSize
		if end >= len(runes) {
			if tail := strings.TrimSpace(string(runes[start:])); tail != "" {
				chunks = append(chunks, tail)
			}
			break
		}

		cut := s.cutPoint(runes, start, end)
		if chunk := strings.TrimSpace(string(runes[start:cut])); chunk != "" {
			chunks = append(chunks, chunk)
		}

		next := cut - s.chunkOverlap
		if next <= start {
			next = cut
		}
		start = next
	}

	if len(chunks) == 0 {
		chunks = []string{trimmed}
	}
	return chunks
}

// cutPoint scans backwards from end for the best structural boundary within
// the second half of the window. Returns end when nothing better exists.
func (s *Splitter) cutPoint(runes []rune, start, end int) int {
	floor := start + s.chunkSize/2

	// paragraph break
	for i := end; i > floor; i-- {
		if runes[i-1] == '\n' && i >= 2 && runes[i-2] == '\n' {
			return i
		}
	}
	// line break
	for i := end; i > floor; i-- {
		if runes[i-1] == '\n' {
			return i
		}
	}
	// sentence end followed by a space
	for i := end; i > floor+1; i-- {
		r := runes[i-2]
		if (r == '.' || r == '!' || r == '?') && runes[i-1] == ' ' {
			return i
		}
	}
	// word boundary
	for i := end; i > floor; i-- {
		if runes[i-1] == ' ' {
			return i
		}
	}
	return end
}
