package chunker

import (
	"fmt"
	"strings"
)

// Defaults match the reference configuration.
const (
	DefaultChunkSize = 800
	DefaultOverlap   = 100
)

// separators tried in priority order: paragraph break, line break, sentence
// end, plain space. Units keep their trailing separator so that
// concatenating them reproduces the input byte for byte.
var separators = []string{"\n\n", "\n", ". ", "! ", "? ", " "}

// Splitter breaks raw text into overlapping passages. It prefers natural
// boundaries and only falls back to hard character cuts when the input
// contains no separator at all.
type Splitter struct {
	chunkSize int
	overlap   int
}

// New creates a splitter. Overlap must be smaller than the chunk size; both
// must be positive.
func New(chunkSize, overlap int) (*Splitter, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("chunker: chunk size must be positive, got %d", chunkSize)
	}
	if overlap < 0 || overlap >= chunkSize {
		return nil, fmt.Errorf("chunker: overlap %d must be in [0, %d)", overlap, chunkSize)
	}
	return &Splitter{chunkSize: chunkSize, overlap: overlap}, nil
}

// Split returns the ordered passages of text. Every passage is at most
// chunkSize characters long unless it consists of a single indivisible unit
// (e.g. one unbroken word), which is emitted whole. Consecutive passages
// share up to overlap trailing/leading characters. Empty or whitespace-only
// input yields an empty sequence.
func (s *Splitter) Split(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	if len(text) > s.chunkSize && !containsAny(text, separators) {
		return s.hardCut(text)
	}
	return s.assemble(decompose(text, s.chunkSize, separators))
}

// decompose recursively splits text into units no longer than limit where
// the separators allow it. A unit that none of the remaining separators can
// break is returned whole.
func decompose(text string, limit int, seps []string) []string {
	if len(text) <= limit {
		return []string{text}
	}
	for i, sep := range seps {
		if !strings.Contains(text, sep) {
			continue
		}
		parts := strings.SplitAfter(text, sep)
		units := make([]string, 0, len(parts))
		for _, p := range parts {
			if p == "" {
				continue
			}
			units = append(units, decompose(p, limit, seps[i+1:])...)
		}
		return units
	}
	return []string{text}
}

// assemble accumulates units into chunks. When adding the next unit would
// exceed the chunk size, the current chunk is closed and the next one is
// seeded with its trailing overlap characters. The carry is dropped when it
// would push the next chunk over the limit on its own.
func (s *Splitter) assemble(units []string) []string {
	var chunks []string
	var cur strings.Builder
	carried := 0
	for _, u := range units {
		if cur.Len() > carried && cur.Len()+len(u) > s.chunkSize {
			chunk := cur.String()
			chunks = append(chunks, chunk)
			tail := chunk
			if len(tail) > s.overlap {
				tail = tail[len(tail)-s.overlap:]
			}
			if len(tail)+len(u) > s.chunkSize {
				tail = ""
			}
			cur.Reset()
			cur.WriteString(tail)
			carried = len(tail)
		}
		cur.WriteString(u)
	}
	if cur.Len() > carried {
		chunks = append(chunks, cur.String())
	}
	return chunks
}

// hardCut slices separator-free text into fixed-width windows that overlap
// by the configured amount.
func (s *Splitter) hardCut(text string) []string {
	step := s.chunkSize - s.overlap
	var chunks []string
	for start := 0; start < len(text); start += step {
		end := start + s.chunkSize
		if end >= len(text) {
			chunks = append(chunks, text[start:])
			break
		}
		chunks = append(chunks, text[start:end])
	}
	return chunks
}

func containsAny(text string, seps []string) bool {
	for _, sep := range seps {
		if strings.Contains(text, sep) {
			return true
		}
	}
	return false
}
