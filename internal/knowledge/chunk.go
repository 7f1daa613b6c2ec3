package knowledge

// chunk.go implements recursive character text splitting.
//
// Long documents are cut into overlapping chunks before embedding so that
// retrieval returns focused passages instead of whole files. Splitting
// prefers paragraph breaks, then line breaks, then word breaks, and only
// cuts mid-word as a last resort.

import (
	"errors"
	"strings"
)

// Default chunking parameters.
const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 200
)

// separators are tried in order; the first one present in the text wins.
// The empty string is the terminal fallback: a hard cut between characters.
var separators = []string{"\n\n", "\n", " ", ""}

// Splitter cuts text into chunks of at most chunkSize bytes with
// overlap bytes carried between consecutive chunks.
type Splitter struct {
	chunkSize int
	overlap   int
}

// NewSplitter creates a Splitter. overlap must be smaller than chunkSize.
func NewSplitter(chunkSize, overlap int) (*Splitter, error) {
	if chunkSize <= 0 {
		return nil, errors.New("chunk size must be positive")
	}
	if overlap < 0 || overlap >= chunkSize {
		return nil, errors.New("overlap must be in [0, chunk size)")
	}
	return &Splitter{chunkSize: chunkSize, overlap: overlap}, nil
}

// Split cuts text into chunks. Whitespace-only chunks are dropped.
// Returns nil for empty input.
func (s *Splitter) Split(text string) []string {
	raw := s.split(text, separators)
	chunks := make([]string, 0, len(raw))
	for _, c := range raw {
		c = strings.TrimSpace(c)
		if c != "" {
			chunks = append(chunks, c)
		}
	}
	if len(chunks) == 0 {
		return nil
	}
	return chunks
}

// split recursively cuts text on the first applicable separator, descending
// to finer separators for pieces that are still too large.
func (s *Splitter) split(text string, seps []string) []string {
	sep := ""
	var rest []string
	for i, candidate := range seps {
		if candidate == "" || strings.Contains(text, candidate) {
			sep = candidate
			rest = seps[i+1:]
			break
		}
	}

	var pieces []string
	if sep == "" {
		pieces = hardCut(text, s.chunkSize)
	} else {
		pieces = strings.Split(text, sep)
	}

	var final []string
	var small []string
	for _, piece := range pieces {
		if len(piece) <= s.chunkSize {
			small = append(small, piece)
			continue
		}
		final = append(final, s.merge(small, sep)...)
		small = nil
		if len(rest) == 0 {
			final = append(final, piece)
		} else {
			final = append(final, s.split(piece, rest)...)
		}
	}
	return append(final, s.merge(small, sep)...)
}

// merge packs small pieces back into chunks up to chunkSize, joined with sep,
// keeping a tail of up to overlap bytes as the start of the next chunk.
func (s *Splitter) merge(pieces []string, sep string) []string {
	if len(pieces) == 0 {
		return nil
	}

	var chunks []string
	var window []string
	total := 0 // piece bytes in window, excluding separators

	joined := func() int {
		if len(window) == 0 {
			return 0
		}
		return total + len(sep)*(len(window)-1)
	}

	// fits reports whether piece can join the current window within chunkSize.
	fits := func(piece string) bool {
		if len(window) == 0 {
			return true
		}
		return joined()+len(sep)+len(piece) <= s.chunkSize
	}

	for _, piece := range pieces {
		if !fits(piece) {
			chunks = append(chunks, strings.Join(window, sep))
			// Shrink the window to the overlap budget, and further if the
			// incoming piece still would not fit.
			for len(window) > 0 && (joined() > s.overlap || !fits(piece)) {
				total -= len(window[0])
				window = window[1:]
			}
		}
		window = append(window, piece)
		total += len(piece)
	}
	if len(window) > 0 {
		chunks = append(chunks, strings.Join(window, sep))
	}
	return chunks
}

// hardCut slices text into size-byte windows on rune boundaries.
func hardCut(text string, size int) []string {
	runes := []rune(text)
	var pieces []string
	var b strings.Builder
	for _, r := range runes {
		if b.Len()+len(string(r)) > size && b.Len() > 0 {
			pieces = append(pieces, b.String())
			b.Reset()
		}
		b.WriteRune(r)
	}
	if b.Len() > 0 {
		pieces = append(pieces, b.String())
	}
	return pieces
}
