// Package chunker splits normalised documents into overlapping text
// windows, preferring coarse semantic boundaries and falling back to
// finer separators whenever a split still exceeds the target size.
package chunker

import (
	"strings"

	"github.com/corpora-labs/corpora-cli/internal/core/domain"
)

// DefaultChunkSize is the default target number of characters per chunk.
const DefaultChunkSize = 1200

// DefaultChunkOverlap is the default number of overlapping characters.
const DefaultChunkOverlap = 200

// separators is the boundary ladder, coarsest first: paragraph break,
// line break, word break, character break.
var separators = []string{"\n\n", "\n", " ", ""}

// Splitter splits document content into overlapping chunks and assigns
// each chunk a dense, 1-based, per-source index in emission order.
type Splitter struct {
	chunkSize int
	overlap   int
}

// Option configures the splitter.
type Option func(*Splitter)

// WithChunkSize sets the target chunk size in characters.
func WithChunkSize(size int) Option {
	return func(s *Splitter) {
		if size > 0 {
			s.chunkSize = size
		}
	}
}

// WithOverlap sets the overlap between consecutive chunks in characters.
func WithOverlap(overlap int) Option {
	return func(s *Splitter) {
		if overlap >= 0 {
			s.overlap = overlap
		}
	}
}

// New creates a splitter with the given options.
func New(opts ...Option) *Splitter {
	s := &Splitter{
		chunkSize: DefaultChunkSize,
		overlap:   DefaultChunkOverlap,
	}

	for _, opt := range opts {
		opt(s)
	}

	// Overlap must stay below the chunk size
	if s.overlap >= s.chunkSize {
		s.overlap = s.chunkSize / 4
	}

	return s
}

// Split chunks every document and assigns chunk indices. The per-source
// counter spans document boundaries: if one source is split across
// multiple documents (e.g. PDF pages), its chunks keep counting from
// where the previous document left off.
func (s *Splitter) Split(docs []domain.Document) []domain.Chunk {
	counters := make(map[string]int)
	var chunks []domain.Chunk

	for _, doc := range docs {
		if doc.Content == "" {
			continue
		}
		for _, piece := range s.splitText(doc.Content, separators) {
			counters[doc.Metadata.Source]++
			md := doc.Metadata
			md.ChunkIndex = counters[doc.Metadata.Source]
			chunks = append(chunks, domain.Chunk{Content: piece, Metadata: md})
		}
	}

	return chunks
}

// splitText recursively splits text on the coarsest separator present,
// descending the ladder for any piece still over the target size.
func (s *Splitter) splitText(text string, seps []string) []string {
	// Pick the first separator that occurs in the text; "" always matches.
	sep := seps[len(seps)-1]
	var finer []string
	for i, candidate := range seps {
		if candidate == "" || strings.Contains(text, candidate) {
			sep = candidate
			finer = seps[i+1:]
			break
		}
	}

	var final []string
	var within []string
	for _, piece := range splitOn(text, sep) {
		if len(piece) < s.chunkSize {
			within = append(within, piece)
			continue
		}
		// Flush accumulated small pieces before handling the oversized one.
		if len(within) > 0 {
			final = append(final, s.mergeSplits(within, sep)...)
			within = nil
		}
		if len(finer) == 0 {
			// A single atomic run longer than the target size is
			// emitted as-is.
			final = append(final, piece)
		} else {
			final = append(final, s.splitText(piece, finer)...)
		}
	}
	if len(within) > 0 {
		final = append(final, s.mergeSplits(within, sep)...)
	}

	return final
}

// mergeSplits packs small pieces into windows of at most chunkSize,
// sliding forward so consecutive windows share roughly overlap
// characters.
func (s *Splitter) mergeSplits(splits []string, sep string) []string {
	sepLen := len(sep)

	var docs []string
	var window []string
	total := 0

	for _, piece := range splits {
		joinLen := 0
		if len(window) > 0 {
			joinLen = sepLen
		}
		if total+len(piece)+joinLen > s.chunkSize && len(window) > 0 {
			if doc := joinPieces(window, sep); doc != "" {
				docs = append(docs, doc)
			}
			// Slide the window until it fits the overlap budget.
			for total > s.overlap || (total+len(piece)+joinLen > s.chunkSize && total > 0) {
				drop := len(window[0])
				if len(window) > 1 {
					drop += sepLen
				}
				total -= drop
				window = window[1:]
			}
		}
		if len(window) > 0 {
			total += sepLen
		}
		window = append(window, piece)
		total += len(piece)
	}

	if doc := joinPieces(window, sep); doc != "" {
		docs = append(docs, doc)
	}

	return docs
}

// splitOn splits text by sep; the empty separator splits into single
// runes. Empty fragments are dropped.
func splitOn(text, sep string) []string {
	var parts []string
	if sep == "" {
		for _, r := range text {
			parts = append(parts, string(r))
		}
		return parts
	}
	for _, p := range strings.Split(text, sep) {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return parts
}

// joinPieces reassembles window pieces with their separator and trims
// surrounding whitespace.
func joinPieces(pieces []string, sep string) string {
	return strings.TrimSpace(strings.Join(pieces, sep))
}
