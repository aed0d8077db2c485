// Package chunker splits document text into overlapping, token-bounded
// segments with deterministic ordering and exhaustive character coverage.
package chunker

import (
	"strings"
	"time"

	"github.com/corpusworks/docindex/internal/domain"
	"github.com/google/uuid"
)

// Separator cascade, coarsest first: paragraph breaks, line breaks, sentence
// boundaries, then spaces. Text that still exceeds the budget after all of
// these is cut at raw rune windows.
var separators = []string{"\n\n", "\n", ". ", "! ", "? ", " "}

// Config controls chunking.
type Config struct {
	ChunkTokens   int
	OverlapTokens int
}

// DefaultConfig provides the default token budget and overlap.
func DefaultConfig() Config {
	return Config{
		ChunkTokens:   500,
		OverlapTokens: 50,
	}
}

// Piece is one output segment before it becomes a persisted chunk.
// StartChar/EndChar are rune offsets into the source text; in index order
// the [StartChar, EndChar) windows cover the source without gaps, with at
// most the configured overlap between neighbours.
type Piece struct {
	Index      int
	Text       string
	StartChar  int
	EndChar    int
	TokenCount int
}

// Splitter produces ordered pieces from document text.
type Splitter struct {
	cfg       Config
	counter   TokenCounter
	annotator *Annotator
}

// NewSplitter validates the configuration and builds a Splitter.
// A nil annotator disables contextual prefixes.
func NewSplitter(cfg Config, counter TokenCounter, annotator *Annotator) (*Splitter, error) {
	if cfg.ChunkTokens <= 0 {
		cfg.ChunkTokens = DefaultConfig().ChunkTokens
	}
	if cfg.OverlapTokens < 0 {
		cfg.OverlapTokens = 0
	}
	if cfg.OverlapTokens >= cfg.ChunkTokens {
		return nil, domain.NewDomainError(domain.ErrCodeChunkingFailed, "chunk overlap must be smaller than the chunk token budget")
	}
	if counter == nil {
		counter = EstimatorCounter{}
	}
	return &Splitter{
		cfg:       cfg,
		counter:   counter,
		annotator: annotator,
	}, nil
}

// Pieces splits text into token-bounded pieces with contiguous 0-based
// indices. Deterministic: the same text and configuration always yield the
// same sequence.
func (s *Splitter) Pieces(text string) []Piece {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	runes := []rune(text)
	atoms := s.atomize(text, 0)

	// Cumulative rune offsets per atom. Atoms concatenate back to the
	// source text, so offsets are exact.
	starts := make([]int, len(atoms))
	counts := make([]int, len(atoms))
	offset := 0
	for i, a := range atoms {
		starts[i] = offset
		counts[i] = s.counter.Count(a)
		offset += len([]rune(a))
	}
	atomEnd := func(i int) int { return starts[i] + len([]rune(atoms[i])) }

	var pieces []Piece
	first := 0
	for first < len(atoms) {
		last := first
		tokSum := counts[first]
		for last+1 < len(atoms) && tokSum+counts[last+1] <= s.cfg.ChunkTokens {
			last++
			tokSum += counts[last]
		}

		start := starts[first]
		end := atomEnd(last)
		pieces = append(pieces, Piece{
			Index:      len(pieces),
			Text:       string(runes[start:end]),
			StartChar:  start,
			EndChar:    end,
			TokenCount: tokSum,
		})

		if last+1 >= len(atoms) {
			break
		}

		// Retain a tail of atoms worth roughly OverlapTokens as the seed
		// of the next piece. The next piece must start strictly after the
		// current one to guarantee forward progress.
		next := last + 1
		if s.cfg.OverlapTokens > 0 {
			remain := s.cfg.OverlapTokens
			for next > first+1 && remain > 0 {
				remain -= counts[next-1]
				if remain >= 0 {
					next--
				}
			}
		}
		first = next
	}

	return pieces
}

// Split runs the full chunking stage for a document: pieces, contextual
// annotation and chunk construction. Indices are contiguous from zero and
// (DocumentID, ChunkIndex) is unique within the output.
func (s *Splitter) Split(text string, doc *domain.Document) []domain.Chunk {
	pieces := s.Pieces(text)
	if len(pieces) == 0 {
		return nil
	}

	now := time.Now().UTC()
	chunks := make([]domain.Chunk, 0, len(pieces))
	for _, p := range pieces {
		content := p.Text
		if s.annotator != nil {
			content = s.annotator.Annotate(doc, p, len(pieces), text)
		}
		chunks = append(chunks, domain.Chunk{
			ID:              uuid.NewString(),
			DocumentID:      doc.ID,
			ChunkIndex:      p.Index,
			Content:         content,
			OriginalContent: p.Text,
			StartChar:       p.StartChar,
			EndChar:         p.EndChar,
			CreatedAt:       now,
		})
	}
	return chunks
}

// atomize recursively splits text with the separator cascade until every
// atom fits the token budget. Separators stay attached to the preceding
// atom so concatenating atoms reproduces the input exactly.
func (s *Splitter) atomize(text string, sepIdx int) []string {
	if text == "" {
		return nil
	}
	if s.counter.Count(text) <= s.cfg.ChunkTokens {
		return []string{text}
	}
	if sepIdx >= len(separators) {
		return s.splitRunes(text)
	}

	parts := strings.SplitAfter(text, separators[sepIdx])
	if len(parts) == 1 {
		return s.atomize(text, sepIdx+1)
	}

	var out []string
	for _, p := range parts {
		out = append(out, s.atomize(p, sepIdx+1)...)
	}
	return out
}

// splitRunes cuts separator-free text into fixed rune windows. A window of
// ChunkTokens runes can never exceed ChunkTokens tokens under either
// counting scheme.
func (s *Splitter) splitRunes(text string) []string {
	runes := []rune(text)
	window := s.cfg.ChunkTokens
	out := make([]string, 0, len(runes)/window+1)
	for start := 0; start < len(runes); start += window {
		end := start + window
		if end > len(runes) {
			end = len(runes)
		}
		out = append(out, string(runes[start:end]))
	}
	return out
}
