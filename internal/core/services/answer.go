package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/corpora-labs/corpora-cli/internal/core/domain"
	"github.com/corpora-labs/corpora-cli/internal/core/ports/driven"
	"github.com/corpora-labs/corpora-cli/internal/core/ports/driving"
	"github.com/corpora-labs/corpora-cli/internal/logger"
)

// Ensure AnswerService implements the interface.
var _ driving.Answerer = (*AnswerService)(nil)

// DefaultTopK is the number of chunks retrieved when the caller does
// not specify one.
const DefaultTopK = 5

// maxEvidenceChars limits each evidence block so one long chunk cannot
// drown out the others.
const maxEvidenceChars = 900

const systemPrompt = `You are a retrieval-augmented assistant answering questions over an indexed document collection.

RULES (must follow):
- Use ONLY the provided SOURCES as evidence.
- If the answer is not clearly supported by the SOURCES, say exactly:
  "I don't know based on the provided documents."
- Do NOT use outside knowledge.
- Do NOT invent names, dates, addresses, codes, or rules.
- Your answer MUST include citations like [1], [2] referring to the SOURCES.
- Keep the answer short and factual (2-6 sentences).`

// AnswerService retrieves relevant chunks and generates a grounded,
// citation-constrained answer.
type AnswerService struct {
	embedder driven.EmbeddingService
	index    driven.ChunkIndex
	llm      driven.LLMService
}

// NewAnswerService creates a new answer service.
func NewAnswerService(
	embedder driven.EmbeddingService,
	index driven.ChunkIndex,
	llm driven.LLMService,
) *AnswerService {
	return &AnswerService{
		embedder: embedder,
		index:    index,
		llm:      llm,
	}
}

// Ask retrieves the k best-matching chunks for the query and asks the
// model for an answer grounded in them. There are exactly two terminal
// outcomes: a cited answer, or the refusal string. A reply that makes
// a claim without citations is rewritten to the refusal rather than
// passed through.
func (s *AnswerService) Ask(ctx context.Context, query string, k int) (*domain.Answer, error) {
	logger.Section("Answer Generation")

	query = strings.TrimSpace(query)
	if query == "" {
		return nil, domain.ErrInvalidInput
	}
	if k <= 0 {
		k = DefaultTopK
	}

	vector, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	results, err := s.index.Search(ctx, vector, k)
	if err != nil {
		return nil, fmt.Errorf("search index: %w", err)
	}
	logger.Debug("retrieved %d chunks for %q", len(results), query)

	if len(results) == 0 {
		return &domain.Answer{Text: domain.Refusal}, nil
	}

	sources := make([]domain.ChunkRecord, len(results))
	for i, r := range results {
		sources[i] = r.Record
	}

	reply, err := s.llm.Chat(ctx, systemPrompt, userPrompt(query, sources))
	if err != nil {
		return nil, fmt.Errorf("generate answer: %w", err)
	}

	answer := strings.TrimSpace(reply)
	if answer != domain.Refusal && !hasCitation(answer) {
		logger.Warn("model reply had no citations, refusing instead")
		answer = domain.Refusal
	}

	return &domain.Answer{Text: answer, Sources: sources}, nil
}

// userPrompt assembles the question and evidence blocks.
func userPrompt(query string, sources []domain.ChunkRecord) string {
	return fmt.Sprintf(`USER QUESTION:
%s

SOURCES:
%s

TASK:
Answer the question using ONLY the SOURCES.
- If unsupported, output exactly: %q
- Include citations like [1], [2] in the answer.
- Do not mention the word "SOURCES" or "context" in the answer.`,
		query, formatEvidence(sources), domain.Refusal)
}

// formatEvidence renders the retrieved chunks as numbered blocks. Each
// block is capped and marked with an ellipsis when truncated.
func formatEvidence(sources []domain.ChunkRecord) string {
	blocks := make([]string, len(sources))
	for i, rec := range sources {
		content := strings.TrimSpace(rec.Content)
		if len(content) > maxEvidenceChars {
			content = strings.TrimRight(content[:maxEvidenceChars], " \t\n") + "…"
		}
		blocks[i] = fmt.Sprintf("SOURCE [%d]\ntype: %s\nsource: %s\ncontent:\n%s\n",
			i+1, rec.Metadata.Type, rec.Metadata.Source, content)
	}
	return strings.TrimSpace(strings.Join(blocks, "\n---\n"))
}

// hasCitation checks for bracketed source references.
func hasCitation(answer string) bool {
	return strings.Contains(answer, "[") && strings.Contains(answer, "]")
}
