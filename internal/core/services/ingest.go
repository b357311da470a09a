package services

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/corpora-labs/corpora-cli/internal/core/domain"
	"github.com/corpora-labs/corpora-cli/internal/core/ports/driven"
	"github.com/corpora-labs/corpora-cli/internal/core/ports/driving"
	"github.com/corpora-labs/corpora-cli/internal/logger"
)

// Ensure IngestService implements the interface.
var _ driving.Builder = (*IngestService)(nil)

// Splitter turns normalised documents into chunks.
type Splitter interface {
	Split(docs []domain.Document) []domain.Chunk
}

// IngestService walks the data directory, normalises every supported
// artifact and loads the resulting chunks into the index.
type IngestService struct {
	dataDir     string
	normalisers []driven.Normaliser
	splitter    Splitter
	embedder    driven.EmbeddingService
	index       driven.ChunkIndex

	byExt map[string]driven.Normaliser
}

// NewIngestService creates a new ingestion service.
func NewIngestService(
	dataDir string,
	normalisers []driven.Normaliser,
	splitter Splitter,
	embedder driven.EmbeddingService,
	index driven.ChunkIndex,
) *IngestService {
	byExt := make(map[string]driven.Normaliser)
	for _, n := range normalisers {
		for _, ext := range n.Extensions() {
			byExt[strings.ToLower(ext)] = n
		}
	}
	return &IngestService{
		dataDir:     dataDir,
		normalisers: normalisers,
		splitter:    splitter,
		embedder:    embedder,
		index:       index,
		byExt:       byExt,
	}
}

// BuildOrRefresh populates the chunk index from the data directory.
// A non-empty collection is left untouched unless reset is set, so
// re-running the command never duplicates entries. Embedding failures
// abort the build: a partially embedded batch must not reach the index.
func (s *IngestService) BuildOrRefresh(ctx context.Context, reset bool) (*driving.BuildReport, error) {
	logger.Section("Ingestion")

	report := &driving.BuildReport{}
	report.CountBefore = s.index.Count(ctx)

	if reset {
		logger.Info("resetting collection (%d chunks)", report.CountBefore)
		if err := s.index.Reset(ctx); err != nil {
			return nil, fmt.Errorf("reset index: %w", err)
		}
	}

	if count := s.index.Count(ctx); count > 0 {
		logger.Info("collection already holds %d chunks, skipping ingestion", count)
		report.Skipped = true
		report.CountAfter = count
		return report, nil
	}

	docs, err := s.collectDocuments(ctx)
	if err != nil {
		return nil, err
	}
	report.Documents = len(docs)

	chunks := s.splitter.Split(docs)
	report.Chunks = len(chunks)
	if len(chunks) == 0 {
		logger.Warn("no chunks produced from %s", s.dataDir)
		report.CountAfter = s.index.Count(ctx)
		return report, nil
	}

	records := make([]domain.ChunkRecord, len(chunks))
	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		records[i] = domain.RecordFromChunk(chunk)
		texts[i] = chunk.Content
	}

	logger.Debug("embedding %d chunks", len(texts))
	embeddings, err := s.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed chunks: %w", err)
	}
	if len(embeddings) != len(records) {
		return nil, fmt.Errorf("embed chunks: expected %d vectors, got %d", len(records), len(embeddings))
	}
	for i := range records {
		records[i].Embedding = embeddings[i]
	}

	if err := s.index.Upsert(ctx, records); err != nil {
		return nil, fmt.Errorf("upsert chunks: %w", err)
	}

	report.CountAfter = s.index.Count(ctx)
	logger.Info("indexed %d chunks from %d documents", report.Chunks, report.Documents)
	return report, nil
}

// collectDocuments walks the data directory in lexical order and
// normalises every artifact with a matching adapter. Parse failures on
// local formats are logged and skipped; failures that involve a paid
// external call (vision, transcription) abort the run so data loss is
// never silent.
func (s *IngestService) collectDocuments(ctx context.Context) ([]domain.Document, error) {
	var docs []domain.Document

	err := filepath.WalkDir(s.dataDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if strings.HasPrefix(d.Name(), ".") && path != s.dataDir {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		normaliser := s.normaliserFor(path)
		if normaliser == nil {
			logger.Debug("no adapter for %s, skipping", path)
			return nil
		}

		rel := s.relPath(path)
		normalised, err := normaliser.Normalise(ctx, path, rel)
		if err != nil {
			if externalCapability(normaliser.Type()) {
				return fmt.Errorf("normalise %s: %w", rel, err)
			}
			logger.Warn("skipping %s: %v", rel, err)
			return nil
		}

		docs = append(docs, normalised...)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", s.dataDir, err)
	}
	return docs, nil
}

// normaliserFor routes by extension first, then by content sniffing
// for files with missing or misleading extensions.
func (s *IngestService) normaliserFor(path string) driven.Normaliser {
	ext := strings.ToLower(filepath.Ext(path))
	if n, ok := s.byExt[ext]; ok {
		return n
	}

	mtype, err := mimetype.DetectFile(path)
	if err != nil {
		return nil
	}
	for _, n := range s.normalisers {
		for _, accepted := range n.MIMETypes() {
			if mtype.Is(accepted) {
				return n
			}
		}
	}
	return nil
}

// relPath derives the stable source identifier for an artifact.
func (s *IngestService) relPath(path string) string {
	rel, err := filepath.Rel(s.dataDir, path)
	if err != nil {
		return filepath.Base(path)
	}
	return filepath.ToSlash(rel)
}

// externalCapability reports whether the document type requires a
// billed external call to normalise.
func externalCapability(t domain.Type) bool {
	return t == domain.TypeImage || t == domain.TypeAudio
}
