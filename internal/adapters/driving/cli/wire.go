package cli

import (
	"fmt"

	filecache "github.com/corpora-labs/corpora-cli/internal/adapters/driven/cache/file"
	fileconfig "github.com/corpora-labs/corpora-cli/internal/adapters/driven/config/file"
	embeddingopenai "github.com/corpora-labs/corpora-cli/internal/adapters/driven/embedding/openai"
	indexsqlite "github.com/corpora-labs/corpora-cli/internal/adapters/driven/index/sqlite"
	llmopenai "github.com/corpora-labs/corpora-cli/internal/adapters/driven/llm/openai"
	transcribeopenai "github.com/corpora-labs/corpora-cli/internal/adapters/driven/transcribe/openai"
	"github.com/corpora-labs/corpora-cli/internal/chunker"
	"github.com/corpora-labs/corpora-cli/internal/core/ports/driven"
	"github.com/corpora-labs/corpora-cli/internal/core/ports/driving"
	"github.com/corpora-labs/corpora-cli/internal/core/services"
	"github.com/corpora-labs/corpora-cli/internal/normalisers/audio"
	"github.com/corpora-labs/corpora-cli/internal/normalisers/eml"
	"github.com/corpora-labs/corpora-cli/internal/normalisers/html"
	"github.com/corpora-labs/corpora-cli/internal/normalisers/image"
	"github.com/corpora-labs/corpora-cli/internal/normalisers/pdf"
	"github.com/corpora-labs/corpora-cli/internal/normalisers/plaintext"
)

// Services wired lazily on first use. Tests inject their own.
var (
	configPath string

	cfg            *fileconfig.Config
	builderService driving.Builder
	answerService  driving.Answerer
)

// ensureServices builds the full pipeline from configuration. Already
// injected services (tests) are left alone.
func ensureServices() error {
	if builderService != nil && answerService != nil {
		return nil
	}

	var err error
	path := configPath
	if path == "" {
		if path, err = fileconfig.DefaultPath(); err != nil {
			return err
		}
	}
	if cfg, err = fileconfig.Load(path); err != nil {
		return err
	}
	if err := cfg.EnsureDirs(); err != nil {
		return err
	}

	apiKey, err := cfg.APIKey()
	if err != nil {
		return err
	}

	embedder, err := embeddingopenai.NewEmbeddingService(embeddingopenai.Config{
		APIKey:  apiKey,
		BaseURL: cfg.OpenAI.BaseURL,
		Model:   cfg.OpenAI.EmbeddingModel,
	})
	if err != nil {
		return fmt.Errorf("embedding service: %w", err)
	}

	llm, err := llmopenai.NewLLMService(llmopenai.Config{
		APIKey:  apiKey,
		BaseURL: cfg.OpenAI.BaseURL,
		Model:   cfg.OpenAI.ChatModel,
	})
	if err != nil {
		return fmt.Errorf("llm service: %w", err)
	}

	transcriber, err := transcribeopenai.NewTranscriber(transcribeopenai.Config{
		APIKey:  apiKey,
		BaseURL: cfg.OpenAI.BaseURL,
		Model:   cfg.OpenAI.TranscriptionModel,
	})
	if err != nil {
		return fmt.Errorf("transcription service: %w", err)
	}

	imageCache, err := filecache.NewCache(cfg.ImageTextCacheDir())
	if err != nil {
		return fmt.Errorf("image cache: %w", err)
	}
	emailCache, err := filecache.NewCache(cfg.EmailTextCacheDir())
	if err != nil {
		return fmt.Errorf("email cache: %w", err)
	}
	transcriptCache, err := filecache.NewCache(cfg.TranscriptCacheDir())
	if err != nil {
		return fmt.Errorf("transcript cache: %w", err)
	}

	index, err := indexsqlite.NewIndex(cfg.IndexDir, cfg.Collection)
	if err != nil {
		return fmt.Errorf("chunk index: %w", err)
	}

	normalisers := []driven.Normaliser{
		plaintext.New(),
		html.New(),
		pdf.New(pdf.WithMinTextChars(cfg.MinPDFChars)),
		eml.New(emailCache),
		image.New(llm, imageCache),
		audio.New(transcriber, transcriptCache),
	}

	splitter := chunker.New(
		chunker.WithChunkSize(cfg.ChunkSize),
		chunker.WithOverlap(cfg.ChunkOverlap),
	)

	builderService = services.NewIngestService(cfg.DataDir, normalisers, splitter, embedder, index)
	answerService = services.NewAnswerService(embedder, index, llm)
	return nil
}

// topK returns the configured retrieval depth, falling back to the
// service default when no config is loaded.
func topK() int {
	if cfg != nil {
		return cfg.TopK
	}
	return services.DefaultTopK
}
