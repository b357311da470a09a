// Package file provides TOML-based configuration for the Corpora CLI.
// A missing config file is not an error: every field has a usable
// default so the tool works out of the box with just an API key.
package file

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

// Default configuration values.
const (
	DefaultCollection         = "final_rag_collection"
	DefaultChunkSize          = 1200
	DefaultChunkOverlap       = 200
	DefaultTopK               = 5
	DefaultMinPDFChars        = 200
	DefaultAPIKeyEnv          = "OPENAI_API_KEY"
	DefaultChatModel          = "gpt-4o-mini"
	DefaultEmbeddingModel     = "text-embedding-3-small"
	DefaultTranscriptionModel = "gpt-4o-mini-transcribe"
)

// Data subdirectories scanned during ingestion, one per artifact kind.
var dataSubdirs = []string{"txt", "html", "pdf", "images", "audio", "eml"}

// Cache subdirectories for derived text.
var cacheSubdirs = []string{"transcripts", "image_text", "email_text"}

// Config holds the full CLI configuration.
type Config struct {
	// DataDir is the root of the source artifacts.
	DataDir string `toml:"data_dir"`

	// CacheDir holds derived-text caches (transcripts, image
	// descriptions, parsed emails).
	CacheDir string `toml:"cache_dir"`

	// IndexDir holds the persistent chunk database.
	IndexDir string `toml:"index_dir"`

	// Collection is the named chunk collection inside the index.
	Collection string `toml:"collection"`

	// ChunkSize and ChunkOverlap control the splitter, in characters.
	ChunkSize    int `toml:"chunk_size"`
	ChunkOverlap int `toml:"chunk_overlap"`

	// TopK is the default number of chunks retrieved per question.
	TopK int `toml:"top_k"`

	// MinPDFChars is the minimum extracted length for a PDF page to
	// be indexed.
	MinPDFChars int `toml:"min_pdf_chars"`

	OpenAI OpenAIConfig `toml:"openai"`
}

// OpenAIConfig holds model and credential settings.
type OpenAIConfig struct {
	// APIKeyEnv names the environment variable holding the API key.
	// The key itself never lives in the config file.
	APIKeyEnv string `toml:"api_key_env"`

	// BaseURL overrides the API endpoint for compatible providers.
	BaseURL string `toml:"base_url"`

	ChatModel          string `toml:"chat_model"`
	EmbeddingModel     string `toml:"embedding_model"`
	TranscriptionModel string `toml:"transcription_model"`
}

// DefaultPath returns the default config file location,
// ~/.corpora/config.toml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, ".corpora", "config.toml"), nil
}

// Load reads the config file at path, falling back to defaults for
// anything unset. A nonexistent file yields the pure defaults. A .env
// file in the working directory is loaded first so the API key can
// live there.
func Load(path string) (*Config, error) {
	// Missing .env is the common case and not an error.
	_ = godotenv.Load()

	cfg := defaults()

	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	if err := toml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	cfg.applyDefaults()
	return cfg, nil
}

func defaults() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// applyDefaults fills any zero-valued field.
func (c *Config) applyDefaults() {
	home, _ := os.UserHomeDir()
	base := filepath.Join(home, ".corpora")

	if c.DataDir == "" {
		c.DataDir = filepath.Join(base, "data")
	}
	if c.CacheDir == "" {
		c.CacheDir = filepath.Join(base, "cache")
	}
	if c.IndexDir == "" {
		c.IndexDir = filepath.Join(base, "index")
	}
	if c.Collection == "" {
		c.Collection = DefaultCollection
	}
	if c.ChunkSize <= 0 {
		c.ChunkSize = DefaultChunkSize
	}
	if c.ChunkOverlap <= 0 {
		c.ChunkOverlap = DefaultChunkOverlap
	}
	if c.TopK <= 0 {
		c.TopK = DefaultTopK
	}
	if c.MinPDFChars <= 0 {
		c.MinPDFChars = DefaultMinPDFChars
	}
	if c.OpenAI.APIKeyEnv == "" {
		c.OpenAI.APIKeyEnv = DefaultAPIKeyEnv
	}
	if c.OpenAI.ChatModel == "" {
		c.OpenAI.ChatModel = DefaultChatModel
	}
	if c.OpenAI.EmbeddingModel == "" {
		c.OpenAI.EmbeddingModel = DefaultEmbeddingModel
	}
	if c.OpenAI.TranscriptionModel == "" {
		c.OpenAI.TranscriptionModel = DefaultTranscriptionModel
	}
}

// APIKey resolves the OpenAI API key from the configured environment
// variable.
func (c *Config) APIKey() (string, error) {
	key := os.Getenv(c.OpenAI.APIKeyEnv)
	if key == "" {
		return "", fmt.Errorf("environment variable %s is not set", c.OpenAI.APIKeyEnv)
	}
	return key, nil
}

// EnsureDirs creates the data, cache and index directory trees.
func (c *Config) EnsureDirs() error {
	for _, sub := range dataSubdirs {
		if err := os.MkdirAll(filepath.Join(c.DataDir, sub), 0o755); err != nil {
			return fmt.Errorf("creating data directory: %w", err)
		}
	}
	for _, sub := range cacheSubdirs {
		if err := os.MkdirAll(filepath.Join(c.CacheDir, sub), 0o755); err != nil {
			return fmt.Errorf("creating cache directory: %w", err)
		}
	}
	if err := os.MkdirAll(c.IndexDir, 0o700); err != nil {
		return fmt.Errorf("creating index directory: %w", err)
	}
	return nil
}

// TranscriptCacheDir returns the plain-text transcript cache location.
func (c *Config) TranscriptCacheDir() string {
	return filepath.Join(c.CacheDir, "transcripts")
}

// ImageTextCacheDir returns the image description cache location.
func (c *Config) ImageTextCacheDir() string {
	return filepath.Join(c.CacheDir, "image_text")
}

// EmailTextCacheDir returns the parsed email cache location.
func (c *Config) EmailTextCacheDir() string {
	return filepath.Join(c.CacheDir, "email_text")
}
