// Package openai provides an audio transcription adapter using the
// OpenAI API.
package openai

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/corpora-labs/corpora-cli/internal/core/ports/driven"
)

// Ensure Transcriber implements the interface.
var _ driven.Transcriber = (*Transcriber)(nil)

// Default configuration values. Transcription uploads whole audio
// files, so the timeout is generous.
const (
	DefaultModel   = "gpt-4o-mini-transcribe"
	DefaultTimeout = 5 * time.Minute
)

// Config holds configuration for the OpenAI transcription service.
type Config struct {
	// APIKey is the OpenAI API key (required).
	APIKey string

	// BaseURL overrides the API base URL. Empty means the official
	// endpoint.
	BaseURL string

	// Model is the transcription model (default: gpt-4o-mini-transcribe).
	Model string

	// Timeout is the request timeout (default: 5m).
	Timeout time.Duration
}

// Transcriber converts audio files to text using the OpenAI API.
type Transcriber struct {
	client *goopenai.Client
	model  string
}

// NewTranscriber creates a new OpenAI transcriber.
func NewTranscriber(cfg Config) (*Transcriber, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai: API key is required")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	clientCfg := goopenai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	clientCfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}

	return &Transcriber{
		client: goopenai.NewClientWithConfig(clientCfg),
		model:  cfg.Model,
	}, nil
}

// Transcribe uploads the audio file and returns its transcript.
func (t *Transcriber) Transcribe(ctx context.Context, path string) (string, error) {
	resp, err := t.client.CreateTranscription(ctx, goopenai.AudioRequest{
		Model:    t.model,
		FilePath: path,
	})
	if err != nil {
		return "", fmt.Errorf("openai: transcribe %s: %w", path, err)
	}
	return strings.TrimSpace(resp.Text), nil
}

// ModelName returns the name of the transcription model being used.
func (t *Transcriber) ModelName() string {
	return t.model
}

// Close releases resources.
func (t *Transcriber) Close() error {
	return nil
}
