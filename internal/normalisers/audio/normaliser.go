package audio

import (
	"context"
	"fmt"
	"strings"

	"github.com/corpora-labs/corpora-cli/internal/core/domain"
	"github.com/corpora-labs/corpora-cli/internal/core/ports/driven"
	"github.com/corpora-labs/corpora-cli/internal/logger"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser transcribes audio artifacts. Transcripts are cached as
// plain text files keyed by the artifact's stem; an existing transcript
// is trusted verbatim so operators can hand-correct recognition errors
// without the fix being overwritten on the next run.
type Normaliser struct {
	transcriber driven.Transcriber
	cache       driven.DerivedCache
}

// New creates a new audio normaliser.
func New(transcriber driven.Transcriber, cache driven.DerivedCache) *Normaliser {
	return &Normaliser{transcriber: transcriber, cache: cache}
}

// Type returns the document type this normaliser produces.
func (n *Normaliser) Type() domain.Type {
	return domain.TypeAudio
}

// Extensions returns the file extensions this normaliser handles.
func (n *Normaliser) Extensions() []string {
	return []string{".mp3"}
}

// MIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) MIMETypes() []string {
	return []string{"audio/mpeg"}
}

// Normalise returns the transcript as a single document. Transcription
// failures are fatal for the artifact: an audio file with no transcript
// has nothing to index.
func (n *Normaliser) Normalise(ctx context.Context, path, rel string) ([]domain.Document, error) {
	var transcript string
	if n.cache != nil {
		if cached, ok := n.cache.GetText(rel); ok {
			logger.Debug("transcript cache hit for %s", rel)
			transcript = cached
		}
	}

	if transcript == "" {
		fresh, err := n.transcriber.Transcribe(ctx, path)
		if err != nil {
			return nil, fmt.Errorf("transcribe %s: %w", rel, err)
		}
		transcript = strings.TrimSpace(fresh)

		if n.cache != nil {
			if err := n.cache.PutText(rel, transcript); err != nil {
				logger.Warn("caching transcript of %s failed: %v", rel, err)
			}
		}
	}

	if transcript == "" {
		return nil, nil
	}

	return []domain.Document{{
		Content: fmt.Sprintf("TYPE: audio\nSOURCE: %s\n\nTRANSCRIPT:\n%s", rel, transcript),
		Metadata: domain.Metadata{
			Source: rel,
			Type:   domain.TypeAudio,
		},
	}}, nil
}
