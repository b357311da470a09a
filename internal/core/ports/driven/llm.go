package driven

import "context"

// LLMService provides the generative capability used by the grounded
// answer generator. Faults are propagated verbatim: the core cannot
// safely synthesise a truthful answer without the model.
type LLMService interface {
	// Chat sends a system instruction plus a user prompt and returns
	// the generated text.
	Chat(ctx context.Context, system, user string) (string, error)

	// ModelName returns the name of the model being used.
	ModelName() string

	// Close releases resources.
	Close() error
}

// VisionService describes an image for the image normaliser.
type VisionService interface {
	// Describe sends an analysis prompt together with an image (as a
	// data URL) and returns the model's raw text output.
	Describe(ctx context.Context, prompt, imageDataURL string) (string, error)
}

// Transcriber converts an audio artifact into text for the audio
// normaliser.
type Transcriber interface {
	// Transcribe transcribes the audio file at path.
	Transcribe(ctx context.Context, path string) (string, error)
}
