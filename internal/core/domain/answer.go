package domain

// Refusal is the fixed string returned whenever an answer cannot be
// grounded in retrieved evidence. Callers compare against it verbatim;
// the wording must never change between the prompt and the post-check.
const Refusal = "I don't know based on the provided documents."

// Answer is the terminal result of one question. There are exactly two
// shapes: a citation-bearing grounded answer, or Refusal.
type Answer struct {
	// Text is the generated answer or the refusal string.
	Text string `json:"answer"`

	// Sources are the retrieved chunks the answer was grounded in,
	// in retrieval order. Empty when no evidence was found.
	Sources []ChunkRecord `json:"sources"`
}

// Refused reports whether the answer is the fixed refusal.
func (a *Answer) Refused() bool {
	return a.Text == Refusal
}
