package domain

// Type identifies the artifact format a document was derived from.
// It selects downstream formatting and is carried into every chunk.
type Type string

// Known artifact types.
const (
	TypeText  Type = "text"
	TypeHTML  Type = "html"
	TypePDF   Type = "pdf"
	TypeImage Type = "image"
	TypeAudio Type = "audio"
	TypeEmail Type = "email"
)

// Metadata is the typed per-document record carried through the pipeline.
// Optional fields are populated per Type and validated at the normaliser
// boundary rather than trusted structurally downstream.
type Metadata struct {
	// Source is a stable, path-like identifier unique per artifact.
	// It is the traceability key for citations.
	Source string `json:"source"`

	// Type is the artifact format.
	Type Type `json:"type"`

	// ChunkIndex is the 1-based, per-source position of a chunk.
	// Zero on documents that have not been chunked yet.
	ChunkIndex int `json:"chunk_index,omitempty"`

	// Page is the 1-based page number (PDF only).
	Page int `json:"page,omitempty"`

	// Email header fields (email only).
	Subject string `json:"subject,omitempty"`
	Date    string `json:"date,omitempty"`
	From    string `json:"from,omitempty"`
	To      string `json:"to,omitempty"`

	// Degraded marks best-effort fallback output from a normaliser
	// that could not fully extract the artifact.
	Degraded bool `json:"degraded,omitempty"`
}

// Document is the uniform textual representation of one artifact after
// normalisation. Immutable once produced; consumed by the chunker and
// discarded afterwards (not persisted itself).
type Document struct {
	// Content is the full normalised text.
	Content string

	// Metadata tags the source and type plus format-specific fields.
	Metadata Metadata
}

// Chunk is a retrieval-sized window of a Document's content.
type Chunk struct {
	// Content is the text of this window.
	Content string

	// Metadata is the parent document's metadata with ChunkIndex set.
	Metadata Metadata
}

// ChunkRecord is the persisted form of a chunk in the vector index.
type ChunkRecord struct {
	// ID is the deterministic identity hash, see ChunkID.
	ID string `json:"id"`

	// Content is the chunk text.
	Content string `json:"content"`

	// Metadata is the chunk metadata.
	Metadata Metadata `json:"metadata"`

	// Embedding is the vector representation of Content.
	Embedding []float32 `json:"-"`
}

// SearchResult pairs a retrieved record with its similarity to the query.
type SearchResult struct {
	Record ChunkRecord

	// Similarity is the cosine similarity score, higher is closer.
	Similarity float64
}
