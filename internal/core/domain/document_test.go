package domain

import "testing"

func TestChunkID_Deterministic(t *testing.T) {
	a := ChunkID("docs/a.txt", 2, "hello world")
	b := ChunkID("docs/a.txt", 2, "hello world")
	if a != b {
		t.Errorf("same triple produced different ids: %s vs %s", a, b)
	}
	if len(a) != 64 {
		t.Errorf("expected 64 hex chars, got %d", len(a))
	}
}

func TestChunkID_KnownVector(t *testing.T) {
	// sha256("notes.txt::chunk=1:::Room 204 is on floor 2.")
	got := ChunkID("notes.txt", 1, "Room 204 is on floor 2.")
	want := "83d3036a333c3ee093f67ca5cd6d9fc81305c2f7a58a4b3044dc2ab2d2732ce5"
	if got != want {
		t.Errorf("ChunkID mismatch:\n got %s\nwant %s", got, want)
	}
}

func TestChunkID_SensitiveToEveryComponent(t *testing.T) {
	base := ChunkID("a.txt", 1, "content")
	if ChunkID("b.txt", 1, "content") == base {
		t.Error("id ignored source")
	}
	if ChunkID("a.txt", 2, "content") == base {
		t.Error("id ignored chunk index")
	}
	if ChunkID("a.txt", 1, "content.") == base {
		t.Error("id ignored content")
	}
}

func TestRecordFromChunk(t *testing.T) {
	c := Chunk{
		Content:  "Room 204 is on floor 2.",
		Metadata: Metadata{Source: "notes.txt", Type: TypeText, ChunkIndex: 1},
	}
	rec := RecordFromChunk(c)
	if rec.ID != ChunkID("notes.txt", 1, c.Content) {
		t.Error("record id does not match ChunkID of the triple")
	}
	if rec.Content != c.Content {
		t.Error("record content changed")
	}
	if rec.Metadata != c.Metadata {
		t.Error("record metadata changed")
	}
	if rec.Embedding != nil {
		t.Error("embedding should not be set before the batch is embedded")
	}
}

func TestAnswerRefused(t *testing.T) {
	a := &Answer{Text: Refusal}
	if !a.Refused() {
		t.Error("exact refusal string not recognised")
	}
	a = &Answer{Text: "The room is on floor 2 [1]."}
	if a.Refused() {
		t.Error("grounded answer misclassified as refusal")
	}
}
