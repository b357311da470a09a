package driven

// DerivedCache stores expensive normaliser output keyed to an artifact
// freshness token, so re-ingestion skips external calls when the source
// is unchanged. It is an injected storage handle, never an ambient path.
//
// Any read, parse or staleness failure is reported as a miss: the cache
// fails open to recomputation and never fails closed to a crash. Writes
// are whole-file and non-transactional; a crash between compute and
// persist simply forces recomputation next run.
type DerivedCache interface {
	// GetJSON loads the cached structured payload for the artifact at
	// path into out. It returns true only when a record exists and its
	// stored freshness token equals the artifact's current one.
	// rel is the artifact's stable identity used to derive the record
	// name; path is consulted for the current freshness token.
	GetJSON(path, rel string, out any) bool

	// PutJSON persists payload together with the artifact's current
	// freshness token, superseding any prior record.
	PutJSON(path, rel string, payload any) error

	// GetText loads a plain-text record by artifact identity. Text
	// records carry no freshness token: when present they are trusted
	// verbatim, supporting manual correction workflows.
	GetText(rel string) (string, bool)

	// PutText persists a plain-text record.
	PutText(rel, text string) error
}
