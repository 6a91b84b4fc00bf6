package ingest

import "fmt"

// Result contains statistics from ingesting one document.
type Result struct {
	DocumentID string
	FileName   string
	Chunks     int
	Embedded   int
	Errored    int
}

// Summary returns a human-readable summary of the ingestion result.
func (r *Result) Summary() string {
	return fmt.Sprintf(
		"Ingested %s as document %s: %d chunks (%d embedded, %d failed)",
		r.FileName, r.DocumentID, r.Chunks, r.Embedded, r.Errored,
	)
}
