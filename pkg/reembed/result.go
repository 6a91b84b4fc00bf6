package reembed

import "fmt"

// Result contains statistics from a re-embedding run.
type Result struct {
	Total   int
	Updated int
	Errored int
}

// Summary returns a human-readable summary of the re-embedding result.
func (r *Result) Summary() string {
	return fmt.Sprintf(
		"Re-embed complete: %d updated, %d errored (of %d chunks)",
		r.Updated, r.Errored, r.Total,
	)
}
