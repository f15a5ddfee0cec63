package transition

import (
	"go.uber.org/multierr"
)

// BatchResult collects the per-path results of a batch
type BatchResult struct {
	Results []Result `json:"results" yaml:"results"`
}

// Err combines every per-path error, or nil when all succeeded
func (b *BatchResult) Err() error {
	var err error
	for _, r := range b.Results {
		err = multierr.Append(err, r.Err)
	}
	return err
}

// Changed counts results that modified the filesystem
func (b *BatchResult) Changed() int {
	n := 0
	for _, r := range b.Results {
		if r.Changed() {
			n++
		}
	}
	return n
}

// TrackAll tracks every path. A failing path does not stop the others.
func (e *Engine) TrackAll(paths []string) *BatchResult {
	return e.each(paths, e.Track)
}

// UntrackAll untracks every path. A failing path does not stop the others.
func (e *Engine) UntrackAll(paths []string) *BatchResult {
	return e.each(paths, e.Untrack)
}

func (e *Engine) each(paths []string, op func(string) (Result, error)) *BatchResult {
	batch := &BatchResult{Results: make([]Result, 0, len(paths))}
	for _, p := range paths {
		res, _ := op(p)
		batch.Results = append(batch.Results, res)
	}
	if err := batch.Err(); err != nil {
		e.logger.Warn().
			Int("failed", len(multierr.Errors(err))).
			Int("total", len(paths)).
			Msg("Batch completed with errors")
	}
	return batch
}
