package sync

// ItemError records a single path that couldn't be transferred, along with
// the reason.
type ItemError struct {
	Path string
	Err  error
}

// Outcome accumulates the per-item results of one phase. Per-item failures
// never abort the phase; they're recorded here and surfaced to the caller
// for reporting.
type Outcome struct {
	Succeeded []string
	Failed    []ItemError
}

func (o *Outcome) succeeded(path string) {
	o.Succeeded = append(o.Succeeded, path)
}

func (o *Outcome) failed(path string, err error) {
	o.Failed = append(o.Failed, ItemError{Path: path, Err: err})
}

// Success reports the tolerant success criterion: a phase succeeded if it
// transferred at least one item, or had nothing to fail at. Callers that
// want stricter semantics should check Failed directly.
func (o Outcome) Success() bool {
	return len(o.Failed) == 0 || len(o.Succeeded) > 0
}

// Result is the outcome of a full sync run, one Outcome per pass.
type Result struct {
	// RunID tags all log lines of a run so that interleaved output from
	// repeated watch-mode runs can be told apart.
	RunID string

	Additions Outcome
	Deletions Outcome
	Updates   Outcome
}

// Success reports the tolerant criterion across all three passes.
func (r Result) Success() bool {
	return r.Additions.Success() && r.Deletions.Success() && r.Updates.Success()
}

// Failures returns every per-item failure across all passes.
func (r Result) Failures() []ItemError {
	var failures []ItemError
	failures = append(failures, r.Additions.Failed...)
	failures = append(failures, r.Deletions.Failed...)
	failures = append(failures, r.Updates.Failed...)
	return failures
}

// Transferred returns the number of items that transferred or were removed
// successfully across all passes.
func (r Result) Transferred() int {
	return len(r.Additions.Succeeded) + len(r.Deletions.Succeeded) +
		len(r.Updates.Succeeded)
}
