package service

// An Outcome is the result of a best-effort step.
// A degraded outcome carries the swallowed error and never aborts the calling flow.
type Outcome struct {
	Err error
}

// OK returns a successful Outcome.
func OK() Outcome {
	return Outcome{}
}

// Degraded returns an Outcome for a failed best-effort step.
func Degraded(err error) Outcome {
	return Outcome{Err: err}
}

// IsDegraded returns true when the step failed.
func (o Outcome) IsDegraded() bool {
	return o.Err != nil
}
