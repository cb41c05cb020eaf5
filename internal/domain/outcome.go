package domain

// UnitFailure records why one unit of a batch (a record, a date, a
// neighborhood) failed.
type UnitFailure struct {
	Unit  string `json:"unit"`
	Error string `json:"error"`
}

// Outcome tallies a batch that tolerates individual failures. Succeeded,
// Skipped and Failed always add up to the number of units attempted.
type Outcome struct {
	Succeeded int           `json:"succeeded"`
	Skipped   int           `json:"skipped"`
	Failed    int           `json:"failed"`
	Failures  []UnitFailure `json:"failures,omitempty"`
}

// maxRecordedFailures bounds Failures so a systemic outage does not produce
// an unbounded report. Failed still counts every failure.
const maxRecordedFailures = 50

// Succeed counts a unit that completed.
func (o *Outcome) Succeed() { o.Succeeded++ }

// Skip counts a unit that needed no work, such as a duplicate record.
func (o *Outcome) Skip() { o.Skipped++ }

// Fail counts a failed unit and records its error.
func (o *Outcome) Fail(unit string, err error) {
	o.Failed++
	if len(o.Failures) < maxRecordedFailures {
		o.Failures = append(o.Failures, UnitFailure{Unit: unit, Error: err.Error()})
	}
}

// Merge folds other into o.
func (o *Outcome) Merge(other Outcome) {
	o.Succeeded += other.Succeeded
	o.Skipped += other.Skipped
	o.Failed += other.Failed
	for _, f := range other.Failures {
		if len(o.Failures) >= maxRecordedFailures {
			break
		}
		o.Failures = append(o.Failures, f)
	}
}

// Total is the number of units attempted.
func (o Outcome) Total() int {
	return o.Succeeded + o.Skipped + o.Failed
}
