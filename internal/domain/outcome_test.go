package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOutcome(t *testing.T) {
	var o Outcome
	o.Succeed()
	o.Succeed()
	o.Skip()
	o.Fail("record 1", errors.New("boom"))

	assert.Equal(t, 4, o.Total())
	assert.Equal(t, []UnitFailure{{Unit: "record 1", Error: "boom"}}, o.Failures)

	var merged Outcome
	merged.Merge(o)
	merged.Merge(o)
	assert.Equal(t, 4, merged.Succeeded)
	assert.Equal(t, 2, merged.Skipped)
	assert.Equal(t, 2, merged.Failed)
	assert.Len(t, merged.Failures, 2)
}

func TestOutcome_FailuresAreBounded(t *testing.T) {
	var o Outcome
	for i := range 200 {
		o.Fail(fmt.Sprintf("unit %d", i), errors.New("down"))
	}
	assert.Equal(t, 200, o.Failed)
	assert.Len(t, o.Failures, maxRecordedFailures)
}
