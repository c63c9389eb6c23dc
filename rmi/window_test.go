package rmi_test

import (
	"testing"
	"time"

	tdd "github.com/stretchr/testify/assert"

	"go.rmagent.dev/core/envelope"
	"go.rmagent.dev/core/rmi"
)

func TestEvaluateAbsentWindowIsPresent(t *testing.T) {
	tdd.Equal(t, rmi.Present, rmi.Evaluate(nil, time.Now()))
}

func TestEvaluatePastFutureMutualExclusion(t *testing.T) {
	now := time.Unix(1_000_000, 0)

	past := &envelope.Window{Begin: 900_000, Duration: 60}
	tdd.Equal(t, rmi.Past, rmi.Evaluate(past, now))

	future := &envelope.Window{Begin: 1_000_100, Duration: 60}
	tdd.Equal(t, rmi.Future, rmi.Evaluate(future, now))

	present := &envelope.Window{Begin: 999_990, Duration: 60}
	tdd.Equal(t, rmi.Present, rmi.Evaluate(present, now))
}

func TestEligibleAt(t *testing.T) {
	w := &envelope.Window{Begin: 1_700_000_000, Duration: 30}
	tdd.Equal(t, time.Unix(1_700_000_000, 0), rmi.EligibleAt(w))
}
