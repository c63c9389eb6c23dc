package telemetry_test

import (
	"context"
	"errors"
	"testing"

	lib "github.com/prometheus/client_golang/prometheus"
	tdd "github.com/stretchr/testify/assert"

	"go.rmagent.dev/core/telemetry"
)

func TestObserveDispatchCountsByOutcomeKind(t *testing.T) {
	reg := lib.NewRegistry()
	m, err := telemetry.NewMetrics(reg)
	tdd.NoError(t, err)

	m.ObserveDispatch("Succeeded")
	m.ObserveDispatch("NotFound")
	m.ObserveDispatch("NotFound")

	families, err := m.Gather()
	tdd.NoError(t, err)
	tdd.NotEmpty(t, families)
}

func TestSetPendingDepthAndWatchdogOutstanding(t *testing.T) {
	reg := lib.NewRegistry()
	m, err := telemetry.NewMetrics(reg)
	tdd.NoError(t, err)

	m.SetPendingDepth(7)
	m.SetWatchdogOutstanding(3)

	families, err := m.Gather()
	tdd.NoError(t, err)

	var sawPending, sawWatchdog bool
	for _, f := range families {
		switch f.GetName() {
		case "rmagent_pending_depth":
			sawPending = true
			tdd.Equal(t, float64(7), f.GetMetric()[0].GetGauge().GetValue())
		case "rmagent_watchdog_outstanding":
			sawWatchdog = true
			tdd.Equal(t, float64(3), f.GetMetric()[0].GetGauge().GetValue())
		}
	}
	tdd.True(t, sawPending)
	tdd.True(t, sawWatchdog)
}

func TestHandlerIsNotNil(t *testing.T) {
	reg := lib.NewRegistry()
	m, err := telemetry.NewMetrics(reg)
	tdd.NoError(t, err)

	tdd.NotNil(t, m.Handler(nil))
}

func TestTracerWrapsDispatchOutcome(t *testing.T) {
	tr := telemetry.NewTracer("test")
	boom := errors.New("boom")

	err := tr.Dispatch(context.Background(), "sn-1", func(context.Context) error {
		return boom
	})
	tdd.ErrorIs(t, err, boom)

	err = tr.Send(context.Background(), "sn-2", func(context.Context) error {
		return nil
	})
	tdd.NoError(t, err)
}
