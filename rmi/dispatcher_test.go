package rmi_test

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	tdd "github.com/stretchr/testify/assert"

	"go.rmagent.dev/core/envelope"
	"go.rmagent.dev/core/rmi"
	"go.rmagent.dev/core/telemetry"
)

type echoService struct{}

func (echoService) Echo(args []any, _ map[string]any) (any, error) {
	if len(args) == 0 {
		return nil, nil
	}
	return args[0], nil
}

func (echoService) Fail(_ []any, _ map[string]any) (any, error) {
	return nil, errors.New("bad")
}

func (echoService) Panics(_ []any, _ map[string]any) (any, error) {
	panic("unexpected")
}

func TestDispatchClassMethod(t *testing.T) {
	d := rmi.NewDispatcher()
	d.RegisterClass("echoService", echoService{})

	ret := d.Dispatch(context.Background(), "sn-1", &envelope.Request{ClassName: "echoService", Method: "Echo", Args: []any{"hi"}})
	tdd.True(t, ret.IsSucceeded())
	tdd.Equal(t, "hi", ret.Value())
}

func TestDispatchFunction(t *testing.T) {
	d := rmi.NewDispatcher()
	d.RegisterFunction("ping", func(_ []any, _ map[string]any) (any, error) {
		return "pong", nil
	})

	ret := d.Dispatch(context.Background(), "sn-2", &envelope.Request{Method: "ping"})
	tdd.True(t, ret.IsSucceeded())
	tdd.Equal(t, "pong", ret.Value())
}

func TestDispatchNotFound(t *testing.T) {
	d := rmi.NewDispatcher()
	ret := d.Dispatch(context.Background(), "sn-3", &envelope.Request{Method: "missing"})
	tdd.True(t, ret.IsFailed())
	tdd.Equal(t, rmi.KindNotFound, ret.Kind())
}

func TestDispatchHandlerError(t *testing.T) {
	d := rmi.NewDispatcher()
	d.RegisterClass("echoService", echoService{})

	ret := d.Dispatch(context.Background(), "sn-4", &envelope.Request{ClassName: "echoService", Method: "Fail"})
	tdd.True(t, ret.IsFailed())
	tdd.Equal(t, rmi.KindHandlerException, ret.Kind())
	tdd.NotEmpty(t, ret.Traceback())
	tdd.Contains(t, ret.Traceback(), "dispatcher_test.go")
}

func TestDispatchRecoversPanic(t *testing.T) {
	d := rmi.NewDispatcher()
	d.RegisterClass("echoService", echoService{})

	ret := d.Dispatch(context.Background(), "sn-5", &envelope.Request{ClassName: "echoService", Method: "Panics"})
	tdd.True(t, ret.IsFailed())
	tdd.Equal(t, rmi.KindHandlerException, ret.Kind())
	tdd.Contains(t, ret.Message(), "unexpected")
	tdd.NotEmpty(t, ret.Traceback())
}

func TestDispatchObservesTelemetry(t *testing.T) {
	d := rmi.NewDispatcher()
	d.RegisterFunction("ping", func(_ []any, _ map[string]any) (any, error) {
		return "pong", nil
	})

	reg := prometheus.NewRegistry()
	metrics, err := telemetry.NewMetrics(reg)
	tdd.NoError(t, err)
	d.SetTelemetry(telemetry.NewTracer("rmi-test"), metrics)

	ret := d.Dispatch(context.Background(), "sn-6", &envelope.Request{Method: "ping"})
	tdd.True(t, ret.IsSucceeded())

	families, err := metrics.Gather()
	tdd.NoError(t, err)
	tdd.NotEmpty(t, families)
}
