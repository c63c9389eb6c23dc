package rmi_test

import (
	"testing"

	tdd "github.com/stretchr/testify/assert"

	"go.rmagent.dev/core/rmi"
)

func TestReturnSucceededFailedMutualExclusion(t *testing.T) {
	ok := rmi.Succeeded("hi")
	tdd.True(t, ok.IsSucceeded())
	tdd.False(t, ok.IsFailed())
	tdd.Equal(t, "hi", ok.Value())

	failed := rmi.Failed(rmi.KindNotFound, "no such method", "")
	tdd.True(t, failed.IsFailed())
	tdd.False(t, failed.IsSucceeded())
	tdd.Equal(t, rmi.KindNotFound, failed.Kind())
}

func TestReturnResultRoundTrip(t *testing.T) {
	ok := rmi.Succeeded(42)
	tdd.Equal(t, 42, rmi.FromResult(ok.ToResult()).Value())

	failed := rmi.Failed(rmi.KindHandlerException, "boom", "trace")
	restored := rmi.FromResult(failed.ToResult())
	tdd.True(t, restored.IsFailed())
	tdd.Equal(t, rmi.KindHandlerException, restored.Kind())
	tdd.Equal(t, "boom", restored.Message())
	tdd.Equal(t, "trace", restored.Traceback())
}

func TestFromResultNilIsSucceeded(t *testing.T) {
	tdd.True(t, rmi.FromResult(nil).IsSucceeded())
}
