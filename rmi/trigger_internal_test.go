package rmi

import (
	"sync"
	"sync/atomic"
	"testing"

	tdd "github.com/stretchr/testify/assert"

	"go.rmagent.dev/core/envelope"
)

func TestTriggerSingleShotCAS(t *testing.T) {
	tr := &Trigger{sn: "sn-1"}

	first := atomic.CompareAndSwapInt32(&tr.fired, 0, 1)
	second := atomic.CompareAndSwapInt32(&tr.fired, 0, 1)
	tdd.True(t, first)
	tdd.False(t, second)
}

func TestTriggerSingleShotUnderConcurrency(t *testing.T) {
	tr := &Trigger{sn: "sn-2"}

	var wins int32
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if atomic.CompareAndSwapInt32(&tr.fired, 0, 1) {
				atomic.AddInt32(&wins, 1)
			}
		}()
	}
	wg.Wait()
	tdd.EqualValues(t, 1, wins)
}

func TestNewTriggerAssignsSN(t *testing.T) {
	tr := newTrigger(nil, envelope.Q("inbox"), nil, nil)
	tdd.NotEmpty(t, tr.SN())
}
