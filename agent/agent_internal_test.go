package agent

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	tdd "github.com/stretchr/testify/assert"

	xlog "go.rmagent.dev/core/log"
	"go.rmagent.dev/core/telemetry"
)

type fakeIdentity struct {
	mu  sync.Mutex
	uid string
}

func (f *fakeIdentity) UUID() (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.uid, nil
}

func (f *fakeIdentity) set(uid string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uid = uid
}

type erroringIdentity struct{}

func (erroringIdentity) UUID() (string, error) {
	return "", errors.New("identity backend unavailable")
}

func TestPollIdentityReturnsOnceAvailable(t *testing.T) {
	id := &fakeIdentity{uid: "agent-123"}
	a := &Agent{identity: id, log: xlog.Discard(), stop: make(chan struct{})}

	uuid, err := a.pollIdentity()
	tdd.NoError(t, err)
	tdd.Equal(t, "agent-123", uuid)
}

func TestPollIdentityPropagatesError(t *testing.T) {
	a := &Agent{identity: erroringIdentity{}, log: xlog.Discard(), stop: make(chan struct{})}

	_, err := a.pollIdentity()
	tdd.Error(t, err)
}

type countingAction struct {
	mu    sync.Mutex
	count int
}

func (c *countingAction) run() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.count++
	return nil
}

func (c *countingAction) calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.count
}

type staticActionList struct {
	actions []Action
}

func (s staticActionList) List() []Action { return s.actions }

func TestRunActionsRunsDueAction(t *testing.T) {
	action := &countingAction{}
	a := &Agent{
		log: xlog.Discard(),
		actions: staticActionList{actions: []Action{
			{Name: "tick", Interval: 0, Run: action.run},
		}},
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}

	go a.runActions()
	time.Sleep(actionSchedulerTick + 500*time.Millisecond)
	close(a.stop)
	<-a.done

	tdd.Greater(t, action.calls(), 0)
}

func TestSetTelemetryExposesMetrics(t *testing.T) {
	a := &Agent{log: xlog.Discard(), stop: make(chan struct{}), done: make(chan struct{})}
	tdd.Nil(t, a.Metrics())

	metrics, err := telemetry.NewMetrics(prometheus.NewRegistry())
	tdd.NoError(t, err)
	a.SetTelemetry(telemetry.NewTracer("agent-test"), metrics)

	tdd.Same(t, metrics, a.Metrics())
}

func TestRunActionsWithNilActionsClosesDoneImmediately(t *testing.T) {
	a := &Agent{log: xlog.Discard(), stop: make(chan struct{}), done: make(chan struct{})}

	go a.runActions()
	select {
	case <-a.done:
	case <-time.After(time.Second):
		t.Fatal("expected done to close immediately with nil actions")
	}
}
