package main

import (
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"go.rmagent.dev/core/agent"
	"go.rmagent.dev/core/cli"
	"go.rmagent.dev/core/errors"
	"go.rmagent.dev/core/log"
	"go.rmagent.dev/core/pending"
	"go.rmagent.dev/core/telemetry"
)

// buildAgent wires the real, minimal implementations of the core's
// external collaborators (Lock, Identity, Actions, RemoteFunctions) and
// returns a ready-to-Start Agent.
func buildAgent(conf *cli.Config) (*agent.Agent, error) {
	msgConf, err := agent.LoadConfig(conf)
	if err != nil {
		return nil, err
	}

	logger := log.WithLogrus(logrus.New())

	lockPath := filepath.Join(os.TempDir(), "rmagentd.lock")
	identPath := filepath.Join(os.TempDir(), "rmagentd.uuid")
	pendingPath := filepath.Join(os.TempDir(), "rmagentd.pending.log")

	persist, err := pending.NewFilePersister(pendingPath)
	if err != nil {
		return nil, err
	}

	agt, err := agent.New(
		msgConf,
		&fileIdentity{path: identPath},
		&fileLock{path: lockPath},
		staticActions{},
		builtinRemote{},
		nil, // signing disabled unless configured
		persist,
		0, // unbounded pending store
		logger,
	)
	if err != nil {
		return nil, err
	}

	metrics, err := telemetry.NewMetrics(nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build metrics collector")
	}
	agt.SetTelemetry(telemetry.NewTracer("rmagentd"), metrics)
	return agt, nil
}

// startDebugListener serves metrics over addr in the background, returning
// nil when addr is empty (the listener is disabled by default). Errors
// from a running listener are logged and otherwise swallowed, matching the
// daemon's fire-and-forget background goroutines elsewhere.
func startDebugListener(addr string, metrics *telemetry.Metrics) *http.Server {
	if addr == "" || metrics == nil {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler(log.Discard()))
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.WithField("error", err.Error()).Warning("debug listener stopped")
		}
	}()
	return srv
}

// waitForSignal returns a channel that fires once on SIGINT/SIGTERM.
func waitForSignal() <-chan os.Signal {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
	return ch
}

// fileLock is a single-instance guard backed by an exclusively-created,
// empty lock file, standing in for the daemonization wrapper's AgentLock.
type fileLock struct {
	path string
	f    *os.File
}

func (l *fileLock) Acquire() error {
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return errors.Wrap(err, "another agent instance appears to be running")
	}
	l.f = f
	return nil
}

func (l *fileLock) Release() error {
	if l.f == nil {
		return nil
	}
	_ = l.f.Close()
	return os.Remove(l.path)
}

// fileIdentity persists a generated UUID across restarts, standing in
// for the real identity provider.
type fileIdentity struct {
	path string
}

func (i *fileIdentity) UUID() (string, error) {
	if data, err := os.ReadFile(i.path); err == nil {
		if id := strings.TrimSpace(string(data)); id != "" {
			return id, nil
		}
	}
	id := uuid.NewString()
	if err := os.WriteFile(i.path, []byte(id), 0o644); err != nil {
		return "", err
	}
	return id, nil
}

// staticActions registers no recurring actions; a real deployment wires
// its plugin loader's action list here.
type staticActions struct{}

func (staticActions) List() []agent.Action { return nil }

// builtinRemote exposes a minimal diagnostic handler set so the binary
// is runnable out of the box.
type builtinRemote struct{}

func (builtinRemote) Classes() map[string]any { return nil }

func (builtinRemote) Functions() map[string]func(args []any, kws map[string]any) (any, error) {
	return map[string]func(args []any, kws map[string]any) (any, error){
		"echo": func(args []any, _ map[string]any) (any, error) {
			if len(args) == 0 {
				return nil, nil
			}
			return args[0], nil
		},
		"ping": func([]any, map[string]any) (any, error) {
			return "pong", nil
		},
	}
}
