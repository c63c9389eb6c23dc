package agent

import (
	"time"

	"go.rmagent.dev/core/amqp"
	"go.rmagent.dev/core/auth"
	"go.rmagent.dev/core/errors"
	xlog "go.rmagent.dev/core/log"
	"go.rmagent.dev/core/messaging"
	"go.rmagent.dev/core/pending"
	"go.rmagent.dev/core/rmi"
	"go.rmagent.dev/core/telemetry"
)

// identityPollInterval matches the core's documented polling cadence for
// an agent UUID that isn't ready yet (§6 "the core polls every 90
// seconds").
const identityPollInterval = 90 * time.Second

// actionSchedulerTick is the cadence the recurring-action scheduler is
// serviced at; each action still governs its own interval internally.
const actionSchedulerTick = 1 * time.Second

// Agent is the runtime composition root: it resolves the agent's
// identity, builds the inbound queue name from it, and wires the
// RequestConsumer, Watchdog and recurring-action scheduler together.
type Agent struct {
	cfg      *Config
	identity Identity
	lock     Lock
	actions  Actions
	remote   RemoteFunctions
	signer   auth.Signer
	log      xlog.Logger

	registry   *amqp.Registry
	dispatcher *rmi.Dispatcher
	consumer   *rmi.RequestConsumer
	watchdog   *rmi.Watchdog
	store      *pending.Store

	tracer  *telemetry.Tracer
	metrics *telemetry.Metrics

	stop chan struct{}
	done chan struct{}
}

// New builds an Agent from its collaborators. persist backs the pending
// store; pass pending.NewMemoryPersister() when durability isn't needed.
func New(cfg *Config, identity Identity, lock Lock, actions Actions, remote RemoteFunctions, signer auth.Signer, persist pending.Persister, pendingCapacity int, log xlog.Logger) (*Agent, error) {
	if log == nil {
		log = xlog.Discard()
	}

	store, err := pending.NewStore(persist, pendingCapacity, log)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build pending store")
	}

	return &Agent{
		cfg:      cfg,
		identity: identity,
		lock:     lock,
		actions:  actions,
		remote:   remote,
		signer:   signer,
		log:      log,
		registry: amqp.NewRegistry(),
		store:    store,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}, nil
}

// SetTelemetry attaches a tracer and/or metrics collector the dispatcher
// will report through; either may be nil to leave that concern
// unobserved. Call before Start.
func (a *Agent) SetTelemetry(tracer *telemetry.Tracer, metrics *telemetry.Metrics) {
	a.tracer = tracer
	a.metrics = metrics
}

// Metrics returns the metrics collector attached via SetTelemetry, or nil
// if none was set, so callers can expose its HTTP handler.
func (a *Agent) Metrics() *telemetry.Metrics {
	return a.metrics
}

// Start acquires the instance lock, resolves identity, wires the
// messaging stack, and begins servicing requests and recurring actions.
// It blocks until the agent is ready to accept requests, then returns;
// call Shutdown to stop.
func (a *Agent) Start() error {
	if a.lock != nil {
		if err := a.lock.Acquire(); err != nil {
			return errors.Wrap(err, "failed to acquire instance lock")
		}
	}

	uuid, err := a.pollIdentity()
	if err != nil {
		return err
	}

	tlsConf, err := tlsConfig(a.cfg)
	if err != nil {
		return err
	}
	options := []amqp.Option{
		amqp.WithLogger(a.log),
		amqp.WithRegistry(a.registry),
		amqp.WithTLS(tlsConf),
		amqp.WithHeartbeat(a.cfg.Heartbeat),
	}

	a.dispatcher = rmi.NewDispatcher()
	a.dispatcher.SetTelemetry(a.tracer, a.metrics)
	if a.remote != nil {
		for name, instance := range a.remote.Classes() {
			a.dispatcher.RegisterClass(name, instance)
		}
		for name, fn := range a.remote.Functions() {
			a.dispatcher.RegisterFunction(name, fn)
		}
	}

	reader, err := messaging.NewReader(a.cfg.URL, a.signer, a.log, options...)
	if err != nil {
		return errors.Wrap(err, "failed to open inbound reader")
	}
	producer, err := messaging.NewProducer(a.cfg.URL, a.signer, a.log, options...)
	if err != nil {
		return errors.Wrap(err, "failed to open reply producer")
	}

	a.watchdog = rmi.NewWatchdog(producer, a.log)

	consumer, err := rmi.NewRequestConsumer(reader, producer, a.dispatcher, a.store, uuid, a.log)
	if err != nil {
		return errors.Wrap(err, "failed to build request consumer")
	}
	a.consumer = consumer
	a.consumer.Start()

	go a.runActions()
	if a.metrics != nil {
		go a.reportGauges()
	}
	return nil
}

// gaugeReportInterval is how often the pending-depth and
// watchdog-outstanding gauges are refreshed.
const gaugeReportInterval = 5 * time.Second

// reportGauges periodically samples the pending store and watchdog sizes
// into the attached metrics collector, until the agent is stopped.
func (a *Agent) reportGauges() {
	ticker := time.NewTicker(gaugeReportInterval)
	defer ticker.Stop()
	for {
		select {
		case <-a.stop:
			return
		case <-ticker.C:
			a.metrics.SetPendingDepth(a.store.Len())
			a.metrics.SetWatchdogOutstanding(a.watchdog.Len())
		}
	}
}

// Shutdown stops the request consumer, the action scheduler, the
// watchdog, and releases the instance lock.
func (a *Agent) Shutdown() error {
	close(a.stop)
	if a.consumer != nil {
		a.consumer.Shutdown()
	}
	if a.watchdog != nil {
		a.watchdog.Close()
	}
	a.store.Close()
	<-a.done
	if a.lock != nil {
		return a.lock.Release()
	}
	return nil
}

// pollIdentity blocks until the identity provider returns a non-empty
// UUID, retrying every identityPollInterval.
func (a *Agent) pollIdentity() (string, error) {
	for {
		uuid, err := a.identity.UUID()
		if err != nil {
			return "", errors.Wrap(err, "failed to resolve agent identity")
		}
		if uuid != "" {
			return uuid, nil
		}
		a.log.Info("agent identity not yet available, retrying")
		select {
		case <-time.After(identityPollInterval):
		case <-a.stop:
			return "", errors.New("agent stopped while waiting for identity")
		}
	}
}

// runActions services the recurring-action scheduler: each registered
// action is run on its own interval, tracked against a shared ticker.
func (a *Agent) runActions() {
	defer close(a.done)
	if a.actions == nil {
		return
	}

	last := make(map[string]time.Time)
	ticker := time.NewTicker(actionSchedulerTick)
	defer ticker.Stop()
	for {
		select {
		case <-a.stop:
			return
		case now := <-ticker.C:
			for _, act := range a.actions.List() {
				if now.Sub(last[act.Name]) < act.Interval {
					continue
				}
				last[act.Name] = now
				go func(act Action) {
					if err := act.Run(); err != nil {
						a.log.WithField("action", act.Name).Warning(err.Error())
					}
				}(act)
			}
		}
	}
}
