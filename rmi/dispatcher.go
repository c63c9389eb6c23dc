package rmi

import (
	"context"
	"fmt"
	"reflect"
	"runtime/debug"
	"strings"
	"sync"

	"go.rmagent.dev/core/envelope"
	"go.rmagent.dev/core/errors"
	"go.rmagent.dev/core/telemetry"
)

// Handler is a registered callable, invoked with the request's positional
// and keyword arguments.
type Handler func(args []any, kws map[string]any) (any, error)

// Dispatcher resolves `(class, method)` or a bare function name from an
// incoming request and invokes the matching handler, always capturing the
// outcome as a Return — a handler panic or error never propagates past
// Dispatch.
type Dispatcher struct {
	mu        sync.RWMutex
	classes   map[string]map[string]Handler // classname -> method -> handler
	functions map[string]Handler            // bare function name -> handler

	tracer  *telemetry.Tracer
	metrics *telemetry.Metrics
}

// NewDispatcher returns an empty, ready to use Dispatcher. Handlers are
// populated at startup by the plugin-loading collaborator through
// RegisterClass/RegisterFunction; Dispatch itself only ever reads from
// this table.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{
		classes:   make(map[string]map[string]Handler),
		functions: make(map[string]Handler),
	}
}

// RegisterClass exposes instance as classname, resolving its methods by
// reflection: each exported method with signature
// `func([]any, map[string]any) (any, error)` becomes callable as
// `(classname, methodName)`.
func (d *Dispatcher) RegisterClass(classname string, instance any) {
	methods := make(map[string]Handler)
	v := reflect.ValueOf(instance)
	t := v.Type()
	for i := 0; i < t.NumMethod(); i++ {
		m := t.Method(i)
		fn, ok := v.Method(i).Interface().(func([]any, map[string]any) (any, error))
		if !ok {
			continue
		}
		methods[m.Name] = fn
	}
	d.mu.Lock()
	d.classes[classname] = methods
	d.mu.Unlock()
}

// RegisterFunction exposes fn as a bare dispatch target named name.
func (d *Dispatcher) RegisterFunction(name string, fn Handler) {
	d.mu.Lock()
	d.functions[name] = fn
	d.mu.Unlock()
}

// SetTelemetry attaches a tracer and/or metrics collector; either may be
// nil to leave that concern unobserved. Call before Dispatch is used
// concurrently.
func (d *Dispatcher) SetTelemetry(tracer *telemetry.Tracer, metrics *telemetry.Metrics) {
	d.mu.Lock()
	d.tracer = tracer
	d.metrics = metrics
	d.mu.Unlock()
}

// Dispatch resolves req's target and invokes it under ctx, returning a
// Return that is always populated — either Succeeded with the handler's
// value, or Failed with NotFound/HandlerException and a captured
// traceback. sn identifies the request for tracing and is otherwise
// unused. When a tracer/metrics collector has been attached via
// SetTelemetry, the call is wrapped in an "rmi.dispatch" span and its
// outcome kind is observed.
func (d *Dispatcher) Dispatch(ctx context.Context, sn string, req *envelope.Request) Return {
	d.mu.RLock()
	tracer, metrics := d.tracer, d.metrics
	d.mu.RUnlock()

	var ret Return
	observe := func(context.Context) error {
		ret = d.invoke(req)
		if ret.IsFailed() {
			return &RemoteException{Kind: string(ret.Kind()), Message: ret.Message(), Traceback: ret.Traceback()}
		}
		return nil
	}

	if tracer != nil {
		_ = tracer.Dispatch(ctx, sn, observe)
	} else {
		_ = observe(ctx)
	}

	if metrics != nil {
		kind := "Succeeded"
		if ret.IsFailed() {
			kind = string(ret.Kind())
		}
		metrics.ObserveDispatch(kind)
	}
	return ret
}

// invoke performs the actual handler lookup and call, outside of any
// tracing/metrics concern.
func (d *Dispatcher) invoke(req *envelope.Request) (ret Return) {
	if req == nil {
		return Failed(KindNotFound, "missing request payload", "")
	}

	handler, ok := d.resolve(req)
	if !ok {
		target := req.Method
		if req.ClassName != "" {
			target = req.ClassName + "." + req.Method
		}
		return Failed(KindNotFound, fmt.Sprintf("no handler registered for %q", target), "")
	}

	defer func() {
		if p := recover(); p != nil {
			ret = Failed(KindHandlerException, fmt.Sprintf("%v", p), string(debug.Stack()))
		}
	}()

	value, err := handler(req.Args, req.Kws)
	if err != nil {
		return Failed(KindHandlerException, err.Error(), traceback(err))
	}
	return Succeeded(value)
}

// traceback renders err's captured call stack the same way *errors.Error
// formats it under "%+v", stripped of local-system path details.
func traceback(err error) string {
	wrapped, ok := errors.New(err).(*errors.Error)
	if !ok {
		return ""
	}
	var sb strings.Builder
	for i, frame := range wrapped.PortableTrace() {
		fmt.Fprintf(&sb, "‹%d› %+v", i, frame)
	}
	return sb.String()
}

// resolve looks up the handler named by req, preferring (class, method)
// when ClassName is set, falling back to the bare function table.
func (d *Dispatcher) resolve(req *envelope.Request) (Handler, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if req.ClassName != "" {
		methods, ok := d.classes[req.ClassName]
		if !ok {
			return nil, false
		}
		fn, ok := methods[req.Method]
		return fn, ok
	}
	fn, ok := d.functions[req.Method]
	return fn, ok
}
