// Package sandbox executes a caller-supplied script fragment inside a
// fresh ECMAScript runtime per request, injecting a `tools` array, a
// `console`, and per-server invocation shims that marshal calls back to the
// host (spec.md §4.4). The catalog's TypeScript declarations block is not
// injected into the runtime.
//
// No teacher analogue exists in osi4iot-mcphost (it has no scripting
// sandbox); the runtime is github.com/dop251/goja plus
// github.com/dop251/goja_nodejs's event loop and console module, named in
// this pack's Denis-Chistyakov-Saltare, viant-agently,
// smart-mcp-proxy-mcpproxy-go, and RevittCo-mcplexer manifests as the way
// to embed an async-capable ECMAScript sandbox in a Go process.
package sandbox

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dop251/goja"
	"github.com/dop251/goja_nodejs/console"
	"github.com/dop251/goja_nodejs/eventloop"

	"github.com/mcp-funnel/mcp-funnel/internal/catalog"
)

// MemoryLimitBytes is the 64 MiB cap spec.md §4.4 mandates per sandbox.
const MemoryLimitBytes = 64 * 1024 * 1024

// Caller is the slice of *clientpool.Pool's surface the sandbox bridges
// script calls to. Narrowed to an interface so sandbox tests don't need a
// real upstream connection.
type Caller interface {
	Call(ctx context.Context, server, tool string, argsJSON json.RawMessage) (json.RawMessage, error)
}

// Errors surfaced to the downstream server as SandboxError (spec.md §7).
var (
	ErrOutOfMemory = fmt.Errorf("sandbox: script exceeded the %d byte memory cap", MemoryLimitBytes)
)

// RuntimeError is SandboxError::Runtime: the script threw, or its returned
// promise rejected, to top level.
type RuntimeError struct{ Reason string }

func (e *RuntimeError) Error() string { return fmt.Sprintf("sandbox: script failed: %s", e.Reason) }

// Sandbox runs scripts against one catalog generation.
type Sandbox struct {
	catalog *catalog.Catalog
	caller  Caller
}

// New binds a Sandbox factory to one (Catalog, Caller) generation. A fresh
// runtime is spawned per Run call; Sandbox itself holds no per-script
// state.
func New(cat *catalog.Catalog, caller Caller) *Sandbox {
	return &Sandbox{catalog: cat, caller: caller}
}

// Run executes script and returns its JSON-serializable result. withTools
// controls whether per-server globals are injected: spec.md §9 REQUIRES
// them absent for `search`, present for `execute`.
//
// The outer script is wrapped in an async IIFE, so its result is always a
// Promise. A tool shim's upstream call runs on its own goroutine and
// signals completion by posting a continuation back onto the loop via
// loop.RunOnLoop (see bind.go) — that continuation cannot run until the
// loop is actually spun up and draining its job channel in the background,
// which is why this uses Start/Stop (a long-running loop goroutine) rather
// than Run (which only drains jobs already queued and returns as soon as
// none remain, before an in-flight upstream call has had a chance to post
// its resolution). The promise's own .then/.catch are used to capture the
// settled value into the done channel, since State()/Result() must not be
// read until the promise has actually settled.
func (s *Sandbox) Run(ctx context.Context, script string, withTools bool) (json.RawMessage, error) {
	wrapped := "(async function(){\n" + script + "\n})()"

	prg, err := goja.Compile("<script>", wrapped, false)
	if err != nil {
		return nil, &RuntimeError{Reason: err.Error()}
	}

	loop := eventloop.NewEventLoop()
	loop.Start()
	defer loop.Stop()

	var (
		result json.RawMessage
		runErr error
	)
	done := make(chan struct{})

	loop.RunOnLoop(func(vm *goja.Runtime) {
		vm.SetFieldNameMapper(goja.TagFieldNameMapper("json", true))
		console.Enable(vm)
		if err := vm.SetMemoryLimit(MemoryLimitBytes); err != nil {
			runErr = err
			close(done)
			return
		}

		s.bindGlobals(ctx, vm, loop, withTools)

		v, err := vm.RunProgram(prg)
		if err != nil {
			runErr = classifyRunError(err)
			close(done)
			return
		}

		promise, ok := v.Export().(*goja.Promise)
		if !ok {
			result, runErr = marshalValue(v)
			close(done)
			return
		}

		s.settlePromise(vm, promise, &result, &runErr, done)
	})

	<-done

	if runErr != nil {
		return nil, runErr
	}
	return result, nil
}

// settlePromise attaches .then/.catch handlers to promise so its eventual
// settlement — possibly driven by a tool shim's continuation posted from a
// different goroutine via loop.RunOnLoop — is captured into result/runErr
// and signaled on done. Both handlers run on the loop's own goroutine, the
// same one that will have executed every prior script statement, so no
// extra synchronization around result/runErr is needed.
func (s *Sandbox) settlePromise(vm *goja.Runtime, promise *goja.Promise, result *json.RawMessage, runErr *error, done chan struct{}) {
	promiseObj := vm.ToValue(promise).(*goja.Object)
	then, ok := goja.AssertFunction(promiseObj.Get("then"))
	if !ok {
		*runErr = &RuntimeError{Reason: "script's result promise has no then method"}
		close(done)
		return
	}

	onFulfilled := func(call goja.FunctionCall) goja.Value {
		var v goja.Value
		if len(call.Arguments) > 0 {
			v = call.Arguments[0]
		}
		*result, *runErr = marshalValue(v)
		close(done)
		return goja.Undefined()
	}
	onRejected := func(call goja.FunctionCall) goja.Value {
		var reason any
		if len(call.Arguments) > 0 {
			reason = call.Arguments[0].String()
		}
		*runErr = &RuntimeError{Reason: fmt.Sprint(reason)}
		close(done)
		return goja.Undefined()
	}

	if _, err := then(promiseObj, vm.ToValue(onFulfilled), vm.ToValue(onRejected)); err != nil {
		*runErr = &RuntimeError{Reason: err.Error()}
		close(done)
	}
}

func marshalValue(v goja.Value) (json.RawMessage, error) {
	if v == nil || goja.IsUndefined(v) {
		return json.Marshal(nil)
	}
	b, err := json.Marshal(v.Export())
	if err != nil {
		return nil, &RuntimeError{Reason: err.Error()}
	}
	return b, nil
}

func classifyRunError(err error) error {
	if strings.Contains(err.Error(), "memory limit") {
		return ErrOutOfMemory
	}
	return &RuntimeError{Reason: err.Error()}
}
