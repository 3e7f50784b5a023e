package sandbox

import (
	"context"
	"encoding/json"

	"github.com/dop251/goja"
	"github.com/dop251/goja_nodejs/eventloop"
)

// bindGlobals installs the `tools` array, and — when withTools is set —
// one object global per server whose methods bridge script calls to the
// upstream pool through the event loop (spec.md §4.4, §9).
func (s *Sandbox) bindGlobals(ctx context.Context, vm *goja.Runtime, loop *eventloop.EventLoop, withTools bool) {
	vm.Set("tools", s.catalog.EntriesForSearch())

	if !withTools {
		return
	}

	for _, server := range s.catalog.Servers() {
		global := s.catalog.SanitizedName(server)
		if global == "" {
			continue
		}
		vm.Set(global, s.bindServer(ctx, vm, loop, server))
	}
}

// bindServer builds the object bound as `<sanitized>` with one method per
// tool the server currently exposes. Each method returns a goja Promise
// immediately and settles it from a job posted back onto the loop once the
// upstream call returns, so the script's `await` resumes on the loop's own
// goroutine and never touches the Runtime from the calling goroutine.
func (s *Sandbox) bindServer(ctx context.Context, vm *goja.Runtime, loop *eventloop.EventLoop, server string) *goja.Object {
	obj := vm.NewObject()
	for _, entry := range s.catalog.EntriesForServer(server) {
		toolName := entry.Name
		obj.Set(toolName, s.toolShim(ctx, vm, loop, server, toolName))
	}
	return obj
}

func (s *Sandbox) toolShim(ctx context.Context, vm *goja.Runtime, loop *eventloop.EventLoop, server, tool string) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		var argsJSON json.RawMessage
		if len(call.Arguments) > 0 && !goja.IsUndefined(call.Arguments[0]) {
			b, err := json.Marshal(call.Arguments[0].Export())
			if err != nil {
				panic(vm.NewTypeError("%s.%s: invalid arguments: %v", server, tool, err))
			}
			argsJSON = b
		} else {
			argsJSON = json.RawMessage(`{}`)
		}

		promise, resolve, reject := vm.NewPromise()

		go func() {
			result, err := s.caller.Call(ctx, server, tool, argsJSON)
			loop.RunOnLoop(func(vm *goja.Runtime) {
				if err != nil {
					reject(vm.ToValue(err.Error()))
					return
				}
				var decoded any
				if uerr := json.Unmarshal(result, &decoded); uerr != nil {
					reject(vm.ToValue(uerr.Error()))
					return
				}
				resolve(vm.ToValue(decoded))
			})
		}()

		return vm.ToValue(promise)
	}
}
