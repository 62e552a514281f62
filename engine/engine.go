// Package engine implements the module loader and the invoker on top of
// a real WebAssembly engine, github.com/bytecodealliance/wasmtime-go,
// which tetratelabs-wazero names in its own go.mod. wasmtime-go is used
// here because it supports eager fuel metering natively, unlike the
// bundled engine wazero ships — this runtime treats engine internals as
// a black-box collaborator rather than an in-process compiler.
package engine

import (
	"fmt"

	"github.com/bytecodealliance/wasmtime-go/v14"

	"github.com/rwasmvm/rwasmvm/bindings"
	"github.com/rwasmvm/rwasmvm/exitcode"
	"github.com/rwasmvm/rwasmvm/internal/logging"
	"github.com/rwasmvm/rwasmvm/linker"
	"github.com/rwasmvm/rwasmvm/runtimectx"
	"github.com/rwasmvm/rwasmvm/runtimeerr"
)

// Runtime is an instantiated (or instantiable) guest, exclusively owned
// by the caller for the duration of Call. It is not thread-safe.
type Runtime struct {
	wasmEngine *wasmtime.Engine
	module     *wasmtime.Module
	linker     *wasmtime.Linker
	store      *wasmtime.Store
	instance   *wasmtime.Instance

	ctx   *runtimectx.Context
	trace runtimectx.Trace
}

// Load builds an engine configuration, parses bytecode into a module,
// materializes an empty linker bound to the engine, and creates a store
// holding ctx by value (credited with fuel if metering is enabled). The
// returned Runtime is uninstantiated — bindings must be registered via
// Runtime.Instantiate before Call.
func Load(ctx *runtimectx.Context) (*Runtime, error) {
	cfg := wasmtime.NewConfig()
	cfg.SetConsumeFuel(ctx.FuelLimit() > 0)

	wasmEngine := wasmtime.NewEngineWithConfig(cfg)

	module, err := wasmtime.NewModule(wasmEngine, ctx.Bytecode())
	if err != nil {
		return nil, runtimeerr.Load(err)
	}
	if err := rejectFloats(module); err != nil {
		return nil, runtimeerr.Load(err)
	}

	wasmLinker := wasmtime.NewLinker(wasmEngine)
	store := wasmtime.NewStore(wasmEngine)

	if ctx.FuelLimit() > 0 {
		if err := store.SetFuel(uint64(ctx.FuelLimit())); err != nil {
			return nil, runtimeerr.Load(err)
		}
	}

	return &Runtime{
		wasmEngine: wasmEngine,
		module:     module,
		linker:     wasmLinker,
		store:      store,
		ctx:        ctx,
	}, nil
}

// rejectFloats rejects any floating-point parameter or result in an
// imported or exported function signature. wasmtime-go has no
// config.floats(false)-equivalent knob and no public API for inspecting
// a module's internal (non-imported, non-exported) function bodies or
// locals, so this is a boundary check, not a whole-module guarantee: a
// guest whose unexported internal code uses float instructions or float
// locals is not caught here. See DESIGN.md for why this falls short of
// full enforcement.
func rejectFloats(module *wasmtime.Module) error {
	check := func(tys []*wasmtime.ValType) error {
		for _, ty := range tys {
			if ty.Kind() == wasmtime.KindF32 || ty.Kind() == wasmtime.KindF64 {
				return fmt.Errorf("floating-point types are not supported by this engine")
			}
		}
		return nil
	}
	for _, imp := range module.Imports() {
		if ft := imp.Type().FuncType(); ft != nil {
			if err := check(ft.Params()); err != nil {
				return err
			}
			if err := check(ft.Results()); err != nil {
				return err
			}
		}
	}
	for _, exp := range module.Exports() {
		if ft := exp.Type().FuncType(); ft != nil {
			if err := check(ft.Params()); err != nil {
				return err
			}
			if err := check(ft.Results()); err != nil {
				return err
			}
		}
	}
	return nil
}

// RegisterBindings populates the linker with the host function set
// matching ctx.IsShared and allocates the trace buffer host bindings
// append to.
func (r *Runtime) RegisterBindings() error {
	cat := linker.For(r.ctx.IsShared())
	return bindings.Register(bindings.Deps{
		Linker:  r.linker,
		Store:   r.store,
		Ctx:     r.ctx,
		Trace:   &r.trace,
		Catalog: cat,
		Invoke:  RunWithContext,
	})
}

// Instantiate instantiates the module and runs its start function, if
// any. Bindings must already be registered.
func (r *Runtime) Instantiate() error {
	instance, err := r.linker.Instantiate(r.store, r.module)
	if err != nil {
		return runtimeerr.Instantiate(err)
	}
	r.instance = instance
	return nil
}

// New performs the full load/register/instantiate composition. This is
// the Go analogue of original_source's Runtime::new, which calls
// new_uninit, register_bindings, instantiate in sequence.
func New(ctx *runtimectx.Context) (*Runtime, error) {
	r, err := Load(ctx)
	if err != nil {
		return nil, err
	}
	if err := r.RegisterBindings(); err != nil {
		return nil, err
	}
	if err := r.Instantiate(); err != nil {
		return nil, err
	}
	return r, nil
}

// RunWithContext is the public entry point. It snapshots catch_trap up
// front so that a load failure with catch_trap=true still surfaces as a
// successful result carrying a non-zero exit code, exactly as
// Runtime::run_with_context does in original_source.
func RunWithContext(ctx *runtimectx.Context) (*runtimectx.Result, error) {
	catchTrap := ctx.CatchTrap()

	r, err := New(ctx.Clone())
	if catchTrap && err != nil {
		ctx.SetExitCode(int32(CatchTrap(err)))
		return runtimectx.Cloned(ctx, nil, nil), nil
	}
	if err != nil {
		return nil, err
	}

	r.ctx.CleanOutput()
	return r.Call()
}

// Call locates and invokes the zero-arg/zero-result "main" export.
func (r *Runtime) Call() (*runtimectx.Result, error) {
	defer bindings.Cleanup(r.ctx)

	fn := r.instance.GetFunc(r.store, "main")
	if fn == nil {
		return nil, runtimeerr.MissingMain()
	}

	_, callErr := fn.Call(r.store)
	if callErr != nil {
		if code, ok := r.ctx.HaltRequested(); ok {
			// Explicit exit status wins over trap-code classification,
			// and is already applied to r.ctx by the halt binding;
			// nothing further to do here.
			_ = code
		} else {
			exit := CatchTrap(callErr)
			if exit != exitcode.Ok && !r.ctx.CatchTrap() {
				return nil, runtimeerr.TrapErr(callErr)
			}
			r.ctx.SetExitCode(int32(exit))
		}
	}

	var consumed *uint32
	if limit := r.ctx.FuelLimit(); limit > 0 {
		if remaining, err := r.store.GetFuel(); err == nil {
			v := limit - uint32(remaining)
			consumed = &v
			r.ctx.SetConsumedFuel(v)
		}
	}

	logging.Op().Debug("invocation complete",
		"exit_code", r.ctx.ExitCode(),
		"is_shared", r.ctx.IsShared(),
		"consumed_fuel", r.ctx.ConsumedFuel(),
	)

	return runtimectx.Cloned(r.ctx, r.trace, consumed), nil
}

// CatchTrap maps a call()-time error to an ExitCode. It is a pure
// function of err: the same error value always yields the same code.
func CatchTrap(err error) exitcode.ExitCode {
	trap, ok := err.(*wasmtime.Trap)
	if !ok {
		return exitcode.UnknownError
	}
	if code, ok := trap.Code(); ok {
		return exitcode.FromTrapCode(code)
	}
	return exitcode.UnknownError
}

// Data returns the runtime's context.
func (r *Runtime) Data() *runtimectx.Context { return r.ctx }
