// Package bindings populates a linker with host functions matching the
// import surface a package linker Catalog declares, wired against a
// RuntimeContext and (for sovereign-only names) a statedb.DB handle.
//
// A handler never decides whether it belongs in the current surface —
// Register only wraps a name into the linker if the caller's Catalog
// declares it, so instantiating a shared-surface guest that imports a
// sovereign-only name fails at link time with a missing-import error.
package bindings

import (
	"fmt"
	"sync"

	"github.com/bytecodealliance/wasmtime-go/v14"
	"golang.org/x/crypto/sha3"

	"github.com/rwasmvm/rwasmvm/linker"
	"github.com/rwasmvm/rwasmvm/runtimectx"
	"github.com/rwasmvm/rwasmvm/statedb"
)

// StateKeySize is the fixed key width the state bindings read from guest
// memory, matching the trie's content-addressed 32-byte key space.
const StateKeySize = 32

// Deps bundles everything a handler needs: the linker and store being
// built (package engine owns both), the context the handlers read and
// mutate, the trace buffer to append to, the catalog gating which names
// get registered, and a hook back into the invoker for the nested-call
// binding (injected by package engine to avoid an import cycle: engine
// depends on bindings, so bindings cannot import engine directly).
type Deps struct {
	Linker  *wasmtime.Linker
	Store   *wasmtime.Store
	Ctx     *runtimectx.Context
	Trace   *runtimectx.Trace
	Catalog *linker.Catalog
	Invoke  func(ctx *runtimectx.Context) (*runtimectx.Result, error)
}

type handlerFunc func(d Deps) error

var handlers = map[string]handlerFunc{
	linker.FnHalt:         registerHalt,
	linker.FnWrite:        registerWrite,
	linker.FnRead:         registerRead,
	linker.FnInputSize:    registerInputSize,
	linker.FnState:        registerState,
	linker.FnWriteOutput:  registerWriteOutput,
	linker.FnReadOutput:   registerReadOutput,
	linker.FnOutputSize:   registerOutputSize,
	linker.FnKeccak256:    registerKeccak256,
	linker.FnStateGet:     registerStateGet,
	linker.FnStateUpdate:  registerStateUpdate,
	linker.FnStateCommit:  registerStateCommit,
	linker.FnCheckpoint:   registerCheckpoint,
	linker.FnRollback:     registerRollback,
	linker.FnCommitTo:     registerCommitTo,
	linker.FnNestedCall:   registerNestedCall,
}

// Register wraps every handler whose name is declared in d.Catalog into
// d.Linker under (linker.HostModule, name). It is a programming error
// for the handler table above to be missing an entry the catalog
// declares; Register returns an error in that case rather than panicking,
// since catalogs may grow independently of this table over time.
func Register(d Deps) error {
	for _, name := range d.Catalog.Names() {
		h, ok := handlers[name]
		if !ok {
			return fmt.Errorf("bindings: catalog declares %q but no handler is registered for it", name)
		}
		if err := h(d); err != nil {
			return fmt.Errorf("bindings: registering %q: %w", name, err)
		}
	}
	return nil
}

func appendTrace(d Deps, opcode string, operands ...uint64) {
	if d.Trace == nil {
		return
	}
	*d.Trace = append(*d.Trace, runtimectx.TraceEntry{
		Opcode:   opcode,
		Operands: operands,
	})
}

// memoryOf returns the guest's exported linear memory, or nil if the
// module does not export one under the conventional name.
func memoryOf(caller *wasmtime.Caller) *wasmtime.Memory {
	ext := caller.GetExport("memory")
	if ext == nil {
		return nil
	}
	return ext.Memory()
}

// readGuest returns a copy of [ptr, ptr+length) from the guest's linear
// memory, clipped to the memory's actual size. Out-of-bounds ranges trap
// rather than panic, mapping onto exitcode.MemoryOutOfBounds via the
// engine's ordinary trap classification.
func readGuest(caller *wasmtime.Caller, ptr, length int32) ([]byte, error) {
	mem := memoryOf(caller)
	if mem == nil {
		return nil, wasmtime.NewTrap("guest module does not export linear memory")
	}
	data := mem.UnsafeData(caller)
	start, end := int(ptr), int(ptr)+int(length)
	if ptr < 0 || length < 0 || start > len(data) || end > len(data) {
		return nil, wasmtime.NewTrap("out of bounds memory access")
	}
	out := make([]byte, length)
	copy(out, data[start:end])
	return out, nil
}

// writeGuest copies src into the guest's linear memory starting at ptr,
// trapping if the range falls outside the memory.
func writeGuest(caller *wasmtime.Caller, ptr int32, src []byte) error {
	mem := memoryOf(caller)
	if mem == nil {
		return wasmtime.NewTrap("guest module does not export linear memory")
	}
	data := mem.UnsafeData(caller)
	start, end := int(ptr), int(ptr)+len(src)
	if ptr < 0 || start > len(data) || end > len(data) {
		return wasmtime.NewTrap("out of bounds memory access")
	}
	copy(data[start:end], src)
	return nil
}

// copyOut writes up to len(dst capacity) bytes of src at offset into the
// guest's linear memory at ptr, returning the number of bytes actually
// copied (clipped to both src's remaining length and the caller-supplied
// buffer length). This realizes the *_read/*_read_output pair's
// (ptr, len, offset) -> i32 contract.
func copyOut(caller *wasmtime.Caller, ptr, length, offset int32, src []byte) (int32, error) {
	if offset < 0 || int(offset) > len(src) {
		return 0, nil
	}
	remaining := src[offset:]
	n := int(length)
	if n > len(remaining) {
		n = len(remaining)
	}
	if n < 0 {
		n = 0
	}
	if err := writeGuest(caller, ptr, remaining[:n]); err != nil {
		return 0, err
	}
	return int32(n), nil
}

func registerHalt(d Deps) error {
	return d.Linker.FuncWrap(linker.HostModule, linker.FnHalt, func(code int32) error {
		d.Ctx.RequestHalt(code)
		appendTrace(d, linker.FnHalt, uint64(uint32(code)))
		return wasmtime.NewTrap("sys_halt")
	})
}

func registerWrite(d Deps) error {
	return d.Linker.FuncWrap(linker.HostModule, linker.FnWrite, func(caller *wasmtime.Caller, ptr, length int32) error {
		b, err := readGuest(caller, ptr, length)
		if err != nil {
			return err
		}
		d.Ctx.AppendOutput(b)
		appendTrace(d, linker.FnWrite, uint64(uint32(ptr)), uint64(uint32(length)))
		return nil
	})
}

func registerRead(d Deps) error {
	return d.Linker.FuncWrap(linker.HostModule, linker.FnRead, func(caller *wasmtime.Caller, ptr, length, offset int32) (int32, error) {
		n, err := copyOut(caller, ptr, length, offset, d.Ctx.Input())
		appendTrace(d, linker.FnRead, uint64(uint32(ptr)), uint64(uint32(length)), uint64(uint32(offset)))
		return n, err
	})
}

func registerInputSize(d Deps) error {
	return d.Linker.FuncWrap(linker.HostModule, linker.FnInputSize, func() int32 {
		return int32(d.Ctx.InputSize())
	})
}

func registerState(d Deps) error {
	return d.Linker.FuncWrap(linker.HostModule, linker.FnState, func() int32 {
		return int32(d.Ctx.State())
	})
}

func registerWriteOutput(d Deps) error {
	return d.Linker.FuncWrap(linker.HostModule, linker.FnWriteOutput, func(caller *wasmtime.Caller, ptr, length int32) error {
		b, err := readGuest(caller, ptr, length)
		if err != nil {
			return err
		}
		d.Ctx.SetReturnData(b)
		appendTrace(d, linker.FnWriteOutput, uint64(uint32(ptr)), uint64(uint32(length)))
		return nil
	})
}

func registerReadOutput(d Deps) error {
	return d.Linker.FuncWrap(linker.HostModule, linker.FnReadOutput, func(caller *wasmtime.Caller, ptr, length, offset int32) (int32, error) {
		n, err := copyOut(caller, ptr, length, offset, d.Ctx.ReturnData())
		appendTrace(d, linker.FnReadOutput, uint64(uint32(ptr)), uint64(uint32(length)), uint64(uint32(offset)))
		return n, err
	})
}

func registerOutputSize(d Deps) error {
	return d.Linker.FuncWrap(linker.HostModule, linker.FnOutputSize, func() int32 {
		return int32(len(d.Ctx.ReturnData()))
	})
}

func registerKeccak256(d Deps) error {
	return d.Linker.FuncWrap(linker.HostModule, linker.FnKeccak256, func(caller *wasmtime.Caller, ptr, length, outPtr int32) error {
		b, err := readGuest(caller, ptr, length)
		if err != nil {
			return err
		}
		sum := sha3.NewLegacyKeccak256()
		sum.Write(b)
		digest := sum.Sum(nil)
		appendTrace(d, linker.FnKeccak256, uint64(uint32(ptr)), uint64(uint32(length)))
		return writeGuest(caller, outPtr, digest)
	})
}

func registerStateGet(d Deps) error {
	return d.Linker.FuncWrap(linker.HostModule, linker.FnStateGet, func(caller *wasmtime.Caller, keyPtr, outPtr, outLen int32) (int32, error) {
		if d.Ctx.JZKT() == nil {
			return -1, nil
		}
		key, err := readGuest(caller, keyPtr, StateKeySize)
		if err != nil {
			return 0, err
		}
		val, ok := d.Ctx.JZKT().Get(key)
		appendTrace(d, linker.FnStateGet, uint64(uint32(keyPtr)))
		if !ok {
			return -1, nil
		}
		n, err := copyOut(caller, outPtr, outLen, 0, val)
		return n, err
	})
}

func registerStateUpdate(d Deps) error {
	return d.Linker.FuncWrap(linker.HostModule, linker.FnStateUpdate, func(caller *wasmtime.Caller, keyPtr, valPtr, valLen int32) error {
		if d.Ctx.JZKT() == nil {
			return wasmtime.NewTrap("no state database attached")
		}
		key, err := readGuest(caller, keyPtr, StateKeySize)
		if err != nil {
			return err
		}
		val, err := readGuest(caller, valPtr, valLen)
		if err != nil {
			return err
		}
		d.Ctx.JZKT().Update(key, val)
		appendTrace(d, linker.FnStateUpdate, uint64(uint32(keyPtr)), uint64(uint32(valLen)))
		return nil
	})
}

func registerStateCommit(d Deps) error {
	return d.Linker.FuncWrap(linker.HostModule, linker.FnStateCommit, func(caller *wasmtime.Caller, outPtr int32) error {
		if d.Ctx.JZKT() == nil {
			return wasmtime.NewTrap("no state database attached")
		}
		root := d.Ctx.JZKT().Commit()
		appendTrace(d, linker.FnStateCommit, uint64(uint32(outPtr)))
		return writeGuest(caller, outPtr, root[:])
	})
}

// checkpoints maps the i32 handles handed back to the guest onto the
// underlying (possibly UUID-valued) CheckpointToken, scoped to a single
// Register call (i.e. a single invocation's lifetime) since a fresh
// Runtime/linker/store is built per call.
type checkpointRegistry struct {
	tokens []statedb.CheckpointToken
}

var (
	registriesMu sync.Mutex
	registries   = map[*runtimectx.Context]*checkpointRegistry{}
)

func registryFor(d Deps) *checkpointRegistry {
	registriesMu.Lock()
	defer registriesMu.Unlock()
	r, ok := registries[d.Ctx]
	if !ok {
		r = &checkpointRegistry{}
		registries[d.Ctx] = r
	}
	return r
}

// Cleanup releases the checkpoint-handle registry for ctx. The engine
// calls this once Call returns, since a fresh Runtime/store/linker (and
// therefore a fresh set of registered closures) is built per invocation
// and ctx's pointer identity is never reused afterwards.
func Cleanup(ctx *runtimectx.Context) {
	registriesMu.Lock()
	defer registriesMu.Unlock()
	delete(registries, ctx)
}

func registerCheckpoint(d Deps) error {
	return d.Linker.FuncWrap(linker.HostModule, linker.FnCheckpoint, func() (int32, error) {
		if d.Ctx.JZKT() == nil {
			return 0, wasmtime.NewTrap("no state database attached")
		}
		tok := d.Ctx.JZKT().Checkpoint()
		reg := registryFor(d)
		reg.tokens = append(reg.tokens, tok)
		appendTrace(d, linker.FnCheckpoint)
		return int32(len(reg.tokens) - 1), nil
	})
}

func registerRollback(d Deps) error {
	return d.Linker.FuncWrap(linker.HostModule, linker.FnRollback, func(handle int32) error {
		if d.Ctx.JZKT() == nil {
			return wasmtime.NewTrap("no state database attached")
		}
		reg := registryFor(d)
		if handle < 0 || int(handle) >= len(reg.tokens) {
			return wasmtime.NewTrap("invalid checkpoint handle")
		}
		d.Ctx.JZKT().Rollback(reg.tokens[handle])
		appendTrace(d, linker.FnRollback, uint64(uint32(handle)))
		return nil
	})
}

func registerCommitTo(d Deps) error {
	return d.Linker.FuncWrap(linker.HostModule, linker.FnCommitTo, func(handle int32) error {
		if d.Ctx.JZKT() == nil {
			return wasmtime.NewTrap("no state database attached")
		}
		reg := registryFor(d)
		if handle < 0 || int(handle) >= len(reg.tokens) {
			return wasmtime.NewTrap("invalid checkpoint handle")
		}
		d.Ctx.JZKT().CommitTo(reg.tokens[handle])
		appendTrace(d, linker.FnCommitTo, uint64(uint32(handle)))
		return nil
	})
}

// registerNestedCall implements the "nested call" sovereign capability by
// recursing into the same invoker entry point the host CLI uses
// (engine.RunWithContext, injected as d.Invoke to avoid an import cycle:
// package engine already imports package bindings).
func registerNestedCall(d Deps) error {
	return d.Linker.FuncWrap(linker.HostModule, linker.FnNestedCall, func(caller *wasmtime.Caller, codePtr, codeLen, inputPtr, inputLen, fuel int32) (int32, error) {
		if d.Invoke == nil {
			return 0, wasmtime.NewTrap("nested calls are not supported by this host")
		}
		code, err := readGuest(caller, codePtr, codeLen)
		if err != nil {
			return 0, err
		}
		input, err := readGuest(caller, inputPtr, inputLen)
		if err != nil {
			return 0, err
		}

		nested := runtimectx.New(code).
			WithInput(input).
			WithState(d.Ctx.State()).
			WithIsShared(d.Ctx.IsShared()).
			WithCatchTrap(true).
			WithFuelLimit(uint32(fuel))
		if d.Ctx.JZKT() != nil {
			nested = nested.WithJZKT(d.Ctx.JZKT().Clone())
		}

		result, err := d.Invoke(nested)
		appendTrace(d, linker.FnNestedCall, uint64(uint32(codeLen)), uint64(uint32(inputLen)), uint64(uint32(fuel)))
		if err != nil {
			return 0, err
		}
		d.Ctx.SetReturnData(result.Data().Output())
		return result.Data().ExitCode(), nil
	})
}
