package engine_test

import (
	"errors"
	"testing"

	"github.com/bytecodealliance/wasmtime-go/v14"
	"github.com/stretchr/testify/require"

	"github.com/rwasmvm/rwasmvm/engine"
	"github.com/rwasmvm/rwasmvm/exitcode"
	"github.com/rwasmvm/rwasmvm/runtimectx"
	"github.com/rwasmvm/rwasmvm/runtimeerr"
)

func wat(t *testing.T, src string) []byte {
	t.Helper()
	b, err := wasmtime.Wat2Wasm(src)
	require.NoError(t, err)
	return b
}

// TestCleanHalt covers an explicit halt(0) with no output written.
func TestCleanHalt(t *testing.T) {
	code := wat(t, `
		(module
			(import "env" "_sys_halt" (func $halt (param i32)))
			(memory (export "memory") 1)
			(func (export "main")
				i32.const 0
				call $halt))
	`)

	ctx := runtimectx.New(code).WithCatchTrap(true)
	result, err := engine.RunWithContext(ctx)
	require.NoError(t, err)
	require.Equal(t, int32(0), result.Data().ExitCode())
	require.Empty(t, result.Data().Output())
}

// TestWriteOutputThenHalt covers writing output bytes before halting with
// a non-zero exit code.
func TestWriteOutputThenHalt(t *testing.T) {
	code := wat(t, `
		(module
			(import "env" "_sys_write" (func $write (param i32 i32)))
			(import "env" "_sys_halt" (func $halt (param i32)))
			(memory (export "memory") 1)
			(data (i32.const 0) "\01\02\03")
			(func (export "main")
				i32.const 0
				i32.const 3
				call $write
				i32.const 7
				call $halt))
	`)

	ctx := runtimectx.New(code).WithCatchTrap(true)
	result, err := engine.RunWithContext(ctx)
	require.NoError(t, err)
	require.Equal(t, int32(7), result.Data().ExitCode())
	require.Equal(t, []byte{0x01, 0x02, 0x03}, result.Data().Output())
}

// TestMissingEntrypointIsFatal checks a missing "main" export is never
// absorbed by catch_trap, even though catch_trap is enabled.
func TestMissingEntrypointIsFatal(t *testing.T) {
	code := wat(t, `(module)`)

	ctx := runtimectx.New(code).WithCatchTrap(true)
	_, err := engine.RunWithContext(ctx)
	require.Error(t, err)

	var rerr *runtimeerr.Error
	require.True(t, errors.As(err, &rerr))
	require.Equal(t, runtimeerr.MissingEntrypoint, rerr.Kind)
	require.False(t, rerr.CatchTrappable())
}

// TestOutOfFuel covers an infinite loop under a tight fuel limit.
func TestOutOfFuel(t *testing.T) {
	code := wat(t, `
		(module
			(func (export "main")
				(loop $loop
					br $loop)))
	`)

	ctx := runtimectx.New(code).WithCatchTrap(true).WithFuelLimit(1000)
	result, err := engine.RunWithContext(ctx)
	require.NoError(t, err)
	require.Equal(t, int32(exitcode.OutOfFuel), result.Data().ExitCode())

	consumed, ok := result.FuelConsumed()
	require.True(t, ok)
	require.LessOrEqual(t, consumed, uint32(1000))
}

// TestUnreachablePropagatesWhenCatchTrapDisabled covers an unreachable
// trap surfacing as a Go error when catch_trap is off.
func TestUnreachablePropagatesWhenCatchTrapDisabled(t *testing.T) {
	code := wat(t, `
		(module
			(func (export "main")
				unreachable))
	`)

	ctx := runtimectx.New(code).WithCatchTrap(false)
	_, err := engine.RunWithContext(ctx)
	require.Error(t, err)

	var rerr *runtimeerr.Error
	require.True(t, errors.As(err, &rerr))
	require.Equal(t, runtimeerr.Trap, rerr.Kind)
}

// TestCatchTrapIdempotence checks that RunWithContext with catch_trap=true
// never returns a propagated error, even for malformed bytecode.
func TestCatchTrapIdempotence(t *testing.T) {
	ctx := runtimectx.New([]byte{0x00, 0x01, 0x02}).WithCatchTrap(true)
	result, err := engine.RunWithContext(ctx)
	require.NoError(t, err)
	require.NotEqual(t, int32(exitcode.Ok), result.Data().ExitCode())
}

// TestCleanOutputInvariant checks output never carries over from a
// context that already had bytes in it before the call.
func TestCleanOutputInvariant(t *testing.T) {
	code := wat(t, `
		(module
			(memory (export "memory") 1)
			(func (export "main")))
	`)

	ctx := runtimectx.New(code)
	ctx.AppendOutput([]byte{0xFF, 0xFF})

	result, err := engine.RunWithContext(ctx)
	require.NoError(t, err)
	require.Empty(t, result.Data().Output())
}

// TestSharedSurfaceRejectsSovereignImport checks a guest importing a
// sovereign-only name fails instantiation under is_shared.
func TestSharedSurfaceRejectsSovereignImport(t *testing.T) {
	code := wat(t, `
		(module
			(import "env" "_jzkt_update" (func $update (param i32 i32 i32)))
			(func (export "main")))
	`)

	ctx := runtimectx.New(code).WithIsShared(true).WithCatchTrap(false)
	_, err := engine.RunWithContext(ctx)
	require.Error(t, err)

	var rerr *runtimeerr.Error
	require.True(t, errors.As(err, &rerr))
	require.Equal(t, runtimeerr.Instantiation, rerr.Kind)
}
