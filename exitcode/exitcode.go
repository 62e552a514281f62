// Package exitcode defines the guest-visible exit status space and the
// fixed translation from engine trap codes into it.
package exitcode

import "github.com/bytecodealliance/wasmtime-go/v14"

// ExitCode is a signed 32-bit guest exit status. Zero is success; positive
// values are guest-defined domain codes (reserved for sys_halt callers);
// negative values are reserved for host-originated failures.
type ExitCode int32

const (
	// Ok is the zero exit code: a clean guest return or an explicit
	// sys_halt(0).
	Ok ExitCode = 0

	// UnknownError is the sentinel returned for any error that is not a
	// classifiable trap: linker errors surfaced at call time, or an engine
	// error carrying neither an explicit i32 exit status nor a trap code.
	UnknownError ExitCode = -1

	// OutOfFuel is returned when the store's fuel is exhausted before a
	// metered operation executes (eager consumption).
	OutOfFuel ExitCode = -2

	// CallStackOverflow maps wasmtime's StackOverflow trap code.
	CallStackOverflow ExitCode = -3

	// MemoryOutOfBounds maps an out-of-bounds linear memory access.
	MemoryOutOfBounds ExitCode = -4

	// TableOutOfBounds maps an out-of-bounds table access.
	TableOutOfBounds ExitCode = -5

	// IndirectCallToNull maps a call_indirect through a null table slot.
	IndirectCallToNull ExitCode = -6

	// BadSignature maps a call_indirect type mismatch.
	BadSignature ExitCode = -7

	// IntegerOverflow maps a trapping integer overflow (e.g. signed div
	// overflow).
	IntegerOverflow ExitCode = -8

	// IntegerDivisionByZero maps a division or remainder by zero.
	IntegerDivisionByZero ExitCode = -9

	// BadConversionToInteger maps an invalid float-to-int truncation.
	//
	// Unreachable in practice: the loader rejects any module containing a
	// floating-point operation before it is ever instantiated (see
	// engine.Load), but the mapping is kept complete because wasmtime-go's
	// TrapCode enumeration still defines it.
	BadConversionToInteger ExitCode = -10

	// Unreachable maps an executed `unreachable` instruction.
	Unreachable ExitCode = -11

	// Interrupted maps an externally requested interrupt (epoch deadline
	// or explicit Store interrupt handle); unused unless a caller wires
	// one up, kept for completeness of the trap table.
	Interrupted ExitCode = -12
)

// FromTrapCode deterministically maps a wasmtime-go trap code to an
// ExitCode. It is a pure function: the same trap code always yields the
// same ExitCode, with no dependency on runtime state.
func FromTrapCode(code wasmtime.TrapCode) ExitCode {
	switch code {
	case wasmtime.TrapCodeStackOverflow:
		return CallStackOverflow
	case wasmtime.TrapCodeMemoryOutOfBounds:
		return MemoryOutOfBounds
	case wasmtime.TrapCodeHeapMisaligned:
		return MemoryOutOfBounds
	case wasmtime.TrapCodeTableOutOfBounds:
		return TableOutOfBounds
	case wasmtime.TrapCodeIndirectCallToNull:
		return IndirectCallToNull
	case wasmtime.TrapCodeBadSignature:
		return BadSignature
	case wasmtime.TrapCodeIntegerOverflow:
		return IntegerOverflow
	case wasmtime.TrapCodeIntegerDivisionByZero:
		return IntegerDivisionByZero
	case wasmtime.TrapCodeBadConversionToInteger:
		return BadConversionToInteger
	case wasmtime.TrapCodeUnreachableCodeReached:
		return Unreachable
	case wasmtime.TrapCodeInterrupt:
		return Interrupted
	case wasmtime.TrapCodeOutOfFuel:
		return OutOfFuel
	default:
		return UnknownError
	}
}

// String names the exit code for logging; unrecognized guest-defined
// positive codes print as their integer value.
func (e ExitCode) String() string {
	switch e {
	case Ok:
		return "ok"
	case UnknownError:
		return "unknown_error"
	case OutOfFuel:
		return "out_of_fuel"
	case CallStackOverflow:
		return "call_stack_overflow"
	case MemoryOutOfBounds:
		return "memory_out_of_bounds"
	case TableOutOfBounds:
		return "table_out_of_bounds"
	case IndirectCallToNull:
		return "indirect_call_to_null"
	case BadSignature:
		return "bad_signature"
	case IntegerOverflow:
		return "integer_overflow"
	case IntegerDivisionByZero:
		return "integer_division_by_zero"
	case BadConversionToInteger:
		return "bad_conversion_to_integer"
	case Unreachable:
		return "unreachable"
	case Interrupted:
		return "interrupted"
	default:
		return "guest_exit"
	}
}
