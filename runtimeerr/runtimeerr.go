// Package runtimeerr defines the runtime's error taxonomy. Errors here are
// a closed, tagged sum type rather than ad-hoc sentinels, because the
// invoker needs to branch on *kind* (catch-trappable or not) independently
// of the wrapped cause.
package runtimeerr

import "fmt"

// Kind classifies a runtime error by the stage of execution it occurred
// in.
type Kind int

const (
	// ModuleLoad covers bytecode parsing and link-time failures.
	ModuleLoad Kind = iota
	// Instantiation covers start-function traps and missing imports.
	Instantiation
	// MissingEntrypoint signals no zero-arg/zero-result "main" export.
	// Never catch-trappable: it is a fatal, malformed-module error.
	MissingEntrypoint
	// Trap covers any trap surfaced by call() — explicit exit status or
	// engine trap code.
	Trap
	// Other covers any non-trap error surfacing through the engine, e.g.
	// a linker-level problem raised at call time.
	Other
)

func (k Kind) String() string {
	switch k {
	case ModuleLoad:
		return "module_load"
	case Instantiation:
		return "instantiation"
	case MissingEntrypoint:
		return "missing_entrypoint"
	case Trap:
		return "trap"
	case Other:
		return "other"
	default:
		return "unknown"
	}
}

// Error wraps an underlying cause with its Kind. Construct with the
// exported helpers below rather than the struct literal, so call sites
// read as intent (runtimeerr.Load(err)) rather than field assignment.
type Error struct {
	Kind  Kind
	Cause error
}

func (e *Error) Error() string {
	if e.Cause == nil {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Cause)
}

func (e *Error) Unwrap() error { return e.Cause }

func newErr(kind Kind, cause error) *Error { return &Error{Kind: kind, Cause: cause} }

// Load wraps a bytecode-parsing or link-time failure.
func Load(cause error) *Error { return newErr(ModuleLoad, cause) }

// Instantiate wraps a start-function trap or missing-import failure.
func Instantiate(cause error) *Error { return newErr(Instantiation, cause) }

// MissingMain reports that the module has no callable zero-arg,
// zero-result "main" export. Always fatal; see (*Error).CatchTrappable.
func MissingMain() *Error { return newErr(MissingEntrypoint, nil) }

// TrapErr wraps a trap raised during call().
func TrapErr(cause error) *Error { return newErr(Trap, cause) }

// OtherErr wraps any other call-time failure.
func OtherErr(cause error) *Error { return newErr(Other, cause) }

// CatchTrappable reports whether this error kind may be absorbed into an
// exit code when the runtime context has catch_trap enabled. Only
// MissingEntrypoint is excluded: a missing entry point signals a
// malformed module, not a guest-level exceptional exit.
func (e *Error) CatchTrappable() bool {
	return e.Kind != MissingEntrypoint
}
