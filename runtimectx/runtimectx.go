// Package runtimectx implements the per-invocation mutable record and the
// immutable post-run snapshot returned to callers. Construction follows
// the teacher's builder pattern: each With* method returns a new value,
// so a base context can be reused to derive several invocations without
// aliasing mutable state.
package runtimectx

import "github.com/rwasmvm/rwasmvm/statedb"

// Context is the record owned by exactly one in-flight invocation. While
// an invocation is in progress, only that invocation's goroutine mutates
// it.
type Context struct {
	bytecode []byte
	fuelLimit uint32
	state     uint32
	isShared  bool
	catchTrap bool
	input     []byte

	exitCode     int32
	output       []byte
	consumedFuel uint32
	returnData   []byte

	jzkt statedb.DB

	haltRequested bool
	haltCode      int32
}

// New returns the minimum viable context: catch_trap defaults to true and
// fuel_limit to 0 (unmetered), matching RuntimeContext::default() in
// original_source/crates/runtime/src/runtime.rs.
func New(bytecode []byte) *Context {
	return &Context{
		bytecode:  append([]byte(nil), bytecode...),
		catchTrap: true,
	}
}

// clone is used internally by With* builders and by Clone; it always
// deep-copies byte slices but aliases the jzkt handle (cloning the DB
// handle does not duplicate stored data).
func (c *Context) clone() *Context {
	cp := *c
	cp.bytecode = append([]byte(nil), c.bytecode...)
	cp.input = append([]byte(nil), c.input...)
	cp.output = append([]byte(nil), c.output...)
	cp.returnData = append([]byte(nil), c.returnData...)
	return &cp
}

// Clone duplicates every field, including the state DB handle; the
// handle aliases the same underlying store.
func (c *Context) Clone() *Context { return c.clone() }

// WithInput sets the argv buffer presented to the guest.
func (c *Context) WithInput(input []byte) *Context {
	cp := c.clone()
	cp.input = append([]byte(nil), input...)
	return cp
}

// WithState sets the opaque caller-intent tag echoed to the guest.
func (c *Context) WithState(state uint32) *Context {
	cp := c.clone()
	cp.state = state
	return cp
}

// WithIsShared selects the shared (true) or sovereign (false) import
// surface.
func (c *Context) WithIsShared(isShared bool) *Context {
	cp := c.clone()
	cp.isShared = isShared
	return cp
}

// WithCatchTrap controls whether traps are translated to an exit code
// (true) or propagate as errors to the caller (false).
func (c *Context) WithCatchTrap(catchTrap bool) *Context {
	cp := c.clone()
	cp.catchTrap = catchTrap
	return cp
}

// WithFuelLimit sets the fuel budget; 0 disables metering.
func (c *Context) WithFuelLimit(fuelLimit uint32) *Context {
	cp := c.clone()
	cp.fuelLimit = fuelLimit
	return cp
}

// WithJZKT attaches a journaled state database handle.
func (c *Context) WithJZKT(db statedb.DB) *Context {
	cp := c.clone()
	cp.jzkt = db
	return cp
}

// ChangeInput mutates the argv buffer in place. Unlike the With* builders
// this is permitted mid-invocation.
func (c *Context) ChangeInput(input []byte) {
	c.input = append([]byte(nil), input...)
}

// CleanOutput clears the output buffer in place. Called by the invoker at
// the start of every run_with_context, and exposed here because bindings
// may also need to reset it explicitly. It also resets any halt request
// left over from a previous invocation of the same underlying context
// value.
func (c *Context) CleanOutput() {
	c.output = c.output[:0]
	c.haltRequested = false
	c.haltCode = 0
}

// RequestHalt records an explicit sys_halt(code) exit status. Explicit
// exit status wins over trap-code classification: Call reads
// HaltRequested to know the engine error it sees is this halt's trap,
// not a real fault to classify.
func (c *Context) RequestHalt(code int32) {
	c.haltRequested = true
	c.haltCode = code
	c.exitCode = code
}

// HaltRequested reports whether the guest called sys_halt during this
// invocation, and with what code.
func (c *Context) HaltRequested() (int32, bool) {
	return c.haltCode, c.haltRequested
}

// Bytecode returns the immutable module source.
func (c *Context) Bytecode() []byte { return c.bytecode }

// FuelLimit returns the configured fuel budget (0 = unmetered).
func (c *Context) FuelLimit() uint32 { return c.fuelLimit }

// State returns the opaque caller-intent tag.
func (c *Context) State() uint32 { return c.state }

// IsShared reports whether the shared (restricted) import surface is
// selected.
func (c *Context) IsShared() bool { return c.isShared }

// CatchTrap reports whether traps are absorbed into ExitCode rather than
// propagated.
func (c *Context) CatchTrap() bool { return c.catchTrap }

// Input returns a borrowed view of the argv buffer.
func (c *Context) Input() []byte { return c.input }

// InputCount and InputSize both alias len(input); the distinction is
// unresolved in the source this is grounded on (see SPEC_FULL.md §C) so
// both names are kept for guest-binding source fidelity.
func (c *Context) InputCount() uint32 { return uint32(len(c.input)) }
func (c *Context) InputSize() uint32  { return uint32(len(c.input)) }

// ExitCode returns the guest exit status; meaningful only after a
// successful call or a catch-trap conversion.
func (c *Context) ExitCode() int32 { return c.exitCode }

// SetExitCode is called by the invoker and by the host exit binding.
func (c *Context) SetExitCode(code int32) { c.exitCode = code }

// Output returns a borrowed view of the bytes written by the guest via
// the output binding.
func (c *Context) Output() []byte { return c.output }

// AppendOutput is called by the host output binding.
func (c *Context) AppendOutput(b []byte) { c.output = append(c.output, b...) }

// ConsumedFuel returns the fuel tally, set post-run when metered.
func (c *Context) ConsumedFuel() uint32 { return c.consumedFuel }

// SetConsumedFuel is called by the invoker after call() returns.
func (c *Context) SetConsumedFuel(fuel uint32) { c.consumedFuel = fuel }

// ReturnData returns a borrowed view of the EVM-RETURNDATA-like buffer.
func (c *Context) ReturnData() []byte { return c.returnData }

// SetReturnData is called by the host return-data binding.
func (c *Context) SetReturnData(b []byte) { c.returnData = append([]byte(nil), b...) }

// JZKT returns the attached state database handle, or nil if none was
// configured.
func (c *Context) JZKT() statedb.DB { return c.jzkt }
