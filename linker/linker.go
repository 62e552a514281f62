// Package linker declares the two import surfaces a guest module may be
// instantiated against: sovereign (full privileges) and shared (read-only).
// It is a read-only declaration of (module, name) -> signature; it does not
// itself register host functions (that is the binding registrar, package
// bindings) and it has no process lifecycle — both catalogs are built once
// and never torn down.
package linker

import "github.com/bytecodealliance/wasmtime-go/v14"

// HostModule is the wasm import module name every host binding is declared
// under.
const HostModule = "env"

// Signature describes a host import's parameter and result kinds, used by
// the binding registrar to assert it is wrapping the function the catalog
// expects it to.
type Signature struct {
	Params  []wasmtime.ValKind
	Results []wasmtime.ValKind
}

func sig(params, results []wasmtime.ValKind) Signature {
	return Signature{Params: params, Results: results}
}

var i32 = wasmtime.KindI32

// Catalog is an immutable (module, name) -> Signature declaration. It is a
// programming error for a handler table to be missing an entry the
// catalog declares; bindings.Register returns an error in that case (see
// package bindings).
type Catalog struct {
	surface map[string]Signature
}

// Lookup returns the declared signature for name, and whether it is
// present in this catalog.
func (c *Catalog) Lookup(name string) (Signature, bool) {
	s, ok := c.surface[name]
	return s, ok
}

// Names returns every import name declared by this catalog, in
// registration order (map iteration isn't ordered; callers that need
// determinism should sort this slice).
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.surface))
	for n := range c.surface {
		names = append(names, n)
	}
	return names
}

// Canonical import names. Read/IO names are common to both surfaces;
// state-mutating and nested-call names are sovereign-only.
const (
	FnHalt         = "_sys_halt"          // (code i32)
	FnWrite        = "_sys_write"         // (ptr i32, len i32)
	FnRead         = "_sys_read"          // (ptr i32, len i32, offset i32) -> i32
	FnInputSize    = "_sys_input_size"    // () -> i32
	FnState        = "_sys_state"         // () -> i32
	FnWriteOutput  = "_sys_write_output"  // (ptr i32, len i32) -- return_data
	FnReadOutput   = "_sys_read_output"   // (ptr i32, len i32, offset i32) -> i32
	FnOutputSize   = "_sys_output_size"   // () -> i32
	FnKeccak256    = "_crypto_keccak256"  // (ptr i32, len i32, out_ptr i32)
	FnStateGet     = "_jzkt_get"          // (key_ptr i32, out_ptr i32, out_len i32) -> i32
	FnStateUpdate  = "_jzkt_update"       // (key_ptr i32, val_ptr i32, val_len i32) [sovereign only]
	FnStateCommit  = "_jzkt_commit"       // (out_ptr i32) [sovereign only]
	FnCheckpoint   = "_jzkt_checkpoint"   // () -> i32 (opaque token handle) [sovereign only]
	FnRollback     = "_jzkt_rollback"     // (token i32) [sovereign only]
	FnCommitTo     = "_jzkt_commit_to"    // (token i32) [sovereign only]
	FnNestedCall   = "_sys_call"          // (code_ptr i32, code_len i32, input_ptr i32, input_len i32, fuel i32) -> i32 [sovereign only]
)

var readOnlySurface = map[string]Signature{
	FnHalt:        sig([]wasmtime.ValKind{i32}, nil),
	FnWrite:       sig([]wasmtime.ValKind{i32, i32}, nil),
	FnRead:        sig([]wasmtime.ValKind{i32, i32, i32}, []wasmtime.ValKind{i32}),
	FnInputSize:   sig(nil, []wasmtime.ValKind{i32}),
	FnState:       sig(nil, []wasmtime.ValKind{i32}),
	FnWriteOutput: sig([]wasmtime.ValKind{i32, i32}, nil),
	FnReadOutput:  sig([]wasmtime.ValKind{i32, i32, i32}, []wasmtime.ValKind{i32}),
	FnOutputSize:  sig(nil, []wasmtime.ValKind{i32}),
	FnKeccak256:   sig([]wasmtime.ValKind{i32, i32, i32}, nil),
	FnStateGet:    sig([]wasmtime.ValKind{i32, i32, i32}, []wasmtime.ValKind{i32}),
}

var sovereignOnly = map[string]Signature{
	FnStateUpdate: sig([]wasmtime.ValKind{i32, i32, i32}, nil),
	FnStateCommit: sig([]wasmtime.ValKind{i32}, nil),
	FnCheckpoint:  sig(nil, []wasmtime.ValKind{i32}),
	FnRollback:    sig([]wasmtime.ValKind{i32}, nil),
	FnCommitTo:    sig([]wasmtime.ValKind{i32}, nil),
	FnNestedCall:  sig([]wasmtime.ValKind{i32, i32, i32, i32, i32}, []wasmtime.ValKind{i32}),
}

var sovereignCatalog = buildCatalog(readOnlySurface, sovereignOnly)
var sharedCatalog = buildCatalog(readOnlySurface, nil)

func buildCatalog(sets ...map[string]Signature) *Catalog {
	merged := make(map[string]Signature)
	for _, set := range sets {
		for name, s := range set {
			merged[name] = s
		}
	}
	return &Catalog{surface: merged}
}

// Sovereign returns the process-wide sovereign catalog: the full import
// surface (I/O, state read, state write, state commit, crypto
// primitives, nested call).
func Sovereign() *Catalog { return sovereignCatalog }

// Shared returns the process-wide shared catalog: I/O and read-only state
// observation only. State-mutating and nested-call names are absent; a
// guest module importing one will fail at instantiation.
func Shared() *Catalog { return sharedCatalog }

// For selects the catalog matching isShared, mirroring RuntimeContext's
// own is_shared switch.
func For(isShared bool) *Catalog {
	if isShared {
		return Shared()
	}
	return Sovereign()
}
