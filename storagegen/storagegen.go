// Package storagegen is a code generator standing in for
// original_source/crates/sdk-derive/src/solidity_storage.rs, a Rust
// procedural macro that expands mapping(...)/array storage declarations
// into typed slot accessors at compile time. Go has no procedural
// macros, so the supplemented feature here is a generator: it parses a
// small declarative DSL (a Go struct whose fields carry a
// `storage:"..."` tag) via go/ast, and emits a _storage_gen.go file with
// one type per declared slot.
//
// This is an external collaborator: it is specified only through the
// file it emits, and is not otherwise exercised by the core runtime in
// package engine/bindings/runtimectx.
package storagegen

import (
	"bytes"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"sort"
	"strconv"
	"strings"
	"text/template"

	"golang.org/x/crypto/sha3"
)

// Kind classifies a declared storage slot.
type Kind int

const (
	// Scalar is a single value occupying exactly one slot.
	Scalar Kind = iota
	// Mapping is a key -> value slot, keyed by one or more arguments
	// (nested mapping(...) declarations add more key arguments).
	Mapping
)

// SlotDecl is one field's parsed storage declaration.
type SlotDecl struct {
	StructName string
	FieldName  string
	Kind       Kind
	KeyArity   int // number of Key(...) arguments for Mapping; 0 for Scalar
	SlotIndex  uint64
}

// storageTag matches "scalar(...)" or "mapping(a,b,...)"; only the
// leading keyword and, for mapping, the argument count are needed — this
// generator does not type-check key/value types, it only derives slot
// keys.
var tagPattern = func() func(string) (Kind, int, bool) {
	return func(tag string) (Kind, int, bool) {
		tag = strings.TrimSpace(tag)
		switch {
		case strings.HasPrefix(tag, "scalar("):
			return Scalar, 0, true
		case strings.HasPrefix(tag, "mapping("):
			inner := strings.TrimSuffix(strings.TrimPrefix(tag, "mapping("), ")")
			depth := strings.Count(tag, "mapping(")
			_ = inner
			return Mapping, depth, true
		default:
			return Scalar, 0, false
		}
	}
}()

// Parse reads a Go source file and extracts every struct field carrying
// a storage tag.
func Parse(filename string, src interface{}) ([]SlotDecl, error) {
	fset := token.NewFileSet()
	f, err := parser.ParseFile(fset, filename, src, parser.ParseComments)
	if err != nil {
		return nil, fmt.Errorf("storagegen: parsing %s: %w", filename, err)
	}

	var decls []SlotDecl
	ast.Inspect(f, func(n ast.Node) bool {
		ts, ok := n.(*ast.TypeSpec)
		if !ok {
			return true
		}
		st, ok := ts.Type.(*ast.StructType)
		if !ok {
			return true
		}
		for _, field := range st.Fields.List {
			if field.Tag == nil {
				continue
			}
			tagValue, err := strconv.Unquote(field.Tag.Value)
			if err != nil {
				continue
			}
			structTag := reflectStructTag(tagValue)
			storageTag, ok := structTag["storage"]
			if !ok {
				continue
			}
			kind, arity, ok := tagPattern(storageTag)
			if !ok {
				continue
			}
			slotIndex, _ := strconv.ParseUint(structTag["slot"], 10, 64)
			for _, name := range field.Names {
				decls = append(decls, SlotDecl{
					StructName: ts.Name.Name,
					FieldName:  name.Name,
					Kind:       kind,
					KeyArity:   arity,
					SlotIndex:  slotIndex,
				})
			}
		}
		return true
	})

	sort.Slice(decls, func(i, j int) bool { return decls[i].SlotIndex < decls[j].SlotIndex })
	return decls, nil
}

// reflectStructTag parses a raw Go struct tag string ("storage:\"...\"
// slot:\"0\"") into a map, without pulling in reflect.StructTag (which
// requires an addressable struct field value, not a literal string).
func reflectStructTag(tag string) map[string]string {
	out := make(map[string]string)
	for tag != "" {
		i := 0
		for i < len(tag) && tag[i] == ' ' {
			i++
		}
		tag = tag[i:]
		if tag == "" {
			break
		}
		i = 0
		for i < len(tag) && tag[i] != ':' && tag[i] != ' ' {
			i++
		}
		if i == 0 || i+1 >= len(tag) || tag[i] != ':' || tag[i+1] != '"' {
			break
		}
		name := tag[:i]
		tag = tag[i+2:]
		i = 0
		for i < len(tag) && tag[i] != '"' {
			if tag[i] == '\\' {
				i++
			}
			i++
		}
		if i >= len(tag) {
			break
		}
		value := tag[:i]
		tag = tag[i+1:]
		out[name] = value
	}
	return out
}

// Key computes the storage slot key for a scalar or mapping declaration,
// following the standard Solidity-style derivation the Rust macro's
// original stub conceptually describes: for a scalar it is the
// left-padded slot index; for a mapping it is
// keccak256(leftPad32(args[0]) || ... || leftPad32(args[n-1]) ||
// leftPad32(slotIndex)), applied once per nesting level for nested
// mappings.
func Key(slotIndex uint64, args ...[]byte) [32]byte {
	slot := leftPad32(uint64ToBytes(slotIndex))
	if len(args) == 0 {
		return slot
	}
	acc := slot
	for _, arg := range args {
		h := sha3.NewLegacyKeccak256()
		h.Write(leftPad32(arg)[:])
		h.Write(acc[:])
		var next [32]byte
		copy(next[:], h.Sum(nil))
		acc = next
	}
	return acc
}

func uint64ToBytes(v uint64) []byte {
	b := make([]byte, 8)
	for i := 7; i >= 0; i-- {
		b[i] = byte(v)
		v >>= 8
	}
	return b
}

func leftPad32(b []byte) [32]byte {
	var out [32]byte
	if len(b) >= 32 {
		copy(out[:], b[len(b)-32:])
		return out
	}
	copy(out[32-len(b):], b)
	return out
}

const genTemplate = `// Code generated by storagegen; DO NOT EDIT.

package {{.Package}}

import "github.com/rwasmvm/rwasmvm/storagegen"

{{range .Decls}}
{{if eq .Kind 0}}
// {{.FieldName}}Slot is the scalar storage slot generated for
// {{.StructName}}.{{.FieldName}}.
type {{.FieldName}}Slot struct{}

// Key returns this scalar's fixed storage key.
func (s {{.FieldName}}Slot) Key() [32]byte {
	return storagegen.Key({{.SlotIndex}})
}
{{else}}
// {{.FieldName}}Slot is the mapping storage slot generated for
// {{.StructName}}.{{.FieldName}}, keyed by {{.KeyArity}} argument(s).
type {{.FieldName}}Slot struct{}

// Key derives this mapping entry's storage key from its key argument(s).
func (s {{.FieldName}}Slot) Key(keys ...[]byte) [32]byte {
	return storagegen.Key({{.SlotIndex}}, keys...)
}
{{end}}
{{end}}
`

// Generate renders the accessor file for decls under the given package
// name.
func Generate(pkgName string, decls []SlotDecl) ([]byte, error) {
	tmpl, err := template.New("storagegen").Parse(genTemplate)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	data := struct {
		Package string
		Decls   []SlotDecl
	}{Package: pkgName, Decls: decls}
	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
