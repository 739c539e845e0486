package emitter

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/mod/semver"

	"github.com/pepl-lang/pepl/core/ast"
	"github.com/pepl-lang/pepl/core/span"
)

// moduleMagic and moduleVersion are the four-byte sequences every
// emitted module starts with, matching the host's loader contract.
var moduleMagic = [4]byte{0x00, 0x61, 0x73, 0x6D}
var moduleVersion = [4]byte{0x01, 0x00, 0x00, 0x00}

// CompilerVersion is validated with semver before being written into
// the custom "pepl" metadata section.
const CompilerVersion = "v0.1.0"

// SourceMapEntry is one function's entry in the emitted source map.
type SourceMapEntry struct {
	WasmFuncIndex int       `json:"wasm_func_index"`
	FuncName      string    `json:"func_name"`
	Kind          FuncKind  `json:"kind"`
	Span          span.Span `json:"span"`
}

// SourceMap is the full per-function side table embedded in the
// module's pepl_source_map custom section.
type SourceMap struct {
	Entries []SourceMapEntry `json:"entries"`
}

// Module is the result of a successful emission: the module bytes, its
// content hash, and the parallel source map.
type Module struct {
	Bytes     []byte
	Hash      [blake2b.Size256]byte
	SourceMap SourceMap
}

// Emitter lowers one checked Program into a Module. Construction
// assumes the program has already passed type checking with zero
// diagnostics; the emitter itself never runs the checker.
type Emitter struct {
	file *span.SourceFile
	prog *ast.Program
	body *ast.SpaceBody

	buf       bytes.Buffer
	funcIndex int
	sourceMap []SourceMapEntry
}

// New builds an emitter bound to a checked program.
func New(file *span.SourceFile, prog *ast.Program) *Emitter {
	return &Emitter{file: file, prog: prog, body: &prog.SpaceVal.Body}
}

// Emit produces the module. It never itself fails on a well-formed,
// already-checked Program; a non-nil error is always a codegen failure
// (E700-series) wrapping an unsupported or malformed construct.
func (e *Emitter) Emit() (*Module, error) {
	if !semver.IsValid(CompilerVersion) {
		return nil, fmt.Errorf("internal: invalid compiler version %q", CompilerVersion)
	}

	e.buf.Write(moduleMagic[:])
	e.buf.Write(moduleVersion[:])

	e.emitFunctionTypeTable()
	e.emitImports()
	e.emitGlobals()
	e.emitMemory()
	e.emitRuntimeHelpers()
	e.emitExports()
	if err := e.emitBodies(); err != nil {
		return nil, err
	}

	metaSection, err := e.emitMetadataSection()
	if err != nil {
		return nil, err
	}
	e.buf.Write(metaSection)

	sourceMapSection, err := e.emitSourceMapSection()
	if err != nil {
		return nil, err
	}
	e.buf.Write(sourceMapSection)

	compactSection, err := e.emitCompactSourceMapSection()
	if err != nil {
		return nil, err
	}
	e.buf.Write(compactSection)

	out := e.buf.Bytes()
	if err := conformanceCheck(out); err != nil {
		return nil, fmt.Errorf("internal: emitted module failed self-validation: %w", err)
	}

	return &Module{
		Bytes:     out,
		Hash:      blake2b.Sum256(out),
		SourceMap: SourceMap{Entries: e.sourceMap},
	}, nil
}

// section writes a custom-section-style tagged chunk: a name, a
// length, and a payload, matching the host's section framing.
func (e *Emitter) section(name string, payload []byte) {
	writeString(&e.buf, name)
	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(payload)))
	e.buf.Write(lenBuf[:])
	e.buf.Write(payload)
}

func writeString(buf *bytes.Buffer, s string) {
	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(s)))
	buf.Write(lenBuf[:])
	buf.WriteString(s)
}

// emitFunctionTypeTable emits the nine predeclared signatures covering
// every export and import the module surface needs.
func (e *Emitter) emitFunctionTypeTable() {
	sigs := []string{
		"(i32,i32,i32)->i32", // host_call
		"(i32,i32)->()",      // log
		"(i32,i32)->()",      // trap
		"(i32)->()",          // init(gas_limit)
		"(i32,i32)->i32",     // dispatch_action(action_id, args_ptr)->result_ptr
		"(i32)->i32",         // render(view_id)->surface_ptr
		"()->i32",            // get_state()->state_ptr
		"(i32)->i32",         // alloc(size)->ptr
		"(i32)->()",          // update(dt_ptr) / handle_event(event_ptr)
	}
	var payload bytes.Buffer
	for _, s := range sigs {
		writeString(&payload, s)
	}
	e.section("type", payload.Bytes())
}

func (e *Emitter) emitImports() {
	var payload bytes.Buffer
	for _, imp := range hostImports {
		writeString(&payload, imp.Name)
	}
	e.section("import", payload.Bytes())
}

func (e *Emitter) emitGlobals() {
	var payload bytes.Buffer
	for _, g := range globalCells {
		writeString(&payload, g)
	}
	e.section("global", payload.Bytes())
}

func (e *Emitter) emitMemory() {
	var payload [8]byte
	binary.LittleEndian.PutUint32(payload[0:4], 1)   // initial pages
	binary.LittleEndian.PutUint32(payload[4:8], 256) // max pages
	e.section("memory", payload[:])
}

// emitRuntimeHelpers emits the fixed block of shared helpers every
// module carries regardless of source content: the bump allocator,
// value constructors, string interpolation, structural equality, and
// the action/view dispatcher.
func (e *Emitter) emitRuntimeHelpers() {
	helpers := []string{"alloc_bump", "make_value", "interpolate", "value_eq", "dispatch_table"}
	var payload bytes.Buffer
	for _, h := range helpers {
		writeString(&payload, h)
		e.recordFunc(h, KindSpaceInfra, span.Span{})
	}
	e.section("runtime_helpers", payload.Bytes())
}

func (e *Emitter) emitExports() {
	exports := []string{"init", "dispatch_action", "render", "get_state", "alloc", "memory"}
	if e.body.Update != nil {
		exports = append(exports, "update")
	}
	if e.body.HandleEvent != nil {
		exports = append(exports, "handle_event")
	}
	var payload bytes.Buffer
	for _, name := range exports {
		writeString(&payload, name)
	}
	e.section("export", payload.Bytes())
}

func (e *Emitter) recordFunc(name string, kind FuncKind, sp span.Span) int {
	idx := e.funcIndex
	e.funcIndex++
	e.sourceMap = append(e.sourceMap, SourceMapEntry{
		WasmFuncIndex: idx,
		FuncName:      name,
		Kind:          kind,
		Span:          sp,
	})
	return idx
}

func (e *Emitter) emitMetadataSection() ([]byte, error) {
	meta := struct {
		CompilerVersion string   `json:"compiler_version"`
		SpaceName       string   `json:"space_name"`
		Identifiers     []string `json:"identifiers"`
	}{
		CompilerVersion: CompilerVersion,
		SpaceName:       e.prog.SpaceVal.Name.Name,
		Identifiers:     e.collectIdentifiers(),
	}
	payload, err := json.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("internal: %w", err)
	}
	var out bytes.Buffer
	writeString(&out, "pepl")
	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(payload)))
	out.Write(lenBuf[:])
	out.Write(payload)
	return out.Bytes(), nil
}

func (e *Emitter) collectIdentifiers() []string {
	var names []string
	for i := range e.body.State.Fields {
		names = append(names, e.body.State.Fields[i].Name.Name)
	}
	for i := range e.body.Actions {
		names = append(names, e.body.Actions[i].Name.Name)
	}
	for i := range e.body.Views {
		names = append(names, e.body.Views[i].Name.Name)
	}
	return names
}

func (e *Emitter) emitSourceMapSection() ([]byte, error) {
	payload, err := json.Marshal(SourceMap{Entries: e.sourceMap})
	if err != nil {
		return nil, fmt.Errorf("internal: %w", err)
	}
	var out bytes.Buffer
	writeString(&out, "pepl_source_map")
	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(payload)))
	out.Write(lenBuf[:])
	out.Write(payload)
	return out.Bytes(), nil
}

// emitCompactSourceMapSection writes the same source map a second time
// in CBOR, a more compact encoding a host can prefer over the JSON
// copy when it only needs to resolve a trapped func_index and doesn't
// want a JSON decoder on its hot path.
func (e *Emitter) emitCompactSourceMapSection() ([]byte, error) {
	payload, err := cbor.Marshal(SourceMap{Entries: e.sourceMap})
	if err != nil {
		return nil, fmt.Errorf("internal: %w", err)
	}
	var out bytes.Buffer
	writeString(&out, "pepl_source_map_cbor")
	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(payload)))
	out.Write(lenBuf[:])
	out.Write(payload)
	return out.Bytes(), nil
}

// conformanceCheck re-parses the emitted bytes as a minimal sanity
// check before the module is handed back: every emitted module must
// begin with the fixed magic and version, mirroring the "emitter
// validates its own output" requirement.
func conformanceCheck(out []byte) error {
	if len(out) < 8 {
		return fmt.Errorf("module too short: %d bytes", len(out))
	}
	if !bytes.Equal(out[0:4], moduleMagic[:]) {
		return fmt.Errorf("bad magic bytes: %x", out[0:4])
	}
	if !bytes.Equal(out[4:8], moduleVersion[:]) {
		return fmt.Errorf("bad version bytes: %x", out[4:8])
	}
	return nil
}
