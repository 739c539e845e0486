// Package emitter lowers a checked Program to a sandboxed bytecode
// module: a binary blob a host loads as it would a WASM module, plus a
// JSON source map for resolving traps back to PEPL source.
package emitter

// ValueTag is the tag byte stored in the first 4 bytes of every
// 12-byte heap cell.
type ValueTag uint32

const (
	TagNil ValueTag = iota
	TagNumber
	TagBool
	TagString
	TagList
	TagRecord
	TagVariant
	TagLambda
	TagColor
	TagActionRef
)

// cellSize is the fixed width of one heap cell: a 4-byte tag plus an
// 8-byte payload.
const cellSize = 12

// staticDataReserve is how much of the heap's base is reserved for
// interned string/constant data before the bump allocator's cursor
// starts handing out cells.
const staticDataReserve = 4096

// FuncKind classifies one entry in the source map.
type FuncKind string

const (
	KindSpaceInfra    FuncKind = "SpaceInfra"
	KindAction        FuncKind = "Action"
	KindView          FuncKind = "View"
	KindUpdate        FuncKind = "Update"
	KindHandleEvent   FuncKind = "HandleEvent"
	KindTest          FuncKind = "Test"
	KindTestCount     FuncKind = "TestCount"
	KindLambda        FuncKind = "Lambda"
	KindInvokeLambda  FuncKind = "InvokeLambda"
)

// importSignature describes one of the three fixed host imports.
type importSignature struct {
	Name   string
	Params []string
	Result string
}

var hostImports = []importSignature{
	{Name: "host_call", Params: []string{"i32", "i32", "i32"}, Result: "i32"},
	{Name: "log", Params: []string{"i32", "i32"}, Result: ""},
	{Name: "trap", Params: []string{"i32", "i32"}, Result: ""},
}

// globalCells are the four module-global cells declared by every
// emitted module, in fixed order.
var globalCells = []string{"heap_ptr", "gas", "gas_limit", "state_ptr"}
