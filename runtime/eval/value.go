// Package eval is a tree-walking reference runtime that shares the
// AST with the compiler: it runs a checked Program directly, without
// going through the bytecode emitter, for use by the test runner and
// an interactive playground.
package eval

import "fmt"

// Kind discriminates a runtime Value.
type Kind int

const (
	KNil Kind = iota
	KNumber
	KBool
	KString
	KList
	KRecord
	KVariant
	KLambda
	KActionRef
	KVoid
)

// Value is the tagged union every expression evaluates to.
type Value struct {
	Kind Kind

	Number float64
	Bool   bool
	String string
	List   []*Value
	Record map[string]*Value

	VariantName string
	VariantArgs []*Value

	Lambda *LambdaValue

	ActionRef string
}

// LambdaValue closes over the environment active at its definition site.
type LambdaValue struct {
	Params []string
	Body   func(args []*Value) (*Value, error)
}

var (
	Nil  = &Value{Kind: KNil}
	Void = &Value{Kind: KVoid}
)

func NumberVal(n float64) *Value { return &Value{Kind: KNumber, Number: n} }
func BoolVal(b bool) *Value      { return &Value{Kind: KBool, Bool: b} }
func StringVal(s string) *Value  { return &Value{Kind: KString, String: s} }
func ListVal(items []*Value) *Value {
	return &Value{Kind: KList, List: items}
}
func RecordVal(fields map[string]*Value) *Value {
	return &Value{Kind: KRecord, Record: fields}
}
func VariantVal(name string, args []*Value) *Value {
	return &Value{Kind: KVariant, VariantName: name, VariantArgs: args}
}

// Truthy reports whether v counts as true in a boolean context. Only
// bools are accepted by the checker, but the evaluator stays lenient
// here since it also runs un-type-checked test fixtures.
func (v *Value) Truthy() bool {
	if v == nil {
		return false
	}
	switch v.Kind {
	case KBool:
		return v.Bool
	case KNil:
		return false
	default:
		return true
	}
}

// Equal is value equality used by == and !=.
func (v *Value) Equal(other *Value) bool {
	if v == nil || other == nil {
		return v == other
	}
	if v.Kind != other.Kind {
		return false
	}
	switch v.Kind {
	case KNil, KVoid:
		return true
	case KNumber:
		return v.Number == other.Number
	case KBool:
		return v.Bool == other.Bool
	case KString:
		return v.String == other.String
	case KList:
		if len(v.List) != len(other.List) {
			return false
		}
		for i := range v.List {
			if !v.List[i].Equal(other.List[i]) {
				return false
			}
		}
		return true
	case KRecord:
		if len(v.Record) != len(other.Record) {
			return false
		}
		for k, fv := range v.Record {
			ov, ok := other.Record[k]
			if !ok || !fv.Equal(ov) {
				return false
			}
		}
		return true
	case KVariant:
		if v.VariantName != other.VariantName || len(v.VariantArgs) != len(other.VariantArgs) {
			return false
		}
		for i := range v.VariantArgs {
			if !v.VariantArgs[i].Equal(other.VariantArgs[i]) {
				return false
			}
		}
		return true
	case KActionRef:
		return v.ActionRef == other.ActionRef
	default:
		return false
	}
}

// Clone deep-copies a value, used to snapshot state before an action
// dispatch so a rollback can restore it byte-for-byte.
func (v *Value) Clone() *Value {
	if v == nil {
		return nil
	}
	switch v.Kind {
	case KList:
		items := make([]*Value, len(v.List))
		for i, e := range v.List {
			items[i] = e.Clone()
		}
		return &Value{Kind: KList, List: items}
	case KRecord:
		fields := make(map[string]*Value, len(v.Record))
		for k, fv := range v.Record {
			fields[k] = fv.Clone()
		}
		return &Value{Kind: KRecord, Record: fields}
	case KVariant:
		args := make([]*Value, len(v.VariantArgs))
		for i, a := range v.VariantArgs {
			args[i] = a.Clone()
		}
		return &Value{Kind: KVariant, VariantName: v.VariantName, VariantArgs: args}
	default:
		cp := *v
		return &cp
	}
}

func (v *Value) String_() string {
	if v == nil {
		return "nil"
	}
	switch v.Kind {
	case KNil:
		return "nil"
	case KNumber:
		return fmt.Sprintf("%g", v.Number)
	case KBool:
		return fmt.Sprintf("%t", v.Bool)
	case KString:
		return v.String
	case KList:
		return fmt.Sprintf("%v", v.List)
	case KRecord:
		return fmt.Sprintf("%v", v.Record)
	case KVariant:
		return v.VariantName
	case KLambda:
		return "<lambda>"
	case KActionRef:
		return v.ActionRef
	default:
		return "<void>"
	}
}
