// Package types is the semantic type system used by the checker.
//
// Type is distinct from ast.TypeAnnotation, which is the syntactic
// representation produced by the parser. FromAnnotation bridges the two.
package types

import (
	"fmt"
	"strings"

	"github.com/pepl-lang/pepl/core/ast"
)

// Kind discriminates a Type.
type Kind int

const (
	Number Kind = iota
	String
	Bool
	Nil
	Color
	Surface
	InputEvent
	Any
	Void
	Unknown
	List
	Record
	Result
	Function
	SumType
	Named
	Nullable
)

// RecordField is a field in a structural record type.
type RecordField struct {
	Name     string
	Type     *Type
	Optional bool
}

// SumVariant is a variant in a user-defined sum type.
type SumVariant struct {
	Name   string
	Params []Param
}

// Param is a named, typed parameter (used by sum-type variants and
// function signatures alike).
type Param struct {
	Name string
	Type *Type
}

// Type is a semantic type value.
type Type struct {
	Kind Kind

	// List
	Elem *Type

	// Record
	Fields []RecordField

	// Result
	Ok  *Type
	Err *Type

	// Function
	Params []*Type
	Ret    *Type

	// SumType
	SumName     string
	SumVariants []SumVariant

	// Named, Nullable
	NamedName string
	Inner     *Type
}

// Convenience constructors for the primitive and special kinds.
var (
	TNumber     = &Type{Kind: Number}
	TString     = &Type{Kind: String}
	TBool       = &Type{Kind: Bool}
	TNil        = &Type{Kind: Nil}
	TColor      = &Type{Kind: Color}
	TSurface    = &Type{Kind: Surface}
	TInputEvent = &Type{Kind: InputEvent}
	TAny        = &Type{Kind: Any}
	TVoid       = &Type{Kind: Void}
	TUnknown    = &Type{Kind: Unknown}
)

func NewList(elem *Type) *Type { return &Type{Kind: List, Elem: elem} }

func NewRecord(fields []RecordField) *Type { return &Type{Kind: Record, Fields: fields} }

func NewResult(ok, err *Type) *Type { return &Type{Kind: Result, Ok: ok, Err: err} }

func NewFunction(params []*Type, ret *Type) *Type {
	return &Type{Kind: Function, Params: params, Ret: ret}
}

func NewSumType(name string, variants []SumVariant) *Type {
	return &Type{Kind: SumType, SumName: name, SumVariants: variants}
}

func NewNamed(name string) *Type { return &Type{Kind: Named, NamedName: name} }

func NewNullable(inner *Type) *Type {
	if inner.Kind == Nullable {
		return inner
	}
	return &Type{Kind: Nullable, Inner: inner}
}

// FromAnnotation converts a parsed TypeAnnotation into a semantic Type.
func FromAnnotation(ann *ast.TypeAnnotation) *Type {
	switch k := ann.Kind.(type) {
	case ast.NumberType:
		return TNumber
	case ast.StringTypeAnn:
		return TString
	case ast.BoolType:
		return TBool
	case ast.NilType:
		return TNil
	case ast.ColorType:
		return TColor
	case ast.SurfaceType:
		return TSurface
	case ast.InputEventType:
		return TInputEvent
	case ast.AnyType:
		return TAny
	case ast.ListType:
		return NewList(FromAnnotation(k.Elem))
	case ast.ResultType:
		return NewResult(FromAnnotation(k.Ok), FromAnnotation(k.Err))
	case ast.RecordType:
		fields := make([]RecordField, len(k.Fields))
		for i, f := range k.Fields {
			fields[i] = RecordField{
				Name:     f.Name.Name,
				Type:     FromAnnotation(&f.TypeAnn),
				Optional: f.Optional,
			}
		}
		return NewRecord(fields)
	case ast.FunctionType:
		params := make([]*Type, len(k.Params))
		for i := range k.Params {
			params[i] = FromAnnotation(&k.Params[i])
		}
		return NewFunction(params, FromAnnotation(k.Ret))
	case ast.NamedType:
		return NewNamed(k.Name)
	default:
		return TUnknown
	}
}

// IsAssignableTo reports whether a value of type t can be used where
// target is expected. The rules: reflexive equality, any/unknown bidirectional compatibility,
// nil/T → Nullable(T), list covariance, function contravariant
// parameters + covariant return, structural record width/depth
// subtyping, and SumType↔Named-by-name equivalence.
func (t *Type) IsAssignableTo(target *Type) bool {
	if t == nil || target == nil {
		return false
	}
	if t.Equal(target) {
		return true
	}
	if t.Kind == Unknown || target.Kind == Unknown {
		return true
	}
	if t.Kind == Any || target.Kind == Any {
		return true
	}
	if t.Kind == Nil && target.Kind == Nullable {
		return true
	}
	if target.Kind == Nullable {
		if t.IsAssignableTo(target.Inner) {
			return true
		}
	}
	if t.Kind == Nullable && target.Kind == Nullable {
		return t.Inner.IsAssignableTo(target.Inner)
	}
	if t.Kind == List && target.Kind == List {
		return t.Elem.IsAssignableTo(target.Elem)
	}
	if t.Kind == Named && target.Kind == Named {
		return t.NamedName == target.NamedName
	}
	if t.Kind == SumType && target.Kind == Named {
		return t.SumName == target.NamedName
	}
	if t.Kind == Named && target.Kind == SumType {
		return t.NamedName == target.SumName
	}
	if t.Kind == Record && target.Kind == Record {
		for _, tf := range target.Fields {
			sf := findField(t.Fields, tf.Name)
			if tf.Optional {
				if sf != nil && !sf.Type.IsAssignableTo(tf.Type) {
					return false
				}
				continue
			}
			if sf == nil || !sf.Type.IsAssignableTo(tf.Type) {
				return false
			}
		}
		return true
	}
	if t.Kind == Function && target.Kind == Function {
		if len(t.Params) != len(target.Params) {
			return false
		}
		for i := range t.Params {
			if !target.Params[i].IsAssignableTo(t.Params[i]) {
				return false
			}
		}
		return t.Ret.IsAssignableTo(target.Ret)
	}
	return false
}

func findField(fields []RecordField, name string) *RecordField {
	for i := range fields {
		if fields[i].Name == name {
			return &fields[i]
		}
	}
	return nil
}

// Equal is structural equality, used by IsAssignableTo's fast path and
// by the checker when two annotations must denote the same type.
func (t *Type) Equal(other *Type) bool {
	if t == nil || other == nil {
		return t == other
	}
	if t.Kind != other.Kind {
		return false
	}
	switch t.Kind {
	case List:
		return t.Elem.Equal(other.Elem)
	case Result:
		return t.Ok.Equal(other.Ok) && t.Err.Equal(other.Err)
	case Record:
		if len(t.Fields) != len(other.Fields) {
			return false
		}
		for i := range t.Fields {
			a, b := t.Fields[i], other.Fields[i]
			if a.Name != b.Name || a.Optional != b.Optional || !a.Type.Equal(b.Type) {
				return false
			}
		}
		return true
	case Function:
		if len(t.Params) != len(other.Params) || !t.Ret.Equal(other.Ret) {
			return false
		}
		for i := range t.Params {
			if !t.Params[i].Equal(other.Params[i]) {
				return false
			}
		}
		return true
	case SumType:
		return t.SumName == other.SumName
	case Named:
		return t.NamedName == other.NamedName
	case Nullable:
		return t.Inner.Equal(other.Inner)
	default:
		return true
	}
}

// UnwrapNullable returns the inner type of a Nullable, or t itself.
func (t *Type) UnwrapNullable() *Type {
	if t.Kind == Nullable {
		return t.Inner
	}
	return t
}

func (t *Type) IsNumeric() bool { return t.Kind == Number || t.Kind == Any || t.Kind == Unknown }
func (t *Type) IsBool() bool    { return t.Kind == Bool || t.Kind == Any || t.Kind == Unknown }
func (t *Type) IsResult() bool  { return t.Kind == Result || t.Kind == Any || t.Kind == Unknown }
func (t *Type) IsNullable() bool {
	return t.Kind == Nil || t.Kind == Nullable || t.Kind == Any || t.Kind == Unknown
}

// DisplayName renders the type the way error messages quote it.
func (t *Type) DisplayName() string { return t.String() }

func (t *Type) String() string {
	switch t.Kind {
	case Number:
		return "number"
	case String:
		return "string"
	case Bool:
		return "bool"
	case Nil:
		return "nil"
	case Color:
		return "color"
	case Surface:
		return "Surface"
	case InputEvent:
		return "InputEvent"
	case Any:
		return "any"
	case Void:
		return "void"
	case Unknown:
		return "unknown"
	case List:
		return fmt.Sprintf("list<%s>", t.Elem)
	case Record:
		parts := make([]string, len(t.Fields))
		for i, f := range t.Fields {
			if f.Optional {
				parts[i] = fmt.Sprintf("%s?: %s", f.Name, f.Type)
			} else {
				parts[i] = fmt.Sprintf("%s: %s", f.Name, f.Type)
			}
		}
		return "{ " + strings.Join(parts, ", ") + " }"
	case Result:
		return fmt.Sprintf("Result<%s, %s>", t.Ok, t.Err)
	case Function:
		parts := make([]string, len(t.Params))
		for i, p := range t.Params {
			parts[i] = p.String()
		}
		return fmt.Sprintf("(%s) -> %s", strings.Join(parts, ", "), t.Ret)
	case SumType:
		return t.SumName
	case Named:
		return t.NamedName
	case Nullable:
		return t.Inner.String() + "?"
	default:
		return "?"
	}
}

// FnSig is a function signature entry, used by both the stdlib
// registry and user-declared action/lambda arity checks.
type FnSig struct {
	Params   []Param
	Ret      *Type
	Variadic bool
}
