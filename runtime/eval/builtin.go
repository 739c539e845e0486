package eval

import (
	"math"
	"strings"
)

// callBuiltin evaluates a stdlib call whose module is not a
// capability-gated one the test harness has already mocked. Coverage
// matches the arithmetic/string/list/core functions exercised by the
// scenario tests. An unimplemented core/math/string/list function
// surfaces as UnknownFunction, and an unmocked call into any other
// module as StdlibError, rather than panicking.
func callBuiltin(module, function string, args []*Value) (*Value, error) {
	switch module {
	case "core":
		return callCore(function, args)
	case "math":
		return callMath(function, args)
	case "string":
		return callString(function, args)
	case "list":
		return callList(function, args)
	default:
		return nil, newErr(StdlibError, "%s.%s has no mocked response and no built-in implementation", module, function)
	}
}

func callCore(function string, args []*Value) (*Value, error) {
	switch function {
	case "log":
		return Void, nil
	default:
		return nil, newErr(UnknownFunction, "core.%s", function)
	}
}

func num(args []*Value, i int) float64 {
	if i < len(args) && args[i].Kind == KNumber {
		return args[i].Number
	}
	return 0
}

func callMath(function string, args []*Value) (*Value, error) {
	switch function {
	case "abs":
		return NumberVal(math.Abs(num(args, 0))), nil
	case "min":
		return NumberVal(math.Min(num(args, 0), num(args, 1))), nil
	case "max":
		return NumberVal(math.Max(num(args, 0), num(args, 1))), nil
	case "floor":
		return NumberVal(math.Floor(num(args, 0))), nil
	case "ceil":
		return NumberVal(math.Ceil(num(args, 0))), nil
	case "round":
		return NumberVal(math.Round(num(args, 0))), nil
	case "round_to":
		scale := math.Pow(10, num(args, 1))
		return NumberVal(math.Round(num(args, 0)*scale) / scale), nil
	case "pow":
		return NumberVal(math.Pow(num(args, 0), num(args, 1))), nil
	case "clamp":
		x, lo, hi := num(args, 0), num(args, 1), num(args, 2)
		return NumberVal(math.Min(math.Max(x, lo), hi)), nil
	case "sqrt":
		return NumberVal(math.Sqrt(num(args, 0))), nil
	default:
		return nil, newErr(UnknownFunction, "math.%s", function)
	}
}

func str(args []*Value, i int) string {
	if i < len(args) && args[i].Kind == KString {
		return args[i].String
	}
	return ""
}

func callString(function string, args []*Value) (*Value, error) {
	switch function {
	case "length":
		return NumberVal(float64(len(str(args, 0)))), nil
	case "concat":
		return StringVal(str(args, 0) + str(args, 1)), nil
	case "contains":
		return BoolVal(strings.Contains(str(args, 0), str(args, 1))), nil
	case "trim":
		return StringVal(strings.TrimSpace(str(args, 0))), nil
	case "to_upper":
		return StringVal(strings.ToUpper(str(args, 0))), nil
	case "to_lower":
		return StringVal(strings.ToLower(str(args, 0))), nil
	case "starts_with":
		return BoolVal(strings.HasPrefix(str(args, 0), str(args, 1))), nil
	case "split":
		parts := strings.Split(str(args, 0), str(args, 1))
		items := make([]*Value, len(parts))
		for i, p := range parts {
			items[i] = StringVal(p)
		}
		return ListVal(items), nil
	case "slice":
		s := str(args, 0)
		start, end := int(num(args, 1)), int(num(args, 2))
		if start < 0 {
			start = 0
		}
		if end > len(s) {
			end = len(s)
		}
		if start > end {
			return StringVal(""), nil
		}
		return StringVal(s[start:end]), nil
	default:
		return nil, newErr(UnknownFunction, "string.%s", function)
	}
}

func callList(function string, args []*Value) (*Value, error) {
	switch function {
	case "length":
		if len(args) > 0 && args[0].Kind == KList {
			return NumberVal(float64(len(args[0].List))), nil
		}
		return NumberVal(0), nil
	case "push":
		if len(args) < 2 || args[0].Kind != KList {
			return nil, newErr(TypeMismatch, "list.push requires a list and a value")
		}
		out := append(append([]*Value(nil), args[0].List...), args[1])
		return ListVal(out), nil
	case "is_empty":
		if len(args) > 0 && args[0].Kind == KList {
			return BoolVal(len(args[0].List) == 0), nil
		}
		return BoolVal(true), nil
	default:
		return nil, newErr(UnknownFunction, "list.%s", function)
	}
}
