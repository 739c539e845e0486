// Package stdlib registers the fixed set of built-in module functions
// the type checker and evaluator resolve qualified calls against
// (math.abs(x), string.length(s), storage.get(key), ...).
package stdlib

import (
	"sort"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/pepl-lang/pepl/core/types"
)

// Registry maps (module, function) to a signature and (module, name)
// to a constant's type.
type Registry struct {
	modules   map[string]map[string]types.FnSig
	constants map[string]map[string]*types.Type
}

// New builds a registry with every stdlib module registered, across
// 13 modules (core, math, string, list, record, time, convert, json,
// timer, http, storage, location, notifications).
func New() *Registry {
	r := &Registry{
		modules:   map[string]map[string]types.FnSig{},
		constants: map[string]map[string]*types.Type{},
	}
	r.registerCore()
	r.registerMath()
	r.registerString()
	r.registerList()
	r.registerRecord()
	r.registerTime()
	r.registerConvert()
	r.registerJSON()
	r.registerTimer()
	r.registerHTTP()
	r.registerStorage()
	r.registerLocation()
	r.registerNotifications()
	return r
}

// Get looks up a function signature by module and name.
func (r *Registry) Get(module, function string) (types.FnSig, bool) {
	fns, ok := r.modules[module]
	if !ok {
		return types.FnSig{}, false
	}
	sig, ok := fns[function]
	return sig, ok
}

// HasModule reports whether module is a known stdlib module.
func (r *Registry) HasModule(module string) bool {
	_, okFn := r.modules[module]
	_, okConst := r.constants[module]
	return okFn || okConst
}

// GetConstant looks up a module-level constant's type (e.g. math.PI).
func (r *Registry) GetConstant(module, name string) (*types.Type, bool) {
	consts, ok := r.constants[module]
	if !ok {
		return nil, false
	}
	t, ok := consts[name]
	return t, ok
}

// Modules returns the full function registry, for iteration.
func (r *Registry) Modules() map[string]map[string]types.FnSig { return r.modules }

func (r *Registry) add(module, name string, sig types.FnSig) {
	fns, ok := r.modules[module]
	if !ok {
		fns = map[string]types.FnSig{}
		r.modules[module] = fns
	}
	fns[name] = sig
}

func (r *Registry) addConst(module, name string, t *types.Type) {
	consts, ok := r.constants[module]
	if !ok {
		consts = map[string]*types.Type{}
		r.constants[module] = consts
	}
	consts[name] = t
}

func p(name string, t *types.Type) types.Param { return types.Param{Name: name, Type: t} }

func sig(params []types.Param, ret *types.Type) types.FnSig {
	return types.FnSig{Params: params, Ret: ret}
}

func variadicSig(params []types.Param, ret *types.Type) types.FnSig {
	return types.FnSig{Params: params, Ret: ret, Variadic: true}
}

// CapabilityModules maps a stdlib module name to the capability that
// must be declared in `capabilities { required/optional: [...] }`
// before it can be called.
func CapabilityModules() map[string]string {
	return map[string]string{
		"http":          "http",
		"storage":       "storage",
		"location":      "location",
		"notifications": "notifications",
		"timer":         "timer",
	}
}

// SuggestFunction returns the closest-matching "module.function" name
// for an unresolved qualified call, used to populate PeplError.Suggestion:
// the best-ranked name containing the typed letters in order, or failing
// that the nearest name within an edit distance of 2.
func (r *Registry) SuggestFunction(module, function string) (string, bool) {
	fns, ok := r.modules[module]
	if !ok {
		return "", false
	}
	candidates := make([]string, 0, len(fns))
	for name := range fns {
		candidates = append(candidates, name)
	}
	sort.Strings(candidates)
	if matches := fuzzy.RankFindFold(function, candidates); len(matches) > 0 {
		sort.Sort(matches)
		return module + "." + matches[0].Target, true
	}
	best, bestDist := "", 3
	for _, name := range candidates {
		if d := fuzzy.LevenshteinDistance(function, name); d < bestDist {
			best, bestDist = name, d
		}
	}
	if best == "" {
		return "", false
	}
	return module + "." + best, true
}

// core: 4 functions
func (r *Registry) registerCore() {
	r.add("core", "log", sig([]types.Param{p("value", types.TAny)}, types.TNil))
	r.add("core", "assert", sig([]types.Param{p("condition", types.TBool), p("message", types.TString)}, types.TNil))
	r.add("core", "type_of", sig([]types.Param{p("value", types.TAny)}, types.TString))
	r.add("core", "capability", sig([]types.Param{p("name", types.TString)}, types.TBool))
}

// math: 10 functions + 2 constants (PI, E)
func (r *Registry) registerMath() {
	n := types.TNumber
	r.add("math", "abs", sig([]types.Param{p("x", n)}, n))
	r.add("math", "min", sig([]types.Param{p("a", n), p("b", n)}, n))
	r.add("math", "max", sig([]types.Param{p("a", n), p("b", n)}, n))
	r.add("math", "floor", sig([]types.Param{p("x", n)}, n))
	r.add("math", "ceil", sig([]types.Param{p("x", n)}, n))
	r.add("math", "round", sig([]types.Param{p("x", n)}, n))
	r.add("math", "round_to", sig([]types.Param{p("x", n), p("decimals", n)}, n))
	r.add("math", "pow", sig([]types.Param{p("base", n), p("exp", n)}, n))
	r.add("math", "clamp", sig([]types.Param{p("x", n), p("min", n), p("max", n)}, n))
	r.add("math", "sqrt", sig([]types.Param{p("x", n)}, n))
	r.addConst("math", "PI", n)
	r.addConst("math", "E", n)
}

// string: 20 functions
func (r *Registry) registerString() {
	s := types.TString
	n := types.TNumber
	b := types.TBool
	listOfString := types.NewList(s)
	r.add("string", "length", sig([]types.Param{p("s", s)}, n))
	r.add("string", "concat", sig([]types.Param{p("a", s), p("b", s)}, s))
	r.add("string", "contains", sig([]types.Param{p("s", s), p("substr", s)}, b))
	r.add("string", "slice", sig([]types.Param{p("s", s), p("start", n), p("end", n)}, s))
	r.add("string", "trim", sig([]types.Param{p("s", s)}, s))
	r.add("string", "split", sig([]types.Param{p("s", s), p("delimiter", s)}, listOfString))
	r.add("string", "to_upper", sig([]types.Param{p("s", s)}, s))
	r.add("string", "to_lower", sig([]types.Param{p("s", s)}, s))
	r.add("string", "starts_with", sig([]types.Param{p("s", s), p("prefix", s)}, b))
	r.add("string", "ends_with", sig([]types.Param{p("s", s), p("suffix", s)}, b))
	r.add("string", "replace", sig([]types.Param{p("s", s), p("from", s), p("to", s)}, s))
	r.add("string", "replace_all", sig([]types.Param{p("s", s), p("from", s), p("to", s)}, s))
	r.add("string", "pad_start", sig([]types.Param{p("s", s), p("length", n), p("pad", s)}, s))
	r.add("string", "pad_end", sig([]types.Param{p("s", s), p("length", n), p("pad", s)}, s))
	r.add("string", "repeat", sig([]types.Param{p("s", s), p("count", n)}, s))
	r.add("string", "join", sig([]types.Param{p("items", listOfString), p("separator", s)}, s))
	r.add("string", "format", sig([]types.Param{p("template", s), p("values", types.NewRecord(nil))}, s))
	r.add("string", "from", sig([]types.Param{p("value", types.TAny)}, s))
	r.add("string", "is_empty", sig([]types.Param{p("s", s)}, b))
	r.add("string", "index_of", sig([]types.Param{p("s", s), p("substr", s)}, n))
}

// list: 34 functions
func (r *Registry) registerList() {
	n := types.TNumber
	b := types.TBool
	t := types.TAny
	listT := types.NewList(types.TAny)
	listOfNumber := types.NewList(n)
	mapFn := types.NewFunction([]*types.Type{t}, t)
	predicate := types.NewFunction([]*types.Type{t}, b)
	reduceFn := types.NewFunction([]*types.Type{t, t}, t)
	compareFn := types.NewFunction([]*types.Type{t, t}, n)

	r.add("list", "empty", sig(nil, listT))
	r.add("list", "of", variadicSig([]types.Param{p("items", t)}, listT))
	r.add("list", "repeat", sig([]types.Param{p("value", t), p("count", n)}, listT))
	r.add("list", "range", sig([]types.Param{p("start", n), p("end", n)}, listOfNumber))

	r.add("list", "length", sig([]types.Param{p("items", listT)}, n))
	r.add("list", "get", sig([]types.Param{p("items", listT), p("index", n)}, t))
	r.add("list", "first", sig([]types.Param{p("items", listT)}, t))
	r.add("list", "last", sig([]types.Param{p("items", listT)}, t))
	r.add("list", "index_of", sig([]types.Param{p("items", listT), p("value", t)}, n))

	r.add("list", "append", sig([]types.Param{p("items", listT), p("value", t)}, listT))
	r.add("list", "prepend", sig([]types.Param{p("items", listT), p("value", t)}, listT))
	r.add("list", "insert", sig([]types.Param{p("items", listT), p("index", n), p("value", t)}, listT))
	r.add("list", "remove", sig([]types.Param{p("items", listT), p("index", n)}, listT))
	r.add("list", "update", sig([]types.Param{p("items", listT), p("index", n), p("value", t)}, listT))
	r.add("list", "set", sig([]types.Param{p("items", listT), p("index", n), p("value", t)}, listT)) // alias of update
	r.add("list", "slice", sig([]types.Param{p("items", listT), p("start", n), p("end", n)}, listT))
	r.add("list", "concat", sig([]types.Param{p("a", listT), p("b", listT)}, listT))
	r.add("list", "reverse", sig([]types.Param{p("items", listT)}, listT))
	r.add("list", "flatten", sig([]types.Param{p("items", listT)}, listT))
	r.add("list", "unique", sig([]types.Param{p("items", listT)}, listT))

	r.add("list", "map", sig([]types.Param{p("items", listT), p("f", mapFn)}, listT))
	r.add("list", "filter", sig([]types.Param{p("items", listT), p("predicate", predicate)}, listT))
	r.add("list", "reduce", sig([]types.Param{p("items", listT), p("initial", t), p("f", reduceFn)}, t))
	r.add("list", "find", sig([]types.Param{p("items", listT), p("predicate", predicate)}, types.NewNullable(t)))
	r.add("list", "find_index", sig([]types.Param{p("items", listT), p("predicate", predicate)}, n))
	r.add("list", "every", sig([]types.Param{p("items", listT), p("predicate", predicate)}, b))
	r.add("list", "any", sig([]types.Param{p("items", listT), p("predicate", predicate)}, b))
	r.add("list", "some", sig([]types.Param{p("items", listT), p("predicate", predicate)}, b)) // alias of any
	r.add("list", "sort", sig([]types.Param{p("items", listT), p("compare", compareFn)}, listT))
	r.add("list", "contains", sig([]types.Param{p("items", listT), p("value", t)}, b))
	r.add("list", "count", sig([]types.Param{p("items", listT), p("predicate", predicate)}, n))
	r.add("list", "zip", sig([]types.Param{p("a", listT), p("b", listT)}, listT))
	r.add("list", "take", sig([]types.Param{p("items", listT), p("n", n)}, listT))
	r.add("list", "drop", sig([]types.Param{p("items", listT), p("n", n)}, listT))
}

// record: 5 functions
func (r *Registry) registerRecord() {
	rec := types.NewRecord(nil)
	s := types.TString
	r.add("record", "get", sig([]types.Param{p("rec", rec), p("key", s)}, types.TAny))
	r.add("record", "set", sig([]types.Param{p("rec", rec), p("key", s), p("value", types.TAny)}, rec))
	r.add("record", "has", sig([]types.Param{p("rec", rec), p("key", s)}, types.TBool))
	r.add("record", "keys", sig([]types.Param{p("rec", rec)}, types.NewList(s)))
	r.add("record", "values", sig([]types.Param{p("rec", rec)}, types.NewList(types.TAny)))
}

// time: 5 functions
func (r *Registry) registerTime() {
	n := types.TNumber
	s := types.TString
	r.add("time", "now", sig(nil, n))
	r.add("time", "format", sig([]types.Param{p("timestamp", n), p("pattern", s)}, s))
	r.add("time", "diff", sig([]types.Param{p("a", n), p("b", n)}, n))
	r.add("time", "day_of_week", sig([]types.Param{p("timestamp", n)}, n))
	r.add("time", "start_of_day", sig([]types.Param{p("timestamp", n)}, n))
}

// convert: 5 functions
func (r *Registry) registerConvert() {
	s := types.TString
	n := types.TNumber
	numberOrErr := types.NewResult(n, s)
	r.add("convert", "to_string", sig([]types.Param{p("value", types.TAny)}, s))
	r.add("convert", "to_number", sig([]types.Param{p("value", types.TAny)}, numberOrErr))
	r.add("convert", "parse_int", sig([]types.Param{p("s", s)}, numberOrErr))
	r.add("convert", "parse_float", sig([]types.Param{p("s", s)}, numberOrErr))
	r.add("convert", "to_bool", sig([]types.Param{p("value", types.TAny)}, types.TBool))
}

// json: 2 functions
func (r *Registry) registerJSON() {
	r.add("json", "parse", sig([]types.Param{p("s", types.TString)}, types.NewResult(types.TAny, types.TString)))
	r.add("json", "stringify", sig([]types.Param{p("value", types.TAny)}, types.TString))
}

// timer: 4 functions (capability: timer)
func (r *Registry) registerTimer() {
	s := types.TString
	n := types.TNumber
	r.add("timer", "start", sig([]types.Param{p("id", s), p("interval_ms", n)}, s))
	r.add("timer", "start_once", sig([]types.Param{p("id", s), p("delay_ms", n)}, s))
	r.add("timer", "stop", sig([]types.Param{p("id", s)}, types.TNil))
	r.add("timer", "stop_all", sig(nil, types.TNil))
}

// http: 5 functions (capability: http)
func (r *Registry) registerHTTP() {
	s := types.TString
	resultOfString := types.NewResult(s, s)
	r.add("http", "get", sig([]types.Param{p("url", s)}, resultOfString))
	r.add("http", "post", sig([]types.Param{p("url", s), p("body", s)}, resultOfString))
	r.add("http", "put", sig([]types.Param{p("url", s), p("body", s)}, resultOfString))
	r.add("http", "patch", sig([]types.Param{p("url", s), p("body", s)}, resultOfString))
	r.add("http", "delete", sig([]types.Param{p("url", s)}, resultOfString))
}

// storage: 4 functions (capability: storage)
func (r *Registry) registerStorage() {
	s := types.TString
	r.add("storage", "get", sig([]types.Param{p("key", s)}, types.NewNullable(s)))
	r.add("storage", "set", sig([]types.Param{p("key", s), p("value", s)}, types.TNil))
	r.add("storage", "delete", sig([]types.Param{p("key", s)}, types.TNil))
	r.add("storage", "keys", sig(nil, types.NewList(s)))
}

// location: 1 function (capability: location)
func (r *Registry) registerLocation() {
	coords := types.NewRecord([]types.RecordField{
		{Name: "lat", Type: types.TNumber},
		{Name: "lon", Type: types.TNumber},
	})
	r.add("location", "current", sig(nil, coords))
}

// notifications: 1 function (capability: notifications)
func (r *Registry) registerNotifications() {
	s := types.TString
	r.add("notifications", "send", sig([]types.Param{p("title", s), p("body", s)}, types.TNil))
}
