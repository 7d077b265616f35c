package rpc

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
)

// Args is an ordered, fixed-arity list of positional argument values.
// Numeric values are canonicalized on construction (signed integers to
// int64, unsigned to uint64, floats to float64) so that typed access via
// Arg behaves the same whether a message stayed in process or crossed a
// serialized channel.
type Args struct {
	vals []any
}

// NewArgs canonicalizes vals into an Args list.
func NewArgs(vals ...any) Args {
	if len(vals) == 0 {
		return Args{}
	}
	out := make([]any, len(vals))
	for i, v := range vals {
		out[i] = canonical(v)
	}
	return Args{vals: out}
}

// Len returns the number of arguments.
func (a Args) Len() int { return len(a.vals) }

// canonical collapses every numeric, string, and bool value to its widest
// builtin type. Named kinds (track IDs, statuses, ticks) lose their name
// here and get it back in Arg. Anything else passes through untouched.
func canonical(v any) any {
	switch v := v.(type) {
	case nil, bool, string, []byte, int64, uint64, float64:
		return v
	case int:
		return int64(v)
	case int8:
		return int64(v)
	case int16:
		return int64(v)
	case int32:
		return int64(v)
	case uint:
		return uint64(v)
	case uint8:
		return uint64(v)
	case uint16:
		return uint64(v)
	case uint32:
		return uint64(v)
	case float32:
		return float64(v)
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return rv.Uint()
	case reflect.Float32, reflect.Float64:
		return rv.Float()
	case reflect.String:
		return rv.String()
	case reflect.Bool:
		return rv.Bool()
	}
	return v
}

// Arg returns the i'th argument as type T. The stored value must be a T or
// share its kind class with T (integer to integer, float to float, string
// to string, bool to bool). Anything else is a contract violation between
// the two endpoints of the bridge and panics rather than returning a
// corrupt value.
func Arg[T any](a Args, i int) T {
	if i < 0 || i >= len(a.vals) {
		panic(fmt.Sprintf("rpc: args[%d]: out of range (%d args)", i, len(a.vals)))
	}
	v := a.vals[i]
	if t, ok := v.(T); ok {
		return t
	}
	want := reflect.TypeOf((*T)(nil)).Elem()
	have := reflect.ValueOf(v)
	if v != nil && compatibleKinds(have.Kind(), want.Kind()) && have.Type().ConvertibleTo(want) {
		return have.Convert(want).Interface().(T)
	}
	panic(fmt.Sprintf("rpc: args[%d]: have %T, want %s", i, v, want))
}

func compatibleKinds(have, want reflect.Kind) bool {
	switch {
	case integerKind(have) && integerKind(want):
		return true
	case floatKind(have) && floatKind(want):
		return true
	case have == reflect.String && want == reflect.String:
		return true
	case have == reflect.Bool && want == reflect.Bool:
		return true
	}
	return false
}

func integerKind(k reflect.Kind) bool {
	return k >= reflect.Int && k <= reflect.Int64 || k >= reflect.Uint && k <= reflect.Uint64
}

func floatKind(k reflect.Kind) bool {
	return k == reflect.Float32 || k == reflect.Float64
}

// wireArg is the serialized form of one argument. Integers travel as
// decimal strings so 64-bit values survive JSON number precision; bytes
// travel base64 per encoding/json.
type wireArg struct {
	Kind  string  `json:"kind"`
	Int   string  `json:"int,omitempty"`
	Uint  string  `json:"uint,omitempty"`
	Float float64 `json:"float,omitempty"`
	Str   string  `json:"string,omitempty"`
	Bool  bool    `json:"bool,omitempty"`
	Bytes []byte  `json:"bytes,omitempty"`
}

// MarshalJSON encodes the list as tagged wire arguments. Values that only
// make sense in process, such as stream handles, have no wire form and
// fail here; callers on serialized channels are expected to reject such
// messages before they reach encoding.
func (a Args) MarshalJSON() ([]byte, error) {
	out := make([]wireArg, len(a.vals))
	for i, v := range a.vals {
		w, err := encodeArg(v)
		if err != nil {
			return nil, fmt.Errorf("rpc: args[%d]: %w", i, err)
		}
		out[i] = w
	}
	return json.Marshal(out)
}

func encodeArg(v any) (wireArg, error) {
	switch v := v.(type) {
	case int64:
		return wireArg{Kind: "int", Int: strconv.FormatInt(v, 10)}, nil
	case uint64:
		return wireArg{Kind: "uint", Uint: strconv.FormatUint(v, 10)}, nil
	case float64:
		return wireArg{Kind: "float", Float: v}, nil
	case string:
		return wireArg{Kind: "string", Str: v}, nil
	case bool:
		return wireArg{Kind: "bool", Bool: v}, nil
	case []byte:
		return wireArg{Kind: "bytes", Bytes: v}, nil
	}
	return wireArg{}, fmt.Errorf("value of type %T has no wire form", v)
}

// UnmarshalJSON decodes a tagged wire argument list.
func (a *Args) UnmarshalJSON(data []byte) error {
	var ws []wireArg
	if err := json.Unmarshal(data, &ws); err != nil {
		return err
	}
	if len(ws) == 0 {
		a.vals = nil
		return nil
	}
	vals := make([]any, len(ws))
	for i, w := range ws {
		v, err := decodeArg(w)
		if err != nil {
			return fmt.Errorf("rpc: args[%d]: %w", i, err)
		}
		vals[i] = v
	}
	a.vals = vals
	return nil
}

func decodeArg(w wireArg) (any, error) {
	switch w.Kind {
	case "int":
		return strconv.ParseInt(w.Int, 10, 64)
	case "uint":
		return strconv.ParseUint(w.Uint, 10, 64)
	case "float":
		return w.Float, nil
	case "string":
		return w.Str, nil
	case "bool":
		return w.Bool, nil
	case "bytes":
		return w.Bytes, nil
	}
	return nil, fmt.Errorf("unknown argument kind %q", w.Kind)
}
