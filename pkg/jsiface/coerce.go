package jsiface

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"

	"github.com/go-viper/mapstructure/v2"
)

// Enum is implemented by enumerated types that scripts return by name. The
// type must have a string or integer kind. String kinds take the name as
// their value; integer kinds take the index of the name. EnumNames may be
// declared on the value or the pointer receiver.
type Enum interface {
	EnumNames() []string
}

var enumType = reflect.TypeFor[Enum]()

// CoercionError reports a script result that does not fit the declared type.
type CoercionError struct {
	Type   reflect.Type
	Raw    any
	Reason string
}

func (e *CoercionError) Error() string {
	return fmt.Sprintf("cannot coerce %T (%v) to %s: %s", e.Raw, e.Raw, e.Type, e.Reason)
}

func coercionErr(t reflect.Type, raw any, format string, args ...any) error {
	return &CoercionError{Type: t, Raw: raw, Reason: fmt.Sprintf(format, args...)}
}

// Coerce converts a raw script result into a value of type t. A nil t means
// the result is discarded and the zero reflect.Value is returned.
func Coerce(raw any, t reflect.Type) (reflect.Value, error) {
	if t == nil {
		return reflect.Value{}, nil
	}

	switch {
	case isEnum(t):
		if raw == nil {
			return reflect.Value{}, coercionErr(t, raw, "null is not a member")
		}
		return coerceEnum(raw, t)
	case t.Kind() == reflect.Pointer && isEnum(t.Elem()):
		if raw == nil {
			return reflect.Zero(t), nil
		}
		v, err := coerceEnum(raw, t.Elem())
		if err != nil {
			return reflect.Value{}, err
		}
		return box(v), nil
	case isPrimitive(t):
		if raw == nil {
			return reflect.Value{}, coercionErr(t, raw, "null for a primitive")
		}
		return coercePrimitive(raw, t)
	case t.Kind() == reflect.Pointer && isPrimitive(t.Elem()):
		if raw == nil {
			return reflect.Zero(t), nil
		}
		v, err := coercePrimitive(raw, t.Elem())
		if err != nil {
			return reflect.Value{}, err
		}
		return box(v), nil
	}
	return coerceOther(raw, t)
}

// As is the typed form of Coerce.
func As[T any](raw any) (T, error) {
	var zero T
	v, err := Coerce(raw, reflect.TypeFor[T]())
	if err != nil {
		return zero, err
	}
	out, _ := v.Interface().(T)
	return out, nil
}

func box(v reflect.Value) reflect.Value {
	p := reflect.New(v.Type())
	p.Elem().Set(v)
	return p
}

func isEnum(t reflect.Type) bool {
	if !t.Implements(enumType) && !reflect.PointerTo(t).Implements(enumType) {
		return false
	}
	switch t.Kind() {
	case reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return true
	}
	return false
}

func isPrimitive(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Bool, reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

func coerceEnum(raw any, t reflect.Type) (reflect.Value, error) {
	name, ok := raw.(string)
	if !ok {
		return reflect.Value{}, coercionErr(t, raw, "enum values are returned by name")
	}
	names := enumNames(t)
	for i, n := range names {
		if n != name {
			continue
		}
		out := reflect.New(t).Elem()
		switch t.Kind() {
		case reflect.String:
			out.SetString(n)
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			out.SetInt(int64(i))
		default:
			out.SetUint(uint64(i))
		}
		return out, nil
	}
	return reflect.Value{}, coercionErr(t, raw, "no member named %q", name)
}

// enumNames also serves types that implement Enum on the pointer receiver.
func enumNames(t reflect.Type) []string {
	if t.Implements(enumType) {
		return reflect.Zero(t).Interface().(Enum).EnumNames()
	}
	return reflect.New(t).Interface().(Enum).EnumNames()
}

func coercePrimitive(raw any, t reflect.Type) (reflect.Value, error) {
	out := reflect.New(t).Elem()
	switch t.Kind() {
	case reflect.Bool:
		b, ok := raw.(bool)
		if !ok {
			return reflect.Value{}, coercionErr(t, raw, "not a boolean")
		}
		out.SetBool(b)
	case reflect.String:
		s, ok := raw.(string)
		if !ok {
			return reflect.Value{}, coercionErr(t, raw, "not a string")
		}
		out.SetString(s)
	case reflect.Float32, reflect.Float64:
		f, ok := toFloat(raw)
		if !ok {
			return reflect.Value{}, coercionErr(t, raw, "not a number")
		}
		if out.OverflowFloat(f) {
			return reflect.Value{}, coercionErr(t, raw, "out of range")
		}
		out.SetFloat(f)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := toInt(raw, t)
		if err != nil {
			return reflect.Value{}, err
		}
		if out.OverflowInt(n) {
			return reflect.Value{}, coercionErr(t, raw, "out of range")
		}
		out.SetInt(n)
	default:
		n, err := toUint(raw, t)
		if err != nil {
			return reflect.Value{}, err
		}
		if out.OverflowUint(n) {
			return reflect.Value{}, coercionErr(t, raw, "out of range")
		}
		out.SetUint(n)
	}
	return out, nil
}

func toFloat(raw any) (float64, bool) {
	if n, ok := raw.(json.Number); ok {
		f, err := n.Float64()
		return f, err == nil
	}
	rv := reflect.ValueOf(raw)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	}
	return 0, false
}

// integral reports whether f holds a whole number that fits in an int64.
func integral(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0) && f == math.Trunc(f) &&
		f >= math.MinInt64 && f < math.MaxInt64
}

func toInt(raw any, t reflect.Type) (int64, error) {
	if n, ok := raw.(json.Number); ok {
		if i, err := n.Int64(); err == nil {
			return i, nil
		}
	}
	rv := reflect.ValueOf(raw)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if rv.Uint() > math.MaxInt64 {
			return 0, coercionErr(t, raw, "out of range")
		}
		return int64(rv.Uint()), nil
	}
	f, ok := toFloat(raw)
	if !ok {
		return 0, coercionErr(t, raw, "not a number")
	}
	if !integral(f) {
		return 0, coercionErr(t, raw, "not an integer")
	}
	return int64(f), nil
}

func toUint(raw any, t reflect.Type) (uint64, error) {
	n, err := toInt(raw, t)
	if err == nil {
		if n < 0 {
			return 0, coercionErr(t, raw, "negative")
		}
		return uint64(n), nil
	}
	rv := reflect.ValueOf(raw)
	switch rv.Kind() {
	case reflect.Uint, reflect.Uint64, reflect.Uintptr:
		return rv.Uint(), nil
	}
	return 0, err
}

func nillable(k reflect.Kind) bool {
	switch k {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		return true
	}
	return false
}

func coerceOther(raw any, t reflect.Type) (reflect.Value, error) {
	if raw == nil {
		if nillable(t.Kind()) {
			return reflect.Zero(t), nil
		}
		return reflect.Value{}, coercionErr(t, raw, "null for a non-nillable type")
	}

	out := reflect.New(t).Elem()
	rv := reflect.ValueOf(raw)
	if rv.Type().AssignableTo(t) {
		out.Set(rv)
		return out, nil
	}

	switch rv.Kind() {
	case reflect.Map, reflect.Slice:
		dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
			Result:     out.Addr().Interface(),
			TagName:    "json",
			DecodeHook: mapstructure.DecodeHookFuncType(coerceLeaf),
		})
		if err != nil {
			return reflect.Value{}, err
		}
		if err := dec.Decode(raw); err != nil {
			return reflect.Value{}, coercionErr(t, raw, "%v", err)
		}
		return out, nil
	}
	return reflect.Value{}, coercionErr(t, raw, "incompatible shape")
}

// coerceLeaf applies the scalar rules to enum and numeric fields nested in
// maps, slices and structs, so a nested value is never silently truncated.
func coerceLeaf(_ reflect.Type, to reflect.Type, data any) (any, error) {
	if data == nil {
		return data, nil
	}
	var (
		v   reflect.Value
		err error
	)
	switch {
	case isEnum(to):
		v, err = coerceEnum(data, to)
	case isNumeric(to.Kind()):
		v, err = coercePrimitive(data, to)
	default:
		return data, nil
	}
	if err != nil {
		return nil, err
	}
	return v.Interface(), nil
}

func isNumeric(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}
