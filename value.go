package testspan

import (
	"fmt"
	"math"
	"strconv"
	"time"
)

// Kind identifies the type held by a Value.
type Kind uint8

const (
	KindBool Kind = iota
	KindInt64
	KindUint64
	KindFloat64
	KindString
	KindDebug
)

// Value is a recorded field value. The zero Value is the boolean false.
type Value struct {
	str  string
	num  uint64
	kind Kind
}

// Bool returns a boolean Value.
func Bool(v bool) Value {
	var n uint64
	if v {
		n = 1
	}
	return Value{kind: KindBool, num: n}
}

// Int64 returns a signed integer Value.
func Int64(v int64) Value {
	return Value{kind: KindInt64, num: uint64(v)}
}

// Int returns a signed integer Value.
func Int(v int) Value {
	return Int64(int64(v))
}

// Uint64 returns an unsigned integer Value.
func Uint64(v uint64) Value {
	return Value{kind: KindUint64, num: v}
}

// Float64 returns a floating point Value.
func Float64(v float64) Value {
	return Value{kind: KindFloat64, num: math.Float64bits(v)}
}

// String returns a string Value.
func String(v string) Value {
	return Value{kind: KindString, str: v}
}

// Debug returns an opaque, already formatted Value.
func Debug(v string) Value {
	return Value{kind: KindDebug, str: v}
}

// Any converts v to the closest Value kind. Types without a dedicated kind are
// formatted with %+v and stored as a debug Value.
func Any(v any) Value {
	switch x := v.(type) {
	case Value:
		return x
	case bool:
		return Bool(x)
	case int:
		return Int64(int64(x))
	case int8:
		return Int64(int64(x))
	case int16:
		return Int64(int64(x))
	case int32:
		return Int64(int64(x))
	case int64:
		return Int64(x)
	case uint:
		return Uint64(uint64(x))
	case uint8:
		return Uint64(uint64(x))
	case uint16:
		return Uint64(uint64(x))
	case uint32:
		return Uint64(uint64(x))
	case uint64:
		return Uint64(x)
	case float32:
		return Float64(float64(x))
	case float64:
		return Float64(x)
	case string:
		return String(x)
	case time.Duration:
		return Debug(x.String())
	case error:
		return Debug(x.Error())
	case fmt.Stringer:
		return Debug(x.String())
	case nil:
		return Debug("<nil>")
	}
	return Debug(fmt.Sprintf("%+v", v))
}

// Kind returns the kind of the value.
func (v Value) Kind() Kind { return v.kind }

// AsBool returns the boolean held by a KindBool value.
func (v Value) AsBool() bool { return v.num == 1 }

// AsInt64 returns the integer held by a KindInt64 value.
func (v Value) AsInt64() int64 { return int64(v.num) }

// AsUint64 returns the integer held by a KindUint64 value.
func (v Value) AsUint64() uint64 { return v.num }

// AsFloat64 returns the float held by a KindFloat64 value.
func (v Value) AsFloat64() float64 { return math.Float64frombits(v.num) }

// Text returns the string held by a KindString or KindDebug value.
func (v Value) Text() string { return v.str }

// Interface returns the value as a plain Go value.
func (v Value) Interface() any {
	switch v.kind {
	case KindBool:
		return v.AsBool()
	case KindInt64:
		return v.AsInt64()
	case KindUint64:
		return v.AsUint64()
	case KindFloat64:
		return v.AsFloat64()
	default:
		return v.str
	}
}

// Equal reports whether both values have the same kind and payload.
func (v Value) Equal(other Value) bool {
	return v == other
}

// String formats the value for display.
func (v Value) String() string {
	switch v.kind {
	case KindBool:
		return strconv.FormatBool(v.AsBool())
	case KindInt64:
		return strconv.FormatInt(v.AsInt64(), 10)
	case KindUint64:
		return strconv.FormatUint(v.num, 10)
	case KindFloat64:
		return strconv.FormatFloat(v.AsFloat64(), 'g', -1, 64)
	default:
		return v.str
	}
}
