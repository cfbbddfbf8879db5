package tree

import (
	"bytes"
	"fmt"
	"math"
	"sort"
	"time"
)

// Kind identifies which variant a Value holds
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindBytes
	KindTime
	KindArray
	KindMap
	KindRef
	KindGeoPoint
)

var kindNames = [...]string{
	KindNull:     "null",
	KindBool:     "bool",
	KindInt:      "int",
	KindFloat:    "float",
	KindString:   "string",
	KindBytes:    "bytes",
	KindTime:     "time",
	KindArray:    "array",
	KindMap:      "map",
	KindRef:      "ref",
	KindGeoPoint: "geo",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", k)
}

// GeoPoint is a latitude/longitude pair
type GeoPoint struct {
	Lat float64
	Lng float64
}

// Value is a schema-less document value. The zero Value is null.
type Value struct {
	kind Kind
	b    bool
	i    int64
	f    float64
	s    string // string and ref payload
	raw  []byte
	t    time.Time
	arr  []Value
	m    Fields
	geo  GeoPoint
}

// Fields is the data payload of a single document
type Fields map[string]Value

func Null() Value { return Value{} }
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }
func Int(i int64) Value { return Value{kind: KindInt, i: i} }
func Float(f float64) Value { return Value{kind: KindFloat, f: f} }
func String(s string) Value { return Value{kind: KindString, s: s} }
func Bytes(b []byte) Value { return Value{kind: KindBytes, raw: b} }
func Time(t time.Time) Value { return Value{kind: KindTime, t: t} }
func Array(vs ...Value) Value { return Value{kind: KindArray, arr: vs} }
func Map(m Fields) Value { return Value{kind: KindMap, m: m} }
func Geo(lat, lng float64) Value { return Value{kind: KindGeoPoint, geo: GeoPoint{Lat: lat, Lng: lng}} }

// Ref references another document by its slash-separated path
// relative to the store root (e.g. "users/alice").
func Ref(path string) Value { return Value{kind: KindRef, s: path} }

func (v Value) Kind() Kind { return v.kind }
func (v Value) IsNull() bool { return v.kind == KindNull }
func (v Value) Bool() bool { return v.b }
func (v Value) Int() int64 { return v.i }
func (v Value) Float() float64 { return v.f }
func (v Value) Str() string { return v.s }
func (v Value) Bytes() []byte { return v.raw }
func (v Value) Time() time.Time { return v.t }
func (v Value) Array() []Value { return v.arr }
func (v Value) Map() Fields { return v.m }
func (v Value) RefPath() string { return v.s }
func (v Value) GeoPoint() GeoPoint { return v.geo }

// Number returns int and float values as float64
func (v Value) Number() (float64, bool) {
	switch v.kind {
	case KindInt:
		return float64(v.i), true
	case KindFloat:
		return v.f, true
	}
	return 0, false
}

// ValuesEqual reports whether two values hold the same variant and payload.
// Floats compare by bit pattern so NaN equals NaN.
func ValuesEqual(a, b Value) bool {
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case KindNull:
		return true
	case KindBool:
		return a.b == b.b
	case KindInt:
		return a.i == b.i
	case KindFloat:
		return math.Float64bits(a.f) == math.Float64bits(b.f) || a.f == b.f
	case KindString, KindRef:
		return a.s == b.s
	case KindBytes:
		return bytes.Equal(a.raw, b.raw)
	case KindTime:
		return a.t.Equal(b.t)
	case KindGeoPoint:
		return a.geo == b.geo
	case KindArray:
		if len(a.arr) != len(b.arr) {
			return false
		}
		for i := range a.arr {
			if !ValuesEqual(a.arr[i], b.arr[i]) {
				return false
			}
		}
		return true
	case KindMap:
		return FieldsEqual(a.m, b.m)
	}
	return false
}

// Equal lets go-cmp compare values without reaching into unexported fields.
func (v Value) Equal(other Value) bool { return ValuesEqual(v, other) }

// FieldsEqual compares two field maps. A nil map equals an empty one.
func FieldsEqual(a, b Fields) bool {
	if len(a) != len(b) {
		return false
	}
	for k, va := range a {
		vb, ok := b[k]
		if !ok || !ValuesEqual(va, vb) {
			return false
		}
	}
	return true
}

// Keys returns the field names in sorted order
func (f Fields) Keys() []string {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Clone returns a deep copy of the field map
func (f Fields) Clone() Fields {
	if f == nil {
		return nil
	}
	out := make(Fields, len(f))
	for k, v := range f {
		out[k] = v.clone()
	}
	return out
}

func (v Value) clone() Value {
	switch v.kind {
	case KindBytes:
		v.raw = append([]byte(nil), v.raw...)
	case KindArray:
		arr := make([]Value, len(v.arr))
		for i := range v.arr {
			arr[i] = v.arr[i].clone()
		}
		v.arr = arr
	case KindMap:
		v.m = v.m.Clone()
	}
	return v
}

func (v Value) String() string {
	switch v.kind {
	case KindNull:
		return "null"
	case KindBool:
		return fmt.Sprintf("%t", v.b)
	case KindInt:
		return fmt.Sprintf("%d", v.i)
	case KindFloat:
		return fmt.Sprintf("%g", v.f)
	case KindString:
		return fmt.Sprintf("%q", v.s)
	case KindBytes:
		return fmt.Sprintf("bytes(%d)", len(v.raw))
	case KindTime:
		return v.t.UTC().Format(time.RFC3339Nano)
	case KindRef:
		return "ref(" + v.s + ")"
	case KindGeoPoint:
		return fmt.Sprintf("geo(%g,%g)", v.geo.Lat, v.geo.Lng)
	case KindArray:
		return fmt.Sprintf("%v", v.arr)
	case KindMap:
		return fmt.Sprintf("%v", map[string]Value(v.m))
	}
	return v.kind.String()
}
