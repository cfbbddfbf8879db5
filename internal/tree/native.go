package tree

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"time"
)

// FromNative converts a plain Go value (as produced by encoding/json or
// written by hand in tests) into a Value.
func FromNative(x any) (Value, error) {
	switch v := x.(type) {
	case nil:
		return Null(), nil
	case Value:
		return v, nil
	case bool:
		return Bool(v), nil
	case int:
		return Int(int64(v)), nil
	case int8:
		return Int(int64(v)), nil
	case int16:
		return Int(int64(v)), nil
	case int32:
		return Int(int64(v)), nil
	case int64:
		return Int(v), nil
	case uint:
		return fromUint(uint64(v)), nil
	case uint8:
		return Int(int64(v)), nil
	case uint16:
		return Int(int64(v)), nil
	case uint32:
		return Int(int64(v)), nil
	case uint64:
		return fromUint(v), nil
	case float32:
		return Float(float64(v)), nil
	case float64:
		return Float(v), nil
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return Int(i), nil
		}
		f, err := v.Float64()
		if err != nil {
			return Value{}, fmt.Errorf("invalid number %q: %w", v, err)
		}
		return Float(f), nil
	case string:
		return String(v), nil
	case []byte:
		return Bytes(v), nil
	case time.Time:
		return Time(v), nil
	case *time.Time:
		if v == nil {
			return Null(), nil
		}
		return Time(*v), nil
	case GeoPoint:
		return Geo(v.Lat, v.Lng), nil
	case Fields:
		return Map(v), nil
	case []Value:
		return Array(v...), nil
	case []any:
		arr := make([]Value, len(v))
		for i, item := range v {
			cv, err := FromNative(item)
			if err != nil {
				return Value{}, fmt.Errorf("[%d]: %w", i, err)
			}
			arr[i] = cv
		}
		return Array(arr...), nil
	case map[string]any:
		fields, err := FieldsFromNative(v)
		if err != nil {
			return Value{}, err
		}
		return Map(fields), nil
	}

	rv := reflect.ValueOf(x)
	switch rv.Kind() {
	case reflect.Pointer:
		if rv.IsNil() {
			return Null(), nil
		}
		return FromNative(rv.Elem().Interface())
	case reflect.Slice, reflect.Array:
		arr := make([]Value, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			cv, err := FromNative(rv.Index(i).Interface())
			if err != nil {
				return Value{}, fmt.Errorf("[%d]: %w", i, err)
			}
			arr[i] = cv
		}
		return Array(arr...), nil
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return Value{}, fmt.Errorf("unsupported map key type %s", rv.Type().Key())
		}
		fields := make(Fields, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			cv, err := FromNative(iter.Value().Interface())
			if err != nil {
				return Value{}, fmt.Errorf("%s: %w", iter.Key().String(), err)
			}
			fields[iter.Key().String()] = cv
		}
		return Map(fields), nil
	case reflect.String:
		return String(rv.String()), nil
	}
	return Value{}, fmt.Errorf("unsupported value type %T", x)
}

func fromUint(u uint64) Value {
	if u > math.MaxInt64 {
		return Float(float64(u))
	}
	return Int(int64(u))
}

// FieldsFromNative converts a plain map into Fields
func FieldsFromNative(m map[string]any) (Fields, error) {
	fields := make(Fields, len(m))
	for k, item := range m {
		v, err := FromNative(item)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", k, err)
		}
		fields[k] = v
	}
	return fields, nil
}

// MustFields is FieldsFromNative for literals known to be valid
func MustFields(m map[string]any) Fields {
	fields, err := FieldsFromNative(m)
	if err != nil {
		panic(err)
	}
	return fields
}

// Tag keys used by the tagged encoding. Nulls, bools, strings, arrays and
// maps are written bare; every other kind is a single-key object.
const (
	tagInt   = "$int"
	tagFloat = "$float"
	tagBytes = "$bytes"
	tagTime  = "$time"
	tagRef   = "$ref"
	tagGeo   = "$geo"
	tagMap   = "$map"
)

// Tagged returns a JSON/YAML friendly representation that FromTagged
// turns back into an identical Value.
func (v Value) Tagged() any {
	switch v.kind {
	case KindNull:
		return nil
	case KindBool:
		return v.b
	case KindString:
		return v.s
	case KindInt:
		return map[string]any{tagInt: v.i}
	case KindFloat:
		if math.IsNaN(v.f) || math.IsInf(v.f, 0) {
			return map[string]any{tagFloat: strconv.FormatFloat(v.f, 'g', -1, 64)}
		}
		return map[string]any{tagFloat: v.f}
	case KindBytes:
		return map[string]any{tagBytes: base64.StdEncoding.EncodeToString(v.raw)}
	case KindTime:
		return map[string]any{tagTime: v.t.UTC().Format(time.RFC3339Nano)}
	case KindRef:
		return map[string]any{tagRef: v.s}
	case KindGeoPoint:
		return map[string]any{tagGeo: []any{v.geo.Lat, v.geo.Lng}}
	case KindArray:
		arr := make([]any, len(v.arr))
		for i := range v.arr {
			arr[i] = v.arr[i].Tagged()
		}
		return arr
	case KindMap:
		m := v.m.Tagged()
		if len(m) == 1 {
			for k := range m {
				if len(k) > 0 && k[0] == '$' {
					return map[string]any{tagMap: m}
				}
			}
		}
		return m
	}
	return nil
}

// Tagged encodes every field with Value.Tagged
func (f Fields) Tagged() map[string]any {
	m := make(map[string]any, len(f))
	for k, v := range f {
		m[k] = v.Tagged()
	}
	return m
}

// FromTagged decodes the output of Tagged after a trip through
// encoding/json (with UseNumber or not) or yaml.v3.
func FromTagged(x any) (Value, error) {
	switch v := x.(type) {
	case nil:
		return Null(), nil
	case bool:
		return Bool(v), nil
	case string:
		return String(v), nil
	case time.Time:
		// yaml.v3 may resolve an unquoted timestamp on its own
		return String(v.UTC().Format(time.RFC3339Nano)), nil
	case []any:
		arr := make([]Value, len(v))
		for i, item := range v {
			cv, err := FromTagged(item)
			if err != nil {
				return Value{}, fmt.Errorf("[%d]: %w", i, err)
			}
			arr[i] = cv
		}
		return Array(arr...), nil
	case map[string]any:
		if len(v) == 1 {
			for k, inner := range v {
				if len(k) > 0 && k[0] == '$' {
					return fromTag(k, inner)
				}
			}
		}
		fields, err := FieldsFromTagged(v)
		if err != nil {
			return Value{}, err
		}
		return Map(fields), nil
	case map[any]any:
		m := make(map[string]any, len(v))
		for k, item := range v {
			m[fmt.Sprint(k)] = item
		}
		return FromTagged(m)
	}
	// Bare numbers are not produced by Tagged but are accepted for
	// hand-written snapshots.
	return FromNative(x)
}

func fromTag(tag string, x any) (Value, error) {
	switch tag {
	case tagInt:
		i, err := toInt64(x)
		if err != nil {
			return Value{}, fmt.Errorf("%s: %w", tag, err)
		}
		return Int(i), nil
	case tagFloat:
		f, err := toFloat64(x)
		if err != nil {
			return Value{}, fmt.Errorf("%s: %w", tag, err)
		}
		return Float(f), nil
	case tagBytes:
		s, ok := x.(string)
		if !ok {
			return Value{}, fmt.Errorf("%s: expected string, got %T", tag, x)
		}
		raw, err := base64.StdEncoding.DecodeString(s)
		if err != nil {
			return Value{}, fmt.Errorf("%s: %w", tag, err)
		}
		return Bytes(raw), nil
	case tagTime:
		switch t := x.(type) {
		case time.Time:
			return Time(t), nil
		case string:
			parsed, err := time.Parse(time.RFC3339Nano, t)
			if err != nil {
				return Value{}, fmt.Errorf("%s: %w", tag, err)
			}
			return Time(parsed), nil
		}
		return Value{}, fmt.Errorf("%s: expected string, got %T", tag, x)
	case tagRef:
		s, ok := x.(string)
		if !ok {
			return Value{}, fmt.Errorf("%s: expected string, got %T", tag, x)
		}
		return Ref(s), nil
	case tagGeo:
		pair, ok := x.([]any)
		if !ok || len(pair) != 2 {
			return Value{}, fmt.Errorf("%s: expected [lat, lng]", tag)
		}
		lat, err := toFloat64(pair[0])
		if err != nil {
			return Value{}, fmt.Errorf("%s: %w", tag, err)
		}
		lng, err := toFloat64(pair[1])
		if err != nil {
			return Value{}, fmt.Errorf("%s: %w", tag, err)
		}
		return Geo(lat, lng), nil
	case tagMap:
		inner, ok := x.(map[string]any)
		if !ok {
			return Value{}, fmt.Errorf("%s: expected object, got %T", tag, x)
		}
		fields, err := FieldsFromTagged(inner)
		if err != nil {
			return Value{}, err
		}
		return Map(fields), nil
	}
	// Unknown single-key $ objects are ordinary maps
	inner, err := FromTagged(x)
	if err != nil {
		return Value{}, err
	}
	return Map(Fields{tag: inner}), nil
}

// FieldsFromTagged decodes a map produced by Fields.Tagged
func FieldsFromTagged(m map[string]any) (Fields, error) {
	fields := make(Fields, len(m))
	for k, item := range m {
		v, err := FromTagged(item)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", k, err)
		}
		fields[k] = v
	}
	return fields, nil
}

// MarshalFieldsJSON encodes fields with the tagged encoding
func MarshalFieldsJSON(f Fields) ([]byte, error) {
	return json.Marshal(f.Tagged())
}

// UnmarshalFieldsJSON decodes the output of MarshalFieldsJSON
func UnmarshalFieldsJSON(data []byte) (Fields, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var m map[string]any
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("decode fields: %w", err)
	}
	if m == nil {
		return Fields{}, nil
	}
	return FieldsFromTagged(m)
}

func toInt64(x any) (int64, error) {
	switch n := x.(type) {
	case int:
		return int64(n), nil
	case int64:
		return n, nil
	case uint64:
		if n > math.MaxInt64 {
			return 0, fmt.Errorf("integer %d overflows int64", n)
		}
		return int64(n), nil
	case float64:
		if n != math.Trunc(n) {
			return 0, fmt.Errorf("%v is not an integer", n)
		}
		return int64(n), nil
	case json.Number:
		return n.Int64()
	case string:
		return strconv.ParseInt(n, 10, 64)
	}
	return 0, fmt.Errorf("expected integer, got %T", x)
}

func toFloat64(x any) (float64, error) {
	switch n := x.(type) {
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case uint64:
		return float64(n), nil
	case float64:
		return n, nil
	case json.Number:
		return n.Float64()
	case string:
		return strconv.ParseFloat(n, 64)
	}
	return 0, fmt.Errorf("expected number, got %T", x)
}
