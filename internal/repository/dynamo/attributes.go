package dynamo

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"bigfish/internal/tree"
)

// Values DynamoDB has no native type for are wrapped in single-key maps
const (
	tagTime  = "$time"
	tagRef   = "$ref"
	tagGeo   = "$geo"
	tagFloat = "$float"
	tagMap   = "$map"
)

// AttributesFromFields encodes fields as a DynamoDB map
func AttributesFromFields(fields tree.Fields) (map[string]types.AttributeValue, error) {
	out := make(map[string]types.AttributeValue, len(fields))
	for k, v := range fields {
		av, err := toAttribute(v)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", k, err)
		}
		out[k] = av
	}
	return out, nil
}

func tagged(tag string, av types.AttributeValue) types.AttributeValue {
	return &types.AttributeValueMemberM{Value: map[string]types.AttributeValue{tag: av}}
}

func toAttribute(v tree.Value) (types.AttributeValue, error) {
	switch v.Kind() {
	case tree.KindNull:
		return &types.AttributeValueMemberNULL{Value: true}, nil
	case tree.KindBool:
		return &types.AttributeValueMemberBOOL{Value: v.Bool()}, nil
	case tree.KindInt:
		return &types.AttributeValueMemberN{Value: strconv.FormatInt(v.Int(), 10)}, nil
	case tree.KindFloat:
		f := v.Float()
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return tagged(tagFloat, &types.AttributeValueMemberS{Value: strconv.FormatFloat(f, 'g', -1, 64)}), nil
		}
		return &types.AttributeValueMemberN{Value: formatFloat(f)}, nil
	case tree.KindString:
		return &types.AttributeValueMemberS{Value: v.Str()}, nil
	case tree.KindBytes:
		return &types.AttributeValueMemberB{Value: v.Bytes()}, nil
	case tree.KindTime:
		return tagged(tagTime, &types.AttributeValueMemberS{Value: v.Time().UTC().Format(time.RFC3339Nano)}), nil
	case tree.KindRef:
		return tagged(tagRef, &types.AttributeValueMemberS{Value: v.RefPath()}), nil
	case tree.KindGeoPoint:
		g := v.GeoPoint()
		return tagged(tagGeo, &types.AttributeValueMemberL{Value: []types.AttributeValue{
			&types.AttributeValueMemberN{Value: formatFloat(g.Lat)},
			&types.AttributeValueMemberN{Value: formatFloat(g.Lng)},
		}}), nil
	case tree.KindArray:
		items := v.Array()
		list := make([]types.AttributeValue, len(items))
		for i, item := range items {
			av, err := toAttribute(item)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			list[i] = av
		}
		return &types.AttributeValueMemberL{Value: list}, nil
	case tree.KindMap:
		m, err := AttributesFromFields(v.Map())
		if err != nil {
			return nil, err
		}
		av := &types.AttributeValueMemberM{Value: m}
		if len(m) == 1 {
			for k := range m {
				if strings.HasPrefix(k, "$") {
					return tagged(tagMap, av), nil
				}
			}
		}
		return av, nil
	}
	return nil, fmt.Errorf("unsupported value kind %s", v.Kind())
}

// formatFloat always yields a number with a fraction or exponent so it
// decodes back as a float
func formatFloat(f float64) string {
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}

// FieldsFromAttributes decodes the output of AttributesFromFields
func FieldsFromAttributes(m map[string]types.AttributeValue) (tree.Fields, error) {
	fields := make(tree.Fields, len(m))
	for k, av := range m {
		v, err := fromAttribute(av)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", k, err)
		}
		fields[k] = v
	}
	return fields, nil
}

func fromAttribute(av types.AttributeValue) (tree.Value, error) {
	switch a := av.(type) {
	case *types.AttributeValueMemberNULL:
		return tree.Null(), nil
	case *types.AttributeValueMemberBOOL:
		return tree.Bool(a.Value), nil
	case *types.AttributeValueMemberN:
		return parseNumber(a.Value)
	case *types.AttributeValueMemberS:
		return tree.String(a.Value), nil
	case *types.AttributeValueMemberB:
		return tree.Bytes(a.Value), nil
	case *types.AttributeValueMemberL:
		arr := make([]tree.Value, len(a.Value))
		for i, item := range a.Value {
			v, err := fromAttribute(item)
			if err != nil {
				return tree.Value{}, fmt.Errorf("[%d]: %w", i, err)
			}
			arr[i] = v
		}
		return tree.Array(arr...), nil
	case *types.AttributeValueMemberM:
		if len(a.Value) == 1 {
			for k, inner := range a.Value {
				if strings.HasPrefix(k, "$") {
					return fromTagged(k, inner)
				}
			}
		}
		fields, err := FieldsFromAttributes(a.Value)
		if err != nil {
			return tree.Value{}, err
		}
		return tree.Map(fields), nil
	case *types.AttributeValueMemberSS:
		arr := make([]tree.Value, len(a.Value))
		for i, s := range a.Value {
			arr[i] = tree.String(s)
		}
		return tree.Array(arr...), nil
	case *types.AttributeValueMemberNS:
		arr := make([]tree.Value, len(a.Value))
		for i, s := range a.Value {
			v, err := parseNumber(s)
			if err != nil {
				return tree.Value{}, err
			}
			arr[i] = v
		}
		return tree.Array(arr...), nil
	case *types.AttributeValueMemberBS:
		arr := make([]tree.Value, len(a.Value))
		for i, b := range a.Value {
			arr[i] = tree.Bytes(b)
		}
		return tree.Array(arr...), nil
	}
	return tree.Value{}, fmt.Errorf("unsupported attribute type %T", av)
}

func parseNumber(s string) (tree.Value, error) {
	if !strings.ContainsAny(s, ".eE") {
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return tree.Int(i), nil
		}
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return tree.Value{}, fmt.Errorf("invalid number %q: %w", s, err)
	}
	return tree.Float(f), nil
}

func fromTagged(tag string, av types.AttributeValue) (tree.Value, error) {
	str := func() (string, error) {
		s, ok := av.(*types.AttributeValueMemberS)
		if !ok {
			return "", fmt.Errorf("%s: expected string attribute, got %T", tag, av)
		}
		return s.Value, nil
	}

	switch tag {
	case tagTime:
		s, err := str()
		if err != nil {
			return tree.Value{}, err
		}
		t, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return tree.Value{}, fmt.Errorf("%s: %w", tag, err)
		}
		return tree.Time(t), nil
	case tagRef:
		s, err := str()
		if err != nil {
			return tree.Value{}, err
		}
		return tree.Ref(s), nil
	case tagFloat:
		s, err := str()
		if err != nil {
			return tree.Value{}, err
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return tree.Value{}, fmt.Errorf("%s: %w", tag, err)
		}
		return tree.Float(f), nil
	case tagGeo:
		l, ok := av.(*types.AttributeValueMemberL)
		if !ok || len(l.Value) != 2 {
			return tree.Value{}, fmt.Errorf("%s: expected [lat, lng]", tag)
		}
		lat, err1 := fromAttribute(l.Value[0])
		lng, err2 := fromAttribute(l.Value[1])
		if err1 != nil || err2 != nil {
			return tree.Value{}, fmt.Errorf("%s: invalid coordinates", tag)
		}
		latF, _ := lat.Number()
		lngF, _ := lng.Number()
		return tree.Geo(latF, lngF), nil
	case tagMap:
		m, ok := av.(*types.AttributeValueMemberM)
		if !ok {
			return tree.Value{}, fmt.Errorf("%s: expected map attribute, got %T", tag, av)
		}
		fields, err := FieldsFromAttributes(m.Value)
		if err != nil {
			return tree.Value{}, err
		}
		return tree.Map(fields), nil
	}
	inner, err := fromAttribute(av)
	if err != nil {
		return tree.Value{}, err
	}
	return tree.Map(tree.Fields{tag: inner}), nil
}
