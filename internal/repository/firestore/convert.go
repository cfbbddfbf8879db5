package firestore

import (
	"fmt"
	"slices"
	"time"

	fs "cloud.google.com/go/firestore"
	"google.golang.org/genproto/googleapis/type/latlng"

	"bigfish/internal/tree"
)

// RefFunc resolves a document path to a reference on the target client
type RefFunc func(path string) (*fs.DocumentRef, error)

// FieldsFromData converts DocumentSnapshot.Data output
func FieldsFromData(data map[string]any) (tree.Fields, error) {
	fields := make(tree.Fields, len(data))
	for k, x := range data {
		v, err := fromFirestore(x)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", k, err)
		}
		fields[k] = v
	}
	return fields, nil
}

func fromFirestore(x any) (tree.Value, error) {
	switch v := x.(type) {
	case *fs.DocumentRef:
		if v == nil {
			return tree.Null(), nil
		}
		return tree.Ref(RefPath(v)), nil
	case *latlng.LatLng:
		if v == nil {
			return tree.Null(), nil
		}
		return tree.Geo(v.GetLatitude(), v.GetLongitude()), nil
	case []any:
		arr := make([]tree.Value, len(v))
		for i, item := range v {
			cv, err := fromFirestore(item)
			if err != nil {
				return tree.Value{}, fmt.Errorf("[%d]: %w", i, err)
			}
			arr[i] = cv
		}
		return tree.Array(arr...), nil
	case map[string]any:
		fields, err := FieldsFromData(v)
		if err != nil {
			return tree.Value{}, err
		}
		return tree.Map(fields), nil
	}
	return tree.FromNative(x)
}

// RefPath returns the database-relative path of a reference such as
// "users/alice", independent of the project it was read from.
func RefPath(ref *fs.DocumentRef) string {
	var segs []string
	for d := ref; d != nil; {
		segs = append(segs, d.ID)
		c := d.Parent
		if c == nil {
			break
		}
		segs = append(segs, c.ID)
		d = c.Parent
	}
	slices.Reverse(segs)
	return tree.Path(segs).String()
}

// DataFromFields converts fields into values accepted by DocumentRef.Set
func DataFromFields(fields tree.Fields, ref RefFunc) (map[string]any, error) {
	data := make(map[string]any, len(fields))
	for k, v := range fields {
		x, err := toFirestore(v, ref)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", k, err)
		}
		data[k] = x
	}
	return data, nil
}

func toFirestore(v tree.Value, ref RefFunc) (any, error) {
	switch v.Kind() {
	case tree.KindNull:
		return nil, nil
	case tree.KindBool:
		return v.Bool(), nil
	case tree.KindInt:
		return v.Int(), nil
	case tree.KindFloat:
		return v.Float(), nil
	case tree.KindString:
		return v.Str(), nil
	case tree.KindBytes:
		return v.Bytes(), nil
	case tree.KindTime:
		return v.Time().In(time.UTC), nil
	case tree.KindGeoPoint:
		g := v.GeoPoint()
		return &latlng.LatLng{Latitude: g.Lat, Longitude: g.Lng}, nil
	case tree.KindRef:
		return ref(v.RefPath())
	case tree.KindArray:
		items := v.Array()
		arr := make([]any, len(items))
		for i, item := range items {
			x, err := toFirestore(item, ref)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			arr[i] = x
		}
		return arr, nil
	case tree.KindMap:
		return DataFromFields(v.Map(), ref)
	}
	return nil, fmt.Errorf("unsupported value kind %s", v.Kind())
}
