package mongo

import (
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"

	"bigfish/internal/repository"
	"bigfish/internal/tree"
)

// ToBSON builds the stored form of a document: _id first, then the fields
// in key order.
func ToBSON(id string, fields tree.Fields) (bson.D, error) {
	out := bson.D{{Key: "_id", Value: id}}
	d, err := fieldsToBSON(fields)
	if err != nil {
		return nil, err
	}
	return append(out, d...), nil
}

func fieldsToBSON(fields tree.Fields) (bson.D, error) {
	d := make(bson.D, 0, len(fields))
	for _, k := range fields.Keys() {
		x, err := valueToBSON(fields[k])
		if err != nil {
			return nil, fmt.Errorf("%s: %w", k, err)
		}
		d = append(d, bson.E{Key: k, Value: x})
	}
	return d, nil
}

func valueToBSON(v tree.Value) (any, error) {
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
		return bson.Binary{Data: v.Bytes()}, nil
	case tree.KindTime:
		return bson.NewDateTimeFromTime(v.Time()), nil
	case tree.KindRef:
		p, err := tree.ParsePath(v.RefPath())
		if err != nil || !p.IsDocument() {
			return nil, fmt.Errorf("invalid reference %q", v.RefPath())
		}
		return bson.D{{Key: "$ref", Value: p.Parent().String()}, {Key: "$id", Value: p.ID()}}, nil
	case tree.KindGeoPoint:
		g := v.GeoPoint()
		return bson.D{{Key: "type", Value: "Point"}, {Key: "coordinates", Value: bson.A{g.Lng, g.Lat}}}, nil
	case tree.KindArray:
		items := v.Array()
		arr := make(bson.A, len(items))
		for i, item := range items {
			x, err := valueToBSON(item)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			arr[i] = x
		}
		return arr, nil
	case tree.KindMap:
		return fieldsToBSON(v.Map())
	}
	return nil, fmt.Errorf("unsupported value kind %s", v.Kind())
}

// FromBSON splits a stored document into its id and fields
func FromBSON(d bson.D) (string, tree.Fields, error) {
	var id string
	fields := make(tree.Fields, len(d))
	for _, e := range d {
		if e.Key == "_id" {
			id = idString(e.Value)
			continue
		}
		v, err := valueFromBSON(e.Value)
		if err != nil {
			return id, nil, fmt.Errorf("%s: %w", e.Key, err)
		}
		fields[e.Key] = v
	}
	if id == "" {
		return "", nil, fmt.Errorf("document has no _id")
	}
	return id, fields, nil
}

func idString(x any) string {
	switch v := x.(type) {
	case string:
		return v
	case bson.ObjectID:
		return v.Hex()
	}
	return fmt.Sprint(x)
}

func valueFromBSON(x any) (tree.Value, error) {
	switch v := x.(type) {
	case nil:
		return tree.Null(), nil
	case bool:
		return tree.Bool(v), nil
	case int32:
		return tree.Int(int64(v)), nil
	case int64:
		return tree.Int(v), nil
	case float64:
		return tree.Float(v), nil
	case string:
		return tree.String(v), nil
	case bson.Binary:
		return tree.Bytes(v.Data), nil
	case bson.DateTime:
		return tree.Time(v.Time().UTC()), nil
	case bson.Timestamp:
		return tree.Time(time.Unix(int64(v.T), 0).UTC()), nil
	case bson.ObjectID:
		return tree.String(v.Hex()), nil
	case bson.Decimal128:
		return tree.String(v.String()), nil
	case bson.A:
		return arrayFromBSON(v)
	case []any:
		return arrayFromBSON(v)
	case bson.D:
		return docFromBSON(v)
	case bson.M:
		d := make(bson.D, 0, len(v))
		for k, item := range v {
			d = append(d, bson.E{Key: k, Value: item})
		}
		return docFromBSON(d)
	}
	return tree.Value{}, fmt.Errorf("unsupported BSON type %T", x)
}

func arrayFromBSON(items []any) (tree.Value, error) {
	arr := make([]tree.Value, len(items))
	for i, item := range items {
		v, err := valueFromBSON(item)
		if err != nil {
			return tree.Value{}, fmt.Errorf("[%d]: %w", i, err)
		}
		arr[i] = v
	}
	return tree.Array(arr...), nil
}

// docFromBSON recognises DBRef and GeoJSON Point sub-documents
func docFromBSON(d bson.D) (tree.Value, error) {
	if ref, ok := dbRef(d); ok {
		return tree.Ref(ref), nil
	}
	if lat, lng, ok := geoPoint(d); ok {
		return tree.Geo(lat, lng), nil
	}
	fields := make(tree.Fields, len(d))
	for _, e := range d {
		v, err := valueFromBSON(e.Value)
		if err != nil {
			return tree.Value{}, fmt.Errorf("%s: %w", e.Key, err)
		}
		fields[e.Key] = v
	}
	return tree.Map(fields), nil
}

func dbRef(d bson.D) (string, bool) {
	if len(d) != 2 {
		return "", false
	}
	coll, ok1 := lookup(d, "$ref").(string)
	id, ok2 := lookup(d, "$id").(string)
	if !ok1 || !ok2 {
		return "", false
	}
	p := tree.Path(strings.Split(coll, "/")).Doc(id)
	if repository.CheckDocumentPath(p) != nil {
		return "", false
	}
	return p.String(), true
}

func geoPoint(d bson.D) (lat, lng float64, ok bool) {
	if len(d) != 2 {
		return 0, 0, false
	}
	if lookup(d, "type") != "Point" {
		return 0, 0, false
	}
	var coords []any
	switch c := lookup(d, "coordinates").(type) {
	case bson.A:
		coords = c
	case []any:
		coords = c
	}
	if len(coords) != 2 {
		return 0, 0, false
	}
	lng, ok1 := coords[0].(float64)
	lat, ok2 := coords[1].(float64)
	return lat, lng, ok1 && ok2
}

func lookup(d bson.D, key string) any {
	for _, e := range d {
		if e.Key == key {
			return e.Value
		}
	}
	return nil
}
