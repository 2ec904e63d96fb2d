package convert

import (
	"fmt"

	"github.com/goccy/go-json"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/osakit/aebridge/aedesc"
	"github.com/osakit/aebridge/pkg/fourcc"
)

// ToJSON serializes a descriptor as a {"type": ..., "value": ...} envelope,
// with the value in its plain-data projection.
func ToJSON(d *aedesc.Descriptor) ([]byte, error) {
	v, err := ValueOf(d)
	if err != nil {
		return nil, err
	}
	payload, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("convert: marshaling descriptor value: %w", err)
	}

	out := []byte(`{}`)
	out, err = sjson.SetBytes(out, "type", d.Type().String())
	if err != nil {
		return nil, err
	}
	out, err = sjson.SetRawBytes(out, "value", payload)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// FromJSON builds a descriptor tree from a JSON document: strings become
// text, numbers doubles, booleans booleans, null the null descriptor,
// arrays lists, and objects records whose keys must be 4-character codes.
func FromJSON(data []byte) (*aedesc.Descriptor, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("convert: invalid JSON document")
	}
	return fromJSONValue(gjson.ParseBytes(data))
}

func fromJSONValue(v gjson.Result) (*aedesc.Descriptor, error) {
	switch v.Type {
	case gjson.Null:
		return aedesc.NewNull(), nil
	case gjson.String:
		return aedesc.Text(v.String()), nil
	case gjson.Number:
		return aedesc.Float(v.Float()), nil
	case gjson.True:
		return aedesc.Boolean(true), nil
	case gjson.False:
		return aedesc.Boolean(false), nil
	}

	if v.IsArray() {
		var items []*aedesc.Descriptor
		closeAll := func() {
			for _, it := range items {
				_ = it.Close()
			}
		}
		for i, elem := range v.Array() {
			item, err := fromJSONValue(elem)
			if err != nil {
				closeAll()
				return nil, fmt.Errorf("convert: array element %d: %w", i, err)
			}
			items = append(items, item)
		}
		list, err := aedesc.NewList(0, items)
		closeAll()
		return list, err
	}

	if v.IsObject() {
		var fields []aedesc.Field
		closeAll := func() {
			for _, f := range fields {
				_ = f.Value.Close()
			}
		}
		var walkErr error
		v.ForEach(func(key, value gjson.Result) bool {
			code, err := fourcc.Parse(key.String())
			if err != nil {
				walkErr = fmt.Errorf("convert: object key %q: %w", key.String(), err)
				return false
			}
			child, err := fromJSONValue(value)
			if err != nil {
				walkErr = fmt.Errorf("convert: object field %q: %w", key.String(), err)
				return false
			}
			fields = append(fields, aedesc.Field{Key: code, Value: child})
			return true
		})
		if walkErr != nil {
			closeAll()
			return nil, walkErr
		}
		rec, err := aedesc.NewRecord(0, fields)
		closeAll()
		return rec, err
	}

	return nil, fmt.Errorf("convert: unsupported JSON value %q", v.Raw)
}
