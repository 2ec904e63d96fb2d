package convert

import (
	"encoding/base64"
	"fmt"

	"github.com/osakit/aebridge/aedesc"
	"github.com/osakit/aebridge/pkg/fourcc"
)

// TypeRawData tags byte payloads with no richer interpretation.
var TypeRawData = fourcc.MustParse("tdta")

// Typed overrides the type code a value is packed under. The value still
// converts by its Go shape; only the descriptor's type tag changes.
type Typed struct {
	Type  fourcc.Code
	Value any
}

// Coerce converts the value first and then asks the facility to coerce the
// result to As.
type Coerce struct {
	As    fourcc.Code
	Value any
}

// FromValue builds a descriptor tree from a plain Go value. Strings become
// UTF-8 text, numbers IEEE-754 doubles (int32 stays a long integer), bools
// single-byte booleans, nil the null descriptor, []byte raw data, []any a
// list, and map[string]any a record whose keys must parse as FourCharCodes.
// Wrap values in Typed or Coerce for explicit type control.
func FromValue(v any) (*aedesc.Descriptor, error) {
	switch value := v.(type) {
	case nil:
		return aedesc.NewNull(), nil
	case *aedesc.Descriptor:
		return value.Clone()
	case Typed:
		return fromTyped(value)
	case Coerce:
		inner, err := FromValue(value.Value)
		if err != nil {
			return nil, err
		}
		defer func() { _ = inner.Close() }()
		return inner.As(value.As)
	case string:
		return aedesc.Text(value), nil
	case bool:
		return aedesc.Boolean(value), nil
	case float64:
		return aedesc.Float(value), nil
	case float32:
		return aedesc.Float(float64(value)), nil
	case int32:
		return aedesc.Int32(value), nil
	case int:
		return aedesc.Float(float64(value)), nil
	case int64:
		return aedesc.Float(float64(value)), nil
	case []byte:
		return aedesc.NewData(TypeRawData, value)
	case []any:
		return listFromValues(0, value)
	case map[string]any:
		return recordFromValues(0, value)
	default:
		return nil, fmt.Errorf("convert: unsupported value type %T", v)
	}
}

func fromTyped(t Typed) (*aedesc.Descriptor, error) {
	switch value := t.Value.(type) {
	case []byte:
		return aedesc.NewData(t.Type, value)
	case string:
		return aedesc.NewData(t.Type, []byte(value))
	case []any:
		return listFromValues(t.Type, value)
	case map[string]any:
		return recordFromValues(t.Type, value)
	default:
		return nil, fmt.Errorf("convert: cannot apply type override to %T", t.Value)
	}
}

func listFromValues(typ fourcc.Code, values []any) (*aedesc.Descriptor, error) {
	items := make([]*aedesc.Descriptor, 0, len(values))
	closeAll := func() {
		for _, it := range items {
			_ = it.Close()
		}
	}
	for i, v := range values {
		item, err := FromValue(v)
		if err != nil {
			closeAll()
			return nil, fmt.Errorf("convert: list item %d: %w", i, err)
		}
		items = append(items, item)
	}
	list, err := aedesc.NewList(typ, items)
	closeAll()
	return list, err
}

func recordFromValues(typ fourcc.Code, values map[string]any) (*aedesc.Descriptor, error) {
	fields := make([]aedesc.Field, 0, len(values))
	closeAll := func() {
		for _, f := range fields {
			_ = f.Value.Close()
		}
	}
	for k, v := range values {
		key, err := fourcc.Parse(k)
		if err != nil {
			closeAll()
			return nil, fmt.Errorf("convert: record key %q: %w", k, err)
		}
		value, err := FromValue(v)
		if err != nil {
			closeAll()
			return nil, fmt.Errorf("convert: record field %q: %w", k, err)
		}
		fields = append(fields, aedesc.Field{Key: key, Value: value})
	}
	rec, err := aedesc.NewRecord(typ, fields)
	closeAll()
	return rec, err
}

// ValueOf projects a descriptor back to plain data. Text, doubles, booleans,
// and long integers read back as their Go counterparts; any other data
// payload comes back base64-encoded. Lists become []any, records and events
// map[string]any keyed by the textual FourCharCode. Null is nil.
func ValueOf(d *aedesc.Descriptor) (any, error) {
	switch d.Kind() {
	case aedesc.KindNull:
		return nil, nil
	case aedesc.KindData:
		return dataValue(d)
	case aedesc.KindList:
		items, err := d.Items()
		if err != nil {
			return nil, err
		}
		out := make([]any, 0, len(items))
		for _, item := range items {
			v, err := ValueOf(item)
			_ = item.Close()
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	case aedesc.KindRecord:
		fields, err := d.Fields()
		if err != nil {
			return nil, err
		}
		return fieldValues(fields)
	case aedesc.KindEvent:
		params, err := d.Parameters()
		if err != nil {
			return nil, err
		}
		return fieldValues(params)
	default:
		return nil, fmt.Errorf("convert: no plain projection for %s descriptor %q", d.Kind(), d.Type().String())
	}
}

func dataValue(d *aedesc.Descriptor) (any, error) {
	switch d.Type() {
	case aedesc.TypeUTF8Text:
		return aedesc.TextValue(d)
	case aedesc.TypeFloat64:
		return aedesc.FloatValue(d)
	case aedesc.TypeBoolean:
		return aedesc.BoolValue(d)
	case aedesc.TypeSInt32:
		return aedesc.Int32Value(d)
	default:
		raw, err := d.Data()
		if err != nil {
			return nil, err
		}
		return base64.StdEncoding.EncodeToString(raw), nil
	}
}

func fieldValues(fields []aedesc.Field) (map[string]any, error) {
	out := make(map[string]any, len(fields))
	for _, f := range fields {
		v, err := ValueOf(f.Value)
		_ = f.Value.Close()
		if err != nil {
			return nil, err
		}
		out[f.Key.String()] = v
	}
	return out, nil
}
