package aedesc

import (
	"github.com/osakit/aebridge/internal/engine"
	"github.com/osakit/aebridge/pkg/oserr"
)

// Scalar constructors with the fixed type-code conventions: UTF-8 text,
// IEEE-754 double, single-byte boolean, 32-bit integer. These cannot fail.

func Text(s string) *Descriptor {
	return Adopt(engine.NewData(engine.TypeUTF8Text, []byte(s)))
}

func Float(f float64) *Descriptor {
	return Adopt(engine.NewData(engine.TypeFloat64, engine.Float64Bytes(f)))
}

func Boolean(b bool) *Descriptor {
	return Adopt(engine.NewData(engine.TypeBoolean, engine.BoolBytes(b)))
}

func Int32(v int32) *Descriptor {
	return Adopt(engine.NewInt32(v))
}

// TextValue reads a descriptor as text, coercing if it is not already
// typeUTF8Text.
func TextValue(d *Descriptor) (string, error) {
	if err := d.usable("TextValue"); err != nil {
		return "", err
	}
	if d.Type() == engine.TypeUTF8Text {
		data, err := d.Data()
		if err != nil {
			return "", err
		}
		return string(data), nil
	}
	coerced, err := d.As(engine.TypeUTF8Text)
	if err != nil {
		return "", err
	}
	defer func() { _ = coerced.Close() }()
	data, err := coerced.Data()
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// FloatValue reads a descriptor as a float64, coercing if needed.
func FloatValue(d *Descriptor) (float64, error) {
	if err := d.usable("FloatValue"); err != nil {
		return 0, err
	}
	raw := d.raw
	if d.Type() != engine.TypeFloat64 {
		coerced, err := d.As(engine.TypeFloat64)
		if err != nil {
			return 0, err
		}
		defer func() { _ = coerced.Close() }()
		raw = coerced.raw
	}
	f, st := engine.Float64Value(raw)
	if st != oserr.NoErr {
		return 0, oserr.New(st, "AEGetDescData failed")
	}
	return f, nil
}

// BoolValue reads a descriptor as a boolean, coercing if needed.
func BoolValue(d *Descriptor) (bool, error) {
	if err := d.usable("BoolValue"); err != nil {
		return false, err
	}
	raw := d.raw
	if d.Type() != engine.TypeBoolean {
		coerced, err := d.As(engine.TypeBoolean)
		if err != nil {
			return false, err
		}
		defer func() { _ = coerced.Close() }()
		raw = coerced.raw
	}
	b, st := engine.BoolValue(raw)
	if st != oserr.NoErr {
		return false, oserr.New(st, "AEGetDescData failed")
	}
	return b, nil
}

// Int32Value reads a descriptor as an int32, coercing if needed.
func Int32Value(d *Descriptor) (int32, error) {
	if err := d.usable("Int32Value"); err != nil {
		return 0, err
	}
	raw := d.raw
	if d.Type() != engine.TypeSInt32 {
		coerced, err := d.As(engine.TypeSInt32)
		if err != nil {
			return 0, err
		}
		defer func() { _ = coerced.Close() }()
		raw = coerced.raw
	}
	v, st := engine.Int32Value(raw)
	if st != oserr.NoErr {
		return 0, oserr.New(st, "AEGetDescData failed")
	}
	return v, nil
}
