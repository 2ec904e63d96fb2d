package engine

import (
	"strconv"
	"strings"

	"github.com/osakit/aebridge/pkg/fourcc"
	"github.com/osakit/aebridge/pkg/oserr"
)

// CoerceTo reinterprets the descriptor as the target type, producing a brand
// new descriptor. Coercing to the current type is a plain duplicate. The
// conversion matrix covers the scalar types the bridge traffics in, plus the
// manager's wrap-into-list and record-view-of-event rules.
func (d *Desc) CoerceTo(target fourcc.Code) (*Desc, int32) {
	if !d.live() {
		return nil, oserr.ErrAENotAEDesc
	}
	if target.IsZero() {
		return nil, oserr.ErrAECoercionFail
	}
	if target == d.typ {
		return d.Duplicate()
	}

	// anything coerces to a one-item list; a list only retags
	if target == TypeAEList {
		if d.list != nil {
			out, st := d.Duplicate()
			if st != oserr.NoErr {
				return nil, st
			}
			out.typ = TypeAEList
			return out, oserr.NoErr
		}
		out := NewList(TypeAEList)
		if st := out.Append(d); st != oserr.NoErr {
			_ = out.Dispose()
			return nil, st
		}
		return out, oserr.NoErr
	}

	// records retag; an event coerces to the record of its parameters
	if target == TypeAERecord {
		switch {
		case d.record != nil:
			out, st := d.Duplicate()
			if st != oserr.NoErr {
				return nil, st
			}
			out.typ = TypeAERecord
			return out, oserr.NoErr
		case d.event != nil:
			out := NewRecord(TypeAERecord)
			for p := d.event.params.Oldest(); p != nil; p = p.Next() {
				if st := out.PutField(p.Key, p.Value); st != oserr.NoErr {
					_ = out.Dispose()
					return nil, st
				}
			}
			return out, oserr.NoErr
		}
		return nil, oserr.ErrAECoercionFail
	}

	if d.data == nil {
		return nil, oserr.ErrAECoercionFail
	}
	return coerceData(d.typ, d.data, target)
}

func coerceData(from fourcc.Code, data []byte, target fourcc.Code) (*Desc, int32) {
	switch from {
	case TypeUTF8Text:
		s := string(data)
		switch target {
		case TypeFloat64:
			f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
			if err != nil {
				return nil, oserr.ErrAECoercionFail
			}
			return NewData(TypeFloat64, Float64Bytes(f)), oserr.NoErr
		case TypeSInt32:
			n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 32)
			if err != nil {
				return nil, oserr.ErrAECoercionFail
			}
			return NewInt32(int32(n)), oserr.NoErr
		case TypeBoolean:
			switch strings.ToLower(strings.TrimSpace(s)) {
			case "true", "1":
				return NewData(TypeBoolean, BoolBytes(true)), oserr.NoErr
			case "false", "0":
				return NewData(TypeBoolean, BoolBytes(false)), oserr.NoErr
			}
			return nil, oserr.ErrAECoercionFail
		}

	case TypeFloat64:
		f, st := Float64Value(&Desc{typ: TypeFloat64, data: data})
		if st != oserr.NoErr {
			return nil, st
		}
		switch target {
		case TypeUTF8Text:
			return NewData(TypeUTF8Text, []byte(strconv.FormatFloat(f, 'g', -1, 64))), oserr.NoErr
		case TypeSInt32:
			n := int64(f)
			if float64(n) != f || n > 1<<31-1 || n < -(1<<31) {
				return nil, oserr.ErrAECoercionFail
			}
			return NewInt32(int32(n)), oserr.NoErr
		}

	case TypeSInt32:
		n, st := Int32Value(&Desc{typ: TypeSInt32, data: data})
		if st != oserr.NoErr {
			return nil, st
		}
		switch target {
		case TypeUTF8Text:
			return NewData(TypeUTF8Text, []byte(strconv.FormatInt(int64(n), 10))), oserr.NoErr
		case TypeFloat64:
			return NewData(TypeFloat64, Float64Bytes(float64(n))), oserr.NoErr
		}

	case TypeBoolean:
		b, st := BoolValue(&Desc{typ: TypeBoolean, data: data})
		if st != oserr.NoErr {
			return nil, st
		}
		switch target {
		case TypeUTF8Text:
			return NewData(TypeUTF8Text, []byte(strconv.FormatBool(b))), oserr.NoErr
		case TypeSInt32:
			var n int32
			if b {
				n = 1
			}
			return NewInt32(n), oserr.NoErr
		}
	}
	return nil, oserr.ErrAECoercionFail
}
