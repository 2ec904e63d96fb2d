package engine

import (
	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/osakit/aebridge/pkg/fourcc"
	"github.com/osakit/aebridge/pkg/oserr"
)

// Desc is a native descriptor: a type tag plus at most one payload variant.
// Which variant is populated decides how the descriptor behaves; callers
// classify by probing (Count, IsRecord, Data), never by the tag alone.
//
// Put operations copy the value in, get operations copy the value out, so a
// descriptor never shares payload with another one.
type Desc struct {
	typ      fourcc.Code
	data     []byte
	list     []*Desc
	record   *orderedmap.OrderedMap[fourcc.Code, *Desc]
	event    *eventPayload
	disposed bool
}

type eventPayload struct {
	class         fourcc.Code
	id            fourcc.Code
	target        *Desc
	returnID      int32
	transactionID int32
	params        *orderedmap.OrderedMap[fourcc.Code, *Desc]
	attrs         map[fourcc.Code]*Desc
}

// NewNull returns a descriptor with no payload.
func NewNull() *Desc {
	return &Desc{typ: TypeNull}
}

// NewOpaque returns a descriptor carrying only a type tag, standing in for
// native payloads the store cannot interpret.
func NewOpaque(typ fourcc.Code) *Desc {
	return &Desc{typ: typ}
}

// NewData returns a data descriptor; the bytes are copied.
func NewData(typ fourcc.Code, data []byte) *Desc {
	d := &Desc{typ: typ, data: make([]byte, len(data))}
	copy(d.data, data)
	return d
}

// NewList returns an empty list descriptor. A zero type means typeAEList.
func NewList(typ fourcc.Code) *Desc {
	if typ.IsZero() {
		typ = TypeAEList
	}
	return &Desc{typ: typ, list: []*Desc{}}
}

// NewRecord returns an empty record descriptor. A zero type means
// typeAERecord.
func NewRecord(typ fourcc.Code) *Desc {
	if typ.IsZero() {
		typ = TypeAERecord
	}
	return &Desc{typ: typ, record: orderedmap.New[fourcc.Code, *Desc]()}
}

// NewAppleEvent returns a full event descriptor. The target is copied; nil
// means a null address.
func NewAppleEvent(class, id fourcc.Code, target *Desc, returnID, transactionID int32) *Desc {
	var tgt *Desc
	if target == nil || target.disposed {
		tgt = NewNull()
	} else {
		tgt, _ = target.Duplicate()
	}
	return &Desc{
		typ: TypeAppleEvent,
		event: &eventPayload{
			class:         class,
			id:            id,
			target:        tgt,
			returnID:      returnID,
			transactionID: transactionID,
			params:        orderedmap.New[fourcc.Code, *Desc](),
			attrs:         map[fourcc.Code]*Desc{},
		},
	}
}

func (d *Desc) live() bool {
	return d != nil && !d.disposed
}

// Type returns the descriptor's type tag.
func (d *Desc) Type() fourcc.Code {
	if d == nil {
		return 0
	}
	return d.typ
}

// Duplicate deep-copies the descriptor into a new, independently owned one.
func (d *Desc) Duplicate() (*Desc, int32) {
	if !d.live() {
		return nil, oserr.ErrAENotAEDesc
	}
	out := &Desc{typ: d.typ}
	switch {
	case d.event != nil:
		tgt, st := d.event.target.Duplicate()
		if st != oserr.NoErr {
			return nil, st
		}
		ev := &eventPayload{
			class:         d.event.class,
			id:            d.event.id,
			target:        tgt,
			returnID:      d.event.returnID,
			transactionID: d.event.transactionID,
			params:        orderedmap.New[fourcc.Code, *Desc](),
			attrs:         map[fourcc.Code]*Desc{},
		}
		for p := d.event.params.Oldest(); p != nil; p = p.Next() {
			v, st := p.Value.Duplicate()
			if st != oserr.NoErr {
				return nil, st
			}
			ev.params.Set(p.Key, v)
		}
		for k, v := range d.event.attrs {
			dup, st := v.Duplicate()
			if st != oserr.NoErr {
				return nil, st
			}
			ev.attrs[k] = dup
		}
		out.event = ev
	case d.record != nil:
		out.record = orderedmap.New[fourcc.Code, *Desc]()
		for p := d.record.Oldest(); p != nil; p = p.Next() {
			v, st := p.Value.Duplicate()
			if st != oserr.NoErr {
				return nil, st
			}
			out.record.Set(p.Key, v)
		}
	case d.list != nil:
		out.list = make([]*Desc, 0, len(d.list))
		for _, item := range d.list {
			v, st := item.Duplicate()
			if st != oserr.NoErr {
				return nil, st
			}
			out.list = append(out.list, v)
		}
	case d.data != nil:
		out.data = make([]byte, len(d.data))
		copy(out.data, d.data)
	}
	return out, oserr.NoErr
}

// Dispose releases the descriptor and its children. Releasing twice is an
// error; the wrapper layer guarantees exactly-once disposal.
func (d *Desc) Dispose() int32 {
	if !d.live() {
		return oserr.ErrAENotAEDesc
	}
	d.disposed = true
	if d.event != nil {
		_ = d.event.target.Dispose()
		for p := d.event.params.Oldest(); p != nil; p = p.Next() {
			_ = p.Value.Dispose()
		}
		for _, v := range d.event.attrs {
			_ = v.Dispose()
		}
		d.event = nil
	}
	if d.record != nil {
		for p := d.record.Oldest(); p != nil; p = p.Next() {
			_ = p.Value.Dispose()
		}
		d.record = nil
	}
	for _, item := range d.list {
		_ = item.Dispose()
	}
	d.list = nil
	d.data = nil
	return oserr.NoErr
}

// Data returns a copy of a data descriptor's bytes.
func (d *Desc) Data() ([]byte, int32) {
	if !d.live() {
		return nil, oserr.ErrAENotAEDesc
	}
	if d.data == nil {
		return nil, oserr.ErrAEWrongDataType
	}
	out := make([]byte, len(d.data))
	copy(out, d.data)
	return out, oserr.NoErr
}

// Count reports the number of items (list), fields (record), or parameters
// (event). Data descriptors report a wrong-data-type status; descriptors
// with no payload at all report corrupt data. Classification relies on the
// distinction.
func (d *Desc) Count() (int, int32) {
	if !d.live() {
		return 0, oserr.ErrAENotAEDesc
	}
	switch {
	case d.event != nil:
		return d.event.params.Len(), oserr.NoErr
	case d.record != nil:
		return d.record.Len(), oserr.NoErr
	case d.list != nil:
		return len(d.list), oserr.NoErr
	case d.data != nil:
		return 0, oserr.ErrAEWrongDataType
	default:
		return 0, oserr.ErrAECorruptData
	}
}

// IsRecord reports record-ness: true for records and events.
func (d *Desc) IsRecord() bool {
	return d.live() && (d.record != nil || d.event != nil)
}

// Nth returns a copy of the i-th list item (0-based).
func (d *Desc) Nth(i int) (*Desc, int32) {
	if !d.live() {
		return nil, oserr.ErrAENotAEDesc
	}
	if d.list == nil {
		return nil, oserr.ErrAEWrongDataType
	}
	if i < 0 || i >= len(d.list) {
		return nil, oserr.ErrAEIllegalIndex
	}
	return d.list[i].Duplicate()
}

// NthField returns the i-th field of a record, or the i-th parameter of an
// event, in insertion order (0-based).
func (d *Desc) NthField(i int) (fourcc.Code, *Desc, int32) {
	if !d.live() {
		return 0, nil, oserr.ErrAENotAEDesc
	}
	var om *orderedmap.OrderedMap[fourcc.Code, *Desc]
	switch {
	case d.event != nil:
		om = d.event.params
	case d.record != nil:
		om = d.record
	default:
		return 0, nil, oserr.ErrAEWrongDataType
	}
	if i < 0 || i >= om.Len() {
		return 0, nil, oserr.ErrAEIllegalIndex
	}
	p := om.Oldest()
	for ; i > 0; i-- {
		p = p.Next()
	}
	v, st := p.Value.Duplicate()
	if st != oserr.NoErr {
		return 0, nil, st
	}
	return p.Key, v, oserr.NoErr
}

// PutField copies v into a record field or event parameter, replacing any
// previous value for the keyword.
func (d *Desc) PutField(k fourcc.Code, v *Desc) int32 {
	if !d.live() {
		return oserr.ErrAENotAEDesc
	}
	if !v.live() {
		return oserr.ErrAENotAEDesc
	}
	var om *orderedmap.OrderedMap[fourcc.Code, *Desc]
	switch {
	case d.event != nil:
		om = d.event.params
	case d.record != nil:
		om = d.record
	default:
		return oserr.ErrAEWrongDataType
	}
	dup, st := v.Duplicate()
	if st != oserr.NoErr {
		return st
	}
	if old, ok := om.Get(k); ok {
		_ = old.Dispose()
	}
	om.Set(k, dup)
	return oserr.NoErr
}

// Field returns a copy of the record field or event parameter for k.
func (d *Desc) Field(k fourcc.Code) (*Desc, int32) {
	if !d.live() {
		return nil, oserr.ErrAENotAEDesc
	}
	var om *orderedmap.OrderedMap[fourcc.Code, *Desc]
	switch {
	case d.event != nil:
		om = d.event.params
	case d.record != nil:
		om = d.record
	default:
		return nil, oserr.ErrAEWrongDataType
	}
	v, ok := om.Get(k)
	if !ok {
		return nil, oserr.ErrAEDescNotFound
	}
	return v.Duplicate()
}

// Append copies v onto the end of a list.
func (d *Desc) Append(v *Desc) int32 {
	if !d.live() || !v.live() {
		return oserr.ErrAENotAEDesc
	}
	if d.list == nil {
		return oserr.ErrAEWrongDataType
	}
	dup, st := v.Duplicate()
	if st != oserr.NoErr {
		return st
	}
	d.list = append(d.list, dup)
	return oserr.NoErr
}
