package engine

import (
	"github.com/osakit/aebridge/pkg/fourcc"
	"github.com/osakit/aebridge/pkg/oserr"
)

// Event accessors. Class, ID, target, return ID, and transaction ID live
// out-of-band on the event payload; they are reachable by attribute keyword
// but never enumerated with the parameters.

func (d *Desc) Class() (fourcc.Code, int32) {
	if !d.live() {
		return 0, oserr.ErrAENotAEDesc
	}
	if d.event == nil {
		return 0, oserr.ErrAENotAppleEvent
	}
	return d.event.class, oserr.NoErr
}

func (d *Desc) ID() (fourcc.Code, int32) {
	if !d.live() {
		return 0, oserr.ErrAENotAEDesc
	}
	if d.event == nil {
		return 0, oserr.ErrAENotAppleEvent
	}
	return d.event.id, oserr.NoErr
}

// Target returns a copy of the event's address descriptor.
func (d *Desc) Target() (*Desc, int32) {
	if !d.live() {
		return nil, oserr.ErrAENotAEDesc
	}
	if d.event == nil {
		return nil, oserr.ErrAENotAppleEvent
	}
	return d.event.target.Duplicate()
}

func (d *Desc) ReturnID() (int32, int32) {
	if !d.live() {
		return 0, oserr.ErrAENotAEDesc
	}
	if d.event == nil {
		return 0, oserr.ErrAENotAppleEvent
	}
	return d.event.returnID, oserr.NoErr
}

func (d *Desc) TransactionID() (int32, int32) {
	if !d.live() {
		return 0, oserr.ErrAENotAEDesc
	}
	if d.event == nil {
		return 0, oserr.ErrAENotAppleEvent
	}
	return d.event.transactionID, oserr.NoErr
}

// SetAttr copies v in as a named event attribute. The identity attributes
// (class, ID, address, return ID, transaction ID) are fixed at construction
// and cannot be overwritten.
func (d *Desc) SetAttr(k fourcc.Code, v *Desc) int32 {
	if !d.live() || !v.live() {
		return oserr.ErrAENotAEDesc
	}
	if d.event == nil {
		return oserr.ErrAENotAppleEvent
	}
	switch k {
	case KeyEventClassAttr, KeyEventIDAttr, KeyAddressAttr, KeyReturnIDAttr, KeyTransactionIDAttr:
		return oserr.ErrAEWrongDataType
	}
	dup, st := v.Duplicate()
	if st != oserr.NoErr {
		return st
	}
	if old, ok := d.event.attrs[k]; ok {
		_ = old.Dispose()
	}
	d.event.attrs[k] = dup
	return oserr.NoErr
}

// Attr returns a copy of an event attribute. Identity attributes are
// synthesized from the event payload; everything else is looked up in the
// named-attribute table. Attributes are reachable only by explicit keyword,
// never enumerated.
func (d *Desc) Attr(k fourcc.Code) (*Desc, int32) {
	if !d.live() {
		return nil, oserr.ErrAENotAEDesc
	}
	if d.event == nil {
		return nil, oserr.ErrAENotAppleEvent
	}
	switch k {
	case KeyEventClassAttr:
		return NewData(TypeType, []byte(d.event.class.String())), oserr.NoErr
	case KeyEventIDAttr:
		return NewData(TypeType, []byte(d.event.id.String())), oserr.NoErr
	case KeyAddressAttr:
		return d.event.target.Duplicate()
	case KeyReturnIDAttr:
		return NewInt32(d.event.returnID), oserr.NoErr
	case KeyTransactionIDAttr:
		return NewInt32(d.event.transactionID), oserr.NoErr
	}
	v, ok := d.event.attrs[k]
	if !ok {
		return nil, oserr.ErrAEDescNotFound
	}
	return v.Duplicate()
}
