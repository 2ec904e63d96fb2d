package aedesc

import (
	"fmt"

	"github.com/osakit/aebridge/internal/engine"
	"github.com/osakit/aebridge/pkg/fourcc"
	"github.com/osakit/aebridge/pkg/oserr"
)

// Well-known descriptor types and keywords.
var (
	TypeNull       = engine.TypeNull
	TypeAppleEvent = engine.TypeAppleEvent
	TypeAEList     = engine.TypeAEList
	TypeAERecord   = engine.TypeAERecord
	TypeUTF8Text   = engine.TypeUTF8Text
	TypeFloat64    = engine.TypeFloat64
	TypeBoolean    = engine.TypeBoolean
	TypeSInt32     = engine.TypeSInt32

	KeyDirectObject = engine.KeyDirectObject
	KeyErrorNumber  = engine.KeyErrorNumber
	KeyErrorString  = engine.KeyErrorString
	KeyErrorBrief   = engine.KeyErrorBrief
	KeyTimeoutAttr  = engine.KeyTimeoutAttr
)

// NewNull returns a descriptor with no payload.
func NewNull() *Descriptor {
	return Adopt(engine.NewNull())
}

// NewData builds a data descriptor from raw bytes. The type code doubles as
// the interpretation hint for the bytes.
func NewData(typ fourcc.Code, data []byte) (*Descriptor, error) {
	if typ.IsZero() {
		return nil, &ArgumentError{Op: "NewData", Reason: "invalid descriptor type"}
	}
	return Adopt(engine.NewData(typ, data)), nil
}

// NewList builds a list descriptor holding copies of the given items. A
// zero type means typeAEList. If any item is unusable or any insertion
// fails, nothing observable is constructed.
func NewList(typ fourcc.Code, items []*Descriptor) (*Descriptor, error) {
	for i, item := range items {
		if err := item.usable("NewList"); err != nil {
			return nil, &ArgumentError{Op: "NewList", Reason: fmt.Sprintf("item %d: unusable descriptor", i)}
		}
	}
	raw := engine.NewList(typ)
	for i, item := range items {
		if st := raw.Append(item.raw); st != oserr.NoErr {
			_ = raw.Dispose()
			return nil, oserr.New(st, fmt.Sprintf("AEPutDesc failed for item %d", i))
		}
	}
	return Adopt(raw), nil
}

// NewRecord builds a record descriptor from keyword/value pairs. A zero
// type means typeAERecord. Keys must be valid codes and unique; values are
// copied in. A failure part-way constructs nothing observable.
func NewRecord(typ fourcc.Code, fields []Field) (*Descriptor, error) {
	if err := checkFields("NewRecord", fields); err != nil {
		return nil, err
	}
	raw := engine.NewRecord(typ)
	for _, f := range fields {
		if st := raw.PutField(f.Key, f.Value.raw); st != oserr.NoErr {
			_ = raw.Dispose()
			return nil, oserr.New(st, fmt.Sprintf("AEPutKeyDesc failed for %q", f.Key.String()))
		}
	}
	return Adopt(raw), nil
}

// EventSpec describes a full Apple event to construct.
type EventSpec struct {
	Class         fourcc.Code
	ID            fourcc.Code
	Target        *Descriptor // nil means a null address
	ReturnID      int32
	TransactionID int32
	Params        []Field
	Attrs         []Field
}

// NewEvent builds an event descriptor. Class and ID are mandatory; the
// target address is copied in. Parameters become the event's enumerable
// fields, attributes its out-of-band keyword-only annotations.
func NewEvent(spec EventSpec) (*Descriptor, error) {
	if spec.Class.IsZero() || spec.ID.IsZero() {
		return nil, &ArgumentError{Op: "NewEvent", Reason: "event class and ID are required"}
	}
	if spec.Target != nil {
		if err := spec.Target.usable("NewEvent"); err != nil {
			return nil, &ArgumentError{Op: "NewEvent", Reason: "unusable target descriptor"}
		}
	}
	if err := checkFields("NewEvent", spec.Params); err != nil {
		return nil, err
	}
	if err := checkFields("NewEvent", spec.Attrs); err != nil {
		return nil, err
	}

	var target *engine.Desc
	if spec.Target != nil {
		target = spec.Target.raw
	}
	raw := engine.NewAppleEvent(spec.Class, spec.ID, target, spec.ReturnID, spec.TransactionID)
	for _, f := range spec.Params {
		if st := raw.PutField(f.Key, f.Value.raw); st != oserr.NoErr {
			_ = raw.Dispose()
			return nil, oserr.New(st, fmt.Sprintf("AEPutParamDesc failed for %q", f.Key.String()))
		}
	}
	for _, f := range spec.Attrs {
		if st := raw.SetAttr(f.Key, f.Value.raw); st != oserr.NoErr {
			_ = raw.Dispose()
			return nil, oserr.New(st, fmt.Sprintf("AEPutAttributeDesc failed for %q", f.Key.String()))
		}
	}
	return Adopt(raw), nil
}

// NewUnknown wraps a type tag with no interpretable payload, the fallback
// the boundary produces when classification fails.
func NewUnknown(typ fourcc.Code) (*Descriptor, error) {
	if typ.IsZero() {
		return nil, &ArgumentError{Op: "NewUnknown", Reason: "invalid descriptor type"}
	}
	return Adopt(engine.NewOpaque(typ)), nil
}

func checkFields(op string, fields []Field) error {
	seen := make(map[fourcc.Code]struct{}, len(fields))
	for i, f := range fields {
		if f.Key.IsZero() {
			return &ArgumentError{Op: op, Reason: fmt.Sprintf("field %d: invalid keyword", i)}
		}
		if _, dup := seen[f.Key]; dup {
			return &ArgumentError{Op: op, Reason: fmt.Sprintf("field %d: duplicate keyword %q", i, f.Key.String())}
		}
		seen[f.Key] = struct{}{}
		if err := f.Value.usable(op); err != nil {
			return &ArgumentError{Op: op, Reason: fmt.Sprintf("field %d (%q): unusable descriptor", i, f.Key.String())}
		}
	}
	return nil
}
