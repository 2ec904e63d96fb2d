package aedesc

import (
	"fmt"
	"runtime"
	"sync/atomic"

	"github.com/osakit/aebridge/internal/engine"
	"github.com/osakit/aebridge/pkg/fourcc"
	"github.com/osakit/aebridge/pkg/oserr"
)

// ArgumentError reports a malformed argument at the call boundary: wrong
// variant, closed descriptor, invalid type code. It is never retried and
// never converted to a reply error.
type ArgumentError struct {
	Op     string
	Reason string
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("aedesc: %s: %s", e.Op, e.Reason)
}

// Descriptor owns exactly one native payload.
type Descriptor struct {
	raw    *engine.Desc
	kind   Kind
	closed atomic.Bool
}

// Field is a keyword/value pair in a record, an event's parameter list, or
// an event's attributes.
type Field struct {
	Key   fourcc.Code
	Value *Descriptor
}

// Adopt wraps a native payload that crossed the boundary (a reply, a list
// item, a coercion result, an incoming event), classifying it and taking
// ownership. Bridge-internal: external callers construct descriptors
// through the typed constructors.
func Adopt(raw *engine.Desc) *Descriptor {
	d := &Descriptor{raw: raw, kind: classify(raw)}
	runtime.SetFinalizer(d, (*Descriptor).finalize)
	return d
}

func (d *Descriptor) finalize() { _ = d.Close() }

// Close releases the native payload. The first call disposes; later calls
// are no-ops.
func (d *Descriptor) Close() error {
	if !d.closed.CompareAndSwap(false, true) {
		return nil
	}
	runtime.SetFinalizer(d, nil)
	if st := d.raw.Dispose(); st != oserr.NoErr {
		return oserr.New(st, "AEDisposeDesc failed")
	}
	return nil
}

// Kind returns the classified variant.
func (d *Descriptor) Kind() Kind { return d.kind }

// Type returns the descriptor's type tag. For data descriptors this doubles
// as the interpretation hint.
func (d *Descriptor) Type() fourcc.Code { return d.raw.Type() }

// Raw exposes the native payload for the bridge's engine calls. The
// descriptor retains ownership.
func (d *Descriptor) Raw() *engine.Desc { return d.raw }

func (d *Descriptor) usable(op string) error {
	if d == nil {
		return &ArgumentError{Op: op, Reason: "nil descriptor"}
	}
	if d.closed.Load() {
		return &ArgumentError{Op: op, Reason: "descriptor is closed"}
	}
	return nil
}

// As coerces the payload to the target type, producing a new independently
// owned descriptor of whatever variant the result classifies as.
func (d *Descriptor) As(target fourcc.Code) (*Descriptor, error) {
	if err := d.usable("As"); err != nil {
		return nil, err
	}
	if target.IsZero() {
		return nil, &ArgumentError{Op: "As", Reason: "invalid descriptor type"}
	}
	out, st := d.raw.CoerceTo(target)
	if st != oserr.NoErr {
		return nil, oserr.New(st, "AECoerceDesc failed")
	}
	return Adopt(out), nil
}

// Clone duplicates the descriptor.
func (d *Descriptor) Clone() (*Descriptor, error) {
	if err := d.usable("Clone"); err != nil {
		return nil, err
	}
	out, st := d.raw.Duplicate()
	if st != oserr.NoErr {
		return nil, oserr.New(st, "AEDuplicateDesc failed")
	}
	return Adopt(out), nil
}

// Data returns the raw bytes of a data descriptor.
func (d *Descriptor) Data() ([]byte, error) {
	if err := d.usable("Data"); err != nil {
		return nil, err
	}
	data, st := d.raw.Data()
	if st != oserr.NoErr {
		return nil, oserr.New(st, "AEGetDescData failed")
	}
	return data, nil
}

// Items projects the children of a list descriptor. Each call re-reads the
// native store and wraps fresh copies.
func (d *Descriptor) Items() ([]*Descriptor, error) {
	if err := d.usable("Items"); err != nil {
		return nil, err
	}
	if d.kind != KindList {
		return nil, &ArgumentError{Op: "Items", Reason: "not a list descriptor"}
	}
	n, st := d.raw.Count()
	if st != oserr.NoErr {
		return nil, oserr.New(st, "AECountItems failed")
	}
	items := make([]*Descriptor, 0, n)
	for i := 0; i < n; i++ {
		raw, st := d.raw.Nth(i)
		if st != oserr.NoErr {
			for _, it := range items {
				_ = it.Close()
			}
			return nil, oserr.New(st, "AEGetNthDesc failed")
		}
		items = append(items, Adopt(raw))
	}
	return items, nil
}

// Fields projects the keyword/value pairs of a record descriptor in the
// order the native store keeps them.
func (d *Descriptor) Fields() ([]Field, error) {
	if err := d.usable("Fields"); err != nil {
		return nil, err
	}
	if d.kind != KindRecord {
		return nil, &ArgumentError{Op: "Fields", Reason: "not a record descriptor"}
	}
	return d.projectFields("Fields")
}

// Parameters projects an event's parameter list. Attributes are not
// included; they are reachable only through Attribute.
func (d *Descriptor) Parameters() ([]Field, error) {
	if err := d.usable("Parameters"); err != nil {
		return nil, err
	}
	if d.kind != KindEvent {
		return nil, &ArgumentError{Op: "Parameters", Reason: "not an event descriptor"}
	}
	return d.projectFields("Parameters")
}

func (d *Descriptor) projectFields(op string) ([]Field, error) {
	n, st := d.raw.Count()
	if st != oserr.NoErr {
		return nil, oserr.New(st, "AECountItems failed")
	}
	fields := make([]Field, 0, n)
	for i := 0; i < n; i++ {
		key, raw, st := d.raw.NthField(i)
		if st != oserr.NoErr {
			for _, f := range fields {
				_ = f.Value.Close()
			}
			return nil, oserr.New(st, "AEGetNthDesc failed")
		}
		fields = append(fields, Field{Key: key, Value: Adopt(raw)})
	}
	return fields, nil
}

// Attribute looks up an event attribute by keyword. It is the only partial
// accessor: on a non-event, a missing keyword, or any lookup failure it
// reports absence instead of an error.
func (d *Descriptor) Attribute(key fourcc.Code) (*Descriptor, bool) {
	if d == nil || d.closed.Load() || d.kind != KindEvent {
		return nil, false
	}
	raw, st := d.raw.Attr(key)
	if st != oserr.NoErr {
		return nil, false
	}
	return Adopt(raw), true
}

// EventClass returns the event class of an event descriptor.
func (d *Descriptor) EventClass() (fourcc.Code, error) {
	if err := d.usable("EventClass"); err != nil {
		return 0, err
	}
	class, st := d.raw.Class()
	if st != oserr.NoErr {
		return 0, oserr.New(st, "AEGetAttributeDesc failed")
	}
	return class, nil
}

// EventID returns the event ID of an event descriptor.
func (d *Descriptor) EventID() (fourcc.Code, error) {
	if err := d.usable("EventID"); err != nil {
		return 0, err
	}
	id, st := d.raw.ID()
	if st != oserr.NoErr {
		return 0, oserr.New(st, "AEGetAttributeDesc failed")
	}
	return id, nil
}

// Target returns a copy of the event's address descriptor.
func (d *Descriptor) Target() (*Descriptor, error) {
	if err := d.usable("Target"); err != nil {
		return nil, err
	}
	raw, st := d.raw.Target()
	if st != oserr.NoErr {
		return nil, oserr.New(st, "AEGetAttributeDesc failed")
	}
	return Adopt(raw), nil
}

// ReturnID returns the event's return ID.
func (d *Descriptor) ReturnID() (int32, error) {
	if err := d.usable("ReturnID"); err != nil {
		return 0, err
	}
	v, st := d.raw.ReturnID()
	if st != oserr.NoErr {
		return 0, oserr.New(st, "AEGetAttributeDesc failed")
	}
	return v, nil
}

// TransactionID returns the event's transaction ID.
func (d *Descriptor) TransactionID() (int32, error) {
	if err := d.usable("TransactionID"); err != nil {
		return 0, err
	}
	v, st := d.raw.TransactionID()
	if st != oserr.NoErr {
		return 0, oserr.New(st, "AEGetAttributeDesc failed")
	}
	return v, nil
}
