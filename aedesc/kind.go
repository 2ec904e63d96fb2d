package aedesc

import (
	"github.com/osakit/aebridge/internal/engine"
	"github.com/osakit/aebridge/pkg/oserr"
)

// Kind is the classified variant of a descriptor.
type Kind int

const (
	KindUnknown Kind = iota
	KindNull
	KindData
	KindList
	KindRecord
	KindEvent
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindData:
		return "data"
	case KindList:
		return "list"
	case KindRecord:
		return "record"
	case KindEvent:
		return "event"
	default:
		return "unknown"
	}
}

// classify decides the variant of a native payload. Exact type matches for
// null and full events come first; everything else is probed by attempting
// to enumerate items: a wrong-data-type status means a data payload,
// confirmed record-ness means a record, a countable payload is otherwise a
// list, and any other enumeration failure falls back to unknown.
func classify(raw *engine.Desc) Kind {
	switch raw.Type() {
	case engine.TypeNull:
		return KindNull
	case engine.TypeAppleEvent:
		return KindEvent
	}
	_, st := raw.Count()
	switch st {
	case oserr.NoErr:
		if raw.IsRecord() {
			return KindRecord
		}
		return KindList
	case oserr.ErrAEWrongDataType:
		return KindData
	default:
		return KindUnknown
	}
}
