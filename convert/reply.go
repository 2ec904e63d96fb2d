package convert

import (
	"fmt"

	"github.com/osakit/aebridge"
	"github.com/osakit/aebridge/aedesc"
	"github.com/osakit/aebridge/pkg/fourcc"
	"github.com/osakit/aebridge/pkg/oserr"
)

// ReplyFromValues normalizes a handler's plain-value reply into Fields. The
// keys must parse as FourCharCodes; the values convert through FromValue. A
// nil or empty map means NoReply.
func ReplyFromValues(values map[string]any) (aebridge.Result, error) {
	if len(values) == 0 {
		return aebridge.NoReply, nil
	}
	fields := aebridge.Fields{}
	closeAll := func() {
		for _, v := range fields {
			_ = v.Close()
		}
	}
	for k, v := range values {
		key, err := fourcc.Parse(k)
		if err != nil {
			closeAll()
			return nil, fmt.Errorf("convert: reply key %q: %w", k, err)
		}
		value, err := FromValue(v)
		if err != nil {
			closeAll()
			return nil, fmt.Errorf("convert: reply field %q: %w", k, err)
		}
		fields[key] = value
	}
	return fields, nil
}

// ErrorReply builds the error-parameters reply for an adapter-level
// failure: the error number keyed by errn and the message keyed by errs.
func ErrorReply(err error) aebridge.Fields {
	return aebridge.Fields{
		aedesc.KeyErrorNumber: aedesc.Int32(oserr.CodeOf(err)),
		aedesc.KeyErrorString: aedesc.Text(err.Error()),
	}
}
