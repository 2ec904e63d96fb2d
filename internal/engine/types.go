package engine

import (
	"encoding/binary"
	"math"

	"github.com/osakit/aebridge/pkg/fourcc"
	"github.com/osakit/aebridge/pkg/oserr"
)

// Descriptor types.
var (
	TypeNull       = fourcc.MustParse("null")
	TypeAppleEvent = fourcc.MustParse("aevt")
	TypeAEList     = fourcc.MustParse("list")
	TypeAERecord   = fourcc.MustParse("reco")
	TypeUTF8Text   = fourcc.MustParse("utf8")
	TypeFloat64    = fourcc.MustParse("doub")
	TypeBoolean    = fourcc.MustParse("bool")
	TypeSInt32     = fourcc.MustParse("long")
	TypeType       = fourcc.MustParse("type")
)

// Keywords.
var (
	KeyDirectObject      = fourcc.MustParse("----")
	KeyErrorNumber       = fourcc.MustParse("errn")
	KeyErrorString       = fourcc.MustParse("errs")
	KeyErrorBrief        = fourcc.MustParse("errb")
	KeyTimeoutAttr       = fourcc.MustParse("timo")
	KeyEventClassAttr    = fourcc.MustParse("evcl")
	KeyEventIDAttr       = fourcc.MustParse("evid")
	KeyAddressAttr       = fourcc.MustParse("addr")
	KeyReturnIDAttr      = fourcc.MustParse("rtid")
	KeyTransactionIDAttr = fourcc.MustParse("tran")
)

// Reply events are answers in the core event class.
var (
	ClassCore = fourcc.MustParse("aevt")
	IDAnswer  = fourcc.MustParse("ansr")
)

// ThreadID identifies a simulated OS thread. The engine allocates one per
// delivery; run loops bind one at startup. Zero is never allocated.
type ThreadID uint64

// Scalar payload codecs. Data descriptors store typeSInt32 as 4 bytes
// little-endian, typeIEEE64BitFloatingPoint as 8 bytes little-endian, and
// typeBoolean as a single byte.

func Int32Bytes(v int32) []byte {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], uint32(v))
	return b[:]
}

func Int32Value(d *Desc) (int32, int32) {
	data, st := d.Data()
	if st != oserr.NoErr {
		return 0, st
	}
	if len(data) != 4 {
		return 0, oserr.ErrAECorruptData
	}
	return int32(binary.LittleEndian.Uint32(data)), oserr.NoErr
}

func Float64Bytes(v float64) []byte {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], math.Float64bits(v))
	return b[:]
}

func Float64Value(d *Desc) (float64, int32) {
	data, st := d.Data()
	if st != oserr.NoErr {
		return 0, st
	}
	if len(data) != 8 {
		return 0, oserr.ErrAECorruptData
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(data)), oserr.NoErr
}

func BoolBytes(v bool) []byte {
	if v {
		return []byte{1}
	}
	return []byte{0}
}

func BoolValue(d *Desc) (bool, int32) {
	data, st := d.Data()
	if st != oserr.NoErr {
		return false, st
	}
	if len(data) != 1 {
		return false, oserr.ErrAECorruptData
	}
	return data[0] != 0, oserr.NoErr
}

// NewInt32 builds a typeSInt32 data descriptor.
func NewInt32(v int32) *Desc {
	return NewData(TypeSInt32, Int32Bytes(v))
}
