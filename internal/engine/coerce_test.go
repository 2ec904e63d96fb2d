package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osakit/aebridge/pkg/fourcc"
	"github.com/osakit/aebridge/pkg/oserr"
)

func TestCoerceSameTypeDuplicates(t *testing.T) {
	d := NewData(TypeUTF8Text, []byte("same"))
	out, st := d.CoerceTo(TypeUTF8Text)
	require.Equal(t, oserr.NoErr, st)

	require.Equal(t, oserr.NoErr, out.Dispose())
	data, st := d.Data()
	require.Equal(t, oserr.NoErr, st)
	assert.Equal(t, []byte("same"), data)
}

func TestCoerceScalars(t *testing.T) {
	t.Run("text to float", func(t *testing.T) {
		out, st := NewData(TypeUTF8Text, []byte("3.5")).CoerceTo(TypeFloat64)
		require.Equal(t, oserr.NoErr, st)
		f, st := Float64Value(out)
		require.Equal(t, oserr.NoErr, st)
		assert.Equal(t, 3.5, f)
	})

	t.Run("float to text", func(t *testing.T) {
		out, st := NewData(TypeFloat64, Float64Bytes(2.25)).CoerceTo(TypeUTF8Text)
		require.Equal(t, oserr.NoErr, st)
		data, _ := out.Data()
		assert.Equal(t, "2.25", string(data))
	})

	t.Run("int to float and back", func(t *testing.T) {
		out, st := NewInt32(12).CoerceTo(TypeFloat64)
		require.Equal(t, oserr.NoErr, st)
		back, st := out.CoerceTo(TypeSInt32)
		require.Equal(t, oserr.NoErr, st)
		n, _ := Int32Value(back)
		assert.Equal(t, int32(12), n)
	})

	t.Run("bool to text", func(t *testing.T) {
		out, st := NewData(TypeBoolean, BoolBytes(true)).CoerceTo(TypeUTF8Text)
		require.Equal(t, oserr.NoErr, st)
		data, _ := out.Data()
		assert.Equal(t, "true", string(data))
	})

	t.Run("text to bool", func(t *testing.T) {
		out, st := NewData(TypeUTF8Text, []byte("false")).CoerceTo(TypeBoolean)
		require.Equal(t, oserr.NoErr, st)
		b, _ := BoolValue(out)
		assert.False(t, b)
	})

	t.Run("unparseable text fails", func(t *testing.T) {
		_, st := NewData(TypeUTF8Text, []byte("not a number")).CoerceTo(TypeFloat64)
		assert.Equal(t, oserr.ErrAECoercionFail, st)
	})

	t.Run("fractional float to int fails", func(t *testing.T) {
		_, st := NewData(TypeFloat64, Float64Bytes(1.5)).CoerceTo(TypeSInt32)
		assert.Equal(t, oserr.ErrAECoercionFail, st)
	})
}

func TestCoerceWrapsIntoList(t *testing.T) {
	out, st := NewData(TypeUTF8Text, []byte("solo")).CoerceTo(TypeAEList)
	require.Equal(t, oserr.NoErr, st)
	n, st := out.Count()
	require.Equal(t, oserr.NoErr, st)
	assert.Equal(t, 1, n)
	assert.False(t, out.IsRecord())
}

func TestCoerceEventToRecord(t *testing.T) {
	ev := NewAppleEvent(fourcc.MustParse("TEST"), fourcc.MustParse("PING"), nil, 0, 0)
	require.Equal(t, oserr.NoErr, ev.PutField(KeyDirectObject, NewData(TypeUTF8Text, []byte("hi"))))
	require.Equal(t, oserr.NoErr, ev.SetAttr(KeyTimeoutAttr, NewInt32(60)))

	rec, st := ev.CoerceTo(TypeAERecord)
	require.Equal(t, oserr.NoErr, st)
	assert.True(t, rec.IsRecord())

	n, _ := rec.Count()
	assert.Equal(t, 1, n, "only parameters survive the record view")
	v, st := rec.Field(KeyDirectObject)
	require.Equal(t, oserr.NoErr, st)
	data, _ := v.Data()
	assert.Equal(t, "hi", string(data))
}

func TestCoerceNullFails(t *testing.T) {
	_, st := NewNull().CoerceTo(TypeUTF8Text)
	assert.Equal(t, oserr.ErrAECoercionFail, st)
}
