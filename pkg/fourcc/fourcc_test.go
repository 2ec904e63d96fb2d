package fourcc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRoundTrip(t *testing.T) {
	for _, s := range []string{"aevt", "utf8", "----", "TEST", "PING", "\x00\x01\x02\x03"} {
		c, err := Parse(s)
		require.NoError(t, err, "Parse(%q)", s)
		assert.Equal(t, s, c.String())
	}
}

func TestParseRejectsBadLength(t *testing.T) {
	for _, s := range []string{"", "abc", "abcde", "héllo"} {
		_, err := Parse(s)
		assert.Error(t, err, "Parse(%q) should fail", s)
	}

	// 4 runes but 5 bytes
	_, err := Parse("héll")
	assert.Error(t, err)
}

func TestStringIsTotal(t *testing.T) {
	assert.Equal(t, "\x00\x00\x00\x00", Code(0).String())
	assert.Equal(t, "\xff\xff\xff\xff", Code(0xffffffff).String())

	// any 4-byte value round-trips through its textual form
	for _, c := range []Code{0, 1, 0xdeadbeef, 0xffffffff} {
		parsed, err := Parse(c.String())
		require.NoError(t, err)
		assert.Equal(t, c, parsed)
	}
}

func TestMustParsePanics(t *testing.T) {
	assert.Panics(t, func() { MustParse("toolong") })
	assert.NotPanics(t, func() { MustParse("aevt") })
}

func TestIsZero(t *testing.T) {
	assert.True(t, Code(0).IsZero())
	assert.False(t, MustParse("aevt").IsZero())
}
