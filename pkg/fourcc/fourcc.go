// Package fourcc implements the FourCharCode identifier format used by the
// Apple Event Manager: four bytes packed big-endian into a 32-bit integer,
// conventionally displayed as four ASCII characters ("aevt", "utf8", "----").
package fourcc

import (
	"fmt"
	"log/slog"
)

// Code is a packed FourCharCode. The zero value is not a valid descriptor
// type or keyword; every code used by the bridge comes from Parse or
// MustParse.
type Code uint32

// Parse packs a 4-character string into a Code. The length check counts
// bytes, not runes. A malformed code is always an error; there is
// deliberately no lenient variant that returns a zero sentinel.
func Parse(s string) (Code, error) {
	if len(s) != 4 {
		return 0, fmt.Errorf("fourcc: %q must be exactly 4 bytes, got %d", s, len(s))
	}
	return Code(uint32(s[0])<<24 | uint32(s[1])<<16 | uint32(s[2])<<8 | uint32(s[3])), nil
}

// MustParse is Parse for package-level constants. It panics on malformed
// input.
func MustParse(s string) Code {
	c, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return c
}

// String unpacks the code into its 4-character form. It is total: any 32-bit
// value decodes to four bytes, printable or not.
func (c Code) String() string {
	return string([]byte{byte(c >> 24), byte(c >> 16), byte(c >> 8), byte(c)})
}

// IsZero reports whether c is the invalid zero code.
func (c Code) IsZero() bool { return c == 0 }

// LogValue renders the code in its textual form for structured logs.
func (c Code) LogValue() slog.Value { return slog.StringValue(c.String()) }
