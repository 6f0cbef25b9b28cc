package classfile

import (
	"fmt"
	"unicode/utf16"
	"unicode/utf8"
)

// decodeModifiedUTF8 converts the JVM's modified UTF-8 to a Go string.
// NUL is encoded as 0xC0 0x80 and supplementary characters as a pair of
// three-byte surrogates, so plain utf8.Valid rejects valid input.
// An unpaired surrogate is legal in the format but has no rune; it keeps
// its three-byte encoding, leaving the string invalid UTF-8 rather than
// altered. Overlong two- and three-byte forms are accepted.
// It returns the offset of the first malformed byte on failure.
func decodeModifiedUTF8(b []byte) (string, int, error) {
	ascii := true
	for _, c := range b {
		if c == 0 || c >= 0x80 {
			ascii = false
			break
		}
	}
	if ascii {
		return string(b), 0, nil
	}

	units := make([]uint16, 0, len(b))
	for i := 0; i < len(b); {
		c := b[i]
		switch {
		case c == 0:
			return "", i, fmt.Errorf("NUL byte must be encoded as 0xC0 0x80")
		case c < 0x80:
			units = append(units, uint16(c))
			i++
		case c&0xE0 == 0xC0:
			if i+1 >= len(b) || b[i+1]&0xC0 != 0x80 {
				return "", i, fmt.Errorf("incomplete two-byte sequence 0x%02X", c)
			}
			units = append(units, uint16(c&0x1F)<<6|uint16(b[i+1]&0x3F))
			i += 2
		case c&0xF0 == 0xE0:
			if i+2 >= len(b) || b[i+1]&0xC0 != 0x80 || b[i+2]&0xC0 != 0x80 {
				return "", i, fmt.Errorf("incomplete three-byte sequence 0x%02X", c)
			}
			units = append(units, uint16(c&0x0F)<<12|uint16(b[i+1]&0x3F)<<6|uint16(b[i+2]&0x3F))
			i += 3
		default:
			return "", i, fmt.Errorf("illegal byte 0x%02X", c)
		}
	}
	return string(appendUnits(make([]byte, 0, len(b)), units)), 0, nil
}

func appendUnits(out []byte, units []uint16) []byte {
	for i := 0; i < len(units); i++ {
		u := rune(units[i])
		if !utf16.IsSurrogate(u) {
			out = utf8.AppendRune(out, u)
			continue
		}
		if i+1 < len(units) {
			if r := utf16.DecodeRune(u, rune(units[i+1])); r != utf8.RuneError {
				out = utf8.AppendRune(out, r)
				i++
				continue
			}
		}
		out = append(out, 0xE0|byte(u>>12), 0x80|byte(u>>6)&0x3F, 0x80|byte(u)&0x3F)
	}
	return out
}
