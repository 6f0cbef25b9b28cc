package classfile

import "encoding/binary"

// cursor is a forward-only big-endian reader over an immutable buffer.
// There is no Seek; decoders consume exactly the bytes the format declares.
type cursor struct {
	buf []byte
	pos int
}

func newCursor(buf []byte) *cursor {
	return &cursor{buf: buf}
}

// Offset returns the absolute position of the next read.
func (c *cursor) Offset() int {
	return c.pos
}

// Remaining returns the number of unread bytes.
func (c *cursor) Remaining() int {
	return len(c.buf) - c.pos
}

func (c *cursor) need(n int) error {
	if n < 0 || c.Remaining() < n {
		return &DecodeError{
			Kind:   KindTruncated,
			Offset: c.pos,
			Detail: truncatedDetail(n, c.Remaining()),
		}
	}
	return nil
}

func (c *cursor) ReadU8() (uint8, error) {
	if err := c.need(1); err != nil {
		return 0, err
	}
	v := c.buf[c.pos]
	c.pos++
	return v, nil
}

func (c *cursor) ReadU16() (uint16, error) {
	if err := c.need(2); err != nil {
		return 0, err
	}
	v := binary.BigEndian.Uint16(c.buf[c.pos:])
	c.pos += 2
	return v, nil
}

func (c *cursor) ReadU32() (uint32, error) {
	if err := c.need(4); err != nil {
		return 0, err
	}
	v := binary.BigEndian.Uint32(c.buf[c.pos:])
	c.pos += 4
	return v, nil
}

// ReadBytes returns a copy of the next n bytes so decoded values never
// alias the caller's buffer.
func (c *cursor) ReadBytes(n int) ([]byte, error) {
	if err := c.need(n); err != nil {
		return nil, err
	}
	b := make([]byte, n)
	copy(b, c.buf[c.pos:c.pos+n])
	c.pos += n
	return b, nil
}

// readU16s reads a u16 count followed by that many u16 values.
func (c *cursor) readU16s() ([]uint16, error) {
	n, err := c.ReadU16()
	if err != nil {
		return nil, err
	}
	vals := make([]uint16, n)
	for i := range vals {
		if vals[i], err = c.ReadU16(); err != nil {
			return nil, err
		}
	}
	return vals, nil
}
