package classfile

import (
	"fmt"

	"go.uber.org/zap"
)

// maxNesting bounds how deeply element values and Code attribute tables
// may nest, keeping recursion far below the goroutine stack limit.
const maxNesting = 256

// Option configures a single decode.
type Option func(*decoder)

// WithLogger routes decode diagnostics to l at Debug level. Without it a
// decode logs nothing.
func WithLogger(l *zap.Logger) Option {
	return func(d *decoder) {
		if l != nil {
			d.log = l
		}
	}
}

// decoder carries the state of one decode: the shared cursor and, once
// read, the constant pool. It is never shared between decodes.
type decoder struct {
	c     *cursor
	pool  *ConstantPool
	log   *zap.Logger
	depth int
}

func newDecoder(data []byte, opts []Option) *decoder {
	d := &decoder{c: newCursor(data), log: zap.NewNop()}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// enter records one more level of nesting. Every successful enter must be
// paired with leave.
func (d *decoder) enter() error {
	if d.depth >= maxNesting {
		return &DecodeError{
			Kind:   KindNestingTooDeep,
			Offset: d.c.Offset(),
			Value:  d.depth,
			Detail: fmt.Sprintf("more than %d nested levels", maxNesting),
		}
	}
	d.depth++
	return nil
}

func (d *decoder) leave() { d.depth-- }

// index reads a u16 constant pool index that must name an entry with one
// of the given tags.
func (d *decoder) index(tags ...Tag) (uint16, error) {
	off := d.c.Offset()
	i, err := d.c.ReadU16()
	if err != nil {
		return 0, err
	}
	if _, err := d.pool.expect(i, tags...); err != nil {
		return 0, locate(err, off)
	}
	return i, nil
}

// optionalIndex is index but also accepts 0.
func (d *decoder) optionalIndex(tags ...Tag) (uint16, error) {
	off := d.c.Offset()
	i, err := d.c.ReadU16()
	if err != nil || i == 0 {
		return i, err
	}
	if _, err := d.pool.expect(i, tags...); err != nil {
		return 0, locate(err, off)
	}
	return i, nil
}

// indexes reads a u16 count and that many indices of the given tags.
func (d *decoder) indexes(tags ...Tag) ([]uint16, error) {
	n, err := d.c.ReadU16()
	if err != nil {
		return nil, err
	}
	vals := make([]uint16, n)
	for i := range vals {
		if vals[i], err = d.index(tags...); err != nil {
			return nil, err
		}
	}
	return vals, nil
}
