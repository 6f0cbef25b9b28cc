// Package classfile decodes JVM class files into an in-memory ClassFile.
package classfile

import (
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
)

// Magic is the first four bytes of every classfile.
const Magic = 0xCAFEBABE

// ParseFile reads and parses the .class file at path.
func ParseFile(path string, opts ...Option) (*ClassFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data, opts...)
}

// ParseReader reads r to EOF and parses the result.
func ParseReader(r io.Reader, opts ...Option) (*ClassFile, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading class bytes: %w", err)
	}
	return Parse(data, opts...)
}

// Parse decodes a complete classfile. It either returns a fully populated
// ClassFile or a *DecodeError; data is not retained. Input that stops after
// the constant pool, such as a bare 10-byte header, is truncated here; use
// ParseHeader to decode just that prefix.
func Parse(data []byte, opts ...Option) (*ClassFile, error) {
	d := newDecoder(data, opts)

	h, err := d.header()
	if err != nil {
		return nil, err
	}
	cf := &ClassFile{Header: *h}

	if cf.AccessFlags, err = d.c.ReadU16(); err != nil {
		return nil, within("access_flags", err)
	}
	if cf.ThisClass, err = d.c.ReadU16(); err != nil {
		return nil, within("this_class", err)
	}
	if cf.SuperClass, err = d.c.ReadU16(); err != nil {
		return nil, within("super_class", err)
	}
	if cf.Interfaces, err = d.c.readU16s(); err != nil {
		return nil, within("interfaces", err)
	}

	if cf.Fields, err = d.fields(); err != nil {
		return nil, err
	}
	if cf.Methods, err = d.methods(); err != nil {
		return nil, err
	}
	if cf.Attributes, err = d.attributes(); err != nil {
		return nil, within("class", err)
	}

	if n := d.c.Remaining(); n > 0 {
		return nil, &DecodeError{
			Kind:   KindTrailingData,
			Offset: d.c.Offset(),
			Detail: fmt.Sprintf("%d bytes after the class attributes", n),
		}
	}

	d.log.Debug("decoded class",
		zap.Uint16("major", cf.MajorVersion),
		zap.Int("fields", len(cf.Fields)),
		zap.Int("methods", len(cf.Methods)),
		zap.Int("attributes", len(cf.Attributes)))
	return cf, nil
}

// ParseHeader decodes only the magic, version and constant pool, ignoring
// whatever follows.
func ParseHeader(data []byte, opts ...Option) (*Header, error) {
	return newDecoder(data, opts).header()
}

func (d *decoder) header() (*Header, error) {
	h := &Header{}
	var err error

	off := d.c.Offset()
	if h.Magic, err = d.c.ReadU32(); err != nil {
		return nil, within("magic", err)
	}
	if h.Magic != Magic {
		return nil, &DecodeError{
			Kind:   KindBadMagic,
			Path:   []string{"magic"},
			Offset: off,
			Value:  h.Magic,
			Detail: fmt.Sprintf("0x%08X (expected 0x%08X)", h.Magic, uint32(Magic)),
		}
	}

	if h.MinorVersion, err = d.c.ReadU16(); err != nil {
		return nil, within("minor_version", err)
	}
	if h.MajorVersion, err = d.c.ReadU16(); err != nil {
		return nil, within("major_version", err)
	}

	count, err := d.c.ReadU16()
	if err != nil {
		return nil, within("constant_pool_count", err)
	}
	if h.ConstantPool, err = d.constantPool(count); err != nil {
		return nil, err
	}
	d.pool = h.ConstantPool
	return h, nil
}
