package classfile

import (
	"encoding/binary"
	"math"
)

// buf accumulates big-endian test input.
type buf []byte

func (b *buf) u8(v uint8) *buf   { *b = append(*b, v); return b }
func (b *buf) u16(v uint16) *buf { *b = binary.BigEndian.AppendUint16(*b, v); return b }
func (b *buf) u32(v uint32) *buf { *b = binary.BigEndian.AppendUint32(*b, v); return b }
func (b *buf) bytes() []byte     { return *b }
func (b *buf) raw(p ...[]byte) *buf {
	for _, x := range p {
		*b = append(*b, x...)
	}
	return b
}

// poolBuilder hands out constant pool indices the way javac lays them out.
type poolBuilder struct {
	data buf
	next uint16
	utf8 map[string]uint16
}

func newPool() *poolBuilder {
	return &poolBuilder{next: 1, utf8: map[string]uint16{}}
}

func (p *poolBuilder) add(width uint16, encode func(b *buf)) uint16 {
	i := p.next
	encode(&p.data)
	p.next += width
	return i
}

// count is constant_pool_count.
func (p *poolBuilder) count() uint16 { return p.next }

func (p *poolBuilder) Utf8(s string) uint16 {
	if i, ok := p.utf8[s]; ok {
		return i
	}
	i := p.add(1, func(b *buf) { b.u8(1).u16(uint16(len(s))).raw([]byte(s)) })
	p.utf8[s] = i
	return i
}

func (p *poolBuilder) Class(name string) uint16 {
	n := p.Utf8(name)
	return p.add(1, func(b *buf) { b.u8(7).u16(n) })
}

func (p *poolBuilder) Str(s string) uint16 {
	n := p.Utf8(s)
	return p.add(1, func(b *buf) { b.u8(8).u16(n) })
}

func (p *poolBuilder) Integer(v int32) uint16 {
	return p.add(1, func(b *buf) { b.u8(3).u32(uint32(v)) })
}

func (p *poolBuilder) Float(v float32) uint16 {
	return p.add(1, func(b *buf) { b.u8(4).u32(math.Float32bits(v)) })
}

func (p *poolBuilder) Long(v int64) uint16 {
	return p.add(2, func(b *buf) { b.u8(5).u32(uint32(uint64(v) >> 32)).u32(uint32(v)) })
}

func (p *poolBuilder) Double(v float64) uint16 {
	bits := math.Float64bits(v)
	return p.add(2, func(b *buf) { b.u8(6).u32(uint32(bits >> 32)).u32(uint32(bits)) })
}

func (p *poolBuilder) NameAndType(name, desc string) uint16 {
	n, d := p.Utf8(name), p.Utf8(desc)
	return p.add(1, func(b *buf) { b.u8(12).u16(n).u16(d) })
}

func (p *poolBuilder) Methodref(class, name, desc string) uint16 {
	c, nat := p.Class(class), p.NameAndType(name, desc)
	return p.add(1, func(b *buf) { b.u8(10).u16(c).u16(nat) })
}

func (p *poolBuilder) Fieldref(class, name, desc string) uint16 {
	c, nat := p.Class(class), p.NameAndType(name, desc)
	return p.add(1, func(b *buf) { b.u8(9).u16(c).u16(nat) })
}

func (p *poolBuilder) MethodHandle(kind uint8, ref uint16) uint16 {
	return p.add(1, func(b *buf) { b.u8(15).u8(kind).u16(ref) })
}

func (p *poolBuilder) InvokeDynamic(bsm uint16, name, desc string) uint16 {
	nat := p.NameAndType(name, desc)
	return p.add(1, func(b *buf) { b.u8(18).u16(bsm).u16(nat) })
}

// attr encodes attribute_info with the correct length.
func attr(name uint16, body []byte) []byte {
	return attrLen(name, uint32(len(body)), body)
}

// attrLen encodes attribute_info with an arbitrary declared length.
func attrLen(name uint16, length uint32, body []byte) []byte {
	var b buf
	b.u16(name).u32(length).raw(body)
	return b
}

func table(entries ...[]byte) []byte {
	var b buf
	b.u16(uint16(len(entries))).raw(entries...)
	return b
}

func member(flags, name, desc uint16, attrs ...[]byte) []byte {
	var b buf
	b.u16(flags).u16(name).u16(desc).raw(table(attrs...))
	return b
}

func codeBody(maxStack, maxLocals uint16, code []byte, handlers []ExceptionTableEntry, attrs ...[]byte) []byte {
	var b buf
	b.u16(maxStack).u16(maxLocals).u32(uint32(len(code))).raw(code)
	b.u16(uint16(len(handlers)))
	for _, h := range handlers {
		b.u16(h.StartPC).u16(h.EndPC).u16(h.HandlerPC).u16(h.CatchType)
	}
	b.raw(table(attrs...))
	return b
}

// classBuilder assembles a classfile around a poolBuilder.
type classBuilder struct {
	pool       *poolBuilder
	major      uint16
	access     uint16
	this       uint16
	super      uint16
	interfaces []uint16
	fields     [][]byte
	methods    [][]byte
	attrs      [][]byte
}

func newClass(name, super string) *classBuilder {
	p := newPool()
	cb := &classBuilder{pool: p, major: 52, access: AccPublic | AccSuper}
	cb.this = p.Class(name)
	if super != "" {
		cb.super = p.Class(super)
	}
	return cb
}

func (cb *classBuilder) bytes() []byte {
	var b buf
	b.u32(Magic).u16(0).u16(cb.major)
	b.u16(cb.pool.count()).raw(cb.pool.data)
	b.u16(cb.access).u16(cb.this).u16(cb.super)
	b.u16(uint16(len(cb.interfaces)))
	for _, i := range cb.interfaces {
		b.u16(i)
	}
	b.raw(table(cb.fields...), table(cb.methods...), table(cb.attrs...))
	return b
}
