package classfile

import (
	"fmt"
	"iter"

	"go.uber.org/zap"
)

// Tag identifies the kind of a constant pool entry.
type Tag uint8

// Constant pool tags
const (
	TagUtf8               Tag = 1
	TagInteger            Tag = 3
	TagFloat              Tag = 4
	TagLong               Tag = 5
	TagDouble             Tag = 6
	TagClass              Tag = 7
	TagString             Tag = 8
	TagFieldref           Tag = 9
	TagMethodref          Tag = 10
	TagInterfaceMethodref Tag = 11
	TagNameAndType        Tag = 12
	TagMethodHandle       Tag = 15
	TagMethodType         Tag = 16
	TagDynamic            Tag = 17
	TagInvokeDynamic      Tag = 18
	TagModule             Tag = 19
	TagPackage            Tag = 20
)

var tagNames = map[Tag]string{
	TagUtf8:               "Utf8",
	TagInteger:            "Integer",
	TagFloat:              "Float",
	TagLong:               "Long",
	TagDouble:             "Double",
	TagClass:              "Class",
	TagString:             "String",
	TagFieldref:           "Fieldref",
	TagMethodref:          "Methodref",
	TagInterfaceMethodref: "InterfaceMethodref",
	TagNameAndType:        "NameAndType",
	TagMethodHandle:       "MethodHandle",
	TagMethodType:         "MethodType",
	TagDynamic:            "Dynamic",
	TagInvokeDynamic:      "InvokeDynamic",
	TagModule:             "Module",
	TagPackage:            "Package",
}

func (t Tag) String() string {
	if name, ok := tagNames[t]; ok {
		return name
	}
	return fmt.Sprintf("Tag(%d)", uint8(t))
}

// Method handle reference kinds.
const (
	RefGetField         = 1
	RefGetStatic        = 2
	RefPutField         = 3
	RefPutStatic        = 4
	RefInvokeVirtual    = 5
	RefInvokeStatic     = 6
	RefInvokeSpecial    = 7
	RefNewInvokeSpecial = 8
	RefInvokeInterface  = 9
)

// ConstantPool is the decoded constant pool of a class. Valid indices run
// from 1 to Count()-1; slot 0 and the slot following each Long or Double
// are unusable. A ConstantPool is immutable once decoded.
type ConstantPool struct {
	entries []ConstantPoolEntry
}

// NewConstantPool builds a pool from entries indexed exactly as in a
// classfile: entries[0] and the slot after a Long or Double must be nil.
func NewConstantPool(entries []ConstantPoolEntry) *ConstantPool {
	if len(entries) == 0 {
		entries = make([]ConstantPoolEntry, 1)
	}
	return &ConstantPool{entries: entries}
}

// Count returns constant_pool_count: one more than the highest index.
func (p *ConstantPool) Count() int {
	return len(p.entries)
}

// Len returns the number of populated slots.
func (p *ConstantPool) Len() int {
	n := 0
	for _, e := range p.entries {
		if e != nil {
			n++
		}
	}
	return n
}

// All iterates over populated slots in index order.
func (p *ConstantPool) All() iter.Seq2[uint16, ConstantPoolEntry] {
	return func(yield func(uint16, ConstantPoolEntry) bool) {
		for i, e := range p.entries {
			if e == nil {
				continue
			}
			if !yield(uint16(i), e) {
				return
			}
		}
	}
}

// Entry returns the entry at index, failing if the slot is absent.
func (p *ConstantPool) Entry(index uint16) (ConstantPoolEntry, error) {
	if index == 0 || int(index) >= len(p.entries) || p.entries[index] == nil {
		return nil, danglingIndex(index, len(p.entries))
	}
	return p.entries[index], nil
}

// expect checks that index names an entry with one of the given tags.
func (p *ConstantPool) expect(index uint16, tags ...Tag) (ConstantPoolEntry, error) {
	e, err := p.Entry(index)
	if err != nil {
		return nil, err
	}
	for _, t := range tags {
		if e.Tag() == t {
			return e, nil
		}
	}
	return nil, wrongConstantKind(index, e.Tag(), tags)
}

func lookup[T ConstantPoolEntry](p *ConstantPool, index uint16, tag Tag) (T, error) {
	var zero T
	e, err := p.expect(index, tag)
	if err != nil {
		return zero, err
	}
	return e.(T), nil
}

// Utf8 returns the string held by the Utf8 entry at index.
func (p *ConstantPool) Utf8(index uint16) (string, error) {
	u, err := lookup[*ConstantUtf8](p, index, TagUtf8)
	if err != nil {
		return "", err
	}
	return u.Value, nil
}

// ClassName returns the internal name referenced by a Class entry.
func (p *ConstantPool) ClassName(index uint16) (string, error) {
	c, err := lookup[*ConstantClass](p, index, TagClass)
	if err != nil {
		return "", err
	}
	return p.Utf8(c.NameIndex)
}

// NameAndType returns the name and descriptor of a NameAndType entry.
func (p *ConstantPool) NameAndType(index uint16) (name, descriptor string, err error) {
	nat, err := lookup[*ConstantNameAndType](p, index, TagNameAndType)
	if err != nil {
		return "", "", err
	}
	if name, err = p.Utf8(nat.NameIndex); err != nil {
		return "", "", fmt.Errorf("resolving name: %w", err)
	}
	if descriptor, err = p.Utf8(nat.DescriptorIndex); err != nil {
		return "", "", fmt.Errorf("resolving descriptor: %w", err)
	}
	return name, descriptor, nil
}

// MemberRef holds a resolved field or method reference.
type MemberRef struct {
	ClassName  string
	Name       string
	Descriptor string
}

func (p *ConstantPool) resolveRef(index uint16, tag Tag) (*MemberRef, error) {
	e, err := p.expect(index, tag)
	if err != nil {
		return nil, err
	}
	var classIndex, natIndex uint16
	switch ref := e.(type) {
	case *ConstantFieldref:
		classIndex, natIndex = ref.ClassIndex, ref.NameAndTypeIndex
	case *ConstantMethodref:
		classIndex, natIndex = ref.ClassIndex, ref.NameAndTypeIndex
	case *ConstantInterfaceMethodref:
		classIndex, natIndex = ref.ClassIndex, ref.NameAndTypeIndex
	}

	className, err := p.ClassName(classIndex)
	if err != nil {
		return nil, fmt.Errorf("resolving %s class: %w", tag, err)
	}
	name, descriptor, err := p.NameAndType(natIndex)
	if err != nil {
		return nil, fmt.Errorf("resolving %s name and type: %w", tag, err)
	}
	return &MemberRef{ClassName: className, Name: name, Descriptor: descriptor}, nil
}

// ResolveFieldref resolves a Fieldref entry.
func (p *ConstantPool) ResolveFieldref(index uint16) (*MemberRef, error) {
	return p.resolveRef(index, TagFieldref)
}

// ResolveMethodref resolves a Methodref entry.
func (p *ConstantPool) ResolveMethodref(index uint16) (*MemberRef, error) {
	return p.resolveRef(index, TagMethodref)
}

// ResolveInterfaceMethodref resolves an InterfaceMethodref entry.
func (p *ConstantPool) ResolveInterfaceMethodref(index uint16) (*MemberRef, error) {
	return p.resolveRef(index, TagInterfaceMethodref)
}

// constantPool reads constant_pool_count-1 slots. Long and Double take two
// slots; the second is left nil.
func (d *decoder) constantPool(count uint16) (*ConstantPool, error) {
	entries := make([]ConstantPoolEntry, max(int(count), 1))
	offsets := make([]int, len(entries))

	for i := 1; i < int(count); i++ {
		offsets[i] = d.c.Offset()
		e, err := d.constant()
		if err != nil {
			return nil, within(fmt.Sprintf("constant_pool[%d]", i), err)
		}
		entries[i] = e
		if t := e.Tag(); t == TagLong || t == TagDouble {
			i++
		}
	}

	pool := &ConstantPool{entries: entries}
	if err := pool.checkReferences(offsets); err != nil {
		return nil, err
	}
	d.log.Debug("decoded constant pool",
		zap.Int("count", int(count)),
		zap.Int("offset", d.c.Offset()))
	return pool, nil
}

func (d *decoder) constant() (ConstantPoolEntry, error) {
	tagOff := d.c.Offset()
	b, err := d.c.ReadU8()
	if err != nil {
		return nil, err
	}

	switch tag := Tag(b); tag {
	case TagUtf8:
		length, err := d.c.ReadU16()
		if err != nil {
			return nil, err
		}
		start := d.c.Offset()
		raw, err := d.c.ReadBytes(int(length))
		if err != nil {
			return nil, err
		}
		s, bad, err := decodeModifiedUTF8(raw)
		if err != nil {
			return nil, &DecodeError{
				Kind:   KindInvalidText,
				Offset: start + bad,
				Detail: err.Error(),
			}
		}
		return &ConstantUtf8{Value: s}, nil

	case TagInteger, TagFloat:
		bits, err := d.c.ReadU32()
		if err != nil {
			return nil, err
		}
		if tag == TagInteger {
			return &ConstantInteger{Bits: bits}, nil
		}
		return &ConstantFloat{Bits: bits}, nil

	case TagLong, TagDouble:
		high, err := d.c.ReadU32()
		if err != nil {
			return nil, err
		}
		low, err := d.c.ReadU32()
		if err != nil {
			return nil, err
		}
		if tag == TagLong {
			return &ConstantLong{High: high, Low: low}, nil
		}
		return &ConstantDouble{High: high, Low: low}, nil

	case TagClass, TagString, TagMethodType, TagModule, TagPackage:
		index, err := d.c.ReadU16()
		if err != nil {
			return nil, err
		}
		switch tag {
		case TagClass:
			return &ConstantClass{NameIndex: index}, nil
		case TagString:
			return &ConstantString{StringIndex: index}, nil
		case TagMethodType:
			return &ConstantMethodType{DescriptorIndex: index}, nil
		case TagModule:
			return &ConstantModule{NameIndex: index}, nil
		default:
			return &ConstantPackage{NameIndex: index}, nil
		}

	case TagFieldref, TagMethodref, TagInterfaceMethodref, TagNameAndType, TagDynamic, TagInvokeDynamic:
		first, err := d.c.ReadU16()
		if err != nil {
			return nil, err
		}
		second, err := d.c.ReadU16()
		if err != nil {
			return nil, err
		}
		switch tag {
		case TagFieldref:
			return &ConstantFieldref{ClassIndex: first, NameAndTypeIndex: second}, nil
		case TagMethodref:
			return &ConstantMethodref{ClassIndex: first, NameAndTypeIndex: second}, nil
		case TagInterfaceMethodref:
			return &ConstantInterfaceMethodref{ClassIndex: first, NameAndTypeIndex: second}, nil
		case TagNameAndType:
			return &ConstantNameAndType{NameIndex: first, DescriptorIndex: second}, nil
		case TagDynamic:
			return &ConstantDynamic{BootstrapMethodAttrIndex: first, NameAndTypeIndex: second}, nil
		default:
			return &ConstantInvokeDynamic{BootstrapMethodAttrIndex: first, NameAndTypeIndex: second}, nil
		}

	case TagMethodHandle:
		kind, err := d.c.ReadU8()
		if err != nil {
			return nil, err
		}
		index, err := d.c.ReadU16()
		if err != nil {
			return nil, err
		}
		return &ConstantMethodHandle{ReferenceKind: kind, ReferenceIndex: index}, nil

	default:
		return nil, &DecodeError{
			Kind:   KindUnknownConstantTag,
			Offset: tagOff,
			Value:  b,
			Detail: fmt.Sprintf("unknown constant pool tag %d", b),
		}
	}
}

// checkReferences verifies that every index held by a pool entry names a
// populated slot of the kind the format requires. The pool may refer
// forward, so this runs once the whole pool is read. offsets, when given,
// holds the stream offset of each entry for error reporting.
func (p *ConstantPool) checkReferences(offsets []int) error {
	for i, e := range p.All() {
		if err := p.checkEntry(e); err != nil {
			if int(i) < len(offsets) {
				locate(err, offsets[i])
			}
			return within(fmt.Sprintf("constant_pool[%d]", i), err)
		}
	}
	return nil
}

func (p *ConstantPool) checkEntry(e ConstantPoolEntry) error {
	var err error
	switch c := e.(type) {
	case *ConstantClass:
		_, err = p.expect(c.NameIndex, TagUtf8)
	case *ConstantString:
		_, err = p.expect(c.StringIndex, TagUtf8)
	case *ConstantModule:
		_, err = p.expect(c.NameIndex, TagUtf8)
	case *ConstantPackage:
		_, err = p.expect(c.NameIndex, TagUtf8)
	case *ConstantMethodType:
		_, err = p.expect(c.DescriptorIndex, TagUtf8)
	case *ConstantNameAndType:
		if _, err = p.expect(c.NameIndex, TagUtf8); err == nil {
			_, err = p.expect(c.DescriptorIndex, TagUtf8)
		}
	case *ConstantFieldref:
		err = p.checkRef(c.ClassIndex, c.NameAndTypeIndex)
	case *ConstantMethodref:
		err = p.checkRef(c.ClassIndex, c.NameAndTypeIndex)
	case *ConstantInterfaceMethodref:
		err = p.checkRef(c.ClassIndex, c.NameAndTypeIndex)
	case *ConstantDynamic:
		_, err = p.expect(c.NameAndTypeIndex, TagNameAndType)
	case *ConstantInvokeDynamic:
		_, err = p.expect(c.NameAndTypeIndex, TagNameAndType)
	case *ConstantMethodHandle:
		err = p.checkMethodHandle(c)
	}
	return err
}

func (p *ConstantPool) checkRef(classIndex, natIndex uint16) error {
	if _, err := p.expect(classIndex, TagClass); err != nil {
		return err
	}
	_, err := p.expect(natIndex, TagNameAndType)
	return err
}

func (p *ConstantPool) checkMethodHandle(h *ConstantMethodHandle) error {
	var want []Tag
	switch h.ReferenceKind {
	case RefGetField, RefGetStatic, RefPutField, RefPutStatic:
		want = []Tag{TagFieldref}
	case RefInvokeVirtual, RefNewInvokeSpecial:
		want = []Tag{TagMethodref}
	case RefInvokeStatic, RefInvokeSpecial:
		want = []Tag{TagMethodref, TagInterfaceMethodref}
	case RefInvokeInterface:
		want = []Tag{TagInterfaceMethodref}
	default:
		return &DecodeError{
			Kind:   KindWrongConstantKind,
			Offset: -1,
			Value:  h.ReferenceKind,
			Detail: fmt.Sprintf("method handle reference_kind %d is not in [1, 9]", h.ReferenceKind),
		}
	}
	_, err := p.expect(h.ReferenceIndex, want...)
	return err
}
