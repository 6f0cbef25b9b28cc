package classfile

import (
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// attributes reads a u16 count followed by that many attributes.
func (d *decoder) attributes() ([]Attribute, error) {
	n, err := d.c.ReadU16()
	if err != nil {
		return nil, err
	}
	attrs := make([]Attribute, n)
	for i := range attrs {
		if attrs[i], err = d.attribute(); err != nil {
			return nil, within(fmt.Sprintf("attributes[%d]", i), err)
		}
	}
	return attrs, nil
}

// attribute reads one attribute_info. Names outside the registry are kept
// opaque; for the rest the decoded body must span exactly
// attribute_length bytes.
func (d *decoder) attribute() (Attribute, error) {
	nameOff := d.c.Offset()
	nameIndex, err := d.c.ReadU16()
	if err != nil {
		return nil, err
	}
	length, err := d.c.ReadU32()
	if err != nil {
		return nil, err
	}
	name, err := d.pool.Utf8(nameIndex)
	if err != nil {
		return nil, locate(err, nameOff)
	}

	if !knownAttributes[name] {
		data, err := d.c.ReadBytes(int(length))
		if err != nil {
			return nil, within(name, err)
		}
		d.log.Debug("kept attribute opaque",
			zap.String("name", name),
			zap.Uint32("length", length),
			zap.Int("offset", nameOff))
		return &OpaqueAttribute{NameIndex: nameIndex, AttrName: name, Data: data}, nil
	}

	start := d.c.Offset()
	if err := d.c.need(int(length)); err != nil {
		return nil, within(name, err)
	}
	a, consumed, err := d.limited(int(length), func() (Attribute, error) {
		return d.attributeBody(name, length)
	})
	var de *DecodeError
	if errors.As(err, &de) && de.Kind == KindTruncated {
		// The stream holds all length bytes, so running out means the
		// body reads past its declared end.
		return nil, lengthMismatch(name, start, length,
			fmt.Sprintf("attribute_length is %d but the body reads past it: %s", length, de.Detail))
	}
	if err != nil {
		return nil, within(name, err)
	}
	if consumed != int(length) {
		return nil, lengthMismatch(name, start, length,
			fmt.Sprintf("attribute_length is %d but body decoded to %d bytes", length, consumed))
	}
	return a, nil
}

// limited runs fn against a cursor that ends n bytes past the current
// offset, then advances the outer cursor by what fn consumed.
func (d *decoder) limited(n int, fn func() (Attribute, error)) (Attribute, int, error) {
	outer := d.c
	start := outer.pos
	d.c = &cursor{buf: outer.buf[:start+n], pos: start}
	a, err := fn()
	consumed := d.c.pos - start
	d.c = outer
	outer.pos += consumed
	return a, consumed, err
}

func lengthMismatch(name string, start int, length uint32, detail string) *DecodeError {
	return &DecodeError{
		Kind:   KindAttributeLengthMismatch,
		Path:   []string{name},
		Offset: start,
		Value:  length,
		Detail: detail,
	}
}

func (d *decoder) attributeBody(name string, length uint32) (Attribute, error) {
	switch name {
	case AttrConstantValue:
		index, err := d.index(TagInteger, TagFloat, TagLong, TagDouble, TagString)
		if err != nil {
			return nil, err
		}
		return &ConstantValueAttribute{ValueIndex: index}, nil

	case AttrCode:
		return d.code()

	case AttrExceptions:
		classes, err := d.indexes(TagClass)
		if err != nil {
			return nil, err
		}
		return &ExceptionsAttribute{ExceptionIndexTable: classes}, nil

	case AttrInnerClasses:
		return d.innerClasses()

	case AttrEnclosingMethod:
		class, err := d.index(TagClass)
		if err != nil {
			return nil, err
		}
		method, err := d.optionalIndex(TagNameAndType)
		if err != nil {
			return nil, err
		}
		return &EnclosingMethodAttribute{ClassIndex: class, MethodIndex: method}, nil

	case AttrSynthetic:
		return &SyntheticAttribute{}, nil

	case AttrDeprecated:
		return &DeprecatedAttribute{}, nil

	case AttrSignature:
		index, err := d.index(TagUtf8)
		if err != nil {
			return nil, err
		}
		return &SignatureAttribute{SignatureIndex: index}, nil

	case AttrSourceFile:
		index, err := d.index(TagUtf8)
		if err != nil {
			return nil, err
		}
		return &SourceFileAttribute{SourceFileIndex: index}, nil

	case AttrSourceDebugExtension:
		data, err := d.c.ReadBytes(int(length))
		if err != nil {
			return nil, err
		}
		return &SourceDebugExtensionAttribute{DebugExtension: data}, nil

	case AttrLineNumberTable:
		return d.lineNumberTable()

	case AttrLocalVariableTable:
		return d.localVariableTable()

	case AttrLocalVariableTypeTable:
		return d.localVariableTypeTable()

	case AttrRuntimeVisibleAnnotations, AttrRuntimeInvisibleAnnotations:
		anns, err := d.annotations()
		if err != nil {
			return nil, err
		}
		return &AnnotationsAttribute{
			Visible:     name == AttrRuntimeVisibleAnnotations,
			Annotations: anns,
		}, nil

	case AttrRuntimeVisibleParameterAnnotations, AttrRuntimeInvisibleParameterAnnotations:
		n, err := d.c.ReadU8()
		if err != nil {
			return nil, err
		}
		params := make([][]Annotation, n)
		for i := range params {
			if params[i], err = d.annotations(); err != nil {
				return nil, within(fmt.Sprintf("parameters[%d]", i), err)
			}
		}
		return &ParameterAnnotationsAttribute{
			Visible:    name == AttrRuntimeVisibleParameterAnnotations,
			Parameters: params,
		}, nil

	case AttrAnnotationDefault:
		v, err := d.elementValue()
		if err != nil {
			return nil, err
		}
		return &AnnotationDefaultAttribute{Value: v}, nil

	case AttrBootstrapMethods:
		return d.bootstrapMethods()

	case AttrMethodParameters:
		n, err := d.c.ReadU8()
		if err != nil {
			return nil, err
		}
		params := make([]MethodParameter, n)
		for i := range params {
			if params[i].NameIndex, err = d.optionalIndex(TagUtf8); err != nil {
				return nil, err
			}
			if params[i].AccessFlags, err = d.c.ReadU16(); err != nil {
				return nil, err
			}
		}
		return &MethodParametersAttribute{Parameters: params}, nil

	case AttrNestHost:
		index, err := d.index(TagClass)
		if err != nil {
			return nil, err
		}
		return &NestHostAttribute{HostClassIndex: index}, nil

	case AttrNestMembers:
		classes, err := d.indexes(TagClass)
		if err != nil {
			return nil, err
		}
		return &NestMembersAttribute{Classes: classes}, nil

	case AttrPermittedSubclasses:
		classes, err := d.indexes(TagClass)
		if err != nil {
			return nil, err
		}
		return &PermittedSubclassesAttribute{Classes: classes}, nil
	}
	return nil, fmt.Errorf("no decoder registered for attribute %s", name)
}

// code decodes a Code body. Its trailing attribute table is read by the
// same attribute decoder, so nested tables recurse naturally.
func (d *decoder) code() (*CodeAttribute, error) {
	maxStack, err := d.c.ReadU16()
	if err != nil {
		return nil, err
	}
	maxLocals, err := d.c.ReadU16()
	if err != nil {
		return nil, err
	}
	codeLength, err := d.c.ReadU32()
	if err != nil {
		return nil, err
	}
	code, err := d.c.ReadBytes(int(codeLength))
	if err != nil {
		return nil, err
	}

	n, err := d.c.ReadU16()
	if err != nil {
		return nil, err
	}
	table := make([]ExceptionTableEntry, n)
	for i := range table {
		e := &table[i]
		if e.StartPC, err = d.c.ReadU16(); err != nil {
			return nil, err
		}
		if e.EndPC, err = d.c.ReadU16(); err != nil {
			return nil, err
		}
		if e.HandlerPC, err = d.c.ReadU16(); err != nil {
			return nil, err
		}
		if e.CatchType, err = d.optionalIndex(TagClass); err != nil {
			return nil, within(fmt.Sprintf("exception_table[%d]", i), err)
		}
	}

	if err := d.enter(); err != nil {
		return nil, err
	}
	attrs, err := d.attributes()
	d.leave()
	if err != nil {
		return nil, err
	}
	return &CodeAttribute{
		MaxStack:       maxStack,
		MaxLocals:      maxLocals,
		Code:           code,
		ExceptionTable: table,
		Attributes:     attrs,
	}, nil
}

func (d *decoder) innerClasses() (*InnerClassesAttribute, error) {
	n, err := d.c.ReadU16()
	if err != nil {
		return nil, err
	}
	classes := make([]InnerClass, n)
	for i := range classes {
		c := &classes[i]
		if c.InnerClassInfoIndex, err = d.index(TagClass); err != nil {
			return nil, err
		}
		if c.OuterClassInfoIndex, err = d.optionalIndex(TagClass); err != nil {
			return nil, err
		}
		if c.InnerNameIndex, err = d.optionalIndex(TagUtf8); err != nil {
			return nil, err
		}
		if c.AccessFlags, err = d.c.ReadU16(); err != nil {
			return nil, err
		}
	}
	return &InnerClassesAttribute{Classes: classes}, nil
}

func (d *decoder) lineNumberTable() (*LineNumberTableAttribute, error) {
	n, err := d.c.ReadU16()
	if err != nil {
		return nil, err
	}
	entries := make([]LineNumber, n)
	for i := range entries {
		if entries[i].StartPC, err = d.c.ReadU16(); err != nil {
			return nil, err
		}
		if entries[i].LineNumber, err = d.c.ReadU16(); err != nil {
			return nil, err
		}
	}
	return &LineNumberTableAttribute{Entries: entries}, nil
}

// localVariableEntry reads the five u16 fields shared by
// LocalVariableTable and LocalVariableTypeTable entries.
func (d *decoder) localVariableEntry() (startPC, length, name, descriptor, index uint16, err error) {
	if startPC, err = d.c.ReadU16(); err != nil {
		return
	}
	if length, err = d.c.ReadU16(); err != nil {
		return
	}
	if name, err = d.index(TagUtf8); err != nil {
		return
	}
	if descriptor, err = d.index(TagUtf8); err != nil {
		return
	}
	index, err = d.c.ReadU16()
	return
}

func (d *decoder) localVariableTable() (*LocalVariableTableAttribute, error) {
	n, err := d.c.ReadU16()
	if err != nil {
		return nil, err
	}
	entries := make([]LocalVariable, n)
	for i := range entries {
		e := &entries[i]
		e.StartPC, e.Length, e.NameIndex, e.DescriptorIndex, e.Index, err = d.localVariableEntry()
		if err != nil {
			return nil, err
		}
	}
	return &LocalVariableTableAttribute{Entries: entries}, nil
}

func (d *decoder) localVariableTypeTable() (*LocalVariableTypeTableAttribute, error) {
	n, err := d.c.ReadU16()
	if err != nil {
		return nil, err
	}
	entries := make([]LocalVariableType, n)
	for i := range entries {
		e := &entries[i]
		e.StartPC, e.Length, e.NameIndex, e.SignatureIndex, e.Index, err = d.localVariableEntry()
		if err != nil {
			return nil, err
		}
	}
	return &LocalVariableTypeTableAttribute{Entries: entries}, nil
}

func (d *decoder) bootstrapMethods() (*BootstrapMethodsAttribute, error) {
	n, err := d.c.ReadU16()
	if err != nil {
		return nil, err
	}
	methods := make([]BootstrapMethod, n)
	for i := range methods {
		ref, err := d.index(TagMethodHandle)
		if err != nil {
			return nil, within(fmt.Sprintf("bootstrap_methods[%d]", i), err)
		}
		// Arguments must be loadable constants.
		args, err := d.indexes(TagInteger, TagFloat, TagLong, TagDouble, TagString,
			TagClass, TagMethodHandle, TagMethodType, TagDynamic)
		if err != nil {
			return nil, within(fmt.Sprintf("bootstrap_methods[%d]", i), err)
		}
		methods[i] = BootstrapMethod{MethodRef: ref, BootstrapArguments: args}
	}
	return &BootstrapMethodsAttribute{Methods: methods}, nil
}
