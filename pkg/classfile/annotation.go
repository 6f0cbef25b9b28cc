package classfile

import "fmt"

// Annotation is a single annotation: a type descriptor and its
// element-value pairs in declaration order.
type Annotation struct {
	TypeIndex uint16
	Pairs     []ElementValuePair
}

type ElementValuePair struct {
	NameIndex uint16
	Value     ElementValue
}

// ElementValue is one of ConstValue, EnumValue, ClassValue,
// AnnotationValue or ArrayValue. Tag returns the format's tag byte.
type ElementValue interface {
	Tag() byte
}

// ConstValue is a primitive or String constant. Kind is the tag byte, one
// of B C D F I J S Z s.
type ConstValue struct {
	Kind       byte
	ValueIndex uint16
}

func (v *ConstValue) Tag() byte { return v.Kind }

type EnumValue struct {
	TypeNameIndex  uint16
	ConstNameIndex uint16
}

func (*EnumValue) Tag() byte { return 'e' }

// ClassValue is a class literal; ClassInfoIndex names a Utf8 return
// descriptor such as "Ljava/lang/String;" or "V".
type ClassValue struct {
	ClassInfoIndex uint16
}

func (*ClassValue) Tag() byte { return 'c' }

type AnnotationValue struct {
	Annotation Annotation
}

func (*AnnotationValue) Tag() byte { return '@' }

type ArrayValue struct {
	Values []ElementValue
}

func (*ArrayValue) Tag() byte { return '[' }

// constTags maps primitive and String element tags to the pool entry kind
// their index must name.
var constTags = map[byte]Tag{
	'B': TagInteger,
	'C': TagInteger,
	'I': TagInteger,
	'S': TagInteger,
	'Z': TagInteger,
	'D': TagDouble,
	'F': TagFloat,
	'J': TagLong,
	's': TagUtf8,
}

func (d *decoder) annotations() ([]Annotation, error) {
	n, err := d.c.ReadU16()
	if err != nil {
		return nil, err
	}
	anns := make([]Annotation, n)
	for i := range anns {
		if anns[i], err = d.annotation(); err != nil {
			return nil, within(fmt.Sprintf("annotations[%d]", i), err)
		}
	}
	return anns, nil
}

func (d *decoder) annotation() (Annotation, error) {
	typeIndex, err := d.index(TagUtf8)
	if err != nil {
		return Annotation{}, err
	}
	n, err := d.c.ReadU16()
	if err != nil {
		return Annotation{}, err
	}
	pairs := make([]ElementValuePair, n)
	for i := range pairs {
		nameIndex, err := d.index(TagUtf8)
		if err != nil {
			return Annotation{}, err
		}
		v, err := d.elementValue()
		if err != nil {
			return Annotation{}, within(fmt.Sprintf("pairs[%d]", i), err)
		}
		pairs[i] = ElementValuePair{NameIndex: nameIndex, Value: v}
	}
	return Annotation{TypeIndex: typeIndex, Pairs: pairs}, nil
}

// elementValue decodes one tagged value. Arrays and nested annotations
// recurse; every form is self-delimiting.
func (d *decoder) elementValue() (ElementValue, error) {
	tagOff := d.c.Offset()
	tag, err := d.c.ReadU8()
	if err != nil {
		return nil, err
	}

	if kind, ok := constTags[tag]; ok {
		index, err := d.index(kind)
		if err != nil {
			return nil, err
		}
		return &ConstValue{Kind: tag, ValueIndex: index}, nil
	}

	switch tag {
	case 'e':
		typeName, err := d.index(TagUtf8)
		if err != nil {
			return nil, err
		}
		constName, err := d.index(TagUtf8)
		if err != nil {
			return nil, err
		}
		return &EnumValue{TypeNameIndex: typeName, ConstNameIndex: constName}, nil
	case 'c':
		index, err := d.index(TagUtf8)
		if err != nil {
			return nil, err
		}
		return &ClassValue{ClassInfoIndex: index}, nil
	case '@':
		if err := d.enter(); err != nil {
			return nil, err
		}
		a, err := d.annotation()
		d.leave()
		if err != nil {
			return nil, within("@", err)
		}
		return &AnnotationValue{Annotation: a}, nil
	case '[':
		n, err := d.c.ReadU16()
		if err != nil {
			return nil, err
		}
		if err := d.enter(); err != nil {
			return nil, err
		}
		defer d.leave()
		values := make([]ElementValue, n)
		for i := range values {
			if values[i], err = d.elementValue(); err != nil {
				return nil, within(fmt.Sprintf("[%d]", i), err)
			}
		}
		return &ArrayValue{Values: values}, nil
	default:
		return nil, &DecodeError{
			Kind:   KindInvalidAnnotationTag,
			Offset: tagOff,
			Value:  tag,
			Detail: fmt.Sprintf("invalid element value tag %q (0x%02X)", rune(tag), tag),
		}
	}
}
