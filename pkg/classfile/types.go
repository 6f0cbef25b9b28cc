package classfile

import "math"

// Access flags
const (
	AccPublic       = 0x0001
	AccPrivate      = 0x0002
	AccProtected    = 0x0004
	AccStatic       = 0x0008
	AccFinal        = 0x0010
	AccSuper        = 0x0020
	AccSynchronized = 0x0020
	AccVolatile     = 0x0040
	AccBridge       = 0x0040
	AccTransient    = 0x0080
	AccVarargs      = 0x0080
	AccNative       = 0x0100
	AccInterface    = 0x0200
	AccAbstract     = 0x0400
	AccStrict       = 0x0800
	AccSynthetic    = 0x1000
	AccAnnotation   = 0x2000
	AccEnum         = 0x4000
	AccModule       = 0x8000
	AccMandated     = 0x8000
)

// Header is the fixed prefix of a classfile: magic, version and the
// constant pool every later section refers to.
type Header struct {
	Magic        uint32
	MinorVersion uint16
	MajorVersion uint16
	ConstantPool *ConstantPool
}

// ClassFile represents a parsed .class file.
type ClassFile struct {
	Header
	AccessFlags uint16
	ThisClass   uint16
	SuperClass  uint16
	Interfaces  []uint16
	Fields      []FieldInfo
	Methods     []MethodInfo
	Attributes  []Attribute
}

// ClassName returns the fully qualified name of this class.
func (cf *ClassFile) ClassName() (string, error) {
	return cf.ConstantPool.ClassName(cf.ThisClass)
}

// SuperClassName returns the fully qualified name of the super class.
// Returns "" if this is java/lang/Object (SuperClass == 0).
func (cf *ClassFile) SuperClassName() (string, error) {
	if cf.SuperClass == 0 {
		return "", nil
	}
	return cf.ConstantPool.ClassName(cf.SuperClass)
}

// InterfaceNames resolves the direct superinterfaces in declaration order.
func (cf *ClassFile) InterfaceNames() ([]string, error) {
	names := make([]string, len(cf.Interfaces))
	for i, index := range cf.Interfaces {
		name, err := cf.ConstantPool.ClassName(index)
		if err != nil {
			return nil, err
		}
		names[i] = name
	}
	return names, nil
}

// FindMethod finds a method by name and descriptor.
func (cf *ClassFile) FindMethod(name, descriptor string) *MethodInfo {
	for i := range cf.Methods {
		if cf.Methods[i].Name == name && cf.Methods[i].Descriptor == descriptor {
			return &cf.Methods[i]
		}
	}
	return nil
}

// FindMethodByName finds a method by name only (first match).
func (cf *ClassFile) FindMethodByName(name string) *MethodInfo {
	for i := range cf.Methods {
		if cf.Methods[i].Name == name {
			return &cf.Methods[i]
		}
	}
	return nil
}

// FindField finds a field by name.
func (cf *ClassFile) FindField(name string) *FieldInfo {
	for i := range cf.Fields {
		if cf.Fields[i].Name == name {
			return &cf.Fields[i]
		}
	}
	return nil
}

// SourceFile returns the name recorded by the SourceFile attribute, or ""
// when the class has none.
func (cf *ClassFile) SourceFile() string {
	a, ok := findAttribute[*SourceFileAttribute](cf.Attributes)
	if !ok {
		return ""
	}
	name, err := cf.ConstantPool.Utf8(a.SourceFileIndex)
	if err != nil {
		return ""
	}
	return name
}

// BootstrapMethods returns the class's bootstrap method table.
func (cf *ClassFile) BootstrapMethods() []BootstrapMethod {
	if a, ok := findAttribute[*BootstrapMethodsAttribute](cf.Attributes); ok {
		return a.Methods
	}
	return nil
}

// Member holds what fields and methods have in common.
type Member struct {
	AccessFlags     uint16
	NameIndex       uint16
	DescriptorIndex uint16
	Name            string
	Descriptor      string
	Attributes      []Attribute
}

// Attribute returns the first attribute with the given name, or nil.
func (m *Member) Attribute(name string) Attribute {
	for _, a := range m.Attributes {
		if a.Name() == name {
			return a
		}
	}
	return nil
}

// FieldInfo represents a field in a class file.
type FieldInfo struct {
	Member
}

// ConstantValue returns the field's ConstantValue attribute, or nil.
func (f *FieldInfo) ConstantValue() *ConstantValueAttribute {
	a, _ := findAttribute[*ConstantValueAttribute](f.Attributes)
	return a
}

// MethodInfo represents a method in a class file.
type MethodInfo struct {
	Member
}

// Code returns the method's Code attribute, or nil for abstract and
// native methods.
func (m *MethodInfo) Code() *CodeAttribute {
	a, _ := findAttribute[*CodeAttribute](m.Attributes)
	return a
}

func findAttribute[T Attribute](attrs []Attribute) (T, bool) {
	for _, a := range attrs {
		if t, ok := a.(T); ok {
			return t, true
		}
	}
	var zero T
	return zero, false
}

// ConstantPoolEntry is an interface implemented by all constant pool types.
type ConstantPoolEntry interface {
	Tag() Tag
}

type ConstantUtf8 struct {
	Value string
}

func (c *ConstantUtf8) Tag() Tag { return TagUtf8 }

type ConstantInteger struct {
	Bits uint32
}

func (c *ConstantInteger) Tag() Tag     { return TagInteger }
func (c *ConstantInteger) Int32() int32 { return int32(c.Bits) }

type ConstantFloat struct {
	Bits uint32
}

func (c *ConstantFloat) Tag() Tag         { return TagFloat }
func (c *ConstantFloat) Float32() float32 { return math.Float32frombits(c.Bits) }

// ConstantLong occupies two pool slots.
type ConstantLong struct {
	High uint32
	Low  uint32
}

func (c *ConstantLong) Tag() Tag     { return TagLong }
func (c *ConstantLong) Int64() int64 { return int64(uint64(c.High)<<32 | uint64(c.Low)) }

// ConstantDouble occupies two pool slots.
type ConstantDouble struct {
	High uint32
	Low  uint32
}

func (c *ConstantDouble) Tag() Tag { return TagDouble }
func (c *ConstantDouble) Float64() float64 {
	return math.Float64frombits(uint64(c.High)<<32 | uint64(c.Low))
}

type ConstantClass struct {
	NameIndex uint16
}

func (c *ConstantClass) Tag() Tag { return TagClass }

type ConstantString struct {
	StringIndex uint16
}

func (c *ConstantString) Tag() Tag { return TagString }

type ConstantFieldref struct {
	ClassIndex       uint16
	NameAndTypeIndex uint16
}

func (c *ConstantFieldref) Tag() Tag { return TagFieldref }

type ConstantMethodref struct {
	ClassIndex       uint16
	NameAndTypeIndex uint16
}

func (c *ConstantMethodref) Tag() Tag { return TagMethodref }

type ConstantInterfaceMethodref struct {
	ClassIndex       uint16
	NameAndTypeIndex uint16
}

func (c *ConstantInterfaceMethodref) Tag() Tag { return TagInterfaceMethodref }

type ConstantNameAndType struct {
	NameIndex       uint16
	DescriptorIndex uint16
}

func (c *ConstantNameAndType) Tag() Tag { return TagNameAndType }

type ConstantMethodHandle struct {
	ReferenceKind  uint8
	ReferenceIndex uint16
}

func (c *ConstantMethodHandle) Tag() Tag { return TagMethodHandle }

type ConstantMethodType struct {
	DescriptorIndex uint16
}

func (c *ConstantMethodType) Tag() Tag { return TagMethodType }

// ConstantDynamic is a dynamically-computed constant. Its bootstrap index
// refers to the BootstrapMethods attribute, not the pool.
type ConstantDynamic struct {
	BootstrapMethodAttrIndex uint16
	NameAndTypeIndex         uint16
}

func (c *ConstantDynamic) Tag() Tag { return TagDynamic }

type ConstantInvokeDynamic struct {
	BootstrapMethodAttrIndex uint16
	NameAndTypeIndex         uint16
}

func (c *ConstantInvokeDynamic) Tag() Tag { return TagInvokeDynamic }

type ConstantModule struct {
	NameIndex uint16
}

func (c *ConstantModule) Tag() Tag { return TagModule }

type ConstantPackage struct {
	NameIndex uint16
}

func (c *ConstantPackage) Tag() Tag { return TagPackage }
