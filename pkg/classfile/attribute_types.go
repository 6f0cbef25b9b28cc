package classfile

// Attribute names with a structured decoding.
const (
	AttrConstantValue                        = "ConstantValue"
	AttrCode                                 = "Code"
	AttrExceptions                           = "Exceptions"
	AttrInnerClasses                         = "InnerClasses"
	AttrEnclosingMethod                      = "EnclosingMethod"
	AttrSynthetic                            = "Synthetic"
	AttrSignature                            = "Signature"
	AttrSourceFile                           = "SourceFile"
	AttrSourceDebugExtension                 = "SourceDebugExtension"
	AttrLineNumberTable                      = "LineNumberTable"
	AttrLocalVariableTable                   = "LocalVariableTable"
	AttrLocalVariableTypeTable               = "LocalVariableTypeTable"
	AttrDeprecated                           = "Deprecated"
	AttrRuntimeVisibleAnnotations            = "RuntimeVisibleAnnotations"
	AttrRuntimeInvisibleAnnotations          = "RuntimeInvisibleAnnotations"
	AttrRuntimeVisibleParameterAnnotations   = "RuntimeVisibleParameterAnnotations"
	AttrRuntimeInvisibleParameterAnnotations = "RuntimeInvisibleParameterAnnotations"
	AttrAnnotationDefault                    = "AnnotationDefault"
	AttrBootstrapMethods                     = "BootstrapMethods"
	AttrMethodParameters                     = "MethodParameters"
	AttrNestHost                             = "NestHost"
	AttrNestMembers                          = "NestMembers"
	AttrPermittedSubclasses                  = "PermittedSubclasses"
)

var knownAttributes = map[string]bool{
	AttrConstantValue:                        true,
	AttrCode:                                 true,
	AttrExceptions:                           true,
	AttrInnerClasses:                         true,
	AttrEnclosingMethod:                      true,
	AttrSynthetic:                            true,
	AttrSignature:                            true,
	AttrSourceFile:                           true,
	AttrSourceDebugExtension:                 true,
	AttrLineNumberTable:                      true,
	AttrLocalVariableTable:                   true,
	AttrLocalVariableTypeTable:               true,
	AttrDeprecated:                           true,
	AttrRuntimeVisibleAnnotations:            true,
	AttrRuntimeInvisibleAnnotations:          true,
	AttrRuntimeVisibleParameterAnnotations:   true,
	AttrRuntimeInvisibleParameterAnnotations: true,
	AttrAnnotationDefault:                    true,
	AttrBootstrapMethods:                     true,
	AttrMethodParameters:                     true,
	AttrNestHost:                             true,
	AttrNestMembers:                          true,
	AttrPermittedSubclasses:                  true,
}

// IsKnownAttribute reports whether attributes called name are decoded into
// a structured value rather than kept as an OpaqueAttribute.
func IsKnownAttribute(name string) bool {
	return knownAttributes[name]
}

// Attribute is one entry of an attribute table.
type Attribute interface {
	Name() string
}

type ConstantValueAttribute struct {
	ValueIndex uint16
}

func (*ConstantValueAttribute) Name() string { return AttrConstantValue }

// ExceptionTableEntry is one handler of a Code attribute. CatchType is 0
// for a catch-all handler.
type ExceptionTableEntry struct {
	StartPC   uint16
	EndPC     uint16
	HandlerPC uint16
	CatchType uint16
}

// CodeAttribute holds a method body. Code is the raw instruction stream.
type CodeAttribute struct {
	MaxStack       uint16
	MaxLocals      uint16
	Code           []byte
	ExceptionTable []ExceptionTableEntry
	Attributes     []Attribute
}

func (*CodeAttribute) Name() string { return AttrCode }

// LineNumberTable returns the nested LineNumberTable entries, concatenated
// when the compiler split them over several attributes.
func (a *CodeAttribute) LineNumberTable() []LineNumber {
	var lines []LineNumber
	for _, attr := range a.Attributes {
		if t, ok := attr.(*LineNumberTableAttribute); ok {
			lines = append(lines, t.Entries...)
		}
	}
	return lines
}

type ExceptionsAttribute struct {
	ExceptionIndexTable []uint16
}

func (*ExceptionsAttribute) Name() string { return AttrExceptions }

// InnerClass is an InnerClasses entry. OuterClassInfoIndex and
// InnerNameIndex are 0 for local and anonymous classes.
type InnerClass struct {
	InnerClassInfoIndex uint16
	OuterClassInfoIndex uint16
	InnerNameIndex      uint16
	AccessFlags         uint16
}

type InnerClassesAttribute struct {
	Classes []InnerClass
}

func (*InnerClassesAttribute) Name() string { return AttrInnerClasses }

type EnclosingMethodAttribute struct {
	ClassIndex  uint16
	MethodIndex uint16
}

func (*EnclosingMethodAttribute) Name() string { return AttrEnclosingMethod }

type SyntheticAttribute struct{}

func (*SyntheticAttribute) Name() string { return AttrSynthetic }

type DeprecatedAttribute struct{}

func (*DeprecatedAttribute) Name() string { return AttrDeprecated }

type SignatureAttribute struct {
	SignatureIndex uint16
}

func (*SignatureAttribute) Name() string { return AttrSignature }

type SourceFileAttribute struct {
	SourceFileIndex uint16
}

func (*SourceFileAttribute) Name() string { return AttrSourceFile }

type SourceDebugExtensionAttribute struct {
	DebugExtension []byte
}

func (*SourceDebugExtensionAttribute) Name() string { return AttrSourceDebugExtension }

type LineNumber struct {
	StartPC    uint16
	LineNumber uint16
}

type LineNumberTableAttribute struct {
	Entries []LineNumber
}

func (*LineNumberTableAttribute) Name() string { return AttrLineNumberTable }

type LocalVariable struct {
	StartPC         uint16
	Length          uint16
	NameIndex       uint16
	DescriptorIndex uint16
	Index           uint16
}

type LocalVariableTableAttribute struct {
	Entries []LocalVariable
}

func (*LocalVariableTableAttribute) Name() string { return AttrLocalVariableTable }

type LocalVariableType struct {
	StartPC        uint16
	Length         uint16
	NameIndex      uint16
	SignatureIndex uint16
	Index          uint16
}

type LocalVariableTypeTableAttribute struct {
	Entries []LocalVariableType
}

func (*LocalVariableTypeTableAttribute) Name() string { return AttrLocalVariableTypeTable }

// AnnotationsAttribute is RuntimeVisibleAnnotations or, when Visible is
// false, RuntimeInvisibleAnnotations.
type AnnotationsAttribute struct {
	Visible     bool
	Annotations []Annotation
}

func (a *AnnotationsAttribute) Name() string {
	if a.Visible {
		return AttrRuntimeVisibleAnnotations
	}
	return AttrRuntimeInvisibleAnnotations
}

// ParameterAnnotationsAttribute holds one annotation list per formal
// parameter.
type ParameterAnnotationsAttribute struct {
	Visible    bool
	Parameters [][]Annotation
}

func (a *ParameterAnnotationsAttribute) Name() string {
	if a.Visible {
		return AttrRuntimeVisibleParameterAnnotations
	}
	return AttrRuntimeInvisibleParameterAnnotations
}

type AnnotationDefaultAttribute struct {
	Value ElementValue
}

func (*AnnotationDefaultAttribute) Name() string { return AttrAnnotationDefault }

// BootstrapMethod is a BootstrapMethods entry: a MethodHandle index and
// the loadable constants passed to it.
type BootstrapMethod struct {
	MethodRef          uint16
	BootstrapArguments []uint16
}

type BootstrapMethodsAttribute struct {
	Methods []BootstrapMethod
}

func (*BootstrapMethodsAttribute) Name() string { return AttrBootstrapMethods }

type MethodParameter struct {
	NameIndex   uint16
	AccessFlags uint16
}

type MethodParametersAttribute struct {
	Parameters []MethodParameter
}

func (*MethodParametersAttribute) Name() string { return AttrMethodParameters }

type NestHostAttribute struct {
	HostClassIndex uint16
}

func (*NestHostAttribute) Name() string { return AttrNestHost }

type NestMembersAttribute struct {
	Classes []uint16
}

func (*NestMembersAttribute) Name() string { return AttrNestMembers }

type PermittedSubclassesAttribute struct {
	Classes []uint16
}

func (*PermittedSubclassesAttribute) Name() string { return AttrPermittedSubclasses }

// OpaqueAttribute is any attribute without a structured decoding, kept as
// its raw body.
type OpaqueAttribute struct {
	NameIndex uint16
	AttrName  string
	Data      []byte
}

func (a *OpaqueAttribute) Name() string { return a.AttrName }
