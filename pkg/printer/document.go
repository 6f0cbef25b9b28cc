package printer

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/daimatz/classdump/pkg/classfile"
)

// Document is a resolved, serializable view of a ClassFile. Pool indices
// are replaced by what they name; the indices themselves are kept where a
// reader may want to follow them.
type Document struct {
	Magic        string      `json:"magic" yaml:"magic"`
	MinorVersion uint16      `json:"minor_version" yaml:"minor_version"`
	MajorVersion uint16      `json:"major_version" yaml:"major_version"`
	AccessFlags  []string    `json:"access_flags" yaml:"access_flags"`
	ThisClass    string      `json:"this_class" yaml:"this_class"`
	SuperClass   string      `json:"super_class,omitempty" yaml:"super_class,omitempty"`
	Interfaces   []string    `json:"interfaces" yaml:"interfaces"`
	ConstantPool []Constant  `json:"constant_pool" yaml:"constant_pool"`
	Fields       []MemberDoc `json:"fields" yaml:"fields"`
	Methods      []MemberDoc `json:"methods" yaml:"methods"`
	Attributes   []Attribute `json:"attributes" yaml:"attributes"`
}

// Constant is one populated constant pool slot.
type Constant struct {
	Index uint16 `json:"index" yaml:"index"`
	Tag   string `json:"tag" yaml:"tag"`
	// Refs lists the slot's own pool references, javap style ("#4.#13").
	Refs  string `json:"refs,omitempty" yaml:"refs,omitempty"`
	Value string `json:"value" yaml:"value"`
}

type MemberDoc struct {
	AccessFlags []string    `json:"access_flags" yaml:"access_flags"`
	Name        string      `json:"name" yaml:"name"`
	Descriptor  string      `json:"descriptor" yaml:"descriptor"`
	Attributes  []Attribute `json:"attributes" yaml:"attributes"`

	flags uint16
}

// Attribute is a decoded attribute rendered to text. Code attributes carry
// their body in Code; opaque ones their raw bytes in Data.
type Attribute struct {
	Name   string   `json:"name" yaml:"name"`
	Values []string `json:"values,omitempty" yaml:"values,omitempty"`
	Code   *Code    `json:"code,omitempty" yaml:"code,omitempty"`
	Data   string   `json:"data,omitempty" yaml:"data,omitempty"`
}

type Code struct {
	MaxStack       uint16      `json:"max_stack" yaml:"max_stack"`
	MaxLocals      uint16      `json:"max_locals" yaml:"max_locals"`
	CodeLength     int         `json:"code_length" yaml:"code_length"`
	Bytecode       string      `json:"bytecode" yaml:"bytecode"`
	ExceptionTable []Handler   `json:"exception_table,omitempty" yaml:"exception_table,omitempty"`
	Attributes     []Attribute `json:"attributes,omitempty" yaml:"attributes,omitempty"`
}

type Handler struct {
	StartPC   uint16 `json:"start_pc" yaml:"start_pc"`
	EndPC     uint16 `json:"end_pc" yaml:"end_pc"`
	HandlerPC uint16 `json:"handler_pc" yaml:"handler_pc"`
	CatchType string `json:"catch_type" yaml:"catch_type"`
}

// NewDocument resolves cf into a Document. Indices that do not resolve are
// shown as "#n" rather than failing, so a partially valid class still
// prints.
func NewDocument(cf *classfile.ClassFile) *Document {
	r := resolver{pool: cf.ConstantPool}
	doc := &Document{
		Magic:        fmt.Sprintf("0x%08X", cf.Magic),
		MinorVersion: cf.MinorVersion,
		MajorVersion: cf.MajorVersion,
		AccessFlags:  FlagNames(ClassFlags, cf.AccessFlags),
		ThisClass:    r.class(cf.ThisClass),
		Interfaces:   make([]string, len(cf.Interfaces)),
		ConstantPool: []Constant{},
		Fields:       make([]MemberDoc, len(cf.Fields)),
		Methods:      make([]MemberDoc, len(cf.Methods)),
		Attributes:   r.attributes(cf.Attributes),
	}
	if cf.SuperClass != 0 {
		doc.SuperClass = r.class(cf.SuperClass)
	}
	for i, index := range cf.Interfaces {
		doc.Interfaces[i] = r.class(index)
	}
	for i, e := range cf.ConstantPool.All() {
		doc.ConstantPool = append(doc.ConstantPool, r.constant(i, e))
	}
	for i := range cf.Fields {
		doc.Fields[i] = r.member(FieldFlags, &cf.Fields[i].Member)
	}
	for i := range cf.Methods {
		doc.Methods[i] = r.member(MethodFlags, &cf.Methods[i].Member)
	}
	return doc
}

type resolver struct {
	pool *classfile.ConstantPool
}

func ref(index uint16) string {
	return "#" + strconv.Itoa(int(index))
}

func (r resolver) utf8(index uint16) string {
	s, err := r.pool.Utf8(index)
	if err != nil {
		return ref(index)
	}
	return s
}

func (r resolver) class(index uint16) string {
	s, err := r.pool.ClassName(index)
	if err != nil {
		return ref(index)
	}
	return s
}

func (r resolver) nameAndType(index uint16) string {
	name, desc, err := r.pool.NameAndType(index)
	if err != nil {
		return ref(index)
	}
	return name + ":" + desc
}

// memberRef renders a Fieldref, Methodref or InterfaceMethodref as
// owner.name:descriptor.
func (r resolver) memberRef(index uint16) string {
	e, err := r.pool.Entry(index)
	if err != nil {
		return ref(index)
	}
	var m *classfile.MemberRef
	switch e.Tag() {
	case classfile.TagFieldref:
		m, err = r.pool.ResolveFieldref(index)
	case classfile.TagMethodref:
		m, err = r.pool.ResolveMethodref(index)
	case classfile.TagInterfaceMethodref:
		m, err = r.pool.ResolveInterfaceMethodref(index)
	default:
		return ref(index)
	}
	if err != nil {
		return ref(index)
	}
	return m.ClassName + "." + m.Name + ":" + m.Descriptor
}

var refKindNames = [...]string{
	classfile.RefGetField:         "REF_getField",
	classfile.RefGetStatic:        "REF_getStatic",
	classfile.RefPutField:         "REF_putField",
	classfile.RefPutStatic:        "REF_putStatic",
	classfile.RefInvokeVirtual:    "REF_invokeVirtual",
	classfile.RefInvokeStatic:     "REF_invokeStatic",
	classfile.RefInvokeSpecial:    "REF_invokeSpecial",
	classfile.RefNewInvokeSpecial: "REF_newInvokeSpecial",
	classfile.RefInvokeInterface:  "REF_invokeInterface",
}

func refKindName(kind uint8) string {
	if int(kind) < len(refKindNames) && refKindNames[kind] != "" {
		return refKindNames[kind]
	}
	return fmt.Sprintf("REF_%d", kind)
}

func (r resolver) methodHandle(index uint16) string {
	e, err := r.pool.Entry(index)
	if err != nil {
		return ref(index)
	}
	h, ok := e.(*classfile.ConstantMethodHandle)
	if !ok {
		return ref(index)
	}
	return refKindName(h.ReferenceKind) + " " + r.memberRef(h.ReferenceIndex)
}

// loadable renders a constant the way ldc would push it.
func (r resolver) loadable(index uint16) string {
	e, err := r.pool.Entry(index)
	if err != nil {
		return ref(index)
	}
	switch c := e.(type) {
	case *classfile.ConstantString:
		return strconv.Quote(r.utf8(c.StringIndex))
	case *classfile.ConstantClass:
		return r.utf8(c.NameIndex) + ".class"
	case *classfile.ConstantMethodHandle:
		return r.methodHandle(index)
	case *classfile.ConstantMethodType:
		return r.utf8(c.DescriptorIndex)
	case *classfile.ConstantDynamic:
		return "dynamic " + r.nameAndType(c.NameAndTypeIndex)
	}
	return r.constant(index, e).Value
}

func (r resolver) constant(index uint16, e classfile.ConstantPoolEntry) Constant {
	c := Constant{Index: index, Tag: e.Tag().String()}
	switch v := e.(type) {
	case *classfile.ConstantUtf8:
		c.Value = v.Value
	case *classfile.ConstantInteger:
		c.Value = strconv.FormatInt(int64(v.Int32()), 10)
	case *classfile.ConstantFloat:
		c.Value = strconv.FormatFloat(float64(v.Float32()), 'g', -1, 32) + "f"
	case *classfile.ConstantLong:
		c.Value = strconv.FormatInt(v.Int64(), 10) + "l"
	case *classfile.ConstantDouble:
		c.Value = strconv.FormatFloat(v.Float64(), 'g', -1, 64) + "d"
	case *classfile.ConstantClass:
		c.Refs, c.Value = ref(v.NameIndex), r.utf8(v.NameIndex)
	case *classfile.ConstantString:
		c.Refs, c.Value = ref(v.StringIndex), r.utf8(v.StringIndex)
	case *classfile.ConstantFieldref:
		c.Refs, c.Value = ref(v.ClassIndex)+"."+ref(v.NameAndTypeIndex), r.memberRef(index)
	case *classfile.ConstantMethodref:
		c.Refs, c.Value = ref(v.ClassIndex)+"."+ref(v.NameAndTypeIndex), r.memberRef(index)
	case *classfile.ConstantInterfaceMethodref:
		c.Refs, c.Value = ref(v.ClassIndex)+"."+ref(v.NameAndTypeIndex), r.memberRef(index)
	case *classfile.ConstantNameAndType:
		c.Refs, c.Value = ref(v.NameIndex)+":"+ref(v.DescriptorIndex), r.nameAndType(index)
	case *classfile.ConstantMethodHandle:
		c.Refs, c.Value = fmt.Sprintf("%d:%s", v.ReferenceKind, ref(v.ReferenceIndex)), r.methodHandle(index)
	case *classfile.ConstantMethodType:
		c.Refs, c.Value = ref(v.DescriptorIndex), r.utf8(v.DescriptorIndex)
	case *classfile.ConstantDynamic:
		c.Refs = fmt.Sprintf("#%d:%s", v.BootstrapMethodAttrIndex, ref(v.NameAndTypeIndex))
		c.Value = r.nameAndType(v.NameAndTypeIndex)
	case *classfile.ConstantInvokeDynamic:
		c.Refs = fmt.Sprintf("#%d:%s", v.BootstrapMethodAttrIndex, ref(v.NameAndTypeIndex))
		c.Value = r.nameAndType(v.NameAndTypeIndex)
	case *classfile.ConstantModule:
		c.Refs, c.Value = ref(v.NameIndex), r.utf8(v.NameIndex)
	case *classfile.ConstantPackage:
		c.Refs, c.Value = ref(v.NameIndex), r.utf8(v.NameIndex)
	}
	return c
}

func (r resolver) member(kind FlagKind, m *classfile.Member) MemberDoc {
	return MemberDoc{
		AccessFlags: FlagNames(kind, m.AccessFlags),
		Name:        m.Name,
		Descriptor:  m.Descriptor,
		Attributes:  r.attributes(m.Attributes),
		flags:       m.AccessFlags,
	}
}

func (r resolver) attributes(attrs []classfile.Attribute) []Attribute {
	docs := make([]Attribute, len(attrs))
	for i, a := range attrs {
		docs[i] = r.attribute(a)
	}
	return docs
}

func (r resolver) attribute(a classfile.Attribute) Attribute {
	doc := Attribute{Name: a.Name()}
	add := func(format string, args ...any) {
		doc.Values = append(doc.Values, fmt.Sprintf(format, args...))
	}

	switch a := a.(type) {
	case *classfile.ConstantValueAttribute:
		add("%s", r.loadable(a.ValueIndex))
	case *classfile.CodeAttribute:
		doc.Code = r.code(a)
	case *classfile.ExceptionsAttribute:
		for _, index := range a.ExceptionIndexTable {
			add("%s", r.class(index))
		}
	case *classfile.InnerClassesAttribute:
		for _, c := range a.Classes {
			outer, name := "-", "-"
			if c.OuterClassInfoIndex != 0 {
				outer = r.class(c.OuterClassInfoIndex)
			}
			if c.InnerNameIndex != 0 {
				name = r.utf8(c.InnerNameIndex)
			}
			add("%s outer=%s name=%s %s", r.class(c.InnerClassInfoIndex), outer, name,
				formatFlags(InnerClassFlags, c.AccessFlags))
		}
	case *classfile.EnclosingMethodAttribute:
		if a.MethodIndex != 0 {
			add("%s.%s", r.class(a.ClassIndex), r.nameAndType(a.MethodIndex))
		} else {
			add("%s", r.class(a.ClassIndex))
		}
	case *classfile.SignatureAttribute:
		add("%s", r.utf8(a.SignatureIndex))
	case *classfile.SourceFileAttribute:
		add("%s", r.utf8(a.SourceFileIndex))
	case *classfile.SourceDebugExtensionAttribute:
		add("%q", a.DebugExtension)
	case *classfile.LineNumberTableAttribute:
		for _, l := range a.Entries {
			add("line %d: %d", l.LineNumber, l.StartPC)
		}
	case *classfile.LocalVariableTableAttribute:
		for _, v := range a.Entries {
			add("start=%d length=%d slot=%d %s %s", v.StartPC, v.Length, v.Index,
				r.utf8(v.NameIndex), r.utf8(v.DescriptorIndex))
		}
	case *classfile.LocalVariableTypeTableAttribute:
		for _, v := range a.Entries {
			add("start=%d length=%d slot=%d %s %s", v.StartPC, v.Length, v.Index,
				r.utf8(v.NameIndex), r.utf8(v.SignatureIndex))
		}
	case *classfile.AnnotationsAttribute:
		for _, ann := range a.Annotations {
			add("%s", r.annotation(ann))
		}
	case *classfile.ParameterAnnotationsAttribute:
		for i, anns := range a.Parameters {
			rendered := make([]string, len(anns))
			for j, ann := range anns {
				rendered[j] = r.annotation(ann)
			}
			add("parameter %d: %s", i, strings.Join(rendered, " "))
		}
	case *classfile.AnnotationDefaultAttribute:
		add("%s", r.elementValue(a.Value))
	case *classfile.BootstrapMethodsAttribute:
		for i, m := range a.Methods {
			args := make([]string, len(m.BootstrapArguments))
			for j, index := range m.BootstrapArguments {
				args[j] = r.loadable(index)
			}
			add("%d: %s (%s)", i, r.methodHandle(m.MethodRef), strings.Join(args, ", "))
		}
	case *classfile.MethodParametersAttribute:
		for _, p := range a.Parameters {
			name := "<no name>"
			if p.NameIndex != 0 {
				name = r.utf8(p.NameIndex)
			}
			add("%s %s", name, formatFlags(ParameterFlags, p.AccessFlags))
		}
	case *classfile.NestHostAttribute:
		add("%s", r.class(a.HostClassIndex))
	case *classfile.NestMembersAttribute:
		for _, index := range a.Classes {
			add("%s", r.class(index))
		}
	case *classfile.PermittedSubclassesAttribute:
		for _, index := range a.Classes {
			add("%s", r.class(index))
		}
	case *classfile.OpaqueAttribute:
		doc.Data = hex.EncodeToString(a.Data)
	}
	return doc
}

func (r resolver) code(c *classfile.CodeAttribute) *Code {
	doc := &Code{
		MaxStack:   c.MaxStack,
		MaxLocals:  c.MaxLocals,
		CodeLength: len(c.Code),
		Bytecode:   hex.EncodeToString(c.Code),
		Attributes: r.attributes(c.Attributes),
	}
	for _, h := range c.ExceptionTable {
		catch := "any"
		if h.CatchType != 0 {
			catch = r.class(h.CatchType)
		}
		doc.ExceptionTable = append(doc.ExceptionTable, Handler{
			StartPC:   h.StartPC,
			EndPC:     h.EndPC,
			HandlerPC: h.HandlerPC,
			CatchType: catch,
		})
	}
	return doc
}

// annotation renders an annotation in source form, e.g.
// @Ljava/lang/Deprecated;(since="9").
func (r resolver) annotation(a classfile.Annotation) string {
	var b strings.Builder
	b.WriteString("@")
	b.WriteString(r.utf8(a.TypeIndex))
	if len(a.Pairs) == 0 {
		return b.String()
	}
	b.WriteString("(")
	for i, p := range a.Pairs {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(r.utf8(p.NameIndex))
		b.WriteString("=")
		b.WriteString(r.elementValue(p.Value))
	}
	b.WriteString(")")
	return b.String()
}

func (r resolver) elementValue(v classfile.ElementValue) string {
	switch v := v.(type) {
	case *classfile.ConstValue:
		return r.constValue(v)
	case *classfile.EnumValue:
		return r.utf8(v.TypeNameIndex) + "." + r.utf8(v.ConstNameIndex)
	case *classfile.ClassValue:
		return r.utf8(v.ClassInfoIndex) + ".class"
	case *classfile.AnnotationValue:
		return r.annotation(v.Annotation)
	case *classfile.ArrayValue:
		items := make([]string, len(v.Values))
		for i, item := range v.Values {
			items[i] = r.elementValue(item)
		}
		return "{" + strings.Join(items, ", ") + "}"
	}
	return "?"
}

func (r resolver) constValue(v *classfile.ConstValue) string {
	if v.Kind == 's' {
		return strconv.Quote(r.utf8(v.ValueIndex))
	}
	e, err := r.pool.Entry(v.ValueIndex)
	if err != nil {
		return ref(v.ValueIndex)
	}
	i, ok := e.(*classfile.ConstantInteger)
	switch {
	case ok && v.Kind == 'Z':
		return strconv.FormatBool(i.Int32() != 0)
	case ok && v.Kind == 'C':
		return strconv.QuoteRune(rune(i.Int32()))
	}
	return r.constant(v.ValueIndex, e).Value
}
