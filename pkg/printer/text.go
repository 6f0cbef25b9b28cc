package printer

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/daimatz/classdump/pkg/classfile"
)

// Options controls text rendering.
type Options struct {
	// Color enables ANSI styling of headers and errors.
	Color bool
}

type styles struct {
	title   lipgloss.Style
	section lipgloss.Style
	name    lipgloss.Style
	comment lipgloss.Style
	err     lipgloss.Style
}

func newStyles(w io.Writer, opts Options) styles {
	r := lipgloss.NewRenderer(w)
	if opts.Color {
		r.SetColorProfile(termenv.ANSI256)
	} else {
		r.SetColorProfile(termenv.Ascii)
	}
	return styles{
		title: r.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")),
		section: r.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#87CEEB")),
		name: r.NewStyle().
			Foreground(lipgloss.Color("#98FB98")),
		comment: r.NewStyle().
			Foreground(lipgloss.Color("#666666")),
		err: r.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B")),
	}
}

// textWriter keeps the first write error so rendering code can ignore it.
type textWriter struct {
	w   io.Writer
	err error
}

func (t *textWriter) printf(format string, args ...any) {
	if t.err != nil {
		return
	}
	_, t.err = fmt.Fprintf(t.w, format, args...)
}

// Text writes a javap-like listing of cf.
func Text(w io.Writer, cf *classfile.ClassFile, opts Options) error {
	doc := NewDocument(cf)
	s := newStyles(w, opts)
	t := &textWriter{w: w}

	title := "class " + doc.ThisClass
	if doc.SuperClass != "" {
		title += " extends " + doc.SuperClass
	}
	if len(doc.Interfaces) > 0 {
		title += " implements " + strings.Join(doc.Interfaces, ", ")
	}
	t.printf("%s\n", s.title.Render(title))
	t.printf("  minor version: %d\n", doc.MinorVersion)
	t.printf("  major version: %d\n", doc.MajorVersion)
	t.printf("  flags: %s\n", formatFlags(ClassFlags, cf.AccessFlags))
	t.printf("  this_class: #%d %s\n", cf.ThisClass, s.comment.Render("// "+doc.ThisClass))
	if cf.SuperClass != 0 {
		t.printf("  super_class: #%d %s\n", cf.SuperClass, s.comment.Render("// "+doc.SuperClass))
	} else {
		t.printf("  super_class: #0\n")
	}
	t.printf("  interfaces: %d, fields: %d, methods: %d, attributes: %d\n",
		len(doc.Interfaces), len(doc.Fields), len(doc.Methods), len(doc.Attributes))

	t.printf("%s\n", s.section.Render("Constant pool:"))
	width := len(fmt.Sprint(cf.ConstantPool.Count())) + 1
	for _, c := range doc.ConstantPool {
		index := fmt.Sprintf("%*s", width, fmt.Sprintf("#%d", c.Index))
		if c.Refs == "" {
			t.printf("  %s = %-18s %s\n", index, c.Tag, c.Value)
			continue
		}
		t.printf("  %s = %-18s %-14s %s\n", index, c.Tag, c.Refs, s.comment.Render("// "+c.Value))
	}

	t.printf("{\n")
	for i, f := range doc.Fields {
		if i > 0 {
			t.printf("\n")
		}
		writeMember(t, s, FieldFlags, f)
	}
	for i, m := range doc.Methods {
		if i > 0 || len(doc.Fields) > 0 {
			t.printf("\n")
		}
		writeMember(t, s, MethodFlags, m)
	}
	t.printf("}\n")
	writeAttributes(t, s, doc.Attributes, "")
	return t.err
}

func writeMember(t *textWriter, s styles, kind FlagKind, m MemberDoc) {
	t.printf("  %s\n", s.name.Render(m.Name+" "+m.Descriptor))
	t.printf("    flags: %s\n", formatFlags(kind, m.flags))
	writeAttributes(t, s, m.Attributes, "    ")
}

func writeAttributes(t *textWriter, s styles, attrs []Attribute, indent string) {
	for _, a := range attrs {
		switch {
		case a.Code != nil:
			writeCode(t, s, a.Code, indent)
		case a.Data != "":
			t.printf("%s%s: %d bytes %s\n", indent, s.section.Render(a.Name), len(a.Data)/2, s.comment.Render(a.Data))
		case len(a.Values) == 1:
			t.printf("%s%s: %s\n", indent, s.section.Render(a.Name), a.Values[0])
		default:
			t.printf("%s%s:\n", indent, s.section.Render(a.Name))
			for _, v := range a.Values {
				t.printf("%s  %s\n", indent, v)
			}
		}
	}
}

func writeCode(t *textWriter, s styles, c *Code, indent string) {
	t.printf("%s%s:\n", indent, s.section.Render(classfile.AttrCode))
	t.printf("%s  stack=%d, locals=%d, code_length=%d\n", indent, c.MaxStack, c.MaxLocals, c.CodeLength)
	t.printf("%s  %s\n", indent, s.comment.Render(c.Bytecode))
	if len(c.ExceptionTable) > 0 {
		t.printf("%s  Exception table:\n", indent)
		t.printf("%s     from    to  target type\n", indent)
		for _, h := range c.ExceptionTable {
			t.printf("%s    %5d %5d %5d   %s\n", indent, h.StartPC, h.EndPC, h.HandlerPC, h.CatchType)
		}
	}
	writeAttributes(t, s, c.Attributes, indent+"  ")
}

// Error writes err for a terminal user. Decode errors are broken down into
// kind, section and offset.
func Error(w io.Writer, name string, err error, opts Options) error {
	s := newStyles(w, opts)
	t := &textWriter{w: w}

	var de *classfile.DecodeError
	if !errors.As(err, &de) {
		t.printf("%s %s\n", s.err.Render(name+":"), err)
		return t.err
	}
	t.printf("%s %s\n", s.err.Render(name+":"), string(de.Kind))
	if section := de.Section(); section != "" {
		t.printf("  section: %s\n", section)
	}
	if de.Offset >= 0 {
		t.printf("  offset:  %d (0x%X)\n", de.Offset, de.Offset)
	}
	if de.Detail != "" {
		t.printf("  detail:  %s\n", de.Detail)
	}
	return t.err
}
