package classfile

import (
	"errors"
	"fmt"
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func TestAnnotationNested(t *testing.T) {
	// @Outer(inner = @Inner(v = {1, 2}), mode = Mode.FAST, type = String.class, name = "x")
	cb := newClass("Annotated", "java/lang/Object")
	p := cb.pool
	outerT, innerT := p.Utf8("LOuter;"), p.Utf8("LInner;")
	one, two := p.Integer(1), p.Integer(2)
	modeT, fast := p.Utf8("LMode;"), p.Utf8("FAST")
	strDesc, x := p.Utf8("Ljava/lang/String;"), p.Utf8("x")

	var body buf
	body.u16(1).u16(outerT).u16(4)
	body.u16(p.Utf8("inner")).u8('@').u16(innerT).u16(1).
		u16(p.Utf8("v")).u8('[').u16(2).u8('I').u16(one).u8('I').u16(two)
	body.u16(p.Utf8("mode")).u8('e').u16(modeT).u16(fast)
	body.u16(p.Utf8("type")).u8('c').u16(strDesc)
	body.u16(p.Utf8("name")).u8('s').u16(x)
	cb.attrs = append(cb.attrs, attr(p.Utf8("RuntimeVisibleAnnotations"), body))

	cf, err := Parse(cb.bytes())
	if err != nil {
		t.Fatal(err)
	}

	want := &AnnotationsAttribute{Visible: true, Annotations: []Annotation{{
		TypeIndex: outerT,
		Pairs: []ElementValuePair{
			{NameIndex: p.Utf8("inner"), Value: &AnnotationValue{Annotation: Annotation{
				TypeIndex: innerT,
				Pairs: []ElementValuePair{{NameIndex: p.Utf8("v"), Value: &ArrayValue{Values: []ElementValue{
					&ConstValue{Kind: 'I', ValueIndex: one},
					&ConstValue{Kind: 'I', ValueIndex: two},
				}}}},
			}}},
			{NameIndex: p.Utf8("mode"), Value: &EnumValue{TypeNameIndex: modeT, ConstNameIndex: fast}},
			{NameIndex: p.Utf8("type"), Value: &ClassValue{ClassInfoIndex: strDesc}},
			{NameIndex: p.Utf8("name"), Value: &ConstValue{Kind: 's', ValueIndex: x}},
		},
	}}}
	if diff := cmp.Diff(want, cf.Attributes[0]); diff != "" {
		t.Errorf("annotations mismatch (-want +got):\n%s", diff)
	}
	if got := cf.Attributes[0].Name(); got != AttrRuntimeVisibleAnnotations {
		t.Errorf("name: got %q", got)
	}
}

func TestAnnotationInvalidTag(t *testing.T) {
	cb := newClass("Annotated", "java/lang/Object")
	p := cb.pool

	var body buf
	body.u16(1).u16(p.Utf8("LA;")).u16(1).u16(p.Utf8("v")).u8('[').u16(2).
		u8('Z').u16(p.Integer(1)).
		u8('X').u16(0)
	encoded := attr(p.Utf8("RuntimeInvisibleAnnotations"), body)
	cb.attrs = append(cb.attrs, encoded)
	data := cb.bytes()

	_, err := Parse(data)
	if !errors.Is(err, ErrInvalidAnnotationTag) {
		t.Fatalf("got %v, want invalid annotation tag", err)
	}
	var de *DecodeError
	errors.As(err, &de)
	if de.Value != byte('X') {
		t.Errorf("value: got %v, want 'X'", de.Value)
	}
	if want := len(data) - 2 - 1; de.Offset != want {
		t.Errorf("offset: got %d, want %d", de.Offset, want)
	}
	if want := "class.attributes[0].RuntimeInvisibleAnnotations.annotations[0].pairs[0].[1]"; de.Section() != want {
		t.Errorf("section: got %q, want %q", de.Section(), want)
	}
}

func TestAnnotationConstKinds(t *testing.T) {
	tests := []struct {
		tag   byte
		entry func(p *poolBuilder) uint16
		ok    bool
	}{
		{'B', func(p *poolBuilder) uint16 { return p.Integer(1) }, true},
		{'C', func(p *poolBuilder) uint16 { return p.Integer('a') }, true},
		{'D', func(p *poolBuilder) uint16 { return p.Double(1) }, true},
		{'F', func(p *poolBuilder) uint16 { return p.Float(1) }, true},
		{'J', func(p *poolBuilder) uint16 { return p.Long(1) }, true},
		{'s', func(p *poolBuilder) uint16 { return p.Utf8("s") }, true},
		{'I', func(p *poolBuilder) uint16 { return p.Long(1) }, false},
		{'s', func(p *poolBuilder) uint16 { return p.Str("s") }, false},
		{'J', func(p *poolBuilder) uint16 { return p.Integer(1) }, false},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%c/%v", tt.tag, tt.ok), func(t *testing.T) {
			cb := newClass("A", "java/lang/Object")
			p := cb.pool
			var body buf
			body.u16(1).u16(p.Utf8("LA;")).u16(1).u16(p.Utf8("v")).u8(tt.tag).u16(tt.entry(p))
			cb.attrs = append(cb.attrs, attr(p.Utf8("RuntimeVisibleAnnotations"), body))

			_, err := Parse(cb.bytes())
			if tt.ok && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !tt.ok && !errors.Is(err, ErrWrongConstantKind) {
				t.Fatalf("got %v, want wrong constant kind", err)
			}
		})
	}
}

func TestParameterAnnotationsAndDefault(t *testing.T) {
	cb := newClass("Ann", "java/lang/Object")
	cb.access |= AccInterface | AccAnnotation | AccAbstract
	p := cb.pool
	nonNull := p.Utf8("LNonNull;")
	answer := p.Integer(42)

	var params buf
	params.u8(3).
		u16(1).u16(nonNull).u16(0).
		u16(0).
		u16(2).u16(nonNull).u16(0).u16(nonNull).u16(0)
	var def buf
	def.u8('I').u16(answer)

	cb.methods = append(cb.methods,
		member(AccPublic|AccAbstract, p.Utf8("value"), p.Utf8("()I"),
			attr(p.Utf8("AnnotationDefault"), def)),
		member(AccPublic|AccAbstract, p.Utf8("check"), p.Utf8("(III)V"),
			attr(p.Utf8("RuntimeInvisibleParameterAnnotations"), params)),
	)

	cf, err := Parse(cb.bytes())
	if err != nil {
		t.Fatal(err)
	}

	wantDefault := &AnnotationDefaultAttribute{Value: &ConstValue{Kind: 'I', ValueIndex: answer}}
	if diff := cmp.Diff(wantDefault, cf.FindMethodByName("value").Attribute(AttrAnnotationDefault)); diff != "" {
		t.Errorf("AnnotationDefault mismatch (-want +got):\n%s", diff)
	}

	wantParams := &ParameterAnnotationsAttribute{Parameters: [][]Annotation{
		{{TypeIndex: nonNull}},
		{},
		{{TypeIndex: nonNull}, {TypeIndex: nonNull}},
	}}
	got := cf.FindMethodByName("check").Attribute(AttrRuntimeInvisibleParameterAnnotations)
	if diff := cmp.Diff(wantParams, got, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("parameter annotations mismatch (-want +got):\n%s", diff)
	}
}

// nestedArrays encodes a single-annotation RuntimeVisibleAnnotations body
// whose only value is an int wrapped in levels arrays.
func nestedArrays(p *poolBuilder, levels int) []byte {
	var b buf
	b.u16(1).u16(p.Utf8("LDeep;")).u16(1).u16(p.Utf8("value"))
	for range levels {
		b.u8('[').u16(1)
	}
	b.u8('I').u16(p.Integer(7))
	return b
}

func TestAnnotationNestingLimit(t *testing.T) {
	tests := []struct {
		name   string
		levels int
		ok     bool
	}{
		{"at the limit", maxNesting, true},
		{"one past the limit", maxNesting + 1, false},
		{"far past the limit", 1 << 20, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cb := newClass("Deep", "java/lang/Object")
			body := nestedArrays(cb.pool, tt.levels)
			cb.attrs = append(cb.attrs, attr(cb.pool.Utf8("RuntimeVisibleAnnotations"), body))

			cf, err := Parse(cb.bytes())
			if tt.ok {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				v := cf.Attributes[0].(*AnnotationsAttribute).Annotations[0].Pairs[0].Value
				for range tt.levels {
					v = v.(*ArrayValue).Values[0]
				}
				if v.Tag() != 'I' {
					t.Errorf("innermost value has tag %q, want 'I'", v.Tag())
				}
				return
			}
			if !errors.Is(err, ErrNestingTooDeep) {
				t.Fatalf("got %v, want nesting too deep", err)
			}
			var de *DecodeError
			if !errors.As(err, &de) || de.Offset < 0 {
				t.Errorf("expected a located *DecodeError, got %v", err)
			}
		})
	}
}

// annotationGen builds random annotation trees together with their encoding.
type annotationGen struct {
	r    *rand.Rand
	pool *poolBuilder
}

func (g *annotationGen) annotation(depth int) (Annotation, []byte) {
	var b buf
	a := Annotation{TypeIndex: g.pool.Utf8(fmt.Sprintf("LA%d;", g.r.Intn(4)))}
	n := g.r.Intn(4)
	b.u16(a.TypeIndex).u16(uint16(n))
	for range n {
		name := g.pool.Utf8(fmt.Sprintf("p%d", g.r.Intn(8)))
		v, enc := g.value(depth)
		a.Pairs = append(a.Pairs, ElementValuePair{NameIndex: name, Value: v})
		b.u16(name).raw(enc)
	}
	return a, b
}

func (g *annotationGen) value(depth int) (ElementValue, []byte) {
	var b buf
	choices := 5
	if depth > 0 {
		choices = 7
	}
	switch g.r.Intn(choices) {
	case 0:
		i := g.pool.Integer(g.r.Int31())
		b.u8('I').u16(i)
		return &ConstValue{Kind: 'I', ValueIndex: i}, b
	case 1:
		i := g.pool.Utf8(fmt.Sprintf("str%d", g.r.Intn(16)))
		b.u8('s').u16(i)
		return &ConstValue{Kind: 's', ValueIndex: i}, b
	case 2:
		i := g.pool.Long(g.r.Int63())
		b.u8('J').u16(i)
		return &ConstValue{Kind: 'J', ValueIndex: i}, b
	case 3:
		typ, name := g.pool.Utf8("LE;"), g.pool.Utf8(fmt.Sprintf("C%d", g.r.Intn(3)))
		b.u8('e').u16(typ).u16(name)
		return &EnumValue{TypeNameIndex: typ, ConstNameIndex: name}, b
	case 4:
		i := g.pool.Utf8("Ljava/lang/Object;")
		b.u8('c').u16(i)
		return &ClassValue{ClassInfoIndex: i}, b
	case 5:
		a, enc := g.annotation(depth - 1)
		b.u8('@').raw(enc)
		return &AnnotationValue{Annotation: a}, b
	default:
		n := g.r.Intn(4)
		arr := &ArrayValue{}
		b.u8('[').u16(uint16(n))
		for range n {
			v, enc := g.value(depth - 1)
			arr.Values = append(arr.Values, v)
			b.raw(enc)
		}
		return arr, b
	}
}

func TestAnnotationRandomTrees(t *testing.T) {
	for seed := int64(1); seed <= 50; seed++ {
		t.Run(fmt.Sprint(seed), func(t *testing.T) {
			cb := newClass("R", "java/lang/Object")
			g := &annotationGen{r: rand.New(rand.NewSource(seed)), pool: cb.pool}

			n := g.r.Intn(5)
			want := &AnnotationsAttribute{Visible: true}
			var body buf
			body.u16(uint16(n))
			for range n {
				a, enc := g.annotation(g.r.Intn(5))
				want.Annotations = append(want.Annotations, a)
				body.raw(enc)
			}
			cb.attrs = append(cb.attrs, attr(cb.pool.Utf8("RuntimeVisibleAnnotations"), body))

			cf, err := Parse(cb.bytes())
			if err != nil {
				t.Fatalf("seed %d: %v", seed, err)
			}
			if diff := cmp.Diff(want, cf.Attributes[0], cmpopts.EquateEmpty()); diff != "" {
				t.Errorf("seed %d mismatch (-want +got):\n%s", seed, diff)
			}
		})
	}
}
