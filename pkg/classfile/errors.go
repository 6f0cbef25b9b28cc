package classfile

import (
	"errors"
	"fmt"
	"strings"
)

// Kind categorizes a decode failure.
type Kind string

const (
	KindTruncated               Kind = "truncated"
	KindBadMagic                Kind = "bad_magic"
	KindUnknownConstantTag      Kind = "unknown_constant_tag"
	KindInvalidText             Kind = "invalid_text"
	KindDanglingIndex           Kind = "dangling_index"
	KindWrongConstantKind       Kind = "wrong_constant_kind"
	KindInvalidAnnotationTag    Kind = "invalid_annotation_tag"
	KindAttributeLengthMismatch Kind = "attribute_length_mismatch"
	KindTrailingData            Kind = "trailing_data"
	KindNestingTooDeep          Kind = "nesting_too_deep"
)

// Sentinels for use with errors.Is. A *DecodeError matches a sentinel when
// their kinds are equal. Sentinels are plain kinds, so errors.As never
// yields one as a *DecodeError to modify.
var (
	ErrTruncated               error = sentinel(KindTruncated)
	ErrBadMagic                error = sentinel(KindBadMagic)
	ErrUnknownConstantTag      error = sentinel(KindUnknownConstantTag)
	ErrInvalidText             error = sentinel(KindInvalidText)
	ErrDanglingIndex           error = sentinel(KindDanglingIndex)
	ErrWrongConstantKind       error = sentinel(KindWrongConstantKind)
	ErrInvalidAnnotationTag    error = sentinel(KindInvalidAnnotationTag)
	ErrAttributeLengthMismatch error = sentinel(KindAttributeLengthMismatch)
	ErrTrailingData            error = sentinel(KindTrailingData)
	ErrNestingTooDeep          error = sentinel(KindNestingTooDeep)
)

type sentinel Kind

func (s sentinel) Error() string { return "classfile: " + string(s) }

// DecodeError describes why a classfile could not be decoded.
type DecodeError struct {
	// Value is the offending tag byte or index, when there is one.
	Value any
	Cause error
	Kind  Kind
	// Path locates the failing structure, outermost first,
	// e.g. ["methods[2]", "attributes[0]", "Code"].
	Path []string
	// Offset is the absolute byte offset of the failing read, or -1 when
	// the error was raised outside a decode (a pool lookup on a finished
	// ClassFile).
	Offset int
	Detail string
}

func (e *DecodeError) Error() string {
	var b strings.Builder

	b.WriteString("classfile: ")
	b.WriteString(string(e.Kind))

	if len(e.Path) > 0 {
		b.WriteString(" in ")
		b.WriteString(e.Section())
	}
	if e.Offset >= 0 {
		fmt.Fprintf(&b, " at offset %d", e.Offset)
	}
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}
	return b.String()
}

// Section returns Path joined with dots.
func (e *DecodeError) Section() string {
	return strings.Join(e.Path, ".")
}

func (e *DecodeError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is a sentinel or *DecodeError of the same kind.
func (e *DecodeError) Is(target error) bool {
	switch t := target.(type) {
	case sentinel:
		return e.Kind == Kind(t)
	case *DecodeError:
		return e.Kind == t.Kind
	}
	return false
}

func truncatedDetail(want, have int) string {
	return fmt.Sprintf("need %d bytes, %d remain", want, have)
}

// within prefixes the error's path with section while the decoder unwinds.
func within(section string, err error) error {
	var de *DecodeError
	if errors.As(err, &de) {
		de.Path = append([]string{section}, de.Path...)
	}
	return err
}

// locate fills in the offset of an error raised without access to the
// cursor, such as a failed pool lookup.
func locate(err error, offset int) error {
	var de *DecodeError
	if errors.As(err, &de) && de.Offset < 0 {
		de.Offset = offset
	}
	return err
}

func danglingIndex(index uint16, count int) *DecodeError {
	return &DecodeError{
		Kind:   KindDanglingIndex,
		Offset: -1,
		Value:  index,
		Detail: fmt.Sprintf("constant pool index %d is not a populated slot in [1, %d]", index, count-1),
	}
}

func wrongConstantKind(index uint16, got Tag, want []Tag) *DecodeError {
	names := make([]string, len(want))
	for i, t := range want {
		names[i] = t.String()
	}
	return &DecodeError{
		Kind:   KindWrongConstantKind,
		Offset: -1,
		Value:  index,
		Detail: fmt.Sprintf("constant pool index %d is %s, want %s", index, got, strings.Join(names, " or ")),
	}
}
