package classfile

import (
	"errors"
	"fmt"
	"io"
	"testing"
)

func TestDecodeErrorMessage(t *testing.T) {
	tests := []struct {
		name string
		err  *DecodeError
		want string
	}{
		{
			name: "kind only",
			err:  &DecodeError{Kind: KindTruncated, Offset: -1},
			want: "classfile: truncated",
		},
		{
			name: "full",
			err: &DecodeError{
				Kind:   KindDanglingIndex,
				Path:   []string{"methods[1]", "attributes[0]", "Code"},
				Offset: 120,
				Detail: "constant pool index 40 is not a populated slot in [1, 30]",
			},
			want: "classfile: dangling_index in methods[1].attributes[0].Code at offset 120: constant pool index 40 is not a populated slot in [1, 30]",
		},
		{
			name: "with cause",
			err:  &DecodeError{Kind: KindTruncated, Offset: 0, Cause: io.ErrUnexpectedEOF},
			want: "classfile: truncated at offset 0 (caused by: unexpected EOF)",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("got  %q\nwant %q", got, tt.want)
			}
		})
	}
}

func TestDecodeErrorIs(t *testing.T) {
	err := fmt.Errorf("loading Foo.class: %w", &DecodeError{Kind: KindBadMagic, Offset: 0})

	if !errors.Is(err, ErrBadMagic) {
		t.Error("expected errors.Is to match ErrBadMagic")
	}
	if errors.Is(err, ErrTruncated) {
		t.Error("bad magic must not match ErrTruncated")
	}

	wrapped := &DecodeError{Kind: KindTruncated, Offset: 4, Cause: io.ErrUnexpectedEOF}
	if !errors.Is(wrapped, io.ErrUnexpectedEOF) {
		t.Error("expected the cause to be reachable through Unwrap")
	}
}

func TestWithinAndLocate(t *testing.T) {
	var err error = danglingIndex(7, 5)
	err = locate(err, 33)
	err = within("Code", err)
	err = within("attributes[0]", err)
	err = locate(err, 99)

	var de *DecodeError
	if !errors.As(err, &de) {
		t.Fatalf("expected *DecodeError, got %T", err)
	}
	if de.Section() != "attributes[0].Code" {
		t.Errorf("section: got %q", de.Section())
	}
	if de.Offset != 33 {
		t.Errorf("locate overwrote the first offset: got %d", de.Offset)
	}
	if de.Value != uint16(7) {
		t.Errorf("value: got %v", de.Value)
	}

	plain := errors.New("not a decode error")
	if within("x", plain) != plain || locate(plain, 1) != plain {
		t.Error("within and locate must pass foreign errors through")
	}
}

func TestSentinelsAreNotModified(t *testing.T) {
	within("methods[0]", ErrTruncated)
	locate(ErrTruncated, 12)

	var de *DecodeError
	if errors.As(ErrTruncated, &de) {
		t.Fatal("a sentinel must not be reachable as a *DecodeError")
	}
	if got := ErrTruncated.Error(); got != "classfile: truncated" {
		t.Errorf("sentinel message changed: %q", got)
	}
	if !errors.Is(ErrTruncated, ErrTruncated) {
		t.Error("a sentinel must match itself")
	}
	if !errors.Is(&DecodeError{Kind: KindNestingTooDeep, Offset: 3}, ErrNestingTooDeep) {
		t.Error("expected errors.Is to match by kind")
	}
	if !errors.Is(&DecodeError{Kind: KindTruncated}, &DecodeError{Kind: KindTruncated, Offset: 9}) {
		t.Error("two decode errors of the same kind must match")
	}
}
