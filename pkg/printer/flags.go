package printer

import (
	"fmt"
	"strings"

	"github.com/daimatz/classdump/pkg/classfile"
)

// FlagKind selects how ambiguous access flag bits are named: 0x0020 is
// ACC_SUPER on a class but ACC_SYNCHRONIZED on a method.
type FlagKind int

const (
	ClassFlags FlagKind = iota
	FieldFlags
	MethodFlags
	InnerClassFlags
	ParameterFlags
)

type flagName struct {
	bit  uint16
	name string
}

var flagNames = map[FlagKind][]flagName{
	ClassFlags: {
		{classfile.AccPublic, "ACC_PUBLIC"},
		{classfile.AccFinal, "ACC_FINAL"},
		{classfile.AccSuper, "ACC_SUPER"},
		{classfile.AccInterface, "ACC_INTERFACE"},
		{classfile.AccAbstract, "ACC_ABSTRACT"},
		{classfile.AccSynthetic, "ACC_SYNTHETIC"},
		{classfile.AccAnnotation, "ACC_ANNOTATION"},
		{classfile.AccEnum, "ACC_ENUM"},
		{classfile.AccModule, "ACC_MODULE"},
	},
	FieldFlags: {
		{classfile.AccPublic, "ACC_PUBLIC"},
		{classfile.AccPrivate, "ACC_PRIVATE"},
		{classfile.AccProtected, "ACC_PROTECTED"},
		{classfile.AccStatic, "ACC_STATIC"},
		{classfile.AccFinal, "ACC_FINAL"},
		{classfile.AccVolatile, "ACC_VOLATILE"},
		{classfile.AccTransient, "ACC_TRANSIENT"},
		{classfile.AccSynthetic, "ACC_SYNTHETIC"},
		{classfile.AccEnum, "ACC_ENUM"},
	},
	MethodFlags: {
		{classfile.AccPublic, "ACC_PUBLIC"},
		{classfile.AccPrivate, "ACC_PRIVATE"},
		{classfile.AccProtected, "ACC_PROTECTED"},
		{classfile.AccStatic, "ACC_STATIC"},
		{classfile.AccFinal, "ACC_FINAL"},
		{classfile.AccSynchronized, "ACC_SYNCHRONIZED"},
		{classfile.AccBridge, "ACC_BRIDGE"},
		{classfile.AccVarargs, "ACC_VARARGS"},
		{classfile.AccNative, "ACC_NATIVE"},
		{classfile.AccAbstract, "ACC_ABSTRACT"},
		{classfile.AccStrict, "ACC_STRICT"},
		{classfile.AccSynthetic, "ACC_SYNTHETIC"},
	},
	InnerClassFlags: {
		{classfile.AccPublic, "ACC_PUBLIC"},
		{classfile.AccPrivate, "ACC_PRIVATE"},
		{classfile.AccProtected, "ACC_PROTECTED"},
		{classfile.AccStatic, "ACC_STATIC"},
		{classfile.AccFinal, "ACC_FINAL"},
		{classfile.AccInterface, "ACC_INTERFACE"},
		{classfile.AccAbstract, "ACC_ABSTRACT"},
		{classfile.AccSynthetic, "ACC_SYNTHETIC"},
		{classfile.AccAnnotation, "ACC_ANNOTATION"},
		{classfile.AccEnum, "ACC_ENUM"},
	},
	ParameterFlags: {
		{classfile.AccFinal, "ACC_FINAL"},
		{classfile.AccSynthetic, "ACC_SYNTHETIC"},
		{classfile.AccMandated, "ACC_MANDATED"},
	},
}

// FlagNames returns the names of the bits set in flags, in bit order.
// Bits with no name for kind are reported in hex.
func FlagNames(kind FlagKind, flags uint16) []string {
	names := []string{}
	var known uint16
	for _, f := range flagNames[kind] {
		known |= f.bit
		if flags&f.bit != 0 {
			names = append(names, f.name)
		}
	}
	if rest := flags &^ known; rest != 0 {
		names = append(names, fmt.Sprintf("0x%04X", rest))
	}
	return names
}

// formatFlags renders flags the way javap does: "(0x0021) ACC_PUBLIC, ACC_SUPER".
func formatFlags(kind FlagKind, flags uint16) string {
	return fmt.Sprintf("(0x%04x) %s", flags, strings.Join(FlagNames(kind, flags), ", "))
}
