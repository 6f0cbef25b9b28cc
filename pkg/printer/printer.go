// Package printer renders decoded classfiles as text, JSON or YAML.
package printer

import (
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/daimatz/classdump/pkg/classfile"
)

// Format names an output format.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat validates a format name given on the command line.
func ParseFormat(s string) (Format, error) {
	switch f := Format(s); f {
	case FormatText, FormatJSON, FormatYAML:
		return f, nil
	}
	return "", fmt.Errorf("unknown format %q (want text, json or yaml)", s)
}

// Print renders cf to w in the given format.
func Print(w io.Writer, cf *classfile.ClassFile, format Format, opts Options) error {
	switch format {
	case FormatJSON:
		return JSON(w, cf)
	case FormatYAML:
		return YAML(w, cf)
	default:
		return Text(w, cf, opts)
	}
}

// JSON writes cf's Document as indented JSON.
func JSON(w io.Writer, cf *classfile.ClassFile) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(NewDocument(cf)); err != nil {
		return fmt.Errorf("encoding json: %w", err)
	}
	return nil
}

// YAML writes cf's Document as a YAML document.
func YAML(w io.Writer, cf *classfile.ClassFile) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(NewDocument(cf)); err != nil {
		return fmt.Errorf("encoding yaml: %w", err)
	}
	return enc.Close()
}
