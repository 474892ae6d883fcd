// Package output renders VagrantMachine resources as tables, YAML or JSON.
package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/jbweber/corral/api/v1alpha1"
)

// Format represents an output format type.
type Format string

const (
	// FormatTable is a human-readable table format.
	FormatTable Format = "table"
	// FormatWide is a table with extra columns.
	FormatWide Format = "wide"
	// FormatYAML is a YAML format that loader can read back.
	FormatYAML Format = "yaml"
	// FormatJSON is a JSON format for machine consumption.
	FormatJSON Format = "json"
)

// Formats lists every supported format.
var Formats = []Format{FormatTable, FormatWide, FormatYAML, FormatJSON}

// Formatter formats VagrantMachine resources for output.
type Formatter interface {
	// FormatMachine formats a single machine.
	FormatMachine(m *v1alpha1.VagrantMachine) (string, error)

	// FormatMachineList formats a list of machines.
	FormatMachineList(ms []*v1alpha1.VagrantMachine) (string, error)
}

// Options contains options for formatting output.
type Options struct {
	Format Format
	// NoHeaders omits headers in table formats.
	NoHeaders bool
}

// NewFormatter creates a Formatter for opts.Format.
func NewFormatter(opts Options) (Formatter, error) {
	switch opts.Format {
	case FormatTable:
		return &TableFormatter{NoHeaders: opts.NoHeaders}, nil
	case FormatWide:
		return &TableFormatter{NoHeaders: opts.NoHeaders, Wide: true}, nil
	case FormatYAML:
		return &YAMLFormatter{}, nil
	case FormatJSON:
		return &JSONFormatter{}, nil
	default:
		return nil, ValidateFormat(string(opts.Format))
	}
}

// ValidateFormat checks if a format string is valid.
func ValidateFormat(format string) error {
	for _, f := range Formats {
		if Format(format) == f {
			return nil
		}
	}
	names := make([]string, len(Formats))
	for i, f := range Formats {
		names[i] = string(f)
	}
	return fmt.Errorf("invalid format: %q (valid formats: %s)", format, strings.Join(names, ", "))
}

// Print formats a single machine with opts and writes it to w.
func Print(w io.Writer, opts Options, m *v1alpha1.VagrantMachine) error {
	f, err := NewFormatter(opts)
	if err != nil {
		return err
	}
	out, err := f.FormatMachine(m)
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, out)
	return err
}

// PrintList formats machines with opts and writes them to w.
func PrintList(w io.Writer, opts Options, ms []*v1alpha1.VagrantMachine) error {
	f, err := NewFormatter(opts)
	if err != nil {
		return err
	}
	out, err := f.FormatMachineList(ms)
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, out)
	return err
}
