// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of Gibson

// Package render prints ropkit's user-facing output with optional color.
package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-colorable"

	"github.com/gibson-sec/ropkit/internal/options"
)

// ColorSource decides whether output is colored. It is consulted on every
// print so that toggling the color option applies immediately.
type ColorSource interface {
	Color() bool
}

// Fixed is a ColorSource with a constant answer.
type Fixed bool

// Color returns f.
func (f Fixed) Color() bool { return bool(f) }

// Printer writes messages to an output and an error stream.
type Printer struct {
	Out    io.Writer
	Err    io.Writer
	Colors ColorSource
}

// NewPrinter creates a printer over the given streams.
func NewPrinter(out, err io.Writer, colors ColorSource) *Printer {
	if colors == nil {
		colors = Fixed(false)
	}
	return &Printer{Out: out, Err: err, Colors: colors}
}

// NewStdPrinter creates a printer on stdout and stderr. ANSI sequences are
// translated on Windows consoles.
func NewStdPrinter(colors ColorSource) *Printer {
	return NewPrinter(colorable.NewColorableStdout(), colorable.NewColorableStderr(), colors)
}

// Row is one line of a settings table.
type Row struct {
	Name  string
	Value any
}

// colorFunc returns a color function, or fmt.Sprint if colors are disabled.
func (p *Printer) colorFunc(attr color.Attribute) func(...interface{}) string {
	if !p.Colors.Color() {
		return func(a ...interface{}) string {
			return fmt.Sprint(a...)
		}
	}
	c := color.New(attr)
	c.EnableColor()
	return c.SprintFunc()
}

// Error prints err with a short hint for option errors.
func (p *Printer) Error(err error) {
	if err == nil {
		return
	}
	red := p.colorFunc(color.FgRed)
	yellow := p.colorFunc(color.FgYellow)

	fmt.Fprintf(p.Err, "%s %v\n", red("Error:"), err)
	if hint := hintFor(err); hint != "" {
		fmt.Fprintf(p.Err, "%s %s\n", yellow("Tip:"), hint)
	}
}

func hintFor(err error) string {
	switch options.ErrorCode(err) {
	case options.CodeMissingArgument:
		return "give a file with -f/--file or start the console with --console"
	case options.CodeInvalidArgument:
		return "addresses are written as 0x-prefixed hex, e.g. 0x08048000"
	case options.CodeParseFailed:
		return "run with --help to see the available flags"
	case options.CodeInvalidOption:
		return "type 'settings' to list the options that can be changed"
	case options.CodeInvalidOptionValue:
		return "type 'settings' to see the current values"
	}
	return ""
}

// Info prints an informational line.
func (p *Printer) Info(format string, a ...any) {
	cyan := p.colorFunc(color.FgCyan)
	fmt.Fprintln(p.Out, cyan(fmt.Sprintf(format, a...)))
}

// Success prints a confirmation line.
func (p *Printer) Success(format string, a ...any) {
	green := p.colorFunc(color.FgGreen)
	fmt.Fprintln(p.Out, green(fmt.Sprintf(format, a...)))
}

// Plain prints an uncolored line.
func (p *Printer) Plain(format string, a ...any) {
	fmt.Fprintf(p.Out, format+"\n", a...)
}

// Settings prints rows as an aligned two-column table.
func (p *Printer) Settings(title string, rows []Row) {
	yellow := p.colorFunc(color.FgYellow)
	bold := p.colorFunc(color.Bold)

	width := len("Option")
	for _, r := range rows {
		width = max(width, len(r.Name))
	}

	fmt.Fprintln(p.Out, bold(title))
	fmt.Fprintln(p.Out, strings.Repeat("=", len(title)))
	fmt.Fprintf(p.Out, "%-*s  %s\n", width, "Option", "Value")
	for _, r := range rows {
		name := fmt.Sprintf("%-*s", width, r.Name)
		fmt.Fprintf(p.Out, "%s  %s\n", yellow(name), FormatValue(r.Value))
	}
}

// FormatValue renders an option value the way the console shows it.
func FormatValue(v any) string {
	switch t := v.(type) {
	case nil:
		return "-"
	case bool:
		if t {
			return "on"
		}
		return "off"
	case string:
		if t == "" {
			return `""`
		}
		return t
	case uint64:
		return fmt.Sprintf("0x%x", t)
	case []string:
		return strings.Join(t, " ")
	default:
		return fmt.Sprint(t)
	}
}
