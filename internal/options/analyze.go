// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of Gibson

package options

import (
	"runtime"
	"slices"
	"strconv"

	"github.com/gibson-sec/ropkit/internal/slogs"
)

const imagebaseMessage = "Imagebase should be in hex (0x.....)"

// WithForcedColor overrides platform detection for forced color. When force
// is set, a requested --nocolor is ignored.
func WithForcedColor(force bool) Setting {
	return func(s *settings) { s.forceColor = &force }
}

// ForcesColor reports whether the host keeps color on regardless of --nocolor.
// Windows consoles always get colored output through go-colorable.
func ForcesColor() bool {
	return runtime.GOOS == "windows"
}

// Analyze parses the command line and builds the initial option store.
//
// Without arguments, or with --nocolor alone, the interactive console is
// selected. The tool must be given something to act on: an assemble or
// disassemble request, the console, a file or a version request.
func Analyze(args []string, p Parser, opts ...Setting) (*Options, error) {
	s := buildSettings(opts)

	if len(args) == 0 || (len(args) == 1 && args[0] == "--"+OptNoColor) {
		args = append(slices.Clone(args), "--"+OptConsole)
	}

	raw, err := p.Parse(args)
	if err != nil {
		return nil, &ParseError{Err: err}
	}

	o := newOptions(s)
	for name, value := range raw {
		o.Set(name, value)
	}

	force := ForcesColor()
	if s.forceColor != nil {
		force = *s.forceColor
	}
	o.Set(OptNoColor, truthy(raw[OptNoColor]) && !force)

	if !truthy(raw[OptAsm]) && !truthy(raw[OptDisasm]) && !truthy(raw[OptConsole]) &&
		!truthy(raw[OptFile]) && !truthy(raw[OptVersion]) {
		return nil, &MissingArgumentError{Arg: "[-f|--file]"}
	}

	if ib, ok := raw[OptImagebase].(string); ok && ib != "" {
		base, ok := ParseImagebase(ib)
		if !ok {
			return nil, &ArgumentError{Arg: "-" + OptImagebase, Value: ib, Message: imagebaseMessage}
		}
		o.Set(OptImagebase, base)
	}

	o.logger.Debug("Arguments analyzed", slogs.Count, len(raw), slogs.Color, o.Color())
	return o, nil
}

// ParseImagebase decodes a 0x-prefixed hexadecimal address.
func ParseImagebase(s string) (uint64, bool) {
	if !IsHex(s) {
		return 0, false
	}
	base, err := strconv.ParseUint(s[2:], 16, 64)
	if err != nil {
		return 0, false
	}
	return base, true
}
