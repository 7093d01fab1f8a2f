// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of Gibson

package options

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Governed option names.
const (
	OptAll       = "all"
	OptInstCount = "inst_count"
	OptBadbytes  = "badbytes"
	OptDetailed  = "detailed"
	OptType      = "type"
	OptColor     = "color"
)

// Gadget types accepted by the type option.
var GadgetTypes = []string{"rop", "jop", "sys", "all"}

var (
	hexPattern    = regexp.MustCompile(`^0[xX][0-9A-Fa-f]+$`)
	digitsPattern = regexp.MustCompile(`^[0-9]+$`)
)

// IsHex reports whether s is a 0x-prefixed hexadecimal literal.
func IsHex(s string) bool {
	return hexPattern.MatchString(s)
}

// Result is a validator's verdict.
type Result struct {
	// Accepted is set when the value was coerced and written to the store.
	Accepted bool
	// Broadcast is set when listeners must hear about the change. It also
	// tells the engine that gadgets have to be recomputed.
	Broadcast bool
}

func accept(broadcast bool) Result {
	return Result{Accepted: true, Broadcast: broadcast}
}

// Validator coerces raw and writes it into o, or rejects it and leaves o untouched.
type Validator func(o *Options, raw string) Result

// Registry maps governed option names to their validators.
type Registry map[string]Validator

// DefaultRegistry returns the validators for every governed option.
func DefaultRegistry() Registry {
	return Registry{
		OptAll:       validateAll,
		OptInstCount: validateInstCount,
		OptBadbytes:  validateBadbytes,
		OptDetailed:  validateDetailed,
		OptType:      validateType,
		OptColor:     validateColor,
	}
}

// Lookup returns the validator registered for name.
func (r Registry) Lookup(name string) (Validator, bool) {
	v, ok := r[name]
	return v, ok
}

// Names returns the governed option names in sorted order.
func (r Registry) Names() []string {
	names := make([]string, 0, len(r))
	for name := range r {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// parseSwitch maps on/off, in any case, to a bool.
func parseSwitch(raw string) (on bool, ok bool) {
	switch strings.ToLower(raw) {
	case "on":
		return true, true
	case "off":
		return false, true
	}
	return false, false
}

func validateAll(o *Options, raw string) Result {
	on, ok := parseSwitch(raw)
	if !ok {
		return Result{}
	}
	o.Set(OptAll, on)
	return accept(true)
}

func validateInstCount(o *Options, raw string) Result {
	if !digitsPattern.MatchString(raw) {
		return Result{}
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return Result{}
	}
	o.Set(OptInstCount, n)
	return accept(true)
}

func validateBadbytes(o *Options, raw string) Result {
	if raw != "" && !IsHex("0x"+raw) {
		return Result{}
	}
	o.Set(OptBadbytes, raw)
	return accept(true)
}

func validateDetailed(o *Options, raw string) Result {
	on, ok := parseSwitch(raw)
	if !ok {
		return Result{}
	}
	o.Set(OptDetailed, on)
	return accept(false)
}

func validateType(o *Options, raw string) Result {
	for _, t := range GadgetTypes {
		if raw == t {
			o.Set(OptType, raw)
			return accept(true)
		}
	}
	return Result{}
}

func validateColor(o *Options, raw string) Result {
	on, ok := parseSwitch(raw)
	if !ok {
		return Result{}
	}
	o.Set(OptNoColor, !on)
	return accept(false)
}
