// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of Gibson

package options

import (
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/pflag"
)

// Ungoverned option names the analyzer inspects.
const (
	OptVersion   = "version"
	OptConsole   = "console"
	OptFile      = "file"
	OptAsm       = "asm"
	OptDisasm    = "disasm"
	OptImagebase = "I"
	OptString    = "string"
)

// StringPattern is the search used by a bare --string: printable runs of two or more characters.
const StringPattern = "[ -~]{2}[ -~]*"

// Parser turns command-line tokens into raw option values keyed by option name.
type Parser interface {
	Parse(args []string) (map[string]any, error)
}

// ParserFunc adapts a function into a Parser.
type ParserFunc func(args []string) (map[string]any, error)

// Parse calls f.
func (f ParserFunc) Parse(args []string) (map[string]any, error) {
	return f(args)
}

// NewFlagSet declares every ropkit command-line flag.
func NewFlagSet(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SortFlags = false

	fs.BoolP(OptVersion, "v", false, "Print version")
	fs.Bool(OptConsole, false, "Starts interactive commandline")
	fs.StringP(OptFile, "f", "", "The `file` to load")
	fs.BoolP("raw", "r", false, "Loads the file as raw file")
	fs.String("db", "", "The `dbfile` to load")
	fs.StringP("arch", "a", "", "The `arch`itecture of the loaded file")
	fs.String("section", "", "The data of this `section` should be printed")
	fs.String(OptString, "", "Looks for the `string` in all data sections (--string=<regex>)")
	fs.Lookup(OptString).NoOptDefVal = StringPattern
	fs.Bool("hex", false, "Prints the selected sections in a hex format")
	fs.String(OptAsm, "", "Tokens to assemble, up to the next flag (--asm jmp esp)")
	fs.String(OptDisasm, "", "A string to disassemble")
	fs.String("disassemble-address", "", "Disassembles instructions at `address:length` (0x12345678:L3)")
	fs.BoolP("info", "i", false, "Shows file header [ELF/PE/Mach-O]")
	// -e and -I have no long form on the command line; pflag also accepts
	// --e and --I for them.
	fs.BoolP("e", "e", false, "Shows EntryPoint")
	fs.Bool("imagebase", false, "Shows ImageBase [ELF/PE/Mach-O]")
	fs.BoolP("dllcharacteristics", "c", false, "Shows DllCharacteristics [PE]")
	fs.BoolP("sections", "s", false, "Shows file sections [ELF/PE/Mach-O]")
	fs.BoolP("segments", "S", false, "Shows file segments [ELF/Mach-O]")
	fs.Bool("imports", false, "Shows imports [ELF/PE]")
	fs.Bool("symbols", false, "Shows symbols [ELF]")
	fs.String("set", "", "Sets `option`s. Available options: aslr nx")
	fs.String("unset", "", "Unsets `option`s. Available options: aslr nx")
	fs.StringP(OptImagebase, "I", "", "Uses this `imagebase` for gadgets")
	fs.BoolP("ppr", "p", false, "Searches for 'pop reg; pop reg; ret' instructions [only x86/x86_64]")
	fs.StringP("jmp", "j", "", "Searches for 'jmp reg' instructions (-j reg[,reg...]) [only x86/x86_64]")
	fs.Bool("stack-pivot", false, "Prints all stack pivot gadgets")
	fs.Int("inst-count", 5, "Specifies the max count of instructions in a gadget")
	fs.String("search", "", "Searches for gadgets")
	fs.Int("quality", 0, "The `quality` for gadgets which are found by search (1 = best)")
	fs.String("filter", "", "Filters gadgets")
	fs.String("opcode", "", "Searches for opcodes (e.g. ffe4 or ffe? or ff??)")
	fs.String("instructions", "", "Searches for instructions (e.g. \"jmp esp\", \"pop eax; ret\")")
	fs.String(OptType, "all", "Sets the `type` of gadgets [rop, jop, sys, all]")
	fs.Bool(OptDetailed, false, "Prints gadgets more detailed")
	fs.Bool(OptAll, false, "Does not remove duplicate gadgets")
	fs.String("chain", "", "Generates a ropchain [`generator=parameter`]")
	fs.StringP(OptBadbytes, "b", "", "Set `badbytes` which should not be contained in gadgets")
	fs.Bool(OptNoColor, false, "Disables colored output")

	return fs
}

// declaredDefaults are the non-boolean flags whose default counts as a value.
var declaredDefaults = map[string]bool{
	"inst-count": true,
	OptType:      true,
	OptBadbytes:  true,
}

// Key converts a flag name into its option name.
func Key(flagName string) string {
	return strings.ReplaceAll(flagName, "-", "_")
}

// FlagParser parses tokens with the ropkit flag set.
type FlagParser struct {
	name string
}

// NewFlagParser creates a parser for the ropkit flag set.
func NewFlagParser(name string) *FlagParser {
	return &FlagParser{name: name}
}

// Parse parses args into raw option values. Flags that were not given and
// have no declared default map to nil. --string takes an optional value and
// --asm takes every token up to the next flag; any other positional argument
// is an error.
func (p *FlagParser) Parse(args []string) (map[string]any, error) {
	fs := NewFlagSet(p.name)
	fs.Usage = func() {}

	args, asm, err := prescan(fs, args)
	if err != nil {
		return nil, err
	}
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	raw := make(map[string]any)
	var visitErr error
	fs.VisitAll(func(f *pflag.Flag) {
		value, err := flagValue(fs, f)
		if err != nil && visitErr == nil {
			visitErr = err
		}
		raw[Key(f.Name)] = value
	})
	if visitErr != nil {
		return nil, visitErr
	}

	if asm != nil {
		raw[OptAsm] = asm
	}
	if rest := fs.Args(); len(rest) > 0 {
		return nil, fmt.Errorf("unrecognized arguments: %s", strings.Join(rest, " "))
	}

	return raw, nil
}

// prescan handles the two flags pflag cannot express. A bare --string takes
// the next token as its value unless that token is a flag. --asm is removed
// from the tokens together with the operands that follow it, which are
// returned separately. Values of other flags are skipped so they are never
// mistaken for operands.
func prescan(fs *pflag.FlagSet, args []string) (rest, asm []string, err error) {
	rest = make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		tok := args[i]
		switch {
		case tok == "--":
			return append(rest, args[i:]...), asm, nil
		case tok == "--"+OptAsm:
			j := i + 1
			for j < len(args) && !isFlag(args[j]) {
				j++
			}
			if j == i+1 {
				return nil, nil, fmt.Errorf("flag needs an argument: --%s", OptAsm)
			}
			asm = slices.Clone(args[i+1 : j])
			i = j - 1
		case strings.HasPrefix(tok, "--"+OptAsm+"="):
			asm = []string{strings.TrimPrefix(tok, "--"+OptAsm+"=")}
		case tok == "--"+OptString:
			if i+1 < len(args) && !isFlag(args[i+1]) {
				i++
				tok += "=" + args[i]
			}
			rest = append(rest, tok)
		default:
			rest = append(rest, tok)
			if consumesNext(fs, tok) && i+1 < len(args) {
				i++
				rest = append(rest, args[i])
			}
		}
	}
	return rest, asm, nil
}

func isFlag(tok string) bool {
	return len(tok) > 1 && tok[0] == '-'
}

// consumesNext reports whether pflag reads the token after tok as tok's value.
func consumesNext(fs *pflag.FlagSet, tok string) bool {
	if !isFlag(tok) {
		return false
	}
	if name, ok := strings.CutPrefix(tok, "--"); ok {
		if strings.Contains(name, "=") {
			return false
		}
		f := fs.Lookup(name)
		return f != nil && f.NoOptDefVal == ""
	}

	shorts := tok[1:]
	for k := 0; k < len(shorts); k++ {
		f := fs.ShorthandLookup(shorts[k : k+1])
		if f == nil {
			return false
		}
		if f.NoOptDefVal == "" {
			// The rest of the cluster is the value unless nothing is left.
			return k == len(shorts)-1
		}
	}
	return false
}

func flagValue(fs *pflag.FlagSet, f *pflag.Flag) (any, error) {
	kind := f.Value.Type()
	if !f.Changed && kind != "bool" && !declaredDefaults[f.Name] {
		return nil, nil
	}

	switch kind {
	case "bool":
		return fs.GetBool(f.Name)
	case "int":
		return fs.GetInt(f.Name)
	case "string":
		return fs.GetString(f.Name)
	default:
		return nil, fmt.Errorf("flag --%s has unsupported type %s", f.Name, kind)
	}
}
