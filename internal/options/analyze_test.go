// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of Gibson

package options

import (
	"errors"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func analyze(t *testing.T, args []string, opts ...Setting) (*Options, error) {
	t.Helper()
	opts = append([]Setting{WithForcedColor(false)}, opts...)
	return Analyze(args, NewFlagParser("ropkit"), opts...)
}

func TestAnalyzeNoArgsSelectsConsole(t *testing.T) {
	o, err := analyze(t, nil)
	require.NoError(t, err)

	assert.True(t, o.Bool(OptConsole))
	assert.True(t, o.Color())
	v, err := o.GetOption(OptInstCount)
	require.NoError(t, err)
	assert.Equal(t, 5, v)
	v, err = o.GetOption(OptType)
	require.NoError(t, err)
	assert.Equal(t, "all", v)
}

func TestAnalyzeNoColorAloneSelectsConsole(t *testing.T) {
	args := []string{"--nocolor"}
	o, err := analyze(t, args)
	require.NoError(t, err)

	assert.True(t, o.Bool(OptConsole))
	assert.True(t, o.Bool(OptNoColor))
	assert.False(t, o.Color())
	assert.Equal(t, []string{"--nocolor"}, args, "caller's tokens are not modified")
}

func TestAnalyzeForcedColorIgnoresNoColor(t *testing.T) {
	o, err := Analyze([]string{"--nocolor"}, NewFlagParser("ropkit"), WithForcedColor(true))
	require.NoError(t, err)

	assert.True(t, o.Bool(OptConsole))
	assert.False(t, o.Bool(OptNoColor))
	assert.True(t, o.Color())
}

func TestAnalyzeMandatoryArgument(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		missing bool
	}{
		{name: "file", args: []string{"-f", "a.bin"}},
		{name: "console", args: []string{"--console"}},
		{name: "version", args: []string{"-v"}},
		{name: "disasm", args: []string{"--disasm", "ffe4"}},
		{name: "asm", args: []string{"--asm", "jmp", "esp"}},
		{name: "nothing to act on", args: []string{"--detailed"}, missing: true},
		{name: "nocolor with type", args: []string{"--nocolor", "--type", "rop"}, missing: true},
		{name: "empty file", args: []string{"--file="}, missing: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o, err := analyze(t, tt.args)
			if !tt.missing {
				require.NoError(t, err)
				assert.NotNil(t, o)
				return
			}
			var missing *MissingArgumentError
			require.ErrorAs(t, err, &missing)
			assert.Equal(t, "[-f|--file]", missing.Arg)
			assert.Equal(t, "Missing argument: [-f|--file]", err.Error())
			assert.Nil(t, o)
		})
	}
}

func TestAnalyzeImagebase(t *testing.T) {
	o, err := analyze(t, []string{"-I", "0xdeadbeef", "-f", "a.bin"})
	require.NoError(t, err)

	v, err := o.Get(OptImagebase)
	require.NoError(t, err)
	assert.Equal(t, uint64(3735928559), v)

	o, err = analyze(t, []string{"-I", "0XFF", "-f", "a.bin"})
	require.NoError(t, err)
	v, _ = o.Get(OptImagebase)
	assert.Equal(t, uint64(255), v)
}

func TestAnalyzeImagebaseInvalid(t *testing.T) {
	for _, value := range []string{"deadbeef", "0x", "0xZZ", "0x1ffffffffffffffff"} {
		t.Run(value, func(t *testing.T) {
			o, err := analyze(t, []string{"-I", value, "-f", "a.bin"})
			assert.Nil(t, o)

			var argErr *ArgumentError
			require.ErrorAs(t, err, &argErr)
			assert.Equal(t, "Imagebase should be in hex (0x.....)", argErr.Error())
			assert.Equal(t, value, argErr.Value)
			assert.Equal(t, CodeInvalidArgument, ErrorCode(err))
		})
	}
}

func TestAnalyzeImagebaseAbsent(t *testing.T) {
	o, err := analyze(t, []string{"-f", "a.bin"})
	require.NoError(t, err)

	v, err := o.Get(OptImagebase)
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestAnalyzeParseError(t *testing.T) {
	o, err := analyze(t, []string{"--no-such-flag"})
	assert.Nil(t, o)

	var parseErr *ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Equal(t, CodeParseFailed, ErrorCode(err))
}

func TestAnalyzeHelp(t *testing.T) {
	_, err := analyze(t, []string{"-h"})
	assert.ErrorIs(t, err, pflag.ErrHelp)
}

func TestAnalyzeCustomParser(t *testing.T) {
	var seen []string
	p := ParserFunc(func(args []string) (map[string]any, error) {
		seen = args
		return map[string]any{OptConsole: true, "custom": 42}, nil
	})

	o, err := Analyze(nil, p, WithForcedColor(false))
	require.NoError(t, err)
	assert.Equal(t, []string{"--console"}, seen)

	v, err := o.Get("custom")
	require.NoError(t, err)
	assert.Equal(t, 42, v)
	assert.True(t, o.Color())
}

func TestAnalyzeParserFailure(t *testing.T) {
	boom := errors.New("grammar exploded")
	p := ParserFunc(func([]string) (map[string]any, error) { return nil, boom })

	_, err := Analyze([]string{"-f", "x"}, p)
	assert.ErrorIs(t, err, boom)
}

func TestAnalyzedOptionsAreGoverned(t *testing.T) {
	o, err := analyze(t, []string{"-f", "a.bin", "--badbytes", "000a", "--detailed"})
	require.NoError(t, err)

	rec := &recorder{}
	o.Subscribe(rec)

	refresh, err := o.SetOption(OptBadbytes, "")
	require.NoError(t, err)
	assert.True(t, refresh)
	require.Len(t, rec.changes, 1)
	assert.Equal(t, change{name: OptBadbytes, old: "000a", new: ""}, rec.changes[0])

	_, err = o.SetOption(OptBadbytes, "zz")
	assert.Equal(t, CodeInvalidOptionValue, ErrorCode(err))
	v, _ := o.GetOption(OptBadbytes)
	assert.Equal(t, "", v)

	v, _ = o.GetOption(OptDetailed)
	assert.Equal(t, true, v)
}

func TestParseImagebase(t *testing.T) {
	tests := []struct {
		in   string
		want uint64
		ok   bool
	}{
		{"0x0", 0, true},
		{"0x08048000", 0x08048000, true},
		{"0Xabc", 0xabc, true},
		{"0xffffffffffffffff", 0xffffffffffffffff, true},
		{"08048000", 0, false},
		{"0x-1", 0, false},
		{"", 0, false},
	}

	for _, tt := range tests {
		got, ok := ParseImagebase(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}
