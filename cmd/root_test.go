package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type result struct {
	code   int
	out    string
	errOut string
}

func runCLI(t *testing.T, stdin string, args ...string) result {
	t.Helper()
	return runWith(t, false, stdin, args...)
}

// runWith runs the command with errTTY telling it whether stderr is a terminal.
func runWith(t *testing.T, errTTY bool, stdin string, args ...string) result {
	t.Helper()
	var out, errOut bytes.Buffer
	code := execute(context.Background(), args, streams{
		in:     strings.NewReader(stdin),
		out:    &out,
		errOut: &errOut,
		errTTY: errTTY,
	})
	return result{code: code, out: out.String(), errOut: errOut.String()}
}

func forceColor(t *testing.T, force bool) {
	t.Helper()
	orig := forcesColor
	forcesColor = func() bool { return force }
	t.Cleanup(func() { forcesColor = orig })
}

func isolateHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	return home
}

func TestRootCommandExitCodes(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		code     int
		expected string
	}{
		{
			name:     "missing mandatory argument",
			args:     []string{"--detailed", "--nocolor"},
			code:     1,
			expected: "Error: Missing argument: [-f|--file]",
		},
		{
			name:     "invalid imagebase",
			args:     []string{"-f", "a.bin", "-I", "08048000", "--nocolor"},
			code:     1,
			expected: "Error: Imagebase should be in hex (0x.....)",
		},
		{
			name:     "unknown flag",
			args:     []string{"--bogus"},
			code:     2,
			expected: "unknown flag: --bogus",
		},
		{
			name:     "stray argument",
			args:     []string{"-f", "a.bin", "extra"},
			code:     2,
			expected: "unrecognized arguments: extra",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolateHome(t)
			res := runCLI(t, "", tt.args...)

			assert.Equal(t, tt.code, res.code)
			assert.Contains(t, res.errOut, tt.expected)
			assert.NotContains(t, res.errOut, "\x1b[", "buffers are not terminals")
		})
	}
}

func TestRootCommandHelp(t *testing.T) {
	isolateHome(t)
	for _, flag := range []string{"-h", "--help"} {
		res := runCLI(t, "", flag)

		assert.Equal(t, 0, res.code, flag)
		assert.Contains(t, res.out, "--inst-count", flag)
		assert.Contains(t, res.out, "--badbytes", flag)
		assert.Contains(t, res.out, "Usage:", flag)
	}
}

func TestRootCommandVersion(t *testing.T) {
	isolateHome(t)
	res := runCLI(t, "", "-v")

	assert.Equal(t, 0, res.code)
	assert.Contains(t, res.out, "Version:")
	assert.Contains(t, res.out, version)
}

func TestRootCommandOneShot(t *testing.T) {
	isolateHome(t)
	res := runCLI(t, "", "-f", "/bin/ls", "--type", "rop", "-I", "0x400000", "--nocolor")

	require.Equal(t, 0, res.code, res.errOut)
	assert.Contains(t, res.out, "Loading gadgets for /bin/ls")
	assert.Contains(t, res.out, "Imagebase: 0x400000")
	assert.Contains(t, res.out, "type        rop")
	assert.NotContains(t, res.out, "\x1b[")
}

func TestRootCommandConsole(t *testing.T) {
	isolateHome(t)
	res := runCLI(t, "settings type jop\nchanges\nsettings inst_count many\nquit\n", "--nocolor")

	require.Equal(t, 0, res.code, res.errOut)
	assert.Contains(t, res.out, "(ropkit)> ")
	assert.Contains(t, res.out, "type = jop")
	assert.Contains(t, res.out, "type       all -> jop")
	assert.Contains(t, res.errOut, "Invalid value for option inst_count: many")
}

func TestRootCommandColoredConsole(t *testing.T) {
	isolateHome(t)
	res := runCLI(t, "settings type sys\n")

	require.Equal(t, 0, res.code, res.errOut)
	assert.Contains(t, res.out, "\x1b[32m")
}

func TestRootCommandAuditFile(t *testing.T) {
	home := isolateHome(t)
	auditFile := filepath.Join(home, "audit.log")
	require.NoError(t, os.MkdirAll(filepath.Join(home, ".ropkit"), 0755))
	require.NoError(t, os.WriteFile(
		filepath.Join(home, ".ropkit", "config.yaml"),
		[]byte("log_level: error\naudit_file: "+auditFile+"\n"),
		0600,
	))

	res := runCLI(t, "settings all on\nsettings detailed on\n", "--console", "--nocolor")
	require.Equal(t, 0, res.code, res.errOut)

	data, err := os.ReadFile(auditFile)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], `"resource":"all"`)
	assert.Contains(t, lines[0], `"action":"set"`)
}

func TestRootCommandInvalidSettings(t *testing.T) {
	home := isolateHome(t)
	require.NoError(t, os.MkdirAll(filepath.Join(home, ".ropkit"), 0755))
	require.NoError(t, os.WriteFile(
		filepath.Join(home, ".ropkit", "config.yaml"),
		[]byte("log_level: loud\n"),
		0600,
	))

	res := runCLI(t, "", "-f", "a.bin")
	assert.Equal(t, 1, res.code)
	assert.Contains(t, res.errOut, "log_level")
}

func TestRootCommandErrorColor(t *testing.T) {
	tests := []struct {
		name    string
		force   bool
		errTTY  bool
		args    []string
		colored bool
	}{
		{
			name:    "terminal",
			errTTY:  true,
			args:    []string{"--bogus"},
			colored: true,
		},
		{
			name:   "terminal with nocolor",
			errTTY: true,
			args:   []string{"--nocolor", "--bogus"},
		},
		{
			name:    "forced color ignores nocolor",
			force:   true,
			errTTY:  true,
			args:    []string{"--nocolor", "--bogus"},
			colored: true,
		},
		{
			name:  "forced color without terminal",
			force: true,
			args:  []string{"--bogus"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolateHome(t)
			forceColor(t, tt.force)
			res := runWith(t, tt.errTTY, "", tt.args...)

			assert.Equal(t, 2, res.code)
			assert.Contains(t, res.errOut, "unknown flag: --bogus")
			if tt.colored {
				assert.Contains(t, res.errOut, "\x1b[31mError:")
			} else {
				assert.NotContains(t, res.errOut, "\x1b[")
			}
		})
	}
}

func TestRootCommandForcedColorConsole(t *testing.T) {
	isolateHome(t)
	forceColor(t, true)
	res := runCLI(t, "settings type sys\n", "--nocolor")

	require.Equal(t, 0, res.code, res.errOut)
	assert.Contains(t, res.out, "\x1b[32m")
}

func TestRootCommandStringTakesNextToken(t *testing.T) {
	isolateHome(t)
	res := runCLI(t, "", "--asm", "jmp", "esp", "--string", "/bin/sh", "--nocolor")

	require.Equal(t, 0, res.code, res.errOut)
	assert.Contains(t, res.out, "Assembling jmp esp")

	res = runCLI(t, "", "--asm", "--nocolor")
	assert.Equal(t, 2, res.code)
	assert.Contains(t, res.errOut, "flag needs an argument: --asm")
}
