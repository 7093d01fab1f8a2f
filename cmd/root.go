// SPDX-License-Identifier: MIT
// Copyright Authors of Gibson

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime/debug"
	"slices"
	"time"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/gibson-sec/ropkit/internal/audit"
	"github.com/gibson-sec/ropkit/internal/config"
	"github.com/gibson-sec/ropkit/internal/console"
	"github.com/gibson-sec/ropkit/internal/options"
	"github.com/gibson-sec/ropkit/internal/render"
	"github.com/gibson-sec/ropkit/internal/slogs"
)

const (
	appName      = config.AppName
	shortAppDesc = "Search binaries for ROP, JOP and syscall gadgets."
	longAppDesc  = "ropkit finds gadgets in ELF, PE, Mach-O and raw binaries. " +
		"Started without a file it opens an interactive console."
)

var version, commit, date = "dev", "dev", "N/A"

// forcesColor is replaced in tests to act like a Windows console.
var forcesColor = options.ForcesColor

// streams are the process streams a command runs on.
type streams struct {
	in     io.Reader
	out    io.Writer
	errOut io.Writer
	// errTTY reports whether errOut is a terminal.
	errTTY bool
}

type flagError struct{ err error }

func (e flagError) Error() string { return e.err.Error() }

func (e flagError) Unwrap() error { return e.err }

func newRootCmd(s streams) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   appName + " [flags]",
		Short: shortAppDesc,
		Long:  longAppDesc,
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, args, s.errTTY)
		},

		// Tokens go to the option analyzer untouched. The flag set is
		// attached for usage output only.
		DisableFlagParsing: true,
		SilenceErrors:      true,
		SilenceUsage:       true,
	}
	rootCmd.Flags().AddFlagSet(options.NewFlagSet(appName))
	rootCmd.SetIn(s.in)
	rootCmd.SetOut(s.out)
	rootCmd.SetErr(s.errOut)
	return rootCmd
}

// Execute root command.
func Execute() {
	std := render.NewStdPrinter(nil)
	os.Exit(execute(context.Background(), os.Args[1:], streams{
		in:     os.Stdin,
		out:    std.Out,
		errOut: std.Err,
		errTTY: terminal(os.Stderr),
	}))
}

// execute runs the root command and returns the process exit code: 0 on
// success, 2 for command line errors and 1 otherwise.
func execute(ctx context.Context, args []string, s streams) int {
	rootCmd := newRootCmd(s)
	rootCmd.SetArgs(args)

	err := rootCmd.ExecuteContext(ctx)
	if err == nil {
		return 0
	}

	// Same rule as the option store: forced color wins over --nocolor.
	colors := render.Fixed(s.errTTY && (forcesColor() || !slices.Contains(args, "--"+options.OptNoColor)))
	render.NewPrinter(s.out, s.errOut, colors).Error(err)
	if errors.As(err, &flagError{}) {
		return 2
	}
	return 1
}

func run(cmd *cobra.Command, args []string, errTTY bool) (err error) {
	// Set up panic recovery
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Boom!! ropkit failed", slogs.Error, r)
			slog.Error("Stack trace", "stack", string(debug.Stack()))
			err = fmt.Errorf("ropkit failed: %v", r)
		}
	}()

	settings, err := config.LoadSettings(viper.New())
	if err != nil {
		return err
	}

	logOut, closeLog, err := openLog(settings.LogFile, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer closeLog()

	logColor := settings.LogFile == "" && errTTY
	slog.SetDefault(newLogger(logOut, settings.Level(), logColor))

	opts, err := options.Analyze(args, options.NewFlagParser(appName),
		options.WithLogger(slog.Default()),
		options.WithForcedColor(forcesColor()),
	)
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return cmd.Help()
		}
		var parseErr *options.ParseError
		if errors.As(err, &parseErr) {
			return flagError{err: err}
		}
		return err
	}

	if logColor && !opts.Color() {
		slog.SetDefault(newLogger(logOut, settings.Level(), false))
		opts.SetLogger(slog.Default())
	}

	printer := render.NewPrinter(cmd.OutOrStdout(), cmd.ErrOrStderr(), opts)
	if opts.Bool(options.OptVersion) {
		printVersion(cmd.OutOrStdout())
		return nil
	}

	trail, err := newTrail(settings)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := trail.Close(); cerr != nil {
			slog.Warn("Failed to close audit trail", slogs.Error, cerr)
		}
	}()
	opts.Subscribe(audit.NewOptionListener(trail))

	if opts.Bool(options.OptConsole) {
		return console.New(opts, printer, trail).Run(cmd.Context(), cmd.InOrStdin())
	}

	summarize(printer, opts)
	return nil
}

// summarize prints what a one-shot run would search with.
func summarize(p *render.Printer, opts *options.Options) {
	switch {
	case opts.Bool(options.OptFile):
		p.Info("Loading gadgets for %s", opts.StringValue(options.OptFile))
	case opts.Bool(options.OptAsm):
		v, _ := opts.Get(options.OptAsm)
		p.Info("Assembling %s", render.FormatValue(v))
	case opts.Bool(options.OptDisasm):
		p.Info("Disassembling %s", opts.StringValue(options.OptDisasm))
	}

	if opts.Has(options.OptImagebase) {
		if v, _ := opts.Get(options.OptImagebase); v != nil {
			p.Plain("Imagebase: %s", render.FormatValue(v))
		}
	}

	names := opts.Governed()
	rows := make([]render.Row, 0, len(names))
	for _, name := range names {
		value, _ := opts.GetOption(name)
		rows = append(rows, render.Row{Name: name, Value: value})
	}
	p.Settings("Options", rows)
}

func newLogger(w io.Writer, level slog.Level, color bool) *slog.Logger {
	return slog.New(tint.NewHandler(w, &tint.Options{
		Level:      level,
		TimeFormat: time.RFC3339,
		NoColor:    !color,
	}))
}

// openLog returns the log destination. An empty path logs to fallback.
func openLog(path string, fallback io.Writer) (io.Writer, func(), error) {
	if path == "" {
		return fallback, func() {}, nil
	}
	logFile, err := os.OpenFile(os.ExpandEnv(path), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, nil, fmt.Errorf("log file %q init failed: %w", path, err)
	}
	return logFile, func() { _ = logFile.Close() }, nil
}

// newTrail keeps changes in memory for the console and, if configured, also
// appends them to the audit file.
func newTrail(settings *config.Settings) (audit.Logger, error) {
	loggers := []audit.Logger{audit.NewMemoryLogger(audit.DefaultMemoryLimit)}
	if settings.AuditFile != "" {
		f, err := os.OpenFile(os.ExpandEnv(settings.AuditFile), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
		if err != nil {
			return nil, fmt.Errorf("failed to open audit log file: %w", err)
		}
		loggers = append(loggers, audit.NewSlogLogger(f))
	}
	return audit.NewCompositeLogger(loggers...), nil
}

func terminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
