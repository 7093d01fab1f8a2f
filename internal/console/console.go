// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of Gibson

// Package console implements the interactive ropkit prompt
package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/gibson-sec/ropkit/internal/audit"
	"github.com/gibson-sec/ropkit/internal/options"
	"github.com/gibson-sec/ropkit/internal/render"
	"github.com/gibson-sec/ropkit/internal/slogs"
)

// DefaultPrompt is printed before every line of input.
const DefaultPrompt = "(ropkit)> "

// Console reads commands line by line and applies them to the options store.
type Console struct {
	opts    *options.Options
	printer *render.Printer
	trail   audit.Logger
	prompt  string
	logger  *slog.Logger
}

// New creates a console over opts. trail may be nil, in which case the
// changes command reports that nothing is recorded.
func New(opts *options.Options, printer *render.Printer, trail audit.Logger) *Console {
	return &Console{
		opts:    opts,
		printer: printer,
		trail:   trail,
		prompt:  DefaultPrompt,
		logger:  slog.Default().With(slogs.Component, "console"),
	}
}

// SetPrompt changes the prompt text.
func (c *Console) SetPrompt(prompt string) {
	c.prompt = prompt
}

// Run processes commands from in until quit, end of input or cancellation of
// ctx. Command failures are printed and do not stop the loop.
func (c *Console) Run(ctx context.Context, in io.Reader) error {
	scanner := bufio.NewScanner(in)
	for {
		if err := ctx.Err(); err != nil {
			c.printer.Plain("")
			return nil
		}

		fmt.Fprint(c.printer.Out, c.prompt)
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return fmt.Errorf("error reading input: %w", err)
			}
			c.printer.Plain("")
			return nil
		}

		if err := c.processCommand(ctx, scanner.Text()); err != nil {
			if err == io.EOF {
				return nil
			}
			c.printer.Error(err)
		}
	}
}

// processCommand runs one line. io.EOF signals that the user asked to leave.
func (c *Console) processCommand(ctx context.Context, input string) error {
	parts := strings.Fields(input)
	if len(parts) == 0 {
		return nil
	}

	c.logger.Debug("Console command", slogs.Command, parts[0])
	switch strings.ToLower(parts[0]) {
	case "exit", "quit", "q":
		return io.EOF
	case "help":
		c.showHelp()
		return nil
	case "settings":
		return c.settings(parts[1:])
	case "changes":
		return c.changes(ctx)
	case "export":
		return c.export()
	}

	return fmt.Errorf("unknown command '%s'. Type 'help' to see available commands", parts[0])
}

func (c *Console) settings(args []string) error {
	switch len(args) {
	case 0:
		c.showSettings()
		return nil
	case 1:
		value, err := c.opts.GetOption(args[0])
		if err != nil {
			return err
		}
		c.printer.Plain("%s = %s", args[0], render.FormatValue(value))
		return nil
	}

	name := args[0]
	raw := strings.Join(args[1:], " ")
	if raw == `""` || raw == "''" {
		raw = ""
	}

	refresh, err := c.opts.SetOption(name, raw)
	if refresh {
		c.printer.Info("Gadgets will be recomputed with the new %s", name)
	}
	if err != nil {
		return err
	}

	value, _ := c.opts.GetOption(name)
	c.printer.Success("%s = %s", name, render.FormatValue(value))
	return nil
}

func (c *Console) showSettings() {
	names := c.opts.Governed()
	rows := make([]render.Row, 0, len(names))
	for _, name := range names {
		value, _ := c.opts.GetOption(name)
		rows = append(rows, render.Row{Name: name, Value: value})
	}
	c.printer.Settings("Settings", rows)
}

func (c *Console) changes(ctx context.Context) error {
	if c.trail == nil {
		c.printer.Plain("No changes recorded.")
		return nil
	}

	events, err := c.trail.Query(ctx, &audit.QueryFilter{Types: []audit.EventType{audit.EventTypeConfig}})
	if err != nil {
		return fmt.Errorf("failed to read change history: %w", err)
	}
	if len(events) == 0 {
		c.printer.Plain("No changes recorded.")
		return nil
	}

	for _, e := range events {
		c.printer.Plain("%s  %-10s %s -> %s",
			e.Timestamp.Format("15:04:05"),
			e.Resource,
			render.FormatValue(e.Details["old"]),
			render.FormatValue(e.Details["new"]),
		)
	}
	return nil
}

// export prints the governed options as YAML.
func (c *Console) export() error {
	values := make(map[string]any)
	for _, name := range c.opts.Governed() {
		value, _ := c.opts.GetOption(name)
		values[name] = value
	}
	data, err := yaml.Marshal(values)
	if err != nil {
		return fmt.Errorf("failed to export settings: %w", err)
	}
	_, err = c.printer.Out.Write(data)
	return err
}

func (c *Console) showHelp() {
	c.printer.Plain("Console Commands:")
	c.printer.Plain("  settings                 Show the options that can be changed")
	c.printer.Plain("  settings <name>          Show one option")
	c.printer.Plain("  settings <name> <value>  Change an option")
	c.printer.Plain("  changes                  Show the options changed in this session")
	c.printer.Plain("  export                   Print the options as YAML")
	c.printer.Plain("  help                     Show this help message")
	c.printer.Plain("  exit, quit, q            Exit the console")
	c.printer.Plain("")
	c.printer.Plain("Values:")
	c.printer.Plain("  all, detailed, color     on | off")
	c.printer.Plain("  inst_count               a decimal number")
	c.printer.Plain("  badbytes                 hex bytes such as 000a0d, or \"\" for none")
	c.printer.Plain("  type                     %s", strings.Join(options.GadgetTypes, " | "))
}
