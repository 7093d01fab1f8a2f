// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of Gibson

// Package options holds the runtime options of ropkit: the values parsed from
// the command line, the validated set of options a user may change later, and
// the listeners that react to those changes.
package options

import (
	"log/slog"
	"maps"

	"github.com/gibson-sec/ropkit/internal/slogs"
)

// OptNoColor is the stored form of the color option.
const OptNoColor = "nocolor"

// Options is the single store of option values for a run.
//
// Reads and writes come in two tiers. Get and Set work on any name and are
// used by the analyzer and the engine. GetOption and SetOption only accept
// governed names, validate values through the registry and notify listeners.
type Options struct {
	values   map[string]any
	registry Registry
	notifier *Notifier
	hooks    map[string][]func(value any)
	color    bool
	logger   *slog.Logger
}

type settings struct {
	registry   Registry
	logger     *slog.Logger
	forceColor *bool
}

// Setting configures New and Analyze.
type Setting func(*settings)

// WithRegistry replaces the default validator registry.
func WithRegistry(r Registry) Setting {
	return func(s *settings) { s.registry = r }
}

// WithLogger sets the logger used for option diagnostics.
func WithLogger(l *slog.Logger) Setting {
	return func(s *settings) { s.logger = l }
}

func buildSettings(opts []Setting) *settings {
	s := &settings{}
	for _, opt := range opts {
		opt(s)
	}
	if s.registry == nil {
		s.registry = DefaultRegistry()
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// New creates an empty store with color enabled.
func New(opts ...Setting) *Options {
	return newOptions(buildSettings(opts))
}

func newOptions(s *settings) *Options {
	o := &Options{
		values:   make(map[string]any),
		registry: s.registry,
		notifier: NewNotifier(),
		hooks:    make(map[string][]func(value any)),
		color:    true,
		logger:   s.logger.With(slogs.Component, "options"),
	}
	o.AfterSet(OptNoColor, func(value any) {
		o.color = !truthy(value)
	})
	return o
}

// AfterSet registers fn to run after every write of name.
func (o *Options) AfterSet(name string, fn func(value any)) {
	o.hooks[name] = append(o.hooks[name], fn)
}

// Set stores value under name without validation.
// Writing color stores the inverted value as nocolor.
func (o *Options) Set(name string, value any) {
	if name == OptColor {
		name, value = OptNoColor, !truthy(value)
	}
	o.values[name] = value
	for _, hook := range o.hooks[name] {
		hook(value)
	}
}

// Get returns the value stored under name. The value may be nil for options
// the parser knows about but which were not given.
func (o *Options) Get(name string) (any, error) {
	if name == OptColor {
		return o.color, nil
	}
	value, ok := o.values[name]
	if !ok {
		return nil, &UnknownOptionError{Name: name}
	}
	return value, nil
}

// Has reports whether name has been stored.
func (o *Options) Has(name string) bool {
	_, ok := o.values[name]
	return ok
}

// GetOption reads a governed option.
func (o *Options) GetOption(name string) (any, error) {
	if _, ok := o.registry.Lookup(name); !ok {
		return nil, &InvalidOptionError{Name: name}
	}
	return o.Get(name)
}

// SetOption validates raw and applies it to the governed option name.
//
// The returned flag reports whether the engine must recompute its gadgets.
// Listeners only run for changes flagged that way. If a listener fails, its
// error is returned unchanged together with refresh set: the new value has
// already been stored and is not rolled back.
func (o *Options) SetOption(name, raw string) (refresh bool, err error) {
	validate, ok := o.registry.Lookup(name)
	if !ok {
		return false, &InvalidOptionError{Name: name}
	}

	old, _ := o.Get(name)
	result := validate(o, raw)
	if !result.Accepted {
		o.logger.Debug("Option value rejected", slogs.Option, name, slogs.Value, raw)
		return false, &InvalidOptionValueError{Name: name, Value: raw}
	}

	updated, _ := o.Get(name)
	o.logger.Debug("Option updated", slogs.Option, name, slogs.Old, old, slogs.New, updated)
	if !result.Broadcast {
		return false, nil
	}

	if err := o.notifier.Notify(name, old, updated); err != nil {
		o.logger.Warn("Option listener failed", slogs.Option, name, slogs.Error, err)
		return true, err
	}
	return true, nil
}

// SetLogger replaces the logger used for option diagnostics.
func (o *Options) SetLogger(l *slog.Logger) {
	o.logger = l.With(slogs.Component, "options")
}

// Color reports whether colored output is enabled.
func (o *Options) Color() bool {
	return o.color
}

// Governed returns the names accepted by GetOption and SetOption, sorted.
func (o *Options) Governed() []string {
	return o.registry.Names()
}

// Snapshot returns a copy of all stored values.
func (o *Options) Snapshot() map[string]any {
	return maps.Clone(o.values)
}

// Subscribe registers l for broadcast option changes.
func (o *Options) Subscribe(l Listener) {
	o.notifier.Subscribe(l)
}

// Unsubscribe removes the first registration of l.
func (o *Options) Unsubscribe(l Listener) error {
	return o.notifier.Unsubscribe(l)
}

// Bool reports whether name holds a value the command line would count as given.
func (o *Options) Bool(name string) bool {
	v, _ := o.Get(name)
	return truthy(v)
}

// StringValue returns the value of name as a string; absent and non-string values are "".
func (o *Options) StringValue(name string) string {
	v, _ := o.Get(name)
	s, _ := v.(string)
	return s
}

// truthy mirrors how the command line treats presence: false, nil, zero and
// empty values count as not given.
func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case []string:
		return len(t) > 0
	case int:
		return t != 0
	case uint64:
		return t != 0
	default:
		return true
	}
}
