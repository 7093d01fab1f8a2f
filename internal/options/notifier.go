// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of Gibson

package options

// Listener is notified after an accepted, broadcast option change.
// Listeners are matched by ==, so implementations must be comparable;
// pointer receivers are the usual choice.
type Listener interface {
	OptionChanged(name string, old, new any) error
}

type funcListener struct {
	fn func(name string, old, new any) error
}

func (l *funcListener) OptionChanged(name string, old, new any) error {
	return l.fn(name, old, new)
}

// OnChange adapts fn into a Listener. Keep the returned value to unsubscribe later.
func OnChange(fn func(name string, old, new any) error) Listener {
	return &funcListener{fn: fn}
}

// Notifier fans option changes out to its listeners in registration order.
type Notifier struct {
	listeners []Listener
}

// NewNotifier creates an empty notifier.
func NewNotifier() *Notifier {
	return &Notifier{}
}

// Subscribe appends a listener. Duplicates are kept and notified twice.
func (n *Notifier) Subscribe(l Listener) {
	n.listeners = append(n.listeners, l)
}

// Unsubscribe removes the first registration of l.
func (n *Notifier) Unsubscribe(l Listener) error {
	victim := -1
	for i, lis := range n.listeners {
		if lis == l {
			victim = i
			break
		}
	}
	if victim < 0 {
		return ErrListenerNotFound
	}

	// Build a fresh slice so a pass already iterating a snapshot is unaffected.
	listeners := make([]Listener, 0, len(n.listeners)-1)
	listeners = append(listeners, n.listeners[:victim]...)
	n.listeners = append(listeners, n.listeners[victim+1:]...)
	return nil
}

// Len returns the number of registered listeners.
func (n *Notifier) Len() int {
	return len(n.listeners)
}

// Notify calls every listener registered when the pass starts.
// The first listener error stops the pass and is returned as is.
func (n *Notifier) Notify(name string, old, new any) error {
	listeners := make([]Listener, len(n.listeners))
	copy(listeners, n.listeners)

	for _, l := range listeners {
		if err := l.OptionChanged(name, old, new); err != nil {
			return err
		}
	}
	return nil
}
