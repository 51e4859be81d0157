// Package notify delivers fire-and-forget event notifications. Failures
// are logged by callers and never roll back the transition that triggered
// them.
package notify

import "context"

// Notifier publishes an event for a recipient. Implementations must be
// safe for concurrent use.
type Notifier interface {
	Notify(ctx context.Context, recipientRef, eventType string, payload any) error
}

// Nop is a Notifier that discards every event.
type Nop struct{}

// Notify implements Notifier.
func (Nop) Notify(context.Context, string, string, any) error { return nil }
