// Package notify delivers operator alerts about debate outcomes and recovery
// runs to one or more webhook channels (Telegram, Discord). Operators choose
// which event types they care about via configuration.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// Sender is one delivery channel.
type Sender interface {
	// Send delivers a notification with the given title and message body.
	Send(ctx context.Context, title, message string) error
	// Name identifies the channel in logs and errors (e.g. "telegram").
	Name() string
}

// Notifier fans a notification out to every configured sender, filtered by
// event type. With no senders configured it is a no-op, which lets callers
// hold a Notifier unconditionally.
type Notifier struct {
	senders []Sender
	events  map[string]bool // empty means every event type passes
	logger  *slog.Logger
}

// NewNotifier creates a Notifier delivering to the given senders. When events
// is non-empty only those event types are forwarded.
func NewNotifier(senders []Sender, events []string, logger *slog.Logger) *Notifier {
	allowed := make(map[string]bool, len(events))
	for _, e := range events {
		allowed[strings.TrimSpace(e)] = true
	}
	return &Notifier{
		senders: senders,
		events:  allowed,
		logger:  logger.With(slog.String("component", "notifier")),
	}
}

// Notify sends to every sender if the event type passes the filter. A failed
// sender does not stop delivery to the rest; failures are joined into one
// error.
func (n *Notifier) Notify(ctx context.Context, event, title, message string) error {
	if len(n.events) > 0 && !n.events[event] {
		n.logger.DebugContext(ctx, "event filtered out",
			slog.String("event", event),
		)
		return nil
	}
	if len(n.senders) == 0 {
		return nil
	}

	var errs []error
	for _, s := range n.senders {
		if err := s.Send(ctx, title, message); err != nil {
			n.logger.ErrorContext(ctx, "sender failed",
				slog.String("sender", s.Name()),
				slog.String("event", event),
				slog.String("error", err.Error()),
			)
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
			continue
		}
		n.logger.DebugContext(ctx, "notification sent",
			slog.String("sender", s.Name()),
			slog.String("event", event),
		)
	}
	if len(errs) > 0 {
		return fmt.Errorf("notify: %w", errors.Join(errs...))
	}
	return nil
}
