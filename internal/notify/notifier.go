// Package notify fans engine events out to operator channels. Senders
// receive the event kind alongside the text so each channel can style
// signals, breaker trips, and position changes differently.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// Event kinds emitted by the services. The notifier config whitelists a
// subset of these so operators receive only the alerts they care about.
const (
	EventSignal   = "signal"
	EventBreaker  = "breaker"
	EventPosition = "position"
)

// Sender is one delivery channel.
type Sender interface {
	// Send delivers one notification. event is one of the Event constants
	// and drives channel-specific styling.
	Send(ctx context.Context, event, title, message string) error
	// Name identifies the channel in logs (e.g. "telegram").
	Name() string
}

// Notifier dispatches notifications to every configured Sender, filtered by
// an allowed-event set.
type Notifier struct {
	senders []Sender
	events  map[string]bool // allowed event kinds
	logger  *slog.Logger
}

// NewNotifier creates a Notifier delivering to the given senders. Only
// events named in the events slice are forwarded; an empty slice allows
// everything.
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

// Notify delivers the notification to every sender if the event kind is
// allowed. Individual sender failures are collected so one dead channel
// never blocks the others.
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

	var errs []string
	for _, s := range n.senders {
		if err := s.Send(ctx, event, title, message); err != nil {
			n.logger.ErrorContext(ctx, "sender failed",
				slog.String("sender", s.Name()),
				slog.String("event", event),
				slog.String("error", err.Error()),
			)
			errs = append(errs, fmt.Sprintf("%s: %v", s.Name(), err))
			continue
		}
		n.logger.DebugContext(ctx, "notification sent",
			slog.String("sender", s.Name()),
			slog.String("event", event),
			slog.String("title", title),
		)
	}

	if len(errs) > 0 {
		return fmt.Errorf("notify: %d sender(s) failed: %s", len(errs), strings.Join(errs, "; "))
	}
	return nil
}
