// Package notify abstracts user-facing notifications. The desktop build can
// plug in a native toast implementation; the default implementation writes
// to the log so headless runs still surface the same information.
package notify

import (
	"context"

	"github.com/aussiephantom/blinkapp-desktop/internal/logging"
)

// Notifier surfaces short user-facing messages outside the main UI flow.
type Notifier interface {
	// Notify shows a message. onClick, when non-nil, runs if the user
	// activates the notification. Implementations are best-effort;
	// failures must not affect the calling flow.
	Notify(ctx context.Context, title, body string, onClick func())
}

// LogNotifier writes notifications to the application log. It has no
// activation surface, so onClick is ignored.
type LogNotifier struct {
	log logging.Logger
}

// NewLogNotifier returns a Notifier backed by the given logger.
func NewLogNotifier(log logging.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) Notify(ctx context.Context, title, body string, onClick func()) {
	n.log.Info(ctx, "notification", "title", title, "body", body)
}

// Discard is a Notifier that drops everything. Useful in tests.
type Discard struct{}

func (Discard) Notify(context.Context, string, string, func()) {}
