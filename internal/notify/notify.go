// Package notify delivers care reminders.
package notify

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/hpungsan/flourish/internal/config"
	"github.com/hpungsan/flourish/internal/observability"
)

// Notification is one reminder.
type Notification struct {
	Title      string    `json:"title"`
	Body       string    `json:"body"`
	ScheduleID string    `json:"schedule_id"`
	PlantName  string    `json:"plant_name"`
	CareType   string    `json:"care_type"`
	Due        time.Time `json:"due"`
}

// Notifier delivers notifications.
type Notifier interface {
	Name() string
	Notify(ctx context.Context, n Notification) error
}

// Log writes reminders to the structured log.
type Log struct {
	logger *slog.Logger
}

// NewLog returns a Log notifier. A nil logger uses slog.Default().
func NewLog(logger *slog.Logger) *Log {
	if logger == nil {
		logger = slog.Default()
	}
	return &Log{logger: logger}
}

// Name implements Notifier.
func (l *Log) Name() string { return "log" }

// Notify implements Notifier.
func (l *Log) Notify(ctx context.Context, n Notification) error {
	l.logger.InfoContext(ctx, n.Title, "body", n.Body, "schedule_id", n.ScheduleID, "due", n.Due.Format(time.DateOnly))
	return nil
}

// Multi fans out to several notifiers, reporting the first error.
type Multi []Notifier

// Name implements Notifier.
func (m Multi) Name() string {
	names := make([]string, 0, len(m))
	for _, n := range m {
		names = append(names, n.Name())
	}
	return strings.Join(names, "+")
}

// Notify implements Notifier. Every notifier is tried.
func (m Multi) Notify(ctx context.Context, n Notification) error {
	var first error
	for _, notifier := range m {
		if err := Send(ctx, notifier, n); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Send delivers through notifier and records the outcome. A Multi is counted
// once per child notifier, not as a whole.
func Send(ctx context.Context, notifier Notifier, n Notification) error {
	if m, ok := notifier.(Multi); ok {
		return m.Notify(ctx, n)
	}
	if err := notifier.Notify(ctx, n); err != nil {
		slog.Warn("reminder delivery failed", "notifier", notifier.Name(), "schedule_id", n.ScheduleID, "error", err)
		return err
	}
	observability.NotificationsSent.WithLabelValues(notifier.Name()).Inc()
	return nil
}

// Permission mirrors the browser notification permission model.
type Permission struct {
	mu    sync.Mutex
	state string
}

// NewPermission starts in the given state; unknown values mean default.
func NewPermission(state string) *Permission {
	switch state {
	case config.NotificationsGranted, config.NotificationsDenied:
	default:
		state = config.NotificationsDefault
	}
	return &Permission{state: state}
}

// Request promotes default to granted. Denied stays denied.
func (p *Permission) Request() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state == config.NotificationsDefault {
		p.state = config.NotificationsGranted
	}
	return p.state
}

// Granted reports whether reminders may be armed.
func (p *Permission) Granted() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state == config.NotificationsGranted
}

// State returns the current permission.
func (p *Permission) State() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}
