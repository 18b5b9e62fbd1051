package notify

import (
	"bytes"
	"context"
	stderrors "errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hpungsan/flourish/internal/config"
)

type recordingBroadcaster struct {
	method string
	params map[string]any
}

func (r *recordingBroadcaster) SendNotificationToAllClients(method string, params map[string]any) {
	r.method = method
	r.params = params
}

type failingNotifier struct{ calls int }

func (f *failingNotifier) Name() string { return "failing" }
func (f *failingNotifier) Notify(context.Context, Notification) error {
	f.calls++
	return stderrors.New("no route")
}

var sample = Notification{
	Title:      "Plant Care Reminder",
	Body:       "Time to water your Fern!",
	ScheduleID: "01H",
	PlantName:  "Fern",
	CareType:   "watering",
	Due:        time.Date(2026, 5, 24, 0, 0, 0, 0, time.UTC),
}

func TestPermission(t *testing.T) {
	tests := []struct {
		initial     string
		wantGranted bool
		afterReq    string
	}{
		{config.NotificationsDefault, false, config.NotificationsGranted},
		{"", false, config.NotificationsGranted},
		{"bogus", false, config.NotificationsGranted},
		{config.NotificationsGranted, true, config.NotificationsGranted},
		{config.NotificationsDenied, false, config.NotificationsDenied},
	}

	for _, tt := range tests {
		p := NewPermission(tt.initial)
		if p.Granted() != tt.wantGranted {
			t.Errorf("NewPermission(%q).Granted() = %v, want %v", tt.initial, p.Granted(), tt.wantGranted)
		}
		if got := p.Request(); got != tt.afterReq {
			t.Errorf("NewPermission(%q).Request() = %q, want %q", tt.initial, got, tt.afterReq)
		}
		if p.State() != tt.afterReq {
			t.Errorf("State() = %q after Request", p.State())
		}
	}
}

func TestLog(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	if err := NewLog(logger).Notify(context.Background(), sample); err != nil {
		t.Fatalf("Notify() error = %v", err)
	}
	out := buf.String()
	for _, want := range []string{"Plant Care Reminder", "Time to water your Fern!", "due=2026-05-24"} {
		if !strings.Contains(out, want) {
			t.Errorf("log output %q missing %q", out, want)
		}
	}
}

func TestMCP(t *testing.T) {
	rec := &recordingBroadcaster{}
	if err := NewMCP(rec).Notify(context.Background(), sample); err != nil {
		t.Fatalf("Notify() error = %v", err)
	}
	if rec.method != ReminderMethod {
		t.Errorf("method = %q", rec.method)
	}
	if rec.params["body"] != sample.Body || rec.params["due"] != "2026-05-24" {
		t.Errorf("params = %v", rec.params)
	}
}

func TestMulti(t *testing.T) {
	failing := &failingNotifier{}
	rec := &recordingBroadcaster{}
	m := Multi{failing, NewMCP(rec)}

	if m.Name() != "failing+mcp" {
		t.Errorf("Name() = %q", m.Name())
	}
	if err := m.Notify(context.Background(), sample); err == nil {
		t.Error("Notify() should report the failure")
	}
	if failing.calls != 1 || rec.method == "" {
		t.Error("every notifier should be tried")
	}
}

type namedNotifier struct{ name string }

func (n namedNotifier) Name() string                               { return n.name }
func (n namedNotifier) Notify(context.Context, Notification) error { return nil }

// sentCount reads flourish_notifications_sent_total for one notifier label.
func sentCount(t *testing.T, notifier string) float64 {
	t.Helper()
	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}
	for _, mf := range families {
		if mf.GetName() != "flourish_notifications_sent_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, l := range m.GetLabel() {
				if l.GetName() == "notifier" && l.GetValue() == notifier {
					return m.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}

func TestSend_MultiCountsEachDeliveryOnce(t *testing.T) {
	m := Multi{namedNotifier{"count-a"}, namedNotifier{"count-b"}}

	if err := Send(context.Background(), m, sample); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if got := sentCount(t, "count-a"); got != 1 {
		t.Errorf("count-a sent = %v, want 1", got)
	}
	if got := sentCount(t, "count-b"); got != 1 {
		t.Errorf("count-b sent = %v, want 1", got)
	}
	if got := sentCount(t, "count-a+count-b"); got != 0 {
		t.Errorf("combined label sent = %v, want 0", got)
	}
}
