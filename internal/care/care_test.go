package care

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hpungsan/flourish/internal/config"
	"github.com/hpungsan/flourish/internal/db"
	"github.com/hpungsan/flourish/internal/errors"
	"github.com/hpungsan/flourish/internal/notify"
)

type memKV struct {
	data map[string][]byte
}

func newMemKV() *memKV { return &memKV{data: map[string][]byte{}} }

func (m *memKV) Get(_ context.Context, key string) ([]byte, bool, error) {
	d, ok := m.data[key]
	return d, ok, nil
}

func (m *memKV) Put(_ context.Context, key string, data []byte) error {
	m.data[key] = append([]byte(nil), data...)
	return nil
}

type fakeTimer struct {
	wait    time.Duration
	fn      func()
	stopped bool
}

func (t *fakeTimer) Stop() bool {
	was := !t.stopped
	t.stopped = true
	return was
}

type fakeClock struct {
	timers []*fakeTimer
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	t := &fakeTimer{wait: d, fn: f}
	c.timers = append(c.timers, t)
	return t
}

func (c *fakeClock) last() *fakeTimer {
	if len(c.timers) == 0 {
		return nil
	}
	return c.timers[len(c.timers)-1]
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []notify.Notification
}

func (r *recordingNotifier) Name() string { return "recording" }

func (r *recordingNotifier) Notify(_ context.Context, n notify.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, n)
	return nil
}

// 09:30 UTC on 17 May.
var t0 = time.Date(2026, 5, 17, 9, 30, 0, 0, time.UTC)

type harness struct {
	s     *Scheduler
	clock *fakeClock
	rec   *recordingNotifier
	perm  *notify.Permission
}

func newHarness(t *testing.T, kv db.Store, permission string) *harness {
	t.Helper()
	h := &harness{clock: &fakeClock{}, rec: &recordingNotifier{}, perm: notify.NewPermission(permission)}
	n := 0
	s, err := Open(context.Background(), kv, Options{
		Notifier:   h.rec,
		Permission: h.perm,
		Now:        func() time.Time { return t0 },
		AfterFunc:  h.clock.AfterFunc,
		NewID: func(time.Time) string {
			n++
			return fmt.Sprintf("s-%d", n)
		},
	})
	require.NoError(t, err)
	t.Cleanup(s.Close)
	h.s = s
	return h
}

func mustDate(t *testing.T, s string) Date {
	t.Helper()
	d, err := ParseDate(s)
	require.NoError(t, err)
	return d
}

func TestDaysUntilDue(t *testing.T) {
	today := DateOf(t0)
	tests := []struct {
		name      string
		lastDone  Date
		frequency int
		want      int
	}{
		{"overdue by three", today.AddDays(-10), 7, -3},
		{"just done", today, 7, 7},
		{"due today", today.AddDays(-7), 7, 0},
		{"due tomorrow", today.AddDays(-2), 3, 1},
		{"daily overdue", today.AddDays(-5), 1, -4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Schedule{Type: Watering, FrequencyDays: tt.frequency, LastDone: tt.lastDone}
			if got := DaysUntilDue(s, t0); got != tt.want {
				t.Errorf("DaysUntilDue() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestDaysUntilDue_IgnoresTimeOfDay(t *testing.T) {
	s := Schedule{Type: Watering, FrequencyDays: 2, LastDone: DateOf(t0)}
	for _, now := range []time.Time{
		time.Date(2026, 5, 17, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 5, 17, 23, 59, 59, 0, time.UTC),
	} {
		if got := DaysUntilDue(s, now); got != 2 {
			t.Errorf("DaysUntilDue(%s) = %d, want 2", now, got)
		}
	}
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"2026-05-17", "2026-05-17", false},
		{" 2026-05-17 ", "2026-05-17", false},
		{"2026-05-17T22:10:00Z", "2026-05-17", false},
		{"2026-05-17T23:10:00-05:00", "2026-05-18", false},
		{"17/05/2026", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		d, err := ParseDate(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseDate(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if d.String() != tt.want {
			t.Errorf("ParseDate(%q) = %q, want %q", tt.in, d.String(), tt.want)
		}
	}
}

func TestStatusLabel(t *testing.T) {
	tests := map[int]string{
		-3: "Overdue by 3 days",
		-1: "Overdue by 1 day",
		0:  "Due today",
		1:  "Due tomorrow",
		5:  "Due in 5 days",
	}
	for days, want := range tests {
		if got := (Status{DaysUntilDue: days}).Label(); got != want {
			t.Errorf("Label(%d) = %q, want %q", days, got, want)
		}
	}
}

func TestAdd_DefaultsAndOrder(t *testing.T) {
	h := newHarness(t, newMemKV(), config.NotificationsDenied)
	ctx := context.Background()

	first, err := h.s.Add(ctx, Schedule{Type: Watering, FrequencyDays: 7})
	require.NoError(t, err)
	require.Equal(t, "s-1", first.ID)
	require.Equal(t, DefaultPlantName, first.PlantName)
	require.Equal(t, DateOf(t0), first.LastDone)
	require.Equal(t, t0, first.CreatedAt)

	second, err := h.s.Add(ctx, Schedule{Type: Pruning, PlantName: "  Rose ", FrequencyDays: 30})
	require.NoError(t, err)
	require.Equal(t, "Rose", second.PlantName)

	list := h.s.List()
	require.Len(t, list, 2)
	require.Equal(t, first.ID, list[0].ID)
	require.Equal(t, second.ID, list[1].ID)
}

func TestAdd_Validation(t *testing.T) {
	h := newHarness(t, newMemKV(), config.NotificationsDenied)
	ctx := context.Background()

	tests := []Schedule{
		{Type: "misting", FrequencyDays: 3},
		{Type: Watering, FrequencyDays: 0},
		{Type: Watering, FrequencyDays: -2},
	}
	for _, sch := range tests {
		_, err := h.s.Add(ctx, sch)
		require.True(t, errors.Is(err, errors.ErrInvalidRequest), "Add(%+v) error = %v", sch, err)
	}
	require.Empty(t, h.s.List())
}

func TestMarkDone(t *testing.T) {
	h := newHarness(t, newMemKV(), config.NotificationsDenied)
	ctx := context.Background()

	sch, err := h.s.Add(ctx, Schedule{Type: Fertilizing, PlantName: "Fern", FrequencyDays: 14, LastDone: DateOf(t0).AddDays(-20)})
	require.NoError(t, err)
	require.Equal(t, -6, DaysUntilDue(sch, t0))

	done, err := h.s.MarkDone(ctx, sch.ID)
	require.NoError(t, err)
	require.Equal(t, DateOf(t0), done.LastDone)
	require.Equal(t, 14, done.FrequencyDays)
	require.Equal(t, 14, DaysUntilDue(done, t0))

	got, ok := h.s.Get(sch.ID)
	require.True(t, ok)
	require.Equal(t, done, got)
}

func TestMissingIDs(t *testing.T) {
	h := newHarness(t, newMemKV(), config.NotificationsDenied)
	ctx := context.Background()

	_, err := h.s.Update(ctx, Schedule{ID: "nope", Type: Watering, FrequencyDays: 1})
	require.True(t, errors.Is(err, errors.ErrNotFound))
	_, err = h.s.MarkDone(ctx, "nope")
	require.True(t, errors.Is(err, errors.ErrNotFound))
	require.True(t, errors.Is(h.s.Delete(ctx, "nope"), errors.ErrNotFound))
}

func TestUpdate_ReplacesAndKeepsCreatedAt(t *testing.T) {
	h := newHarness(t, newMemKV(), config.NotificationsDenied)
	ctx := context.Background()

	sch, err := h.s.Add(ctx, Schedule{Type: Watering, PlantName: "Fern", FrequencyDays: 7, Notes: "rainwater"})
	require.NoError(t, err)

	updated, err := h.s.Update(ctx, Schedule{ID: sch.ID, Type: Repotting, PlantName: "Fern", FrequencyDays: 365})
	require.NoError(t, err)
	require.Equal(t, sch.CreatedAt, updated.CreatedAt)
	require.Equal(t, Repotting, updated.Type)
	require.Empty(t, updated.Notes)
	require.Equal(t, DateOf(t0), updated.LastDone)
}

func TestReminder_ArmedAndFired(t *testing.T) {
	h := newHarness(t, newMemKV(), config.NotificationsGranted)
	ctx := context.Background()

	sch, err := h.s.Add(ctx, Schedule{Type: Watering, PlantName: "Fern", FrequencyDays: 7})
	require.NoError(t, err)
	require.True(t, h.s.IsArmed(sch.ID))

	timer := h.clock.last()
	require.NotNil(t, timer)
	// Due at midnight on 24 May.
	require.Equal(t, 6*24*time.Hour+14*time.Hour+30*time.Minute, timer.wait)

	timer.fn()
	require.Len(t, h.rec.sent, 1)
	n := h.rec.sent[0]
	require.Equal(t, ReminderTitle, n.Title)
	require.Equal(t, "Time to water your Fern!", n.Body)
	require.Equal(t, sch.ID, n.ScheduleID)
	require.Equal(t, time.Date(2026, 5, 24, 0, 0, 0, 0, time.UTC), n.Due)
	require.False(t, h.s.IsArmed(sch.ID))
}

func TestReminder_PermissionRequestedOnAdd(t *testing.T) {
	h := newHarness(t, newMemKV(), config.NotificationsDefault)

	_, err := h.s.Add(context.Background(), Schedule{Type: Pruning, PlantName: "Rose", FrequencyDays: 10})
	require.NoError(t, err)
	require.Equal(t, config.NotificationsGranted, h.perm.State())
	require.Equal(t, 1, h.s.Armed())
}

func TestReminder_NotArmedWhenDeniedOrOverdue(t *testing.T) {
	ctx := context.Background()

	denied := newHarness(t, newMemKV(), config.NotificationsDenied)
	_, err := denied.s.Add(ctx, Schedule{Type: Watering, FrequencyDays: 3})
	require.NoError(t, err)
	require.Equal(t, 0, denied.s.Armed())
	require.Empty(t, denied.clock.timers)

	granted := newHarness(t, newMemKV(), config.NotificationsGranted)
	_, err = granted.s.Add(ctx, Schedule{Type: Watering, FrequencyDays: 3, LastDone: DateOf(t0).AddDays(-3)})
	require.NoError(t, err)
	require.Equal(t, 0, granted.s.Armed(), "a reminder due today has already passed midnight")
}

func TestReminder_DeleteClearsTimer(t *testing.T) {
	h := newHarness(t, newMemKV(), config.NotificationsGranted)
	ctx := context.Background()

	sch, err := h.s.Add(ctx, Schedule{Type: Watering, PlantName: "Fern", FrequencyDays: 2})
	require.NoError(t, err)
	timer := h.clock.last()

	require.NoError(t, h.s.Delete(ctx, sch.ID))
	require.True(t, timer.stopped)
	require.Equal(t, 0, h.s.Armed())

	// A callback that raced the stop must not deliver.
	timer.fn()
	require.Empty(t, h.rec.sent)
}

func TestReminder_UpdateAndMarkDoneRearm(t *testing.T) {
	h := newHarness(t, newMemKV(), config.NotificationsGranted)
	ctx := context.Background()

	sch, err := h.s.Add(ctx, Schedule{Type: Watering, PlantName: "Fern", FrequencyDays: 2})
	require.NoError(t, err)
	first := h.clock.last()

	sch.FrequencyDays = 5
	_, err = h.s.Update(ctx, sch)
	require.NoError(t, err)
	second := h.clock.last()
	require.True(t, first.stopped)
	require.NotSame(t, first, second)

	_, err = h.s.MarkDone(ctx, sch.ID)
	require.NoError(t, err)
	third := h.clock.last()
	require.True(t, second.stopped)
	require.Equal(t, 1, h.s.Armed())

	// Only the current timer delivers.
	first.fn()
	second.fn()
	require.Empty(t, h.rec.sent)
	third.fn()
	require.Len(t, h.rec.sent, 1)
}

func TestClose_StopsTimers(t *testing.T) {
	h := newHarness(t, newMemKV(), config.NotificationsGranted)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, err := h.s.Add(ctx, Schedule{Type: Watering, FrequencyDays: i + 1})
		require.NoError(t, err)
	}
	require.Equal(t, 3, h.s.Armed())

	h.s.Close()
	require.Equal(t, 0, h.s.Armed())
	for _, timer := range h.clock.timers {
		require.True(t, timer.stopped)
	}
}

func TestDueAndUpcoming(t *testing.T) {
	h := newHarness(t, newMemKV(), config.NotificationsDenied)
	ctx := context.Background()
	today := DateOf(t0)

	add := func(name string, freq, ago int) {
		_, err := h.s.Add(ctx, Schedule{Type: Watering, PlantName: name, FrequencyDays: freq, LastDone: today.AddDays(-ago)})
		require.NoError(t, err)
	}
	add("later", 7, 0)    // 7
	add("overdue", 3, 8)  // -5
	add("today", 4, 4)    // 0
	add("tomorrow", 2, 1) // 1

	var names []string
	for _, st := range h.s.Upcoming(t0) {
		names = append(names, st.PlantName)
	}
	require.Equal(t, []string{"overdue", "today", "tomorrow", "later"}, names)

	due := h.s.Due(t0)
	require.Len(t, due, 2)
	require.Equal(t, "overdue", due[0].PlantName)
	require.Equal(t, -5, due[0].DaysUntilDue)
	require.Equal(t, today.AddDays(-5), due[0].NextDue)
	require.Equal(t, "today", due[1].PlantName)

	require.Len(t, h.s.ForPlant("TODAY"), 1)
	require.Empty(t, h.s.ForPlant("cactus"))
}

func TestOpen_LegacySnapshot(t *testing.T) {
	kv := newMemKV()
	kv.data[db.SchedulesKey] = []byte(`[{"id":1715935800000,"type":"watering","plantName":"Fern","frequency":3,"lastDone":"2026-05-10","notes":"","createdAt":"2026-05-10T08:00:00.000Z"}]`)

	h := newHarness(t, kv, config.NotificationsGranted)
	list := h.s.List()
	require.Len(t, list, 1)
	require.Equal(t, "1715935800000", list[0].ID)
	require.Equal(t, 3, list[0].FrequencyDays)
	require.Equal(t, mustDate(t, "2026-05-10"), list[0].LastDone)
	require.Equal(t, 0, h.s.Armed(), "loaded schedules are not re-armed")

	// Legacy ids stay addressable.
	_, err := h.s.MarkDone(context.Background(), "1715935800000")
	require.NoError(t, err)

	var env struct {
		Version int               `json:"version"`
		Items   []json.RawMessage `json:"items"`
	}
	require.NoError(t, json.Unmarshal(kv.data[db.SchedulesKey], &env))
	require.Equal(t, db.SnapshotVersion, env.Version)
	require.Contains(t, string(env.Items[0]), `"frequencyDays":3`)
	require.Contains(t, string(env.Items[0]), `"lastDone":"2026-05-17"`)
}

func TestOpen_RepairsMissingFrequency(t *testing.T) {
	kv := newMemKV()
	kv.data[db.SchedulesKey] = []byte(`[
		{"id":1,"type":"watering","plantName":"Fern","frequency":null,"lastDone":"2026-05-10"},
		{"id":2,"type":"pruning","plantName":"Fern","frequencyDays":-4,"lastDone":"2026-05-10"}
	]`)

	h := newHarness(t, kv, config.NotificationsDenied)
	list := h.s.List()
	require.Len(t, list, 2)
	for _, sch := range list {
		require.Equal(t, DefaultFrequencyDays, sch.FrequencyDays)
	}

	// Repaired schedules stay editable.
	sch := list[0]
	sch.Notes = "mist too"
	_, err := h.s.Update(context.Background(), sch)
	require.NoError(t, err)
}

func TestOpen_CorruptSnapshot(t *testing.T) {
	kv := newMemKV()
	kv.data[db.SchedulesKey] = []byte(`{"version":1,"items":[{"id":`)

	h := newHarness(t, kv, config.NotificationsDenied)
	require.Empty(t, h.s.List())

	_, err := h.s.Add(context.Background(), Schedule{Type: Watering, FrequencyDays: 1})
	require.NoError(t, err)
	require.Len(t, h.s.List(), 1)
}

func TestOpen_NewerSnapshotRefused(t *testing.T) {
	kv := newMemKV()
	stored := `{"version":2,"items":[{"id":"keep-me","type":"watering","frequencyDays":3}]}`
	kv.data[db.SchedulesKey] = []byte(stored)

	s, err := Open(context.Background(), kv, Options{})
	require.Error(t, err)
	require.Nil(t, s)
	require.True(t, errors.Is(err, errors.ErrConfiguration))
	require.Equal(t, stored, string(kv.data[db.SchedulesKey]))
}

func TestRoundTrip(t *testing.T) {
	database, err := db.Init(t.TempDir())
	require.NoError(t, err)
	defer database.Close()
	kv := db.NewKV(database)
	ctx := context.Background()

	h := newHarness(t, kv, config.NotificationsDenied)
	_, err = h.s.Add(ctx, Schedule{Type: Watering, PlantName: "Fern", FrequencyDays: 3, Notes: "bottom water"})
	require.NoError(t, err)
	_, err = h.s.Add(ctx, Schedule{Type: Repotting, PlantName: "Pothos", FrequencyDays: 365, LastDone: mustDate(t, "2025-09-01")})
	require.NoError(t, err)

	reopened := newHarness(t, kv, config.NotificationsDenied)
	require.Equal(t, h.s.List(), reopened.s.List())
}
