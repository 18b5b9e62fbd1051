package care

import (
	"context"
	"crypto/rand"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/hpungsan/flourish/internal/db"
	"github.com/hpungsan/flourish/internal/errors"
	"github.com/hpungsan/flourish/internal/notify"
	"github.com/hpungsan/flourish/internal/observability"
)

// DefaultPlantName is used when a schedule is added without a plant name.
const DefaultPlantName = "My Plant"

// ReminderTitle is the title of every care reminder.
const ReminderTitle = "Plant Care Reminder"

// Timer is a stoppable one-shot timer.
type Timer interface {
	Stop() bool
}

// AfterFunc arms f to run once after d.
type AfterFunc func(d time.Duration, f func()) Timer

func stdAfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// DefaultFrequencyDays replaces a missing or non-positive frequency in stored
// schedules.
const DefaultFrequencyDays = 7

// Options configures a Scheduler. Zero values get working defaults; a nil
// Notifier or Permission disables reminders.
type Options struct {
	Notifier   notify.Notifier
	Permission *notify.Permission
	Now        func() time.Time
	AfterFunc  AfterFunc
	NewID      func(time.Time) string
}

type reminder struct {
	timer Timer
	gen   uint64
}

// Scheduler owns the care schedule collection and the reminder timers armed
// for it. Timers live only as long as the Scheduler.
type Scheduler struct {
	mu        sync.Mutex
	kv        db.Store
	schedules []Schedule

	armed map[string]reminder
	gen   uint64

	notifier   notify.Notifier
	permission *notify.Permission
	now        func() time.Time
	afterFunc  AfterFunc
	newID      func(time.Time) string
}

// Open loads schedules from kv. Unreadable snapshot data is logged and
// replaced by an empty collection. Storage failures and snapshots written by
// a newer build are returned. Reminders
// are not re-armed for loaded schedules.
func Open(ctx context.Context, kv db.Store, opts Options) (*Scheduler, error) {
	s := &Scheduler{
		kv:         kv,
		armed:      make(map[string]reminder),
		notifier:   opts.Notifier,
		permission: opts.Permission,
		now:        opts.Now,
		afterFunc:  opts.AfterFunc,
		newID:      opts.NewID,
	}
	if s.now == nil {
		s.now = func() time.Time { return time.Now().UTC() }
	}
	if s.afterFunc == nil {
		s.afterFunc = stdAfterFunc
	}
	if s.newID == nil {
		s.newID = func(t time.Time) string {
			return ulid.MustNew(ulid.Timestamp(t), rand.Reader).String()
		}
	}

	schedules, _, err := db.LoadItems[Schedule](ctx, kv, db.SchedulesKey)
	if err != nil {
		if errors.Is(err, errors.ErrInternal) || errors.Is(err, errors.ErrConfiguration) {
			return nil, err
		}
		slog.Warn("schedule snapshot unreadable, starting empty", "error", err)
		schedules = []Schedule{}
	}
	for i := range schedules {
		if schedules[i].FrequencyDays < 1 {
			slog.Warn("schedule has no usable frequency, using default",
				"id", schedules[i].ID, "frequency_days", schedules[i].FrequencyDays, "default", DefaultFrequencyDays)
			schedules[i].FrequencyDays = DefaultFrequencyDays
		}
	}
	s.schedules = schedules
	return s, nil
}

// SetNotifier changes where reminders are delivered. Reminders already armed
// use the new notifier when they fire.
func (s *Scheduler) SetNotifier(n notify.Notifier) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifier = n
}

// Close stops every armed reminder.
func (s *Scheduler) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id := range s.armed {
		s.disarmLocked(id)
	}
}

func (s *Scheduler) today() Date {
	return DateOf(s.now())
}

func (s *Scheduler) validate(sch *Schedule) error {
	if !sch.Type.Valid() {
		return errors.NewInvalidRequest("care type must be one of watering, fertilizing, pruning, repotting")
	}
	if sch.FrequencyDays < 1 {
		return errors.NewInvalidRequest("frequency must be at least 1 day")
	}
	sch.PlantName = strings.TrimSpace(sch.PlantName)
	if sch.PlantName == "" {
		sch.PlantName = DefaultPlantName
	}
	if sch.LastDone.IsZero() {
		sch.LastDone = s.today()
	}
	return nil
}

func (s *Scheduler) commit(ctx context.Context, next []Schedule) error {
	if err := db.SaveItems(ctx, s.kv, db.SchedulesKey, next); err != nil {
		return err
	}
	s.schedules = next
	return nil
}

// Add appends a schedule and arms its reminder. The first add asks for
// notification permission.
func (s *Scheduler) Add(ctx context.Context, sch Schedule) (Schedule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.validate(&sch); err != nil {
		return Schedule{}, err
	}
	now := s.now()
	if sch.ID == "" {
		sch.ID = s.newID(now)
	} else if s.indexOf(sch.ID) >= 0 {
		return Schedule{}, errors.NewInvalidRequest("schedule id already exists: " + sch.ID)
	}
	if sch.CreatedAt.IsZero() {
		sch.CreatedAt = now
	}

	next := make([]Schedule, 0, len(s.schedules)+1)
	next = append(next, s.schedules...)
	next = append(next, sch)
	if err := s.commit(ctx, next); err != nil {
		return Schedule{}, err
	}

	if s.permission != nil {
		s.permission.Request()
	}
	s.armLocked(sch)
	slog.Debug("schedule add", "id", sch.ID, "type", sch.Type, "plant", sch.PlantName)
	return sch, nil
}

// Update replaces the schedule with the same id and re-arms its reminder.
func (s *Scheduler) Update(ctx context.Context, sch Schedule) (Schedule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(sch.ID)
	if i < 0 {
		return Schedule{}, errors.NewNotFound("schedule", sch.ID)
	}
	if err := s.validate(&sch); err != nil {
		return Schedule{}, err
	}
	sch.CreatedAt = s.schedules[i].CreatedAt

	next := make([]Schedule, len(s.schedules))
	copy(next, s.schedules)
	next[i] = sch
	if err := s.commit(ctx, next); err != nil {
		return Schedule{}, err
	}
	s.armLocked(sch)
	return sch, nil
}

// Delete removes a schedule and clears its reminder.
func (s *Scheduler) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return errors.NewNotFound("schedule", id)
	}
	next := make([]Schedule, 0, len(s.schedules)-1)
	next = append(next, s.schedules[:i]...)
	next = append(next, s.schedules[i+1:]...)
	if err := s.commit(ctx, next); err != nil {
		return err
	}
	s.disarmLocked(id)
	return nil
}

// MarkDone sets LastDone to today and re-arms the reminder. FrequencyDays is
// unchanged.
func (s *Scheduler) MarkDone(ctx context.Context, id string) (Schedule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return Schedule{}, errors.NewNotFound("schedule", id)
	}
	sch := s.schedules[i]
	sch.LastDone = s.today()

	next := make([]Schedule, len(s.schedules))
	copy(next, s.schedules)
	next[i] = sch
	if err := s.commit(ctx, next); err != nil {
		return Schedule{}, err
	}
	s.armLocked(sch)
	return sch, nil
}

// armLocked replaces any reminder for sch with one firing at its due
// instant. Nothing is armed without permission or when the instant has
// passed. Caller holds mu.
func (s *Scheduler) armLocked(sch Schedule) {
	s.disarmLocked(sch.ID)
	if s.notifier == nil || s.permission == nil || !s.permission.Granted() {
		return
	}
	wait := sch.NextDue().Time().Sub(s.now())
	if wait <= 0 {
		return
	}

	s.gen++
	gen := s.gen
	id := sch.ID
	s.armed[id] = reminder{timer: s.afterFunc(wait, func() { s.fire(id, gen) }), gen: gen}
	observability.ArmedReminders.Set(float64(len(s.armed)))
	slog.Debug("reminder armed", "id", id, "in", wait.Round(time.Second).String())
}

func (s *Scheduler) disarmLocked(id string) {
	r, ok := s.armed[id]
	if !ok {
		return
	}
	r.timer.Stop()
	delete(s.armed, id)
	observability.ArmedReminders.Set(float64(len(s.armed)))
}

// fire delivers the reminder for id if it is still the one armed.
func (s *Scheduler) fire(id string, gen uint64) {
	s.mu.Lock()
	r, ok := s.armed[id]
	if !ok || r.gen != gen {
		s.mu.Unlock()
		return
	}
	delete(s.armed, id)
	observability.ArmedReminders.Set(float64(len(s.armed)))
	i := s.indexOf(id)
	if i < 0 {
		s.mu.Unlock()
		return
	}
	sch := s.schedules[i]
	notifier := s.notifier
	s.mu.Unlock()

	_ = notify.Send(context.Background(), notifier, Reminder(sch))
}

// Reminder builds the notification for a schedule.
func Reminder(sch Schedule) notify.Notification {
	return notify.Notification{
		Title:      ReminderTitle,
		Body:       "Time to " + sch.Type.Verb() + " your " + sch.PlantName + "!",
		ScheduleID: sch.ID,
		PlantName:  sch.PlantName,
		CareType:   string(sch.Type),
		Due:        sch.NextDue().Time(),
	}
}

// Armed reports how many reminders are pending.
func (s *Scheduler) Armed() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.armed)
}

// IsArmed reports whether a reminder is pending for id.
func (s *Scheduler) IsArmed(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.armed[id]
	return ok
}

func (s *Scheduler) indexOf(id string) int {
	for i := range s.schedules {
		if s.schedules[i].ID == id {
			return i
		}
	}
	return -1
}

// Get returns the schedule with id.
func (s *Scheduler) Get(id string) (Schedule, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexOf(id); i >= 0 {
		return s.schedules[i], true
	}
	return Schedule{}, false
}

// List returns schedules in insertion order.
func (s *Scheduler) List() []Schedule {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Schedule, len(s.schedules))
	copy(out, s.schedules)
	return out
}

// ForPlant returns schedules whose plant name matches name, ignoring case.
func (s *Scheduler) ForPlant(name string) []Schedule {
	name = strings.TrimSpace(name)
	var out []Schedule
	for _, sch := range s.List() {
		if strings.EqualFold(sch.PlantName, name) {
			out = append(out, sch)
		}
	}
	return out
}

// Upcoming returns every schedule with its due values, soonest first.
func (s *Scheduler) Upcoming(today time.Time) []Status {
	list := s.List()
	out := make([]Status, 0, len(list))
	for _, sch := range list {
		out = append(out, StatusOf(sch, today))
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].DaysUntilDue < out[j].DaysUntilDue
	})
	return out
}

// Due returns schedules due today or overdue, most overdue first.
func (s *Scheduler) Due(today time.Time) []Status {
	var out []Status
	for _, st := range s.Upcoming(today) {
		if st.DaysUntilDue > 0 {
			break
		}
		out = append(out, st)
	}
	return out
}

// Today is the scheduler's current date.
func (s *Scheduler) Today() time.Time {
	return s.now()
}
