package ops

import (
	"context"
	"strings"

	"github.com/hpungsan/flourish/internal/care"
	"github.com/hpungsan/flourish/internal/errors"
)

// ScheduleInput is a care schedule as entered by a user, with the date still
// in text form.
type ScheduleInput struct {
	ID            string
	Type          string
	PlantName     string
	FrequencyDays int
	// LastDone is YYYY-MM-DD; empty means today.
	LastDone string
	Notes    string
}

func (in ScheduleInput) schedule() (care.Schedule, error) {
	sch := care.Schedule{
		ID:            strings.TrimSpace(in.ID),
		Type:          care.Type(strings.ToLower(strings.TrimSpace(in.Type))),
		PlantName:     in.PlantName,
		FrequencyDays: in.FrequencyDays,
		Notes:         strings.TrimSpace(in.Notes),
	}
	if strings.TrimSpace(in.LastDone) != "" {
		d, err := care.ParseDate(in.LastDone)
		if err != nil {
			return care.Schedule{}, errors.NewInvalidRequest(err.Error())
		}
		sch.LastDone = d
	}
	return sch, nil
}

// AddSchedule creates a care schedule.
func (s *Service) AddSchedule(ctx context.Context, input ScheduleInput) (care.Status, error) {
	sch, err := input.schedule()
	if err != nil {
		return care.Status{}, err
	}
	sch.ID = ""
	added, err := s.Care.Add(ctx, sch)
	if err != nil {
		return care.Status{}, err
	}
	return care.StatusOf(added, s.clock()), nil
}

// UpdateSchedule replaces a care schedule. Fields left empty keep their
// current values.
func (s *Service) UpdateSchedule(ctx context.Context, input ScheduleInput) (care.Status, error) {
	id := strings.TrimSpace(input.ID)
	if id == "" {
		return care.Status{}, errors.NewInvalidRequest("schedule id is required")
	}
	current, ok := s.Care.Get(id)
	if !ok {
		return care.Status{}, errors.NewNotFound("schedule", id)
	}

	next, err := input.schedule()
	if err != nil {
		return care.Status{}, err
	}
	if next.Type == "" {
		next.Type = current.Type
	}
	if strings.TrimSpace(next.PlantName) == "" {
		next.PlantName = current.PlantName
	}
	if next.FrequencyDays == 0 {
		next.FrequencyDays = current.FrequencyDays
	}
	if next.LastDone.IsZero() {
		next.LastDone = current.LastDone
	}
	if input.Notes == "" {
		next.Notes = current.Notes
	}

	updated, err := s.Care.Update(ctx, next)
	if err != nil {
		return care.Status{}, err
	}
	return care.StatusOf(updated, s.clock()), nil
}

// MarkScheduleDone records the task as done today.
func (s *Service) MarkScheduleDone(ctx context.Context, id string) (care.Status, error) {
	done, err := s.Care.MarkDone(ctx, strings.TrimSpace(id))
	if err != nil {
		return care.Status{}, err
	}
	return care.StatusOf(done, s.clock()), nil
}

// Schedules lists every schedule soonest first, or only due ones.
func (s *Service) Schedules(dueOnly bool) []care.Status {
	if dueOnly {
		return s.Care.Due(s.clock())
	}
	return s.Care.Upcoming(s.clock())
}
