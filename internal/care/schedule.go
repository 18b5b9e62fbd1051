// Package care tracks recurring care tasks, their due dates and the
// reminder timers armed for them.
package care

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Type is the kind of care task.
type Type string

const (
	Watering    Type = "watering"
	Fertilizing Type = "fertilizing"
	Pruning     Type = "pruning"
	Repotting   Type = "repotting"
)

// Types lists the valid care types.
var Types = []Type{Watering, Fertilizing, Pruning, Repotting}

// Valid reports whether t is a known care type.
func (t Type) Valid() bool {
	switch t {
	case Watering, Fertilizing, Pruning, Repotting:
		return true
	}
	return false
}

// Verb is the imperative used in reminder text.
func (t Type) Verb() string {
	switch t {
	case Watering:
		return "water"
	case Fertilizing:
		return "fertilize"
	case Pruning:
		return "prune"
	case Repotting:
		return "repot"
	}
	return "care for"
}

// Schedule is a recurring care task for a plant, linked to the garden only
// by PlantName.
type Schedule struct {
	ID            string    `json:"id"`
	Type          Type      `json:"type"`
	PlantName     string    `json:"plantName"`
	FrequencyDays int       `json:"frequencyDays"`
	LastDone      Date      `json:"lastDone"`
	Notes         string    `json:"notes,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

// NextDue is LastDone plus FrequencyDays.
func (s Schedule) NextDue() Date {
	return s.LastDone.AddDays(s.FrequencyDays)
}

// DaysUntilDue returns the days from today to the next due date. Negative
// means overdue, zero means due today.
func DaysUntilDue(s Schedule, today time.Time) int {
	return s.NextDue().DaysSince(DateOf(today))
}

// UnmarshalJSON accepts the older browser layout as well: numeric ids and a
// "frequency" field.
func (s *Schedule) UnmarshalJSON(data []byte) error {
	type plain Schedule
	var aux struct {
		plain
		ID        json.RawMessage `json:"id"`
		Frequency *int            `json:"frequency"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*s = Schedule(aux.plain)

	id, err := rawID(aux.ID)
	if err != nil {
		return err
	}
	s.ID = id
	if s.FrequencyDays == 0 && aux.Frequency != nil {
		s.FrequencyDays = *aux.Frequency
	}
	return nil
}

func rawID(raw json.RawMessage) (string, error) {
	text := strings.TrimSpace(string(raw))
	if text == "" || text == "null" {
		return "", nil
	}
	if text[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", err
		}
		return s, nil
	}
	if _, err := strconv.ParseFloat(text, 64); err != nil {
		return "", fmt.Errorf("invalid schedule id %s", text)
	}
	return text, nil
}

// Status is a schedule with its derived due values.
type Status struct {
	Schedule
	NextDue      Date `json:"nextDue"`
	DaysUntilDue int  `json:"daysUntilDue"`
}

// StatusOf derives the due values for today.
func StatusOf(s Schedule, today time.Time) Status {
	return Status{Schedule: s, NextDue: s.NextDue(), DaysUntilDue: DaysUntilDue(s, today)}
}

// Label describes the due state, e.g. "Overdue by 3 days".
func (st Status) Label() string {
	switch d := st.DaysUntilDue; {
	case d < -1:
		return fmt.Sprintf("Overdue by %d days", -d)
	case d == -1:
		return "Overdue by 1 day"
	case d == 0:
		return "Due today"
	case d == 1:
		return "Due tomorrow"
	default:
		return fmt.Sprintf("Due in %d days", d)
	}
}
