// Package garden is the persisted collection of saved plants.
//
// The whole collection is the unit of consistency: every mutation rewrites
// the full snapshot, and the in-memory copy only changes once that write
// succeeds.
package garden

import (
	"context"
	"crypto/rand"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/hpungsan/flourish/internal/analysis"
	"github.com/hpungsan/flourish/internal/db"
	"github.com/hpungsan/flourish/internal/errors"
)

// NeedsCareAfter is how long since the last watering before a plant is
// listed as needing care.
const NeedsCareAfter = 7 * 24 * time.Hour

// Defaults for fields the caller leaves empty.
const (
	DefaultName     = "Unknown Plant"
	DefaultType     = "Unknown"
	DefaultCareTips = "No care tips available"
)

// Plant is a saved garden entry.
type Plant struct {
	ID             string               `json:"id"`
	Name           string               `json:"name"`
	ScientificName string               `json:"scientificName,omitempty"`
	Type           string               `json:"type"`
	Image          string               `json:"image,omitempty"`
	CareTips       string               `json:"careTips,omitempty"`
	Notes          string               `json:"notes,omitempty"`
	PlantInfo      *analysis.PlantInfo  `json:"plantInfo,omitempty"`
	HealthInfo     *analysis.HealthInfo `json:"healthInfo,omitempty"`
	CreatedAt      time.Time            `json:"createdAt"`
	LastWatered    *time.Time           `json:"lastWatered"`
	LastFertilized *time.Time           `json:"lastFertilized"`
	LastPruned     *time.Time           `json:"lastPruned"`
}

// Healthy reports whether no diseases are recorded.
func (p Plant) Healthy() bool {
	return p.HealthInfo == nil || !p.HealthInfo.HasDiseases()
}

// NeedsCare reports whether the plant was never watered or not within
// NeedsCareAfter of now.
func (p Plant) NeedsCare(now time.Time) bool {
	return p.LastWatered == nil || p.LastWatered.Before(now.Add(-NeedsCareAfter))
}

// Patch holds the fields Update changes. Nil fields are left alone.
type Patch struct {
	Name           *string
	ScientificName *string
	Type           *string
	Image          *string
	CareTips       *string
	Notes          *string
	HealthInfo     *analysis.HealthInfo
	LastWatered    *time.Time
	LastFertilized *time.Time
	LastPruned     *time.Time
}

// Store owns the plant collection. Mutations are serialized.
type Store struct {
	mu     sync.Mutex
	kv     db.Store
	plants []Plant

	now   func() time.Time
	newID func(time.Time) string
}

// Open loads the collection from kv. Unreadable snapshot data is logged and
// replaced by an empty collection. Storage failures and snapshots written by a
// newer build are returned, so the stored data is never overwritten.
func Open(ctx context.Context, kv db.Store) (*Store, error) {
	s := &Store{
		kv:    kv,
		now:   func() time.Time { return time.Now().UTC() },
		newID: newULID,
	}

	plants, version, err := db.LoadItems[Plant](ctx, kv, db.GardenKey)
	if err != nil {
		if errors.Is(err, errors.ErrInternal) || errors.Is(err, errors.ErrConfiguration) {
			return nil, err
		}
		slog.Warn("garden snapshot unreadable, starting empty", "error", err)
		plants = []Plant{}
	}
	for i := range plants {
		normalize(&plants[i])
	}
	if version < db.SnapshotVersion && len(plants) > 0 {
		slog.Info("garden snapshot will be upgraded on next write", "from_version", version, "plants", len(plants))
	}
	s.plants = plants
	return s, nil
}

func newULID(t time.Time) string {
	return ulid.MustNew(ulid.Timestamp(t), rand.Reader).String()
}

// normalize restores the field invariants. Older snapshots may lack a type.
func normalize(p *Plant) {
	if strings.TrimSpace(p.Name) == "" {
		p.Name = DefaultName
	}
	if p.ScientificName == "" && p.PlantInfo != nil {
		p.ScientificName = p.PlantInfo.ScientificName
	}
	if strings.TrimSpace(p.Type) == "" {
		p.Type = typeFor(p.ScientificName, p.Name)
	}
}

func typeFor(scientific, name string) string {
	if s := strings.TrimSpace(scientific); s != "" {
		return s
	}
	if n := strings.TrimSpace(name); n != "" {
		return n
	}
	return DefaultType
}

// commit persists next and swaps it in. Caller holds mu.
func (s *Store) commit(ctx context.Context, next []Plant) error {
	if err := db.SaveItems(ctx, s.kv, db.GardenKey, next); err != nil {
		return err
	}
	s.plants = next
	return nil
}

// Add prepends a plant, assigning ID and CreatedAt when absent.
func (s *Store) Add(ctx context.Context, p Plant) (Plant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if p.ID == "" {
		p.ID = s.newID(now)
	} else if s.indexOf(p.ID) >= 0 {
		return Plant{}, errors.NewInvalidRequest("plant id already exists: " + p.ID)
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	if strings.TrimSpace(p.CareTips) == "" {
		p.CareTips = DefaultCareTips
	}
	normalize(&p)

	next := make([]Plant, 0, len(s.plants)+1)
	next = append(next, p)
	next = append(next, s.plants...)
	if err := s.commit(ctx, next); err != nil {
		return Plant{}, err
	}
	slog.Debug("garden add", "id", p.ID, "type", p.Type)
	return p, nil
}

// Remove deletes a plant. A missing id is a no-op and reports false.
func (s *Store) Remove(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return false, nil
	}
	next := make([]Plant, 0, len(s.plants)-1)
	next = append(next, s.plants[:i]...)
	next = append(next, s.plants[i+1:]...)
	if err := s.commit(ctx, next); err != nil {
		return false, err
	}
	return true, nil
}

// Update merges patch into a plant. A missing id is a no-op and returns nil.
func (s *Store) Update(ctx context.Context, id string, patch Patch) (*Plant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return nil, nil
	}

	p := s.plants[i]
	setString(&p.Name, patch.Name)
	setString(&p.ScientificName, patch.ScientificName)
	setString(&p.Type, patch.Type)
	setString(&p.Image, patch.Image)
	setString(&p.CareTips, patch.CareTips)
	setString(&p.Notes, patch.Notes)
	if patch.HealthInfo != nil {
		p.HealthInfo = patch.HealthInfo
	}
	setTime(&p.LastWatered, patch.LastWatered)
	setTime(&p.LastFertilized, patch.LastFertilized)
	setTime(&p.LastPruned, patch.LastPruned)
	normalize(&p)

	next := make([]Plant, len(s.plants))
	copy(next, s.plants)
	next[i] = p
	if err := s.commit(ctx, next); err != nil {
		return nil, err
	}
	return &p, nil
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setTime(dst **time.Time, v *time.Time) {
	if v != nil {
		t := v.UTC()
		*dst = &t
	}
}

// MarkWatered records a watering now.
func (s *Store) MarkWatered(ctx context.Context, id string) (*Plant, error) {
	now := s.now()
	return s.Update(ctx, id, Patch{LastWatered: &now})
}

// MarkFertilized records a feeding now.
func (s *Store) MarkFertilized(ctx context.Context, id string) (*Plant, error) {
	now := s.now()
	return s.Update(ctx, id, Patch{LastFertilized: &now})
}

// MarkPruned records a pruning now.
func (s *Store) MarkPruned(ctx context.Context, id string) (*Plant, error) {
	now := s.now()
	return s.Update(ctx, id, Patch{LastPruned: &now})
}

func (s *Store) indexOf(id string) int {
	for i := range s.plants {
		if s.plants[i].ID == id {
			return i
		}
	}
	return -1
}

// Get returns the plant with id.
func (s *Store) Get(id string) (Plant, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if i := s.indexOf(id); i >= 0 {
		return s.plants[i], true
	}
	return Plant{}, false
}

// List returns all plants, newest first.
func (s *Store) List() []Plant {
	return s.filter(func(Plant) bool { return true })
}

// ByType returns plants whose type contains query, case-insensitively.
func (s *Store) ByType(query string) []Plant {
	q := strings.ToLower(strings.TrimSpace(query))
	return s.filter(func(p Plant) bool {
		return strings.Contains(strings.ToLower(p.Type), q)
	})
}

// Healthy returns plants with no recorded diseases.
func (s *Store) Healthy() []Plant {
	return s.filter(Plant.Healthy)
}

// NeedingCare returns plants not watered within NeedsCareAfter.
func (s *Store) NeedingCare() []Plant {
	now := s.now()
	return s.filter(func(p Plant) bool { return p.NeedsCare(now) })
}

// Total returns the number of plants.
func (s *Store) Total() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.plants)
}

// Stats summarises the collection.
type Stats struct {
	Total       int `json:"total"`
	Healthy     int `json:"healthy"`
	NeedingCare int `json:"needing_care"`
}

// Stats counts plants in one pass.
func (s *Store) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	st := Stats{Total: len(s.plants)}
	for _, p := range s.plants {
		if p.Healthy() {
			st.Healthy++
		}
		if p.NeedsCare(now) {
			st.NeedingCare++
		}
	}
	return st
}

func (s *Store) filter(keep func(Plant) bool) []Plant {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Plant, 0, len(s.plants))
	for _, p := range s.plants {
		if keep(p) {
			out = append(out, p)
		}
	}
	return out
}
