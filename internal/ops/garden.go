package ops

import (
	"context"
	"strings"

	"github.com/hpungsan/flourish/internal/errors"
	"github.com/hpungsan/flourish/internal/garden"
)

// Care actions accepted by MarkCare.
const (
	CareWater     = "water"
	CareFertilize = "fertilize"
	CarePrune     = "prune"
)

// PlantFilter selects which garden plants ListPlants returns.
type PlantFilter string

const (
	FilterAll       PlantFilter = "all"
	FilterHealthy   PlantFilter = "healthy"
	FilterNeedsCare PlantFilter = "needs_care"
)

// AddPlantInput contains parameters for the AddPlant operation.
type AddPlantInput struct {
	Name           string
	ScientificName string
	// Type defaults to the scientific name, then the name.
	Type     string
	CareTips string
	Notes    string
}

// AddPlant saves a plant entered directly, without an analysis.
func (s *Service) AddPlant(ctx context.Context, input AddPlantInput) (garden.Plant, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return garden.Plant{}, errors.NewInvalidRequest("plant name is required")
	}
	typ := strings.TrimSpace(input.Type)
	if typ == "" {
		typ = typeOf(input.ScientificName, name)
	}
	return s.Garden.Add(ctx, garden.Plant{
		Name:           name,
		ScientificName: strings.TrimSpace(input.ScientificName),
		Type:           typ,
		CareTips:       strings.TrimSpace(input.CareTips),
		Notes:          strings.TrimSpace(input.Notes),
	})
}

// ListPlantsInput contains parameters for the ListPlants operation.
type ListPlantsInput struct {
	Filter PlantFilter
	// Type keeps plants whose type contains this text, ignoring case.
	Type string
}

// ListPlants returns garden plants, newest first.
func (s *Service) ListPlants(input ListPlantsInput) ([]garden.Plant, error) {
	var plants []garden.Plant
	switch input.Filter {
	case "", FilterAll:
		plants = s.Garden.List()
	case FilterHealthy:
		plants = s.Garden.Healthy()
	case FilterNeedsCare:
		plants = s.Garden.NeedingCare()
	default:
		return nil, errors.NewInvalidRequest("filter must be one of all, healthy, needs_care")
	}

	q := strings.ToLower(strings.TrimSpace(input.Type))
	if q == "" {
		return plants, nil
	}
	out := plants[:0:0]
	for _, p := range plants {
		if strings.Contains(strings.ToLower(p.Type), q) {
			out = append(out, p)
		}
	}
	return out, nil
}

// GetPlant returns one garden plant.
func (s *Service) GetPlant(id string) (garden.Plant, error) {
	id = strings.TrimSpace(id)
	p, ok := s.Garden.Get(id)
	if !ok {
		return garden.Plant{}, errors.NewNotFound("plant", id)
	}
	return p, nil
}

// UpdatePlant merges patch into a garden plant.
func (s *Service) UpdatePlant(ctx context.Context, id string, patch garden.Patch) (garden.Plant, error) {
	id = strings.TrimSpace(id)
	p, err := s.Garden.Update(ctx, id, patch)
	if err != nil {
		return garden.Plant{}, err
	}
	if p == nil {
		return garden.Plant{}, errors.NewNotFound("plant", id)
	}
	return *p, nil
}

// RemovePlant deletes a garden plant. Schedules naming it are kept.
func (s *Service) RemovePlant(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	removed, err := s.Garden.Remove(ctx, id)
	if err != nil {
		return err
	}
	if !removed {
		return errors.NewNotFound("plant", id)
	}
	return nil
}

// MarkCare records a water, fertilize or prune action for a plant now.
func (s *Service) MarkCare(ctx context.Context, id, action string) (garden.Plant, error) {
	var mark func(context.Context, string) (*garden.Plant, error)
	switch strings.ToLower(strings.TrimSpace(action)) {
	case CareWater:
		mark = s.Garden.MarkWatered
	case CareFertilize:
		mark = s.Garden.MarkFertilized
	case CarePrune:
		mark = s.Garden.MarkPruned
	default:
		return garden.Plant{}, errors.NewInvalidRequest("care action must be one of water, fertilize, prune")
	}

	id = strings.TrimSpace(id)
	p, err := mark(ctx, id)
	if err != nil {
		return garden.Plant{}, err
	}
	if p == nil {
		return garden.Plant{}, errors.NewNotFound("plant", id)
	}
	return *p, nil
}
