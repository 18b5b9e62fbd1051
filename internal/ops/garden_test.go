package ops

import (
	"context"
	"testing"

	"github.com/hpungsan/flourish/internal/analysis"
	"github.com/hpungsan/flourish/internal/errors"
	"github.com/hpungsan/flourish/internal/garden"
)

func TestAddPlant(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	p, err := f.svc.AddPlant(ctx, AddPlantInput{Name: "  Fern ", ScientificName: "Nephrolepis exaltata"})
	if err != nil {
		t.Fatalf("AddPlant() error = %v", err)
	}
	if p.Name != "Fern" || p.Type != "Nephrolepis exaltata" {
		t.Errorf("plant = %+v", p)
	}
	if p.CareTips != garden.DefaultCareTips {
		t.Errorf("CareTips = %q, want default", p.CareTips)
	}

	_, err = f.svc.AddPlant(ctx, AddPlantInput{Name: "  "})
	if !errors.Is(err, errors.ErrInvalidRequest) {
		t.Errorf("blank name error = %v, want INVALID_REQUEST", err)
	}
}

func TestListPlants(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	fern, _ := f.svc.AddPlant(ctx, AddPlantInput{Name: "Fern", Type: "Fern"})
	_, _ = f.svc.AddPlant(ctx, AddPlantInput{Name: "Pothos", Type: "Epipremnum aureum"})
	sick, _ := f.svc.Garden.Add(ctx, garden.Plant{
		Name: "Basil",
		HealthInfo: &analysis.HealthInfo{
			Diseases: []analysis.Disease{{Name: "Downy mildew"}},
		},
	})
	if _, err := f.svc.MarkCare(ctx, fern.ID, CareWater); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name  string
		input ListPlantsInput
		want  int
	}{
		{"all", ListPlantsInput{}, 3},
		{"healthy", ListPlantsInput{Filter: FilterHealthy}, 2},
		{"needs care", ListPlantsInput{Filter: FilterNeedsCare}, 2},
		{"type match", ListPlantsInput{Type: "EPIPREMNUM"}, 1},
		{"type and filter", ListPlantsInput{Filter: FilterNeedsCare, Type: "fern"}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := f.svc.ListPlants(tt.input)
			if err != nil {
				t.Fatalf("ListPlants() error = %v", err)
			}
			if len(got) != tt.want {
				t.Errorf("len = %d, want %d", len(got), tt.want)
			}
		})
	}

	if _, err := f.svc.ListPlants(ListPlantsInput{Filter: "thirsty"}); !errors.Is(err, errors.ErrInvalidRequest) {
		t.Errorf("unknown filter error = %v, want INVALID_REQUEST", err)
	}
	if got, _ := f.svc.ListPlants(ListPlantsInput{Filter: FilterHealthy}); len(got) > 0 && got[0].ID == sick.ID {
		t.Error("diseased plant listed as healthy")
	}
}

func TestPlantMutations_NotFound(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	name := "Renamed"

	if _, err := f.svc.GetPlant("nope"); !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("GetPlant error = %v", err)
	}
	if _, err := f.svc.UpdatePlant(ctx, "nope", garden.Patch{Name: &name}); !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("UpdatePlant error = %v", err)
	}
	if err := f.svc.RemovePlant(ctx, "nope"); !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("RemovePlant error = %v", err)
	}
	if _, err := f.svc.MarkCare(ctx, "nope", CarePrune); !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("MarkCare error = %v", err)
	}
}

func TestMarkCare(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p, _ := f.svc.AddPlant(ctx, AddPlantInput{Name: "Fern"})

	for _, action := range []string{CareWater, "Fertilize", " prune "} {
		if _, err := f.svc.MarkCare(ctx, p.ID, action); err != nil {
			t.Fatalf("MarkCare(%q) error = %v", action, err)
		}
	}
	got, _ := f.svc.GetPlant(p.ID)
	if got.LastWatered == nil || got.LastFertilized == nil || got.LastPruned == nil {
		t.Errorf("care dates not all set: %+v", got)
	}

	if _, err := f.svc.MarkCare(ctx, p.ID, "repot"); !errors.Is(err, errors.ErrInvalidRequest) {
		t.Errorf("unknown action error = %v, want INVALID_REQUEST", err)
	}
}
