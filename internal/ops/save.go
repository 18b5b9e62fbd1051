package ops

import (
	"context"
	"strings"

	"github.com/hpungsan/flourish/internal/analysis"
	"github.com/hpungsan/flourish/internal/errors"
	"github.com/hpungsan/flourish/internal/garden"
)

// SaveInput contains parameters for the SaveToGarden operation.
type SaveInput struct {
	Result *analysis.Result
	// Name overrides the identified name.
	Name string
	// Image is a data URI of the analysed photo.
	Image string
	Notes string
}

// SaveToGarden stores an analysis result as a new garden plant. The type is
// the scientific name, falling back to the name; care tips are the advice.
func (s *Service) SaveToGarden(ctx context.Context, input SaveInput) (garden.Plant, error) {
	if input.Result == nil {
		return garden.Plant{}, errors.NewInvalidRequest("no analysis result to save")
	}
	info := input.Result.PlantInfo
	health := input.Result.HealthInfo

	name := strings.TrimSpace(input.Name)
	if name == "" {
		name = info.Name
	}
	plant := garden.Plant{
		Name:           name,
		ScientificName: info.ScientificName,
		Type:           typeOf(info.ScientificName, name),
		Image:          input.Image,
		CareTips:       input.Result.Advice,
		Notes:          input.Notes,
		PlantInfo:      &info,
		HealthInfo:     &health,
	}
	return s.Garden.Add(ctx, plant)
}

func typeOf(scientific, name string) string {
	if s := strings.TrimSpace(scientific); s != "" && s != "Unknown species" {
		return s
	}
	return strings.TrimSpace(name)
}
