package ops

import (
	"context"
	"strings"

	"github.com/hpungsan/flourish/internal/advice"
	"github.com/hpungsan/flourish/internal/analysis"
	"github.com/hpungsan/flourish/internal/errors"
	"github.com/hpungsan/flourish/internal/garden"
)

// AdviseInput contains parameters for the Advise operation. The plant comes
// either from a saved garden plant (PlantID) or from Plant/Health directly.
type AdviseInput struct {
	PlantID  string
	Plant    *analysis.PlantInfo
	Health   *analysis.HealthInfo
	Question string
	// Save stores initial advice as the garden plant's care tips.
	Save bool
}

// AdviseOutput is generated advice.
type AdviseOutput struct {
	Mode   string `json:"mode"`
	Advice string `json:"advice"`
	Saved  bool   `json:"saved,omitempty"`
}

// Advise generates initial advice, or a chat reply when Question is set.
func (s *Service) Advise(ctx context.Context, input AdviseInput) (*AdviseOutput, error) {
	plant, health := input.Plant, input.Health

	var saved *garden.Plant
	if id := strings.TrimSpace(input.PlantID); id != "" {
		p, ok := s.Garden.Get(id)
		if !ok {
			return nil, errors.NewNotFound("plant", id)
		}
		saved = &p
		plant, health = plantInfoOf(p), p.HealthInfo
	}

	text, err := s.Advisor.GenerateAdvice(ctx, plant, health, input.Question)
	if err != nil {
		return nil, err
	}

	out := &AdviseOutput{Mode: advice.ModeInitial, Advice: text}
	if strings.TrimSpace(input.Question) != "" {
		out.Mode = advice.ModeChat
		return out, nil
	}
	if input.Save && saved != nil {
		if _, err := s.Garden.Update(ctx, saved.ID, garden.Patch{CareTips: &text}); err != nil {
			return nil, err
		}
		out.Saved = true
	}
	return out, nil
}

// plantInfoOf returns the stored snapshot, or a minimal one built from the
// plant's own fields for entries saved without an analysis.
func plantInfoOf(p garden.Plant) *analysis.PlantInfo {
	if p.PlantInfo != nil {
		return p.PlantInfo
	}
	return &analysis.PlantInfo{
		ID:             p.ID,
		Name:           p.Name,
		ScientificName: p.ScientificName,
		CommonNames:    []string{},
		Confidence:     1,
	}
}
