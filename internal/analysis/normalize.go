package analysis

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/hpungsan/flourish/internal/errors"
	"github.com/hpungsan/flourish/internal/plantid"
)

// DefaultHealthScore is assumed when the provider ran no health check.
const DefaultHealthScore = 0.95

// Normalize converts a provider response into a Result without advice.
// The is_plant binary flag is authoritative: a true flag with a tiny
// probability is still accepted.
func Normalize(raw *plantid.Response, now time.Time) (*Result, error) {
	if raw == nil || raw.Result == nil || raw.Result.IsPlant == nil || !raw.Result.IsPlant.Binary {
		prob := 0.0
		if raw != nil && raw.Result != nil && raw.Result.IsPlant != nil {
			prob = raw.Result.IsPlant.Probability
		}
		return nil, errors.NewNoPlantDetected(prob)
	}

	if raw.Result.Classification == nil || len(raw.Result.Classification.Suggestions) == 0 {
		return nil, errors.NewNoSpeciesIdentified()
	}

	plant := plantInfoFrom(raw.Result.Classification.Suggestions, raw.AccessToken)
	health := classifyHealth(raw.Result).info()

	return &Result{
		PlantInfo:                 plant,
		HealthInfo:                health,
		Insights:                  Insights(plant, health),
		IsPlantDetected:           true,
		PlantDetectionProbability: raw.Result.IsPlant.Probability,
		Metadata: Metadata{
			AccessToken: raw.AccessToken,
			CustomID:    customID(raw.CustomID),
			APIVersion:  APIVersion,
			Source:      SourcePlantID,
			Timestamp:   now.UTC(),
		},
	}, nil
}

// DetailsOf reads a detail lookup response into the top suggestion's
// PlantInfo, extended details included.
func DetailsOf(raw *plantid.Response) (*PlantInfo, error) {
	if raw == nil || raw.Result == nil || raw.Result.Classification == nil || len(raw.Result.Classification.Suggestions) == 0 {
		return nil, errors.NewNoSpeciesIdentified()
	}
	info := plantInfoFrom(raw.Result.Classification.Suggestions, raw.AccessToken)
	return &info, nil
}

func plantInfoFrom(suggestions []plantid.Suggestion, accessToken string) PlantInfo {
	top := suggestions[0]

	scientific := top.Name
	if scientific == "" {
		scientific = "Unknown species"
	}

	var commonNames []string
	var details *PlantDetails
	if top.Details != nil {
		commonNames = append(commonNames, top.Details.CommonNames...)
		details = plantDetailsFrom(top.Details)
	}
	if commonNames == nil {
		commonNames = []string{}
	}

	name := top.Name
	if len(commonNames) > 0 && strings.TrimSpace(commonNames[0]) != "" {
		name = commonNames[0]
	}
	if name == "" {
		name = "Unknown plant"
	}

	end := len(suggestions)
	if end > MaxAlternatives+1 {
		end = MaxAlternatives + 1
	}
	alternatives := make([]Alternative, 0, end-1)
	for _, s := range suggestions[1:end] {
		alternatives = append(alternatives, Alternative{ID: s.ID, Name: s.Name, Probability: s.Probability})
	}

	return PlantInfo{
		ID:             top.ID,
		Name:           name,
		ScientificName: scientific,
		CommonNames:    commonNames,
		Confidence:     top.Probability,
		Alternatives:   alternatives,
		Details:        details,
		SimilarImages:  similarImagesFrom(top.SimilarImages),
		AccessToken:    accessToken,
	}
}

func plantDetailsFrom(d *plantid.Details) *PlantDetails {
	out := &PlantDetails{
		Description: d.Description,
		URL:         d.URL,
		Taxonomy:    d.Taxonomy,
		Synonyms:    d.Synonyms,
		Toxicity:    d.Toxicity,
	}
	if d.Image != nil {
		out.ImageURL = d.Image.Value
	}
	if out.Description == "" && out.URL == "" && len(out.Taxonomy) == 0 && out.ImageURL == "" &&
		len(out.Synonyms) == 0 && out.Toxicity == "" {
		return nil
	}
	return out
}

func similarImagesFrom(in []plantid.SimilarImage) []SimilarImage {
	if len(in) == 0 {
		return nil
	}
	out := make([]SimilarImage, 0, len(in))
	for _, img := range in {
		out = append(out, SimilarImage{
			URL:        img.URL,
			URLSmall:   img.URLSmall,
			Similarity: img.Similarity,
			Citation:   img.Citation,
		})
	}
	return out
}

// healthAssessment is either an assessed result or the unassessed default.
type healthAssessment interface {
	info() HealthInfo
}

type unassessed struct{}

type assessed struct {
	healthy     bool
	probability float64
	diseases    []Disease
	question    *FollowUpQuestion
}

func classifyHealth(r *plantid.Result) healthAssessment {
	if !r.HasHealth() {
		return unassessed{}
	}

	a := assessed{healthy: true, probability: DefaultHealthScore}
	if r.IsHealthy != nil {
		a.healthy = r.IsHealthy.Binary
		a.probability = r.IsHealthy.Probability
	}
	if r.Disease != nil {
		a.diseases = diseasesFrom(r.Disease.Suggestions)
		a.question = questionFrom(r.Disease.Question, r.Disease.Suggestions)
	}
	return a
}

func (unassessed) info() HealthInfo {
	return HealthInfo{
		Assessed:        false,
		IsHealthy:       true,
		HealthScore:     DefaultHealthScore,
		Status:          StatusHealthy,
		Diseases:        []Disease{},
		Recommendations: []string{"No health assessment data available", "Plant appears normal"},
		Summary:         "No health assessment was run for this image.",
	}
}

func (a assessed) info() HealthInfo {
	status := StatusHealthy
	if !a.healthy {
		status = StatusNeedsAttention
	}
	diseases := a.diseases
	if diseases == nil {
		diseases = []Disease{}
	}
	return HealthInfo{
		Assessed:         true,
		IsHealthy:        a.healthy,
		HealthScore:      a.probability,
		Status:           status,
		Diseases:         diseases,
		FollowUpQuestion: a.question,
		Recommendations:  Recommendations(a.healthy, diseases),
		Summary:          Summary(a.healthy, diseases),
	}
}

func diseasesFrom(suggestions []plantid.Suggestion) []Disease {
	out := make([]Disease, 0, len(suggestions))
	for _, s := range suggestions {
		if s.Redundant {
			continue
		}
		name := s.Name
		if name == "" {
			name = "Unknown issue"
		}
		d := Disease{
			ID:            s.ID,
			Name:          name,
			Probability:   s.Probability,
			Severity:      SeverityFor(s.Probability),
			SimilarImages: similarImagesFrom(s.SimilarImages),
		}
		if s.Details != nil {
			d.Description = string(s.Details.Description)
			d.Cause = string(s.Details.Cause)
			if t := s.Details.Treatment; t != nil {
				d.Treatment = &Treatment{Biological: t.Biological, Chemical: t.Chemical, Prevention: t.Prevention}
			}
		}
		out = append(out, d)
	}
	return out
}

func questionFrom(q *plantid.Question, suggestions []plantid.Suggestion) *FollowUpQuestion {
	if q == nil || strings.TrimSpace(q.Text) == "" {
		return nil
	}
	text := q.Text
	if q.Translation != "" {
		text = q.Translation
	}
	out := &FollowUpQuestion{Text: text}
	for answer, opt := range q.Options {
		name := opt.Name
		if name == "" && opt.SuggestionIndex >= 0 && opt.SuggestionIndex < len(suggestions) {
			name = suggestions[opt.SuggestionIndex].Name
		}
		if name == "" {
			continue
		}
		if out.Options == nil {
			out.Options = make(map[string]string, len(q.Options))
		}
		out.Options[answer] = name
	}
	return out
}

// SeverityFor buckets a probability at the 0.1/0.4/0.7 thresholds.
// Boundaries fall into the lower bucket.
func SeverityFor(probability float64) Severity {
	switch {
	case probability > 0.7:
		return SeverityHigh
	case probability > 0.4:
		return SeverityMedium
	case probability > 0.1:
		return SeverityLow
	default:
		return SeverityMinimal
	}
}

// Insights builds the advisory lines shown under a result.
func Insights(plant PlantInfo, health HealthInfo) []string {
	var out []string
	switch {
	case plant.Confidence > 0.9:
		out = append(out, "Very high confidence identification - excellent match")
	case plant.Confidence > 0.7:
		out = append(out, "Good confidence identification - reliable result")
	case plant.Confidence > 0.5:
		out = append(out, "Moderate confidence - consider a clearer image for better accuracy")
	default:
		out = append(out, "Low confidence - image quality or rare species may be factors")
	}

	if n := len(plant.Alternatives); n > 0 {
		out = append(out, fmt.Sprintf("%d alternative species considered", n))
	}

	if health.IsHealthy {
		out = append(out, "No immediate health concerns detected")
	} else {
		out = append(out, fmt.Sprintf("%d potential health issue(s) identified", len(health.Diseases)))
	}
	return out
}

// Recommendations lists next steps for a health assessment.
func Recommendations(healthy bool, diseases []Disease) []string {
	if healthy && len(diseases) == 0 {
		return []string{
			"Your plant appears healthy! Keep up the good care.",
			"Continue with your current watering and lighting routine.",
			"Monitor regularly for any changes in appearance.",
		}
	}

	out := []string{"Monitor plant health closely"}
	if len(diseases) > 0 {
		top := diseases[0]
		out = append(out, fmt.Sprintf("Address %s - %s severity", top.Name, top.Severity))
		if len(diseases) > 1 {
			out = append(out, fmt.Sprintf("%d potential issues detected - prioritize treatment", len(diseases)))
		}
	}
	return out
}

// Summary is the one-line health verdict.
func Summary(healthy bool, diseases []Disease) string {
	switch {
	case healthy && len(diseases) == 0:
		return "Plant appears to be in excellent health with no detected issues."
	case len(diseases) == 1:
		return fmt.Sprintf("Potential health concern detected: %s (%s severity).", diseases[0].Name, diseases[0].Severity)
	case len(diseases) > 1:
		return fmt.Sprintf("Multiple potential health issues detected. Primary concern: %s.", diseases[0].Name)
	default:
		return "Health assessment completed with recommendations provided."
	}
}

// customID renders the echoed custom_id, which may be a number or a string.
func customID(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}
