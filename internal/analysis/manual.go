package analysis

import (
	"strings"
	"time"
)

// ManualInsight marks results that did not use the identification provider.
const ManualInsight = "Manually entered plant - no credits used"

// ManualEntry is a plant the user names instead of photographing.
type ManualEntry struct {
	CommonName     string
	ScientificName string
	Notes          string
	// HealthStatus is "healthy" (default) or "needs_attention".
	HealthStatus string
	Issues       []string
}

// FromManual builds a full-confidence Result for a manual entry.
// The caller has already checked that a name is present.
func FromManual(entry ManualEntry, id string, now time.Time) *Result {
	common := strings.TrimSpace(entry.CommonName)
	scientific := strings.TrimSpace(entry.ScientificName)

	name := common
	if name == "" {
		name = scientific
	}
	var commonNames []string
	if common != "" {
		commonNames = []string{common}
	} else {
		commonNames = []string{}
	}

	diseases := make([]Disease, 0, len(entry.Issues))
	for _, issue := range entry.Issues {
		issue = strings.TrimSpace(issue)
		if issue == "" {
			continue
		}
		diseases = append(diseases, Disease{Name: issue, Severity: SeverityMinimal})
	}

	healthy := HealthStatus(entry.HealthStatus) != StatusNeedsAttention && len(diseases) == 0
	status := StatusHealthy
	score := 1.0
	if !healthy {
		status = StatusNeedsAttention
		score = 0.5
	}

	return &Result{
		PlantInfo: PlantInfo{
			ID:             id,
			Name:           name,
			ScientificName: scientific,
			CommonNames:    commonNames,
			Confidence:     1.0,
			Alternatives:   []Alternative{},
		},
		HealthInfo: HealthInfo{
			Assessed:        true,
			IsHealthy:       healthy,
			HealthScore:     score,
			Status:          status,
			Diseases:        diseases,
			Recommendations: Recommendations(healthy, diseases),
			Summary:         Summary(healthy, diseases),
		},
		Insights:                  []string{ManualInsight},
		IsPlantDetected:           true,
		PlantDetectionProbability: 1.0,
		Metadata: Metadata{
			Source:    SourceManual,
			Timestamp: now.UTC(),
		},
	}
}
