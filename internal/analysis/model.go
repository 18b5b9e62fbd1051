// Package analysis turns raw identification responses into the stable
// PlantInfo/HealthInfo model used by the rest of Flourish.
package analysis

import (
	"time"

	"github.com/hpungsan/flourish/internal/plantid"
)

// APIVersion is recorded in result metadata.
const APIVersion = "v3"

// Result sources.
const (
	SourcePlantID = "plant.id"
	SourceManual  = "manual_entry"
)

// Severity buckets a disease probability.
type Severity string

const (
	SeverityMinimal Severity = "minimal"
	SeverityLow     Severity = "low"
	SeverityMedium  Severity = "medium"
	SeverityHigh    Severity = "high"
)

// HealthStatus summarises HealthInfo.IsHealthy.
type HealthStatus string

const (
	StatusHealthy        HealthStatus = "healthy"
	StatusNeedsAttention HealthStatus = "needs_attention"
)

// MaxAlternatives caps PlantInfo.Alternatives.
const MaxAlternatives = 4

// Result is one full analysis. It is never persisted as a whole; the garden
// keeps the PlantInfo and HealthInfo snapshots.
type Result struct {
	PlantInfo                 PlantInfo  `json:"plantInfo"`
	HealthInfo                HealthInfo `json:"healthInfo"`
	Insights                  []string   `json:"insights"`
	IsPlantDetected           bool       `json:"isPlantDetected"`
	PlantDetectionProbability float64    `json:"plantDetectionProbability"`
	Advice                    string     `json:"advice,omitempty"`
	ProcessingTimeMs          int64      `json:"processingTimeMs"`
	Metadata                  Metadata   `json:"metadata"`
}

// Metadata records where a result came from.
type Metadata struct {
	AccessToken string    `json:"accessToken,omitempty"`
	CustomID    string    `json:"customId,omitempty"`
	APIVersion  string    `json:"apiVersion,omitempty"`
	Source      string    `json:"source"`
	Timestamp   time.Time `json:"timestamp"`
}

// PlantInfo is the identified species.
type PlantInfo struct {
	ID             string         `json:"id"`
	Name           string         `json:"name"`
	ScientificName string         `json:"scientificName"`
	CommonNames    []string       `json:"commonNames"`
	Confidence     float64        `json:"confidence"`
	Alternatives   []Alternative  `json:"alternatives"`
	Details        *PlantDetails  `json:"details,omitempty"`
	SimilarImages  []SimilarImage `json:"similarImages,omitempty"`
	AccessToken    string         `json:"accessToken,omitempty"`
}

// Alternative is a runner-up species.
type Alternative struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Probability float64 `json:"probability"`
}

// PlantDetails are the optional extended species fields. Text fields accept
// the provider's {"value": ...} form so older saved snapshots still load.
type PlantDetails struct {
	Description plantid.Text      `json:"description,omitempty"`
	URL         string            `json:"url,omitempty"`
	Taxonomy    map[string]string `json:"taxonomy,omitempty"`
	ImageURL    string            `json:"imageUrl,omitempty"`
	Synonyms    []string          `json:"synonyms,omitempty"`
	Toxicity    plantid.Text      `json:"toxicity,omitempty"`
}

// SimilarImage is a reference photo matched by the provider.
type SimilarImage struct {
	URL        string  `json:"url"`
	URLSmall   string  `json:"urlSmall,omitempty"`
	Similarity float64 `json:"similarity"`
	Citation   string  `json:"citation,omitempty"`
}

// HealthInfo is the health assessment.
type HealthInfo struct {
	// Assessed is false when the provider ran no health check and the
	// optimistic defaults were applied.
	Assessed         bool              `json:"assessed"`
	IsHealthy        bool              `json:"isHealthy"`
	HealthScore      float64           `json:"healthScore"`
	Status           HealthStatus      `json:"status"`
	Diseases         []Disease         `json:"diseases"`
	FollowUpQuestion *FollowUpQuestion `json:"followUpQuestion,omitempty"`
	Recommendations  []string          `json:"recommendations,omitempty"`
	Summary          string            `json:"summary,omitempty"`
}

// Disease is one non-redundant health issue.
type Disease struct {
	ID            string         `json:"id,omitempty"`
	Name          string         `json:"name"`
	Probability   float64        `json:"probability"`
	Severity      Severity       `json:"severity"`
	Description   string         `json:"description,omitempty"`
	Cause         string         `json:"cause,omitempty"`
	Treatment     *Treatment     `json:"treatment,omitempty"`
	SimilarImages []SimilarImage `json:"similarImages,omitempty"`
}

// Treatment groups treatment advice by approach.
type Treatment struct {
	Biological []string `json:"biological,omitempty"`
	Chemical   []string `json:"chemical,omitempty"`
	Prevention []string `json:"prevention,omitempty"`
}

// FollowUpQuestion is the provider's disambiguating question.
type FollowUpQuestion struct {
	Text string `json:"text"`
	// Options maps an answer ("yes"/"no") to the disease it favours.
	Options map[string]string `json:"options,omitempty"`
}

// HasDiseases reports whether any issue was recorded.
func (h HealthInfo) HasDiseases() bool {
	return len(h.Diseases) > 0
}

// DiseaseNames lists the disease names in order.
func (h HealthInfo) DiseaseNames() []string {
	names := make([]string, 0, len(h.Diseases))
	for _, d := range h.Diseases {
		names = append(names, d.Name)
	}
	return names
}
