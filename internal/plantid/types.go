package plantid

import (
	"bytes"
	"encoding/json"
)

// Response is the identification document returned by the provider.
// Fields are optional depending on the options sent with the request.
type Response struct {
	AccessToken  string          `json:"access_token"`
	ModelVersion string          `json:"model_version,omitempty"`
	CustomID     json.RawMessage `json:"custom_id,omitempty"`
	Status       string          `json:"status,omitempty"`
	Result       *Result         `json:"result"`
}

// Result holds the assessments for the submitted images.
type Result struct {
	IsPlant        *Binary         `json:"is_plant"`
	Classification *Classification `json:"classification"`
	IsHealthy      *Binary         `json:"is_healthy"`
	Disease        *DiseaseSection `json:"disease"`
}

// Binary is a yes/no verdict with the model's probability.
type Binary struct {
	Binary      bool    `json:"binary"`
	Probability float64 `json:"probability"`
	Threshold   float64 `json:"threshold,omitempty"`
}

// Classification lists candidate species, best first.
type Classification struct {
	Suggestions []Suggestion `json:"suggestions"`
}

// DiseaseSection lists candidate health issues and an optional follow-up question.
type DiseaseSection struct {
	Suggestions []Suggestion `json:"suggestions"`
	Question    *Question    `json:"question,omitempty"`
}

// Suggestion is one species or disease candidate.
type Suggestion struct {
	ID            string         `json:"id"`
	Name          string         `json:"name"`
	Probability   float64        `json:"probability"`
	Redundant     bool           `json:"redundant,omitempty"`
	Details       *Details       `json:"details,omitempty"`
	SimilarImages []SimilarImage `json:"similar_images,omitempty"`
}

// SimilarImage is a reference photo the provider matched against.
type SimilarImage struct {
	ID          string  `json:"id"`
	URL         string  `json:"url"`
	URLSmall    string  `json:"url_small,omitempty"`
	Similarity  float64 `json:"similarity"`
	LicenseName string  `json:"license_name,omitempty"`
	Citation    string  `json:"citation,omitempty"`
}

// Details carries the extended fields requested with the details parameter.
type Details struct {
	CommonNames []string          `json:"common_names,omitempty"`
	URL         string            `json:"url,omitempty"`
	Description Text              `json:"description,omitempty"`
	Taxonomy    map[string]string `json:"taxonomy,omitempty"`
	Rank        string            `json:"rank,omitempty"`
	Synonyms    []string          `json:"synonyms,omitempty"`
	Image       *DetailImage      `json:"image,omitempty"`
	Watering    *Range            `json:"watering,omitempty"`
	Toxicity    Text              `json:"toxicity,omitempty"`
	Cause       Text              `json:"cause,omitempty"`
	Treatment   *Treatment        `json:"treatment,omitempty"`
	LocalName   string            `json:"local_name,omitempty"`
	Language    string            `json:"language,omitempty"`
	EntityID    string            `json:"entity_id,omitempty"`
}

// DetailImage is the representative image of a taxon.
type DetailImage struct {
	Value       string `json:"value"`
	Citation    string `json:"citation,omitempty"`
	LicenseName string `json:"license_name,omitempty"`
}

// Range is a min/max scale used for watering needs.
type Range struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// Treatment groups the provider's treatment advice by approach.
type Treatment struct {
	Biological []string `json:"biological,omitempty"`
	Chemical   []string `json:"chemical,omitempty"`
	Prevention []string `json:"prevention,omitempty"`
}

// Question is the provider's yes/no question to disambiguate diseases.
type Question struct {
	Text        string                    `json:"text"`
	Translation string                    `json:"translation,omitempty"`
	Options     map[string]QuestionOption `json:"options,omitempty"`
}

// QuestionOption points at the disease suggestion an answer favours.
type QuestionOption struct {
	SuggestionIndex int    `json:"suggestion_index"`
	EntityID        string `json:"entity_id,omitempty"`
	Name            string `json:"name,omitempty"`
	Translation     string `json:"translation,omitempty"`
}

// Text is a detail string. The provider sends some detail fields either as a
// plain string or as an object with a value member, depending on the field
// and API revision.
type Text string

// UnmarshalJSON accepts "text", {"value":"text"} and null.
func (t *Text) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*t = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = Text(s)
		return nil
	}
	var obj struct {
		Value string `json:"value"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	*t = Text(obj.Value)
	return nil
}

// HasHealth reports whether the provider ran a health assessment.
func (r *Result) HasHealth() bool {
	return r != nil && (r.IsHealthy != nil || r.Disease != nil)
}
