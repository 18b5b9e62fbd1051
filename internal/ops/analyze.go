package ops

import (
	"context"
	"crypto/rand"
	"log/slog"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/hpungsan/flourish/internal/analysis"
	"github.com/hpungsan/flourish/internal/errors"
	"github.com/hpungsan/flourish/internal/imaging"
	"github.com/hpungsan/flourish/internal/observability"
	"github.com/hpungsan/flourish/internal/plantid"
)

// AnalyzeInput contains parameters for the Analyze operation.
type AnalyzeInput struct {
	Upload    *imaging.Upload
	Latitude  *float64
	Longitude *float64
	// WithAdvice asks for initial care advice once identification succeeds.
	WithAdvice bool
}

// AnalyzeOutput is a completed analysis plus the image that was sent.
type AnalyzeOutput struct {
	*analysis.Result
	// Image is the downsampled photo as a data URI, for saving to the garden.
	Image string `json:"-"`
}

// Analyze runs the pipeline: normalize image, identify, normalize result,
// then optional advice. Stages run in order and the first failure ends the
// run; advice failures never do.
func (s *Service) Analyze(ctx context.Context, input AnalyzeInput) (out *AnalyzeOutput, err error) {
	start := time.Now()
	defer func() {
		outcome := "ok"
		if err != nil {
			outcome = string(errors.As(err).Code)
		}
		observability.AnalysesTotal.WithLabelValues(outcome).Inc()
	}()

	if !s.PlantID.Configured() {
		return nil, errors.NewConfiguration("plantid_api_key")
	}

	var encoded *imaging.Encoded
	if err := stage("normalize_image", func() (e error) {
		encoded, e = s.Images.Normalize(input.Upload)
		return e
	}); err != nil {
		return nil, err
	}

	now := s.clock()
	var raw *plantid.Response
	if err := stage("identify", func() (e error) {
		raw, e = s.PlantID.Identify(ctx, encoded, plantid.IdentifyOptions{
			Latitude:  input.Latitude,
			Longitude: input.Longitude,
			Date:      now,
			CustomID:  now.UnixMilli(),
		})
		return e
	}); err != nil {
		return nil, err
	}

	var result *analysis.Result
	if err := stage("normalize_result", func() (e error) {
		result, e = analysis.Normalize(raw, now)
		return e
	}); err != nil {
		return nil, err
	}

	if input.WithAdvice {
		result.Advice = s.bestEffortAdvice(ctx, &result.PlantInfo, &result.HealthInfo)
	}
	result.ProcessingTimeMs = time.Since(start).Milliseconds()

	slog.Info("analysis complete",
		"plant", result.PlantInfo.Name,
		"confidence", result.PlantInfo.Confidence,
		"healthy", result.HealthInfo.IsHealthy,
		"duration_ms", result.ProcessingTimeMs)
	return &AnalyzeOutput{Result: result, Image: encoded.DataURI()}, nil
}

// stage times fn and logs its outcome.
func stage(name string, fn func() error) error {
	start := time.Now()
	err := fn()
	elapsed := time.Since(start)
	observability.StageDuration.WithLabelValues(name).Observe(elapsed.Seconds())

	status := "ok"
	if err != nil {
		status = string(errors.As(err).Code)
	}
	slog.Debug("pipeline stage", "stage", name, "duration_ms", elapsed.Milliseconds(), "status", status)
	return err
}

// bestEffortAdvice returns advice, or "" when no advice credential is set.
func (s *Service) bestEffortAdvice(ctx context.Context, plant *analysis.PlantInfo, health *analysis.HealthInfo) string {
	if s.Advisor == nil || !s.Advisor.Configured() {
		return ""
	}
	text, err := s.Advisor.GenerateAdvice(ctx, plant, health, "")
	if err != nil {
		return ""
	}
	return text
}

// ManualInput contains parameters for the ManualEntry operation.
type ManualInput struct {
	analysis.ManualEntry
	WithAdvice bool
}

// ManualEntry builds a result for a plant the user names instead of
// photographing. No identification credit is used.
func (s *Service) ManualEntry(ctx context.Context, input ManualInput) (*analysis.Result, error) {
	start := time.Now()
	if strings.TrimSpace(input.CommonName) == "" && strings.TrimSpace(input.ScientificName) == "" {
		return nil, errors.NewInvalidRequest("enter at least a common or scientific name")
	}

	now := s.clock()
	id := "manual_" + ulid.MustNew(ulid.Timestamp(now), rand.Reader).String()
	result := analysis.FromManual(input.ManualEntry, id, now)
	if input.WithAdvice {
		result.Advice = s.bestEffortAdvice(ctx, &result.PlantInfo, &result.HealthInfo)
	}
	result.ProcessingTimeMs = time.Since(start).Milliseconds()
	observability.AnalysesTotal.WithLabelValues("manual").Inc()
	return result, nil
}

// DetailsInput contains parameters for the Details operation.
type DetailsInput struct {
	AccessToken string
	// Details are provider detail names; empty means the default set.
	Details []string
}

// Details fetches extended fields for an earlier identification.
func (s *Service) Details(ctx context.Context, input DetailsInput) (*analysis.PlantInfo, error) {
	var raw *plantid.Response
	if err := stage("details", func() (e error) {
		raw, e = s.PlantID.Details(ctx, strings.TrimSpace(input.AccessToken), input.Details)
		return e
	}); err != nil {
		return nil, err
	}
	return analysis.DetailsOf(raw)
}
