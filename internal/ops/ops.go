// Package ops is the operation layer shared by the CLI, the MCP server and
// the web UI: the analysis pipeline, manual entry, advice, garden saves and
// care schedules.
package ops

import (
	"context"
	"net/http"
	"time"

	"github.com/hpungsan/flourish/internal/advice"
	"github.com/hpungsan/flourish/internal/care"
	"github.com/hpungsan/flourish/internal/config"
	"github.com/hpungsan/flourish/internal/garden"
	"github.com/hpungsan/flourish/internal/imaging"
	"github.com/hpungsan/flourish/internal/plantid"
)

// Identifier is the identification provider.
type Identifier interface {
	Configured() bool
	Identify(ctx context.Context, img *imaging.Encoded, opts plantid.IdentifyOptions) (*plantid.Response, error)
	Details(ctx context.Context, accessToken string, details []string) (*plantid.Response, error)
}

var _ Identifier = (*plantid.Client)(nil)

// Service holds the components operations run against.
type Service struct {
	Config  *config.Config
	Images  *imaging.Normalizer
	PlantID Identifier
	Advisor *advice.Advisor
	Garden  *garden.Store
	Care    *care.Scheduler

	now func() time.Time
}

// New wires a Service from config. Both provider clients share httpClient;
// nil gets a client with the configured timeout.
func New(cfg *config.Config, gardenStore *garden.Store, scheduler *care.Scheduler, httpClient *http.Client) *Service {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.HTTPTimeout()}
	}
	return &Service{
		Config:  cfg,
		Images:  imaging.NewNormalizer(cfg),
		PlantID: plantid.NewClient(cfg, httpClient),
		Advisor: advice.NewAdvisor(advice.NewGemini(cfg, httpClient)),
		Garden:  gardenStore,
		Care:    scheduler,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) clock() time.Time {
	if s.now == nil {
		return time.Now().UTC()
	}
	return s.now()
}
