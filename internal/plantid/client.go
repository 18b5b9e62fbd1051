// Package plantid is the client for the plant.id v3 identification and
// health-assessment API.
package plantid

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hpungsan/flourish/internal/config"
	"github.com/hpungsan/flourish/internal/errors"
	"github.com/hpungsan/flourish/internal/imaging"
	"github.com/hpungsan/flourish/internal/observability"
)

// Provider is the name used in errors, logs and metrics.
const Provider = "plant.id"

// maxResponseBytes bounds how much of a response body is read.
const maxResponseBytes = 16 << 20

// availableDetails is the provider's allowlist for the details parameter.
var availableDetails = map[string]bool{
	"common_names": true, "url": true, "description": true, "description_gpt": true,
	"description_all": true, "taxonomy": true, "name_authority": true, "rank": true,
	"gbif_id": true, "inaturalist_id": true, "image": true, "images": true,
	"synonyms": true, "edible_parts": true, "propagation_methods": true,
	"watering": true, "best_watering": true, "best_light_condition": true,
	"best_soil_type": true, "common_uses": true, "toxicity": true,
	"cultural_significance": true, "gpt": true,
}

// DefaultDetails is requested when the caller names none.
var DefaultDetails = []string{"common_names", "description", "taxonomy", "url", "image"}

// IdentifyOptions are the optional hints sent with an identification.
type IdentifyOptions struct {
	Latitude  *float64
	Longitude *float64
	// Date is the observation date; zero means today.
	Date time.Time
	// CustomID is echoed back by the provider; zero omits it.
	CustomID int64
}

type identificationRequest struct {
	Images              []string `json:"images"`
	Health              string   `json:"health"`
	SimilarImages       bool     `json:"similar_images"`
	ClassificationLevel string   `json:"classification_level"`
	Datetime            string   `json:"datetime,omitempty"`
	Latitude            *float64 `json:"latitude,omitempty"`
	Longitude           *float64 `json:"longitude,omitempty"`
	CustomID            int64    `json:"custom_id,omitempty"`
}

// Client talks to the identification provider. It never retries: one
// call per user action.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	now        func() time.Time
}

// NewClient builds a Client from config. A nil httpClient gets one with the
// configured timeout.
func NewClient(cfg *config.Config, httpClient *http.Client) *Client {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.HTTPTimeout()}
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.PlantIDBaseURL, "/"),
		apiKey:     cfg.PlantIDAPIKey,
		httpClient: httpClient,
		now:        time.Now,
	}
}

// Configured reports whether an API key is available.
func (c *Client) Configured() bool {
	return c.apiKey != ""
}

// Identify submits one encoded image for combined classification and health
// assessment.
func (c *Client) Identify(ctx context.Context, img *imaging.Encoded, opts IdentifyOptions) (*Response, error) {
	if !c.Configured() {
		return nil, errors.NewConfiguration("plantid_api_key")
	}
	if img == nil || img.Base64 == "" {
		return nil, errors.NewValidation("no image provided")
	}

	date := opts.Date
	if date.IsZero() {
		date = c.now()
	}
	body := identificationRequest{
		Images:              []string{img.Base64},
		Health:              "all",
		SimilarImages:       true,
		ClassificationLevel: "species",
		Datetime:            date.Format("2006-01-02"),
		CustomID:            opts.CustomID,
	}
	// Coordinates only make sense as a pair.
	if opts.Latitude != nil && opts.Longitude != nil {
		body.Latitude = opts.Latitude
		body.Longitude = opts.Longitude
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, errors.NewInternal(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/identification", bytes.NewReader(payload))
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	req.Header.Set("Content-Type", "application/json")

	slog.Debug("plantid identify", "image_kb", len(img.Base64)*3/4/1024, "custom_id", opts.CustomID)
	return c.do(req, "identification")
}

// Details fetches extended fields for a completed identification. Unknown
// detail names are dropped; if none remain the request is rejected.
func (c *Client) Details(ctx context.Context, accessToken string, details []string) (*Response, error) {
	if !c.Configured() {
		return nil, errors.NewConfiguration("plantid_api_key")
	}
	if strings.TrimSpace(accessToken) == "" {
		return nil, errors.NewInvalidRequest("access_token is required")
	}

	valid := FilterDetails(details)
	if len(valid) == 0 {
		return nil, errors.NewInvalidRequest("no valid details requested")
	}

	q := url.Values{}
	q.Set("details", strings.Join(valid, ","))
	q.Set("language", "en")
	endpoint := fmt.Sprintf("%s/identification/%s?%s", c.baseURL, url.PathEscape(accessToken), q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return c.do(req, accessToken)
}

// FilterDetails keeps the allowlisted names, in order, without duplicates.
// An empty request yields DefaultDetails.
func FilterDetails(requested []string) []string {
	if len(requested) == 0 {
		requested = DefaultDetails
	}
	seen := make(map[string]bool, len(requested))
	out := make([]string, 0, len(requested))
	for _, d := range requested {
		d = strings.TrimSpace(d)
		if !availableDetails[d] || seen[d] {
			continue
		}
		seen[d] = true
		out = append(out, d)
	}
	return out
}

func (c *Client) do(req *http.Request, object string) (*Response, error) {
	req.Header.Set("Api-Key", c.apiKey)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		observability.ProviderRequests.WithLabelValues(Provider, "error").Inc()
		fErr := errors.FromTransport(Provider, err)
		slog.Warn("plantid request failed", "code", fErr.Code, "duration_ms", time.Since(start).Milliseconds())
		return nil, fErr
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		observability.ProviderRequests.WithLabelValues(Provider, "error").Inc()
		return nil, errors.FromTransport(Provider, err)
	}
	observability.ProviderRequests.WithLabelValues(Provider, strconv.Itoa(resp.StatusCode)).Inc()
	slog.Debug("plantid response", "status", resp.StatusCode, "duration_ms", time.Since(start).Milliseconds())

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, statusError(resp.StatusCode, data, object)
	}

	var out Response
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, errors.NewUnknownProvider(Provider, resp.StatusCode, "malformed response body")
	}
	return &out, nil
}

// statusError maps a non-2xx status to the error taxonomy.
func statusError(status int, body []byte, object string) error {
	msg := providerMessage(body)
	switch status {
	case http.StatusBadRequest:
		return errors.NewInvalidInput(msg)
	case http.StatusUnauthorized:
		return errors.NewAuth(Provider)
	case http.StatusNotFound:
		return errors.NewNotFound("identification", object)
	case http.StatusTooManyRequests:
		return errors.NewQuotaExceeded(Provider)
	case http.StatusInternalServerError:
		return errors.NewProviderServer(Provider)
	default:
		if msg == "" {
			msg = http.StatusText(status)
		}
		return errors.NewUnknownProvider(Provider, status, msg)
	}
}

// providerMessage extracts the error text from a JSON {"error": ...} body,
// falling back to the raw text.
func providerMessage(body []byte) string {
	var parsed struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Error != "" {
		return parsed.Error
	}
	text := strings.TrimSpace(string(body))
	if len(text) > 300 {
		text = text[:300]
	}
	return text
}
