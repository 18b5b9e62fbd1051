package advice

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
	"github.com/hpungsan/flourish/internal/observability"
)

// Provider is the name used in errors, logs and metrics.
const Provider = "gemini"

const maxResponseBytes = 4 << 20

// Gemini calls the generateContent REST endpoint.
type Gemini struct {
	baseURL    string
	model      string
	apiKey     string
	httpClient *http.Client
}

// NewGemini builds a Gemini client from config. A nil httpClient gets one
// with the configured timeout.
func NewGemini(cfg *config.Config, httpClient *http.Client) *Gemini {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.HTTPTimeout()}
	}
	model := cfg.AdviceModel
	if model == "" {
		model = config.DefaultConfig().AdviceModel
	}
	return &Gemini{
		baseURL:    strings.TrimRight(cfg.AdviceBaseURL, "/"),
		model:      model,
		apiKey:     cfg.AdviceAPIKey,
		httpClient: httpClient,
	}
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generateResponse struct {
	Candidates []struct {
		Content      content `json:"content"`
		FinishReason string  `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback,omitempty"`
}

type apiError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// Configured reports whether an API key is available.
func (g *Gemini) Configured() bool {
	return g.apiKey != ""
}

// Generate sends a single-turn prompt and returns the concatenated text of
// the first candidate.
func (g *Gemini) Generate(ctx context.Context, prompt string) (string, error) {
	if !g.Configured() {
		return "", errors.NewConfiguration("advice_api_key")
	}

	payload, err := json.Marshal(generateRequest{
		Contents: []content{{Role: "user", Parts: []part{{Text: prompt}}}},
	})
	if err != nil {
		return "", errors.NewInternal(err)
	}

	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent", g.baseURL, url.PathEscape(g.model))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", errors.NewInternal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", g.apiKey)

	start := time.Now()
	resp, err := g.httpClient.Do(req)
	if err != nil {
		observability.ProviderRequests.WithLabelValues(Provider, "error").Inc()
		return "", errors.FromTransport(Provider, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		observability.ProviderRequests.WithLabelValues(Provider, "error").Inc()
		return "", errors.FromTransport(Provider, err)
	}
	observability.ProviderRequests.WithLabelValues(Provider, strconv.Itoa(resp.StatusCode)).Inc()
	slog.Debug("gemini response", "status", resp.StatusCode, "model", g.model, "duration_ms", time.Since(start).Milliseconds())

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", statusError(resp.StatusCode, data)
	}

	var out generateResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return "", errors.NewUnknownProvider(Provider, resp.StatusCode, "malformed response body")
	}
	if out.PromptFeedback != nil && out.PromptFeedback.BlockReason != "" {
		return "", errors.NewInvalidInput("prompt blocked: " + out.PromptFeedback.BlockReason)
	}
	if len(out.Candidates) == 0 {
		return "", errors.NewUnknownProvider(Provider, resp.StatusCode, "empty response")
	}

	var sb strings.Builder
	for _, p := range out.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}
	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", errors.NewUnknownProvider(Provider, resp.StatusCode, "empty response")
	}
	return text, nil
}

func statusError(status int, body []byte) error {
	var parsed apiError
	msg := ""
	if err := json.Unmarshal(body, &parsed); err == nil {
		msg = parsed.Error.Message
	}
	if msg == "" {
		msg = strings.TrimSpace(string(body))
	}

	switch {
	case status == http.StatusBadRequest:
		// Gemini reports a bad key as 400 INVALID_ARGUMENT.
		if strings.Contains(strings.ToLower(msg), "api key") {
			return errors.NewAuth(Provider)
		}
		return errors.NewInvalidInput(msg)
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return errors.NewAuth(Provider)
	case status == http.StatusTooManyRequests:
		return errors.NewQuotaExceeded(Provider)
	case status >= 500:
		return errors.NewProviderServer(Provider)
	default:
		return errors.NewUnknownProvider(Provider, status, msg)
	}
}
