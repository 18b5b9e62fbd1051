package advice

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/hpungsan/flourish/internal/analysis"
	"github.com/hpungsan/flourish/internal/config"
	"github.com/hpungsan/flourish/internal/errors"
)

type fakeGenerator struct {
	configured bool
	text       string
	err        error
	prompts    []string
}

func (f *fakeGenerator) Configured() bool { return f.configured }

func (f *fakeGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	return f.text, f.err
}

func pothos() *analysis.PlantInfo {
	return &analysis.PlantInfo{Name: "Pothos", ScientificName: "Epipremnum aureum", Confidence: 0.923}
}

func TestGenerateAdvice_NotConfigured(t *testing.T) {
	gen := &fakeGenerator{configured: false}
	_, err := NewAdvisor(gen).GenerateAdvice(context.Background(), pothos(), nil, "")
	if !errors.Is(err, errors.ErrConfiguration) {
		t.Fatalf("error = %v, want CONFIGURATION", err)
	}
	if len(gen.prompts) != 0 {
		t.Error("provider should not be called without a credential")
	}

	if _, err := NewAdvisor(nil).GenerateAdvice(context.Background(), pothos(), nil, ""); !errors.Is(err, errors.ErrConfiguration) {
		t.Errorf("nil generator error = %v, want CONFIGURATION", err)
	}
}

func TestGenerateAdvice_FallbackOnFailure(t *testing.T) {
	failures := []error{
		errors.NewNetwork(Provider, context.DeadlineExceeded),
		errors.NewProviderServer(Provider),
		errors.NewUnknownProvider(Provider, 200, "empty response"),
	}

	for _, failure := range failures {
		t.Run(string(errors.As(failure).Code), func(t *testing.T) {
			gen := &fakeGenerator{configured: true, err: failure}

			text, err := NewAdvisor(gen).GenerateAdvice(context.Background(), pothos(), nil, "")
			if err != nil {
				t.Fatalf("GenerateAdvice() error = %v, want nil", err)
			}
			if text == "" || !strings.Contains(text, "Pothos") {
				t.Errorf("fallback = %q, want non-empty text naming Pothos", text)
			}

			chat, err := NewAdvisor(gen).GenerateAdvice(context.Background(), pothos(), nil, "How often should I water?")
			if err != nil {
				t.Fatalf("chat error = %v", err)
			}
			if chat != FallbackChat("Pothos") {
				t.Errorf("chat fallback = %q", chat)
			}
		})
	}
}

func TestGenerateAdvice_NoContextFallsBack(t *testing.T) {
	gen := &fakeGenerator{configured: true, text: "unused"}
	text, err := NewAdvisor(gen).GenerateAdvice(context.Background(), nil, nil, "")
	if err != nil {
		t.Fatalf("error = %v", err)
	}
	if text != FallbackAdvice("plant") {
		t.Errorf("text = %q, want generic fallback", text)
	}
	if len(gen.prompts) != 0 {
		t.Error("provider should not be called without plant or health info")
	}
}

func TestGenerateAdvice_Modes(t *testing.T) {
	gen := &fakeGenerator{configured: true, text: "**Plant Care Summary**\nLooks great."}
	advisor := NewAdvisor(gen)
	health := &analysis.HealthInfo{IsHealthy: false, Diseases: []analysis.Disease{{Name: "Root rot"}, {Name: "Mites"}}}

	text, err := advisor.GenerateAdvice(context.Background(), pothos(), health, "")
	if err != nil || text != gen.text {
		t.Fatalf("initial = %q, %v", text, err)
	}
	initial := gen.prompts[0]
	for _, want := range []string{"Pothos (Epipremnum aureum)", "Confidence: 92.3%", "Issues Detected: Root rot, Mites", "**Care Recommendations**"} {
		if !strings.Contains(initial, want) {
			t.Errorf("initial prompt missing %q:\n%s", want, initial)
		}
	}

	if _, err := advisor.GenerateAdvice(context.Background(), pothos(), health, "  Why are the leaves yellow?  "); err != nil {
		t.Fatalf("chat error = %v", err)
	}
	chat := gen.prompts[1]
	for _, want := range []string{"USER'S QUESTION: Why are the leaves yellow?\n", "Health: Has issues", "2-4 sentences"} {
		if !strings.Contains(chat, want) {
			t.Errorf("chat prompt missing %q:\n%s", want, chat)
		}
	}
}

func newGemini(t *testing.T, url, key string) *Gemini {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.AdviceBaseURL = url
	cfg.AdviceAPIKey = key
	return NewGemini(cfg, nil)
}

func TestGemini_Generate(t *testing.T) {
	var gotPath, gotKey string
	var gotReq generateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("x-goog-api-key")
		json.NewDecoder(r.Body).Decode(&gotReq)
		w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[{"text":"Water "},{"text":"weekly."}]},"finishReason":"STOP"}]}`))
	}))
	defer srv.Close()

	text, err := newGemini(t, srv.URL, "gk").Generate(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if text != "Water weekly." {
		t.Errorf("text = %q", text)
	}
	if gotPath != "/v1beta/models/gemini-1.5-flash:generateContent" {
		t.Errorf("path = %q", gotPath)
	}
	if gotKey != "gk" {
		t.Errorf("x-goog-api-key = %q", gotKey)
	}
	if len(gotReq.Contents) != 1 || gotReq.Contents[0].Parts[0].Text != "hello" {
		t.Errorf("request = %+v", gotReq)
	}
}

func TestGemini_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   errors.ErrorCode
	}{
		{"bad key", 400, `{"error":{"code":400,"message":"API key not valid. Please pass a valid API key.","status":"INVALID_ARGUMENT"}}`, errors.ErrAuth},
		{"bad request", 400, `{"error":{"code":400,"message":"contents is empty","status":"INVALID_ARGUMENT"}}`, errors.ErrInvalidInput},
		{"forbidden", 403, `{}`, errors.ErrAuth},
		{"quota", 429, `{}`, errors.ErrQuotaExceeded},
		{"server", 503, `{}`, errors.ErrProviderServer},
		{"other", 409, `conflict`, errors.ErrUnknownProvider},
		{"no candidates", 200, `{"candidates":[]}`, errors.ErrUnknownProvider},
		{"blank text", 200, `{"candidates":[{"content":{"parts":[{"text":"  "}]}}]}`, errors.ErrUnknownProvider},
		{"blocked", 200, `{"promptFeedback":{"blockReason":"SAFETY"}}`, errors.ErrInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := newGemini(t, srv.URL, "gk").Generate(context.Background(), "hi")
			if !errors.Is(err, tt.want) {
				t.Fatalf("error = %v, want %s", err, tt.want)
			}
		})
	}
}

func TestGemini_NotConfigured(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	g := newGemini(t, srv.URL, "")
	if g.Configured() {
		t.Error("Configured() = true without key")
	}
	if _, err := g.Generate(context.Background(), "hi"); !errors.Is(err, errors.ErrConfiguration) {
		t.Errorf("error = %v, want CONFIGURATION", err)
	}
	if calls.Load() != 0 {
		t.Error("server should not be called")
	}
}

func TestAdvisorWithGemini_ServerDownFallsBack(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	advisor := NewAdvisor(newGemini(t, srv.URL, "gk"))
	text, err := advisor.GenerateAdvice(context.Background(), &analysis.PlantInfo{Name: "Fern"}, nil, "")
	if err != nil {
		t.Fatalf("error = %v", err)
	}
	if !strings.Contains(text, "Your Fern is ready") {
		t.Errorf("text = %q", text)
	}
}
