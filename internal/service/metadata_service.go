package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"storefront/internal/metrics"
	"storefront/internal/model"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
)

const geminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// FallbackMetadata is used whenever generation fails.
var FallbackMetadata = model.AssetMetadata{
	Description: "A premium, original design asset created for professional branding, apparel, and digital content projects.",
	Tags:        []string{"design", "professional", "pattern", "high-resolution", "elymand"},
}

// MetadataService writes marketing copy for catalog assets.
type MetadataService interface {
	// Generate never fails: any problem yields FallbackMetadata.
	Generate(ctx context.Context, title, category string) model.AssetMetadata
}

// MetadataConfig configures the Gemini client.
type MetadataConfig struct {
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration
}

type metadataService struct {
	cfg     MetadataConfig
	client  *http.Client
	breaker *gobreaker.CircuitBreaker[model.AssetMetadata]
	metrics metrics.Metrics
	logger  zerolog.Logger
}

func NewMetadataService(cfg MetadataConfig, m metrics.Metrics, logger zerolog.Logger) MetadataService {
	if cfg.BaseURL == "" {
		cfg.BaseURL = geminiBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-2.5-flash"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	lg := logger.With().Str("service", "MetadataService").Logger()
	settings := gobreaker.Settings{
		Name:        "gemini",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			lg.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("Circuit breaker state changed")
			m.RecordCircuitBreakerStateChange(name, to.String())
		},
	}
	return &metadataService{
		cfg:     cfg,
		client:  &http.Client{Timeout: cfg.Timeout},
		breaker: gobreaker.NewCircuitBreaker[model.AssetMetadata](settings),
		metrics: m,
		logger:  lg,
	}
}

func (s *metadataService) Generate(ctx context.Context, title, category string) model.AssetMetadata {
	if s.cfg.APIKey == "" {
		s.metrics.RecordMetadataFallback("no_api_key")
		return fallbackMetadata()
	}
	md, err := s.breaker.Execute(func() (model.AssetMetadata, error) {
		return s.generate(ctx, title, category)
	})
	if err != nil {
		trigger := "request_failed"
		switch {
		case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
			trigger = "breaker_open"
		case errors.Is(err, errInvalidGeneration):
			trigger = "invalid_response"
		}
		s.logger.Warn().Err(err).Str("title", title).Str("trigger", trigger).Msg("Metadata generation failed, using fallback")
		s.metrics.RecordMetadataFallback(trigger)
		return fallbackMetadata()
	}
	return md
}

var errInvalidGeneration = errors.New("invalid_generation")

type geminiRequest struct {
	Contents         []geminiContent  `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type generationConfig struct {
	ResponseMimeType string         `json:"responseMimeType"`
	ResponseSchema   map[string]any `json:"responseSchema"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

var metadataSchema = map[string]any{
	"type": "OBJECT",
	"properties": map[string]any{
		"description": map[string]any{
			"type":        "STRING",
			"description": "A professional 2-3 sentence description of the asset.",
		},
		"tags": map[string]any{
			"type":        "ARRAY",
			"items":       map[string]any{"type": "STRING"},
			"description": "A list of relevant design and industry tags.",
		},
	},
	"required": []string{"description", "tags"},
}

func (s *metadataService) generate(ctx context.Context, title, category string) (model.AssetMetadata, error) {
	prompt := fmt.Sprintf("Generate a professional, high-end design description and 5-8 relevant SEO tags for a pattern titled %q in the category %q. Focus on technical quality and creative application.", title, category)
	reqBody := geminiRequest{
		Contents: []geminiContent{{Parts: []geminiPart{{Text: prompt}}}},
		GenerationConfig: generationConfig{
			ResponseMimeType: "application/json",
			ResponseSchema:   metadataSchema,
		},
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return model.AssetMetadata{}, fmt.Errorf("marshaling request body: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", strings.TrimRight(s.cfg.BaseURL, "/"), s.cfg.Model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return model.AssetMetadata{}, fmt.Errorf("creating generation request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", s.cfg.APIKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return model.AssetMetadata{}, fmt.Errorf("calling generateContent: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return model.AssetMetadata{}, fmt.Errorf("reading generation response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return model.AssetMetadata{}, fmt.Errorf("generateContent returned status %d", resp.StatusCode)
	}

	var gr geminiResponse
	if err := json.Unmarshal(body, &gr); err != nil {
		return model.AssetMetadata{}, fmt.Errorf("%w: %v", errInvalidGeneration, err)
	}
	if len(gr.Candidates) == 0 || len(gr.Candidates[0].Content.Parts) == 0 {
		return model.AssetMetadata{}, fmt.Errorf("%w: no candidates", errInvalidGeneration)
	}
	var md model.AssetMetadata
	if err := json.Unmarshal([]byte(gr.Candidates[0].Content.Parts[0].Text), &md); err != nil {
		return model.AssetMetadata{}, fmt.Errorf("%w: %v", errInvalidGeneration, err)
	}
	md.Description = strings.TrimSpace(md.Description)
	md.Tags = cleanTags(md.Tags)
	if md.Description == "" || len(md.Tags) == 0 {
		return model.AssetMetadata{}, fmt.Errorf("%w: empty description or tags", errInvalidGeneration)
	}
	return md, nil
}

func cleanTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]bool, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" || seen[strings.ToLower(t)] {
			continue
		}
		seen[strings.ToLower(t)] = true
		out = append(out, t)
	}
	return out
}

func fallbackMetadata() model.AssetMetadata {
	return model.AssetMetadata{
		Description: FallbackMetadata.Description,
		Tags:        append([]string(nil), FallbackMetadata.Tags...),
	}
}
