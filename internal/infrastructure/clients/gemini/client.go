package gemini

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	genai "google.golang.org/genai"

	"github.com/zatekoja/stayaudit/internal/domain/providers"
	"github.com/zatekoja/stayaudit/pkg/config"
	apperrors "github.com/zatekoja/stayaudit/pkg/errors"
)

const (
	defaultModel          = "gemini-2.0-flash"
	defaultEmbeddingModel = "text-embedding-004"
	maxOutputTokens       = 2048
)

// Client wraps the genai SDK for text generation and embeddings.
type Client struct {
	cli            *genai.Client
	model          string
	embeddingModel string
	dims           int
}

var (
	_ providers.TextGenerator = (*Client)(nil)
	_ providers.Embedder      = (*Client)(nil)
)

// NewClient creates a Gemini client. A missing API key is a
// configuration-absent error so callers can degrade to offline mode.
func NewClient(ctx context.Context, cfg *config.GeminiConfig, dims int) (*Client, error) {
	if cfg == nil || !cfg.Enabled() {
		return nil, apperrors.NewConfigurationAbsentError("gemini api key is not configured")
	}

	cli, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, apperrors.NewRemoteCallError("failed to initialize gemini client", err)
	}

	model := cfg.Model
	if model == "" {
		model = defaultModel
	}
	embeddingModel := cfg.EmbeddingModel
	if embeddingModel == "" {
		embeddingModel = defaultEmbeddingModel
	}

	log.Info().Str("model", model).Str("embedding_model", embeddingModel).Msg("Gemini client initialized")
	return &Client{cli: cli, model: model, embeddingModel: embeddingModel, dims: dims}, nil
}

// Model returns the generation model name
func (c *Client) Model() string { return c.model }

// Dimensions returns the embedding size requested from the API
func (c *Client) Dimensions() int { return c.dims }

// Generate sends prompt to the model and returns the reply text
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	start := time.Now()
	resp, err := c.cli.Models.GenerateContent(ctx, c.model,
		[]*genai.Content{{Role: genai.RoleUser, Parts: []*genai.Part{{Text: prompt}}}},
		GenerationConfig(),
	)
	if err != nil {
		recordGeminiMetric(ctx, c.model, "generate", time.Since(start), err)
		return "", apperrors.NewRemoteCallError("gemini generate content failed", err)
	}

	text, err := ReplyText(resp)
	recordGeminiMetric(ctx, c.model, "generate", time.Since(start), err)
	if err != nil {
		return "", err
	}
	return text, nil
}

// Embed returns one vector per text
func (c *Client) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	contents := make([]*genai.Content, len(texts))
	for i, text := range texts {
		contents[i] = &genai.Content{Parts: []*genai.Part{{Text: text}}}
	}

	var embedConfig *genai.EmbedContentConfig
	if c.dims > 0 {
		embedConfig = &genai.EmbedContentConfig{OutputDimensionality: genai.Ptr(int32(c.dims))}
	}

	start := time.Now()
	resp, err := c.cli.Models.EmbedContent(ctx, c.embeddingModel, contents, embedConfig)
	recordGeminiMetric(ctx, c.embeddingModel, "embed", time.Since(start), err)
	if err != nil {
		return nil, apperrors.NewRemoteCallError("gemini embed content failed", err)
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, apperrors.NewMalformedResponseError(
			fmt.Sprintf("gemini returned %d embeddings for %d texts", len(resp.Embeddings), len(texts)))
	}

	out := make([][]float32, len(resp.Embeddings))
	for i, e := range resp.Embeddings {
		if e == nil {
			return nil, apperrors.NewMalformedResponseError("gemini returned an empty embedding")
		}
		out[i] = e.Values
	}
	return out, nil
}

// GenerationConfig is the fixed sampling setup used for discharge analysis.
// Safety filters are relaxed because clinical vocabulary trips them.
func GenerationConfig() *genai.GenerateContentConfig {
	categories := []genai.HarmCategory{
		genai.HarmCategoryHarassment,
		genai.HarmCategoryHateSpeech,
		genai.HarmCategorySexuallyExplicit,
		genai.HarmCategoryDangerousContent,
	}
	safety := make([]*genai.SafetySetting, 0, len(categories))
	for _, category := range categories {
		safety = append(safety, &genai.SafetySetting{
			Category:  category,
			Threshold: genai.HarmBlockThresholdBlockNone,
		})
	}

	return &genai.GenerateContentConfig{
		Temperature:     genai.Ptr[float32](0.1),
		TopP:            genai.Ptr[float32](0.8),
		TopK:            genai.Ptr[float32](40),
		MaxOutputTokens: maxOutputTokens,
		SafetySettings:  safety,
	}
}

// ReplyText joins the text parts of the first candidate. A reply without
// usable content is a malformed response carrying the finish reason.
func ReplyText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", apperrors.NewMalformedResponseError("gemini returned no candidates")
	}

	candidate := resp.Candidates[0]
	if candidate == nil || candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		reason := "UNKNOWN"
		if candidate != nil && candidate.FinishReason != "" {
			reason = string(candidate.FinishReason)
		}
		return "", apperrors.NewMalformedResponseError("gemini returned empty content, finish reason " + reason)
	}

	var b strings.Builder
	for _, part := range candidate.Content.Parts {
		if part != nil {
			b.WriteString(part.Text)
		}
	}
	if strings.TrimSpace(b.String()) == "" {
		return "", apperrors.NewMalformedResponseError("gemini returned blank text")
	}
	return b.String(), nil
}

type geminiMetrics struct {
	requestCount    metric.Int64Counter
	requestDuration metric.Float64Histogram
	requestErrors   metric.Int64Counter
}

var (
	metricsOnce sync.Once
	metricsOK   bool
	metrics     geminiMetrics
)

func ensureGeminiMetrics() {
	metricsOnce.Do(func() {
		meter := otel.Meter("github.com/zatekoja/stayaudit/gemini")

		requestCount, err := meter.Int64Counter(
			"ai.gemini.request.count",
			metric.WithDescription("Number of Gemini requests"),
		)
		if err != nil {
			return
		}
		requestDuration, err := meter.Float64Histogram(
			"ai.gemini.request.duration",
			metric.WithDescription("Gemini request duration in milliseconds"),
			metric.WithUnit("ms"),
		)
		if err != nil {
			return
		}
		requestErrors, err := meter.Int64Counter(
			"ai.gemini.request.errors",
			metric.WithDescription("Number of Gemini request errors"),
		)
		if err != nil {
			return
		}

		metrics = geminiMetrics{
			requestCount:    requestCount,
			requestDuration: requestDuration,
			requestErrors:   requestErrors,
		}
		metricsOK = true
	})
}

func recordGeminiMetric(ctx context.Context, model, operation string, duration time.Duration, err error) {
	ensureGeminiMetrics()
	if !metricsOK {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String("ai.provider", "gemini"),
		attribute.String("ai.model", model),
		attribute.String("ai.operation", operation),
	)
	metrics.requestCount.Add(ctx, 1, attrs)
	metrics.requestDuration.Record(ctx, float64(duration.Milliseconds()), attrs)
	if err != nil {
		metrics.requestErrors.Add(ctx, 1, attrs)
	}
}
