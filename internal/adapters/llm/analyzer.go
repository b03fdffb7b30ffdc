package llm

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"

	"github.com/zatekoja/stayaudit/internal/domain/entities"
	"github.com/zatekoja/stayaudit/internal/domain/providers"
	apperrors "github.com/zatekoja/stayaudit/pkg/errors"
	"github.com/zatekoja/stayaudit/pkg/retry"
)

// AnalyzerConfig bounds each remote analysis call
type AnalyzerConfig struct {
	Timeout          time.Duration
	MaxRetries       int
	BreakerThreshold int
	BreakerCooldown  time.Duration
	CacheTTL         time.Duration
}

// DefaultAnalyzerConfig mirrors the configuration defaults
func DefaultAnalyzerConfig() AnalyzerConfig {
	return AnalyzerConfig{
		Timeout:          30 * time.Second,
		MaxRetries:       2,
		BreakerThreshold: 5,
		BreakerCooldown:  30 * time.Second,
		CacheTTL:         time.Hour,
	}
}

// GeminiAnalyzer implements DischargeAnalyzer on top of a TextGenerator.
// A nil generator means no credential is configured and every call is
// answered with MockResponse.
type GeminiAnalyzer struct {
	generator providers.TextGenerator
	cache     providers.CacheProvider
	parser    *ResponseParser
	breaker   *gobreaker.CircuitBreaker
	cfg       AnalyzerConfig
}

var _ providers.DischargeAnalyzer = (*GeminiAnalyzer)(nil)

// NewGeminiAnalyzer creates an analyzer. generator and cache may be nil.
func NewGeminiAnalyzer(generator providers.TextGenerator, cache providers.CacheProvider, cfg AnalyzerConfig) *GeminiAnalyzer {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultAnalyzerConfig().Timeout
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.BreakerThreshold <= 0 {
		cfg.BreakerThreshold = DefaultAnalyzerConfig().BreakerThreshold
	}
	if cfg.BreakerCooldown <= 0 {
		cfg.BreakerCooldown = DefaultAnalyzerConfig().BreakerCooldown
	}

	threshold := uint32(cfg.BreakerThreshold)
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "gemini",
		MaxRequests: 1,
		Timeout:     cfg.BreakerCooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("Circuit breaker state changed")
		},
	})

	if generator == nil {
		log.Warn().Msg("Gemini credential not configured, using mock replies")
	}

	return &GeminiAnalyzer{
		generator: generator,
		cache:     cache,
		parser:    NewResponseParser(),
		breaker:   breaker,
		cfg:       cfg,
	}
}

// Analyze returns the model's reply to prompt. It never fails: any problem
// yields MockResponse with the cause in ModelReply.Err.
func (a *GeminiAnalyzer) Analyze(ctx context.Context, prompt string) entities.ModelReply {
	if a.generator == nil {
		return fallbackReply(apperrors.NewConfigurationAbsentError("no text generator configured"))
	}

	key := cacheKey(a.generator.Model(), prompt)
	if text, ok := a.cached(ctx, key); ok {
		return entities.ModelReply{Text: text, Source: entities.ReplySourceCache}
	}

	result, err := a.breaker.Execute(func() (interface{}, error) {
		return a.generate(ctx, prompt)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			err = apperrors.NewRemoteCallError("gemini circuit open", err)
		}
		log.Warn().Err(err).Str("model", a.generator.Model()).Msg("Model call failed, using mock reply")
		return fallbackReply(err)
	}

	text := result.(string)
	a.store(ctx, key, text)
	return entities.ModelReply{Text: text, Source: entities.ReplySourceModel}
}

// AnalyzeStructured analyzes prompt and parses the reply
func (a *GeminiAnalyzer) AnalyzeStructured(ctx context.Context, prompt string) (entities.ParsedAnalysis, entities.ModelReply) {
	reply := a.Analyze(ctx, prompt)
	return a.parser.ParseOrFallback(reply.Text), reply
}

func (a *GeminiAnalyzer) generate(ctx context.Context, prompt string) (string, error) {
	var text string
	err := retry.DoWithLog(
		ctx,
		retry.RemoteCallConfig(a.cfg.MaxRetries+1),
		"Gemini",
		func() error {
			callCtx, cancel := context.WithTimeout(ctx, a.cfg.Timeout)
			defer cancel()

			out, err := a.generator.Generate(callCtx, prompt)
			if err != nil {
				if apperrors.IsType(err, apperrors.ErrorTypeMalformedResponse) {
					return retry.Permanent(err)
				}
				return err
			}
			text = out
			return nil
		},
		func(attempt int, err error, nextDelay time.Duration) {
			log.Warn().Err(err).Int("attempt", attempt).Dur("next_delay", nextDelay).Msg("Gemini call attempt failed")
		},
	)
	return text, err
}

func (a *GeminiAnalyzer) cached(ctx context.Context, key string) (string, bool) {
	if a.cache == nil {
		return "", false
	}
	data, err := a.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, providers.ErrCacheMiss) {
			log.Debug().Err(err).Msg("Reply cache read failed")
		}
		return "", false
	}
	return string(data), true
}

func (a *GeminiAnalyzer) store(ctx context.Context, key, text string) {
	if a.cache == nil {
		return
	}
	if err := a.cache.Set(ctx, key, []byte(text), a.cfg.CacheTTL); err != nil {
		log.Debug().Err(err).Msg("Reply cache write failed")
	}
}

func fallbackReply(err error) entities.ModelReply {
	return entities.ModelReply{Text: MockResponse, Source: entities.ReplySourceFallback, Err: err}
}

func cacheKey(model, prompt string) string {
	sum := sha256.Sum256([]byte(model + "\x00" + prompt))
	return hex.EncodeToString(sum[:])
}
