// Package openai implements the analysis provider against the OpenAI
// Responses API with strict structured outputs.
package openai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/responses"
	"github.com/sony/gobreaker"

	"github.com/bakeyeon/sentiment-translator/internal/domain"
	"github.com/bakeyeon/sentiment-translator/internal/platform/retry"
)

const (
	retryInitialBackoff   = 500 * time.Millisecond
	retryRateLimitBackoff = 5 * time.Second
	maxOutputTokens       = 800
)

var (
	sentimentSchema   = generateSchema[sentimentPayload]()
	translationSchema = generateSchema[translationPayload]()
	suggestionSchema  = generateSchema[suggestionPayload]()
)

// invoker is the call seam: it sends one request and returns the raw output
// text. Swapped out in tests.
type invoker func(ctx context.Context, params responses.ResponseNewParams) (string, error)

// Provider implements domain.AnalysisProvider. Every call goes through a
// circuit breaker and the shared retry policy; transport failures surface as
// domain.ErrProviderUnavailable, schema violations as
// domain.ErrMalformedResponse.
type Provider struct {
	model   string
	breaker *gobreaker.CircuitBreaker
	invoke  invoker
}

func NewProvider(apiKey, model string) *Provider {
	client := openai.NewClient(option.WithAPIKey(apiKey))

	p := &Provider{model: model}
	p.invoke = func(ctx context.Context, params responses.ResponseNewParams) (string, error) {
		resp, err := client.Responses.New(ctx, params)
		if err != nil {
			return "", err
		}
		return resp.OutputText(), nil
	}
	p.breaker = newBreaker()
	return p
}

func newBreaker() *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:     "openai",
		Interval: 60 * time.Second,
		Timeout:  30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.Requests >= 5 && float64(counts.TotalFailures)/float64(counts.Requests) >= 0.6
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("Circuit breaker state changed", "component", name, "from", from.String(), "to", to.String())
		},
	})
}

func (p *Provider) AnalyzeSentiment(ctx context.Context, text string) (domain.SentimentReading, error) {
	if strings.TrimSpace(text) == "" {
		return domain.NeutralReading(), nil
	}

	raw, err := p.call(ctx, analyzeInstructions, text, "SentimentReading", sentimentSchema)
	if err != nil {
		return domain.SentimentReading{}, err
	}

	var out sentimentPayload
	if err := decodeModelJSON(raw, &out); err != nil {
		return domain.SentimentReading{}, fmt.Errorf("%w: %v", domain.ErrMalformedResponse, err)
	}
	return out.toDomain()
}

func (p *Provider) TranslateAndAnalyze(ctx context.Context, text, sourceLangCode, targetLangName string) (domain.TranslationResult, error) {
	instructions := translateInstructions(sourceLangCode, targetLangName)

	raw, err := p.call(ctx, instructions, text, "TranslationResult", translationSchema)
	if err != nil {
		return domain.TranslationResult{}, err
	}

	var out translationPayload
	if err := decodeModelJSON(raw, &out); err != nil {
		return domain.TranslationResult{}, fmt.Errorf("%w: %v", domain.ErrMalformedResponse, err)
	}
	return out.toDomain()
}

func (p *Provider) SuggestEmojiGap(ctx context.Context, req domain.EmojiGapRequest) (domain.EmojiSuggestion, error) {
	raw, err := p.call(ctx, suggestInstructions, suggestInput(req), "EmojiSuggestion", suggestionSchema)
	if err != nil {
		return domain.EmojiSuggestion{}, err
	}

	var out suggestionPayload
	if err := decodeModelJSON(raw, &out); err != nil {
		return domain.EmojiSuggestion{}, fmt.Errorf("%w: %v", domain.ErrMalformedResponse, err)
	}
	return out.toDomain()
}

func (p *Provider) call(ctx context.Context, instructions, input, schemaName string, schema map[string]interface{}) (string, error) {
	params := p.buildParams(instructions, input, schemaName, schema)

	raw, err := retry.Do(ctx, callPolicy(), classifyCallError, func() (string, error) {
		res, err := p.breaker.Execute(func() (interface{}, error) {
			return p.invoke(ctx, params)
		})
		if err != nil {
			return "", err
		}
		return res.(string), nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrProviderUnavailable, err)
	}
	return raw, nil
}

func (p *Provider) buildParams(instructions, input, schemaName string, schema map[string]interface{}) responses.ResponseNewParams {
	format := responses.ResponseFormatTextConfigUnionParam{
		OfJSONSchema: &responses.ResponseFormatTextJSONSchemaConfigParam{
			Name:   schemaName,
			Schema: schema,
			Strict: openai.Bool(true),
			Type:   "json_schema",
		},
	}

	return responses.ResponseNewParams{
		Model:           p.model,
		MaxOutputTokens: openai.Int(maxOutputTokens),
		Instructions:    openai.String(instructions),
		Input: responses.ResponseNewParamsInputUnion{
			OfInputItemList: []responses.ResponseInputItemUnionParam{
				responses.ResponseInputItemParamOfMessage(input, responses.EasyInputMessageRoleUser),
			},
		},
		Text: responses.ResponseTextConfigParam{
			Format: format,
		},
	}
}

func callPolicy() retry.Policy {
	return retry.Policy{
		MaxAttempts:      3,
		InitialBackoff:   retryInitialBackoff,
		RateLimitBackoff: retryRateLimitBackoff,
		OnRetry: func(attempt int, err error, backoff time.Duration) {
			slog.Warn("Provider call failed, retrying", "attempt", attempt, "backoff", backoff, "error", err)
		},
	}
}

func classifyCallError(err error) retry.Action {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return retry.Stop
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return retry.Stop
	}

	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.StatusCode == http.StatusTooManyRequests:
			return retry.After
		case apiErr.StatusCode >= 500:
			return retry.Retry
		default:
			return retry.Stop
		}
	}

	// Transport-level failure without an API status.
	return retry.Retry
}

// --- Response payloads ---

type sentimentPayload struct {
	Valence   float64 `json:"valence"`
	Intimacy  float64 `json:"intimacy"`
	Formality float64 `json:"formality"`
}

func (s sentimentPayload) toDomain() (domain.SentimentReading, error) {
	if s.Valence < -1 || s.Valence > 1 || s.Intimacy < 0 || s.Intimacy > 100 || s.Formality < 0 || s.Formality > 100 {
		return domain.SentimentReading{}, fmt.Errorf("%w: sentiment axes out of range (valence=%v intimacy=%v formality=%v)",
			domain.ErrMalformedResponse, s.Valence, s.Intimacy, s.Formality)
	}
	return domain.SentimentReading{
		Valence:   s.Valence,
		Intimacy:  s.Intimacy,
		Formality: s.Formality,
	}, nil
}

type styleHintsPayload struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

type translationPayload struct {
	TranslatedText  string            `json:"translated_text"`
	SourceSentiment sentimentPayload  `json:"source_sentiment"`
	TargetSentiment sentimentPayload  `json:"target_sentiment"`
	NuanceNote      string            `json:"nuance_note"`
	StyleHints      styleHintsPayload `json:"style_hints"`
}

func (t translationPayload) toDomain() (domain.TranslationResult, error) {
	translated := strings.TrimSpace(t.TranslatedText)
	if translated == "" {
		return domain.TranslationResult{}, fmt.Errorf("%w: empty translated_text", domain.ErrMalformedResponse)
	}

	source, err := t.SourceSentiment.toDomain()
	if err != nil {
		return domain.TranslationResult{}, err
	}
	target, err := t.TargetSentiment.toDomain()
	if err != nil {
		return domain.TranslationResult{}, err
	}

	result := domain.TranslationResult{
		TranslatedText:  translated,
		SourceSentiment: source,
		TargetSentiment: target,
	}
	if note := strings.TrimSpace(t.NuanceNote); note != "" {
		result.NuanceNote = &note
	}
	if t.StyleHints.Source != "" || t.StyleHints.Target != "" {
		result.StyleHints = &domain.StyleHints{
			Source: strings.TrimSpace(t.StyleHints.Source),
			Target: strings.TrimSpace(t.StyleHints.Target),
		}
	}
	return result, nil
}

type suggestionPayload struct {
	Explanation string   `json:"explanation"`
	Glyphs      []string `json:"glyphs"`
}

func (s suggestionPayload) toDomain() (domain.EmojiSuggestion, error) {
	glyphs := make([]string, 0, domain.SuggestionGlyphCount)
	for _, g := range s.Glyphs {
		if g = strings.TrimSpace(g); g != "" {
			glyphs = append(glyphs, g)
		}
	}
	if len(glyphs) < domain.SuggestionGlyphCount {
		return domain.EmojiSuggestion{}, fmt.Errorf("%w: suggestion has %d glyphs, want %d",
			domain.ErrMalformedResponse, len(glyphs), domain.SuggestionGlyphCount)
	}
	if len(glyphs) > domain.SuggestionGlyphCount {
		glyphs = glyphs[:domain.SuggestionGlyphCount]
	}
	return domain.EmojiSuggestion{
		Explanation: strings.TrimSpace(s.Explanation),
		Glyphs:      glyphs,
	}, nil
}
