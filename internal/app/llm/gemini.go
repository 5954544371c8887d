package llm

import (
	"context"
	"fmt"
	"iter"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
	"google.golang.org/genai"
)

// GeminiSource streams content from the Gemini API with a JSON response type.
type GeminiSource struct {
	models responseStreamer
	model  string
	config *genai.GenerateContentConfig
	logger *zap.Logger
}

// responseStreamer is the part of *genai.Models used here.
type responseStreamer interface {
	GenerateContentStream(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) iter.Seq2[*genai.GenerateContentResponse, error]
}

func NewGeminiSource(ctx context.Context, apiKey, model string, logger *zap.Logger) (*GeminiSource, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is not set")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return newGeminiSource(client.Models, model, logger), nil
}

func newGeminiSource(models responseStreamer, model string, logger *zap.Logger) *GeminiSource {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GeminiSource{
		models: models,
		model:  model,
		config: &genai.GenerateContentConfig{
			ResponseMIMEType: "application/json",
			Temperature:      genai.Ptr[float32](0.7),
		},
		logger: logger,
	}
}

func (s *GeminiSource) Provider() string { return "gemini" }

func (s *GeminiSource) Model() string { return s.model }

func (s *GeminiSource) Stream(ctx context.Context, prompt string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		ctx, span := otel.Tracer("llm").Start(ctx, "GeminiSource.Stream")
		defer span.End()
		span.SetAttributes(
			attribute.String("llm.model", s.model),
			attribute.Int("prompt.length", len(prompt)),
		)

		responses := s.models.GenerateContentStream(ctx, s.model, genai.Text(prompt), s.config)
		for text, err := range TextParts(responses) {
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, "gemini stream failed")
				s.logger.Debug("Gemini stream failed", zap.String("model", s.model), zap.Error(err))
				yield("", fmt.Errorf("gemini stream: %w", err))
				return
			}
			if !yield(text, nil) {
				return
			}
		}
		span.SetStatus(codes.Ok, "stream finished")
	}
}

// TextParts flattens a Gemini response stream into its text parts.
// The first error is yielded once and ends the sequence.
func TextParts(responses iter.Seq2[*genai.GenerateContentResponse, error]) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		for resp, err := range responses {
			if err != nil {
				yield("", err)
				return
			}
			if resp == nil {
				continue
			}
			for _, cand := range resp.Candidates {
				if cand == nil || cand.Content == nil {
					continue
				}
				for _, part := range cand.Content.Parts {
					if part == nil || part.Text == "" || part.Thought {
						continue
					}
					if !yield(part.Text, nil) {
						return
					}
				}
			}
		}
	}
}
