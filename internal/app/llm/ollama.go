package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"net/http"
	"net/url"

	"github.com/ollama/ollama/api"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

// errConsumerDone stops the chat callback once the consumer breaks out.
var errConsumerDone = errors.New("consumer stopped reading")

// OllamaSource streams chat completions from an Ollama server in JSON mode.
type OllamaSource struct {
	client *api.Client
	model  string
	logger *zap.Logger
}

func NewOllamaSource(host, model string, httpClient *http.Client, logger *zap.Logger) (*OllamaSource, error) {
	base, err := url.Parse(host)
	if err != nil {
		return nil, fmt.Errorf("invalid ollama host %q: %w", host, err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid ollama host %q: scheme and host are required", host)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OllamaSource{
		client: api.NewClient(base, httpClient),
		model:  model,
		logger: logger,
	}, nil
}

func (s *OllamaSource) Provider() string { return "ollama" }

func (s *OllamaSource) Model() string { return s.model }

func (s *OllamaSource) Stream(ctx context.Context, prompt string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		ctx, span := otel.Tracer("llm").Start(ctx, "OllamaSource.Stream")
		defer span.End()
		span.SetAttributes(
			attribute.String("llm.model", s.model),
			attribute.Int("prompt.length", len(prompt)),
		)

		stream := true
		req := &api.ChatRequest{
			Model:    s.model,
			Messages: []api.Message{{Role: "user", Content: prompt}},
			Stream:   &stream,
			Format:   json.RawMessage(`"json"`),
		}

		chunks := 0
		err := s.client.Chat(ctx, req, func(resp api.ChatResponse) error {
			if resp.Message.Content == "" {
				return nil
			}
			chunks++
			if !yield(resp.Message.Content, nil) {
				return errConsumerDone
			}
			return nil
		})
		span.SetAttributes(attribute.Int("stream.chunks", chunks))

		if err != nil && !errors.Is(err, errConsumerDone) {
			span.RecordError(err)
			span.SetStatus(codes.Error, "ollama chat stream failed")
			s.logger.Debug("Ollama chat stream failed", zap.String("model", s.model), zap.Error(err))
			yield("", fmt.Errorf("ollama chat: %w", err))
			return
		}
		span.SetStatus(codes.Ok, "stream finished")
	}
}
