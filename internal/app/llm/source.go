package llm

import (
	"context"
	"fmt"
	"iter"
	"net/http"

	"go.uber.org/zap"

	"github.com/Anexus5919/RoamiQ/internal/app/models"
	"github.com/Anexus5919/RoamiQ/internal/pkg/config"
)

// ChunkSource streams the raw text of one model response. The sequence ends
// after the last chunk, or yields a single non-nil error and stops.
type ChunkSource interface {
	Stream(ctx context.Context, prompt string) iter.Seq2[string, error]
	Provider() string
	Model() string
}

// NewSource builds the chunk source selected by cfg.Provider.
func NewSource(ctx context.Context, cfg config.LLMConfig, logger *zap.Logger) (ChunkSource, error) {
	switch cfg.Provider {
	case config.ProviderOllama:
		return NewOllamaSource(cfg.OllamaHost, cfg.OllamaModel, http.DefaultClient, logger)
	case config.ProviderGemini:
		return NewGeminiSource(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, logger)
	default:
		return nil, fmt.Errorf("%w: %q", models.ErrUnknownLLMProvider, cfg.Provider)
	}
}
