package admin

import (
	"context"
	"fmt"
	"log"

	"github.com/cloo-solutions/contestgen/internal/config"
	"github.com/cloo-solutions/contestgen/internal/gemini"
	"github.com/cloo-solutions/contestgen/internal/openai"
	"github.com/cloo-solutions/contestgen/internal/service"
	goopenai "github.com/sashabaranov/go-openai"
)

// embeddingClient covers both the ingestion and the retrieval side.
type embeddingClient interface {
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// llmProvider is one configured model backend. Embedder and Model are nil
// when the provider's credential is missing; callers then fail with
// MISSING_CREDENTIAL instead of at startup.
type llmProvider struct {
	Name     string
	Embedder embeddingClient
	Model    service.ContestModel
	close    func() error
}

func (p *llmProvider) Available() bool {
	return p.Embedder != nil && p.Model != nil
}

func (p *llmProvider) Close() error {
	if p.close == nil {
		return nil
	}
	return p.close()
}

func newProvider(ctx context.Context, cfg *config.Config) (*llmProvider, error) {
	p := &llmProvider{Name: cfg.Provider()}

	switch p.Name {
	case config.ProviderGemini:
		if !cfg.HasGemini() {
			log.Println("GOOGLE_API_KEY not set: embedding and generation are disabled")
			return p, nil
		}
		client, err := gemini.NewClient(ctx, gemini.Config{
			APIKey:              cfg.GoogleAPIKey,
			ChatModel:           cfg.GeminiModel,
			EmbeddingModel:      cfg.GeminiEmbedModel,
			EmbeddingDimensions: cfg.EmbeddingDimensions,
			Temperature:         cfg.Temperature,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create gemini client: %w", err)
		}
		p.Embedder, p.Model, p.close = client, client, client.Close

	case config.ProviderOpenAI:
		if !cfg.HasOpenAI() {
			log.Println("OPENAI_API_KEY not set: embedding and generation are disabled")
			return p, nil
		}
		client := openai.NewClientWithConfig(openai.Config{
			APIKey:              cfg.OpenAIAPIKey,
			EmbeddingModel:      goopenai.EmbeddingModel(cfg.OpenAIEmbedModel),
			EmbeddingDimensions: cfg.EmbeddingDimensions,
			ChatModel:           cfg.OpenAIModel,
			Temperature:         cfg.Temperature,
		})
		p.Embedder, p.Model = client, client

	default:
		return nil, fmt.Errorf("unknown LLM provider %q", cfg.LLMProvider)
	}

	log.Printf("using %s provider", p.Name)
	return p, nil
}
