package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/cloo-solutions/contestgen/internal/domain"
	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const (
	DefaultChatModel           = "gemini-1.5-flash"
	DefaultEmbeddingModel      = "text-embedding-004"
	DefaultEmbeddingDimensions = 768
	DefaultTemperature         = 0.7
)

var (
	// ErrNoAPIKey is returned when no Google API key is configured
	ErrNoAPIKey = errors.New("GOOGLE_API_KEY is not set")
	// ErrEmptyText is returned when text is empty
	ErrEmptyText = errors.New("text cannot be empty")
	// ErrWrongDimensions is returned when embedding has wrong dimensions
	ErrWrongDimensions = errors.New("embedding has wrong dimensions")
)

// API is the slice of the Gemini SDK the client depends on
type API interface {
	EmbedBatch(ctx context.Context, texts []string, task genai.TaskType) ([][]float32, error)
	GenerateJSON(ctx context.Context, prompt domain.Prompt, temperature float32, schema *genai.Schema) (string, error)
	Close() error
}

// SDKAdapter implements API on top of genai.Client
type SDKAdapter struct {
	client     *genai.Client
	chatModel  string
	embedModel string
}

func NewSDKAdapter(ctx context.Context, apiKey, chatModel, embedModel string) (*SDKAdapter, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return &SDKAdapter{client: client, chatModel: chatModel, embedModel: embedModel}, nil
}

func (a *SDKAdapter) EmbedBatch(ctx context.Context, texts []string, task genai.TaskType) ([][]float32, error) {
	em := a.client.EmbeddingModel(a.embedModel)
	em.TaskType = task

	batch := em.NewBatch()
	for _, t := range texts {
		batch.AddContent(genai.Text(t))
	}

	resp, err := em.BatchEmbedContents(ctx, batch)
	if err != nil {
		return nil, err
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(texts), len(resp.Embeddings))
	}

	out := make([][]float32, len(resp.Embeddings))
	for i, e := range resp.Embeddings {
		if e == nil {
			return nil, fmt.Errorf("embedding %d missing from response", i)
		}
		out[i] = e.Values
	}
	return out, nil
}

func (a *SDKAdapter) GenerateJSON(ctx context.Context, prompt domain.Prompt, temperature float32, schema *genai.Schema) (string, error) {
	model := a.client.GenerativeModel(a.chatModel)
	model.SetTemperature(temperature)
	model.ResponseMIMEType = "application/json"
	model.ResponseSchema = schema
	if prompt.System != "" {
		model.SystemInstruction = genai.NewUserContent(genai.Text(prompt.System))
	}

	resp, err := model.GenerateContent(ctx, genai.Text(prompt.User))
	if err != nil {
		return "", err
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", errors.New("no candidates returned")
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	return sb.String(), nil
}

func (a *SDKAdapter) Close() error {
	return a.client.Close()
}

type Config struct {
	APIKey              string
	ChatModel           string
	EmbeddingModel      string
	EmbeddingDimensions int
	Temperature         float32
}

// Client generates contests and embeddings with Gemini
type Client struct {
	api         API
	dimensions  int
	temperature float32
}

// NewClient dials the Gemini API. A missing key is reported before any network call.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, ErrNoAPIKey
	}
	if cfg.ChatModel == "" {
		cfg.ChatModel = DefaultChatModel
	}
	if cfg.EmbeddingModel == "" {
		cfg.EmbeddingModel = DefaultEmbeddingModel
	}
	adapter, err := NewSDKAdapter(ctx, cfg.APIKey, cfg.ChatModel, cfg.EmbeddingModel)
	if err != nil {
		return nil, err
	}
	return newClient(adapter, cfg), nil
}

func newClient(api API, cfg Config) *Client {
	dimensions := cfg.EmbeddingDimensions
	if dimensions <= 0 {
		dimensions = DefaultEmbeddingDimensions
	}
	temperature := cfg.Temperature
	if temperature == 0 {
		temperature = DefaultTemperature
	}
	return &Client{api: api, dimensions: dimensions, temperature: temperature}
}

func (c *Client) Close() error {
	return c.api.Close()
}

// EmbedDocuments embeds chunk texts for storage
func (c *Client) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	return c.embed(ctx, texts, genai.TaskTypeRetrievalDocument)
}

// EmbedQuery embeds a retrieval query
func (c *Client) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := c.embed(ctx, []string{text}, genai.TaskTypeRetrievalQuery)
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (c *Client) embed(ctx context.Context, texts []string, task genai.TaskType) ([][]float32, error) {
	for _, t := range texts {
		if t == "" {
			return nil, ErrEmptyText
		}
	}

	vectors, err := c.api.EmbedBatch(ctx, texts, task)
	if err != nil {
		return nil, domain.ExternalCallFailed("gemini embeddings", err)
	}
	for _, v := range vectors {
		if len(v) != c.dimensions {
			return nil, fmt.Errorf("%w: expected %d, got %d", ErrWrongDimensions, c.dimensions, len(v))
		}
	}
	return vectors, nil
}

// GenerateContest asks the model for a contest constrained to ContestSchema
func (c *Client) GenerateContest(ctx context.Context, prompt domain.Prompt) (*domain.Contest, error) {
	content, err := c.api.GenerateJSON(ctx, prompt, c.temperature, ContestSchema())
	if err != nil {
		return nil, domain.ExternalCallFailed("gemini generate content", err)
	}

	content = strings.TrimSpace(content)
	if content == "" {
		return nil, domain.SchemaViolation("model returned an empty response")
	}

	var contest domain.Contest
	dec := json.NewDecoder(strings.NewReader(content))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&contest); err != nil {
		return nil, domain.SchemaViolation("response is not a contest object: %v", err)
	}
	return &contest, nil
}

// ContestSchema is the response schema handed to Gemini for contest generation.
func ContestSchema() *genai.Schema {
	optionSchema := &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"id":   {Type: genai.TypeString, Description: domain.DescOptionID},
			"text": {Type: genai.TypeString, Description: domain.DescOptionText},
		},
		Required: []string{"id", "text"},
	}

	question := &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"title":     {Type: genai.TypeString, Description: domain.DescQuestionTitle},
			"statement": {Type: genai.TypeString, Description: domain.DescQuestionStatement},
			"inputType": {
				Type:        genai.TypeString,
				Format:      "enum",
				Description: domain.DescQuestionInputType,
				Enum:        []string{string(domain.InputTypeMCQSingle), string(domain.InputTypeNumeric)},
			},
			"options":       {Type: genai.TypeArray, Description: domain.DescQuestionOptions, Items: optionSchema, Nullable: true},
			"correctAnswer": {Type: genai.TypeString, Description: domain.DescQuestionAnswer},
			"points":        {Type: genai.TypeInteger, Description: domain.DescQuestionPoints},
			"difficulty": {
				Type:        genai.TypeString,
				Format:      "enum",
				Description: domain.DescQuestionDifficulty,
				Enum:        []string{string(domain.DifficultyEasy), string(domain.DifficultyMedium), string(domain.DifficultyHard)},
			},
			"solution": {Type: genai.TypeString, Description: domain.DescQuestionSolution},
		},
		Required: []string{"title", "statement", "inputType", "correctAnswer", "points", "difficulty", "solution"},
	}

	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"title":       {Type: genai.TypeString, Description: domain.DescContestTitle},
			"description": {Type: genai.TypeString, Description: domain.DescContestDescription},
			"problems":    {Type: genai.TypeArray, Description: domain.DescContestProblems, Items: question},
		},
		Required: []string{"title", "description", "problems"},
	}
}
