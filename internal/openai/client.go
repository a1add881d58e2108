package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/cloo-solutions/contestgen/internal/domain"
	openai "github.com/sashabaranov/go-openai"
	"github.com/sashabaranov/go-openai/jsonschema"
)

const (
	// DefaultEmbeddingModel is the OpenAI model used for generating embeddings
	DefaultEmbeddingModel = openai.SmallEmbedding3
	// DefaultEmbeddingDimensions matches the chunk table's vector column
	DefaultEmbeddingDimensions = 768
	// DefaultChatModel is used for contest generation
	DefaultChatModel = openai.GPT4oMini
	// DefaultTemperature keeps generated contests varied between runs
	DefaultTemperature = 0.7

	contestSchemaName = "contest"
)

var (
	// ErrEmptyText is returned when text is empty
	ErrEmptyText = errors.New("text cannot be empty")
	// ErrWrongDimensions is returned when embedding has wrong dimensions
	ErrWrongDimensions = errors.New("embedding has wrong dimensions")
)

// API defines the subset of the OpenAI API the client depends on
type API interface {
	CreateEmbeddings(ctx context.Context, texts []string) ([][]float32, error)
	CreateStructuredCompletion(ctx context.Context, req openai.ChatCompletionRequest) (string, error)
}

// Client wraps the OpenAI API client
type Client struct {
	api         API
	dimensions  int
	chatModel   string
	temperature float32
}

type OpenAIAdapter struct {
	client     *openai.Client
	model      openai.EmbeddingModel
	dimensions int
}

func NewOpenAIAdapter(apiKey string, model openai.EmbeddingModel, dimensions int) *OpenAIAdapter {
	if model == "" {
		model = DefaultEmbeddingModel
	}
	return &OpenAIAdapter{
		client:     openai.NewClient(apiKey),
		model:      model,
		dimensions: dimensions,
	}
}

// CreateEmbeddings calls the OpenAI API to create one embedding per input
func (a *OpenAIAdapter) CreateEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	resp, err := a.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input:      texts,
		Model:      a.model,
		Dimensions: a.dimensions,
	})
	if err != nil {
		return nil, err
	}

	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(texts), len(resp.Data))
	}

	out := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(out) {
			return nil, fmt.Errorf("embedding index %d out of range", d.Index)
		}
		out[d.Index] = d.Embedding
	}
	return out, nil
}

// CreateStructuredCompletion runs a chat completion and returns the first choice's content
func (a *OpenAIAdapter) CreateStructuredCompletion(ctx context.Context, req openai.ChatCompletionRequest) (string, error) {
	resp, err := a.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("no completion choices returned")
	}
	msg := resp.Choices[0].Message
	if msg.Refusal != "" {
		return "", fmt.Errorf("model refused: %s", msg.Refusal)
	}
	return msg.Content, nil
}

type Config struct {
	APIKey              string
	EmbeddingModel      openai.EmbeddingModel
	EmbeddingDimensions int
	ChatModel           string
	Temperature         float32
}

// NewClient creates a new OpenAI client using defaults.
func NewClient(apiKey string) *Client {
	return NewClientWithConfig(Config{APIKey: apiKey})
}

// NewClientWithConfig creates a new OpenAI client with explicit configuration.
func NewClientWithConfig(cfg Config) *Client {
	dimensions := cfg.EmbeddingDimensions
	if dimensions <= 0 {
		dimensions = DefaultEmbeddingDimensions
	}
	chatModel := cfg.ChatModel
	if chatModel == "" {
		chatModel = DefaultChatModel
	}
	temperature := cfg.Temperature
	if temperature == 0 {
		temperature = DefaultTemperature
	}
	return &Client{
		api:         NewOpenAIAdapter(cfg.APIKey, cfg.EmbeddingModel, dimensions),
		dimensions:  dimensions,
		chatModel:   chatModel,
		temperature: temperature,
	}
}

// EmbedQuery generates an embedding for a retrieval query
func (c *Client) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, ErrEmptyText
	}
	vectors, err := c.EmbedDocuments(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedDocuments generates one embedding per text in a single request
func (c *Client) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	for _, t := range texts {
		if t == "" {
			return nil, ErrEmptyText
		}
	}

	vectors, err := c.api.CreateEmbeddings(ctx, texts)
	if err != nil {
		return nil, domain.ExternalCallFailed("openai embeddings", err)
	}

	for _, v := range vectors {
		if len(v) != c.dimensions {
			return nil, fmt.Errorf("%w: expected %d, got %d", ErrWrongDimensions, c.dimensions, len(v))
		}
	}
	return vectors, nil
}

// GenerateContest asks the chat model for a contest constrained to the contest JSON schema
func (c *Client) GenerateContest(ctx context.Context, prompt domain.Prompt) (*domain.Contest, error) {
	schema := ContestSchema()
	req := openai.ChatCompletionRequest{
		Model:       c.chatModel,
		Temperature: c.temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: prompt.System},
			{Role: openai.ChatMessageRoleUser, Content: prompt.User},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:   contestSchemaName,
				Schema: &schema,
				Strict: true,
			},
		},
	}

	content, err := c.api.CreateStructuredCompletion(ctx, req)
	if err != nil {
		return nil, domain.ExternalCallFailed("openai chat completion", err)
	}

	return decodeContest(content)
}

func decodeContest(content string) (*domain.Contest, error) {
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

// ContestSchema is the strict JSON schema for a generated contest.
func ContestSchema() jsonschema.Definition {
	option := jsonschema.Definition{
		Type: jsonschema.Object,
		Properties: map[string]jsonschema.Definition{
			"id":   {Type: jsonschema.String, Description: domain.DescOptionID},
			"text": {Type: jsonschema.String, Description: domain.DescOptionText},
		},
		Required:             []string{"id", "text"},
		AdditionalProperties: false,
	}

	question := jsonschema.Definition{
		Type: jsonschema.Object,
		Properties: map[string]jsonschema.Definition{
			"title":     {Type: jsonschema.String, Description: domain.DescQuestionTitle},
			"statement": {Type: jsonschema.String, Description: domain.DescQuestionStatement},
			"inputType": {
				Type:        jsonschema.String,
				Description: domain.DescQuestionInputType,
				Enum:        []string{string(domain.InputTypeMCQSingle), string(domain.InputTypeNumeric)},
			},
			"options":       {Type: jsonschema.Array, Description: domain.DescQuestionOptions, Items: &option},
			"correctAnswer": {Type: jsonschema.String, Description: domain.DescQuestionAnswer},
			"points":        {Type: jsonschema.Integer, Description: domain.DescQuestionPoints},
			"difficulty": {
				Type:        jsonschema.String,
				Description: domain.DescQuestionDifficulty,
				Enum:        []string{string(domain.DifficultyEasy), string(domain.DifficultyMedium), string(domain.DifficultyHard)},
			},
			"solution": {Type: jsonschema.String, Description: domain.DescQuestionSolution},
		},
		Required:             []string{"title", "statement", "inputType", "options", "correctAnswer", "points", "difficulty", "solution"},
		AdditionalProperties: false,
	}

	return jsonschema.Definition{
		Type: jsonschema.Object,
		Properties: map[string]jsonschema.Definition{
			"title":       {Type: jsonschema.String, Description: domain.DescContestTitle},
			"description": {Type: jsonschema.String, Description: domain.DescContestDescription},
			"problems":    {Type: jsonschema.Array, Description: domain.DescContestProblems, Items: &question},
		},
		Required:             []string{"title", "description", "problems"},
		AdditionalProperties: false,
	}
}
