package openai

import (
	"context"
	"errors"
	"testing"

	"github.com/cloo-solutions/contestgen/internal/domain"
	openai "github.com/sashabaranov/go-openai"
	"github.com/sashabaranov/go-openai/jsonschema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockOpenAIAPI is a mock for the OpenAI API
type MockOpenAIAPI struct {
	mock.Mock
}

func (m *MockOpenAIAPI) CreateEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	args := m.Called(ctx, texts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([][]float32), args.Error(1)
}

func (m *MockOpenAIAPI) CreateStructuredCompletion(ctx context.Context, req openai.ChatCompletionRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

func newTestClient(api API) *Client {
	return &Client{api: api, dimensions: 4, chatModel: DefaultChatModel, temperature: DefaultTemperature}
}

const contestJSON = `{
  "title": "Weekly Physics",
  "description": "General revision",
  "problems": [
    {
      "title": "Projectile",
      "statement": "A ball is thrown...",
      "inputType": "mcq_single",
      "options": [{"id": "A", "text": "10 m"}, {"id": "B", "text": "20 m"}],
      "correctAnswer": "B",
      "points": 4,
      "difficulty": "medium",
      "solution": "Use the range formula."
    },
    {
      "title": "Spring",
      "statement": "Find k.",
      "inputType": "numeric",
      "options": [],
      "correctAnswer": "250",
      "points": 4,
      "difficulty": "hard",
      "solution": "F = kx."
    }
  ]
}`

func TestClient_EmbedDocuments_Success(t *testing.T) {
	mockAPI := new(MockOpenAIAPI)
	client := newTestClient(mockAPI)

	ctx := context.Background()
	texts := []string{"first chunk", "second chunk"}
	vectors := [][]float32{{0.1, 0.2, 0.3, 0.4}, {0.5, 0.6, 0.7, 0.8}}

	mockAPI.On("CreateEmbeddings", ctx, texts).Return(vectors, nil)

	got, err := client.EmbedDocuments(ctx, texts)

	assert.NoError(t, err)
	assert.Equal(t, vectors, got)
	mockAPI.AssertExpectations(t)
}

func TestClient_EmbedDocuments_EmptyText(t *testing.T) {
	client := NewClient("")

	got, err := client.EmbedDocuments(context.Background(), []string{"ok", ""})

	assert.Nil(t, got)
	assert.Equal(t, ErrEmptyText, err)
}

func TestClient_EmbedDocuments_APIError(t *testing.T) {
	mockAPI := new(MockOpenAIAPI)
	client := newTestClient(mockAPI)

	ctx := context.Background()
	mockAPI.On("CreateEmbeddings", ctx, []string{"text"}).Return(nil, errors.New("API rate limit exceeded"))

	got, err := client.EmbedDocuments(ctx, []string{"text"})

	assert.Nil(t, got)
	assert.True(t, domain.HasCode(err, domain.ErrCodeExternalCallFailed))
	assert.Contains(t, err.Error(), "API rate limit exceeded")
}

func TestClient_EmbedDocuments_WrongDimensions(t *testing.T) {
	mockAPI := new(MockOpenAIAPI)
	client := newTestClient(mockAPI)

	ctx := context.Background()
	mockAPI.On("CreateEmbeddings", ctx, []string{"text"}).Return([][]float32{make([]float32, 512)}, nil)

	got, err := client.EmbedDocuments(ctx, []string{"text"})

	assert.Nil(t, got)
	assert.ErrorIs(t, err, ErrWrongDimensions)
}

func TestClient_EmbedQuery(t *testing.T) {
	mockAPI := new(MockOpenAIAPI)
	client := newTestClient(mockAPI)

	ctx := context.Background()
	mockAPI.On("CreateEmbeddings", ctx, []string{"query"}).Return([][]float32{{1, 2, 3, 4}}, nil)

	got, err := client.EmbedQuery(ctx, "query")

	require.NoError(t, err)
	assert.Equal(t, []float32{1, 2, 3, 4}, got)

	_, err = client.EmbedQuery(ctx, "")
	assert.Equal(t, ErrEmptyText, err)
}

func TestClient_GenerateContest_Success(t *testing.T) {
	mockAPI := new(MockOpenAIAPI)
	client := newTestClient(mockAPI)

	ctx := context.Background()
	prompt := domain.Prompt{System: "You are an examiner.", User: "Generate 2 questions."}

	mockAPI.On("CreateStructuredCompletion", ctx, mock.MatchedBy(func(req openai.ChatCompletionRequest) bool {
		return req.Model == DefaultChatModel &&
			req.Temperature == DefaultTemperature &&
			len(req.Messages) == 2 &&
			req.Messages[0].Role == openai.ChatMessageRoleSystem &&
			req.Messages[0].Content == prompt.System &&
			req.Messages[1].Content == prompt.User &&
			req.ResponseFormat != nil &&
			req.ResponseFormat.Type == openai.ChatCompletionResponseFormatTypeJSONSchema &&
			req.ResponseFormat.JSONSchema.Strict
	})).Return(contestJSON, nil)

	contest, err := client.GenerateContest(ctx, prompt)

	require.NoError(t, err)
	assert.Equal(t, "Weekly Physics", contest.Title)
	require.Len(t, contest.Problems, 2)
	assert.Equal(t, domain.InputTypeMCQSingle, contest.Problems[0].InputType)
	assert.Equal(t, "B", contest.Problems[0].CorrectAnswer)
	assert.Equal(t, domain.InputTypeNumeric, contest.Problems[1].InputType)
	assert.Empty(t, contest.Problems[1].Options)
	mockAPI.AssertExpectations(t)
}

func TestClient_GenerateContest_APIError(t *testing.T) {
	mockAPI := new(MockOpenAIAPI)
	client := newTestClient(mockAPI)

	mockAPI.On("CreateStructuredCompletion", mock.Anything, mock.Anything).Return("", errors.New("timeout"))

	contest, err := client.GenerateContest(context.Background(), domain.Prompt{User: "x"})

	assert.Nil(t, contest)
	assert.True(t, domain.HasCode(err, domain.ErrCodeExternalCallFailed))
}

func TestClient_GenerateContest_MalformedResponse(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "empty", content: "  "},
		{name: "not json", content: "Here is your contest!"},
		{name: "unknown field", content: `{"title":"t","description":"d","problems":[],"extra":1}`},
		{name: "wrong type", content: `{"title":"t","description":"d","problems":"none"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockAPI := new(MockOpenAIAPI)
			client := newTestClient(mockAPI)
			mockAPI.On("CreateStructuredCompletion", mock.Anything, mock.Anything).Return(tt.content, nil)

			contest, err := client.GenerateContest(context.Background(), domain.Prompt{User: "x"})

			assert.Nil(t, contest)
			assert.True(t, domain.HasCode(err, domain.ErrCodeSchemaViolation))
		})
	}
}

func TestContestSchema(t *testing.T) {
	schema := ContestSchema()

	assert.Equal(t, jsonschema.Object, schema.Type)
	assert.ElementsMatch(t, []string{"title", "description", "problems"}, schema.Required)

	question := schema.Properties["problems"].Items
	require.NotNil(t, question)
	assert.Len(t, question.Required, 8)
	assert.Equal(t, []string{"mcq_single", "numeric"}, question.Properties["inputType"].Enum)
	assert.Equal(t, []string{"easy", "medium", "hard"}, question.Properties["difficulty"].Enum)
	assert.Equal(t, jsonschema.Integer, question.Properties["points"].Type)

	option := question.Properties["options"].Items
	require.NotNil(t, option)
	assert.ElementsMatch(t, []string{"id", "text"}, option.Required)
}

func TestNewClientWithConfig_Defaults(t *testing.T) {
	client := NewClientWithConfig(Config{APIKey: "test-api-key"})

	assert.NotNil(t, client.api)
	assert.Equal(t, DefaultEmbeddingDimensions, client.dimensions)
	assert.Equal(t, DefaultChatModel, client.chatModel)
	assert.Equal(t, float32(DefaultTemperature), client.temperature)
}
