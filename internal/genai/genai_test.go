package genai

import (
	"context"
	"errors"
	"testing"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// mockCompletionService implements completionService for tests.
type mockCompletionService struct {
	resp *openai.ChatCompletion
	err  error
	got  openai.ChatCompletionNewParams
}

func (m *mockCompletionService) New(ctx context.Context, params openai.ChatCompletionNewParams, opts ...option.RequestOption) (*openai.ChatCompletion, error) {
	m.got = params
	return m.resp, m.err
}

func newTestClient(mock *mockCompletionService) *Client {
	return &Client{
		completions: mock,
		model:       DefaultModel,
		maxTokens:   DefaultMaxTokens,
		temperature: DefaultTemperature,
		timeout:     DefaultTimeout,
	}
}

func TestComplete_Success(t *testing.T) {
	mock := &mockCompletionService{
		resp: &openai.ChatCompletion{
			Choices: []openai.ChatCompletionChoice{
				{Message: openai.ChatCompletionMessage{Content: "hello there"}},
			},
		},
	}
	c := newTestClient(mock)

	out, err := c.Complete(context.Background(), "be brief", "say hi")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "hello there" {
		t.Errorf("Complete = %q, want %q", out, "hello there")
	}
	if len(mock.got.Messages) != 2 {
		t.Errorf("expected system + user messages, got %d", len(mock.got.Messages))
	}
}

func TestComplete_ServiceError(t *testing.T) {
	mock := &mockCompletionService{err: errors.New("upstream down")}
	c := newTestClient(mock)

	if _, err := c.Complete(context.Background(), "s", "u"); err == nil {
		t.Error("expected error from failing service")
	}
}

func TestComplete_NoChoices(t *testing.T) {
	mock := &mockCompletionService{resp: &openai.ChatCompletion{}}
	c := newTestClient(mock)

	if _, err := c.Complete(context.Background(), "s", "u"); err == nil {
		t.Error("expected error when no choices returned")
	}
}

func TestNewClient_NoKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	if _, err := NewClient(); err == nil {
		t.Error("expected error when no API key is configured")
	}
}

func TestNewClient_WithKey(t *testing.T) {
	cli, err := NewClient(WithAPIKey("test-key"), WithModel("gpt-4o"), WithMaxTokens(100))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cli.model != "gpt-4o" {
		t.Errorf("model = %q, want gpt-4o", cli.model)
	}
	if cli.maxTokens != 100 {
		t.Errorf("maxTokens = %d, want 100", cli.maxTokens)
	}
}
