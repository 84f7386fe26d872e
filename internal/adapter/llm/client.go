// Package llm implements the participant and evaluator calls on an
// OpenAI-compatible chat completion endpoint.
package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	openai "github.com/sashabaranov/go-openai"

	"github.com/Strob0t/interviewlab/internal/domain/evaluation"
	"github.com/Strob0t/interviewlab/internal/domain/prompt"
	"github.com/Strob0t/interviewlab/internal/port/agent"
	"github.com/Strob0t/interviewlab/internal/resilience"
)

// ErrEmptyResponse is returned when the endpoint answers without a choice.
var ErrEmptyResponse = errors.New("llm: empty response")

const turnSchemaName = "interviewer_turn"

// turnSchema is the response format of interviewer calls.
var turnSchema = evaluation.Schema{
	"type": "object",
	"properties": map[string]any{
		"message": map[string]any{"type": "string", "description": "The next thing to say to the respondent"},
		"done":    map[string]any{"type": "boolean", "description": "True when no further questions are needed"},
	},
	"required":             []string{"message", "done"},
	"additionalProperties": false,
}

// Client calls the chat completion API.
type Client struct {
	api          *openai.Client
	defaultModel string
	breaker      *resilience.Breaker
}

// NewClient creates a client for baseURL. defaultModel is used when a request
// names no model.
func NewClient(baseURL, apiKey, defaultModel string, timeout time.Duration) *Client {
	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = strings.TrimRight(baseURL, "/")
	cfg.HTTPClient = &http.Client{Timeout: timeout}
	return &Client{api: openai.NewClientWithConfig(cfg), defaultModel: defaultModel}
}

// SetBreaker attaches a circuit breaker to all completion calls.
func (c *Client) SetBreaker(b *resilience.Breaker) {
	c.breaker = b
}

// CallParticipant implements agent.Participant. Interviewer calls ask for a
// structured {message, done} reply; persona calls return plain text.
func (c *Client) CallParticipant(ctx context.Context, req agent.ParticipantRequest) (*agent.Reply, error) {
	var format *openai.ChatCompletionResponseFormat
	if req.Role == prompt.RoleInterviewer {
		format = jsonSchemaFormat(turnSchemaName, turnSchema)
	}

	msgs := participantMessages(req)
	content, err := c.complete(ctx, req.Model, msgs, format)
	if err != nil {
		return nil, fmt.Errorf("participant %s: %w", req.Role, err)
	}
	if format == nil {
		return &agent.Reply{Content: strings.TrimSpace(content)}, nil
	}
	return parseTurn(content), nil
}

// CallEvaluator implements agent.Evaluator. The response is constrained to
// req.Schema in strict mode and returned unparsed.
func (c *Client) CallEvaluator(ctx context.Context, req agent.EvaluatorRequest) ([]byte, error) {
	content, err := c.complete(ctx, req.Model, evaluatorMessages(req), jsonSchemaFormat(evaluation.SchemaName, req.Schema))
	if err != nil {
		return nil, fmt.Errorf("evaluator: %w", err)
	}
	return []byte(content), nil
}

func (c *Client) complete(ctx context.Context, model string, msgs []openai.ChatCompletionMessage, format *openai.ChatCompletionResponseFormat) (string, error) {
	if model == "" {
		model = c.defaultModel
	}
	req := openai.ChatCompletionRequest{
		Model:          model,
		Messages:       msgs,
		ResponseFormat: format,
	}

	var content string
	call := func(ctx context.Context) error {
		resp, err := c.api.CreateChatCompletion(ctx, req)
		if err != nil {
			return err
		}
		if len(resp.Choices) == 0 {
			return ErrEmptyResponse
		}
		content = resp.Choices[0].Message.Content
		return nil
	}

	var err error
	if c.breaker != nil {
		err = c.breaker.Do(ctx, call)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return "", err
	}
	return content, nil
}

func jsonSchemaFormat(name string, schema evaluation.Schema) *openai.ChatCompletionResponseFormat {
	return &openai.ChatCompletionResponseFormat{
		Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
		JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
			Name:   name,
			Schema: schema,
			Strict: true,
		},
	}
}

// parseTurn reads an interviewer reply. Text that is not the expected object
// is kept as the message with the done flag unset.
func parseTurn(content string) *agent.Reply {
	var turn struct {
		Message string `json:"message"`
		Done    bool   `json:"done"`
	}
	if err := sonic.ConfigStd.UnmarshalFromString(content, &turn); err != nil || strings.TrimSpace(turn.Message) == "" {
		return &agent.Reply{Content: strings.TrimSpace(content)}
	}
	return &agent.Reply{Content: strings.TrimSpace(turn.Message), Done: turn.Done}
}
