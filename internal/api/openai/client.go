package openai

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/sashabaranov/go-openai"

	"github.com/Alias1177/NovaAnalyst/internal/gpt"
	"github.com/Alias1177/NovaAnalyst/models"
)

const (
	defaultModel     = openai.GPT3Dot5Turbo
	defaultMaxTokens = 1200
	analysisTemp     = 0.3
	chatMaxTokens    = 700
	// chatHistoryLimit is how many previous messages are sent with a chat turn
	chatHistoryLimit = 5
)

var (
	// ErrEmptyCompletion is returned when the API answers without choices
	ErrEmptyCompletion = errors.New("openai returned no choices")
	// ErrNoClient is returned by calls that have no data-only fallback
	ErrNoClient = errors.New("openai client not configured")
)

// completer is the part of the go-openai client we use
type completer interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Client wraps the OpenAI API client
type Client struct {
	client    completer
	model     string
	maxTokens int
	logger    zerolog.Logger
}

// ClientOptions configures the client
type ClientOptions struct {
	APIKey    string
	Model     string
	BaseURL   string
	MaxTokens int
}

// NewClient creates a new OpenAI client
func NewClient(options ClientOptions) *Client {
	cfg := openai.DefaultConfig(options.APIKey)
	if options.BaseURL != "" {
		cfg.BaseURL = options.BaseURL
	}
	if options.Model == "" {
		options.Model = defaultModel
	}
	if options.MaxTokens <= 0 {
		options.MaxTokens = defaultMaxTokens
	}

	return &Client{
		client:    openai.NewClientWithConfig(cfg),
		model:     options.Model,
		maxTokens: options.MaxTokens,
		logger:    log.With().Str("component", "openai_client").Logger(),
	}
}

// Available reports whether apiKey looks like a usable OpenAI key
func Available(apiKey string) bool {
	return strings.HasPrefix(apiKey, "sk-") && len(apiKey) > 20
}

// ChatMessage is one turn of a conversation
type ChatMessage struct {
	FromUser bool
	Content  string
}

// GenerateCompletion sends a system and user prompt and returns the completion
func (c *Client) GenerateCompletion(ctx context.Context, system, prompt string, temperature float32, jsonFormat bool) (string, error) {
	c.logger.Debug().Int("prompt_len", len(prompt)).Msg("Sending prompt to OpenAI")

	req := openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: temperature,
		MaxTokens:   c.maxTokens,
	}
	if jsonFormat {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject}
	}

	return c.complete(ctx, req)
}

// AnalyzeReport asks the model for an analysis of rep. Any failure, or a
// missing client, yields the data-only fallback analysis and the error.
func (c *Client) AnalyzeReport(ctx context.Context, rep *models.AnalysisReport, kind gpt.AnalysisType, additionalContext string) (*gpt.Analysis, error) {
	if c == nil {
		return gpt.FallbackAnalysis(rep), nil
	}

	text, err := c.GenerateCompletion(ctx, gpt.SystemPrompt(kind), gpt.UserPrompt(rep, kind, additionalContext), analysisTemp, false)
	if err != nil {
		c.logger.Warn().Err(err).Str("query", rep.Query).Msg("AI analysis failed, using fallback")
		return gpt.FallbackAnalysis(rep), err
	}

	return &gpt.Analysis{
		Format:       "text",
		AnalysisText: text,
		AIGenerated:  true,
	}, nil
}

// AnalyzeReportJSON requests a JSON object analysis. Replies that are not
// valid JSON are returned as text.
func (c *Client) AnalyzeReportJSON(ctx context.Context, rep *models.AnalysisReport, kind gpt.AnalysisType) (map[string]interface{}, error) {
	if c == nil {
		return nil, ErrNoClient
	}
	text, err := c.GenerateCompletion(ctx, gpt.SystemPrompt(kind), gpt.UserPrompt(rep, kind, "Respond with a JSON object."), analysisTemp, true)
	if err != nil {
		return nil, err
	}

	var out map[string]interface{}
	if err := json.Unmarshal([]byte(text), &out); err != nil {
		c.logger.Warn().Err(err).Msg("Error parsing JSON analysis")
		return map[string]interface{}{
			"analysisText": text,
			"format":       "text",
			"parseError":   err.Error(),
		}, nil
	}
	return out, nil
}

// Chat answers a free-form message in the persona's voice
func (c *Client) Chat(ctx context.Context, persona gpt.Persona, system string, history []ChatMessage, message string) (string, error) {
	if len(history) > chatHistoryLimit {
		history = history[len(history)-chatHistoryLimit:]
	}

	messages := make([]openai.ChatCompletionMessage, 0, len(history)+2)
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: system})
	for _, m := range history {
		role := openai.ChatMessageRoleAssistant
		if m.FromUser {
			role = openai.ChatMessageRoleUser
		}
		messages = append(messages, openai.ChatCompletionMessage{Role: role, Content: m.Content})
	}
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: message})

	return c.complete(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: persona.Temperature,
		MaxTokens:   chatMaxTokens,
	})
}

func (c *Client) complete(ctx context.Context, req openai.ChatCompletionRequest) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		c.logger.Error().Err(err).Msg("OpenAI API error")
		return "", &models.UpstreamError{Source: "openai", Op: "chat_completion", Err: err}
	}

	if len(resp.Choices) == 0 {
		c.logger.Warn().Msg("OpenAI returned empty choices")
		return "", &models.UpstreamError{Source: "openai", Op: "chat_completion", Err: ErrEmptyCompletion}
	}

	return resp.Choices[0].Message.Content, nil
}
