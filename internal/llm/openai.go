package llm

import (
	"context"
	"encoding/base64"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"spendora/internal/core"
)

const (
	// DefaultBaseURL is Gemini's OpenAI-compatible endpoint.
	DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta/openai/"
	DefaultModel   = "gemini-2.5-flash"
)

type OpenAIConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	// Timeout bounds a single call; zero leaves it to the caller's context.
	Timeout    time.Duration
	HTTPClient *http.Client
}

// OpenAIModel talks to any OpenAI-compatible chat completion API and asks
// for output constrained by a JSON schema.
type OpenAIModel struct {
	client  *openai.Client
	model   string
	timeout time.Duration
}

var _ Model = (*OpenAIModel)(nil)

func NewOpenAIModel(cfg OpenAIConfig) *OpenAIModel {
	config := openai.DefaultConfig(cfg.APIKey)
	config.BaseURL = strings.TrimRight(DefaultBaseURL, "/")
	if cfg.BaseURL != "" {
		config.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	if cfg.HTTPClient != nil {
		config.HTTPClient = cfg.HTTPClient
	}

	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}

	return &OpenAIModel{
		client:  openai.NewClientWithConfig(config),
		model:   model,
		timeout: cfg.Timeout,
	}
}

func (m *OpenAIModel) Name() string { return m.model }

// attachmentPart inlines plain text documents and sends other media as a
// base64 data URL.
func attachmentPart(att *Attachment) openai.ChatMessagePart {
	mimeType := core.NormalizeMIME(att.MIMEType)
	if mimeType == core.MIMEText {
		return openai.ChatMessagePart{Type: openai.ChatMessagePartTypeText, Text: string(att.Data)}
	}
	dataURL := "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(att.Data)
	return openai.ChatMessagePart{Type: openai.ChatMessagePartTypeImageURL, ImageURL: &openai.ChatMessageImageURL{URL: dataURL}}
}

func (m *OpenAIModel) Generate(ctx context.Context, req Request) (string, error) {
	if m.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.timeout)
		defer cancel()
	}

	user := openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser}
	if req.Attachment != nil {
		user.MultiContent = []openai.ChatMessagePart{
			attachmentPart(req.Attachment),
			{Type: openai.ChatMessagePartTypeText, Text: req.Prompt},
		}
	} else {
		user.Content = req.Prompt
	}

	schema := req.Schema
	resp, err := m.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: m.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			user,
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:   req.SchemaName,
				Schema: &schema,
			},
		},
		Temperature: 0.1,
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Message.Content, nil
}
