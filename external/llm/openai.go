package llm

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/riskibarqy/fpl-assistant/internal/platform/logging"
)

const defaultOpenAIModel = "gpt-4o"

type OpenAIConfig struct {
	APIKey      string
	Model       string
	Temperature float64
	Logger      *logging.Logger
}

// OpenAI talks to the chat completions API.
type OpenAI struct {
	client      openai.Client
	model       string
	temperature float64
	logger      *logging.Logger
}

// NewOpenAI builds the provider. Extra request options are appended after
// the API key, which lets tests point the client at a local server.
func NewOpenAI(cfg OpenAIConfig, opts ...option.RequestOption) (*OpenAI, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("openai api key is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}

	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = defaultOpenAIModel
	}

	clientOpts := append([]option.RequestOption{option.WithAPIKey(cfg.APIKey)}, opts...)

	return &OpenAI{
		client:      openai.NewClient(clientOpts...),
		model:       model,
		temperature: cfg.Temperature,
		logger:      logger,
	}, nil
}

func (o *OpenAI) Name() string { return "openai" }

func (o *OpenAI) Generate(ctx context.Context, req Request) (Reply, error) {
	if len(req.Messages) == 0 {
		return Reply{}, fmt.Errorf("request has no messages")
	}

	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.Messages)+1)
	if req.SystemInstruction != "" {
		messages = append(messages, openai.SystemMessage(req.SystemInstruction))
	}
	for _, m := range req.Messages {
		if m.Role == RoleAssistant {
			messages = append(messages, openai.AssistantMessage(m.Text))
			continue
		}
		messages = append(messages, openai.UserMessage(m.Text))
	}

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(o.model),
		Messages: messages,
	}
	if o.temperature > 0 {
		params.Temperature = openai.Float(o.temperature)
	}

	resp, err := o.client.Chat.Completions.New(ctx, params)
	if err != nil {
		o.logger.WarnContext(ctx, "openai generate failed", "model", o.model, "error", err)
		return Reply{}, classifyOpenAIError(err)
	}

	if len(resp.Choices) == 0 {
		return Reply{}, fmt.Errorf("%w: completion has no choices", ErrNotRetryable)
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return Reply{}, fmt.Errorf("%w: empty completion", ErrNotRetryable)
	}

	return Reply{Text: text}, nil
}

func classifyOpenAIError(err error) error {
	var apiErr *openai.Error
	if stderrors.As(err, &apiErr) {
		return classifyStatus(apiErr.StatusCode, err)
	}
	return classifyTransport(err)
}
