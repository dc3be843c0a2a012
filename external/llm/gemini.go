package llm

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/genai"

	"github.com/riskibarqy/fpl-assistant/internal/platform/logging"
)

const defaultGeminiModel = "gemini-2.0-flash"

type GeminiConfig struct {
	APIKey      string
	Model       string
	Temperature float32
	// HTTPClient and BaseURL override the SDK transport, used in tests.
	HTTPClient *http.Client
	BaseURL    string
	Logger     *logging.Logger
}

// Gemini talks to the Google generative-language API.
type Gemini struct {
	client *genai.Client
	model  string
	base   genai.GenerateContentConfig
	logger *logging.Logger
}

func NewGemini(ctx context.Context, cfg GeminiConfig) (*Gemini, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}

	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = defaultGeminiModel
	}

	clientCfg := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.HTTPClient != nil {
		clientCfg.HTTPClient = cfg.HTTPClient
	}
	if cfg.BaseURL != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	base := genai.GenerateContentConfig{}
	if cfg.Temperature > 0 {
		temperature := cfg.Temperature
		base.Temperature = &temperature
	}

	return &Gemini{
		client: client,
		model:  model,
		base:   base,
		logger: logger,
	}, nil
}

func (g *Gemini) Name() string { return "gemini" }

func (g *Gemini) Generate(ctx context.Context, req Request) (Reply, error) {
	if len(req.Messages) == 0 {
		return Reply{}, fmt.Errorf("request has no messages")
	}

	contents := make([]*genai.Content, 0, len(req.Messages))
	for _, m := range req.Messages {
		role := genai.RoleUser
		if m.Role == RoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(m.Text, role))
	}

	cfg := g.base
	if req.SystemInstruction != "" {
		cfg.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: req.SystemInstruction}}}
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, &cfg)
	if err != nil {
		g.logger.WarnContext(ctx, "gemini generate failed", "model", g.model, "error", err)
		return Reply{}, classifyGeminiError(err)
	}

	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != genai.BlockedReasonUnspecified {
		reason := fmt.Sprintf("%v", resp.PromptFeedback.BlockReason)
		if resp.PromptFeedback.BlockReasonMessage != "" {
			reason = resp.PromptFeedback.BlockReasonMessage
		}
		return Reply{}, fmt.Errorf("%w: blocked by safety filter: %s", ErrNotRetryable, reason)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		finishReason := "unknown"
		if len(resp.Candidates) > 0 && resp.Candidates[0].FinishReason != genai.FinishReasonUnspecified {
			finishReason = fmt.Sprintf("%v", resp.Candidates[0].FinishReason)
		}
		return Reply{}, fmt.Errorf("%w: empty completion, finish reason: %s", ErrNotRetryable, finishReason)
	}

	return Reply{Text: text}, nil
}

// classifyGeminiError matches genai.APIError by value, which is how the SDK
// returns it.
func classifyGeminiError(err error) error {
	var apiErr genai.APIError
	if stderrors.As(err, &apiErr) {
		return classifyStatus(apiErr.Code, err)
	}
	return classifyTransport(err)
}
