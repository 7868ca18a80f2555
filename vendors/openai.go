package vendors

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/xiaoyuanzhu-com/couplet-server/log"
	"github.com/xiaoyuanzhu-com/couplet-server/metrics"
	"github.com/xiaoyuanzhu-com/couplet-server/models"
)

const opComplete = "llm.complete"

// LLMConfig configures an OpenAI-compatible chat completion endpoint
type LLMConfig struct {
	APIKey     string
	BaseURL    string
	Model      string
	HTTPClient *http.Client
}

// OpenAIClient wraps the OpenAI client
type OpenAIClient struct {
	client *openai.Client
	model  string
}

// CompletionOptions holds options for completions
type CompletionOptions struct {
	SystemPrompt string
	Prompt       string
	MaxTokens    int
	Temperature  float32
	// Timeout bounds the whole call; zero means the caller's context decides
	Timeout time.Duration
}

// NewOpenAIClient returns nil when no API key is configured; a nil client
// fails every call with a TransportError instead of panicking.
func NewOpenAIClient(cfg LLMConfig) *OpenAIClient {
	if cfg.APIKey == "" {
		log.Warn().Msg("OPENAI_API_KEY not configured, LLM disabled")
		return nil
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	if cfg.HTTPClient != nil {
		clientConfig.HTTPClient = cfg.HTTPClient
	}

	log.Info().Str("model", cfg.Model).Str("baseURL", clientConfig.BaseURL).Msg("OpenAI initialized")

	return &OpenAIClient{
		client: openai.NewClientWithConfig(clientConfig),
		model:  cfg.Model,
	}
}

// Complete performs a single chat completion and returns the raw text.
// No retries: transport failures, timeouts and non-2xx answers surface as
// TransportError, a reply without usable content as MalformedResponse.
func (o *OpenAIClient) Complete(ctx context.Context, opts CompletionOptions) (string, error) {
	if o == nil {
		return "", models.TransportError(opComplete, ErrNotConfigured)
	}

	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	var messages []openai.ChatCompletionMessage

	if opts.SystemPrompt != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: opts.SystemPrompt,
		})
	}

	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: opts.Prompt,
	})

	req := openai.ChatCompletionRequest{
		Model:       o.model,
		Messages:    messages,
		MaxTokens:   opts.MaxTokens,
		Temperature: opts.Temperature,
	}

	log.Ctx(ctx).Debug().
		Str("model", o.model).
		Str("prompt", opts.Prompt).
		Int("maxTokens", opts.MaxTokens).
		Float32("temperature", opts.Temperature).
		Dur("timeout", opts.Timeout).
		Msg("openai request")

	start := time.Now()
	resp, err := o.client.CreateChatCompletion(ctx, req)
	if err != nil {
		metrics.ObserveVendor("openai", "complete", start, models.KindTransport.String())
		log.Ctx(ctx).Error().Err(err).Dur("elapsed", time.Since(start)).Msg("completion failed")
		return "", models.TransportError(opComplete, err)
	}

	if len(resp.Choices) == 0 {
		metrics.ObserveVendor("openai", "complete", start, models.KindMalformedResponse.String())
		log.Ctx(ctx).Error().
			Int("choicesCount", len(resp.Choices)).
			Interface("response", resp).
			Msg("openai response has no choices")
		return "", models.MalformedResponse(opComplete, "模型未返回任何结果")
	}

	content := resp.Choices[0].Message.Content
	if strings.TrimSpace(content) == "" {
		metrics.ObserveVendor("openai", "complete", start, models.KindMalformedResponse.String())
		log.Ctx(ctx).Error().Str("finishReason", string(resp.Choices[0].FinishReason)).Msg("openai response is empty")
		return "", models.MalformedResponse(opComplete, "模型返回内容为空")
	}

	metrics.ObserveVendor("openai", "complete", start, "")
	log.Ctx(ctx).Info().
		Str("finishReason", string(resp.Choices[0].FinishReason)).
		Int("promptTokens", resp.Usage.PromptTokens).
		Int("completionTokens", resp.Usage.CompletionTokens).
		Dur("elapsed", time.Since(start)).
		Msg("openai response")

	return content, nil
}
