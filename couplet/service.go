package couplet

import (
	"context"
	"strings"
	"time"

	"github.com/xiaoyuanzhu-com/couplet-server/knowledge"
	"github.com/xiaoyuanzhu-com/couplet-server/log"
	"github.com/xiaoyuanzhu-com/couplet-server/metrics"
	"github.com/xiaoyuanzhu-com/couplet-server/models"
	"github.com/xiaoyuanzhu-com/couplet-server/normalize"
	"github.com/xiaoyuanzhu-com/couplet-server/vendors"
)

// Completer is the LLM gateway as seen by the service
type Completer interface {
	Complete(ctx context.Context, opts vendors.CompletionOptions) (string, error)
}

// Retriever finds style references for a generation prompt
type Retriever interface {
	Retrieve(query string, k int, minScore float64) []knowledge.Match
}

// Config holds retrieval parameters and per-call LLM timeouts
type Config struct {
	TopK            int
	MinScore        float64
	GenerateTimeout time.Duration
	EvaluateTimeout time.Duration
	ExplainTimeout  time.Duration
}

// Service generates, evaluates and explains couplets
type Service struct {
	llm       Completer
	retriever Retriever
	cfg       Config
}

// NewService wires the LLM and the knowledge base. retriever may be nil.
func NewService(llm Completer, retriever Retriever, cfg Config) *Service {
	return &Service{llm: llm, retriever: retriever, cfg: cfg}
}

// Generate produces a lower line for upText
func (s *Service) Generate(ctx context.Context, upText string) (models.CoupletPair, error) {
	upText = strings.TrimSpace(upText)
	if upText == "" {
		return models.CoupletPair{}, models.InvalidInput("couplet.generate", "上联不能为空")
	}

	var examples []knowledge.Match
	if s.retriever != nil {
		examples = s.retriever.Retrieve(upText, s.cfg.TopK, s.cfg.MinScore)
	}

	log.Ctx(ctx).Debug().Str("upText", upText).Int("examples", len(examples)).Msg("generating couplet")

	raw, err := s.llm.Complete(ctx, vendors.CompletionOptions{
		SystemPrompt: SystemPrompt,
		Prompt:       GenerationPrompt(upText, examples),
		MaxTokens:    64,
		Temperature:  0.8,
		Timeout:      s.cfg.GenerateTimeout,
	})
	if err != nil {
		return models.CoupletPair{}, err
	}

	downText := normalize.Clean(firstLine(raw))
	if downText == "" {
		return models.CoupletPair{}, models.MalformedResponse("couplet.generate", "模型未给出下联")
	}

	return models.CoupletPair{UpText: upText, DownText: downText}, nil
}

// Evaluate scores a couplet. A reply that cannot be parsed is not an error:
// it yields the zero-scored fallback carrying the raw text.
func (s *Service) Evaluate(ctx context.Context, upText, downText string) (models.EvaluationResult, error) {
	upText = strings.TrimSpace(upText)
	downText = strings.TrimSpace(downText)
	if upText == "" || downText == "" {
		return models.EvaluationResult{}, models.InvalidInput("couplet.evaluate", "上联和下联都不能为空")
	}

	raw, err := s.llm.Complete(ctx, vendors.CompletionOptions{
		SystemPrompt: SystemPrompt,
		Prompt:       EvaluationPrompt(upText, downText),
		MaxTokens:    512,
		Temperature:  0.2,
		Timeout:      s.cfg.EvaluateTimeout,
	})
	if models.KindOf(err) == models.KindMalformedResponse {
		metrics.EvaluationFallbacks.Inc()
		log.Ctx(ctx).Warn().Err(err).Msg("evaluation reply empty, using fallback")
		return normalize.FallbackEvaluation(raw, err), nil
	}
	if err != nil {
		return models.EvaluationResult{}, err
	}

	result, perr := normalize.DecodeScored(raw)
	if perr != nil {
		metrics.EvaluationFallbacks.Inc()
		log.Ctx(ctx).Warn().Err(perr).Str("raw", raw).Msg("evaluation reply not parseable, using fallback")
		return normalize.FallbackEvaluation(raw, perr), nil
	}
	return result, nil
}

// Explain answers a question, with the couplet as optional context
func (s *Service) Explain(ctx context.Context, question, upText, downText string) (models.Explanation, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return models.Explanation{}, models.InvalidInput("couplet.explain", "问题不能为空")
	}

	raw, err := s.llm.Complete(ctx, vendors.CompletionOptions{
		SystemPrompt: SystemPrompt,
		Prompt:       ExplanationPrompt(question, strings.TrimSpace(upText), strings.TrimSpace(downText)),
		MaxTokens:    1024,
		Temperature:  0.5,
		Timeout:      s.cfg.ExplainTimeout,
	})
	if err != nil {
		return models.Explanation{}, err
	}

	return models.Explanation{Explanation: strings.TrimSpace(raw)}, nil
}

// firstLine drops anything a chatty model appends after the answer
func firstLine(s string) string {
	for _, line := range strings.Split(s, "\n") {
		if strings.TrimSpace(line) != "" {
			return line
		}
	}
	return ""
}
