package couplet

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xiaoyuanzhu-com/couplet-server/knowledge"
	"github.com/xiaoyuanzhu-com/couplet-server/models"
	"github.com/xiaoyuanzhu-com/couplet-server/vendors"
)

type stubCompleter struct {
	reply string
	err   error
	calls []vendors.CompletionOptions
}

func (s *stubCompleter) Complete(_ context.Context, opts vendors.CompletionOptions) (string, error) {
	s.calls = append(s.calls, opts)
	return s.reply, s.err
}

var testCorpus = knowledge.NewBase([]knowledge.Entry{
	{Upper: "春风又绿江南岸", Lower: "明月何时照我还"},
	{Upper: "山中相送罢", Lower: "日暮掩柴扉"},
}, "test")

var testConfig = Config{
	TopK:            3,
	MinScore:        0.3,
	GenerateTimeout: 15 * time.Second,
	EvaluateTimeout: 30 * time.Second,
	ExplainTimeout:  25 * time.Second,
}

func TestGenerate_CleansReplyAndUsesExamples(t *testing.T) {
	llm := &stubCompleter{reply: "下联：明月何时照我还。\n这是一副经典对联。"}
	svc := NewService(llm, testCorpus, testConfig)

	pair, err := svc.Generate(context.Background(), " 春风又绿江南岸 ")
	require.NoError(t, err)
	assert.Equal(t, models.CoupletPair{UpText: "春风又绿江南岸", DownText: "明月何时照我还"}, pair)

	require.Len(t, llm.calls, 1)
	assert.Equal(t, SystemPrompt, llm.calls[0].SystemPrompt)
	assert.Equal(t, 15*time.Second, llm.calls[0].Timeout)
	assert.Contains(t, llm.calls[0].Prompt, "风格参考")
	assert.Contains(t, llm.calls[0].Prompt, "明月何时照我还")
}

func TestGenerate_NoExamplesWhenNothingSimilar(t *testing.T) {
	llm := &stubCompleter{reply: "白鹭上青天"}
	svc := NewService(llm, testCorpus, testConfig)

	_, err := svc.Generate(context.Background(), "两个黄鹂鸣")
	require.NoError(t, err)
	assert.NotContains(t, llm.calls[0].Prompt, "风格参考")
}

func TestGenerate_NilRetriever(t *testing.T) {
	svc := NewService(&stubCompleter{reply: "日暮掩柴扉"}, nil, testConfig)
	pair, err := svc.Generate(context.Background(), "山中相送罢")
	require.NoError(t, err)
	assert.Equal(t, "日暮掩柴扉", pair.DownText)
}

func TestGenerate_Errors(t *testing.T) {
	_, err := NewService(&stubCompleter{}, nil, testConfig).Generate(context.Background(), "  ")
	assert.Equal(t, models.KindInvalidInput, models.KindOf(err))

	_, err = NewService(&stubCompleter{reply: "。。！"}, nil, testConfig).Generate(context.Background(), "山中相送罢")
	assert.Equal(t, models.KindMalformedResponse, models.KindOf(err))

	transport := models.TransportError("llm.complete", errors.New("timeout"))
	_, err = NewService(&stubCompleter{err: transport}, nil, testConfig).Generate(context.Background(), "山中相送罢")
	assert.Equal(t, models.KindTransport, models.KindOf(err))
}

func TestEvaluate_WorkedExample(t *testing.T) {
	llm := &stubCompleter{reply: `{"score": 95, "duizhang_score": 38, "pingze_score": 28, "content_score": 29, "detail": "对仗工整"}`}
	svc := NewService(llm, nil, testConfig)

	got, err := svc.Evaluate(context.Background(), "春风又绿江南岸", "明月何时照我还")
	require.NoError(t, err)
	assert.Equal(t, 95, got.Score)
	assert.Equal(t, 38, got.DuizhangScore)
	assert.Equal(t, 28, got.PingzeScore)
	require.NotNil(t, got.ContentScore)
	assert.Equal(t, 29, *got.ContentScore)

	assert.Equal(t, 30*time.Second, llm.calls[0].Timeout)
	assert.Contains(t, llm.calls[0].Prompt, "上联：春风又绿江南岸")
	assert.Contains(t, llm.calls[0].Prompt, "下联：明月何时照我还")
}

func TestEvaluate_UnparseableReplyFallsBack(t *testing.T) {
	svc := NewService(&stubCompleter{reply: "这副对联写得很好！"}, nil, testConfig)

	got, err := svc.Evaluate(context.Background(), "山中相送罢", "日暮掩柴扉")
	require.NoError(t, err)
	assert.Zero(t, got.Score)
	assert.Nil(t, got.ContentScore)
	assert.Contains(t, got.Detail, "这副对联写得很好！")
}

func TestEvaluate_EmptyModelReplyFallsBack(t *testing.T) {
	empty := models.MalformedResponse("llm.complete", "模型返回内容为空")
	svc := NewService(&stubCompleter{err: empty}, nil, testConfig)

	got, err := svc.Evaluate(context.Background(), "山中相送罢", "日暮掩柴扉")
	require.NoError(t, err)
	assert.Zero(t, got.Score)
	assert.Zero(t, got.DuizhangScore)
	assert.Nil(t, got.ContentScore)
	assert.Contains(t, got.Detail, "模型返回内容为空")
}

func TestEvaluate_Errors(t *testing.T) {
	_, err := NewService(&stubCompleter{}, nil, testConfig).Evaluate(context.Background(), "山中相送罢", "")
	assert.Equal(t, models.KindInvalidInput, models.KindOf(err))

	transport := models.TransportError("llm.complete", errors.New("refused"))
	_, err = NewService(&stubCompleter{err: transport}, nil, testConfig).Evaluate(context.Background(), "a", "b")
	assert.Equal(t, models.KindTransport, models.KindOf(err))
}

func TestExplain(t *testing.T) {
	llm := &stubCompleter{reply: "  “绿”字用作动词，化静为动。\n"}
	svc := NewService(llm, nil, testConfig)

	got, err := svc.Explain(context.Background(), "绿字好在哪里？", "春风又绿江南岸", "")
	require.NoError(t, err)
	assert.Equal(t, "“绿”字用作动词，化静为动。", got.Explanation)

	prompt := llm.calls[0].Prompt
	assert.Contains(t, prompt, "上联：春风又绿江南岸")
	assert.NotContains(t, prompt, "下联：")
	assert.True(t, strings.Contains(prompt, "绿字好在哪里？"))

	_, err = svc.Explain(context.Background(), " ", "a", "b")
	assert.Equal(t, models.KindInvalidInput, models.KindOf(err))
}
