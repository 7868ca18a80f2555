package api

import (
	"github.com/gin-gonic/gin"
	"github.com/xiaoyuanzhu-com/couplet-server/log"
	"github.com/xiaoyuanzhu-com/couplet-server/models"
)

type coupletRequest struct {
	Text string `json:"text"`
}

type evaluateRequest struct {
	UpText   string `json:"up_text"`
	DownText string `json:"down_text"`
}

type explainRequest struct {
	Question string `json:"question"`
	UpText   string `json:"up_text"`
	DownText string `json:"down_text"`
}

// Couplet handles POST /api/couplet
func (h *Handlers) Couplet(c *gin.Context) {
	var req coupletRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondCode(c, CodeInvalid, "请求参数错误")
		return
	}

	pair, err := h.couplets.Generate(c.Request.Context(), req.Text)
	if err != nil {
		respondCoupletError(c, "生成下联失败", err)
		return
	}

	RespondOK(c, pair)
}

// Evaluate handles POST /api/evaluate
// An unparseable model reply is still code 0, with the fallback result.
func (h *Handlers) Evaluate(c *gin.Context) {
	var req evaluateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondCode(c, CodeInvalid, "请求参数错误")
		return
	}

	result, err := h.couplets.Evaluate(c.Request.Context(), req.UpText, req.DownText)
	if err != nil {
		respondCoupletError(c, "评分失败", err)
		return
	}

	RespondOK(c, result)
}

// Explain handles POST /api/explain
func (h *Handlers) Explain(c *gin.Context) {
	var req explainRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondCode(c, CodeInvalid, "请求参数错误")
		return
	}

	explanation, err := h.couplets.Explain(c.Request.Context(), req.Question, req.UpText, req.DownText)
	if err != nil {
		respondCoupletError(c, "解答失败", err)
		return
	}

	RespondOK(c, explanation)
}

// respondCoupletError answers code 1 for every failure kind. Validation
// messages are shown as-is; vendor failures get a generic prefix.
func respondCoupletError(c *gin.Context, prefix string, err error) {
	kind := models.KindOf(err)
	log.Ctx(c.Request.Context()).Error().Err(err).Str("kind", kind.String()).Str("path", c.FullPath()).Msg("couplet request failed")

	switch kind {
	case models.KindInvalidInput:
		RespondCode(c, CodeInvalid, models.MessageOf(err))
	case models.KindMalformedResponse:
		RespondCode(c, CodeInvalid, prefix+"：模型返回内容无法使用")
	default:
		RespondCode(c, CodeInvalid, prefix+"：模型服务暂不可用")
	}
}
