package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/xiaoyuanzhu-com/couplet-server/metrics"
	"github.com/xiaoyuanzhu-com/couplet-server/models"
)

// =============================================================================
// Envelope Responses
// =============================================================================
//
// Every business endpoint answers HTTP 200 with {code, msg, data}.
// code 0 is success; non-zero codes are failure categories clients switch on.

// Envelope codes
const (
	CodeOK          = 0
	CodeInvalid     = 1 // bad input, or any failure on the couplet endpoints
	CodeTranscode   = 2 // uploaded audio could not be converted
	CodeRecognition = 3 // ASR vendor answered but recognized nothing
	CodeTransport   = 4 // vendor unreachable, timeout, or unexpected failure
)

// Envelope is the response body of every business endpoint
type Envelope struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
	Data any    `json:"data,omitempty"`
}

// RespondOK sends code 0 with data
func RespondOK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, Envelope{Code: CodeOK, Msg: "ok", Data: data})
}

// RespondCode sends a failure envelope and counts it
func RespondCode(c *gin.Context, code int, msg string) {
	metrics.ObserveEnvelope(c.FullPath(), code)
	c.JSON(http.StatusOK, Envelope{Code: code, Msg: msg})
}

// asrCode maps a failure kind to the speech endpoint's code
func asrCode(err error) int {
	switch models.KindOf(err) {
	case models.KindInvalidInput:
		return CodeInvalid
	case models.KindTranscode:
		return CodeTranscode
	case models.KindRecognitionFailed:
		return CodeRecognition
	default:
		return CodeTransport
	}
}
