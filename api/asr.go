package api

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/xiaoyuanzhu-com/couplet-server/log"
	"github.com/xiaoyuanzhu-com/couplet-server/models"
	"github.com/xiaoyuanzhu-com/couplet-server/utils"
)

// multipartOverhead leaves room for boundaries and headers around the file part
const multipartOverhead = 1 << 20

type asrResult struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	SavePath    string `json:"save_path"`
	Text        string `json:"text"`
}

// ASR handles POST /api/asr
// Multipart field "file" holds the recording. The upload is kept under the
// upload dir; the 16 kHz copy made for the recognizer is removed afterwards.
func (h *Handlers) ASR(c *gin.Context) {
	logger := log.Ctx(c.Request.Context())

	if h.maxUploadBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes+multipartOverhead)
	}

	file, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			RespondCode(c, CodeInvalid, "音频文件过大")
			return
		}
		RespondCode(c, CodeInvalid, "请上传音频文件")
		return
	}

	contentType := file.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = utils.DetectMimeType(file.Filename)
	}
	if !strings.HasPrefix(contentType, "audio/") {
		RespondCode(c, CodeInvalid, "请上传音频文件")
		return
	}
	if h.maxUploadBytes > 0 && file.Size > h.maxUploadBytes {
		RespondCode(c, CodeInvalid, "音频文件过大")
		return
	}

	savePath, err := h.saveUpload(file)
	if err != nil {
		logger.Error().Err(err).Str("filename", file.Filename).Msg("asr: failed to save upload")
		RespondCode(c, CodeTransport, "保存音频失败")
		return
	}

	ctx := c.Request.Context()

	normalized, err := h.transcoder.Normalize(ctx, savePath)
	if err != nil {
		logger.Error().Err(err).Str("path", savePath).Msg("asr: transcode failed")
		RespondCode(c, asrCode(err), "音频转码失败")
		return
	}
	defer func() {
		if rmErr := os.Remove(normalized.Path); rmErr != nil && !os.IsNotExist(rmErr) {
			logger.Warn().Err(rmErr).Str("path", normalized.Path).Msg("asr: failed to remove normalized audio")
		}
	}()

	text, err := h.transcriber.Transcribe(ctx, normalized.Data, normalized.SampleRate, normalized.Format)
	if err != nil {
		code := asrCode(err)
		logger.Error().Err(err).Int("code", code).Str("path", savePath).Msg("asr: recognition failed")
		if code == CodeRecognition {
			RespondCode(c, code, fmt.Sprintf("语音识别失败：%s", models.MessageOf(err)))
		} else {
			RespondCode(c, code, "语音识别服务暂不可用")
		}
		return
	}

	logger.Info().
		Str("filename", file.Filename).
		Str("path", savePath).
		Int64("size", file.Size).
		Str("text", text).
		Msg("asr completed")

	RespondOK(c, asrResult{
		Filename:    file.Filename,
		ContentType: contentType,
		SavePath:    savePath,
		Text:        text,
	})
}

// saveUpload writes the multipart file under a name no concurrent upload can take
func (h *Handlers) saveUpload(file *multipart.FileHeader) (string, error) {
	if err := os.MkdirAll(h.uploadDir, 0755); err != nil {
		return "", err
	}

	in, err := file.Open()
	if err != nil {
		return "", err
	}
	defer in.Close()

	out, err := utils.CreateUniqueFile(h.uploadDir, utils.SanitizeFilename(file.Filename))
	if err != nil {
		return "", err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(out.Name())
		return "", err
	}
	if err := out.Close(); err != nil {
		os.Remove(out.Name())
		return "", err
	}

	return filepath.ToSlash(out.Name()), nil
}
