package vendors

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/xiaoyuanzhu-com/couplet-server/log"
	"github.com/xiaoyuanzhu-com/couplet-server/metrics"
	"github.com/xiaoyuanzhu-com/couplet-server/models"
	"github.com/xiaoyuanzhu-com/couplet-server/normalize"
)

const (
	opTranscribe = "asr.transcribe"

	// tokenRefreshMargin renews the access token before the vendor expires it
	tokenRefreshMargin = 5 * time.Minute
)

// ASRConfig configures the short-speech recognition client
type ASRConfig struct {
	APIKey     string
	SecretKey  string
	TokenURL   string
	URL        string
	DevPID     int // language/model id, 1537 = Mandarin
	Timeout    time.Duration
	HTTPClient *http.Client
}

// ASRClient talks to a Baidu-style short speech recognition REST API:
// an OAuth client-credentials token plus one JSON request per utterance.
type ASRClient struct {
	cfg        ASRConfig
	httpClient *http.Client
	cuid       string

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
	now         func() time.Time
}

type asrTokenResponse struct {
	AccessToken      string `json:"access_token"`
	ExpiresIn        int64  `json:"expires_in"`
	Error            string `json:"error,omitempty"`
	ErrorDescription string `json:"error_description,omitempty"`
}

type asrRequest struct {
	Format  string `json:"format"`
	Rate    int    `json:"rate"`
	Channel int    `json:"channel"`
	CUID    string `json:"cuid"`
	Token   string `json:"token"`
	DevPID  int    `json:"dev_pid,omitempty"`
	Speech  string `json:"speech"`
	Len     int    `json:"len"`
}

type asrResponse struct {
	ErrNo  int      `json:"err_no"`
	ErrMsg string   `json:"err_msg"`
	SN     string   `json:"sn"`
	Result []string `json:"result"`
}

// NewASRClient returns nil when credentials are missing; a nil client
// fails every call with a TransportError.
func NewASRClient(cfg ASRConfig) *ASRClient {
	if cfg.APIKey == "" || cfg.SecretKey == "" {
		log.Warn().Msg("ASR_API_KEY / ASR_SECRET_KEY not configured, speech recognition disabled")
		return nil
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	log.Info().Str("url", cfg.URL).Int("devPID", cfg.DevPID).Msg("ASR initialized")

	return &ASRClient{
		cfg:        cfg,
		httpClient: httpClient,
		cuid:       "couplet-" + uuid.NewString(),
		now:        time.Now,
	}
}

// Transcribe recognizes a short utterance. audio must already be in the
// given format and sample rate (16 kHz mono 16-bit for "wav"/"pcm").
// The vendor's text comes back with labels and trailing punctuation removed.
func (c *ASRClient) Transcribe(ctx context.Context, audio []byte, sampleRate int, format string) (string, error) {
	if c == nil {
		return "", models.TransportError(opTranscribe, ErrNotConfigured)
	}

	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}

	start := time.Now()

	token, err := c.accessToken(ctx)
	if err != nil {
		metrics.ObserveVendor("asr", "transcribe", start, models.KindTransport.String())
		log.Ctx(ctx).Error().Err(err).Msg("failed to obtain ASR access token")
		return "", models.TransportError(opTranscribe, err)
	}

	req := asrRequest{
		Format:  format,
		Rate:    sampleRate,
		Channel: 1,
		CUID:    c.cuid,
		Token:   token,
		DevPID:  c.cfg.DevPID,
		Speech:  base64.StdEncoding.EncodeToString(audio),
		Len:     len(audio),
	}

	respBody, err := c.doRequest(ctx, http.MethodPost, c.cfg.URL, req)
	if err != nil {
		metrics.ObserveVendor("asr", "transcribe", start, models.KindTransport.String())
		log.Ctx(ctx).Error().Err(err).Msg("ASR request failed")
		return "", models.TransportError(opTranscribe, err)
	}

	var result asrResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		metrics.ObserveVendor("asr", "transcribe", start, models.KindTransport.String())
		return "", models.TransportError(opTranscribe, fmt.Errorf("failed to parse ASR response: %w", err))
	}

	if result.ErrNo != 0 {
		metrics.ObserveVendor("asr", "transcribe", start, models.KindRecognitionFailed.String())
		log.Ctx(ctx).Warn().
			Int("errNo", result.ErrNo).
			Str("errMsg", result.ErrMsg).
			Str("sn", result.SN).
			Msg("ASR recognition failed")
		return "", models.RecognitionFailed(opTranscribe, fmt.Sprintf("%s (err_no %d)", result.ErrMsg, result.ErrNo))
	}

	if len(result.Result) == 0 {
		metrics.ObserveVendor("asr", "transcribe", start, models.KindRecognitionFailed.String())
		return "", models.RecognitionFailed(opTranscribe, "未识别到语音内容")
	}

	metrics.ObserveVendor("asr", "transcribe", start, "")
	text := normalize.Clean(result.Result[0])

	log.Ctx(ctx).Info().
		Str("sn", result.SN).
		Int("audioBytes", len(audio)).
		Str("text", text).
		Dur("elapsed", time.Since(start)).
		Msg("ASR completed successfully")

	return text, nil
}

// accessToken returns a cached token, fetching a new one when it is missing
// or close to expiry. Concurrent callers share one fetch.
func (c *ASRClient) accessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && c.now().Before(c.tokenExpiry) {
		return c.token, nil
	}

	q := url.Values{}
	q.Set("grant_type", "client_credentials")
	q.Set("client_id", c.cfg.APIKey)
	q.Set("client_secret", c.cfg.SecretKey)

	body, err := c.doRequest(ctx, http.MethodPost, c.cfg.TokenURL+"?"+q.Encode(), nil)
	if err != nil {
		return "", err
	}

	var tok asrTokenResponse
	if err := json.Unmarshal(body, &tok); err != nil {
		return "", fmt.Errorf("failed to parse token response: %w", err)
	}
	if tok.AccessToken == "" {
		return "", fmt.Errorf("token endpoint returned no access token: %s %s", tok.Error, tok.ErrorDescription)
	}

	lifetime := time.Duration(tok.ExpiresIn) * time.Second
	if lifetime > 2*tokenRefreshMargin {
		lifetime -= tokenRefreshMargin
	} else {
		lifetime /= 2
	}

	c.token = tok.AccessToken
	c.tokenExpiry = c.now().Add(lifetime)
	log.Ctx(ctx).Debug().Dur("lifetime", lifetime).Msg("ASR access token refreshed")

	return c.token, nil
}

// doRequest performs an HTTP request to the ASR vendor
func (c *ASRClient) doRequest(ctx context.Context, method, url string, body interface{}) ([]byte, error) {
	var reqBody io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reqBody = bytes.NewBuffer(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(respBody))
	}

	return respBody, nil
}
