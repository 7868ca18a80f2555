package api

import (
	"context"

	"github.com/xiaoyuanzhu-com/couplet-server/audio"
	"github.com/xiaoyuanzhu-com/couplet-server/models"
)

// Transcoder prepares an uploaded file for recognition
type Transcoder interface {
	Normalize(ctx context.Context, srcPath string) (*audio.Normalized, error)
}

// Transcriber is the speech recognition gateway
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, sampleRate int, format string) (string, error)
}

// Couplets generates, evaluates and explains couplets
type Couplets interface {
	Generate(ctx context.Context, upText string) (models.CoupletPair, error)
	Evaluate(ctx context.Context, upText, downText string) (models.EvaluationResult, error)
	Explain(ctx context.Context, question, upText, downText string) (models.Explanation, error)
}

// Deps are the components handlers call into
type Deps struct {
	Transcoder     Transcoder
	Transcriber    Transcriber
	Couplets       Couplets
	UploadDir      string
	MaxUploadBytes int64
	Version        string
}

// Handlers holds references to the components; handlers keep no other state
type Handlers struct {
	transcoder     Transcoder
	transcriber    Transcriber
	couplets       Couplets
	uploadDir      string
	maxUploadBytes int64
	version        string
}

// NewHandlers creates a new Handlers instance
func NewHandlers(d Deps) *Handlers {
	return &Handlers{
		transcoder:     d.Transcoder,
		transcriber:    d.Transcriber,
		couplets:       d.Couplets,
		uploadDir:      d.UploadDir,
		maxUploadBytes: d.MaxUploadBytes,
		version:        d.Version,
	}
}
