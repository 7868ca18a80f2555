package audio

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	resampling "github.com/tphakala/go-audio-resampling"
	"github.com/xiaoyuanzhu-com/couplet-server/log"
	"github.com/xiaoyuanzhu-com/couplet-server/models"
	"github.com/xiaoyuanzhu-com/couplet-server/utils"
)

const (
	opNormalize = "audio.normalize"

	// TargetSampleRate is what the recognizer expects
	TargetSampleRate = 16000
)

// ErrFFmpegNotFound is returned when a non-WAV upload needs ffmpeg and none is installed
var ErrFFmpegNotFound = errors.New("ffmpeg not found")

// Config for the transcoder
type Config struct {
	FFmpegPath string
}

// Normalized is recognizer-ready audio: 16 kHz, mono, 16-bit PCM WAV
type Normalized struct {
	Path       string
	Data       []byte
	SampleRate int
	Format     string
}

// Transcoder converts uploaded audio into the recognizer's input format
type Transcoder struct {
	ffmpegPath string
}

// NewTranscoder creates a transcoder; an empty ffmpeg path means "ffmpeg" on PATH
func NewTranscoder(cfg Config) *Transcoder {
	path := cfg.FFmpegPath
	if path == "" {
		path = "ffmpeg"
	}
	return &Transcoder{ffmpegPath: path}
}

// Normalize writes <name>.16k.wav next to srcPath and returns its contents.
// The destination is created exclusively ("<name>.16k 2.wav" when taken), so
// it never overwrites another upload or another request's output.
// 16-bit PCM WAV is converted in-process; anything else goes through ffmpeg.
// Every failure is a TranscodeFailure.
func (t *Transcoder) Normalize(ctx context.Context, srcPath string) (*Normalized, error) {
	start := time.Now()

	src, err := os.ReadFile(srcPath)
	if err != nil {
		return nil, models.TranscodeFailure(opNormalize, err)
	}

	dst, err := utils.CreateUniqueFile(filepath.Dir(srcPath), filepath.Base(normalizedPath(srcPath)))
	if err != nil {
		return nil, models.TranscodeFailure(opNormalize, err)
	}
	dstPath := dst.Name()

	out, method, err := t.convert(ctx, src, srcPath, dst)
	if err != nil {
		_ = os.Remove(dstPath)
		return nil, models.TranscodeFailure(opNormalize, err)
	}

	log.Ctx(ctx).Info().
		Str("src", srcPath).
		Str("dst", dstPath).
		Str("method", method).
		Int("bytes", len(out)).
		Dur("elapsed", time.Since(start)).
		Msg("audio normalized")

	return &Normalized{
		Path:       dstPath,
		Data:       out,
		SampleRate: TargetSampleRate,
		Format:     "wav",
	}, nil
}

// convert fills the reserved dst file and returns its contents. dst is closed on return.
func (t *Transcoder) convert(ctx context.Context, src []byte, srcPath string, dst *os.File) ([]byte, string, error) {
	var (
		data   []byte
		err    error
		method = "wav"
	)
	if isWAV(src) {
		data, err = convertWAV(src)
		if errors.Is(err, ErrUnsupportedWAV) {
			log.Ctx(ctx).Debug().Err(err).Str("path", srcPath).Msg("WAV not decodable in-process, using ffmpeg")
			data, method, err = nil, "ffmpeg", nil
		}
		if err != nil {
			dst.Close()
			return nil, method, err
		}
	} else {
		method = "ffmpeg"
	}

	if data == nil {
		// ffmpeg rewrites the path we reserved
		if err := dst.Close(); err != nil {
			return nil, method, err
		}
		data, err = t.ffmpeg(ctx, srcPath, dst.Name())
		return data, method, err
	}

	if _, err := dst.Write(data); err != nil {
		dst.Close()
		return nil, method, err
	}
	return data, method, dst.Close()
}

func normalizedPath(srcPath string) string {
	ext := filepath.Ext(srcPath)
	return strings.TrimSuffix(srcPath, ext) + ".16k.wav"
}

// convertWAV decodes, downmixes and resamples a WAV to 16 kHz mono
func convertWAV(src []byte) ([]byte, error) {
	pcm, err := decodeWAV(src)
	if err != nil {
		return nil, err
	}

	samples := pcm.mono()
	if pcm.sampleRate != TargetSampleRate {
		samples, err = resample(samples, pcm.sampleRate, TargetSampleRate)
		if err != nil {
			return nil, err
		}
	}

	return encodeWAV(samples, TargetSampleRate), nil
}

func resample(samples []int16, from, to int) ([]int16, error) {
	if len(samples) == 0 {
		return samples, nil
	}

	rs, err := resampling.New(&resampling.Config{
		InputRate:  float64(from),
		OutputRate: float64(to),
		Channels:   1,
		Quality:    resampling.QualitySpec{Preset: resampling.QualityHigh},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create resampler: %w", err)
	}

	input := make([]float64, len(samples))
	for i, s := range samples {
		input[i] = float64(s) / 32768.0
	}

	output, err := rs.Process(input)
	if err != nil {
		return nil, fmt.Errorf("resample error: %w", err)
	}
	tail, err := rs.Flush()
	if err != nil {
		return nil, fmt.Errorf("resample flush error: %w", err)
	}
	output = append(output, tail...)

	// keep the input's duration exactly
	want := int(math.Round(float64(len(samples)) * float64(to) / float64(from)))
	if len(output) > want {
		output = output[:want]
	}
	for len(output) < want {
		output = append(output, 0)
	}

	out := make([]int16, len(output))
	for i, s := range output {
		out[i] = int16(math.Max(-32768, math.Min(32767, math.Round(s*32767.0))))
	}
	return out, nil
}

// ffmpeg converts any container/codec ffmpeg understands into 16 kHz mono s16 WAV
func (t *Transcoder) ffmpeg(ctx context.Context, srcPath, dstPath string) ([]byte, error) {
	bin, err := exec.LookPath(t.ffmpegPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrFFmpegNotFound, t.ffmpegPath)
	}

	cmd := exec.CommandContext(ctx, bin,
		"-nostdin", "-hide_banner", "-loglevel", "error", "-y",
		"-i", srcPath,
		"-ac", "1",
		"-ar", strconv.Itoa(TargetSampleRate),
		"-sample_fmt", "s16",
		"-map_metadata", "-1",
		"-fflags", "+bitexact",
		"-f", "wav",
		dstPath,
	)

	out, err := cmd.CombinedOutput()
	if err != nil {
		_ = os.Remove(dstPath)
		log.Ctx(ctx).Error().Err(err).Str("src", srcPath).Str("output", strings.TrimSpace(string(out))).Msg("ffmpeg failed")
		return nil, fmt.Errorf("ffmpeg: %w: %s", err, strings.TrimSpace(string(out)))
	}

	data, err := os.ReadFile(dstPath)
	if err != nil {
		return nil, err
	}
	if !isWAV(data) {
		return nil, fmt.Errorf("ffmpeg produced no WAV output")
	}
	return data, nil
}
