package audio

import (
	"context"
	"encoding/binary"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xiaoyuanzhu-com/couplet-server/models"
)

// sineWAV builds a 16-bit PCM WAV with the same tone on every channel
func sineWAV(rate, channels int, seconds float64) []byte {
	frames := int(float64(rate) * seconds)
	samples := make([]int16, frames*channels)
	for i := 0; i < frames; i++ {
		v := int16(8000 * math.Sin(2*math.Pi*440*float64(i)/float64(rate)))
		for c := 0; c < channels; c++ {
			samples[i*channels+c] = v
		}
	}

	data := make([]byte, 44+len(samples)*2)
	copy(data[0:4], "RIFF")
	binary.LittleEndian.PutUint32(data[4:8], uint32(36+len(samples)*2))
	copy(data[8:12], "WAVE")
	copy(data[12:16], "fmt ")
	binary.LittleEndian.PutUint32(data[16:20], 16)
	binary.LittleEndian.PutUint16(data[20:22], 1)
	binary.LittleEndian.PutUint16(data[22:24], uint16(channels))
	binary.LittleEndian.PutUint32(data[24:28], uint32(rate))
	binary.LittleEndian.PutUint32(data[28:32], uint32(rate*channels*2))
	binary.LittleEndian.PutUint16(data[32:34], uint16(channels*2))
	binary.LittleEndian.PutUint16(data[34:36], 16)
	copy(data[36:40], "data")
	binary.LittleEndian.PutUint32(data[40:44], uint32(len(samples)*2))
	for i, s := range samples {
		binary.LittleEndian.PutUint16(data[44+i*2:], uint16(s))
	}
	return data
}

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0644))
	return path
}

func TestNormalize_MonoAtTargetRateIsUnchanged(t *testing.T) {
	src := sineWAV(16000, 1, 0.25)
	path := writeFile(t, "voice.wav", src)

	got, err := NewTranscoder(Config{}).Normalize(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, TargetSampleRate, got.SampleRate)
	assert.Equal(t, "wav", got.Format)
	assert.Equal(t, filepath.Join(filepath.Dir(path), "voice.16k.wav"), got.Path)
	assert.Equal(t, src, got.Data)

	onDisk, err := os.ReadFile(got.Path)
	require.NoError(t, err)
	assert.Equal(t, got.Data, onDisk)
}

func TestNormalize_StereoIsDownmixed(t *testing.T) {
	path := writeFile(t, "stereo.wav", sineWAV(16000, 2, 0.25))

	got, err := NewTranscoder(Config{}).Normalize(context.Background(), path)
	require.NoError(t, err)

	pcm, err := decodeWAV(got.Data)
	require.NoError(t, err)
	assert.Equal(t, 1, pcm.channels)
	assert.Equal(t, 16000, pcm.sampleRate)
	assert.Len(t, pcm.samples, 4000)
}

func TestNormalize_ResamplesToTargetRate(t *testing.T) {
	path := writeFile(t, "hi.wav", sineWAV(48000, 1, 0.5))

	got, err := NewTranscoder(Config{}).Normalize(context.Background(), path)
	require.NoError(t, err)

	pcm, err := decodeWAV(got.Data)
	require.NoError(t, err)
	assert.Equal(t, TargetSampleRate, pcm.sampleRate)
	assert.Equal(t, 1, pcm.channels)
	// one third of the input frames, tail included
	assert.InDelta(t, 8000, len(pcm.samples), 4)
}

func TestNormalize_UpsampleKeepsDuration(t *testing.T) {
	path := writeFile(t, "lo.wav", sineWAV(8000, 1, 1))

	got, err := NewTranscoder(Config{}).Normalize(context.Background(), path)
	require.NoError(t, err)

	pcm, err := decodeWAV(got.Data)
	require.NoError(t, err)
	assert.InDelta(t, 16000, len(pcm.samples), 4)
}

func TestNormalize_NeverOverwritesExistingFile(t *testing.T) {
	dir := t.TempDir()
	taken := filepath.Join(dir, "x.16k.wav")
	require.NoError(t, os.WriteFile(taken, []byte("someone else's upload"), 0644))

	src := filepath.Join(dir, "x.wav")
	require.NoError(t, os.WriteFile(src, sineWAV(16000, 1, 0.1), 0644))

	tr := NewTranscoder(Config{})
	first, err := tr.Normalize(context.Background(), src)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "x.16k 2.wav"), first.Path)

	// a second request for the same source gets its own file too
	second, err := tr.Normalize(context.Background(), src)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "x.16k 3.wav"), second.Path)

	kept, err := os.ReadFile(taken)
	require.NoError(t, err)
	assert.Equal(t, []byte("someone else's upload"), kept)
}

func TestNormalize_FailureLeavesNoOutput(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "voice.ogg")
	require.NoError(t, os.WriteFile(src, []byte("OggS"), 0644))

	_, err := NewTranscoder(Config{FFmpegPath: "/nonexistent/ffmpeg"}).Normalize(context.Background(), src)
	require.Error(t, err)

	_, statErr := os.Stat(filepath.Join(dir, "voice.16k.wav"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestNormalize_NonWAVWithoutFFmpeg(t *testing.T) {
	path := writeFile(t, "voice.webm", []byte("\x1a\x45\xdf\xa3 not really webm"))

	_, err := NewTranscoder(Config{FFmpegPath: "/nonexistent/ffmpeg"}).Normalize(context.Background(), path)
	require.Error(t, err)
	assert.Equal(t, models.KindTranscode, models.KindOf(err))
	assert.True(t, errors.Is(err, ErrFFmpegNotFound))
}

func TestNormalize_MissingSource(t *testing.T) {
	_, err := NewTranscoder(Config{}).Normalize(context.Background(), filepath.Join(t.TempDir(), "gone.wav"))
	assert.Equal(t, models.KindTranscode, models.KindOf(err))
}

func TestDecodeWAV_Rejects(t *testing.T) {
	_, err := decodeWAV([]byte("ID3 mp3 bytes"))
	assert.ErrorIs(t, err, ErrNotWAV)

	eightBit := sineWAV(8000, 1, 0.01)
	binary.LittleEndian.PutUint16(eightBit[34:36], 8)
	_, err = decodeWAV(eightBit)
	assert.ErrorIs(t, err, ErrUnsupportedWAV)
}

func TestDecodeWAV_SkipsExtraChunks(t *testing.T) {
	plain := sineWAV(16000, 1, 0.01)

	list := []byte("LIST\x05\x00\x00\x00abcde\x00") // odd size plus pad byte
	withList := append([]byte{}, plain[:36]...)
	withList = append(withList, list...)
	withList = append(withList, plain[36:]...)

	a, err := decodeWAV(plain)
	require.NoError(t, err)
	b, err := decodeWAV(withList)
	require.NoError(t, err)
	assert.Equal(t, a.samples, b.samples)
}

func TestEncodeWAV_RoundTrip(t *testing.T) {
	samples := []int16{0, 1, -1, 32767, -32768}
	pcm, err := decodeWAV(encodeWAV(samples, 16000))
	require.NoError(t, err)
	assert.Equal(t, samples, pcm.samples)
}

func TestNormalizedPath(t *testing.T) {
	assert.Equal(t, "/tmp/a b.16k.wav", normalizedPath("/tmp/a b.webm"))
	assert.Equal(t, "/tmp/noext.16k.wav", normalizedPath("/tmp/noext"))
}
