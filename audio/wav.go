package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
)

var (
	// ErrNotWAV means the bytes do not start with a RIFF/WAVE header
	ErrNotWAV = errors.New("not a RIFF/WAVE file")
	// ErrUnsupportedWAV means a WAV this package cannot decode in-process
	ErrUnsupportedWAV = errors.New("unsupported WAV encoding")
)

const (
	wavFormatPCM        = 1
	wavFormatExtensible = 0xFFFE
)

// pcm16 is decoded little-endian 16-bit PCM, interleaved by channel
type pcm16 struct {
	sampleRate int
	channels   int
	samples    []int16
}

func isWAV(data []byte) bool {
	return len(data) >= 12 && string(data[0:4]) == "RIFF" && string(data[8:12]) == "WAVE"
}

// decodeWAV walks the RIFF chunks looking for "fmt " and "data".
// Only 16-bit integer PCM with one or two channels is accepted.
func decodeWAV(data []byte) (*pcm16, error) {
	if !isWAV(data) {
		return nil, ErrNotWAV
	}

	var (
		haveFmt  bool
		format   uint16
		channels int
		rate     int
		bits     int
		payload  []byte
	)

	pos := 12
	for pos+8 <= len(data) {
		id := string(data[pos : pos+4])
		size := int(binary.LittleEndian.Uint32(data[pos+4 : pos+8]))
		body := pos + 8
		end := body + size
		if end > len(data) || end < body {
			// Some encoders write a bogus size for a streamed data chunk
			if id == "data" {
				end = len(data)
			} else {
				return nil, fmt.Errorf("truncated %q chunk", id)
			}
		}

		switch id {
		case "fmt ":
			if size < 16 {
				return nil, fmt.Errorf("fmt chunk too short: %d bytes", size)
			}
			format = binary.LittleEndian.Uint16(data[body : body+2])
			channels = int(binary.LittleEndian.Uint16(data[body+2 : body+4]))
			rate = int(binary.LittleEndian.Uint32(data[body+4 : body+8]))
			bits = int(binary.LittleEndian.Uint16(data[body+14 : body+16]))
			haveFmt = true
		case "data":
			payload = data[body:end]
		}

		// Chunks are word aligned
		pos = end + size%2
		if payload != nil && haveFmt {
			break
		}
	}

	if !haveFmt {
		return nil, fmt.Errorf("%w: missing fmt chunk", ErrUnsupportedWAV)
	}
	if payload == nil {
		return nil, fmt.Errorf("%w: missing data chunk", ErrUnsupportedWAV)
	}
	if format != wavFormatPCM && format != wavFormatExtensible {
		return nil, fmt.Errorf("%w: format tag %d", ErrUnsupportedWAV, format)
	}
	if bits != 16 {
		return nil, fmt.Errorf("%w: %d bits per sample", ErrUnsupportedWAV, bits)
	}
	if channels < 1 || channels > 2 {
		return nil, fmt.Errorf("%w: %d channels", ErrUnsupportedWAV, channels)
	}
	if rate <= 0 {
		return nil, fmt.Errorf("%w: sample rate %d", ErrUnsupportedWAV, rate)
	}

	frameBytes := 2 * channels
	n := len(payload) / frameBytes * channels
	samples := make([]int16, n)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(payload[i*2:]))
	}

	return &pcm16{sampleRate: rate, channels: channels, samples: samples}, nil
}

// mono averages interleaved stereo frames into a single channel
func (p *pcm16) mono() []int16 {
	if p.channels == 1 {
		return p.samples
	}
	out := make([]int16, len(p.samples)/p.channels)
	for i := range out {
		var sum int
		for c := 0; c < p.channels; c++ {
			sum += int(p.samples[i*p.channels+c])
		}
		out[i] = int16(sum / p.channels)
	}
	return out
}

// encodeWAV writes a canonical 44-byte header followed by mono 16-bit PCM
func encodeWAV(samples []int16, sampleRate int) []byte {
	const (
		channels      = 1
		bitsPerSample = 16
	)
	blockAlign := channels * bitsPerSample / 8
	byteRate := sampleRate * blockAlign
	dataSize := len(samples) * 2

	buf := make([]byte, 44+dataSize)
	copy(buf[0:4], "RIFF")
	binary.LittleEndian.PutUint32(buf[4:8], uint32(36+dataSize))
	copy(buf[8:12], "WAVE")

	copy(buf[12:16], "fmt ")
	binary.LittleEndian.PutUint32(buf[16:20], 16)
	binary.LittleEndian.PutUint16(buf[20:22], wavFormatPCM)
	binary.LittleEndian.PutUint16(buf[22:24], channels)
	binary.LittleEndian.PutUint32(buf[24:28], uint32(sampleRate))
	binary.LittleEndian.PutUint32(buf[28:32], uint32(byteRate))
	binary.LittleEndian.PutUint16(buf[32:34], uint16(blockAlign))
	binary.LittleEndian.PutUint16(buf[34:36], bitsPerSample)

	copy(buf[36:40], "data")
	binary.LittleEndian.PutUint32(buf[40:44], uint32(dataSize))

	for i, s := range samples {
		binary.LittleEndian.PutUint16(buf[44+i*2:], uint16(s))
	}
	return buf
}
