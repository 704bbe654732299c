package playback

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/hajimehoshi/go-mp3"

	"github.com/secondeye/secondeye/internal/audio"
)

// ErrUnsupportedFormat is returned for audio that is neither MP3 nor PCM WAV.
var ErrUnsupportedFormat = errors.New("unsupported audio format")

// PCM is interleaved signed 16-bit audio ready for a Sink.
type PCM struct {
	Samples    []int16
	SampleRate int
	Channels   int
}

// Duration reports the playing time of p in seconds.
func (p PCM) Duration() float64 {
	if p.SampleRate <= 0 || p.Channels <= 0 {
		return 0
	}
	return float64(len(p.Samples)) / float64(p.SampleRate*p.Channels)
}

// Decode turns an answer buffer into PCM. format is the backend's audio_format
// hint; when empty the container is sniffed from the leading bytes.
func Decode(data []byte, format string) (PCM, error) {
	if len(data) == 0 {
		return PCM{}, errors.New("audio buffer is empty")
	}

	switch detectFormat(data, format) {
	case "wav":
		return decodeWAV(data)
	case "mp3":
		return decodeMP3(data)
	default:
		return PCM{}, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}

func detectFormat(data []byte, hint string) string {
	switch {
	case bytes.HasPrefix(data, []byte("RIFF")):
		return "wav"
	case bytes.HasPrefix(data, []byte("ID3")):
		return "mp3"
	case len(data) > 1 && data[0] == 0xff && data[1]&0xe0 == 0xe0:
		// MPEG frame sync.
		return "mp3"
	}

	switch strings.ToLower(strings.TrimSpace(hint)) {
	case "mp3", "mpeg", "audio/mpeg":
		return "mp3"
	case "wav", "wave", "audio/wav", "audio/x-wav":
		return "wav"
	}
	return ""
}

func decodeWAV(data []byte) (PCM, error) {
	format, raw, err := audio.DecodeWAV(data)
	if err != nil {
		return PCM{}, fmt.Errorf("decode wav: %w", err)
	}
	if format.BitDepth != 16 {
		return PCM{}, fmt.Errorf("%w: %d-bit wav", ErrUnsupportedFormat, format.BitDepth)
	}
	if format.Channels < 1 || format.Channels > 2 || format.SampleRate <= 0 {
		return PCM{}, fmt.Errorf("%w: %d-channel %d Hz wav", ErrUnsupportedFormat, format.Channels, format.SampleRate)
	}
	return PCM{
		Samples:    int16LE(raw),
		SampleRate: format.SampleRate,
		Channels:   format.Channels,
	}, nil
}

// decodeMP3 yields 16-bit little-endian stereo at the stream's sample rate.
func decodeMP3(data []byte) (PCM, error) {
	dec, err := mp3.NewDecoder(bytes.NewReader(data))
	if err != nil {
		return PCM{}, fmt.Errorf("decode mp3: %w", err)
	}
	raw, err := io.ReadAll(dec)
	if err != nil {
		return PCM{}, fmt.Errorf("decode mp3: %w", err)
	}
	if len(raw) == 0 {
		return PCM{}, errors.New("decode mp3: no samples")
	}
	return PCM{
		Samples:    int16LE(raw),
		SampleRate: dec.SampleRate(),
		Channels:   2,
	}, nil
}

func int16LE(raw []byte) []int16 {
	samples := make([]int16, len(raw)/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(raw[2*i:]))
	}
	return samples
}
