package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/secondeye/secondeye/internal/interaction"
)

const wavHeaderSize = 44

// ErrNotWAV is returned when data does not carry a RIFF/WAVE header.
var ErrNotWAV = errors.New("not a RIFF/WAVE stream")

// WriteWAV writes a canonical 44-byte PCM header followed by pcm.
func WriteWAV(w io.Writer, format interaction.AudioFormat, pcm []byte) error {
	blockAlign := format.Channels * format.BitDepth / 8
	header := struct {
		Riff          [4]byte
		ChunkSize     uint32
		Wave          [4]byte
		Fmt           [4]byte
		FmtSize       uint32
		AudioFormat   uint16
		Channels      uint16
		SampleRate    uint32
		ByteRate      uint32
		BlockAlign    uint16
		BitsPerSample uint16
		Data          [4]byte
		DataSize      uint32
	}{
		Riff:          [4]byte{'R', 'I', 'F', 'F'},
		ChunkSize:     uint32(36 + len(pcm)),
		Wave:          [4]byte{'W', 'A', 'V', 'E'},
		Fmt:           [4]byte{'f', 'm', 't', ' '},
		FmtSize:       16,
		AudioFormat:   1, // PCM
		Channels:      uint16(format.Channels),
		SampleRate:    uint32(format.SampleRate),
		ByteRate:      uint32(format.SampleRate * blockAlign),
		BlockAlign:    uint16(blockAlign),
		BitsPerSample: uint16(format.BitDepth),
		Data:          [4]byte{'d', 'a', 't', 'a'},
		DataSize:      uint32(len(pcm)),
	}

	if err := binary.Write(w, binary.LittleEndian, header); err != nil {
		return fmt.Errorf("write wav header: %w", err)
	}
	if _, err := w.Write(pcm); err != nil {
		return fmt.Errorf("write wav data: %w", err)
	}
	return nil
}

// EncodeWAV returns pcm wrapped in a WAV container.
func EncodeWAV(format interaction.AudioFormat, pcm []byte) []byte {
	var buf bytes.Buffer
	buf.Grow(wavHeaderSize + len(pcm))
	_ = WriteWAV(&buf, format, pcm)
	return buf.Bytes()
}

// DecodeWAV parses a PCM WAV container and returns its format and sample data.
// Unknown chunks between "fmt " and "data" are skipped.
func DecodeWAV(data []byte) (interaction.AudioFormat, []byte, error) {
	if len(data) < 12 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return interaction.AudioFormat{}, nil, ErrNotWAV
	}

	var (
		format  interaction.AudioFormat
		haveFmt bool
	)
	rest := data[12:]
	for len(rest) >= 8 {
		id := string(rest[0:4])
		size := int(binary.LittleEndian.Uint32(rest[4:8]))
		body := rest[8:]
		if size > len(body) {
			if id == "data" {
				// Streaming writers leave a placeholder size; take what is there.
				size = len(body)
			} else {
				return interaction.AudioFormat{}, nil, fmt.Errorf("wav chunk %q truncated", id)
			}
		}

		switch id {
		case "fmt ":
			if size < 16 {
				return interaction.AudioFormat{}, nil, errors.New("wav fmt chunk too short")
			}
			if tag := binary.LittleEndian.Uint16(body[0:2]); tag != 1 {
				return interaction.AudioFormat{}, nil, fmt.Errorf("unsupported wav encoding %d", tag)
			}
			format = interaction.AudioFormat{
				Channels:   int(binary.LittleEndian.Uint16(body[2:4])),
				SampleRate: int(binary.LittleEndian.Uint32(body[4:8])),
				BitDepth:   int(binary.LittleEndian.Uint16(body[14:16])),
			}
			haveFmt = true
		case "data":
			if !haveFmt {
				return interaction.AudioFormat{}, nil, errors.New("wav data chunk before fmt chunk")
			}
			return format, body[:size], nil
		}

		advance := 8 + size + size%2
		if advance > len(rest) {
			break
		}
		rest = rest[advance:]
	}
	return interaction.AudioFormat{}, nil, errors.New("wav data chunk not found")
}
