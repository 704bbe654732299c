package playback

import (
	"testing"

	"github.com/secondeye/secondeye/internal/audio"
	"github.com/secondeye/secondeye/internal/interaction"
	"github.com/stretchr/testify/require"
)

func TestDetectFormat(t *testing.T) {
	require.Equal(t, "wav", detectFormat([]byte("RIFF....WAVE"), "mp3"))
	require.Equal(t, "mp3", detectFormat([]byte("ID3\x04"), ""))
	require.Equal(t, "mp3", detectFormat([]byte{0xff, 0xfb, 0x90}, ""))
	require.Equal(t, "mp3", detectFormat([]byte("????"), "MP3"))
	require.Equal(t, "wav", detectFormat([]byte("????"), "audio/wav"))
	require.Empty(t, detectFormat([]byte("????"), "ogg"))
}

func TestDecodeStereoWAV(t *testing.T) {
	format := interaction.AudioFormat{SampleRate: 22050, Channels: 2, BitDepth: 16}
	pcm, err := Decode(audio.EncodeWAV(format, []byte{0x10, 0x00, 0x20, 0x00, 0x30, 0x00, 0x40, 0x00}), "")
	require.NoError(t, err)
	require.Equal(t, []int16{16, 32, 48, 64}, pcm.Samples)
	require.Equal(t, 22050, pcm.SampleRate)
	require.Equal(t, 2, pcm.Channels)
	require.InDelta(t, 2.0/22050, pcm.Duration(), 1e-9)
}

func TestDecodeRejectsUnsupportedWAV(t *testing.T) {
	_, err := Decode(audio.EncodeWAV(interaction.AudioFormat{SampleRate: 8000, Channels: 1, BitDepth: 8}, []byte{1, 2}), "wav")
	require.ErrorIs(t, err, ErrUnsupportedFormat)

	_, err = Decode(audio.EncodeWAV(interaction.AudioFormat{SampleRate: 48000, Channels: 6, BitDepth: 16}, make([]byte, 24)), "wav")
	require.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestDecodeMalformedMP3(t *testing.T) {
	_, err := Decode([]byte("ID3 followed by nothing useful"), "mp3")
	require.Error(t, err)
	require.Contains(t, err.Error(), "mp3")
}

func TestDecodeEmpty(t *testing.T) {
	_, err := Decode(nil, "mp3")
	require.Error(t, err)
}
