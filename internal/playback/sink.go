package playback

import (
	"context"
	"fmt"

	"github.com/jfreymuth/pulse"
)

// Sink renders PCM. Play blocks until the audio drains or ctx is done.
type Sink interface {
	Play(ctx context.Context, pcm PCM) error
}

// PulseSink plays through a PulseAudio playback stream on the default sink.
type PulseSink struct {
	// MediaName labels the stream in mixers.
	MediaName string
}

// Play opens a playback stream for pcm and drains it.
func (s PulseSink) Play(ctx context.Context, pcm PCM) error {
	if len(pcm.Samples) == 0 {
		return nil
	}

	client, err := pulse.NewClient(
		pulse.ClientApplicationName("secondeye"),
		pulse.ClientApplicationIconName("audio-speakers"),
	)
	if err != nil {
		return fmt.Errorf("connect pulse server: %w", err)
	}
	defer client.Close()

	cursor := 0
	reader := pulse.Int16Reader(func(buf []int16) (int, error) {
		if ctx.Err() != nil || cursor >= len(pcm.Samples) {
			return 0, pulse.EndOfData
		}
		n := copy(buf, pcm.Samples[cursor:])
		cursor += n
		if cursor >= len(pcm.Samples) {
			return n, pulse.EndOfData
		}
		return n, nil
	})

	layout := pulse.PlaybackMono
	if pcm.Channels == 2 {
		layout = pulse.PlaybackStereo
	}

	name := s.MediaName
	if name == "" {
		name = "secondeye answer"
	}

	stream, err := client.NewPlayback(
		reader,
		layout,
		pulse.PlaybackSampleRate(pcm.SampleRate),
		pulse.PlaybackLatency(0.05),
		pulse.PlaybackMediaName(name),
	)
	if err != nil {
		return fmt.Errorf("create pulse playback stream: %w", err)
	}
	defer stream.Close()

	stream.Start()
	stream.Drain()
	if err := stream.Error(); err != nil {
		return fmt.Errorf("play stream: %w", err)
	}
	return ctx.Err()
}
