package button

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/jfreymuth/pulse"
	pulseproto "github.com/jfreymuth/pulse/proto"
)

const (
	pulseVolumeNorm = 0x10000    // PA_VOLUME_NORM
	undefinedIndex  = 0xFFFFFFFF // PA_INVALID_INDEX
)

// PulseSource reads the output sink volume that hardware volume keys move.
type PulseSource struct {
	sink string

	mu     sync.Mutex
	client *pulse.Client
}

// NewPulseSource connects to the Pulse server. An empty or "default" sink
// follows the server's default sink on every read.
func NewPulseSource(sink string) (*PulseSource, error) {
	client, err := pulse.NewClient(
		pulse.ClientApplicationName("secondeye"),
		pulse.ClientApplicationIconName("input-keyboard"),
	)
	if err != nil {
		return nil, fmt.Errorf("connect pulse server: %w", err)
	}
	return &PulseSource{sink: strings.TrimSpace(sink), client: client}, nil
}

// Level returns the mean channel volume normalized so 1.0 is 100%.
func (p *PulseSource) Level(ctx context.Context) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.client == nil {
		return 0, errors.New("pulse source closed")
	}

	name := p.sink
	if name == "" || strings.EqualFold(name, "default") {
		sink, err := p.client.DefaultSink()
		if err != nil {
			return 0, fmt.Errorf("read default sink: %w", err)
		}
		name = sink.ID()
	}

	var reply pulseproto.GetSinkInfoReply
	if err := p.client.RawRequest(&pulseproto.GetSinkInfo{SinkIndex: undefinedIndex, SinkName: name}, &reply); err != nil {
		return 0, fmt.Errorf("read sink %q: %w", name, err)
	}
	return normalizeVolume(reply.ChannelVolumes), nil
}

// Close releases the Pulse connection.
func (p *PulseSource) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.client != nil {
		p.client.Close()
		p.client = nil
	}
}

func normalizeVolume(channels []uint32) float64 {
	if len(channels) == 0 {
		return 0
	}
	var sum float64
	for _, v := range channels {
		sum += float64(v)
	}
	return sum / float64(len(channels)) / pulseVolumeNorm
}
