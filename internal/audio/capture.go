package audio

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/jfreymuth/pulse"
	pulseproto "github.com/jfreymuth/pulse/proto"

	"github.com/secondeye/secondeye/internal/interaction"
)

const (
	// fragmentBytes is 100 ms of 16 kHz mono s16le.
	fragmentBytes = 3200
	// initialBufferBytes fits a ten second question without regrowth.
	initialBufferBytes = 100 * fragmentBytes
)

// Stream is a live microphone recording.
type Stream interface {
	// Stop halts capture and returns every PCM byte recorded so far.
	Stop() ([]byte, error)
	BytesCaptured() int64
}

// pulseStream accumulates PCM delivered by a Pulse record stream. Pulse
// calls Write from its own goroutine; a Write after Stop returns io.EOF.
type pulseStream struct {
	client *pulse.Client
	record *pulse.RecordStream

	mu     sync.Mutex
	pcm    bytes.Buffer
	total  int64
	closed bool
}

// StartCapture records from device in interaction.CaptureFormat until Stop
// is called or ctx ends.
func StartCapture(ctx context.Context, device Device) (Stream, error) {
	client, err := newPulseClient()
	if err != nil {
		return nil, err
	}

	source, err := client.SourceByID(device.ID)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("resolve source %q: %w", device.ID, err)
	}

	s := &pulseStream{client: client}
	s.pcm.Grow(initialBufferBytes)

	record, err := client.NewRecord(
		pulse.NewWriter(s, pulseproto.FormatInt16LE),
		pulse.RecordSource(source),
		pulse.RecordMono,
		pulse.RecordSampleRate(interaction.CaptureFormat.SampleRate),
		pulse.RecordBufferFragmentSize(fragmentBytes),
		pulse.RecordMediaName("secondeye question"),
	)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("create pulse record stream: %w", err)
	}
	s.record = record
	record.Start()

	context.AfterFunc(ctx, func() { _, _ = s.Stop() })
	return s, nil
}

// Write implements io.Writer for pulse.NewWriter.
func (s *pulseStream) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, io.EOF
	}
	s.pcm.Write(p)
	s.total += int64(len(p))
	return len(p), nil
}

// BytesCaptured reports every byte Pulse delivered, including any already
// handed out by Stop.
func (s *pulseStream) BytesCaptured() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.total
}

// Stop closes the stream and returns the recorded PCM. Later calls return nil.
func (s *pulseStream) Stop() ([]byte, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, nil
	}
	s.closed = true
	pcm := bytes.Clone(s.pcm.Bytes())
	s.pcm.Reset()
	s.mu.Unlock()

	// Closing after the flag is set means no Write can append past pcm.
	s.record.Stop()
	s.record.Close()
	s.client.Close()
	return pcm, nil
}
