package signal

import (
	"context"
	"encoding/json"
	"io"
	"sync"
)

// Sink receives signals forwarded by a [Dispatcher].
type Sink interface {
	Emit(ctx context.Context, sig Signal)
}

// NoOpSink discards every signal.
type NoOpSink struct{}

// Emit implements Sink.
func (NoOpSink) Emit(context.Context, Signal) {}

// ChannelSink forwards signals to a buffered channel.
type ChannelSink struct {
	signals chan Signal
}

// NewChannelSink creates a ChannelSink with the given buffer (minimum 1).
func NewChannelSink(buffer int) *ChannelSink {
	if buffer <= 0 {
		buffer = 1
	}
	return &ChannelSink{
		signals: make(chan Signal, buffer),
	}
}

// Emit implements Sink. It blocks until the channel accepts or ctx is done.
func (s *ChannelSink) Emit(ctx context.Context, sig Signal) {
	select {
	case s.signals <- sig:
	case <-ctx.Done():
	}
}

// Signals returns the receive side of the channel.
func (s *ChannelSink) Signals() <-chan Signal {
	return s.signals
}

// JSONWriterSink writes one JSON document per line.
type JSONWriterSink struct {
	writer io.Writer
	mu     sync.Mutex
}

// NewJSONWriterSink wraps w.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return &JSONWriterSink{
		writer: w,
	}
}

// Emit implements Sink. Encoding and write errors are dropped.
func (s *JSONWriterSink) Emit(ctx context.Context, sig Signal) {
	if s == nil || s.writer == nil {
		return
	}
	data, err := json.Marshal(sig)
	if err != nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, _ = s.writer.Write(data)
	_, _ = s.writer.Write([]byte("\n"))
}
