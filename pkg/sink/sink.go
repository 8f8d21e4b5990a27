// Package sink delivers scheduled MIDI messages to their destinations: a
// software synthesizer, a hardware port or the log.
package sink

import (
	"context"
	"errors"
	"log/slog"

	"github.com/zurustar/smfplay/pkg/logger"
	"github.com/zurustar/smfplay/pkg/player"
	"github.com/zurustar/smfplay/pkg/smf"
)

// ErrEmptyMessage is returned when Send is called without any bytes.
var ErrEmptyMessage = errors.New("empty MIDI message")

// Sink receives raw MIDI messages of one to three bytes.
type Sink interface {
	Send(msg []byte) error
}

// Listener adapts s to a player listener. Send errors go to onErr; a nil
// onErr logs them at warn level.
func Listener(s Sink, onErr func(error)) player.Listener {
	if onErr == nil {
		onErr = func(err error) {
			logger.GetLogger().Warn("Failed to deliver MIDI message", "error", err)
		}
	}
	return func(ev player.RealtimeEvent) {
		if err := s.Send(ev.Bytes()); err != nil {
			onErr(err)
		}
	}
}

// Multi sends every message to each sink in order and returns the first error.
type Multi []Sink

// Send implements Sink.
func (m Multi) Send(msg []byte) error {
	var first error
	for _, s := range m {
		if err := s.Send(msg); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// LogSink writes each message to a logger. It is the sink used when no audio
// device or port is available.
type LogSink struct {
	log   *slog.Logger
	level slog.Level
}

// NewLogSink returns a sink logging at level. A nil logger uses the global one.
func NewLogSink(l *slog.Logger, level slog.Level) *LogSink {
	if l == nil {
		l = logger.GetLogger()
	}
	return &LogSink{log: l, level: level}
}

// Send implements Sink.
func (s *LogSink) Send(msg []byte) error {
	if len(msg) == 0 {
		return ErrEmptyMessage
	}
	attrs := []any{"command", smf.CommandName(msg[0]), "bytes", msg}
	if msg[0]&0xE0 == 0x80 && len(msg) >= 3 {
		// Note on/off.
		attrs = append(attrs, "note", smf.NoteName(msg[1]), "velocity", msg[2])
	}
	s.log.Log(context.Background(), s.level, "MIDI", attrs...)
	return nil
}
