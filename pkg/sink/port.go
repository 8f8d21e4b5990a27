package sink

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/zurustar/smfplay/pkg/logger"
	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
)

var (
	// ErrNoDriver is returned when no MIDI driver is registered. Build with
	// the midi_native tag to register the rtmidi driver.
	ErrNoDriver = errors.New("no MIDI driver registered")

	// ErrPortNotFound is returned when no port matches the requested name or number.
	ErrPortNotFound = errors.New("MIDI port not found")
)

// PortInfo describes a MIDI port.
type PortInfo struct {
	Number int
	Name   string
}

func (p PortInfo) String() string {
	return fmt.Sprintf("%d: %s", p.Number, p.Name)
}

// Ports lists the output and input ports of the registered driver.
func Ports() (outs, ins []PortInfo, err error) {
	if drivers.Get() == nil {
		return nil, nil, ErrNoDriver
	}
	for _, out := range midi.GetOutPorts() {
		outs = append(outs, PortInfo{Number: out.Number(), Name: out.String()})
	}
	for _, in := range midi.GetInPorts() {
		ins = append(ins, PortInfo{Number: in.Number(), Name: in.String()})
	}
	return outs, ins, nil
}

// namedPort is the part of a gomidi port used for lookup.
type namedPort interface {
	Number() int
	String() string
}

// findPort picks the port whose number equals query, then an exact name
// match, then the first name containing query (case-insensitive).
func findPort[P namedPort](ports []P, query string) (P, bool) {
	var zero P
	if n, err := strconv.Atoi(query); err == nil {
		for _, p := range ports {
			if p.Number() == n {
				return p, true
			}
		}
		return zero, false
	}
	for _, p := range ports {
		if p.String() == query {
			return p, true
		}
	}
	lower := strings.ToLower(query)
	for _, p := range ports {
		if strings.Contains(strings.ToLower(p.String()), lower) {
			return p, true
		}
	}
	return zero, false
}

// outPort is the part of drivers.Out used by PortSink.
type outPort interface {
	Send([]byte) error
	Close() error
	String() string
}

// PortSink forwards messages to a MIDI output port.
type PortSink struct {
	out outPort
}

// NewPortSink wraps an already opened output port.
func NewPortSink(out drivers.Out) *PortSink {
	return &PortSink{out: out}
}

// OpenPort opens the output port selected by query, a port number or name.
func OpenPort(query string) (*PortSink, error) {
	if drivers.Get() == nil {
		return nil, ErrNoDriver
	}
	out, ok := findPort([]drivers.Out(midi.GetOutPorts()), query)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrPortNotFound, query)
	}
	if err := out.Open(); err != nil {
		return nil, fmt.Errorf("failed to open MIDI port %q: %w", out.String(), err)
	}
	return NewPortSink(out), nil
}

// Send implements Sink.
func (s *PortSink) Send(msg []byte) error {
	if len(msg) == 0 {
		return ErrEmptyMessage
	}
	if err := s.out.Send(msg); err != nil {
		return fmt.Errorf("failed to send to %s: %w", s.out.String(), err)
	}
	return nil
}

// Name returns the port name.
func (s *PortSink) Name() string {
	return s.out.String()
}

// Close sends All Notes Off on every channel and closes the port.
func (s *PortSink) Close() error {
	for ch := byte(0); ch < 16; ch++ {
		_ = s.out.Send([]byte{0xB0 | ch, 123, 0})
	}
	return s.out.Close()
}

// ListenPort opens the input port selected by query and pushes every message
// it receives into q. The returned function stops listening and closes the port.
func ListenPort(query string, q *Queue) (stop func(), err error) {
	if drivers.Get() == nil {
		return nil, ErrNoDriver
	}
	in, ok := findPort([]drivers.In(midi.GetInPorts()), query)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrPortNotFound, query)
	}
	if err := in.Open(); err != nil {
		return nil, fmt.Errorf("failed to open MIDI port %q: %w", in.String(), err)
	}

	name := in.String()
	stopListen, err := midi.ListenTo(in, func(msg midi.Message, _ int32) {
		q.Push([]byte(msg))
	}, midi.HandleError(func(listenErr error) {
		logger.GetLogger().Warn("MIDI input error", "port", name, "error", listenErr)
	}))
	if err != nil {
		_ = in.Close()
		return nil, fmt.Errorf("failed to listen on %q: %w", name, err)
	}
	return func() {
		stopListen()
		_ = in.Close()
	}, nil
}
