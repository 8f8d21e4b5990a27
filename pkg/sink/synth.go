package sink

import (
	"fmt"
	"sync"

	"github.com/sinshu/go-meltysynth/meltysynth"
)

// SampleRate is the output rate of synthesizers created by NewSynthSink.
const SampleRate = 44100

// SynthSink drives a meltysynth software synthesizer. Messages and rendering
// may come from different goroutines; both are serialised by a mutex.
type SynthSink struct {
	synth *meltysynth.Synthesizer
	mu    sync.Mutex
}

// NewSynthSink creates a synthesizer for sf at SampleRate.
func NewSynthSink(sf *meltysynth.SoundFont) (*SynthSink, error) {
	settings := meltysynth.NewSynthesizerSettings(SampleRate)
	synth, err := meltysynth.NewSynthesizer(sf, settings)
	if err != nil {
		return nil, fmt.Errorf("failed to create synthesizer: %w", err)
	}
	return &SynthSink{synth: synth}, nil
}

// Send implements Sink. System messages are ignored; the synthesizer only
// understands channel voice messages.
func (s *SynthSink) Send(msg []byte) error {
	if len(msg) == 0 {
		return ErrEmptyMessage
	}
	status := msg[0]
	if status < 0x80 || status >= 0xF0 {
		return nil
	}
	var data1, data2 byte
	if len(msg) > 1 {
		data1 = msg[1]
	}
	if len(msg) > 2 {
		data2 = msg[2]
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.synth.ProcessMidiMessage(int32(status&0x0F), int32(status&0xF0), int32(data1), int32(data2))
	return nil
}

// Render fills left and right with the next block of samples.
func (s *SynthSink) Render(left, right []float32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.synth.Render(left, right)
}

// AllNotesOff releases every sounding voice. immediate cuts them without
// their release phase.
func (s *SynthSink) AllNotesOff(immediate bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.synth.NoteOffAll(immediate)
}
