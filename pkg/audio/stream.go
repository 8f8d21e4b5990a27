// Package audio renders a software synthesizer into PCM for ebiten's audio
// player and loads SoundFonts.
package audio

import (
	"encoding/binary"
	"sync"
)

// bytesPerFrame is one interleaved 16-bit stereo frame.
const bytesPerFrame = 4

// Renderer produces float samples in the range [-1, 1].
type Renderer interface {
	Render(left, right []float32)
}

// Stream implements io.Reader over a Renderer, producing little-endian
// 16-bit interleaved stereo as expected by ebiten/v2/audio.
type Stream struct {
	renderer    Renderer
	sampleCount int64
	stopped     bool
	left, right []float32
	mu          sync.Mutex
}

// NewStream creates a stream rendering r.
func NewStream(r Renderer) *Stream {
	return &Stream{renderer: r}
}

// Read fills p with whole frames. A stopped stream yields silence so the
// audio player can drain without an error.
func (s *Stream) Read(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	frames := len(p) / bytesPerFrame
	if frames == 0 {
		return 0, nil
	}
	n := frames * bytesPerFrame

	if s.stopped || s.renderer == nil {
		clear(p[:n])
		return n, nil
	}

	if cap(s.left) < frames {
		s.left = make([]float32, frames)
		s.right = make([]float32, frames)
	}
	left, right := s.left[:frames], s.right[:frames]
	s.renderer.Render(left, right)
	s.sampleCount += int64(frames)

	for i := range frames {
		binary.LittleEndian.PutUint16(p[i*bytesPerFrame:], uint16(toInt16(left[i])))
		binary.LittleEndian.PutUint16(p[i*bytesPerFrame+2:], uint16(toInt16(right[i])))
	}
	return n, nil
}

// Stop makes every later Read return silence.
func (s *Stream) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
}

// SampleCount returns the number of frames rendered so far.
func (s *Stream) SampleCount() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sampleCount
}

func toInt16(v float32) int16 {
	return int16(min(max(v, -1), 1) * 32767)
}
