// Package smf reads and writes Standard MIDI Files.
// This file defines Song, Track and the header time division.
package smf

import "fmt"

const (
	// DefaultTempo is the starting tempo, in BPM, of a song without a SetTempo event.
	DefaultTempo = 120.0

	// DefaultTicksPerBeat is the resolution used for new songs and written
	// whenever a song's resolution cannot be stored in the header.
	DefaultTicksPerBeat = 240
)

// Division is the time division field of the MThd chunk.
type Division uint16

// IsSMPTE reports whether the division encodes SMPTE frame timing.
func (d Division) IsSMPTE() bool {
	return d&0x8000 != 0
}

// TicksPerQuarterNote returns the PPQN resolution, or 0 for SMPTE divisions.
func (d Division) TicksPerQuarterNote() uint16 {
	if d.IsSMPTE() {
		return 0
	}
	return uint16(d)
}

// SMPTE returns the frames per second and ticks per frame, or 0, 0 for PPQN divisions.
// The frame rate is stored as a negative two's complement byte.
func (d Division) SMPTE() (fps uint8, ticksPerFrame uint8) {
	if !d.IsSMPTE() {
		return 0, 0
	}
	return uint8(-int8(d >> 8)), uint8(d & 0xFF)
}

// TicksPerSecond returns the fixed tick rate of an SMPTE division, or 0.
func (d Division) TicksPerSecond() float64 {
	fps, tpf := d.SMPTE()
	rate := float64(fps)
	if fps == 29 {
		rate = 29.97
	}
	return rate * float64(tpf)
}

// SMPTEDivision builds an SMPTE division from frames per second and ticks per frame.
func SMPTEDivision(fps, ticksPerFrame uint8) Division {
	return Division(uint16(byte(-int8(fps)))<<8 | uint16(ticksPerFrame))
}

func (d Division) String() string {
	if d.IsSMPTE() {
		fps, tpf := d.SMPTE()
		return fmt.Sprintf("%d fps, %d ticks per frame", fps, tpf)
	}
	return fmt.Sprintf("%d ticks per quarter note", uint16(d))
}

// Track is an ordered list of events. File order is time order because every
// Tick is relative to the previous event.
type Track struct {
	Events []Event
}

// Add appends an event with the given delta time.
func (t *Track) Add(tick uint32, m Message) {
	t.Events = append(t.Events, Event{Tick: tick, Message: m})
}

// Len returns the number of events.
func (t *Track) Len() int {
	return len(t.Events)
}

// Ticks returns the absolute tick of the track's last event.
func (t *Track) Ticks() uint64 {
	var total uint64
	for _, ev := range t.Events {
		total += uint64(ev.Tick)
	}
	return total
}

// Song is a parsed MIDI file or MML score.
type Song struct {
	// Format is the SMF header format (0 or 1).
	Format uint16

	// Division is the raw header division. For SMPTE files TicksPerBeat is 0
	// and timing follows Division.TicksPerSecond.
	Division Division

	// TicksPerBeat is the PPQN resolution.
	TicksPerBeat float64

	// StartingTempo is the BPM of the first SetTempo event found in track
	// order, or DefaultTempo.
	StartingTempo float64

	Tracks []Track
}

// NewSong returns an empty song at the default resolution and tempo.
func NewSong() *Song {
	return &Song{
		Format:        1,
		Division:      Division(DefaultTicksPerBeat),
		TicksPerBeat:  DefaultTicksPerBeat,
		StartingTempo: DefaultTempo,
	}
}

// ClearTracks removes every track.
func (s *Song) ClearTracks() {
	s.Tracks = nil
}

// AddTrack appends an empty track and returns it.
func (s *Song) AddTrack() *Track {
	s.Tracks = append(s.Tracks, Track{})
	return &s.Tracks[len(s.Tracks)-1]
}

// EventCount returns the number of events across all tracks.
func (s *Song) EventCount() int {
	n := 0
	for i := range s.Tracks {
		n += len(s.Tracks[i].Events)
	}
	return n
}

// FirstTempo scans tracks in order and returns the first SetTempo event.
func (s *Song) FirstTempo() (SetTempo, bool) {
	for i := range s.Tracks {
		for _, ev := range s.Tracks[i].Events {
			if t, ok := ev.Message.(SetTempo); ok {
				return t, true
			}
		}
	}
	return SetTempo{}, false
}

// UpdateStartingTempo sets StartingTempo from the first SetTempo event in
// track order, or DefaultTempo when there is none.
func (s *Song) UpdateStartingTempo() {
	s.StartingTempo = DefaultTempo
	if t, ok := s.FirstTempo(); ok && t.MicrosecondsPerBeat > 0 {
		s.StartingTempo = t.BPM()
	}
}
