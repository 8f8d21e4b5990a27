package mml

import (
	"github.com/zurustar/smfplay/pkg/smf"
)

type parser struct {
	input        string
	position     int  // offset of ch
	readPosition int  // offset of the next byte
	ch           byte // current byte, 0 at end of input
	line         int
	column       int

	ticksPerBeat float64

	octave int
	length int
	tempo  int
	track  int
	tied   bool

	tracks []smf.Track
	bad    []BadChar
}

func newParser(input string, ticksPerBeat float64) *parser {
	p := &parser{
		input:        input,
		line:         1,
		ticksPerBeat: ticksPerBeat,
		octave:       defaultOctave,
		length:       defaultLength,
		tempo:        defaultTempo,
		tracks:       make([]smf.Track, 1),
	}
	p.readChar()
	return p
}

func (p *parser) readChar() {
	if p.ch == '\n' {
		p.line++
		p.column = 0
	}
	if p.readPosition >= len(p.input) {
		p.ch = 0
	} else {
		p.ch = p.input[p.readPosition]
	}
	p.position = p.readPosition
	p.readPosition++
	p.column++
}

func (p *parser) atEnd() bool {
	return p.position >= len(p.input)
}

func (p *parser) run() {
	for !p.atEnd() {
		c := p.ch
		start := BadChar{Offset: p.position, Line: p.line, Column: p.column, Char: c}
		p.readChar()

		switch lower(c) {
		case 'l':
			if n := p.readInt(); n > 0 {
				p.length = n
			} else {
				p.bad = append(p.bad, start)
			}
		case 'o':
			p.octave = clamp(p.readInt(), 0, maxOctave)
		case '<':
			p.octave = clamp(p.octave+1, 0, maxOctave)
		case '>':
			p.octave = clamp(p.octave-1, 0, maxOctave)
		case '@':
			program := clamp(p.readInt(), 0, 127)
			p.add(0, smf.ProgramChange(p.channel(), uint8(program)))
		case 't':
			p.tempo = clamp(p.readInt(), 0, maxTempo)
			p.add(0, smf.TempoFromBPM(float64(p.tempo)))
		case '/':
			p.track = min(p.track+1, maxTrack)
			for p.track >= len(p.tracks) {
				p.tracks = append(p.tracks, smf.Track{})
			}
		case 'c', 'd', 'e', 'f', 'g', 'a', 'b':
			p.note(semitones[lower(c)])
		case '&':
			p.tied = true
		case 'r':
			p.add(p.duration(), smf.NoteOn(p.channel(), 0, 0))
			p.tied = false
		case ' ', '\t', '\r', '\n':
		default:
			p.bad = append(p.bad, start)
		}
	}
}

// note emits a note-on and, duration ticks later, a note-on with velocity 0.
// After a tie the release keeps full velocity and the tie is consumed.
func (p *parser) note(semitone int) {
	key := uint8((semitone + p.accidental() + p.octave*12) & 0x7F)
	duration := p.duration()
	release := uint8(0)
	if p.tied {
		release = fullVelocity
		p.tied = false
	}
	p.add(0, smf.NoteOn(p.channel(), key, fullVelocity))
	p.add(duration, smf.NoteOn(p.channel(), key, release))
}

func (p *parser) accidental() int {
	switch p.ch {
	case '-':
		p.readChar()
		return -1
	case '+', '#':
		p.readChar()
		return 1
	}
	return 0
}

// readInt reads a run of digits and minus signs. Any minus makes the value
// negative; an empty run reads as 0.
func (p *parser) readInt() int {
	v, sign := 0, 1
	for !p.atEnd() && (p.ch == '-' || isDigit(p.ch)) {
		if p.ch == '-' {
			sign = -1
		} else {
			v = v*10 + int(p.ch-'0')
		}
		p.readChar()
	}
	return v * sign
}

// duration reads an optional length denominator and dots, and returns the
// length in ticks at the current tempo. Each dot adds half of what the
// previous dot (or the base length) added.
func (p *parser) duration() uint32 {
	denominator := p.length
	if n := p.readInt(); n > 0 {
		denominator = n
	}
	part := wholeNoteToTicks(float64(denominator), float64(p.tempo), p.ticksPerBeat)
	total := part
	for !p.atEnd() && p.ch == '.' {
		p.readChar()
		part /= 2
		total += part
	}
	if total < 0 {
		return 0
	}
	return uint32(total)
}

func (p *parser) channel() uint8 {
	return uint8(p.track)
}

func (p *parser) add(delta uint32, m smf.Message) {
	p.tracks[p.track].Add(delta, m)
}

func secondsToTicks(seconds, bpm, ticksPerBeat float64) float64 {
	beats := seconds * (bpm / 60)
	return beats * ticksPerBeat
}

// wholeNoteToTicks converts a note length given as a fraction of a whole note
// (4 for a quarter) to ticks.
func wholeNoteToTicks(fraction, bpm, ticksPerBeat float64) float64 {
	if fraction <= 0 {
		return 0
	}
	seconds := (bpm / 60) / fraction
	return secondsToTicks(seconds, bpm, ticksPerBeat)
}

func lower(c byte) byte {
	if c >= 'A' && c <= 'Z' {
		return c + 'a' - 'A'
	}
	return c
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func clamp(v, lo, hi int) int {
	return min(max(v, lo), hi)
}
