// Package smf reads and writes Standard MIDI Files.
// This file defines the event model: a closed set of message types, one Go
// type per event kind, so the type of a Message always matches its payload.
package smf

import (
	"fmt"

	"golang.org/x/text/encoding"
)

// Kind identifies the type of an event.
type Kind uint8

const (
	KindSequenceNumber Kind = iota
	KindText
	KindCopyright
	KindTrackName
	KindInstrumentName
	KindLyric
	KindMarker
	KindCuePoint
	KindMidiChannelPrefix
	KindEndOfTrack
	KindSetTempo
	KindSmpteOffset
	KindTimeSignature
	KindKeySignature
	KindSequencerSpecific
	KindSysEx
	KindDividedSysEx
	KindUnknown
	KindChannel
)

var kindNames = [...]string{
	KindSequenceNumber:    "SequenceNumber",
	KindText:              "Text",
	KindCopyright:         "Copyright",
	KindTrackName:         "TrackName",
	KindInstrumentName:    "InstrumentName",
	KindLyric:             "Lyric",
	KindMarker:            "Marker",
	KindCuePoint:          "CuePoint",
	KindMidiChannelPrefix: "MidiChannelPrefix",
	KindEndOfTrack:        "EndOfTrack",
	KindSetTempo:          "SetTempo",
	KindSmpteOffset:       "SmpteOffset",
	KindTimeSignature:     "TimeSignature",
	KindKeySignature:      "KeySignature",
	KindSequencerSpecific: "SequencerSpecific",
	KindSysEx:             "SysEx",
	KindDividedSysEx:      "DividedSysEx",
	KindUnknown:           "Unknown",
	KindChannel:           "Channel",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// Meta event subtypes as they appear on the wire after 0xFF.
const (
	MetaSequenceNumber    byte = 0x00
	MetaText              byte = 0x01
	MetaCopyright         byte = 0x02
	MetaTrackName         byte = 0x03
	MetaInstrumentName    byte = 0x04
	MetaLyric             byte = 0x05
	MetaMarker            byte = 0x06
	MetaCuePoint          byte = 0x07
	MetaMidiChannelPrefix byte = 0x20
	MetaEndOfTrack        byte = 0x2F
	MetaSetTempo          byte = 0x51
	MetaSmpteOffset       byte = 0x54
	MetaTimeSignature     byte = 0x58
	MetaKeySignature      byte = 0x59
	MetaSequencerSpecific byte = 0x7F
)

// Status bytes.
const (
	StatusNoteOff         byte = 0x80
	StatusNoteOn          byte = 0x90
	StatusPolyPressure    byte = 0xA0
	StatusControlChange   byte = 0xB0
	StatusProgramChange   byte = 0xC0
	StatusChannelPressure byte = 0xD0
	StatusPitchBend       byte = 0xE0
	StatusSysEx           byte = 0xF0
	StatusDividedSysEx    byte = 0xF7
	StatusMeta            byte = 0xFF
)

// DefaultMicrosecondsPerBeat is the tempo in force when a song has no SetTempo event (120 BPM).
const DefaultMicrosecondsPerBeat = 500000

// Message is the payload of an Event. The set of implementations is closed:
// every concrete type lives in this package.
type Message interface {
	Kind() Kind
	isMessage()
}

// Event is a message stamped with its delta time. Tick is relative to the
// previous event in the same track, not an absolute position.
type Event struct {
	Tick    uint32
	Message Message
}

// Kind returns the kind of the event's message.
func (e Event) Kind() Kind {
	return e.Message.Kind()
}

func (e Event) String() string {
	return fmt.Sprintf("+%d %s %v", e.Tick, e.Message.Kind(), e.Message)
}

// SequenceNumber is meta event 0x00.
type SequenceNumber uint16

// Text family meta events (0x01-0x07). The bytes are kept as stored in the
// file; they are not required to be valid UTF-8.
type (
	Text           []byte
	Copyright      []byte
	TrackName      []byte
	InstrumentName []byte
	Lyric          []byte
	Marker         []byte
	CuePoint       []byte
)

// MidiChannelPrefix is meta event 0x20.
type MidiChannelPrefix uint8

// EndOfTrack is meta event 0x2F.
type EndOfTrack struct{}

// SetTempo is meta event 0x51.
type SetTempo struct {
	MicrosecondsPerBeat uint32
}

// BPM returns the tempo in beats per minute.
func (t SetTempo) BPM() float64 {
	if t.MicrosecondsPerBeat == 0 {
		return 0
	}
	return 60000000.0 / float64(t.MicrosecondsPerBeat)
}

// TempoFromBPM returns the SetTempo event for the given beats per minute.
func TempoFromBPM(bpm float64) SetTempo {
	if bpm <= 0 {
		bpm = 1
	}
	return SetTempo{MicrosecondsPerBeat: uint32(60000000.0 / bpm)}
}

// SmpteOffset is meta event 0x54.
type SmpteOffset struct {
	FrameRate uint8 // 24, 25, 29 (29.97 drop frame) or 30
	Hour      uint8
	Min       uint8
	Sec       uint8
	Frame     uint8
	SubFrame  uint8
}

// TimeSignature is meta event 0x58.
type TimeSignature struct {
	Numerator     uint8
	Denominator   uint32 // the ratio, e.g. 4 for x/4; stored on the wire as a power of two
	Metronome     uint8  // MIDI clocks per metronome click
	ThirtySeconds uint8  // notated 32nd notes per 24 MIDI clocks
}

// KeySignature is meta event 0x59.
type KeySignature struct {
	Key   int8  // number of sharps (positive) or flats (negative)
	Scale uint8 // 0 major, 1 minor
}

// SequencerSpecific is meta event 0x7F.
type SequencerSpecific []byte

// SysEx is a 0xF0 system exclusive event. The payload is everything after the
// length, normally ending in 0xF7.
type SysEx []byte

// DividedSysEx is a 0xF7 continuation or escape event.
type DividedSysEx []byte

// Unknown is a meta event with an unrecognised subtype.
type Unknown struct {
	Type byte
	Data []byte
}

// Channel is a channel voice message. Data2 is meaningless for the two
// one-data-byte commands (program change, channel pressure).
type Channel struct {
	Status byte
	Data1  byte
	Data2  byte
}

// Command returns the high nibble of the status byte.
func (c Channel) Command() byte { return c.Status & 0xF0 }

// Channel returns the 0-based channel number.
func (c Channel) Channel() uint8 { return c.Status & 0x0F }

// Len returns the wire length of the message including its status byte.
func (c Channel) Len() int {
	return channelMessageLen(c.Status)
}

// Bytes returns the message as it is sent to a device.
func (c Channel) Bytes() []byte {
	return []byte{c.Status, c.Data1, c.Data2}[:c.Len()]
}

func (c Channel) String() string {
	if c.Len() == 2 {
		return fmt.Sprintf("%s %d", CommandName(c.Status), c.Data1)
	}
	return fmt.Sprintf("%s %d %d", CommandName(c.Status), c.Data1, c.Data2)
}

func channelMessageLen(status byte) int {
	switch status & 0xF0 {
	case StatusProgramChange, StatusChannelPressure:
		return 2
	default:
		return 3
	}
}

// NoteOn returns a note-on message on channel ch (0-15).
func NoteOn(ch, key, velocity uint8) Channel {
	return Channel{Status: StatusNoteOn | ch&0x0F, Data1: key & 0x7F, Data2: velocity & 0x7F}
}

// NoteOff returns a note-off message on channel ch (0-15).
func NoteOff(ch, key, velocity uint8) Channel {
	return Channel{Status: StatusNoteOff | ch&0x0F, Data1: key & 0x7F, Data2: velocity & 0x7F}
}

// ProgramChange returns a program change message on channel ch (0-15).
func ProgramChange(ch, program uint8) Channel {
	return Channel{Status: StatusProgramChange | ch&0x0F, Data1: program & 0x7F}
}

// ControlChange returns a control change message on channel ch (0-15).
func ControlChange(ch, controller, value uint8) Channel {
	return Channel{Status: StatusControlChange | ch&0x0F, Data1: controller & 0x7F, Data2: value & 0x7F}
}

func (SequenceNumber) Kind() Kind    { return KindSequenceNumber }
func (Text) Kind() Kind              { return KindText }
func (Copyright) Kind() Kind         { return KindCopyright }
func (TrackName) Kind() Kind         { return KindTrackName }
func (InstrumentName) Kind() Kind    { return KindInstrumentName }
func (Lyric) Kind() Kind             { return KindLyric }
func (Marker) Kind() Kind            { return KindMarker }
func (CuePoint) Kind() Kind          { return KindCuePoint }
func (MidiChannelPrefix) Kind() Kind { return KindMidiChannelPrefix }
func (EndOfTrack) Kind() Kind        { return KindEndOfTrack }
func (SetTempo) Kind() Kind          { return KindSetTempo }
func (SmpteOffset) Kind() Kind       { return KindSmpteOffset }
func (TimeSignature) Kind() Kind     { return KindTimeSignature }
func (KeySignature) Kind() Kind      { return KindKeySignature }
func (SequencerSpecific) Kind() Kind { return KindSequencerSpecific }
func (SysEx) Kind() Kind             { return KindSysEx }
func (DividedSysEx) Kind() Kind      { return KindDividedSysEx }
func (Unknown) Kind() Kind           { return KindUnknown }
func (Channel) Kind() Kind           { return KindChannel }

func (SequenceNumber) isMessage()    {}
func (Text) isMessage()              {}
func (Copyright) isMessage()         {}
func (TrackName) isMessage()         {}
func (InstrumentName) isMessage()    {}
func (Lyric) isMessage()             {}
func (Marker) isMessage()            {}
func (CuePoint) isMessage()          {}
func (MidiChannelPrefix) isMessage() {}
func (EndOfTrack) isMessage()        {}
func (SetTempo) isMessage()          {}
func (SmpteOffset) isMessage()       {}
func (TimeSignature) isMessage()     {}
func (KeySignature) isMessage()      {}
func (SequencerSpecific) isMessage() {}
func (SysEx) isMessage()             {}
func (DividedSysEx) isMessage()      {}
func (Unknown) isMessage()           {}
func (Channel) isMessage()           {}

func (t Text) String() string           { return string(t) }
func (t Copyright) String() string      { return string(t) }
func (t TrackName) String() string      { return string(t) }
func (t InstrumentName) String() string { return string(t) }
func (t Lyric) String() string          { return string(t) }
func (t Marker) String() string         { return string(t) }
func (t CuePoint) String() string       { return string(t) }

// TextBytes returns the raw bytes of a text-family message and true, or nil
// and false for any other kind.
func TextBytes(m Message) ([]byte, bool) {
	switch v := m.(type) {
	case Text:
		return v, true
	case Copyright:
		return v, true
	case TrackName:
		return v, true
	case InstrumentName:
		return v, true
	case Lyric:
		return v, true
	case Marker:
		return v, true
	case CuePoint:
		return v, true
	}
	return nil, false
}

// DecodeText returns the text of a text-family message converted to UTF-8
// with enc. A nil enc returns the bytes unchanged. Bytes the decoder rejects
// are returned as-is.
func DecodeText(m Message, enc encoding.Encoding) (string, bool) {
	raw, ok := TextBytes(m)
	if !ok {
		return "", false
	}
	if enc == nil {
		return string(raw), true
	}
	out, err := enc.NewDecoder().Bytes(raw)
	if err != nil {
		return string(raw), true
	}
	return string(out), true
}
