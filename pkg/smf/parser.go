// Package smf reads and writes Standard MIDI Files.
// This file implements the SMF parser.
package smf

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/zurustar/smfplay/pkg/fileutil"
	"github.com/zurustar/smfplay/pkg/logger"
)

// ErrBadMetaValue is returned for a meta event whose fields cannot be represented.
var ErrBadMetaValue = errors.New("meta event value out of range")

// fixedMetaLengths lists the meta subtypes whose payload size is fixed.
var fixedMetaLengths = map[byte]uint32{
	MetaSequenceNumber:    2,
	MetaMidiChannelPrefix: 1,
	MetaEndOfTrack:        0,
	MetaSetTempo:          3,
	MetaSmpteOffset:       5,
	MetaTimeSignature:     4,
	MetaKeySignature:      2,
}

var metaNames = map[byte]string{
	MetaSequenceNumber:    "sequenceNumber",
	MetaMidiChannelPrefix: "midiChannelPrefix",
	MetaEndOfTrack:        "endOfTrack",
	MetaSetTempo:          "setTempo",
	MetaSmpteOffset:       "smpteOffset",
	MetaTimeSignature:     "timeSignature",
	MetaKeySignature:      "keySignature",
}

// ParseOption configures Parse.
type ParseOption func(*parser)

// WithLogger sets the logger used for chunk-level debug output.
func WithLogger(l *slog.Logger) ParseOption {
	return func(p *parser) {
		p.log = l
	}
}

type parser struct {
	log   *slog.Logger
	track int
}

// Parse decodes a Standard MIDI File held in data. Input beginning with
// Base64Prefix is base64-decoded first.
//
// Parse is atomic: on error it returns a nil Song. Format 2 files are not
// supported and yield an empty Song with no error.
func Parse(data []byte, opts ...ParseOption) (*Song, error) {
	p := &parser{log: logger.GetLogger(), track: -1}
	for _, opt := range opts {
		opt(p)
	}

	data, wrapped := unwrapBase64(data)
	if wrapped {
		p.log.Debug("Decoded base64 MIDI envelope", "bytes", len(data))
	}
	return p.parse(newCursor(data))
}

// ParseReader reads r to the end and parses the result.
func ParseReader(r io.Reader, opts ...ParseOption) (*Song, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read MIDI data: %w", err)
	}
	return Parse(data, opts...)
}

// ParseFile loads name through fsys (case-insensitive lookup) and parses it.
// A nil fsys reads from the working directory.
func ParseFile(fsys fileutil.FileSystem, name string, opts ...ParseOption) (*Song, error) {
	if fsys == nil {
		fsys = fileutil.NewRealFS("")
	}
	data, err := fsys.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("failed to read MIDI file %s: %w", name, err)
	}
	song, err := Parse(data, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to parse MIDI file %s: %w", name, err)
	}
	return song, nil
}

func (p *parser) fail(c *cursor, sentinel error, format string, args ...any) *FormatError {
	return newFormatError(c.Offset(), p.track, sentinel, format, args...)
}

// wrap turns a cursor underrun into a FormatError at the current position.
func (p *parser) wrap(c *cursor, err error) error {
	var fe *FormatError
	if errors.As(err, &fe) {
		return err
	}
	return p.fail(c, err, "")
}

func (p *parser) parse(c *cursor) (*Song, error) {
	tag, err := c.ReadBytes(4)
	if err != nil || string(tag) != "MThd" {
		return nil, p.fail(c, ErrBadHeader, "couldn't parse header: missing MThd")
	}
	length, err := c.ReadU32()
	if err != nil {
		return nil, p.wrap(c, err)
	}
	if length != 6 {
		return nil, p.fail(c, ErrBadHeader, "header length %d, expected 6", length)
	}
	format, err := c.ReadU16()
	if err != nil {
		return nil, p.wrap(c, err)
	}
	trackCount, err := c.ReadU16()
	if err != nil {
		return nil, p.wrap(c, err)
	}
	division, err := c.ReadU16()
	if err != nil {
		return nil, p.wrap(c, err)
	}

	song := &Song{
		Format:        format,
		Division:      Division(division),
		TicksPerBeat:  float64(Division(division).TicksPerQuarterNote()),
		StartingTempo: DefaultTempo,
	}

	if format == 2 {
		p.log.Debug("Format 2 MIDI files are not supported, returning empty song")
		return song, nil
	}
	if song.Division.IsSMPTE() {
		p.log.Debug("SMPTE time division", "division", song.Division.String())
	}

	tracks := make([]Track, 0, trackCount)
	for i := 0; i < int(trackCount); i++ {
		p.track = i
		track, err := p.parseTrack(c)
		if err != nil {
			return nil, err
		}
		tracks = append(tracks, track)
	}
	p.track = -1

	song.Tracks = tracks
	song.UpdateStartingTempo()

	p.log.Debug("Parsed MIDI file",
		"format", format, "tracks", len(tracks), "division", song.Division.String(),
		"startingTempo", song.StartingTempo)
	return song, nil
}

func (p *parser) parseTrack(c *cursor) (Track, error) {
	tag, err := c.ReadBytes(4)
	if err != nil || string(tag) != "MTrk" {
		return Track{}, p.fail(c, ErrBadTrack, "couldn't find track: missing MTrk")
	}
	length, err := c.ReadU32()
	if err != nil {
		return Track{}, p.wrap(c, err)
	}
	body, err := c.Sub(int(length))
	if err != nil {
		return Track{}, p.fail(c, ErrUnexpectedEOF, "track length %d exceeds remaining %d bytes", length, c.Remaining())
	}

	var track Track
	var running byte
	for body.Remaining() > 0 {
		delta, err := body.ReadVarInt()
		if err != nil {
			return Track{}, p.wrap(body, err)
		}
		msg, err := p.parseEvent(body, &running)
		if err != nil {
			return Track{}, p.wrap(body, err)
		}
		track.Events = append(track.Events, Event{Tick: delta, Message: msg})
	}
	p.log.Debug("Parsed track", "track", p.track, "bytes", length, "events", len(track.Events))
	return track, nil
}

// parseEvent decodes one event. running holds the last channel status byte
// of the track and is updated when a new one is read.
func (p *parser) parseEvent(c *cursor, running *byte) (Message, error) {
	status, err := c.ReadU8()
	if err != nil {
		return nil, err
	}

	switch {
	case status == StatusMeta:
		return p.parseMeta(c)
	case status == StatusSysEx || status == StatusDividedSysEx:
		length, err := c.ReadVarInt()
		if err != nil {
			return nil, err
		}
		data, err := c.ReadBytes(int(length))
		if err != nil {
			return nil, err
		}
		if status == StatusSysEx {
			return SysEx(data), nil
		}
		return DividedSysEx(data), nil
	case status >= 0xF0:
		return nil, p.fail(c, ErrUnknownStatus, "unrecognised MIDI event type byte 0x%02X", status)
	}

	// Channel event.
	var data1 byte
	if status&0x80 == 0 {
		// Running status: the byte just read is the first data byte.
		if *running == 0 {
			return nil, p.fail(c, ErrNoRunningStatus, "data byte 0x%02X without running status", status)
		}
		data1 = status
		status = *running
	} else {
		data1, err = p.readData(c, status)
		if err != nil {
			return nil, err
		}
		*running = status
	}

	ev := Channel{Status: status, Data1: data1}
	if channelMessageLen(status) == 3 {
		ev.Data2, err = p.readData(c, status)
		if err != nil {
			return nil, err
		}
	}
	return ev, nil
}

// readData reads one channel data byte, which must have its top bit clear.
func (p *parser) readData(c *cursor, status byte) (byte, error) {
	b, err := c.ReadU8()
	if err != nil {
		return 0, err
	}
	if b&0x80 != 0 {
		return 0, p.fail(c, ErrBadDataByte, "data byte 0x%02X in %s event", b, CommandName(status))
	}
	return b, nil
}

func (p *parser) parseMeta(c *cursor) (Message, error) {
	subtype, err := c.ReadU8()
	if err != nil {
		return nil, err
	}
	length, err := c.ReadVarInt()
	if err != nil {
		return nil, err
	}
	if want, fixed := fixedMetaLengths[subtype]; fixed && length != want {
		return nil, p.fail(c, ErrMetaLength, "expected length for %s event is %d, got %d",
			metaNames[subtype], want, length)
	}

	body, err := c.Sub(int(length))
	if err != nil {
		return nil, err
	}

	switch subtype {
	case MetaSequenceNumber:
		n, _ := body.ReadU16()
		return SequenceNumber(n), nil
	case MetaMidiChannelPrefix:
		ch, _ := body.ReadU8()
		return MidiChannelPrefix(ch), nil
	case MetaEndOfTrack:
		return EndOfTrack{}, nil
	case MetaSetTempo:
		us, _ := body.ReadU24()
		return SetTempo{MicrosecondsPerBeat: us}, nil
	case MetaSmpteOffset:
		b := body.data
		var rate uint8
		switch b[0] & 0x60 {
		case 0x00:
			rate = 24
		case 0x20:
			rate = 25
		case 0x40:
			rate = 29
		case 0x60:
			rate = 30
		}
		return SmpteOffset{FrameRate: rate, Hour: b[0] & 0x1F, Min: b[1], Sec: b[2], Frame: b[3], SubFrame: b[4]}, nil
	case MetaTimeSignature:
		b := body.data
		if b[1] > 31 {
			return nil, p.fail(c, ErrBadMetaValue, "time signature denominator 2^%d out of range", b[1])
		}
		return TimeSignature{Numerator: b[0], Denominator: 1 << b[1], Metronome: b[2], ThirtySeconds: b[3]}, nil
	case MetaKeySignature:
		b := body.data
		return KeySignature{Key: int8(b[0]), Scale: b[1]}, nil
	}

	// Variable-length payloads are copied so the song never aliases the input.
	data := bytes.Clone(body.data)
	switch subtype {
	case MetaText:
		return Text(data), nil
	case MetaCopyright:
		return Copyright(data), nil
	case MetaTrackName:
		return TrackName(data), nil
	case MetaInstrumentName:
		return InstrumentName(data), nil
	case MetaLyric:
		return Lyric(data), nil
	case MetaMarker:
		return Marker(data), nil
	case MetaCuePoint:
		return CuePoint(data), nil
	case MetaSequencerSpecific:
		return SequencerSpecific(data), nil
	}
	return Unknown{Type: subtype, Data: data}, nil
}
