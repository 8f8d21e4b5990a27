// Package smf reads and writes Standard MIDI Files.
// This file implements the SMF writer.
package smf

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"math/bits"
)

var endOfTrackBytes = []byte{StatusMeta, MetaEndOfTrack, 0x00}

// WriteOption configures Write.
type WriteOption func(*writer)

// WithRunningStatus omits the status byte of a channel event that repeats the
// previous channel status in the same track.
func WithRunningStatus() WriteOption {
	return func(w *writer) {
		w.runningStatus = true
	}
}

type writer struct {
	runningStatus bool
}

// Marshal serializes song to SMF bytes.
func Marshal(song *Song, opts ...WriteOption) ([]byte, error) {
	var buf bytes.Buffer
	if err := Write(&buf, song, opts...); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Write serializes song to w.
//
// The header is format 0 for a single track and format 1 otherwise. Stored
// EndOfTrack events are dropped and a single EndOfTrack is written at the end
// of each track; the delta of a dropped EndOfTrack is carried to the next
// event so absolute times are preserved.
func Write(w io.Writer, song *Song, opts ...WriteOption) error {
	wr := &writer{}
	for _, opt := range opts {
		opt(wr)
	}
	if len(song.Tracks) > math.MaxUint16 {
		return fmt.Errorf("%w: %d", ErrTooManyTracks, len(song.Tracks))
	}

	bw := bufio.NewWriter(w)

	format := uint16(1)
	if len(song.Tracks) == 1 {
		format = 0
	}
	header := make([]byte, 0, 14)
	header = append(header, "MThd"...)
	header = binary.BigEndian.AppendUint32(header, 6)
	header = binary.BigEndian.AppendUint16(header, format)
	header = binary.BigEndian.AppendUint16(header, uint16(len(song.Tracks)))
	header = binary.BigEndian.AppendUint16(header, uint16(outputDivision(song)))
	if _, err := bw.Write(header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for i := range song.Tracks {
		body, err := wr.encodeTrack(&song.Tracks[i])
		if err != nil {
			return fmt.Errorf("track %d: %w", i, err)
		}
		chunk := make([]byte, 0, 8)
		chunk = append(chunk, "MTrk"...)
		chunk = binary.BigEndian.AppendUint32(chunk, uint32(len(body)))
		if _, err := bw.Write(chunk); err != nil {
			return fmt.Errorf("failed to write track %d: %w", i, err)
		}
		if _, err := bw.Write(body); err != nil {
			return fmt.Errorf("failed to write track %d: %w", i, err)
		}
	}
	return bw.Flush()
}

// outputDivision returns the header division: the song's own resolution when
// it fits, the SMPTE division unchanged, or DefaultTicksPerBeat.
func outputDivision(song *Song) Division {
	if song.Division.IsSMPTE() {
		return song.Division
	}
	tpb := song.TicksPerBeat
	if tpb >= 1 && tpb <= 0x7FFF && tpb == math.Trunc(tpb) {
		return Division(uint16(tpb))
	}
	return Division(DefaultTicksPerBeat)
}

func (wr *writer) encodeTrack(t *Track) ([]byte, error) {
	var out []byte
	var running byte
	var carry uint64
	endsTrack := false

	for _, ev := range t.Events {
		if _, ok := ev.Message.(EndOfTrack); ok {
			carry += uint64(ev.Tick)
			continue
		}
		delta := uint64(ev.Tick) + carry
		carry = 0
		// A carried delta that overflows a varint is split with empty text events.
		for delta > math.MaxUint32 {
			out = AppendVarInt(out, math.MaxUint32)
			out = append(out, StatusMeta, MetaText, 0x00)
			delta -= math.MaxUint32
		}
		out = AppendVarInt(out, uint32(delta))

		start := len(out)
		var err error
		out, err = wr.appendMessage(out, ev.Message, &running)
		if err != nil {
			return nil, err
		}
		if _, ok := ev.Message.(Channel); !ok {
			running = 0
		}
		// Only the bytes of the message itself count; a SysEx payload may
		// happen to end in FF 2F 00.
		endsTrack = bytes.Equal(out[start:], endOfTrackBytes)
	}

	if !endsTrack || carry > 0 {
		if carry > math.MaxUint32 {
			carry = math.MaxUint32
		}
		out = AppendVarInt(out, uint32(carry))
		out = append(out, endOfTrackBytes...)
	}
	return out, nil
}

func appendMeta(dst []byte, subtype byte, payload []byte) []byte {
	dst = append(dst, StatusMeta, subtype)
	dst = AppendVarInt(dst, uint32(len(payload)))
	return append(dst, payload...)
}

func appendSysEx(dst []byte, status byte, payload []byte) []byte {
	dst = append(dst, status)
	dst = AppendVarInt(dst, uint32(len(payload)))
	return append(dst, payload...)
}

// appendMessage appends the wire form of m. running tracks the last channel
// status written in the track.
func (wr *writer) appendMessage(dst []byte, m Message, running *byte) ([]byte, error) {
	switch v := m.(type) {
	case Channel:
		if v.Status < 0x80 || v.Status >= 0xF0 {
			return nil, fmt.Errorf("%w: channel status 0x%02X", ErrUnknownStatus, v.Status)
		}
		if !wr.runningStatus || v.Status != *running {
			dst = append(dst, v.Status)
		}
		*running = v.Status
		dst = append(dst, v.Data1&0x7F)
		if v.Len() == 3 {
			dst = append(dst, v.Data2&0x7F)
		}
		return dst, nil
	case SequenceNumber:
		return appendMeta(dst, MetaSequenceNumber, binary.BigEndian.AppendUint16(nil, uint16(v))), nil
	case Text:
		return appendMeta(dst, MetaText, v), nil
	case Copyright:
		return appendMeta(dst, MetaCopyright, v), nil
	case TrackName:
		return appendMeta(dst, MetaTrackName, v), nil
	case InstrumentName:
		return appendMeta(dst, MetaInstrumentName, v), nil
	case Lyric:
		return appendMeta(dst, MetaLyric, v), nil
	case Marker:
		return appendMeta(dst, MetaMarker, v), nil
	case CuePoint:
		return appendMeta(dst, MetaCuePoint, v), nil
	case MidiChannelPrefix:
		return appendMeta(dst, MetaMidiChannelPrefix, []byte{byte(v)}), nil
	case EndOfTrack:
		return appendMeta(dst, MetaEndOfTrack, nil), nil
	case SetTempo:
		if v.MicrosecondsPerBeat > 0xFFFFFF {
			return nil, fmt.Errorf("%w: tempo %d µs/beat exceeds 24 bits", ErrBadMetaValue, v.MicrosecondsPerBeat)
		}
		return appendMeta(dst, MetaSetTempo, appendU24(nil, v.MicrosecondsPerBeat)), nil
	case SmpteOffset:
		var rate byte
		switch v.FrameRate {
		case 24:
			rate = 0x00
		case 25:
			rate = 0x20
		case 29:
			rate = 0x40
		case 30:
			rate = 0x60
		default:
			return nil, fmt.Errorf("%w: SMPTE frame rate %d", ErrBadMetaValue, v.FrameRate)
		}
		return appendMeta(dst, MetaSmpteOffset, []byte{rate | v.Hour&0x1F, v.Min, v.Sec, v.Frame, v.SubFrame}), nil
	case TimeSignature:
		if v.Denominator == 0 || v.Denominator&(v.Denominator-1) != 0 {
			return nil, fmt.Errorf("%w: time signature denominator %d is not a power of two", ErrBadMetaValue, v.Denominator)
		}
		exp := byte(bits.TrailingZeros32(v.Denominator))
		return appendMeta(dst, MetaTimeSignature, []byte{v.Numerator, exp, v.Metronome, v.ThirtySeconds}), nil
	case KeySignature:
		return appendMeta(dst, MetaKeySignature, []byte{byte(v.Key), v.Scale}), nil
	case SequencerSpecific:
		return appendMeta(dst, MetaSequencerSpecific, v), nil
	case Unknown:
		return appendMeta(dst, v.Type, v.Data), nil
	case SysEx:
		return appendSysEx(dst, StatusSysEx, v), nil
	case DividedSysEx:
		return appendSysEx(dst, StatusDividedSysEx, v), nil
	}
	return nil, fmt.Errorf("smf: unsupported message type %T", m)
}
