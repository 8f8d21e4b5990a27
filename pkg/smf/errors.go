// Package smf reads and writes Standard MIDI Files.
// This file defines the FormatError type reported for malformed input.
package smf

import (
	"errors"
	"fmt"
)

var (
	// ErrBadHeader is returned when the MThd chunk is missing or malformed.
	ErrBadHeader = errors.New("bad MThd header")

	// ErrBadTrack is returned when an MTrk chunk tag is missing.
	ErrBadTrack = errors.New("bad MTrk chunk")

	// ErrMetaLength is returned when a fixed-size meta event declares the wrong length.
	ErrMetaLength = errors.New("unexpected meta event length")

	// ErrUnexpectedEOF is returned when a read runs past the end of the buffer
	// or past the end of the current track chunk.
	ErrUnexpectedEOF = errors.New("unexpected end of data")

	// ErrUnknownStatus is returned for status bytes that cannot start an event.
	ErrUnknownStatus = errors.New("unrecognised event type byte")

	// ErrNoRunningStatus is returned when a data byte appears in status position
	// before any channel status has been seen in the track.
	ErrNoRunningStatus = errors.New("running status without a previous status byte")

	// ErrBadDataByte is returned when a channel event data byte has its top bit set.
	ErrBadDataByte = errors.New("channel data byte out of range")

	// ErrTooManyTracks is returned by the writer when a song cannot fit in a
	// 16-bit track count.
	ErrTooManyTracks = errors.New("too many tracks")
)

// FormatError describes malformed SMF input. It is fatal to the parse that
// produced it.
type FormatError struct {
	// Offset is the byte offset into the (decoded) file where the problem was found.
	Offset int

	// Track is the 0-indexed track being parsed, or -1 for the header.
	Track int

	// Msg is a human-readable description.
	Msg string

	// Err is the sentinel classifying the failure.
	Err error
}

// Error implements the error interface.
func (e *FormatError) Error() string {
	if e.Track >= 0 {
		return fmt.Sprintf("smf: track %d at offset %d: %s", e.Track, e.Offset, e.Msg)
	}
	return fmt.Sprintf("smf: offset %d: %s", e.Offset, e.Msg)
}

// Unwrap returns the sentinel so errors.Is works on FormatError values.
func (e *FormatError) Unwrap() error {
	return e.Err
}

func newFormatError(offset, track int, sentinel error, format string, args ...any) *FormatError {
	msg := sentinel.Error()
	if format != "" {
		msg = fmt.Sprintf(format, args...)
	}
	return &FormatError{Offset: offset, Track: track, Msg: msg, Err: sentinel}
}
