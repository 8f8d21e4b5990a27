// Package smf reads and writes Standard MIDI Files.
// This file implements the bounds-checked byte cursor and the variable-length
// quantity codec shared by the parser and the writer.
package smf

import "encoding/binary"

// cursor walks a byte slice. Every read is checked against the remaining
// length; an underrun returns ErrUnexpectedEOF and leaves the cursor unchanged.
type cursor struct {
	data []byte
	pos  int
	base int // offset of data[0] within the whole file, for error reporting
}

func newCursor(data []byte) *cursor {
	return &cursor{data: data}
}

// Remaining returns the number of unread bytes.
func (c *cursor) Remaining() int {
	return len(c.data) - c.pos
}

// Offset returns the absolute file offset of the next byte.
func (c *cursor) Offset() int {
	return c.base + c.pos
}

func (c *cursor) ReadU8() (byte, error) {
	if c.Remaining() < 1 {
		return 0, ErrUnexpectedEOF
	}
	b := c.data[c.pos]
	c.pos++
	return b, nil
}

func (c *cursor) ReadU16() (uint16, error) {
	if c.Remaining() < 2 {
		return 0, ErrUnexpectedEOF
	}
	v := binary.BigEndian.Uint16(c.data[c.pos:])
	c.pos += 2
	return v, nil
}

func (c *cursor) ReadU24() (uint32, error) {
	if c.Remaining() < 3 {
		return 0, ErrUnexpectedEOF
	}
	d := c.data[c.pos:]
	v := uint32(d[0])<<16 | uint32(d[1])<<8 | uint32(d[2])
	c.pos += 3
	return v, nil
}

func (c *cursor) ReadU32() (uint32, error) {
	if c.Remaining() < 4 {
		return 0, ErrUnexpectedEOF
	}
	v := binary.BigEndian.Uint32(c.data[c.pos:])
	c.pos += 4
	return v, nil
}

// ReadBytes returns the next n bytes as a copy, so events never alias the input buffer.
func (c *cursor) ReadBytes(n int) ([]byte, error) {
	if n < 0 || c.Remaining() < n {
		return nil, ErrUnexpectedEOF
	}
	out := make([]byte, n)
	copy(out, c.data[c.pos:c.pos+n])
	c.pos += n
	return out, nil
}

// ReadVarInt reads a MIDI variable-length quantity.
// No limit is placed on the number of continuation bytes; the buffer length
// bounds the read.
func (c *cursor) ReadVarInt() (uint32, error) {
	v, n, err := ReadVarInt(c.data[c.pos:])
	if err != nil {
		return 0, err
	}
	c.pos += n
	return v, nil
}

// Sub splits off the next n bytes as an independent cursor and advances past them.
func (c *cursor) Sub(n int) (*cursor, error) {
	if n < 0 || c.Remaining() < n {
		return nil, ErrUnexpectedEOF
	}
	sub := &cursor{data: c.data[c.pos : c.pos+n], base: c.Offset()}
	c.pos += n
	return sub, nil
}

// ReadVarInt decodes a variable-length quantity from the start of data.
// Each byte contributes its low 7 bits; a clear top bit ends the value.
// It returns the value and the number of bytes consumed.
func ReadVarInt(data []byte) (value uint32, n int, err error) {
	for n < len(data) {
		b := data[n]
		n++
		value = value<<7 | uint32(b&0x7F)
		if b&0x80 == 0 {
			return value, n, nil
		}
	}
	return 0, 0, ErrUnexpectedEOF
}

// AppendVarInt appends the minimal variable-length encoding of v to dst.
func AppendVarInt(dst []byte, v uint32) []byte {
	var buf [5]byte
	i := len(buf) - 1
	buf[i] = byte(v & 0x7F)
	for v >>= 7; v > 0; v >>= 7 {
		i--
		buf[i] = byte(v&0x7F) | 0x80
	}
	return append(dst, buf[i:]...)
}

// EncodeVarInt returns the minimal variable-length encoding of v.
func EncodeVarInt(v uint32) []byte {
	return AppendVarInt(nil, v)
}

func appendU24(dst []byte, v uint32) []byte {
	return append(dst, byte(v>>16), byte(v>>8), byte(v))
}
