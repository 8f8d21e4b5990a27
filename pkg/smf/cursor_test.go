package smf

import (
	"bytes"
	"errors"
	"math/bits"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestVarIntEncoding(t *testing.T) {
	tests := []struct {
		value uint32
		want  []byte
	}{
		{0, []byte{0x00}},
		{1, []byte{0x01}},
		{127, []byte{0x7F}},
		{128, []byte{0x81, 0x00}},
		{8192, []byte{0xC0, 0x00}},
		{16383, []byte{0xFF, 0x7F}},
		{16384, []byte{0x81, 0x80, 0x00}},
		{2097151, []byte{0xFF, 0xFF, 0x7F}},
		{0x0FFFFFFF, []byte{0xFF, 0xFF, 0xFF, 0x7F}},
	}

	for _, tt := range tests {
		got := EncodeVarInt(tt.value)
		if !bytes.Equal(got, tt.want) {
			t.Errorf("EncodeVarInt(%d) = % X, want % X", tt.value, got, tt.want)
		}
		v, n, err := ReadVarInt(tt.want)
		if err != nil {
			t.Errorf("ReadVarInt(% X) error: %v", tt.want, err)
			continue
		}
		if v != tt.value || n != len(tt.want) {
			t.Errorf("ReadVarInt(% X) = %d, %d; want %d, %d", tt.want, v, n, tt.value, len(tt.want))
		}
	}
}

func TestReadVarIntStopsAtTerminator(t *testing.T) {
	v, n, err := ReadVarInt([]byte{0x81, 0x00, 0x90, 0x3C})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != 128 || n != 2 {
		t.Errorf("got %d, %d; want 128, 2", v, n)
	}
}

func TestReadVarIntUnderrun(t *testing.T) {
	for _, data := range [][]byte{nil, {0x80}, {0xFF, 0xFF}} {
		if _, _, err := ReadVarInt(data); !errors.Is(err, ErrUnexpectedEOF) {
			t.Errorf("ReadVarInt(% X) error = %v, want ErrUnexpectedEOF", data, err)
		}
	}
}

func TestCursorBounds(t *testing.T) {
	c := newCursor([]byte{0x01, 0x02, 0x03})
	if _, err := c.ReadU32(); !errors.Is(err, ErrUnexpectedEOF) {
		t.Errorf("ReadU32 on 3 bytes: %v", err)
	}
	if c.Remaining() != 3 {
		t.Errorf("failed read consumed input: remaining %d", c.Remaining())
	}
	v, err := c.ReadU24()
	if err != nil || v != 0x010203 {
		t.Errorf("ReadU24 = 0x%X, %v", v, err)
	}
	if _, err := c.ReadU8(); !errors.Is(err, ErrUnexpectedEOF) {
		t.Errorf("ReadU8 at end: %v", err)
	}
}

func TestCursorSubKeepsOffsets(t *testing.T) {
	c := newCursor([]byte{0xAA, 0xBB, 0x01, 0x02, 0xCC})
	c.pos = 2
	sub, err := c.Sub(2)
	if err != nil {
		t.Fatalf("Sub failed: %v", err)
	}
	if sub.Offset() != 2 {
		t.Errorf("sub offset = %d, want 2", sub.Offset())
	}
	if _, err := sub.ReadU16(); err != nil {
		t.Fatalf("ReadU16 failed: %v", err)
	}
	if _, err := sub.ReadU8(); !errors.Is(err, ErrUnexpectedEOF) {
		t.Errorf("read past sub-cursor end: %v", err)
	}
	if c.Offset() != 4 {
		t.Errorf("parent offset = %d, want 4", c.Offset())
	}
}

func TestReadBytesCopies(t *testing.T) {
	src := []byte{1, 2, 3}
	c := newCursor(src)
	out, err := c.ReadBytes(3)
	if err != nil {
		t.Fatalf("ReadBytes failed: %v", err)
	}
	src[0] = 9
	if out[0] != 1 {
		t.Error("ReadBytes aliases the input buffer")
	}
}

// Property: every uint32 survives encode/decode and is encoded minimally.
func TestVarIntRoundTripProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("decode(encode(v)) == v", prop.ForAll(
		func(v uint32) bool {
			enc := EncodeVarInt(v)
			got, n, err := ReadVarInt(enc)
			return err == nil && got == v && n == len(enc)
		},
		gen.UInt32(),
	))

	properties.Property("encoding is minimal", prop.ForAll(
		func(v uint32) bool {
			want := (bits.Len32(v) + 6) / 7
			if want == 0 {
				want = 1
			}
			return len(EncodeVarInt(v)) == want
		},
		gen.UInt32(),
	))

	properties.TestingRun(t)
}
