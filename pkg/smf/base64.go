package smf

import (
	"bytes"
	"encoding/base64"
)

// Base64Prefix marks a data URI holding a base64-encoded MIDI file.
const Base64Prefix = "data:audio/midi;base64,"

// isBase64Alphabet reports whether b is part of the standard base64 alphabet.
func isBase64Alphabet(b byte) bool {
	return b >= 'A' && b <= 'Z' || b >= 'a' && b <= 'z' || b >= '0' && b <= '9' || b == '+' || b == '/'
}

// unwrapBase64 strips the data URI envelope, if present, and decodes the rest.
// Padding, line breaks and any other byte outside the alphabet are discarded
// instead of failing the decode. Input without the prefix is returned unchanged.
func unwrapBase64(data []byte) ([]byte, bool) {
	if !bytes.HasPrefix(data, []byte(Base64Prefix)) {
		return data, false
	}
	body := data[len(Base64Prefix):]
	clean := make([]byte, 0, len(body))
	for _, b := range body {
		if isBase64Alphabet(b) {
			clean = append(clean, b)
		}
	}
	// A single trailing sextet cannot form a byte.
	if len(clean)%4 == 1 {
		clean = clean[:len(clean)-1]
	}
	out := make([]byte, base64.RawStdEncoding.DecodedLen(len(clean)))
	// Non-canonical trailing bits are the only failure; keep what decoded.
	n, _ := base64.RawStdEncoding.Decode(out, clean)
	return out[:n], true
}
