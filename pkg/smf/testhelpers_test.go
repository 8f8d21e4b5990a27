package smf

import "encoding/binary"

// buildSMF assembles a file from a header and raw track bodies.
func buildSMF(format, division uint16, tracks ...[]byte) []byte {
	out := smfHeader(format, uint16(len(tracks)), division)
	for _, body := range tracks {
		out = append(out, "MTrk"...)
		out = binary.BigEndian.AppendUint32(out, uint32(len(body)))
		out = append(out, body...)
	}
	return out
}

func concat(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

var eot = []byte{0x00, 0xFF, 0x2F, 0x00}

func smfHeader(format, trackCount, division uint16) []byte {
	out := []byte("MThd")
	out = binary.BigEndian.AppendUint32(out, 6)
	out = binary.BigEndian.AppendUint16(out, format)
	out = binary.BigEndian.AppendUint16(out, trackCount)
	return binary.BigEndian.AppendUint16(out, division)
}
