package smf

import "fmt"

var channelCommandNames = [...]string{
	"Note off", "Note on", "Poly Pressure", "Control Change",
	"Program Change", "Channel Pressure", "Pitch Bend",
}

var systemCommandNames = [16]string{
	"System Exclusive", "Time Code", "Song Position Pointer", "Song Select",
	"Reserved 1", "Reserved 2", "Tune Request", "EOX",
	"Time Clock", "Reserved 3", "Start", "Continue",
	"Stop", "Reserved 4", "Active Sensing", "System Reset",
}

var pitchClassNames = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// CommandName returns a readable name for a status byte, with the 1-based
// channel for channel messages ("Note on: 1").
func CommandName(status byte) string {
	switch {
	case status < 0x80:
		return "Unknown"
	case status >= 0xF0:
		return systemCommandNames[status&0x0F]
	default:
		return fmt.Sprintf("%s: %d", channelCommandNames[(status>>4)-8], status&0x0F+1)
	}
}

// NoteName returns the scientific pitch name of a MIDI note number, with
// middle C (60) as "C4".
func NoteName(note uint8) string {
	note &= 0x7F
	return fmt.Sprintf("%s%d", pitchClassNames[note%12], int(note/12)-1)
}
