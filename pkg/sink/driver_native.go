//go:build midi_native

package sink

// Registers the rtmidi driver with gomidi.
import _ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv"
