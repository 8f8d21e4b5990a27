package app

import (
	"fmt"
	"io"
	"strconv"

	"github.com/zurustar/smfplay/pkg/cli"
	"github.com/zurustar/smfplay/pkg/player"
	"github.com/zurustar/smfplay/pkg/smf"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/japanese"
)

// textEncoding はcliの文字コード名をデコーダに変換する。UTF-8はnil
func textEncoding(name string) encoding.Encoding {
	if name == cli.EncodingSJIS {
		return japanese.ShiftJIS
	}
	return nil
}

// dumpSong 曲のヘッダとトラックごとのイベント一覧を書き出す
func dumpSong(w io.Writer, song *smf.Song, name string, enc encoding.Encoding) error {
	p := player.New(song)
	length, _ := p.Length()

	fmt.Fprintf(w, "File: %s\n", name)
	fmt.Fprintf(w, "Format: %d  Tracks: %d  Division: %s\n", song.Format, len(song.Tracks), song.Division)
	fmt.Fprintf(w, "Starting tempo: %.2f BPM  Length: %.3fs  Channel events: %d\n",
		song.StartingTempo, length, p.Len())

	for i := range song.Tracks {
		track := &song.Tracks[i]
		fmt.Fprintf(w, "\nTrack %d (%d events, %d ticks)\n", i, track.Len(), track.Ticks())
		var abs uint64
		for _, ev := range track.Events {
			abs += uint64(ev.Tick)
			fmt.Fprintf(w, "%10d  %-18s %s\n", abs, ev.Kind(), describe(ev.Message, enc))
		}
	}
	_, err := fmt.Fprintln(w)
	return err
}

// describe はイベントの内容を1行で表す
func describe(m smf.Message, enc encoding.Encoding) string {
	if text, ok := smf.DecodeText(m, enc); ok {
		return strconv.Quote(text)
	}

	switch v := m.(type) {
	case smf.Channel:
		s := v.String()
		if c := v.Command(); c == smf.StatusNoteOn || c == smf.StatusNoteOff {
			s += " (" + smf.NoteName(v.Data1) + ")"
		}
		return s
	case smf.SetTempo:
		return fmt.Sprintf("%d µs/beat (%.2f BPM)", v.MicrosecondsPerBeat, v.BPM())
	case smf.TimeSignature:
		return fmt.Sprintf("%d/%d, %d clocks/click, %d 32nds/quarter",
			v.Numerator, v.Denominator, v.Metronome, v.ThirtySeconds)
	case smf.KeySignature:
		scale := "major"
		if v.Scale == 1 {
			scale = "minor"
		}
		return fmt.Sprintf("%+d %s", v.Key, scale)
	case smf.SmpteOffset:
		return fmt.Sprintf("%02d:%02d:%02d:%02d.%02d @%dfps", v.Hour, v.Min, v.Sec, v.Frame, v.SubFrame, v.FrameRate)
	case smf.SequenceNumber:
		return strconv.Itoa(int(v))
	case smf.MidiChannelPrefix:
		return fmt.Sprintf("channel %d", v)
	case smf.EndOfTrack:
		return ""
	case smf.SysEx:
		return fmt.Sprintf("% X", []byte(v))
	case smf.DividedSysEx:
		return fmt.Sprintf("% X", []byte(v))
	case smf.SequencerSpecific:
		return fmt.Sprintf("% X", []byte(v))
	case smf.Unknown:
		return fmt.Sprintf("type 0x%02X % X", v.Type, v.Data)
	}
	return fmt.Sprint(m)
}
