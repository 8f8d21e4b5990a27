package mml

import (
	"errors"
	"reflect"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/zurustar/smfplay/pkg/fileutil"
	"github.com/zurustar/smfplay/pkg/smf"
)

func mustParse(t *testing.T, src string, opts ...Option) *Result {
	t.Helper()
	res, err := Parse(src, opts...)
	if err != nil {
		t.Fatalf("Parse(%q) failed: %v", src, err)
	}
	return res
}

func TestParseSingleNote(t *testing.T) {
	res := mustParse(t, "c4")
	if res.Err {
		t.Fatalf("unexpected soft error: %v", res.Check())
	}
	song := res.Song
	if song.TicksPerBeat != 240 {
		t.Errorf("TicksPerBeat = %v, want 240", song.TicksPerBeat)
	}
	if len(song.Tracks) != 1 {
		t.Fatalf("tracks = %d, want 1", len(song.Tracks))
	}

	want := []smf.Event{
		{Tick: 0, Message: smf.Channel{Status: 0x90, Data1: 48, Data2: 0x7F}},
		{Tick: 240, Message: smf.Channel{Status: 0x90, Data1: 48, Data2: 0}},
	}
	if got := song.Tracks[0].Events; !reflect.DeepEqual(got, want) {
		t.Errorf("events = %v, want %v", got, want)
	}
}

func TestParseDurations(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want uint32
	}{
		{"default eighth", "c", 120},
		{"quarter", "c4", 240},
		{"whole", "c1", 960},
		{"default length", "l2 c", 480},
		{"dotted quarter", "c4.", 360},
		{"double dotted quarter", "c4..", 420},
		{"dotted default", "l4 c.", 360},
		{"sharp then length", "c+4", 240},
		{"tempo scales ticks", "t60 c4", 60},
		{"tempo zero", "t0 c4", 0},
		{"upper case", "C4", 240},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := mustParse(t, tt.src)
			if res.Err {
				t.Fatalf("unexpected soft error: %v", res.Check())
			}
			events := res.Song.Tracks[0].Events
			last := events[len(events)-1]
			if last.Tick != tt.want {
				t.Errorf("release delta = %d, want %d", last.Tick, tt.want)
			}
		})
	}
}

func TestParseNoteNumbers(t *testing.T) {
	tests := []struct {
		src  string
		want uint8
	}{
		{"c", 48},
		{"a", 57},
		{"b", 59},
		{"c+", 49},
		{"c#", 49},
		{"c-", 47},
		{"o0c-", 0x7F},
		{"o5c", 60},
		{"o9c", 84},
		{"o-1c", 0},
		{"<c", 60},
		{"o7<c", 84},
		{">c", 36},
		{"o0>c", 0},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			res := mustParse(t, tt.src)
			on := res.Song.Tracks[0].Events[0].Message.(smf.Channel)
			if on.Data1 != tt.want {
				t.Errorf("note = %d, want %d", on.Data1, tt.want)
			}
		})
	}
}

func TestParseTie(t *testing.T) {
	res := mustParse(t, "c4&c4 c4")
	events := res.Song.Tracks[0].Events
	if len(events) != 6 {
		t.Fatalf("got %d events, want 6", len(events))
	}
	velocities := make([]uint8, len(events))
	for i, ev := range events {
		velocities[i] = ev.Message.(smf.Channel).Data2
	}
	want := []uint8{0x7F, 0, 0x7F, 0x7F, 0x7F, 0}
	if !reflect.DeepEqual(velocities, want) {
		t.Errorf("velocities = %v, want %v", velocities, want)
	}
}

func TestParseRestClearsTie(t *testing.T) {
	res := mustParse(t, "&r4c4")
	events := res.Song.Tracks[0].Events
	want := []smf.Event{
		{Tick: 240, Message: smf.NoteOn(0, 0, 0)},
		{Tick: 0, Message: smf.NoteOn(0, 48, 0x7F)},
		{Tick: 240, Message: smf.NoteOn(0, 48, 0)},
	}
	if !reflect.DeepEqual(events, want) {
		t.Errorf("events = %v, want %v", events, want)
	}
}

func TestParseTempoAndProgram(t *testing.T) {
	res := mustParse(t, "t150 @5 @200 t900 c")
	events := res.Song.Tracks[0].Events
	want := []smf.Message{
		smf.SetTempo{MicrosecondsPerBeat: 400000},
		smf.ProgramChange(0, 5),
		smf.ProgramChange(0, 127),
		smf.SetTempo{MicrosecondsPerBeat: 120000},
	}
	for i, w := range want {
		if !reflect.DeepEqual(events[i].Message, w) {
			t.Errorf("event %d = %v, want %v", i, events[i].Message, w)
		}
	}
	if res.Song.StartingTempo != 150 {
		t.Errorf("StartingTempo = %v, want 150", res.Song.StartingTempo)
	}

	zero := mustParse(t, "t0")
	if got := zero.Song.Tracks[0].Events[0].Message; got != (smf.SetTempo{MicrosecondsPerBeat: 60000000}) {
		t.Errorf("t0 emitted %v", got)
	}
}

func TestParseTracks(t *testing.T) {
	res := mustParse(t, "c/d/@3e")
	song := res.Song
	if len(song.Tracks) != 3 {
		t.Fatalf("tracks = %d, want 3", len(song.Tracks))
	}
	if song.Format != 1 {
		t.Errorf("Format = %d, want 1", song.Format)
	}
	for i, tr := range song.Tracks {
		for _, ev := range tr.Events {
			if ch := ev.Message.(smf.Channel).Channel(); int(ch) != i {
				t.Errorf("track %d has event on channel %d", i, ch)
			}
		}
	}

	many := mustParse(t, strings.Repeat("/", 20)+"c")
	if len(many.Song.Tracks) != 16 {
		t.Fatalf("tracks = %d, want 16", len(many.Song.Tracks))
	}
	if ch := many.Song.Tracks[15].Events[0].Message.(smf.Channel).Channel(); ch != 15 {
		t.Errorf("last track channel = %d, want 15", ch)
	}
}

func TestParseSoftErrors(t *testing.T) {
	res := mustParse(t, "c4 x\nd4 ?!")
	if !res.Err {
		t.Fatal("expected soft error flag")
	}
	want := []BadChar{
		{Offset: 3, Line: 1, Column: 4, Char: 'x'},
		{Offset: 8, Line: 2, Column: 4, Char: '?'},
		{Offset: 9, Line: 2, Column: 5, Char: '!'},
	}
	if !reflect.DeepEqual(res.BadChars, want) {
		t.Errorf("BadChars = %+v, want %+v", res.BadChars, want)
	}
	if n := res.Song.EventCount(); n != 4 {
		t.Errorf("parsing did not continue past bad characters: %d events", n)
	}

	err := res.Check()
	if !errors.Is(err, ErrSyntax) {
		t.Fatalf("Check() = %v, want ErrSyntax", err)
	}
	var se *SyntaxError
	if !errors.As(err, &se) || se.Count != 3 || se.Line != 1 || se.Column != 4 {
		t.Errorf("SyntaxError = %+v", se)
	}
	if !strings.Contains(err.Error(), "> 1 | c4 x") {
		t.Errorf("error context missing source line: %q", err.Error())
	}

	if err := mustParse(t, "cde").Check(); err != nil {
		t.Errorf("Check() on clean input = %v", err)
	}
	if res := mustParse(t, "l0c"); !res.Err {
		t.Error("zero default length not flagged")
	}
}

func TestParseOptions(t *testing.T) {
	res := mustParse(t, "c4", WithTicksPerBeat(480))
	if res.Song.Division != 480 {
		t.Errorf("Division = %d, want 480", res.Song.Division)
	}
	if got := res.Song.Tracks[0].Events[1].Tick; got != 480 {
		t.Errorf("quarter note at 480 tpb = %d ticks", got)
	}
	if _, err := Parse("c", WithTicksPerBeat(0)); !errors.Is(err, ErrBadResolution) {
		t.Errorf("error = %v, want ErrBadResolution", err)
	}
}

func TestParseFile(t *testing.T) {
	fsys := fileutil.NewEmbedFS(fstest.MapFS{
		"songs/Scale.MML": {Data: []byte("t120 l4 cdefgab<c")},
	}, "songs")
	res, err := ParseFile(fsys, "scale.mml")
	if err != nil {
		t.Fatalf("ParseFile failed: %v", err)
	}
	if n := res.Song.EventCount(); n != 17 {
		t.Errorf("EventCount = %d, want 17", n)
	}
	if _, err := ParseFile(fsys, "missing.mml"); err == nil {
		t.Error("expected error for missing file")
	}
}

// The produced song survives the SMF writer and parser.
func TestParseOutputRoundTrips(t *testing.T) {
	res := mustParse(t, "t100 @1 l8 o5 c d e& e f4. / o3 c2 r2")
	data, err := smf.Marshal(res.Song)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	parsed, err := smf.Parse(data)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(parsed.Tracks) != 2 {
		t.Fatalf("tracks = %d, want 2", len(parsed.Tracks))
	}
	for i := range res.Song.Tracks {
		want := append(append([]smf.Event(nil), res.Song.Tracks[i].Events...), smf.Event{Message: smf.EndOfTrack{}})
		if !reflect.DeepEqual(parsed.Tracks[i].Events, want) {
			t.Errorf("track %d differs after round trip", i)
		}
	}
	if parsed.StartingTempo != 100 {
		t.Errorf("StartingTempo = %v, want 100", parsed.StartingTempo)
	}
}

// Property: whatever the input, parsing never panics, every byte outside the
// dialect is reported and every channel event stays on a valid channel.
func TestParseLenientProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("arbitrary input parses", prop.ForAll(
		func(src string) bool {
			res, err := Parse(src)
			if err != nil || res.Song == nil {
				return false
			}
			if len(res.Song.Tracks) < 1 || len(res.Song.Tracks) > 16 {
				return false
			}
			for i, tr := range res.Song.Tracks {
				for _, ev := range tr.Events {
					if c, ok := ev.Message.(smf.Channel); ok && int(c.Channel()) != i {
						return false
					}
				}
			}
			return res.Err == (len(res.BadChars) > 0)
		},
		gen.AnyString(),
	))

	properties.Property("note letters are never reported", prop.ForAll(
		func(src string) bool {
			res, _ := Parse(src)
			return !res.Err
		},
		gen.RegexMatch(`[a-gA-Gr<> &/]{0,40}`),
	))

	properties.TestingRun(t)
}
