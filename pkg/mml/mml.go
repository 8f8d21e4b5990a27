// Package mml converts Music Macro Language text into an smf.Song.
//
// The dialect is a single pass over the characters:
//
//	c d e f g a b   note, optionally followed by + # (sharp) or - (flat),
//	                a length denominator and dots ("c+8.")
//	r               rest, with the same length syntax
//	l<n>            default length (denominator of a whole note)
//	o<n> < >        set, raise or lower the octave (0-7)
//	t<n>            tempo in BPM (0-500)
//	@<n>            program change (0-127)
//	&               tie: the next note's release keeps full velocity
//	/               move to the next track (at most 16)
//
// Letters are case-insensitive. Whitespace is ignored. Any other character
// is skipped and reported through Result.
package mml

import (
	"fmt"
	"log/slog"

	"github.com/zurustar/smfplay/pkg/fileutil"
	"github.com/zurustar/smfplay/pkg/logger"
	"github.com/zurustar/smfplay/pkg/smf"
)

const (
	defaultOctave = 4
	defaultLength = 8
	defaultTempo  = 120

	maxOctave = 7
	maxTempo  = 500
	maxTrack  = 15

	fullVelocity = 0x7F
)

// semitones maps a note letter to its offset from C.
var semitones = map[byte]int{
	'c': 0, 'd': 2, 'e': 4, 'f': 5, 'g': 7, 'a': 9, 'b': 11,
}

// Option configures Parse.
type Option func(*config)

type config struct {
	ticksPerBeat float64
	log          *slog.Logger
}

// WithTicksPerBeat sets the resolution of the produced song. The default is
// smf.DefaultTicksPerBeat.
func WithTicksPerBeat(tpb float64) Option {
	return func(c *config) {
		c.ticksPerBeat = tpb
	}
}

// WithLogger sets the logger used for the parse summary.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		c.log = l
	}
}

// Result is the outcome of a lenient parse.
type Result struct {
	Song *smf.Song

	// Err is set when at least one character was skipped.
	Err bool

	// BadChars lists every skipped character in source order.
	BadChars []BadChar

	source string
}

// Check returns a *SyntaxError describing the skipped characters, or nil.
func (r *Result) Check() error {
	if !r.Err || len(r.BadChars) == 0 {
		return nil
	}
	first := r.BadChars[0]
	return &SyntaxError{
		BadChar: first,
		Count:   len(r.BadChars),
		Context: errorContext(r.source, first.Line, first.Column),
	}
}

// Parse converts src to a song. Malformed input never fails the parse; it
// sets Result.Err instead. The only error is an invalid option.
func Parse(src string, opts ...Option) (*Result, error) {
	cfg := config{ticksPerBeat: smf.DefaultTicksPerBeat, log: logger.GetLogger()}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.ticksPerBeat <= 0 {
		return nil, fmt.Errorf("%w: %v", ErrBadResolution, cfg.ticksPerBeat)
	}

	p := newParser(src, cfg.ticksPerBeat)
	p.run()

	song := smf.NewSong()
	song.TicksPerBeat = cfg.ticksPerBeat
	if tpb := uint16(cfg.ticksPerBeat); float64(tpb) == cfg.ticksPerBeat && tpb <= 0x7FFF {
		song.Division = smf.Division(tpb)
	}
	song.Tracks = p.tracks
	if len(song.Tracks) == 1 {
		song.Format = 0
	}
	song.UpdateStartingTempo()

	res := &Result{
		Song:     song,
		Err:      len(p.bad) > 0,
		BadChars: p.bad,
		source:   src,
	}
	cfg.log.Debug("Parsed MML",
		"tracks", len(song.Tracks), "events", song.EventCount(),
		"startingTempo", song.StartingTempo, "skipped", len(p.bad))
	return res, nil
}

// ParseFile reads name through fsys and parses it. A nil fsys reads from the
// working directory.
func ParseFile(fsys fileutil.FileSystem, name string, opts ...Option) (*Result, error) {
	if fsys == nil {
		fsys = fileutil.NewRealFS("")
	}
	data, err := fsys.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("failed to read MML file %s: %w", name, err)
	}
	return Parse(string(data), opts...)
}
