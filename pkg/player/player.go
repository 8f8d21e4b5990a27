// Package player turns a Song into one time-ordered list of channel messages
// and dispatches them against a wall clock supplied by the caller.
//
// A Player is not safe for concurrent use. The host loop owns it and calls
// Update; device callbacks must hand data over through their own queue.
package player

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/zurustar/smfplay/pkg/logger"
	"github.com/zurustar/smfplay/pkg/smf"
)

// RealtimeEvent is a channel message stamped with its time in seconds from
// the start of the song.
type RealtimeEvent struct {
	Time    float64
	Command [3]byte
	Len     int // 2 or 3
}

// Bytes returns the message bytes, Len long.
func (e RealtimeEvent) Bytes() []byte {
	return e.Command[:e.Len:e.Len]
}

func (e RealtimeEvent) String() string {
	return fmt.Sprintf("%8.3fs % X", e.Time, e.Bytes())
}

// Listener receives each event as Update reaches it.
type Listener func(ev RealtimeEvent)

// ListenerID identifies a registered listener.
type ListenerID uint64

type listenerEntry struct {
	id ListenerID
	fn Listener
}

// Option configures New.
type Option func(*Player)

// WithLogger sets the logger used for merge and playback tracing.
func WithLogger(l *slog.Logger) Option {
	return func(p *Player) {
		p.log = l
	}
}

// Player holds the merged event list and the playback cursor.
type Player struct {
	events []RealtimeEvent
	cursor int
	origin float64

	// timing state used while merging
	bpm            float64
	ticksPerBeat   float64
	ticksPerSecond float64 // non-zero for SMPTE divisions

	listeners []listenerEntry
	nextID    ListenerID

	log *slog.Logger
}

// New merges the tracks of song into a single list ordered by time. A nil
// song yields an empty player.
//
// Tempo is global: a SetTempo event in any track changes the conversion of
// every delta read after it. Ties between tracks go to the lower track index.
// Only channel events are kept.
func New(song *smf.Song, opts ...Option) *Player {
	p := &Player{
		bpm:          smf.DefaultTempo,
		ticksPerBeat: smf.DefaultTicksPerBeat,
		log:          logger.GetLogger(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if song == nil {
		return p
	}

	if song.StartingTempo > 0 {
		p.bpm = song.StartingTempo
	}
	if song.Division.IsSMPTE() {
		p.ticksPerSecond = song.Division.TicksPerSecond()
	} else if song.TicksPerBeat > 0 {
		p.ticksPerBeat = song.TicksPerBeat
	}

	p.merge(song.Tracks)
	p.log.Debug("Merged song",
		"tracks", len(song.Tracks), "events", len(p.events),
		"length", p.lengthOrZero(), "startingTempo", song.StartingTempo)
	return p
}

// trackCursor is the merge position within one track.
type trackCursor struct {
	index int    // next event to consume
	tick  uint64 // absolute tick of that event
}

// merge walks the tracks in absolute tick order. Seconds are accumulated
// globally from the last consumed event, so a tempo change in any track
// governs every later tick of every track.
func (p *Player) merge(tracks []smf.Track) {
	cursors := make([]trackCursor, len(tracks))
	for i := range tracks {
		if len(tracks[i].Events) > 0 {
			cursors[i].tick = uint64(tracks[i].Events[0].Tick)
		}
	}

	var lastTick uint64
	var lastSeconds float64
	for {
		pick := -1
		for i := range cursors {
			if cursors[i].index >= len(tracks[i].Events) {
				continue
			}
			if pick < 0 || cursors[i].tick < cursors[pick].tick {
				pick = i
			}
		}
		if pick < 0 {
			return
		}

		c := &cursors[pick]
		lastSeconds += p.ticksToSeconds(c.tick - lastTick)
		lastTick = c.tick
		p.record(lastSeconds, tracks[pick].Events[c.index].Message)
		c.index++
		if c.index < len(tracks[pick].Events) {
			c.tick += uint64(tracks[pick].Events[c.index].Tick)
		}
	}
}

func (p *Player) record(at float64, m smf.Message) {
	switch v := m.(type) {
	case smf.SetTempo:
		if bpm := v.BPM(); bpm > 0 {
			p.bpm = bpm
		}
	case smf.Channel:
		ev := RealtimeEvent{Time: at, Command: [3]byte{v.Status, v.Data1, v.Data2}, Len: v.Len()}
		if ev.Len == 2 {
			ev.Command[2] = 0
		}
		p.events = append(p.events, ev)
	}
}

// TicksToSeconds converts a tick count under the tempo currently governing
// the merge. SMPTE songs use their fixed tick rate.
func (p *Player) TicksToSeconds(ticks uint32) float64 {
	return p.ticksToSeconds(uint64(ticks))
}

func (p *Player) ticksToSeconds(ticks uint64) float64 {
	if p.ticksPerSecond > 0 {
		return float64(ticks) / p.ticksPerSecond
	}
	beats := float64(ticks) / p.ticksPerBeat
	return beats / (p.bpm / 60)
}

// Events returns a copy of the merged event list.
func (p *Player) Events() []RealtimeEvent {
	return slices.Clone(p.events)
}

// Len returns the number of merged events.
func (p *Player) Len() int {
	return len(p.events)
}

// Length returns the time of the last event. ok is false for an empty song.
func (p *Player) Length() (seconds float64, ok bool) {
	if len(p.events) == 0 {
		return 0, false
	}
	return p.events[len(p.events)-1].Time, true
}

func (p *Player) lengthOrZero() float64 {
	l, _ := p.Length()
	return l
}

// Play sets the wall-clock time, in seconds, at which the song starts.
func (p *Player) Play(origin float64) {
	p.origin = origin
}

// Update dispatches, in order, every pending event whose time is at or before
// now-origin, and returns how many were dispatched. Events are dispatched at
// most once; calling Update again with the same or an earlier now does
// nothing.
func (p *Player) Update(now float64) int {
	elapsed := now - p.origin
	n := 0
	for p.cursor < len(p.events) && p.events[p.cursor].Time <= elapsed {
		ev := p.events[p.cursor]
		p.cursor++
		n++
		for _, l := range slices.Clone(p.listeners) {
			l.fn(ev)
		}
	}
	return n
}

// Done reports whether every event has been dispatched.
func (p *Player) Done() bool {
	return p.cursor >= len(p.events)
}

// Position returns the index of the next event to dispatch.
func (p *Player) Position() int {
	return p.cursor
}

// Rewind moves the cursor back to the first event. Call Play again to set a
// new origin.
func (p *Player) Rewind() {
	p.cursor = 0
}

// AddListener registers fn and returns the token that removes it. Listeners
// run in registration order.
func (p *Player) AddListener(fn Listener) ListenerID {
	p.nextID++
	p.listeners = append(p.listeners, listenerEntry{id: p.nextID, fn: fn})
	return p.nextID
}

// RemoveListener unregisters every entry with the given token.
func (p *Player) RemoveListener(id ListenerID) {
	p.listeners = slices.DeleteFunc(p.listeners, func(e listenerEntry) bool {
		return e.id == id
	})
}

// Listeners returns the number of registered listeners.
func (p *Player) Listeners() int {
	return len(p.listeners)
}
