package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	ebitenaudio "github.com/hajimehoshi/ebiten/v2/audio"
	"github.com/zurustar/smfplay/pkg/audio"
	"github.com/zurustar/smfplay/pkg/player"
	"github.com/zurustar/smfplay/pkg/sink"
	"github.com/zurustar/smfplay/pkg/smf"
)

// synthTail はソフトウェアシンセの残響を待つ時間
const synthTail = time.Second

// inputPollInterval は入力ポートのキューを確認する間隔
const inputPollInterval = 10 * time.Millisecond

// outputs は再生時の出力先をまとめる
type outputs struct {
	sinks   sink.Multi
	closers []func()
	tail    time.Duration
}

func (o *outputs) add(s sink.Sink, closer func()) {
	o.sinks = append(o.sinks, s)
	if closer != nil {
		o.closers = append(o.closers, closer)
	}
}

// Close は開いた順と逆に出力先を閉じる
func (o *outputs) Close() {
	for i := len(o.closers) - 1; i >= 0; i-- {
		o.closers[i]()
	}
}

// openOutputs 設定に応じてMIDIポート、ソフトウェアシンセ、ログの出力先を開く
func (app *Application) openOutputs() (*outputs, error) {
	out := &outputs{}

	if app.config.Port != "" {
		port, err := sink.OpenPort(app.config.Port)
		if err != nil {
			return nil, err
		}
		app.log.Info("MIDI output port opened", "port", port.Name())
		out.add(port, func() { _ = port.Close() })
	}

	if app.config.Headless {
		out.add(sink.NewLogSink(app.log, slog.LevelInfo), nil)
		return out, nil
	}

	loc := findSoundFont(app.embedFS, app.config.SoundFont, app.config.InputPath)
	if loc == nil {
		if len(out.sinks) > 0 {
			// ポート出力だけで再生する
			return out, nil
		}
		return nil, fmt.Errorf("%w (use --soundfont, --port or --headless)", audio.ErrNoSoundFont)
	}

	synth, err := app.openSynth(loc)
	if err != nil {
		out.Close()
		return nil, err
	}
	out.add(synth.sink, synth.close)
	out.tail = synthTail
	return out, nil
}

type synthOutput struct {
	sink  *sink.SynthSink
	close func()
}

// openSynth SoundFontを読み込み、ebitenのオーディオプレイヤーで鳴らし始める
func (app *Application) openSynth(loc *SoundFontLocation) (*synthOutput, error) {
	sf, err := audio.LoadSoundFont(loc.FileSystem, loc.Path)
	if err != nil {
		return nil, err
	}
	synth, err := sink.NewSynthSink(sf)
	if err != nil {
		return nil, err
	}
	app.log.Info("SoundFont loaded", "path", loc.Path, "embedded", loc.IsEmbedded)

	audioCtx := ebitenaudio.CurrentContext()
	if audioCtx == nil {
		audioCtx = ebitenaudio.NewContext(sink.SampleRate)
	}
	stream := audio.NewStream(synth)
	ap, err := audioCtx.NewPlayer(stream)
	if err != nil {
		return nil, fmt.Errorf("failed to create audio player: %w", err)
	}
	ap.SetBufferSize(100 * time.Millisecond)
	ap.Play()

	return &synthOutput{
		sink: synth,
		close: func() {
			synth.AllNotesOff(false)
			stream.Stop()
			_ = ap.Close()
			app.log.Debug("Audio stream closed", "samples", stream.SampleCount())
		},
	}, nil
}

// play 曲を実時間で再生する
func (app *Application) play(ctx context.Context, song *smf.Song) error {
	p := player.New(song, player.WithLogger(app.log))
	if length, ok := p.Length(); ok {
		app.log.Info("Playback started", "events", p.Len(), "seconds", fmt.Sprintf("%.2f", length))
	} else {
		app.log.Info("Song has no channel events")
	}

	out, err := app.openOutputs()
	if err != nil {
		return err
	}
	defer out.Close()

	p.AddListener(sink.Listener(out.sinks, func(err error) {
		app.log.Warn("Failed to deliver MIDI message", "error", err)
	}))

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	if app.config.InputPort != "" {
		done, err := app.monitorInput(runCtx, app.config.InputPort)
		if err != nil {
			return err
		}
		defer func() {
			cancel()
			<-done
		}()
	}

	err = p.Run(runCtx, player.NewWallClock(), player.WithTail(out.tail))
	if errors.Is(err, context.DeadlineExceeded) {
		app.log.Info("Timeout reached, terminating")
		return nil
	}
	if errors.Is(err, context.Canceled) {
		app.log.Info("Playback interrupted")
		return nil
	}
	if err != nil {
		return err
	}
	app.log.Info("Playback finished")
	return nil
}

// monitorInput 入力ポートで受信したメッセージをログに出す。
// 返すチャネルは監視が終わると閉じられる
func (app *Application) monitorInput(ctx context.Context, port string) (<-chan struct{}, error) {
	q := sink.NewQueue()
	stop, err := sink.ListenPort(port, q)
	if err != nil {
		return nil, err
	}
	app.log.Info("Listening on MIDI input", "port", port)

	logSink := sink.NewLogSink(app.log.With("source", "input"), slog.LevelInfo)
	done := make(chan struct{})
	go func() {
		defer close(done)
		defer stop()
		ticker := time.NewTicker(inputPollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				if n := q.Dropped(); n > 0 {
					app.log.Warn("MIDI input messages dropped", "count", n)
				}
				return
			case <-ticker.C:
				for _, in := range q.Drain() {
					_ = logSink.Send(in.Message)
				}
			}
		}
	}()
	return done, nil
}
