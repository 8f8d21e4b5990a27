package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/zurustar/smfplay/pkg/cli"
	"github.com/zurustar/smfplay/pkg/fileutil"
	"github.com/zurustar/smfplay/pkg/logger"
	"github.com/zurustar/smfplay/pkg/mml"
	"github.com/zurustar/smfplay/pkg/smf"
	"github.com/zurustar/smfplay/pkg/sink"
)

// EmbeddedSongsDir は埋め込みFS内のサンプル曲のディレクトリ
const EmbeddedSongsDir = "songs"

// Application はアプリケーションのメインロジックを管理する
type Application struct {
	config  *cli.Config
	log     *slog.Logger
	embedFS fs.FS
	stdout  io.Writer
}

// Option はApplicationの設定を変更する
type Option func(*Application)

// WithStdout はdump/portsモードの出力先を変更する
func WithStdout(w io.Writer) Option {
	return func(app *Application) {
		app.stdout = w
	}
}

// New Applicationを作成。embedFSにはsongsとsoundfontsディレクトリを含められる（nil可）
func New(embedFS fs.FS, opts ...Option) *Application {
	app := &Application{
		embedFS: embedFS,
		stdout:  os.Stdout,
	}
	for _, opt := range opts {
		opt(app)
	}
	return app
}

// Run アプリケーションを実行
func (app *Application) Run(args []string) error {
	// 1. コマンドライン引数の解析
	config, err := cli.ParseArgs(args)
	if err != nil {
		return fmt.Errorf("failed to parse args: %w", err)
	}
	app.config = config

	if app.config.ShowHelp {
		cli.PrintHelp(app.stdout)
		return nil
	}

	// 2. ロガーの初期化
	if err := logger.InitLogger(app.config.LogLevel); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	app.log = logger.GetLogger()
	app.log.Debug("Application started", "mode", app.config.Mode, "input", app.config.InputPath)

	// 3. タイムアウトと割り込みで止まるコンテキスト
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if app.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, app.config.Timeout)
		defer cancel()
	}

	// 4. モードごとの処理
	switch app.config.Mode {
	case cli.ModePorts:
		return app.listPorts()
	case cli.ModeDump:
		song, err := app.loadSong()
		if err != nil {
			return err
		}
		return dumpSong(app.stdout, song, app.config.InputPath, textEncoding(app.config.Encoding))
	case cli.ModeConvert:
		song, err := app.loadSong()
		if err != nil {
			return err
		}
		return app.convert(song)
	default:
		song, err := app.loadSong()
		if err != nil {
			return err
		}
		return app.play(ctx, song)
	}
}

// inputFS は入力ファイルを読むFileSystemを返す。
// ディスク上に見つからない場合は埋め込みのサンプル曲を探す
func (app *Application) inputFS(name string) fileutil.FileSystem {
	disk := fileutil.NewRealFS("")
	if _, err := os.Stat(name); err == nil || app.embedFS == nil {
		return disk
	}
	if _, err := fileutil.FindFileCaseInsensitive(filepath.Dir(name), filepath.Base(name)); err == nil {
		return disk
	}
	embedded := fileutil.NewEmbedFS(app.embedFS, EmbeddedSongsDir)
	if _, err := embedded.ReadFile(name); err == nil {
		app.log.Info("Using embedded song", "name", name)
		return embedded
	}
	if songs, err := fileutil.FindByExt(embedded, ".", ".mid", ".midi", ".mml"); err == nil && len(songs) > 0 {
		app.log.Info("Input not found; embedded songs are available", "songs", songs)
	}
	return disk
}

// loadSong 入力ファイルをSMFまたはMMLとして読み込む
func (app *Application) loadSong() (*smf.Song, error) {
	name := app.config.InputPath
	fsys := app.inputFS(name)

	if !app.config.MML {
		song, err := smf.ParseFile(fsys, name, smf.WithLogger(app.log))
		if err != nil {
			return nil, err
		}
		app.log.Info("MIDI file loaded", "name", name, "format", song.Format,
			"tracks", len(song.Tracks), "events", song.EventCount())
		return song, nil
	}

	result, err := mml.ParseFile(fsys, name,
		mml.WithTicksPerBeat(float64(app.config.TicksPerBeat)), mml.WithLogger(app.log))
	if err != nil {
		return nil, err
	}
	// 不正な文字は読み飛ばして続行する
	if err := result.Check(); err != nil {
		app.log.Warn("MML contains invalid characters", "name", name, "count", len(result.BadChars))
		var se *mml.SyntaxError
		if errors.As(err, &se) {
			app.log.Warn("First invalid character", "line", se.Line, "column", se.Column)
			app.log.Debug("MML error context\n" + se.Context)
		}
	}
	app.log.Info("MML loaded", "name", name, "tracks", len(result.Song.Tracks), "events", result.Song.EventCount())
	return result.Song, nil
}

// convert 曲をSMFとして書き出す
func (app *Application) convert(song *smf.Song) error {
	var opts []smf.WriteOption
	if app.config.RunningStatus {
		opts = append(opts, smf.WithRunningStatus())
	}
	data, err := smf.Marshal(song, opts...)
	if err != nil {
		return fmt.Errorf("failed to encode MIDI file: %w", err)
	}
	if err := os.WriteFile(app.config.OutputPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", app.config.OutputPath, err)
	}
	app.log.Info("MIDI file written", "path", app.config.OutputPath, "bytes", len(data), "tracks", len(song.Tracks))
	return nil
}

// listPorts MIDIポートの一覧を表示
func (app *Application) listPorts() error {
	outs, ins, err := sink.Ports()
	if err != nil {
		return fmt.Errorf("failed to list MIDI ports: %w", err)
	}
	fmt.Fprintln(app.stdout, "Outputs:")
	for _, p := range outs {
		fmt.Fprintf(app.stdout, "  %s\n", p)
	}
	fmt.Fprintln(app.stdout, "Inputs:")
	for _, p := range ins {
		fmt.Fprintf(app.stdout, "  %s\n", p)
	}
	return nil
}
