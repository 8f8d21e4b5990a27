package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"
)

// 動作モード
const (
	ModeDump    = "dump"
	ModePlay    = "play"
	ModeConvert = "convert"
	ModePorts   = "ports"
)

// テキストメタイベントの文字コード
const (
	EncodingUTF8 = "utf8"
	EncodingSJIS = "sjis"
)

// ErrMissingInput は入力ファイルが必要なモードで指定されなかった場合に返される
var ErrMissingInput = errors.New("input file is required")

// Config はコマンドライン引数から解析された設定を保持する
type Config struct {
	InputPath     string        // 入力ファイル（SMFまたはMML）
	OutputPath    string        // convertモードの出力先
	Mode          string        // dump, play, convert, ports
	MML           bool          // 入力をMMLとして扱う
	SoundFont     string        // SF2ファイルのパス
	Port          string        // 出力MIDIポート（番号または名前）
	InputPort     string        // 入力MIDIポート（番号または名前）
	Encoding      string        // テキストメタイベントの文字コード
	TicksPerBeat  int           // MMLの分解能
	RunningStatus bool          // convertでランニングステータスを使う
	Timeout       time.Duration // タイムアウト時間（0は無制限）
	LogLevel      string        // ログレベル（debug, info, warn, error）
	Headless      bool          // ヘッドレスモード（音声出力なし）
	ShowHelp      bool          // ヘルプ表示フラグ
}

// boolFlags は値を取らないフラグ
var boolFlags = map[string]bool{
	"-h": true, "--h": true, "-help": true, "--help": true,
	"-headless": true, "--headless": true,
	"-mml": true, "--mml": true,
	"-running-status": true, "--running-status": true,
}

// ParseArgs コマンドライン引数を解析してConfigを返す
func ParseArgs(args []string) (*Config, error) {
	// 引数を並べ替え：フラグを前に、位置引数を後ろに
	reorderedArgs := reorderArgs(args)

	fs := flag.NewFlagSet("smfplay", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	config := &Config{}

	var timeoutSec int
	fs.StringVar(&config.Mode, "mode", ModePlay, "動作モード（dump, play, convert, ports）")
	fs.StringVar(&config.Mode, "m", ModePlay, "動作モード（短縮形）")
	fs.StringVar(&config.OutputPath, "out", "", "convertモードの出力ファイル")
	fs.StringVar(&config.OutputPath, "o", "", "出力ファイル（短縮形）")
	fs.BoolVar(&config.MML, "mml", false, "入力をMMLとして扱う")
	fs.StringVar(&config.SoundFont, "soundfont", "", "SoundFontファイル")
	fs.StringVar(&config.Port, "port", "", "出力MIDIポート")
	fs.StringVar(&config.InputPort, "in-port", "", "入力MIDIポート")
	fs.StringVar(&config.Encoding, "encoding", EncodingUTF8, "テキストの文字コード（utf8, sjis）")
	fs.IntVar(&config.TicksPerBeat, "tpb", 240, "MMLの四分音符あたりのティック数")
	fs.BoolVar(&config.RunningStatus, "running-status", false, "ランニングステータスで書き出す")
	fs.IntVar(&timeoutSec, "timeout", 0, "タイムアウト時間（秒）")
	fs.IntVar(&timeoutSec, "t", 0, "タイムアウト時間（秒）（短縮形）")
	fs.StringVar(&config.LogLevel, "log-level", "info", "ログレベル（debug, info, warn, error）")
	fs.StringVar(&config.LogLevel, "l", "info", "ログレベル（短縮形）")
	fs.BoolVar(&config.Headless, "headless", false, "ヘッドレスモード")
	fs.BoolVar(&config.ShowHelp, "help", false, "ヘルプを表示")
	fs.BoolVar(&config.ShowHelp, "h", false, "ヘルプを表示（短縮形）")

	if err := fs.Parse(reorderedArgs); err != nil {
		return nil, err
	}
	if config.ShowHelp {
		return config, nil
	}

	// 環境変数からの設定（コマンドラインフラグが優先）
	if !config.Headless {
		if headlessEnv := os.Getenv("HEADLESS"); headlessEnv != "" {
			config.Headless = headlessEnv == "1" || strings.ToLower(headlessEnv) == "true"
		}
	}

	if timeoutSec == 0 {
		if timeoutEnv := os.Getenv("TIMEOUT"); timeoutEnv != "" {
			if t, err := strconv.Atoi(timeoutEnv); err == nil && t > 0 {
				timeoutSec = t
			}
		}
	}

	if config.LogLevel == "info" {
		if logLevelEnv := os.Getenv("LOG_LEVEL"); logLevelEnv != "" {
			config.LogLevel = strings.ToLower(logLevelEnv)
		}
	}

	if config.SoundFont == "" {
		config.SoundFont = os.Getenv("SMFPLAY_SOUNDFONT")
	}

	// タイムアウトの検証
	if timeoutSec < 0 {
		return nil, fmt.Errorf("timeout must be non-negative, got %d", timeoutSec)
	}
	config.Timeout = time.Duration(timeoutSec) * time.Second

	// ログレベルの検証
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[config.LogLevel] {
		return nil, fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", config.LogLevel)
	}

	config.Mode = strings.ToLower(config.Mode)
	switch config.Mode {
	case ModeDump, ModePlay, ModeConvert, ModePorts:
	default:
		return nil, fmt.Errorf("invalid mode: %s (must be dump, play, convert, or ports)", config.Mode)
	}

	config.Encoding = strings.ToLower(strings.ReplaceAll(config.Encoding, "-", ""))
	switch config.Encoding {
	case EncodingUTF8:
	case EncodingSJIS, "shiftjis":
		config.Encoding = EncodingSJIS
	default:
		return nil, fmt.Errorf("invalid encoding: %s (must be utf8 or sjis)", config.Encoding)
	}

	if config.TicksPerBeat <= 0 {
		return nil, fmt.Errorf("ticks per beat must be positive, got %d", config.TicksPerBeat)
	}

	// 位置引数（入力ファイル）
	if fs.NArg() > 0 {
		config.InputPath = fs.Arg(0)
		// 拡張子が.mmlならMMLとして扱う
		if strings.HasSuffix(strings.ToLower(config.InputPath), ".mml") {
			config.MML = true
		}
	}

	if config.Mode != ModePorts && config.InputPath == "" {
		return nil, fmt.Errorf("%w for %s mode", ErrMissingInput, config.Mode)
	}
	if config.Mode == ModeConvert && config.OutputPath == "" {
		return nil, fmt.Errorf("convert mode requires --out")
	}

	return config, nil
}

// reorderArgs 引数を並べ替えて、フラグを前に、位置引数を後ろに配置する
func reorderArgs(args []string) []string {
	var flags []string
	var positional []string

	for i := 0; i < len(args); i++ {
		arg := args[i]

		if len(arg) > 0 && arg[0] == '-' {
			flags = append(flags, arg)

			// -t 5 のように次の引数が値である場合は一緒に移動する
			// （--mode=dump の形式は値を含んでいる）
			if !strings.Contains(arg, "=") && !boolFlags[arg] &&
				i+1 < len(args) && len(args[i+1]) > 0 && args[i+1][0] != '-' {
				i++
				flags = append(flags, args[i])
			}
		} else {
			positional = append(positional, arg)
		}
	}

	return append(flags, positional...)
}

// PrintHelp ヘルプメッセージを表示
func PrintHelp(w io.Writer) {
	fmt.Fprintf(w, `smfplay - Standard MIDI File / MML player

Usage:
  smfplay [options] <file>

Arguments:
  file          SMFファイル（.mid）またはMMLファイル（.mml）
                "data:audio/midi;base64," で始まるファイルも読み込み可能

Options:
  -m, --mode <mode>           dump: イベント一覧を表示
                              play: 再生（デフォルト）
                              convert: SMFとして書き出す
                              ports: MIDIポート一覧を表示
  -o, --out <file>            convertモードの出力ファイル
  --mml                       入力をMMLとして扱う（.mmlは自動判定）
  --tpb <ticks>               MMLの四分音符あたりのティック数（デフォルト: 240）
  --running-status            convertでランニングステータスを使う
  --soundfont <file>          ソフトウェアシンセで使うSF2ファイル
  --port <name|number>        MIDI出力ポートへ送信
  --in-port <name|number>     MIDI入力ポートの受信内容をログに出す
  --encoding <enc>            テキストの文字コード: utf8, sjis（デフォルト: utf8）
  -t, --timeout <seconds>     指定秒数後に終了（デフォルト: 無制限）
  -l, --log-level <level>     ログレベル: debug, info, warn, error（デフォルト: info）
  --headless                  音声を出さずにイベントをログに出す
  -h, --help                  このヘルプを表示

Environment Variables:
  HEADLESS=1                  ヘッドレスモードを有効化
  TIMEOUT=<seconds>           タイムアウト時間（秒）
  LOG_LEVEL=<level>           ログレベル
  SMFPLAY_SOUNDFONT=<file>    SoundFontファイル

Examples:
  smfplay song.mid --soundfont GeneralUser-GS.sf2
  smfplay -m dump --encoding sjis song.mid
  smfplay -m convert tune.mml -o tune.mid
  smfplay --port "USB Synth" song.mid
  smfplay -m ports
`)
}
