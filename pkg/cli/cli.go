package cli

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/zurustar/intvm/pkg/logger"
)

// Config はコマンドライン引数から解析された設定を保持する
type Config struct {
	MapPath    string        // マップファイル（TOML）のパス
	ConfigPath string        // 設定ファイル（intvm.toml）のパス（空なら既定値）
	Timeout    time.Duration // タイムアウト時間（0は無制限）
	LogLevel   string        // ログレベル（空なら設定ファイルの値）
	Headless   bool          // ヘッドレスモード
	Ticks      int           // ヘッドレスモードで実行するティック数（0は無制限）
	Trace      bool          // オペコードトレースを出力する
	Disasm     string        // 逆アセンブルして終了するスクリプト
	ShowHelp   bool          // ヘルプ表示フラグ
}

// boolFlags は値を取らないフラグ
var boolFlags = map[string]bool{
	"-h": true, "-help": true, "--help": true,
	"-headless": true, "--headless": true,
	"-trace": true, "--trace": true,
}

// ParseArgs コマンドライン引数を解析してConfigを返す
// コマンドラインフラグは環境変数より優先される
func ParseArgs(args []string) (*Config, error) {
	// 引数を並べ替え：フラグを前に、位置引数を後ろに
	reorderedArgs := reorderArgs(args)

	fs := flag.NewFlagSet("intvm", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	config := &Config{}

	var timeoutSec int
	fs.StringVar(&config.ConfigPath, "config", "", "設定ファイルのパス")
	fs.StringVar(&config.ConfigPath, "c", "", "設定ファイルのパス（短縮形）")
	fs.IntVar(&timeoutSec, "timeout", 0, "タイムアウト時間（秒）")
	fs.IntVar(&timeoutSec, "t", 0, "タイムアウト時間（秒）（短縮形）")
	fs.StringVar(&config.LogLevel, "log-level", "", "ログレベル（debug, info, warn, error）")
	fs.StringVar(&config.LogLevel, "l", "", "ログレベル（短縮形）")
	fs.BoolVar(&config.Headless, "headless", false, "ヘッドレスモード")
	fs.IntVar(&config.Ticks, "ticks", 0, "ヘッドレスモードで実行するティック数")
	fs.IntVar(&config.Ticks, "n", 0, "ヘッドレスモードで実行するティック数（短縮形）")
	fs.BoolVar(&config.Trace, "trace", false, "オペコードトレースを出力")
	fs.StringVar(&config.Disasm, "disasm", "", "スクリプトを逆アセンブルして終了")
	fs.BoolVar(&config.ShowHelp, "help", false, "ヘルプを表示")
	fs.BoolVar(&config.ShowHelp, "h", false, "ヘルプを表示（短縮形）")

	if err := fs.Parse(reorderedArgs); err != nil {
		return nil, err
	}

	// 環境変数からの設定（コマンドラインフラグが優先）
	if !config.Headless {
		if headlessEnv := os.Getenv("HEADLESS"); headlessEnv != "" {
			config.Headless = headlessEnv == "1" || strings.ToLower(headlessEnv) == "true"
		}
	}

	// 環境変数からタイムアウトを取得
	if timeoutSec == 0 {
		if timeoutEnv := os.Getenv("TIMEOUT"); timeoutEnv != "" {
			if t, err := strconv.Atoi(timeoutEnv); err == nil && t > 0 {
				timeoutSec = t
			}
		}
	}

	// 環境変数からログレベルを取得
	if config.LogLevel == "" {
		config.LogLevel = strings.ToLower(os.Getenv("LOG_LEVEL"))
	}

	// 環境変数から設定ファイルのパスを取得
	if config.ConfigPath == "" {
		config.ConfigPath = os.Getenv("INTVM_CONFIG")
	}

	// タイムアウトの検証
	if timeoutSec < 0 {
		return nil, fmt.Errorf("timeout must be non-negative, got %d", timeoutSec)
	}
	config.Timeout = time.Duration(timeoutSec) * time.Second

	if config.Ticks < 0 {
		return nil, fmt.Errorf("ticks must be non-negative, got %d", config.Ticks)
	}

	// ログレベルの検証
	if config.LogLevel != "" {
		if _, err := logger.ParseLevel(config.LogLevel); err != nil {
			return nil, fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", config.LogLevel)
		}
	}

	// 位置引数（マップファイルのパス）
	if fs.NArg() > 1 {
		return nil, fmt.Errorf("too many arguments: %v", fs.Args())
	}
	if fs.NArg() == 1 {
		config.MapPath = fs.Arg(0)
	}
	if config.MapPath == "" && config.Disasm == "" && !config.ShowHelp {
		return nil, fmt.Errorf("no map file given")
	}

	return config, nil
}

// reorderArgs 引数を並べ替えて、フラグを前に、位置引数を後ろに配置する
func reorderArgs(args []string) []string {
	var flags []string
	var positional []string

	for i := 0; i < len(args); i++ {
		arg := args[i]

		// フラグかどうかを判定（-または--で始まる）
		if len(arg) > 0 && arg[0] == '-' {
			flags = append(flags, arg)

			// 次の引数が値である可能性をチェック
			// （-t 5 のような場合）
			if i+1 < len(args) && len(args[i+1]) > 0 && args[i+1][0] != '-' {
				// ブール型フラグと -t=5 形式でない場合は次の引数も追加
				if !boolFlags[arg] && !strings.Contains(arg, "=") {
					i++
					flags = append(flags, args[i])
				}
			}
		} else {
			// 位置引数
			positional = append(positional, arg)
		}
	}

	// フラグを前に、位置引数を後ろに配置
	return append(flags, positional...)
}

// PrintHelp ヘルプメッセージを表示
func PrintHelp(w io.Writer) {
	fmt.Fprintf(w, `intvm - script VM host

Usage:
  intvm [options] <map.toml>
  intvm --disasm <script>

Arguments:
  map.toml      実行するマップファイル（オブジェクトとスクリプトの配置）

Options:
  -c, --config <file>         設定ファイル（デフォルト: 組み込みの既定値）
  -t, --timeout <seconds>     指定秒数後にプログラムを終了（デフォルト: 無制限）
  -l, --log-level <level>     ログレベル: debug, info, warn, error（デフォルト: 設定ファイルの値）
  --headless                  ヘッドレスモード（GUIなし、音声なし）
  -n, --ticks <count>         ヘッドレスモードで指定ティック数だけ実行
  --trace                     実行したオペコードをdebugログに出力
  --disasm <script>           スクリプトを逆アセンブルして終了
  -h, --help                  このヘルプを表示

Environment Variables:
  HEADLESS=1                  ヘッドレスモードを有効化
  TIMEOUT=<seconds>           タイムアウト時間（秒）
  LOG_LEVEL=<level>           ログレベル
  INTVM_CONFIG=<file>         設定ファイル

Examples:
  intvm maps/arroyo.toml                      ウィンドウで実行
  intvm --headless -n 600 maps/arroyo.toml    600ティック（1分）だけヘッドレスで実行
  intvm -c game/intvm.toml --disasm door      door スクリプトを逆アセンブル
  HEADLESS=1 intvm maps/arroyo.toml           環境変数でヘッドレスモード
`)
}
