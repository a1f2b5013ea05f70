package cli

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

// clearEnv は環境変数の影響を受けないようにする
func clearEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{"HEADLESS", "TIMEOUT", "LOG_LEVEL", "INTVM_CONFIG"} {
		t.Setenv(name, "")
	}
}

func TestParseArgs_ValidArgs(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected Config
	}{
		{
			name:     "マップ指定",
			args:     []string{"maps/arroyo.toml"},
			expected: Config{MapPath: "maps/arroyo.toml"},
		},
		{
			name:     "設定ファイル指定",
			args:     []string{"--config", "game/intvm.toml", "maps/arroyo.toml"},
			expected: Config{MapPath: "maps/arroyo.toml", ConfigPath: "game/intvm.toml"},
		},
		{
			name:     "設定ファイル指定（短縮形）",
			args:     []string{"-c", "intvm.toml", "a.toml"},
			expected: Config{MapPath: "a.toml", ConfigPath: "intvm.toml"},
		},
		{
			name:     "タイムアウト指定",
			args:     []string{"--timeout", "10", "a.toml"},
			expected: Config{MapPath: "a.toml", Timeout: 10 * time.Second},
		},
		{
			name:     "タイムアウト指定（短縮形）",
			args:     []string{"-t", "5", "a.toml"},
			expected: Config{MapPath: "a.toml", Timeout: 5 * time.Second},
		},
		{
			name:     "ログレベル指定",
			args:     []string{"--log-level", "debug", "a.toml"},
			expected: Config{MapPath: "a.toml", LogLevel: "debug"},
		},
		{
			name:     "ログレベル指定（短縮形）",
			args:     []string{"-l", "error", "a.toml"},
			expected: Config{MapPath: "a.toml", LogLevel: "error"},
		},
		{
			name:     "ヘッドレスモードとティック数",
			args:     []string{"--headless", "-n", "600", "a.toml"},
			expected: Config{MapPath: "a.toml", Headless: true, Ticks: 600},
		},
		{
			name:     "トレース",
			args:     []string{"a.toml", "--trace"},
			expected: Config{MapPath: "a.toml", Trace: true},
		},
		{
			name:     "逆アセンブル（マップ不要）",
			args:     []string{"--disasm", "door"},
			expected: Config{Disasm: "door"},
		},
		{
			name:     "ヘルプ表示（マップ不要）",
			args:     []string{"-h"},
			expected: Config{ShowHelp: true},
		},
		{
			name: "位置引数の後にフラグ（順序に関係なく動作）",
			args: []string{"maps/arroyo.toml", "--timeout", "30", "--headless", "-log-level", "warn"},
			expected: Config{
				MapPath:  "maps/arroyo.toml",
				Timeout:  30 * time.Second,
				LogLevel: "warn",
				Headless: true,
			},
		},
		{
			name:     "=形式の値",
			args:     []string{"--ticks=3", "a.toml"},
			expected: Config{MapPath: "a.toml", Ticks: 3},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			config, err := ParseArgs(tt.args)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if *config != tt.expected {
				t.Errorf("ParseArgs(%q) = %+v, want %+v", tt.args, *config, tt.expected)
			}
		})
	}
}

func TestParseArgs_Environment(t *testing.T) {
	tests := []struct {
		name     string
		env      map[string]string
		args     []string
		expected Config
	}{
		{
			name:     "環境変数で設定",
			env:      map[string]string{"HEADLESS": "true", "TIMEOUT": "7", "LOG_LEVEL": "DEBUG", "INTVM_CONFIG": "env.toml"},
			args:     []string{"a.toml"},
			expected: Config{MapPath: "a.toml", Headless: true, Timeout: 7 * time.Second, LogLevel: "debug", ConfigPath: "env.toml"},
		},
		{
			name:     "コマンドラインフラグが優先",
			env:      map[string]string{"TIMEOUT": "7", "LOG_LEVEL": "debug", "INTVM_CONFIG": "env.toml"},
			args:     []string{"-t", "2", "-l", "warn", "-c", "flag.toml", "a.toml"},
			expected: Config{MapPath: "a.toml", Timeout: 2 * time.Second, LogLevel: "warn", ConfigPath: "flag.toml"},
		},
		{
			name:     "不正なタイムアウトは無視",
			env:      map[string]string{"TIMEOUT": "soon", "HEADLESS": "0"},
			args:     []string{"a.toml"},
			expected: Config{MapPath: "a.toml"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			config, err := ParseArgs(tt.args)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if *config != tt.expected {
				t.Errorf("ParseArgs = %+v, want %+v", *config, tt.expected)
			}
		})
	}
}

func TestParseArgs_InvalidArgs(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{
			name: "負のタイムアウト",
			args: []string{"--timeout", "-10", "a.toml"},
		},
		{
			name: "負のティック数",
			args: []string{"--ticks", "-1", "a.toml"},
		},
		{
			name: "無効なログレベル",
			args: []string{"--log-level", "invalid", "a.toml"},
		},
		{
			name: "無効なログレベル（短縮形）",
			args: []string{"-l", "trace", "a.toml"},
		},
		{
			name: "マップなし",
			args: []string{"--headless"},
		},
		{
			name: "位置引数が多すぎる",
			args: []string{"a.toml", "b.toml"},
		},
		{
			name: "未知のフラグ",
			args: []string{"--fullscreen", "a.toml"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			_, err := ParseArgs(tt.args)
			if err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestReorderArgs(t *testing.T) {
	tests := []struct {
		args []string
		want []string
	}{
		{[]string{"a.toml", "-t", "5"}, []string{"-t", "5", "a.toml"}},
		{[]string{"--headless", "a.toml"}, []string{"--headless", "a.toml"}},
		{[]string{"--trace", "a.toml", "-n=3"}, []string{"--trace", "-n=3", "a.toml"}},
	}
	for _, tt := range tests {
		got := reorderArgs(tt.args)
		if strings.Join(got, " ") != strings.Join(tt.want, " ") {
			t.Errorf("reorderArgs(%q) = %q, want %q", tt.args, got, tt.want)
		}
	}
}

func TestPrintHelp(t *testing.T) {
	var buf bytes.Buffer
	PrintHelp(&buf)
	for _, want := range []string{"--config", "--headless", "--ticks", "--disasm", "INTVM_CONFIG"} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("help does not mention %s", want)
		}
	}
}
