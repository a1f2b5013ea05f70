package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/zurustar/intvm/pkg/cli"
	"github.com/zurustar/intvm/pkg/config"
	"github.com/zurustar/intvm/pkg/engine"
	"github.com/zurustar/intvm/pkg/fileutil"
	"github.com/zurustar/intvm/pkg/intfile"
	"github.com/zurustar/intvm/pkg/logger"
	"github.com/zurustar/intvm/pkg/msg"
	"github.com/zurustar/intvm/pkg/sound"
	"github.com/zurustar/intvm/pkg/store"
	"github.com/zurustar/intvm/pkg/window"
)

// Application はアプリケーションのメインロジックを管理する
type Application struct {
	args   *cli.Config
	config *config.Config
	log    *slog.Logger
	stdout io.Writer
	stderr io.Writer

	library *intfile.Library
	player  *sound.Player
	store   *store.Store
}

// New Applicationを作成
func New(stdout, stderr io.Writer) *Application {
	return &Application{stdout: stdout, stderr: stderr}
}

// Run アプリケーションを実行
func (app *Application) Run(ctx context.Context, args []string) error {
	// 1. コマンドライン引数の解析
	if err := app.parseArgs(args); err != nil {
		return fmt.Errorf("failed to parse args: %w", err)
	}

	if app.args.ShowHelp {
		cli.PrintHelp(app.stdout)
		return nil
	}

	// 2. 設定ファイルの読み込み
	if err := app.loadConfig(); err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// 3. ロガーの初期化
	if err := app.initLogger(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	app.log.Info("Application started", "config", app.config.Dir, "map", app.args.MapPath)

	// 4. スクリプトライブラリの準備
	if err := app.openLibrary(); err != nil {
		return fmt.Errorf("failed to open script library: %w", err)
	}

	// 逆アセンブルのみ
	if app.args.Disasm != "" {
		return app.disassemble(app.args.Disasm)
	}

	// 5. エンジンの構築とマップの読み込み
	defer app.close()
	eng, err := app.buildEngine(ctx)
	if err != nil {
		return fmt.Errorf("failed to build engine: %w", err)
	}

	m, err := config.LoadMap(app.args.MapPath)
	if err != nil {
		return fmt.Errorf("failed to load map: %w", err)
	}
	if err := eng.LoadMap(ctx, m); err != nil {
		return fmt.Errorf("failed to start map %s: %w", m.Name, err)
	}

	// 6. 実行
	runErr := app.run(ctx, eng, m.Name)

	// 7. 終了処理（キャンセルされていても変数は保存する）
	if err := eng.Shutdown(context.WithoutCancel(ctx)); err != nil {
		app.log.Error("Shutdown failed", "error", err)
		if runErr == nil {
			runErr = err
		}
	}
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return runErr
	}

	app.log.Info("Application terminated normally", "game_ticks", eng.World().Ticks())
	return nil
}

// parseArgs コマンドライン引数を解析
func (app *Application) parseArgs(args []string) error {
	config, err := cli.ParseArgs(args)
	if err != nil {
		return err
	}
	app.args = config
	return nil
}

// loadConfig 設定ファイルを読み込み、コマンドライン引数で上書きする
func (app *Application) loadConfig() error {
	cfg := config.Default()
	if path := findConfig(app.args.ConfigPath, app.args.MapPath); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return err
		}
		cfg = loaded
	}

	if app.args.LogLevel != "" {
		cfg.Log.Level = app.args.LogLevel
	}
	if app.args.Trace {
		cfg.VM.Trace = true
		cfg.Log.Level = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	app.config = cfg
	return nil
}

// initLogger ロガーを初期化
func (app *Application) initLogger() error {
	if err := logger.InitLoggerTo(app.stderr, app.config.Log.Level, strings.ToLower(app.config.Log.Format)); err != nil {
		return err
	}
	app.log = logger.GetLogger()
	return nil
}

// openLibrary スクリプトディレクトリとスクリプト一覧を開く
func (app *Application) openLibrary() error {
	enc, err := fileutil.Encoding(app.config.Scripts.Encoding)
	if err != nil {
		return err
	}
	dir := app.config.Path(app.config.Scripts.Dir)
	app.library = intfile.NewLibrary(os.DirFS(dir), ".", intfile.WithEncoding(enc))

	if list := app.config.Scripts.List; list != "" {
		err := app.library.LoadList(list)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			app.log.Warn("Script list not found; create_object_sid cannot resolve scripts", "dir", dir, "list", list)
		case err != nil:
			return err
		}
	}
	return nil
}

// disassemble スクリプトのリストを出力
func (app *Application) disassemble(name string) error {
	prog, err := app.library.ByName(name)
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", name, err)
	}
	fmt.Fprintf(app.stdout, "; %s: %d instructions, %d procedures, %d globals\n",
		prog.Name, len(prog.Code), len(prog.Procedures), prog.Globals)
	for _, line := range prog.Listing() {
		fmt.Fprintln(app.stdout, line)
	}
	return nil
}

// buildEngine メッセージ、サウンド、セーブデータを準備してエンジンを作成
func (app *Application) buildEngine(ctx context.Context) (*engine.Engine, error) {
	cfg := app.config

	enc, err := fileutil.Encoding(cfg.Messages.Encoding)
	if err != nil {
		return nil, err
	}
	files, err := cfg.MessageFiles()
	if err != nil {
		return nil, err
	}
	catalog := msg.NewCatalog(os.DirFS(cfg.Path(cfg.Messages.Dir)), ".",
		msg.WithEncoding(enc), msg.WithFiles(files))

	// ヘッドレスモードではオーディオデバイスを使わない
	app.player = sound.New(os.DirFS(cfg.Path(cfg.Sound.Dir)), ".",
		sound.WithHeadless(app.args.Headless), sound.WithMuted(cfg.Sound.Muted))

	opts := []engine.Option{
		engine.WithHeadless(app.args.Headless),
		engine.WithTimeout(app.args.Timeout),
		engine.WithPrograms(app.library),
		engine.WithCatalog(catalog),
		engine.WithSound(app.player),
	}
	if cfg.Save.Path != "" {
		st, err := store.Open(ctx, cfg.Path(cfg.Save.Path))
		if err != nil {
			return nil, err
		}
		app.store = st
		opts = append(opts, engine.WithStore(st))
	}

	return engine.New(cfg, opts...)
}

// run ヘッドレスまたはウィンドウでエンジンを実行
func (app *Application) run(ctx context.Context, eng *engine.Engine, title string) error {
	if app.args.Headless {
		app.log.Info("Headless mode", "ticks", app.args.Ticks, "timeout", app.args.Timeout)
		err := eng.RunHeadless(ctx, app.args.Ticks)
		for _, line := range eng.World().Messages() {
			fmt.Fprintln(app.stdout, line)
		}
		return err
	}

	app.log.Info("Starting window", "title", title)
	eng.Start()
	return window.Run(ctx, eng, title)
}

// close サウンドとセーブデータを閉じる
func (app *Application) close() {
	if app.player != nil {
		app.player.StopAll()
	}
	if app.store != nil {
		if err := app.store.Close(); err != nil {
			app.log.Error("Failed to close save store", "error", err)
		}
	}
}
