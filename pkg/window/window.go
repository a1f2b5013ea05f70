// Package window はエンジンをEbitengineのウィンドウで実行する
package window

import (
	"context"
	"errors"
	"fmt"
	"image/color"
	"strconv"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/text/v2"
	"golang.org/x/image/font/basicfont"

	"github.com/zurustar/intvm/pkg/engine"
	"github.com/zurustar/intvm/pkg/entity"
	"github.com/zurustar/intvm/pkg/event"
	"github.com/zurustar/intvm/pkg/logger"
	"github.com/zurustar/intvm/pkg/vm"
	"github.com/zurustar/intvm/pkg/world"
)

// 画面サイズ
const (
	ScreenWidth  = 1024
	ScreenHeight = 768
)

// 画面レイアウト（ピクセル）
const (
	margin     = 20
	lineHeight = 16
	listTop    = 50
	listWidth  = 560
	floatLeft  = listWidth + margin
	logLines   = 12
	logTop     = ScreenHeight - margin - logLines*lineHeight
	dialogTop  = 360
)

var (
	// 背景色 #0087C8
	backgroundColor = color.RGBA{0x00, 0x87, 0xC8, 0xFF}
	// テキスト色（白）
	textColor = color.White
	// 選択中のテキスト色（黄色）
	selectedTextColor = color.RGBA{0xFF, 0xFF, 0x00, 0xFF}
	// ダイアログの文字色
	dialogColor = color.RGBA{0x7F, 0xFF, 0x7F, 0xFF}
	// デフォルトフォント
	defaultFace = text.NewGoXFace(basicfont.Face7x13)
)

var kindNames = map[vm.ObjectType]string{
	vm.TypeItem:    "item",
	vm.TypeCritter: "critter",
	vm.TypeScenery: "scenery",
	vm.TypeWall:    "wall",
	vm.TypeTile:    "tile",
	vm.TypeMisc:    "misc",
}

// Host はウィンドウが操作するエンジン
type Host interface {
	Update(ctx context.Context) error
	Input(ctx context.Context, ev event.Event, target entity.Handle)
	World() *world.World
	IsTerminated() bool
}

var _ Host = (*engine.Engine)(nil)

// Game はEbitengineのゲームインターフェースを実装する
type Game struct {
	ctx    context.Context
	host   Host
	title  string
	cursor int // 選択中のオブジェクト行

	// 最後に描画したオブジェクト一覧（クリック判定に使う）
	rows []world.View
}

// NewGame Gameを作成
func NewGame(ctx context.Context, host Host, title string) *Game {
	return &Game{ctx: ctx, host: host, title: title}
}

// Update ゲームロジックの更新（Ebitengineが毎フレーム呼び出す）
func (g *Game) Update() error {
	g.rows = g.host.World().Objects()
	g.cursor = min(g.cursor, max(len(g.rows)-1, 0))

	g.processMouseEvents()
	g.processKeyboardEvents()

	if err := g.host.Update(g.ctx); err != nil {
		if errors.Is(err, engine.ErrTerminated) {
			return ebiten.Termination
		}
		return err
	}
	return nil
}

// processMouseEvents はマウスのボタン押下をクリックされた行のオブジェクトへのイベントにする
func (g *Game) processMouseEvents() {
	x, y := ebiten.CursorPosition()
	buttons := []struct {
		ebiten ebiten.MouseButton
		button event.MouseButton
	}{
		{ebiten.MouseButtonLeft, event.ButtonLeft},
		{ebiten.MouseButtonRight, event.ButtonRight},
		{ebiten.MouseButtonMiddle, event.ButtonMiddle},
	}
	for _, b := range buttons {
		if inpututil.IsMouseButtonJustPressed(b.ebiten) {
			g.click(event.TypeMouseDown, b.button, x, y)
		}
		if inpututil.IsMouseButtonJustReleased(b.ebiten) {
			g.click(event.TypeMouseUp, b.button, x, y)
		}
	}
}

// click はマウスイベントを座標の行のオブジェクトに送る
func (g *Game) click(kind event.Type, button event.MouseButton, x, y int) {
	row, ok := rowAt(x, y, len(g.rows))
	if !ok {
		return
	}
	if kind == event.TypeMouseDown {
		g.cursor = row
	}
	g.host.Input(g.ctx, event.NewMouse(kind, button, x, y), g.rows[row].Handle)
}

// keys はエンジンに送るキー
var keys = []struct {
	key  ebiten.Key
	name string
}{
	{ebiten.KeyEscape, engine.KeyEscape},
	{ebiten.KeyDigit1, "1"}, {ebiten.KeyDigit2, "2"}, {ebiten.KeyDigit3, "3"},
	{ebiten.KeyDigit4, "4"}, {ebiten.KeyDigit5, "5"}, {ebiten.KeyDigit6, "6"},
	{ebiten.KeyDigit7, "7"}, {ebiten.KeyDigit8, "8"}, {ebiten.KeyDigit9, "9"},
	{ebiten.KeyUp, "ArrowUp"}, {ebiten.KeyDown, "ArrowDown"},
	{ebiten.KeyEnter, "Enter"}, {ebiten.KeyL, "l"},
}

// processKeyboardEvents はキーボードイベントを処理する
func (g *Game) processKeyboardEvents() {
	for _, k := range keys {
		if inpututil.IsKeyJustPressed(k.key) {
			g.press(k.name)
		}
	}
}

// press はキー入力を処理する
// 上下キーはカーソル移動、Enterは選択中のオブジェクトを左クリック、Lは右クリックと同じ
// それ以外はエンジンに送る
func (g *Game) press(key string) {
	switch key {
	case "ArrowUp":
		g.cursor = max(g.cursor-1, 0)
	case "ArrowDown":
		g.cursor = min(g.cursor+1, max(len(g.rows)-1, 0))
	case "Enter", "l":
		if g.cursor >= len(g.rows) {
			return
		}
		target := g.rows[g.cursor].Handle
		button := event.ButtonLeft
		if key == "l" {
			button = event.ButtonRight
		}
		g.host.Input(g.ctx, event.NewMouse(event.TypeMouseDown, button, 0, 0), target)
	default:
		g.host.Input(g.ctx, event.NewKeyboard(key, true), entity.Handle{})
	}
}

// rowAt は座標にあるオブジェクト行を返す
func rowAt(x, y, rows int) (int, bool) {
	if x < margin || x >= listWidth || y < listTop {
		return 0, false
	}
	row := (y - listTop) / lineHeight
	if row >= rows {
		return 0, false
	}
	return row, true
}

// describe はオブジェクト一覧の1行を作る
func describe(v world.View) string {
	s := fmt.Sprintf("%-24s %-8s tile %5d", v.Name, kindNames[v.Type], v.Tile)
	if v.Elevation != 0 {
		s += " elev " + strconv.Itoa(int(v.Elevation))
	}
	switch {
	case v.Locked:
		s += " [locked]"
	case v.Open:
		s += " [open]"
	}
	if v.Scripted {
		s += " *"
	}
	return s
}

// dialogLines は会話ウィンドウの行を作る
func dialogLines(speaker string, d world.DialogState) []string {
	if !d.Active {
		return nil
	}
	lines := []string{speaker + ":"}
	lines = append(lines, world.Wrap(d.Reply, ScreenWidth-2*margin)...)
	for i, opt := range d.Options {
		lines = append(lines, fmt.Sprintf("%d. %s", i+1, opt.Text))
	}
	return lines
}

// Draw 画面描画（Ebitengineが毎フレーム呼び出す）
func (g *Game) Draw(screen *ebiten.Image) {
	screen.Fill(backgroundColor)
	w := g.host.World()

	drawText(screen, g.title, margin, margin, textColor)

	floats := w.Floats()
	names := make(map[entity.Handle]string, len(g.rows))
	for i, v := range g.rows {
		names[v.Handle] = v.Name
		y := listTop + i*lineHeight
		c := color.Color(textColor)
		prefix := "  "
		if i == g.cursor {
			c, prefix = selectedTextColor, "> "
		}
		drawText(screen, prefix+describe(v), margin, y, c)
		if f, ok := floats[v.Handle]; ok {
			for j, line := range f.Lines {
				drawText(screen, line, floatLeft, y+j*lineHeight, f.Color)
			}
		}
	}

	d := w.Dialog()
	for i, line := range dialogLines(names[d.Speaker], d) {
		drawText(screen, line, margin, dialogTop+i*lineHeight, dialogColor)
	}

	msgs := w.Messages()
	msgs = msgs[max(len(msgs)-logLines, 0):]
	for i, line := range msgs {
		drawText(screen, line, margin, logTop+i*lineHeight, textColor)
	}
}

func drawText(screen *ebiten.Image, s string, x, y int, c color.Color) {
	op := &text.DrawOptions{}
	op.GeoM.Translate(float64(x), float64(y))
	op.ColorScale.ScaleWithColor(c)
	text.Draw(screen, s, defaultFace, op)
}

// Layout 画面サイズを返す
func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	return ScreenWidth, ScreenHeight
}

// Run GUIモードでウィンドウを実行
func Run(ctx context.Context, host Host, title string) error {
	game := NewGame(ctx, host, title)

	ebiten.SetWindowSize(ScreenWidth, ScreenHeight)
	ebiten.SetWindowTitle("intvm - " + title)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)

	if err := ebiten.RunGame(game); err != nil {
		return fmt.Errorf("failed to run game: %w", err)
	}
	logger.For("WINDOW").Info("Window closed", "terminated", host.IsTerminated())
	return nil
}
