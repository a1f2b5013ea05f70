// Package sound plays WAV sound effects requested by scripts.
package sound

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"strings"
	"sync"

	"github.com/hajimehoshi/ebiten/v2/audio"
	"github.com/hajimehoshi/ebiten/v2/audio/wav"

	"github.com/zurustar/intvm/pkg/fileutil"
	"github.com/zurustar/intvm/pkg/logger"
)

// SampleRate is the output sample rate of the shared audio context.
const SampleRate = 44100

var (
	// ErrNotFound is returned when no WAV file matches a sound name.
	ErrNotFound = errors.New("sound: WAV file not found")
	// ErrInvalidFormat is returned for files that do not decode as WAV.
	ErrInvalidFormat = errors.New("sound: invalid WAV file format")
)

var (
	contextOnce  sync.Once
	audioContext *audio.Context
)

// sharedContext returns the process wide audio context. Ebitengine allows
// only one.
func sharedContext() *audio.Context {
	contextOnce.Do(func() {
		audioContext = audio.NewContext(SampleRate)
	})
	return audioContext
}

// Player plays sound effects from a directory of WAV files. Several effects
// may play at once; Ebitengine mixes them. A headless player decodes
// effects but never opens an audio device.
type Player struct {
	fsys     fs.FS
	dir      string
	headless bool
	log      *slog.Logger

	mu      sync.Mutex
	muted   bool
	cache   map[string][]byte
	players []*audio.Player
	played  int
}

// Option configures a Player.
type Option func(*Player)

// WithLogger sets the logger.
func WithLogger(log *slog.Logger) Option {
	return func(p *Player) {
		p.log = log
	}
}

// WithHeadless disables audio output.
func WithHeadless(headless bool) Option {
	return func(p *Player) {
		p.headless = headless
	}
}

// WithMuted starts the player muted.
func WithMuted(muted bool) Option {
	return func(p *Player) {
		p.muted = muted
	}
}

// New creates a player reading effects from dir inside fsys.
func New(fsys fs.FS, dir string, opts ...Option) *Player {
	p := &Player{
		fsys:  fsys,
		dir:   dir,
		cache: make(map[string][]byte),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.log == nil {
		p.log = logger.For("SOUND")
	}
	return p
}

// Play starts the named effect. Failures are logged; scripts continue.
func (p *Player) Play(name string) {
	if err := p.play(name); err != nil {
		p.log.Warn("Sound effect failed", "sound", name, "error", err)
	}
}

func (p *Player) play(name string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.cleanup()

	data, err := p.load(name)
	if err != nil {
		return err
	}
	stream, err := wav.DecodeWithSampleRate(SampleRate, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidFormat, name, err)
	}
	p.played++

	if p.headless {
		p.log.Debug("Sound effect (headless)", "sound", name, "bytes", stream.Length())
		return nil
	}

	player, err := sharedContext().NewPlayer(stream)
	if err != nil {
		return fmt.Errorf("failed to create audio player for %s: %w", name, err)
	}
	if p.muted {
		player.SetVolume(0)
	}
	player.Play()
	p.players = append(p.players, player)
	p.log.Debug("Sound effect started", "sound", name)
	return nil
}

// Preload reads and caches the named effect.
func (p *Player) Preload(name string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, err := p.load(name)
	return err
}

// load returns the file data for name, trying name.wav when name has no
// extension. Must be called with p.mu held.
func (p *Player) load(name string) ([]byte, error) {
	key := strings.ToLower(name)
	if data, ok := p.cache[key]; ok {
		return data, nil
	}

	file := name
	if path.Ext(file) == "" {
		file += ".wav"
	}
	dir, base := path.Split(path.Join(p.dir, file))
	found, err := fileutil.FindFileFS(p.fsys, path.Clean(dir), base)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	data, err := fs.ReadFile(p.fsys, found)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", found, err)
	}
	p.cache[key] = data
	return data, nil
}

// SetMuted mutes or unmutes current and future effects.
func (p *Player) SetMuted(muted bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.muted = muted
	volume := 1.0
	if muted {
		volume = 0
	}
	for _, player := range p.players {
		player.SetVolume(volume)
	}
}

// IsMuted reports whether the player is muted.
func (p *Player) IsMuted() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.muted
}

// Played returns how many effects were decoded and started.
func (p *Player) Played() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.played
}

// Active returns the number of effects still playing.
func (p *Player) Active() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cleanup()
	return len(p.players)
}

// Update releases finished players. Call it from the game loop.
func (p *Player) Update() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cleanup()
}

// StopAll stops every playing effect.
func (p *Player) StopAll() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, player := range p.players {
		player.Close()
	}
	p.players = nil
}

// cleanup closes finished players. Must be called with p.mu held.
func (p *Player) cleanup() {
	active := p.players[:0]
	for _, player := range p.players {
		if player.IsPlaying() {
			active = append(active, player)
		} else {
			player.Close()
		}
	}
	clear(p.players[len(active):])
	p.players = active
}
