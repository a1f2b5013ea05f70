package intfile

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"strings"
	"sync"

	"golang.org/x/text/encoding"

	"github.com/zurustar/intvm/pkg/asm"
	"github.com/zurustar/intvm/pkg/fileutil"
	"github.com/zurustar/intvm/pkg/logger"
	"github.com/zurustar/intvm/pkg/vm"
)

// ErrNoScript is returned when a script cannot be found.
var ErrNoScript = errors.New("intfile: no such script")

// Library loads each program once and hands the same immutable *vm.Program
// to every script instance using it. A script named "door" is read from
// door.int, or assembled from door.asm when no image exists.
type Library struct {
	fsys fs.FS
	dir  string
	enc  encoding.Encoding
	log  *slog.Logger

	mu       sync.Mutex
	programs map[string]*vm.Program
	scripts  []string
}

// Option configures a Library.
type Option func(*Library)

// WithLogger sets the logger.
func WithLogger(log *slog.Logger) Option {
	return func(l *Library) {
		l.log = log
	}
}

// WithEncoding sets the encoding of assembly sources.
func WithEncoding(enc encoding.Encoding) Option {
	return func(l *Library) {
		l.enc = enc
	}
}

// WithScripts sets the script list used by ByID.
func WithScripts(names []string) Option {
	return func(l *Library) {
		l.scripts = normalize(names)
	}
}

// NewLibrary creates a library reading from dir inside fsys.
func NewLibrary(fsys fs.FS, dir string, opts ...Option) *Library {
	l := &Library{
		fsys:     fsys,
		dir:      dir,
		programs: make(map[string]*vm.Program),
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.log == nil {
		l.log = logger.For("SCRIPT")
	}
	if l.enc == nil {
		l.enc, _ = fileutil.Encoding(fileutil.DefaultEncoding)
	}
	return l
}

// Add registers an already built program under its name.
func (l *Library) Add(p *vm.Program) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.programs[strings.ToLower(p.Name)] = p
}

// Len returns the number of loaded programs.
func (l *Library) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.programs)
}

// ByName returns the program for a script name such as "door" or "DOOR.INT".
func (l *Library) ByName(name string) (*vm.Program, error) {
	key := scriptKey(name)
	if key == "" {
		return nil, fmt.Errorf("load script %q: %w", name, ErrNoScript)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if p, ok := l.programs[key]; ok {
		return p, nil
	}

	p, err := l.load(key)
	if err != nil {
		return nil, fmt.Errorf("load script %s: %w", key, err)
	}
	l.programs[key] = p
	l.log.Debug("Script loaded", "script", key, "procedures", len(p.Procedures), "instructions", len(p.Code))
	return p, nil
}

// ByID returns the program at index sid of the script list.
func (l *Library) ByID(sid int32) (*vm.Program, error) {
	l.mu.Lock()
	n := len(l.scripts)
	var name string
	if sid >= 0 && int(sid) < n {
		name = l.scripts[sid]
	}
	l.mu.Unlock()

	if name == "" {
		return nil, fmt.Errorf("script id %d (of %d): %w", sid, n, ErrNoScript)
	}
	return l.ByName(name)
}

// LoadList reads a script list, one script file per line. Text after ; or #
// is ignored, as are blank lines.
func (l *Library) LoadList(file string) error {
	f, err := l.fsys.Open(file)
	if err != nil {
		return fmt.Errorf("failed to open script list: %w", err)
	}
	defer f.Close()

	var names []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := sc.Text()
		if i := strings.IndexAny(line, ";#"); i >= 0 {
			line = line[:i]
		}
		if fields := strings.Fields(line); len(fields) > 0 {
			names = append(names, fields[0])
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("failed to read script list: %w", err)
	}

	l.mu.Lock()
	l.scripts = normalize(names)
	l.mu.Unlock()
	return nil
}

func (l *Library) load(key string) (*vm.Program, error) {
	if file, err := fileutil.FindFileFS(l.fsys, l.dir, key+".int"); err == nil {
		return ReadFS(l.fsys, file)
	}
	file, err := fileutil.FindFileFS(l.fsys, l.dir, key+".asm")
	if err != nil {
		return nil, ErrNoScript
	}
	return asm.AssembleFS(l.fsys, file, l.enc)
}

func scriptKey(name string) string {
	base := strings.ToLower(path.Base(strings.TrimSpace(name)))
	if base == "." || base == "/" {
		return ""
	}
	return strings.TrimSuffix(strings.TrimSuffix(base, ".int"), ".asm")
}

func normalize(names []string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = scriptKey(n)
	}
	return out
}
