package msg

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"sync"

	"golang.org/x/text/encoding"

	"github.com/zurustar/intvm/pkg/fileutil"
	"github.com/zurustar/intvm/pkg/logger"
)

// ErrNoList is returned for message list numbers that are not registered.
var ErrNoList = errors.New("msg: no such message list")

// Catalog maps message list numbers to files and loads each file on first
// use. A list that fails to load is remembered as empty.
type Catalog struct {
	fsys fs.FS
	dir  string
	enc  encoding.Encoding
	log  *slog.Logger

	mu    sync.Mutex
	files map[int32]string
	lists map[int32]*List
}

// Option configures a Catalog.
type Option func(*Catalog)

// WithLogger sets the logger.
func WithLogger(log *slog.Logger) Option {
	return func(c *Catalog) {
		c.log = log
	}
}

// WithEncoding sets the code page of the message files.
func WithEncoding(enc encoding.Encoding) Option {
	return func(c *Catalog) {
		c.enc = enc
	}
}

// WithFiles registers message list files by number.
func WithFiles(files map[int32]string) Option {
	return func(c *Catalog) {
		for n, name := range files {
			c.files[n] = name
		}
	}
}

// NewCatalog creates a catalog reading message files from dir in fsys.
func NewCatalog(fsys fs.FS, dir string, opts ...Option) *Catalog {
	c := &Catalog{
		fsys:  fsys,
		dir:   dir,
		files: make(map[int32]string),
		lists: make(map[int32]*List),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.log == nil {
		c.log = logger.For("MESSAGES")
	}
	if c.enc == nil {
		c.enc, _ = fileutil.Encoding(fileutil.DefaultEncoding)
	}
	return c
}

// Register maps message list number file to a file name.
func (c *Catalog) Register(file int32, name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.files[file] = name
	delete(c.lists, file)
}

// Add installs an already parsed list under number file.
func (c *Catalog) Add(file int32, l *List) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lists[file] = l
}

// Load returns list file, reading it on first use.
func (c *Catalog) Load(file int32) (*List, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if l, ok := c.lists[file]; ok {
		return l, nil
	}

	name, ok := c.files[file]
	if !ok {
		return nil, fmt.Errorf("message list %d: %w", file, ErrNoList)
	}
	l, err := c.read(name)
	if err != nil {
		c.lists[file] = &List{entries: map[int32]Entry{}}
		return nil, fmt.Errorf("message list %d (%s): %w", file, name, err)
	}
	c.lists[file] = l
	c.log.Debug("Message list loaded", "file", name, "messages", l.Len())
	return l, nil
}

func (c *Catalog) read(name string) (*List, error) {
	dir, base := path.Split(path.Join(c.dir, name))
	found, err := fileutil.FindFileFS(c.fsys, path.Clean(dir), base)
	if err != nil {
		return nil, err
	}
	text, err := fileutil.ReadTextFS(c.fsys, found, c.enc)
	if err != nil {
		return nil, err
	}
	return Parse(text)
}

// Lookup returns the text of message num in list file.
func (c *Catalog) Lookup(file, num int32) (string, bool) {
	l, err := c.Load(file)
	if err != nil {
		c.log.Warn("Message list unavailable", "list", file, "error", err)
		return "", false
	}
	text, ok := l.Text(num)
	if !ok {
		c.log.Debug("Message not found", "list", file, "num", num)
	}
	return text, ok
}
