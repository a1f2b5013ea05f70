// Package fileutil locates and decodes game data files.
//
// Fallout data files come from case-insensitive file systems and use
// single-byte code pages, so lookups ignore case and text is decoded to
// UTF-8 before parsing.
package fileutil

import (
	"fmt"
	"io"
	"io/fs"
	"path"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// DefaultEncoding is the code page of the stock game data.
const DefaultEncoding = "windows-1252"

// FindFileFS searches dir in fsys for filename, ignoring case.
// It returns the slash-separated path of the match.
//
// Example:
//
//	p, err := FindFileFS(os.DirFS(root), "scripts", "DOOR.INT")
//	// finds "scripts/door.int", "scripts/Door.int", ...
func FindFileFS(fsys fs.FS, dir, filename string) (string, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return "", fmt.Errorf("failed to read directory %s: %w", dir, err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.EqualFold(entry.Name(), filename) {
			return path.Join(dir, entry.Name()), nil
		}
	}

	return "", fmt.Errorf("file not found: %s (searched in %s): %w", filename, dir, fs.ErrNotExist)
}

// Encoding returns the text encoding with the given name.
// An empty name selects DefaultEncoding.
func Encoding(name string) (encoding.Encoding, error) {
	switch strings.ToLower(name) {
	case "", "windows-1252", "cp1252":
		return charmap.Windows1252, nil
	case "cp866", "ibm866":
		return charmap.CodePage866, nil
	case "windows-1251", "cp1251":
		return charmap.Windows1251, nil
	case "iso-8859-1", "latin1":
		return charmap.ISO8859_1, nil
	case "shift_jis", "sjis":
		return japanese.ShiftJIS, nil
	case "utf-8", "utf8":
		return unicode.UTF8, nil
	default:
		return nil, fmt.Errorf("unknown encoding %q", name)
	}
}

// Decode converts data from enc to UTF-8.
func Decode(data []byte, enc encoding.Encoding) (string, error) {
	r := transform.NewReader(strings.NewReader(string(data)), enc.NewDecoder())
	out, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("failed to decode text: %w", err)
	}
	return string(out), nil
}

// ReadTextFS reads name from fsys and decodes it to UTF-8.
func ReadTextFS(fsys fs.FS, name string, enc encoding.Encoding) (string, error) {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return "", err
	}
	return Decode(data, enc)
}
