package fileutil

import (
	"errors"
	"io/fs"
	"path"
	"testing"
	"testing/fstest"
)

func TestFindFileFS(t *testing.T) {
	fsys := fstest.MapFS{
		"scripts/Door.int":      {Data: []byte("x")},
		"scripts/LOCKER.INT":    {Data: []byte("x")},
		"text/english/misc.msg": {Data: []byte("x")},
		"scripts/sub/inner.int": {Data: []byte("x")},
	}

	tests := []struct {
		name          string
		dir           string
		searchName    string
		shouldFind    bool
		expectedMatch string
	}{
		{
			name:          "exact match",
			dir:           "scripts",
			searchName:    "Door.int",
			shouldFind:    true,
			expectedMatch: "Door.int",
		},
		{
			name:          "uppercase search for mixed case file",
			dir:           "scripts",
			searchName:    "DOOR.INT",
			shouldFind:    true,
			expectedMatch: "Door.int",
		},
		{
			name:          "lowercase search for uppercase file",
			dir:           "scripts",
			searchName:    "locker.int",
			shouldFind:    true,
			expectedMatch: "LOCKER.INT",
		},
		{
			name:          "nested directory",
			dir:           "text/english",
			searchName:    "MISC.MSG",
			shouldFind:    true,
			expectedMatch: "misc.msg",
		},
		{
			name:       "directories are skipped",
			dir:        "scripts",
			searchName: "SUB",
			shouldFind: false,
		},
		{
			name:       "file not found",
			dir:        "scripts",
			searchName: "nonexistent.int",
			shouldFind: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := FindFileFS(fsys, tt.dir, tt.searchName)

			if tt.shouldFind {
				if err != nil {
					t.Fatalf("Expected to find file, but got error: %v", err)
				}
				if got := path.Base(p); got != tt.expectedMatch {
					t.Errorf("Expected filename %s, got %s", tt.expectedMatch, got)
				}
				if _, err := fs.Stat(fsys, p); err != nil {
					t.Errorf("Returned path does not exist: %s", p)
				}
				return
			}
			if !errors.Is(err, fs.ErrNotExist) {
				t.Errorf("Expected fs.ErrNotExist, got path %q err %v", p, err)
			}
		})
	}
}

func TestFindFileFS_MissingDir(t *testing.T) {
	if _, err := FindFileFS(fstest.MapFS{}, "nope", "a.int"); err == nil {
		t.Error("Expected error for missing directory")
	}
}

func TestDecode(t *testing.T) {
	tests := []struct {
		encoding string
		input    []byte
		want     string
	}{
		{"", []byte{'c', 'a', 'f', 0xE9}, "café"},
		{"windows-1252", []byte{0x93, 'h', 'i', 0x94}, "“hi”"},
		{"cp866", []byte{0x8F, 0xE0, 0xA8}, "При"},
		{"utf-8", []byte("plain"), "plain"},
		{"shift_jis", []byte{0x82, 0xA0}, "あ"},
	}

	for _, tt := range tests {
		t.Run(tt.encoding, func(t *testing.T) {
			enc, err := Encoding(tt.encoding)
			if err != nil {
				t.Fatalf("Encoding(%q): %v", tt.encoding, err)
			}
			got, err := Decode(tt.input, enc)
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if got != tt.want {
				t.Errorf("Decode = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestEncoding_Unknown(t *testing.T) {
	if _, err := Encoding("ebcdic"); err == nil {
		t.Error("Expected error for unknown encoding")
	}
}

func TestReadTextFS(t *testing.T) {
	fsys := fstest.MapFS{"a.msg": {Data: []byte{0xE9}}}
	enc, _ := Encoding("")

	got, err := ReadTextFS(fsys, "a.msg", enc)
	if err != nil {
		t.Fatalf("ReadTextFS: %v", err)
	}
	if got != "é" {
		t.Errorf("got %q, want %q", got, "é")
	}
	if _, err := ReadTextFS(fsys, "b.msg", enc); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("Expected fs.ErrNotExist, got %v", err)
	}
}
