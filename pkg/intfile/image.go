// Package intfile stores compiled programs as CBOR images and shares them
// between script instances through a load-once Library.
package intfile

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/fxamacker/cbor/v2"

	"github.com/zurustar/intvm/pkg/vm"
)

const (
	magic   = "INTVM"
	version = 1
)

// ErrBadImage is returned for data that is not a program image.
var ErrBadImage = errors.New("intfile: not a program image")

var encMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("intfile: failed to create CBOR enc mode: %v", err))
	}
	encMode = em
}

type image struct {
	_       struct{} `cbor:",toarray"`
	Magic   string
	Version int
	Program *vm.Program
}

// Marshal encodes p. Equal programs encode to equal bytes.
func Marshal(p *vm.Program) ([]byte, error) {
	return encMode.Marshal(image{Magic: magic, Version: version, Program: p})
}

// Unmarshal decodes and validates a program image.
func Unmarshal(data []byte) (*vm.Program, error) {
	var img image
	if err := cbor.Unmarshal(data, &img); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadImage, err)
	}
	if img.Magic != magic || img.Program == nil {
		return nil, ErrBadImage
	}
	if img.Version != version {
		return nil, fmt.Errorf("intfile: unsupported image version %d", img.Version)
	}
	if err := img.Program.Reindex(); err != nil {
		return nil, fmt.Errorf("intfile: %w", err)
	}
	return img.Program, nil
}

// Write encodes p to w.
func Write(w io.Writer, p *vm.Program) error {
	data, err := Marshal(p)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// WriteFile encodes p into the named file.
func WriteFile(name string, p *vm.Program) error {
	data, err := Marshal(p)
	if err != nil {
		return err
	}
	return os.WriteFile(name, data, 0o644)
}

// ReadFS decodes the named image from fsys.
func ReadFS(fsys fs.FS, name string) (*vm.Program, error) {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, err
	}
	p, err := Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return p, nil
}
