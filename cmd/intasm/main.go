// Command intasm assembles script sources into compiled .int images.
// Build with: go build -o intasm ./cmd/intasm
//
//	intasm [-o dir] [-encoding name] [-list] file.asm...
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/encoding"

	"github.com/zurustar/intvm/pkg/asm"
	"github.com/zurustar/intvm/pkg/fileutil"
	"github.com/zurustar/intvm/pkg/intfile"
)

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("intasm", flag.ContinueOnError)
	fs.SetOutput(stderr)
	outDir := fs.String("o", "", "output directory (default: next to each source)")
	encName := fs.String("encoding", fileutil.DefaultEncoding, "source text encoding")
	list := fs.Bool("list", false, "print the listing of each assembled script")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return errors.New("no source files given")
	}

	enc, err := fileutil.Encoding(*encName)
	if err != nil {
		return err
	}

	var errs []error
	for _, src := range fs.Args() {
		out, err := assemble(src, *outDir, enc, *list, stdout)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", src, err))
			continue
		}
		fmt.Fprintf(stderr, "%s -> %s\n", src, out)
	}
	return errors.Join(errs...)
}

// assemble compiles one source file and returns the path of the image.
func assemble(src, outDir string, enc encoding.Encoding, list bool, stdout io.Writer) (string, error) {
	dir, base := filepath.Split(src)
	if dir == "" {
		dir = "."
	}
	prog, err := asm.AssembleFS(os.DirFS(dir), base, enc)
	if err != nil {
		return "", err
	}

	if outDir == "" {
		outDir = dir
	}
	out := filepath.Join(outDir, strings.TrimSuffix(base, filepath.Ext(base))+".int")
	if err := intfile.WriteFile(out, prog); err != nil {
		return "", err
	}

	if list {
		fmt.Fprintf(stdout, "; %s\n", prog.Name)
		for _, line := range prog.Listing() {
			fmt.Fprintln(stdout, line)
		}
	}
	return out, nil
}
