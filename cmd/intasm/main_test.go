package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/zurustar/intvm/pkg/intfile"
)

const greetSource = `.proc start
        push 7
        push 6
        mul
        pop
        return
`

func TestRun_WritesImage(t *testing.T) {
	src := filepath.Join(t.TempDir(), "Greet.asm")
	if err := os.WriteFile(src, []byte(greetSource), 0o644); err != nil {
		t.Fatal(err)
	}
	outDir := t.TempDir()

	var stdout, stderr bytes.Buffer
	if err := run([]string{"-o", outDir, "-list", src}, &stdout, &stderr); err != nil {
		t.Fatalf("run: %v", err)
	}

	prog, err := intfile.ReadFS(os.DirFS(outDir), "Greet.int")
	if err != nil {
		t.Fatalf("ReadFS: %v", err)
	}
	if prog.Name != "greet" || len(prog.Procedures) != 1 {
		t.Errorf("program %q has %d procedures, want greet with 1", prog.Name, len(prog.Procedures))
	}
	if !strings.Contains(stdout.String(), "start:") {
		t.Errorf("listing = %q", stdout.String())
	}
}

func TestRun_Errors(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.asm")
	if err := os.WriteFile(bad, []byte(".proc start\n        jmp nowhere\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"no sources", nil, "no source files"},
		{"unknown encoding", []string{"-encoding", "ebcdic", bad}, "unknown encoding"},
		{"missing file", []string{filepath.Join(dir, "none.asm")}, "none.asm"},
		{"assembly error", []string{bad}, "nowhere"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			err := run(tt.args, &out, &out)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("run(%q) err = %v, want %q", tt.args, err, tt.want)
			}
		})
	}
	if _, err := os.Stat(filepath.Join(dir, "bad.int")); err == nil {
		t.Error("image written for a source with errors")
	}
}
