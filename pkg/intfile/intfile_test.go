package intfile

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/require"

	"github.com/zurustar/intvm/pkg/asm"
	"github.com/zurustar/intvm/pkg/opcode"
	"github.com/zurustar/intvm/pkg/vm"
)

const doorSource = `.globals 1
        push 3
        store_global 0
.proc use_p_proc
        push "It opens."
        display_msg
        push 0.5
        pop
        return
`

func TestMarshal_RoundTrip(t *testing.T) {
	p := asm.MustAssemble("door", doorSource)

	data, err := Marshal(p)
	require.NoError(t, err)

	got, err := Unmarshal(data)
	require.NoError(t, err)
	require.Equal(t, p.Name, got.Name)
	require.Equal(t, p.Code, got.Code)
	require.Equal(t, p.Strings, got.Strings)
	require.Equal(t, p.Floats, got.Floats)
	require.Equal(t, p.Procedures, got.Procedures)
	require.Equal(t, p.Globals, got.Globals)
	require.Equal(t, p.InitEnd, got.InitEnd)
	require.True(t, got.HasProcedure(vm.ProcUse), "procedure index rebuilt after decoding")
}

func TestMarshal_Deterministic(t *testing.T) {
	a, err := Marshal(asm.MustAssemble("door", doorSource))
	require.NoError(t, err)
	b, err := Marshal(asm.MustAssemble("door", doorSource))
	require.NoError(t, err)
	require.Equal(t, a, b)
}

func TestUnmarshal_Rejects(t *testing.T) {
	_, err := Unmarshal([]byte("not cbor at all"))
	require.ErrorIs(t, err, ErrBadImage)

	other, err := encMode.Marshal(image{Magic: "OTHER", Version: version, Program: &vm.Program{}})
	require.NoError(t, err)
	_, err = Unmarshal(other)
	require.ErrorIs(t, err, ErrBadImage)

	future, err := encMode.Marshal(image{Magic: magic, Version: version + 1, Program: &vm.Program{}})
	require.NoError(t, err)
	_, err = Unmarshal(future)
	require.ErrorContains(t, err, "unsupported image version")

	broken := &vm.Program{Name: "broken", Code: []opcode.Instruction{{Op: opcode.Jump, Arg: 99}}}
	data, err := Marshal(broken)
	require.NoError(t, err)
	_, err = Unmarshal(data)
	require.ErrorContains(t, err, "out of range")
}

func TestWriteFile_ReadFS(t *testing.T) {
	dir := t.TempDir()
	p := asm.MustAssemble("door", doorSource)
	require.NoError(t, WriteFile(filepath.Join(dir, "door.int"), p))

	got, err := ReadFS(os.DirFS(dir), "door.int")
	require.NoError(t, err)
	require.Equal(t, p.Code, got.Code)

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, p))
	want, err := Marshal(p)
	require.NoError(t, err)
	require.Equal(t, want, buf.Bytes())
}

func imageOf(t *testing.T, source, name string) []byte {
	t.Helper()
	data, err := Marshal(asm.MustAssemble(name, source))
	require.NoError(t, err)
	return data
}

func TestLibrary_LoadsOnce(t *testing.T) {
	fsys := fstest.MapFS{
		"scripts/DOOR.INT":    {Data: imageOf(t, doorSource, "door")},
		"scripts/lever.asm":   {Data: []byte(".proc use_p_proc\nreturn\n")},
		"scripts/scripts.lst": {Data: []byte("door.int ; Door\n\n  LEVER.INT   # lever\n")},
	}
	lib := NewLibrary(fsys, "scripts")
	require.NoError(t, lib.LoadList("scripts/scripts.lst"))

	a, err := lib.ByName("door")
	require.NoError(t, err)
	b, err := lib.ByName("Door.int")
	require.NoError(t, err)
	require.Same(t, a, b)

	lever, err := lib.ByID(1)
	require.NoError(t, err)
	require.Equal(t, "lever", lever.Name)
	require.True(t, lever.HasProcedure(vm.ProcUse))

	byID, err := lib.ByID(0)
	require.NoError(t, err)
	require.Same(t, a, byID)
	require.Equal(t, 2, lib.Len())
}

func TestLibrary_Missing(t *testing.T) {
	lib := NewLibrary(fstest.MapFS{"scripts/x.txt": {}}, "scripts", WithScripts([]string{"ghost.int"}))

	_, err := lib.ByName("nothing")
	require.ErrorIs(t, err, ErrNoScript)
	_, err = lib.ByName("")
	require.ErrorIs(t, err, ErrNoScript)
	_, err = lib.ByID(0)
	require.ErrorIs(t, err, ErrNoScript)
	_, err = lib.ByID(5)
	require.ErrorIs(t, err, ErrNoScript)
	_, err = lib.ByID(-1)
	require.ErrorIs(t, err, ErrNoScript)
}

func TestLibrary_Add(t *testing.T) {
	lib := NewLibrary(fstest.MapFS{}, ".")
	p := asm.MustAssemble("Inline", ".proc start\nreturn\n")
	lib.Add(p)

	got, err := lib.ByName("inline")
	require.NoError(t, err)
	require.Same(t, p, got)
}

func TestLibrary_AssemblyErrors(t *testing.T) {
	fsys := fstest.MapFS{"scripts/bad.asm": {Data: []byte("jmp nowhere\n")}}
	lib := NewLibrary(fsys, "scripts")

	_, err := lib.ByName("bad")
	var aerr *asm.Error
	require.ErrorAs(t, err, &aerr)
	require.Equal(t, 1, aerr.Line)
}
