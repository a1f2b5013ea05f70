package world

import "github.com/zurustar/intvm/pkg/vm"

func getVar(vars []int32, what string, n int) (int32, error) {
	if n < 0 || n >= len(vars) {
		return 0, vm.NewOutOfRangeError(what, n, len(vars))
	}
	return vars[n], nil
}

func setVar(vars []int32, what string, n int, v int32) error {
	if n < 0 || n >= len(vars) {
		return vm.NewOutOfRangeError(what, n, len(vars))
	}
	vars[n] = v
	return nil
}

func (w *World) GlobalVar(n int) (int32, error)    { return getVar(w.globals, "global var", n) }
func (w *World) SetGlobalVar(n int, v int32) error { return setVar(w.globals, "global var", n, v) }
func (w *World) MapVar(n int) (int32, error)       { return getVar(w.mapVars, "map var", n) }
func (w *World) SetMapVar(n int, v int32) error    { return setVar(w.mapVars, "map var", n, v) }

// GlobalVars returns a copy of the global variables.
func (w *World) GlobalVars() []int32 {
	return append([]int32(nil), w.globals...)
}

// LoadGlobalVars overwrites the global variables with vars. Extra values
// are ignored and missing ones keep their current value.
func (w *World) LoadGlobalVars(vars []int32) {
	copy(w.globals, vars)
}

// MapVars returns a copy of the map variables.
func (w *World) MapVars() []int32 {
	return append([]int32(nil), w.mapVars...)
}

// ResetMapVars resizes and clears the map variables, as when a new map is
// loaded, then applies vars.
func (w *World) ResetMapVars(n int, vars []int32) {
	w.mapVars = make([]int32, n)
	copy(w.mapVars, vars)
}
