package app

import (
	"os"
	"path/filepath"
)

// DefaultConfigName is the configuration file searched for when none is
// given.
const DefaultConfigName = "intvm.toml"

// findConfig searches for the configuration file in the following order:
// 1. The path given on the command line or in INTVM_CONFIG
// 2. The directory of the map file
// 3. The parent directory of the map file
// 4. Current directory
//
// An empty result means the built-in defaults are used.
func findConfig(explicit, mapPath string) string {
	if explicit != "" {
		return explicit
	}

	var dirs []string
	if mapPath != "" {
		dir := filepath.Dir(mapPath)
		dirs = append(dirs, dir, filepath.Dir(dir))
	}
	dirs = append(dirs, ".")

	for _, dir := range dirs {
		p := filepath.Join(dir, DefaultConfigName)
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p
		}
	}
	return ""
}
