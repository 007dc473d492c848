//go:build !windows

package quackdb

import (
	"github.com/ebitengine/purego"
)

// loadDynamicLibrary opens the DuckDB shared library on Unix systems.
func loadDynamicLibrary(path string) (uintptr, error) {
	return purego.Dlopen(path, purego.RTLD_NOW|purego.RTLD_GLOBAL)
}
