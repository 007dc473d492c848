//go:build windows

package quackdb

import (
	"syscall"
)

// loadDynamicLibrary opens the DuckDB shared library on Windows systems.
func loadDynamicLibrary(path string) (uintptr, error) {
	handle, err := syscall.LoadLibrary(path)
	if err != nil {
		return 0, err
	}
	return uintptr(handle), nil
}
