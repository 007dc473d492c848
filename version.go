package quackdb

import (
	"fmt"
	"strings"
)

// Version holds the engine version reported by the loaded library.
type Version struct {
	Major      int
	Minor      int
	Patch      int
	VersionStr string
}

// String returns the version as reported by the library when available,
// falling back to the parsed components.
func (v Version) String() string {
	if v.VersionStr != "" {
		return v.VersionStr
	}
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// AtLeast checks if the version is at least the given major, minor, patch.
func (v Version) AtLeast(major, minor, patch int) bool {
	if v.Major != major {
		return v.Major > major
	}
	if v.Minor != minor {
		return v.Minor > minor
	}
	return v.Patch >= patch
}

// EngineVersion returns the version of the loaded engine library. Loading
// happens on first use, so this can fail when no library is found.
func EngineVersion() (Version, error) {
	if err := loadNativeLibrary(); err != nil {
		return Version{}, err
	}

	versionStr := goString(duckdbLibraryVersion())
	v := Version{VersionStr: versionStr}

	// Release builds report "v1.2.3"; dev builds report the git describe
	// form "v1.2.3-123-gabcdef".
	numbers, _, _ := strings.Cut(strings.TrimPrefix(versionStr, "v"), "-")
	fmt.Sscanf(numbers, "%d.%d.%d", &v.Major, &v.Minor, &v.Patch)

	return v, nil
}
