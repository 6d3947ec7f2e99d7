// Package project locates the root of the JavaScript project a module
// belongs to.
package project

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DefaultMarkers must all be present in a directory for it to be the root.
var DefaultMarkers = []string{"package.json", "src"}

// RootNotFoundError is returned when no ancestor of Start holds every marker.
type RootNotFoundError struct {
	Start   string
	Markers []string
}

func (e *RootNotFoundError) Error() string {
	return fmt.Sprintf("project root not found above %s (looking for %s)", e.Start, strings.Join(e.Markers, ", "))
}

// FindRoot walks upward from dir to the first directory containing every
// marker. The walk stops at the filesystem root.
func FindRoot(dir string, markers ...string) (string, error) {
	if len(markers) == 0 {
		markers = DefaultMarkers
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	for cur := abs; ; {
		if hasAll(cur, markers) {
			return cur, nil
		}
		parent := filepath.Dir(cur)
		if parent == cur {
			return "", &RootNotFoundError{Start: abs, Markers: markers}
		}
		cur = parent
	}
}

func hasAll(dir string, markers []string) bool {
	for _, m := range markers {
		if _, err := os.Stat(filepath.Join(dir, m)); err != nil {
			return false
		}
	}
	return true
}
