package project

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
)

// Info is a best-effort summary of the package.json found at a root.
type Info struct {
	Root    string
	Name    string
	Version string
}

// Describe reads <root>/package.json. Missing or malformed files yield an
// Info named after the directory.
func Describe(root string) Info {
	inf := Info{Root: root, Name: filepath.Base(root)}
	b, err := os.ReadFile(filepath.Join(root, "package.json"))
	if err != nil {
		return inf
	}
	var pkg struct {
		Name    string `json:"name"`
		Version string `json:"version"`
	}
	if err := json.Unmarshal(b, &pkg); err != nil {
		return inf
	}
	if n := strings.TrimSpace(pkg.Name); n != "" {
		inf.Name = n
	}
	inf.Version = strings.TrimSpace(pkg.Version)
	return inf
}
