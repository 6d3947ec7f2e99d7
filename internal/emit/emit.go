// Package emit writes transformed modules and the JSON run report.
//
// Every write goes to a temporary file in the target directory which is then
// renamed over the destination, so readers never observe a partially
// written module.
package emit

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"time"

	"loadable-rewriter/internal/manifest"
)

// ReportVersion is bumped when the report schema changes.
const ReportVersion = "1"

// WriteFile atomically replaces path with data. An existing file keeps its
// permission bits; new files get 0o644.
func WriteFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	mode := os.FileMode(0o644)
	if st, err := os.Stat(path); err == nil {
		mode = st.Mode().Perm()
	} else if !errors.Is(err, os.ErrNotExist) {
		return err
	}
	tmp, f, err := createTempFile(dir, filepath.Base(path))
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	if err := os.Chmod(tmp, mode); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}

// ImportEntry summarizes one inlined manifest import.
type ImportEntry struct {
	Specifier   string           `json:"specifier"`
	Component   string           `json:"component"`
	Line        int              `json:"line"`
	Kept        []manifest.Entry `json:"kept"`
	Dropped     []manifest.Entry `json:"dropped"`
	Descriptors int              `json:"descriptors"`
}

// FileEntry is the outcome for one module.
type FileEntry struct {
	Path            string        `json:"path"`
	Changed         bool          `json:"changed"`
	Written         string        `json:"written,omitempty"`
	Error           string        `json:"error,omitempty"`
	Descriptors     int           `json:"descriptors"`
	ManifestImports []ImportEntry `json:"manifestImports"`
}

// Project identifies the package the run touched.
type Project struct {
	Root    string `json:"root"`
	Name    string `json:"name"`
	Version string `json:"version,omitempty"`
}

// Report is the JSON document written by -report.
type Report struct {
	Tool          string      `json:"tool"`
	FormatVersion string      `json:"formatVersion"`
	Created       string      `json:"created"`
	Mode          string      `json:"mode"`
	Project       *Project    `json:"project,omitempty"`
	Files         []FileEntry `json:"files"`
}

// NewReport returns an empty report stamped with the current UTC time.
func NewReport(tool, mode string) *Report {
	return &Report{
		Tool:          tool,
		FormatVersion: ReportVersion,
		Created:       time.Now().UTC().Format(time.RFC3339),
		Mode:          mode,
		Files:         []FileEntry{},
	}
}

// Counts returns how many files changed and how many failed.
func (r *Report) Counts() (changed, failed int) {
	for _, f := range r.Files {
		if f.Changed {
			changed++
		}
		if f.Error != "" {
			failed++
		}
	}
	return changed, failed
}

// SaveReport writes r as indented JSON to path.
func SaveReport(path string, r *Report) error {
	b, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return err
	}
	return WriteFile(path, append(b, '\n'))
}

// LoadReport reads a report written by SaveReport.
func LoadReport(path string) (*Report, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var r Report
	if err := json.Unmarshal(b, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// createTempFile creates ".tmp-<base>-*" in dir. Caller closes it.
func createTempFile(dir, base string) (string, *os.File, error) {
	f, err := os.CreateTemp(dir, ".tmp-"+base+"-")
	if err != nil {
		return "", nil, err
	}
	return f.Name(), f, nil
}
