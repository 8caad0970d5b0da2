// Package recording loads recorded host change set sequences, either from
// disk or from the recordings embedded in the binary.
package recording

import (
	"embed"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/ayusman/bodystats/internal/body"
)

//go:embed recordings/*.json
var recordingsFS embed.FS

// Decode reads a JSON array of change sets and validates each one.
func Decode(r io.Reader) ([]body.ChangeSet, error) {
	var sets []body.ChangeSet
	if err := json.NewDecoder(r).Decode(&sets); err != nil {
		return nil, fmt.Errorf("decode recording: %w", err)
	}

	for i := range sets {
		if err := sets[i].Validate(); err != nil {
			return nil, fmt.Errorf("set %d: %w", i, err)
		}
	}

	return sets, nil
}

// LoadFile loads a recording from a JSON file on disk.
func LoadFile(name string) ([]body.ChangeSet, error) {
	f, err := os.Open(filepath.Clean(name))
	if err != nil {
		return nil, fmt.Errorf("open recording: %w", err)
	}
	defer f.Close()

	sets, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("recording %s: %w", name, err)
	}
	return sets, nil
}

// Load loads an embedded recording by name, e.g. "single_reach".
func Load(name string) ([]body.ChangeSet, error) {
	if !strings.HasSuffix(name, ".json") {
		name += ".json"
	}

	f, err := recordingsFS.Open(path.Join("recordings", name))
	if err != nil {
		return nil, fmt.Errorf("load recording %s: %w", name, err)
	}
	defer f.Close()

	sets, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("recording %s: %w", name, err)
	}
	return sets, nil
}

// Names lists the embedded recordings.
func Names() ([]string, error) {
	entries, err := recordingsFS.ReadDir("recordings")
	if err != nil {
		return nil, err
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		names = append(names, strings.TrimSuffix(entry.Name(), ".json"))
	}

	return names, nil
}

// Open resolves a recording reference: an existing file path is read from
// disk, anything else is looked up among the embedded recordings.
func Open(ref string) ([]body.ChangeSet, error) {
	if info, err := os.Stat(ref); err == nil && !info.IsDir() {
		return LoadFile(ref)
	}
	return Load(ref)
}
