package metadata

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	log "github.com/sirupsen/logrus"
)

const (
	// MetaFileName holds the store properties inside a location.
	MetaFileName = "tdb.info"
	// TmpExt marks output that is only valid once renamed into place.
	TmpExt = ".tmp"
)

// Location is the directory a store lives in, or nowhere for a memory store.
type Location struct {
	dir string
}

// NewLocation uses dir, creating it when needed.
func NewLocation(dir string) (*Location, error) {
	if dir == "" {
		return MemLocation(), nil
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create location %s: %w", dir, err)
	}
	return &Location{dir: dir}, nil
}

func MemLocation() *Location {
	return &Location{}
}

func (l *Location) IsMem() bool {
	return l.dir == ""
}

func (l *Location) Dir() string {
	return l.dir
}

// Path is the full name of a file in the location, empty for a memory store.
func (l *Location) Path(name string) string {
	if l.IsMem() {
		return ""
	}
	return filepath.Join(l.dir, name)
}

func (l *Location) Exists(name string) bool {
	if l.IsMem() {
		return false
	}
	_, err := os.Stat(l.Path(name))
	return err == nil
}

// HasData reports whether anything besides the metadata file and leftovers is
// already in the directory.
func (l *Location) HasData() bool {
	if l.IsMem() {
		return false
	}
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		return false
	}
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || name == MetaFileName || strings.HasSuffix(name, TmpExt) {
			continue
		}
		return true
	}
	return false
}

// CleanupIncomplete removes *.tmp files an interrupted compaction or flush
// left behind and returns their names.
func (l *Location) CleanupIncomplete() ([]string, error) {
	if l.IsMem() {
		return nil, nil
	}
	matches, err := filepath.Glob(filepath.Join(l.dir, "*"+TmpExt))
	if err != nil {
		return nil, err
	}

	var removed []string
	for _, m := range matches {
		log.WithFields(log.Fields{
			"location": l.dir,
			"file":     filepath.Base(m),
		}).Warn("removing incomplete file")
		if err := os.Remove(m); err != nil {
			return removed, fmt.Errorf("failed to remove %s: %w", m, err)
		}
		removed = append(removed, filepath.Base(m))
	}
	return removed, nil
}

func (l *Location) String() string {
	if l.IsMem() {
		return "mem:"
	}
	return l.dir
}
