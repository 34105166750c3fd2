package pathway

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
)

// Store keeps one JSON file per pathway under a directory.
type Store struct {
	dir string
}

// NewStore returns a store rooted at dir. The directory is created on
// first save.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Dir returns the store's root directory.
func (s *Store) Dir() string { return s.dir }

// Path returns the file a pathway name maps to.
func (s *Store) Path(name string) string {
	return filepath.Join(s.dir, slug(name)+".json")
}

// Save writes the pathway to its file, assigning an ID if it has none.
func (s *Store) Save(p *Pathway) error {
	if p.Name == "" {
		return fmt.Errorf("pathway has no name")
	}
	if len(p.Waypoints) == 0 {
		return fmt.Errorf("pathway %q has no waypoints", p.Name)
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.Path(p.Name), data, 0644)
}

// Load reads one pathway by name.
func (s *Store) Load(name string) (*Pathway, error) {
	data, err := os.ReadFile(s.Path(name))
	if err != nil {
		return nil, err
	}
	var p Pathway
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("pathway %q: %w", name, err)
	}
	return &p, nil
}

// List loads every pathway in the store, sorted by name. Files that
// fail to parse are skipped.
func (s *Store) List() ([]*Pathway, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var out []*Pathway
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.dir, e.Name()))
		if err != nil {
			continue
		}
		var p Pathway
		if err := json.Unmarshal(data, &p); err != nil {
			continue
		}
		out = append(out, &p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Delete removes a pathway's file.
func (s *Store) Delete(name string) error {
	return os.Remove(s.Path(name))
}

// slug maps a display name onto a safe file stem.
func slug(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ', r == '-', r == '_', r == '.':
			b.WriteByte('-')
		}
	}
	if b.Len() == 0 {
		return "pathway"
	}
	return b.String()
}
