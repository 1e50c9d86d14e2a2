package translation

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// SystemProfiles holds read-only profiles of a single type shipped with the
// deployment.
type SystemProfiles struct {
	typ      ProfileType
	profiles map[string]Profile
}

// LoadSystemProfiles reads every *.json, *.yaml and *.yml file in dir. Each
// file holds one profile. A profile of another type or a repeated name fails
// the whole load. An empty dir yields an empty set.
func LoadSystemProfiles(dir string, typ ProfileType) (*SystemProfiles, error) {
	sp := &SystemProfiles{typ: typ, profiles: make(map[string]Profile)}
	if dir == "" {
		return sp, nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read profile dir %s: %w", dir, err)
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(entry.Name())) {
		case ".json", ".yaml", ".yml":
		default:
			continue
		}
		path := filepath.Join(dir, entry.Name())
		p, err := readProfile(path)
		if err != nil {
			return nil, err
		}
		if p.Type != typ {
			return nil, fmt.Errorf("profile %s in %s has type %s, expected %s", p.Name, path, p.Type, typ)
		}
		if _, dup := sp.profiles[p.Name]; dup {
			return nil, fmt.Errorf("duplicate system profile %s in %s", p.Name, path)
		}
		p.Mode = ProfileModeReadOnly
		sp.profiles[p.Name] = p
	}
	return sp, nil
}

// JSON documents are valid YAML, so one decoder serves both formats.
func readProfile(path string) (Profile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Profile{}, fmt.Errorf("read profile %s: %w", path, err)
	}
	var p Profile
	if err := yaml.Unmarshal(raw, &p); err != nil {
		return Profile{}, fmt.Errorf("parse profile %s: %w", path, err)
	}
	if p.Name == "" {
		return Profile{}, fmt.Errorf("profile in %s has no name", path)
	}
	return p, nil
}

func (s *SystemProfiles) Type() ProfileType {
	return s.typ
}

func (s *SystemProfiles) Get(name string) (Profile, bool) {
	p, ok := s.profiles[name]
	return p, ok
}

// List returns the profiles sorted by name.
func (s *SystemProfiles) List() []Profile {
	out := make([]Profile, 0, len(s.profiles))
	for _, p := range s.profiles {
		out = append(out, p)
	}
	slices.SortFunc(out, func(a, b Profile) int { return strings.Compare(a.Name, b.Name) })
	return out
}
