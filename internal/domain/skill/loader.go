package skill

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Loader reads skills from a directory where each skill lives in its own
// subdirectory containing a SKILL.md file and an optional references/
// directory. Parsed metadata is cached; bodies and resources are read
// from disk on every call.
type Loader struct {
	dir string

	mu   sync.RWMutex
	meta map[string]Metadata
}

// NewLoader creates a loader rooted at dir. The directory does not need
// to exist yet; a missing directory just means no skills.
func NewLoader(dir string) *Loader {
	return &Loader{dir: dir, meta: make(map[string]Metadata)}
}

// Dir returns the root directory the loader reads from.
func (l *Loader) Dir() string { return l.dir }

// List returns the names of all available skills in sorted order. A
// directory counts as a skill only if it contains a SKILL.md file.
func (l *Loader) List() ([]string, error) {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read skills directory: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if !entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		if _, err := os.Stat(filepath.Join(l.dir, entry.Name(), "SKILL.md")); err == nil {
			names = append(names, entry.Name())
		}
	}
	return names, nil
}

// LoadMetadata returns the level-1 metadata for the named skill, parsing
// and caching it on first access.
func (l *Loader) LoadMetadata(name string) (Metadata, error) {
	if err := validName(name); err != nil {
		return Metadata{}, err
	}

	l.mu.RLock()
	meta, ok := l.meta[name]
	l.mu.RUnlock()
	if ok {
		return meta, nil
	}

	content, err := l.readSkillFile(name)
	if err != nil {
		return Metadata{}, err
	}
	meta, err = ParseMetadata(content)
	if err != nil {
		return Metadata{}, fmt.Errorf("skill %q: %w", name, err)
	}

	l.mu.Lock()
	l.meta[name] = meta
	l.mu.Unlock()
	return meta, nil
}

// LoadFull returns the level-2 skill (metadata plus body) for the named
// skill.
func (l *Loader) LoadFull(name string) (Skill, error) {
	if err := validName(name); err != nil {
		return Skill{}, err
	}

	content, err := l.readSkillFile(name)
	if err != nil {
		return Skill{}, err
	}
	sk, err := Parse(content)
	if err != nil {
		return Skill{}, fmt.Errorf("skill %q: %w", name, err)
	}
	return sk, nil
}

// ListResources returns the level-3 resource filenames under the skill's
// references/ directory in sorted order. A skill without a references/
// directory has no resources.
func (l *Loader) ListResources(name string) ([]string, error) {
	if err := validName(name); err != nil {
		return nil, err
	}
	if _, err := os.Stat(filepath.Join(l.dir, name)); err != nil {
		return nil, fmt.Errorf("skill %q: %w", name, ErrNotFound)
	}

	entries, err := os.ReadDir(filepath.Join(l.dir, name, "references"))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read references for %q: %w", name, err)
	}

	var names []string
	for _, entry := range entries {
		if !entry.IsDir() {
			names = append(names, entry.Name())
		}
	}
	return names, nil
}

// LoadResource returns the content of a single resource file under the
// skill's references/ directory.
func (l *Loader) LoadResource(name, resource string) (string, error) {
	if err := validName(name); err != nil {
		return "", err
	}
	if resource == "" || resource != filepath.Base(resource) {
		return "", fmt.Errorf("resource %q of skill %q: %w", resource, name, ErrNotFound)
	}

	content, err := os.ReadFile(filepath.Join(l.dir, name, "references", resource))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("resource %q of skill %q: %w", resource, name, ErrNotFound)
		}
		return "", fmt.Errorf("read resource %q of skill %q: %w", resource, name, err)
	}
	return string(content), nil
}

func (l *Loader) readSkillFile(name string) (string, error) {
	content, err := os.ReadFile(filepath.Join(l.dir, name, "SKILL.md"))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("skill %q: %w", name, ErrNotFound)
		}
		return "", fmt.Errorf("read skill %q: %w", name, err)
	}
	return string(content), nil
}

// validName rejects names that could escape the skills directory.
func validName(name string) error {
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return fmt.Errorf("skill %q: %w", name, ErrNotFound)
	}
	return nil
}
