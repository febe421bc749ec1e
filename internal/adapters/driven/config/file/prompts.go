package file

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"sync"

	"github.com/custodia-labs/docportal/internal/core/ports/driven"
)

// Ensure PromptStore implements the interface.
var _ driven.PromptStore = (*PromptStore)(nil)

//go:embed defaults
var defaults embed.FS

const defaultsDir = "defaults"

// fmtVerb matches a fmt verb with an optional explicit argument index.
// "%%" is matched so that escaped percent signs can be skipped.
var fmtVerb = regexp.MustCompile(`%%|%(\[\d+\])?[a-zA-Z]`)

// PromptStore serves prompt templates from a directory of .txt files.
//
// The directory is seeded with the built-in prompts on first use. A file
// that is missing or whose fmt verbs differ from the built-in prompt is
// ignored in favour of the built-in text.
type PromptStore struct {
	dir string

	seedOnce sync.Once
	seedErr  error

	mu    sync.RWMutex
	cache map[string]string
}

// NewPromptStore returns a store for dir, or ~/.docportal/prompts when dir is empty.
// Nothing is written until the first Load.
func NewPromptStore(dir string) (*PromptStore, error) {
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("get home directory: %w", err)
		}
		dir = filepath.Join(home, ".docportal", "prompts")
	}
	return &PromptStore{dir: dir, cache: make(map[string]string)}, nil
}

// Dir returns the prompt directory.
func (s *PromptStore) Dir() string {
	return s.dir
}

// Load returns the template for name.
// Only the built-in prompt names are known.
func (s *PromptStore) Load(name string) (string, error) {
	builtin, err := builtinPrompt(name)
	if err != nil {
		return "", err
	}
	if s.seed() != nil {
		return builtin, nil
	}

	s.mu.RLock()
	prompt, ok := s.cache[name]
	s.mu.RUnlock()
	if ok {
		return prompt, nil
	}

	prompt, err = s.custom(name, builtin)
	if err != nil {
		prompt = builtin
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if cached, ok := s.cache[name]; ok {
		return cached, nil
	}
	s.cache[name] = prompt
	return prompt, nil
}

// Check reports why the file for name would be ignored by Load.
// A missing file is not an error.
func (s *PromptStore) Check(name string) error {
	builtin, err := builtinPrompt(name)
	if err != nil {
		return err
	}
	_, err = s.custom(name, builtin)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// Reload drops every cached template.
func (s *PromptStore) Reload() {
	s.mu.Lock()
	clear(s.cache)
	s.mu.Unlock()
}

// custom reads the file for name and rejects it when its verbs do not
// match those of builtin.
func (s *PromptStore) custom(name, builtin string) (string, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, name+".txt"))
	if err != nil {
		return "", err
	}
	prompt := strings.TrimSpace(string(data))
	got, want := verbs(prompt), verbs(builtin)
	if !slices.Equal(got, want) {
		return "", fmt.Errorf("prompt %s uses placeholders %v, expected %v", name, got, want)
	}
	return prompt, nil
}

// seed creates the directory and writes every built-in file that is not
// already present. It runs once; later calls return the first result.
func (s *PromptStore) seed() error {
	s.seedOnce.Do(func() {
		if err := os.MkdirAll(s.dir, 0o700); err != nil {
			s.seedErr = fmt.Errorf("create prompt directory: %w", err)
			return
		}
		entries, err := defaults.ReadDir(defaultsDir)
		if err != nil {
			s.seedErr = err
			return
		}
		for _, entry := range entries {
			if err := s.writeDefault(entry.Name()); err != nil {
				s.seedErr = fmt.Errorf("write default %s: %w", entry.Name(), err)
				return
			}
		}
	})
	return s.seedErr
}

func (s *PromptStore) writeDefault(name string) error {
	data, err := defaults.ReadFile(path.Join(defaultsDir, name))
	if err != nil {
		return err
	}
	f, err := os.OpenFile(filepath.Join(s.dir, name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if errors.Is(err, fs.ErrExist) {
		return nil
	}
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close() //nolint:errcheck // the write error is what matters
		return err
	}
	return f.Close()
}

func builtinPrompt(name string) (string, error) {
	data, err := defaults.ReadFile(path.Join(defaultsDir, name+".txt"))
	if err != nil {
		return "", fmt.Errorf("unknown prompt %q", name)
	}
	return strings.TrimSpace(string(data)), nil
}

// verbs lists the fmt verbs of a template in order, without "%%".
func verbs(tmpl string) []string {
	var out []string
	for _, v := range fmtVerb.FindAllString(tmpl, -1) {
		if v != "%%" {
			out = append(out, v)
		}
	}
	return out
}
