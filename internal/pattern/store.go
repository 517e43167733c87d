package pattern

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// StartupName is the pattern loaded when the engine starts.
const StartupName = "init.txt"

// Store reads and writes pattern files in a single directory.
type Store struct {
	dir    string
	parser Parser
	logger *slog.Logger
}

// NewStore opens the pattern directory. The directory must exist.
func NewStore(dir string, r ChannelRange, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	info, err := os.Stat(dir)
	if err != nil {
		return nil, newError(ErrCodeIO, fmt.Sprintf("pattern directory %s", dir), err)
	}
	if !info.IsDir() {
		return nil, newError(ErrCodeIO, fmt.Sprintf("%s is not a directory", dir), nil)
	}

	return &Store{
		dir:    dir,
		parser: Parser{Range: r, Logger: logger},
		logger: logger,
	}, nil
}

// Dir returns the directory backing the store.
func (s *Store) Dir() string {
	return s.dir
}

// Range returns the channel range patterns are normalized to.
func (s *Store) Range() ChannelRange {
	return s.parser.Range
}

// ValidateName rejects names that would escape the pattern directory.
func ValidateName(name string) error {
	if name == "" || name == "." || name == ".." {
		return newError(ErrCodeInvalidName, fmt.Sprintf("invalid pattern name %q", name), nil)
	}
	if filepath.Base(name) != name || strings.ContainsAny(name, `/\`) {
		return newError(ErrCodeInvalidName, fmt.Sprintf("pattern name %q must not contain a path", name), nil)
	}
	return nil
}

// Load reads and parses the named pattern.
func (s *Store) Load(name string) (Pattern, error) {
	if err := ValidateName(name); err != nil {
		return Pattern{}, err
	}

	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Pattern{}, newError(ErrCodeNotFound, fmt.Sprintf("pattern %s not found", name), err)
		}
		return Pattern{}, newError(ErrCodeIO, fmt.Sprintf("failed to read pattern %s", name), err)
	}

	p, rejects, err := s.parser.Decode(data)
	if err != nil {
		return Pattern{}, err
	}
	if len(rejects) > 0 {
		s.logger.Warn("Pattern loaded with rejected lines", "name", name, "rejected", len(rejects))
	}

	s.logger.Debug("Pattern loaded", "name", name, "frames", p.Len())
	return p, nil
}

// Save writes the pattern in text form, replacing any file of the same name.
func (s *Store) Save(name string, p Pattern) error {
	if err := ValidateName(name); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(s.dir, "."+name+".*.tmp")
	if err != nil {
		return newError(ErrCodeIO, "failed to create temp file", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(Encode(p)); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return newError(ErrCodeIO, fmt.Sprintf("failed to write pattern %s", name), err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return newError(ErrCodeIO, fmt.Sprintf("failed to write pattern %s", name), err)
	}
	if err := os.Rename(tmpName, filepath.Join(s.dir, name)); err != nil {
		os.Remove(tmpName)
		return newError(ErrCodeIO, fmt.Sprintf("failed to store pattern %s", name), err)
	}

	s.logger.Info("Pattern saved", "name", name, "frames", p.Len())
	return nil
}

// List returns the names of regular, non-hidden files in the directory.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, newError(ErrCodeIO, "failed to list patterns", err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.Type().IsRegular() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)
	return names, nil
}
