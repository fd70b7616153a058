package services

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

const dayFileKeyPrefix = "data-"

// DayFileStore appends notification entries to one JSON object per calendar day.
// It does no locking of its own; callers serialize writers with a DayFileLocker.
type DayFileStore struct {
	dir string
}

func NewDayFileStore(dir string) *DayFileStore {
	return &DayFileStore{dir: dir}
}

// Path returns the file backing day (YYYY-MM-DD)
func (s *DayFileStore) Path(day string) string {
	return filepath.Join(s.dir, day+".json")
}

// Append stores entry under the next free data-<n> key and returns that key
func (s *DayFileStore) Append(day string, entry any) (string, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create day-file directory: %w", err)
	}

	entries, err := s.Read(day)
	if err != nil {
		return "", err
	}

	raw, err := json.Marshal(entry)
	if err != nil {
		return "", fmt.Errorf("failed to encode day-file entry: %w", err)
	}

	n := len(entries)
	key := dayFileKeyPrefix + strconv.Itoa(n)
	for {
		if _, taken := entries[key]; !taken {
			break
		}
		n++
		key = dayFileKeyPrefix + strconv.Itoa(n)
	}
	entries[key] = raw

	if err := s.write(day, entries); err != nil {
		return "", err
	}
	return key, nil
}

// Read loads the entries of day; a missing or empty file yields an empty map
func (s *DayFileStore) Read(day string) (map[string]json.RawMessage, error) {
	bytes, err := os.ReadFile(s.Path(day))
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string]json.RawMessage), nil
		}
		return nil, fmt.Errorf("failed to read day-file: %w", err)
	}
	if len(bytes) == 0 {
		return make(map[string]json.RawMessage), nil
	}

	entries := make(map[string]json.RawMessage)
	if err := json.Unmarshal(bytes, &entries); err != nil {
		return nil, fmt.Errorf("failed to decode day-file %s: %w", day, err)
	}
	return entries, nil
}

// write replaces the day file through a temp file + rename so readers never see a partial object
func (s *DayFileStore) write(day string, entries map[string]json.RawMessage) error {
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode day-file: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, day+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp day-file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write temp day-file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp day-file: %w", err)
	}
	if err := os.Rename(tmpName, s.Path(day)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace day-file: %w", err)
	}
	return nil
}
