package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// FileStore writes one JSON file per verification under a records directory.
// The flat-file trail survives database outages and is what support staff
// grep when a farmer disputes a rejection.
type FileStore struct {
	dir string
}

// NewFileStore creates the records directory if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create records dir: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

// Append writes the record as {userID}_{timestamp}.json.
func (s *FileStore) Append(_ context.Context, rec Record) error {
	name := fmt.Sprintf("%s_%s.json", rec.UserID, rec.CreatedAt.Format("20060102_150405"))
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	if err := os.WriteFile(filepath.Join(s.dir, name), data, 0o644); err != nil {
		return fmt.Errorf("write record: %w", err)
	}
	return nil
}

// ListByUser reads back a user's record files, newest first.
func (s *FileStore) ListByUser(_ context.Context, userID string) ([]Record, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read records dir: %w", err)
	}

	var out []Record
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasPrefix(entry.Name(), userID+"_") ||
			!strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("read record %s: %w", entry.Name(), err)
		}
		var rec Record
		if err := json.Unmarshal(data, &rec); err != nil {
			// A corrupt file must not hide the rest of the trail.
			continue
		}
		out = append(out, rec)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}
