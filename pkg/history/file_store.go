package history

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

var filenameSafeRegex = regexp.MustCompile(`[^a-zA-Z0-9_\-]`)

const (
	filePrefix = "game_history_"
	fileSuffix = ".json"
)

// FileStore keeps one JSON document per game in a directory.
type FileStore struct {
	dir string
}

// NewFileStore creates dir if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create history dir: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) path(gameID string) string {
	safeID := filenameSafeRegex.ReplaceAllString(gameID, "_")
	return filepath.Join(s.dir, filePrefix+safeID+fileSuffix)
}

// Save writes the record through a temp file so a crash never leaves a half
// written document behind.
func (s *FileStore) Save(ctx context.Context, r *Record) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal record %s: %w", r.GameID, err)
	}

	tmp, err := os.CreateTemp(s.dir, ".tmp_"+filePrefix+"*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write record %s: %w", r.GameID, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close record %s: %w", r.GameID, err)
	}
	if err := os.Rename(tmp.Name(), s.path(r.GameID)); err != nil {
		return fmt.Errorf("failed to store record %s: %w", r.GameID, err)
	}
	return nil
}

func (s *FileStore) Load(ctx context.Context, gameID string) (*Record, error) {
	data, err := os.ReadFile(s.path(gameID))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read record %s: %w", gameID, err)
	}
	r, err := decodeRecord(data)
	if err != nil {
		return nil, fmt.Errorf("record %s is corrupted: %w", gameID, err)
	}
	return r, nil
}

// List returns every stored game, newest first.
func (s *FileStore) List(ctx context.Context) ([]Summary, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read history dir: %w", err)
	}

	type item struct {
		summary Summary
		modTime int64
	}
	var items []item
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, fileSuffix) {
			continue
		}
		var modTime int64
		if info, err := e.Info(); err == nil {
			modTime = info.ModTime().UnixNano()
		}

		id := strings.TrimSuffix(strings.TrimPrefix(name, filePrefix), fileSuffix)
		data, err := os.ReadFile(filepath.Join(s.dir, name))
		if err != nil {
			slog.Warn("Failed to read history record", "file", name, "error", err)
			items = append(items, item{Summary{GameID: id, Error: errCorrupted}, modTime})
			continue
		}
		r, err := decodeRecord(data)
		if err != nil {
			slog.Warn("Corrupted history record", "file", name, "error", err)
			items = append(items, item{Summary{GameID: id, Error: errCorrupted}, modTime})
			continue
		}
		items = append(items, item{summarize(r), modTime})
	}

	sort.SliceStable(items, func(i, j int) bool { return items[i].modTime > items[j].modTime })
	out := make([]Summary, len(items))
	for i, it := range items {
		out[i] = it.summary
	}
	return out, nil
}

func (s *FileStore) Close() error {
	return nil
}
