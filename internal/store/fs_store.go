package store

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Artifact naming: checkpoint-<UTC timestamp>.json.gz. The timestamp
// layout sorts lexically, so "latest" is simply the greatest name.
const (
	artifactPrefix = "checkpoint-"
	artifactSuffix = ".json.gz"
	stampLayout    = "20060102T150405"
)

// FSStore persists checkpoint artifacts as compressed JSON files in a
// single directory. Writes go through a temp file and an atomic
// rename so a crash mid-save never corrupts the previous artifact.
type FSStore struct {
	dir string
}

// NewFSStore creates a store rooted at dir, creating it if needed.
func NewFSStore(dir string) (*FSStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create checkpoint directory: %w", err)
	}
	return &FSStore{dir: dir}, nil
}

// NewID derives the artifact identifier for a lineage created at t.
func NewID(t time.Time) string {
	return artifactPrefix + t.UTC().Format(stampLayout) + artifactSuffix
}

func (fs *FSStore) path(id string) string {
	return filepath.Join(fs.dir, id)
}

// Save writes the checkpoint under the given identifier, overwriting
// any previous version of the same lineage. The write is synchronous:
// when Save returns, the artifact is durable.
func (fs *FSStore) Save(id string, cp *Checkpoint) error {
	if id == "" {
		return fmt.Errorf("checkpoint id cannot be empty")
	}
	if cp == nil {
		return fmt.Errorf("checkpoint cannot be nil")
	}
	if err := cp.Validate(); err != nil {
		return err
	}

	tempPath := fs.path(id) + ".tmp"
	f, err := os.Create(tempPath)
	if err != nil {
		return fmt.Errorf("failed to create temp checkpoint file: %w", err)
	}

	zw, _ := gzip.NewWriterLevel(f, gzip.BestCompression)
	if err := json.NewEncoder(zw).Encode(cp); err != nil {
		zw.Close()
		f.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to serialize checkpoint: %w", err)
	}
	if err := zw.Close(); err != nil {
		f.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to finish checkpoint compression: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to sync checkpoint file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to close checkpoint file: %w", err)
	}

	if err := os.Rename(tempPath, fs.path(id)); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to rename checkpoint file: %w", err)
	}

	slog.Debug("Checkpoint saved", "id", id, "trials", len(cp.Trials))
	return nil
}

// Load reads and decodes the checkpoint with the given identifier.
func (fs *FSStore) Load(id string) (*Checkpoint, error) {
	if id == "" {
		return nil, fmt.Errorf("checkpoint id cannot be empty")
	}

	f, err := os.Open(fs.path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &NotFoundError{ID: id}
		}
		return nil, fmt.Errorf("failed to open checkpoint file: %w", err)
	}
	defer f.Close()

	zr, err := gzip.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("failed to open checkpoint compression: %w", err)
	}
	defer zr.Close()

	var cp Checkpoint
	if err := json.NewDecoder(zr).Decode(&cp); err != nil {
		return nil, fmt.Errorf("failed to deserialize checkpoint: %w", err)
	}
	if err := cp.Validate(); err != nil {
		return nil, err
	}

	slog.Debug("Checkpoint loaded", "id", id, "trials", len(cp.Trials))
	return &cp, nil
}

// Latest resolves the most recently created artifact by name. Callers
// resuming without an explicit identifier always get the newest
// checkpoint, never silently an older one.
func (fs *FSStore) Latest() (string, error) {
	ids, err := fs.ids()
	if err != nil {
		return "", err
	}
	if len(ids) == 0 {
		return "", &NotFoundError{}
	}
	sort.Strings(ids)
	return ids[len(ids)-1], nil
}

// List returns metadata for every artifact, newest first.
func (fs *FSStore) List() ([]CheckpointInfo, error) {
	ids, err := fs.ids()
	if err != nil {
		return nil, err
	}
	sort.Sort(sort.Reverse(sort.StringSlice(ids)))

	infos := make([]CheckpointInfo, 0, len(ids))
	for _, id := range ids {
		cp, err := fs.Load(id)
		if err != nil {
			slog.Warn("Skipping unreadable checkpoint", "id", id, "error", err)
			continue
		}
		var size int64
		if st, err := os.Stat(fs.path(id)); err == nil {
			size = st.Size()
		}
		infos = append(infos, cp.ToInfo(id, size))
	}
	return infos, nil
}

// Delete removes the artifact with the given identifier.
func (fs *FSStore) Delete(id string) error {
	if id == "" {
		return fmt.Errorf("checkpoint id cannot be empty")
	}
	err := os.Remove(fs.path(id))
	if os.IsNotExist(err) {
		return &NotFoundError{ID: id}
	}
	if err != nil {
		return fmt.Errorf("failed to delete checkpoint: %w", err)
	}
	slog.Debug("Checkpoint deleted", "id", id)
	return nil
}

func (fs *FSStore) ids() ([]string, error) {
	entries, err := os.ReadDir(fs.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read checkpoint directory: %w", err)
	}
	var ids []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, artifactPrefix) || !strings.HasSuffix(name, artifactSuffix) {
			continue
		}
		ids = append(ids, name)
	}
	return ids, nil
}
