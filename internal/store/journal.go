package store

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Journal is an append-only JSONL record of every trial in a lineage,
// written alongside the checkpoint artifact. The checkpoint is the
// authoritative resumable state; the journal is the human-auditable
// experiment log (one line per trial, never rewritten).
type Journal struct {
	mu     sync.Mutex
	file   *os.File
	writer *bufio.Writer
	path   string
}

func journalPath(dir, id string) string {
	base := strings.TrimSuffix(id, artifactSuffix) + ".jsonl"
	return filepath.Join(dir, base)
}

// OpenJournal opens (or creates) the journal for a lineage in append
// mode, so a resumed search continues the same log.
func OpenJournal(dir, id string) (*Journal, error) {
	if id == "" {
		return nil, fmt.Errorf("checkpoint id cannot be empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create checkpoint directory: %w", err)
	}

	path := journalPath(dir, id)
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal file: %w", err)
	}

	return &Journal{
		file:   file,
		writer: bufio.NewWriterSize(file, 16*1024),
		path:   path,
	}, nil
}

// Append writes one trial record as a JSON line and syncs it to disk.
func (j *Journal) Append(rec TrialRecord) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal trial record: %w", err)
	}
	if _, err := j.writer.Write(data); err != nil {
		return fmt.Errorf("failed to write trial record: %w", err)
	}
	if err := j.writer.WriteByte('\n'); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}
	if err := j.writer.Flush(); err != nil {
		return fmt.Errorf("failed to flush journal: %w", err)
	}
	if err := j.file.Sync(); err != nil {
		return fmt.Errorf("failed to sync journal: %w", err)
	}
	return nil
}

// Path returns the filesystem path of the journal file.
func (j *Journal) Path() string {
	return j.path
}

// Close flushes and closes the journal.
func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if err := j.writer.Flush(); err != nil {
		j.file.Close()
		return fmt.Errorf("failed to flush journal on close: %w", err)
	}
	if err := j.file.Close(); err != nil {
		return fmt.Errorf("failed to close journal: %w", err)
	}
	return nil
}

// ReadJournal returns all trial records logged for a lineage.
func ReadJournal(dir, id string) ([]TrialRecord, error) {
	path := journalPath(dir, id)
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &NotFoundError{ID: id}
		}
		return nil, fmt.Errorf("failed to open journal file: %w", err)
	}
	defer file.Close()

	var records []TrialRecord
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 16*1024), 1024*1024)
	for scanner.Scan() {
		var rec TrialRecord
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			return nil, fmt.Errorf("failed to unmarshal trial record: %w", err)
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to scan journal: %w", err)
	}
	return records, nil
}

// DeleteJournal removes the journal file for a lineage. Missing files
// are not an error; not every lineage has a journal.
func DeleteJournal(dir, id string) error {
	err := os.Remove(journalPath(dir, id))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete journal: %w", err)
	}
	return nil
}
