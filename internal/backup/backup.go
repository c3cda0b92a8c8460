// Package backup persists pre-mutation record snapshots as JSON files.
// Snapshots are write-once: every mutating call gets its own timestamped
// file under a per-record directory, and existing files are never touched.
package backup

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/folio-labs/folioctl/client"
	"github.com/folio-labs/folioctl/internal/metrics"
)

// Store writes record snapshots under a root directory.
type Store struct {
	dir string
	log *logrus.Logger

	// now is swappable for tests; wall clock otherwise.
	now func() time.Time
}

// NewStore creates a Store rooted at dir.
func NewStore(dir string, log *logrus.Logger) *Store {
	return &Store{dir: dir, log: log, now: time.Now}
}

// Write snapshots the record body to <dir>/<record id>/<timestamp>.json
// and returns the file path. The timestamp carries millisecond precision;
// two snapshots of one record in the same millisecond collide, which the
// exclusive create turns into an error instead of an overwrite.
func (s *Store) Write(record client.Body) (string, error) {
	id := record.ID()
	if id == "" {
		return "", fmt.Errorf("record has no id, refusing to back up")
	}

	recordDir := filepath.Join(s.dir, id)
	if err := os.MkdirAll(recordDir, 0o755); err != nil {
		return "", fmt.Errorf("create backup directory: %w", err)
	}

	stamp := s.now().Format("20060102-150405.000")
	path := filepath.Join(recordDir, stamp+".json")

	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode record %s: %w", id, err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("create backup file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return "", fmt.Errorf("write backup file: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close backup file: %w", err)
	}

	metrics.BackupsWritten.Inc()
	s.log.WithFields(logrus.Fields{"record": id, "file": path}).Debug("backed up record")
	return path, nil
}
