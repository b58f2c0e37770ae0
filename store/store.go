package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	appconfig "spreadscan/config"
	"spreadscan/logger"
	"spreadscan/models"
)

// Store persists the scanner state on the local filesystem: the active
// working set snapshot, the trading-pair list and the product metadata
// cache. An optional S3 backup mirrors the working set snapshot after each
// successful write.
type Store struct {
	files  appconfig.FilesConfig
	backup *S3Backup
	log    *logger.Log
}

// NewStore creates a Store over the configured file paths. backup may be
// nil when snapshot mirroring is disabled.
func NewStore(files appconfig.FilesConfig, backup *S3Backup) *Store {
	return &Store{
		files:  files,
		backup: backup,
		log:    logger.GetLogger(),
	}
}

// LoadWorkingSet reads the persisted working set snapshot. A missing file
// is a normal first-run condition and yields an empty set without error.
func (s *Store) LoadWorkingSet() ([]models.SpreadRecord, error) {
	data, err := os.ReadFile(s.files.SpreadPairsFile)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read spread pairs file: %w", err)
	}

	var records []models.SpreadRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to parse spread pairs file: %w", err)
	}
	return records, nil
}

// SaveWorkingSet writes the working set snapshot atomically: the records
// are written to a temporary file in the same directory and renamed over
// the previous snapshot, so a crash mid-write never leaves a truncated
// file. When an S3 backup is configured the snapshot is mirrored after the
// local write succeeds; a backup failure is logged but does not fail the
// save.
func (s *Store) SaveWorkingSet(records []models.SpreadRecord) error {
	if records == nil {
		records = []models.SpreadRecord{}
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal spread pairs: %w", err)
	}

	if err := writeFileAtomic(s.files.SpreadPairsFile, data); err != nil {
		return fmt.Errorf("failed to write spread pairs file: %w", err)
	}
	logger.IncrementSnapshotWrite(len(records))

	if s.backup != nil {
		if err := s.backup.Upload(context.Background(), filepath.Base(s.files.SpreadPairsFile), data); err != nil {
			s.log.WithComponent("store").WithError(err).Warn("failed to back up spread pairs snapshot")
		}
	}
	return nil
}

// writeFileAtomic writes data to path via a temporary file and rename.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}
