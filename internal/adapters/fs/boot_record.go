package fs

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/bft-labs/snapship/internal/domain"
)

const bootRecordFileName = "boot.json"

// BootRecordFile implements ports.BootRecordRepository using a JSON file.
type BootRecordFile struct {
	dir string
}

// NewBootRecordFile creates a BootRecordFile for the given state directory.
func NewBootRecordFile(dir string) *BootRecordFile {
	return &BootRecordFile{dir: dir}
}

// Load returns the record written by the previous process.
// Returns an empty record and nil error if no record exists.
func (r *BootRecordFile) Load(ctx context.Context) (domain.BootRecord, error) {
	data, err := os.ReadFile(r.Path())
	if err != nil {
		if os.IsNotExist(err) {
			return domain.BootRecord{}, nil
		}
		return domain.BootRecord{}, err
	}

	var rec domain.BootRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return domain.BootRecord{}, err
	}
	return rec, nil
}

// Save persists rec atomically (temp file, then rename) so a power cut
// never leaves a torn record.
func (r *BootRecordFile) Save(ctx context.Context, rec domain.BootRecord) error {
	if err := os.MkdirAll(r.dir, 0o700); err != nil {
		return err
	}

	path := r.Path()
	tmp := path + ".tmp"

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// Path returns the full path to the record file.
func (r *BootRecordFile) Path() string {
	return filepath.Join(r.dir, bootRecordFileName)
}
