package ledger

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/borealmoveis/atendebot/internal/fsstore"
)

const ledgerFileVersion = 1

type ledgerFile struct {
	Version int      `json:"version"`
	Records []Record `json:"records"`
}

// FileStore keeps the ledger in a single versioned JSON file. Every mutation
// is a read-modify-write of the whole file under an advisory lock and lands
// through an atomic rename.
type FileStore struct {
	path string
	mu   sync.Mutex
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: strings.TrimSpace(path)}
}

func (s *FileStore) Ensure(ctx context.Context) error {
	if err := ensureNotCanceled(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return fsstore.EnsureDir(filepath.Dir(s.filePath()), 0o700)
}

func (s *FileStore) Upsert(ctx context.Context, record Record) (Record, error) {
	if err := ensureNotCanceled(ctx); err != nil {
		return Record{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	lockPath, err := s.lockPath()
	if err != nil {
		return Record{}, err
	}

	var stored Record
	err = fsstore.WithLock(ctx, lockPath, func() error {
		record, err := normalizeRecord(record, time.Now().UTC())
		if err != nil {
			return err
		}
		records, err := s.loadLocked()
		if err != nil {
			return err
		}
		for _, item := range records {
			if item.ID == record.ID {
				// Existing engagement wins: a repeat request neither
				// duplicates the record nor resets its delivery state.
				stored = item
				return nil
			}
		}
		record.FollowUpSent = false
		records = append(records, record)
		stored = record
		return s.saveLocked(records)
	})
	if err != nil {
		return Record{}, err
	}
	return stored, nil
}

func (s *FileStore) Get(ctx context.Context, id string) (Record, bool, error) {
	if err := ensureNotCanceled(ctx); err != nil {
		return Record{}, false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.loadLocked()
	if err != nil {
		return Record{}, false, err
	}
	id = strings.TrimSpace(id)
	for _, item := range records {
		if item.ID == id {
			return item, true, nil
		}
	}
	return Record{}, false, nil
}

func (s *FileStore) List(ctx context.Context) ([]Record, error) {
	if err := ensureNotCanceled(ctx); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked()
}

func (s *FileStore) FindDue(ctx context.Context, now time.Time, thresholdDays int) ([]Record, error) {
	if err := ensureNotCanceled(ctx); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.loadLocked()
	if err != nil {
		return nil, err
	}
	now = now.UTC()
	due := make([]Record, 0, len(records))
	for _, item := range records {
		if isDue(item, now, thresholdDays) {
			due = append(due, item)
		}
	}
	return due, nil
}

func (s *FileStore) MarkSent(ctx context.Context, id string) error {
	if err := ensureNotCanceled(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	lockPath, err := s.lockPath()
	if err != nil {
		return err
	}

	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("ledger: record id is required")
	}
	return fsstore.WithLock(ctx, lockPath, func() error {
		records, err := s.loadLocked()
		if err != nil {
			return err
		}
		for i := range records {
			if records[i].ID != id {
				continue
			}
			if records[i].FollowUpSent {
				return nil
			}
			records[i].FollowUpSent = true
			return s.saveLocked(records)
		}
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	})
}

func (s *FileStore) loadLocked() ([]Record, error) {
	var file ledgerFile
	ok, err := fsstore.ReadJSON(s.filePath(), &file)
	if err != nil {
		return nil, err
	}
	if !ok {
		return []Record{}, nil
	}
	if file.Version != ledgerFileVersion {
		return nil, fmt.Errorf("ledger: unsupported file version: %d", file.Version)
	}
	out := make([]Record, 0, len(file.Records))
	for _, item := range file.Records {
		normalized, normalizeErr := normalizeRecord(item, time.Now().UTC())
		if normalizeErr != nil {
			return nil, normalizeErr
		}
		out = append(out, normalized)
	}
	sortRecords(out)
	return out, nil
}

func (s *FileStore) saveLocked(records []Record) error {
	sortRecords(records)
	file := ledgerFile{Version: ledgerFileVersion, Records: records}
	return fsstore.WriteJSONAtomic(s.filePath(), file, fsstore.FileOptions{
		DirPerm:  0o700,
		FilePerm: 0o600,
	})
}

func (s *FileStore) lockPath() (string, error) {
	return fsstore.BuildLockPath(filepath.Join(filepath.Dir(s.filePath()), ".fslocks"), "ledger.main")
}

func (s *FileStore) filePath() string {
	path := strings.TrimSpace(s.path)
	if path == "" {
		return "ledger.json"
	}
	return filepath.Clean(path)
}

func sortRecords(records []Record) {
	sort.Slice(records, func(i, j int) bool {
		if records[i].EngagedAt.Equal(records[j].EngagedAt) {
			return records[i].ID < records[j].ID
		}
		return records[i].EngagedAt.Before(records[j].EngagedAt)
	})
}
