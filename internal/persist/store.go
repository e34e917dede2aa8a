// Package persist is the on-disk record store behind the mock store service.
package persist

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"pkt.systems/pslog"
	"pkt.systems/tabedit/schema"
)

const (
	recordsDir  = "records"
	currentFile = "current.json"
)

// Record is one stored document.
type Record struct {
	Filename schema.Filename `json:"filename"`
	Content  string          `json:"content"`
}

// Store persists records to disk, one file per filename. The most recent
// save is also kept as the current record, which search operates on.
type Store struct {
	dir string
	log pslog.Logger
}

// NewStore constructs a record store at the given directory.
func NewStore(dir string) (*Store, error) {
	return NewStoreWithLogger(dir, nil)
}

// NewStoreWithLogger constructs a record store with logging.
func NewStoreWithLogger(dir string, logger pslog.Logger) (*Store, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("data directory is required")
	}
	if err := os.MkdirAll(filepath.Join(dir, recordsDir), 0o700); err != nil {
		return nil, err
	}
	if logger != nil {
		logger = logger.With("data_dir", dir)
	}
	return &Store{dir: dir, log: logger}, nil
}

// Save upserts the record for filename and marks it current.
func (s *Store) Save(filename schema.Filename, content string) error {
	if err := schema.ValidateFilename(filename); err != nil {
		return err
	}
	record := Record{Filename: filename, Content: content}
	if err := s.writeJSON(s.pathForFile(filename), record); err != nil {
		s.warn("record save failed", filename, err)
		return err
	}
	if err := s.writeJSON(filepath.Join(s.dir, currentFile), record); err != nil {
		s.warn("record save failed", filename, err)
		return err
	}
	if s.log != nil {
		s.log.Trace("record save ok", "file", filename, "content_len", len(content))
	}
	return nil
}

// Load reads the record for filename.
func (s *Store) Load(filename schema.Filename) (Record, bool, error) {
	return s.readJSON(s.pathForFile(filename), filename)
}

// Current returns the most recently saved record.
func (s *Store) Current() (Record, bool, error) {
	return s.readJSON(filepath.Join(s.dir, currentFile), "")
}

func (s *Store) readJSON(path string, filename schema.Filename) (Record, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			if s.log != nil {
				s.log.Debug("record load miss", "file", filename)
			}
			return Record{}, false, nil
		}
		s.warn("record load failed", filename, err)
		return Record{}, false, err
	}
	var record Record
	if err := json.Unmarshal(data, &record); err != nil {
		s.warn("record load failed", filename, err)
		return Record{}, false, err
	}
	if filename != "" && record.Filename != filename {
		// Sanitized names collided; treat as a miss.
		return Record{}, false, nil
	}
	if s.log != nil {
		s.log.Debug("record load ok", "file", record.Filename, "content_len", len(record.Content))
	}
	return record, true, nil
}

func (s *Store) writeJSON(path string, record Record) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), "record-*.json")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o600); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func (s *Store) warn(msg string, filename schema.Filename, err error) {
	if s.log != nil {
		s.log.Warn(msg, "file", filename, "err", err)
	}
}

func (s *Store) pathForFile(filename schema.Filename) string {
	name := sanitize(string(filename))
	if name == "" {
		name = "unknown"
	}
	sum := sha256.Sum256([]byte(filename))
	return filepath.Join(s.dir, recordsDir, name+"-"+hex.EncodeToString(sum[:4])+".json")
}

func sanitize(value string) string {
	var b strings.Builder
	for _, r := range value {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			continue
		}
		if r == '-' || r == '_' || r == '.' {
			b.WriteRune(r)
			continue
		}
		b.WriteRune('_')
	}
	return b.String()
}
