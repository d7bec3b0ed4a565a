package persistence

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/danmuck/instrctl/internal/protocol"
)

// Store reads and writes whole catalog snapshots.
type Store interface {
	Load() ([]Record, error)
	Save(records []Record) error
	Path() string
}

// Error is a store failure; it matches protocol.ErrPersistence.
type Error struct {
	Op   string
	Path string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("persistence: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *Error) Unwrap() []error {
	return []error{protocol.ErrPersistence, e.Err}
}

// StoreName derives the snapshot file name from the owning view, e.g.
// StoreName("ControlDemoViewModel", ".xml") == "ControlDemoViewModelCommandList.xml".
func StoreName(owner, ext string) string {
	if ext != "" && ext[0] != '.' {
		ext = "." + ext
	}
	return owner + "CommandList" + ext
}

// FileStore persists snapshots to a single file.
type FileStore struct {
	mu    sync.Mutex
	path  string
	codec Codec
}

// NewFileStore creates a store whose format follows the extension of path.
func NewFileStore(path string) (*FileStore, error) {
	codec, err := CodecFor(path)
	if err != nil {
		return nil, err
	}
	return &FileStore{path: path, codec: codec}, nil
}

func (s *FileStore) Path() string {
	return s.path
}

func (s *FileStore) Format() string {
	return s.codec.Name()
}

// Load reads the snapshot. A missing or blank file yields nil, nil.
func (s *FileStore) Load() ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, &Error{Op: "read", Path: s.path, Err: err}
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}
	records, err := s.codec.Unmarshal(data)
	if err != nil {
		return nil, &Error{Op: "decode", Path: s.path, Err: err}
	}
	return records, nil
}

// Save replaces the snapshot atomically: the previous file survives any failure.
func (s *FileStore) Save(records []Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.codec.Marshal(records)
	if err != nil {
		return &Error{Op: "encode", Path: s.path, Err: err}
	}
	if err := writeFileAtomic(s.path, data, 0o644); err != nil {
		return &Error{Op: "write", Path: s.path, Err: err}
	}
	return nil
}

func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, perm); err != nil {
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		return err
	}
	committed = true
	return nil
}
