package cart

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// FileSlot keeps the snapshot in <dir>/<session>.json. Writes go through a
// temp file and rename so readers never see a partial snapshot.
type FileSlot struct {
	path string
}

func NewFileSlot(dir, sessionID string) (*FileSlot, error) {
	name := sessionID
	if name == "" {
		name = DefaultKey
	}
	if strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return nil, fmt.Errorf("invalid session id %q", sessionID)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cart dir: %w", err)
	}
	return &FileSlot{path: filepath.Join(dir, name+".json")}, nil
}

func (f *FileSlot) Load(_ context.Context) ([]byte, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrSlotEmpty
	}
	if err != nil {
		return nil, fmt.Errorf("read cart file: %w", err)
	}
	return data, nil
}

func (f *FileSlot) Save(_ context.Context, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(f.path), ".cart-*")
	if err != nil {
		return fmt.Errorf("create temp cart file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write cart file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close cart file: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return fmt.Errorf("replace cart file: %w", err)
	}
	return nil
}

func (f *FileSlot) Path() string {
	return f.path
}
