// Package filekv stores save-slot keys as one file per key on an afero
// filesystem: <root>/<slot>/<key>.json.
package filekv

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"

	"github.com/cory-johannsen/fazenda/internal/storage"
)

// KV is a storage.KV backed by files.
type KV struct {
	fs  afero.Fs
	dir string
}

var _ storage.KV = (*KV)(nil)

// New returns a KV rooted at filepath.Join(root, slot), creating the
// directory if needed.
//
// Precondition: fsys must be non-nil; slot must be non-empty and contain no path separators.
// Postcondition: Returns a ready KV or a non-nil error.
func New(fsys afero.Fs, root, slot string) (*KV, error) {
	if slot == "" || strings.ContainsAny(slot, `/\`) {
		return nil, fmt.Errorf("filekv: invalid slot %q", slot)
	}
	dir := filepath.Join(root, slot)
	if err := fsys.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("filekv: creating slot dir %q: %w", dir, err)
	}
	return &KV{fs: fsys, dir: dir}, nil
}

// NewOS returns a KV on the host filesystem.
func NewOS(root, slot string) (*KV, error) {
	return New(afero.NewOsFs(), root, slot)
}

// Slots lists the slot directories under root that hold at least one key,
// alphabetically. A missing root has no slots.
func Slots(fsys afero.Fs, root string) ([]string, error) {
	entries, err := afero.ReadDir(fsys, root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("filekv: listing %q: %w", root, err)
	}
	slots := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		keys, err := afero.Glob(fsys, filepath.Join(root, e.Name(), "*.json"))
		if err != nil {
			return nil, fmt.Errorf("filekv: listing slot %q: %w", e.Name(), err)
		}
		if len(keys) > 0 {
			slots = append(slots, e.Name())
		}
	}
	sort.Strings(slots)
	return slots, nil
}

func (k *KV) path(key string) (string, error) {
	if key == "" || strings.ContainsAny(key, `/\`) || strings.HasPrefix(key, ".") {
		return "", fmt.Errorf("filekv: invalid key %q", key)
	}
	return filepath.Join(k.dir, key+".json"), nil
}

// Get reads the file for key.
func (k *KV) Get(_ context.Context, key string) ([]byte, error) {
	p, err := k.path(key)
	if err != nil {
		return nil, err
	}
	data, err := afero.ReadFile(k.fs, p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("filekv: reading %q: %w", key, err)
	}
	return data, nil
}

// Put writes value to a temp file and renames it over the key's file so a
// reader never observes a partial write.
func (k *KV) Put(_ context.Context, key string, value []byte) error {
	p, err := k.path(key)
	if err != nil {
		return err
	}
	tmp := p + ".tmp"
	if err := afero.WriteFile(k.fs, tmp, value, 0o644); err != nil {
		return fmt.Errorf("filekv: writing %q: %w", key, err)
	}
	if err := k.fs.Rename(tmp, p); err != nil {
		_ = k.fs.Remove(tmp)
		return fmt.Errorf("filekv: committing %q: %w", key, err)
	}
	return nil
}

// Delete removes the file for key.
func (k *KV) Delete(_ context.Context, key string) error {
	p, err := k.path(key)
	if err != nil {
		return err
	}
	if err := k.fs.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("filekv: deleting %q: %w", key, err)
	}
	return nil
}
