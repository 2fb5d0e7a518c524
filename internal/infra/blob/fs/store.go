// Package fs implements a filesystem-backed blob Store for local deployments.
package fs

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gridcore/internal/infra/blob/core"
)

const metaSuffix = ".meta.json"

// Store implements core.Store on top of a directory tree. Each blob is a data
// file plus a JSON metadata sidecar; writes go through a temp file and rename
// so readers never observe partial content.
type Store struct {
	root string
}

// New returns a filesystem blob store rooted at dir (default ./blobdata).
func New(dir string) (*Store, error) {
	if dir == "" {
		dir = "blobdata"
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create blob root: %w", err)
	}
	return &Store{root: dir}, nil
}

// Driver returns the blob driver identifier.
func (s *Store) Driver() core.Driver { return core.DriverFilesystem }

func (s *Store) pathFor(key string) (string, error) {
	clean := filepath.Clean(key)
	if clean == "." || strings.HasPrefix(clean, "..") || filepath.IsAbs(clean) {
		return "", fmt.Errorf("invalid blob key %q", key)
	}
	return filepath.Join(s.root, clean), nil
}

// Put stores a new blob; errors if key exists.
func (s *Store) Put(_ context.Context, key string, r io.Reader, opts core.PutOptions) (core.Info, error) {
	path, err := s.pathFor(key)
	if err != nil {
		return core.Info{}, err
	}
	if _, err := os.Stat(path); err == nil {
		return core.Info{}, fmt.Errorf("blob %s already exists", key)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return core.Info{}, fmt.Errorf("create blob dir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".put-*")
	if err != nil {
		return core.Info{}, fmt.Errorf("create temp: %w", err)
	}
	size, err := io.Copy(tmp, r)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(tmp.Name())
		return core.Info{}, fmt.Errorf("write blob: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		_ = os.Remove(tmp.Name())
		return core.Info{}, fmt.Errorf("rename blob: %w", err)
	}
	stat, err := os.Stat(path)
	if err != nil {
		return core.Info{}, fmt.Errorf("stat blob: %w", err)
	}
	info := core.Info{
		Key:          key,
		Size:         size,
		ContentType:  opts.ContentType,
		Metadata:     opts.Metadata,
		LastModified: stat.ModTime().UTC(),
	}
	if err := s.writeMeta(path, info); err != nil {
		_ = os.Remove(path)
		return core.Info{}, err
	}
	return info, nil
}

func (s *Store) writeMeta(path string, info core.Info) error {
	payload, err := json.Marshal(info)
	if err != nil {
		return fmt.Errorf("marshal meta: %w", err)
	}
	if err := os.WriteFile(path+metaSuffix, payload, 0o640); err != nil {
		return fmt.Errorf("write meta: %w", err)
	}
	return nil
}

func (s *Store) readMeta(key, path string) (core.Info, error) {
	payload, err := os.ReadFile(path + metaSuffix)
	if err != nil {
		return core.Info{}, fmt.Errorf("blob %s not found", key)
	}
	var info core.Info
	if err := json.Unmarshal(payload, &info); err != nil {
		return core.Info{}, fmt.Errorf("decode meta for %s: %w", key, err)
	}
	return info, nil
}

// Get returns blob metadata and a read closer to its content.
func (s *Store) Get(_ context.Context, key string) (core.Info, io.ReadCloser, error) {
	path, err := s.pathFor(key)
	if err != nil {
		return core.Info{}, nil, err
	}
	info, err := s.readMeta(key, path)
	if err != nil {
		return core.Info{}, nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return core.Info{}, nil, fmt.Errorf("blob %s not found", key)
	}
	return info, f, nil
}

// Head returns blob metadata only.
func (s *Store) Head(_ context.Context, key string) (core.Info, error) {
	path, err := s.pathFor(key)
	if err != nil {
		return core.Info{}, err
	}
	return s.readMeta(key, path)
}

// Delete removes the blob returning true if it existed.
func (s *Store) Delete(_ context.Context, key string) (bool, error) {
	path, err := s.pathFor(key)
	if err != nil {
		return false, err
	}
	existed := false
	if err := os.Remove(path); err == nil {
		existed = true
	} else if !os.IsNotExist(err) {
		return false, fmt.Errorf("remove blob: %w", err)
	}
	if err := os.Remove(path + metaSuffix); err != nil && !os.IsNotExist(err) {
		return existed, fmt.Errorf("remove meta: %w", err)
	}
	return existed, nil
}

// List returns all blobs matching prefix, ordered by key.
func (s *Store) List(_ context.Context, prefix string) ([]core.Info, error) {
	var out []core.Info
	err := filepath.WalkDir(s.root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, metaSuffix) {
			return nil
		}
		rel, err := filepath.Rel(s.root, strings.TrimSuffix(path, metaSuffix))
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if prefix != "" && !strings.HasPrefix(key, prefix) {
			return nil
		}
		info, err := s.readMeta(key, strings.TrimSuffix(path, metaSuffix))
		if err != nil {
			return err
		}
		out = append(out, info)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}
