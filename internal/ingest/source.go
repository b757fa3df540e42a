// Waitcore - Theme Park Wait Time Data Pipeline and Modeling Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/openwaits/waitcore

// Package ingest implements the Source Ingest component (C2): discovery
// and classification of historical source files, chunked parsing into
// canonical observations, transient-error retry, and processed/failure
// state-store bookkeeping.
package ingest

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ObjectMeta describes one discoverable source file.
type ObjectMeta struct {
	Key          string    // path relative to the source root, forward-slash separated
	LastModified time.Time // source marker compared against the processed catalog
	Size         int64
}

// Source lists and opens historical source files. A single FilesystemSource
// implementation backs production use; tests substitute an in-memory one.
// No object-storage SDK appears anywhere in the retrieval pack (the
// teacher's go.mod carries no AWS/MinIO/GCS client), so this stays on the
// standard library rather than inventing a dependency with nothing in the
// corpus to ground it on.
type Source interface {
	List(ctx context.Context, scopes []string) ([]ObjectMeta, error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// FilesystemSource reads source objects from a directory tree: scopes are
// its top-level subdirectories (one per property), and within each scope
// the "standby/" and "fastpass/" prefixes hold the two source families.
type FilesystemSource struct {
	Root string
}

func (s *FilesystemSource) List(ctx context.Context, scopes []string) ([]ObjectMeta, error) {
	var out []ObjectMeta
	dirs := scopes
	if len(dirs) == 0 {
		entries, err := os.ReadDir(s.Root)
		if err != nil {
			return nil, fmt.Errorf("list scopes under %s: %w", s.Root, err)
		}
		for _, e := range entries {
			if e.IsDir() {
				dirs = append(dirs, e.Name())
			}
		}
	}

	for _, scope := range dirs {
		scopeRoot := filepath.Join(s.Root, scope)
		err := filepath.WalkDir(scopeRoot, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				if os.IsNotExist(err) {
					return nil
				}
				return err
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			if d.IsDir() {
				return nil
			}
			info, err := d.Info()
			if err != nil {
				return fmt.Errorf("stat %s: %w", path, err)
			}
			rel, err := filepath.Rel(s.Root, path)
			if err != nil {
				return err
			}
			out = append(out, ObjectMeta{
				Key:          filepath.ToSlash(rel),
				LastModified: info.ModTime(),
				Size:         info.Size(),
			})
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walk scope %s: %w", scope, err)
		}
	}
	return out, nil
}

func (s *FilesystemSource) Open(_ context.Context, key string) (io.ReadCloser, error) {
	path := filepath.Join(s.Root, filepath.FromSlash(key))
	if !strings.HasPrefix(filepath.Clean(path), filepath.Clean(s.Root)) {
		return nil, fmt.Errorf("key %q escapes source root", key)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return f, nil
}
