package sample

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"perfagg/internal/util"
)

// Source gives read access to measurement files below a root location.
// Names are slash separated and relative to the root.
type Source interface {
	// Location describes the root, e.g., a local directory or s3://bucket/prefix.
	Location() string
	// List returns the sorted names of the regular files directly inside dir.
	List(ctx context.Context, dir string) ([]string, error)
	// Open opens a file for reading. A missing file yields an error matching fs.ErrNotExist.
	Open(ctx context.Context, name string) (io.ReadCloser, error)
	Close() error
}

// SourceOptions configure remote sources.
type SourceOptions struct {
	KeyFile string // private key for sftp sources
}

// OpenSource returns the Source for a location: s3://bucket/prefix,
// sftp://user@host[:port]/path, or a local directory.
func OpenSource(ctx context.Context, location string, opts SourceOptions) (Source, error) {
	switch {
	case strings.HasPrefix(location, "s3://"):
		return newS3Source(ctx, location)
	case strings.HasPrefix(location, "sftp://"):
		return newSFTPSource(location, opts.KeyFile)
	}
	return NewLocalSource(location)
}

// Join joins slash separated name elements.
func Join(elem ...string) string {
	return path.Join(elem...)
}

type localSource struct {
	root string
}

// NewLocalSource returns a Source reading from a local directory.
func NewLocalSource(root string) (Source, error) {
	absRoot, err := util.AbsPath(root)
	if err != nil {
		return nil, fmt.Errorf("failed to expand input dir: %w", err)
	}
	exists, err := util.DirectoryExists(absRoot)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("input dir %s does not exist", absRoot)
	}
	return &localSource{root: absRoot}, nil
}

func (s *localSource) Location() string {
	return s.root
}

func (s *localSource) List(_ context.Context, dir string) ([]string, error) {
	entries, err := os.ReadDir(s.path(dir))
	if err != nil {
		return nil, err
	}
	var names []string
	for _, entry := range entries {
		if entry.Type().IsRegular() {
			names = append(names, entry.Name())
		}
	}
	slices.Sort(names)
	return names, nil
}

func (s *localSource) Open(_ context.Context, name string) (io.ReadCloser, error) {
	return os.Open(s.path(name)) // #nosec G304
}

func (s *localSource) Close() error {
	return nil
}

func (s *localSource) path(name string) string {
	return filepath.Join(s.root, filepath.FromSlash(name))
}
