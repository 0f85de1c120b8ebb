// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package ingestion

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const fileScheme = "file:///"

// ObjectSource abstracts where source objects live. The filesystem
// implementation below serves local corpora; bucket-backed sources
// implement the same two methods.
type ObjectSource interface {
	// List returns the URIs of all objects whose key starts with prefix,
	// sorted. An empty prefix lists everything.
	List(ctx context.Context, prefix string) ([]string, error)

	// Fetch returns an object's raw bytes and detected content type.
	// Returns ErrObjectNotFound if the URI doesn't resolve to an object.
	Fetch(ctx context.Context, uri string) ([]byte, string, error)
}

// FilesystemSource serves objects from a directory tree. Object keys
// are root-relative slash paths, exposed as file:///<key> URIs.
type FilesystemSource struct {
	root string
}

var _ ObjectSource = (*FilesystemSource)(nil)

// NewFilesystemSource creates a source rooted at dir.
func NewFilesystemSource(dir string) (*FilesystemSource, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve source root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("stat source root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("source root %s is not a directory", abs)
	}
	return &FilesystemSource{root: abs}, nil
}

// List walks the tree and returns file:// URIs for every regular file
// under prefix.
func (s *FilesystemSource) List(ctx context.Context, prefix string) ([]string, error) {
	var uris []string
	err := filepath.WalkDir(s.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(s.root, p)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if strings.HasPrefix(key, prefix) {
			uris = append(uris, fileScheme+key)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list objects under %q: %w", prefix, err)
	}
	sort.Strings(uris)
	return uris, nil
}

// Fetch reads an object by its file:// URI.
func (s *FilesystemSource) Fetch(ctx context.Context, uri string) ([]byte, string, error) {
	if ctx.Err() != nil {
		return nil, "", ctx.Err()
	}

	key, ok := strings.CutPrefix(uri, fileScheme)
	if !ok || key == "" {
		return nil, "", fmt.Errorf("%w: %q", ErrObjectNotFound, uri)
	}

	full := filepath.Join(s.root, filepath.FromSlash(key))
	rel, err := filepath.Rel(s.root, full)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return nil, "", fmt.Errorf("%w: %q", ErrOutsideRoot, uri)
	}

	data, err := os.ReadFile(full)
	if os.IsNotExist(err) {
		return nil, "", fmt.Errorf("%w: %q", ErrObjectNotFound, uri)
	}
	if err != nil {
		return nil, "", fmt.Errorf("read object %q: %w", uri, err)
	}
	return data, DetectContentType(uri), nil
}
