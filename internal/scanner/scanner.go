// Package scanner discovers components on disk and registers them.
//
// A component is a <name>.w.html template next to its metadata, either a
// Go file <name>.go declaring the component struct or a <name>.meta.yaml
// manifest, and an optional <name>.css stylesheet. The scanner keeps a
// CRC32 hash of the three sources for change detection.
package scanner

import (
	"bytes"
	"context"
	"fmt"
	"hash/crc32"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/wane/wane-sub001/internal/errors"
	"github.com/wane/wane-sub001/internal/metadata"
	"github.com/wane/wane-sub001/internal/registry"
)

// File suffixes of the sources making up one component.
const (
	TemplateExt = ".w.html"
	SourceExt   = ".go"
	ManifestExt = ".meta.yaml"
	StyleExt    = ".css"
)

// skipDirs are never descended into.
var skipDirs = map[string]bool{
	".git":         true,
	"vendor":       true,
	"node_modules": true,
}

// ComponentScanner discovers components and registers them.
type ComponentScanner struct {
	registry *registry.ComponentRegistry
	excludes []string
	workers  int
}

// Option configures a ComponentScanner.
type Option func(*ComponentScanner)

// WithExcludes skips files whose base name or slash-separated path matches
// one of the filepath.Match patterns.
func WithExcludes(patterns ...string) Option {
	return func(s *ComponentScanner) { s.excludes = append(s.excludes, patterns...) }
}

// WithWorkers bounds the number of files scanned concurrently.
func WithWorkers(n int) Option {
	return func(s *ComponentScanner) {
		if n > 0 {
			s.workers = n
		}
	}
}

// NewComponentScanner creates a scanner feeding reg.
func NewComponentScanner(reg *registry.ComponentRegistry, opts ...Option) *ComponentScanner {
	workerCount := runtime.NumCPU()
	if workerCount > 8 {
		workerCount = 8 // Cap at 8 workers for diminishing returns
	}
	s := &ComponentScanner{registry: reg, workers: workerCount}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetRegistry returns the component registry
func (s *ComponentScanner) GetRegistry() *registry.ComponentRegistry {
	return s.registry
}

// ScanDirectories scans every directory in order.
func (s *ComponentScanner) ScanDirectories(ctx context.Context, dirs []string) error {
	for _, dir := range dirs {
		if err := s.ScanDirectory(ctx, dir); err != nil {
			return err
		}
	}
	return nil
}

// ScanDirectory registers every component template below dir. All files
// are attempted; the error reports how many failed and the first failure.
func (s *ComponentScanner) ScanDirectory(ctx context.Context, dir string) error {
	root, err := validatePath(dir)
	if err != nil {
		return fmt.Errorf("invalid directory path: %w", err)
	}

	var files []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && skipDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(path, TemplateExt) || s.excluded(root, path) {
			return nil
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return errors.NewIOError(errors.CodeScanFailed, fmt.Sprintf("walking %s", root), err)
	}
	sort.Strings(files)

	var (
		mu     sync.Mutex
		failed []error
	)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for _, file := range files {
		file := file
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := s.ScanFile(file); err != nil {
				mu.Lock()
				failed = append(failed, fmt.Errorf("scanning %s: %w", file, err))
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	if len(failed) > 0 {
		sort.Slice(failed, func(i, j int) bool { return failed[i].Error() < failed[j].Error() })
		return fmt.Errorf("scan completed with %d errors: %w", len(failed), failed[0])
	}
	return nil
}

func (s *ComponentScanner) excluded(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		rel = path
	}
	rel = filepath.ToSlash(rel)
	base := filepath.Base(path)
	for _, pattern := range s.excludes {
		if ok, _ := filepath.Match(pattern, base); ok {
			return true
		}
		if ok, _ := filepath.Match(pattern, rel); ok {
			return true
		}
	}
	return false
}

// ScanFile registers the component whose template is at path.
func (s *ComponentScanner) ScanFile(path string) error {
	cleanPath, err := validatePath(path)
	if err != nil {
		return fmt.Errorf("invalid path: %w", err)
	}
	if !strings.HasSuffix(cleanPath, TemplateExt) {
		return errors.NewValidationError(errors.CodeScanFailed,
			fmt.Sprintf("%s is not a component template (*%s)", cleanPath, TemplateExt))
	}

	info, err := os.Stat(cleanPath)
	if err != nil {
		return errors.NewIOError(errors.CodeScanFailed, "reading template", err)
	}
	tmpl, err := os.ReadFile(cleanPath)
	if err != nil {
		return errors.NewIOError(errors.CodeScanFailed, "reading template", err)
	}

	stem := strings.TrimSuffix(cleanPath, TemplateExt)
	meta, sourcePath, metaSrc, err := loadMetadata(stem)
	if err != nil {
		return err
	}

	stylePath := stem + StyleExt
	style, err := os.ReadFile(stylePath)
	switch {
	case os.IsNotExist(err):
		stylePath, style = "", nil
	case err != nil:
		return errors.NewIOError(errors.CodeScanFailed, "reading style", err)
	}

	s.registry.Register(&registry.ComponentInfo{
		Name:       meta.Name(),
		Template:   string(tmpl),
		Style:      string(style),
		Metadata:   meta,
		FilePath:   cleanPath,
		SourcePath: sourcePath,
		StylePath:  stylePath,
		LastMod:    info.ModTime(),
		Hash:       hashSources(tmpl, metaSrc, style),
	})
	return nil
}

// loadMetadata reads the manifest next to stem, or the Go source when no
// manifest exists.
func loadMetadata(stem string) (metadata.Component, string, []byte, error) {
	manifestPath := stem + ManifestExt
	if src, err := os.ReadFile(manifestPath); err == nil {
		meta, err := metadata.ParseManifest(bytes.NewReader(src))
		if err != nil {
			return nil, "", nil, errors.NewValidationError(errors.CodeInvalidManifest,
				fmt.Sprintf("%s: %v", manifestPath, err))
		}
		return meta, manifestPath, src, nil
	} else if !os.IsNotExist(err) {
		return nil, "", nil, errors.NewIOError(errors.CodeScanFailed, "reading manifest", err)
	}

	sourcePath := stem + SourceExt
	src, err := os.ReadFile(sourcePath)
	if os.IsNotExist(err) {
		return nil, "", nil, errors.NewValidationError(errors.CodeMissingMetadata,
			fmt.Sprintf("%s has neither %s nor %s", stem+TemplateExt, filepath.Base(sourcePath), filepath.Base(manifestPath)))
	}
	if err != nil {
		return nil, "", nil, errors.NewIOError(errors.CodeScanFailed, "reading source", err)
	}

	typeName := registry.NameForTag(strings.ReplaceAll(filepath.Base(stem), "_", "-"))
	meta, err := metadata.FromGoSource(sourcePath, src, typeName)
	if err != nil {
		return nil, "", nil, errors.NewBuildError(errors.CodeMissingMetadata,
			fmt.Sprintf("extracting metadata from %s", sourcePath), err)
	}
	return meta, sourcePath, src, nil
}

func hashSources(parts ...[]byte) string {
	h := crc32.NewIEEE()
	for _, p := range parts {
		h.Write(p)
		h.Write([]byte{0})
	}
	return fmt.Sprintf("%08x", h.Sum32())
}

// TemplateFor maps any component source file to its template path.
func TemplateFor(path string) (string, bool) {
	for _, ext := range []string{TemplateExt, ManifestExt, StyleExt, SourceExt} {
		if strings.HasSuffix(path, ext) {
			if ext == SourceExt && strings.HasSuffix(path, "_test.go") {
				return "", false
			}
			return strings.TrimSuffix(path, ext) + TemplateExt, true
		}
	}
	return "", false
}

// validatePath cleans path and rejects traversal outside of it.
func validatePath(path string) (string, error) {
	if strings.ContainsRune(path, 0) {
		return "", fmt.Errorf("path contains a NUL byte")
	}
	cleanPath := filepath.Clean(path)
	for _, part := range strings.Split(filepath.ToSlash(cleanPath), "/") {
		if part == ".." {
			return "", fmt.Errorf("path contains directory traversal: %s", path)
		}
	}
	return cleanPath, nil
}
