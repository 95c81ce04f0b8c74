// Package workspace implements the sandboxed filesystem all file tools
// operate against. Every operation takes a path relative to a single root
// directory and rejects anything that resolves outside of it, including
// traversal via `..` segments, absolute paths and symbolic links.
package workspace

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

// Workspace confines file operations to a single resolved root directory.
// A Workspace has no internal mutable state after construction and is safe
// for concurrent use; concurrent writes to the same path from different
// callers are not mediated.
type Workspace struct {
	root string // absolute, symlink-resolved
}

// New creates a Workspace rooted at dir, creating the directory if needed.
// The root is resolved once so later containment checks compare against its
// canonical form.
func New(dir string) (*Workspace, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve workspace root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create workspace root: %w", err)
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, fmt.Errorf("resolve workspace root: %w", err)
	}
	return &Workspace{root: resolved}, nil
}

// Root returns the resolved workspace root directory.
func (w *Workspace) Root() string { return w.root }

// SafePath resolves a requested path against the workspace root and returns
// its absolute form. The result is accepted only if it is the root itself or
// has the root as a strict ancestor after resolving symlinks and `..`
// segments. Any other outcome, including resolution failure, is an error.
func (w *Workspace) SafePath(path string) (string, error) {
	candidate := path
	if !filepath.IsAbs(candidate) {
		candidate = filepath.Join(w.root, candidate)
	}
	resolved, err := resolveSymlinks(filepath.Clean(candidate))
	if err != nil {
		return "", fmt.Errorf("path %q escapes workspace directory", path)
	}
	if resolved != w.root && !strings.HasPrefix(resolved, w.root+string(filepath.Separator)) {
		return "", fmt.Errorf("path %q escapes workspace directory", path)
	}
	return resolved, nil
}

// resolveSymlinks resolves symlinks for a path that may not exist yet by
// resolving the deepest existing ancestor and rejoining the remainder.
func resolveSymlinks(path string) (string, error) {
	resolved, err := filepath.EvalSymlinks(path)
	if err == nil {
		return resolved, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return "", err
	}
	dir := filepath.Dir(path)
	if dir == path {
		return "", err
	}
	parent, err := resolveSymlinks(dir)
	if err != nil {
		return "", err
	}
	return filepath.Join(parent, filepath.Base(path)), nil
}

// ReadFile returns the text of a file within the workspace.
func (w *Workspace) ReadFile(path string) (string, error) {
	safe, err := w.SafePath(path)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(safe)
	if err != nil {
		return "", fmt.Errorf("file not found: %s", path)
	}
	if !info.Mode().IsRegular() {
		return "", fmt.Errorf("not a file: %s", path)
	}
	data, err := os.ReadFile(safe)
	if err != nil {
		return "", fmt.Errorf("reading file: %w", err)
	}
	return string(data), nil
}

// WriteFile creates or overwrites a file within the workspace, creating
// parent directories as needed.
func (w *Workspace) WriteFile(path, content string) error {
	safe, err := w.SafePath(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(safe), 0o755); err != nil {
		return fmt.Errorf("creating parent directories: %w", err)
	}
	if err := os.WriteFile(safe, []byte(content), 0o644); err != nil {
		return fmt.Errorf("writing file: %w", err)
	}
	return nil
}

// EditFile replaces the first literal occurrence of search with replace in
// the named file. It fails if the file is missing or search does not occur.
func (w *Workspace) EditFile(path, search, replace string) error {
	safe, err := w.SafePath(path)
	if err != nil {
		return err
	}
	if _, err := os.Stat(safe); err != nil {
		return fmt.Errorf("file not found: %s", path)
	}
	data, err := os.ReadFile(safe)
	if err != nil {
		return fmt.Errorf("reading file: %w", err)
	}
	content := string(data)
	if !strings.Contains(content, search) {
		return fmt.Errorf("search string not found in %s", path)
	}
	content = strings.Replace(content, search, replace, 1)
	if err := os.WriteFile(safe, []byte(content), 0o644); err != nil {
		return fmt.Errorf("writing file: %w", err)
	}
	return nil
}

// ListFiles returns the relative paths of regular files matching a glob
// pattern, sorted lexicographically. The glob is rooted at the workspace and
// each match is re-checked for containment.
func (w *Workspace) ListFiles(pattern string) ([]string, error) {
	matches, err := fs.Glob(os.DirFS(w.root), pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid glob pattern: %w", err)
	}
	var files []string
	for _, rel := range matches {
		safe, err := w.SafePath(rel)
		if err != nil {
			continue
		}
		info, err := os.Stat(safe)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		files = append(files, rel)
	}
	sort.Strings(files)
	return files, nil
}

// SearchFiles runs a regular expression line-by-line over files matching a
// glob pattern, returning "path:line: text" entries in file-then-line order.
func (w *Workspace) SearchFiles(pattern, filePattern string) ([]string, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid regex pattern: %w", err)
	}
	files, err := w.ListFiles(filePattern)
	if err != nil {
		return nil, err
	}
	var results []string
	for _, rel := range files {
		safe, err := w.SafePath(rel)
		if err != nil {
			continue
		}
		data, err := os.ReadFile(safe)
		if err != nil {
			continue // unreadable files are skipped, not fatal
		}
		for i, line := range strings.Split(string(data), "\n") {
			if re.MatchString(line) {
				results = append(results, fmt.Sprintf("%s:%d: %s", rel, i+1, strings.TrimSpace(line)))
			}
		}
	}
	return results, nil
}
