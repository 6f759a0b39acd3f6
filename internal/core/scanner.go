package core

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gobwas/glob"
)

// Directory is one directory visited below the scan root.
type Directory struct {
	// Path is the OS path of the directory.
	Path string

	// Rel is the slash-separated path relative to the scan root.
	Rel string

	// Name is the base name of the directory.
	Name string

	// Files lists the names of the non-directory entries directly inside
	// the directory, sorted lexicographically.
	Files []string
}

// ScanResult is the ordered outcome of a walk.
type ScanResult struct {
	Root string

	// Directories are in walk order: lexical, parents before children.
	Directories []Directory

	// Skipped lists directories that could not be listed, in walk order.
	Skipped []*DirectoryError
}

// Scanner walks a root directory and lists every directory below it.
//
// Determinism:
//   - Walk order is lexical (filepath.WalkDir), parents before children.
//   - File lists are sorted explicitly; the OS listing order is not trusted.
//
// Only directory listings are read. File contents are never opened here.
type Scanner struct {
	// Root is the directory to walk. It is never reported as a Directory.
	Root string

	exclude []matcher
}

// NewScanner creates a Scanner for root.
//
// Exclude patterns use glob syntax with '/' as separator ("*" stays inside
// one path element, "**" crosses elements). A pattern containing '/' is
// matched against the root-relative path; any other pattern is matched
// against the entry's base name. Excluded directories are not descended.
func NewScanner(root string, exclude []string) (*Scanner, error) {
	s := &Scanner{Root: filepath.Clean(root)}
	for _, p := range exclude {
		g, err := glob.Compile(p, '/')
		if err != nil {
			return nil, fmt.Errorf("exclude pattern %q: %w", p, err)
		}
		s.exclude = append(s.exclude, matcher{Glob: g, path: strings.Contains(p, "/")})
	}
	return s, nil
}

type matcher struct {
	glob.Glob
	path bool
}

// Scan walks the root.
//
// Returns a *ScanError if the root itself cannot be read or is not a
// directory. Unreadable subdirectories are recorded in ScanResult.Skipped
// and their subtrees are not visited.
func (s *Scanner) Scan(ctx context.Context) (*ScanResult, error) {
	root := s.Root
	info, err := os.Stat(root)
	if err != nil {
		return nil, &ScanError{Root: root, Cause: err}
	}
	if !info.IsDir() {
		return nil, &ScanError{Root: root, Cause: fmt.Errorf("not a directory")}
	}

	res := &ScanResult{Root: root}
	index := make(map[string]int)
	dropped := make(map[int]bool)

	// WalkDir does not follow a symlinked root; the trailing separator makes
	// the root Lstat resolve the link while children keep the link prefix.
	walkRoot := root
	if !strings.HasSuffix(walkRoot, string(filepath.Separator)) {
		walkRoot += string(filepath.Separator)
	}
	isRoot := func(path string) bool { return path == root || path == walkRoot }

	err = filepath.WalkDir(walkRoot, func(path string, d fs.DirEntry, err error) error {
		if cerr := ctx.Err(); cerr != nil {
			return cerr
		}
		if err != nil {
			if isRoot(path) {
				return &ScanError{Root: root, Cause: err}
			}
			// Second call for a directory whose listing failed: forget
			// the entry recorded on the first call.
			if i, ok := index[path]; ok {
				dropped[i] = true
				delete(index, path)
			}
			res.Skipped = append(res.Skipped, &DirectoryError{Path: path, Cause: err})
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if isRoot(path) {
			return nil
		}

		rel := filepath.ToSlash(relTo(root, path))
		if s.excluded(rel, d.Name()) {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			index[path] = len(res.Directories)
			res.Directories = append(res.Directories, Directory{
				Path: path,
				Rel:  rel,
				Name: d.Name(),
			})
			return nil
		}
		if d.Type()&fs.ModeSymlink != 0 && isDirLink(path) {
			return nil
		}

		if i, ok := index[filepath.Dir(path)]; ok {
			res.Directories[i].Files = append(res.Directories[i].Files, d.Name())
		}
		return nil
	})
	if err != nil {
		var se *ScanError
		if errors.As(err, &se) {
			return nil, se
		}
		return nil, fmt.Errorf("walking %s: %w", root, err)
	}

	if len(dropped) > 0 {
		kept := res.Directories[:0]
		for i, dir := range res.Directories {
			if !dropped[i] {
				kept = append(kept, dir)
			}
		}
		res.Directories = kept
	}
	// Sort for determinism
	// CRITICAL: Do not rely on filesystem ordering
	for i := range res.Directories {
		sort.Strings(res.Directories[i].Files)
	}
	return res, nil
}

func (s *Scanner) excluded(rel, name string) bool {
	for _, m := range s.exclude {
		if m.path && m.Match(rel) {
			return true
		}
		if !m.path && m.Match(name) {
			return true
		}
	}
	return false
}

func relTo(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return path
	}
	return rel
}

// isDirLink reports whether a symlink resolves to a directory. Linked
// directories are neither followed nor listed as files.
func isDirLink(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
