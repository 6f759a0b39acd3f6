package core

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("failed to create dirs: %v", err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("failed to write %s: %v", path, err)
		}
	}
}

func scanRels(res *ScanResult) []string {
	rels := make([]string, 0, len(res.Directories))
	for _, d := range res.Directories {
		rels = append(rels, d.Rel)
	}
	return rels
}

// TestScan_RecursiveWalkSkipsRoot verifies every directory below the root is
// listed, in lexical pre-order, and the root itself is not.
func TestScan_RecursiveWalkSkipsRoot(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"root.txt":                     "not a program",
		"progB/vertex.glsl":            "v",
		"progA/fragment.glsl":          "f",
		"progA/vertex.glsl":            "v",
		"group/nested/vertex.glsl":     "v",
		"group/nested/fragment.glsl":   "f",
		"group/nested/deeper/tcs.glsl": "t",
	})

	s, err := NewScanner(root, nil)
	if err != nil {
		t.Fatalf("NewScanner failed: %v", err)
	}
	res, err := s.Scan(context.Background())
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}

	expected := []string{"group", "group/nested", "group/nested/deeper", "progA", "progB"}
	if got := scanRels(res); !reflect.DeepEqual(got, expected) {
		t.Fatalf("expected directories %v, got %v", expected, got)
	}
	if len(res.Directories[0].Files) != 0 {
		t.Errorf("group should have no files, got %v", res.Directories[0].Files)
	}
	if res.Directories[1].Name != "nested" {
		t.Errorf("expected base name nested, got %q", res.Directories[1].Name)
	}
	if res.Directories[1].Path != filepath.Join(root, "group", "nested") {
		t.Errorf("unexpected path %q", res.Directories[1].Path)
	}
}

// TestScan_FilesSorted verifies file lists do not depend on creation order.
func TestScan_FilesSorted(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "prog")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("failed to create dir: %v", err)
	}
	for _, name := range []string{"zebra.glsl", "fragment.glsl", "apple.glsl"} {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0o644); err != nil {
			t.Fatalf("failed to write %s: %v", name, err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "sub"), 0o755); err != nil {
		t.Fatalf("failed to create sub: %v", err)
	}

	s, _ := NewScanner(root, nil)
	res, err := s.Scan(context.Background())
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}

	expected := []string{"apple.glsl", "fragment.glsl", "zebra.glsl"}
	if !reflect.DeepEqual(res.Directories[0].Files, expected) {
		t.Fatalf("expected %v, got %v", expected, res.Directories[0].Files)
	}
}

// TestScan_MissingRootFails verifies an unreadable root is fatal.
func TestScan_MissingRootFails(t *testing.T) {
	s, _ := NewScanner(filepath.Join(t.TempDir(), "missing"), nil)
	_, err := s.Scan(context.Background())
	if err == nil {
		t.Fatal("expected error for missing root")
	}
	var se *ScanError
	if !errors.As(err, &se) {
		t.Fatalf("expected *ScanError, got %T", err)
	}
	if !errors.Is(err, ErrScanRoot) || !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("expected ErrScanRoot wrapping ErrNotExist, got %v", err)
	}
}

// TestScan_SymlinkedRootIsFollowed verifies a root that is a link to a
// directory is walked, with paths kept under the link.
func TestScan_SymlinkedRootIsFollowed(t *testing.T) {
	target := t.TempDir()
	writeTree(t, target, map[string]string{
		"progA/vertex.glsl":   "v",
		"progA/fragment.glsl": "f",
	})
	link := filepath.Join(t.TempDir(), "link")
	if err := os.Symlink(target, link); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}

	for _, root := range []string{link, link + string(filepath.Separator)} {
		s, _ := NewScanner(root, nil)
		res, err := s.Scan(context.Background())
		if err != nil {
			t.Fatalf("%s: Scan failed: %v", root, err)
		}
		if got := scanRels(res); !reflect.DeepEqual(got, []string{"progA"}) {
			t.Fatalf("%s: expected [progA], got %v", root, got)
		}
		dir := res.Directories[0]
		if dir.Path != filepath.Join(link, "progA") {
			t.Errorf("%s: expected path under the link, got %q", root, dir.Path)
		}
		if !reflect.DeepEqual(dir.Files, []string{"fragment.glsl", "vertex.glsl"}) {
			t.Errorf("%s: unexpected files %v", root, dir.Files)
		}
	}
}

// TestScan_RootIsFileFails verifies a regular file is not a valid root.
func TestScan_RootIsFileFails(t *testing.T) {
	file := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}
	s, _ := NewScanner(file, nil)
	if _, err := s.Scan(context.Background()); !errors.Is(err, ErrScanRoot) {
		t.Fatalf("expected ErrScanRoot, got %v", err)
	}
}

// TestScan_UnreadableSubdirectorySkipped verifies a listing failure below
// the root is reported and does not abort the walk.
func TestScan_UnreadableSubdirectorySkipped(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permission bits are not enforced for root")
	}
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"locked/vertex.glsl": "v",
		"open/vertex.glsl":   "v",
	})
	locked := filepath.Join(root, "locked")
	if err := os.Chmod(locked, 0o000); err != nil {
		t.Fatalf("chmod failed: %v", err)
	}
	t.Cleanup(func() { _ = os.Chmod(locked, 0o755) })

	s, _ := NewScanner(root, nil)
	res, err := s.Scan(context.Background())
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if got := scanRels(res); !reflect.DeepEqual(got, []string{"open"}) {
		t.Fatalf("expected only open, got %v", got)
	}
	if len(res.Skipped) != 1 || res.Skipped[0].Path != locked {
		t.Fatalf("expected locked to be skipped, got %v", res.Skipped)
	}
	if !errors.Is(res.Skipped[0], ErrUnreadableDir) {
		t.Errorf("expected ErrUnreadableDir, got %v", res.Skipped[0])
	}
}

// TestScan_ExcludePatterns verifies base-name and path patterns.
func TestScan_ExcludePatterns(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		".git/objects/x":         "",
		"third_party/lib/a.glsl": "",
		"progA/vertex.glsl":      "",
		"progA/vertex.glsl.bak":  "",
	})

	s, err := NewScanner(root, []string{".git", "third_party/**", "*.bak"})
	if err != nil {
		t.Fatalf("NewScanner failed: %v", err)
	}
	res, err := s.Scan(context.Background())
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if got := scanRels(res); !reflect.DeepEqual(got, []string{"progA", "third_party"}) {
		t.Fatalf("unexpected directories %v", got)
	}
	if files := res.Directories[0].Files; !reflect.DeepEqual(files, []string{"vertex.glsl"}) {
		t.Errorf("expected *.bak excluded, got %v", files)
	}
}

func TestNewScanner_InvalidPattern(t *testing.T) {
	if _, err := NewScanner(t.TempDir(), []string{"[unterminated"}); err == nil {
		t.Fatal("expected error for invalid pattern")
	}
}

func TestScan_CancelledContext(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"progA/vertex.glsl": "v"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s, _ := NewScanner(root, nil)
	if _, err := s.Scan(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
