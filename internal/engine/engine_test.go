package engine

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/danieljhkim/remsync/internal/clock"
	"github.com/danieljhkim/remsync/internal/config"
)

const (
	testDocDir   = "/home/root/.local/share/remarkable/xochitl"
	testStageDir = "/home/root/.remsync-stage"
)

// deviceTransport simulates a device store for engine tests. Reads are
// answered from the canned listing and metadata map; every command is
// recorded so tests can assert on what mutated.
type deviceTransport struct {
	listing  string
	metadata map[string]string

	runCalls  []string
	copiedTo  []string
	copiedOut []string

	// failOn makes the first Run containing the substring fail.
	failOn string

	// failCopyTo makes CopyTo fail for local paths containing the
	// substring.
	failCopyTo string
}

func (d *deviceTransport) Run(ctx context.Context, command string) (string, error) {
	d.runCalls = append(d.runCalls, command)
	if d.failOn != "" && strings.Contains(command, d.failOn) {
		return "", fmt.Errorf("simulated failure running %q", command)
	}
	if command == "ls -1 "+testDocDir {
		return d.listing, nil
	}
	if rest, ok := strings.CutPrefix(command, "cat "+testDocDir+"/"); ok {
		id := strings.TrimSuffix(rest, ".metadata")
		out, ok := d.metadata[id]
		if !ok {
			return "", fmt.Errorf("no such file: %s", rest)
		}
		return out, nil
	}
	return "", nil
}

func (d *deviceTransport) CopyTo(ctx context.Context, localPath, remotePath string) error {
	if d.failCopyTo != "" && strings.Contains(localPath, d.failCopyTo) {
		return fmt.Errorf("simulated copy failure for %s", localPath)
	}
	d.copiedTo = append(d.copiedTo, remotePath)
	return nil
}

func (d *deviceTransport) CopyFrom(ctx context.Context, remotePath, localPath string) error {
	d.copiedOut = append(d.copiedOut, remotePath+" -> "+localPath)
	return nil
}

// mutatingCalls filters the recorded Run commands down to the ones that
// change remote state.
func (d *deviceTransport) mutatingCalls() []string {
	var out []string
	for _, c := range d.runCalls {
		if strings.HasPrefix(c, "mkdir") || strings.HasPrefix(c, "mv") ||
			strings.HasPrefix(c, "rm") || strings.HasPrefix(c, "systemctl") {
			out = append(out, c)
		}
	}
	return out
}

func (d *deviceTransport) ranCommand(command string) bool {
	for _, c := range d.runCalls {
		if c == command {
			return true
		}
	}
	return false
}

// memFS is an in-memory fsops.FS for engine tests.
type memFS struct {
	files map[string][]byte
	dirs  map[string]bool
}

func newMemFS() *memFS {
	return &memFS{files: make(map[string][]byte), dirs: make(map[string]bool)}
}

func (m *memFS) addFile(path string, content []byte) {
	m.files[path] = content
	dir := filepath.Dir(path)
	for dir != "/" && dir != "." {
		m.dirs[dir] = true
		dir = filepath.Dir(dir)
	}
}

func (m *memFS) Lstat(path string) (os.FileInfo, error) {
	if m.dirs[path] {
		return &memFileInfo{name: filepath.Base(path), dir: true}, nil
	}
	if _, ok := m.files[path]; ok {
		return &memFileInfo{name: filepath.Base(path)}, nil
	}
	return nil, os.ErrNotExist
}

func (m *memFS) ReadDir(path string) ([]os.DirEntry, error) {
	if !m.dirs[path] {
		return nil, os.ErrNotExist
	}
	var entries []os.DirEntry
	seen := make(map[string]bool)
	add := func(child string, dir bool) {
		rel := strings.TrimPrefix(child, path+"/")
		if rel == child || rel == "" || strings.Contains(rel, "/") {
			return
		}
		if !seen[rel] {
			seen[rel] = true
			entries = append(entries, &memDirEntry{name: rel, dir: dir})
		}
	}
	for f := range m.files {
		add(f, false)
	}
	for d := range m.dirs {
		add(d, true)
	}
	return entries, nil
}

func (m *memFS) ReadFile(path string) ([]byte, error) {
	if data, ok := m.files[path]; ok {
		return data, nil
	}
	return nil, os.ErrNotExist
}

func (m *memFS) MkdirAll(path string, perm os.FileMode) error {
	m.dirs[path] = true
	return nil
}

func (m *memFS) Remove(path string) error {
	delete(m.files, path)
	delete(m.dirs, path)
	return nil
}

func (m *memFS) RemoveAll(path string) error {
	for f := range m.files {
		if f == path || strings.HasPrefix(f, path+"/") {
			delete(m.files, f)
		}
	}
	for d := range m.dirs {
		if d == path || strings.HasPrefix(d, path+"/") {
			delete(m.dirs, d)
		}
	}
	return nil
}

func (m *memFS) CopyFile(src, dst string) error {
	data, ok := m.files[src]
	if !ok {
		return os.ErrNotExist
	}
	m.addFile(dst, data)
	return nil
}

func (m *memFS) AtomicWrite(path string, data []byte, perm os.FileMode) error {
	m.addFile(path, data)
	return nil
}

func (m *memFS) Exists(path string) (bool, error) {
	if m.dirs[path] {
		return true, nil
	}
	_, ok := m.files[path]
	return ok, nil
}

func (m *memFS) TempDir() (string, error) {
	dir := "/tmp/remsync-test-stage"
	m.dirs[dir] = true
	return dir, nil
}

type memFileInfo struct {
	name string
	dir  bool
}

func (m *memFileInfo) Name() string       { return m.name }
func (m *memFileInfo) Size() int64        { return 0 }
func (m *memFileInfo) Mode() fs.FileMode  { return 0644 }
func (m *memFileInfo) ModTime() time.Time { return time.Time{} }
func (m *memFileInfo) IsDir() bool        { return m.dir }
func (m *memFileInfo) Sys() any           { return nil }

type memDirEntry struct {
	name string
	dir  bool
}

func (m *memDirEntry) Name() string               { return m.name }
func (m *memDirEntry) IsDir() bool                { return m.dir }
func (m *memDirEntry) Type() fs.FileMode          { return 0 }
func (m *memDirEntry) Info() (fs.FileInfo, error) { return &memFileInfo{name: m.name, dir: m.dir}, nil }

func testConfig() *config.Config {
	return &config.Config{
		Address:     "10.11.99.1",
		DocumentDir: testDocDir,
		StageDir:    testStageDir,
	}
}

func newTestEngine(tr *deviceTransport, fs *memFS) *Engine {
	clk := clock.NewFakeClock(time.UnixMilli(1700000000000))
	return New(tr, fs, clk, testConfig())
}

// metaJSON builds a metadata unit the way the device writes them.
func metaJSON(name, parent, kind string, deleted bool) string {
	return fmt.Sprintf(`{"visibleName": %q, "parent": %q, "type": %q, "deleted": %t, "lastModified": 1690000000000, "version": 1}`,
		name, parent, kind, deleted)
}
