package integration

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/danieljhkim/remsync/internal/clock"
	"github.com/danieljhkim/remsync/internal/config"
	"github.com/danieljhkim/remsync/internal/engine"
)

const (
	docDir   = "/home/root/.local/share/remarkable/xochitl"
	stageDir = "/home/root/.remsync-stage"
)

// testFS is a filesystem implementation that tracks files in memory for testing
type testFS struct {
	files map[string][]byte
	dirs  map[string]bool
}

func newTestFS() *testFS {
	return &testFS{
		files: make(map[string][]byte),
		dirs:  make(map[string]bool),
	}
}

func (f *testFS) addFile(path string, content []byte) {
	f.files[path] = content
	dir := filepath.Dir(path)
	for dir != "/" && dir != "." {
		f.dirs[dir] = true
		dir = filepath.Dir(dir)
	}
}

func (f *testFS) Exists(path string) (bool, error) {
	_, hasFile := f.files[path]
	return hasFile || f.dirs[path], nil
}

func (f *testFS) Lstat(path string) (os.FileInfo, error) {
	if f.dirs[path] {
		return &mockFileInfo{name: filepath.Base(path), isDir: true}, nil
	}
	if _, ok := f.files[path]; ok {
		return &mockFileInfo{name: filepath.Base(path)}, nil
	}
	return nil, os.ErrNotExist
}

func (f *testFS) ReadDir(path string) ([]os.DirEntry, error) {
	if !f.dirs[path] {
		return nil, os.ErrNotExist
	}
	seen := make(map[string]bool)
	var entries []os.DirEntry
	add := func(child string, isDir bool) {
		rel := strings.TrimPrefix(child, path+"/")
		if rel == child || rel == "" || strings.Contains(rel, "/") {
			return
		}
		if !seen[rel] {
			seen[rel] = true
			entries = append(entries, &mockDirEntry{name: rel, isDir: isDir})
		}
	}
	for file := range f.files {
		add(file, false)
	}
	for dir := range f.dirs {
		add(dir, true)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })
	return entries, nil
}

func (f *testFS) ReadFile(path string) ([]byte, error) {
	if data, ok := f.files[path]; ok {
		return data, nil
	}
	return nil, os.ErrNotExist
}

func (f *testFS) MkdirAll(path string, perm os.FileMode) error {
	f.dirs[path] = true
	parent := filepath.Dir(path)
	for parent != "/" && parent != "." {
		f.dirs[parent] = true
		parent = filepath.Dir(parent)
	}
	return nil
}

func (f *testFS) Remove(path string) error {
	delete(f.files, path)
	delete(f.dirs, path)
	return nil
}

func (f *testFS) RemoveAll(path string) error {
	for file := range f.files {
		if file == path || strings.HasPrefix(file, path+"/") {
			delete(f.files, file)
		}
	}
	for dir := range f.dirs {
		if dir == path || strings.HasPrefix(dir, path+"/") {
			delete(f.dirs, dir)
		}
	}
	return nil
}

func (f *testFS) CopyFile(src, dst string) error {
	data, ok := f.files[src]
	if !ok {
		return os.ErrNotExist
	}
	f.addFile(dst, data)
	return nil
}

func (f *testFS) AtomicWrite(path string, data []byte, perm os.FileMode) error {
	f.addFile(path, data)
	return nil
}

func (f *testFS) TempDir() (string, error) {
	dir := "/tmp/remsync-int-stage"
	f.dirs[dir] = true
	return dir, nil
}

type mockFileInfo struct {
	name  string
	isDir bool
}

func (m *mockFileInfo) Name() string       { return m.name }
func (m *mockFileInfo) Size() int64        { return 0 }
func (m *mockFileInfo) Mode() fs.FileMode  { return 0644 }
func (m *mockFileInfo) ModTime() time.Time { return time.Time{} }
func (m *mockFileInfo) IsDir() bool        { return m.isDir }
func (m *mockFileInfo) Sys() any           { return nil }

type mockDirEntry struct {
	name  string
	isDir bool
}

func (m *mockDirEntry) Name() string      { return m.name }
func (m *mockDirEntry) IsDir() bool       { return m.isDir }
func (m *mockDirEntry) Type() fs.FileMode { return 0 }
func (m *mockDirEntry) Info() (fs.FileInfo, error) {
	return &mockFileInfo{name: m.name, isDir: m.isDir}, nil
}

// fakeDevice is a transport backed by an in-memory remote filesystem. It
// interprets the exact shell commands the engine issues, so the tests
// exercise the real command strings end to end.
type fakeDevice struct {
	// remote maps absolute remote paths to file contents.
	remote map[string][]byte

	// host is the local filesystem CopyTo reads from and CopyFrom
	// writes to.
	host *testFS

	restarts int
}

func newFakeDevice(host *testFS) *fakeDevice {
	return &fakeDevice{remote: make(map[string][]byte), host: host}
}

// seed plants a record directly into the remote store.
func (d *fakeDevice) seed(filename string, content []byte) {
	d.remote[docDir+"/"+filename] = content
}

func (d *fakeDevice) Run(ctx context.Context, command string) (string, error) {
	switch {
	case strings.HasPrefix(command, "ls -1 "):
		dir := strings.TrimPrefix(command, "ls -1 ")
		var names []string
		for path := range d.remote {
			if rest, ok, _ := cutDir(path, dir); ok {
				names = append(names, rest)
			}
		}
		sort.Strings(names)
		return strings.Join(names, "\n"), nil

	case strings.HasPrefix(command, "cat "):
		path := strings.TrimPrefix(command, "cat ")
		data, ok := d.remote[path]
		if !ok {
			return "", fmt.Errorf("cat: %s: no such file", path)
		}
		return string(data), nil

	case strings.HasPrefix(command, "mkdir -p "):
		return "", nil

	case strings.HasPrefix(command, "mv ") && strings.HasSuffix(command, " "+docDir+"/"):
		glob := strings.TrimSuffix(strings.TrimPrefix(command, "mv "), " "+docDir+"/")
		prefix := strings.TrimSuffix(glob, "*")
		moved := 0
		for path, data := range d.remote {
			if strings.HasPrefix(path, prefix) {
				rest := strings.TrimPrefix(path, stageDir+"/")
				d.remote[docDir+"/"+rest] = data
				delete(d.remote, path)
				moved++
			}
		}
		if moved == 0 {
			return "", fmt.Errorf("mv: no match for %s", glob)
		}
		return "", nil

	case strings.HasPrefix(command, "rm -rf "):
		for _, target := range strings.Fields(strings.TrimPrefix(command, "rm -rf ")) {
			if prefix, ok := strings.CutSuffix(target, "*"); ok {
				for path := range d.remote {
					if strings.HasPrefix(path, prefix) {
						delete(d.remote, path)
					}
				}
				continue
			}
			for path := range d.remote {
				if path == target || strings.HasPrefix(path, target+"/") {
					delete(d.remote, path)
				}
			}
		}
		return "", nil

	case command == "systemctl restart xochitl":
		d.restarts++
		return "", nil
	}
	return "", fmt.Errorf("fake device cannot interpret %q", command)
}

func (d *fakeDevice) CopyTo(ctx context.Context, localPath, remotePath string) error {
	data, err := d.host.ReadFile(localPath)
	if err != nil {
		return fmt.Errorf("scp: %s: %w", localPath, err)
	}
	d.remote[remotePath] = data
	return nil
}

func (d *fakeDevice) CopyFrom(ctx context.Context, remotePath, localPath string) error {
	data, ok := d.remote[remotePath]
	if !ok {
		return fmt.Errorf("scp: %s: no such file", remotePath)
	}
	d.host.addFile(localPath, data)
	return nil
}

// cutDir returns the part of path directly under dir, if any.
func cutDir(path, dir string) (string, bool, error) {
	rest, ok := strings.CutPrefix(path, dir+"/")
	if !ok || strings.Contains(rest, "/") {
		return "", false, nil
	}
	return rest, true, nil
}

// setupTestEngine wires an engine over the fake device.
func setupTestEngine(t *testing.T) (*engine.Engine, *testFS, *fakeDevice) {
	t.Helper()

	hostFS := newTestFS()
	device := newFakeDevice(hostFS)
	clk := clock.NewFakeClock(time.UnixMilli(1700000000000))
	cfg := &config.Config{
		Address:     "10.11.99.1",
		DocumentDir: docDir,
		StageDir:    stageDir,
	}

	return engine.New(device, hostFS, clk, cfg), hostFS, device
}

// compileTestExcludes compiles exclusion patterns for requests.
func compileTestExcludes(patterns ...string) ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, err
		}
		out = append(out, re)
	}
	return out, nil
}

// remoteStems returns the distinct identifier stems in the remote store.
func (d *fakeDevice) remoteStems() []string {
	seen := make(map[string]bool)
	for path := range d.remote {
		if name, ok, _ := cutDir(path, docDir); ok {
			seen[strings.SplitN(name, ".", 2)[0]] = true
		}
	}
	var stems []string
	for s := range seen {
		stems = append(stems, s)
	}
	sort.Strings(stems)
	return stems
}
