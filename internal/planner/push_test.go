package planner

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/danieljhkim/remsync/internal/device"
	"github.com/danieljhkim/remsync/internal/store"
	"github.com/danieljhkim/remsync/internal/tree"
)

// testFS is an in-memory fsops.FS for planning tests.
type testFS struct {
	files map[string][]byte
	dirs  map[string]bool
}

func newTestFS() *testFS {
	return &testFS{files: make(map[string][]byte), dirs: make(map[string]bool)}
}

func (t *testFS) addFile(path string, content []byte) {
	t.files[path] = content
	dir := filepath.Dir(path)
	for dir != "/" && dir != "." {
		t.dirs[dir] = true
		dir = filepath.Dir(dir)
	}
}

func (t *testFS) Lstat(path string) (os.FileInfo, error) {
	if t.dirs[path] {
		return &mockFileInfo{name: filepath.Base(path), dir: true}, nil
	}
	if _, ok := t.files[path]; ok {
		return &mockFileInfo{name: filepath.Base(path)}, nil
	}
	return nil, os.ErrNotExist
}

func (t *testFS) ReadDir(path string) ([]os.DirEntry, error) {
	if !t.dirs[path] {
		return nil, os.ErrNotExist
	}
	seen := make(map[string]bool)
	var entries []os.DirEntry
	add := func(child string, dir bool) {
		rel := strings.TrimPrefix(child, path+"/")
		if rel == child || rel == "" || strings.Contains(rel, "/") {
			return
		}
		if !seen[rel] {
			seen[rel] = true
			entries = append(entries, &mockDirEntry{name: rel, dir: dir})
		}
	}
	for f := range t.files {
		add(f, false)
	}
	for d := range t.dirs {
		add(d, true)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })
	return entries, nil
}

func (t *testFS) ReadFile(path string) ([]byte, error) {
	if data, ok := t.files[path]; ok {
		return data, nil
	}
	return nil, os.ErrNotExist
}

func (t *testFS) MkdirAll(path string, perm os.FileMode) error {
	t.dirs[path] = true
	return nil
}

func (t *testFS) Remove(path string) error {
	delete(t.files, path)
	delete(t.dirs, path)
	return nil
}

func (t *testFS) RemoveAll(path string) error {
	for f := range t.files {
		if f == path || strings.HasPrefix(f, path+"/") {
			delete(t.files, f)
		}
	}
	for d := range t.dirs {
		if d == path || strings.HasPrefix(d, path+"/") {
			delete(t.dirs, d)
		}
	}
	return nil
}

func (t *testFS) CopyFile(src, dst string) error {
	data, ok := t.files[src]
	if !ok {
		return os.ErrNotExist
	}
	t.addFile(dst, data)
	return nil
}

func (t *testFS) AtomicWrite(path string, data []byte, perm os.FileMode) error {
	t.addFile(path, data)
	return nil
}

func (t *testFS) Exists(path string) (bool, error) {
	_, hasFile := t.files[path]
	return hasFile || t.dirs[path], nil
}

func (t *testFS) TempDir() (string, error) {
	t.dirs["/tmp/stage"] = true
	return "/tmp/stage", nil
}

type mockFileInfo struct {
	name string
	dir  bool
}

func (m *mockFileInfo) Name() string       { return m.name }
func (m *mockFileInfo) Size() int64        { return 0 }
func (m *mockFileInfo) Mode() os.FileMode  { return 0644 }
func (m *mockFileInfo) ModTime() time.Time { return time.Time{} }
func (m *mockFileInfo) IsDir() bool        { return m.dir }
func (m *mockFileInfo) Sys() interface{}   { return nil }

type mockDirEntry struct {
	name string
	dir  bool
}

func (m *mockDirEntry) Name() string               { return m.name }
func (m *mockDirEntry) IsDir() bool                { return m.dir }
func (m *mockDirEntry) Type() fs.FileMode          { return 0 }
func (m *mockDirEntry) Info() (fs.FileInfo, error) { return &mockFileInfo{name: m.name, dir: m.dir}, nil }

// record helpers shared by the planner tests.

func folderRec(id, name, parent string) *device.Record {
	return &device.Record{ID: id, Meta: &device.Metadata{
		VisibleName: name, Parent: parent, Type: device.KindFolder,
	}}
}

func docRec(id, name, parent string) *device.Record {
	return &device.Record{
		ID: id,
		Meta: &device.Metadata{
			VisibleName: name, Parent: parent, Type: device.KindDocument,
		},
		Payloads: []string{id + ".pdf", id + ".content", id + ".thumbnails"},
	}
}

func mustBuild(t *testing.T, records ...*device.Record) *tree.Tree {
	t.Helper()
	tr, err := tree.Build(&store.Snapshot{Records: records})
	if err != nil {
		t.Fatalf("tree.Build() error: %v", err)
	}
	return tr
}

func actionTypes(p *Plan) []string {
	types := make([]string, len(p.Actions))
	for i, a := range p.Actions {
		types[i] = a.Type
	}
	return types
}

func TestBuildPushPlan_CreatesMissingFolders(t *testing.T) {
	tr := mustBuild(t)
	hostFS := newTestFS()
	hostFS.addFile("/docs/report.pdf", []byte("pdf"))

	plan, err := BuildPushPlan(tr, hostFS, []string{"/docs/report.pdf"}, "Work/Q1", PolicySkip, nil)
	if err != nil {
		t.Fatalf("BuildPushPlan() error: %v", err)
	}

	want := []string{ActionCreateFolder, ActionCreateFolder, ActionCreateDocument}
	got := actionTypes(plan)
	if len(got) != len(want) {
		t.Fatalf("actions = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("actions = %v, want %v", got, want)
		}
	}

	work, q1, doc := plan.Actions[0], plan.Actions[1], plan.Actions[2]
	if work.Name != "Work" || work.ParentID != "" {
		t.Errorf("first folder = %+v, want Work at top level", work)
	}
	if q1.Name != "Q1" || q1.ParentID != work.ID {
		t.Errorf("second folder = %+v, want Q1 under Work", q1)
	}
	if doc.Name != "report.pdf" || doc.ParentID != q1.ID {
		t.Errorf("document = %+v, want report.pdf under Q1", doc)
	}
	if doc.Ext != "pdf" {
		t.Errorf("document ext = %q, want pdf", doc.Ext)
	}
}

func TestBuildPushPlan_ReusesExistingFolders(t *testing.T) {
	tr := mustBuild(t, folderRec("work", "Work", ""))
	hostFS := newTestFS()
	hostFS.addFile("/docs/report.pdf", []byte("pdf"))

	plan, err := BuildPushPlan(tr, hostFS, []string{"/docs/report.pdf"}, "Work", PolicySkip, nil)
	if err != nil {
		t.Fatalf("BuildPushPlan() error: %v", err)
	}

	if len(plan.Actions) != 1 {
		t.Fatalf("actions = %v, want single create_document", actionTypes(plan))
	}
	if plan.Actions[0].ParentID != "work" {
		t.Errorf("ParentID = %q, want work", plan.Actions[0].ParentID)
	}
}

func TestBuildPushPlan_ConflictPolicies(t *testing.T) {
	tests := []struct {
		policy   Policy
		wantType string
		sameID   bool
	}{
		{PolicySkip, ActionSkipExisting, true},
		{PolicyNew, ActionCreateDocument, false},
		{PolicyReplace, ActionReplaceDocument, true},
		{PolicyReplaceContentOnly, ActionReplaceContentOnly, true},
	}

	for _, tt := range tests {
		t.Run(tt.policy.String(), func(t *testing.T) {
			tr := mustBuild(t,
				folderRec("work", "Work", ""),
				docRec("existing", "report.pdf", "work"),
			)
			hostFS := newTestFS()
			hostFS.addFile("/docs/report.pdf", []byte("pdf"))

			plan, err := BuildPushPlan(tr, hostFS, []string{"/docs/report.pdf"}, "Work", tt.policy, nil)
			if err != nil {
				t.Fatalf("BuildPushPlan() error: %v", err)
			}
			if len(plan.Actions) != 1 {
				t.Fatalf("actions = %v, want 1", actionTypes(plan))
			}

			a := plan.Actions[0]
			if a.Type != tt.wantType {
				t.Errorf("type = %s, want %s", a.Type, tt.wantType)
			}
			if tt.sameID && a.ID != "existing" {
				t.Errorf("ID = %s, want preserved id", a.ID)
			}
			if !tt.sameID && a.ID == "existing" {
				t.Error("policy new must generate a fresh id")
			}
		})
	}
}

func TestBuildPushPlan_NoConflictCreatesRegardlessOfPolicy(t *testing.T) {
	for _, policy := range []Policy{PolicySkip, PolicyNew, PolicyReplace, PolicyReplaceContentOnly} {
		t.Run(policy.String(), func(t *testing.T) {
			tr := mustBuild(t, folderRec("work", "Work", ""))
			hostFS := newTestFS()
			hostFS.addFile("/docs/new.pdf", []byte("pdf"))

			plan, err := BuildPushPlan(tr, hostFS, []string{"/docs/new.pdf"}, "Work", policy, nil)
			if err != nil {
				t.Fatalf("BuildPushPlan() error: %v", err)
			}
			if len(plan.Actions) != 1 || plan.Actions[0].Type != ActionCreateDocument {
				t.Errorf("actions = %v, want single create_document", actionTypes(plan))
			}
		})
	}
}

func TestBuildPushPlan_DirectorySource(t *testing.T) {
	tr := mustBuild(t)
	hostFS := newTestFS()
	hostFS.addFile("/papers/intro.pdf", []byte("a"))
	hostFS.addFile("/papers/chapters/one.epub", []byte("b"))
	hostFS.addFile("/papers/notes.txt", []byte("ignored"))

	plan, err := BuildPushPlan(tr, hostFS, []string{"/papers"}, "", PolicySkip, nil)
	if err != nil {
		t.Fatalf("BuildPushPlan() error: %v", err)
	}

	// papers/, papers/chapters/, and the two documents. notes.txt is
	// silently ignored inside a directory.
	var folders, docs int
	for _, a := range plan.Actions {
		switch a.Type {
		case ActionCreateFolder:
			folders++
		case ActionCreateDocument:
			docs++
		}
	}
	if folders != 2 || docs != 2 {
		t.Errorf("folders = %d, docs = %d, want 2 and 2 (%v)", folders, docs, actionTypes(plan))
	}

	// Folder creation precedes the children that depend on it.
	pos := make(map[string]int)
	for i, a := range plan.Actions {
		pos[a.RemotePath] = i
	}
	if pos["papers"] > pos["papers/intro.pdf"] {
		t.Error("folder papers must precede its document")
	}
	if pos["papers/chapters"] > pos["papers/chapters/one.epub"] {
		t.Error("folder chapters must precede its document")
	}
}

func TestBuildPushPlan_InvalidName(t *testing.T) {
	tr := mustBuild(t)
	hostFS := newTestFS()
	hostFS.addFile(`/docs/bad"quote.pdf`, []byte("pdf"))

	plan, err := BuildPushPlan(tr, hostFS, []string{`/docs/bad"quote.pdf`}, "", PolicySkip, nil)
	if err != nil {
		t.Fatalf("BuildPushPlan() error: %v", err)
	}

	if len(plan.Actions) != 0 {
		t.Errorf("actions = %v, want none", actionTypes(plan))
	}
	if len(plan.Failures) != 1 {
		t.Fatalf("failures = %d, want 1", len(plan.Failures))
	}
	var invalid *InvalidNameError
	if !errors.As(plan.Failures[0].Err, &invalid) {
		t.Errorf("failure = %v, want InvalidNameError", plan.Failures[0].Err)
	}
}

func TestBuildPushPlan_AmbiguousTarget(t *testing.T) {
	tr := mustBuild(t,
		folderRec("work", "Work", ""),
		docRec("a", "report.pdf", "work"),
		docRec("b", "report.pdf", "work"),
	)
	hostFS := newTestFS()
	hostFS.addFile("/docs/report.pdf", []byte("pdf"))

	plan, err := BuildPushPlan(tr, hostFS, []string{"/docs/report.pdf"}, "Work", PolicyReplace, nil)
	if err != nil {
		t.Fatalf("BuildPushPlan() error: %v", err)
	}

	if len(plan.Actions) != 0 {
		t.Errorf("actions = %v, want none for ambiguous target", actionTypes(plan))
	}
	if len(plan.Failures) != 1 {
		t.Fatalf("failures = %d, want 1", len(plan.Failures))
	}
	var amb *tree.AmbiguousNameError
	if !errors.As(plan.Failures[0].Err, &amb) {
		t.Fatalf("failure = %v, want AmbiguousNameError", plan.Failures[0].Err)
	}
	if len(amb.Candidates) != 2 {
		t.Errorf("candidates = %d, want 2", len(amb.Candidates))
	}
}

func TestBuildPushPlan_NewPolicyIgnoresAmbiguity(t *testing.T) {
	tr := mustBuild(t,
		folderRec("work", "Work", ""),
		docRec("a", "report.pdf", "work"),
		docRec("b", "report.pdf", "work"),
	)
	hostFS := newTestFS()
	hostFS.addFile("/docs/report.pdf", []byte("pdf"))

	plan, err := BuildPushPlan(tr, hostFS, []string{"/docs/report.pdf"}, "Work", PolicyNew, nil)
	if err != nil {
		t.Fatalf("BuildPushPlan() error: %v", err)
	}

	if len(plan.Failures) != 0 {
		t.Fatalf("failures = %v, want none", plan.Failures)
	}
	if len(plan.Actions) != 1 {
		t.Fatalf("actions = %d, want 1", len(plan.Actions))
	}
	a := plan.Actions[0]
	if a.Type != ActionCreateDocument {
		t.Errorf("action type = %v, want %v", a.Type, ActionCreateDocument)
	}
	if a.ID == "a" || a.ID == "b" || a.ID == "" {
		t.Errorf("action id = %q, want a fresh identifier", a.ID)
	}
}

func TestBuildPushPlan_PerItemFailuresDoNotBlockSiblings(t *testing.T) {
	tr := mustBuild(t)
	hostFS := newTestFS()
	hostFS.addFile("/docs/good.pdf", []byte("pdf"))

	plan, err := BuildPushPlan(tr, hostFS, []string{"/docs/missing.pdf", "/docs/good.pdf"}, "", PolicySkip, nil)
	if err != nil {
		t.Fatalf("BuildPushPlan() error: %v", err)
	}
	if len(plan.Failures) != 1 {
		t.Errorf("failures = %d, want 1", len(plan.Failures))
	}
	if len(plan.Actions) != 1 || plan.Actions[0].Name != "good.pdf" {
		t.Errorf("actions = %v, want good.pdf to proceed", actionTypes(plan))
	}
}

func TestBuildPushPlan_Exclusions(t *testing.T) {
	tr := mustBuild(t)
	hostFS := newTestFS()
	hostFS.addFile("/docs/keep.pdf", []byte("a"))
	hostFS.addFile("/docs/drop.pdf", []byte("b"))

	excludes := []*regexp.Regexp{regexp.MustCompile(`drop\.pdf$`)}
	plan, err := BuildPushPlan(tr, hostFS, []string{"/docs/keep.pdf", "/docs/drop.pdf"}, "", PolicySkip, excludes)
	if err != nil {
		t.Fatalf("BuildPushPlan() error: %v", err)
	}

	if len(plan.Actions) != 1 || plan.Actions[0].Name != "keep.pdf" {
		t.Errorf("actions = %v, want only keep.pdf", actionTypes(plan))
	}
	if len(plan.Failures) != 0 {
		t.Errorf("exclusion must not be a failure, got %v", plan.Failures)
	}
	if len(plan.Excluded) != 1 || plan.Excluded[0].Item != "/docs/drop.pdf" {
		t.Errorf("excluded = %v, want drop.pdf", plan.Excluded)
	}
}

func TestBuildPushPlan_UnresolvableDestination(t *testing.T) {
	tr := mustBuild(t,
		folderRec("w1", "Work", ""),
		folderRec("w2", "Work", ""),
	)
	hostFS := newTestFS()
	hostFS.addFile("/docs/report.pdf", []byte("pdf"))

	_, err := BuildPushPlan(tr, hostFS, []string{"/docs/report.pdf"}, "Work", PolicySkip, nil)
	var amb *tree.AmbiguousNameError
	if !errors.As(err, &amb) {
		t.Errorf("BuildPushPlan() error = %v, want AmbiguousNameError for destination", err)
	}
}

func TestParsePolicy(t *testing.T) {
	for _, name := range []string{"skip", "new", "replace", "replace-content-only"} {
		p, err := ParsePolicy(name)
		if err != nil {
			t.Errorf("ParsePolicy(%q) error: %v", name, err)
		}
		if p.String() != name {
			t.Errorf("round trip %q -> %q", name, p.String())
		}
	}
	if _, err := ParsePolicy("overwrite"); err == nil {
		t.Error("expected error for unknown policy")
	}
}
