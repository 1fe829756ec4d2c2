package execstore

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "executions"))
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestNewExecutionID(t *testing.T) {
	ts := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	id := NewExecutionID("4b825dc6-42fa-4775-a8f1-3e7a2b1c9d00", ts)
	if id != "exec_20260314_092653_4b825dc6" {
		t.Errorf("NewExecutionID() = %q", id)
	}
}

func TestCreateAndOpen(t *testing.T) {
	s := newTestStore(t)

	e, err := s.Create("exec_20260314_092653_4b825dc6")
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}

	for _, dir := range []string{e.Dir, e.TextDir(), e.JSONDir()} {
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			t.Errorf("dir %s missing", dir)
		}
	}

	if _, err := s.Open(e.ID); err != nil {
		t.Errorf("Open() error: %v", err)
	}
	if _, err := s.Open("exec_nope"); err == nil {
		t.Error("Open(missing) error = nil")
	}
}

func TestMetadataRoundTrip(t *testing.T) {
	s := newTestStore(t)
	e, _ := s.Create("exec_20260314_092653_4b825dc6")

	md := Metadata{
		ExecutionID:  e.ID,
		JobID:        "job-1",
		Status:       "running",
		Devices:      []MetadataDevice{{ID: "d1", Name: "zwe-r1", IP: "172.20.0.11"}},
		Commands:     []string{"terminal length 0", "show ospf neighbor"},
		TotalDevices: 1,
	}
	if err := e.WriteMetadata(md); err != nil {
		t.Fatalf("WriteMetadata() error: %v", err)
	}

	got, err := e.ReadMetadata()
	if err != nil {
		t.Fatalf("ReadMetadata() error: %v", err)
	}
	if got.ExecutionID != md.ExecutionID || got.Status != "running" || len(got.Devices) != 1 {
		t.Errorf("metadata = %+v", got)
	}
}

func TestCurrentPointer(t *testing.T) {
	s := newTestStore(t)
	first, _ := s.Create("exec_20260314_090000_aaaaaaaa")
	second, _ := s.Create("exec_20260314_100000_bbbbbbbb")

	if _, err := s.Current(); err == nil {
		t.Error("Current() before SetCurrent should fail")
	}

	if err := s.SetCurrent(first.ID); err != nil {
		t.Fatalf("SetCurrent() error: %v", err)
	}
	cur, err := s.Current()
	if err != nil {
		t.Fatalf("Current() error: %v", err)
	}
	if cur.ID != first.ID {
		t.Errorf("Current() = %q, want %q", cur.ID, first.ID)
	}

	// Repoint over the existing link
	if err := s.SetCurrent(second.ID); err != nil {
		t.Fatalf("SetCurrent() repoint error: %v", err)
	}
	cur, _ = s.Current()
	if cur.ID != second.ID {
		t.Errorf("Current() = %q, want %q", cur.ID, second.ID)
	}
}

func TestList(t *testing.T) {
	s := newTestStore(t)
	s.Create("exec_20260314_090000_aaaaaaaa")
	s.Create("exec_20260314_100000_bbbbbbbb")
	s.SetCurrent("exec_20260314_100000_bbbbbbbb")

	ids, err := s.List()
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("len(ids) = %d, want 2 (current pointer excluded)", len(ids))
	}
	if ids[0] != "exec_20260314_100000_bbbbbbbb" {
		t.Errorf("ids[0] = %q, want newest first", ids[0])
	}
}

func TestWriteFileAtomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.txt")

	if err := WriteFileAtomic(path, []byte("hello")); err != nil {
		t.Fatalf("WriteFileAtomic() error: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil || string(data) != "hello" {
		t.Errorf("content = %q, err = %v", data, err)
	}

	// No temp droppings left behind
	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Errorf("leftover files: %d entries", len(entries))
	}
}

func TestTextFiles(t *testing.T) {
	s := newTestStore(t)
	e, _ := s.Create("exec_20260314_092653_4b825dc6")

	good := filepath.Join(e.TextDir(), "zwe-r1_show_ospf_neighbor_2026-03-14_09-26-53.txt")
	bad := filepath.Join(e.TextDir(), "README.txt")
	os.WriteFile(good, []byte("x"), 0644)
	os.WriteFile(bad, []byte("x"), 0644)

	files, err := e.TextFiles()
	if err != nil {
		t.Fatalf("TextFiles() error: %v", err)
	}
	if len(files) != 1 {
		t.Fatalf("len(files) = %d, want 1 (malformed name skipped)", len(files))
	}
	f := files[0]
	if f.Device != "zwe-r1" {
		t.Errorf("Device = %q", f.Device)
	}
	want := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	if !f.Timestamp.Equal(want) {
		t.Errorf("Timestamp = %v, want %v", f.Timestamp, want)
	}
}
