package storage

import (
	"os"
	"path/filepath"
	"testing"
)

func tempArea(t *testing.T) *FS {
	t.Helper()
	s, err := NewFS(filepath.Join(t.TempDir(), "data"))
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	return s
}

func TestNewFSCreatesLayout(t *testing.T) {
	s := tempArea(t)
	for _, dir := range []string{InboxDir, ProcessedDir, ExportsDir} {
		info, err := os.Stat(filepath.Join(s.Root(), dir))
		if err != nil || !info.IsDir() {
			t.Errorf("%s not created: %v", dir, err)
		}
	}
}

func TestWriteReadExists(t *testing.T) {
	s := tempArea(t)
	if s.Exists("exports/a.csv") {
		t.Fatal("file exists before write")
	}
	if err := s.Write("exports/a.csv", []byte(`"Nome"`)); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := s.Read("exports/a.csv")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != `"Nome"` {
		t.Errorf("content = %q", got)
	}
	if !s.Exists("exports/a.csv") {
		t.Error("Exists = false after write")
	}
	if s.Exists("exports") {
		t.Error("Exists reports a directory")
	}
}

func TestListFiltersExtensions(t *testing.T) {
	s := tempArea(t)
	_ = s.Write("inbox/b.csv", []byte("b"))
	_ = s.Write("inbox/a.XLSX", []byte("a"))
	_ = s.Write("inbox/notes.txt", []byte("x"))
	_ = s.Write("inbox/.hidden.csv", []byte("h"))

	files, err := s.List(InboxDir, ".csv", ".xlsx")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("got %d files: %+v", len(files), files)
	}
	if files[0].Name != "a.XLSX" || files[1].Path != "inbox/b.csv" {
		t.Errorf("unexpected listing: %+v", files)
	}
	if files[1].Checksum == "" || files[1].Size != 1 {
		t.Errorf("missing metadata: %+v", files[1])
	}
}

func TestListMissingDir(t *testing.T) {
	s := tempArea(t)
	files, err := s.List("nowhere")
	if err != nil || len(files) != 0 {
		t.Errorf("List missing = %v, %v", files, err)
	}
}

func TestMoveAndDelete(t *testing.T) {
	s := tempArea(t)
	_ = s.Write("inbox/c.csv", []byte("c"))
	if err := s.Move("inbox/c.csv", "inbox/processed/1-c.csv"); err != nil {
		t.Fatalf("Move: %v", err)
	}
	if s.Exists("inbox/c.csv") || !s.Exists("inbox/processed/1-c.csv") {
		t.Fatal("move did not relocate file")
	}
	if err := s.Delete("inbox/processed/1-c.csv"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := s.Delete("inbox/processed/1-c.csv"); err == nil {
		t.Error("expected error deleting missing file")
	}
}

func TestPathTraversal(t *testing.T) {
	s := tempArea(t)
	for _, p := range []string{"../escape.csv", "inbox/../../x", "/etc/passwd"} {
		if _, err := s.Read(p); err == nil {
			t.Errorf("expected traversal error for %q", p)
		}
		if err := s.Write(p, []byte("x")); err == nil {
			t.Errorf("expected traversal error writing %q", p)
		}
	}
}
