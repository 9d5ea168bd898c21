package source

import (
	"os"
	"path/filepath"
	"testing"
)

func TestResolveLineCol(t *testing.T) {
	fs := NewFileSet()
	id := fs.AddVirtual("a.rs", []byte("fn a() {}\nfn b() {\n    x.unwrap()\n}\n"))
	f := fs.Get(id)

	tests := []struct {
		off  uint32
		want LineCol
	}{
		{0, LineCol{Line: 1, Col: 1}},
		{9, LineCol{Line: 1, Col: 10}},
		{10, LineCol{Line: 2, Col: 1}},
		{23, LineCol{Line: 3, Col: 5}},
	}
	for _, tt := range tests {
		if got := f.Position(tt.off); got != tt.want {
			t.Fatalf("Position(%d) = %+v, want %+v", tt.off, got, tt.want)
		}
	}
	if got := f.GetLine(3); got != "    x.unwrap()" {
		t.Fatalf("GetLine(3) = %q", got)
	}
	if got := f.GetLine(42); got != "" {
		t.Fatalf("GetLine(42) = %q, want empty", got)
	}
}

func TestLoadNormalizesBOMAndCRLF(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "crlf.rs")
	raw := append([]byte{0xEF, 0xBB, 0xBF}, []byte("fn main() {\r\n}\r\n")...)
	if err := os.WriteFile(path, raw, 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	fs := NewFileSetWithBase(dir)
	id, err := fs.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	f := fs.Get(id)
	if string(f.Content) != "fn main() {\n}\n" {
		t.Fatalf("content not normalised: %q", f.Content)
	}
	if f.Flags&FileHadBOM == 0 || f.Flags&FileNormalizedCRLF == 0 {
		t.Fatalf("flags = %b, want BOM and CRLF bits", f.Flags)
	}
	if got := fs.DisplayPath(f); got != "crlf.rs" {
		t.Fatalf("DisplayPath = %q, want crlf.rs", got)
	}
}

func TestAddSamePathTwiceKeepsLatest(t *testing.T) {
	fs := NewFileSet()
	first := fs.AddVirtual("dup.rs", []byte("a"))
	second := fs.AddVirtual("dup.rs", []byte("b"))
	if first == second {
		t.Fatalf("expected distinct ids")
	}
	f, ok := fs.GetByPath("dup.rs")
	if !ok || f.ID != second {
		t.Fatalf("GetByPath returned %v, want id %d", f, second)
	}
	if fs.Get(first).Hash == fs.Get(second).Hash {
		t.Fatalf("different content must hash differently")
	}
}
