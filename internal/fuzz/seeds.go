package fuzztests

import (
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/tools/txtar"
)

const (
	maxSeedBytes = 64 << 10 // 64 KiB
)

func addCorpusSeeds(f *testing.F) {
	addFixtureSeeds(f)
	addArchiveSeeds(f)
	f.Add([]byte{})
	f.Add([]byte("fn main() {}\n"))
}

// addFixtureSeeds adds every .rs file of the conformance corpus.
func addFixtureSeeds(f *testing.F) {
	root := filepath.Join("..", "conformance", "testdata")
	if _, err := os.Stat(root); err != nil {
		return
	}
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil || d.IsDir() || filepath.Ext(path) != ".rs" {
			return nil
		}
		// #nosec G304 -- path comes from repository testdata walk
		src, err := os.ReadFile(path)
		if err != nil {
			return nil
		}
		f.Add(clampSeed(src))
		return nil
	})
}

// addArchiveSeeds adds the snippets kept in the rule test archives.
func addArchiveSeeds(f *testing.F) {
	matches, err := filepath.Glob(filepath.Join("..", "rules", "testdata", "*.txtar"))
	if err != nil {
		return
	}
	for _, m := range matches {
		ar, err := txtar.ParseFile(m)
		if err != nil {
			continue
		}
		for _, file := range ar.Files {
			f.Add(clampSeed(file.Data))
		}
	}
}

func clampSeed(src []byte) []byte {
	if len(src) <= maxSeedBytes {
		return append([]byte(nil), src...)
	}
	return append([]byte(nil), src[:maxSeedBytes]...)
}
