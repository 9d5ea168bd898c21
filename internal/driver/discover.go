package driver

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
)

// skippedDirs are never descended into.
var skippedDirs = map[string]bool{
	"target":       true,
	"node_modules": true,
	"vendor":       true,
}

// Filter selects files during discovery. Patterns use path.Match syntax
// and are matched against both the slash-separated path relative to the
// walked root and the base name.
type Filter struct {
	Include []string
	Exclude []string
}

func (f Filter) matches(patterns []string, rel string) bool {
	base := path.Base(rel)
	for _, p := range patterns {
		if ok, _ := path.Match(p, rel); ok {
			return true
		}
		if ok, _ := path.Match(p, base); ok {
			return true
		}
		// `dir/**` style prefixes
		if prefix, found := strings.CutSuffix(p, "/**"); found && (rel == prefix || strings.HasPrefix(rel, prefix+"/")) {
			return true
		}
	}
	return false
}

func (f Filter) keep(rel string) bool {
	if f.matches(f.Exclude, rel) {
		return false
	}
	return len(f.Include) == 0 || f.matches(f.Include, rel)
}

// Validate reports the first malformed pattern.
func (f Filter) Validate() error {
	for _, p := range append(append([]string(nil), f.Include...), f.Exclude...) {
		if _, err := path.Match(strings.TrimSuffix(p, "/**"), ""); err != nil {
			return fmt.Errorf("bad pattern %q: %w", p, err)
		}
	}
	return nil
}

// Discover expands paths into a sorted, de-duplicated list of Rust
// sources. Files named explicitly are kept even without the .rs suffix.
// Hidden directories, build output and VCS metadata are skipped.
func Discover(paths []string, filter Filter) ([]string, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	var files []string
	add := func(p string) {
		p = filepath.Clean(p)
		if !seen[p] {
			seen[p] = true
			files = append(files, p)
		}
	}
	for _, root := range paths {
		info, err := os.Stat(root)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			add(root)
			continue
		}
		err = filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			rel, relErr := filepath.Rel(root, p)
			if relErr != nil {
				return relErr
			}
			rel = filepath.ToSlash(rel)
			if d.IsDir() {
				if p != root && (strings.HasPrefix(d.Name(), ".") || skippedDirs[d.Name()]) {
					return filepath.SkipDir
				}
				if rel != "." && filter.matches(filter.Exclude, rel) {
					return filepath.SkipDir
				}
				return nil
			}
			if strings.HasSuffix(p, ".rs") && filter.keep(rel) {
				add(p)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walk %s: %w", root, err)
		}
	}
	sort.Strings(files)
	return files, nil
}
