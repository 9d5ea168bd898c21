package driver

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/shaneholloman/ultimate-bug-scanner/internal/engine"
	"github.com/shaneholloman/ultimate-bug-scanner/internal/source"
	"github.com/shaneholloman/ultimate-bug-scanner/internal/version"
)

// Current schema version - increment when cachePayload changes.
const cacheSchemaVersion uint16 = 1

// Cache stores engine results on disk keyed by file content, rule set
// fingerprint and settings. It is safe for concurrent use.
type Cache struct {
	mu  sync.RWMutex
	dir string
}

type cachePayload struct {
	Schema uint16
	Result *engine.Result
}

// OpenCache opens the cache under dir, or under $XDG_CACHE_HOME/ubs
// (falling back to ~/.cache/ubs) when dir is empty.
func OpenCache(dir string) (*Cache, error) {
	if dir == "" {
		base := os.Getenv("XDG_CACHE_HOME")
		if base == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return nil, err
			}
			base = filepath.Join(home, ".cache")
		}
		dir = filepath.Join(base, "ubs")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &Cache{dir: dir}, nil
}

func (c *Cache) Dir() string { return c.dir }

// CacheKey identifies one analysis:
// H(schema || tool version || content || fingerprint || settings).
// Rule logic can change between releases while rule ids stay the same,
// so the tool version is part of the key.
type CacheKey [32]byte

func cacheKey(content source.Digest, fingerprint string, eng *engine.Engine) CacheKey {
	opts := eng.Options()
	h := sha256.New()
	var schema [2]byte
	binary.LittleEndian.PutUint16(schema[:], cacheSchemaVersion)
	_, _ = h.Write(schema[:])
	_, _ = h.Write([]byte(version.Short()))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write(content[:])
	_, _ = h.Write([]byte(fingerprint))
	var buf [8]byte
	for _, v := range []int64{
		int64(opts.Settings.BlockingThreshold),
		int64(opts.MaxVisits),
		int64(opts.MaxDepth),
		boolInt(opts.NoIgnores),
		boolInt(opts.ReportUnusedIgnores),
	} {
		binary.LittleEndian.PutUint64(buf[:], uint64(v)) // #nosec G115 -- bit pattern only
		_, _ = h.Write(buf[:])
	}
	var out CacheKey
	copy(out[:], h.Sum(nil))
	return out
}

func boolInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

func (c *Cache) pathFor(key CacheKey) string {
	hexKey := hex.EncodeToString(key[:])
	return filepath.Join(c.dir, "results", hexKey[:2], hexKey+".mp")
}

// Put serializes and writes a result. The file appears atomically.
func (c *Cache) Put(key CacheKey, res *engine.Result) (err error) {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	p := c.pathFor(key)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(filepath.Dir(p), "tmp-*")
	if err != nil {
		return err
	}
	defer func() {
		if rmErr := os.Remove(f.Name()); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) && err == nil {
			err = rmErr
		}
	}()

	if err := msgpack.NewEncoder(f).Encode(&cachePayload{Schema: cacheSchemaVersion, Result: res}); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(f.Name(), p)
}

// Get reads a result and rebinds its spans to file. A missing entry or a
// different schema is a miss, not an error.
func (c *Cache) Get(key CacheKey, file *source.File) (*engine.Result, bool, error) {
	if c == nil {
		return nil, false, nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	data, err := os.ReadFile(c.pathFor(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, err
	}
	var payload cachePayload
	if err := msgpack.Unmarshal(data, &payload); err != nil {
		return nil, false, fmt.Errorf("decode cache entry: %w", err)
	}
	if payload.Schema != cacheSchemaVersion || payload.Result == nil {
		return nil, false, nil
	}
	remapResult(payload.Result, file)
	return payload.Result, true, nil
}

// DropAll invalidates the cache, useful after format changes.
func (c *Cache) DropAll() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	old := c.dir + ".old-" + time.Now().Format("20060102150405")
	if err := os.Rename(c.dir, old); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	if err := os.RemoveAll(old); err != nil {
		return err
	}
	return os.MkdirAll(c.dir, 0o755)
}

// remapResult points every span of a cached result at file. File ids are
// only meaningful inside the FileSet that produced them.
func remapResult(res *engine.Result, file *source.File) {
	id := file.ID
	res.Path = file.Path
	for i := range res.Findings {
		res.Findings[i].Span.File = id
	}
	for i := range res.Faults {
		res.Faults[i].Span.File = id
	}
	for i := range res.Diagnostics {
		d := &res.Diagnostics[i]
		d.Primary.File = id
		for j := range d.Notes {
			d.Notes[j].Span.File = id
		}
	}
	if res.ParseError != nil {
		res.ParseError.Span.File = id
		res.ParseError.Path = file.Path
	}
}
