package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
)

// ModuleHash content-addresses a set of atom bytes.
type ModuleHash [sha256.Size]byte

// SHA256 hashes data into a ModuleHash.
func SHA256(data []byte) ModuleHash {
	return ModuleHash(sha256.Sum256(data))
}

// ParseModuleHash parses a lowercase hex-encoded SHA-256 digest.
func ParseModuleHash(hexStr string) (ModuleHash, error) {
	raw, err := hex.DecodeString(hexStr)
	if err != nil {
		return ModuleHash{}, fmt.Errorf("cache: invalid module hash %q: %w", hexStr, err)
	}
	if len(raw) != sha256.Size {
		return ModuleHash{}, fmt.Errorf("cache: module hash %q is %d bytes, want %d", hexStr, len(raw), sha256.Size)
	}
	var h ModuleHash
	copy(h[:], raw)
	return h, nil
}

func (h ModuleHash) String() string { return hex.EncodeToString(h[:]) }

// ModuleCache is a two-tier cache for compiled-module bytes, keyed by
// ModuleHash: an in-memory LRU in front of a directory-backed tier with
// unbounded lifetime. The in-memory tier's lifetime is bound to the
// process; the disk tier persists across runs.
type ModuleCache struct {
	memory *lru.Cache[ModuleHash, []byte]
	dir    string
	logger *zap.Logger
}

// NewModuleCache constructs a ModuleCache with an in-memory tier
// holding at most memoryCapacity entries, backed by dir on disk. dir
// may be empty to disable the disk tier (memory-only).
func NewModuleCache(memoryCapacity int, dir string, logger *zap.Logger) (*ModuleCache, error) {
	memory, err := lru.New[ModuleHash, []byte](memoryCapacity)
	if err != nil {
		return nil, fmt.Errorf("cache: constructing in-memory LRU: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ModuleCache{memory: memory, dir: dir, logger: logger}, nil
}

func (c *ModuleCache) diskPath(h ModuleHash) string {
	return filepath.Join(c.dir, h.String())
}

// Lookup returns compiled bytes for h, checking the in-memory tier
// first and promoting a disk hit back into memory.
func (c *ModuleCache) Lookup(h ModuleHash) ([]byte, bool) {
	if v, ok := c.memory.Get(h); ok {
		return v, true
	}
	if c.dir == "" {
		return nil, false
	}
	data, err := os.ReadFile(c.diskPath(h))
	if err != nil {
		return nil, false
	}
	c.memory.Add(h, data)
	return data, true
}

// Store writes compiled bytes for h into both tiers. A disk write
// failure is logged and swallowed; the in-memory tier still serves
// this process.
func (c *ModuleCache) Store(h ModuleHash, data []byte) {
	c.memory.Add(h, data)
	if c.dir == "" {
		return
	}
	if err := c.storeDisk(h, data); err != nil {
		c.logger.Warn("cache: failed to persist module", zap.String("hash", h.String()), zap.Error(err))
	}
}

func (c *ModuleCache) storeDisk(h ModuleHash, data []byte) error {
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}
	tmp, err := os.CreateTemp(c.dir, ".module-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close: %w", err)
	}
	// Module bytes are content-addressed and therefore write-once: unlike
	// the query-response cache, two writers racing on the same key always
	// agree on the content, so no rename-vs-reader ordering concern exists
	// beyond not exposing a partial file, which the temp-file step covers.
	if err := os.Rename(tmpPath, c.diskPath(h)); err != nil {
		return fmt.Errorf("rename into place: %w", err)
	}
	return nil
}
