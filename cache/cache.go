// Package cache implements mtl.lock — a translation memory that maps MD5
// checksums of source strings to their translations per target language.
// This enables incremental runs: strings already translated in an earlier
// run are filled from the cache instead of being sent to a provider again,
// saving tokens and time.
//
// The cache is stored alongside mtl.yaml as mtl.lock.
package cache

import (
	"crypto/md5"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

// FileName is the cache file looked up at the project root.
const FileName = "mtl.lock"

// Version is the cache file format version.
const Version = 1

// Cache is the on-disk translation memory. All access goes through one
// mutex because batch workers record entries concurrently.
type Cache struct {
	Version int `yaml:"version"`
	// Entries maps target language -> md5(source) -> translation.
	Entries map[string]map[string]string `yaml:"entries"`

	mu   sync.Mutex `yaml:"-"`
	path string     `yaml:"-"`
}

// Load reads the cache from dir. A missing file yields an empty cache; a
// present but malformed file is an error.
func Load(dir string) (*Cache, error) {
	path := filepath.Join(dir, FileName)
	c := &Cache{
		Version: Version,
		Entries: make(map[string]map[string]string),
		path:    path,
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return c, nil
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	c.path = path
	if c.Entries == nil {
		c.Entries = make(map[string]map[string]string)
	}
	return c, nil
}

// Save writes the cache back to disk.
func (c *Cache) Save() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.path == "" {
		return fmt.Errorf("cache path not set")
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling cache: %w", err)
	}
	if err := os.WriteFile(c.path, data, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", c.path, err)
	}
	return nil
}

// Path returns the cache file path.
func (c *Cache) Path() string {
	return c.path
}

// Hash computes the MD5 hex digest of a source string.
func Hash(s string) string {
	return fmt.Sprintf("%x", md5.Sum([]byte(s)))
}

// Lookup returns the cached translation of source for the given language.
func (c *Cache) Lookup(lang, source string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entries, ok := c.Entries[lang]
	if !ok {
		return "", false
	}
	translated, ok := entries[Hash(source)]
	return translated, ok
}

// Put records a translation. Identity mappings are not stored: a string the
// provider returned unchanged should be retried on the next run.
func (c *Cache) Put(lang, source, translated string) {
	if translated == "" || translated == source {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.Entries[lang] == nil {
		c.Entries[lang] = make(map[string]string)
	}
	c.Entries[lang][Hash(source)] = translated
}

// Len returns the number of cached translations for a language.
func (c *Cache) Len(lang string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.Entries[lang])
}
