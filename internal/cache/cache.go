package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/lydakis/dojutsu/internal/paths"
)

// Key identifies a daemon call. Args are positional, so order is part of
// the key.
type Key struct {
	Package  string
	Function string
	Args     []string
}

type entry struct {
	Response []byte    `json:"response"`
	Created  time.Time `json:"created"`
	Expires  time.Time `json:"expires"`
}

// Get looks up a cached response document. Returns false if not found or expired.
func Get(key Key) ([]byte, bool) {
	e, _, ok := getEntry(key)
	if !ok {
		return nil, false
	}
	return e.Response, true
}

// Put stores a response document in the cache.
func Put(key Key, response []byte, ttl time.Duration) error {
	dir := cacheDir()
	if err := paths.EnsureDir(dir); err != nil {
		return err
	}

	now := time.Now()
	e := entry{
		Response: response,
		Created:  now,
		Expires:  now.Add(ttl),
	}

	data, err := json.Marshal(e)
	if err != nil {
		return err
	}

	return os.WriteFile(entryPath(key), data, 0600)
}

func getEntry(key Key) (entry, string, bool) {
	path := entryPath(key)
	data, err := os.ReadFile(path)
	if err != nil {
		return entry{}, path, false
	}

	var e entry
	if err := json.Unmarshal(data, &e); err != nil {
		_ = os.Remove(path)
		return entry{}, path, false
	}

	if time.Now().After(e.Expires) {
		_ = os.Remove(path)
		return entry{}, path, false
	}

	return e, path, true
}

func entryPath(key Key) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s\x00%s", key.Package, key.Function)
	for _, arg := range key.Args {
		fmt.Fprintf(h, "\x00%d:%s", len(arg), arg)
	}
	name := hex.EncodeToString(h.Sum(nil))[:32]
	return filepath.Join(cacheDir(), name+".json")
}

func cacheDir() string {
	return filepath.Join(paths.CacheDir(), "responses")
}
