// Package tokencache is an optional, disabled-by-default local cache for
// bearer tokens, backed by bbolt. It exists only to spare a developer
// profile that restarts the process often from re-authenticating against
// the identity provider on every restart; the core's authoritative Token
// Provider never reads from it by default, since the graph is the
// synchronizer's only persisted state.
package tokencache

import (
	"encoding/json"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
)

var bucketTokens = []byte("tokens")

// Entry is one cached token plus the bookkeeping needed to judge freshness
// without re-contacting the issuer.
type Entry struct {
	Token      string        `json:"token"`
	ObtainedAt time.Time     `json:"obtained_at"`
	ExpiresIn  time.Duration `json:"expires_in"`
}

// Fresh reports whether the entry is still usable at threshold (a fraction
// of ExpiresIn, matching the Token Provider's own renewal-threshold logic).
func (e Entry) Fresh(threshold float64) bool {
	if e.ExpiresIn == 0 {
		return true
	}
	return time.Since(e.ObtainedAt) < time.Duration(float64(e.ExpiresIn)*threshold)
}

// Cache is a bbolt-backed key-value store of cached token entries, keyed by
// profile name.
type Cache struct {
	db *bolt.DB
}

// Open creates or opens the cache file at path, creating the bucket if
// this is the first use.
func Open(path string) (*Cache, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open token cache: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketTokens)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create token cache bucket: %w", err)
	}
	return &Cache{db: db}, nil
}

func (c *Cache) Close() error {
	return c.db.Close()
}

// Get returns the cached entry for profile, or ok=false if absent.
func (c *Cache) Get(profile string) (Entry, bool, error) {
	var entry Entry
	var found bool
	err := c.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketTokens).Get([]byte(profile))
		if data == nil {
			return nil
		}
		found = true
		return json.Unmarshal(data, &entry)
	})
	return entry, found, err
}

// Put stores entry under profile, overwriting any previous value.
func (c *Cache) Put(profile string, entry Entry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal token cache entry: %w", err)
	}
	return c.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketTokens).Put([]byte(profile), data)
	})
}
