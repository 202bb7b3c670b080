// SPDX-FileCopyrightText: 2026 Bonial International GmbH
// SPDX-License-Identifier: Apache-2.0

// Package cache stores downloaded feeds (the CVSS metadata catalog and the
// KEV catalog) on disk next to a metadata.json stamp recording when they
// were last refreshed.
package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// DefaultTTL is how long a stored feed counts as fresh.
const DefaultTTL = 24 * time.Hour

const metadataFile = "metadata.json"

// Metadata is the freshness stamp written on every Store.
type Metadata struct {
	DownloadedAt string `json:"downloaded_at"`
	// Entries is the number of records in the stored feed, when known.
	Entries int `json:"entries,omitempty"`
}

// Cache is a directory holding one or more feed files.
type Cache struct {
	dir string
	ttl time.Duration
	now func() time.Time
}

// New returns a cache rooted at dir. A non-positive ttl selects DefaultTTL.
func New(dir string, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{dir: dir, ttl: ttl, now: time.Now}
}

// Dir returns the cache directory.
func (c *Cache) Dir() string { return c.dir }

// Path returns the on-disk location of filename.
func (c *Cache) Path(filename string) string { return filepath.Join(c.dir, filename) }

// IsFresh reports whether the last Store happened within the TTL.
func (c *Cache) IsFresh() bool {
	meta, err := c.Metadata()
	if err != nil {
		return false
	}
	downloadedAt, err := time.Parse(time.RFC3339, meta.DownloadedAt)
	if err != nil {
		return false
	}
	return c.now().Sub(downloadedAt) < c.ttl
}

// Store writes data to filename and refreshes the stamp. entries may be 0.
func (c *Cache) Store(filename string, data []byte, entries int) error {
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return fmt.Errorf("creating cache dir: %w", err)
	}
	if err := writeAtomic(c.Path(filename), data); err != nil {
		return fmt.Errorf("writing cache data: %w", err)
	}
	meta := Metadata{
		DownloadedAt: c.now().UTC().Format(time.RFC3339),
		Entries:      entries,
	}
	metaBytes, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("marshaling metadata: %w", err)
	}
	if err := os.WriteFile(c.Path(metadataFile), metaBytes, 0o644); err != nil {
		return fmt.Errorf("writing metadata: %w", err)
	}
	return nil
}

// Load returns the stored contents of filename.
func (c *Cache) Load(filename string) ([]byte, error) {
	return os.ReadFile(c.Path(filename))
}

// Exists reports whether filename has been stored.
func (c *Cache) Exists(filename string) bool {
	_, err := os.Stat(c.Path(filename))
	return err == nil
}

// Metadata returns the current freshness stamp.
func (c *Cache) Metadata() (*Metadata, error) {
	data, err := os.ReadFile(c.Path(metadataFile))
	if err != nil {
		return nil, err
	}
	var meta Metadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// writeAtomic replaces path so a concurrent reader never sees a partial
// catalog.
func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}
