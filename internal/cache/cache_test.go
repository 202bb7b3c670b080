// SPDX-FileCopyrightText: 2026 Bonial International GmbH
// SPDX-License-Identifier: Apache-2.0

package cache

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeStamp(t *testing.T, dir string, at time.Time) {
	t.Helper()
	metaBytes, err := json.Marshal(Metadata{DownloadedAt: at.UTC().Format(time.RFC3339)})
	require.NoError(t, err, "failed to marshal metadata")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "metadata.json"), metaBytes, 0o644))
}

func TestCache_IsFresh(t *testing.T) {
	tests := []struct {
		name  string
		ttl   time.Duration
		stamp time.Duration // age of the stamp; 0 writes none
		want  bool
	}{
		{name: "no metadata", ttl: 0},
		{name: "stale with default ttl", ttl: 0, stamp: 25 * time.Hour},
		{name: "fresh with default ttl", ttl: 0, stamp: time.Hour, want: true},
		{name: "stale with short ttl", ttl: 30 * time.Minute, stamp: time.Hour},
		{name: "fresh with long ttl", ttl: 72 * time.Hour, stamp: 48 * time.Hour, want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			c := New(dir, tt.ttl)
			if tt.stamp > 0 {
				writeStamp(t, dir, time.Now().Add(-tt.stamp))
			}
			assert.Equal(t, tt.want, c.IsFresh())
		})
	}
}

func TestCache_IsFresh_CorruptMetadata(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "metadata.json"), []byte("{"), 0o644))
	assert.False(t, New(dir, 0).IsFresh())
}

func TestCache_Store(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nvd")
	c := New(dir, 0)

	data := []byte(`{"CVE-2024-0001":{"base_score":9.8}}`)
	require.NoError(t, c.Store("nvd_results.json", data, 1), "Store() error")

	got, err := os.ReadFile(filepath.Join(dir, "nvd_results.json"))
	require.NoError(t, err, "failed to read stored data file")
	assert.Equal(t, string(data), string(got))

	meta, err := c.Metadata()
	require.NoError(t, err)
	assert.Equal(t, 1, meta.Entries)
	downloadedAt, err := time.Parse(time.RFC3339, meta.DownloadedAt)
	require.NoError(t, err, "failed to parse downloaded_at")
	assert.WithinDuration(t, time.Now(), downloadedAt, time.Minute)
	assert.True(t, c.IsFresh())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2, "temporary files must not be left behind")
}

func TestCache_Store_Overwrites(t *testing.T) {
	c := New(t.TempDir(), 0)
	require.NoError(t, c.Store("kev.json", []byte("old"), 0))
	require.NoError(t, c.Store("kev.json", []byte("new"), 0))

	got, err := c.Load("kev.json")
	require.NoError(t, err)
	assert.Equal(t, "new", string(got))
}

func TestCache_Load_NoCachedFile(t *testing.T) {
	c := New(t.TempDir(), 0)

	_, err := c.Load("nonexistent.json")
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestCache_Exists(t *testing.T) {
	dir := t.TempDir()
	c := New(dir, 0)

	assert.False(t, c.Exists("kev.json"), "Exists() = true before Store, want false")
	require.NoError(t, c.Store("kev.json", []byte("{}"), 0), "Store() error")
	assert.True(t, c.Exists("kev.json"), "Exists() = false after Store, want true")
	assert.Equal(t, filepath.Join(dir, "kev.json"), c.Path("kev.json"))
	assert.Equal(t, dir, c.Dir())
}
