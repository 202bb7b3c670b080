// SPDX-FileCopyrightText: 2026 Bonial International GmbH
// SPDX-License-Identifier: Apache-2.0

// Package kev loads the CISA Known Exploited Vulnerabilities catalog. The
// attack simulator uses it to flag entry points that are exploited in the
// wild.
package kev

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/bonial-oss/resilience-sim/internal/cache"
)

const (
	cacheFilename   = "known_exploited_vulnerabilities.json"
	maxResponseSize = 50 * 1024 * 1024 // 50 MB

	PrimaryURL  = "https://www.cisa.gov/sites/default/files/feeds/known_exploited_vulnerabilities.json"
	FallbackURL = "https://raw.githubusercontent.com/cisagov/kev-data/main/known_exploited_vulnerabilities.json"
)

// Entry is one catalog record.
type Entry struct {
	CVEID                      string `json:"cveID"`
	VendorProject              string `json:"vendorProject"`
	Product                    string `json:"product"`
	VulnerabilityName          string `json:"vulnerabilityName"`
	DateAdded                  string `json:"dateAdded"`
	DueDate                    string `json:"dueDate"`
	KnownRansomwareCampaignUse string `json:"knownRansomwareCampaignUse"`
}

// Catalog is the CISA feed document.
type Catalog struct {
	CatalogVersion  string  `json:"catalogVersion"`
	DateReleased    string  `json:"dateReleased"`
	Count           int     `json:"count"`
	Vulnerabilities []Entry `json:"vulnerabilities"`
}

// Options configures a Source. Empty URLs select the CISA feed and its
// GitHub mirror.
type Options struct {
	URLs       []string
	TTL        time.Duration
	HTTPClient *http.Client
	Logger     logrus.FieldLogger
}

// Source provides access to CISA KEV data with caching support.
type Source struct {
	cache   *cache.Cache
	client  *http.Client
	urls    []string
	log     logrus.FieldLogger
	version string
	entries map[string]Entry
}

// NewSource creates a KEV data source whose cache lives in cacheDir.
func NewSource(cacheDir string, opts Options) *Source {
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	urls := opts.URLs
	if len(urls) == 0 {
		urls = []string{PrimaryURL, FallbackURL}
	}
	log := opts.Logger
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}
	return &Source{
		cache:   cache.New(cacheDir, opts.TTL),
		client:  client,
		urls:    urls,
		log:     log.WithField("source", "kev"),
		entries: make(map[string]Entry),
	}
}

// Load fetches KEV data, using cache when appropriate.
//
// Logic:
//  1. If skipUpdate and cache exists -> load from cache, parse, return.
//  2. If cache is fresh -> load from cache, parse, return.
//  3. Download fresh data.
//  4. If download succeeds -> store in cache, parse, return.
//  5. If download fails and cache exists -> warn, load stale cache, parse, return.
//  6. If download fails and no cache -> return error.
func (s *Source) Load(ctx context.Context, skipUpdate bool) error {
	if skipUpdate && s.cache.Exists(cacheFilename) {
		return s.loadFromCache()
	}

	if s.cache.IsFresh() && s.cache.Exists(cacheFilename) {
		return s.loadFromCache()
	}

	data, err := s.download(ctx)
	if err == nil {
		if err := s.parseJSON(data); err != nil {
			return err
		}
		if storeErr := s.cache.Store(cacheFilename, data, len(s.entries)); storeErr != nil {
			return fmt.Errorf("storing KEV data in cache: %w", storeErr)
		}
		s.log.WithFields(logrus.Fields{"entries": len(s.entries), "version": s.version}).Debug("KEV catalog downloaded")
		return nil
	}

	if s.cache.Exists(cacheFilename) {
		s.log.WithError(err).Warn("failed to download KEV data, using stale cache")
		return s.loadFromCache()
	}

	return fmt.Errorf("downloading KEV data: %w", err)
}

// Lookup returns the KEV entry for the given CVE ID, or nil if not found.
func (s *Source) Lookup(cveID string) *Entry {
	entry, ok := s.entries[cveID]
	if !ok {
		return nil
	}
	return &entry
}

// Listed reports whether cveID is in the catalog. It has the shape of the
// simulator's known-exploited predicate.
func (s *Source) Listed(cveID string) bool {
	return s.Lookup(cveID) != nil
}

// Len returns the number of catalog entries.
func (s *Source) Len() int { return len(s.entries) }

// Version returns the catalog version of the loaded feed.
func (s *Source) Version() string { return s.version }

func (s *Source) loadFromCache() error {
	data, err := s.cache.Load(cacheFilename)
	if err != nil {
		return fmt.Errorf("loading KEV data from cache: %w", err)
	}
	return s.parseJSON(data)
}

// download tries each configured URL in turn.
func (s *Source) download(ctx context.Context) ([]byte, error) {
	var errs []error
	for _, u := range s.urls {
		data, err := s.downloadFrom(ctx, u)
		if err == nil {
			return data, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		s.log.WithError(err).WithField("url", u).Debug("KEV download failed")
		errs = append(errs, fmt.Errorf("%s: %w", u, err))
	}
	return nil, errors.Join(errs...)
}

func (s *Source) downloadFrom(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("HTTP %d for %s", resp.StatusCode, url)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	return data, nil
}

// parseJSON unmarshals the KEV catalog JSON and populates the entries map.
func (s *Source) parseJSON(data []byte) error {
	var catalog Catalog
	if err := json.Unmarshal(data, &catalog); err != nil {
		return fmt.Errorf("unmarshaling KEV catalog: %w", err)
	}

	s.entries = make(map[string]Entry, len(catalog.Vulnerabilities))
	s.version = catalog.CatalogVersion
	for _, vuln := range catalog.Vulnerabilities {
		s.entries[vuln.CVEID] = vuln
	}

	return nil
}
