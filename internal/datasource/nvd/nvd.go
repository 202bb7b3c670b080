// SPDX-FileCopyrightText: 2026 Bonial International GmbH
// SPDX-License-Identifier: Apache-2.0

// Package nvd maintains the CVSS metadata catalog (nvd_results.json) by
// querying the NVD CVE 2.0 API one vulnerability at a time.
package nvd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/sirupsen/logrus"

	"github.com/bonial-oss/resilience-sim/internal/cache"
	"github.com/bonial-oss/resilience-sim/internal/metrics"
	"github.com/bonial-oss/resilience-sim/internal/types"
)

const (
	// CacheFilename is the catalog file inside the cache directory.
	CacheFilename = "nvd_results.json"

	DefaultBaseURL = "https://services.nvd.nist.gov/rest/json/cves/2.0"

	userAgent       = "resilience-sim/1.0"
	maxResponseSize = 10 * 1024 * 1024
	memoSize        = 4096

	errNoData = "No data returned"
	errNoCVSS = "No CVSS data found"
)

// metric blocks in preference order
var metricKeys = []string{"cvssMetricV31", "cvssMetricV30", "cvssMetricV2"}

// Options configures a Source. Zero values select the defaults.
type Options struct {
	BaseURL      string
	APIKey       string
	RequestDelay time.Duration
	Timeout      time.Duration
	TTL          time.Duration
	HTTPClient   *http.Client
	Logger       logrus.FieldLogger
	Metrics      *metrics.Recorder
}

// Source fetches and caches CVSS metadata.
type Source struct {
	cache   *cache.Cache
	client  *http.Client
	baseURL string
	apiKey  string
	delay   time.Duration
	memo    *lru.Cache[string, types.CVSSMetadata]
	log     logrus.FieldLogger
	metrics *metrics.Recorder
}

// NewSource creates a source whose catalog lives in cacheDir.
func NewSource(cacheDir string, opts Options) (*Source, error) {
	memo, err := lru.New[string, types.CVSSMetadata](memoSize)
	if err != nil {
		return nil, fmt.Errorf("creating metadata memo: %w", err)
	}
	client := opts.HTTPClient
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 60 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
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
		baseURL: baseURL,
		apiKey:  opts.APIKey,
		delay:   opts.RequestDelay,
		memo:    memo,
		log:     log.WithField("source", "nvd"),
		metrics: opts.Metrics,
	}, nil
}

// CachePath returns the location of the catalog file.
func (s *Source) CachePath() string { return s.cache.Path(CacheFilename) }

// Load returns a catalog covering cveIDs.
//
// Logic:
//  1. If skipUpdate and the cache exists -> return the cached catalog.
//  2. If the cache is fresh -> fetch only vulnerabilities it does not hold.
//  3. Otherwise refetch every requested vulnerability.
//  4. If the API could not be reached at all and a cache exists -> warn and
//     return the stale catalog.
//  5. If the API could not be reached and there is no cache -> error.
func (s *Source) Load(ctx context.Context, cveIDs []string, skipUpdate bool) (types.MetadataCatalog, error) {
	cached := s.cache.Exists(CacheFilename)
	if skipUpdate && cached {
		return s.loadFromCache()
	}

	catalog := types.MetadataCatalog{}
	if cached {
		c, err := s.loadFromCache()
		if err != nil {
			s.log.WithError(err).Warn("ignoring unreadable metadata cache")
			cached = false
		} else {
			catalog = c
		}
	}

	pending := cveIDs
	if cached && s.cache.IsFresh() {
		pending = pending[:0:0]
		for _, id := range cveIDs {
			if _, ok := catalog[id]; !ok {
				pending = append(pending, id)
			}
		}
		if len(pending) == 0 {
			return catalog, nil
		}
	}

	fetched, err := s.Fetch(ctx, pending)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if cached {
			s.log.WithError(err).Warn("failed to query NVD, using stale metadata cache")
			return catalog, nil
		}
		return nil, fmt.Errorf("querying NVD: %w", err)
	}

	for id, meta := range fetched {
		if old, ok := catalog[id]; ok && !meta.Usable() && old.Usable() {
			s.log.WithField("cve", id).Warn("keeping cached CVSS metadata after failed refresh")
			continue
		}
		catalog[id] = meta
	}
	data, err := json.MarshalIndent(catalog, "", "    ")
	if err != nil {
		return nil, fmt.Errorf("encoding metadata catalog: %w", err)
	}
	if err := s.cache.Store(CacheFilename, data, len(catalog)); err != nil {
		return nil, fmt.Errorf("storing metadata catalog in cache: %w", err)
	}
	return catalog, nil
}

// Fetch queries every id in order, spacing requests by the configured delay.
// A failure for one vulnerability is recorded in its Error field. An error
// is returned only when the context ends or no request reached the API.
func (s *Source) Fetch(ctx context.Context, cveIDs []string) (types.MetadataCatalog, error) {
	out := make(types.MetadataCatalog, len(cveIDs))
	var (
		reached  int
		lastErr  error
		requests int
	)
	for _, id := range cveIDs {
		if meta, ok := s.memo.Get(id); ok {
			out[id] = meta
			s.metrics.ObserveNVDRequest(metrics.OutcomeCached)
			reached++
			continue
		}
		if requests > 0 {
			if err := sleep(ctx, s.delay); err != nil {
				return nil, err
			}
		}
		requests++

		meta, err := s.fetchOne(ctx, id)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			lastErr = err
			s.metrics.ObserveNVDRequest(metrics.OutcomeHTTPError)
			s.log.WithError(err).WithField("cve", id).Warn("NVD request failed")
			out[id] = errorRecord(err.Error())
			continue
		}
		reached++
		if meta.Usable() {
			s.memo.Add(id, meta)
			s.metrics.ObserveNVDRequest(metrics.OutcomeOK)
		} else {
			s.metrics.ObserveNVDRequest(metrics.OutcomeNoData)
		}
		out[id] = meta
	}
	if reached == 0 && lastErr != nil {
		return out, lastErr
	}
	return out, nil
}

func (s *Source) fetchOne(ctx context.Context, cveID string) (types.CVSSMetadata, error) {
	u := s.baseURL + "?" + url.Values{"cveId": {cveID}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return types.CVSSMetadata{}, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	if s.apiKey != "" {
		req.Header.Set("apiKey", s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return types.CVSSMetadata{}, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return types.CVSSMetadata{}, fmt.Errorf("HTTP %d for %s", resp.StatusCode, cveID)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return types.CVSSMetadata{}, fmt.Errorf("reading response body: %w", err)
	}
	return ParseResponse(data), nil
}

// response is the subset of the CVE 2.0 API payload we read.
type response struct {
	Vulnerabilities []struct {
		CVE struct {
			Metrics map[string][]struct {
				CVSSData *cvssData `json:"cvssData"`
			} `json:"metrics"`
		} `json:"cve"`
	} `json:"vulnerabilities"`
}

type cvssData struct {
	BaseScore          float64 `json:"baseScore"`
	AttackVector       string  `json:"attackVector"`
	AccessVector       string  `json:"accessVector"`
	PrivilegesRequired string  `json:"privilegesRequired"`
	UserInteraction    string  `json:"userInteraction"`
	VectorString       string  `json:"vectorString"`
}

// ParseResponse extracts the preferred CVSS block from one API response.
// Unusable payloads come back as error records.
func ParseResponse(data []byte) types.CVSSMetadata {
	var r response
	if err := json.Unmarshal(data, &r); err != nil {
		return errorRecord(fmt.Sprintf("decoding response: %v", err))
	}
	if len(r.Vulnerabilities) == 0 {
		return errorRecord(errNoData)
	}
	m := r.Vulnerabilities[0].CVE.Metrics
	for _, key := range metricKeys {
		blocks := m[key]
		if len(blocks) == 0 || blocks[0].CVSSData == nil {
			continue
		}
		d := blocks[0].CVSSData
		version := strings.Replace(key, "cvssMetric", "CVSS ", 1)
		av := d.AttackVector
		if av == "" {
			av = d.AccessVector
		}
		meta := types.CVSSMetadata{
			BaseScore:          d.BaseScore,
			AttackVector:       types.ParseAttackVector(av),
			PrivilegesRequired: types.PrivilegesNotApplicable,
			UserInteraction:    types.UserInteractionNotApplicable,
			VectorString:       d.VectorString,
			CVSSVersion:        version,
		}
		if key != "cvssMetricV2" {
			meta.PrivilegesRequired = types.ParsePrivilegesRequired(d.PrivilegesRequired)
			meta.UserInteraction = types.ParseUserInteraction(d.UserInteraction)
		}
		return meta
	}
	return errorRecord(errNoCVSS)
}

// CVEIDs returns the sorted, deduplicated vulnerability identifiers of the
// given assets. Entries that do not look like CVE identifiers are skipped.
func CVEIDs(assets []types.Asset) []string {
	set := make(map[string]struct{})
	for i := range assets {
		for _, id := range assets[i].CVEs {
			id = strings.TrimSpace(id)
			if strings.HasPrefix(id, "CVE-") {
				set[id] = struct{}{}
			}
		}
	}
	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (s *Source) loadFromCache() (types.MetadataCatalog, error) {
	data, err := s.cache.Load(CacheFilename)
	if err != nil {
		return nil, fmt.Errorf("loading metadata from cache: %w", err)
	}
	var catalog types.MetadataCatalog
	if err := json.Unmarshal(data, &catalog); err != nil {
		return nil, fmt.Errorf("unmarshaling metadata catalog: %w", err)
	}
	if catalog == nil {
		catalog = types.MetadataCatalog{}
	}
	return catalog, nil
}

func errorRecord(msg string) types.CVSSMetadata {
	return types.CVSSMetadata{Error: &msg}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
