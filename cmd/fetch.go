// SPDX-FileCopyrightText: 2026 Bonial International GmbH
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/bonial-oss/resilience-sim/internal/datasource/nvd"
	"github.com/bonial-oss/resilience-sim/internal/output"
)

type fetchSummary struct {
	CVEs   int    `json:"cves"`
	Usable int    `json:"usable"`
	Errors int    `json:"errors"`
	Path   string `json:"path"`
}

func newFetchCVSSCommand(opts *Options) *cobra.Command {
	var skipUpdate bool
	cmd := &cobra.Command{
		Use:   "fetch-cvss",
		Short: "Fetch CVSS metadata from NVD for every vulnerability in the dataset",
		Long: `fetch-cvss collects the CVE identifiers of the dataset, queries the NVD
CVE API for each one and stores the catalog used by simulate.

The API key is read from the environment variable named by nvd.api_key_env
in the configuration (NVD_API_KEY by default).`,
		Args: cobra.NoArgs,
	}
	cmd.RunE = opts.runE(func(cmd *cobra.Command, _ []string) error {
		ds, _, err := opts.loadDataset()
		if err != nil {
			return err
		}
		cacheDir, err := opts.cacheRoot()
		if err != nil {
			return err
		}

		nvdCfg := opts.cfg.NVD
		src, err := nvd.NewSource(filepath.Join(cacheDir, "nvd"), nvd.Options{
			BaseURL:      nvdCfg.BaseURL,
			APIKey:       os.Getenv(nvdCfg.APIKeyEnv),
			RequestDelay: nvdCfg.RequestDelay,
			Timeout:      nvdCfg.Timeout,
			TTL:          nvdCfg.CacheTTL,
			Logger:       opts.log,
			Metrics:      opts.metrics,
		})
		if err != nil {
			return err
		}

		ids := nvd.CVEIDs(ds.Assets)
		catalog, err := src.Load(cmd.Context(), ids, skipUpdate)
		if err != nil {
			return fmt.Errorf("fetching CVSS metadata: %w", err)
		}

		summary := fetchSummary{CVEs: len(ids), Path: src.CachePath()}
		for _, id := range ids {
			if catalog.Lookup(id) != nil {
				summary.Usable++
			} else {
				summary.Errors++
			}
		}
		opts.log.WithFields(logrus.Fields{"cves": summary.CVEs, "usable": summary.Usable}).Info("CVSS metadata ready")

		return opts.write(cmd, summary, func(w io.Writer, _ output.TableConfig) error {
			_, err := fmt.Fprintf(w, "Fetched %d CVEs (%d usable, %d errors) into %s\n",
				summary.CVEs, summary.Usable, summary.Errors, summary.Path)
			return err
		})
	})
	cmd.Flags().BoolVar(&skipUpdate, "skip-db-update", false, "Use the cached catalog without contacting NVD")
	return cmd
}
