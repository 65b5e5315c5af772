package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/five82/inkreader/internal/app"
	"github.com/five82/inkreader/internal/pagecache"
	"github.com/five82/inkreader/internal/session"
)

func newRunCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the device loop",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := app.LoadConfig(opts.configPath, opts.overrides)
			if err != nil {
				return err
			}
			logger := newLogger(cmd.ErrOrStderr(), cfg.LogLevel)
			return app.Run(cmd.Context(), app.Options{
				ConfigPath: opts.configPath,
				Overrides:  opts.overrides,
				Logger:     logger,
			})
		},
	}
}

func newSimCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sim",
		Short: "Run the device loop with a terminal simulator for the panel and buttons",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := app.LoadConfig(opts.configPath, opts.overrides)
			if err != nil {
				return err
			}
			// The simulator owns the terminal, so logs go to a file.
			if err := os.MkdirAll(cfg.StorageDir, 0o755); err != nil {
				return fmt.Errorf("create storage dir: %w", err)
			}
			logPath := filepath.Join(cfg.StorageDir, "inkreader.log")
			logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
			if err != nil {
				return fmt.Errorf("open log file: %w", err)
			}
			defer logFile.Close()

			return app.Run(cmd.Context(), app.Options{
				ConfigPath: opts.configPath,
				Overrides:  opts.overrides,
				Simulate:   true,
				LogPath:    logPath,
				Logger:     newLogger(logFile, cfg.LogLevel),
			})
		},
	}
}

type stateReport struct {
	Path        string `json:"path"`
	PageIndex   int    `json:"page_index"`
	PageCount   int    `json:"page_count"`
	CachedPages int    `json:"cached_pages"`
}

func newStateCmd(opts *rootOptions) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "state",
		Short: "Print the persisted reading position",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := app.LoadConfig(opts.configPath, opts.overrides)
			if err != nil {
				return err
			}
			file, err := session.NewFile(cfg.StatePath)
			if err != nil {
				return err
			}
			sess, err := file.Load()
			if err != nil {
				return err
			}
			cache, err := pagecache.New(afero.NewOsFs(), cfg.PagesDir(), &sess, nil, newLogger(cmd.ErrOrStderr(), cfg.LogLevel))
			if err != nil {
				return err
			}

			report := stateReport{
				Path:        file.Path(),
				PageIndex:   sess.CurrentPage,
				PageCount:   sess.PageCount,
				CachedPages: cache.Len(),
			}
			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(report)
			}
			position := "none"
			if sess.HasCurrent() {
				position = fmt.Sprintf("%d/%d", sess.CurrentPage+1, sess.PageCount)
			}
			_, err = fmt.Fprintf(out, "state:  %s\npage:   %s\ncached: %d\n", report.Path, position, report.CachedPages)
			return err
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func newCacheCmd(opts *rootOptions) *cobra.Command {
	openCache := func(cmd *cobra.Command) (*pagecache.Cache, error) {
		cfg, err := app.LoadConfig(opts.configPath, opts.overrides)
		if err != nil {
			return nil, err
		}
		sess := session.Fresh()
		return pagecache.New(afero.NewOsFs(), cfg.PagesDir(), &sess, nil, newLogger(cmd.ErrOrStderr(), cfg.LogLevel))
	}

	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect the local page cache",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cache, err := openCache(cmd)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "cached pages: %d\n", cache.Len())
			return err
		},
	}
	cacheCmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Delete every cached page",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cache, err := openCache(cmd)
			if err != nil {
				return err
			}
			removed := cache.Len()
			if err := cache.ClearAll(); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "removed %d cached pages\n", removed)
			return err
		},
	})
	return cacheCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), version)
			return err
		},
	}
}
