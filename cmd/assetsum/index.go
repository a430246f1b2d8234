package main

import (
	"context"
	"fmt"

	"github.com/assetsum/assetsum/internal/config"
	"github.com/assetsum/assetsum/internal/journal"
	"github.com/assetsum/assetsum/internal/manifest"
	"github.com/assetsum/assetsum/internal/store"
	"github.com/spf13/cobra"
)

// openManager opens the index and journal under cfg.Storage.DataDir
func openManager(ctx context.Context, cfg *config.Config) (*manifest.Manager, func(), error) {
	s, err := store.OpenWithRetry(ctx, cfg.IndexDir(), cfg.Storage.OpenBackoff, cfg.Storage.OpenAttempts)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open index: %w", err)
	}

	j, err := journal.New(journal.Config{
		Dir:         cfg.JournalDir(),
		SegmentSize: cfg.Journal.SegmentSize,
		Fsync:       cfg.Journal.Fsync,
	})
	if err != nil {
		s.Close()
		return nil, nil, fmt.Errorf("failed to open journal: %w", err)
	}

	m := manifest.NewManager(s, j, manifest.Options{
		Workers: cfg.Scanner.Workers,
		Exclude: cfg.Scanner.Exclude,
	})

	closeFn := func() {
		j.Close()
		s.Close()
	}
	return m, closeFn, nil
}

func scanRoot(cmd *cobra.Command) string {
	if root, _ := cmd.Flags().GetString("root"); root != "" {
		return root
	}
	return cfg.Scanner.Root
}

func newScanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Fingerprint the asset tree and update the index",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, closeFn, err := openManager(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer closeFn()

			result, err := m.Scan(cmd.Context(), scanRoot(cmd))
			if err != nil {
				return err
			}
			printf(cmd, "scan %s: %d added, %d changed, %d unchanged, %d removed\n",
				result.ScanID, result.Added, result.Changed, result.Unchanged, result.Removed)
			return nil
		},
	}
	cmd.Flags().String("root", "", "asset tree to scan (defaults to scanner.root)")
	return cmd
}

func newVerifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Check the asset tree against the index",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, closeFn, err := openManager(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer closeFn()

			report, err := m.Verify(cmd.Context(), scanRoot(cmd))
			if err != nil {
				return err
			}

			for _, p := range report.Mismatched {
				printf(cmd, "MISMATCH  %s\n", p)
			}
			for _, p := range report.Missing {
				printf(cmd, "MISSING   %s\n", p)
			}
			for _, p := range report.Unindexed {
				printf(cmd, "UNINDEXED %s\n", p)
			}
			printf(cmd, "%d verified\n", report.Verified)

			if !report.OK() {
				return fmt.Errorf("asset tree does not match index")
			}
			return nil
		},
	}
	cmd.Flags().String("root", "", "asset tree to verify (defaults to scanner.root)")
	return cmd
}

func newRebuildCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rebuild",
		Short: "Rebuild the index by replaying the journal",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, closeFn, err := openManager(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer closeFn()

			n, err := m.Rebuild()
			if err != nil {
				return err
			}
			printf(cmd, "rebuilt index with %d assets\n", n)
			return nil
		},
	}
}

func newCompactCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "compact",
		Short: "Compact the journal down to the current index",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, closeFn, err := openManager(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer closeFn()

			return m.Compact()
		},
	}
}
