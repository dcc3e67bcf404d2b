package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/geotarget/internal/config"
	"github.com/sells-group/geotarget/internal/source"
)

var (
	importFormat  string
	importSheet   string
	importCountry string
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Manage the address index",
}

var indexImportCmd = &cobra.Command{
	Use:   "import <file-or-url>",
	Short: "Load address mappings from CSV, TSV, XLSX, or YAML into the index",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runImport(cmd.Context(), cfg, args[0], source.Options{
			Format:         source.Format(importFormat),
			Sheet:          importSheet,
			DefaultCountry: importCountry,
			Timeout:        time.Duration(cfg.Platform.TimeoutSecs) * time.Second,
		}, cmd.OutOrStdout())
	},
}

var indexStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show address index row count",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runStats(cmd.Context(), cfg, cmd.OutOrStdout())
	},
}

func runImport(ctx context.Context, c *config.Config, location string, opts source.Options, out io.Writer) error {
	if err := c.Validate("index"); err != nil {
		return err
	}

	rows, err := source.NewLoader(opts).Load(ctx, location)
	if err != nil {
		return eris.Wrap(err, "read source")
	}

	h, err := openIndex(ctx, c)
	if err != nil {
		return err
	}
	defer h.Close()

	n, err := h.Loader.Load(ctx, rows)
	if err != nil {
		return eris.Wrap(err, "load index")
	}

	zap.L().Info("import complete",
		zap.String("source", location),
		zap.Int("read", len(rows)),
		zap.Int("loaded", n),
	)
	_, err = fmt.Fprintf(out, "loaded %d of %d rows from %s\n", n, len(rows), location)
	return err
}

func runStats(ctx context.Context, c *config.Config, out io.Writer) error {
	if err := c.Validate("query"); err != nil {
		return err
	}
	h, err := openIndex(ctx, c)
	if err != nil {
		return err
	}
	defer h.Close()

	n, err := h.Index.Count(ctx)
	if err != nil {
		return eris.Wrap(err, "count index rows")
	}
	_, err = fmt.Fprintf(out, "driver: %s\nrows:   %d\n", c.Store.Driver, n)
	return err
}

func init() {
	indexImportCmd.Flags().StringVar(&importFormat, "format", "", "source format: csv, tsv, xlsx, yaml (default from extension)")
	indexImportCmd.Flags().StringVar(&importSheet, "sheet", "", "XLSX sheet name (default first sheet)")
	indexImportCmd.Flags().StringVar(&importCountry, "country", "US", "country code for rows without one")
	indexCmd.AddCommand(indexImportCmd, indexStatsCmd)
	rootCmd.AddCommand(indexCmd)
}
