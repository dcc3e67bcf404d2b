package main

import (
	"context"
	"encoding/json"
	"io"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/geotarget/internal/config"
	"github.com/sells-group/geotarget/internal/model"
	"github.com/sells-group/geotarget/internal/region"
	"github.com/sells-group/geotarget/internal/validate"
)

var (
	queryStates []string
	searchLimit int
	searchBatch bool

	validateZip    string
	validateCity   string
	validateCounty string
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search locations within the given states",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSearch(cmd.Context(), cfg, args[0], queryStates, searchLimit, searchBatch, cmd.OutOrStdout())
	},
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Classify one address against the given states",
	RunE: func(cmd *cobra.Command, _ []string) error {
		rec := model.AddressRecord{PostalCode: validateZip, City: validateCity, County: validateCounty}
		return runValidate(cmd.Context(), cfg, rec, queryStates, cmd.OutOrStdout())
	},
}

// parseStates builds a whitelist from --states values, which may be
// repeated or comma-joined. An empty result is refused.
func parseStates(raw []string) (region.Whitelist, error) {
	var codes []string
	for _, r := range raw {
		codes = append(codes, strings.Split(r, ",")...)
	}
	wl, err := region.Replace(codes)
	if err != nil {
		return region.Whitelist{}, err
	}
	if err := validate.Gate(wl); err != nil {
		return region.Whitelist{}, err
	}
	return wl, nil
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return eris.Wrap(enc.Encode(v), "write output")
}

func runSearch(ctx context.Context, c *config.Config, query string, states []string, limit int, batch bool, out io.Writer) error {
	if err := c.Validate("query"); err != nil {
		return err
	}
	wl, err := parseStates(states)
	if err != nil {
		return err
	}

	h, err := openIndex(ctx, c)
	if err != nil {
		return err
	}
	defer h.Close()

	engine := newEngine(c, h.Index)
	if batch {
		return writeJSON(out, engine.BatchSearch(ctx, query, wl))
	}
	return writeJSON(out, engine.Search(ctx, query, wl, limit))
}

func runValidate(ctx context.Context, c *config.Config, rec model.AddressRecord, states []string, out io.Writer) error {
	if err := c.Validate("query"); err != nil {
		return err
	}
	wl, err := parseStates(states)
	if err != nil {
		return err
	}

	h, err := openIndex(ctx, c)
	if err != nil {
		return err
	}
	defer h.Close()

	return writeJSON(out, validate.New(h.Index).ValidateOne(ctx, rec, wl))
}

func init() {
	for _, c := range []*cobra.Command{searchCmd, validateCmd} {
		c.Flags().StringSliceVar(&queryStates, "states", nil, "approved state codes, e.g. GA,MN (required)")
		_ = c.MarkFlagRequired("states")
	}
	searchCmd.Flags().IntVar(&searchLimit, "limit", 0, "maximum results (default from config)")
	searchCmd.Flags().BoolVar(&searchBatch, "batch", false, "treat the query as a comma-separated batch")

	validateCmd.Flags().StringVar(&validateZip, "zip", "", "postal code")
	validateCmd.Flags().StringVar(&validateCity, "city", "", "city name")
	validateCmd.Flags().StringVar(&validateCounty, "county", "", "county name")

	rootCmd.AddCommand(searchCmd, validateCmd)
}
