package main

import (
	"context"
	"io"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/geotarget/internal/config"
	"github.com/sells-group/geotarget/internal/model"
	"github.com/sells-group/geotarget/internal/reconcile"
)

var (
	targetsCampaign  string
	targetsLocations []string
	targetsRemove    []string
	targetsCountry   string
	targetsStates    []string
)

var targetsCmd = &cobra.Command{
	Use:   "targets",
	Short: "Apply location targets to an ad campaign",
	RunE: func(cmd *cobra.Command, _ []string) error {
		req, err := buildTargetsRequest(targetsCampaign, targetsLocations, targetsRemove, targetsCountry, targetsStates)
		if err != nil {
			return err
		}
		return runTargets(cmd.Context(), cfg, req, cmd.OutOrStdout())
	},
}

func buildTargetsRequest(campaign string, locations, remove []string, country string, states []string) (reconcile.Request, error) {
	if campaign == "" {
		return reconcile.Request{}, eris.New("--campaign is required")
	}
	desired := model.ParseDesired(locations)
	if len(desired) == 0 && len(remove) == 0 {
		return reconcile.Request{}, eris.New("--locations or --remove is required")
	}
	wl, err := parseStates(states)
	if err != nil {
		return reconcile.Request{}, err
	}
	return reconcile.Request{
		CampaignID:  campaign,
		Desired:     desired,
		CountryCode: country,
		Whitelist:   wl,
		ToRemove:    remove,
	}, nil
}

func runTargets(ctx context.Context, c *config.Config, req reconcile.Request, out io.Writer) error {
	if err := c.Validate("query"); err != nil {
		return err
	}
	h, err := openIndex(ctx, c)
	if err != nil {
		return err
	}
	defer h.Close()

	rec, err := initReconciler(c, h.Index)
	if err != nil {
		return err
	}
	if rec == nil {
		return eris.New("ad platform is not configured (GEOTARGET_PLATFORM_REST_URL or GEOTARGET_PLATFORM_RPC_URL, and GEOTARGET_PLATFORM_CUSTOMER_ID)")
	}

	res, err := rec.Apply(ctx, req)
	if err != nil {
		return eris.Wrap(err, "apply geo targets")
	}
	return writeJSON(out, res)
}

func init() {
	targetsCmd.Flags().StringVar(&targetsCampaign, "campaign", "", "campaign id (required)")
	targetsCmd.Flags().StringSliceVar(&targetsLocations, "locations", nil, "location names or geoTargetConstants/<id>")
	targetsCmd.Flags().StringSliceVar(&targetsRemove, "remove", nil, "criterion resource names to remove")
	targetsCmd.Flags().StringVar(&targetsCountry, "country", "US", "country code for name resolution")
	targetsCmd.Flags().StringSliceVar(&targetsStates, "states", nil, "approved state codes (required)")
	_ = targetsCmd.MarkFlagRequired("campaign")
	_ = targetsCmd.MarkFlagRequired("states")
	rootCmd.AddCommand(targetsCmd)
}
