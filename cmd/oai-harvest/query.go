package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/oai-harvest/internal/window"
	"github.com/pdiddy/oai-harvest/pkg/types"
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Harvest records with ListRecords",
	Long: `Query runs a ListRecords harvest. Without --retrieve-all a single page is
fetched and its resumption token is printed, so a later run can continue with
--resumption-token. With --retrieve-all the harvest follows tokens until the
list is exhausted.

Records can be written to numbered files (--write-record-files), printed
(--show-records-in-console) or saved to a SQLite store (--store). With a store,
--resume continues the last unfinished harvest of the same URL, prefix and set.
--window monthly splits a --from/--until range into one harvest per month.`,
	Args: cobra.NoArgs,
	RunE: runQuery,
}

func init() {
	f := queryCmd.Flags()
	f.String("metadata-prefix", "melinda_marc", "metadata prefix to harvest")
	f.String("set", "", "set spec to restrict the harvest to")
	f.String("from", "", "lower datestamp bound (YYYY-MM-DD or YYYY-MM-DDThh:mm:ssZ)")
	f.String("until", "", "upper datestamp bound (YYYY-MM-DD or YYYY-MM-DDThh:mm:ssZ)")
	f.String("resumption-token", "", "continue a previous harvest from this token")
	f.Bool("url-encode-resumption-token", true, "percent-encode resumption tokens on continuation requests")
	f.Bool("retrieve-all", false, "follow resumption tokens until the list is exhausted")
	f.Bool("filter-deleted", false, "drop deleted records")
	f.Bool("filter-isbnless", false, "drop records without an ISBN (marcJson only)")
	f.Bool("filter-component-records", false, "drop component part records (marcJson only)")
	f.StringP("metadata-format", "m", string(types.FormatString), "record representation: string, object or marcJson")
	f.Bool("write-record-files", false, "write each record to a numbered file")
	f.Bool("show-records-in-console", false, "print each record")
	f.String("records-dir", "records", "directory for record files")
	f.String("encoding", string(types.EncodingJSON), "encoding of object and marcJson records: json or yaml")
	f.Duration("page-interval", 0, "minimum delay between page requests")
	f.Int("max-requests", 0, "stop after this many page requests (0 means no limit)")
	f.String("window", string(window.None), "split --from/--until into windows: none, weekly or monthly")
	f.Bool("resume", false, "continue the last unfinished harvest recorded in --store")

	viper.BindPFlags(f)
	rootCmd.AddCommand(queryCmd)
}

func runQuery(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	ccfg, err := clientConfig()
	if err != nil {
		return err
	}
	hcfg, err := harvestConfig()
	if err != nil {
		return err
	}
	filter, err := marcFilter(hcfg.Format)
	if err != nil {
		return err
	}
	ranges, err := windows(window.Unit(viper.GetString("window")), hcfg)
	if err != nil {
		return err
	}

	client, err := newClient(ccfg)
	if err != nil {
		return err
	}

	h, err := newHarvester(ccfg.URL, hcfg.Format, outputConfig(), filter, viper.GetString("store"))
	if err != nil {
		return err
	}
	defer h.close()

	if viper.GetBool("resume") {
		if err := h.resume(ctx, &hcfg); err != nil {
			return err
		}
	}

	if ranges == nil {
		token, err := h.run(ctx, client, hcfg)
		if err != nil {
			return err
		}
		printSummary(os.Stdout, h.count(), token, hcfg)
		return nil
	}

	for _, r := range ranges {
		cfg := hcfg
		cfg.Query.From, cfg.Query.Until = r.From, r.Until
		logger.Info().Stringer("window", r).Msg("harvesting window")
		if _, err := h.run(ctx, client, cfg); err != nil {
			return fmt.Errorf("window %s: %w", r, err)
		}
	}
	printSummary(os.Stdout, h.count(), nil, hcfg)
	return nil
}

// windows splits the query range. It returns nil when the query runs as a
// single harvest.
func windows(unit window.Unit, cfg types.HarvestConfig) ([]window.Range, error) {
	if unit == "" || unit == window.None {
		return nil, nil
	}
	if cfg.Query.From.IsZero() {
		return nil, fmt.Errorf("--window %s requires --from", unit)
	}
	if cfg.ResumptionToken != "" || viper.GetBool("resume") {
		return nil, fmt.Errorf("--window cannot be combined with --resumption-token or --resume")
	}
	if !cfg.RetrieveAll {
		return nil, fmt.Errorf("--window requires --retrieve-all")
	}
	until := cfg.Query.Until
	if until.IsZero() {
		until = time.Now().UTC()
	}
	return window.Split(unit, cfg.Query.From, until)
}

// printSummary reports the outcome of a query. A token is printed with its
// expiration and cursor so the harvest can be continued.
func printSummary(w io.Writer, records int, token *types.ResumptionToken, cfg types.HarvestConfig) {
	fmt.Fprintf(w, "Harvested %d records\n", records)
	if token == nil {
		fmt.Fprintln(w, "List complete: no resumption token")
		return
	}
	fmt.Fprintf(w, "resumptionToken: %s\n", token.Token)
	if !token.ExpirationDate.IsZero() {
		fmt.Fprintf(w, "expirationDate: %s\n", token.ExpirationDate.Format(time.RFC3339))
	}
	if token.Cursor != nil {
		fmt.Fprintf(w, "cursor: %d\n", *token.Cursor)
	}
	if token.CompleteListSize != nil {
		fmt.Fprintf(w, "completeListSize: %d\n", *token.CompleteListSize)
	}
	fmt.Fprintf(w, "Url encode resumptionToken: %t\n", !cfg.RawResumptionToken)
}
