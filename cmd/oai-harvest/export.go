package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/oai-harvest/internal/store"
	"github.com/pdiddy/oai-harvest/pkg/types"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export stored records as YAML or JSON",
	Long: `Export writes the records saved by query --store to a single YAML or JSON
file. --endpoint, --status, --set, --from and --until narrow the selection.`,
	Args: cobra.NoArgs,
	RunE: runExport,
}

func init() {
	f := exportCmd.Flags()
	f.String("format", string(types.EncodingYAML), "export format: yaml or json")
	f.StringP("out", "o", "", "output file (default records.<format>)")
	f.String("endpoint", "", "only records harvested from this URL")
	f.String("status", "", "only records with this status: active or deleted")
	f.String("set", "", "only records in this set")
	f.String("from", "", "only records with a datestamp at or after this date")
	f.String("until", "", "only records with a datestamp at or before this date")
	f.Int("limit", 0, "maximum number of records (0 means all)")

	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	flags := cmd.Flags()

	path := viper.GetString("store")
	if path == "" {
		return errors.New("export requires --store")
	}

	filter := store.Filter{}
	filter.Endpoint, _ = flags.GetString("endpoint")
	filter.Set, _ = flags.GetString("set")
	filter.Limit, _ = flags.GetInt("limit")

	status, _ := flags.GetString("status")
	switch types.RecordStatus(status) {
	case "", types.StatusActive, types.StatusDeleted:
		filter.Status = types.RecordStatus(status)
	default:
		return fmt.Errorf("unknown status %q: use active or deleted", status)
	}

	var err error
	from, _ := flags.GetString("from")
	if filter.From, err = parseDate("from", from); err != nil {
		return err
	}
	until, _ := flags.GetString("until")
	if filter.Until, err = parseDate("until", until); err != nil {
		return err
	}

	format, _ := flags.GetString("format")
	out, _ := flags.GetString("out")
	if out == "" {
		out = "records." + format
	}

	s, err := store.Open(types.StoreConfig{Path: path})
	if err != nil {
		return err
	}
	defer s.Close()

	switch types.Encoding(format) {
	case types.EncodingYAML:
		err = s.ExportYAML(ctx, out, filter)
	case types.EncodingJSON:
		err = s.ExportJSON(ctx, out, filter)
	default:
		return fmt.Errorf("unknown export format %q: use yaml or json", format)
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "Exported records to %s\n", out)
	return nil
}
