package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/oai-harvest/internal/oaipmh"
	"github.com/pdiddy/oai-harvest/internal/output"
)

// verbCommand builds a command for a single-shot verb. label names the
// response file: response_<label>.xml.
func verbCommand(use, short, verb, label string) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVerb(cmd, verb, label)
		},
	}
}

func init() {
	rootCmd.AddCommand(
		verbCommand("identify", "Describe the repository (Identify)", oaipmh.VerbIdentify, "identify"),
		verbCommand("sets", "List the repository's sets (ListSets)", oaipmh.VerbListSets, "sets"),
		verbCommand("formats", "List the metadata formats on offer (ListMetadataFormats)", oaipmh.VerbListMetadataFormats, "formats"),
	)
}

func runVerb(cmd *cobra.Command, verb, label string) error {
	cfg, err := clientConfig()
	if err != nil {
		return err
	}
	client, err := newClient(cfg)
	if err != nil {
		return err
	}

	body, err := client.Verb(cmd.Context(), verb)
	if err != nil {
		return err
	}

	if !viper.GetBool("write-response-files") {
		return output.Print(os.Stdout, []byte(body))
	}
	w, err := output.NewResponseWriter(outputConfig())
	if err != nil {
		return err
	}
	path, err := w.Write(label, body)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Wrote %s\n", path)
	return nil
}
