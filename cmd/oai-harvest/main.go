// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the oai-harvest CLI.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/oai-harvest/internal/logging"
	"github.com/pdiddy/oai-harvest/internal/secrets"
	"github.com/pdiddy/oai-harvest/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// logger is built from the log flags before any command runs.
var logger = zerolog.Nop()

// rootCmd is the base command for the oai-harvest CLI.
var rootCmd = &cobra.Command{
	Use:   "oai-harvest",
	Short: "Harvest metadata records from OAI-PMH repositories",
	Long: `oai-harvest queries OAI-PMH repositories. The query command runs a
ListRecords harvest, following resumption tokens when --retrieve-all is set,
and writes records to files, the console, or a SQLite store. The identify,
sets and formats commands issue single requests and save the raw response.

Every flag can also be set in oai-harvest.yaml or through an OAI_PMH_
environment variable (OAI_PMH_URL, OAI_PMH_API_KEY, ...). A .env file is
loaded first, and .secrets/oai-pmh-api-key supplies the API key.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		l, err := logging.New(types.LogConfig{
			Level:  viper.GetString("log-level"),
			Format: viper.GetString("log-format"),
		})
		if err != nil {
			return err
		}
		logger = l

		s, err := secrets.Load(viper.GetString("secrets-dir"), logger)
		if err != nil {
			return err
		}
		defaults := secrets.Defaults(s)
		for key, value := range defaults {
			viper.SetDefault(key, value)
		}
		if len(defaults) > 0 {
			keys := make([]string, 0, len(defaults))
			for k := range defaults {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			logger.Debug().Strs("keys", keys).Msg("loaded secrets")
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "config file (default: ./oai-harvest.yaml or ~/.config/oai-harvest/config.yaml)")
	pf.String("env-file", ".env", "dotenv file loaded before reading the environment")
	pf.String("secrets-dir", ".secrets", "directory of secret files")
	pf.String("url", "", "OAI-PMH repository base URL")
	pf.String("api-key", "", "API key sent with every request")
	pf.String("api-key-header", "", "header carrying the API key")
	pf.Duration("timeout", defaultTimeout, "HTTP request timeout")
	pf.String("user-agent", "", "User-Agent header (default oai-harvest/<version>)")
	pf.Int("retry-limit", 0, "retries on HTTP 429/503 responses (0 disables)")
	pf.Int("network-retries", 0, "retries on connection failures (0 disables)")
	pf.String("log-level", "info", "log level: debug, info, warn, error")
	pf.String("log-format", "console", "log format: console or json")
	pf.Bool("write-response-files", true, "write raw responses to files")
	pf.String("responses-dir", "responses", "directory for response files")
	pf.Bool("overwrite", false, "overwrite existing files")
	pf.String("store", "", "SQLite database for harvested records and checkpoints")

	viper.BindPFlags(pf)
}

func initConfig() {
	envFile := viper.GetString("env-file")
	if err := godotenv.Load(envFile); err != nil && rootCmd.PersistentFlags().Changed("env-file") {
		fmt.Fprintf(os.Stderr, "warning: could not load %s: %v\n", envFile, err)
	}

	cfgFile := viper.GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("oai-harvest")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "oai-harvest"))
		}
	}

	viper.SetEnvPrefix("OAI_PMH")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
