package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"topten/internal/config"
	"topten/internal/format"
)

func newRootCmd(cfg *config.Config) *cobra.Command {
	var (
		jsonOutput   bool
		outputFormat string
		logLevel     string
	)

	cmd := &cobra.Command{
		Use:           "topten",
		Short:         "Topten collects and serves ranked top-ten lists",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			warning, err := configureLoggerForCLI(logLevel, cfg.LogLevel)
			if err != nil {
				return err
			}
			if warning != "" {
				fmt.Fprintln(os.Stderr, warning)
			}
			if cmd.Flags().Changed("output") {
				jsonOutput = true
			}
			formatter, err := format.ForName(outputFormat)
			if err != nil {
				return err
			}
			outputFormatter = formatter
			return nil
		},
	}

	cmd.Version = version
	cmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output JSON")
	cmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "json", "structured output format: json, pretty or yaml (implies --json)")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")

	cmd.AddCommand(
		newSrvCmd(cfg),
		newSubmitCmd(cfg, &jsonOutput),
		newListsCmd(cfg, &jsonOutput),
		newShowCmd(cfg, &jsonOutput),
		newSearchCmd(cfg, &jsonOutput),
		newCategoriesCmd(cfg, &jsonOutput),
		newInfoCmd(cfg, &jsonOutput),
		newConfigCmd(cfg),
		newMigrateCmd(cfg, &jsonOutput),
	)

	return cmd
}
