package main

import (
	"github.com/spf13/cobra"
	"github.com/vulpemventures/cosigner/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "print the effective configuration",
	Long: "this command prints the configuration resolved from the " +
		"COSIGNER_* environment variables and the defaults",
	RunE: configPrint,
}

func configPrint(_ *cobra.Command, _ []string) error {
	return printJSON(config.GetAll())
}
