package main

import (
	"fmt"

	"github.com/metalagman/screenpilot/internal/config"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the screenpilot configuration",
	}
	cmd.AddCommand(configInitCmd())
	cmd.AddCommand(configShowCmd())
	return cmd
}

func configInitCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:          "init",
		Short:        "Write the default configuration",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path := configPath()
			if err := config.Write(path, config.Default(), force); err != nil {
				return err
			}
			log.Info().Str("path", path).Msg("config written")
			fmt.Fprintln(cmd.OutOrStdout(), okStyle.Render("wrote "+path))
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing config")
	return cmd
}

func configShowCmd() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:          "show",
		Short:        "Print the effective configuration",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			return writeFormatted(cmd.OutOrStdout(), cfg, format)
		},
	}
	cmd.Flags().StringVar(&format, "format", formatYAML, "output format: json or yaml")
	return cmd
}
