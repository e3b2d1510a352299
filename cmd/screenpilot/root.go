package main

import (
	"fmt"
	"os"

	"github.com/metalagman/screenpilot/internal/config"
	"github.com/metalagman/screenpilot/internal/logging"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const envFile = ".env"

var (
	cfgFile string
	debug   bool
	rootCmd = &cobra.Command{
		Use:   "screenpilot",
		Short: "screenpilot drives the desktop from natural-language instructions",
		Long: "screenpilot turns instructions such as \"点击登录按钮，然后输入'admin'\" or " +
			"\"click OK and then press enter\" into mouse and keyboard operations, " +
			"checking every step against safety rules before it runs.",
		SilenceErrors: true,
	}
)

// Execute runs the root command.
func Execute() error {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", config.DefaultPath, "config file path")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	if err := viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config")); err != nil {
		return fmt.Errorf("bind config flag: %w", err)
	}
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		logging.Init(debug)
		if err := config.LoadEnv(envFile); err != nil {
			log.Warn().Err(err).Msg("env file ignored")
		}
	}
	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(parseCmd())
	rootCmd.AddCommand(statusCmd())
	rootCmd.AddCommand(screenshotCmd())
	rootCmd.AddCommand(historyCmd())
	rootCmd.AddCommand(configCmd())
	return rootCmd.Execute()
}

// configPath returns the --config value, falling back to the default.
func configPath() string {
	if p := viper.GetString("config"); p != "" {
		return p
	}
	return config.DefaultPath
}

func loadConfig() (config.Config, error) {
	return config.Load(configPath())
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, err)
}
