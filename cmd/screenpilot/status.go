package main

import (
	"github.com/kballard/go-shellquote"
	"github.com/metalagman/screenpilot/internal/command"
	"github.com/metalagman/screenpilot/internal/config"
	"github.com/metalagman/screenpilot/internal/orchestrator"
	"github.com/metalagman/screenpilot/internal/screen"
	"github.com/spf13/cobra"
)

type statusReport struct {
	orchestrator.Status
	Config string          `json:"config"`
	Driver string          `json:"driver"`
	Screen screen.Size     `json:"screen"`
	Tools  map[string]bool `json:"tools"`
}

func statusCmd() *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:          "status",
		Short:        "Show providers, screen and tool availability",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			var (
				proc *orchestrator.Processor
				size screen.Size
			)
			stop, err := startApp(cmd.Context(), appParams{Config: cfg, DryRun: dryRun}, &proc, &size)
			if err != nil {
				return err
			}
			defer stop()

			driverName := cfg.Executor.Driver
			if dryRun {
				driverName = config.DriverDryRun
			}
			return writeJSON(cmd.OutOrStdout(), statusReport{
				Status: proc.Status(cmd.Context()),
				Config: configPath(),
				Driver: driverName,
				Screen: size,
				Tools:  toolAvailability(cfg),
			})
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "report as if the dry-run driver were configured")
	return cmd
}

// toolAvailability reports which external programs resolve on PATH.
func toolAvailability(cfg config.Config) map[string]bool {
	tools := map[string]bool{}
	xdotool := cfg.Executor.XdotoolPath
	if xdotool == "" {
		xdotool = "xdotool"
	}
	tools[xdotool] = command.Available(xdotool)
	ocr := cfg.OCR.Binary
	if ocr == "" {
		ocr = "tesseract"
	}
	tools[ocr] = command.Available(ocr)
	if argv, err := shellquote.Split(cfg.Capture.Command); err == nil && len(argv) > 0 {
		tools[argv[0]] = command.Available(argv[0])
	}
	return tools
}
