package main

import (
	"fmt"

	"github.com/metalagman/screenpilot/internal/audit"
	"github.com/metalagman/screenpilot/internal/capture"
	"github.com/metalagman/screenpilot/internal/orchestrator"
	"github.com/metalagman/screenpilot/internal/screen"
	"github.com/spf13/cobra"
)

func screenshotCmd() *cobra.Command {
	var withText bool
	cmd := &cobra.Command{
		Use:          "screenshot [path]",
		Short:        "Capture the screen, optionally copying it to path and recognising its text",
		Args:         cobra.MaximumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			var (
				proc *orchestrator.Processor
				tool *capture.Tool
				rec  *audit.Recorder
			)
			ctx := cmd.Context()
			stop, err := startApp(ctx, appParams{Config: cfg}, &proc, &tool, &rec)
			if err != nil {
				return err
			}
			defer stop()

			var (
				shot     screen.Screenshot
				analysis orchestrator.Analysis
			)
			if withText {
				if analysis, err = proc.ScreenAnalysis(ctx); err != nil {
					return err
				}
				shot = analysis.Screenshot
			} else {
				if shot, err = tool.Capture(ctx); err != nil {
					return fmt.Errorf("capture screen: %w", err)
				}
			}
			rec.Emit(ctx, audit.ScreenshotTaken, shot.Path, audit.Bool(true), map[string]any{"id": shot.ID})

			path := shot.Path
			if len(args) == 1 {
				if err := shot.Save(args[0]); err != nil {
					return err
				}
				path = args[0]
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s %dx%d\n", okStyle.Render(path), shot.Size.Width, shot.Size.Height)
			if withText {
				fmt.Fprintln(out, dimStyle.Render(fmt.Sprintf("%d words, confidence %.2f", analysis.Words, analysis.Confidence)))
				fmt.Fprintln(out, analysis.Text)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&withText, "text", false, "recognise and print the on-screen text")
	return cmd
}
