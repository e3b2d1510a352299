package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/metalagman/screenpilot/internal/lock"
	"github.com/metalagman/screenpilot/internal/orchestrator"
	"github.com/metalagman/screenpilot/internal/parser"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var errInstructionFailed = errors.New("instruction failed")

type runOptions struct {
	interactive  bool
	useAI        bool
	noScreenshot bool
	dryRun       bool
	asJSON       bool
	provider     string
}

func runCmd() *cobra.Command {
	var o runOptions
	cmd := &cobra.Command{
		Use:   "run [instruction]",
		Short: "Execute a natural-language instruction",
		Example: `  screenpilot run "点击登录按钮，然后输入'admin'"
  screenpilot run --dry-run "scroll down 5 and then press enter"
  screenpilot run --ai "open the settings and enable dark mode"
  screenpilot run -i`,
		SilenceUsage: true,
		Args: func(_ *cobra.Command, args []string) error {
			if !o.interactive && len(args) == 0 {
				return fmt.Errorf("instruction required (or use --interactive)")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			uiLock, err := lock.TryAcquire(filepath.Dir(configPath()))
			if err != nil {
				return err
			}
			defer func() {
				if err := uiLock.Release(); err != nil {
					log.Warn().Err(err).Msg("release ui lock")
				}
			}()

			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer cancel()

			var (
				proc *orchestrator.Processor
				drv  driver
			)
			stop, err := startApp(ctx, appParams{Config: cfg, DryRun: o.dryRun}, &proc, &drv)
			if err != nil {
				return err
			}
			defer stop()

			out := cmd.OutOrStdout()
			proc.SetHooks(orchestrator.Hooks{
				Progress: func(msg string) { log.Debug().Msg(msg) },
			})
			opts := orchestrator.Options{UseAI: o.useAI, TakeScreenshot: !o.noScreenshot, Provider: o.provider}

			if o.interactive {
				return interactive(ctx, cmd.InOrStdin(), out, proc, drv, opts, o.asJSON)
			}

			res := proc.Process(ctx, strings.Join(args, " "), opts)
			if err := printResult(out, res, o.asJSON); err != nil {
				return err
			}
			if !o.asJSON {
				printDryRunCalls(out, drv)
			}
			if !res.Success {
				return errInstructionFailed
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&o.interactive, "interactive", "i", false, "read instructions from stdin until quit")
	cmd.Flags().BoolVar(&o.useAI, "ai", false, "plan with the configured LLM before falling back to the rule parser")
	cmd.Flags().BoolVar(&o.noScreenshot, "no-screenshot", false, "do not capture the screen around actions")
	cmd.Flags().BoolVar(&o.dryRun, "dry-run", false, "log operations instead of driving the desktop")
	cmd.Flags().BoolVar(&o.asJSON, "json", false, "print the full result as JSON")
	cmd.Flags().StringVar(&o.provider, "provider", "", "LLM provider to use with --ai")
	return cmd
}

// interactive processes one instruction per input line. "help" lists
// examples, "?text" suggests completions and "quit" leaves.
func interactive(
	ctx context.Context,
	in io.Reader,
	out io.Writer,
	proc *orchestrator.Processor,
	drv driver,
	opts orchestrator.Options,
	asJSON bool,
) error {
	p := parser.New()
	fmt.Fprintln(out, dimStyle.Render("interactive mode: 'help' for examples, 'quit' to exit"))
	sc := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, promptStyle.Render("> "))
		if !sc.Scan() {
			break
		}
		line := strings.TrimSpace(sc.Text())
		switch {
		case line == "":
			continue
		case line == "quit" || line == "exit" || line == "退出":
			return nil
		case line == "help" || line == "帮助":
			for _, s := range p.Suggest("") {
				fmt.Fprintln(out, dimStyle.Render("  "+s))
			}
		case strings.HasPrefix(line, "?"):
			for _, s := range p.Suggest(strings.TrimSpace(line[1:])) {
				fmt.Fprintln(out, dimStyle.Render("  "+s))
			}
		case line == "status":
			if err := writeJSON(out, proc.Status(ctx)); err != nil {
				return err
			}
		default:
			res := proc.Process(ctx, line, opts)
			if err := printResult(out, res, asJSON); err != nil {
				return err
			}
			if !asJSON {
				printDryRunCalls(out, drv)
			}
		}
		if ctx.Err() != nil {
			return nil
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("read instructions: %w", err)
	}
	return nil
}
