package main

import (
	"strings"

	"github.com/metalagman/screenpilot/internal/parser"
	"github.com/spf13/cobra"
)

func parseCmd() *cobra.Command {
	var (
		format   string
		fromJSON bool
		suggest  bool
	)
	cmd := &cobra.Command{
		Use:   "parse [instruction]",
		Short: "Show the actions an instruction parses to without executing them",
		Example: `  screenpilot parse "点击(100,200)然后等待2秒"
  screenpilot parse --format yaml "scroll down 5 and then press enter"
  screenpilot parse --json '[{"action":"click","parameters":{"x":10,"y":20}}]'
  screenpilot parse --suggest 点击`,
		Args:         cobra.ArbitraryArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			p := parser.New()
			input := strings.Join(args, " ")
			var v any
			switch {
			case suggest:
				v = p.Suggest(input)
			case fromJSON:
				v = parser.Result{Actions: p.ParseJSON(input)}
			default:
				v = p.Analyze(input)
			}
			return writeFormatted(cmd.OutOrStdout(), v, format)
		},
	}
	cmd.Flags().StringVar(&format, "format", formatJSON, "output format: json or yaml")
	cmd.Flags().BoolVar(&fromJSON, "json", false, "treat the input as a JSON action list")
	cmd.Flags().BoolVar(&suggest, "suggest", false, "print example instructions for a partial input")
	return cmd
}
