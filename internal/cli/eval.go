package cli

import (
	"github.com/spf13/cobra"

	"github.com/cory-johannsen/dicelang/internal/dice"
)

func newEvalCommand(current func() *app) *cobra.Command {
	var rollContext string

	cmd := &cobra.Command{
		Use:   "eval <expression> [expression...]",
		Short: "Roll each expression independently",
		Example: "  roll eval 4d6dl1\n" +
			"  roll eval --context \"attack: goblin\" 1d20+5 1d8+3",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := current()
			results := make([]dice.RollResult, 0, len(args))
			for _, expr := range args {
				r, err := a.engine.Roll(expr, rollContext)
				if err != nil {
					return err
				}
				results = append(results, r)
			}
			return writeResults(cmd.OutOrStdout(), a.output, results)
		},
	}

	cmd.Flags().StringVarP(&rollContext, "context", "c", "", "label recorded with each roll")
	return cmd
}

func newBatchCommand(current func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "batch <expression> [expression...]",
		Short: "Roll expressions as one all-or-nothing batch",
		Long: "batch parses every expression before rolling any of them. If one fails to\n" +
			"parse or evaluate, nothing is printed and the failing position is reported.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := current()
			results, err := a.engine.RollBatch(args)
			if err != nil {
				return err
			}
			return writeResults(cmd.OutOrStdout(), a.output, results)
		},
	}
}

func newParseCommand(current func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "parse <expression> [expression...]",
		Short: "Print the canonical form of expressions without rolling",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := current()
			parsed := make([]parsedExpression, 0, len(args))
			for _, raw := range args {
				expr, err := dice.Parse(raw)
				if err != nil {
					return err
				}
				parsed = append(parsed, parsedExpression{Expression: raw, Canonical: expr.String()})
			}
			return writeParsed(cmd.OutOrStdout(), a.output, parsed)
		},
	}
}
