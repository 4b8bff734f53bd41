package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/cory-johannsen/dicelang/internal/dice"
)

const maxStatsRolls = 1_000_000

// statsReport is the output record of "roll stats".
type statsReport struct {
	Expression  string       `json:"expression" yaml:"expression"`
	Rolls       int          `json:"rolls" yaml:"rolls"`
	Quality     string       `json:"quality" yaml:"quality"`
	Summary     dice.Summary `json:"summary" yaml:"summary"`
	Sides       int          `json:"sides,omitempty" yaml:"sides,omitempty"`
	Frequencies map[int]int  `json:"frequencies,omitempty" yaml:"frequencies,omitempty"`
	ChiSquare   *chiSquare   `json:"chi_square,omitempty" yaml:"chi_square,omitempty"`
}

type chiSquare struct {
	Statistic float64 `json:"statistic" yaml:"statistic"`
	Critical  float64 `json:"critical_05" yaml:"critical_05"`
	Uniform   bool    `json:"uniform" yaml:"uniform"`
}

func newStatsCommand(current func() *app) *cobra.Command {
	var (
		expression string
		rolls      int
	)

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Roll an expression many times and summarize the results",
		Long: "stats rolls --expr --n times, prints the mean, variance and range of the totals,\n" +
			"the face frequencies of the first die size in the expression and a chi-square\n" +
			"test of those faces against the uniform distribution at the 5% level.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if rolls < 1 || rolls > maxStatsRolls {
				return fmt.Errorf("--n must be between 1 and %d, got %d", maxStatsRolls, rolls)
			}
			a := current()
			report, err := runStats(a.engineWith(dice.WithHistoryCapacity(rolls)), expression, rolls)
			if err != nil {
				return err
			}
			if a.output != FormatText {
				return encode(cmd.OutOrStdout(), a.output, report)
			}
			return writeStatsText(cmd.OutOrStdout(), report)
		},
	}

	cmd.Flags().StringVar(&expression, "expr", "1d6", "expression to roll")
	cmd.Flags().IntVarP(&rolls, "n", "n", 10_000, "number of rolls")
	return cmd
}

// runStats rolls expression n times on engine and summarizes its history.
//
// Precondition: engine's history capacity must be at least n.
func runStats(engine *dice.Engine, expression string, n int) (statsReport, error) {
	expr, err := dice.Parse(expression)
	if err != nil {
		return statsReport{}, err
	}
	for i := 0; i < n; i++ {
		if _, err := engine.RollExpression(expr, "stats"); err != nil {
			return statsReport{}, err
		}
	}

	h := engine.History()
	report := statsReport{
		Expression: expression,
		Rolls:      n,
		Quality:    engine.Quality().String(),
		Summary:    h.Summary(),
		Sides:      firstDieSize(expr.Root),
	}
	if report.Sides == 0 {
		return report, nil
	}

	report.Frequencies = h.FrequencyTable(report.Sides)
	if critical, ok := dice.ChiSquareCritical05(report.Sides - 1); ok {
		stat := dice.ChiSquare(report.Frequencies)
		report.ChiSquare = &chiSquare{Statistic: stat, Critical: critical, Uniform: stat < critical}
	}
	return report, nil
}

// firstDieSize returns the Sides of the leftmost dice term, or 0 if there is none.
func firstDieSize(n dice.Node) int {
	switch n := n.(type) {
	case *dice.DiceNode:
		return n.Sides
	case *dice.BinaryNode:
		if s := firstDieSize(n.Left); s != 0 {
			return s
		}
		return firstDieSize(n.Right)
	default:
		return 0
	}
}

func writeStatsText(w io.Writer, r statsReport) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "expression\t%s\n", r.Expression)
	fmt.Fprintf(tw, "rolls\t%d\n", r.Rolls)
	fmt.Fprintf(tw, "source\t%s\n", r.Quality)
	fmt.Fprintf(tw, "mean\t%.4f\n", r.Summary.Mean)
	fmt.Fprintf(tw, "variance\t%.4f\n", r.Summary.Variance)
	fmt.Fprintf(tw, "min\t%d\n", r.Summary.Min)
	fmt.Fprintf(tw, "max\t%d\n", r.Summary.Max)

	if r.Sides > 0 {
		fmt.Fprintf(tw, "\nface (d%d)\tcount\n", r.Sides)
		for face := 1; face <= r.Sides; face++ {
			fmt.Fprintf(tw, "%d\t%d\n", face, r.Frequencies[face])
		}
	}
	if c := r.ChiSquare; c != nil {
		verdict := "consistent with uniform"
		if !c.Uniform {
			verdict = "NOT consistent with uniform"
		}
		fmt.Fprintf(tw, "\nchi-square\t%.4f (critical %.3f at 5%%, df %d): %s\n", c.Statistic, c.Critical, r.Sides-1, verdict)
	}
	return tw.Flush()
}
