// Package cli wires the roll command line.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cory-johannsen/dicelang/internal/config"
	"github.com/cory-johannsen/dicelang/internal/dice"
	"github.com/cory-johannsen/dicelang/internal/observability"
)

// Output formats accepted by --output.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// globalFlags are the persistent flags shared by every command.
type globalFlags struct {
	configPath string
	output     string
	seed       uint64
}

// app holds what a command needs once flags and configuration are resolved.
type app struct {
	cfg    config.Config
	logger *zap.Logger
	engine *dice.Engine
	output string
}

// newApp loads configuration, applies flag overrides and builds the engine.
//
// Postcondition: Returns a ready app or a non-nil error.
func newApp(cmd *cobra.Command, flags *globalFlags) (*app, error) {
	switch flags.output {
	case FormatText, FormatJSON, FormatYAML:
	default:
		return nil, fmt.Errorf("--output must be one of [text, json, yaml], got %q", flags.output)
	}

	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if cmd.Flags().Changed("seed") {
		cfg.Engine.Source = "pseudorandom"
		cfg.Engine.Seed = flags.seed
	}

	logger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("initializing logger: %w", err)
	}

	return &app{
		cfg:    cfg,
		logger: logger,
		engine: dice.New(cfg.Engine.Options(logger)...),
		output: flags.output,
	}, nil
}

// engineWith builds a second engine from the same configuration with extra
// options applied last.
func (a *app) engineWith(opts ...dice.Option) *dice.Engine {
	return dice.New(append(a.cfg.Engine.Options(a.logger), opts...)...)
}

// NewRootCmd wires the cobra root command. Bare arguments are rolled as with
// "roll eval".
func NewRootCmd() *cobra.Command {
	flags := &globalFlags{}
	var a *app

	root := &cobra.Command{
		Use:   "roll [expression...]",
		Short: "Roll tabletop dice expressions",
		Long: "roll parses and evaluates dice notation such as 4d6dl1, 2d20kh1+5 or 3d6!,\n" +
			"reports every die rolled and can check a source against the uniform distribution.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			a, err = newApp(cmd, flags)
			return err
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a != nil {
				_ = a.logger.Sync()
			}
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&flags.configPath, "config", "", "path to YAML configuration file")
	pf.StringVarP(&flags.output, "output", "o", FormatText, "output format: text, json or yaml")
	pf.Uint64Var(&flags.seed, "seed", 0, "use the seeded pseudorandom source instead of the system CSPRNG")

	current := func() *app { return a }
	evalCmd := newEvalCommand(current)
	root.Flags().AddFlagSet(evalCmd.Flags())
	root.Args = cobra.ArbitraryArgs
	root.RunE = func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			return cmd.Help()
		}
		return evalCmd.RunE(cmd, args)
	}

	root.AddCommand(
		evalCmd,
		newBatchCommand(current),
		newStatsCommand(current),
		newScriptCommand(current),
		newParseCommand(current),
	)
	return root
}
