// Command kfsim simulates an object moving with constant velocity and tracks it
// with a linear Kalman filter.
package main

import (
	"fmt"
	"os"

	"github.com/sdia/kalman/config"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

var (
	// Global flags
	cfgPath string
	verbose bool

	// Run flags
	steps    int
	seed     uint64
	plotPath string

	cfg    *config.Config
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "kfsim",
	Short: "Constant velocity Kalman filter simulation",
	Long: `kfsim simulates an object moving with constant velocity in one or more
dimensions, measures its position through Gaussian noise and tracks it with a
linear Kalman filter.

Run "kfsim run" to simulate and "kfsim config" to print the effective configuration.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = loadConfig(cmd)
		if err != nil {
			return err
		}

		logger, err = newLogger(cfg.LogLevel, verbose)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

// runCmd runs the simulation
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the simulation and report filter performance",
	Args:  cobra.NoArgs,
	RunE:  runSimulation,
}

// configCmd prints the effective configuration
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration as YAML",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := yaml.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("failed to marshal config: %w", err)
		}
		_, err = cmd.OutOrStdout().Write(data)
		return err
	},
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "kfsim.yaml", "Configuration file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().IntVar(&steps, "steps", 0, "Number of simulation steps (overrides config)")
	rootCmd.PersistentFlags().Uint64Var(&seed, "seed", 0, "Noise seed (overrides config)")
	rootCmd.PersistentFlags().StringVar(&plotPath, "plot", "", "Plot output path (overrides config)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(configCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig loads the configuration file and applies flags set on the command line.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	c, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("steps") {
		c.Steps = steps
	}
	if flags.Changed("seed") {
		c.Seed = seed
	}
	if flags.Changed("plot") {
		c.Plot = plotPath
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return c, nil
}

func newLogger(level string, verbose bool) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	if verbose {
		lvl = zapcore.DebugLevel
	}

	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(lvl)

	return zc.Build()
}
