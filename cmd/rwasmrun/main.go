// Command rwasmrun is a thin CLI harness for exercising the runtime end
// to end: it loads a reduced-WebAssembly module from disk, builds a
// RuntimeContext from flags mirroring the runtime's own builder options,
// and prints the resulting exit code, output, and (optionally) fuel
// consumption. It exists only to drive the runtime interactively, the
// way oriys-nova's cmd/nova does for its own core.
package main

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/rwasmvm/rwasmvm/engine"
	"github.com/rwasmvm/rwasmvm/internal/config"
	"github.com/rwasmvm/rwasmvm/internal/logging"
	"github.com/rwasmvm/rwasmvm/internal/metrics"
	"github.com/rwasmvm/rwasmvm/runtimectx"
	"github.com/rwasmvm/rwasmvm/statedb"
)

var (
	configFile string
	fuelLimit  uint32
	isShared   bool
	catchTrap  bool
	state      uint32
	inputPath  string
	metricsOn  bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "rwasmrun",
		Short: "rwasmrun runs a reduced-WebAssembly module through the rwasmvm execution runtime",
	}
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "path to a YAML daemon config file (optional, flags override)")

	rootCmd.AddCommand(runCmd(), serveCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig() *config.Config {
	cfg := config.DefaultConfig()
	if configFile != "" {
		loaded, err := config.LoadFromFile(configFile)
		if err != nil {
			logging.Op().Error("failed to load config file", "path", configFile, "err", err)
			os.Exit(1)
		}
		cfg = loaded
	}
	config.LoadFromEnv(cfg)
	logging.SetLevelFromString(cfg.Logging.Level)
	return cfg
}

func runCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <bytecode-file>",
		Short: "Run a single reduced-WebAssembly module and print its result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig()

			path := args[0]
			if !filepath.IsAbs(path) {
				path = filepath.Join(cfg.Runtime.CodeDir, path)
			}
			bytecode, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("reading bytecode: %w", err)
			}

			var input []byte
			if inputPath != "" {
				input, err = os.ReadFile(inputPath)
				if err != nil {
					return fmt.Errorf("reading input: %w", err)
				}
			}

			ctx := runtimectx.New(bytecode).
				WithInput(input).
				WithState(state).
				WithIsShared(isShared).
				WithCatchTrap(catchTrap).
				WithFuelLimit(fuelLimit).
				WithJZKT(statedb.NewInMemoryTrie())

			var collector *metrics.Collector
			if metricsOn {
				collector = metrics.New(cfg.Metrics.Namespace)
			}

			start := time.Now()
			result, err := engine.RunWithContext(ctx)
			elapsed := time.Since(start)
			if err != nil {
				return fmt.Errorf("invocation failed: %w", err)
			}

			consumed, metered := result.FuelConsumed()
			if collector != nil {
				collector.ObserveInvocation(isShared, result.Data().ExitCode(), consumed, metered, elapsed.Seconds())
			}

			fmt.Printf("exit_code: %d\n", result.Data().ExitCode())
			fmt.Printf("output: %x\n", result.Data().Output())
			fmt.Printf("return_data: %x\n", result.Data().ReturnData())
			if metered {
				fmt.Printf("consumed_fuel: %d\n", consumed)
			}
			return nil
		},
	}
	cmd.Flags().Uint32Var(&fuelLimit, "fuel", 0, "fuel budget; 0 disables metering")
	cmd.Flags().BoolVar(&isShared, "shared", false, "instantiate against the shared (read-only) import surface")
	cmd.Flags().BoolVar(&catchTrap, "catch-trap", true, "translate traps into exit codes instead of propagating errors")
	cmd.Flags().Uint32Var(&state, "state", 0, "opaque caller-intent tag passed to the guest")
	cmd.Flags().StringVar(&inputPath, "input-file", "", "path to a file whose bytes become the guest's argv buffer")
	cmd.Flags().BoolVar(&metricsOn, "metrics", false, "record this run against a fresh Prometheus collector before printing metrics output")
	return cmd
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve-metrics",
		Short: "Serve the Prometheus metrics endpoint configured in the daemon config",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig()
			if !cfg.Metrics.Enabled {
				return fmt.Errorf("metrics are disabled in the loaded config")
			}
			collector := metrics.New(cfg.Metrics.Namespace)
			logging.Op().Info("serving metrics", "addr", cfg.Metrics.ListenAddr)
			return http.ListenAndServe(cfg.Metrics.ListenAddr, collector.Handler())
		},
	}
}
