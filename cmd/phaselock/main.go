package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"phaselock/adapters/audit"
	"phaselock/adapters/postgres"
	"phaselock/adapters/resultfile"
	"phaselock/adapters/voltmap"
	"phaselock/domain/run"
	"phaselock/domain/voltage"
	"phaselock/internal"
	"phaselock/internal/api"
	"phaselock/internal/config"
	"phaselock/internal/pipeline"
)

func main() {
	godotenv.Load() // optional .env, absence is fine

	rootCmd := &cobra.Command{
		Use:   "phaselock",
		Short: "Photonic phase-locking pipeline: spectral init, SECURE scoring, refinement, voltage tables",
	}

	rootCmd.AddCommand(
		newRunCmd(),
		newSweepCmd(),
		newVoltmapCmd(),
		newAuditCmd(),
		newServeCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func newRunCmd() *cobra.Command {
	var out string
	var seed int64

	cmd := &cobra.Command{
		Use:   "run [mode-count]",
		Short: "Run one optimization and write the result record",
		Long: `Run the full pipeline for an n-mode system: build the coupling topology,
initialize phases spectrally, score with the SECURE diagnostics, and refine
by gradient descent if the score falls short of the threshold.

Example: phaselock run 16 --out run16.plr`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid mode count %q: %w", args[0], err)
			}
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("seed") {
				cfg.Graph.Seed = seed
			}

			o, err := pipeline.New(cfg, internal.DefaultLogger)
			if err != nil {
				return err
			}
			result, runErr := o.Run(cmd.Context(), n)
			if runErr != nil && result == nil {
				return runErr
			}

			printResult(cmd, result)
			if out != "" {
				if err := resultfile.WriteFile(out, result); err != nil {
					return err
				}
				cmd.Printf("result written to %s\n", out)
			}
			if runErr != nil {
				return fmt.Errorf("refinement degraded, best configuration kept: %w", runErr)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&out, "out", "", "Write the result record to this path")
	cmd.Flags().Int64Var(&seed, "seed", 42, "Topology seed (overrides PHASELOCK_GRAPH_SEED)")
	return cmd
}

func newSweepCmd() *cobra.Command {
	var parallel int64
	var outDir string
	var seed int64

	cmd := &cobra.Command{
		Use:   "sweep [mode-counts...]",
		Short: "Run independent optimizations for several mode counts",
		Long: `Run the pipeline once per mode count, in parallel.

Example: phaselock sweep 8 16 32 --parallel 4 --out-dir results/`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			modeCounts := make([]int, len(args))
			for i, arg := range args {
				n, err := strconv.Atoi(arg)
				if err != nil {
					return fmt.Errorf("invalid mode count %q: %w", arg, err)
				}
				modeCounts[i] = n
			}
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("seed") {
				cfg.Graph.Seed = seed
			}

			o, err := pipeline.New(cfg, internal.DefaultLogger)
			if err != nil {
				return err
			}
			results, sweepErr := o.Sweep(cmd.Context(), modeCounts, parallel)

			for i, result := range results {
				if result == nil {
					cmd.Printf("n=%d: failed\n", modeCounts[i])
					continue
				}
				cmd.Printf("n=%d: energy %.6f -> %.6f, aggregate %.2f, converged %v\n",
					result.ModeCount, result.InitialEnergy, result.Energy, result.Aggregate, result.Converged)
				if outDir != "" {
					path := fmt.Sprintf("%s/run_%d.plr", strings.TrimRight(outDir, "/"), result.ModeCount)
					if err := resultfile.WriteFile(path, result); err != nil {
						return err
					}
				}
			}
			return sweepErr
		},
	}

	cmd.Flags().Int64Var(&parallel, "parallel", 2, "Maximum concurrent optimizations")
	cmd.Flags().StringVar(&outDir, "out-dir", "", "Write one result record per mode count into this directory")
	cmd.Flags().Int64Var(&seed, "seed", 42, "Topology seed (overrides PHASELOCK_GRAPH_SEED)")
	return cmd
}

func newVoltmapCmd() *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "voltmap [result-file]",
		Short: "Convert a result record into a hardware voltage table",
		Long: `Read an optimization result and emit the per-channel drive voltages and
DAC codes. The output format follows the file extension: .xlsx produces a
spreadsheet, anything else CSV.

Example: phaselock voltmap run16.plr --out voltage_map.csv`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			result, err := resultfile.ReadFile(args[0])
			if err != nil {
				return err
			}

			params := voltmap.Params{
				VPi:     cfg.Hardware.VPi,
				VBias:   cfg.Hardware.VBias,
				VMax:    cfg.Hardware.VMax,
				DACBits: cfg.Hardware.DACBits,
			}
			table, err := voltmap.Map(result.Phases, params)
			if err != nil {
				return err
			}

			summary, err := voltmap.Summarize(table)
			if err != nil {
				return err
			}
			cmd.Printf("%d channels, phase %.4f..%.4f rad, voltage %.3f..%.3f V (mean %.3f), dac %d..%d\n",
				summary.Channels, summary.MinPhase, summary.MaxPhase,
				summary.MinVoltage, summary.MaxVoltage,
				summary.MeanVoltage, summary.MinDAC, summary.MaxDAC)

			if out == "" {
				out = "voltage_map.csv"
			}
			if err := voltmap.WriteFile(out, table); err != nil {
				return err
			}
			cmd.Printf("voltage table written to %s\n", out)
			return nil
		},
	}

	cmd.Flags().StringVar(&out, "out", "", "Output path (.csv or .xlsx, default voltage_map.csv)")
	return cmd
}

func newAuditCmd() *cobra.Command {
	var expectedChannels int
	var strict bool

	cmd := &cobra.Command{
		Use:   "audit [voltage-table.csv]",
		Short: "Verify a voltage table against hardware limits",
		Long: `Audit a generated voltage table before it is written to the chip. The
command exits non-zero when the table fails, so it can gate deployment in
scripts.

Example: phaselock audit voltage_map.csv --channels 16 --strict`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			table, err := voltmap.ReadFile(args[0])
			if err != nil {
				return err
			}

			report, err := audit.Audit(table, audit.Params{
				VMax:             cfg.Hardware.VMax,
				DACBits:          cfg.Hardware.DACBits,
				ExpectedChannels: expectedChannels,
				Strict:           strict,
			})
			if err != nil {
				return err
			}

			printReport(cmd, report)
			if !report.Passed {
				return fmt.Errorf("safety audit failed: table must not be written to hardware")
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&expectedChannels, "channels", 0, "Require this exact channel count (0 disables)")
	cmd.Flags().BoolVar(&strict, "strict", false, "Treat warnings as failures")
	return cmd
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the pipeline over HTTP",
		Long: `Start the HTTP API. With DATABASE_URL set, runs are persisted to
PostgreSQL and can be fetched back; without it, the API still executes runs.

Example: phaselock serve`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logger := internal.DefaultLogger

			var repo *postgres.RunRepository
			if cfg.Database.URL != "" {
				db, err := postgres.Connect(cmd.Context(), cfg.Database.URL)
				if err != nil {
					return err
				}
				defer db.Close()
				repo = postgres.NewRunRepository(db)
				if err := repo.EnsureSchema(cmd.Context()); err != nil {
					return err
				}
				logger.Info("serve: persistence enabled")
			} else {
				logger.Warn("serve: DATABASE_URL not set, runs will not be persisted")
			}

			o, err := pipeline.New(cfg, logger)
			if err != nil {
				return err
			}
			server := api.NewServer(o, repo, logger)
			addr := ":" + cfg.Server.Port

			httpServer := &http.Server{Addr: addr, Handler: server.Router()}
			go func() {
				<-cmd.Context().Done()
				httpServer.Shutdown(context.Background())
			}()

			logger.Info("serve: listening on %s", addr)
			if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
				return err
			}
			return nil
		},
	}
}

func printResult(cmd *cobra.Command, result *run.Result) {
	cmd.Printf("run %s: %d modes, seed %d\n", result.RunID, result.ModeCount, result.Seed)
	cmd.Printf("  energy: %.6f -> %.6f\n", result.InitialEnergy, result.Energy)
	cmd.Printf("  aggregate: %.2f (threshold %.1f)\n", result.Aggregate, result.Threshold)
	cmd.Printf("  refined: %v, converged: %v, iterations: %d\n",
		result.RefinementTriggered, result.Converged, result.Iterations)
}

func printReport(cmd *cobra.Command, report *voltage.SafetyReport) {
	status := "PASSED"
	if !report.Passed {
		status = "FAILED"
	}
	cmd.Printf("audit %s: %d channels, voltage %.3f..%.3f V, margin %.3f V\n",
		status, report.Channels, report.MinVoltage, report.MaxVoltage, report.SafetyMargin)
	for _, check := range report.Checks {
		mark := "ok"
		if !check.Passed {
			mark = "FAIL"
		}
		cmd.Printf("  [%s] %s\n", mark, check.Name)
	}
	for _, v := range report.Violations {
		cmd.Printf("  violation: channel %d: %s (%g)\n", v.Channel, v.Reason, v.Value)
	}
	for _, w := range report.Warnings {
		cmd.Printf("  warning: channel %d: %s (%g)\n", w.Channel, w.Reason, w.Value)
	}
}
