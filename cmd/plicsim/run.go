package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/tinyrange/plic/internal/sim"
	"github.com/tinyrange/plic/internal/trace"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a scenario and print the transaction trace.",
	Long: "`run -c platform.yaml -s scenario.yaml` boots the platform, runs " +
		"the scenario's steps and checks its expectations.",
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfgs, slots, err := platformFromFlags(cmd)
		if err != nil {
			return err
		}
		scenarioPath, _ := cmd.Flags().GetString("scenario")
		if scenarioPath == "" {
			return fmt.Errorf("--scenario is required")
		}
		sc, err := sim.LoadScenario(scenarioPath)
		if err != nil {
			return err
		}

		rec := trace.NewRecorder()
		if db, _ := cmd.Flags().GetString("db"); cmd.Flags().Changed("db") {
			sink, err := trace.OpenSQLite(db)
			if err != nil {
				return err
			}
			rec.AddSink(sink)
			slog.Info("recording trace", "file", sink.Path(), "session", sink.Session())
		}

		m, err := sim.New(cfgs, sim.Options{Logger: slog.Default(), Trace: rec, TableSize: slots})
		if err != nil {
			return err
		}
		if err := m.Boot(); err != nil {
			return err
		}

		runErr := m.Run(sc)
		if err := trace.Render(os.Stdout, rec.Entries(), trace.IsTerminal(os.Stdout)); err != nil {
			return err
		}
		if runErr != nil {
			return fmt.Errorf("scenario %q: %w", sc.Name, runErr)
		}
		for _, err := range rec.SinkErrors() {
			slog.Warn("trace sink error", "err", err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	addPlatformFlags(runCmd)
	runCmd.Flags().StringP("scenario", "s", "", "scenario to run (YAML)")
	runCmd.Flags().String("db", "", "also record the trace to this SQLite database (\"\" picks a name)")
}
