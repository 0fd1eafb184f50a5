package main

import (
	"fmt"
	"log/slog"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/tinyrange/plic/internal/sim"
)

var stressCmd = &cobra.Command{
	Use:   "stress",
	Short: "Assert random sources and check every claim is completed.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfgs, slots, err := platformFromFlags(cmd)
		if err != nil {
			return err
		}
		n, _ := cmd.Flags().GetInt("iterations")
		seed, _ := cmd.Flags().GetUint64("seed")

		m, err := sim.New(cfgs, sim.Options{Logger: slog.Default(), TableSize: slots})
		if err != nil {
			return err
		}
		if err := m.Boot(); err != nil {
			return err
		}

		bar := progressbar.Default(int64(n), "stress")
		defer bar.Close()

		res, err := m.Stress(sim.StressOptions{
			Iterations: n,
			Seed:       seed,
			Progress:   func() { bar.Add(1) },
		})
		bar.Finish()
		fmt.Printf("asserted %d, dispatched %d, completed %d, faults %d\n",
			res.Asserted, res.Dispatched, res.Completed, res.Faults)
		if len(res.Unhandled) > 0 {
			fmt.Printf("left pending or in service: %v\n", res.Unhandled)
		}
		return err
	},
}

func init() {
	rootCmd.AddCommand(stressCmd)
	addPlatformFlags(stressCmd)
	stressCmd.Flags().IntP("iterations", "n", 10000, "number of source assertions")
	stressCmd.Flags().Uint64("seed", 1, "random seed")
}
