package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"

	"github.com/tinyrange/plic/internal/config"
	"github.com/tinyrange/plic/internal/plic"
)

var verbose bool

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "plicsim",
	Short: "Exercise the PLIC driver against simulated controllers.",
	Long: `plicsim builds a simulated platform from a YAML description or a ` +
		`device tree, boots the driver on it and runs scripted or random ` +
		`interrupt traffic through the claim/complete path.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// execute runs the command tree and leaves through atexit so registered
// flushes happen.
func execute() {
	if err := rootCmd.Execute(); err != nil {
		atexit.Exit(1)
	}
	atexit.Exit(0)
}

// loadPlatform reads controller configs from a YAML file or, when dtbPath is
// set, from a flattened device tree.
func loadPlatform(cfgPath, dtbPath string) ([]plic.Config, int, error) {
	switch {
	case dtbPath != "":
		blob, err := os.ReadFile(dtbPath)
		if err != nil {
			return nil, 0, fmt.Errorf("read device tree: %w", err)
		}
		cfgs, err := config.FromDTB(blob)
		if err != nil {
			return nil, 0, fmt.Errorf("%s: %w", dtbPath, err)
		}
		return cfgs, config.RequiredSlots(cfgs), nil
	case cfgPath != "":
		f, err := config.Load(cfgPath)
		if err != nil {
			return nil, 0, err
		}
		cfgs, err := f.Configs()
		if err != nil {
			return nil, 0, fmt.Errorf("%s: %w", cfgPath, err)
		}
		return cfgs, f.TableSlots(cfgs), nil
	default:
		return nil, 0, fmt.Errorf("one of --config or --dtb is required")
	}
}

func addPlatformFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("config", "c", "", "platform description (YAML)")
	cmd.Flags().String("dtb", "", "platform description (flattened device tree)")
}

func platformFromFlags(cmd *cobra.Command) ([]plic.Config, int, error) {
	cfgPath, _ := cmd.Flags().GetString("config")
	dtbPath, _ := cmd.Flags().GetString("dtb")
	return loadPlatform(cfgPath, dtbPath)
}
