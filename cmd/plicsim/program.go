package main

import (
	"fmt"
	"math"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/tinyrange/plic/internal/sim"
)

var programCmd = &cobra.Command{
	Use:   "program",
	Short: "Initialize controllers through real register windows and set up sources.",
	Long: "`program -c platform.yaml --mem /dev/uio0 --enable 1,2 --priority 3` " +
		"maps each controller's registers from --mem, runs the driver's Init " +
		"and applies the requested settings. Without --mem the registers are " +
		"plain memory, which shows what would be written.",
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfgs, _, err := platformFromFlags(cmd)
		if err != nil {
			return err
		}
		flags := cmd.Flags()
		mem, _ := flags.GetString("mem")
		physical, _ := flags.GetBool("physical")
		noInit, _ := flags.GetBool("no-init")

		var s sim.Settings
		s.Controller, _ = flags.GetString("controller")
		enable, _ := flags.GetUintSlice("enable")
		disable, _ := flags.GetUintSlice("disable")
		s.Enable, s.Disable = sourceIDs(enable), sourceIDs(disable)
		s.Priority, _ = flags.GetUint32("priority")
		if flags.Changed("threshold") {
			th, _ := flags.GetUint32("threshold")
			s.Threshold = &th
		}

		tg, err := sim.Attach(cfgs, sim.TargetOptions{Path: mem, Physical: physical})
		if err != nil {
			return err
		}
		defer tg.Close()

		if !noInit {
			if err := tg.Group.InitAll(); err != nil {
				return err
			}
		}
		if err := tg.Apply(s); err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "CONTROLLER\tTHRESHOLD\tENABLED\tPRIORITIES")
		for _, st := range tg.State() {
			fmt.Fprintf(w, "%s\t%d\t%v\t%v\n", st.Name, st.Threshold, st.Enabled, st.Priority)
		}
		if err := w.Flush(); err != nil {
			return err
		}
		return tg.Close()
	},
}

func init() {
	rootCmd.AddCommand(programCmd)
	addPlatformFlags(programCmd)
	f := programCmd.Flags()
	f.String("mem", "", "file or device to map the register windows from (/dev/mem, a UIO node, or a plain file)")
	f.Bool("physical", false, "map each window at its base address as a file offset, as /dev/mem expects")
	f.Bool("no-init", false, "skip the driver's Init and keep the current register state")
	f.String("controller", "", "controller to configure (default: the first)")
	f.UintSlice("enable", nil, "sources to enable")
	f.UintSlice("disable", nil, "sources to disable")
	f.Uint32("priority", 1, "priority for the enabled sources")
	f.Uint32("threshold", 0, "acceptance threshold")
}

func sourceIDs(in []uint) []uint32 {
	out := make([]uint32, len(in))
	for i, v := range in {
		out[i] = uint32(min(v, math.MaxUint32))
	}
	return out
}
