package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/tinyrange/plic/internal/config"
)

var dtbCmd = &cobra.Command{
	Use:   "dtb",
	Short: "Convert between platform descriptions and device trees.",
}

var dtbDumpCmd = &cobra.Command{
	Use:   "dump <file.dtb>",
	Short: "List the PLIC instances described by a device tree.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		blob, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		cfgs, err := config.FromDTB(blob)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tBASE\tSOURCES\tMAX-PRIO\tPARENT\tTABLE\tEDGE")
		for _, c := range cfgs {
			fmt.Fprintf(w, "%s\t0x%x\t%d\t%d\t%d\t%d\t%t\n",
				c.Name, c.BaseAddress, c.NumSources, c.MaxPriority, c.ParentIRQ, c.TableOffset, c.EdgeTrigger)
		}
		return w.Flush()
	},
}

var dtbEmitCmd = &cobra.Command{
	Use:   "emit",
	Short: "Write a device tree for a YAML platform description.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfgPath, _ := cmd.Flags().GetString("config")
		out, _ := cmd.Flags().GetString("output")
		cfgs, _, err := loadPlatform(cfgPath, "")
		if err != nil {
			return err
		}
		blob, err := config.ToDTB(cfgs)
		if err != nil {
			return err
		}
		return os.WriteFile(out, blob, 0o644)
	},
}

func init() {
	rootCmd.AddCommand(dtbCmd)
	dtbCmd.AddCommand(dtbDumpCmd, dtbEmitCmd)
	dtbEmitCmd.Flags().StringP("config", "c", "", "platform description (YAML)")
	dtbEmitCmd.Flags().StringP("output", "o", "plic.dtb", "output file")
}
