// Command heliospice is the SPICE ephemeris engine CLI: an MCP server
// over stdio plus direct query and kernel cache management commands.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/huangzesen/heliospice/internal/version"
)

func main() {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "heliospice",
		Short: "SPICE ephemeris engine for heliophysics spacecraft",
		Long: `heliospice computes spacecraft positions, states, and trajectories
from NAIF SPICE kernels, downloading and caching kernels on first use.

Kernels are cached in ~/.heliospice/kernels (override with
HELIOSPICE_KERNEL_DIR or --kernel-dir).`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.String("kernel-dir", "", "kernel cache directory")
	flags.String("log-level", "", "log level (debug, info, warn, error)")
	cobra.CheckErr(viper.BindPFlag("kernel_dir", flags.Lookup("kernel-dir")))
	cobra.CheckErr(viper.BindPFlag("log_level", flags.Lookup("log-level")))

	root.AddCommand(
		newServeCmd(),
		newQueryCmd(),
		newDistanceCmd(),
		newMissionsCmd(),
		newFramesCmd(),
		newCacheCmd(),
		newManifestCmd(),
		newTUICmd(),
	)
	return root
}
