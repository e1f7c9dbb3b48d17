package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/telemetrylab/dtnet/cmd/query"
	"github.com/telemetrylab/dtnet/cmd/serve"
	"github.com/telemetrylab/dtnet/cmd/util"
)

const (
	Version = "0.3.1"
)

var (

	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "dtnet",
		Short: "peer-to-peer telemetry transport",
		Long: fmt.Sprintf(`dtnet (v%s)

A peer-to-peer telemetry transport over TCP. Endpoints expose named
values and answer queries from their peers without ever blocking on
the network.`, Version),
	}
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of dtnet",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("dtnet v%s\n", Version)
		},
	}
)

func init() {
	// Add Commands
	RootCmd.AddCommand(serve.ServeCmd)
	RootCmd.AddCommand(query.QueryCmd)
	RootCmd.AddCommand(versionCmd)

	// Add Flags
	key := "codec"
	RootCmd.PersistentFlags().String(key, "json", util.WrapString("wire codec to use (json)"))
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
