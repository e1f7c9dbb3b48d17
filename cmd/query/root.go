package query

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	cmdUtil "github.com/telemetrylab/dtnet/cmd/util"
	"github.com/telemetrylab/dtnet/lib/telemetry"
	"github.com/telemetrylab/dtnet/net/common"
	"github.com/telemetrylab/dtnet/net/endpoint"
)

var QueryCmd = &cobra.Command{
	Use:     "query NAME [NAME...]",
	Short:   "Query telemetry values from a dtnet server",
	Long:    `Connect to a server endpoint, pose a query for the given value names and print the answer as JSON. The special name total_data requests a snapshot of everything the server holds.`,
	Args:    cobra.MinimumNArgs(1),
	PreRunE: processConfig,
	RunE:    run,
}

func init() {
	// initialize viper
	cobra.OnInitialize(cmdUtil.InitConfig)

	// add flags
	cmdUtil.SetupEndpointFlags(QueryCmd)

	key := "wait-millisecond"
	QueryCmd.PersistentFlags().Int(key, 1000, cmdUtil.WrapString("How long to wait for the answer before giving up"))
}

// processConfig binds the flags to viper
func processConfig(cmd *cobra.Command, _ []string) error {
	return cmdUtil.BindCommandFlags(cmd)
}

// run connects to the server, poses the query and waits for the answer
func run(_ *cobra.Command, names []string) error {
	conf := cmdUtil.GetEndpointConfig()
	common.InitLoggers(conf.LogLevel)

	cdc, err := cmdUtil.GetCodec()
	if err != nil {
		return err
	}

	ep, err := endpoint.NewClientEndpoint(conf, telemetry.NewRegistry(), cdc)
	if err != nil {
		return err
	}
	if err := ep.Start(); err != nil {
		return err
	}
	defer func() { _ = ep.Stop() }()

	key, err := ep.PoseQuery(names, "")
	if err != nil {
		return err
	}

	// poll for the answer until the wait budget is spent; the transport
	// itself never blocks on a response
	deadline := time.Now().Add(time.Duration(viper.GetInt("wait-millisecond")) * time.Millisecond)
	for time.Now().Before(deadline) {
		if payload, ok := ep.GetResponse(key); ok {
			out, err := json.MarshalIndent(payload, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return nil
		}
		time.Sleep(10 * time.Millisecond)
	}

	return fmt.Errorf("no answer from %s within %d ms", conf.Address(), viper.GetInt("wait-millisecond"))
}
