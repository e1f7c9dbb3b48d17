package serve

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/VictoriaMetrics/metrics"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	cmdUtil "github.com/telemetrylab/dtnet/cmd/util"
	"github.com/telemetrylab/dtnet/lib/telemetry"
	"github.com/telemetrylab/dtnet/net/common"
	"github.com/telemetrylab/dtnet/net/endpoint"
)

var (
	serveCmdValues []*telemetry.NamedValue
	ServeCmd       = &cobra.Command{
		Use:     "serve",
		Short:   "Start a dtnet server endpoint",
		Long:    `Start a server endpoint that accepts any number of clients and answers their telemetry queries. The configuration can be set via command line flags or environment variables. The format of the environment variables is DTNET_<flag> (e.g. DTNET_TIMEOUT_MILLISECOND=250)`,
		PreRunE: processConfig,
		RunE:    run,
	}
)

func init() {
	// initialize viper
	cobra.OnInitialize(cmdUtil.InitConfig)

	// add flags
	cmdUtil.SetupEndpointFlags(ServeCmd)

	key := "values"
	ServeCmd.PersistentFlags().String(key, "", cmdUtil.WrapString("Comma-separated list of telemetry values to serve. Format: NAME=VALUE (e.g. speed=42,mode=auto)"))

	key = "metrics-endpoint"
	ServeCmd.PersistentFlags().String(key, "", cmdUtil.WrapString("Address to expose Prometheus metrics on (e.g. 0.0.0.0:9100, empty disables)"))
}

// processConfig reads the configuration from the command line flags and
// environment variables
func processConfig(cmd *cobra.Command, _ []string) error {
	// bind the flags to viper
	if err := cmdUtil.BindCommandFlags(cmd); err != nil {
		return err
	}

	// parse the served values
	values, err := cmdUtil.ParseValues(viper.GetString("values"))
	if err != nil {
		return err
	}
	serveCmdValues = values

	return nil
}

// run starts the server endpoint and blocks until SIGINT or SIGTERM
func run(_ *cobra.Command, _ []string) error {
	conf := cmdUtil.GetEndpointConfig()
	common.InitLoggers(conf.LogLevel)

	cdc, err := cmdUtil.GetCodec()
	if err != nil {
		return err
	}

	ep, err := endpoint.NewServerEndpoint(conf, telemetry.NewRegistry(), cdc)
	if err != nil {
		return err
	}
	for _, v := range serveCmdValues {
		if err := ep.RegisterValue(v); err != nil {
			return err
		}
	}

	if err := ep.Start(); err != nil {
		return err
	}
	fmt.Printf("server listening on %s (%s)\n", ep.Addr(), conf.String())

	// optionally expose the transport counters
	if addr := viper.GetString("metrics-endpoint"); addr != "" {
		go serveMetrics(addr)
	}

	// block until the process is asked to shut down
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	fmt.Println("shutting down ...")
	return ep.Stop()
}

// serveMetrics exposes the VictoriaMetrics counters in Prometheus text format
func serveMetrics(addr string) {
	http.HandleFunc("/metrics", func(w http.ResponseWriter, _ *http.Request) {
		metrics.WritePrometheus(w, true)
	})
	if err := http.ListenAndServe(addr, nil); err != nil {
		fmt.Printf("metrics endpoint failed: %v\n", err)
	}
}
