// Netscope - network operations engine for Cisco-style router fleets.
//
// Netscope connects to inventories of routers over SSH (optionally through
// a shared jumphost), runs show-command batteries with rate limiting and
// live progress, persists raw and parsed outputs per execution, and
// transforms the captured data into a typed OSPF topology with interface
// capacity records.
//
// Examples:
//
//	netscope run -i devices.yaml                       # collect with defaults
//	netscope run -i devices.yaml --batch-size 5 --devices-per-hour 20
//	netscope topology build -i devices.yaml            # transform latest run
//	netscope topology show                             # inspect stored topology
//	netscope interfaces summary                        # capacity overview
//	netscope executions list                           # past runs
//	netscope jumphost set --host jump1 --username ops  # configure bastion
//	netscope serve --listen :8080                      # HTTP API + progress stream
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/netscope-network/netscope/pkg/util"
	"github.com/netscope-network/netscope/pkg/version"
)

// App holds CLI state shared across all commands.
type App struct {
	dataDir      string
	jumphostPath string
	redisAddr    string
	redisDB      int
	serverAddr   string
	verbose      bool
}

var app = &App{}

func (a *App) executionsDir() string {
	return filepath.Join(a.dataDir, "executions")
}

func (a *App) transformDir() string {
	return filepath.Join(a.dataDir, "transform")
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "netscope",
		Short: "Network operations engine for Cisco router fleets",
		Long: `Netscope collects show-command output from fleets of Cisco IOS/IOS-XR/NX-OS
routers over SSH and builds a typed network topology from the results.

Collection runs as batched, rate-limited jobs with per-command progress
that is streamed to WebSocket subscribers. Each run is preserved as an
execution directory; the latest successful run is reachable through the
'current' pointer and feeds the topology and interface transformers.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		CompletionOptions: cobra.CompletionOptions{HiddenDefaultCmd: true},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if app.verbose {
				return util.SetLogLevel("debug")
			}
			return nil
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&app.dataDir, "data-dir", "data", "Base directory for executions and exports")
	flags.StringVar(&app.jumphostPath, "jumphost-config", "", "Jumphost record path (default ~/.netscope/jumphost.json)")
	flags.StringVar(&app.redisAddr, "redis", "127.0.0.1:6379", "Redis address for the topology store")
	flags.IntVar(&app.redisDB, "redis-db", 0, "Redis database for the topology store")
	flags.StringVar(&app.serverAddr, "server", "http://127.0.0.1:8080", "Netscope server address (status/stop)")
	flags.BoolVarP(&app.verbose, "verbose", "v", false, "Verbose output")

	rootCmd.AddCommand(
		newRunCmd(),
		newStatusCmd(),
		newStopCmd(),
		newTopologyCmd(),
		newInterfacesCmd(),
		newExecutionsCmd(),
		newJumphostCmd(),
		newServeCmd(),
		newVersionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, cmdError(err))
		os.Exit(1)
	}
}

func cmdError(err error) string {
	return "Error: " + err.Error()
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(version.Info())
		},
	}
}
