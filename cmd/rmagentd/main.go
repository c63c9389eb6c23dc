// Command rmagentd runs the remote-management agent runtime: it loads
// its messaging configuration, resolves its identity, and starts the
// RPC messaging engine until signaled to stop.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"go.rmagent.dev/core/cli"
)

var (
	console    bool
	configPath string
	debugAddr  string
)

var rootCmd = &cobra.Command{
	Use:   "rmagentd",
	Short: "Remote-management agent runtime",
	RunE:  run,
}

func init() {
	flags := rootCmd.Flags() // *pflag.FlagSet
	flags.BoolVarP(&console, "console", "c", false, "run attached to the console instead of as a background daemon")
	flags.StringVar(&configPath, "config", "", "additional location to look for the configuration file")
	flags.StringVar(&debugAddr, "debug-addr", "", "address to serve metrics on (e.g. :9090); disabled when empty")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(_ *cobra.Command, _ []string) error {
	opts := &cli.ConfigOptions{}
	if configPath != "" {
		opts.Locations = []string{configPath}
	}
	conf := cli.ConfigHandler("rmagentd", opts)
	if err := conf.ReadFile(true); err != nil {
		return err
	}
	if debugAddr == "" {
		if addr, ok := conf.Get("debug.addr").(string); ok {
			debugAddr = addr
		}
	}

	var spinner *cli.Spinner
	if console {
		spinner = cli.NewSpinner(cli.WithSpinnerColor("blue"))
		spinner.Start()
		defer spinner.Stop()
	}

	agt, err := buildAgent(conf)
	if err != nil {
		return err
	}

	debugSrv := startDebugListener(debugAddr, agt.Metrics())
	if err := agt.Start(); err != nil {
		return err
	}
	if spinner != nil {
		spinner.Stop()
	}

	<-waitForSignal()
	if debugSrv != nil {
		_ = debugSrv.Close()
	}
	return agt.Shutdown()
}
