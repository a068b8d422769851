// Command ruian loads a RÚIAN address export and reports on it.
//
//	ruian parse ./20240531_OB_ADR_csv.zip
//	ruian parse latest --workers 8 --metrics-backend pushgateway
//	ruian find --adm 9382372 ./20240531_OB_ADR_csv.zip
//	ruian probe --fail ./20240531_OB_ADR_csv.zip
//	ruian validate --config run.json
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// getenv is swapped in tests.
var getenv = os.Getenv

// flags shared by every subcommand; they override the config file and the
// environment when set.
type flags struct {
	configFile     string
	workers        int
	queueDepth     int
	policy         string
	trimSpace      bool
	metricsBackend string
	logLevel       string
	logFormat      string
}

func newRootCmd() *cobra.Command {
	f := &flags{}
	root := &cobra.Command{
		Use:   "ruian",
		Short: "Load the RÚIAN address-point export",
		Long: `ruian reads the monthly RÚIAN address-point archive (a ZIP of
Windows-1250 CSV tables, one per municipality) and parses every table in
parallel into typed address records.`,
		SilenceUsage: true,
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&f.configFile, "config", "c", "", "run config file (JSON)")
	pf.IntVar(&f.workers, "workers", 0, "parse lanes (0 = GOMAXPROCS)")
	pf.IntVar(&f.queueDepth, "queue-depth", 0, "entries buffered ahead of the workers (0 = unbounded)")
	pf.StringVar(&f.policy, "policy", "", "decoder policy for unassigned bytes (replace, strict)")
	pf.BoolVar(&f.trimSpace, "trim-space", false, "trim white space around every cell")
	pf.StringVar(&f.metricsBackend, "metrics-backend", "", "metrics backend (none, pushgateway, datadog)")
	pf.StringVarP(&f.logLevel, "log-level", "l", "", "log level (debug, info, warn, error)")
	pf.StringVar(&f.logFormat, "log-format", "", "log format (console, json)")

	root.AddCommand(newParseCmd(f), newFindCmd(f), newProbeCmd(f), newValidateCmd(f))
	return root
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
