package command

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/mosaicnetworks/ledgersim/src/ledgersim"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// NewRunCmd returns the command that starts a sequencer
func NewRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "run",
		Short:   "Run the sequencer",
		PreRunE: loadConfig,
		RunE:    runLedgersim,
	}
	AddRunFlags(cmd)
	return cmd
}

/*******************************************************************************
* RUN
*******************************************************************************/

func runLedgersim(cmd *cobra.Command, args []string) error {
	engine := ledgersim.NewLedgersim(_config)

	if err := engine.Init(); err != nil {
		_config.Logger().WithError(err).Error("Cannot initialize engine")
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return engine.Run(ctx)
}

/*******************************************************************************
* CONFIG
*******************************************************************************/

// AddRunFlags adds flags to the Run command
func AddRunFlags(cmd *cobra.Command) {
	cmd.Flags().String("datadir", _config.DataDir, "Top-level directory for configuration and data")
	cmd.Flags().String("log", _config.LogLevel, "debug, info, warn, error, fatal, panic")
	cmd.Flags().String("log-file", _config.LogFile, "Also write logs, as JSON, to this file")

	// Network
	cmd.Flags().StringP("listen-address", "l", _config.ListenAddress, "Listen IP[:Port] for peers, port defaults to 8080")

	// Simulation
	cmd.Flags().Float64("throughput", _config.Throughput, "Maximum accepted transactions per second")
	cmd.Flags().Int("latency", _config.LatencyMs, "Delay in milliseconds before an accepted transaction is broadcast")
	cmd.Flags().Int("epoch-length", _config.EpochLength, "Duration of an epoch in seconds")

	// Service
	cmd.Flags().StringP("service-listen", "s", _config.ServiceAddr, "Listen IP:Port for HTTP service, empty to disable")

	// Store
	cmd.Flags().String("store", _config.Store, "inmem, badger or bolt")
	cmd.Flags().String("db", _config.DatabaseDir, "Database path")
	cmd.Flags().Bool("bootstrap", _config.Bootstrap, "Load the ledger from the database")
}

func loadConfig(cmd *cobra.Command, args []string) error {
	if err := bindFlagsLoadViper(cmd); err != nil {
		return err
	}

	if err := _config.Validate(); err != nil {
		return err
	}

	logFields := logrus.Fields{
		"DataDir":       _config.DataDir,
		"LogLevel":      _config.LogLevel,
		"LogFile":       _config.LogFile,
		"ListenAddress": _config.ListenAddress,
		"Throughput":    _config.Throughput,
		"LatencyMs":     _config.LatencyMs,
		"EpochLength":   _config.EpochLength,
		"ServiceAddr":   _config.ServiceAddr,
		"Store":         _config.Store,
	}

	if _config.Store != "inmem" {
		logFields["DatabasePath"] = _config.DatabasePath()
		logFields["Bootstrap"] = _config.Bootstrap
	}

	_config.Logger().WithFields(logFields).Debug("RUN")

	return nil
}
