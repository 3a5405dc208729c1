package main

import (
	"fmt"
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	appconfig "github.com/vulpemventures/cosigner/internal/app-config"
	"github.com/vulpemventures/cosigner/internal/config"
)

var (
	// Build info.
	version = "dev"
	commit  = "none"
	date    = "unknown"

	// Config from env vars.
	dbType                      = config.GetString(config.DatabaseTypeKey)
	logLevel                    = config.GetInt(config.LogLevelKey)
	datadir                     = config.GetDatadir()
	network                     = config.GetNetwork()
	nodeUrl                     = config.GetString(config.NodeUrlKey)
	listenerUrl                 = config.GetListenerUrl()
	requestTimeout              = config.GetRequestTimeout()
	hashLockConfirmationTimeout = config.GetHashLockConfirmationTimeout()
	reconnectAttempts           = config.GetInt(config.ListenerReconnectAttemptsKey)
	reconnectDelay              = config.GetListenerReconnectDelay()
	dedupCacheSize              = config.GetInt(config.DedupCacheSizeKey)
	metricsPort                 = config.GetInt(config.MetricsPortKey)
	noMetrics                   = config.GetBool(config.NoMetricsKey)
	statsInterval               = config.GetStatsInterval()
	dbDir                       = filepath.Join(datadir, config.DbLocation)
	metricsDir                  = filepath.Join(datadir, config.MetricsLocation)

	rootCmd = &cobra.Command{
		Use:   "cosigner",
		Short: "CLI for multisig accounts",
		Long: "This CLI resolves the multisig graph of an account, announces " +
			"aggregate bonded transactions and cosigns the pending ones",
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			log.SetLevel(log.Level(logLevel))
		},
		SilenceUsage: true,
		Version:      formatVersion(),
	}
)

func init() {
	rootCmd.AddCommand(
		configCmd, accountCmd, graphCmd, signersCmd, txAnnounceCmd,
		txCosignCmd, txStatusCmd, watchCmd,
	)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newAppConfig() (*appconfig.AppConfig, error) {
	appCfg := &appconfig.AppConfig{
		Version:                     version,
		Commit:                      commit,
		Date:                        date,
		Network:                     network,
		NodeUrl:                     nodeUrl,
		ListenerUrl:                 listenerUrl,
		RequestTimeout:              requestTimeout,
		HashLockConfirmationTimeout: hashLockConfirmationTimeout,
		ListenerReconnectAttempts:   uint(reconnectAttempts),
		ListenerReconnectDelay:      reconnectDelay,
		DedupCacheSize:              dedupCacheSize,
		RepoManagerType:             dbType,
		RepoManagerConfig:           dbDir,
	}
	if err := appCfg.Validate(); err != nil {
		return nil, err
	}
	return appCfg, nil
}
