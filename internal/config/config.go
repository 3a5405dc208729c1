package config

import (
	"fmt"
	"log"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/spf13/viper"
	"github.com/vulpemventures/cosigner/internal/core/domain"
)

const (
	// DatadirKey is the key to customize the cosigner datadir.
	DatadirKey = "DATADIR"
	// DatabaseTypeKey is the key to customize the type of database used for
	// the address book.
	DatabaseTypeKey = "DATABASE_TYPE"
	// NetworkKey is the key to customize the network (mainnet, testnet).
	NetworkKey = "NETWORK"
	// LogLevelKey is the key to customize the log level to catch more specific
	// or more high level logs.
	LogLevelKey = "LOG_LEVEL"
	// NodeUrlKey is the key to set the REST endpoint of the node to connect to.
	NodeUrlKey = "NODE_URL"
	// ListenerUrlKey is the key to set the websocket endpoint of the node.
	// Defaults to the /ws path of the node url.
	ListenerUrlKey = "LISTENER_URL"
	// RequestTimeoutKey is the key to customize the timeout in seconds of every
	// request made to the node.
	RequestTimeoutKey = "REQUEST_TIMEOUT"
	// HashLockConfirmationTimeoutKey is the key to customize how long, in
	// milliseconds, to wait for a hash lock to be confirmed before giving up
	// the broadcast of an aggregate bonded transaction.
	HashLockConfirmationTimeoutKey = "HASHLOCK_CONFIRMATION_TIMEOUT_MS"
	// ListenerReconnectAttemptsKey is the key to customize the number of
	// attempts to restore a dropped websocket connection.
	ListenerReconnectAttemptsKey = "LISTENER_RECONNECT_ATTEMPTS"
	// ListenerReconnectDelayKey is the key to customize the delay in
	// milliseconds between reconnection attempts.
	ListenerReconnectDelayKey = "LISTENER_RECONNECT_DELAY_MS"
	// DedupCacheSizeKey is the key to customize how many delivered messages
	// are remembered by a listener to avoid duplicates across reconnections.
	DedupCacheSizeKey = "DEDUP_CACHE_SIZE"
	// MetricsPortKey is the key to customize the port where the Prometheus
	// metrics are served.
	MetricsPortKey = "METRICS_PORT"
	// NoMetricsKey is the key to disable the metrics server.
	NoMetricsKey = "NO_METRICS"
	// StatsIntervalKey is the key to customize the interval in seconds for the
	// metrics service to log runtime stats.
	StatsIntervalKey = "STATS_INTERVAL"

	// DbLocation is the folder inside the datadir containing db files.
	DbLocation = "db"
	// MetricsLocation is the folder inside the datadir containing the metrics
	// snapshots.
	MetricsLocation = "stats"
)

var (
	vip *viper.Viper

	defaultDatadir                     = btcutil.AppDataDir("cosigner", false)
	defaultDbType                      = "badger"
	defaultLogLevel                    = 4
	defaultNetwork                     = domain.TestNet.String()
	defaultNodeUrl                     = "http://localhost:3000"
	defaultRequestTimeout              = 15
	defaultHashLockConfirmationTimeout = 120000 // 2 minutes
	defaultListenerReconnectAttempts   = 3
	defaultListenerReconnectDelay      = 5000
	defaultDedupCacheSize              = 1000
	defaultMetricsPort                 = 18001
	defaultStatsInterval               = 600 // 10 minutes

	SupportedDbs = supportedType{
		"badger":   {},
		"inmemory": {},
	}

	keys = []string{
		DatadirKey, DatabaseTypeKey, NetworkKey, LogLevelKey, NodeUrlKey,
		ListenerUrlKey, RequestTimeoutKey, HashLockConfirmationTimeoutKey,
		ListenerReconnectAttemptsKey, ListenerReconnectDelayKey,
		DedupCacheSizeKey, MetricsPortKey, NoMetricsKey, StatsIntervalKey,
	}
)

func init() {
	vip = viper.New()
	vip.SetEnvPrefix("COSIGNER")
	vip.AutomaticEnv()

	vip.SetDefault(DatadirKey, defaultDatadir)
	vip.SetDefault(DatabaseTypeKey, defaultDbType)
	vip.SetDefault(NetworkKey, defaultNetwork)
	vip.SetDefault(LogLevelKey, defaultLogLevel)
	vip.SetDefault(NodeUrlKey, defaultNodeUrl)
	vip.SetDefault(RequestTimeoutKey, defaultRequestTimeout)
	vip.SetDefault(HashLockConfirmationTimeoutKey, defaultHashLockConfirmationTimeout)
	vip.SetDefault(ListenerReconnectAttemptsKey, defaultListenerReconnectAttempts)
	vip.SetDefault(ListenerReconnectDelayKey, defaultListenerReconnectDelay)
	vip.SetDefault(DedupCacheSizeKey, defaultDedupCacheSize)
	vip.SetDefault(MetricsPortKey, defaultMetricsPort)
	vip.SetDefault(NoMetricsKey, false)
	vip.SetDefault(StatsIntervalKey, defaultStatsInterval)

	if err := validate(); err != nil {
		log.Fatalf("invalid config: %s", err)
	}

	if err := initDatadir(); err != nil {
		log.Fatalf("config: error while creating datadir: %s", err)
	}
}

func validate() error {
	datadir := GetString(DatadirKey)
	if len(datadir) <= 0 {
		return fmt.Errorf("datadir must not be null")
	}

	net := GetString(NetworkKey)
	if len(net) == 0 {
		return fmt.Errorf("network must not be null")
	}
	if _, ok := domain.ParseNetworkType(net); !ok {
		return fmt.Errorf("unknown network, must be one of: mainnet | testnet")
	}

	dbType := GetString(DatabaseTypeKey)
	if _, ok := SupportedDbs[dbType]; !ok {
		return fmt.Errorf("unsupported database type, must be one of %s", SupportedDbs)
	}

	nodeUrl := GetString(NodeUrlKey)
	if _, err := url.Parse(nodeUrl); err != nil {
		return fmt.Errorf("invalid node url: %s", err)
	}

	if GetInt(HashLockConfirmationTimeoutKey) <= 0 {
		return fmt.Errorf("hash lock confirmation timeout must be greater than zero")
	}
	if GetInt(ListenerReconnectAttemptsKey) < 0 {
		return fmt.Errorf("listener reconnect attempts must not be negative")
	}
	if GetInt(ListenerReconnectDelayKey) < 0 {
		return fmt.Errorf("listener reconnect delay must not be negative")
	}
	if GetInt(DedupCacheSizeKey) <= 0 {
		return fmt.Errorf("dedup cache size must be greater than zero")
	}

	return nil
}

func GetDatadir() string {
	return filepath.Join(GetString(DatadirKey), GetString(NetworkKey))
}

func GetNetwork() domain.NetworkType {
	// Validated at startup, can't fail.
	net, _ := domain.ParseNetworkType(GetString(NetworkKey))
	return net
}

// GetListenerUrl returns the configured websocket endpoint or derives it from
// the node url.
func GetListenerUrl() string {
	if listenerUrl := GetString(ListenerUrlKey); listenerUrl != "" {
		return listenerUrl
	}
	return ListenerUrlFromNodeUrl(GetString(NodeUrlKey))
}

// ListenerUrlFromNodeUrl maps http(s)://host to ws(s)://host/ws.
func ListenerUrlFromNodeUrl(nodeUrl string) string {
	u, err := url.Parse(nodeUrl)
	if err != nil {
		return ""
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/ws"
	return u.String()
}

func GetRequestTimeout() time.Duration {
	return time.Duration(GetInt(RequestTimeoutKey)) * time.Second
}

func GetHashLockConfirmationTimeout() time.Duration {
	return time.Duration(GetInt(HashLockConfirmationTimeoutKey)) * time.Millisecond
}

func GetListenerReconnectDelay() time.Duration {
	return time.Duration(GetInt(ListenerReconnectDelayKey)) * time.Millisecond
}

func GetStatsInterval() time.Duration {
	return time.Duration(GetInt(StatsIntervalKey)) * time.Second
}

// GetAll returns the effective value of every config key.
func GetAll() map[string]interface{} {
	all := make(map[string]interface{}, len(keys))
	for _, key := range keys {
		all[key] = vip.Get(key)
	}
	all[ListenerUrlKey] = GetListenerUrl()
	return all
}

// Keys returns the config keys in alphabetical order.
func Keys() []string {
	sorted := append([]string{}, keys...)
	sort.Strings(sorted)
	return sorted
}

func GetString(key string) string {
	return vip.GetString(key)
}

func GetInt(key string) int {
	return vip.GetInt(key)
}

func GetBool(key string) bool {
	return vip.GetBool(key)
}

func Set(key string, val interface{}) {
	vip.Set(key, val)
}

func initDatadir() error {
	datadir := GetDatadir()
	if GetString(DatabaseTypeKey) == "badger" {
		if err := makeDirectoryIfNotExists(filepath.Join(datadir, DbLocation)); err != nil {
			return err
		}
	}

	noMetrics := GetBool(NoMetricsKey)
	if noMetrics {
		return nil
	}
	return makeDirectoryIfNotExists(filepath.Join(datadir, MetricsLocation))
}

func makeDirectoryIfNotExists(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return os.MkdirAll(path, os.ModeDir|0755)
	}
	return nil
}

type supportedType map[string]struct{}

func (t supportedType) String() string {
	types := make([]string, 0, len(t))
	for tt := range t {
		types = append(types, tt)
	}
	sort.Strings(types)
	return strings.Join(types, " | ")
}
