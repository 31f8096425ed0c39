package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/spf13/viper"
)

const (
	// DatadirKey is the local data directory to store the internal state of
	// the daemon
	DatadirKey = "DATADIR"
	// LogLevelKey are the different logging levels. For reference on the
	// values https://godoc.org/github.com/sirupsen/logrus#Level
	LogLevelKey = "LOG_LEVEL"
	// NodeAPIURLKey is the base url of the remote ledger node REST api
	NodeAPIURLKey = "NODE_API_URL"
	// NodeWSURLKey is the url of the remote ledger node websocket endpoint
	// delivering push topics
	NodeWSURLKey = "NODE_WS_URL"
	// NetworkKey is the name of the ledger network the daemon operates on
	NetworkKey = "NETWORK"
	// FetchTimeoutKey is the timeout in seconds applied to remote fetches
	// performed while reconciling push notifications
	FetchTimeoutKey = "FETCH_TIMEOUT"
	// FetchRateLimitKey is the maximum number of remote fetches per second
	// performed by reconciliation tasks
	FetchRateLimitKey = "FETCH_RATE_LIMIT"
	// EnableProfilerKey enables periodic logging of memory and goroutine
	// statistics
	EnableProfilerKey = "ENABLE_PROFILER"
	// StatsIntervalKey is the interval in seconds between two statistics
	// reports
	StatsIntervalKey = "STATS_INTERVAL"

	// DbLocation is the folder inside the datadir containing the database
	DbLocation = "db"
)

var vip *viper.Viper
var defaultDatadir = btcutil.AppDataDir("wallet-daemon", false)

// InitConfig loads the environment backed configuration and prepares the
// datadir.
func InitConfig() error {
	vip = viper.New()
	vip.SetEnvPrefix("WALLETD")
	vip.AutomaticEnv()

	vip.SetDefault(DatadirKey, defaultDatadir)
	vip.SetDefault(LogLevelKey, 4)
	vip.SetDefault(NodeAPIURLKey, "https://chrysalis-nodes.tanglenet.org/api/v1")
	vip.SetDefault(NodeWSURLKey, "wss://chrysalis-nodes.tanglenet.org/mqtt")
	vip.SetDefault(NetworkKey, "mainnet")
	vip.SetDefault(FetchTimeoutKey, 15)
	vip.SetDefault(FetchRateLimitKey, 10)
	vip.SetDefault(EnableProfilerKey, false)
	vip.SetDefault(StatsIntervalKey, 600)

	if err := validate(); err != nil {
		return fmt.Errorf("error while validating config: %s", err)
	}

	if err := initDatadir(); err != nil {
		return fmt.Errorf("error while creating datadir: %s", err)
	}

	return nil
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

func GetDuration(key string) time.Duration {
	return vip.GetDuration(key)
}

func GetDatadir() string {
	return GetString(DatadirKey)
}

func validate() error {
	datadir := GetString(DatadirKey)
	if len(datadir) <= 0 {
		return fmt.Errorf("missing datadir")
	}

	if len(GetString(NodeAPIURLKey)) <= 0 {
		return fmt.Errorf("missing node api url")
	}
	if len(GetString(NodeWSURLKey)) <= 0 {
		return fmt.Errorf("missing node websocket url")
	}
	if GetInt(FetchTimeoutKey) <= 0 {
		return fmt.Errorf("%s must be a positive number of seconds", FetchTimeoutKey)
	}

	return nil
}

func initDatadir() error {
	return makeDirectoryIfNotExists(filepath.Join(GetDatadir(), DbLocation))
}

func makeDirectoryIfNotExists(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return os.MkdirAll(path, os.ModeDir|0755)
	}
	return nil
}
