package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

type Config struct {
	BaseDirectory string
	LogLevel      int

	DbType        string
	DbDir         string
	LiveStoreType string
	RedisURL      string
	SchedulerType string

	LedgerGatewayURL   string
	MetadataGatewayURL string
	PriceFeedURL       string
	PriceStalenessSecs int64
	BeaconURL          string

	ReconcileInterval int64
	SweepInterval     int64

	PanelSize          int
	ArbitratorLoadCap  int
	YieldFreelancerBps uint32
}

var (
	Datadir            = "DATADIR"
	LogLevel           = "LOG_LEVEL"
	DbType             = "DB_TYPE"
	LiveStoreType      = "LIVE_STORE_TYPE"
	RedisURL           = "REDIS_URL"
	SchedulerType      = "SCHEDULER_TYPE"
	LedgerGatewayURL   = "LEDGER_GATEWAY_URL"
	MetadataGatewayURL = "METADATA_GATEWAY_URL"
	PriceFeedURL       = "PRICE_FEED_URL"
	PriceStalenessSecs = "PRICE_STALENESS_SECS"
	BeaconURL          = "BEACON_URL"
	ReconcileInterval  = "RECONCILE_INTERVAL"
	SweepInterval      = "SWEEP_INTERVAL"
	PanelSize          = "PANEL_SIZE"
	ArbitratorLoadCap  = "ARBITRATOR_LOAD_CAP"
	YieldFreelancerBps = "YIELD_FREELANCER_BPS"

	defaultDatadir            = appDataDir("gigd")
	defaultLogLevel           = 4 // info
	defaultDbType             = "badger"
	defaultLiveStoreType      = "inmemory"
	defaultSchedulerType      = "gocron"
	defaultPriceStalenessSecs = int64(300)
	defaultReconcileInterval  = int64(5)
	defaultSweepInterval      = int64(30)
	defaultPanelSize          = 3
	defaultArbitratorLoadCap  = 5
	defaultYieldBps           = uint32(8000)
)

func LoadConfig() (*Config, error) {
	viper.SetEnvPrefix("GIGD")
	viper.AutomaticEnv()

	viper.SetDefault(Datadir, defaultDatadir)
	viper.SetDefault(LogLevel, defaultLogLevel)
	viper.SetDefault(DbType, defaultDbType)
	viper.SetDefault(LiveStoreType, defaultLiveStoreType)
	viper.SetDefault(SchedulerType, defaultSchedulerType)
	viper.SetDefault(PriceStalenessSecs, defaultPriceStalenessSecs)
	viper.SetDefault(ReconcileInterval, defaultReconcileInterval)
	viper.SetDefault(SweepInterval, defaultSweepInterval)
	viper.SetDefault(PanelSize, defaultPanelSize)
	viper.SetDefault(ArbitratorLoadCap, defaultArbitratorLoadCap)
	viper.SetDefault(YieldFreelancerBps, defaultYieldBps)

	if err := initDatadir(); err != nil {
		return nil, fmt.Errorf("error while creating datadir: %s", err)
	}

	cfg := &Config{
		BaseDirectory:      viper.GetString(Datadir),
		LogLevel:           viper.GetInt(LogLevel),
		DbType:             viper.GetString(DbType),
		DbDir:              filepath.Join(viper.GetString(Datadir), "db"),
		LiveStoreType:      viper.GetString(LiveStoreType),
		RedisURL:           viper.GetString(RedisURL),
		SchedulerType:      viper.GetString(SchedulerType),
		LedgerGatewayURL:   viper.GetString(LedgerGatewayURL),
		MetadataGatewayURL: viper.GetString(MetadataGatewayURL),
		PriceFeedURL:       viper.GetString(PriceFeedURL),
		PriceStalenessSecs: viper.GetInt64(PriceStalenessSecs),
		BeaconURL:          viper.GetString(BeaconURL),
		ReconcileInterval:  viper.GetInt64(ReconcileInterval),
		SweepInterval:      viper.GetInt64(SweepInterval),
		PanelSize:          viper.GetInt(PanelSize),
		ArbitratorLoadCap:  viper.GetInt(ArbitratorLoadCap),
		YieldFreelancerBps: viper.GetUint32(YieldFreelancerBps),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if len(c.LedgerGatewayURL) <= 0 {
		return fmt.Errorf("missing ledger gateway url")
	}
	if len(c.MetadataGatewayURL) <= 0 {
		return fmt.Errorf("missing metadata gateway url")
	}
	if len(c.PriceFeedURL) <= 0 {
		return fmt.Errorf("missing price feed url")
	}
	if len(c.BeaconURL) <= 0 {
		return fmt.Errorf("missing randomness beacon url")
	}
	if c.LiveStoreType == "redis" && len(c.RedisURL) <= 0 {
		return fmt.Errorf("missing redis url for redis live store")
	}
	if c.ReconcileInterval < 1 {
		return fmt.Errorf("reconcile interval must be at least 1 second")
	}
	if c.SweepInterval < 1 {
		return fmt.Errorf("sweep interval must be at least 1 second")
	}
	return nil
}

func initDatadir() error {
	datadir := viper.GetString(Datadir)
	return makeDirectoryIfNotExists(datadir)
}

func makeDirectoryIfNotExists(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return os.MkdirAll(path, os.ModeDir|0755)
	}
	return nil
}

func appDataDir(appName string) string {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return appName + "-data"
	}
	return filepath.Join(configDir, appName)
}
