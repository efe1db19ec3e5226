package appconfig

import (
	"fmt"
	"strings"
	"time"

	"github.com/gigledger/gigd/internal/core/application"
	"github.com/gigledger/gigd/internal/core/ports"
	"github.com/gigledger/gigd/internal/infrastructure/db"
	wsledger "github.com/gigledger/gigd/internal/infrastructure/ledger/ws"
	inmemorylivestore "github.com/gigledger/gigd/internal/infrastructure/live-store/inmemory"
	redislivestore "github.com/gigledger/gigd/internal/infrastructure/live-store/redis"
	httpmetadata "github.com/gigledger/gigd/internal/infrastructure/metadata/http"
	watermillnotifier "github.com/gigledger/gigd/internal/infrastructure/notifier/watermill"
	httporacle "github.com/gigledger/gigd/internal/infrastructure/oracle/http"
	httprandomness "github.com/gigledger/gigd/internal/infrastructure/randomness/http"
	scheduler "github.com/gigledger/gigd/internal/infrastructure/scheduler/gocron"
	log "github.com/sirupsen/logrus"
)

var (
	supportedDbs = supportedType{
		"badger": {},
	}
	supportedSchedulers = supportedType{
		"gocron": {},
	}
	supportedLiveStores = supportedType{
		"inmemory": {},
		"redis":    {},
	}
)

type Config struct {
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

	repo      ports.RepoManager
	liveStore ports.LiveStore
	ledger    ports.LedgerClient
	scheduler ports.SchedulerService
	notifier  ports.Notifier
	svc       application.Service
}

func (c *Config) Validate() error {
	if !supportedDbs.supports(c.DbType) {
		return fmt.Errorf("db type not supported, please select one of: %s", supportedDbs)
	}
	if !supportedSchedulers.supports(c.SchedulerType) {
		return fmt.Errorf("scheduler type not supported, please select one of: %s", supportedSchedulers)
	}
	if !supportedLiveStores.supports(c.LiveStoreType) {
		return fmt.Errorf("live store type not supported, please select one of: %s", supportedLiveStores)
	}
	if err := c.repoManager(); err != nil {
		return err
	}
	if err := c.liveStoreService(); err != nil {
		return err
	}
	if err := c.ledgerService(); err != nil {
		return err
	}
	if err := c.schedulerService(); err != nil {
		return err
	}
	if err := c.appService(); err != nil {
		return err
	}
	return nil
}

func (c *Config) AppService() application.Service {
	return c.svc
}

func (c *Config) Notifier() ports.Notifier {
	return c.notifier
}

func (c *Config) repoManager() error {
	var svc ports.RepoManager
	var err error
	switch c.DbType {
	case "badger":
		logger := log.New()
		svc, err = db.NewService(db.ServiceConfig{
			DataStoreType:   c.DbType,
			DataStoreConfig: []interface{}{c.DbDir, logger},
		})
	default:
		return fmt.Errorf("unknown db type")
	}
	if err != nil {
		return err
	}

	c.repo = svc
	return nil
}

func (c *Config) liveStoreService() error {
	switch c.LiveStoreType {
	case "redis":
		rdb, err := redislivestore.NewRedisClient(c.RedisURL)
		if err != nil {
			return err
		}
		c.liveStore = redislivestore.NewLiveStore(rdb)
	case "inmemory":
		c.liveStore = inmemorylivestore.NewLiveStore()
	default:
		return fmt.Errorf("unknown live store type")
	}
	return nil
}

func (c *Config) ledgerService() error {
	svc, err := wsledger.NewLedgerClient(c.LedgerGatewayURL)
	if err != nil {
		return fmt.Errorf("failed to set up ledger gateway client: %s", err)
	}
	c.ledger = svc
	return nil
}

func (c *Config) schedulerService() error {
	switch c.SchedulerType {
	case "gocron":
		c.scheduler = scheduler.NewScheduler()
	default:
		return fmt.Errorf("unknown scheduler type")
	}
	return nil
}

func (c *Config) appService() error {
	c.notifier = watermillnotifier.NewNotifier()
	metadataStore := httpmetadata.NewMetadataStore(c.MetadataGatewayURL)
	oracle := httporacle.NewPriceOracle(
		c.PriceFeedURL, time.Duration(c.PriceStalenessSecs)*time.Second,
	)
	randomness := httprandomness.NewRandomnessSource(c.BeaconURL)

	svc, err := application.NewService(
		c.ledger, c.repo, c.liveStore, c.scheduler, c.notifier,
		metadataStore, oracle, randomness,
		c.PanelSize, c.ArbitratorLoadCap, c.YieldFreelancerBps,
		c.ReconcileInterval, c.SweepInterval,
	)
	if err != nil {
		return err
	}

	c.svc = svc
	return nil
}

type supportedType map[string]struct{}

func (t supportedType) String() string {
	types := make([]string, 0, len(t))
	for tt := range t {
		types = append(types, tt)
	}
	return strings.Join(types, " | ")
}

func (t supportedType) supports(typeStr string) bool {
	_, ok := t[typeStr]
	return ok
}
