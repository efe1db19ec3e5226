package main

import (
	"os"
	"os/signal"
	"syscall"

	appconfig "github.com/gigledger/gigd/internal/app-config"
	"github.com/gigledger/gigd/internal/config"
	log "github.com/sirupsen/logrus"
)

//nolint:all
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.WithError(err).Fatal("invalid config")
	}

	log.SetLevel(log.Level(cfg.LogLevel))

	appConfig := &appconfig.Config{
		DbType:             cfg.DbType,
		DbDir:              cfg.DbDir,
		LiveStoreType:      cfg.LiveStoreType,
		RedisURL:           cfg.RedisURL,
		SchedulerType:      cfg.SchedulerType,
		LedgerGatewayURL:   cfg.LedgerGatewayURL,
		MetadataGatewayURL: cfg.MetadataGatewayURL,
		PriceFeedURL:       cfg.PriceFeedURL,
		PriceStalenessSecs: cfg.PriceStalenessSecs,
		BeaconURL:          cfg.BeaconURL,
		ReconcileInterval:  cfg.ReconcileInterval,
		SweepInterval:      cfg.SweepInterval,
		PanelSize:          cfg.PanelSize,
		ArbitratorLoadCap:  cfg.ArbitratorLoadCap,
		YieldFreelancerBps: cfg.YieldFreelancerBps,
	}
	if err := appConfig.Validate(); err != nil {
		log.WithError(err).Fatal("invalid app config")
	}

	svc := appConfig.AppService()

	log.RegisterExitHandler(svc.Stop)

	log.Info("starting service...")
	if err := svc.Start(); err != nil {
		log.Fatal(err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)
	<-sigChan

	log.Info("shutting down service...")
	svc.Stop()
	log.Exit(0)
}
