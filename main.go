package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	appconfig "spreadscan/config"
	"spreadscan/logger"
	"spreadscan/models"
	"spreadscan/reader/coinbase"
	"spreadscan/scanner"
	"spreadscan/store"
)

func main() {
	log := logger.GetLogger()

	// Load environment variables from .env if present
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.WithError(err).Warn("Error loading .env file")
	}

	configPath := flag.String("config", "config/config.yml", "Path to configuration file")
	scanOnce := flag.Bool("once", false, "Perform a single full scan and exit")
	flag.Parse()

	cfg, err := appconfig.LoadConfig(*configPath)
	if err != nil {
		log.WithError(err).Error("Failed to load configuration")
		os.Exit(1)
	}
	if *scanOnce {
		cfg.Scan.ScanOnce = true
	}

	if err := log.Configure(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output, cfg.Logging.MaxAge); err != nil {
		log.WithError(err).Error("Failed to configure logger")
		os.Exit(1)
	}

	log.WithFields(logger.Fields{
		"service":         cfg.Spreadscan.Name,
		"version":         cfg.Spreadscan.Version,
		"environment":     appconfig.AppEnvironment(),
		"orderbook_value": cfg.Scan.OrderbookValue,
		"spread_alert":    cfg.Scan.SpreadAlert,
		"min_volume_24h":  cfg.Scan.MinVolume24h,
	}).Info("starting spreadscan")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if cfg.Metrics.CloudWatch.Enabled {
		logger.InitCloudWatch(cfg.Metrics.CloudWatch.Region, cfg.Metrics.CloudWatch.Namespace, cfg.Metrics.CloudWatch.Dashboard)
	}
	if strings.ToLower(cfg.Logging.Level) == "report" {
		logger.StartReport(ctx, log, 30*time.Second)
	}

	var backup *store.S3Backup
	if cfg.Storage.S3.Enabled {
		backup, err = store.NewS3Backup(ctx, cfg.Storage.S3)
		if err != nil {
			log.WithError(err).Error("failed to initialize S3 backup")
			os.Exit(1)
		}
	} else {
		if appconfig.IsProductionLike(appconfig.AppEnvironment()) {
			log.WithComponent("main").Warn("S3 snapshot backup disabled in a production-like environment")
		} else {
			log.WithComponent("main").Info("S3 snapshot backup disabled")
		}
	}

	st := store.NewStore(cfg.Files, backup)
	client := coinbase.NewClient(cfg.Source.Coinbase)

	products, err := st.GetOrRefresh(ctx, client, cfg.Files.ProductsMaxAge)
	if err != nil {
		log.WithError(err).Warn("product metadata unavailable, using default display precision")
	} else {
		if err := st.WritePairsFile(products); err != nil {
			log.WithError(err).Warn("failed to update trading pairs file")
		}
	}
	index := models.NewProductIndex(products)

	if cfg.Display.ShowLoadedPairInfo {
		if pairs, err := st.LoadTradingPairs(); err == nil {
			log.WithComponent("main").WithFields(logger.Fields{
				"count": len(pairs),
				"pairs": strings.Join(pairs, ","),
			}).Info("loaded trading pairs")
		}
	}

	s := scanner.New(cfg, client, st, index)
	if err := s.Run(ctx); err != nil {
		log.WithError(err).Error("scanner terminated with error")
		os.Exit(1)
	}

	log.Info("spreadscan stopped")
}
