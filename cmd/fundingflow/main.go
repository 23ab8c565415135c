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

	"fundingflow/bot"
	appconfig "fundingflow/config"
	"fundingflow/internal/dashboard"
	"fundingflow/internal/model"
	"fundingflow/internal/store"
	"fundingflow/logger"
	"fundingflow/processor"
	"fundingflow/reader/binance"
	"fundingflow/reader/bybit"
	"fundingflow/reader/extended"
	"fundingflow/reader/hyperliquid"
	"fundingflow/reader/paradex"
	"fundingflow/scheduler"
)

func main() {
	log := logger.GetLogger()

	// Load environment variables from .env if present
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.WithError(err).Warn("Error loading .env file")
	}

	configPath := flag.String("config", "config/config.yml", "Path to configuration file")
	flag.Parse()

	cfg, err := appconfig.LoadConfig(*configPath)
	if err != nil {
		log.WithError(err).Error("Failed to load configuration")
		os.Exit(1)
	}

	if err := log.Configure(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output, cfg.Logging.MaxAge); err != nil {
		log.WithError(err).Error("Failed to configure logger")
		os.Exit(1)
	}

	log.WithFields(logger.Fields{
		"service":     cfg.Fundingflow.Name,
		"version":     cfg.Fundingflow.Version,
		"environment": appconfig.AppEnvironment(),
	}).Info("starting fundingflow")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Metrics.CloudWatch.Enabled {
		logger.InitCloudWatch(cfg.Metrics.CloudWatch.Region, cfg.Metrics.CloudWatch.Namespace, cfg.Metrics.CloudWatch.Dashboard)
	}
	if strings.ToLower(cfg.Logging.Level) == "report" {
		logger.StartReport(ctx, log, 30*time.Second)
	}

	readers := make([]model.FundingReader, 0, 5)
	if cfg.Source.Hyperliquid.Enabled {
		readers = append(readers, hyperliquid.NewReader(cfg))
	}
	if cfg.Source.Extended.Enabled {
		readers = append(readers, extended.NewReader(cfg))
	}
	if cfg.Source.Paradex.Enabled {
		readers = append(readers, paradex.NewReader(cfg))
	}
	if cfg.Source.Binance.Enabled {
		readers = append(readers, binance.NewReader(cfg))
	}
	if cfg.Source.Bybit.Enabled {
		readers = append(readers, bybit.NewReader(cfg))
	}

	log.WithFields(logger.Fields{"venues": len(readers)}).Info("funding readers initialized")

	snapshots := store.NewSnapshotStore()
	sched := scheduler.New(cfg, readers, processor.NewAggregator(), snapshots)

	if err := sched.Start(ctx); err != nil {
		log.WithError(err).Error("failed to start scheduler")
		os.Exit(1)
	}

	var tgBot *bot.Bot
	if cfg.Bot.Enabled {
		tgBot, err = bot.New(cfg, snapshots)
		if err != nil {
			log.WithError(err).Error("failed to create telegram bot")
			os.Exit(1)
		}
		if err := tgBot.Start(ctx); err != nil {
			log.WithError(err).Error("failed to start telegram bot")
			os.Exit(1)
		}
	} else {
		log.WithComponent("main").Info("telegram bot disabled")
	}

	dash := dashboard.NewServer(cfg.Dashboard, snapshots, log)
	if dash != nil {
		go func() {
			if err := dash.Run(ctx, cfg.Fundingflow.Name); err != nil {
				log.WithError(err).Error("dashboard server exited")
			}
		}()
	}

	log.Info("all components started successfully")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigChan
	log.WithFields(logger.Fields{"signal": sig.String()}).Info("shutdown signal received")

	log.Info("starting graceful shutdown")
	cancel()

	if tgBot != nil {
		log.Info("stopping telegram bot")
		tgBot.Stop()
	}

	log.Info("stopping scheduler")

	done := make(chan struct{})
	go func() {
		sched.Stop()
		close(done)
	}()

	select {
	case <-done:
		log.Info("graceful shutdown completed")
	case <-time.After(30 * time.Second):
		log.Warn("graceful shutdown timeout exceeded")
	}

	log.Info("fundingflow stopped")
}
