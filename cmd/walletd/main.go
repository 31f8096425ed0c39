package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
	"golang.org/x/time/rate"

	"github.com/tanglenet/wallet-daemon/internal/config"
	"github.com/tanglenet/wallet-daemon/internal/core/application"
	"github.com/tanglenet/wallet-daemon/internal/core/domain"
	"github.com/tanglenet/wallet-daemon/internal/infrastructure/node"
	dbbadger "github.com/tanglenet/wallet-daemon/internal/infrastructure/storage/db/badger"
	"github.com/tanglenet/wallet-daemon/pkg/stats"
)

func main() {
	app := &cli.App{
		Name:   "walletd",
		Usage:  "wallet synchronization daemon",
		Action: runDaemon,
	}

	if err := app.Run(os.Args); err != nil {
		log.WithError(err).Fatal("daemon exited with error")
	}
}

func runDaemon(_ *cli.Context) error {
	if err := config.InitConfig(); err != nil {
		return err
	}
	log.SetLevel(log.Level(config.GetInt(config.LogLevelKey)))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if config.GetBool(config.EnableProfilerKey) {
		interval := time.Duration(config.GetInt(config.StatsIntervalKey)) * time.Second
		stats.EnableMemoryStatistics(ctx, interval)
	}

	dbDir := filepath.Join(config.GetDatadir(), config.DbLocation)
	dbManager, err := dbbadger.NewDbManager(dbDir, nil)
	if err != nil {
		return fmt.Errorf("opening db: %w", err)
	}
	defer dbManager.Close()

	accountRepository := dbbadger.NewAccountRepositoryImpl(dbManager)
	nodeSvc := node.NewService(node.Opts{
		APIURL:         config.GetString(config.NodeAPIURLKey),
		WSURL:          config.GetString(config.NodeWSURLKey),
		RequestTimeout: time.Duration(config.GetInt(config.FetchTimeoutKey)) * time.Second,
	})

	eventBus := application.NewEventBus()
	registerEventLoggers(eventBus)

	monitorSvc := application.NewMonitorService(application.MonitorOpts{
		AccountRepository: accountRepository,
		NodeService:       nodeSvc,
		EventBus:          eventBus,
		Locker:            domain.NewAddressLocker(),
		FetchTimeout:      time.Duration(config.GetInt(config.FetchTimeoutKey)) * time.Second,
		FetchRateLimit:    rate.Limit(config.GetInt(config.FetchRateLimitKey)),
	})

	accounts, err := accountRepository.GetAllAccounts(ctx)
	if err != nil {
		return fmt.Errorf("loading accounts: %w", err)
	}
	log.Infof("loaded %d account(s)", len(accounts))

	for _, account := range accounts {
		if err := monitorSvc.MonitorAccountAddressesBalance(account); err != nil {
			log.WithError(err).Warnf(
				"could not monitor addresses of account %s", account.Alias,
			)
		}
		if err := monitorSvc.MonitorUnconfirmedMessages(account); err != nil {
			log.WithError(err).Warnf(
				"could not monitor unconfirmed messages of account %s", account.Alias,
			)
		}
	}

	log.Info("daemon is running, press ctrl+c to stop")
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	for _, account := range accounts {
		if err := monitorSvc.Unsubscribe(account); err != nil {
			log.WithError(err).Warnf(
				"could not unsubscribe account %s", account.Alias,
			)
		}
	}

	log.Info("daemon stopped")
	return nil
}

func registerEventLoggers(eventBus *application.EventBus) {
	eventBus.OnBalanceChange(func(event application.BalanceEvent) {
		log.Infof(
			"account %s: address %s balance is now %s",
			hex.EncodeToString(event.AccountID[:]),
			event.Address.Address,
			domain.FormatBalance(event.Balance),
		)
	})
	eventBus.OnNewTransaction(func(event application.TransactionEvent) {
		log.Infof(
			"account %s: new transaction %s",
			hex.EncodeToString(event.AccountID[:]), event.MessageID,
		)
	})
	eventBus.OnConfirmationStateChange(func(event application.ConfirmationEvent) {
		log.Infof(
			"account %s: message %s confirmed=%t",
			hex.EncodeToString(event.AccountID[:]), event.MessageID, event.Confirmed,
		)
	})
}
