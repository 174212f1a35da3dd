package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Fuonder/royaltypay.git/internal/dbservices"
	"github.com/Fuonder/royaltypay.git/internal/httpserver"
	"github.com/Fuonder/royaltypay.git/internal/logger"
	"github.com/Fuonder/royaltypay.git/internal/paystack"
	"github.com/Fuonder/royaltypay.git/internal/scheduler"
	"github.com/Fuonder/royaltypay.git/internal/storage/postrge"
	"github.com/Fuonder/royaltypay.git/internal/withdrawals"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	shutdownTimeout  = 20 * time.Second
	reconcileWorkers = 4
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Fatal(err)
	}
	opts, err := parseFlags(os.Args[1:])
	if err != nil {
		log.Fatal(err)
	}
	if err := logger.Initialize(opts.LogLevel); err != nil {
		panic(fmt.Errorf("method main: %v", err))
	}
	defer func() {
		_ = logger.Log.Sync()
	}()
	logger.Log.Info("Flags parsed",
		zap.String("flags", opts.String()))

	logger.Log.Info("Starting service")
	if err = run(opts); err != nil {
		logger.Log.Fatal("", zap.Error(err))
	}
}

func run(opts Flags) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	DBConn, err := postrge.NewConnection(ctx, opts.DatabaseDSN)
	if err != nil {
		return err
	}
	defer DBConn.Close()

	provider := paystack.NewClient(opts.PaystackBaseURL, opts.PaystackSecret, opts.TransferTimeout)

	services, err := dbservices.NewDatabaseServices(DBConn.Pool(), provider, dbservices.Options{
		Secret:           []byte(opts.Key),
		PayoutLockPeriod: opts.PayoutLockPeriod,
		NotifyWebhookURL: opts.NotifyWebhookURL,
		Withdrawals: withdrawals.Options{
			Currency:        opts.Currency,
			TransferTimeout: opts.TransferTimeout,
			RefundFees:      opts.RefundFees,
		},
	})
	if err != nil {
		return err
	}

	service, err := httpserver.NewService(opts.APIAddress.String(), httpserver.NewHandlers(services, provider, opts.TrustProxy))
	if err != nil {
		return err
	}
	payouts := scheduler.NewScheduler(services.WithdrawalSrv, opts.SchedulerInterval, reconcileWorkers)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return service.Run()
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return service.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		return payouts.Run(gctx)
	})
	g.Go(func() error {
		return services.Notifier.Run(gctx)
	})

	if err := g.Wait(); err != nil {
		logger.Log.Debug("exit with error", zap.Error(err))
		return err
	}
	logger.Log.Info("Service stopped")
	return nil
}
