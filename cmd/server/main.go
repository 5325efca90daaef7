package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/swapdesk/tradebook-backend/internal/adapter/repository/memory"
	"github.com/swapdesk/tradebook-backend/internal/adapter/repository/postgres"
	"github.com/swapdesk/tradebook-backend/internal/adapter/rest"
	"github.com/swapdesk/tradebook-backend/internal/config"
	"github.com/swapdesk/tradebook-backend/internal/domain"
	"github.com/swapdesk/tradebook-backend/internal/usecase/authorization"
	"github.com/swapdesk/tradebook-backend/internal/usecase/lifecycle"
	"github.com/swapdesk/tradebook-backend/internal/usecase/validation"
)

func main() {
	cfg := config.Load()

	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(level)
	}

	trades, refData, cleanup, err := buildStorage(cfg, log)
	if err != nil {
		log.WithError(err).Fatal("failed to initialize storage")
	}
	defer cleanup()

	validator := validation.NewValidator(refData, trades)
	authorizer := authorization.NewAuthorizer(refData)
	service := lifecycle.NewService(trades, refData, validator, log)
	handler := rest.NewTradeHandler(service, validator, authorizer, log)
	router := rest.NewRouter(handler)

	server := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: router,
	}

	go func() {
		log.WithField("port", cfg.ServerPort).Info("trade booking server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server failed")
		}
	}()

	waitForShutdown(server, log)
}

// buildStorage selects the gateway implementation from configuration.
// The in-memory store ships with seeded reference data for local runs.
func buildStorage(cfg *config.Config, log *logrus.Logger) (domain.TradeRepository, domain.ReferenceDataRepository, func(), error) {
	switch cfg.StorageBackend {
	case "postgres":
		db, err := postgres.NewDB(cfg.DBConnStr)
		if err != nil {
			return nil, nil, nil, err
		}
		log.Info("using postgres storage")
		return postgres.NewTradeRepository(db), postgres.NewRefDataRepository(db), func() { db.Close() }, nil
	default:
		log.Info("using in-memory storage")
		store := memory.NewStore()
		return store, store, func() {}, nil
	}
}

// waitForShutdown blocks until SIGTERM or SIGINT and drains the server
func waitForShutdown(server *http.Server, log *logrus.Logger) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)

	sig := <-sigChan
	log.WithField("signal", sig.String()).Info("shutting down gracefully")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.WithError(err).Error("forced shutdown")
	}
	log.Info("server stopped")
}
