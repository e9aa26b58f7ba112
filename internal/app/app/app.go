package app

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	"bidmarket/internal/app/access"
	"bidmarket/internal/app/config"
	"bidmarket/internal/app/logger"
	"bidmarket/internal/app/notify"
	"bidmarket/internal/app/risk"
	"bidmarket/internal/app/service/bidding"
	"bidmarket/internal/app/service/payment"
	"bidmarket/internal/app/session"
	"bidmarket/internal/app/storage"
	"bidmarket/internal/app/storage/postgres"
	"bidmarket/pkg/gateway"

	"github.com/go-redis/redis/v8"
)

type App struct {
	config   config.Config
	logger   logger.Logger
	users    storage.UserRepository
	session  session.Manager
	acl      *access.Table
	bidding  *bidding.Service
	payments *payment.Service
	stopCh   chan struct{}
}

func New(cfg config.Config, logger logger.Logger, e embed.FS) (*App, error) {
	db, err := sql.Open("postgres", cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("db open: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}

	if err := applyMigrations(e, db); err != nil {
		return nil, fmt.Errorf("db migrate: %w", err)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	users, err := postgres.NewUserRepository(db)
	if err != nil {
		return nil, fmt.Errorf("user repository init: %w", err)
	}

	auctions, err := postgres.NewAuctionRepository(db)
	if err != nil {
		return nil, fmt.Errorf("auction repository init: %w", err)
	}

	transactions, err := postgres.NewTransactionRepository(db)
	if err != nil {
		return nil, fmt.Errorf("transaction repository init: %w", err)
	}

	audit, err := postgres.NewAuditRepository(db)
	if err != nil {
		return nil, fmt.Errorf("audit repository init: %w", err)
	}

	gw, err := gateway.NewService(cfg.Gateway.RemoteURL, gateway.WithLogger(logger.Logger))
	if err != nil {
		return nil, fmt.Errorf("gateway init: %w", err)
	}

	acl, err := access.NewTable()
	if err != nil {
		return nil, fmt.Errorf("access table init: %w", err)
	}

	publisher := notify.NewRedisPublisher(rdb)
	reputation := risk.NewRedisReputationStore(rdb)
	validator := payment.NewValidator(cfg.Risk, transactions, reputation)

	a := &App{
		config:   cfg,
		logger:   logger,
		stopCh:   make(chan struct{}),
		users:    users,
		session:  session.NewMemory(cfg.SecretKey, users),
		acl:      acl,
		bidding:  bidding.New(auctions, publisher),
		payments: payment.New(transactions, audit, validator, gw, publisher),
	}

	go func() {
		<-a.stopCh
		a.logger.Info().Msg("Shutting down application")
	}()

	return a, nil
}

func (a *App) Stop() {
	close(a.stopCh)
}
