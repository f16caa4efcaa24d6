package main

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/yuku/respool"
	"github.com/yuku/respool/internal"
	"github.com/yuku/respool/internal/store/natsstore"
	"go.uber.org/zap"
)

const (
	backendPostgres = "postgres"
	backendNATS     = "nats"
	backendMemory   = "memory"
)

// openPool opens the pool selected by the backend flag. The returned
// function releases every connection the pool holds.
func (a *app) openPool(ctx context.Context, conf respool.Config) (*respool.Pool, func(), error) {
	backend := a.v.GetString("backend")
	a.log.Debug("opening pool",
		zap.String("backend", backend),
		zap.String("group", conf.GroupKey),
	)

	switch backend {
	case backendPostgres:
		db, manager, err := a.openManager(ctx)
		if err != nil {
			return nil, nil, err
		}
		pool, err := manager.Open(ctx, conf)
		if err != nil {
			manager.Close()
			db.Close()
			return nil, nil, err
		}
		return pool, func() {
			manager.Close()
			db.Close()
		}, nil

	case backendNATS:
		s, err := natsstore.Connect(ctx, a.v.GetString("nats-url"), a.v.GetString("nats-bucket"))
		if err != nil {
			return nil, nil, err
		}
		pool, err := respool.New(ctx, s, conf)
		if err != nil {
			_ = s.Close()
			return nil, nil, err
		}
		return pool, func() {
			pool.Close()
			_ = s.Close()
		}, nil

	case backendMemory:
		pool, err := respool.New(ctx, respool.NewMemoryStore(), conf)
		if err != nil {
			return nil, nil, err
		}
		return pool, pool.Close, nil
	}
	return nil, nil, fmt.Errorf("unknown backend %q", backend)
}

// openManager connects to PostgreSQL and makes sure the schema exists.
func (a *app) openManager(ctx context.Context) (*pgxpool.Pool, *respool.Manager, error) {
	db, err := internal.GetPool(ctx, a.v.GetString("database-url"))
	if err != nil {
		return nil, nil, err
	}
	manager, err := respool.Setup(ctx, db)
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	return db, manager, nil
}
