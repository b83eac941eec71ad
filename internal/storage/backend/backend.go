// Package backend opens the event, report and case stores used by the binaries.
package backend

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"chain-fraud-lab/internal/domain"
	"chain-fraud-lab/internal/storage"
	chstore "chain-fraud-lab/internal/storage/clickhouse"
	"chain-fraud-lab/internal/storage/memory"
	"chain-fraud-lab/internal/storage/migrations"
	pgstore "chain-fraud-lab/internal/storage/postgres"
)

// Options selects the backing databases. UseMemory ignores both DSNs.
type Options struct {
	PostgresDSN   string
	ClickHouseDSN string
	UseMemory     bool
}

// Stores holds the opened stores.
type Stores struct {
	Events  *storage.Router
	Reports storage.ReportStore
	Cases   storage.CaseStore
	Kind    string

	closers []func()
}

// OnClose registers fn to run on Close. Closers run in reverse order.
func (s *Stores) OnClose(fn func()) {
	s.closers = append(s.closers, fn)
}

// Close releases database connections.
func (s *Stores) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

// Open creates the stores. Transfers, logs, reports and cases go to Postgres, swaps
// to ClickHouse; migrations are applied before the stores are returned.
func Open(ctx context.Context, opts Options, logger zerolog.Logger) (*Stores, error) {
	if opts.UseMemory {
		return openMemory()
	}
	if opts.PostgresDSN == "" || opts.ClickHouseDSN == "" {
		return nil, errors.New("postgres and clickhouse DSNs are required (use memory storage otherwise)")
	}

	pool, err := pgstore.NewPool(ctx, opts.PostgresDSN)
	if err != nil {
		return nil, err
	}
	if err := migrations.RunPostgresMigrations(ctx, pool, logger); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres migrations: %w", err)
	}

	conn, err := migrations.RunClickhouseMigrations(ctx, opts.ClickHouseDSN, logger)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("clickhouse migrations: %w", err)
	}

	events := pgstore.NewEventStore(pool)
	router, err := storage.NewRouter(map[domain.EventKind]storage.EventStore{
		domain.EventKindTransfer: events,
		domain.EventKindLog:      events,
		domain.EventKindSwap:     newSwapStore(conn),
	})
	if err != nil {
		conn.Close()
		pool.Close()
		return nil, err
	}

	stores := &Stores{
		Events:  router,
		Reports: pgstore.NewReportStore(pool),
		Cases:   pgstore.NewCaseStore(pool),
		Kind:    "postgres+clickhouse",
	}
	stores.OnClose(pool.Close)
	stores.OnClose(func() { _ = conn.Close() })
	return stores, nil
}

func openMemory() (*Stores, error) {
	events := memory.NewEventStore()
	router, err := storage.NewRouter(map[domain.EventKind]storage.EventStore{
		domain.EventKindTransfer: events,
		domain.EventKindLog:      events,
		domain.EventKindSwap:     events,
	})
	if err != nil {
		return nil, err
	}
	return &Stores{
		Events:  router,
		Reports: memory.NewReportStore(),
		Cases:   memory.NewCaseStore(),
		Kind:    "memory",
	}, nil
}

func newSwapStore(conn *chstore.Conn) storage.EventStore {
	return chstore.NewSwapEventStore(conn)
}
