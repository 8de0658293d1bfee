package database

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"log/slog"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/golang-migrate/migrate/v4"
	clickmigrations "github.com/golang-migrate/migrate/v4/database/clickhouse"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/atishaytuli/YURL/internal/types"
)

//go:embed migrations/clickhouse/*.sql
var migrationsClickHouseFS embed.FS

const (
	clickBufferSize = 1000
	clickBatchSize  = 100
	clickFlushEvery = 5 * time.Second
)

// Analytics is the ClickHouse-backed click-event sink and source.
// Writes go through a buffered channel and are flushed in batches; a
// full buffer drops events rather than blocking the redirect path.
type Analytics struct {
	db           *sql.DB
	clicksBuffer chan types.ClickEvent
}

func ConnectClickHouse(addr, user, pass, dbName string) (*Analytics, error) {
	conn := clickhouse.OpenDB(&clickhouse.Options{
		Addr: []string{addr},
		Auth: clickhouse.Auth{
			Database: dbName,
			Username: user,
			Password: pass,
		},
		DialTimeout: time.Second * 30,
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
	})
	if err := conn.Ping(); err != nil {
		return nil, err
	}

	a := &Analytics{
		db:           conn,
		clicksBuffer: make(chan types.ClickEvent, clickBufferSize),
	}

	if err := a.runMigrations(); err != nil {
		return nil, err
	}

	return a, nil
}

func (a *Analytics) runMigrations() error {
	d, err := iofs.New(migrationsClickHouseFS, "migrations/clickhouse")
	if err != nil {
		return err
	}

	driver, err := clickmigrations.WithInstance(a.db, &clickmigrations.Config{})
	if err != nil {
		return err
	}

	m, err := migrate.NewWithInstance(
		"iofs", d,
		"clickhouse", driver,
	)
	if err != nil {
		return err
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}

	slog.Info("ClickHouse migrations applied successfully")
	return nil
}

// Start launches the batching worker. It drains until ctx is cancelled,
// flushing any remainder on the way out.
func (a *Analytics) Start(ctx context.Context) {
	go a.worker(ctx)
}

func (a *Analytics) worker(ctx context.Context) {
	var buffer []types.ClickEvent
	ticker := time.NewTicker(clickFlushEvery)
	defer ticker.Stop()

	flush := func() {
		if len(buffer) == 0 {
			return
		}
		if err := a.recordClicks(buffer); err != nil {
			slog.Warn("recordClicks error", "error", err, "dropped", len(buffer))
		}
		buffer = nil
	}

	for {
		select {
		case event := <-a.clicksBuffer:
			buffer = append(buffer, event)
			if len(buffer) >= clickBatchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		case <-ctx.Done():
			flush()
			return
		}
	}
}

func (a *Analytics) recordClicks(clicks []types.ClickEvent) error {
	tx, err := a.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare("INSERT INTO clicks (link_id, device, country, city) VALUES (?, ?, ?, ?)")
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, event := range clicks {
		if _, err := stmt.Exec(event.LinkID, event.Device, event.Country, event.City); err != nil {
			slog.Error("failed to exec insert for click", "error", err, "link_id", event.LinkID)
			continue
		}
	}
	return tx.Commit()
}

// PushClick enqueues an event without blocking. Drops on a full buffer.
func (a *Analytics) PushClick(event types.ClickEvent) {
	select {
	case a.clicksBuffer <- event:
	default:
		slog.Warn("Analytics buffer full, dropping click data", "link_id", event.LinkID)
	}
}

// EventsForLink returns every recorded click for one link, newest first.
func (a *Analytics) EventsForLink(ctx context.Context, linkID string) ([]types.ClickEvent, error) {
	const query = `SELECT link_id, device, country, city, clicked_at FROM clicks WHERE link_id = ? ORDER BY clicked_at DESC`
	rows, err := a.db.QueryContext(ctx, query, linkID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := []types.ClickEvent{}
	for rows.Next() {
		var event types.ClickEvent
		if err := rows.Scan(&event.LinkID, &event.Device, &event.Country, &event.City, &event.ClickedAt); err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	return events, rows.Err()
}

func (a *Analytics) Close() error {
	return a.db.Close()
}
