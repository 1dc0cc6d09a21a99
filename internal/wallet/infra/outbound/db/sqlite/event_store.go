package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	// _ "github.com/mattn/go-sqlite3" // better performance but requires gcc
	_ "modernc.org/sqlite"

	"github.com/davicafu/walletflow/internal/wallet/domain"
)

// EventStoreSQLite implementa el log append-only sobre SQLite para despliegue
// local y tests. SQLite serializa los writers dentro de la transacción; la
// primary key (aggregate_id, version) cubre el mismo guard que en Postgres.
type EventStoreSQLite struct {
	db *sql.DB
}

func NewEventStoreSQLite(db *sql.DB) *EventStoreSQLite {
	return &EventStoreSQLite{db: db}
}

// Verificación estática
var _ domain.EventStore = (*EventStoreSQLite)(nil)

func (s *EventStoreSQLite) LoadEvents(ctx context.Context, aggregateID string) ([]domain.Event, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT aggregate_id, aggregate_type, version, event_type, event_data, metadata, created_at
		 FROM events
		 WHERE aggregate_id = ?
		 ORDER BY version ASC`,
		aggregateID,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStorage, err)
	}
	defer rows.Close()

	var events []domain.Event
	for rows.Next() {
		var e domain.Event
		var dataRaw, metaRaw, createdAt string
		if err := rows.Scan(&e.AggregateID, &e.AggregateType, &e.Version, &e.Type, &dataRaw, &metaRaw, &createdAt); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrStorage, err)
		}
		e.Data = json.RawMessage(dataRaw)
		if err := json.Unmarshal([]byte(metaRaw), &e.Metadata); err != nil {
			return nil, fmt.Errorf("%w: invalid metadata: %v", domain.ErrStorage, err)
		}
		ts, err := time.Parse(time.RFC3339Nano, createdAt)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid created_at: %v", domain.ErrStorage, err)
		}
		e.CreatedAt = ts
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStorage, err)
	}

	return events, nil
}

func (s *EventStoreSQLite) AppendEvent(ctx context.Context, pending domain.PendingEvent) (*domain.Event, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStorage, err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	var lastVersion int64
	err = tx.QueryRowContext(ctx,
		`SELECT version FROM events
		 WHERE aggregate_id = ?
		 ORDER BY version DESC
		 LIMIT 1`,
		pending.AggregateID,
	).Scan(&lastVersion)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %v", domain.ErrStorage, err)
	}
	err = nil

	if lastVersion != pending.ExpectedVersion {
		err = fmt.Errorf("%w: expected=%d, actual=%d",
			domain.ErrConcurrencyConflict, pending.ExpectedVersion, lastVersion)
		return nil, err
	}

	metaRaw, err := json.Marshal(pending.Metadata)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStorage, err)
	}

	stored := domain.Event{
		AggregateID:   pending.AggregateID,
		AggregateType: pending.AggregateType,
		Version:       pending.ExpectedVersion + 1,
		Type:          pending.Type,
		Data:          pending.Data,
		Metadata:      pending.Metadata,
		CreatedAt:     time.Now().UTC(),
	}

	if _, err = tx.ExecContext(ctx,
		`INSERT INTO events (aggregate_id, aggregate_type, version, event_type, event_data, metadata, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		stored.AggregateID, stored.AggregateType, stored.Version, stored.Type,
		string(stored.Data), string(metaRaw), stored.CreatedAt.Format(time.RFC3339Nano),
	); err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint") {
			err = fmt.Errorf("%w: %v", domain.ErrConcurrencyConflict, err)
		} else {
			err = fmt.Errorf("%w: %v", domain.ErrStorage, err)
		}
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStorage, err)
	}

	return &stored, nil
}

// ------------------ Inicialización ------------------

func InitSQLite(db *sql.DB) error {
	_, err := db.Exec(`
	CREATE TABLE IF NOT EXISTS events (
		aggregate_id   TEXT NOT NULL,
		aggregate_type TEXT NOT NULL,
		version        INTEGER NOT NULL,
		event_type     TEXT NOT NULL,
		event_data     TEXT NOT NULL,
		metadata       TEXT NOT NULL,
		created_at     TEXT NOT NULL,
		PRIMARY KEY (aggregate_id, version)
	)`)
	return err
}
