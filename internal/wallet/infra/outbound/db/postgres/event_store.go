package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/davicafu/walletflow/internal/wallet/domain"
)

// EventStorePostgres implementa el log append-only sobre Postgres.
//
// El append hace check-then-insert dentro de una única transacción
// serializable: una lectura y una escritura separadas admitirían la carrera
// en la que dos writers observan la misma última versión. El índice único
// (aggregate_id, version) actúa de red de seguridad por si el nivel de
// aislamiento no bastara.
type EventStorePostgres struct {
	db *sql.DB
}

func NewEventStorePostgres(db *sql.DB) *EventStorePostgres {
	return &EventStorePostgres{db: db}
}

// Verificación estática
var _ domain.EventStore = (*EventStorePostgres)(nil)

func (s *EventStorePostgres) LoadEvents(ctx context.Context, aggregateID string) ([]domain.Event, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT aggregate_id, aggregate_type, version, event_type, event_data, metadata, created_at
		 FROM events
		 WHERE aggregate_id = $1
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
		var metaRaw []byte
		if err := rows.Scan(&e.AggregateID, &e.AggregateType, &e.Version, &e.Type, &e.Data, &metaRaw, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrStorage, err)
		}
		if err := json.Unmarshal(metaRaw, &e.Metadata); err != nil {
			return nil, fmt.Errorf("%w: invalid metadata: %v", domain.ErrStorage, err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStorage, err)
	}

	return events, nil
}

func (s *EventStorePostgres) AppendEvent(ctx context.Context, pending domain.PendingEvent) (*domain.Event, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
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
		 WHERE aggregate_id = $1
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
	}

	err = tx.QueryRowContext(ctx,
		`INSERT INTO events (aggregate_id, aggregate_type, version, event_type, event_data, metadata)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING created_at`,
		stored.AggregateID, stored.AggregateType, stored.Version, stored.Type, []byte(stored.Data), metaRaw,
	).Scan(&stored.CreatedAt)
	if err != nil {
		return nil, mapPgError(err)
	}

	if err = tx.Commit(); err != nil {
		return nil, mapPgError(err)
	}

	return &stored, nil
}

// mapPgError traduce los fallos del driver a la taxonomía del dominio:
// violación de unicidad o fallo de serialización son la carrera optimista
// perdida; todo lo demás es fallo de storage.
func mapPgError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505", "40001": // unique_violation, serialization_failure
			return fmt.Errorf("%w: %v", domain.ErrConcurrencyConflict, err)
		}
	}
	return fmt.Errorf("%w: %v", domain.ErrStorage, err)
}

// ------------------ Inicialización ------------------

func InitPostgres(db *sql.DB) error {
	_, err := db.Exec(`
	CREATE TABLE IF NOT EXISTS events (
		aggregate_id   TEXT NOT NULL,
		aggregate_type TEXT NOT NULL,
		version        BIGINT NOT NULL,
		event_type     TEXT NOT NULL,
		event_data     JSONB NOT NULL,
		metadata       JSONB NOT NULL,
		created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (aggregate_id, version)
	)`)
	return err
}
