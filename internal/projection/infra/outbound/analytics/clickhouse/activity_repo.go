package clickhouse

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"

	projDomain "github.com/davicafu/walletflow/internal/projection/domain"
)

// ActivityRepo es el sink analítico de movimientos de wallet en ClickHouse.
// Es append-only: cada evento proyectado deja una fila en wallet_activity.
type ActivityRepo struct {
	db *sql.DB
}

// Verificación estática
var _ projDomain.ActivityRepository = (*ActivityRepo)(nil)

func NewActivityRepo(addr string, dbName string) (*ActivityRepo, error) {
	conn := clickhouse.OpenDB(&clickhouse.Options{
		Addr: []string{addr},
		Auth: clickhouse.Auth{
			Database: dbName,
		},
		Settings: clickhouse.Settings{
			"max_execution_time": 60,
		},
	})

	if err := conn.Ping(); err != nil {
		return nil, fmt.Errorf("could not ping clickhouse: %w", err)
	}

	return &ActivityRepo{db: conn}, nil
}

// LogBatch inserta un lote de movimientos. ClickHouse rinde mejor por lotes,
// aunque el projector hoy entregue de uno en uno.
func (r *ActivityRepo) LogBatch(ctx context.Context, entries []projDomain.ActivityEntry) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO wallet_activity (wallet_id, event_type, amount, version, event_time)")
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, e := range entries {
		if _, err := stmt.ExecContext(ctx,
			e.WalletID,
			e.EventType,
			e.Amount,
			e.Version,
			e.EventTime,
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to exec statement for wallet %s: %w", e.WalletID, err)
		}
	}

	return tx.Commit()
}

// GetDailyTrend agrega créditos, débitos y flujo neto por día.
func (r *ActivityRepo) GetDailyTrend(ctx context.Context, start, end time.Time) ([]projDomain.DailyActivityTrend, error) {
	query := `
		SELECT
			toStartOfDay(event_time) AS day,
			countIf(event_type = 'WalletCredited') AS credits,
			countIf(event_type = 'WalletDebited') AS debits,
			sum(amount) AS net
		FROM wallet_activity
		WHERE event_time BETWEEN ? AND ?
		GROUP BY day
		ORDER BY day
	`
	rows, err := r.db.QueryContext(ctx, query, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var trends []projDomain.DailyActivityTrend
	for rows.Next() {
		var t projDomain.DailyActivityTrend
		if err := rows.Scan(&t.Day, &t.CreditCount, &t.DebitCount, &t.NetAmount); err != nil {
			return nil, err
		}
		trends = append(trends, t)
	}
	return trends, rows.Err()
}

// InitSchema crea la tabla en ClickHouse si no existe.
func (r *ActivityRepo) InitSchema() error {
	query := `
		CREATE TABLE IF NOT EXISTS wallet_activity (
			wallet_id  String,
			event_type String,
			amount     Int64,
			version    Int64,
			event_time DateTime64(3)
		)
		ENGINE = MergeTree()
		PARTITION BY toYYYYMM(event_time)
		ORDER BY (wallet_id, event_time)
	`
	_, err := r.db.Exec(query)
	return err
}
