package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"

	projDomain "github.com/davicafu/walletflow/internal/projection/domain"
)

// ViewRepoPostgres persiste el read model de wallets en Postgres.
type ViewRepoPostgres struct {
	db *sql.DB
}

func NewViewRepoPostgres(db *sql.DB) *ViewRepoPostgres {
	return &ViewRepoPostgres{db: db}
}

// Verificación estática
var _ projDomain.ViewRepository = (*ViewRepoPostgres)(nil)

func (r *ViewRepoPostgres) Get(ctx context.Context, walletID string) (*projDomain.WalletView, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT wallet_id, balance, exists_flag, version, updated_at
		 FROM wallet_views WHERE wallet_id = $1`,
		walletID,
	)

	var v projDomain.WalletView
	if err := row.Scan(&v.WalletID, &v.Balance, &v.Exists, &v.Version, &v.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, projDomain.ErrViewNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return &v, nil
}

// Save hace un upsert monótono: el WHERE impide que una versión vieja pise a
// una más nueva aunque el projector reciba el evento dos veces.
func (r *ViewRepoPostgres) Save(ctx context.Context, view *projDomain.WalletView) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO wallet_views (wallet_id, balance, exists_flag, version, updated_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (wallet_id) DO UPDATE
		 SET balance = EXCLUDED.balance,
		     exists_flag = EXCLUDED.exists_flag,
		     version = EXCLUDED.version,
		     updated_at = EXCLUDED.updated_at
		 WHERE wallet_views.version < EXCLUDED.version`,
		view.WalletID, view.Balance, view.Exists, view.Version, view.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save wallet view: %w", err)
	}
	return nil
}

func (r *ViewRepoPostgres) List(ctx context.Context, limit int) ([]*projDomain.WalletView, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT wallet_id, balance, exists_flag, version, updated_at
		 FROM wallet_views
		 ORDER BY balance DESC
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var views []*projDomain.WalletView
	for rows.Next() {
		var v projDomain.WalletView
		if err := rows.Scan(&v.WalletID, &v.Balance, &v.Exists, &v.Version, &v.UpdatedAt); err != nil {
			return nil, err
		}
		views = append(views, &v)
	}

	return views, rows.Err()
}

// ------------------ Inicialización ------------------

func InitPostgres(db *sql.DB) error {
	_, err := db.Exec(`
	CREATE TABLE IF NOT EXISTS wallet_views (
		wallet_id   TEXT PRIMARY KEY,
		balance     BIGINT NOT NULL,
		exists_flag BOOLEAN NOT NULL,
		version     BIGINT NOT NULL,
		updated_at  TIMESTAMPTZ NOT NULL
	)`)
	return err
}
