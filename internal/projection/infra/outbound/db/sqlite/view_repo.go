package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	// _ "github.com/mattn/go-sqlite3" // better performance but requires gcc
	_ "modernc.org/sqlite"

	projDomain "github.com/davicafu/walletflow/internal/projection/domain"
)

// ViewRepoSQLite persiste el read model en SQLite (despliegue local y tests).
type ViewRepoSQLite struct {
	db *sql.DB
}

func NewViewRepoSQLite(db *sql.DB) *ViewRepoSQLite {
	return &ViewRepoSQLite{db: db}
}

// Verificación estática
var _ projDomain.ViewRepository = (*ViewRepoSQLite)(nil)

func (r *ViewRepoSQLite) Get(ctx context.Context, walletID string) (*projDomain.WalletView, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT wallet_id, balance, exists_flag, version, updated_at
		 FROM wallet_views WHERE wallet_id = ?`,
		walletID,
	)

	var v projDomain.WalletView
	var updatedAt string
	if err := row.Scan(&v.WalletID, &v.Balance, &v.Exists, &v.Version, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, projDomain.ErrViewNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	ts, err := time.Parse(time.RFC3339Nano, updatedAt)
	if err != nil {
		return nil, fmt.Errorf("invalid updated_at in DB: %w", err)
	}
	v.UpdatedAt = ts

	return &v, nil
}

// Save hace un upsert monótono (ver ViewRepoPostgres).
func (r *ViewRepoSQLite) Save(ctx context.Context, view *projDomain.WalletView) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO wallet_views (wallet_id, balance, exists_flag, version, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (wallet_id) DO UPDATE
		 SET balance = excluded.balance,
		     exists_flag = excluded.exists_flag,
		     version = excluded.version,
		     updated_at = excluded.updated_at
		 WHERE wallet_views.version < excluded.version`,
		view.WalletID, view.Balance, view.Exists, view.Version, view.UpdatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to save wallet view: %w", err)
	}
	return nil
}

func (r *ViewRepoSQLite) List(ctx context.Context, limit int) ([]*projDomain.WalletView, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT wallet_id, balance, exists_flag, version, updated_at
		 FROM wallet_views
		 ORDER BY balance DESC
		 LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var views []*projDomain.WalletView
	for rows.Next() {
		var v projDomain.WalletView
		var updatedAt string
		if err := rows.Scan(&v.WalletID, &v.Balance, &v.Exists, &v.Version, &updatedAt); err != nil {
			return nil, err
		}
		if ts, err := time.Parse(time.RFC3339Nano, updatedAt); err == nil {
			v.UpdatedAt = ts
		}
		views = append(views, &v)
	}

	return views, rows.Err()
}

// ------------------ Inicialización ------------------

func InitSQLite(db *sql.DB) error {
	_, err := db.Exec(`
	CREATE TABLE IF NOT EXISTS wallet_views (
		wallet_id   TEXT PRIMARY KEY,
		balance     INTEGER NOT NULL,
		exists_flag INTEGER NOT NULL,
		version     INTEGER NOT NULL,
		updated_at  TEXT NOT NULL
	)`)
	return err
}
