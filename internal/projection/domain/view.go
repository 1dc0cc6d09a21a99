package domain

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// WalletView es el read model materializado de una wallet. Version es la
// última versión de evento aplicada: es el cursor de idempotencia que
// neutraliza las reentregas del transporte.
type WalletView struct {
	WalletID  string    `json:"walletId"`
	Balance   int64     `json:"balance"`
	Exists    bool      `json:"exists"`
	Version   int64     `json:"version"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ---------- Errores de dominio ----------
var (
	ErrViewNotFound      = errors.New("wallet view not found")
	ErrAnalyticsDisabled = errors.New("analytics backend disabled")
)

// ---------- Interfaces (Ports) ----------

// ViewRepository persiste el read model. Save debe ser un upsert monótono:
// jamás sobreescribe una vista con version mayor o igual que la entrante
// (segundo cerrojo de idempotencia, por debajo del check del projector).
type ViewRepository interface {
	Get(ctx context.Context, walletID string) (*WalletView, error)
	Save(ctx context.Context, view *WalletView) error
	List(ctx context.Context, limit int) ([]*WalletView, error)
}

// ViewCache cachea vistas para el read API; siempre best-effort.
type ViewCache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, val interface{}, ttlSecs int) error
	Delete(ctx context.Context, key string) error
}

// ActivityEntry es una fila del log analítico de movimientos.
type ActivityEntry struct {
	WalletID  string
	EventType string
	Amount    int64
	Version   int64
	EventTime time.Time
}

// DailyActivityTrend agrega créditos y débitos por día.
type DailyActivityTrend struct {
	Day         time.Time `json:"day"`
	CreditCount uint64    `json:"creditCount"`
	DebitCount  uint64    `json:"debitCount"`
	NetAmount   int64     `json:"netAmount"`
}

// ActivityRepository es el sink analítico append-only (opcional).
type ActivityRepository interface {
	LogBatch(ctx context.Context, entries []ActivityEntry) error
	GetDailyTrend(ctx context.Context, start, end time.Time) ([]DailyActivityTrend, error)
}

// ---------- Helpers comunes (cache keys, etc.) ----------

// CacheKeyByWallet forma una key consistente para cache usando el wallet id.
func CacheKeyByWallet(walletID string) string {
	return fmt.Sprintf("wallet:view:%s", walletID)
}
