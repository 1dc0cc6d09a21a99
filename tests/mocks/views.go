package mocks

import (
	"context"
	"sort"
	"sync"
	"time"

	projDomain "github.com/davicafu/walletflow/internal/projection/domain"
)

// InMemoryViewRepo simula el repositorio del read model con el mismo guard
// monótono de versión que los adapters reales.
type InMemoryViewRepo struct {
	Views map[string]*projDomain.WalletView
	mu    sync.Mutex
}

// Verificación estática
var _ projDomain.ViewRepository = (*InMemoryViewRepo)(nil)

func NewInMemoryViewRepo() *InMemoryViewRepo {
	return &InMemoryViewRepo{
		Views: make(map[string]*projDomain.WalletView),
	}
}

func (r *InMemoryViewRepo) Get(ctx context.Context, walletID string) (*projDomain.WalletView, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	v, ok := r.Views[walletID]
	if !ok {
		return nil, projDomain.ErrViewNotFound
	}
	cp := *v
	return &cp, nil
}

func (r *InMemoryViewRepo) Save(ctx context.Context, view *projDomain.WalletView) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.Views[view.WalletID]; ok && existing.Version >= view.Version {
		return nil // upsert monótono: nunca pisa una versión más nueva
	}
	cp := *view
	r.Views[view.WalletID] = &cp
	return nil
}

func (r *InMemoryViewRepo) List(ctx context.Context, limit int) ([]*projDomain.WalletView, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var views []*projDomain.WalletView
	for _, v := range r.Views {
		cp := *v
		views = append(views, &cp)
	}
	sort.Slice(views, func(i, j int) bool { return views[i].Balance > views[j].Balance })
	if len(views) > limit {
		views = views[:limit]
	}
	return views, nil
}

// DummyActivityRepo acumula las filas analíticas en memoria.
type DummyActivityRepo struct {
	Entries []projDomain.ActivityEntry
	mu      sync.Mutex
}

var _ projDomain.ActivityRepository = (*DummyActivityRepo)(nil)

func (r *DummyActivityRepo) LogBatch(ctx context.Context, entries []projDomain.ActivityEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Entries = append(r.Entries, entries...)
	return nil
}

func (r *DummyActivityRepo) GetDailyTrend(ctx context.Context, start, end time.Time) ([]projDomain.DailyActivityTrend, error) {
	return nil, nil
}
