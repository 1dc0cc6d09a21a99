package application

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	projDomain "github.com/davicafu/walletflow/internal/projection/domain"
	walletDomain "github.com/davicafu/walletflow/internal/wallet/domain"
)

// Projector pliega eventos confirmados en el read model. Corre en su propio
// proceso, consume en orden por partición y tolera entrega at-least-once:
// cualquier evento con version <= a la última aplicada se descarta.
type Projector struct {
	views     projDomain.ViewRepository
	cache     projDomain.ViewCache          // opcional
	analytics projDomain.ActivityRepository // opcional
	cacheTTL  time.Duration
	log       *zap.Logger
}

func NewProjector(
	views projDomain.ViewRepository,
	cache projDomain.ViewCache,
	analytics projDomain.ActivityRepository,
	cacheTTL time.Duration,
	log *zap.Logger,
) *Projector {
	return &Projector{
		views:     views,
		cache:     cache,
		analytics: analytics,
		cacheTTL:  cacheTTL,
		log:       log,
	}
}

// Project aplica un evento a la vista de su wallet de forma idempotente.
// Devuelve error sólo ante fallos de storage (el consumidor decide reintento);
// los duplicados y los tipos desconocidos no son errores.
func (p *Projector) Project(ctx context.Context, event walletDomain.Event) error {
	view, err := p.views.Get(ctx, event.AggregateID)
	if err != nil {
		if !errors.Is(err, projDomain.ErrViewNotFound) {
			return err
		}
		view = &projDomain.WalletView{WalletID: event.AggregateID}
	}

	if event.Version <= view.Version {
		p.log.Info("Evento duplicado ignorado",
			zap.String("wallet_id", event.AggregateID),
			zap.Int64("version", event.Version),
			zap.Int64("applied", view.Version),
		)
		return nil
	}

	applyToView(view, event)
	view.Version = event.Version
	view.UpdatedAt = time.Now().UTC()

	if err := p.views.Save(ctx, view); err != nil {
		return err
	}

	p.log.Info("✅ Evento proyectado",
		zap.String("wallet_id", view.WalletID),
		zap.String("event_type", event.Type),
		zap.Int64("version", view.Version),
		zap.Int64("balance", view.Balance),
	)

	// Cache y analítica son best-effort: nunca bloquean el pipeline.
	if p.cache != nil {
		go func(v projDomain.WalletView) {
			ctxCache, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
			defer cancel()
			_ = p.cache.Set(ctxCache, projDomain.CacheKeyByWallet(v.WalletID), &v, int(p.cacheTTL.Seconds()))
		}(*view)
	}

	if p.analytics != nil {
		p.logActivity(ctx, event)
	}

	return nil
}

// applyToView es el fold del read model, análogo al del agregado pero sobre
// la vista persistida. Los tipos desconocidos sólo avanzan el cursor de
// versión, para que un replay posterior siga siendo idempotente.
func applyToView(view *projDomain.WalletView, event walletDomain.Event) {
	payload, err := walletDomain.DecodePayload(event.Type, event.Data)
	if err != nil || payload == nil {
		return
	}

	switch pl := payload.(type) {
	case walletDomain.WalletCreated:
		view.WalletID = pl.WalletID
		view.Balance = 0
		view.Exists = true
	case walletDomain.WalletCredited:
		view.Balance += pl.Amount
	case walletDomain.WalletDebited:
		view.Balance -= pl.Amount
	}
}

func (p *Projector) logActivity(ctx context.Context, event walletDomain.Event) {
	var amount int64
	if payload, err := walletDomain.DecodePayload(event.Type, event.Data); err == nil {
		switch pl := payload.(type) {
		case walletDomain.WalletCredited:
			amount = pl.Amount
		case walletDomain.WalletDebited:
			amount = -pl.Amount
		}
	}

	entry := projDomain.ActivityEntry{
		WalletID:  event.AggregateID,
		EventType: event.Type,
		Amount:    amount,
		Version:   event.Version,
		EventTime: event.CreatedAt,
	}

	if err := p.analytics.LogBatch(ctx, []projDomain.ActivityEntry{entry}); err != nil {
		p.log.Warn("⚠️ No se pudo registrar actividad en analítica", zap.Error(err))
	}
}

// GetView sirve el read API: primero cache, después repositorio.
func (p *Projector) GetView(ctx context.Context, walletID string) (*projDomain.WalletView, error) {
	if p.cache != nil {
		var v projDomain.WalletView
		if ok, _ := p.cache.Get(ctx, projDomain.CacheKeyByWallet(walletID), &v); ok {
			return &v, nil
		}
	}

	view, err := p.views.Get(ctx, walletID)
	if err != nil {
		return nil, err
	}

	if p.cache != nil {
		go func(v projDomain.WalletView) {
			ctxCache, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
			defer cancel()
			_ = p.cache.Set(ctxCache, projDomain.CacheKeyByWallet(v.WalletID), &v, int(p.cacheTTL.Seconds()))
		}(*view)
	}

	return view, nil
}

// ListViews devuelve las vistas con mayor saldo, acotado.
func (p *Projector) ListViews(ctx context.Context, limit int) ([]*projDomain.WalletView, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return p.views.List(ctx, limit)
}

// ActivityTrend expone la agregación diaria del sink analítico.
func (p *Projector) ActivityTrend(ctx context.Context, days int) ([]projDomain.DailyActivityTrend, error) {
	if p.analytics == nil {
		return nil, projDomain.ErrAnalyticsDisabled
	}
	if days <= 0 || days > 90 {
		days = 7
	}
	end := time.Now().UTC()
	start := end.AddDate(0, 0, -days)
	return p.analytics.GetDailyTrend(ctx, start, end)
}
