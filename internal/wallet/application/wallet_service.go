package application

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/davicafu/walletflow/internal/platform/bus"
	"github.com/davicafu/walletflow/internal/wallet/domain"
)

// WalletService es el command handler del write path: compone event store,
// motor de agregado y publicación para un agregado por petición.
//
// No hay ningún lock entre la lectura del log y el append: dos handlers
// concurrentes sobre la misma wallet pueden intercalarse libremente y la
// serialización la impone únicamente el guard de versión del store. Quien
// pierde la carrera recibe ErrConcurrencyConflict y debe reintentar desde
// el principio; aquí no se reintenta nunca.
type WalletService struct {
	store  domain.EventStore
	events bus.EventPublisher
	log    *zap.Logger
}

func NewWalletService(store domain.EventStore, events bus.EventPublisher, log *zap.Logger) *WalletService {
	return &WalletService{
		store:  store,
		events: events,
		log:    log,
	}
}

// Handle ejecuta un command contra su agregado:
// carga el log, reconstruye el estado, valida, traduce a evento, hace el
// append condicionado a la versión esperada y publica el evento confirmado.
func (s *WalletService) Handle(ctx context.Context, cmd domain.Command) (*domain.Event, error) {
	walletID := cmd.AggregateID()

	events, err := s.store.LoadEvents(ctx, walletID)
	if err != nil {
		return nil, err
	}

	state := domain.RebuildWallet(events)

	if err := domain.ValidateCommand(state, cmd); err != nil {
		return nil, err
	}

	var expectedVersion int64
	if len(events) > 0 {
		expectedVersion = events[len(events)-1].Version
	}

	eventType, data, meta, err := domain.CommandToEvent(cmd)
	if err != nil {
		return nil, err
	}

	stored, err := s.store.AppendEvent(ctx, domain.PendingEvent{
		AggregateID:     walletID,
		AggregateType:   domain.AggregateType,
		ExpectedVersion: expectedVersion,
		Type:            eventType,
		Data:            data,
		Metadata:        meta,
	})
	if err != nil {
		return nil, err
	}

	if err := s.events.Publish(ctx, stored); err != nil {
		// El evento ya está confirmado en el log: éxito degradado. Sin outbox,
		// la reconciliación es manual, así que el log de error lleva todo lo
		// necesario para reinyectar el evento.
		s.log.Error("🚨 Evento confirmado pero NO publicado, el read model quedará atrasado",
			zap.String("wallet_id", stored.AggregateID),
			zap.String("event_type", stored.Type),
			zap.Int64("version", stored.Version),
			zap.Error(err),
		)
		return stored, fmt.Errorf("%w: %v", domain.ErrPublication, err)
	}

	s.log.Info("✅ Evento confirmado y publicado",
		zap.String("wallet_id", stored.AggregateID),
		zap.String("event_type", stored.Type),
		zap.Int64("version", stored.Version),
	)

	return stored, nil
}

// CreateWallet crea una wallet. Con id vacío se genera un uuid nuevo.
func (s *WalletService) CreateWallet(ctx context.Context, walletID string) (*domain.Event, error) {
	if walletID == "" {
		walletID = uuid.New().String()
	}
	return s.Handle(ctx, domain.CreateWallet{WalletID: walletID})
}

func (s *WalletService) CreditWallet(ctx context.Context, walletID string, amount int64) (*domain.Event, error) {
	return s.Handle(ctx, domain.CreditWallet{WalletID: walletID, Amount: amount})
}

func (s *WalletService) DebitWallet(ctx context.Context, walletID string, amount int64) (*domain.Event, error) {
	return s.Handle(ctx, domain.DebitWallet{WalletID: walletID, Amount: amount})
}

// GetWallet reconstruye el estado actual desde el log (query del write side).
func (s *WalletService) GetWallet(ctx context.Context, walletID string) (domain.WalletState, error) {
	events, err := s.store.LoadEvents(ctx, walletID)
	if err != nil {
		return domain.WalletState{}, err
	}

	state := domain.RebuildWallet(events)
	if !state.Exists {
		return domain.WalletState{}, domain.ErrWalletNotFound
	}
	return state, nil
}
