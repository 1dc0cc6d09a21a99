package mocks

import (
	"context"
	"fmt"
	"sync"
	"time"

	walletDomain "github.com/davicafu/walletflow/internal/wallet/domain"
)

// InMemoryEventStore simula el log de eventos con el mismo contrato de
// concurrencia optimista que los stores reales: el append comprueba la
// última versión y la inserción bajo un único lock.
type InMemoryEventStore struct {
	Streams map[string][]walletDomain.Event
	mu      sync.Mutex

	// FailNextAppend fuerza un ErrStorage en el siguiente append (para
	// probar rollback y propagación de errores).
	FailNextAppend bool
}

// Verificación estática
var _ walletDomain.EventStore = (*InMemoryEventStore)(nil)

func NewInMemoryEventStore() *InMemoryEventStore {
	return &InMemoryEventStore{
		Streams: make(map[string][]walletDomain.Event),
	}
}

func (s *InMemoryEventStore) LoadEvents(ctx context.Context, aggregateID string) ([]walletDomain.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stream := s.Streams[aggregateID]
	out := make([]walletDomain.Event, len(stream))
	copy(out, stream)
	return out, nil
}

func (s *InMemoryEventStore) AppendEvent(ctx context.Context, pending walletDomain.PendingEvent) (*walletDomain.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.FailNextAppend {
		s.FailNextAppend = false
		return nil, fmt.Errorf("%w: injected failure", walletDomain.ErrStorage)
	}

	stream := s.Streams[pending.AggregateID]

	var lastVersion int64
	if len(stream) > 0 {
		lastVersion = stream[len(stream)-1].Version
	}

	if lastVersion != pending.ExpectedVersion {
		return nil, fmt.Errorf("%w: expected=%d, actual=%d",
			walletDomain.ErrConcurrencyConflict, pending.ExpectedVersion, lastVersion)
	}

	stored := walletDomain.Event{
		AggregateID:   pending.AggregateID,
		AggregateType: pending.AggregateType,
		Version:       pending.ExpectedVersion + 1,
		Type:          pending.Type,
		Data:          pending.Data,
		Metadata:      pending.Metadata,
		CreatedAt:     time.Now().UTC(),
	}

	s.Streams[pending.AggregateID] = append(stream, stored)
	return &stored, nil
}
