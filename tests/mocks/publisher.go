package mocks

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	platformBus "github.com/davicafu/walletflow/internal/platform/bus"
)

// DummyPublisher acumula los eventos publicados como JSON para inspección.
type DummyPublisher struct {
	Published []string
	mu        sync.Mutex
}

// Verificación estática
var _ platformBus.EventPublisher = (*DummyPublisher)(nil)

func (p *DummyPublisher) Publish(ctx context.Context, event interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	// Guardar una versión JSON como evidencia
	data, _ := json.Marshal(event)
	p.Published = append(p.Published, string(data))
	return nil
}

func (p *DummyPublisher) Count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.Published)
}

// FailingPublisher siempre falla: simula el broker caído tras el commit.
type FailingPublisher struct{}

var _ platformBus.EventPublisher = (*FailingPublisher)(nil)

func (FailingPublisher) Publish(ctx context.Context, event interface{}) error {
	return errors.New("broker unavailable")
}
