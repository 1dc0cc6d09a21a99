package bus

import "context"

// Keyer expone la clave de partición del mensaje. El transporte que
// particiona por clave garantiza orden por agregado, nunca entre agregados.
type Keyer interface {
	PartitionKey() string
}

// EventPublisher publica un evento ya confirmado en el log. El formato del
// payload y la semántica del topic los decide cada adapter.
type EventPublisher interface {
	Publish(ctx context.Context, event interface{}) error
}

// MessageHandler procesa un mensaje entregado por el transporte.
// La entrega es at-least-once: el handler debe tolerar duplicados.
type MessageHandler interface {
	HandleMessage(ctx context.Context, key string, payload []byte)
}
