package events

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	projApp "github.com/davicafu/walletflow/internal/projection/application"
	walletDomain "github.com/davicafu/walletflow/internal/wallet/domain"
)

// WalletConsumer decodifica los mensajes del topic de wallet y los delega en
// el projector. Un mensaje envenenado se loggea y se descarta: el pipeline
// debe seguir proyectando el resto de agregados.
type WalletConsumer struct {
	projector *projApp.Projector
	log       *zap.Logger
}

func NewWalletConsumer(projector *projApp.Projector, logger *zap.Logger) *WalletConsumer {
	return &WalletConsumer{
		projector: projector,
		log:       logger,
	}
}

func (c *WalletConsumer) HandleMessage(ctx context.Context, key string, payload []byte) {
	var event walletDomain.Event
	if err := json.Unmarshal(payload, &event); err != nil {
		c.log.Warn("Mensaje envenenado descartado: no es un evento válido",
			zap.String("key", key),
			zap.Error(err),
		)
		return
	}

	if event.AggregateID == "" || event.Version < 1 {
		c.log.Warn("Mensaje envenenado descartado: evento sin identidad",
			zap.String("key", key),
			zap.String("type", event.Type),
			zap.Int64("version", event.Version),
		)
		return
	}

	ctxEvent, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := c.projector.Project(ctxEvent, event); err != nil {
		// Fallo de storage: se loggea y se sigue. Con commit de offset ya
		// hecho el evento se recupera en un replay desde el principio.
		c.log.Error("Failed to project event",
			zap.String("wallet_id", event.AggregateID),
			zap.String("event_type", event.Type),
			zap.Int64("version", event.Version),
			zap.Error(err),
		)
	}
}
