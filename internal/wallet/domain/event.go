package domain

import (
	"encoding/json"
	"time"

	"github.com/davicafu/walletflow/internal/platform/bus"
)

// AggregateType discrimina los eventos de wallet en el log. Es informativo:
// el enrutado se hace siempre por aggregate id.
const AggregateType = "Wallet"

// Tipos de evento persistidos. El set puede crecer: los lectores ignoran
// los tipos que no conocen.
const (
	EventWalletCreated  = "WalletCreated"
	EventWalletCredited = "WalletCredited"
	EventWalletDebited  = "WalletDebited"
)

const WalletTopic = "wallet-events"

// Event es el sobre persistido y transportado: un hecho inmutable sobre una
// wallet. Version es estrictamente creciente por AggregateID, empezando en 1,
// sin huecos; ese es el orden total del agregado.
type Event struct {
	AggregateID   string          `json:"aggregateId"`
	AggregateType string          `json:"aggregateType"`
	Version       int64           `json:"version"`
	Type          string          `json:"type"`
	Data          json.RawMessage `json:"data"`
	Metadata      Metadata        `json:"metadata"`
	CreatedAt     time.Time       `json:"createdAt"`
}

func (e *Event) PartitionKey() string {
	return e.AggregateID
}

// Verificación estática para asegurar que Event implementa la interfaz
var _ bus.Keyer = (*Event)(nil)

// Metadata viaja junto al evento pero nunca participa en el fold de estado.
type Metadata struct {
	EventID   string    `json:"eventId"`
	CreatedAt time.Time `json:"createdAt"`
}

// PendingEvent es un evento todavía no confirmado: lo que el command handler
// entrega al event store para su append condicional.
type PendingEvent struct {
	AggregateID     string
	AggregateType   string
	ExpectedVersion int64
	Type            string
	Data            json.RawMessage
	Metadata        Metadata
}

// ---------- Variantes de payload ----------

// EventPayload marca las variantes tipadas de event_data.
type EventPayload interface {
	EventType() string
}

type WalletCreated struct {
	WalletID string `json:"walletId"`
}

func (WalletCreated) EventType() string { return EventWalletCreated }

type WalletCredited struct {
	WalletID string `json:"walletId"`
	Amount   int64  `json:"amount"`
}

func (WalletCredited) EventType() string { return EventWalletCredited }

type WalletDebited struct {
	WalletID string `json:"walletId"`
	Amount   int64  `json:"amount"`
}

func (WalletDebited) EventType() string { return EventWalletDebited }

// DecodePayload convierte event_data en su variante tipada según el tag.
// Devuelve (nil, nil) para tipos desconocidos: los folds deben dejarlos pasar
// sin romper el replay de agregados antiguos.
func DecodePayload(eventType string, data json.RawMessage) (EventPayload, error) {
	switch eventType {
	case EventWalletCreated:
		var p WalletCreated
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, err
		}
		return p, nil
	case EventWalletCredited:
		var p WalletCredited
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, err
		}
		return p, nil
	case EventWalletDebited:
		var p WalletDebited
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, err
		}
		return p, nil
	default:
		return nil, nil
	}
}
