package domain

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// WalletState es el estado derivado de una wallet. Nunca se persiste: se
// recalcula plegando el log de eventos. El fold es determinista, sin reloj
// ni aleatoriedad; dos replays de la misma secuencia dan el mismo estado.
type WalletState struct {
	WalletID string `json:"walletId"`
	Balance  int64  `json:"balance"`
	Exists   bool   `json:"exists"`
}

// ApplyEvent pliega un evento sobre el estado. Total: los tipos desconocidos
// (eventos futuros) dejan el estado intacto, y un payload corrupto también,
// para que el replay de un log viejo nunca falle.
func ApplyEvent(state WalletState, event Event) WalletState {
	payload, err := DecodePayload(event.Type, event.Data)
	if err != nil || payload == nil {
		return state
	}

	switch p := payload.(type) {
	case WalletCreated:
		// Sólo válido como primer evento; descarta cualquier estado previo.
		return WalletState{WalletID: p.WalletID, Balance: 0, Exists: true}
	case WalletCredited:
		state.Balance += p.Amount
		return state
	case WalletDebited:
		state.Balance -= p.Amount
		return state
	default:
		return state
	}
}

// RebuildWallet reconstruye el estado plegando los eventos en orden de versión.
func RebuildWallet(events []Event) WalletState {
	state := WalletState{}
	for _, e := range events {
		state = ApplyEvent(state, e)
	}
	return state
}

// ValidateCommand decide si la transición pedida es legal sobre el estado
// actual. Las reglas de negocio completas son estas cuatro: existencia,
// duplicado de creación, importe positivo y fondos suficientes.
func ValidateCommand(state WalletState, cmd Command) error {
	if _, ok := cmd.(CreateWallet); ok {
		if state.Exists {
			return ErrWalletAlreadyExists
		}
		return nil
	}

	if !state.Exists {
		return ErrWalletNotFound
	}

	switch c := cmd.(type) {
	case CreditWallet:
		if c.Amount <= 0 {
			return ErrAmountNotPositive
		}
	case DebitWallet:
		if c.Amount <= 0 {
			return ErrAmountNotPositive
		}
		if c.Amount > state.Balance {
			return ErrInsufficientFunds
		}
	}

	return nil
}

// CommandToEvent traduce un command validado a su evento. Es el único punto
// del write path donde entra el reloj, y sólo como metadata: el fold de
// estado jamás lo lee.
func CommandToEvent(cmd Command) (eventType string, data json.RawMessage, meta Metadata, err error) {
	meta = Metadata{
		EventID:   uuid.New().String(),
		CreatedAt: time.Now().UTC(),
	}

	var payload EventPayload
	switch c := cmd.(type) {
	case CreateWallet:
		payload = WalletCreated{WalletID: c.WalletID}
	case CreditWallet:
		payload = WalletCredited{WalletID: c.WalletID, Amount: c.Amount}
	case DebitWallet:
		payload = WalletDebited{WalletID: c.WalletID, Amount: c.Amount}
	default:
		return "", nil, Metadata{}, fmt.Errorf("%w: %T", ErrUnknownCommand, cmd)
	}

	data, err = json.Marshal(payload)
	if err != nil {
		return "", nil, Metadata{}, err
	}
	return payload.EventType(), data, meta, nil
}
