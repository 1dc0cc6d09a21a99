package domain

import (
	"context"
	"errors"
)

// ---------- Errores de dominio ----------

// Clase InvalidCommand: violación de regla de negocio. Se devuelve al cliente
// tal cual y nunca se reintenta.
var (
	ErrWalletAlreadyExists = errors.New("wallet already exists")
	ErrWalletNotFound      = errors.New("wallet does not exist")
	ErrAmountNotPositive   = errors.New("amount must be positive")
	ErrInsufficientFunds   = errors.New("insufficient funds")
)

var (
	// ErrConcurrencyConflict: el append perdió la carrera optimista. El caller
	// debe releer y reenviar; este core no reintenta por su cuenta.
	ErrConcurrencyConflict = errors.New("concurrency conflict")

	// ErrStorage: fallo de lectura/escritura del log no relacionado con
	// concurrencia. El append es transaccional: nunca queda un evento parcial.
	ErrStorage = errors.New("event store failure")

	// ErrPublication: el evento quedó confirmado en el log pero el envío al
	// broker falló. El read model puede quedarse atrás hasta reconciliar.
	ErrPublication = errors.New("event publication failure")

	// ErrUnknownCommand: tipo de command fuera del set cerrado. Error de
	// programación, fatal para la petición.
	ErrUnknownCommand = errors.New("unknown command type")
)

// IsInvalidCommand agrupa la clase de errores de validación de negocio.
func IsInvalidCommand(err error) bool {
	return errors.Is(err, ErrWalletAlreadyExists) ||
		errors.Is(err, ErrWalletNotFound) ||
		errors.Is(err, ErrAmountNotPositive) ||
		errors.Is(err, ErrInsufficientFunds)
}

// ---------- Interfaces (Ports) ----------

// EventStore define el log append-only de eventos por agregado.
type EventStore interface {
	// LoadEvents devuelve los eventos del agregado en orden ascendente de
	// versión. Slice vacío si nunca se escribió. Jamás devuelve eventos de
	// otro agregado ni fuera de orden.
	LoadEvents(ctx context.Context, aggregateID string) ([]Event, error)

	// AppendEvent inserta el evento con version = ExpectedVersion+1 dentro de
	// UNA transacción que comprueba que la última versión existente coincide
	// con ExpectedVersion. Si no coincide devuelve ErrConcurrencyConflict;
	// cualquier otro fallo envuelve ErrStorage. En ambos casos rollback
	// completo: o se ve exactamente una fila nueva, o ninguna.
	AppendEvent(ctx context.Context, pending PendingEvent) (*Event, error)
}
