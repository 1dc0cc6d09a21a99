package application

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/davicafu/walletflow/internal/wallet/domain"
	"github.com/davicafu/walletflow/tests/mocks"
)

func newService() (*WalletService, *mocks.InMemoryEventStore, *mocks.DummyPublisher) {
	store := mocks.NewInMemoryEventStore()
	events := &mocks.DummyPublisher{}
	return NewWalletService(store, events, zap.NewNop()), store, events
}

func TestWalletLifecycle(t *testing.T) {
	service, store, events := newService()
	ctx := context.Background()

	// 1. Crear wallet nueva
	created, err := service.CreateWallet(ctx, "w1")
	require.NoError(t, err)
	assert.Equal(t, domain.EventWalletCreated, created.Type)
	assert.Equal(t, int64(1), created.Version)

	state, err := service.GetWallet(ctx, "w1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), state.Balance)

	// 2. Crédito de 100
	credited, err := service.CreditWallet(ctx, "w1", 100)
	require.NoError(t, err)
	assert.Equal(t, domain.EventWalletCredited, credited.Type)
	assert.Equal(t, int64(2), credited.Version)

	state, _ = service.GetWallet(ctx, "w1")
	assert.Equal(t, int64(100), state.Balance)

	// 3. Débito de 40
	debited, err := service.DebitWallet(ctx, "w1", 40)
	require.NoError(t, err)
	assert.Equal(t, domain.EventWalletDebited, debited.Type)
	assert.Equal(t, int64(3), debited.Version)

	state, _ = service.GetWallet(ctx, "w1")
	assert.Equal(t, int64(60), state.Balance)

	// 4. Débito por encima del saldo: falla y el log no crece
	_, err = service.DebitWallet(ctx, "w1", 1000)
	assert.ErrorIs(t, err, domain.ErrInsufficientFunds)
	assert.Len(t, store.Streams["w1"], 3)

	// 5. Crear de nuevo la misma wallet
	_, err = service.CreateWallet(ctx, "w1")
	assert.ErrorIs(t, err, domain.ErrWalletAlreadyExists)

	// Cada evento confirmado se publicó exactamente una vez
	assert.Equal(t, 3, events.Count())
}

func TestCreateWallet_GeneratesID(t *testing.T) {
	service, _, _ := newService()

	event, err := service.CreateWallet(context.Background(), "")
	require.NoError(t, err)
	assert.NotEmpty(t, event.AggregateID)
}

func TestCommandsOnMissingWallet(t *testing.T) {
	service, _, _ := newService()
	ctx := context.Background()

	_, err := service.CreditWallet(ctx, "ghost", 10)
	assert.ErrorIs(t, err, domain.ErrWalletNotFound)

	_, err = service.DebitWallet(ctx, "ghost", 10)
	assert.ErrorIs(t, err, domain.ErrWalletNotFound)

	_, err = service.GetWallet(ctx, "ghost")
	assert.ErrorIs(t, err, domain.ErrWalletNotFound)
}

func TestNonPositiveAmounts(t *testing.T) {
	service, _, _ := newService()
	ctx := context.Background()

	_, err := service.CreateWallet(ctx, "w1")
	require.NoError(t, err)

	_, err = service.CreditWallet(ctx, "w1", 0)
	assert.ErrorIs(t, err, domain.ErrAmountNotPositive)

	_, err = service.DebitWallet(ctx, "w1", -1)
	assert.ErrorIs(t, err, domain.ErrAmountNotPositive)
}

func TestDebitBoundary(t *testing.T) {
	service, _, _ := newService()
	ctx := context.Background()

	_, err := service.CreateWallet(ctx, "w1")
	require.NoError(t, err)
	_, err = service.CreditWallet(ctx, "w1", 100)
	require.NoError(t, err)

	// amount == balance vacía la wallet
	_, err = service.DebitWallet(ctx, "w1", 100)
	require.NoError(t, err)

	state, err := service.GetWallet(ctx, "w1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), state.Balance)

	// y un débito más ya no cabe
	_, err = service.DebitWallet(ctx, "w1", 1)
	assert.ErrorIs(t, err, domain.ErrInsufficientFunds)
}

// Dos writers concurrentes sobre la misma wallet: exactamente uno gana la
// carrera optimista, el otro recibe el conflicto y no deja evento.
func TestConcurrentCredits_OneWins(t *testing.T) {
	service, store, _ := newService()
	ctx := context.Background()

	_, err := service.CreateWallet(ctx, "w1")
	require.NoError(t, err)

	const writers = 8
	var wg sync.WaitGroup
	errs := make([]error, writers)

	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, errs[n] = service.CreditWallet(ctx, "w1", 10)
		}(i)
	}
	wg.Wait()

	var conflicts, successes int
	for _, err := range errs {
		switch {
		case err == nil:
			successes++
		case errors.Is(err, domain.ErrConcurrencyConflict):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}

	assert.Equal(t, successes+conflicts, writers)
	assert.GreaterOrEqual(t, successes, 1)

	// El log sigue siendo monótono: versiones 1..N sin huecos.
	events, err := service.store.LoadEvents(ctx, "w1")
	require.NoError(t, err)
	for i, e := range events {
		assert.Equal(t, int64(i+1), e.Version)
	}
	assert.Len(t, store.Streams["w1"], successes+1)
}

func TestPublicationFailure_DegradedSuccess(t *testing.T) {
	store := mocks.NewInMemoryEventStore()
	service := NewWalletService(store, mocks.FailingPublisher{}, zap.NewNop())
	ctx := context.Background()

	event, err := service.CreateWallet(ctx, "w1")

	// El evento quedó confirmado en el log aunque la publicación fallara.
	assert.ErrorIs(t, err, domain.ErrPublication)
	require.NotNil(t, event)
	assert.Len(t, store.Streams["w1"], 1)
}

func TestStorageFailure_NoEventRecorded(t *testing.T) {
	service, store, events := newService()
	ctx := context.Background()

	store.FailNextAppend = true
	_, err := service.CreateWallet(ctx, "w1")

	assert.ErrorIs(t, err, domain.ErrStorage)
	assert.Empty(t, store.Streams["w1"])
	assert.Equal(t, 0, events.Count())
}
