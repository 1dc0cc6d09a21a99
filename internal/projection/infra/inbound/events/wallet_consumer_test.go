package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	projApp "github.com/davicafu/walletflow/internal/projection/application"
	walletDomain "github.com/davicafu/walletflow/internal/wallet/domain"
	"github.com/davicafu/walletflow/tests/mocks"
)

func setupConsumer() (*WalletConsumer, *mocks.InMemoryViewRepo) {
	views := mocks.NewInMemoryViewRepo()
	projector := projApp.NewProjector(views, nil, nil, time.Minute, zap.NewNop())
	return NewWalletConsumer(projector, zap.NewNop()), views
}

func marshalEvent(t *testing.T, walletID string, version int64, payload walletDomain.EventPayload) []byte {
	t.Helper()
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	raw, err := json.Marshal(walletDomain.Event{
		AggregateID:   walletID,
		AggregateType: walletDomain.AggregateType,
		Version:       version,
		Type:          payload.EventType(),
		Data:          data,
		CreatedAt:     time.Now().UTC(),
	})
	require.NoError(t, err)
	return raw
}

func TestHandleMessage_ProjectsEvent(t *testing.T) {
	consumer, views := setupConsumer()
	ctx := context.Background()

	consumer.HandleMessage(ctx, "w1", marshalEvent(t, "w1", 1, walletDomain.WalletCreated{WalletID: "w1"}))
	consumer.HandleMessage(ctx, "w1", marshalEvent(t, "w1", 2, walletDomain.WalletCredited{WalletID: "w1", Amount: 100}))

	view, err := views.Get(ctx, "w1")
	require.NoError(t, err)
	assert.Equal(t, int64(100), view.Balance)
}

// Un mensaje envenenado no detiene el pipeline: los siguientes se proyectan.
func TestHandleMessage_PoisonMessageIsSkipped(t *testing.T) {
	consumer, views := setupConsumer()
	ctx := context.Background()

	consumer.HandleMessage(ctx, "w1", []byte(`{not json`))
	consumer.HandleMessage(ctx, "", []byte(`{"type":"WalletCreated"}`)) // sin aggregateId ni version

	consumer.HandleMessage(ctx, "w1", marshalEvent(t, "w1", 1, walletDomain.WalletCreated{WalletID: "w1"}))

	view, err := views.Get(ctx, "w1")
	require.NoError(t, err)
	assert.True(t, view.Exists)
	assert.Equal(t, int64(1), view.Version)
}

func TestHandleMessage_DuplicateDelivery(t *testing.T) {
	consumer, views := setupConsumer()
	ctx := context.Background()

	msg := marshalEvent(t, "w1", 1, walletDomain.WalletCreated{WalletID: "w1"})
	consumer.HandleMessage(ctx, "w1", msg)
	consumer.HandleMessage(ctx, "w1", msg) // at-least-once: reentrega

	credit := marshalEvent(t, "w1", 2, walletDomain.WalletCredited{WalletID: "w1", Amount: 10})
	consumer.HandleMessage(ctx, "w1", credit)
	consumer.HandleMessage(ctx, "w1", credit)

	view, err := views.Get(ctx, "w1")
	require.NoError(t, err)
	assert.Equal(t, int64(10), view.Balance)
	assert.Equal(t, int64(2), view.Version)
}
