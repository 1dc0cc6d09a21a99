package application

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	projDomain "github.com/davicafu/walletflow/internal/projection/domain"
	walletDomain "github.com/davicafu/walletflow/internal/wallet/domain"
	"github.com/davicafu/walletflow/tests/mocks"
)

func mkEvent(t *testing.T, walletID string, version int64, payload walletDomain.EventPayload) walletDomain.Event {
	t.Helper()
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	return walletDomain.Event{
		AggregateID:   walletID,
		AggregateType: walletDomain.AggregateType,
		Version:       version,
		Type:          payload.EventType(),
		Data:          data,
		CreatedAt:     time.Now().UTC(),
	}
}

func newProjector() (*Projector, *mocks.InMemoryViewRepo) {
	views := mocks.NewInMemoryViewRepo()
	return NewProjector(views, nil, nil, time.Minute, zap.NewNop()), views
}

func TestProject_FoldsEvents(t *testing.T) {
	projector, views := newProjector()
	ctx := context.Background()

	require.NoError(t, projector.Project(ctx, mkEvent(t, "w1", 1, walletDomain.WalletCreated{WalletID: "w1"})))
	require.NoError(t, projector.Project(ctx, mkEvent(t, "w1", 2, walletDomain.WalletCredited{WalletID: "w1", Amount: 100})))
	require.NoError(t, projector.Project(ctx, mkEvent(t, "w1", 3, walletDomain.WalletDebited{WalletID: "w1", Amount: 40})))

	view, err := views.Get(ctx, "w1")
	require.NoError(t, err)
	assert.Equal(t, int64(60), view.Balance)
	assert.Equal(t, int64(3), view.Version)
	assert.True(t, view.Exists)
}

func TestProject_DuplicateDeliveryIsIdempotent(t *testing.T) {
	projector, views := newProjector()
	ctx := context.Background()

	created := mkEvent(t, "w1", 1, walletDomain.WalletCreated{WalletID: "w1"})
	credited := mkEvent(t, "w1", 2, walletDomain.WalletCredited{WalletID: "w1", Amount: 100})

	require.NoError(t, projector.Project(ctx, created))
	require.NoError(t, projector.Project(ctx, credited))

	// Reentrega del mismo evento: el estado no cambia.
	require.NoError(t, projector.Project(ctx, credited))
	require.NoError(t, projector.Project(ctx, created))

	view, err := views.Get(ctx, "w1")
	require.NoError(t, err)
	assert.Equal(t, int64(100), view.Balance)
	assert.Equal(t, int64(2), view.Version)
}

func TestProject_OutOfOrderBelowCursorIsSkipped(t *testing.T) {
	projector, views := newProjector()
	ctx := context.Background()

	require.NoError(t, projector.Project(ctx, mkEvent(t, "w1", 1, walletDomain.WalletCreated{WalletID: "w1"})))
	require.NoError(t, projector.Project(ctx, mkEvent(t, "w1", 2, walletDomain.WalletCredited{WalletID: "w1", Amount: 50})))
	require.NoError(t, projector.Project(ctx, mkEvent(t, "w1", 3, walletDomain.WalletCredited{WalletID: "w1", Amount: 25})))

	// Una entrega tardía con versión 2 no debe volver a aplicarse.
	require.NoError(t, projector.Project(ctx, mkEvent(t, "w1", 2, walletDomain.WalletCredited{WalletID: "w1", Amount: 50})))

	view, err := views.Get(ctx, "w1")
	require.NoError(t, err)
	assert.Equal(t, int64(75), view.Balance)
	assert.Equal(t, int64(3), view.Version)
}

func TestProject_UnknownEventTypeAdvancesCursor(t *testing.T) {
	projector, views := newProjector()
	ctx := context.Background()

	require.NoError(t, projector.Project(ctx, mkEvent(t, "w1", 1, walletDomain.WalletCreated{WalletID: "w1"})))

	unknown := walletDomain.Event{
		AggregateID: "w1",
		Version:     2,
		Type:        "WalletFrozen",
		Data:        json.RawMessage(`{"reason":"fraud"}`),
	}
	require.NoError(t, projector.Project(ctx, unknown))

	view, err := views.Get(ctx, "w1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), view.Balance)
	// El cursor avanza aunque el tipo no aporte nada a la vista.
	assert.Equal(t, int64(2), view.Version)
}

func TestProject_IndependentAggregates(t *testing.T) {
	projector, views := newProjector()
	ctx := context.Background()

	require.NoError(t, projector.Project(ctx, mkEvent(t, "w1", 1, walletDomain.WalletCreated{WalletID: "w1"})))
	require.NoError(t, projector.Project(ctx, mkEvent(t, "w2", 1, walletDomain.WalletCreated{WalletID: "w2"})))
	require.NoError(t, projector.Project(ctx, mkEvent(t, "w2", 2, walletDomain.WalletCredited{WalletID: "w2", Amount: 30})))

	w1, err := views.Get(ctx, "w1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), w1.Balance)

	w2, err := views.Get(ctx, "w2")
	require.NoError(t, err)
	assert.Equal(t, int64(30), w2.Balance)
}

func TestProject_LogsActivity(t *testing.T) {
	views := mocks.NewInMemoryViewRepo()
	analytics := &mocks.DummyActivityRepo{}
	projector := NewProjector(views, nil, analytics, time.Minute, zap.NewNop())
	ctx := context.Background()

	require.NoError(t, projector.Project(ctx, mkEvent(t, "w1", 1, walletDomain.WalletCreated{WalletID: "w1"})))
	require.NoError(t, projector.Project(ctx, mkEvent(t, "w1", 2, walletDomain.WalletCredited{WalletID: "w1", Amount: 100})))
	require.NoError(t, projector.Project(ctx, mkEvent(t, "w1", 3, walletDomain.WalletDebited{WalletID: "w1", Amount: 40})))

	require.Len(t, analytics.Entries, 3)
	assert.Equal(t, int64(0), analytics.Entries[0].Amount)
	assert.Equal(t, int64(100), analytics.Entries[1].Amount)
	assert.Equal(t, int64(-40), analytics.Entries[2].Amount)
}

func TestGetView_CacheHit(t *testing.T) {
	views := mocks.NewInMemoryViewRepo()
	cache := mocks.NewDummyCache()
	projector := NewProjector(views, cache, nil, time.Minute, zap.NewNop())

	cached := projDomain.WalletView{WalletID: "w1", Balance: 500, Exists: true, Version: 4}
	cache.SetForTest(projDomain.CacheKeyByWallet("w1"), &cached)

	view, err := projector.GetView(context.Background(), "w1")
	require.NoError(t, err)
	assert.Equal(t, int64(500), view.Balance)
}

func TestGetView_NotFound(t *testing.T) {
	projector, _ := newProjector()

	_, err := projector.GetView(context.Background(), "ghost")
	assert.ErrorIs(t, err, projDomain.ErrViewNotFound)
}
