package cart

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/ecommercehub/storefront/internal/catalog"
	"github.com/ecommercehub/storefront/internal/kvstore"
	"github.com/ecommercehub/storefront/pkg/messaging"
	"github.com/ecommercehub/storefront/pkg/messaging/events"
	"github.com/ecommercehub/storefront/pkg/pubsub"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// capturePublisher records every published event.
type capturePublisher struct {
	events []messaging.Event
	err    error
}

func (p *capturePublisher) Publish(_ context.Context, event messaging.Event) error {
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, event)
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestStore(t *testing.T) (*Store, kvstore.Store) {
	t.Helper()
	kv := kvstore.NewMemoryStore()
	return NewStore(kv, pubsub.NewBus(), nil, DefaultPricing(), "test", testLogger()), kv
}

func headphones() catalog.Product {
	return catalog.Product{
		ID:    1,
		Name:  "Wireless Headphones",
		Price: decimal.RequireFromString("89.99"),
		Image: "headphones.jpg",
	}
}

func speaker() catalog.Product {
	return catalog.Product{
		ID:    2,
		Name:  "Bluetooth Speaker",
		Price: decimal.RequireFromString("39.99"),
		Image: "speaker.jpg",
	}
}

func TestStore_AddItem(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	snapshot, err := store.AddItem(ctx, headphones(), 1)
	require.NoError(t, err)
	require.Len(t, snapshot.Lines, 1)
	assert.Equal(t, 1, snapshot.Lines[0].Quantity)
	assert.Equal(t, "Wireless Headphones", snapshot.Lines[0].Name)
	assert.Equal(t, 1, snapshot.ItemCount)
	assert.Equal(t, 1, snapshot.TotalQuantity)
}

func TestStore_AddItem_MergesExistingLine(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	_, err := store.AddItem(ctx, headphones(), 1)
	require.NoError(t, err)
	snapshot, err := store.AddItem(ctx, headphones(), 2)
	require.NoError(t, err)

	require.Len(t, snapshot.Lines, 1, "same product must merge into one line")
	assert.Equal(t, 3, snapshot.Lines[0].Quantity)
	assert.Equal(t, 1, snapshot.ItemCount, "header badge counts lines, not units")
	assert.Equal(t, 3, snapshot.TotalQuantity)
}

func TestStore_AddItem_Rejections(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	_, err := store.AddItem(ctx, headphones(), 0)
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	_, err = store.AddItem(ctx, headphones(), -1)
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	_, err = store.AddItem(ctx, catalog.Product{ID: 0}, 1)
	assert.ErrorIs(t, err, ErrInvalidProduct)

	assert.Empty(t, store.Snapshot(ctx).Lines, "rejected mutations must not touch the cart")
}

func TestStore_UpdateQuantity(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)
	_, err := store.AddItem(ctx, headphones(), 1)
	require.NoError(t, err)

	t.Run("sets absolute quantity", func(t *testing.T) {
		snapshot, found, err := store.UpdateQuantity(ctx, 1, 5)
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, 5, snapshot.Lines[0].Quantity)
	})

	t.Run("zero removes the line", func(t *testing.T) {
		snapshot, found, err := store.UpdateQuantity(ctx, 1, 0)
		require.NoError(t, err)
		assert.True(t, found)
		assert.Empty(t, snapshot.Lines)
	})

	t.Run("absent product is a no-op", func(t *testing.T) {
		snapshot, found, err := store.UpdateQuantity(ctx, 42, 3)
		require.NoError(t, err)
		assert.False(t, found, "absent line must be reported as not found")
		assert.Empty(t, snapshot.Lines)
	})

	t.Run("negative quantity rejected", func(t *testing.T) {
		_, _, err := store.UpdateQuantity(ctx, 1, -1)
		assert.ErrorIs(t, err, ErrInvalidQuantity)
	})
}

func TestStore_RemoveItem(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)
	_, err := store.AddItem(ctx, headphones(), 2)
	require.NoError(t, err)
	_, err = store.AddItem(ctx, speaker(), 1)
	require.NoError(t, err)

	snapshot, found, err := store.RemoveItem(ctx, 1)
	require.NoError(t, err)
	assert.True(t, found)
	require.Len(t, snapshot.Lines, 1)
	assert.EqualValues(t, 2, snapshot.Lines[0].ProductID)

	// removing again is a no-op
	snapshot, found, err = store.RemoveItem(ctx, 1)
	require.NoError(t, err)
	assert.False(t, found)
	assert.Len(t, snapshot.Lines, 1)
}

func TestStore_RemoveThenReAddStartsFresh(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	_, err := store.AddItem(ctx, headphones(), 5)
	require.NoError(t, err)
	_, _, err = store.RemoveItem(ctx, 1)
	require.NoError(t, err)

	snapshot, err := store.AddItem(ctx, headphones(), 1)
	require.NoError(t, err)
	assert.Equal(t, 1, snapshot.Lines[0].Quantity, "re-added line must not inherit the old quantity")
}

func TestStore_Clear(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)
	_, err := store.AddItem(ctx, headphones(), 2)
	require.NoError(t, err)

	snapshot, err := store.Clear(ctx)
	require.NoError(t, err)
	assert.Empty(t, snapshot.Lines)
	assert.Zero(t, snapshot.TotalQuantity)
	assert.True(t, snapshot.Totals.Subtotal.IsZero())
}

func TestStore_PersistsAcrossInstances(t *testing.T) {
	ctx := context.Background()
	store, kv := newTestStore(t)
	_, err := store.AddItem(ctx, headphones(), 2)
	require.NoError(t, err)

	reopened := NewStore(kv, pubsub.NewBus(), nil, DefaultPricing(), "test", testLogger())
	snapshot := reopened.Snapshot(ctx)
	require.Len(t, snapshot.Lines, 1)
	assert.Equal(t, 2, snapshot.Lines[0].Quantity)
	assert.True(t, snapshot.Lines[0].Price.Equal(decimal.RequireFromString("89.99")))
}

func TestStore_CorruptStorageReadsAsEmpty(t *testing.T) {
	ctx := context.Background()
	kv := kvstore.NewMemoryStore()
	require.NoError(t, kv.Set(ctx, "cart", []byte("not-json{")))
	store := NewStore(kv, pubsub.NewBus(), nil, DefaultPricing(), "test", testLogger())

	snapshot := store.Snapshot(ctx)
	assert.Empty(t, snapshot.Lines)

	// the next mutation overwrites the corrupted value
	_, err := store.AddItem(ctx, headphones(), 1)
	require.NoError(t, err)
	snapshot = store.Snapshot(ctx)
	require.Len(t, snapshot.Lines, 1)
}

func TestStore_NotifiesSubscribersOnEveryMutation(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	first, second := 0, 0
	unsubscribe := store.Subscribe(func() { first++ })
	store.Subscribe(func() { second++ })

	_, err := store.AddItem(ctx, headphones(), 1)
	require.NoError(t, err)
	_, _, err = store.UpdateQuantity(ctx, 1, 2)
	require.NoError(t, err)
	_, _, err = store.RemoveItem(ctx, 1)
	require.NoError(t, err)
	_, err = store.Clear(ctx)
	require.NoError(t, err)

	assert.Equal(t, 4, first)
	assert.Equal(t, 4, second)

	unsubscribe()
	_, err = store.AddItem(ctx, headphones(), 1)
	require.NoError(t, err)
	assert.Equal(t, 4, first, "unsubscribed handler must not fire")
	assert.Equal(t, 5, second)
}

func TestStore_NoOpMutationsDoNotNotify(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	calls := 0
	store.Subscribe(func() { calls++ })

	_, _, err := store.UpdateQuantity(ctx, 42, 3)
	require.NoError(t, err)
	_, _, err = store.RemoveItem(ctx, 42)
	require.NoError(t, err)

	assert.Zero(t, calls, "no-ops must not broadcast a change")
}

func TestStore_PublishesCartUpdatedEvents(t *testing.T) {
	ctx := context.Background()
	publisher := &capturePublisher{}
	store := NewStore(kvstore.NewMemoryStore(), pubsub.NewBus(), publisher, DefaultPricing(), "profile-7", testLogger())

	_, err := store.AddItem(ctx, headphones(), 2)
	require.NoError(t, err)
	_, err = store.AddItem(ctx, speaker(), 1)
	require.NoError(t, err)

	require.Len(t, publisher.events, 2)
	event, ok := publisher.events[1].(events.CartUpdatedEvent)
	require.True(t, ok)
	assert.Equal(t, "profile-7", event.ProfileID)
	assert.Equal(t, 2, event.ItemCount)
	assert.Equal(t, 3, event.TotalQuantity)
	assert.False(t, event.UpdatedAt.IsZero())
}

func TestStore_PublishFailureDoesNotFailMutation(t *testing.T) {
	ctx := context.Background()
	publisher := &capturePublisher{err: errors.New("broker down")}
	store := NewStore(kvstore.NewMemoryStore(), pubsub.NewBus(), publisher, DefaultPricing(), "test", testLogger())

	snapshot, err := store.AddItem(ctx, headphones(), 1)
	require.NoError(t, err, "a missed event must not fail the mutation")
	assert.Len(t, snapshot.Lines, 1)
}
