package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ecommercehub/storefront/internal/catalog"
	"github.com/ecommercehub/storefront/internal/kvstore"
	"github.com/ecommercehub/storefront/pkg/messaging"
	"github.com/ecommercehub/storefront/pkg/messaging/events"
	"github.com/ecommercehub/storefront/pkg/pubsub"
)

// storageKey is the single key under which the whole cart is persisted, as a
// JSON array of lines. An absent or unparsable value means "empty cart".
const storageKey = "cart"

// Snapshot is a consistent read of the cart plus its derived numbers.
// ItemCount is the number of distinct lines (the header badge number);
// TotalQuantity sums the quantities.
type Snapshot struct {
	Lines         []Line `json:"lines"`
	ItemCount     int    `json:"item_count"`
	TotalQuantity int    `json:"total_quantity"`
	Totals        Totals `json:"totals"`
}

// Store is the single source of truth for the persisted cart. Every mutation
// is a read-modify-write of the whole persisted blob followed by a change
// notification on the bus; subscribers re-read the snapshot, they receive no
// payload. Methods are safe for concurrent use.
type Store struct {
	mu        sync.Mutex
	kv        kvstore.Store
	bus       *pubsub.Bus
	publisher messaging.Publisher // optional, may be nil
	pricing   Pricing
	profileID string
	logger    *slog.Logger
}

// NewStore creates a cart store over the given key-value storage. publisher
// may be nil, in which case change events stay in-process.
func NewStore(kv kvstore.Store, bus *pubsub.Bus, publisher messaging.Publisher, pricing Pricing, profileID string, logger *slog.Logger) *Store {
	return &Store{
		kv:        kv,
		bus:       bus,
		publisher: publisher,
		pricing:   pricing,
		profileID: profileID,
		logger:    logger.With("component", "cart_store"),
	}
}

// AddItem adds quantity units of product to the cart. If a line for the
// product already exists its quantity is incremented; otherwise a new line is
// appended with the display fields captured from product.
func (s *Store) AddItem(ctx context.Context, product catalog.Product, quantity int) (Snapshot, error) {
	if quantity < 1 {
		return Snapshot{}, ErrInvalidQuantity
	}
	if product.ID <= 0 {
		return Snapshot{}, ErrInvalidProduct
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	lines := s.load(ctx)
	merged := false
	for i := range lines {
		if lines[i].ProductID == product.ID {
			lines[i].Quantity += quantity
			merged = true
			break
		}
	}
	if !merged {
		lines = append(lines, Line{
			ProductID: product.ID,
			Name:      product.Name,
			Price:     product.Price,
			Image:     product.Image,
			Quantity:  quantity,
		})
	}

	if err := s.persist(ctx, lines); err != nil {
		return Snapshot{}, err
	}
	s.notify(ctx, lines)
	return s.snapshotOf(lines), nil
}

// UpdateQuantity sets the quantity of the line for productID. A quantity of
// zero removes the line (equivalent to RemoveItem); negative quantities are
// rejected. Updating an absent line is a no-op, since the item may have been
// removed through another view; the returned bool reports whether the line
// existed.
func (s *Store) UpdateQuantity(ctx context.Context, productID int64, quantity int) (Snapshot, bool, error) {
	if quantity < 0 {
		return Snapshot{}, false, ErrInvalidQuantity
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	lines := s.load(ctx)
	found := false
	for i := range lines {
		if lines[i].ProductID != productID {
			continue
		}
		found = true
		if quantity == 0 {
			lines = append(lines[:i], lines[i+1:]...)
		} else {
			lines[i].Quantity = quantity
		}
		break
	}
	if !found {
		return s.snapshotOf(lines), false, nil
	}

	if err := s.persist(ctx, lines); err != nil {
		return Snapshot{}, false, err
	}
	s.notify(ctx, lines)
	return s.snapshotOf(lines), true, nil
}

// RemoveItem removes the line for productID. Removing an absent line is a
// no-op; the returned bool reports whether the line existed.
func (s *Store) RemoveItem(ctx context.Context, productID int64) (Snapshot, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	lines := s.load(ctx)
	for i := range lines {
		if lines[i].ProductID != productID {
			continue
		}
		lines = append(lines[:i], lines[i+1:]...)
		if err := s.persist(ctx, lines); err != nil {
			return Snapshot{}, false, err
		}
		s.notify(ctx, lines)
		return s.snapshotOf(lines), true, nil
	}
	return s.snapshotOf(lines), false, nil
}

// Clear empties the cart unconditionally. Also wired to identity sign-out.
func (s *Store) Clear(ctx context.Context) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	lines := []Line{}
	if err := s.persist(ctx, lines); err != nil {
		return Snapshot{}, err
	}
	s.notify(ctx, lines)
	return s.snapshotOf(lines), nil
}

// Snapshot returns the current cart and derived totals. It never fails:
// unreadable or corrupted storage reads as an empty cart.
func (s *Store) Snapshot(ctx context.Context) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotOf(s.load(ctx))
}

// Subscribe registers fn to run after every cart change. The returned
// function removes the subscription. A subscriber that registers after a
// change must call Snapshot itself; notifications are not replayed.
func (s *Store) Subscribe(fn func()) func() {
	return s.bus.Subscribe(fn)
}

// load reads the persisted lines. Malformed or unreadable data is normalized
// to an empty cart; the next mutation overwrites it.
func (s *Store) load(ctx context.Context) []Line {
	data, err := s.kv.Get(ctx, storageKey)
	if err != nil {
		if !errors.Is(err, kvstore.ErrKeyNotFound) {
			s.logger.WarnContext(ctx, "Cart storage unreadable, treating as empty", "error", err)
		}
		return []Line{}
	}
	var lines []Line
	if err := json.Unmarshal(data, &lines); err != nil {
		s.logger.WarnContext(ctx, "Cart storage corrupted, treating as empty", "error", err)
		return []Line{}
	}
	return lines
}

func (s *Store) persist(ctx context.Context, lines []Line) error {
	data, err := json.Marshal(lines)
	if err != nil {
		return fmt.Errorf("failed to encode cart: %w", err)
	}
	if err := s.kv.Set(ctx, storageKey, data); err != nil {
		return fmt.Errorf("failed to persist cart: %w", err)
	}
	return nil
}

// notify broadcasts the change. The in-process notification carries no
// payload; the external event carries summary counters only. Publish errors
// are logged, never propagated: a missed event must not fail a cart mutation.
func (s *Store) notify(ctx context.Context, lines []Line) {
	s.bus.Publish()
	if s.publisher == nil {
		return
	}
	event := events.CartUpdatedEvent{
		ProfileID:     s.profileID,
		ItemCount:     len(lines),
		TotalQuantity: TotalQuantity(lines),
		UpdatedAt:     time.Now().UTC(),
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish cart event", "error", err)
	}
}

func (s *Store) snapshotOf(lines []Line) Snapshot {
	return Snapshot{
		Lines:         lines,
		ItemCount:     len(lines),
		TotalQuantity: TotalQuantity(lines),
		Totals:        ComputeTotals(lines, s.pricing),
	}
}
