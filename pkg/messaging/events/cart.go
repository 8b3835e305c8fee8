package events

import (
	"encoding/json"
	"time"

	"github.com/ecommercehub/storefront/pkg/messaging"
)

// CartUpdatedEvent is emitted after every successful cart mutation. It carries
// only summary counters; consumers that need line detail re-read the cart.
type CartUpdatedEvent struct {
	ProfileID     string    `json:"profile_id"`
	ItemCount     int       `json:"item_count"`
	TotalQuantity int       `json:"total_quantity"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (e CartUpdatedEvent) Subject() string {
	return messaging.CartUpdatedSubject
}

func (e CartUpdatedEvent) Payload() ([]byte, error) {
	return json.Marshal(e)
}
