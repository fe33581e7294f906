package device

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/greenbasket/rohlikd/internal/rohlik"
)

// Capability names published by the device.
const (
	CapCartTotalPrice         = "cart_total_price"
	CapCartItemLines          = "cart_item_lines"
	CapShipmentState          = "shipment_state"
	CapDeliveryETAMinutes     = "delivery_eta_minutes"
	CapBagCount               = "bag_count"
	CapUpcomingOrderCount     = "upcoming_order_count"
	CapLastDeliveredOrderDate = "last_delivered_order_date"
	CapSlotExpressAvailable   = "slot_express_available"
	CapSlotCommonAvailable    = "slot_common_available"
	CapSlotEcoAvailable       = "slot_eco_available"
	CapFirstDeliveryText      = "first_delivery_text"
	CapPremiumActive          = "premium_active"
)

// Operations is the slice of the API client the device consumes. Satisfied
// by *rohlik.Client; fakes stand in for it in tests.
type Operations interface {
	SearchProducts(ctx context.Context, query string) ([]rohlik.Product, error)
	Cart(ctx context.Context) (rohlik.CartSnapshot, error)
	AddToCart(ctx context.Context, productID string, quantity int) error
	RemoveCartLine(ctx context.Context, cartLineID string) error
	RemoveProduct(ctx context.Context, productID string) error
	UpcomingOrders(ctx context.Context) ([]rohlik.Order, error)
	DeliveredOrders(ctx context.Context, limit int) ([]rohlik.Order, error)
	Timeslots(ctx context.Context) (rohlik.SlotAvailability, bool, error)
	Announcements(ctx context.Context) ([]rohlik.Announcement, error)
	BagBalance(ctx context.Context) (int, bool, error)
	PremiumProfile(ctx context.Context) (rohlik.Premium, bool, error)
}

// Device is the bridge-side image of the grocery account: last-published
// capability values, availability, and host callbacks.
type Device struct {
	ops  Operations
	sink Sink

	mutex             sync.Mutex
	lastPublished     map[string]interface{}
	available         bool
	unavailableReason string

	bagSubscribers         []func(count int)
	unavailableSubscribers []func(reason string)
}

func MakeDevice(ops Operations, sink Sink) *Device {
	if sink == nil {
		sink = LogSink{}
	}
	return &Device{
		ops:           ops,
		sink:          sink,
		lastPublished: make(map[string]interface{}),
	}
}

// OnBagCount registers a callback fired on every observed bag balance,
// changed or not. Consumers debounce.
func (d *Device) OnBagCount(fn func(count int)) {
	d.mutex.Lock()
	d.bagSubscribers = append(d.bagSubscribers, fn)
	d.mutex.Unlock()
}

// OnUnavailable registers a callback for the user-visible error signal
// raised when a poll tick fails.
func (d *Device) OnUnavailable(fn func(reason string)) {
	d.mutex.Lock()
	d.unavailableSubscribers = append(d.unavailableSubscribers, fn)
	d.mutex.Unlock()
}

// publishIfChanged writes to the sink only when the value differs from the
// last published one for that name. Recomputation is cheap; downstream
// writes are not.
func (d *Device) publishIfChanged(name string, value interface{}) {
	d.mutex.Lock()
	last, seen := d.lastPublished[name]
	if seen && last == value {
		d.mutex.Unlock()
		return
	}
	d.lastPublished[name] = value
	d.mutex.Unlock()

	if err := d.sink.Publish(name, value); err != nil {
		log.Info().Err(err).Str("capability", name).Msg("capability publish failed")
	}
}

func (d *Device) notifyBagCount(count int) {
	d.mutex.Lock()
	subscribers := make([]func(int), len(d.bagSubscribers))
	copy(subscribers, d.bagSubscribers)
	d.mutex.Unlock()
	for _, fn := range subscribers {
		fn(count)
	}
}

func (d *Device) markAvailable() {
	d.mutex.Lock()
	d.available = true
	d.unavailableReason = ""
	d.mutex.Unlock()
}

func (d *Device) markUnavailable(reason string) {
	d.mutex.Lock()
	d.available = false
	d.unavailableReason = reason
	subscribers := make([]func(string), len(d.unavailableSubscribers))
	copy(subscribers, d.unavailableSubscribers)
	d.mutex.Unlock()

	log.Info().Str("reason", reason).Msg("device marked unavailable")
	for _, fn := range subscribers {
		fn(reason)
	}
}

func (d *Device) Available() (bool, string) {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	return d.available, d.unavailableReason
}
