package device

import (
	"context"
	"sync"

	"github.com/greenbasket/rohlikd/internal/rohlik"
)

// fakeOps is a scriptable Operations implementation for scheduler and
// action tests.
type fakeOps struct {
	mutex sync.Mutex

	cart    rohlik.CartSnapshot
	cartErr error

	upcoming    []rohlik.Order
	upcomingErr error

	delivered    []rohlik.Order
	deliveredErr error

	announcements    []rohlik.Announcement
	announcementsErr error

	bagCount int
	bagOK    bool
	bagErr   error

	premium    rohlik.Premium
	premiumOK  bool
	premiumErr error

	slots    rohlik.SlotAvailability
	slotsOK  bool
	slotsErr error

	products  []rohlik.Product
	searchErr error

	addedProducts   []string
	removedProducts []string
	removedLines    []string
	removeErr       error
}

func (f *fakeOps) SearchProducts(ctx context.Context, query string) ([]rohlik.Product, error) {
	return f.products, f.searchErr
}

func (f *fakeOps) Cart(ctx context.Context) (rohlik.CartSnapshot, error) {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	return f.cart, f.cartErr
}

func (f *fakeOps) AddToCart(ctx context.Context, productID string, quantity int) error {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	f.addedProducts = append(f.addedProducts, productID)
	return nil
}

func (f *fakeOps) RemoveCartLine(ctx context.Context, cartLineID string) error {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	f.removedLines = append(f.removedLines, cartLineID)
	return nil
}

func (f *fakeOps) RemoveProduct(ctx context.Context, productID string) error {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	if f.removeErr != nil {
		return f.removeErr
	}
	f.removedProducts = append(f.removedProducts, productID)
	return nil
}

func (f *fakeOps) UpcomingOrders(ctx context.Context) ([]rohlik.Order, error) {
	return f.upcoming, f.upcomingErr
}

func (f *fakeOps) DeliveredOrders(ctx context.Context, limit int) ([]rohlik.Order, error) {
	return f.delivered, f.deliveredErr
}

func (f *fakeOps) Timeslots(ctx context.Context) (rohlik.SlotAvailability, bool, error) {
	return f.slots, f.slotsOK, f.slotsErr
}

func (f *fakeOps) Announcements(ctx context.Context) ([]rohlik.Announcement, error) {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	return f.announcements, f.announcementsErr
}

func (f *fakeOps) setAnnouncements(anns []rohlik.Announcement) {
	f.mutex.Lock()
	f.announcements = anns
	f.mutex.Unlock()
}

func (f *fakeOps) BagBalance(ctx context.Context) (int, bool, error) {
	return f.bagCount, f.bagOK, f.bagErr
}

func (f *fakeOps) PremiumProfile(ctx context.Context) (rohlik.Premium, bool, error) {
	return f.premium, f.premiumOK, f.premiumErr
}

// recordingSink captures every downstream write.
type recordingSink struct {
	mutex  sync.Mutex
	writes []capabilityWrite
}

type capabilityWrite struct {
	name  string
	value interface{}
}

func (r *recordingSink) Publish(name string, value interface{}) error {
	r.mutex.Lock()
	r.writes = append(r.writes, capabilityWrite{name: name, value: value})
	r.mutex.Unlock()
	return nil
}

func (r *recordingSink) countWrites(name string) int {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	n := 0
	for _, w := range r.writes {
		if w.name == name {
			n++
		}
	}
	return n
}

func (r *recordingSink) lastWrite(name string) (interface{}, bool) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	for i := len(r.writes) - 1; i >= 0; i-- {
		if r.writes[i].name == name {
			return r.writes[i].value, true
		}
	}
	return nil, false
}
