package device

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/greenbasket/rohlikd/internal/metrics"
	"github.com/greenbasket/rohlikd/internal/shipment"
)

type PollConfig struct {
	GeneralInterval      time.Duration
	SlotsInterval        time.Duration
	FastDeliveryInterval time.Duration
}

const (
	defaultGeneralInterval      = 10 * time.Minute
	defaultSlotsInterval        = 30 * time.Minute
	defaultFastDeliveryInterval = 60 * time.Second
)

// Scheduler owns the three poll loops: general data, slot data, and the
// fast delivery loop that exists only while a courier is on the way.
type Scheduler struct {
	ctx    context.Context
	device *Device
	config PollConfig

	mutex          sync.Mutex
	generalStopper chan struct{}
	slotsStopper   chan struct{}
	fastStopper    chan struct{}
}

func MakeScheduler(ctx context.Context, device *Device, config PollConfig) *Scheduler {
	if config.GeneralInterval <= 0 {
		config.GeneralInterval = defaultGeneralInterval
	}
	if config.SlotsInterval <= 0 {
		config.SlotsInterval = defaultSlotsInterval
	}
	if config.FastDeliveryInterval <= 0 {
		config.FastDeliveryInterval = defaultFastDeliveryInterval
	}
	return &Scheduler{ctx: ctx, device: device, config: config}
}

// Start (re)arms the general and slots loops; both fire once immediately.
// Any previously running loops are torn down first.
func (s *Scheduler) Start() {
	s.Stop()
	s.mutex.Lock()
	s.generalStopper = s.startLoop(s.config.GeneralInterval, true, s.generalTick)
	s.slotsStopper = s.startLoop(s.config.SlotsInterval, true, s.slotsTick)
	s.mutex.Unlock()
	log.Info().
		Dur("general_interval", s.config.GeneralInterval).
		Dur("slots_interval", s.config.SlotsInterval).
		Msg("poll scheduler started")
}

// Stop tears all three loops down. Safe to call at any time, including while
// the fast loop is armed; required before dropping the device reference or
// the timers keep firing against a stale device.
func (s *Scheduler) Stop() {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	for _, stopper := range []*chan struct{}{&s.generalStopper, &s.slotsStopper, &s.fastStopper} {
		if *stopper != nil {
			close(*stopper)
			*stopper = nil
		}
	}
}

func (s *Scheduler) startLoop(interval time.Duration, fireNow bool, tick func(ctx context.Context)) chan struct{} {
	stopper := make(chan struct{})
	go func() {
		if fireNow {
			tick(s.ctx)
		}
		timer := time.NewTimer(interval)
		defer timer.Stop()
		for {
			select {
			case <-s.ctx.Done():
				return
			case <-stopper:
				return
			case <-timer.C:
				tick(s.ctx)
				timer.Reset(interval)
			}
		}
	}()
	return stopper
}

// armFastPoll is idempotent: an already armed fast loop is left alone.
func (s *Scheduler) armFastPoll() {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.fastStopper != nil {
		return
	}
	// The general tick that armed us just polled announcements, so the fast
	// loop waits a full interval before its first fetch.
	s.fastStopper = s.startLoop(s.config.FastDeliveryInterval, false, s.fastTick)
	log.Info().Dur("interval", s.config.FastDeliveryInterval).Msg("fast delivery poll armed")
}

func (s *Scheduler) disarmFastPoll() {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.fastStopper == nil {
		return
	}
	close(s.fastStopper)
	s.fastStopper = nil
	log.Info().Msg("fast delivery poll disarmed")
}

func (s *Scheduler) fastArmed() bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.fastStopper != nil
}

// generalTick fetches cart, orders, bags, premium and announcements. Cart
// and upcoming orders are the tick's backbone: their failure fails the tick.
// The remaining fetches are isolated so one flaky endpoint does not blank
// the rest.
func (s *Scheduler) generalTick(ctx context.Context) {
	defer metrics.BenchmarkMethod(time.Now(), "scheduler.general_tick", nil)
	ops := s.device.ops

	snapshot, err := ops.Cart(ctx)
	if err != nil {
		s.failTick("cart", err)
		return
	}
	upcoming, err := ops.UpcomingOrders(ctx)
	if err != nil {
		s.failTick("upcoming orders", err)
		return
	}

	s.device.markAvailable()
	s.device.publishIfChanged(CapCartTotalPrice, snapshot.TotalPrice)
	s.device.publishIfChanged(CapCartItemLines, snapshot.TotalItemLines)
	s.device.publishIfChanged(CapUpcomingOrderCount, len(upcoming))

	if delivered, err := ops.DeliveredOrders(ctx, 1); err != nil {
		log.Info().Err(err).Msg("delivered orders fetch failed; continuing tick")
	} else if len(delivered) > 0 {
		s.device.publishIfChanged(CapLastDeliveredOrderDate, delivered[0].DeliveredAt)
	}

	if count, ok, err := ops.BagBalance(ctx); err != nil {
		log.Info().Err(err).Msg("bag balance fetch failed; continuing tick")
	} else if ok {
		s.device.publishIfChanged(CapBagCount, count)
		// Subscribers hear every observed balance, changed or not.
		s.device.notifyBagCount(count)
	}

	if premium, ok, err := ops.PremiumProfile(ctx); err != nil {
		log.Info().Err(err).Msg("premium profile fetch failed; continuing tick")
	} else if ok {
		s.device.publishIfChanged(CapPremiumActive, premium.Active)
	}

	if announcements, err := ops.Announcements(ctx); err != nil {
		log.Info().Err(err).Msg("announcements fetch failed; continuing tick")
	} else {
		state, eta := shipment.Classify(announcements)
		s.applyShipmentState(state, eta)
	}
}

// slotsTick is skipped silently until login has populated the session; a
// failed fetch waits for the next scheduled tick rather than retrying early.
func (s *Scheduler) slotsTick(ctx context.Context) {
	defer metrics.BenchmarkMethod(time.Now(), "scheduler.slots_tick", nil)
	slots, ok, err := s.device.ops.Timeslots(ctx)
	if err != nil {
		log.Info().Err(err).Msg("timeslot fetch failed")
		return
	}
	if !ok {
		log.Debug().Msg("timeslot fetch skipped; session not populated yet")
		return
	}
	s.device.publishIfChanged(CapSlotExpressAvailable, slots.ExpressAvailable)
	s.device.publishIfChanged(CapSlotCommonAvailable, slots.CommonAvailable)
	s.device.publishIfChanged(CapSlotEcoAvailable, slots.EcoAvailable)
	s.device.publishIfChanged(CapFirstDeliveryText, slots.FirstDelivery)
}

// fastTick re-polls only the announcement endpoint while a delivery is in
// progress, to refresh the ETA faster than the general cadence.
func (s *Scheduler) fastTick(ctx context.Context) {
	announcements, err := s.device.ops.Announcements(ctx)
	if err != nil {
		log.Info().Err(err).Msg("fast announcement fetch failed")
		return
	}
	state, eta := shipment.Classify(announcements)
	s.applyShipmentState(state, eta)
}

func (s *Scheduler) applyShipmentState(state shipment.State, etaMinutes int) {
	s.device.publishIfChanged(CapShipmentState, state.String())
	s.device.publishIfChanged(CapDeliveryETAMinutes, etaMinutes)
	metrics.Gauge("shipment.eta_minutes", float64(etaMinutes), nil)
	if state == shipment.StateDelivery {
		s.armFastPoll()
	} else {
		s.disarmFastPoll()
	}
}

func (s *Scheduler) failTick(step string, err error) {
	metrics.Incr("scheduler.tick_errors", []string{"step:" + step})
	s.device.markUnavailable(err.Error())
}
