package shipment

import (
	"regexp"

	"github.com/greenbasket/rohlikd/internal/rohlik"
)

// Shipment progress derived from the latest delivery announcement.
//
// no_upcoming_order ---> preparing_bags ---> delivery
//
// The arrow is only the usual direction; this is a stateless classifier
// re-evaluated every poll, so any state can follow any other. `delivery`
// is the trigger for fast polling.

type State int

const (
	StateNoUpcomingOrder State = iota
	StatePreparingBags
	StateDelivery
)

func (s State) String() string {
	return [...]string{"no_upcoming_order", "preparing_bags", "delivery"}[s]
}

// Announcement icons observed in upstream payloads. No other mappings are
// guessed; unknown icons classify as no upcoming order.
const (
	iconCourierInTransit = "iconDeliveryCar"
	iconOrderBeingPacked = "iconProducts"
)

// First run of digits inside an inline markup tag, e.g. "<span>7</span>".
var etaDigits = regexp.MustCompile(`<[a-zA-Z][^>]*>[^<0-9]*([0-9]+)`)

// Classify derives (state, eta minutes) from the announcement list. Only the
// first announcement counts; the upstream surfaces the most relevant one
// first. ETA is 0 whenever unknown.
func Classify(announcements []rohlik.Announcement) (State, int) {
	if len(announcements) == 0 {
		return StateNoUpcomingOrder, 0
	}
	latest := announcements[0]
	switch latest.IconKind {
	case iconCourierInTransit:
		return StateDelivery, parseETAMinutes(latest.Content)
	case iconOrderBeingPacked:
		return StatePreparingBags, 0
	default:
		return StateNoUpcomingOrder, 0
	}
}

func parseETAMinutes(content string) int {
	match := etaDigits.FindStringSubmatch(content)
	if match == nil {
		return 0
	}
	minutes := 0
	for _, digit := range match[1] {
		minutes = minutes*10 + int(digit-'0')
	}
	return minutes
}
