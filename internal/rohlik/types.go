package rohlik

// Normalized shapes handed up to the device layer. Upstream bodies are
// adapted into these defensively; missing fields default instead of failing.

type Product struct {
	ID          string
	Name        string
	Price       float64
	TextualUnit string
}

// CartItem is one cart line. CartLineID, not ProductID, is the only valid
// removal key.
type CartItem struct {
	ProductID    string
	CartLineID   string
	Name         string
	Quantity     int
	Price        float64
	PricePerUnit float64
}

type CartSnapshot struct {
	TotalPrice float64
	// TotalItemLines counts cart lines, not summed quantities. The upstream
	// metric of the same intent does exactly this, so it is preserved.
	TotalItemLines int
	Items          []CartItem
}

// Announcement is transient: re-fetched every poll, consumed only by the
// shipment classifier.
type Announcement struct {
	IconKind string
	Content  string
}

type Order struct {
	ID           string
	State        string
	DeliveryText string
	DeliveredAt  string
	TotalPrice   float64
	ItemCount    int
}

type SlotAvailability struct {
	ExpressAvailable bool
	CommonAvailable  bool
	EcoAvailable     bool
	FirstDelivery    string
}

type Premium struct {
	Active bool
	Type   string
}
