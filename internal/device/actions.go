package device

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/greenbasket/rohlikd/internal/rohlik"
)

// Host-invoked actions. These are synchronous user-triggered operations:
// errors go straight back to the caller instead of being swallowed.

type AutocompleteEntry struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	ID          string `json:"id"`
}

func (d *Device) AddProduct(ctx context.Context, productID string, quantity int) error {
	if strings.TrimSpace(productID) == "" {
		return &rohlik.ArgumentError{Reason: "product id is required"}
	}
	if quantity < 1 {
		return &rohlik.ArgumentError{Reason: "quantity must be at least 1"}
	}
	return d.ops.AddToCart(ctx, productID, quantity)
}

func (d *Device) RemoveProduct(ctx context.Context, productID string) error {
	if strings.TrimSpace(productID) == "" {
		return &rohlik.ArgumentError{Reason: "product id is required"}
	}
	return d.ops.RemoveProduct(ctx, productID)
}

// CartText renders the current cart as a human-readable listing, for hosts
// that want to speak or display it.
func (d *Device) CartText(ctx context.Context) (string, error) {
	snapshot, err := d.ops.Cart(ctx)
	if err != nil {
		return "", err
	}
	if len(snapshot.Items) == 0 {
		return "Cart is empty.", nil
	}
	var b strings.Builder
	for _, item := range snapshot.Items {
		fmt.Fprintf(&b, "%dx %s (%.2f)\n", item.Quantity, item.Name, item.Price)
	}
	fmt.Fprintf(&b, "Total: %.2f (%d lines)", snapshot.TotalPrice, snapshot.TotalItemLines)
	return b.String(), nil
}

// TestOperation runs a named read operation and returns its result as JSON.
// Diagnostic action: lets the host poke any endpoint without a full flow.
func (d *Device) TestOperation(ctx context.Context, name string) (string, error) {
	var result interface{}
	var err error
	switch name {
	case "cart":
		result, err = d.ops.Cart(ctx)
	case "upcoming_orders":
		result, err = d.ops.UpcomingOrders(ctx)
	case "delivered_orders":
		result, err = d.ops.DeliveredOrders(ctx, 10)
	case "timeslots":
		result, _, err = d.ops.Timeslots(ctx)
	case "announcements":
		result, err = d.ops.Announcements(ctx)
	case "bag_balance":
		result, _, err = d.ops.BagBalance(ctx)
	case "premium_profile":
		result, _, err = d.ops.PremiumProfile(ctx)
	default:
		return "", &rohlik.ArgumentError{Reason: fmt.Sprintf("unknown operation %q", name)}
	}
	if err != nil {
		return "", err
	}
	raw, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// Autocomplete feeds the host's picker: product search for a query, the
// current cart contents for an empty one (the remove-item flow).
func (d *Device) Autocomplete(ctx context.Context, query string) ([]AutocompleteEntry, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		snapshot, err := d.ops.Cart(ctx)
		if err != nil {
			return nil, err
		}
		entries := make([]AutocompleteEntry, 0, len(snapshot.Items))
		for _, item := range snapshot.Items {
			entries = append(entries, AutocompleteEntry{
				Name:        item.Name,
				Description: fmt.Sprintf("%dx in cart", item.Quantity),
				ID:          item.ProductID,
			})
		}
		return entries, nil
	}

	products, err := d.ops.SearchProducts(ctx, query)
	if err != nil {
		return nil, err
	}
	entries := make([]AutocompleteEntry, 0, len(products))
	for _, p := range products {
		entries = append(entries, AutocompleteEntry{
			Name:        p.Name,
			Description: strings.TrimSpace(fmt.Sprintf("%.2f %s", p.Price, p.TextualUnit)),
			ID:          p.ID,
		})
	}
	return entries, nil
}
