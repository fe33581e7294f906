package rohlik

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
)

// Domain operations: each calls one fixed path through the executor and
// reshapes the body into the normalized types. Fields the upstream omits
// default to zero values rather than failing the whole fetch.

const (
	searchPath          = "/services/frontend-service/autocomplete"
	cartPath            = "/services/frontend-service/v2/cart"
	upcomingOrdersPath  = "/api/v3/orders/upcoming"
	deliveredOrdersPath = "/api/v3/orders/delivered"
	timeslotsPath       = "/services/frontend-service/v1/timeslots"
	announcementsPath   = "/services/frontend-service/announcements/top"
	bagAmountPath       = "/services/frontend-service/bags/amount"
	premiumProfilePath  = "/services/frontend-service/premium/profile"
)

func (c *Client) SearchProducts(ctx context.Context, query string) ([]Product, error) {
	path := fmt.Sprintf("%s?search=%s&limit=10", searchPath, url.QueryEscape(query))
	body, err := c.execute(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	var decoded struct {
		ProductList []struct {
			ID            looseString `json:"id"`
			Name          string      `json:"name"`
			Price         looseFloat  `json:"price"`
			TextualAmount string      `json:"textualAmount"`
		} `json:"productList"`
	}
	_ = json.Unmarshal(body, &decoded)

	products := make([]Product, 0, len(decoded.ProductList))
	for _, p := range decoded.ProductList {
		products = append(products, Product{
			ID:          string(p.ID),
			Name:        p.Name,
			Price:       float64(p.Price),
			TextualUnit: p.TextualAmount,
		})
	}
	return products, nil
}

func (c *Client) Cart(ctx context.Context) (CartSnapshot, error) {
	body, err := c.execute(ctx, http.MethodGet, cartPath, nil)
	if err != nil {
		return CartSnapshot{}, err
	}

	var decoded struct {
		Data struct {
			TotalPrice looseFloat `json:"totalPrice"`
			Items      []struct {
				ID           looseString `json:"id"`
				ProductID    looseString `json:"productId"`
				ProductName  string      `json:"productName"`
				Quantity     looseInt    `json:"quantity"`
				Price        looseFloat  `json:"price"`
				PricePerUnit looseFloat  `json:"pricePerUnit"`
			} `json:"items"`
		} `json:"data"`
	}
	_ = json.Unmarshal(body, &decoded)

	snapshot := CartSnapshot{
		TotalPrice: float64(decoded.Data.TotalPrice),
		Items:      make([]CartItem, 0, len(decoded.Data.Items)),
	}
	for _, item := range decoded.Data.Items {
		snapshot.Items = append(snapshot.Items, CartItem{
			ProductID:    string(item.ProductID),
			CartLineID:   string(item.ID),
			Name:         item.ProductName,
			Quantity:     int(item.Quantity),
			Price:        float64(item.Price),
			PricePerUnit: float64(item.PricePerUnit),
		})
	}
	// Line count on purpose; the upstream metric never sums quantities.
	snapshot.TotalItemLines = len(snapshot.Items)
	return snapshot, nil
}

func (c *Client) AddToCart(ctx context.Context, productID string, quantity int) error {
	if productID == "" {
		return &ArgumentError{Reason: "product id is required"}
	}
	if quantity < 1 {
		return &ArgumentError{Reason: "quantity must be at least 1"}
	}
	payload := map[string]interface{}{
		"productId": productID,
		"quantity":  quantity,
	}
	_, err := c.execute(ctx, http.MethodPost, cartPath, payload)
	return err
}

// RemoveCartLine deletes by cart line id, the only removal key the upstream
// accepts.
func (c *Client) RemoveCartLine(ctx context.Context, cartLineID string) error {
	if cartLineID == "" {
		return &ArgumentError{Reason: "cart line id is required"}
	}
	_, err := c.execute(ctx, http.MethodDelete, fmt.Sprintf("%s/%s", cartPath, url.PathEscape(cartLineID)), nil)
	return err
}

// RemoveProduct resolves a product id to its cart line via a fresh cart read
// before deleting. No delete call is issued when no line matches.
func (c *Client) RemoveProduct(ctx context.Context, productID string) error {
	if productID == "" {
		return &ArgumentError{Reason: "product id is required"}
	}
	snapshot, err := c.Cart(ctx)
	if err != nil {
		return err
	}
	for _, item := range snapshot.Items {
		if item.ProductID == productID {
			return c.RemoveCartLine(ctx, item.CartLineID)
		}
	}
	return &NotFoundError{Ref: productID}
}

func (c *Client) UpcomingOrders(ctx context.Context) ([]Order, error) {
	body, err := c.execute(ctx, http.MethodGet, upcomingOrdersPath, nil)
	if err != nil {
		return nil, err
	}
	return decodeOrders(body), nil
}

func (c *Client) DeliveredOrders(ctx context.Context, limit int) ([]Order, error) {
	if limit < 1 {
		limit = 10
	}
	path := fmt.Sprintf("%s?offset=0&limit=%d", deliveredOrdersPath, limit)
	body, err := c.execute(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	return decodeOrders(body), nil
}

func decodeOrders(body []byte) []Order {
	var decoded []struct {
		ID           looseString `json:"id"`
		State        string      `json:"state"`
		DeliveryText string      `json:"deliveryText"`
		DeliveredAt  string      `json:"deliveredAt"`
		PriceComposition struct {
			Total looseFloat `json:"total"`
		} `json:"priceComposition"`
		ItemsCount looseInt `json:"itemsCount"`
	}
	_ = json.Unmarshal(body, &decoded)

	orders := make([]Order, 0, len(decoded))
	for _, o := range decoded {
		orders = append(orders, Order{
			ID:           string(o.ID),
			State:        o.State,
			DeliveryText: o.DeliveryText,
			DeliveredAt:  o.DeliveredAt,
			TotalPrice:   float64(o.PriceComposition.Total),
			ItemCount:    int(o.ItemsCount),
		})
	}
	return orders
}

// Timeslots needs the identifiers only login provides. Before login it
// short-circuits to no data instead of issuing a request.
func (c *Client) Timeslots(ctx context.Context) (SlotAvailability, bool, error) {
	userID, addressID := c.session.Identifiers()
	if userID == "" || addressID == "" {
		return SlotAvailability{}, false, nil
	}
	path := fmt.Sprintf("%s?userId=%s&addressId=%s", timeslotsPath, url.QueryEscape(userID), url.QueryEscape(addressID))
	body, err := c.execute(ctx, http.MethodGet, path, nil)
	if err != nil {
		return SlotAvailability{}, false, err
	}

	var decoded struct {
		Data struct {
			Express struct {
				Available bool `json:"available"`
			} `json:"express"`
			Common struct {
				Available bool   `json:"available"`
				First     string `json:"firstDeliveryText"`
			} `json:"common"`
			Eco struct {
				Available bool `json:"available"`
			} `json:"eco"`
		} `json:"data"`
	}
	_ = json.Unmarshal(body, &decoded)

	return SlotAvailability{
		ExpressAvailable: decoded.Data.Express.Available,
		CommonAvailable:  decoded.Data.Common.Available,
		EcoAvailable:     decoded.Data.Eco.Available,
		FirstDelivery:    decoded.Data.Common.First,
	}, true, nil
}

func (c *Client) Announcements(ctx context.Context) ([]Announcement, error) {
	body, err := c.execute(ctx, http.MethodGet, announcementsPath, nil)
	if err != nil {
		return nil, err
	}

	var decoded struct {
		Announcements []struct {
			Icon    string `json:"icon"`
			Content string `json:"content"`
		} `json:"announcements"`
	}
	_ = json.Unmarshal(body, &decoded)

	announcements := make([]Announcement, 0, len(decoded.Announcements))
	for _, a := range decoded.Announcements {
		announcements = append(announcements, Announcement{IconKind: a.Icon, Content: a.Content})
	}
	return announcements, nil
}

// BagBalance reports the reusable-bag balance. ok is false when the body
// carried no numeric amount.
func (c *Client) BagBalance(ctx context.Context) (int, bool, error) {
	body, err := c.execute(ctx, http.MethodGet, bagAmountPath, nil)
	if err != nil {
		return 0, false, err
	}

	var decoded struct {
		Amount *looseInt `json:"amount"`
	}
	_ = json.Unmarshal(body, &decoded)
	if decoded.Amount == nil {
		return 0, false, nil
	}
	return int(*decoded.Amount), true, nil
}

func (c *Client) PremiumProfile(ctx context.Context) (Premium, bool, error) {
	if !c.session.Populated() {
		return Premium{}, false, nil
	}
	body, err := c.execute(ctx, http.MethodGet, premiumProfilePath, nil)
	if err != nil {
		return Premium{}, false, err
	}

	var decoded struct {
		Data struct {
			Premium struct {
				Active bool   `json:"active"`
				Type   string `json:"premiumType"`
			} `json:"premium"`
		} `json:"data"`
	}
	_ = json.Unmarshal(body, &decoded)

	return Premium{Active: decoded.Data.Premium.Active, Type: decoded.Data.Premium.Type}, true, nil
}
