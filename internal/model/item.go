package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"
)

// Item is a catalog item as exchanged with the backend.
type Item struct {
	ID          string    `json:"_id,omitempty"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Price       Price     `json:"price"`
	Quantity    int       `json:"quantity"`
	StockType   StockType `json:"type_stock,omitempty"`
	Category    Ref       `json:"category"`
	Store       Ref       `json:"store"`
	ImageURL    string    `json:"image_url,omitempty"`
}

// StockType is the stock discipline of an item.
type StockType string

// Stock disciplines.
const (
	StockLIFO StockType = "LIFO"
	StockFIFO StockType = "FIFO"
)

// ParseStockType accepts "", "LIFO" or "FIFO" (case-insensitive).
func ParseStockType(s string) (StockType, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "":
		return "", nil
	case string(StockLIFO):
		return StockLIFO, nil
	case string(StockFIFO):
		return StockFIFO, nil
	default:
		return "", fmt.Errorf("invalid stock type %q (want LIFO or FIFO)", s)
	}
}

// Price holds a price exactly as the backend sent it. The backend returns
// either a JSON number or a numeric string; an empty Price means absent.
type Price string

// PriceOf returns the Price for a number.
func PriceOf(v float64) Price {
	return Price(strconv.FormatFloat(v, 'f', -1, 64))
}

// UnmarshalJSON accepts a number, a string or null.
func (p *Price) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*p = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return fmt.Errorf("decoding price: %w", err)
		}
		*p = Price(s)
		return nil
	}
	*p = Price(b)
	return nil
}

// MarshalJSON writes the price as a number when it is one, null when absent.
func (p Price) MarshalJSON() ([]byte, error) {
	v, ok := p.Float()
	if !ok {
		return []byte("null"), nil
	}
	return []byte(strconv.FormatFloat(v, 'f', -1, 64)), nil
}

// Float normalizes the price. It reports false when the price is absent,
// not numeric, or not finite.
func (p Price) Float() (float64, bool) {
	s := strings.TrimSpace(string(p))
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// ItemInput is the outbound payload for creating or updating an item.
// References are already reduced to bare identifiers.
type ItemInput struct {
	Name        string
	Description string
	Price       float64
	Quantity    int
	StockType   StockType
	CategoryID  string
	StoreID     string
}

// Fields returns the form fields sent to the backend.
func (in ItemInput) Fields() url.Values {
	v := url.Values{}
	v.Set("name", in.Name)
	v.Set("description", in.Description)
	v.Set("price", strconv.FormatFloat(in.Price, 'f', -1, 64))
	v.Set("quantity", strconv.Itoa(in.Quantity))
	v.Set("category", in.CategoryID)
	v.Set("store", in.StoreID)
	if in.StockType != "" {
		v.Set("type_stock", string(in.StockType))
	}
	return v
}
