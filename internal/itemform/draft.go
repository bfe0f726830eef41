package itemform

import (
	"errors"
	"strings"

	"github.com/erazemk/katalog/internal/imaging"
	"github.com/erazemk/katalog/internal/model"
)

// Mode is create or edit, chosen by Hydrate.
type Mode string

// Form modes.
const (
	ModeCreate Mode = "create"
	ModeEdit   Mode = "edit"
)

// Display messages.
const (
	MsgNameRequired        = "Name is required"
	MsgDescriptionRequired = "Description is required"
	MsgCategoryRequired    = "Category is required"
	MsgPriceRequired       = "Price is required"
	MsgPricePositive       = "Price must be greater than 0"
	MsgCreated             = "Item created successfully!"
	MsgUpdated             = "Item updated successfully!"
)

// Photo rejections.
var (
	ErrPhotoType     = imaging.ErrNotImage
	ErrPhotoTooLarge = imaging.ErrTooLarge
)

// ErrSubmitInFlight is returned by Submit while a previous submit is
// still waiting for the backend.
var ErrSubmitInFlight = errors.New("submit already in flight")

// ErrClosed is returned by operations on a torn-down controller.
var ErrClosed = errors.New("item form closed")

// Draft is the editable projection of an item. A nil Price is absent.
type Draft struct {
	ID          string
	Name        string
	Description string
	Price       *float64
	Quantity    int
	StockType   model.StockType
	CategoryID  string
	StoreID     string

	// ImageURL is the stored image of the item being edited.
	ImageURL string
}

// SetPrice sets the price from operator text. Text that is not a finite
// number leaves the price absent.
func (d *Draft) SetPrice(s string) {
	if v, ok := model.Price(s).Float(); ok {
		d.Price = &v
		return
	}
	d.Price = nil
}

// Input reduces the draft to the outbound payload. Call it on a valid
// draft only.
func (d Draft) Input() model.ItemInput {
	in := model.ItemInput{
		Name:        strings.TrimSpace(d.Name),
		Description: strings.TrimSpace(d.Description),
		Quantity:    d.Quantity,
		StockType:   d.StockType,
		CategoryID:  d.CategoryID,
		StoreID:     d.StoreID,
	}
	if d.Price != nil {
		in.Price = *d.Price
	}
	return in
}

// ValidationError is the first rule a draft violates.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// Validate checks the draft in a fixed order and reports only the first
// violation: name, description, category, price present, price positive.
func (d Draft) Validate() error {
	switch {
	case strings.TrimSpace(d.Name) == "":
		return &ValidationError{Field: "name", Message: MsgNameRequired}
	case strings.TrimSpace(d.Description) == "":
		return &ValidationError{Field: "description", Message: MsgDescriptionRequired}
	case d.CategoryID == "":
		return &ValidationError{Field: "category", Message: MsgCategoryRequired}
	case d.Price == nil:
		return &ValidationError{Field: "price", Message: MsgPriceRequired}
	case !(*d.Price > 0):
		return &ValidationError{Field: "price", Message: MsgPricePositive}
	}
	return nil
}

// Photo is an operator-selected file. Size is the declared size; when 0,
// len(Data) is used.
type Photo struct {
	Name        string
	ContentType string
	Size        int64
	Data        []byte
}

func (p Photo) size() int64 {
	if p.Size > 0 {
		return p.Size
	}
	return int64(len(p.Data))
}
