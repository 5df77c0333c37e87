package models

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrInvalidRequest marks a payload the client has to fix before retrying.
var ErrInvalidRequest = errors.New("invalid request")

// MaxAmount is the largest value a decimal(10,2) money column holds.
var MaxAmount = decimal.RequireFromString("99999999.99")

// ProductRef is a product id as sent by the storefront, which posts either a
// number or the string value of a data-id attribute.
type ProductRef uint

func (r *ProductRef) UnmarshalJSON(b []byte) error {
	s := string(b)
	if s == "null" {
		return nil
	}
	s = strings.Trim(s, `"`)
	n, err := strconv.ParseUint(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return fmt.Errorf("%w: product id %s is not a positive integer", ErrInvalidRequest, b)
	}
	*r = ProductRef(n)
	return nil
}

type CheckoutItem struct {
	ID       ProductRef       `json:"id" binding:"required"`
	Quantity int              `json:"quantity" binding:"required,min=1"`
	Price    *decimal.Decimal `json:"price" binding:"required"`
}

// CheckoutRequest is the cart payload posted to /api/cart/checkout.
// Total is trusted as sent; it is not compared against the item prices.
// Amounts are stored rounded to cents, since the storefront sums prices as floats.
type CheckoutRequest struct {
	Name    string           `json:"name" binding:"required"`
	Email   string           `json:"email" binding:"required,email"`
	Address string           `json:"address" binding:"required"`
	Total   *decimal.Decimal `json:"total" binding:"required"`
	Items   []CheckoutItem   `json:"items" binding:"required,min=1,dive"`
}

// Validate repeats the binding rules for callers that do not go through gin
// and adds the checks tags cannot express.
func (r CheckoutRequest) Validate() error {
	switch {
	case strings.TrimSpace(r.Name) == "":
		return fmt.Errorf("%w: name is required", ErrInvalidRequest)
	case strings.TrimSpace(r.Email) == "":
		return fmt.Errorf("%w: email is required", ErrInvalidRequest)
	case strings.TrimSpace(r.Address) == "":
		return fmt.Errorf("%w: address is required", ErrInvalidRequest)
	case r.Total == nil:
		return fmt.Errorf("%w: total is required", ErrInvalidRequest)
	case r.Total.IsNegative():
		return fmt.Errorf("%w: total must not be negative", ErrInvalidRequest)
	case r.Total.Round(2).GreaterThan(MaxAmount):
		return fmt.Errorf("%w: total exceeds %s", ErrInvalidRequest, MaxAmount)
	case len(r.Items) == 0:
		return fmt.Errorf("%w: at least one item is required", ErrInvalidRequest)
	}
	for i, item := range r.Items {
		switch {
		case item.ID == 0:
			return fmt.Errorf("%w: items[%d]: id is required", ErrInvalidRequest, i)
		case item.Quantity < 1:
			return fmt.Errorf("%w: items[%d]: quantity must be at least 1", ErrInvalidRequest, i)
		case item.Price == nil:
			return fmt.Errorf("%w: items[%d]: price is required", ErrInvalidRequest, i)
		case item.Price.IsNegative():
			return fmt.Errorf("%w: items[%d]: price must not be negative", ErrInvalidRequest, i)
		case item.Price.Round(2).GreaterThan(MaxAmount):
			return fmt.Errorf("%w: items[%d]: price exceeds %s", ErrInvalidRequest, i, MaxAmount)
		}
	}
	return nil
}

// ProductIDs returns the distinct product ids in first-seen order.
func (r CheckoutRequest) ProductIDs() []uint {
	seen := make(map[ProductRef]struct{}, len(r.Items))
	ids := make([]uint, 0, len(r.Items))
	for _, item := range r.Items {
		if _, ok := seen[item.ID]; ok {
			continue
		}
		seen[item.ID] = struct{}{}
		ids = append(ids, uint(item.ID))
	}
	return ids
}

type FeedbackRequest struct {
	Name    string `json:"name" binding:"required"`
	Email   string `json:"email" binding:"required,email"`
	Message string `json:"message" binding:"required"`
}

func (r FeedbackRequest) Validate() error {
	switch {
	case strings.TrimSpace(r.Name) == "":
		return fmt.Errorf("%w: name is required", ErrInvalidRequest)
	case strings.TrimSpace(r.Email) == "":
		return fmt.Errorf("%w: email is required", ErrInvalidRequest)
	case strings.TrimSpace(r.Message) == "":
		return fmt.Errorf("%w: message is required", ErrInvalidRequest)
	}
	return nil
}
