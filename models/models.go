package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const OrderStatusPending = "pending"

func init() {
	// Prices go over the wire as JSON numbers, the way the storefront reads them.
	decimal.MarshalJSONWithoutQuotes = true
}

type Product struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	Name        string          `gorm:"not null" json:"name"`
	Price       decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"price"`
	Description string          `json:"description"`
	ImageURL    string          `json:"image_url"`
}

type Order struct {
	ID           uint            `gorm:"primaryKey" json:"id"`
	CustomerName string          `gorm:"not null" json:"customer_name"`
	Email        string          `gorm:"not null" json:"email"`
	Address      string          `gorm:"not null" json:"address"`
	TotalAmount  decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"total_amount"`
	OrderDate    time.Time       `gorm:"not null" json:"order_date"`
	Status       string          `gorm:"not null;default:pending" json:"status"`
	Items        []OrderItem     `json:"items,omitempty"`
}

// OrderItem is one line of an order. Order and Product are only there so the
// migrator emits the foreign keys; they are never loaded or saved.
type OrderItem struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	OrderID   uint            `gorm:"not null;index" json:"order_id"`
	Order     *Order          `json:"-"`
	ProductID uint            `gorm:"not null;index" json:"product_id"`
	Product   *Product        `json:"-"`
	Quantity  int             `gorm:"not null" json:"quantity"`
	Price     decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"price"`
}

type Feedback struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"not null" json:"name"`
	Email     string    `gorm:"not null" json:"email"`
	Message   string    `gorm:"not null" json:"message"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
}

func (Feedback) TableName() string { return "feedback" }
