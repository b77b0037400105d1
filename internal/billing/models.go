package billing

import "time"

type CustomerCategory string

const (
	CategoryGeneral CustomerCategory = "GENERAL"
	CategoryStudent CustomerCategory = "STUDENT"
	CategoryStaff   CustomerCategory = "STAFF"
	CategoryLoyal   CustomerCategory = "LOYAL"
)

func (c CustomerCategory) Valid() bool {
	switch c {
	case CategoryGeneral, CategoryStudent, CategoryStaff, CategoryLoyal:
		return true
	}
	return false
}

type PaymentMethod string

const (
	MethodCash PaymentMethod = "CASH"
	MethodCard PaymentMethod = "CARD"
	MethodMFS  PaymentMethod = "MFS"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case MethodCash, MethodCard, MethodMFS:
		return true
	}
	return false
}

type DiscountKind string

const (
	DiscountPercent DiscountKind = "PERCENT"
	DiscountFlat    DiscountKind = "FLAT"
)

// Discount is read-only reference data. Value is a percentage for PERCENT
// discounts and an amount in cents for FLAT discounts.
type Discount struct {
	ID        int64
	Name      string
	Kind      DiscountKind
	Value     float64
	AppliesTo CustomerCategory
}

// Tax is read-only reference data. RatePercent applies to the
// post-discount amount.
type Tax struct {
	ID          int64
	Name        string
	RatePercent float64
}

type Order struct {
	ID            int64            `json:"id"`
	CustomerName  string           `json:"customer_name"`
	Category      CustomerCategory `json:"customer_category"`
	Status        Status           `json:"status"`
	DiscountID    *int64           `json:"discount_id,omitempty"`
	TaxID         *int64           `json:"tax_id,omitempty"`
	SubtotalCents int64            `json:"subtotal_cents"`
	DiscountCents int64            `json:"discount_cents"`
	TaxCents      int64            `json:"tax_cents"`
	TotalCents    int64            `json:"total_cents"`
	Items         []OrderItem      `json:"items"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
}

// OrderItem snapshots the menu price at order time. Immutable once inserted.
type OrderItem struct {
	ID             int64 `json:"id"`
	OrderID        int64 `json:"order_id"`
	MenuItemID     int64 `json:"menu_item_id"`
	Quantity       int   `json:"quantity"`
	UnitPriceCents int64 `json:"unit_price_cents"`
	LineTotalCents int64 `json:"line_total_cents"`
}

type MenuItem struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	PriceCents int64  `json:"price_cents"`
	Active     bool   `json:"active"`
}

// InventoryItem tracks on-hand quantity per ingredient. Quantity is in the
// ingredient's own unit and may be fractional (e.g. kilograms of beans).
type InventoryItem struct {
	ID           int64
	Name         string
	Unit         string
	Quantity     float64
	MinThreshold float64
}

// RecipeLine maps a menu item to one ingredient it consumes per unit sold.
type RecipeLine struct {
	MenuItemID   int64
	IngredientID int64
	QtyPerUnit   float64
}

type Payment struct {
	ID          int64
	OrderID     int64
	AmountCents int64
	Method      PaymentMethod
	Reference   string
	PaidAt      time.Time
}

type Invoice struct {
	ID         int64
	OrderID    int64
	PaymentID  *int64
	Number     string
	TotalCents int64
	IssuedAt   time.Time
}

type AuditEntry struct {
	ID         int64     `json:"id"`
	Actor      *string   `json:"actor,omitempty"`
	Action     string    `json:"action"`
	EntityType string    `json:"entity_type"`
	EntityID   int64     `json:"entity_id"`
	Detail     string    `json:"detail"`
	CreatedAt  time.Time `json:"created_at"`
}

// LowStock reports an ingredient that landed at or below its threshold
// after an order committed.
type LowStock struct {
	IngredientID int64   `json:"ingredient_id"`
	Name         string  `json:"name"`
	Remaining    float64 `json:"remaining"`
	Threshold    float64 `json:"threshold"`
}
