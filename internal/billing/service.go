package billing

import (
	"context"
	"errors"
	"log/slog"
	"strings"
)

// Store is the persistence boundary of the engine. *Repo is the Postgres
// implementation; tests substitute a fake.
type Store interface {
	// CreateOrder commits the priced draft, its items, the inventory
	// decrements and an audit entry as one transaction. It returns the
	// generated order id and the ingredients left at or below threshold.
	CreateOrder(ctx context.Context, draft *Order) (int64, []LowStock, error)

	// RecordPayment commits payment, invoice, status flip and audit entry
	// as one transaction.
	RecordPayment(ctx context.Context, in PaymentInput, actor *string) (*Receipt, error)

	MenuPrices(ctx context.Context, menuItemIDs []int64) (map[int64]int64, error)
	FindDiscount(ctx context.Context, id int64) (*Discount, error)
	FindTax(ctx context.Context, id int64) (*Tax, error)

	GetOrder(ctx context.Context, id int64) (*Order, error)
	GetOrderStatus(ctx context.Context, id int64) (Status, error)
	ListMenu(ctx context.Context) ([]MenuItem, error)
	TodayRevenueCents(ctx context.Context) (int64, error)
	ActiveOrderCount(ctx context.Context) (int, error)
	ListAuditTrail(ctx context.Context, entityType string, entityID int64) ([]AuditEntry, error)
}

// ActorFunc supplies the audit actor for the current call, nil when unknown.
type ActorFunc func(ctx context.Context) *string

type Service struct {
	log   *slog.Logger
	store Store
	actor ActorFunc
}

func NewService(log *slog.Logger, store Store, actor ActorFunc) *Service {
	if actor == nil {
		actor = func(context.Context) *string { return nil }
	}
	return &Service{log: log, store: store, actor: actor}
}

type ItemInput struct {
	MenuItemID int64 `json:"menu_item_id"`
	Quantity   int   `json:"quantity"`
}

type CreateOrderInput struct {
	CustomerName string           `json:"customer_name"`
	Category     CustomerCategory `json:"customer_category"`
	Items        []ItemInput      `json:"items"`
	DiscountID   *int64           `json:"discount_id,omitempty"`
	TaxID        *int64           `json:"tax_id,omitempty"`
}

type OrderResult struct {
	OrderID  int64
	Quote    PriceQuote
	Items    []ItemLine
	LowStock []LowStock
}

type PaymentInput struct {
	OrderID     int64         `json:"-"`
	AmountCents int64         `json:"amount_cents"`
	Method      PaymentMethod `json:"method"`
	Reference   string        `json:"reference,omitempty"`
}

// Receipt is what a settled payment hands back to the caller.
type Receipt struct {
	OrderID       int64  `json:"order_id"`
	PaymentID     int64  `json:"payment_id"`
	InvoiceID     int64  `json:"invoice_id"`
	InvoiceNumber string `json:"invoice_number"`
	AmountCents   int64  `json:"amount_cents"`
	Status        Status `json:"status"`
}

// CreateOrder validates the cart, snapshots unit prices, quotes the pricing
// and hands the fully priced draft to the transaction coordinator. All
// validation happens before any write.
func (s *Service) CreateOrder(ctx context.Context, in CreateOrderInput) (*OrderResult, error) {
	if strings.TrimSpace(in.CustomerName) == "" {
		return nil, validationErr("customer name is required")
	}
	if !in.Category.Valid() {
		return nil, validationErr("unknown customer category %q", in.Category)
	}
	if len(in.Items) == 0 {
		return nil, validationErr("order has no items")
	}
	ids := make([]int64, 0, len(in.Items))
	for _, it := range in.Items {
		if it.Quantity <= 0 {
			return nil, validationErr("invalid quantity %d for menu item %d", it.Quantity, it.MenuItemID)
		}
		ids = append(ids, it.MenuItemID)
	}

	prices, err := s.store.MenuPrices(ctx, ids)
	if err != nil {
		return nil, err
	}

	draft := &Order{
		CustomerName: strings.TrimSpace(in.CustomerName),
		Category:     in.Category,
		Status:       StatusPending,
		DiscountID:   in.DiscountID,
		TaxID:        in.TaxID,
	}
	var subtotal int64
	lines := make([]ItemLine, 0, len(in.Items))
	for _, it := range in.Items {
		price, ok := prices[it.MenuItemID]
		if !ok {
			return nil, validationErr("menu item %d not found", it.MenuItemID)
		}
		lineTotal := int64(it.Quantity) * price
		subtotal += lineTotal
		draft.Items = append(draft.Items, OrderItem{
			MenuItemID:     it.MenuItemID,
			Quantity:       it.Quantity,
			UnitPriceCents: price,
			LineTotalCents: lineTotal,
		})
		lines = append(lines, ItemLine{MenuItemID: it.MenuItemID, Quantity: it.Quantity, UnitPriceCents: price})
	}

	discount, err := s.loadDiscount(ctx, in.DiscountID)
	if err != nil {
		return nil, err
	}
	tax, err := s.loadTax(ctx, in.TaxID)
	if err != nil {
		return nil, err
	}

	quote := Quote(subtotal, discount, tax, in.Category)
	draft.SubtotalCents = quote.SubtotalCents
	draft.DiscountCents = quote.DiscountCents
	draft.TaxCents = quote.TaxCents
	draft.TotalCents = quote.TotalCents

	orderID, low, err := s.store.CreateOrder(ctx, draft)
	if err != nil {
		return nil, err
	}
	s.log.Info("order created",
		"order_id", orderID,
		"customer", draft.CustomerName,
		"total_cents", quote.TotalCents,
		"low_stock", len(low))
	return &OrderResult{OrderID: orderID, Quote: quote, Items: lines, LowStock: low}, nil
}

// RecordPayment settles an order: payment row, invoice, PENDING→PAID flip and
// audit entry commit together or not at all. A second call for an already
// invoiced order fails with a constraint violation.
func (s *Service) RecordPayment(ctx context.Context, in PaymentInput) (*Receipt, error) {
	if in.OrderID <= 0 {
		return nil, validationErr("invalid order id %d", in.OrderID)
	}
	if in.AmountCents < 0 {
		return nil, validationErr("negative payment amount %d", in.AmountCents)
	}
	if !in.Method.Valid() {
		return nil, validationErr("unknown payment method %q", in.Method)
	}

	rcpt, err := s.store.RecordPayment(ctx, in, s.actor(ctx))
	if err != nil {
		return nil, err
	}
	s.log.Info("payment recorded",
		"order_id", rcpt.OrderID,
		"payment_id", rcpt.PaymentID,
		"invoice_number", rcpt.InvoiceNumber,
		"amount_cents", rcpt.AmountCents)
	return rcpt, nil
}

func (s *Service) GetOrder(ctx context.Context, id int64) (*Order, error) {
	return s.store.GetOrder(ctx, id)
}

func (s *Service) GetOrderStatus(ctx context.Context, id int64) (Status, error) {
	return s.store.GetOrderStatus(ctx, id)
}

func (s *Service) ListMenu(ctx context.Context) ([]MenuItem, error) {
	return s.store.ListMenu(ctx)
}

type TodayStats struct {
	RevenueCents int64 `json:"revenue_cents"`
	ActiveOrders int   `json:"active_orders"`
}

func (s *Service) Today(ctx context.Context) (*TodayStats, error) {
	revenue, err := s.store.TodayRevenueCents(ctx)
	if err != nil {
		return nil, err
	}
	active, err := s.store.ActiveOrderCount(ctx)
	if err != nil {
		return nil, err
	}
	return &TodayStats{RevenueCents: revenue, ActiveOrders: active}, nil
}

func (s *Service) AuditTrail(ctx context.Context, entityType string, entityID int64) ([]AuditEntry, error) {
	return s.store.ListAuditTrail(ctx, entityType, entityID)
}

func (s *Service) loadDiscount(ctx context.Context, id *int64) (*Discount, error) {
	if id == nil {
		return nil, nil
	}
	d, err := s.store.FindDiscount(ctx, *id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, validationErr("discount %d not found", *id)
		}
		return nil, err
	}
	return d, nil
}

func (s *Service) loadTax(ctx context.Context, id *int64) (*Tax, error) {
	if id == nil {
		return nil, nil
	}
	t, err := s.store.FindTax(ctx, *id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, validationErr("tax %d not found", *id)
		}
		return nil, err
	}
	return t, nil
}
