package billing

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
)

type fakeStore struct {
	prices    map[int64]int64
	discounts map[int64]*Discount
	taxes     map[int64]*Tax

	nextOrderID int64
	low         []LowStock
	createErr   error
	created     *Order

	receipt    *Receipt
	paymentErr error
	paymentIn  *PaymentInput
	actor      *string
}

func (f *fakeStore) CreateOrder(_ context.Context, draft *Order) (int64, []LowStock, error) {
	if f.createErr != nil {
		return 0, nil, f.createErr
	}
	f.created = draft
	return f.nextOrderID, f.low, nil
}

func (f *fakeStore) RecordPayment(_ context.Context, in PaymentInput, actor *string) (*Receipt, error) {
	if f.paymentErr != nil {
		return nil, f.paymentErr
	}
	f.paymentIn = &in
	f.actor = actor
	return f.receipt, nil
}

func (f *fakeStore) MenuPrices(_ context.Context, ids []int64) (map[int64]int64, error) {
	out := map[int64]int64{}
	for _, id := range ids {
		if p, ok := f.prices[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

func (f *fakeStore) FindDiscount(_ context.Context, id int64) (*Discount, error) {
	if d, ok := f.discounts[id]; ok {
		return d, nil
	}
	return nil, ErrNotFound
}

func (f *fakeStore) FindTax(_ context.Context, id int64) (*Tax, error) {
	if t, ok := f.taxes[id]; ok {
		return t, nil
	}
	return nil, ErrNotFound
}

func (f *fakeStore) GetOrder(context.Context, int64) (*Order, error)       { return nil, ErrNotFound }
func (f *fakeStore) GetOrderStatus(context.Context, int64) (Status, error) { return "", ErrNotFound }
func (f *fakeStore) ListMenu(context.Context) ([]MenuItem, error)          { return nil, nil }
func (f *fakeStore) TodayRevenueCents(context.Context) (int64, error)      { return 0, nil }
func (f *fakeStore) ActiveOrderCount(context.Context) (int, error)         { return 0, nil }
func (f *fakeStore) ListAuditTrail(context.Context, string, int64) ([]AuditEntry, error) {
	return nil, nil
}

func newTestService(store *fakeStore, actor ActorFunc) *Service {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(log, store, actor)
}

func ptr[T any](v T) *T { return &v }

func TestCreateOrderValidation(t *testing.T) {
	store := &fakeStore{prices: map[int64]int64{1: 250}}
	svc := newTestService(store, nil)
	ctx := context.Background()

	tests := []struct {
		name string
		in   CreateOrderInput
	}{
		{"empty customer name", CreateOrderInput{Category: CategoryGeneral, Items: []ItemInput{{1, 1}}}},
		{"unknown category", CreateOrderInput{CustomerName: "Amin", Category: "VIP", Items: []ItemInput{{1, 1}}}},
		{"empty cart", CreateOrderInput{CustomerName: "Amin", Category: CategoryGeneral}},
		{"zero quantity", CreateOrderInput{CustomerName: "Amin", Category: CategoryGeneral, Items: []ItemInput{{1, 0}}}},
		{"negative quantity", CreateOrderInput{CustomerName: "Amin", Category: CategoryGeneral, Items: []ItemInput{{1, -2}}}},
		{"unknown menu item", CreateOrderInput{CustomerName: "Amin", Category: CategoryGeneral, Items: []ItemInput{{99, 1}}}},
		{"unknown discount", CreateOrderInput{CustomerName: "Amin", Category: CategoryGeneral, Items: []ItemInput{{1, 1}}, DiscountID: ptr(int64(404))}},
		{"unknown tax", CreateOrderInput{CustomerName: "Amin", Category: CategoryGeneral, Items: []ItemInput{{1, 1}}, TaxID: ptr(int64(404))}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateOrder(ctx, tt.in)
			if !errors.Is(err, ErrValidation) {
				t.Fatalf("want ErrValidation, got %v", err)
			}
			if store.created != nil {
				t.Fatal("store must not be written on validation failure")
			}
		})
	}
}

func TestCreateOrderPricesDraft(t *testing.T) {
	store := &fakeStore{
		prices:      map[int64]int64{1: 2500, 2: 5000},
		discounts:   map[int64]*Discount{10: {ID: 10, Kind: DiscountPercent, Value: 10, AppliesTo: CategoryStudent}},
		taxes:       map[int64]*Tax{20: {ID: 20, RatePercent: 15}},
		nextOrderID: 77,
		low:         []LowStock{{IngredientID: 3, Name: "beans", Remaining: 1.5, Threshold: 2}},
	}
	svc := newTestService(store, nil)

	res, err := svc.CreateOrder(context.Background(), CreateOrderInput{
		CustomerName: "  Nadia ",
		Category:     CategoryStudent,
		Items:        []ItemInput{{MenuItemID: 1, Quantity: 2}, {MenuItemID: 2, Quantity: 1}},
		DiscountID:   ptr(int64(10)),
		TaxID:        ptr(int64(20)),
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.OrderID != 77 {
		t.Errorf("order id = %d, want 77", res.OrderID)
	}

	draft := store.created
	if draft == nil {
		t.Fatal("draft not handed to the store")
	}
	if draft.CustomerName != "Nadia" {
		t.Errorf("customer name = %q", draft.CustomerName)
	}
	if draft.Status != StatusPending {
		t.Errorf("status = %s, want PENDING", draft.Status)
	}

	// subtotal 100.00: 2x25.00 + 1x50.00; student 10% off, 15% tax on 90.00
	var sum int64
	for _, it := range draft.Items {
		if it.LineTotalCents != int64(it.Quantity)*it.UnitPriceCents {
			t.Errorf("line total %d != qty*unit for item %d", it.LineTotalCents, it.MenuItemID)
		}
		sum += it.LineTotalCents
	}
	if draft.SubtotalCents != sum || draft.SubtotalCents != 10000 {
		t.Errorf("subtotal = %d, want 10000 (= sum of lines %d)", draft.SubtotalCents, sum)
	}
	if draft.DiscountCents != 1000 || draft.TaxCents != 1350 || draft.TotalCents != 10350 {
		t.Errorf("pricing = %d/%d/%d, want 1000/1350/10350",
			draft.DiscountCents, draft.TaxCents, draft.TotalCents)
	}
	if draft.TotalCents != draft.SubtotalCents-draft.DiscountCents+draft.TaxCents {
		t.Error("total invariant broken")
	}
	if len(res.LowStock) != 1 || res.LowStock[0].Name != "beans" {
		t.Errorf("low stock not passed through: %+v", res.LowStock)
	}
}

func TestCreateOrderPropagatesStoreError(t *testing.T) {
	store := &fakeStore{
		prices:    map[int64]int64{1: 100},
		createErr: ErrInsufficientStock,
	}
	svc := newTestService(store, nil)
	_, err := svc.CreateOrder(context.Background(), CreateOrderInput{
		CustomerName: "Amin", Category: CategoryGeneral, Items: []ItemInput{{1, 1}},
	})
	if !errors.Is(err, ErrConstraint) {
		t.Fatalf("want constraint violation, got %v", err)
	}
}

func TestRecordPaymentValidation(t *testing.T) {
	store := &fakeStore{}
	svc := newTestService(store, nil)
	ctx := context.Background()

	tests := []struct {
		name string
		in   PaymentInput
	}{
		{"bad order id", PaymentInput{OrderID: 0, AmountCents: 100, Method: MethodCash}},
		{"negative amount", PaymentInput{OrderID: 1, AmountCents: -1, Method: MethodCash}},
		{"unknown method", PaymentInput{OrderID: 1, AmountCents: 100, Method: "CHEQUE"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.RecordPayment(ctx, tt.in)
			if !errors.Is(err, ErrValidation) {
				t.Fatalf("want ErrValidation, got %v", err)
			}
			if store.paymentIn != nil {
				t.Fatal("store must not be touched on validation failure")
			}
		})
	}
}

func TestRecordPaymentPassesActor(t *testing.T) {
	store := &fakeStore{
		receipt: &Receipt{OrderID: 42, PaymentID: 9, InvoiceID: 5, InvoiceNumber: "INV-20260128-000042", AmountCents: 10350, Status: StatusPaid},
	}
	svc := newTestService(store, func(context.Context) *string { return ptr("cashier-1") })

	rcpt, err := svc.RecordPayment(context.Background(), PaymentInput{
		OrderID: 42, AmountCents: 10350, Method: MethodCard, Reference: "visa",
	})
	if err != nil {
		t.Fatal(err)
	}
	if rcpt.Status != StatusPaid || rcpt.InvoiceNumber != "INV-20260128-000042" {
		t.Errorf("unexpected receipt %+v", rcpt)
	}
	if store.actor == nil || *store.actor != "cashier-1" {
		t.Errorf("actor not passed through: %v", store.actor)
	}
	if store.paymentIn.Method != MethodCard || store.paymentIn.Reference != "visa" {
		t.Errorf("payment input not passed through: %+v", store.paymentIn)
	}
}

func TestRecordPaymentDuplicateFails(t *testing.T) {
	store := &fakeStore{paymentErr: ErrConstraint}
	svc := newTestService(store, nil)
	_, err := svc.RecordPayment(context.Background(), PaymentInput{
		OrderID: 42, AmountCents: 10350, Method: MethodCash,
	})
	if !errors.Is(err, ErrConstraint) {
		t.Fatalf("second settlement must surface the constraint violation, got %v", err)
	}
}
