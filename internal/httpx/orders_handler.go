package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/Farhan41229/DataBrew-Cafe-Management-System/internal/billing"
	kafkax "github.com/Farhan41229/DataBrew-Cafe-Management-System/internal/kafka"
	"github.com/Farhan41229/DataBrew-Cafe-Management-System/internal/redisx"
)

// BillingService is what the transport needs from the engine.
type BillingService interface {
	CreateOrder(ctx context.Context, in billing.CreateOrderInput) (*billing.OrderResult, error)
	RecordPayment(ctx context.Context, in billing.PaymentInput) (*billing.Receipt, error)
	GetOrder(ctx context.Context, id int64) (*billing.Order, error)
	GetOrderStatus(ctx context.Context, id int64) (billing.Status, error)
	ListMenu(ctx context.Context) ([]billing.MenuItem, error)
	Today(ctx context.Context) (*billing.TodayStats, error)
	AuditTrail(ctx context.Context, entityType string, entityID int64) ([]billing.AuditEntry, error)
}

type OrdersHandler struct {
	Service     BillingService
	Redis       *redis.Client
	Created     *kafkax.Producer // order.created
	Paid        *kafkax.Producer // order.paid
	StockLow    *kafkax.Producer // inventory.stock.low
	ServiceName string
}

type createOrderResp struct {
	OrderID       int64 `json:"order_id"`
	SubtotalCents int64 `json:"subtotal_cents"`
	DiscountCents int64 `json:"discount_cents"`
	TaxCents      int64 `json:"tax_cents"`
	TotalCents    int64 `json:"total_cents"`
}

func (h *OrdersHandler) Register(r *chi.Mux) {
	r.Post("/orders", h.createOrder)
	r.Get("/orders/{id}", h.getOrder)
	r.Get("/orders/{id}/status", h.getOrderStatus)
	r.Post("/orders/{id}/payments", h.recordPayment)
	r.Get("/orders/{id}/audit", h.auditTrail)
	r.Get("/menu", h.listMenu)
	r.Get("/stats/today", h.todayStats)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, err error) {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, billing.ErrValidation):
		code = http.StatusBadRequest
	case errors.Is(err, billing.ErrNotFound):
		code = http.StatusNotFound
	case errors.Is(err, billing.ErrConstraint):
		code = http.StatusConflict
	case errors.Is(err, billing.ErrConnUnavailable):
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]string{"error": err.Error()})
}

func (h *OrdersHandler) createOrder(w http.ResponseWriter, r *http.Request) {
	var req billing.CreateOrderInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	res, err := h.Service.CreateOrder(ctx, req)
	if err != nil {
		writeErr(w, err)
		return
	}

	// Cache status so GETs stay off the database.
	statusKey := fmt.Sprintf(redisx.KeyOrderStatus, res.OrderID)
	_ = h.Redis.Set(ctx, statusKey, `{"status":"PENDING"}`, redisx.TTLStatusCache).Err()

	h.publish(h.Created, res.OrderID, billing.EventOrderCreated, billing.OrderCreatedPayload{
		OrderID:      res.OrderID,
		CustomerName: req.CustomerName,
		Category:     req.Category,
		Items:        res.Items,
		TotalCents:   res.Quote.TotalCents,
	})
	if len(res.LowStock) > 0 {
		h.publish(h.StockLow, res.OrderID, billing.EventStockLow, billing.StockLowPayload{
			OrderID:     res.OrderID,
			Ingredients: res.LowStock,
		})
	}

	writeJSON(w, http.StatusCreated, createOrderResp{
		OrderID:       res.OrderID,
		SubtotalCents: res.Quote.SubtotalCents,
		DiscountCents: res.Quote.DiscountCents,
		TaxCents:      res.Quote.TaxCents,
		TotalCents:    res.Quote.TotalCents,
	})
}

func (h *OrdersHandler) recordPayment(w http.ResponseWriter, r *http.Request) {
	orderID, err := pathID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order id"})
		return
	}
	var req billing.PaymentInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	req.OrderID = orderID

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	rcpt, err := h.Service.RecordPayment(ctx, req)
	if err != nil {
		writeErr(w, err)
		return
	}

	statusKey := fmt.Sprintf(redisx.KeyOrderStatus, orderID)
	_ = h.Redis.Set(ctx, statusKey, `{"status":"PAID"}`, redisx.TTLStatusCache).Err()

	h.publish(h.Paid, orderID, billing.EventOrderPaid, billing.OrderPaidPayload{
		OrderID:       orderID,
		PaymentID:     rcpt.PaymentID,
		InvoiceNumber: rcpt.InvoiceNumber,
		AmountCents:   rcpt.AmountCents,
	})

	writeJSON(w, http.StatusCreated, rcpt)
}

func (h *OrdersHandler) getOrder(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order id"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	o, err := h.Service.GetOrder(ctx, id)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *OrdersHandler) getOrderStatus(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order id"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	// cache first, database as fallback
	key := fmt.Sprintf(redisx.KeyOrderStatus, id)
	if s, err := h.Redis.Get(ctx, key).Result(); err == nil && s != "" {
		writeJSON(w, http.StatusOK, json.RawMessage(s))
		return
	}

	status, err := h.Service.GetOrderStatus(ctx, id)
	if err != nil {
		writeErr(w, err)
		return
	}
	b, _ := json.Marshal(map[string]billing.Status{"status": status})
	_ = h.Redis.Set(ctx, key, b, redisx.TTLStatusCache).Err()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(b)
}

func (h *OrdersHandler) auditTrail(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order id"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	entries, err := h.Service.AuditTrail(ctx, "order", id)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (h *OrdersHandler) listMenu(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	items, err := h.Service.ListMenu(ctx)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *OrdersHandler) todayStats(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	stats, err := h.Service.Today(ctx)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *OrdersHandler) publish(p *kafkax.Producer, orderID int64, eventType string, payload any) {
	ev := billing.Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      h.ServiceName,
		CorrelationID: strconv.FormatInt(orderID, 10),
		Payload:       kafkax.MustMarshal(payload),
	}
	p.Publish(billing.PartitionKey(orderID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(eventType)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}

func pathID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}
