package billing

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repo is the Postgres store. Every mutating method runs one transaction:
// either everything it names commits, or nothing does.
type Repo struct {
	log            *slog.Logger
	pool           *pgxpool.Pool
	acquireTimeout time.Duration
}

func NewRepo(log *slog.Logger, pool *pgxpool.Pool, acquireTimeout time.Duration) *Repo {
	if acquireTimeout <= 0 {
		acquireTimeout = 5 * time.Second
	}
	return &Repo{log: log, pool: pool, acquireTimeout: acquireTimeout}
}

// begin checks a connection out of the pool, bounded by the acquire timeout,
// and opens a transaction on it. The caller releases the connection and the
// rollback is a no-op after commit.
func (r *Repo) begin(ctx context.Context) (*pgxpool.Conn, pgx.Tx, error) {
	acquireCtx, cancel := context.WithTimeout(ctx, r.acquireTimeout)
	defer cancel()

	conn, err := r.pool.Acquire(acquireCtx)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrConnUnavailable, err)
	}
	tx, err := conn.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		conn.Release()
		return nil, nil, classify(err)
	}
	return conn, tx, nil
}

// CreateOrder is the only path that creates orders. Steps, in fixed order:
// insert the PENDING order row with zero amounts, batch-insert its items,
// decrement inventory per recipe, write the computed pricing back onto the
// order row, append the audit entry, commit.
func (r *Repo) CreateOrder(ctx context.Context, draft *Order) (int64, []LowStock, error) {
	conn, tx, err := r.begin(ctx)
	if err != nil {
		return 0, nil, err
	}
	defer conn.Release()
	defer tx.Rollback(ctx)

	var orderID int64
	err = tx.QueryRow(ctx, `
		INSERT INTO orders (customer_name, customer_category, status, discount_id, tax_id,
		                    subtotal_cents, discount_cents, tax_cents, total_cents)
		VALUES ($1, $2, 'PENDING', $3, $4, 0, 0, 0, 0)
		RETURNING id`,
		draft.CustomerName, draft.Category, draft.DiscountID, draft.TaxID,
	).Scan(&orderID)
	if err != nil {
		return 0, nil, classify(err)
	}

	batch := &pgx.Batch{}
	for _, it := range draft.Items {
		batch.Queue(`
			INSERT INTO order_items (order_id, menu_item_id, quantity, unit_price_cents, line_total_cents)
			VALUES ($1, $2, $3, $4, $5)`,
			orderID, it.MenuItemID, it.Quantity, it.UnitPriceCents, it.LineTotalCents)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return 0, nil, classify(err)
	}

	low, err := r.consumeInventory(ctx, tx, draft.Items)
	if err != nil {
		return 0, nil, err
	}

	if _, err := tx.Exec(ctx, `
		UPDATE orders
		SET subtotal_cents=$2, discount_cents=$3, tax_cents=$4, total_cents=$5, updated_at=now()
		WHERE id=$1`,
		orderID, draft.SubtotalCents, draft.DiscountCents, draft.TaxCents, draft.TotalCents,
	); err != nil {
		return 0, nil, classify(err)
	}

	if err := r.appendAudit(ctx, tx, nil, "order.created", "order", orderID,
		fmt.Sprintf("order for %s, %d items, total %d cents", draft.CustomerName, len(draft.Items), draft.TotalCents),
	); err != nil {
		return 0, nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, nil, classify(err)
	}
	return orderID, low, nil
}

// consumeInventory is the inventory ledger: for every order item it loads the
// recipe and decrements each ingredient under a row lock, in the same
// transaction as the item inserts. A decrement that would go negative rejects
// the whole order. Menu items without a recipe consume nothing.
func (r *Repo) consumeInventory(ctx context.Context, tx pgx.Tx, items []OrderItem) ([]LowStock, error) {
	menuIDs := make([]int64, 0, len(items))
	qtyByMenu := make(map[int64]int, len(items))
	for _, it := range items {
		menuIDs = append(menuIDs, it.MenuItemID)
		qtyByMenu[it.MenuItemID] += it.Quantity
	}

	rows, err := tx.Query(ctx, `
		SELECT menu_item_id, ingredient_id, qty_per_unit
		FROM recipes
		WHERE menu_item_id = ANY($1)`, menuIDs)
	if err != nil {
		return nil, classify(err)
	}
	needs := map[int64]float64{}
	for rows.Next() {
		var line RecipeLine
		if err := rows.Scan(&line.MenuItemID, &line.IngredientID, &line.QtyPerUnit); err != nil {
			rows.Close()
			return nil, classify(err)
		}
		needs[line.IngredientID] += line.QtyPerUnit * float64(qtyByMenu[line.MenuItemID])
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, classify(err)
	}

	// Lock ingredients in id order so concurrent orders cannot deadlock.
	ingredientIDs := make([]int64, 0, len(needs))
	for id := range needs {
		ingredientIDs = append(ingredientIDs, id)
	}
	sort.Slice(ingredientIDs, func(i, j int) bool { return ingredientIDs[i] < ingredientIDs[j] })

	var low []LowStock
	for _, id := range ingredientIDs {
		need := needs[id]
		var name string
		var onHand, threshold float64
		err := tx.QueryRow(ctx, `
			SELECT name, quantity, min_threshold
			FROM inventory
			WHERE id=$1
			FOR UPDATE`, id).Scan(&name, &onHand, &threshold)
		if err != nil {
			return nil, classify(err)
		}
		if onHand < need {
			return nil, fmt.Errorf("%w: ingredient %q needs %.3f, has %.3f", ErrInsufficientStock, name, need, onHand)
		}
		if _, err := tx.Exec(ctx, `UPDATE inventory SET quantity = quantity - $2 WHERE id=$1`, id, need); err != nil {
			return nil, classify(err)
		}
		if remaining := onHand - need; remaining <= threshold {
			low = append(low, LowStock{IngredientID: id, Name: name, Remaining: remaining, Threshold: threshold})
		}
	}
	return low, nil
}

// RecordPayment settles an order. Steps, in fixed order: lock the order row,
// check it is payable, insert the payment, insert the invoice (unique per
// order, so a duplicate call fails here at the latest), flip the status to
// PAID, append the audit entry, commit.
func (r *Repo) RecordPayment(ctx context.Context, in PaymentInput, actor *string) (*Receipt, error) {
	conn, tx, err := r.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Release()
	defer tx.Rollback(ctx)

	var status Status
	var totalCents int64
	err = tx.QueryRow(ctx, `SELECT status, total_cents FROM orders WHERE id=$1 FOR UPDATE`, in.OrderID).
		Scan(&status, &totalCents)
	if err != nil {
		return nil, classify(err)
	}
	if !CanTransition(status, StatusPaid) {
		return nil, fmt.Errorf("%w: order %d is %s, not payable", ErrConstraint, in.OrderID, status)
	}

	var paymentID int64
	var paidAt time.Time
	err = tx.QueryRow(ctx, `
		INSERT INTO payments (order_id, amount_cents, method, reference)
		VALUES ($1, $2, $3, $4)
		RETURNING id, paid_at`,
		in.OrderID, in.AmountCents, in.Method, nullable(in.Reference),
	).Scan(&paymentID, &paidAt)
	if err != nil {
		return nil, classify(err)
	}

	issuedAt := time.Now().UTC()
	number := InvoiceNumber(in.OrderID, issuedAt)
	var invoiceID int64
	err = tx.QueryRow(ctx, `
		INSERT INTO invoices (order_id, payment_id, invoice_number, total_cents, issued_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`,
		in.OrderID, paymentID, number, totalCents, issuedAt,
	).Scan(&invoiceID)
	if err != nil {
		return nil, classify(err)
	}

	if _, err := tx.Exec(ctx, `UPDATE orders SET status=$2, updated_at=now() WHERE id=$1`,
		in.OrderID, StatusPaid); err != nil {
		return nil, classify(err)
	}

	if err := r.appendAudit(ctx, tx, actor, "payment.recorded", "order", in.OrderID,
		fmt.Sprintf("payment %d via %s for %d cents, invoice %s", paymentID, in.Method, in.AmountCents, number),
	); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, classify(err)
	}
	return &Receipt{
		OrderID:       in.OrderID,
		PaymentID:     paymentID,
		InvoiceID:     invoiceID,
		InvoiceNumber: number,
		AmountCents:   in.AmountCents,
		Status:        StatusPaid,
	}, nil
}

func (r *Repo) appendAudit(ctx context.Context, tx pgx.Tx, actor *string, action, entityType string, entityID int64, detail string) error {
	if _, err := tx.Exec(ctx, `
		INSERT INTO audit_log (actor, action, entity_type, entity_id, detail)
		VALUES ($1, $2, $3, $4, $5)`,
		actor, action, entityType, entityID, detail); err != nil {
		return classify(err)
	}
	return nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
