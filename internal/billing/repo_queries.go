package billing

import (
	"context"
)

// MenuPrices resolves active menu items to their current unit price. Missing
// ids are simply absent from the map; the order builder treats that as a
// validation failure.
func (r *Repo) MenuPrices(ctx context.Context, menuItemIDs []int64) (map[int64]int64, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, price_cents FROM menu_items WHERE id = ANY($1) AND active`, menuItemIDs)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	prices := make(map[int64]int64, len(menuItemIDs))
	for rows.Next() {
		var id, price int64
		if err := rows.Scan(&id, &price); err != nil {
			return nil, classify(err)
		}
		prices[id] = price
	}
	return prices, classify(rows.Err())
}

func (r *Repo) FindDiscount(ctx context.Context, id int64) (*Discount, error) {
	var d Discount
	err := r.pool.QueryRow(ctx, `
		SELECT id, name, kind, value, applies_to FROM discounts WHERE id=$1`, id).
		Scan(&d.ID, &d.Name, &d.Kind, &d.Value, &d.AppliesTo)
	if err != nil {
		return nil, classify(err)
	}
	return &d, nil
}

func (r *Repo) FindTax(ctx context.Context, id int64) (*Tax, error) {
	var t Tax
	err := r.pool.QueryRow(ctx, `
		SELECT id, name, rate_percent FROM taxes WHERE id=$1`, id).
		Scan(&t.ID, &t.Name, &t.RatePercent)
	if err != nil {
		return nil, classify(err)
	}
	return &t, nil
}

func (r *Repo) GetOrder(ctx context.Context, id int64) (*Order, error) {
	var o Order
	err := r.pool.QueryRow(ctx, `
		SELECT id, customer_name, customer_category, status, discount_id, tax_id,
		       subtotal_cents, discount_cents, tax_cents, total_cents, created_at, updated_at
		FROM orders WHERE id=$1`, id).
		Scan(&o.ID, &o.CustomerName, &o.Category, &o.Status, &o.DiscountID, &o.TaxID,
			&o.SubtotalCents, &o.DiscountCents, &o.TaxCents, &o.TotalCents, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, classify(err)
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, order_id, menu_item_id, quantity, unit_price_cents, line_total_cents
		FROM order_items WHERE order_id=$1 ORDER BY id`, id)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()
	for rows.Next() {
		var it OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.MenuItemID, &it.Quantity, &it.UnitPriceCents, &it.LineTotalCents); err != nil {
			return nil, classify(err)
		}
		o.Items = append(o.Items, it)
	}
	return &o, classify(rows.Err())
}

func (r *Repo) GetOrderStatus(ctx context.Context, id int64) (Status, error) {
	var s Status
	if err := r.pool.QueryRow(ctx, `SELECT status FROM orders WHERE id=$1`, id).Scan(&s); err != nil {
		return "", classify(err)
	}
	return s, nil
}

func (r *Repo) ListMenu(ctx context.Context) ([]MenuItem, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, price_cents, active FROM menu_items WHERE active ORDER BY name`)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	var out []MenuItem
	for rows.Next() {
		var m MenuItem
		if err := rows.Scan(&m.ID, &m.Name, &m.PriceCents, &m.Active); err != nil {
			return nil, classify(err)
		}
		out = append(out, m)
	}
	return out, classify(rows.Err())
}

func (r *Repo) TodayRevenueCents(ctx context.Context) (int64, error) {
	var revenue int64
	err := r.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(total_cents), 0)
		FROM orders
		WHERE created_at::date = CURRENT_DATE AND status <> 'CANCELLED'`).Scan(&revenue)
	if err != nil {
		return 0, classify(err)
	}
	return revenue, nil
}

func (r *Repo) ActiveOrderCount(ctx context.Context) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM orders WHERE status='PENDING'`).Scan(&n)
	if err != nil {
		return 0, classify(err)
	}
	return n, nil
}

func (r *Repo) ListAuditTrail(ctx context.Context, entityType string, entityID int64) ([]AuditEntry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, actor, action, entity_type, entity_id, detail, created_at
		FROM audit_log
		WHERE entity_type=$1 AND entity_id=$2
		ORDER BY id`, entityType, entityID)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	var out []AuditEntry
	for rows.Next() {
		var e AuditEntry
		if err := rows.Scan(&e.ID, &e.Actor, &e.Action, &e.EntityType, &e.EntityID, &e.Detail, &e.CreatedAt); err != nil {
			return nil, classify(err)
		}
		out = append(out, e)
	}
	return out, classify(rows.Err())
}
