package redisx

import "time"

const (
	// Cache of an order's status: order_status:{order_id} -> {"status":"..."}
	KeyOrderStatus = "order_status:%d"

	// Dedup of consumed events: dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"

	// Latest low-stock alert per ingredient: stock_alert:{ingredient_id}
	KeyStockAlert = "stock_alert:%d"
)

var (
	TTLStatusCache = 5 * time.Minute
	TTLDedup       = 48 * time.Hour
	TTLStockAlert  = 24 * time.Hour
)
