package billing

import (
	"fmt"
	"time"
)

// InvoiceNumber derives the unique invoice number for an order. Order ids are
// unique and at most one invoice exists per order, so the result is unique
// without any counter table.
func InvoiceNumber(orderID int64, issuedAt time.Time) string {
	return fmt.Sprintf("INV-%s-%06d", issuedAt.Format("20060102"), orderID)
}
