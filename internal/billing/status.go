package billing

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusPaid      Status = "PAID"
	StatusCancelled Status = "CANCELLED"
)

// CANCELLED is a terminal state with no inbound transition: the schema and
// the reporting queries know about it, but no operation sets it. Adding a
// cancellation flow needs a product decision on refunds and stock returns,
// so the map deliberately leaves it unreachable.
var validNext = map[Status]map[Status]bool{
	StatusPending:   {StatusPaid: true},
	StatusPaid:      {},
	StatusCancelled: {},
}

func CanTransition(from, to Status) bool {
	return validNext[from][to]
}
