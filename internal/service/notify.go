package service

import "github.com/resto-order/api/internal/database"

// OrderNotifier receives order lifecycle events after the change is
// committed. Implementations must not block and must not fail the caller.
type OrderNotifier interface {
	OrderEvent(event string, order database.Order)
}

type noopNotifier struct{}

func (noopNotifier) OrderEvent(string, database.Order) {}

func notifierOrNoop(n OrderNotifier) OrderNotifier {
	if n == nil {
		return noopNotifier{}
	}
	return n
}
