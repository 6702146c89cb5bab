package exchange

import (
	"errors"
	"fmt"
	"time"

	"scalpbot/internal/market"
)

// ErrGatewayFailure marks any failed call to an exchange: transport, auth, or
// a rejection by the venue.
var ErrGatewayFailure = errors.New("gateway failure")

// CallError carries the operation that failed alongside the venue error.
type CallError struct {
	Gateway string
	Op      string
	Err     error
}

func (e *CallError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Gateway, e.Op, e.Err)
}

func (e *CallError) Unwrap() error { return e.Err }

func (e *CallError) Is(target error) bool { return target == ErrGatewayFailure }

// Wrap tags err as a gateway failure of op. A nil err stays nil.
func Wrap(gateway, op string, err error) error {
	if err == nil {
		return nil
	}
	return &CallError{Gateway: gateway, Op: op, Err: err}
}

// Ack acknowledges a settings change.
type Ack struct {
	Symbol   string
	Leverage int
}

// ConditionalOrder is a reduce-only trigger order protecting an open position.
type ConditionalOrder struct {
	Side         market.Side
	Quantity     float64
	Kind         market.ConditionalKind
	TriggerPrice float64
}

// OrderAck is the venue's receipt for a submitted order.
type OrderAck struct {
	OrderID     string
	Symbol      string
	Side        market.Side
	Kind        string
	Quantity    float64
	Price       float64
	Status      string
	SubmittedAt time.Time
}
