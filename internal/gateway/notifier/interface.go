// Package notifier delivers short text notifications about trades.
package notifier

import (
	"context"
	"errors"

	"scalpbot/internal/pkg/circuit"
)

// TextNotifier is the only capability the trading engine depends on.
type TextNotifier interface {
	SendText(ctx context.Context, text string) error
}

// Nop drops every message.
type Nop struct{}

func (Nop) SendText(context.Context, string) error { return nil }

// Guarded stops calling the wrapped notifier while its breaker is open.
type Guarded struct {
	next    TextNotifier
	breaker *circuit.Breaker
}

func NewGuarded(next TextNotifier, breaker *circuit.Breaker) *Guarded {
	return &Guarded{next: next, breaker: breaker}
}

func (g *Guarded) SendText(ctx context.Context, text string) error {
	if g.breaker == nil {
		return g.next.SendText(ctx, text)
	}
	err := g.breaker.Do(func() error { return g.next.SendText(ctx, text) })
	if errors.Is(err, circuit.ErrOpen) {
		return nil
	}
	return err
}
