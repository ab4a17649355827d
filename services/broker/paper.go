package broker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Cristiano-Saldanha-Uk/Scalping-Bot/services/engine"
)

// Paper accepts every order and reports a fixed buying power
type Paper struct {
	mu          sync.Mutex
	buyingPower float64
	fills       []Fill

	// Reject, when set, may refuse an order before it is recorded
	Reject func(engine.Order) error
}

func NewPaper(buyingPower float64) *Paper {
	return &Paper{buyingPower: buyingPower}
}

func (p *Paper) BuyingPower(context.Context) (float64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.buyingPower, nil
}

func (p *Paper) SetBuyingPower(v float64) {
	p.mu.Lock()
	p.buyingPower = v
	p.mu.Unlock()
}

func (p *Paper) Submit(ctx context.Context, order engine.Order) (Fill, error) {
	if err := ctx.Err(); err != nil {
		return Fill{}, err
	}
	if order.Quantity <= 0 {
		return Fill{}, fmt.Errorf("%w: quantity %v", ErrRejected, order.Quantity)
	}
	if p.Reject != nil {
		if err := p.Reject(order); err != nil {
			return Fill{}, err
		}
	}
	if order.ClientID == "" {
		order.ClientID = uuid.NewString()
	}
	fill := Fill{
		OrderID:     uuid.NewString(),
		ClientID:    order.ClientID,
		Symbol:      order.Symbol,
		Side:        order.Side,
		Quantity:    order.Quantity,
		Status:      "filled",
		SubmittedAt: time.Now().UTC(),
	}
	p.mu.Lock()
	p.fills = append(p.fills, fill)
	p.mu.Unlock()
	return fill, nil
}

func (p *Paper) Fills() []Fill {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Fill(nil), p.fills...)
}

func (p *Paper) Ping(ctx context.Context) error { return ctx.Err() }
