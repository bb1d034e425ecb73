package payment

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	dompay "github.com/Zhima-Mochi/minishop-fulfillment/internal/domain/payment"
)

var errRefundDeclined = errors.New("payment simulator: refund declined by processor")

// Simulator stands in for an external processor. Charges and refunds succeed
// with the configured probabilities; a declined charge is reported as
// StatusFailed and a declined refund as an error. Completed refunds are
// remembered by payment ID and replayed on repeat requests.
type Simulator struct {
	mu                sync.Mutex
	random            *rand.Rand
	successRate       float64
	refundSuccessRate float64
	refunds           map[string]*dompay.Payment
}

var _ dompay.Gateway = (*Simulator)(nil)

func NewSimulator(successRate, refundSuccessRate float64) *Simulator {
	return &Simulator{
		random:            rand.New(rand.NewSource(time.Now().UnixNano())),
		successRate:       clamp(successRate),
		refundSuccessRate: clamp(refundSuccessRate),
		refunds:           make(map[string]*dompay.Payment),
	}
}

func (s *Simulator) Process(ctx context.Context, req dompay.Request) (*dompay.Payment, error) {
	// respect cancellation even though this is mocked
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	status := dompay.StatusFailed
	if s.roll(s.SuccessRate()) {
		status = dompay.StatusCompleted
	}
	now := time.Now().UTC()
	return &dompay.Payment{
		ID:            req.PaymentID,
		OrderID:       req.OrderID,
		Method:        req.Info.Method,
		Account:       req.Info.MaskedAccount(),
		Amount:        req.Amount,
		TransactionID: dompay.NewTransactionID(),
		Status:        status,
		PaidAt:        now,
		UpdatedAt:     now,
	}, nil
}

func (s *Simulator) Refund(ctx context.Context, p *dompay.Payment) (*dompay.Payment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	if prior, ok := s.refunds[p.ID]; ok {
		s.mu.Unlock()
		return prior.Clone(), nil
	}
	rate := s.refundSuccessRate
	s.mu.Unlock()
	if !s.roll(rate) {
		return nil, errRefundDeclined
	}

	refunded := p.Clone()
	if err := refunded.MarkRefunded(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if prior, ok := s.refunds[p.ID]; ok {
		return prior.Clone(), nil
	}
	s.refunds[p.ID] = refunded.Clone()
	return refunded, nil
}

// RefundCount reports how many distinct payments were refunded.
func (s *Simulator) RefundCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.refunds)
}

func (s *Simulator) roll(rate float64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rate >= 1 {
		return true
	}
	return s.random.Float64() < rate
}

func (s *Simulator) SuccessRate() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.successRate
}

// SetSuccessRate adjusts the charge success rate, clamped to [0,1].
func (s *Simulator) SetSuccessRate(rate float64) {
	s.mu.Lock()
	s.successRate = clamp(rate)
	s.mu.Unlock()
}

// SetRefundSuccessRate adjusts the refund success rate, clamped to [0,1].
func (s *Simulator) SetRefundSuccessRate(rate float64) {
	s.mu.Lock()
	s.refundSuccessRate = clamp(rate)
	s.mu.Unlock()
}

func clamp(rate float64) float64 {
	if rate < 0 {
		return 0
	}
	if rate > 1 {
		return 1
	}
	return rate
}
