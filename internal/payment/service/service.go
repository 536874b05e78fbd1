package service

import (
	"context"
	"errors"
	"time"

	"subgate/internal/metrics"
	"subgate/internal/payment"
)

type PaymentRepository interface {
	Apply(ctx context.Context, externalID int64, p *payment.Payment, now time.Time) (time.Time, error)
}

type Service struct {
	repo PaymentRepository
}

func NewService(repo PaymentRepository) *Service {
	return &Service{repo: repo}
}

// Apply converts one confirmed payment notification into one subscription
// extension. Submitting the same invoice payload twice fails with
// ErrDuplicatePayment and leaves the expiry untouched.
func (s *Service) Apply(ctx context.Context, externalID int64, amount int64, days int, currency, invoicePayload string, now time.Time) (time.Time, error) {
	if amount <= 0 || days <= 0 || invoicePayload == "" {
		return time.Time{}, payment.ErrInvalidAmountOrDays
	}

	p := &payment.Payment{
		Amount:         amount,
		Days:           days,
		Currency:       currency,
		InvoicePayload: invoicePayload,
	}

	newExpiry, err := s.repo.Apply(ctx, externalID, p, now)
	if err != nil {
		metrics.PaymentsTotal.WithLabelValues(paymentOutcome(err)).Inc()
		return time.Time{}, err
	}

	metrics.PaymentsTotal.WithLabelValues("applied").Inc()
	metrics.SubscriptionDaysGranted.WithLabelValues("payment").Add(float64(days))

	return newExpiry, nil
}

func paymentOutcome(err error) string {
	switch {
	case errors.Is(err, payment.ErrUnknownUser):
		return "unknown_user"
	case errors.Is(err, payment.ErrDuplicatePayment):
		return "duplicate"
	default:
		return "error"
	}
}
