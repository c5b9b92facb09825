package pipeline

import (
	"context"
	"errors"
	"strconv"

	"github.com/Megamind2600/resumerocketpro/internal/events"
	"github.com/Megamind2600/resumerocketpro/internal/payments"
	"github.com/Megamind2600/resumerocketpro/internal/records"
	"github.com/Megamind2600/resumerocketpro/internal/shared/metrics"
	"github.com/Megamind2600/resumerocketpro/internal/shared/telemetry"
)

// PaymentIntentResult is what the client needs to confirm a payment.
type PaymentIntentResult struct {
	Payment      records.Payment
	ClientSecret string
	// Reused is set when an open intent from an earlier call is returned.
	Reused bool
}

// PaymentStatusResult is the payment state for an optimization.
type PaymentStatusResult struct {
	Payment      records.Payment
	IntentStatus string
	CanDownload  bool
}

// CreatePaymentIntent opens a payment for an optimization. At most one
// pending Payment exists per optimization: an open intent is reused, a failed
// one is closed out and replaced, and a paid optimization is rejected.
func (s *Service) CreatePaymentIntent(ctx context.Context, optimizationID int64) (out PaymentIntentResult, err error) {
	done := s.track(StepCreatePayment)
	defer func() { done(err) }()

	if optimizationID <= 0 {
		return PaymentIntentResult{}, validationError("optimizationId must be positive")
	}
	opt, err := s.store.GetJobOptimization(ctx, optimizationID)
	if err != nil {
		return PaymentIntentResult{}, err
	}
	paid, err := records.HasSucceededPayment(ctx, s.store, opt.ID)
	if err != nil {
		return PaymentIntentResult{}, err
	}
	if paid {
		return PaymentIntentResult{}, ErrAlreadyPaid
	}

	latest, err := s.store.LatestPaymentForOptimization(ctx, opt.ID)
	switch {
	case errors.Is(err, records.ErrNotFound):
	case err != nil:
		return PaymentIntentResult{}, err
	case latest.Status == records.PaymentPending:
		reused, ok, err := s.reusePending(ctx, latest)
		if err != nil || ok {
			return reused, err
		}
	}

	callCtx, cancel := s.callTimeout(ctx)
	defer cancel()
	intent, err := s.payments.CreateIntent(callCtx, payments.Amount, s.currency, map[string]string{
		"optimizationId": strconv.FormatInt(opt.ID, 10),
		"resumeId":       strconv.FormatInt(opt.ResumeID, 10),
	})
	if err != nil {
		return PaymentIntentResult{}, collaboratorError(StepCreatePayment, "payments", err)
	}

	payment, err := s.store.CreatePayment(ctx, records.Payment{
		OptimizationID:          opt.ID,
		ExternalPaymentIntentID: intent.ID,
		Amount:                  payments.Amount,
		Currency:                s.currency,
		Status:                  records.PaymentPending,
	})
	if errors.Is(err, records.ErrPendingPaymentExists) {
		// a concurrent call opened a payment first
		telemetry.Warn("pipeline.payment_intent_orphaned", map[string]any{
			"optimization_id": opt.ID,
			"intent_id":       intent.ID,
		})
		latest, lerr := s.store.LatestPaymentForOptimization(ctx, opt.ID)
		if lerr != nil {
			return PaymentIntentResult{}, lerr
		}
		reused, ok, rerr := s.reusePending(ctx, latest)
		if rerr != nil {
			return PaymentIntentResult{}, rerr
		}
		if !ok {
			return PaymentIntentResult{}, err
		}
		return reused, nil
	}
	if err != nil {
		return PaymentIntentResult{}, err
	}

	s.publish(ctx, events.Event{
		Type:           events.PaymentCreated,
		ResumeID:       opt.ResumeID,
		OptimizationID: opt.ID,
		PaymentID:      payment.ID,
		Data:           map[string]any{"amount": payment.Amount, "currency": payment.Currency},
	})
	return PaymentIntentResult{Payment: payment, ClientSecret: intent.ClientSecret}, nil
}

// reusePending checks a pending payment with the provider. ok is true when
// the intent is still open and its client secret can be handed out again.
func (s *Service) reusePending(ctx context.Context, payment records.Payment) (out PaymentIntentResult, ok bool, err error) {
	callCtx, cancel := s.callTimeout(ctx)
	defer cancel()
	intent, err := s.payments.GetIntent(callCtx, payment.ExternalPaymentIntentID)
	if errors.Is(err, payments.ErrIntentNotFound) {
		_, err = s.applyStatus(ctx, payment, records.PaymentFailed)
		return PaymentIntentResult{}, false, err
	}
	if err != nil {
		return PaymentIntentResult{}, false, collaboratorError(StepCreatePayment, "payments", err)
	}

	switch intent.Status {
	case records.PaymentSucceeded:
		if _, err := s.applyStatus(ctx, payment, records.PaymentSucceeded); err != nil {
			return PaymentIntentResult{}, false, err
		}
		return PaymentIntentResult{}, false, ErrAlreadyPaid
	case records.PaymentFailed:
		_, err = s.applyStatus(ctx, payment, records.PaymentFailed)
		return PaymentIntentResult{}, false, err
	default:
		return PaymentIntentResult{Payment: payment, ClientSecret: intent.ClientSecret, Reused: true}, true, nil
	}
}

// PaymentStatus reports the latest payment for an optimization. A pending
// payment is checked with the provider and a terminal result is stored once;
// later calls read the stored value.
func (s *Service) PaymentStatus(ctx context.Context, optimizationID int64) (out PaymentStatusResult, err error) {
	done := s.track(StepPaymentStatus)
	defer func() { done(err) }()

	if optimizationID <= 0 {
		return PaymentStatusResult{}, validationError("optimizationId must be positive")
	}
	payment, err := s.store.LatestPaymentForOptimization(ctx, optimizationID)
	if err != nil {
		return PaymentStatusResult{}, err
	}

	intentStatus := string(payment.Status)
	if payment.Status == records.PaymentPending {
		callCtx, cancel := s.callTimeout(ctx)
		intent, err := s.payments.GetIntent(callCtx, payment.ExternalPaymentIntentID)
		cancel()
		if err != nil {
			return PaymentStatusResult{}, collaboratorError(StepPaymentStatus, "payments", err)
		}
		intentStatus = intent.RawStatus
		if intent.Status.Terminal() {
			payment, err = s.applyStatus(ctx, payment, intent.Status)
			if err != nil {
				return PaymentStatusResult{}, err
			}
		}
	}

	return PaymentStatusResult{
		Payment:      payment,
		IntentStatus: intentStatus,
		CanDownload:  payment.Status == records.PaymentSucceeded,
	}, nil
}

// applyStatus moves a pending payment to a terminal status and publishes the change.
func (s *Service) applyStatus(ctx context.Context, payment records.Payment, status records.PaymentStatus) (records.Payment, error) {
	updated, changed, err := s.store.UpdatePaymentStatus(ctx, payment.ID, status)
	if err != nil {
		return records.Payment{}, err
	}
	if changed {
		evType := events.PaymentFailed
		if updated.Status == records.PaymentSucceeded {
			evType = events.PaymentSucceeded
		}
		metrics.PaymentTransition(string(updated.Status))
		telemetry.Info("pipeline.payment_status_changed", map[string]any{
			"optimization_id": updated.OptimizationID,
			"payment_id":      updated.ID,
			"status":          string(updated.Status),
		})
		s.publish(ctx, events.Event{
			Type:           evType,
			OptimizationID: updated.OptimizationID,
			PaymentID:      updated.ID,
		})
	}
	return updated, nil
}
