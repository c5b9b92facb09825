package records

import (
	"context"
	"errors"
)

// Store persists the pipeline entities. Ids are assigned by the store, are
// strictly increasing per kind and are never reused. List results are ordered
// by id ascending.
type Store interface {
	CreateUser(ctx context.Context, email string) (User, error)
	GetUser(ctx context.Context, id int64) (User, error)
	GetUserByEmail(ctx context.Context, email string) (User, error)

	CreateResume(ctx context.Context, resume Resume) (Resume, error)
	GetResume(ctx context.Context, id int64) (Resume, error)
	ListResumesByUser(ctx context.Context, userID int64) ([]Resume, error)

	CreateResumeAnalysis(ctx context.Context, analysis ResumeAnalysis) (ResumeAnalysis, error)
	GetResumeAnalysis(ctx context.Context, id int64) (ResumeAnalysis, error)
	ListAnalysesByResume(ctx context.Context, resumeID int64) ([]ResumeAnalysis, error)
	LatestAnalysisForResume(ctx context.Context, resumeID int64) (ResumeAnalysis, error)

	CreateJobOptimization(ctx context.Context, opt JobOptimization) (JobOptimization, error)
	GetJobOptimization(ctx context.Context, id int64) (JobOptimization, error)
	ListOptimizationsByResume(ctx context.Context, resumeID int64) ([]JobOptimization, error)

	CreatePayment(ctx context.Context, payment Payment) (Payment, error)
	GetPayment(ctx context.Context, id int64) (Payment, error)
	ListPaymentsByOptimization(ctx context.Context, optimizationID int64) ([]Payment, error)
	LatestPaymentForOptimization(ctx context.Context, optimizationID int64) (Payment, error)
	// UpdatePaymentStatus reports changed only for the call that moved the
	// payment out of pending.
	UpdatePaymentStatus(ctx context.Context, id int64, status PaymentStatus) (p Payment, changed bool, err error)

	// InTx runs fn as one unit of work. Records created by fn are committed
	// together when fn returns nil and discarded otherwise.
	InTx(ctx context.Context, fn func(Store) error) error
}

// GetOrCreateUser returns the user with email, creating it when absent.
func GetOrCreateUser(ctx context.Context, s Store, email string) (User, error) {
	email = NormalizeEmail(email)
	user, err := s.GetUserByEmail(ctx, email)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return User{}, err
	}
	user, err = s.CreateUser(ctx, email)
	if errors.Is(err, ErrDuplicateEmail) {
		return s.GetUserByEmail(ctx, email)
	}
	return user, err
}

// HasSucceededPayment reports whether any payment for the optimization succeeded.
func HasSucceededPayment(ctx context.Context, s Store, optimizationID int64) (bool, error) {
	payments, err := s.ListPaymentsByOptimization(ctx, optimizationID)
	if err != nil {
		return false, err
	}
	for _, p := range payments {
		if p.Status == PaymentSucceeded {
			return true, nil
		}
	}
	return false, nil
}
