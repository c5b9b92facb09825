package records

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
)

func newMockStore(t *testing.T) (*PGStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return NewPGStore(db), mock
}

func TestPGStoreCreateUserNormalizesEmail(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now().UTC()

	mock.ExpectQuery("INSERT INTO users").
		WithArgs("a@b.com").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(1, now))

	u, err := store.CreateUser(context.Background(), " A@b.com")
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if u.ID != 1 || u.Email != "a@b.com" {
		t.Fatalf("unexpected user: %+v", u)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGStoreCreateUserConflictIsDuplicate(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("INSERT INTO users").
		WithArgs("a@b.com").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}))

	_, err := store.CreateUser(context.Background(), "a@b.com")
	if !errors.Is(err, ErrDuplicateEmail) {
		t.Fatalf("expected ErrDuplicateEmail, got %v", err)
	}
}

func TestPGStoreGetResumeNotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT (.+) FROM resumes WHERE id = \\$1").
		WithArgs(int64(7)).
		WillReturnError(sql.ErrNoRows)

	_, err := store.GetResume(context.Background(), 7)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPGStoreCreateResumeAnalysisEncodesLists(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now().UTC()

	mock.ExpectQuery("INSERT INTO resume_analyses").
		WithArgs(
			int64(3),
			`["Backend Engineer"]`,
			`[{"title":"Backend Engineer","match":90,"industry":"Software","salaryRange":"$120k"}]`,
			`[]`,
			"Senior",
			"Austin, TX",
			`["Software"]`,
			"",
		).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(11, now))

	a, err := store.CreateResumeAnalysis(context.Background(), ResumeAnalysis{
		ResumeID:        3,
		Roles:           []SuggestedRole{{Title: "Backend Engineer", Match: 90, Industry: "Software", SalaryRange: "$120k"}},
		ExperienceLevel: "Senior",
		Location:        "Austin, TX",
		Industries:      []string{"Software"},
	})
	if err != nil {
		t.Fatalf("CreateResumeAnalysis: %v", err)
	}
	if a.ID != 11 {
		t.Fatalf("expected id 11, got %d", a.ID)
	}
	if len(a.Skills) != 0 || a.Skills == nil {
		t.Fatalf("expected empty non-nil skills, got %#v", a.Skills)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGStoreForeignKeyViolationIsNotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("INSERT INTO payments").
		WillReturnError(&pgconn.PgError{Code: pgForeignKeyViolation, ConstraintName: "payments_optimization_id_fkey"})

	_, err := store.CreatePayment(context.Background(), Payment{OptimizationID: 404, ExternalPaymentIntentID: "pi_1", Amount: 999, Currency: "usd"})
	var nf *NotFoundError
	if !errors.As(err, &nf) || nf.Kind != KindJobOptimization || nf.ID != 404 {
		t.Fatalf("expected job optimization not found, got %v", err)
	}
}

func TestPGStorePendingUniqueViolation(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("INSERT INTO payments").
		WithArgs(int64(1), "pi_2", int64(999), "usd", "pending").
		WillReturnError(&pgconn.PgError{Code: pgUniqueViolation, ConstraintName: "payments_one_pending_idx"})

	_, err := store.CreatePayment(context.Background(), Payment{OptimizationID: 1, ExternalPaymentIntentID: "pi_2", Amount: 999, Currency: "usd"})
	if !errors.Is(err, ErrPendingPaymentExists) {
		t.Fatalf("expected ErrPendingPaymentExists, got %v", err)
	}
}

func paymentRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "optimization_id", "external_payment_intent_id", "amount", "currency", "status", "created_at", "updated_at"})
}

func TestPGStoreUpdatePaymentStatusFromPending(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now().UTC()

	mock.ExpectQuery("UPDATE payments").
		WithArgs(int64(5), "succeeded").
		WillReturnRows(paymentRows().AddRow(5, 2, "pi_1", 999, "usd", "succeeded", now, now))

	p, changed, err := store.UpdatePaymentStatus(context.Background(), 5, PaymentSucceeded)
	if err != nil {
		t.Fatalf("UpdatePaymentStatus: %v", err)
	}
	if p.Status != PaymentSucceeded || !changed {
		t.Fatalf("expected a change to succeeded, got %s changed=%v", p.Status, changed)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGStoreUpdatePaymentStatusSameTerminalIsNoop(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now().UTC()

	mock.ExpectQuery("UPDATE payments").
		WithArgs(int64(5), "succeeded").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery("SELECT (.+) FROM payments WHERE id = \\$1").
		WithArgs(int64(5)).
		WillReturnRows(paymentRows().AddRow(5, 2, "pi_1", 999, "usd", "succeeded", now, now))

	p, changed, err := store.UpdatePaymentStatus(context.Background(), 5, PaymentSucceeded)
	if err != nil {
		t.Fatalf("UpdatePaymentStatus: %v", err)
	}
	if p.Status != PaymentSucceeded {
		t.Fatalf("expected succeeded, got %s", p.Status)
	}
	if changed {
		t.Fatalf("re-applying a terminal status must not report a change")
	}
}

func TestPGStoreUpdatePaymentStatusConflictingTerminal(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now().UTC()

	mock.ExpectQuery("UPDATE payments").
		WithArgs(int64(5), "failed").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery("SELECT (.+) FROM payments WHERE id = \\$1").
		WithArgs(int64(5)).
		WillReturnRows(paymentRows().AddRow(5, 2, "pi_1", 999, "usd", "succeeded", now, now))

	_, _, err := store.UpdatePaymentStatus(context.Background(), 5, PaymentFailed)
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestPGStoreUpdatePaymentStatusUnknownID(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("UPDATE payments").
		WithArgs(int64(9), "succeeded").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery("SELECT (.+) FROM payments WHERE id = \\$1").
		WithArgs(int64(9)).
		WillReturnError(sql.ErrNoRows)

	_, _, err := store.UpdatePaymentStatus(context.Background(), 9, PaymentSucceeded)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPGStoreInTxRollsBackOnError(t *testing.T) {
	store, mock := newMockStore(t)
	boom := errors.New("boom")

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id, email, created_at FROM users WHERE email = \\$1").
		WithArgs("a@b.com").
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "created_at"}).AddRow(1, "a@b.com", time.Now()))
	mock.ExpectRollback()

	err := store.InTx(context.Background(), func(tx Store) error {
		if _, err := tx.GetUserByEmail(context.Background(), "a@b.com"); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGStoreInTxCommits(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO resumes").
		WithArgs(nil, "cv.pdf", int64(12), "application/pdf", "text", "").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(4, now))
	mock.ExpectCommit()

	var got Resume
	err := store.InTx(context.Background(), func(tx Store) error {
		var err error
		got, err = tx.CreateResume(context.Background(), Resume{FileName: "cv.pdf", FileSize: 12, MimeType: "application/pdf", ExtractedText: "text"})
		return err
	})
	if err != nil {
		t.Fatalf("InTx: %v", err)
	}
	if got.ID != 4 {
		t.Fatalf("expected id 4, got %d", got.ID)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGStoreListPaymentsOrdersByID(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now().UTC()

	mock.ExpectQuery("SELECT (.+) FROM payments WHERE optimization_id = \\$1 ORDER BY id").
		WithArgs(int64(2)).
		WillReturnRows(paymentRows().
			AddRow(1, 2, "pi_1", 999, "usd", "failed", now, now).
			AddRow(3, 2, "pi_2", 999, "usd", "succeeded", now, now))

	ok, err := HasSucceededPayment(context.Background(), store, 2)
	if err != nil {
		t.Fatalf("HasSucceededPayment: %v", err)
	}
	if !ok {
		t.Fatalf("expected succeeded payment")
	}
}
