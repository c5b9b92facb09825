package records

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgCheckViolation      = "23514"
)

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// PGStore implements Store using Postgres.
type PGStore struct {
	DB *sql.DB
	tx *sql.Tx
}

// NewPGStore constructs a PGStore over db.
func NewPGStore(db *sql.DB) *PGStore {
	return &PGStore{DB: db}
}

func (s *PGStore) q() querier {
	if s.tx != nil {
		return s.tx
	}
	return s.DB
}

// InTx runs fn inside a database transaction. Nested calls join the outer one.
func (s *PGStore) InTx(ctx context.Context, fn func(Store) error) error {
	if s.tx != nil {
		return fn(s)
	}
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(&PGStore{DB: s.DB, tx: tx}); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// CreateUser inserts a user. An existing email yields ErrDuplicateEmail
// without aborting a surrounding transaction.
func (s *PGStore) CreateUser(ctx context.Context, email string) (User, error) {
	const query = `
INSERT INTO users (email)
VALUES ($1)
ON CONFLICT (email) DO NOTHING
RETURNING id, created_at`
	email = NormalizeEmail(email)
	if err := ValidateEmail(email); err != nil {
		return User{}, err
	}
	u := User{Email: email}
	err := s.q().QueryRowContext(ctx, query, email).Scan(&u.ID, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrDuplicateEmail
	}
	if err != nil {
		return User{}, mapPGError(err, KindUser, 0)
	}
	return u, nil
}

func (s *PGStore) GetUser(ctx context.Context, id int64) (User, error) {
	const query = `SELECT id, email, created_at FROM users WHERE id = $1`
	var u User
	err := s.q().QueryRowContext(ctx, query, id).Scan(&u.ID, &u.Email, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, notFound(KindUser, id)
	}
	return u, err
}

func (s *PGStore) GetUserByEmail(ctx context.Context, email string) (User, error) {
	const query = `SELECT id, email, created_at FROM users WHERE email = $1`
	var u User
	err := s.q().QueryRowContext(ctx, query, NormalizeEmail(email)).Scan(&u.ID, &u.Email, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrNotFound
	}
	return u, err
}

const resumeColumns = `id, user_id, file_name, file_size, mime_type, extracted_text, storage_key, created_at`

func (s *PGStore) CreateResume(ctx context.Context, r Resume) (Resume, error) {
	const query = `
INSERT INTO resumes (user_id, file_name, file_size, mime_type, extracted_text, storage_key)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id, created_at`
	if err := r.validate(); err != nil {
		return Resume{}, err
	}
	var userID sql.NullInt64
	if r.UserID != nil {
		userID = sql.NullInt64{Int64: *r.UserID, Valid: true}
	}
	err := s.q().QueryRowContext(ctx, query, userID, r.FileName, r.FileSize, r.MimeType, r.ExtractedText, r.StorageKey).
		Scan(&r.ID, &r.CreatedAt)
	if err != nil {
		return Resume{}, mapPGError(err, KindUser, userID.Int64)
	}
	return r, nil
}

func (s *PGStore) GetResume(ctx context.Context, id int64) (Resume, error) {
	query := `SELECT ` + resumeColumns + ` FROM resumes WHERE id = $1`
	r, err := scanResume(s.q().QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Resume{}, notFound(KindResume, id)
	}
	return r, err
}

func (s *PGStore) ListResumesByUser(ctx context.Context, userID int64) ([]Resume, error) {
	query := `SELECT ` + resumeColumns + ` FROM resumes WHERE user_id = $1 ORDER BY id`
	rows, err := s.q().QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Resume{}
	for rows.Next() {
		r, err := scanResume(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

const analysisColumns = `id, resume_id, suggested_roles, roles, skills, experience_level, location, industries, explanation, created_at`

func (s *PGStore) CreateResumeAnalysis(ctx context.Context, a ResumeAnalysis) (ResumeAnalysis, error) {
	const query = `
INSERT INTO resume_analyses (resume_id, suggested_roles, roles, skills, experience_level, location, industries, explanation)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING id, created_at`
	a = a.normalized()
	suggested, roles, skills, industries, err := encodeJSON4(a.SuggestedRoles, a.Roles, a.Skills, a.Industries)
	if err != nil {
		return ResumeAnalysis{}, err
	}
	err = s.q().QueryRowContext(ctx, query, a.ResumeID, suggested, roles, skills, a.ExperienceLevel, a.Location, industries, a.Explanation).
		Scan(&a.ID, &a.CreatedAt)
	if err != nil {
		return ResumeAnalysis{}, mapPGError(err, KindResume, a.ResumeID)
	}
	return a, nil
}

func (s *PGStore) GetResumeAnalysis(ctx context.Context, id int64) (ResumeAnalysis, error) {
	query := `SELECT ` + analysisColumns + ` FROM resume_analyses WHERE id = $1`
	a, err := scanAnalysis(s.q().QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return ResumeAnalysis{}, notFound(KindResumeAnalysis, id)
	}
	return a, err
}

func (s *PGStore) ListAnalysesByResume(ctx context.Context, resumeID int64) ([]ResumeAnalysis, error) {
	query := `SELECT ` + analysisColumns + ` FROM resume_analyses WHERE resume_id = $1 ORDER BY id`
	rows, err := s.q().QueryContext(ctx, query, resumeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []ResumeAnalysis{}
	for rows.Next() {
		a, err := scanAnalysis(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *PGStore) LatestAnalysisForResume(ctx context.Context, resumeID int64) (ResumeAnalysis, error) {
	query := `SELECT ` + analysisColumns + ` FROM resume_analyses WHERE resume_id = $1 ORDER BY id DESC LIMIT 1`
	a, err := scanAnalysis(s.q().QueryRowContext(ctx, query, resumeID))
	if errors.Is(err, sql.ErrNoRows) {
		return ResumeAnalysis{}, &NotFoundError{Kind: KindResumeAnalysis}
	}
	return a, err
}

const optimizationColumns = `id, resume_id, job_description, company_name, job_title, match_score, missing_skills, recommendations, optimized_resume, cover_letter, created_at`

func (s *PGStore) CreateJobOptimization(ctx context.Context, o JobOptimization) (JobOptimization, error) {
	const query = `
INSERT INTO job_optimizations (resume_id, job_description, company_name, job_title, match_score, missing_skills, recommendations, optimized_resume, cover_letter)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
RETURNING id, created_at`
	o = o.normalized()
	if err := o.validate(); err != nil {
		return JobOptimization{}, err
	}
	missing, err := encodeJSON(o.MissingSkills)
	if err != nil {
		return JobOptimization{}, err
	}
	recs, err := encodeJSON(o.Recommendations)
	if err != nil {
		return JobOptimization{}, err
	}
	err = s.q().QueryRowContext(ctx, query, o.ResumeID, o.JobDescription, o.CompanyName, o.JobTitle, o.MatchScore, missing, recs, o.OptimizedResume, o.CoverLetter).
		Scan(&o.ID, &o.CreatedAt)
	if err != nil {
		return JobOptimization{}, mapPGError(err, KindResume, o.ResumeID)
	}
	return o, nil
}

func (s *PGStore) GetJobOptimization(ctx context.Context, id int64) (JobOptimization, error) {
	query := `SELECT ` + optimizationColumns + ` FROM job_optimizations WHERE id = $1`
	o, err := scanOptimization(s.q().QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return JobOptimization{}, notFound(KindJobOptimization, id)
	}
	return o, err
}

func (s *PGStore) ListOptimizationsByResume(ctx context.Context, resumeID int64) ([]JobOptimization, error) {
	query := `SELECT ` + optimizationColumns + ` FROM job_optimizations WHERE resume_id = $1 ORDER BY id`
	rows, err := s.q().QueryContext(ctx, query, resumeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []JobOptimization{}
	for rows.Next() {
		o, err := scanOptimization(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

const paymentColumns = `id, optimization_id, external_payment_intent_id, amount, currency, status, created_at, updated_at`

func (s *PGStore) CreatePayment(ctx context.Context, p Payment) (Payment, error) {
	const query = `
INSERT INTO payments (optimization_id, external_payment_intent_id, amount, currency, status)
VALUES ($1, $2, $3, $4, $5)
RETURNING id, created_at, updated_at`
	if p.Status == "" {
		p.Status = PaymentPending
	}
	if err := p.validate(); err != nil {
		return Payment{}, err
	}
	err := s.q().QueryRowContext(ctx, query, p.OptimizationID, p.ExternalPaymentIntentID, p.Amount, p.Currency, string(p.Status)).
		Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return Payment{}, mapPGError(err, KindJobOptimization, p.OptimizationID)
	}
	return p, nil
}

func (s *PGStore) GetPayment(ctx context.Context, id int64) (Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE id = $1`
	p, err := scanPayment(s.q().QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Payment{}, notFound(KindPayment, id)
	}
	return p, err
}

func (s *PGStore) ListPaymentsByOptimization(ctx context.Context, optimizationID int64) ([]Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE optimization_id = $1 ORDER BY id`
	rows, err := s.q().QueryContext(ctx, query, optimizationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Payment{}
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *PGStore) LatestPaymentForOptimization(ctx context.Context, optimizationID int64) (Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE optimization_id = $1 ORDER BY id DESC LIMIT 1`
	p, err := scanPayment(s.q().QueryRowContext(ctx, query, optimizationID))
	if errors.Is(err, sql.ErrNoRows) {
		return Payment{}, &NotFoundError{Kind: KindPayment}
	}
	return p, err
}

// UpdatePaymentStatus moves a pending payment to status in one conditional
// UPDATE, so concurrent pollers cannot apply two different terminal values.
func (s *PGStore) UpdatePaymentStatus(ctx context.Context, id int64, status PaymentStatus) (Payment, bool, error) {
	const query = `
UPDATE payments
SET status = $2, updated_at = now()
WHERE id = $1 AND status = 'pending'
RETURNING ` + paymentColumns
	if !status.Valid() {
		return Payment{}, false, invalid("payment status %q", status)
	}
	if status.Terminal() {
		p, err := scanPayment(s.q().QueryRowContext(ctx, query, id, string(status)))
		if err == nil {
			return p, true, nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return Payment{}, false, err
		}
	}
	current, err := s.GetPayment(ctx, id)
	if err != nil {
		return Payment{}, false, err
	}
	if _, err := statusChange(current.Status, status); err != nil {
		return Payment{}, false, err
	}
	return current, false, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanResume(row rowScanner) (Resume, error) {
	var r Resume
	var userID sql.NullInt64
	if err := row.Scan(&r.ID, &userID, &r.FileName, &r.FileSize, &r.MimeType, &r.ExtractedText, &r.StorageKey, &r.CreatedAt); err != nil {
		return Resume{}, err
	}
	if userID.Valid {
		uid := userID.Int64
		r.UserID = &uid
	}
	return r, nil
}

func scanAnalysis(row rowScanner) (ResumeAnalysis, error) {
	var a ResumeAnalysis
	var suggested, roles, skills, industries []byte
	if err := row.Scan(&a.ID, &a.ResumeID, &suggested, &roles, &skills, &a.ExperienceLevel, &a.Location, &industries, &a.Explanation, &a.CreatedAt); err != nil {
		return ResumeAnalysis{}, err
	}
	if err := decodeJSON(suggested, &a.SuggestedRoles); err != nil {
		return ResumeAnalysis{}, err
	}
	if err := decodeJSON(roles, &a.Roles); err != nil {
		return ResumeAnalysis{}, err
	}
	if err := decodeJSON(skills, &a.Skills); err != nil {
		return ResumeAnalysis{}, err
	}
	if err := decodeJSON(industries, &a.Industries); err != nil {
		return ResumeAnalysis{}, err
	}
	return a.normalized(), nil
}

func scanOptimization(row rowScanner) (JobOptimization, error) {
	var o JobOptimization
	var missing, recs []byte
	if err := row.Scan(&o.ID, &o.ResumeID, &o.JobDescription, &o.CompanyName, &o.JobTitle, &o.MatchScore, &missing, &recs, &o.OptimizedResume, &o.CoverLetter, &o.CreatedAt); err != nil {
		return JobOptimization{}, err
	}
	if err := decodeJSON(missing, &o.MissingSkills); err != nil {
		return JobOptimization{}, err
	}
	if err := decodeJSON(recs, &o.Recommendations); err != nil {
		return JobOptimization{}, err
	}
	return o.normalized(), nil
}

func scanPayment(row rowScanner) (Payment, error) {
	var p Payment
	var status string
	if err := row.Scan(&p.ID, &p.OptimizationID, &p.ExternalPaymentIntentID, &p.Amount, &p.Currency, &status, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return Payment{}, err
	}
	p.Status = PaymentStatus(status)
	return p, nil
}

func encodeJSON(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encode json column: %w", err)
	}
	return string(b), nil
}

func encodeJSON4(a, b, c, d any) (string, string, string, string, error) {
	var out [4]string
	for i, v := range []any{a, b, c, d} {
		s, err := encodeJSON(v)
		if err != nil {
			return "", "", "", "", err
		}
		out[i] = s
	}
	return out[0], out[1], out[2], out[3], nil
}

func decodeJSON(raw []byte, dst any) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("decode json column: %w", err)
	}
	return nil
}

// mapPGError turns constraint violations into store errors. parentKind and
// parentID name the referenced row for foreign key failures.
func mapPGError(err error, parentKind string, parentID int64) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case pgUniqueViolation:
		switch pgErr.ConstraintName {
		case "payments_one_pending_idx":
			return ErrPendingPaymentExists
		case "users_email_key":
			return ErrDuplicateEmail
		}
		return fmt.Errorf("%w: %s", ErrInvalid, pgErr.Message)
	case pgForeignKeyViolation:
		return notFound(parentKind, parentID)
	case pgCheckViolation:
		return fmt.Errorf("%w: %s", ErrInvalid, pgErr.Message)
	}
	return err
}

var _ Store = (*PGStore)(nil)
