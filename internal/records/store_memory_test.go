package records

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedOptimization(t *testing.T, s Store) (Resume, JobOptimization) {
	t.Helper()
	ctx := context.Background()
	user, err := GetOrCreateUser(ctx, s, "a@b.com")
	require.NoError(t, err)
	resume, err := s.CreateResume(ctx, Resume{UserID: &user.ID, FileName: "cv.pdf", FileSize: 10, MimeType: "application/pdf", ExtractedText: "Go developer"})
	require.NoError(t, err)
	opt, err := s.CreateJobOptimization(ctx, JobOptimization{
		ResumeID:        resume.ID,
		JobDescription:  "Build APIs",
		CompanyName:     "Acme",
		JobTitle:        "Backend Engineer",
		MatchScore:      80,
		OptimizedResume: "resume text",
		CoverLetter:     "letter text",
	})
	require.NoError(t, err)
	return resume, opt
}

func TestMemoryStoreIDsStrictlyIncrease(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	var last int64
	for i := 0; i < 5; i++ {
		r, err := s.CreateResume(ctx, Resume{FileName: "cv.pdf", ExtractedText: "text"})
		require.NoError(t, err)
		assert.Greater(t, r.ID, last)
		assert.False(t, r.CreatedAt.IsZero())
		last = r.ID
	}
}

func TestMemoryStoreGetUnknownReturnsTypedNotFound(t *testing.T) {
	s := NewMemoryStore()
	_, err := s.GetJobOptimization(context.Background(), 42)
	require.ErrorIs(t, err, ErrNotFound)
	var nf *NotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, KindJobOptimization, nf.Kind)
	assert.Equal(t, int64(42), nf.ID)
}

func TestMemoryStoreUserEmailIsUnique(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	u1, err := s.CreateUser(ctx, " A@B.com ")
	require.NoError(t, err)
	assert.Equal(t, "a@b.com", u1.Email)

	_, err = s.CreateUser(ctx, "a@b.com")
	assert.ErrorIs(t, err, ErrDuplicateEmail)

	u2, err := GetOrCreateUser(ctx, s, "a@B.com")
	require.NoError(t, err)
	assert.Equal(t, u1.ID, u2.ID)
}

func TestMemoryStoreRejectsBadEmail(t *testing.T) {
	_, err := NewMemoryStore().CreateUser(context.Background(), "not-an-email")
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestMemoryStoreRejectsEmptyExtractedText(t *testing.T) {
	_, err := NewMemoryStore().CreateResume(context.Background(), Resume{FileName: "cv.pdf", ExtractedText: "  "})
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestMemoryStoreAnalysisListsNeverNil(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	r, err := s.CreateResume(ctx, Resume{FileName: "cv.pdf", ExtractedText: "text"})
	require.NoError(t, err)

	a, err := s.CreateResumeAnalysis(ctx, ResumeAnalysis{ResumeID: r.ID, ExperienceLevel: "Mid"})
	require.NoError(t, err)
	assert.NotNil(t, a.SuggestedRoles)
	assert.NotNil(t, a.Skills)
	assert.NotNil(t, a.Industries)
	assert.NotNil(t, a.Roles)

	got, err := s.GetResumeAnalysis(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{}, got.Skills)
}

func TestMemoryStoreLatestAnalysisWins(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	r, err := s.CreateResume(ctx, Resume{FileName: "cv.pdf", ExtractedText: "text"})
	require.NoError(t, err)

	_, err = s.LatestAnalysisForResume(ctx, r.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.CreateResumeAnalysis(ctx, ResumeAnalysis{ResumeID: r.ID, Location: "Austin, TX"})
	require.NoError(t, err)
	second, err := s.CreateResumeAnalysis(ctx, ResumeAnalysis{ResumeID: r.ID, Location: "Remote"})
	require.NoError(t, err)

	latest, err := s.LatestAnalysisForResume(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, second.ID, latest.ID)
	assert.Equal(t, "Remote", latest.Location)
}

func TestMemoryStoreAnalysisRequiresResume(t *testing.T) {
	_, err := NewMemoryStore().CreateResumeAnalysis(context.Background(), ResumeAnalysis{ResumeID: 9})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreOptimizationValidation(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	r, err := s.CreateResume(ctx, Resume{FileName: "cv.pdf", ExtractedText: "text"})
	require.NoError(t, err)

	base := JobOptimization{ResumeID: r.ID, JobDescription: "jd", OptimizedResume: "r", CoverLetter: "c"}

	tooHigh := base
	tooHigh.MatchScore = 101
	_, err = s.CreateJobOptimization(ctx, tooHigh)
	assert.ErrorIs(t, err, ErrInvalid)

	noLetter := base
	noLetter.CoverLetter = ""
	_, err = s.CreateJobOptimization(ctx, noLetter)
	assert.ErrorIs(t, err, ErrInvalid)

	ok, err := s.CreateJobOptimization(ctx, base)
	require.NoError(t, err)
	assert.Equal(t, []string{}, ok.MissingSkills)
}

func TestMemoryStorePaymentTransitions(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	_, opt := seedOptimization(t, s)

	p, err := s.CreatePayment(ctx, Payment{OptimizationID: opt.ID, ExternalPaymentIntentID: "pi_1", Amount: 999, Currency: "usd"})
	require.NoError(t, err)
	assert.Equal(t, PaymentPending, p.Status)

	updated, changed, err := s.UpdatePaymentStatus(ctx, p.ID, PaymentSucceeded)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, PaymentSucceeded, updated.Status)

	again, changed, err := s.UpdatePaymentStatus(ctx, p.ID, PaymentSucceeded)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, updated.UpdatedAt, again.UpdatedAt)

	_, _, err = s.UpdatePaymentStatus(ctx, p.ID, PaymentFailed)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, _, err = s.UpdatePaymentStatus(ctx, p.ID, PaymentPending)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, _, err = s.UpdatePaymentStatus(ctx, 999, PaymentSucceeded)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreOnePendingPaymentPerOptimization(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	_, opt := seedOptimization(t, s)

	first, err := s.CreatePayment(ctx, Payment{OptimizationID: opt.ID, ExternalPaymentIntentID: "pi_1", Amount: 999, Currency: "usd"})
	require.NoError(t, err)
	_, err = s.CreatePayment(ctx, Payment{OptimizationID: opt.ID, ExternalPaymentIntentID: "pi_2", Amount: 999, Currency: "usd"})
	assert.ErrorIs(t, err, ErrPendingPaymentExists)

	_, _, err = s.UpdatePaymentStatus(ctx, first.ID, PaymentFailed)
	require.NoError(t, err)
	second, err := s.CreatePayment(ctx, Payment{OptimizationID: opt.ID, ExternalPaymentIntentID: "pi_2", Amount: 999, Currency: "usd"})
	require.NoError(t, err)

	latest, err := s.LatestPaymentForOptimization(ctx, opt.ID)
	require.NoError(t, err)
	assert.Equal(t, second.ID, latest.ID)

	paid, err := HasSucceededPayment(ctx, s, opt.ID)
	require.NoError(t, err)
	assert.False(t, paid)
}

func TestMemoryStorePaymentRequiresOptimization(t *testing.T) {
	s := NewMemoryStore()
	_, err := s.CreatePayment(context.Background(), Payment{OptimizationID: 5, ExternalPaymentIntentID: "pi_1", Amount: 999, Currency: "usd"})
	assert.ErrorIs(t, err, ErrNotFound)
	list, err := s.ListPaymentsByOptimization(context.Background(), 5)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestMemoryStoreInTxRollsBackAndSkipsIDs(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	boom := errors.New("boom")

	var txResumeID int64
	err := s.InTx(ctx, func(tx Store) error {
		u, err := GetOrCreateUser(ctx, tx, "a@b.com")
		if err != nil {
			return err
		}
		r, err := tx.CreateResume(ctx, Resume{UserID: &u.ID, FileName: "cv.pdf", ExtractedText: "text"})
		if err != nil {
			return err
		}
		txResumeID = r.ID
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = s.GetResume(ctx, txResumeID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.GetUserByEmail(ctx, "a@b.com")
	assert.ErrorIs(t, err, ErrNotFound)

	r, err := s.CreateResume(ctx, Resume{FileName: "cv.pdf", ExtractedText: "text"})
	require.NoError(t, err)
	assert.Greater(t, r.ID, txResumeID)
}

func TestMemoryStoreInTxCommits(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	var resumeID int64
	err := s.InTx(ctx, func(tx Store) error {
		r, err := tx.CreateResume(ctx, Resume{FileName: "cv.pdf", ExtractedText: "text"})
		if err != nil {
			return err
		}
		resumeID = r.ID
		_, err = tx.CreateResumeAnalysis(ctx, ResumeAnalysis{ResumeID: r.ID})
		return err
	})
	require.NoError(t, err)

	list, err := s.ListAnalysesByResume(ctx, resumeID)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestMemoryStoreConcurrentStatusUpdatesAgree(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	_, opt := seedOptimization(t, s)
	p, err := s.CreatePayment(ctx, Payment{OptimizationID: opt.ID, ExternalPaymentIntentID: "pi_1", Amount: 999, Currency: "usd"})
	require.NoError(t, err)

	var (
		wg      sync.WaitGroup
		changes atomic.Int32
	)
	errs := make(chan error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, changed, err := s.UpdatePaymentStatus(ctx, p.ID, PaymentSucceeded)
			if changed {
				changes.Add(1)
			}
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, int32(1), changes.Load())

	got, err := s.GetPayment(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, PaymentSucceeded, got.Status)
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	_, opt := seedOptimization(t, s)
	_, err := s.CreateJobOptimization(ctx, JobOptimization{ResumeID: opt.ResumeID, JobDescription: "jd", OptimizedResume: "r", CoverLetter: "c", MissingSkills: []string{"Go"}})
	require.NoError(t, err)

	list, err := s.ListOptimizationsByResume(ctx, opt.ResumeID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	list[1].MissingSkills[0] = "mutated"

	again, err := s.GetJobOptimization(ctx, list[1].ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"Go"}, again.MissingSkills)
}
