package records

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore is an in-memory Store used in dev and tests.
type MemoryStore struct {
	mu    sync.Mutex
	state *memState
	seq   *sequences
	now   func() time.Time
}

type sequences struct {
	users, resumes, analyses, optimizations, payments int64
}

type memState struct {
	users         map[int64]User
	emails        map[string]int64
	resumes       map[int64]Resume
	analyses      map[int64]ResumeAnalysis
	optimizations map[int64]JobOptimization
	payments      map[int64]Payment
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		state: newMemState(),
		seq:   &sequences{},
		now:   func() time.Time { return time.Now().UTC() },
	}
}

func newMemState() *memState {
	return &memState{
		users:         make(map[int64]User),
		emails:        make(map[string]int64),
		resumes:       make(map[int64]Resume),
		analyses:      make(map[int64]ResumeAnalysis),
		optimizations: make(map[int64]JobOptimization),
		payments:      make(map[int64]Payment),
	}
}

func (s *memState) clone() *memState {
	out := newMemState()
	for k, v := range s.users {
		out.users[k] = v
	}
	for k, v := range s.emails {
		out.emails[k] = v
	}
	for k, v := range s.resumes {
		out.resumes[k] = v
	}
	for k, v := range s.analyses {
		out.analyses[k] = v
	}
	for k, v := range s.optimizations {
		out.optimizations[k] = v
	}
	for k, v := range s.payments {
		out.payments[k] = v
	}
	return out
}

// memView runs store operations against one state snapshot. The caller holds
// the MemoryStore lock for the whole lifetime of a view.
type memView struct {
	state *memState
	seq   *sequences
	now   func() time.Time
}

func (m *MemoryStore) view() *memView {
	return &memView{state: m.state, seq: m.seq, now: m.now}
}

func (m *MemoryStore) with(ctx context.Context, fn func(v *memView) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return fn(m.view())
}

func (m *MemoryStore) CreateUser(ctx context.Context, email string) (out User, err error) {
	err = m.with(ctx, func(v *memView) error {
		out, err = v.createUser(email)
		return err
	})
	return out, err
}

func (m *MemoryStore) GetUser(ctx context.Context, id int64) (out User, err error) {
	err = m.with(ctx, func(v *memView) error {
		out, err = v.getUser(id)
		return err
	})
	return out, err
}

func (m *MemoryStore) GetUserByEmail(ctx context.Context, email string) (out User, err error) {
	err = m.with(ctx, func(v *memView) error {
		out, err = v.getUserByEmail(email)
		return err
	})
	return out, err
}

func (m *MemoryStore) CreateResume(ctx context.Context, resume Resume) (out Resume, err error) {
	err = m.with(ctx, func(v *memView) error {
		out, err = v.createResume(resume)
		return err
	})
	return out, err
}

func (m *MemoryStore) GetResume(ctx context.Context, id int64) (out Resume, err error) {
	err = m.with(ctx, func(v *memView) error {
		out, err = v.getResume(id)
		return err
	})
	return out, err
}

func (m *MemoryStore) ListResumesByUser(ctx context.Context, userID int64) (out []Resume, err error) {
	err = m.with(ctx, func(v *memView) error {
		out = v.listResumesByUser(userID)
		return nil
	})
	return out, err
}

func (m *MemoryStore) CreateResumeAnalysis(ctx context.Context, analysis ResumeAnalysis) (out ResumeAnalysis, err error) {
	err = m.with(ctx, func(v *memView) error {
		out, err = v.createAnalysis(analysis)
		return err
	})
	return out, err
}

func (m *MemoryStore) GetResumeAnalysis(ctx context.Context, id int64) (out ResumeAnalysis, err error) {
	err = m.with(ctx, func(v *memView) error {
		out, err = v.getAnalysis(id)
		return err
	})
	return out, err
}

func (m *MemoryStore) ListAnalysesByResume(ctx context.Context, resumeID int64) (out []ResumeAnalysis, err error) {
	err = m.with(ctx, func(v *memView) error {
		out = v.listAnalysesByResume(resumeID)
		return nil
	})
	return out, err
}

func (m *MemoryStore) LatestAnalysisForResume(ctx context.Context, resumeID int64) (out ResumeAnalysis, err error) {
	err = m.with(ctx, func(v *memView) error {
		out, err = v.latestAnalysis(resumeID)
		return err
	})
	return out, err
}

func (m *MemoryStore) CreateJobOptimization(ctx context.Context, opt JobOptimization) (out JobOptimization, err error) {
	err = m.with(ctx, func(v *memView) error {
		out, err = v.createOptimization(opt)
		return err
	})
	return out, err
}

func (m *MemoryStore) GetJobOptimization(ctx context.Context, id int64) (out JobOptimization, err error) {
	err = m.with(ctx, func(v *memView) error {
		out, err = v.getOptimization(id)
		return err
	})
	return out, err
}

func (m *MemoryStore) ListOptimizationsByResume(ctx context.Context, resumeID int64) (out []JobOptimization, err error) {
	err = m.with(ctx, func(v *memView) error {
		out = v.listOptimizationsByResume(resumeID)
		return nil
	})
	return out, err
}

func (m *MemoryStore) CreatePayment(ctx context.Context, payment Payment) (out Payment, err error) {
	err = m.with(ctx, func(v *memView) error {
		out, err = v.createPayment(payment)
		return err
	})
	return out, err
}

func (m *MemoryStore) GetPayment(ctx context.Context, id int64) (out Payment, err error) {
	err = m.with(ctx, func(v *memView) error {
		out, err = v.getPayment(id)
		return err
	})
	return out, err
}

func (m *MemoryStore) ListPaymentsByOptimization(ctx context.Context, optimizationID int64) (out []Payment, err error) {
	err = m.with(ctx, func(v *memView) error {
		out = v.listPaymentsByOptimization(optimizationID)
		return nil
	})
	return out, err
}

func (m *MemoryStore) LatestPaymentForOptimization(ctx context.Context, optimizationID int64) (out Payment, err error) {
	err = m.with(ctx, func(v *memView) error {
		out, err = v.latestPayment(optimizationID)
		return err
	})
	return out, err
}

func (m *MemoryStore) UpdatePaymentStatus(ctx context.Context, id int64, status PaymentStatus) (out Payment, changed bool, err error) {
	err = m.with(ctx, func(v *memView) error {
		out, changed, err = v.updatePaymentStatus(id, status)
		return err
	})
	return out, changed, err
}

// InTx runs fn against a private copy of the state and publishes the copy
// only when fn succeeds. Ids handed out inside a discarded unit stay consumed.
func (m *MemoryStore) InTx(ctx context.Context, fn func(Store) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	tx := &memTx{view: &memView{state: m.state.clone(), seq: m.seq, now: m.now}}
	if err := fn(tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	m.state = tx.view.state
	return nil
}

// memTx is the Store handed to InTx callbacks. It runs without locking.
type memTx struct {
	view *memView
}

func (t *memTx) CreateUser(ctx context.Context, email string) (User, error) {
	if err := ctx.Err(); err != nil {
		return User{}, err
	}
	return t.view.createUser(email)
}

func (t *memTx) GetUser(ctx context.Context, id int64) (User, error) {
	return t.view.getUser(id)
}

func (t *memTx) GetUserByEmail(ctx context.Context, email string) (User, error) {
	return t.view.getUserByEmail(email)
}

func (t *memTx) CreateResume(ctx context.Context, resume Resume) (Resume, error) {
	if err := ctx.Err(); err != nil {
		return Resume{}, err
	}
	return t.view.createResume(resume)
}

func (t *memTx) GetResume(ctx context.Context, id int64) (Resume, error) {
	return t.view.getResume(id)
}

func (t *memTx) ListResumesByUser(ctx context.Context, userID int64) ([]Resume, error) {
	return t.view.listResumesByUser(userID), nil
}

func (t *memTx) CreateResumeAnalysis(ctx context.Context, analysis ResumeAnalysis) (ResumeAnalysis, error) {
	if err := ctx.Err(); err != nil {
		return ResumeAnalysis{}, err
	}
	return t.view.createAnalysis(analysis)
}

func (t *memTx) GetResumeAnalysis(ctx context.Context, id int64) (ResumeAnalysis, error) {
	return t.view.getAnalysis(id)
}

func (t *memTx) ListAnalysesByResume(ctx context.Context, resumeID int64) ([]ResumeAnalysis, error) {
	return t.view.listAnalysesByResume(resumeID), nil
}

func (t *memTx) LatestAnalysisForResume(ctx context.Context, resumeID int64) (ResumeAnalysis, error) {
	return t.view.latestAnalysis(resumeID)
}

func (t *memTx) CreateJobOptimization(ctx context.Context, opt JobOptimization) (JobOptimization, error) {
	if err := ctx.Err(); err != nil {
		return JobOptimization{}, err
	}
	return t.view.createOptimization(opt)
}

func (t *memTx) GetJobOptimization(ctx context.Context, id int64) (JobOptimization, error) {
	return t.view.getOptimization(id)
}

func (t *memTx) ListOptimizationsByResume(ctx context.Context, resumeID int64) ([]JobOptimization, error) {
	return t.view.listOptimizationsByResume(resumeID), nil
}

func (t *memTx) CreatePayment(ctx context.Context, payment Payment) (Payment, error) {
	if err := ctx.Err(); err != nil {
		return Payment{}, err
	}
	return t.view.createPayment(payment)
}

func (t *memTx) GetPayment(ctx context.Context, id int64) (Payment, error) {
	return t.view.getPayment(id)
}

func (t *memTx) ListPaymentsByOptimization(ctx context.Context, optimizationID int64) ([]Payment, error) {
	return t.view.listPaymentsByOptimization(optimizationID), nil
}

func (t *memTx) LatestPaymentForOptimization(ctx context.Context, optimizationID int64) (Payment, error) {
	return t.view.latestPayment(optimizationID)
}

func (t *memTx) UpdatePaymentStatus(ctx context.Context, id int64, status PaymentStatus) (Payment, bool, error) {
	if err := ctx.Err(); err != nil {
		return Payment{}, false, err
	}
	return t.view.updatePaymentStatus(id, status)
}

// InTx on a running unit of work joins it.
func (t *memTx) InTx(ctx context.Context, fn func(Store) error) error {
	return fn(t)
}

func (v *memView) createUser(email string) (User, error) {
	email = NormalizeEmail(email)
	if err := ValidateEmail(email); err != nil {
		return User{}, err
	}
	if _, exists := v.state.emails[email]; exists {
		return User{}, ErrDuplicateEmail
	}
	v.seq.users++
	u := User{ID: v.seq.users, Email: email, CreatedAt: v.now()}
	v.state.users[u.ID] = u
	v.state.emails[email] = u.ID
	return u, nil
}

func (v *memView) getUser(id int64) (User, error) {
	u, ok := v.state.users[id]
	if !ok {
		return User{}, notFound(KindUser, id)
	}
	return u, nil
}

func (v *memView) getUserByEmail(email string) (User, error) {
	id, ok := v.state.emails[NormalizeEmail(email)]
	if !ok {
		return User{}, ErrNotFound
	}
	return v.state.users[id], nil
}

func (v *memView) createResume(r Resume) (Resume, error) {
	if err := r.validate(); err != nil {
		return Resume{}, err
	}
	if r.UserID != nil {
		if _, ok := v.state.users[*r.UserID]; !ok {
			return Resume{}, notFound(KindUser, *r.UserID)
		}
		uid := *r.UserID
		r.UserID = &uid
	}
	v.seq.resumes++
	r.ID = v.seq.resumes
	r.CreatedAt = v.now()
	v.state.resumes[r.ID] = r
	return copyResume(r), nil
}

func (v *memView) getResume(id int64) (Resume, error) {
	r, ok := v.state.resumes[id]
	if !ok {
		return Resume{}, notFound(KindResume, id)
	}
	return copyResume(r), nil
}

func (v *memView) listResumesByUser(userID int64) []Resume {
	out := []Resume{}
	for _, r := range v.state.resumes {
		if r.UserID != nil && *r.UserID == userID {
			out = append(out, copyResume(r))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (v *memView) createAnalysis(a ResumeAnalysis) (ResumeAnalysis, error) {
	if _, ok := v.state.resumes[a.ResumeID]; !ok {
		return ResumeAnalysis{}, notFound(KindResume, a.ResumeID)
	}
	a = a.normalized()
	v.seq.analyses++
	a.ID = v.seq.analyses
	a.CreatedAt = v.now()
	v.state.analyses[a.ID] = a
	return a.normalized(), nil
}

func (v *memView) getAnalysis(id int64) (ResumeAnalysis, error) {
	a, ok := v.state.analyses[id]
	if !ok {
		return ResumeAnalysis{}, notFound(KindResumeAnalysis, id)
	}
	return a.normalized(), nil
}

func (v *memView) listAnalysesByResume(resumeID int64) []ResumeAnalysis {
	out := []ResumeAnalysis{}
	for _, a := range v.state.analyses {
		if a.ResumeID == resumeID {
			out = append(out, a.normalized())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (v *memView) latestAnalysis(resumeID int64) (ResumeAnalysis, error) {
	all := v.listAnalysesByResume(resumeID)
	if len(all) == 0 {
		return ResumeAnalysis{}, &NotFoundError{Kind: KindResumeAnalysis}
	}
	return all[len(all)-1], nil
}

func (v *memView) createOptimization(o JobOptimization) (JobOptimization, error) {
	o = o.normalized()
	if err := o.validate(); err != nil {
		return JobOptimization{}, err
	}
	if _, ok := v.state.resumes[o.ResumeID]; !ok {
		return JobOptimization{}, notFound(KindResume, o.ResumeID)
	}
	v.seq.optimizations++
	o.ID = v.seq.optimizations
	o.CreatedAt = v.now()
	v.state.optimizations[o.ID] = o
	return o.normalized(), nil
}

func (v *memView) getOptimization(id int64) (JobOptimization, error) {
	o, ok := v.state.optimizations[id]
	if !ok {
		return JobOptimization{}, notFound(KindJobOptimization, id)
	}
	return o.normalized(), nil
}

func (v *memView) listOptimizationsByResume(resumeID int64) []JobOptimization {
	out := []JobOptimization{}
	for _, o := range v.state.optimizations {
		if o.ResumeID == resumeID {
			out = append(out, o.normalized())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (v *memView) createPayment(p Payment) (Payment, error) {
	if p.Status == "" {
		p.Status = PaymentPending
	}
	if err := p.validate(); err != nil {
		return Payment{}, err
	}
	if _, ok := v.state.optimizations[p.OptimizationID]; !ok {
		return Payment{}, notFound(KindJobOptimization, p.OptimizationID)
	}
	for _, existing := range v.state.payments {
		if existing.ExternalPaymentIntentID == p.ExternalPaymentIntentID {
			return Payment{}, invalid("payment intent %s already recorded", p.ExternalPaymentIntentID)
		}
		if p.Status == PaymentPending && existing.OptimizationID == p.OptimizationID && existing.Status == PaymentPending {
			return Payment{}, ErrPendingPaymentExists
		}
	}
	v.seq.payments++
	p.ID = v.seq.payments
	p.CreatedAt = v.now()
	p.UpdatedAt = p.CreatedAt
	v.state.payments[p.ID] = p
	return p, nil
}

func (v *memView) getPayment(id int64) (Payment, error) {
	p, ok := v.state.payments[id]
	if !ok {
		return Payment{}, notFound(KindPayment, id)
	}
	return p, nil
}

func (v *memView) listPaymentsByOptimization(optimizationID int64) []Payment {
	out := []Payment{}
	for _, p := range v.state.payments {
		if p.OptimizationID == optimizationID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (v *memView) latestPayment(optimizationID int64) (Payment, error) {
	all := v.listPaymentsByOptimization(optimizationID)
	if len(all) == 0 {
		return Payment{}, &NotFoundError{Kind: KindPayment}
	}
	return all[len(all)-1], nil
}

func (v *memView) updatePaymentStatus(id int64, status PaymentStatus) (Payment, bool, error) {
	p, ok := v.state.payments[id]
	if !ok {
		return Payment{}, false, notFound(KindPayment, id)
	}
	changed, err := statusChange(p.Status, status)
	if err != nil {
		return Payment{}, false, err
	}
	if !changed {
		return p, false, nil
	}
	p.Status = status
	p.UpdatedAt = v.now()
	v.state.payments[id] = p
	return p, true, nil
}

func copyResume(r Resume) Resume {
	if r.UserID != nil {
		uid := *r.UserID
		r.UserID = &uid
	}
	return r
}

var (
	_ Store = (*MemoryStore)(nil)
	_ Store = (*memTx)(nil)
)
