package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"campus-admissions/internal/adapters/persistence/models"
	"campus-admissions/internal/adapters/persistence/repositories"
	"campus-admissions/internal/core/domain"

	"gorm.io/gorm"
)

// memState is the shared storage behind fakeRepo
type memState struct {
	mu sync.Mutex

	apps      map[uint64]*models.Application
	education []models.EducationRecord
	docs      []models.ApplicationDocument
	history   []*models.ApplicationStatusHistory
	seq       map[int]int
	nextID    uint64

	// test hooks
	failOn      map[string]error
	createCalls int
}

type memSnapshot struct {
	apps      map[uint64]models.Application
	education []models.EducationRecord
	docs      []models.ApplicationDocument
	history   []models.ApplicationStatusHistory
	seq       map[int]int
	nextID    uint64
}

func (s *memState) snapshot() memSnapshot {
	snap := memSnapshot{
		apps:      make(map[uint64]models.Application, len(s.apps)),
		education: append([]models.EducationRecord(nil), s.education...),
		docs:      append([]models.ApplicationDocument(nil), s.docs...),
		seq:       make(map[int]int, len(s.seq)),
		nextID:    s.nextID,
	}
	for id, app := range s.apps {
		snap.apps[id] = *app
	}
	for _, h := range s.history {
		snap.history = append(snap.history, *h)
	}
	for y, v := range s.seq {
		snap.seq[y] = v
	}
	return snap
}

func (s *memState) restore(snap memSnapshot) {
	s.apps = make(map[uint64]*models.Application, len(snap.apps))
	for id, app := range snap.apps {
		app := app
		s.apps[id] = &app
	}
	s.education = snap.education
	s.docs = snap.docs
	s.history = nil
	for _, h := range snap.history {
		h := h
		s.history = append(s.history, &h)
	}
	s.seq = snap.seq
	s.nextID = snap.nextID
}

// fakeRepo is an in-memory ApplicationRepository. Transactions are serialized
// and rolled back by restoring a snapshot.
type fakeRepo struct {
	state *memState
	inTx  bool
}

var _ repositories.ApplicationRepository = (*fakeRepo)(nil)

func newFakeRepo() *fakeRepo {
	return &fakeRepo{state: &memState{
		apps:   map[uint64]*models.Application{},
		seq:    map[int]int{},
		failOn: map[string]error{},
	}}
}

func (r *fakeRepo) lock() func() {
	if r.inTx {
		return func() {}
	}
	r.state.mu.Lock()
	return r.state.mu.Unlock
}

func (r *fakeRepo) fail(op string) error {
	return r.state.failOn[op]
}

func (r *fakeRepo) id() uint64 {
	r.state.nextID++
	return r.state.nextID
}

func (r *fakeRepo) active(id uint64) (*models.Application, bool) {
	app, ok := r.state.apps[id]
	if !ok || app.DeletedAt.Valid {
		return nil, false
	}
	return app, true
}

func (r *fakeRepo) Transaction(ctx context.Context, fn func(repo repositories.ApplicationRepository) error) error {
	if r.inTx {
		return fn(r)
	}
	r.state.mu.Lock()
	defer r.state.mu.Unlock()

	snap := r.state.snapshot()
	if err := fn(&fakeRepo{state: r.state, inTx: true}); err != nil {
		r.state.restore(snap)
		return err
	}
	return nil
}

func (r *fakeRepo) NextSequence(ctx context.Context, year int) (int, error) {
	defer r.lock()()
	if err := r.fail("NextSequence"); err != nil {
		return 0, err
	}
	r.state.seq[year]++
	return r.state.seq[year], nil
}

func (r *fakeRepo) SyncSequence(ctx context.Context, year int) error {
	defer r.lock()()
	if err := r.fail("SyncSequence"); err != nil {
		return err
	}
	issued := 0
	for _, app := range r.state.apps {
		if seq, ok := repositories.ParseApplicationSequence(app.ApplicationNumber, year); ok && seq > issued {
			issued = seq
		}
	}
	if issued > r.state.seq[year] {
		r.state.seq[year] = issued
	}
	return nil
}

// seedIssued stores an application numbered outside the counter, like rows
// imported before the sequence table existed
func (r *fakeRepo) seedIssued(number string) {
	defer r.lock()()
	id := r.id()
	r.state.apps[id] = &models.Application{
		ID:                id,
		ApplicationNumber: number,
		Status:            domain.StatusSubmitted,
		FullName:          "Imported Applicant",
		ProgramApplied:    "BBA",
	}
}

func (r *fakeRepo) Create(ctx context.Context, app *models.Application) error {
	defer r.lock()()
	r.state.createCalls++
	if err := r.fail("Create"); err != nil {
		return err
	}
	for _, existing := range r.state.apps {
		if existing.ApplicationNumber == app.ApplicationNumber {
			return domain.ErrDuplicateSequence
		}
	}
	app.ID = r.id()
	stored := *app
	stored.EducationRecords, stored.Documents, stored.StatusHistory = nil, nil, nil
	r.state.apps[app.ID] = &stored
	return nil
}

func (r *fakeRepo) GetByID(ctx context.Context, id uint64) (*models.Application, error) {
	defer r.lock()()
	app, ok := r.active(id)
	if !ok {
		return nil, domain.ErrApplicationNotFound
	}
	cp := *app
	return &cp, nil
}

func (r *fakeRepo) GetByIDForUpdate(ctx context.Context, id uint64) (*models.Application, error) {
	return r.GetByID(ctx, id)
}

func (r *fakeRepo) GetAggregate(ctx context.Context, id uint64) (*models.Application, error) {
	defer r.lock()()
	app, ok := r.active(id)
	if !ok {
		return nil, domain.ErrApplicationNotFound
	}
	cp := *app
	cp.EducationRecords = r.educationOf(id)
	for _, d := range r.state.docs {
		if d.ApplicationID == id {
			cp.Documents = append(cp.Documents, d)
		}
	}
	for _, h := range r.historyOf(id) {
		cp.StatusHistory = append(cp.StatusHistory, *h)
	}
	return &cp, nil
}

func (r *fakeRepo) FindActiveByIDs(ctx context.Context, ids []uint64, forUpdate bool) ([]*models.Application, error) {
	defer r.lock()()
	var out []*models.Application
	for _, id := range ids {
		if app, ok := r.active(id); ok {
			cp := *app
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeRepo) ListActiveAfter(ctx context.Context, afterID uint64, limit int) ([]*models.Application, error) {
	defer r.lock()()
	var out []*models.Application
	for id, app := range r.state.apps {
		if id > afterID && !app.DeletedAt.Valid {
			cp := *app
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *fakeRepo) Update(ctx context.Context, id uint64, updates map[string]interface{}) error {
	defer r.lock()()
	if err := r.fail("Update"); err != nil {
		return err
	}
	app, ok := r.active(id)
	if !ok {
		return nil
	}
	for col, v := range updates {
		switch col {
		case "status":
			app.Status = v.(domain.ApplicationStatus)
		case "reviewed_by":
			actor := v.(uint64)
			app.ReviewedBy = &actor
		case "reviewed_at":
			at := v.(time.Time)
			app.ReviewedAt = &at
		case "rejection_reason":
			app.RejectionReason = v.(*string)
		case "full_name":
			app.FullName = v.(string)
		case "email":
			app.Email = v.(string)
		case "program_applied":
			app.ProgramApplied = v.(string)
		case "declaration_agreed":
			app.DeclarationAgreed = v.(bool)
		}
	}
	return nil
}

func (r *fakeRepo) SoftDelete(ctx context.Context, id uint64) (int64, error) {
	return r.SoftDeleteMany(ctx, []uint64{id})
}

func (r *fakeRepo) SoftDeleteMany(ctx context.Context, ids []uint64) (int64, error) {
	defer r.lock()()
	var n int64
	for _, id := range ids {
		if app, ok := r.active(id); ok {
			app.DeletedAt = gorm.DeletedAt{Time: time.Now(), Valid: true}
			n++
		}
	}
	return n, nil
}

func (r *fakeRepo) CreateEducationRecords(ctx context.Context, records []models.EducationRecord) error {
	defer r.lock()()
	if err := r.fail("CreateEducationRecords"); err != nil {
		return err
	}
	for i := range records {
		records[i].ID = r.id()
		r.state.education = append(r.state.education, records[i])
	}
	return nil
}

func (r *fakeRepo) ReplaceEducationRecords(ctx context.Context, applicationID uint64, records []models.EducationRecord) error {
	unlock := r.lock()
	kept := r.state.education[:0:0]
	for _, e := range r.state.education {
		if e.ApplicationID != applicationID {
			kept = append(kept, e)
		}
	}
	r.state.education = kept
	unlock()
	return r.CreateEducationRecords(ctx, records)
}

func (r *fakeRepo) educationOf(applicationID uint64) []models.EducationRecord {
	var out []models.EducationRecord
	for _, e := range r.state.education {
		if e.ApplicationID == applicationID {
			out = append(out, e)
		}
	}
	return out
}

func (r *fakeRepo) CreateDocuments(ctx context.Context, docs []models.ApplicationDocument) error {
	defer r.lock()()
	if err := r.fail("CreateDocuments"); err != nil {
		return err
	}
	for i := range docs {
		docs[i].ID = r.id()
		r.state.docs = append(r.state.docs, docs[i])
	}
	return nil
}

func (r *fakeRepo) AppendHistory(ctx context.Context, entries ...*models.ApplicationStatusHistory) error {
	defer r.lock()()
	if err := r.fail("AppendHistory"); err != nil {
		return err
	}
	for _, e := range entries {
		e.ID = r.id()
		cp := *e
		r.state.history = append(r.state.history, &cp)
	}
	return nil
}

func (r *fakeRepo) GetHistory(ctx context.Context, applicationID uint64) ([]*models.ApplicationStatusHistory, error) {
	defer r.lock()()
	return r.historyOf(applicationID), nil
}

func (r *fakeRepo) historyOf(applicationID uint64) []*models.ApplicationStatusHistory {
	var out []*models.ApplicationStatusHistory
	for _, h := range r.state.history {
		if h.ApplicationID == applicationID {
			cp := *h
			out = append(out, &cp)
		}
	}
	return out
}

func (r *fakeRepo) LatestHistory(ctx context.Context, applicationIDs []uint64) (map[uint64]*models.ApplicationStatusHistory, error) {
	defer r.lock()()
	latest := map[uint64]*models.ApplicationStatusHistory{}
	for _, id := range applicationIDs {
		rows := r.historyOf(id)
		if len(rows) > 0 {
			latest[id] = rows[len(rows)-1]
		}
	}
	return latest, nil
}

// helpers for assertions

func (r *fakeRepo) appCount() int {
	r.state.mu.Lock()
	defer r.state.mu.Unlock()
	return len(r.state.apps)
}

func (r *fakeRepo) historyCount() int {
	r.state.mu.Lock()
	defer r.state.mu.Unlock()
	return len(r.state.history)
}

func (r *fakeRepo) setStatus(id uint64, status domain.ApplicationStatus) {
	r.state.mu.Lock()
	defer r.state.mu.Unlock()
	r.state.apps[id].Status = status
}

type notifyCall struct {
	kind   string
	number string
	from   domain.ApplicationStatus
	to     domain.ApplicationStatus
}

type fakeNotifier struct {
	mu    sync.Mutex
	calls []notifyCall
	err   error
}

func (n *fakeNotifier) NotifySubmitted(ctx context.Context, app *models.Application) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, notifyCall{kind: "submitted", number: app.ApplicationNumber, to: app.Status})
	return n.err
}

func (n *fakeNotifier) NotifyStatusChanged(ctx context.Context, app *models.Application, from, to domain.ApplicationStatus) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, notifyCall{kind: "status", number: app.ApplicationNumber, from: from, to: to})
	return n.err
}

func (n *fakeNotifier) all() []notifyCall {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]notifyCall(nil), n.calls...)
}

type fakeFiles struct {
	mu      sync.Mutex
	removed []string
}

func (f *fakeFiles) Remove(path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removed = append(f.removed, path)
	return nil
}

func (f *fakeFiles) all() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := append([]string(nil), f.removed...)
	sort.Strings(out)
	return out
}
