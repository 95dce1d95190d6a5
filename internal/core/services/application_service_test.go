package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"campus-admissions/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, time.March, 14, 10, 0, 0, 0, time.UTC)

type engineFixture struct {
	svc      *ApplicationService
	repo     *fakeRepo
	notifier *fakeNotifier
	files    *fakeFiles
}

func newEngine(t *testing.T, policy *domain.TransitionPolicy) *engineFixture {
	t.Helper()
	f := &engineFixture{
		repo:     newFakeRepo(),
		notifier: &fakeNotifier{},
		files:    &fakeFiles{},
	}
	f.svc = NewApplicationService(f.repo, policy, f.notifier, f.files, SyncDispatcher{}, nil)
	f.svc.now = func() time.Time { return fixedNow }
	return f
}

func janeDoe(status domain.ApplicationStatus) *CreateApplicationInput {
	return &CreateApplicationInput{
		ApplicationFields: ApplicationFields{
			FullName:          "Jane Doe",
			Email:             "jane@example.com",
			Phone:             "9800000000",
			ProgramApplied:    "BSc CSIT",
			PreferredShift:    "morning",
			DeclarationAgreed: status == domain.StatusSubmitted,
		},
		Status: status,
		EducationRecords: []EducationInput{
			{Level: "SEE", Institution: "City School", Board: "NEB", PassedYear: 2022, Score: 3.6, ScoreType: "gpa"},
		},
		Documents: map[domain.DocumentType]string{
			domain.DocPhoto:     "uploads/photo/a.jpg",
			domain.DocSignature: "uploads/signature/b.png",
		},
	}
}

func (f *engineFixture) create(t *testing.T, status domain.ApplicationStatus) uint64 {
	t.Helper()
	app, err := f.svc.Create(context.Background(), janeDoe(status))
	require.NoError(t, err)
	return app.ID
}

func TestCreateDraftApplication(t *testing.T) {
	f := newEngine(t, nil)

	app, err := f.svc.Create(context.Background(), &CreateApplicationInput{
		ApplicationFields: ApplicationFields{FullName: "Jane Doe", ProgramApplied: "BCA"},
		Status:            domain.StatusDraft,
	})
	require.NoError(t, err)

	assert.Regexp(t, `^APP\d{4}\d{4}$`, app.ApplicationNumber)
	assert.Equal(t, "APP20260001", app.ApplicationNumber)
	assert.Equal(t, domain.StatusDraft, app.Status)

	stored, err := f.svc.Get(context.Background(), app.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.EducationRecords)
	assert.Empty(t, stored.Documents)

	require.Len(t, stored.StatusHistory, 1)
	assert.Nil(t, stored.StatusHistory[0].FromStatus)
	assert.Equal(t, domain.StatusDraft, stored.StatusHistory[0].ToStatus)

	assert.Empty(t, f.notifier.all(), "drafts are not announced")
}

func TestCreateStoresEducationAndDocuments(t *testing.T) {
	f := newEngine(t, nil)

	app, err := f.svc.Create(context.Background(), janeDoe(domain.StatusDraft))
	require.NoError(t, err)

	stored, err := f.svc.Get(context.Background(), app.ID)
	require.NoError(t, err)
	require.Len(t, stored.EducationRecords, 1)
	assert.Equal(t, "City School", stored.EducationRecords[0].Institution)

	require.Len(t, stored.Documents, 2)
	assert.Equal(t, domain.DocPhoto, stored.Documents[0].DocumentType)
	for _, d := range stored.Documents {
		assert.True(t, d.IsRequired)
		assert.False(t, d.IsSubmitted)
	}
	assert.Empty(t, f.files.all())
}

func TestCreateSubmittedSendsConfirmation(t *testing.T) {
	f := newEngine(t, nil)

	app, err := f.svc.Create(context.Background(), janeDoe(domain.StatusSubmitted))
	require.NoError(t, err)

	calls := f.notifier.all()
	require.Len(t, calls, 1)
	assert.Equal(t, "submitted", calls[0].kind)
	assert.Equal(t, app.ApplicationNumber, calls[0].number)

	stored, err := f.svc.Get(context.Background(), app.ID)
	require.NoError(t, err)
	for _, d := range stored.Documents {
		assert.True(t, d.IsSubmitted)
	}
}

func TestCreateNumbersIncrementWithinYear(t *testing.T) {
	f := newEngine(t, nil)

	first, err := f.svc.Create(context.Background(), janeDoe(domain.StatusDraft))
	require.NoError(t, err)
	second, err := f.svc.Create(context.Background(), janeDoe(domain.StatusDraft))
	require.NoError(t, err)

	assert.Equal(t, "APP20260001", first.ApplicationNumber)
	assert.Equal(t, "APP20260002", second.ApplicationNumber)
}

func TestCreateSubmittedWithoutDeclarationIsRejected(t *testing.T) {
	f := newEngine(t, nil)
	input := janeDoe(domain.StatusSubmitted)
	input.DeclarationAgreed = false

	_, err := f.svc.Create(context.Background(), input)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrValidation)

	var verr *domain.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Contains(t, verr.Fields, "declaration_agreed")

	assert.Zero(t, f.repo.appCount())
	assert.Zero(t, f.repo.historyCount())
	assert.Zero(t, f.repo.state.createCalls, "nothing may be written")
	assert.Empty(t, f.notifier.all())
	assert.Equal(t, []string{"uploads/photo/a.jpg", "uploads/signature/b.png"}, f.files.all())
}

func TestCreateRejectsInvalidFields(t *testing.T) {
	f := newEngine(t, nil)
	input := janeDoe(domain.StatusDraft)
	input.FullName = ""
	input.Email = "not-an-email"
	input.Status = domain.StatusUnderReview
	input.EducationRecords[0].Institution = ""

	_, err := f.svc.Create(context.Background(), input)

	var verr *domain.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Contains(t, verr.Fields, "full_name")
	assert.Contains(t, verr.Fields, "email")
	assert.Contains(t, verr.Fields, "status")
	assert.Contains(t, verr.Fields, "education_records[0].institution")
	assert.Zero(t, f.repo.appCount())
}

func TestCreateRollsBackOnStorageFailure(t *testing.T) {
	f := newEngine(t, nil)
	f.repo.state.failOn["CreateDocuments"] = domain.StorageFailure("create documents", errors.New("disk full"))

	_, err := f.svc.Create(context.Background(), janeDoe(domain.StatusSubmitted))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrStorage)

	assert.Zero(t, f.repo.appCount())
	assert.Zero(t, f.repo.historyCount())
	assert.Empty(t, f.repo.state.education)
	assert.Empty(t, f.repo.state.seq, "the sequence bump is rolled back with everything else")
	assert.Empty(t, f.notifier.all())
	assert.Len(t, f.files.all(), 2)
}

func TestCreateRecoversWhenCounterLagsIssuedNumbers(t *testing.T) {
	f := newEngine(t, nil)
	f.repo.seedIssued("APP20260001")
	f.repo.seedIssued("APP20260002")

	app, err := f.svc.Create(context.Background(), janeDoe(domain.StatusDraft))
	require.NoError(t, err)

	assert.Equal(t, 2, f.repo.state.createCalls)
	assert.Equal(t, "APP20260003", app.ApplicationNumber)
	assert.Equal(t, 3, f.repo.state.seq[2026])
	assert.Equal(t, 3, f.repo.appCount())
	assert.Len(t, f.repo.historyOf(app.ID), 1)
	assert.Empty(t, f.files.all())

	next, err := f.svc.Create(context.Background(), janeDoe(domain.StatusDraft))
	require.NoError(t, err)
	assert.Equal(t, "APP20260004", next.ApplicationNumber)
	assert.Equal(t, 3, f.repo.state.createCalls)
}

func TestCreateResyncOrdersSequencesNumerically(t *testing.T) {
	f := newEngine(t, nil)
	f.repo.seedIssued("APP20269999")
	f.repo.seedIssued("APP202610000")
	f.repo.state.seq[2026] = 9998

	app, err := f.svc.Create(context.Background(), janeDoe(domain.StatusDraft))
	require.NoError(t, err)
	assert.Equal(t, "APP202610001", app.ApplicationNumber)
}

func TestCreateGivesUpAfterRepeatedCollisions(t *testing.T) {
	f := newEngine(t, nil)
	f.repo.state.failOn["Create"] = domain.ErrDuplicateSequence

	_, err := f.svc.Create(context.Background(), janeDoe(domain.StatusDraft))
	assert.ErrorIs(t, err, domain.ErrDuplicateSequence)
	assert.Equal(t, maxCreateAttempts, f.repo.state.createCalls)
	assert.Zero(t, f.repo.appCount())
	assert.Len(t, f.files.all(), 2)
}

func TestConcurrentCreatesGetUniqueNumbers(t *testing.T) {
	f := newEngine(t, nil)
	const n = 25

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		numbers = map[string]bool{}
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			app, err := f.svc.Create(context.Background(), janeDoe(domain.StatusDraft))
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			numbers[app.ApplicationNumber] = true
			mu.Unlock()
		}()
	}
	wg.Wait()

	require.Len(t, numbers, n)
	for i := 1; i <= n; i++ {
		assert.True(t, numbers[fmt.Sprintf("APP2026%04d", i)])
	}
}

func TestChangeStatusToRejected(t *testing.T) {
	f := newEngine(t, nil)
	id := f.create(t, domain.StatusSubmitted)
	_, err := f.svc.ChangeStatus(context.Background(), id, &ChangeStatusInput{Status: domain.StatusUnderReview}, 7)
	require.NoError(t, err)
	notified := len(f.notifier.all())

	app, err := f.svc.ChangeStatus(context.Background(), id, &ChangeStatusInput{
		Status: domain.StatusRejected,
		Reason: "incomplete documents",
	}, 7)
	require.NoError(t, err)

	assert.Equal(t, domain.StatusRejected, app.Status)
	require.NotNil(t, app.RejectionReason)
	assert.Equal(t, "incomplete documents", *app.RejectionReason)
	require.NotNil(t, app.ReviewedBy)
	assert.Equal(t, uint64(7), *app.ReviewedBy)
	require.NotNil(t, app.ReviewedAt)
	assert.True(t, app.ReviewedAt.Equal(fixedNow))

	history, err := f.svc.GetHistory(context.Background(), id)
	require.NoError(t, err)
	require.Len(t, history, 3)
	last := history[2]
	require.NotNil(t, last.FromStatus)
	assert.Equal(t, domain.StatusUnderReview, *last.FromStatus)
	assert.Equal(t, domain.StatusRejected, last.ToStatus)
	require.NotNil(t, last.ChangedBy)
	assert.Equal(t, uint64(7), *last.ChangedBy)
	require.NotNil(t, last.Reason)
	assert.Equal(t, "incomplete documents", *last.Reason)

	calls := f.notifier.all()[notified:]
	require.Len(t, calls, 1, "exactly one notification attempt")
	assert.Equal(t, notifyCall{kind: "status", number: app.ApplicationNumber, from: domain.StatusUnderReview, to: domain.StatusRejected}, calls[0])
}

func TestChangeStatusClearsRejectionReason(t *testing.T) {
	f := newEngine(t, nil)
	id := f.create(t, domain.StatusSubmitted)

	_, err := f.svc.ChangeStatus(context.Background(), id, &ChangeStatusInput{Status: domain.StatusRejected, Reason: "late"}, 7)
	require.NoError(t, err)

	app, err := f.svc.ChangeStatus(context.Background(), id, &ChangeStatusInput{Status: domain.StatusUnderReview, Reason: "appeal accepted"}, 7)
	require.NoError(t, err)
	assert.Nil(t, app.RejectionReason)

	stored, err := f.svc.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Nil(t, stored.RejectionReason)
}

func TestChangeStatusToSameStatusStillRecorded(t *testing.T) {
	f := newEngine(t, nil)
	id := f.create(t, domain.StatusSubmitted)

	_, err := f.svc.ChangeStatus(context.Background(), id, &ChangeStatusInput{Status: domain.StatusSubmitted, Notes: "checked"}, 3)
	require.NoError(t, err)

	history, err := f.svc.GetHistory(context.Background(), id)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, domain.StatusSubmitted, *history[1].FromStatus)
	assert.Equal(t, domain.StatusSubmitted, history[1].ToStatus)
}

func TestChangeStatusUnknownApplication(t *testing.T) {
	f := newEngine(t, nil)

	_, err := f.svc.ChangeStatus(context.Background(), 404, &ChangeStatusInput{Status: domain.StatusUnderReview}, 1)
	assert.ErrorIs(t, err, domain.ErrApplicationNotFound)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Empty(t, f.notifier.all())
	assert.Zero(t, f.repo.historyCount())
}

func TestChangeStatusRejectsUnknownStatus(t *testing.T) {
	f := newEngine(t, nil)
	id := f.create(t, domain.StatusDraft)

	_, err := f.svc.ChangeStatus(context.Background(), id, &ChangeStatusInput{Status: "approved"}, 1)
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.Equal(t, 1, f.repo.historyCount())
}

func TestChangeStatusStrictPolicy(t *testing.T) {
	f := newEngine(t, domain.StrictPolicy())
	id := f.create(t, domain.StatusSubmitted)

	_, err := f.svc.ChangeStatus(context.Background(), id, &ChangeStatusInput{Status: domain.StatusEnrollmentCompleted}, 1)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	var terr *domain.TransitionError
	require.True(t, errors.As(err, &terr))
	assert.Equal(t, domain.StatusSubmitted, terr.From)

	stored, err := f.svc.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusSubmitted, stored.Status)
	assert.Len(t, stored.StatusHistory, 1)

	_, err = f.svc.ChangeStatus(context.Background(), id, &ChangeStatusInput{Status: domain.StatusUnderReview}, 1)
	assert.NoError(t, err)
}

func TestChangeStatusRollsBackWhenHistoryFails(t *testing.T) {
	f := newEngine(t, nil)
	id := f.create(t, domain.StatusSubmitted)
	f.repo.state.failOn["AppendHistory"] = domain.StorageFailure("append status history", errors.New("lost connection"))

	_, err := f.svc.ChangeStatus(context.Background(), id, &ChangeStatusInput{Status: domain.StatusUnderReview}, 1)
	assert.ErrorIs(t, err, domain.ErrStorage)

	delete(f.repo.state.failOn, "AppendHistory")
	stored, err := f.svc.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusSubmitted, stored.Status)
	assert.Nil(t, stored.ReviewedBy)
	assert.Len(t, f.notifier.all(), 1, "only the submission confirmation")
}

func TestBulkChangeStatusSkipsUnresolvedIDs(t *testing.T) {
	f := newEngine(t, nil)
	a := f.create(t, domain.StatusSubmitted)
	b := f.create(t, domain.StatusSubmitted)
	c := f.create(t, domain.StatusDraft)
	before := len(f.notifier.all())
	historyBefore := f.repo.historyCount()

	res, err := f.svc.BulkChangeStatus(context.Background(), []uint64{a, b, c, 9001, 9002}, &ChangeStatusInput{Status: domain.StatusUnderReview}, 5)
	require.NoError(t, err)
	assert.Equal(t, &BulkResult{Processed: 3, TotalRequested: 5}, res)
	assert.Equal(t, historyBefore+3, f.repo.historyCount())

	for _, id := range []uint64{a, b, c} {
		stored, err := f.svc.Get(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusUnderReview, stored.Status)
		last := stored.StatusHistory[len(stored.StatusHistory)-1]
		assert.Equal(t, domain.StatusUnderReview, last.ToStatus)
		assert.Equal(t, uint64(5), *last.ChangedBy)
	}

	calls := f.notifier.all()[before:]
	require.Len(t, calls, 3)
	assert.Equal(t, domain.StatusDraft, calls[2].from)
}

func TestBulkChangeStatusFailsWholeBatchOnPolicy(t *testing.T) {
	f := newEngine(t, domain.StrictPolicy())
	a := f.create(t, domain.StatusSubmitted)
	b := f.create(t, domain.StatusSubmitted)
	_, err := f.svc.ChangeStatus(context.Background(), b, &ChangeStatusInput{Status: domain.StatusRejected}, 1)
	require.NoError(t, err)
	historyBefore := f.repo.historyCount()

	_, err = f.svc.BulkChangeStatus(context.Background(), []uint64{a, b}, &ChangeStatusInput{Status: domain.StatusUnderReview}, 1)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	stored, err := f.svc.Get(context.Background(), a)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusSubmitted, stored.Status)
	assert.Equal(t, historyBefore, f.repo.historyCount())
}

func TestBulkChangeStatusRequiresIDs(t *testing.T) {
	f := newEngine(t, nil)

	_, err := f.svc.BulkChangeStatus(context.Background(), nil, &ChangeStatusInput{Status: domain.StatusUnderReview}, 1)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestUpdateDetailsReplacesEducationRecords(t *testing.T) {
	f := newEngine(t, nil)
	input := janeDoe(domain.StatusSubmitted)
	input.EducationRecords = []EducationInput{
		{Level: "SEE", Institution: "City School"},
		{Level: "+2", Institution: "City College"},
		{Level: "Diploma", Institution: "Tech Institute"},
	}
	app, err := f.svc.Create(context.Background(), input)
	require.NoError(t, err)
	notified := len(f.notifier.all())
	original, err := f.svc.Get(context.Background(), app.ID)
	require.NoError(t, err)
	require.Len(t, original.EducationRecords, 3)

	records := []EducationInput{
		{Level: "SEE", Institution: "City School", Score: 3.9, ScoreType: "gpa"},
		{Level: "+2", Institution: "City College", Score: 3.5, ScoreType: "gpa"},
	}
	update := &UpdateApplicationInput{
		ApplicationFields: input.ApplicationFields,
		EducationRecords:  &records,
	}
	update.FullName = "Jane A. Doe"

	updated, err := f.svc.UpdateDetails(context.Background(), app.ID, update, 9)
	require.NoError(t, err)
	assert.Equal(t, "Jane A. Doe", updated.FullName)

	stored, err := f.svc.Get(context.Background(), app.ID)
	require.NoError(t, err)
	assert.Equal(t, "Jane A. Doe", stored.FullName)
	assert.Equal(t, domain.StatusSubmitted, stored.Status)
	require.Len(t, stored.EducationRecords, 2)
	assert.Equal(t, 3.9, stored.EducationRecords[0].Score)
	for _, old := range original.EducationRecords {
		for _, cur := range stored.EducationRecords {
			assert.NotEqual(t, old.ID, cur.ID)
		}
	}

	last := stored.StatusHistory[len(stored.StatusHistory)-1]
	assert.Equal(t, domain.StatusSubmitted, *last.FromStatus)
	assert.Equal(t, domain.StatusSubmitted, last.ToStatus)
	require.NotNil(t, last.Notes)
	assert.Equal(t, updateAuditNote, *last.Notes)
	assert.Equal(t, uint64(9), *last.ChangedBy)

	assert.Len(t, f.notifier.all(), notified, "detail edits are not announced")
}

func TestUpdateDetailsKeepsEducationWhenOmitted(t *testing.T) {
	f := newEngine(t, nil)
	id := f.create(t, domain.StatusDraft)

	_, err := f.svc.UpdateDetails(context.Background(), id, &UpdateApplicationInput{
		ApplicationFields: janeDoe(domain.StatusDraft).ApplicationFields,
	}, 2)
	require.NoError(t, err)

	stored, err := f.svc.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Len(t, stored.EducationRecords, 1)
}

func TestUpdateDetailsValidatesBeforeWriting(t *testing.T) {
	f := newEngine(t, nil)
	id := f.create(t, domain.StatusDraft)
	fields := janeDoe(domain.StatusDraft).ApplicationFields
	fields.ProgramApplied = ""

	_, err := f.svc.UpdateDetails(context.Background(), id, &UpdateApplicationInput{ApplicationFields: fields}, 2)
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.Equal(t, 1, f.repo.historyCount())
}

func TestSoftDelete(t *testing.T) {
	f := newEngine(t, nil)
	id := f.create(t, domain.StatusDraft)

	require.NoError(t, f.svc.SoftDelete(context.Background(), id))

	_, err := f.svc.Get(context.Background(), id)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = f.svc.GetHistory(context.Background(), id)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, f.svc.SoftDelete(context.Background(), id), domain.ErrApplicationNotFound)

	assert.Equal(t, 1, f.repo.historyCount(), "owned rows are retained")
	assert.Len(t, f.repo.state.education, 1)
}

func TestBulkSoftDelete(t *testing.T) {
	f := newEngine(t, nil)
	a := f.create(t, domain.StatusDraft)
	b := f.create(t, domain.StatusDraft)
	require.NoError(t, f.svc.SoftDelete(context.Background(), b))

	res, err := f.svc.BulkSoftDelete(context.Background(), []uint64{a, b, 77})
	require.NoError(t, err)
	assert.Equal(t, &BulkResult{Processed: 1, TotalRequested: 3}, res)

	_, err = f.svc.BulkSoftDelete(context.Background(), []uint64{})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestLatestHistoryMatchesStatusAfterLifecycle(t *testing.T) {
	f := newEngine(t, nil)
	a := f.create(t, domain.StatusSubmitted)
	b := f.create(t, domain.StatusDraft)
	ctx := context.Background()

	_, err := f.svc.ChangeStatus(ctx, a, &ChangeStatusInput{Status: domain.StatusUnderReview}, 1)
	require.NoError(t, err)
	_, err = f.svc.ChangeStatus(ctx, a, &ChangeStatusInput{Status: domain.StatusDocumentVerification}, 1)
	require.NoError(t, err)
	_, err = f.svc.UpdateDetails(ctx, b, &UpdateApplicationInput{ApplicationFields: janeDoe(domain.StatusDraft).ApplicationFields}, 1)
	require.NoError(t, err)
	_, err = f.svc.BulkChangeStatus(ctx, []uint64{a, b}, &ChangeStatusInput{Status: domain.StatusWaitlisted}, 1)
	require.NoError(t, err)

	audit := NewLedgerAuditService(f.repo, nil)
	report, err := audit.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Scanned)
	assert.Empty(t, report.Mismatches)
}

func TestLedgerAuditReportsDrift(t *testing.T) {
	f := newEngine(t, nil)
	a := f.create(t, domain.StatusSubmitted)
	b := f.create(t, domain.StatusSubmitted)
	f.repo.setStatus(b, domain.StatusCancelled)

	report, err := NewLedgerAuditService(f.repo, nil).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, report.Scanned)
	require.Len(t, report.Mismatches, 1)
	assert.Equal(t, b, report.Mismatches[0].ApplicationID)
	assert.Equal(t, domain.StatusCancelled, report.Mismatches[0].Status)
	require.NotNil(t, report.Mismatches[0].LedgerStatus)
	assert.Equal(t, domain.StatusSubmitted, *report.Mismatches[0].LedgerStatus)
	assert.NotEqual(t, a, report.Mismatches[0].ApplicationID)
}

func TestLedgerAuditRejectsBadSchedule(t *testing.T) {
	audit := NewLedgerAuditService(newFakeRepo(), nil)
	assert.Error(t, audit.Start("not a schedule"))
	audit.Stop()
}

func TestNotifierFailureDoesNotFailOperation(t *testing.T) {
	f := newEngine(t, nil)
	f.notifier.err = errors.New("smtp down")

	app, err := f.svc.Create(context.Background(), janeDoe(domain.StatusSubmitted))
	require.NoError(t, err)

	_, err = f.svc.ChangeStatus(context.Background(), app.ID, &ChangeStatusInput{Status: domain.StatusUnderReview}, 1)
	require.NoError(t, err)
	assert.Len(t, f.notifier.all(), 2)
}
