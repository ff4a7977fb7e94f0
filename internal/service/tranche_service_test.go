package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"csrhub/internal/model"
	"csrhub/internal/repository"
	"csrhub/pkg/apperror"
)

type trancheFixture struct {
	*world
	tranches *MockTrancheRepository
	uploads  *MockDocumentUploadRepository
	svc      TrancheService
	tranche  *model.Tranche
}

func newTrancheFixture(t *testing.T, status string) *trancheFixture {
	w := newWorld(t)
	f := &trancheFixture{
		world:    w,
		tranches: new(MockTrancheRepository),
		uploads:  new(MockDocumentUploadRepository),
	}
	f.tranche = &model.Tranche{
		ID:              uuid.New(),
		ProjectID:       w.project.ID,
		Sequence:        1,
		Percentage:      decimal.NewFromInt(40),
		Amount:          40000,
		UnlockCondition: "Borewell drilled",
		Version:         3,
	}
	f.tranche.SetStatus(status)

	f.tranches.On("GetByID", mock.Anything, f.tranche.ID).Return(f.tranche, nil).Maybe()
	f.tranches.On("GetByIDForUpdate", mock.Anything, f.tranche.ID).Return(f.tranche, nil).Maybe()
	f.uploads.On("Create", mock.Anything, mock.Anything).Return(nil).Maybe()

	f.svc = NewTrancheService(passThroughTM{}, f.tranches, w.projects, f.uploads, w.audit, w.parties, w.notifier, w.store, testValidator(), w.log)
	return f
}

func (f *trancheFixture) expectSave() {
	f.tranches.On("UpdateWithVersion", mock.Anything, f.tranche).Return(nil).Once()
}

func (f *trancheFixture) id() string { return f.tranche.ID.String() }

func TestRequestReleaseMovesToPendingApproval(t *testing.T) {
	f := newTrancheFixture(t, model.TrancheLocked)
	f.tranche.ProofDocURL = "http://files.test/uc.pdf"
	f.tranche.GeoTag = `{"type":"Point","coordinates":[77.59,12.97]}`
	f.expectSave()

	res, err := f.svc.RequestRelease(context.Background(), f.ngoActor, f.id())
	require.NoError(t, err)

	assert.Equal(t, model.TranchePendingApproval, res.Status)
	assert.True(t, res.ReleaseRequested)
	assert.False(t, res.IsBlocked)
	assert.NotNil(t, res.RequestedAt)
	require.Len(t, f.notifier.sent, 1)
	assert.Equal(t, model.NotifyTrancheReleaseRequested, f.notifier.sent[0].Type)
	assert.Equal(t, f.corpActor.UserID, f.notifier.sent[0].UserID)
	f.tranches.AssertExpectations(t)
	f.audit.AssertCalled(t, "Log", mock.Anything, mock.MatchedBy(func(e *model.AuditLog) bool {
		return e.Action == model.ActionRequestRelease
	}))
}

func TestRequestReleaseRequiresBothEvidenceParts(t *testing.T) {
	f := newTrancheFixture(t, model.TrancheLocked)
	f.tranche.ProofDocURL = "http://files.test/uc.pdf"

	_, err := f.svc.RequestRelease(context.Background(), f.ngoActor, f.id())
	require.Error(t, err)
	assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))
	assert.Equal(t, model.TrancheLocked, f.tranche.Status)
	assert.Empty(t, f.notifier.sent)
	f.tranches.AssertNotCalled(t, "UpdateWithVersion", mock.Anything, mock.Anything)
}

func TestRequestReleaseRejectsOtherNGO(t *testing.T) {
	f := newTrancheFixture(t, model.TrancheLocked)
	stranger := f.otherNGO()

	_, err := f.svc.RequestRelease(context.Background(), stranger, f.id())
	assert.Equal(t, apperror.KindForbidden, apperror.KindOf(err))
}

func TestRequestReleaseOnlyFromLocked(t *testing.T) {
	f := newTrancheFixture(t, model.TranchePendingApproval)
	f.tranche.ProofDocURL = "http://files.test/uc.pdf"
	f.tranche.GeoTag = "12.9,77.5"

	_, err := f.svc.RequestRelease(context.Background(), f.ngoActor, f.id())
	assert.Equal(t, apperror.KindStateConflict, apperror.KindOf(err))
}

func TestApproveReleasesTranche(t *testing.T) {
	f := newTrancheFixture(t, model.TranchePendingApproval)
	f.expectSave()

	res, err := f.svc.Review(context.Background(), f.corpActor, f.id(), ReviewTrancheRequest{Action: "APPROVE", Remarks: "looks good"})
	require.NoError(t, err)

	assert.Equal(t, model.TrancheReleased, res.Status)
	assert.False(t, res.ReleaseRequested)
	require.NotNil(t, res.ApprovedBy)
	assert.Equal(t, f.corpActor.UserID.String(), *res.ApprovedBy)
	assert.NotNil(t, res.ApprovedAt)
	assert.Equal(t, "looks good", res.Remarks)
	assert.Equal(t, []string{model.NotifyTrancheApproved}, f.notifier.types())
	assert.Equal(t, f.ngoActor.UserID, f.notifier.sent[0].UserID)
}

func TestAdminCanApprove(t *testing.T) {
	f := newTrancheFixture(t, model.TranchePendingApproval)
	f.expectSave()

	res, err := f.svc.Review(context.Background(), f.adminActor, f.id(), ReviewTrancheRequest{Action: "APPROVE"})
	require.NoError(t, err)
	assert.Equal(t, model.TrancheReleased, res.Status)
}

func TestApproveTwiceIsConflictWithoutNotification(t *testing.T) {
	f := newTrancheFixture(t, model.TrancheReleased)

	_, err := f.svc.Review(context.Background(), f.corpActor, f.id(), ReviewTrancheRequest{Action: "APPROVE"})
	assert.Equal(t, apperror.KindStateConflict, apperror.KindOf(err))
	assert.Empty(t, f.notifier.sent)
}

func TestApproveByUnrelatedCorporateIsForbidden(t *testing.T) {
	f := newTrancheFixture(t, model.TranchePendingApproval)

	_, err := f.svc.Review(context.Background(), f.otherCorporate(), f.id(), ReviewTrancheRequest{Action: "APPROVE"})
	assert.Equal(t, apperror.KindForbidden, apperror.KindOf(err))
}

func TestRejectNeedsReason(t *testing.T) {
	f := newTrancheFixture(t, model.TranchePendingApproval)

	for _, remarks := range []string{"", "   "} {
		_, err := f.svc.Review(context.Background(), f.corpActor, f.id(), ReviewTrancheRequest{Action: "REJECT", Remarks: remarks})
		assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))
	}
	assert.Equal(t, model.TranchePendingApproval, f.tranche.Status)
}

func TestRejectBlocksTranche(t *testing.T) {
	f := newTrancheFixture(t, model.TranchePendingApproval)
	f.expectSave()

	res, err := f.svc.Review(context.Background(), f.corpActor, f.id(), ReviewTrancheRequest{Action: "REJECT", Remarks: "photos are blurry"})
	require.NoError(t, err)

	assert.Equal(t, model.TrancheBlocked, res.Status)
	assert.True(t, res.IsBlocked)
	assert.False(t, res.ReleaseRequested)
	assert.Equal(t, "photos are blurry", res.BlockReason)
	assert.Equal(t, []string{model.NotifyTrancheRejected}, f.notifier.types())
}

func TestUnknownReviewAction(t *testing.T) {
	f := newTrancheFixture(t, model.TranchePendingApproval)

	_, err := f.svc.Review(context.Background(), f.corpActor, f.id(), ReviewTrancheRequest{Action: "MAYBE"})
	assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))
}

func TestReviewLosesVersionRace(t *testing.T) {
	f := newTrancheFixture(t, model.TranchePendingApproval)
	f.tranches.On("UpdateWithVersion", mock.Anything, f.tranche).Return(repository.ErrVersionConflict).Once()

	_, err := f.svc.Review(context.Background(), f.corpActor, f.id(), ReviewTrancheRequest{Action: "APPROVE"})
	assert.Equal(t, apperror.KindStateConflict, apperror.KindOf(err))
}

func TestUploadEvidenceUnblocksTranche(t *testing.T) {
	f := newTrancheFixture(t, model.TranchePendingApproval)
	f.tranche.SetStatus(model.TrancheBlocked)
	f.tranche.BlockReason = "photos are blurry"
	f.expectSave()

	file := pdfFile("uc.pdf")
	res, err := f.svc.UploadEvidence(context.Background(), f.ngoActor, f.id(), EvidenceInput{
		UtilizationCertificate: &file,
		GeoTag:                 "12.9716,77.5946",
	})
	require.NoError(t, err)

	assert.Equal(t, model.TrancheLocked, res.Status)
	assert.False(t, res.IsBlocked)
	assert.Empty(t, res.BlockReason)
	assert.Contains(t, res.ProofDocURL, "http://files.test/tranches/")
	assert.JSONEq(t, `{"type":"Point","coordinates":[77.5946,12.9716]}`, res.GeoTag)
	assert.Equal(t, 1, f.store.count())
	f.uploads.AssertNumberOfCalls(t, "Create", 1)
}

func TestUploadEvidenceRejectsBadGeoTag(t *testing.T) {
	f := newTrancheFixture(t, model.TrancheLocked)

	_, err := f.svc.UploadEvidence(context.Background(), f.ngoActor, f.id(), EvidenceInput{GeoTag: "95,200"})
	assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))
	assert.Equal(t, 0, f.store.count())
}

func TestUploadEvidenceNeedsSomething(t *testing.T) {
	f := newTrancheFixture(t, model.TrancheLocked)

	_, err := f.svc.UploadEvidence(context.Background(), f.ngoActor, f.id(), EvidenceInput{})
	assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))
}

func TestUploadEvidenceAfterReleaseIsConflict(t *testing.T) {
	f := newTrancheFixture(t, model.TrancheReleased)

	_, err := f.svc.UploadEvidence(context.Background(), f.ngoActor, f.id(), EvidenceInput{GeoTag: "12.9,77.5"})
	assert.Equal(t, apperror.KindStateConflict, apperror.KindOf(err))
}

func TestMarkDisbursedOnlyAfterRelease(t *testing.T) {
	f := newTrancheFixture(t, model.TranchePendingApproval)

	_, err := f.svc.MarkDisbursed(context.Background(), f.corpActor, f.id())
	assert.Equal(t, apperror.KindStateConflict, apperror.KindOf(err))

	f.tranche.SetStatus(model.TrancheReleased)
	f.expectSave()
	res, err := f.svc.MarkDisbursed(context.Background(), f.corpActor, f.id())
	require.NoError(t, err)
	assert.Equal(t, model.TrancheDisbursed, res.Status)
	assert.NotNil(t, res.DisbursedAt)
	assert.Empty(t, res.NextStatuses)
	assert.Equal(t, []string{model.NotifyTrancheDisbursed}, f.notifier.types())
}

func TestTrancheFullLifecycle(t *testing.T) {
	f := newTrancheFixture(t, model.TrancheLocked)
	f.tranches.On("UpdateWithVersion", mock.Anything, f.tranche).Return(nil)
	ctx := context.Background()

	file := pdfFile("uc.pdf")
	_, err := f.svc.UploadEvidence(ctx, f.ngoActor, f.id(), EvidenceInput{UtilizationCertificate: &file, GeoTag: "12.97,77.59"})
	require.NoError(t, err)

	_, err = f.svc.RequestRelease(ctx, f.ngoActor, f.id())
	require.NoError(t, err)

	_, err = f.svc.Review(ctx, f.corpActor, f.id(), ReviewTrancheRequest{Action: "REJECT", Remarks: "UC unsigned"})
	require.NoError(t, err)
	assert.True(t, f.tranche.IsBlocked)

	_, err = f.svc.RequestRelease(ctx, f.ngoActor, f.id())
	assert.Equal(t, apperror.KindStateConflict, apperror.KindOf(err))

	file = pdfFile("uc-signed.pdf")
	_, err = f.svc.UploadEvidence(ctx, f.ngoActor, f.id(), EvidenceInput{UtilizationCertificate: &file})
	require.NoError(t, err)

	_, err = f.svc.RequestRelease(ctx, f.ngoActor, f.id())
	require.NoError(t, err)

	_, err = f.svc.Review(ctx, f.corpActor, f.id(), ReviewTrancheRequest{Action: "APPROVE"})
	require.NoError(t, err)

	res, err := f.svc.MarkDisbursed(ctx, f.corpActor, f.id())
	require.NoError(t, err)
	assert.Equal(t, model.TrancheDisbursed, res.Status)

	assert.Equal(t, []string{
		model.NotifyTrancheReleaseRequested,
		model.NotifyTrancheRejected,
		model.NotifyTrancheReleaseRequested,
		model.NotifyTrancheApproved,
		model.NotifyTrancheDisbursed,
	}, f.notifier.types())
}

func TestListTranchesForMembersOnly(t *testing.T) {
	f := newTrancheFixture(t, model.TrancheLocked)
	f.tranches.On("ListByProject", mock.Anything, f.project.ID).Return([]model.Tranche{*f.tranche}, nil)

	list, err := f.svc.ListTranches(context.Background(), f.corpActor, f.project.ID.String())
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "40.00", list[0].Percentage)
	assert.Equal(t, []string{model.TranchePendingApproval}, list[0].NextStatuses)

	_, err = f.svc.ListTranches(context.Background(), f.otherNGO(), f.project.ID.String())
	assert.Equal(t, apperror.KindForbidden, apperror.KindOf(err))
}
