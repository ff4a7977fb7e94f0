package service

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"csrhub/internal/model"
	"csrhub/internal/upload"
	"csrhub/pkg/apperror"
)

type complianceFixture struct {
	*world
	docs     *MockComplianceDocRepository
	requests *MockDocumentRequestRepository
	uploads  *MockDocumentUploadRepository
	svc      ComplianceService
}

func newComplianceFixture(t *testing.T) *complianceFixture {
	w := newWorld(t)
	f := &complianceFixture{
		world:    w,
		docs:     new(MockComplianceDocRepository),
		requests: new(MockDocumentRequestRepository),
		uploads:  new(MockDocumentUploadRepository),
	}
	f.uploads.On("Create", mock.Anything, mock.Anything).Return(nil).Maybe()
	f.svc = NewComplianceService(passThroughTM{}, w.projects, f.docs, f.requests, f.uploads, w.audit, w.parties, w.notifier, w.store, testValidator(), w.log)
	return f
}

func (f *complianceFixture) existingDoc(status string) *model.ComplianceDoc {
	doc := &model.ComplianceDoc{
		ID:        uuid.New(),
		ProjectID: f.project.ID,
		Category:  "A",
		DocName:   "PAN Card",
		Status:    status,
		Version:   2,
	}
	f.docs.On("GetByID", mock.Anything, doc.ID).Return(doc, nil).Maybe()
	f.docs.On("GetByIDForUpdate", mock.Anything, doc.ID).Return(doc, nil).Maybe()
	f.docs.On("FindByKeyForUpdate", mock.Anything, f.project.ID, "A", "PAN Card").Return(doc, nil).Maybe()
	return doc
}

func TestUploadCreatesSubmittedRow(t *testing.T) {
	f := newComplianceFixture(t)
	f.docs.On("FindByKeyForUpdate", mock.Anything, f.project.ID, "A", "PAN Card").Return(nil, gorm.ErrRecordNotFound)
	f.docs.On("Create", mock.Anything, mock.MatchedBy(func(d *model.ComplianceDoc) bool {
		return d.Status == model.DocStatusSubmitted && d.Version == 1 && d.ID != uuid.Nil
	})).Return(nil).Once()

	res, err := f.svc.UploadDocument(context.Background(), f.ngoActor, f.project.ID.String(), "", "PAN Card", pdfFile("pan.pdf"))
	require.NoError(t, err)

	assert.Equal(t, "A", res.Category)
	assert.Equal(t, model.DocStatusSubmitted, res.Status)
	assert.Contains(t, res.URL, "/compliance/A/")
	assert.Nil(t, res.RequestID)
	assert.Equal(t, 1, f.store.count())
	f.docs.AssertExpectations(t)
	f.uploads.AssertNumberOfCalls(t, "Create", 1)
	assert.Empty(t, f.notifier.sent)
}

func TestUploadUnlistedDocRejected(t *testing.T) {
	f := newComplianceFixture(t)

	_, err := f.svc.UploadDocument(context.Background(), f.ngoActor, f.project.ID.String(), "A", "Birth Certificate", pdfFile("x.pdf"))
	assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))
	assert.Equal(t, 0, f.store.count())
	f.docs.AssertNumberOfCalls(t, "FindByKeyForUpdate", 0)
	f.docs.AssertNumberOfCalls(t, "Create", 0)
}

func TestUploadUnknownCategory(t *testing.T) {
	f := newComplianceFixture(t)

	_, err := f.svc.UploadDocument(context.Background(), f.ngoActor, f.project.ID.String(), "Z", "PAN Card", pdfFile("x.pdf"))
	assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))
	assert.Equal(t, 0, f.store.count())
}

func TestUploadOversizeRejectedBeforeStorage(t *testing.T) {
	f := newComplianceFixture(t)
	big := bytes.Repeat([]byte("a"), 3<<20)
	file := upload.File{Name: "big.pdf", DeclaredType: "application/pdf", Size: int64(len(big)), Content: bytes.NewReader(big)}

	_, err := f.svc.UploadDocument(context.Background(), f.ngoActor, f.project.ID.String(), "A", "PAN Card", file)
	assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))
	assert.Equal(t, 0, f.store.count())
}

func TestUploadByCorporateForbidden(t *testing.T) {
	f := newComplianceFixture(t)

	_, err := f.svc.UploadDocument(context.Background(), f.corpActor, f.project.ID.String(), "A", "PAN Card", pdfFile("pan.pdf"))
	assert.Equal(t, apperror.KindForbidden, apperror.KindOf(err))
}

func TestUploadStorageFailure(t *testing.T) {
	f := newComplianceFixture(t)
	f.store.err = apperror.Storage(errors.New("bucket gone"), "failed to store object")

	_, err := f.svc.UploadDocument(context.Background(), f.ngoActor, f.project.ID.String(), "A", "PAN Card", pdfFile("pan.pdf"))
	assert.Equal(t, apperror.KindUpstreamStorage, apperror.KindOf(err))
	f.docs.AssertNotCalled(t, "FindByKeyForUpdate", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestUploadAdvancesLinkedRequest(t *testing.T) {
	f := newComplianceFixture(t)
	doc := f.existingDoc(model.DocStatusPending)
	req := &model.DocumentRequest{
		ID:          uuid.New(),
		CorporateID: f.corp.ID,
		NGOID:       f.ngo.ID,
		DocName:     "PAN Card",
		Status:      model.RequestStatusPending,
		Version:     1,
	}
	doc.RequestID = &req.ID
	f.requests.On("GetByIDForUpdate", mock.Anything, req.ID).Return(req, nil)
	f.requests.On("UpdateWithVersion", mock.Anything, req).Return(nil).Once()
	f.docs.On("UpdateWithVersion", mock.Anything, doc).Return(nil).Once()

	res, err := f.svc.UploadDocument(context.Background(), f.ngoActor, f.project.ID.String(), "A", "PAN Card", pdfFile("pan.pdf"))
	require.NoError(t, err)

	assert.Equal(t, model.DocStatusSubmitted, res.Status)
	assert.Equal(t, model.RequestStatusUploaded, req.Status)
	assert.Equal(t, res.URL, req.FileURL)
	assert.NotNil(t, req.UploadedAt)
	assert.Equal(t, []string{model.NotifyDocumentUploaded}, f.notifier.types())
	assert.Equal(t, f.corpActor.UserID, f.notifier.sent[0].UserID)
}

func TestReuploadAfterApprovalIsConflict(t *testing.T) {
	f := newComplianceFixture(t)
	f.existingDoc(model.DocStatusApproved)

	_, err := f.svc.UploadDocument(context.Background(), f.ngoActor, f.project.ID.String(), "A", "PAN Card", pdfFile("pan.pdf"))
	assert.Equal(t, apperror.KindStateConflict, apperror.KindOf(err))
}

func TestVerifyDocument(t *testing.T) {
	f := newComplianceFixture(t)
	doc := f.existingDoc(model.DocStatusSubmitted)
	f.docs.On("UpdateWithVersion", mock.Anything, doc).Return(nil).Once()

	res, err := f.svc.VerifyDocument(context.Background(), f.corpActor, doc.ID.String(), VerifyDocumentRequest{Status: "verified"})
	require.NoError(t, err)

	assert.Equal(t, model.DocStatusVerified, res.Status)
	require.NotNil(t, res.VerifiedBy)
	assert.Equal(t, f.corpActor.UserID.String(), *res.VerifiedBy)
	assert.Equal(t, []string{model.NotifyDocumentVerified}, f.notifier.types())
}

func TestRejectDocumentNeedsRemarks(t *testing.T) {
	f := newComplianceFixture(t)
	doc := f.existingDoc(model.DocStatusSubmitted)

	_, err := f.svc.VerifyDocument(context.Background(), f.corpActor, doc.ID.String(), VerifyDocumentRequest{Status: "REJECTED"})
	assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))
	assert.Equal(t, model.DocStatusSubmitted, doc.Status)
}

func TestRejectDocumentMirrorsRequest(t *testing.T) {
	f := newComplianceFixture(t)
	doc := f.existingDoc(model.DocStatusSubmitted)
	req := &model.DocumentRequest{ID: uuid.New(), CorporateID: f.corp.ID, Status: model.RequestStatusUploaded, Version: 2}
	doc.RequestID = &req.ID
	f.docs.On("UpdateWithVersion", mock.Anything, doc).Return(nil).Once()
	f.requests.On("GetByIDForUpdate", mock.Anything, req.ID).Return(req, nil)
	f.requests.On("UpdateWithVersion", mock.Anything, req).Return(nil).Once()

	res, err := f.svc.VerifyDocument(context.Background(), f.adminActor, doc.ID.String(), VerifyDocumentRequest{Status: "REJECTED", Remarks: "expired PAN"})
	require.NoError(t, err)

	assert.Equal(t, model.DocStatusRejected, res.Status)
	assert.Equal(t, "expired PAN", res.Remarks)
	assert.Equal(t, model.RequestStatusRejected, req.Status)
	assert.Equal(t, "expired PAN", req.Remarks)
	assert.Equal(t, []string{model.NotifyDocumentRejected}, f.notifier.types())
}

func TestVerifyPendingDocIsConflict(t *testing.T) {
	f := newComplianceFixture(t)
	doc := f.existingDoc(model.DocStatusPending)

	_, err := f.svc.VerifyDocument(context.Background(), f.corpActor, doc.ID.String(), VerifyDocumentRequest{Status: "VERIFIED"})
	assert.Equal(t, apperror.KindStateConflict, apperror.KindOf(err))
	assert.Empty(t, f.notifier.sent)
}

func TestReverifyVerifiedDocIsConflict(t *testing.T) {
	f := newComplianceFixture(t)
	doc := f.existingDoc(model.DocStatusVerified)

	_, err := f.svc.VerifyDocument(context.Background(), f.corpActor, doc.ID.String(), VerifyDocumentRequest{Status: "VERIFIED"})
	assert.Equal(t, apperror.KindStateConflict, apperror.KindOf(err))
	assert.EqualError(t, err, "PAN Card: compliance_doc cannot move from VERIFIED to VERIFIED")
	assert.Equal(t, model.DocStatusVerified, doc.Status)
}

func TestListUploadsNewestFirst(t *testing.T) {
	f := newComplianceFixture(t)
	doc := f.existingDoc(model.DocStatusSubmitted)
	older := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	uploads := []model.DocumentUpload{
		{ID: uuid.New(), ComplianceDocID: &doc.ID, UploadedBy: f.ngoActor.UserID, FileName: "pan-v2.pdf", MimeType: "application/pdf", SizeBytes: 2048, URL: "https://cdn/pan-v2.pdf", CreatedAt: older.Add(time.Hour)},
		{ID: uuid.New(), ComplianceDocID: &doc.ID, UploadedBy: f.ngoActor.UserID, FileName: "pan.pdf", MimeType: "application/pdf", SizeBytes: 1024, URL: "https://cdn/pan.pdf", CreatedAt: older},
	}
	f.uploads.On("ListByComplianceDoc", mock.Anything, doc.ID).Return(uploads, nil).Once()

	res, err := f.svc.ListUploads(context.Background(), f.corpActor, doc.ID.String())
	require.NoError(t, err)

	require.Len(t, res, 2)
	assert.Equal(t, "pan-v2.pdf", res[0].FileName)
	assert.Equal(t, f.ngoActor.UserID.String(), res[1].UploadedBy)
	assert.Equal(t, "2026-03-01T09:00:00Z", res[1].UploadedAt)
	f.uploads.AssertExpectations(t)
}

func TestListUploadsOutsiderForbidden(t *testing.T) {
	f := newComplianceFixture(t)
	doc := f.existingDoc(model.DocStatusSubmitted)

	_, err := f.svc.ListUploads(context.Background(), f.otherNGO(), doc.ID.String())
	assert.Equal(t, apperror.KindForbidden, apperror.KindOf(err))
	f.uploads.AssertNotCalled(t, "ListByComplianceDoc", mock.Anything, mock.Anything)
}

func TestVerifyByOtherCorporateForbidden(t *testing.T) {
	f := newComplianceFixture(t)
	doc := f.existingDoc(model.DocStatusSubmitted)

	_, err := f.svc.VerifyDocument(context.Background(), f.otherCorporate(), doc.ID.String(), VerifyDocumentRequest{Status: "VERIFIED"})
	assert.Equal(t, apperror.KindForbidden, apperror.KindOf(err))

	_, err = f.svc.VerifyDocument(context.Background(), f.ngoActor, doc.ID.String(), VerifyDocumentRequest{Status: "VERIFIED"})
	assert.Equal(t, apperror.KindForbidden, apperror.KindOf(err))
}

func TestChecklistCompleteness(t *testing.T) {
	f := newComplianceFixture(t)
	f.docs.On("ListByProject", mock.Anything, f.project.ID).Return([]model.ComplianceDoc{
		{ProjectID: f.project.ID, Category: "A", DocName: "PAN Card", Status: model.DocStatusVerified},
		{ProjectID: f.project.ID, Category: "B", DocName: "12A Certificate", Status: model.DocStatusSubmitted},
		{ProjectID: f.project.ID, Category: "B", DocName: "80G Certificate", Status: model.DocStatusRejected},
		{ProjectID: f.project.ID, Category: "A", DocName: "Something Else", Status: model.DocStatusApproved},
	}, nil)

	res, err := f.svc.GetChecklist(context.Background(), f.corpActor, f.project.ID.String())
	require.NoError(t, err)

	assert.Equal(t, f.project.ID.String(), res.ProjectID)
	assert.Equal(t, 28, res.Total)
	assert.Equal(t, 2, res.Submitted)
	assert.Equal(t, 7, res.Completeness)
	assert.Len(t, res.Entries, 28)
}

func TestExportChecklist(t *testing.T) {
	f := newComplianceFixture(t)
	f.docs.On("ListByProject", mock.Anything, f.project.ID).Return([]model.ComplianceDoc{}, nil)

	file, err := f.svc.ExportChecklist(context.Background(), f.ngoActor, f.project.ID.String())
	require.NoError(t, err)

	assert.Contains(t, file.FileName, "compliance_"+f.project.ID.String())
	assert.Contains(t, file.FileName, ".xlsx")
	assert.NotEmpty(t, file.Data)
	assert.Equal(t, []byte("PK"), file.Data[:2])
}
