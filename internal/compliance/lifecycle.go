package compliance

import (
	"csrhub/internal/model"
	"csrhub/pkg/workflow"
)

// DocLifecycle governs checklist rows. A new upload may replace a file that
// is still awaiting review, and REJECTED loops back through re-upload.
var DocLifecycle = workflow.New("compliance_doc", map[string][]string{
	model.DocStatusPending:   {model.DocStatusSubmitted},
	model.DocStatusSubmitted: {model.DocStatusSubmitted, model.DocStatusVerified, model.DocStatusApproved, model.DocStatusRejected},
	model.DocStatusUploaded:  {model.DocStatusSubmitted, model.DocStatusVerified, model.DocStatusApproved, model.DocStatusRejected},
	model.DocStatusVerified:  {model.DocStatusApproved, model.DocStatusRejected},
	model.DocStatusRejected:  {model.DocStatusSubmitted},
})

// RequestLifecycle governs document requests
var RequestLifecycle = workflow.New("document_request", map[string][]string{
	model.RequestStatusPending:  {model.RequestStatusUploaded},
	model.RequestStatusUploaded: {model.RequestStatusUploaded, model.RequestStatusVerified, model.RequestStatusRejected},
	model.RequestStatusRejected: {model.RequestStatusUploaded},
})
