package compliance

import (
	"github.com/shopspring/decimal"

	"csrhub/internal/model"
)

// StatusRequested is the display state of a document that was asked for but not yet uploaded
const StatusRequested = "REQUESTED"

// EffectiveStatus merges a checklist row with its originating request.
// A decided checklist row wins; otherwise the request state shows through.
func EffectiveStatus(doc *model.ComplianceDoc, req *model.DocumentRequest) string {
	if doc != nil && doc.Status != "" && doc.Status != model.DocStatusPending {
		return doc.Status
	}
	if req != nil {
		switch req.Status {
		case model.RequestStatusPending:
			return StatusRequested
		case model.RequestStatusUploaded, model.RequestStatusVerified, model.RequestStatusRejected:
			return req.Status
		}
	}
	return model.DocStatusPending
}

// CountsAsSubmitted reports whether a status contributes to completeness
func CountsAsSubmitted(status string) bool {
	switch status {
	case model.DocStatusSubmitted, model.DocStatusVerified, model.DocStatusApproved:
		return true
	}
	return false
}

// CountsAsVerified reports whether a reviewer has accepted the document
func CountsAsVerified(status string) bool {
	return status == model.DocStatusVerified || status == model.DocStatusApproved
}

// Completeness returns round(100 * submitted / total) with half-up rounding
func Completeness(submitted, total int) int {
	if total <= 0 || submitted <= 0 {
		return 0
	}
	if submitted > total {
		submitted = total
	}
	pct := decimal.NewFromInt(int64(submitted) * 100).Div(decimal.NewFromInt(int64(total)))
	return int(pct.Round(0).IntPart())
}

// ChecklistEntry is one taxonomy document with its merged state
type ChecklistEntry struct {
	Category        string               `json:"category"`
	CategoryName    string               `json:"category_name"`
	DocName         string               `json:"doc_name"`
	Status          string               `json:"status"`
	Doc             *model.ComplianceDoc `json:"doc,omitempty"`
	RequestID       *string              `json:"request_id,omitempty"`
	RequestPriority string               `json:"request_priority,omitempty"`
}

// Checklist is the project compliance view
type Checklist struct {
	Entries      []ChecklistEntry `json:"entries"`
	Submitted    int              `json:"submitted"`
	Total        int              `json:"total"`
	Completeness int              `json:"completeness"`
}

type docKey struct {
	category string
	name     string
}

// BuildChecklist joins the taxonomy with the project's checklist rows.
// Rows outside the taxonomy are ignored for completeness.
func BuildChecklist(docs []model.ComplianceDoc) Checklist {
	byKey := make(map[docKey]*model.ComplianceDoc, len(docs))
	for i := range docs {
		byKey[docKey{docs[i].Category, docs[i].DocName}] = &docs[i]
	}

	var cl Checklist
	for _, c := range taxonomy {
		for _, name := range c.Docs {
			entry := ChecklistEntry{Category: c.Key, CategoryName: c.Name, DocName: name}
			doc := byKey[docKey{c.Key, name}]
			var req *model.DocumentRequest
			if doc != nil {
				entry.Doc = doc
				req = doc.Request
				if req != nil {
					id := req.ID.String()
					entry.RequestID = &id
					entry.RequestPriority = req.Priority
				}
			}
			entry.Status = EffectiveStatus(doc, req)
			if doc != nil && CountsAsSubmitted(doc.Status) {
				cl.Submitted++
			}
			cl.Entries = append(cl.Entries, entry)
		}
	}
	cl.Total = TotalDocs()
	cl.Completeness = Completeness(cl.Submitted, cl.Total)
	return cl
}
