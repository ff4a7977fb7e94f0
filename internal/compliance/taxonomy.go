package compliance

import "strings"

// CustomDocName is the checklist entry used to ask for a document outside the taxonomy.
const CustomDocName = "Request Additional Document (Not Listed Above)"

// Category is one section of the fixed compliance checklist
type Category struct {
	Key  string   `json:"key"`
	Name string   `json:"name"`
	Docs []string `json:"docs"`
}

var taxonomy = []Category{
	{Key: "A", Name: "Legal & Registration", Docs: []string{
		"Registration Certificate",
		"Trust Deed / MOA",
		"PAN Card",
		"Registered Office Address Proof",
	}},
	{Key: "B", Name: "Tax Exemption", Docs: []string{
		"12A Certificate",
		"80G Certificate",
		"CSR-1 Registration",
	}},
	{Key: "C", Name: "Financial", Docs: []string{
		"Audited Financial Statements (3 years)",
		"ITR Acknowledgement",
		"Annual Report",
		"Bank Account Proof",
		"Cancelled Cheque",
	}},
	{Key: "D", Name: "Governance", Docs: []string{
		"Board Resolution",
		"List of Board Members",
		"Conflict of Interest Policy",
		"KYC of Trustees",
	}},
	{Key: "E", Name: "FCRA", Docs: []string{
		"FCRA Registration Certificate",
		"FCRA Annual Return (FC-4)",
		"FCRA Bank Account Proof",
	}},
	{Key: "F", Name: "Project Documentation", Docs: []string{
		"Project Proposal",
		"Budget Breakdown",
		"Implementation Plan",
		"MoU with Corporate",
		"Baseline Survey Report",
	}},
	{Key: "G", Name: "Monitoring & Utilization", Docs: []string{
		"Utilization Certificate",
		"Progress Report",
		"Geo-tagged Photographs",
		"Impact Assessment Report",
	}},
}

// Categories returns a copy of the checklist in display order
func Categories() []Category {
	out := make([]Category, len(taxonomy))
	for i, c := range taxonomy {
		out[i] = Category{Key: c.Key, Name: c.Name, Docs: append([]string(nil), c.Docs...)}
	}
	return out
}

// TotalDocs is the number of named documents across all categories
func TotalDocs() int {
	n := 0
	for _, c := range taxonomy {
		n += len(c.Docs)
	}
	return n
}

// LookupCategory finds a category by key (case-insensitive)
func LookupCategory(key string) (Category, bool) {
	key = strings.ToUpper(strings.TrimSpace(key))
	for _, c := range taxonomy {
		if c.Key == key {
			return c, true
		}
	}
	return Category{}, false
}

// IsListed reports whether docName belongs to the given category
func IsListed(category, docName string) bool {
	c, ok := LookupCategory(category)
	if !ok {
		return false
	}
	for _, d := range c.Docs {
		if d == docName {
			return true
		}
	}
	return false
}

// IsCustom reports whether docName is the free-form sentinel entry
func IsCustom(docName string) bool {
	return strings.TrimSpace(docName) == CustomDocName
}

// CategoryOf returns the key of the category listing docName, if any
func CategoryOf(docName string) (string, bool) {
	for _, c := range taxonomy {
		for _, d := range c.Docs {
			if d == docName {
				return c.Key, true
			}
		}
	}
	return "", false
}
