package compliance

import (
	"time"

	"csrhub/internal/model"
)

// Freshness is the derived state of a certificate validity date
type Freshness string

const (
	FreshnessValid        Freshness = "VALID"
	FreshnessExpiringSoon Freshness = "EXPIRING_SOON"
	FreshnessExpired      Freshness = "EXPIRED"
	FreshnessMissing      Freshness = "MISSING"
)

// DefaultExpiryThreshold is the look-ahead window for EXPIRING_SOON
const DefaultExpiryThreshold = 60 * 24 * time.Hour

// Classify buckets a validity date against now using the default 60 day window.
func Classify(date *time.Time, now time.Time) Freshness {
	return ClassifyWithin(date, now, DefaultExpiryThreshold)
}

// ClassifyWithin buckets a validity date. The window end is inclusive.
func ClassifyWithin(date *time.Time, now time.Time, threshold time.Duration) Freshness {
	if date == nil {
		return FreshnessMissing
	}
	if date.Before(now) {
		return FreshnessExpired
	}
	if !date.After(now.Add(threshold)) {
		return FreshnessExpiringSoon
	}
	return FreshnessValid
}

// Report is the freshness of every NGO certificate
type Report struct {
	Cert12A Freshness `json:"cert_12a"`
	Cert80G Freshness `json:"cert_80g"`
	FCRA    Freshness `json:"fcra"`
	IsFresh bool      `json:"is_fresh"`
}

// Evaluate computes the freshness report of an NGO. FCRA does not take part in IsFresh.
func Evaluate(ngo model.NGO, now time.Time, threshold time.Duration) Report {
	r := Report{
		Cert12A: ClassifyWithin(ngo.Validity12A, now, threshold),
		Cert80G: ClassifyWithin(ngo.Validity80G, now, threshold),
		FCRA:    ClassifyWithin(ngo.FCRARenewalDate, now, threshold),
	}
	r.IsFresh = r.Cert12A == FreshnessValid && r.Cert80G == FreshnessValid
	return r
}

// Urgent lists the certificates that need attention, keyed by certificate label
func (r Report) Urgent() map[string]Freshness {
	out := make(map[string]Freshness)
	for label, f := range map[string]Freshness{"12A": r.Cert12A, "80G": r.Cert80G, "FCRA": r.FCRA} {
		if f == FreshnessExpiringSoon || f == FreshnessExpired {
			out[label] = f
		}
	}
	return out
}
