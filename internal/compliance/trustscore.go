package compliance

import "github.com/shopspring/decimal"

// MaxTrustScore is the top of the trust scale
const MaxTrustScore = 900

// TrustInputs are the signals the trust score is built from
type TrustInputs struct {
	Freshness Report
	// AvgCompleteness is the mean completeness percentage across the NGO's projects
	AvgCompleteness int
	SubmittedDocs   int
	VerifiedDocs    int
}

func taxCertPoints(f Freshness) int {
	switch f {
	case FreshnessValid:
		return 150
	case FreshnessExpiringSoon:
		return 100
	}
	return 0
}

func fcraPoints(f Freshness) int {
	switch f {
	case FreshnessValid:
		return 100
	case FreshnessExpiringSoon:
		return 60
	case FreshnessMissing:
		// many NGOs never need FCRA
		return 50
	}
	return 0
}

// TrustScore returns the weighted 0-900 score
func TrustScore(in TrustInputs) int {
	score := taxCertPoints(in.Freshness.Cert12A) + taxCertPoints(in.Freshness.Cert80G) + fcraPoints(in.Freshness.FCRA)

	completeness := in.AvgCompleteness
	if completeness < 0 {
		completeness = 0
	}
	if completeness > 100 {
		completeness = 100
	}
	score += completeness * 3

	if in.SubmittedDocs > 0 {
		verified := in.VerifiedDocs
		if verified > in.SubmittedDocs {
			verified = in.SubmittedDocs
		}
		ratio := decimal.NewFromInt(int64(verified)).Mul(decimal.NewFromInt(200)).Div(decimal.NewFromInt(int64(in.SubmittedDocs)))
		score += int(ratio.Round(0).IntPart())
	}

	if score < 0 {
		return 0
	}
	if score > MaxTrustScore {
		return MaxTrustScore
	}
	return score
}
