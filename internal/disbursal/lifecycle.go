package disbursal

import (
	"csrhub/internal/model"
	"csrhub/pkg/workflow"
)

// TrancheLifecycle is the single source of allowed tranche moves
var TrancheLifecycle = workflow.New("tranche", map[string][]string{
	model.TrancheLocked:          {model.TranchePendingApproval},
	model.TranchePendingApproval: {model.TrancheReleased, model.TrancheBlocked},
	model.TrancheBlocked:         {model.TrancheLocked},
	model.TrancheReleased:        {model.TrancheDisbursed},
})
