package workflow

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateMachine(t *testing.T) {
	sm := New("tranche", map[string][]string{
		"LOCKED":           {"PENDING_APPROVAL"},
		"PENDING_APPROVAL": {"RELEASED", "BLOCKED"},
		"BLOCKED":          {"LOCKED"},
		"RELEASED":         {"DISBURSED"},
		"DISBURSED":        {},
	})

	assert.Equal(t, "tranche", sm.Name())
	assert.True(t, sm.CanTransition("LOCKED", "PENDING_APPROVAL"))
	assert.True(t, sm.CanTransition("PENDING_APPROVAL", "BLOCKED"))
	assert.False(t, sm.CanTransition("LOCKED", "RELEASED"))
	assert.False(t, sm.CanTransition("RELEASED", "RELEASED"))
	assert.False(t, sm.CanTransition("UNKNOWN", "LOCKED"))

	assert.ElementsMatch(t, []string{"RELEASED", "BLOCKED"}, sm.GetAllowedTransitions("PENDING_APPROVAL"))
	assert.Empty(t, sm.GetAllowedTransitions("UNKNOWN"))
	assert.True(t, sm.IsTerminal("DISBURSED"))
	assert.False(t, sm.IsTerminal("LOCKED"))
}

func TestCheckNamesMachine(t *testing.T) {
	sm := New("compliance_doc", map[string][]string{
		"PENDING":   {"SUBMITTED"},
		"SUBMITTED": {"APPROVED"},
	})

	assert.NoError(t, sm.Check("PENDING", "SUBMITTED"))

	err := sm.Check("PENDING", "APPROVED")
	var te *TransitionError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, TransitionError{Machine: "compliance_doc", From: "PENDING", To: "APPROVED"}, *te)
	assert.Equal(t, "compliance_doc cannot move from PENDING to APPROVED", err.Error())
}
