package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAfterCommitOutsideTxRunsImmediately(t *testing.T) {
	ran := false
	AfterCommit(context.Background(), func() { ran = true })
	assert.True(t, ran)
}

func TestAfterCommitQueuesInsideTx(t *testing.T) {
	hooks := &txHooks{}
	ctx := context.WithValue(context.Background(), hooksKey, hooks)

	ran := false
	AfterCommit(ctx, func() { ran = true })
	assert.False(t, ran)
	assert.Len(t, hooks.fns, 1)

	hooks.fns[0]()
	assert.True(t, ran)
}
