package indexmgr_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/localdb/docstore/indexmgr"
)

func TestWorkerPoolRunsAndReturnsError(t *testing.T) {
	pool := indexmgr.NewWorkerPool(2)
	defer pool.Close()

	require.NoError(t, pool.Run(func() error { return nil }))

	boom := errors.New("boom")
	err := pool.Run(func() error { return boom })
	assert.ErrorIs(t, err, boom)
}

func TestWorkerPoolRunAfterCloseFails(t *testing.T) {
	pool := indexmgr.NewWorkerPool(1)
	pool.Close()

	err := pool.Run(func() error { return nil })
	assert.ErrorIs(t, err, indexmgr.ErrClosed)
}
