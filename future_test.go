package aebridge

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFutureCompletes(t *testing.T) {
	fut := NewFuture[string]()
	go fut.Complete("done")

	v, err := fut.Get()
	require.NoError(t, err)
	assert.Equal(t, "done", v)

	// repeated gets observe the same settlement
	v, err = fut.Get()
	require.NoError(t, err)
	assert.Equal(t, "done", v)
}

func TestFutureErrors(t *testing.T) {
	fut := NewFuture[string]()
	boom := errors.New("boom")
	go fut.Error(boom)

	_, err := fut.Get()
	assert.ErrorIs(t, err, boom)
}

func TestFutureFirstSettlementWins(t *testing.T) {
	fut := NewFuture[int]()
	fut.Complete(1)
	fut.Complete(2)
	fut.Error(errors.New("too late"))

	v, err := fut.Get()
	require.NoError(t, err)
	assert.Equal(t, 1, v)
}

func TestFutureConcurrentGetters(t *testing.T) {
	fut := NewFuture[int]()

	var wg sync.WaitGroup
	results := make([]int, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := fut.Get()
			require.NoError(t, err)
			results[i] = v
		}(i)
	}
	fut.Complete(42)
	wg.Wait()

	for _, v := range results {
		assert.Equal(t, 42, v)
	}
}
