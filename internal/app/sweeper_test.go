package app

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSweeperReapsAfterDeadline(t *testing.T) {
	table := NewCallTable()
	_, err := table.Create("c1", "alice", "bob")
	require.NoError(t, err)

	sweeper := NewSweeper(table, 10*time.Millisecond, 50*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go sweeper.Run(ctx)

	// Well inside the deadline the session must survive.
	time.Sleep(25 * time.Millisecond)
	_, err = table.Get("c1")
	assert.NoError(t, err, "session reaped before the deadline")

	// After deadline + interval it must be gone.
	assert.Eventually(t, func() bool {
		_, err := table.Get("c1")
		return err != nil
	}, 500*time.Millisecond, 10*time.Millisecond)
}

func TestSweeperStopsOnContextCancel(t *testing.T) {
	table := NewCallTable()
	sweeper := NewSweeper(table, time.Millisecond, time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sweeper.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop on cancel")
	}
}
