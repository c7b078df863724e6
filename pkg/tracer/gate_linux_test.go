//go:build linux

package tracer

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLeaderOnlyRejectsOtherThreads(t *testing.T) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	gate := LeaderOnly()
	require.True(t, gate(), "first caller becomes the leader")

	results := make(chan bool, 1)
	go func() {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
		results <- gate()
	}()
	assert.False(t, <-results, "a different OS thread is rejected")
	assert.True(t, gate(), "the leader is still admitted")
}

func TestLeaderOnlyIndependentElections(t *testing.T) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	a := LeaderOnly()
	b := LeaderOnly()
	require.True(t, a())

	done := make(chan bool, 1)
	go func() {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
		done <- b()
	}()
	assert.True(t, <-done, "each gate elects its own leader")
}
