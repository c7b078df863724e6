package tracer

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/yairfalse/kaiku/pkg/config"
)

func TestAllowAll(t *testing.T) {
	gate := AllowAll()
	for i := 0; i < 3; i++ {
		assert.True(t, gate())
	}
}

func TestLeaderOnlySameThread(t *testing.T) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	gate := LeaderOnly()
	assert.True(t, gate(), "first caller becomes the leader")
	assert.True(t, gate(), "the leader stays admitted")
}

func TestGateFor(t *testing.T) {
	assert.NotNil(t, gateFor(config.GateLeader))
	assert.NotNil(t, gateFor(config.GateAll))
	assert.True(t, gateFor(config.GateAll)())
	assert.True(t, gateFor("unset")(), "unknown policies admit everyone")
}
