package tracer

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/yairfalse/kaiku/pkg/config"
)

// scrubDefault isolates process-global state: env-driven config and
// the shared default engine.
func scrubDefault(t *testing.T) {
	t.Helper()
	t.Setenv("KAIKU_CONFIG", "")
	t.Setenv("KAIKU_OUTPUT_PATH", filepath.Join(t.TempDir(), "trace.json"))
	t.Setenv("KAIKU_SAVE_ON_EXIT", "false")
	t.Setenv("KAIKU_GATE", config.GateAll)
	require.NoError(t, Teardown())
	t.Cleanup(func() { _ = Teardown() })
}

func TestDefaultLazyInit(t *testing.T) {
	scrubDefault(t)

	eng := Default()
	require.NotNil(t, eng)
	assert.Same(t, eng, Default(), "the default engine is a singleton")
}

func TestInitAfterDefaultFails(t *testing.T) {
	scrubDefault(t)
	Default()

	_, err := Init(config.DefaultConfig(), zaptest.NewLogger(t))
	assert.Error(t, err)
}

func TestInitThenDefault(t *testing.T) {
	scrubDefault(t)

	cfg := config.DefaultConfig()
	cfg.Gate = config.GateAll
	cfg.SaveOnExit = false
	eng, err := Init(cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.Same(t, eng, Default())
}

func TestTeardownClearsDefault(t *testing.T) {
	scrubDefault(t)

	first := Default()
	require.NoError(t, Teardown())
	assert.NotSame(t, first, Default(), "teardown forgets the old engine")
}

func TestTeardownWithoutEngine(t *testing.T) {
	scrubDefault(t)
	assert.NoError(t, Teardown())
	assert.NoError(t, Teardown())
}

func TestHandleRegistry(t *testing.T) {
	eng := newTestEngine(t)

	h := Register(eng)
	assert.Same(t, eng, Lookup(h))

	other := newTestEngine(t)
	h2 := Register(other)
	assert.NotEqual(t, h, h2)
	assert.Same(t, other, Lookup(h2))

	Release(h)
	assert.Nil(t, Lookup(h))
	assert.Same(t, other, Lookup(h2), "release only touches its own handle")
	Release(h2)
}

func TestLookupUnknownHandle(t *testing.T) {
	assert.Nil(t, Lookup(Handle(1<<40)))
}
