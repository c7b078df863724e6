package tracer

import (
	"fmt"
	"os"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/yairfalse/kaiku/pkg/config"
)

var (
	defaultMu     sync.Mutex
	defaultEngine *Engine
)

// Default returns the process-wide engine, creating it from the
// environment on first use. Compiler-inserted calls route here, so
// creation never fails: a broken environment falls back to defaults
// with a line on stderr.
func Default() *Engine {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultEngine == nil {
		defaultEngine = newDefaultEngine()
	}
	return defaultEngine
}

func newDefaultEngine() *Engine {
	cfg, err := config.FromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "kaiku: invalid configuration, using defaults: %v\n", err)
		cfg = config.DefaultConfig()
	}
	eng, err := NewEngine(cfg, runtimeLogger(cfg.Debug))
	if err != nil {
		// Unreachable with a default config; keep the contract anyway.
		eng, _ = NewEngine(nil, zap.NewNop())
	}
	return eng
}

// Init installs an explicitly configured engine as the process
// default. It fails if a default engine already exists; use Teardown
// first to replace it.
func Init(cfg *config.Config, logger *zap.Logger) (*Engine, error) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultEngine != nil {
		return nil, fmt.Errorf("tracer already initialized")
	}
	eng, err := NewEngine(cfg, logger)
	if err != nil {
		return nil, err
	}
	defaultEngine = eng
	return eng, nil
}

// Teardown closes the default engine, saving the trace if its config
// asks for that, and clears it so Init or Default can start fresh.
// Safe to call when no engine exists.
func Teardown() error {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultEngine == nil {
		return nil
	}
	err := defaultEngine.Close()
	defaultEngine = nil
	return err
}

// runtimeLogger builds the logger used inside traced processes. Output
// goes to stderr only, since the host program owns stdout. The default
// level is Warn; debug mode opens everything up.
func runtimeLogger(debug bool) *zap.Logger {
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	if debug {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	} else {
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	}
	logger, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger.Named("kaiku")
}

// Handle identifies an engine across the C boundary, where passing Go
// pointers is not allowed.
type Handle uint64

var (
	handleMu   sync.RWMutex
	handles    = make(map[Handle]*Engine)
	nextHandle atomic.Uint64
)

// Register assigns a handle to eng for embedders driving several
// engines through the C interface.
func Register(eng *Engine) Handle {
	h := Handle(nextHandle.Add(1))
	handleMu.Lock()
	handles[h] = eng
	handleMu.Unlock()
	return h
}

// Lookup resolves a handle. It returns nil for released or unknown
// handles.
func Lookup(h Handle) *Engine {
	handleMu.RLock()
	defer handleMu.RUnlock()
	return handles[h]
}

// Release forgets the handle. The engine itself is not closed.
func Release(h Handle) {
	handleMu.Lock()
	delete(handles, h)
	handleMu.Unlock()
}
