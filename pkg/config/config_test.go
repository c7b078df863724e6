package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, DefaultOutputPath, cfg.OutputPath)
	assert.Equal(t, ContextChecksum, cfg.ContextStrategy)
	assert.Equal(t, GateLeader, cfg.Gate)
	assert.True(t, cfg.SaveOnExit)
	assert.Equal(t, 0, cfg.MaxEvents)
	assert.Equal(t, 1_000_000, cfg.LogEvery)
}

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{}
	cfg.ApplyDefaults()
	assert.Equal(t, DefaultOutputPath, cfg.OutputPath)
	assert.Equal(t, ContextChecksum, cfg.ContextStrategy)
	assert.Equal(t, GateLeader, cfg.Gate)
	assert.Equal(t, 1_000_000, cfg.LogEvery)
	// ApplyDefaults never flips explicit booleans.
	assert.False(t, cfg.SaveOnExit)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantField string
	}{
		{
			name:      "EmptyOutputPath",
			mutate:    func(c *Config) { c.OutputPath = "" },
			wantField: "output_path",
		},
		{
			name:      "BadContextStrategy",
			mutate:    func(c *Config) { c.ContextStrategy = "fuzzy" },
			wantField: "context_strategy",
		},
		{
			name:      "BadGate",
			mutate:    func(c *Config) { c.Gate = "nobody" },
			wantField: "gate",
		},
		{
			name:      "NegativeMaxEvents",
			mutate:    func(c *Config) { c.MaxEvents = -1 },
			wantField: "max_events",
		},
		{
			name:      "ZeroLogEvery",
			mutate:    func(c *Config) { c.LogEvery = 0 },
			wantField: "log_every",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)

			verrs, ok := err.(ValidationErrors)
			require.True(t, ok)
			require.Equal(t, 1, verrs.Count())
			assert.Equal(t, tt.wantField, verrs.Errors[0].Field)
			assert.NotEmpty(t, verrs.Errors[0].Suggestion)
		})
	}

	t.Run("MultipleErrors", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.ContextStrategy = "fuzzy"
		cfg.Gate = "nobody"
		err := cfg.Validate()
		require.Error(t, err)

		verrs, ok := err.(ValidationErrors)
		require.True(t, ok)
		assert.Equal(t, 2, verrs.Count())
		assert.Len(t, verrs.Suggestions(), 2)
		assert.Contains(t, err.Error(), "multiple validation errors")
	})

	t.Run("ValidValuesListed", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Gate = "nobody"
		err := cfg.Validate()
		verrs := err.(ValidationErrors)
		assert.Equal(t, []string{GateAll, GateLeader}, verrs.Errors[0].ValidValues)
	})
}

func TestLoaderFile(t *testing.T) {
	t.Run("YAML", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "kaiku.yaml")
		require.NoError(t, os.WriteFile(path, []byte(
			"output_path: run.json.zst\ncontext_strategy: exact\nmax_events: 500\nsave_on_exit: false\n"), 0o644))

		cfg, err := NewLoader().WithConfigFile(path).Load()
		require.NoError(t, err)
		assert.Equal(t, "run.json.zst", cfg.OutputPath)
		assert.Equal(t, ContextExact, cfg.ContextStrategy)
		assert.Equal(t, 500, cfg.MaxEvents)
		assert.False(t, cfg.SaveOnExit)
		// Untouched fields keep defaults.
		assert.Equal(t, GateLeader, cfg.Gate)
	})

	t.Run("JSON", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "kaiku.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"gate": "all"}`), 0o644))

		cfg, err := NewLoader().WithConfigFile(path).Load()
		require.NoError(t, err)
		assert.Equal(t, GateAll, cfg.Gate)
	})

	t.Run("MissingPinnedFile", func(t *testing.T) {
		_, err := NewLoader().WithConfigFile("/nonexistent/kaiku.yaml").Load()
		require.Error(t, err)
		var cerr ConfigError
		require.ErrorAs(t, err, &cerr)
		assert.Equal(t, "not_found", cerr.Type)
	})

	t.Run("BadYAML", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "kaiku.yaml")
		require.NoError(t, os.WriteFile(path, []byte("output_path: [unclosed"), 0o644))

		_, err := NewLoader().WithConfigFile(path).Load()
		require.Error(t, err)
		var cerr ConfigError
		require.ErrorAs(t, err, &cerr)
		assert.Equal(t, "parse_error", cerr.Type)
	})

	t.Run("NoFileAnywhereIsFine", func(t *testing.T) {
		t.Setenv("KAIKU_CONFIG", "")
		cfg, err := NewLoader().WithSearchPaths(nil).Load()
		require.NoError(t, err)
		assert.Equal(t, DefaultOutputPath, cfg.OutputPath)
	})
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("KAIKU_CONFIG", "")
	t.Setenv("KAIKU_OUTPUT_PATH", "env.json.gz")
	t.Setenv("KAIKU_GATE", "all")
	t.Setenv("KAIKU_MAX_EVENTS", "123")
	t.Setenv("KAIKU_DEBUG", "true")
	t.Setenv("KAIKU_SAVE_ON_EXIT", "no")

	cfg, err := NewLoader().WithSearchPaths(nil).Load()
	require.NoError(t, err)
	assert.Equal(t, "env.json.gz", cfg.OutputPath)
	assert.Equal(t, GateAll, cfg.Gate)
	assert.Equal(t, 123, cfg.MaxEvents)
	assert.True(t, cfg.Debug)
	assert.False(t, cfg.SaveOnExit)
}

func TestEnvOverrideRejectsBadNumber(t *testing.T) {
	t.Setenv("KAIKU_MAX_EVENTS", "lots")

	_, err := NewLoader().WithSearchPaths(nil).Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "KAIKU_MAX_EVENTS")
}

func TestFromEnvHonorsConfigPin(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pinned.yaml")
	require.NoError(t, os.WriteFile(path, []byte("output_path: pinned.json\n"), 0o644))
	t.Setenv("KAIKU_CONFIG", path)

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, "pinned.json", cfg.OutputPath)
}

func TestEnvBeatsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kaiku.yaml")
	require.NoError(t, os.WriteFile(path, []byte("output_path: file.json\n"), 0o644))
	t.Setenv("KAIKU_OUTPUT_PATH", "env.json")

	cfg, err := NewLoader().WithConfigFile(path).Load()
	require.NoError(t, err)
	assert.Equal(t, "env.json", cfg.OutputPath)
}
