package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bastiangx/birdserve/pkg/page"
)

func TestInitConfigCreatesDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "birdserve", "config.toml")
	cfg, err := InitConfig(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
	require.FileExists(t, path)

	reloaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, cfg.Typeahead, reloaded.Typeahead)
	assert.Equal(t, cfg.Highlight, reloaded.Highlight)
}

func TestLoadConfigOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	body := `
[highlight]
common_color = "yellow"

[typeahead]
local_prefix = ";"
global_prefix = ";;"
debounce_ms = 40

[pages.selectors]
checklist = [".name"]
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "yellow", cfg.Highlight.CommonColor)
	assert.Equal(t, DefaultConfig().Highlight.EndemicColor, cfg.Highlight.EndemicColor)
	assert.Equal(t, ";", cfg.Typeahead.LocalPrefix)
	assert.Equal(t, 40*time.Millisecond, cfg.Debounce())
	assert.Equal(t, map[page.Kind][]string{page.Checklist: {".name"}}, cfg.SelectorOverrides())
}

func TestLoadConfigPartialRecovery(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	// debounce_ms has the wrong type, so strict decoding fails
	body := `
[typeahead]
debounce_ms = "soon"
global_prefix = "??"

[data]
dir = "/srv/birds"
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "??", cfg.Typeahead.GlobalPrefix)
	assert.Equal(t, 150, cfg.Typeahead.DebounceMs)
	assert.Equal(t, "/srv/birds", cfg.Data.Dir)
}

func TestLoadConfigGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[[[ not toml"), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestSelectorHelpers(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, page.DefaultRowSpec, cfg.RowSpec())
	assert.Equal(t, "#fff3a0", cfg.ClassifyOptions().CommonColor)
	assert.Equal(t, ".Observation-species", cfg.LifeListSelectors().Row)
}
