package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Seednode/pricebox/sets"
)

func validConfig() Config {
	return Config{
		port:      8080,
		store:     storeJSON,
		readLimit: 32768,
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		ok     bool
	}{
		{"defaults", func(*Config) {}, true},
		{"sqlite store", func(c *Config) { c.store = storeSQLite }, true},
		{"tls pair", func(c *Config) { c.tlsCert, c.tlsKey = "cert.pem", "key.pem" }, true},
		{"cert without key", func(c *Config) { c.tlsCert = "cert.pem" }, false},
		{"key without cert", func(c *Config) { c.tlsKey = "key.pem" }, false},
		{"port zero", func(c *Config) { c.port = 0 }, false},
		{"port too high", func(c *Config) { c.port = 70000 }, false},
		{"unknown store", func(c *Config) { c.store = "postgres" }, false},
		{"negative room timeout", func(c *Config) { c.roomTimeout = -time.Second }, false},
		{"zero read limit", func(c *Config) { c.readLimit = 0 }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.modify(&cfg)

			err := cfg.validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestFlagDefaults(t *testing.T) {
	cfg := &Config{}
	newCmd(cfg)

	assert.Equal(t, "0.0.0.0", cfg.bind)
	assert.Equal(t, 8080, cfg.port)
	assert.Equal(t, storeJSON, cfg.store)
	assert.Equal(t, "data/game_sets.json", cfg.dataFile)
	assert.Equal(t, "data/pricebox.db", cfg.database)
	assert.Equal(t, int64(32768), cfg.readLimit)
	assert.Zero(t, cfg.roomTimeout)
	assert.NoError(t, cfg.validate())
}

func TestFlagsFromEnvironment(t *testing.T) {
	t.Setenv("PRICEBOX_PORT", "9090")
	t.Setenv("PRICEBOX_ROOM_TIMEOUT", "5m")
	t.Setenv("PRICEBOX_STORE", "sqlite")
	t.Setenv("PRICEBOX_DATABASE", "/tmp/other.db")

	cfg := &Config{}
	newCmd(cfg)

	assert.Equal(t, 9090, cfg.port)
	assert.Equal(t, 5*time.Minute, cfg.roomTimeout)
	assert.Equal(t, storeSQLite, cfg.store)
	assert.Equal(t, "/tmp/other.db", cfg.database)
}

func TestImportCommand(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "game_sets.json")
	db := filepath.Join(dir, "pricebox.db")

	legacy := `[
		{"id": 0, "name": "Kitchen", "pitch_line": "cook", "created_at": "2024-05-01T10:20:30.123456",
		 "items": [{"name": "Kettle", "price": 30, "difficulty": "easy"}]},
		{"id": 1, "name": "Garage", "pitch_line": "tools", "created_at": "2024-05-02T10:20:30",
		 "items": [{"name": "Drill", "price": 120, "difficulty": "hard"},
		           {"name": "Saw", "price": 25.5, "difficulty": "medium"}]}
	]`
	require.NoError(t, os.WriteFile(src, []byte(legacy), 0o644))

	run := func() string {
		cfg := &Config{}
		cmd := newCmd(cfg)

		var out bytes.Buffer
		cmd.SetOut(&out)
		cmd.SetArgs([]string{"import", src, "--database", db})
		require.NoError(t, cmd.ExecuteContext(context.Background()))

		return out.String()
	}

	out := run()
	assert.Contains(t, out, `created set 1 "Kitchen" (1 items)`)
	assert.Contains(t, out, `created set 2 "Garage" (2 items)`)

	out = run()
	assert.Contains(t, out, `updated set 1 "Kitchen"`)

	store, err := sets.OpenSQLite(db)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	list, err := store.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, list, 2)

	kitchen, err := store.Get(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 5, 1, 10, 20, 30, 123000000, time.UTC), kitchen.CreatedAt)
}

func TestImportCommandWritesNothingOnBadSet(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "game_sets.json")
	db := filepath.Join(dir, "pricebox.db")

	legacy := `[
		{"id": 0, "name": "Kitchen", "pitch_line": "cook", "created_at": "2024-05-01T10:20:30",
		 "items": [{"name": "Kettle", "price": 30, "difficulty": "easy"}]},
		{"id": 1, "name": "Broken", "pitch_line": "", "created_at": "2024-05-02T10:20:30", "items": []}
	]`
	require.NoError(t, os.WriteFile(src, []byte(legacy), 0o644))

	cfg := &Config{}
	cmd := newCmd(cfg)
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"import", src, "--database", db})
	assert.ErrorIs(t, cmd.ExecuteContext(context.Background()), sets.ErrInvalid)

	store, err := sets.OpenSQLite(db)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	list, err := store.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, list)
}
