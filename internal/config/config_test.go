package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `
env: local
atm:
  cardNumberDigits: 8
  pinNumberDigits: 4
  cashBin:
    availableMoney: 500
backend:
  type: memory
  wal: bank.wal
  breaker:
    callTimeout: 500ms
    consecutiveFailures: 3
  cards:
    - number: "13572468"
      pin: "8888"
      accounts:
        - number: "11113333"
          balance: 10
          available: true
        - number: "22224444"
          balance: 50
          available: true
diagnostics:
  enabled: true
  address: "127.0.0.1:6000"
`

func TestParse(t *testing.T) {
	t.Setenv(EnvVar, "")
	cfg, err := Parse([]byte(sample))
	require.NoError(t, err)

	assert.Equal(t, EnvLocal, cfg.Env)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, int64(500), cfg.ATM.CashBin.AvailableMoney)
	assert.Equal(t, 1000, cfg.ATM.Printer.Paper)
	assert.Equal(t, BackendMemory, cfg.Backend.Type)
	assert.Equal(t, "bank.wal", cfg.Backend.WAL)
	assert.Equal(t, 500*time.Millisecond, cfg.Backend.Breaker.CallTimeout)
	assert.Equal(t, uint32(3), cfg.Backend.Breaker.ConsecutiveFailures)
	assert.Equal(t, uint32(1), cfg.Backend.Breaker.MaxRequests)
	assert.True(t, cfg.Diagnostics.Enabled)
	assert.Equal(t, "127.0.0.1:6000", cfg.Diagnostics.Address)

	require.Len(t, cfg.Backend.Cards, 1)
	card := cfg.Backend.Cards[0]
	assert.Equal(t, "8888", card.Pin)
	require.Len(t, card.Accounts, 2)
	assert.Equal(t, int64(50), card.Accounts[1].Balance)
	assert.True(t, card.Accounts[1].Available)
}

func TestParseEnvOverride(t *testing.T) {
	t.Setenv(EnvVar, EnvProd)
	cfg, err := Parse([]byte("env: local\n"))
	require.NoError(t, err)
	assert.Equal(t, EnvProd, cfg.Env)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, ":50051", cfg.Diagnostics.Address)
}

func TestParseMySQLDefaults(t *testing.T) {
	t.Setenv(EnvVar, "")
	cfg, err := Parse([]byte("backend:\n  type: mysql\nmysql:\n  host: db\n"))
	require.NoError(t, err)
	assert.Equal(t, 3306, cfg.MySQL.Port)
	assert.Equal(t, 30*time.Minute, cfg.MySQL.ConnMaxLifetime)
}

func TestParseInvalid(t *testing.T) {
	t.Setenv(EnvVar, "")
	tests := map[string]string{
		"backend":  "backend:\n  type: redis\n",
		"env":      "env: staging\n",
		"card":     "backend:\n  cards:\n    - number: \"1234\"\n      pin: \"1234\"\n",
		"pin":      "backend:\n  cards:\n    - number: \"12345678\"\n      pin: \"12\"\n",
		"not yaml": "atm: [",
	}
	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(data))
			assert.Error(t, err)
		})
	}
}

func TestLoad(t *testing.T) {
	t.Setenv(EnvVar, "")
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, cfg.Backend.Cards, 1)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadSampleConfig(t *testing.T) {
	t.Setenv(EnvVar, "")
	cfg, err := Load(filepath.Join("..", "..", "config", "config.yaml"))
	require.NoError(t, err)
	assert.NotEmpty(t, cfg.Backend.Cards)
}
