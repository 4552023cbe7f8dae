package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const validYAML = `
listen: ":8000"
environment: staging
redis:
  addr: "localhost:6379"
store:
  endpoint: "https://store.example/graphql"
  apiKey: "key"
  jwt: "token"
  orgId: "org-1"
dataModels:
  volume: dm-volume
  transactions: dm-txn
  networks: dm-net
  loyalty: dm-loyalty
  og: dm-og
  boostor: dm-boostor
  transferto: dm-transferto
  linea: dm-linea
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, validYAML))
	require.NoError(t, err)
	require.Equal(t, 5, cfg.Queue.Attempts)
	require.Equal(t, 500*time.Millisecond, cfg.Queue.Backoff)
	require.Equal(t, 1, cfg.Queue.Concurrency)
	require.Equal(t, 4, cfg.Queue.LoyaltyConcurrency)
	require.Equal(t, 5*time.Minute, cfg.Queue.TaskTimeout)
	require.Equal(t, 5*time.Second, cfg.Dispatch.Interval)
	require.Equal(t, 30*time.Second, cfg.Store.Timeout)
}

func TestLoadOverrides(t *testing.T) {
	body := validYAML + `
queue:
  attempts: 3
  backoff: 2s
  concurrency: 8
dispatch:
  interval: 1s
`
	cfg, err := Load(writeConfig(t, body))
	require.NoError(t, err)
	require.Equal(t, 3, cfg.Queue.Attempts)
	require.Equal(t, 2*time.Second, cfg.Queue.Backoff)
	require.Equal(t, 8, cfg.Queue.Concurrency)
	require.Equal(t, time.Second, cfg.Dispatch.Interval)
}

func TestLoadMissingDataModel(t *testing.T) {
	body := `
redis:
  addr: "localhost:6379"
store:
  endpoint: "https://store.example/graphql"
  orgId: "org-1"
dataModels:
  volume: dm-volume
`
	_, err := Load(writeConfig(t, body))
	require.Error(t, err)
	require.Contains(t, err.Error(), "dataModels")
}

func TestLoadMissingRedis(t *testing.T) {
	body := `
store:
  endpoint: "https://store.example/graphql"
  orgId: "org-1"
`
	_, err := Load(writeConfig(t, body))
	require.Error(t, err)
	require.Contains(t, err.Error(), "redis.addr")
}

func TestLoadSecretEnvFallback(t *testing.T) {
	t.Setenv("STORE_API_KEY", "env-key")
	t.Setenv("STORE_JWT", "env-jwt")
	cfg, err := Load(writeConfig(t, `
redis:
  addr: "localhost:6379"
store:
  endpoint: "https://store.example/graphql"
  orgId: "org-1"
dataModels:
  volume: dm-volume
  transactions: dm-txn
  networks: dm-net
  loyalty: dm-loyalty
  og: dm-og
  boostor: dm-boostor
  transferto: dm-transferto
  linea: dm-linea
`))
	require.NoError(t, err)
	require.Equal(t, "env-key", cfg.Store.APIKey)
	require.Equal(t, "env-jwt", cfg.Store.JWT)
}

func TestDataModelSets(t *testing.T) {
	dm := DataModelConfig{
		Volume: "v", Transactions: "t", Networks: "n",
		Loyalty: "l", OG: "o", Boostor: "b", TransferTo: "x", Linea: "li",
	}
	require.Len(t, dm.All(), 7)
	require.Len(t, dm.Standard(), 3)
	require.NotContains(t, dm.All(), dm.Loyalty, "loyalty data model must not be point-bearing")
}
