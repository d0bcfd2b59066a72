package monitorconfig

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const singleFileJSON = `[
  {
    "id": "f1",
    "name": "test filter",
    "enabled": true,
    "conditions": {"all_of": [{"kind": "token_transfer", "mint": "m1", "op": "gte", "amount": 100}]}
  }
]`

func TestLoad_SingleFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "filters.json")
	require.NoError(t, os.WriteFile(path, []byte(singleFileJSON), 0o644))

	filters, err := Load(path)
	require.NoError(t, err)
	require.Len(t, filters, 1)
	require.Equal(t, "f1", filters[0].ID)
}

func TestLoad_DirectoryResolvesNamedAlerts(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, "alerts"), 0o755))
	require.NoError(t, os.Mkdir(filepath.Join(root, "monitors"), 0o755))

	alertsJSON := `{"ops": {"channel": "ops-alerts", "severity": "warning"}}`
	require.NoError(t, os.WriteFile(filepath.Join(root, "alerts", "default.json"), []byte(alertsJSON), 0o644))

	monitorsJSON := `[
    {
      "filter": {
        "id": "m1",
        "name": "monitor one",
        "enabled": true,
        "conditions": {"all_of": [{"kind": "token_burn", "mint": "m1", "op": "gte", "amount": 1}]}
      },
      "alerts": ["ops"]
    }
  ]`
	require.NoError(t, os.WriteFile(filepath.Join(root, "monitors", "usdc.json"), []byte(monitorsJSON), 0o644))

	filters, err := Load(root)
	require.NoError(t, err)
	require.Len(t, filters, 1)
	require.Len(t, filters[0].Actions, 1)
	require.Equal(t, "ops-alerts", filters[0].Actions[0].Channels[0])
}

func TestLoad_MissingPathReturnsError(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
}
