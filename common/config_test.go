package common

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsWithoutFile(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 4, cfg.Master.NumNodes)
	assert.Equal(t, 48.0, cfg.Master.TargetSystemVoltage)
	assert.Equal(t, 5*time.Second, cfg.Master.NodeTimeout)
	assert.Equal(t, 6*time.Second, cfg.Node.CommandTimeout)
	assert.Equal(t, 12.0, cfg.Master.TargetNodeVoltage())
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("PVSC_URL", "tcp://broker.internal:1883")
	t.Setenv("PVSC_MASTER_NUMNODES", "2")
	t.Setenv("PVSC_MASTER_NODETIMEOUT", "10s")
	t.Setenv("PVSC_NODE_MPPT_DUTYSTEP", "0.25")
	t.Setenv("PVSC_WEB_ADDR", ":9090")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "tcp://broker.internal:1883", cfg.Url)
	assert.Equal(t, 2, cfg.Master.NumNodes)
	assert.Equal(t, 10*time.Second, cfg.Master.NodeTimeout)
	assert.Equal(t, 0.25, cfg.Node.Mppt.DutyStep)
	assert.Equal(t, ":9090", cfg.Web.Addr)

	// Untouched keys keep their defaults.
	assert.Equal(t, 48.0, cfg.Master.TargetSystemVoltage)
	assert.Equal(t, 24.0, cfg.Master.TargetNodeVoltage())
}

func TestLoadYamlFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "master:\n  numnodes: 3\nweb:\n  addr: \":9090\"\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Master.NumNodes)
	assert.Equal(t, ":9090", cfg.Web.Addr)
	assert.Equal(t, 48.0, cfg.Master.TargetSystemVoltage)
}

func TestLoadMissingFileFails(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoadRejectsInvalidNodeCount(t *testing.T) {
	t.Setenv("PVSC_MASTER_NUMNODES", "0")
	_, err := Load("")
	assert.Error(t, err)
}
