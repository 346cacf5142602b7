package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	data := `
server:
  grpc_port: 6000
storage:
  data_dir: /srv/brat/data
  lock_timeout: 3s
compat:
  bionlp_st_2013: true
  relation_types: [Equiv]
types_file: /srv/brat/annotation.yaml
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 6000, cfg.Server.GrpcPort)
	assert.Equal(t, 9091, cfg.Server.MetricsPort, "unset values keep their default")
	assert.Equal(t, "/srv/brat/data", cfg.Storage.DataDir)
	assert.Equal(t, 3*time.Second, cfg.Storage.LockTimeout)
	assert.True(t, cfg.Compat.BioNLPST2013)
	assert.Equal(t, []string{"Equiv"}, cfg.Compat.RelationTypes)
	assert.Equal(t, "/srv/brat/annotation.yaml", cfg.TypesFile)
	assert.NoError(t, cfg.Validate())
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(path, []byte("server: [1, 2"), 0o644))
	_, err = Load(path)
	assert.Error(t, err)
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("ANNSTORE_GRPC_PORT", "7000")
	t.Setenv("ANNSTORE_DATA_DIR", "/tmp/docs")
	t.Setenv("ANNSTORE_LOCK_TIMEOUT", "250ms")
	t.Setenv("ANNSTORE_BIONLP_ST_2013", "true")

	cfg := Default()
	require.NoError(t, cfg.ApplyEnv())
	assert.Equal(t, 7000, cfg.Server.GrpcPort)
	assert.Equal(t, "/tmp/docs", cfg.Storage.DataDir)
	assert.Equal(t, 250*time.Millisecond, cfg.Storage.LockTimeout)
	assert.True(t, cfg.Compat.BioNLPST2013)

	t.Setenv("ANNSTORE_METRICS_PORT", "nine")
	assert.Error(t, cfg.ApplyEnv())
}

func TestValidateCollectsErrors(t *testing.T) {
	cfg := Default()
	cfg.Server.GrpcPort = 0
	cfg.Storage.DataDir = ""
	cfg.Log.Level = "verbose"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "grpc_port")
	assert.Contains(t, err.Error(), "data_dir")
	assert.Contains(t, err.Error(), "log.level")
}
