package cli

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ethpandaops/xcli/pkg/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `
stateDir: /tmp/harness-state
services:
  - name: db
    kind: process
    process:
      binary: postgres
      args: ["-D", "/var/lib/pg"]
      env:
        PGPORT: "5432"
    health:
      kind: tcp
      host: 127.0.0.1
      port: 5432
      interval: 5s
      timeout: 2s
      retries: 3

  - name: api
    kind: docker
    dependsOn: ["db"]
    docker:
      image: example/api:latest
      ports: ["8080:8080"]
`

func writeTempConfig(t *testing.T, contents string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "harness.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

	return path
}

func TestLoadParsesServices(t *testing.T) {
	path := writeTempConfig(t, sampleConfig)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Len(t, cfg.Services, 2)
	assert.Equal(t, "db", cfg.Services[0].Name)
	assert.Equal(t, "process", cfg.Services[0].Kind)
	assert.Equal(t, []string{"db"}, cfg.Services[1].DependsOn)
}

func TestServiceConfigsConvertsHealthDurations(t *testing.T) {
	path := writeTempConfig(t, sampleConfig)

	cfg, err := Load(path)
	require.NoError(t, err)

	configs, err := cfg.ServiceConfigs(nil)
	require.NoError(t, err)
	require.Len(t, configs, 2)

	db := configs[0]
	require.NotNil(t, db.Health)
	assert.Equal(t, service.HealthTCP, db.Health.Kind)
	assert.Equal(t, 5*time.Second, db.Health.Interval)
}

func TestServiceConfigsMergesEnvDefaultsUnderOverrides(t *testing.T) {
	path := writeTempConfig(t, sampleConfig)

	cfg, err := Load(path)
	require.NoError(t, err)

	configs, err := cfg.ServiceConfigs(map[string]string{"PGPORT": "9999", "SHARED": "v"})
	require.NoError(t, err)

	db := configs[0]
	require.NotNil(t, db.Process)
	assert.Equal(t, "5432", db.Process.Env["PGPORT"], "explicit service env must win over defaults")
	assert.Equal(t, "v", db.Process.Env["SHARED"])
}

func TestServiceConfigsRejectsUnknownKind(t *testing.T) {
	path := writeTempConfig(t, `
services:
  - name: mystery
    kind: teleport
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	_, err = cfg.ServiceConfigs(nil)
	require.Error(t, err)
}

func TestLoadEnvDefaultsEmptyPathReturnsEmptyMap(t *testing.T) {
	env, err := LoadEnvDefaults("")
	require.NoError(t, err)
	assert.Empty(t, env)
}

func TestLoadEnvDefaultsReadsDotenvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("FOO=bar\n"), 0o644))

	env, err := LoadEnvDefaults(path)
	require.NoError(t, err)
	assert.Equal(t, "bar", env["FOO"])
}
