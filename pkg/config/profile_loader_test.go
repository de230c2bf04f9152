package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validProfile = `
name: prod
schema_version: 1.2.0
interval_seconds: 7200
max_values: 128
max_payload_length: 20000
pepper_env: LIVEVIEW_PEPPER
master_key_env: LIVEVIEW_MASTER_KEY
`

func TestLoadProfile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "recovery_prod.yaml"), []byte(validProfile), 0o600))

	p, err := LoadProfile(dir, "PROD")
	require.NoError(t, err)

	assert.Equal(t, "prod", p.Name)
	assert.Equal(t, 2*time.Hour, p.Interval())
	assert.Equal(t, 128, p.MaxValues)
	assert.Equal(t, 20000, p.MaxPayloadLength)
}

func TestLoadProfile_Missing(t *testing.T) {
	_, err := LoadProfile(t.TempDir(), "nope")
	assert.Error(t, err)
}

func TestParseProfile_NameFallsBackToArgument(t *testing.T) {
	p, err := ParseProfile([]byte("name: named\nschema_version: 1.0.0\npepper_env: P\n"), "other")
	require.NoError(t, err)
	assert.Equal(t, "named", p.Name)
}

func TestParseProfile_SchemaRejectsUnknownFields(t *testing.T) {
	_, err := ParseProfile([]byte(validProfile+"surprise: true\n"), "prod")
	assert.Error(t, err)
}

func TestParseProfile_SchemaRequiresPepperEnv(t *testing.T) {
	_, err := ParseProfile([]byte("name: x\nschema_version: 1.0.0\n"), "x")
	assert.Error(t, err)
}

func TestParseProfile_VersionOutsideRange(t *testing.T) {
	_, err := ParseProfile([]byte("name: x\nschema_version: 2.0.0\npepper_env: P\n"), "x")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "supported range")
}

func TestParseProfile_MalformedVersion(t *testing.T) {
	_, err := ParseProfile([]byte("name: x\nschema_version: latest\npepper_env: P\n"), "x")
	assert.Error(t, err)
}

func TestProfileSecrets(t *testing.T) {
	p, err := ParseProfile([]byte(validProfile), "prod")
	require.NoError(t, err)

	t.Setenv("LIVEVIEW_PEPPER", "")
	_, err = p.Pepper()
	assert.Error(t, err, "empty pepper must not be silently accepted")

	t.Setenv("LIVEVIEW_PEPPER", "s3cret")
	pepper, err := p.Pepper()
	require.NoError(t, err)
	assert.Equal(t, "s3cret", pepper)

	t.Setenv("LIVEVIEW_MASTER_KEY", "mk")
	key, err := p.MasterKey()
	require.NoError(t, err)
	assert.Equal(t, "mk", key)
}

func TestProfileMasterKeyOptional(t *testing.T) {
	p, err := ParseProfile([]byte("name: x\nschema_version: 1.0.0\npepper_env: P\n"), "x")
	require.NoError(t, err)

	key, err := p.MasterKey()
	require.NoError(t, err)
	assert.Empty(t, key, "no master_key_env means the derived default downstream")
}
