package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

// RecoveryProfile is a named, file-based recovery configuration. Profiles
// let deployments pin limits and rotation per environment without code
// changes; the pepper and master key themselves stay in the environment
// (referenced here by variable name, never by value).
type RecoveryProfile struct {
	Name             string `yaml:"name" json:"name"`
	SchemaVersion    string `yaml:"schema_version" json:"schema_version"`
	IntervalSeconds  int    `yaml:"interval_seconds" json:"interval_seconds"`
	MaxValues        int    `yaml:"max_values" json:"max_values"`
	MaxPayloadLength int    `yaml:"max_payload_length" json:"max_payload_length"`
	PepperEnv        string `yaml:"pepper_env" json:"pepper_env"`
	MasterKeyEnv     string `yaml:"master_key_env,omitempty" json:"master_key_env,omitempty"`
}

// profileSchema validates the structural shape of a profile document
// before any field is trusted.
const profileSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["name", "schema_version", "pepper_env"],
  "properties": {
    "name": {"type": "string", "minLength": 1},
    "schema_version": {"type": "string", "pattern": "^v?\\d+\\.\\d+\\.\\d+$"},
    "interval_seconds": {"type": "integer", "minimum": 1},
    "max_values": {"type": "integer", "minimum": 1},
    "max_payload_length": {"type": "integer", "minimum": 1},
    "pepper_env": {"type": "string", "minLength": 1},
    "master_key_env": {"type": "string"}
  },
  "additionalProperties": false
}`

// profileSchemaRange is the supported range of profile schema versions.
const profileSchemaRange = ">= 1.0.0, < 2.0.0"

var compiledProfileSchema = mustCompileProfileSchema()

func mustCompileProfileSchema() *jsonschema.Schema {
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	const url = "https://liveview.schemas.local/recovery_profile.schema.json"
	if err := c.AddResource(url, strings.NewReader(profileSchema)); err != nil {
		panic(fmt.Sprintf("config: add profile schema: %v", err))
	}
	s, err := c.Compile(url)
	if err != nil {
		panic(fmt.Sprintf("config: compile profile schema: %v", err))
	}
	return s
}

// LoadProfile loads recovery_<name>.yaml from the profiles directory,
// validates it against the embedded schema, and gates the declared
// schema_version against the supported range.
func LoadProfile(profilesDir, name string) (*RecoveryProfile, error) {
	path := filepath.Join(profilesDir, fmt.Sprintf("recovery_%s.yaml", strings.ToLower(name)))

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load profile %q: %w", name, err)
	}
	return ParseProfile(data, name)
}

// ParseProfile validates and decodes a raw profile document.
func ParseProfile(data []byte, name string) (*RecoveryProfile, error) {
	// Decode to a generic document first so the schema sees the raw shape,
	// then round-trip through JSON for draft-2020 validation semantics.
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse profile %q: %w", name, err)
	}
	jsonDoc, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("profile %q: %w", name, err)
	}
	var generic any
	if err := json.Unmarshal(jsonDoc, &generic); err != nil {
		return nil, fmt.Errorf("profile %q: %w", name, err)
	}
	if err := compiledProfileSchema.Validate(generic); err != nil {
		return nil, fmt.Errorf("profile %q failed schema validation: %w", name, err)
	}

	var profile RecoveryProfile
	if err := yaml.Unmarshal(data, &profile); err != nil {
		return nil, fmt.Errorf("parse profile %q: %w", name, err)
	}
	if profile.Name == "" {
		profile.Name = name
	}

	version, err := semver.NewVersion(profile.SchemaVersion)
	if err != nil {
		return nil, fmt.Errorf("profile %q schema_version: %w", name, err)
	}
	supported, err := semver.NewConstraint(profileSchemaRange)
	if err != nil {
		return nil, fmt.Errorf("profile schema range: %w", err)
	}
	if !supported.Check(version) {
		return nil, fmt.Errorf("profile %q schema_version %s outside supported range %q",
			name, version, profileSchemaRange)
	}

	return &profile, nil
}

// Interval returns the profile's rotation period, or zero when the profile
// leaves it to the downstream default.
func (p *RecoveryProfile) Interval() time.Duration {
	if p.IntervalSeconds <= 0 {
		return 0
	}
	return time.Duration(p.IntervalSeconds) * time.Second
}

// Pepper resolves the pepper from the environment variable the profile
// names. It fails rather than returning an empty pepper.
func (p *RecoveryProfile) Pepper() (string, error) {
	v := os.Getenv(p.PepperEnv)
	if v == "" {
		return "", fmt.Errorf("profile %q: environment variable %s is empty", p.Name, p.PepperEnv)
	}
	return v, nil
}

// MasterKey resolves the optional explicit master key. An empty result with
// nil error means the profile relies on the derived-key default.
func (p *RecoveryProfile) MasterKey() (string, error) {
	if p.MasterKeyEnv == "" {
		return "", nil
	}
	v := os.Getenv(p.MasterKeyEnv)
	if v == "" {
		return "", fmt.Errorf("profile %q: environment variable %s is empty", p.Name, p.MasterKeyEnv)
	}
	return v, nil
}
