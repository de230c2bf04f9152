// Package config loads recovery settings from the environment and from
// YAML recovery profiles.
package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds the environment-derived recovery settings.
type Config struct {
	Pepper           string
	MasterKey        string
	Interval         time.Duration
	MaxValues        int
	MaxPayloadLength int
}

// Load reads configuration from environment variables, falling back to the
// protocol defaults. An empty MasterKey means the weak derived-key default
// will be used downstream.
func Load() *Config {
	interval := 4 * time.Hour
	if v := os.Getenv("LIVEVIEW_OTP_INTERVAL"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			interval = time.Duration(secs) * time.Second
		}
	}

	maxValues := 256
	if v := os.Getenv("LIVEVIEW_MAX_VALUES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			maxValues = n
		}
	}

	maxPayload := 40000
	if v := os.Getenv("LIVEVIEW_MAX_PAYLOAD"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			maxPayload = n
		}
	}

	return &Config{
		Pepper:           os.Getenv("LIVEVIEW_PEPPER"),
		MasterKey:        os.Getenv("LIVEVIEW_MASTER_KEY"),
		Interval:         interval,
		MaxValues:        maxValues,
		MaxPayloadLength: maxPayload,
	}
}
