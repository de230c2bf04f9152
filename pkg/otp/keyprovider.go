package otp

import (
	"crypto/sha256"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"golang.org/x/crypto/hkdf"
)

// KeyProvider abstracts how the schedule's master key is obtained.
// Implementations must be deterministic: the same installation must produce
// the same key on every call, or previously issued tokens stop verifying.
type KeyProvider interface {
	// Provide returns the raw master key material.
	Provide() ([]byte, error)
}

// ExplicitKey returns a provider for a caller-supplied master key. This is
// the production path: multi-tenant and horizontally scaled deployments
// must pin the key explicitly so every process derives the same codes.
func ExplicitKey(key []byte) KeyProvider {
	k := make([]byte, len(key))
	copy(k, key)
	return explicitKey(k)
}

type explicitKey []byte

func (k explicitKey) Provide() ([]byte, error) {
	if len(k) == 0 {
		return nil, fmt.Errorf("otp: explicit master key is empty")
	}
	return []byte(k), nil
}

// DerivedKey returns a provider that fingerprints a stable local directory
// (entry names and modification times) and expands the digest through HKDF
// into a 32-byte key.
//
// This is a convenience default for single-host deployments only. The
// fingerprint is not a high-security secret: anyone who can list the
// directory can recompute it. An empty dir fingerprints the executable's
// own directory.
func DerivedKey(dir string) KeyProvider {
	return derivedKey(dir)
}

type derivedKey string

func (d derivedKey) Provide() ([]byte, error) {
	dir := string(d)
	if dir == "" {
		exe, err := os.Executable()
		if err != nil {
			return nil, fmt.Errorf("otp: locate executable: %w", err)
		}
		dir = filepath.Dir(exe)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("otp: read key fingerprint dir: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	h := sha256.New()
	for _, e := range entries {
		info, err := e.Info()
		if err != nil {
			return nil, fmt.Errorf("otp: stat %s: %w", e.Name(), err)
		}
		h.Write([]byte(e.Name()))
		h.Write([]byte(info.ModTime().UTC().Format("2006-01-02T15:04:05.000000000")))
	}

	key := make([]byte, 32)
	r := hkdf.New(sha256.New, h.Sum(nil), nil, []byte("liveview/recovery/master-key"))
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, fmt.Errorf("otp: expand derived key: %w", err)
	}
	return key, nil
}
