// Package identity loads and persists the device identity record
// described in spec.md §3: a stable {uid, domain} pair read at start
// from a primary file, falling back to a shipped file, and replaceable
// at runtime by a server command.
package identity

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Identity is the device's stable {uid, domain} record.
type Identity struct {
	UID    string `toml:"uid"`
	Domain string `toml:"domain"`
}

// Load reads the identity from confDir/identity.toml, falling back to
// confDir/identity-fallback.toml if the primary file is missing or
// unparseable.
func Load(confDir string) (Identity, error) {
	primary := filepath.Join(confDir, "identity.toml")
	id, err := decode(primary)
	if err == nil {
		return id, nil
	}

	fallback := filepath.Join(confDir, "identity-fallback.toml")
	id, fbErr := decode(fallback)
	if fbErr != nil {
		return Identity{}, fmt.Errorf("load identity: primary %q: %w; fallback %q: %v", primary, err, fallback, fbErr)
	}
	return id, nil
}

func decode(path string) (Identity, error) {
	var id Identity
	if _, err := toml.DecodeFile(path, &id); err != nil {
		return Identity{}, err
	}
	if id.UID == "" || id.Domain == "" {
		return Identity{}, fmt.Errorf("%s: missing uid or domain", path)
	}
	return id, nil
}

// Replace writes a new identity to confDir/identity.toml. Per
// spec.md §3, writes always go to the primary path, never the
// fallback.
func Replace(confDir string, id Identity) error {
	path := filepath.Join(confDir, "identity.toml")
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("replace identity: %w", err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(id); err != nil {
		return fmt.Errorf("replace identity: encode: %w", err)
	}
	return nil
}
