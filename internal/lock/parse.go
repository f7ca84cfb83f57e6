package lock

import (
	"fmt"

	"github.com/BurntSushi/toml"
)

// Parse decodes data as a Lockfile. It does not validate SchemaVersion
// compatibility or staleness — callers needing that should follow Parse
// with Stale.
func Parse(data []byte) (*Lockfile, error) {
	var lf Lockfile

	if err := toml.Unmarshal(data, &lf); err != nil {
		return nil, fmt.Errorf("lock: parsing: %w", err)
	}

	return &lf, nil
}
