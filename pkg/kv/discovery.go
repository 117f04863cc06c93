package kv

import (
	"os"
	"path/filepath"
)

// Open initializes the store based on the environment. It returns the
// Store interface, so the app doesn't care if it's local or remote.
func Open(dataDir string) (Store, error) {
	// 1. Check if a remote store is defined in environment variables
	remoteAddr := os.Getenv("LIQUEX_STORE_ADDR")

	if remoteAddr != "" {
		client, err := Connect(remoteAddr)
		if err == nil {
			return client, nil
		}
		// If the connection fails, fall back to local embedded mode.
	}

	// 2. Embedded database mode
	if os.Getenv("LIQUEX_STORE_BACKEND") == "sqlite" {
		return OpenSQLite(filepath.Join(dataDir, "liquex.db"))
	}

	// 3. Embedded file mode: one JSON file per collection
	p, err := NewPersistence(dataDir)
	if err != nil {
		return nil, err
	}

	allData, err := p.LoadAll()
	if err != nil {
		return nil, err
	}

	return NewMemStore(allData, p), nil
}
