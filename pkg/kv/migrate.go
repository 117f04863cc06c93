package kv

import "fmt"

// Migrate copies every collection from a source store to a destination
// store. This works for:
// - Embedded -> Remote (moving a local workspace onto a shared daemon)
// - Remote -> Embedded (backup / offline)
// - JSON files -> SQLite (backend change)
func Migrate(src Store, dst Store) error {
	names, err := src.Collections()
	if err != nil {
		return fmt.Errorf("failed to list collections: %w", err)
	}

	for _, name := range names {
		doc, err := src.GetCollection(name)
		if err != nil {
			return fmt.Errorf("failed to read collection %s: %w", name, err)
		}
		if err := dst.PutCollection(name, doc); err != nil {
			return fmt.Errorf("failed to write collection %s: %w", name, err)
		}
	}
	return nil
}
