// Package kv defines the durable collection store for the Liquex platform.
//
// The store is a generic key-value interface keyed by logical collection
// name ("requests", "chat_messages", "otp:<requestId>", "users"). Every
// collection is read in full and rewritten in full on mutation; no partial
// update primitive exists. Two near-simultaneous writers rewriting the same
// collection can therefore lose one update. That is an accepted limitation
// of the design; there is no compare-and-swap on individual records.
package kv

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrCollectionNotFound is returned when a requested collection does not exist.
var ErrCollectionNotFound = errors.New("collection not found")

// Store is the primary interface for interacting with the data store.
// Both the embedded engines and the remote network client implement this
// contract.
type Store interface {
	// GetCollection retrieves the full JSON document for a collection.
	GetCollection(name string) ([]byte, error)
	// PutCollection replaces the full JSON document for a collection.
	PutCollection(name string, doc []byte) error
	// DeleteCollection removes a collection and its document.
	DeleteCollection(name string) error
	// Collections returns the names of all stored collections.
	Collections() ([]string, error)
	// Close flushes pending writes and releases the backend. Short-lived
	// processes must close the store before exit or buffered writes are
	// lost.
	Close() error
}

// Load retrieves a collection and unmarshals it into the target type.
// A missing collection yields the zero value, which for slice-shaped
// collections is the empty collection.
func Load[T any](s Store, name string) (T, error) {
	var target T
	doc, err := s.GetCollection(name)
	if errors.Is(err, ErrCollectionNotFound) {
		return target, nil
	}
	if err != nil {
		return target, err
	}
	if err := json.Unmarshal(doc, &target); err != nil {
		return target, fmt.Errorf("collection %s: %w", name, err)
	}
	return target, nil
}

// Save marshals a value and writes it as the collection's full document.
func Save[T any](s Store, name string, val T) error {
	doc, err := json.Marshal(val)
	if err != nil {
		return fmt.Errorf("collection %s: %w", name, err)
	}
	return s.PutCollection(name, doc)
}
