package kv

import (
	"errors"
	"path/filepath"
	"testing"
)

func openTestDB(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := OpenSQLite(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("OpenSQLite failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSQLiteStoreCRUD(t *testing.T) {
	store := openTestDB(t)

	if _, err := store.GetCollection("missing"); !errors.Is(err, ErrCollectionNotFound) {
		t.Errorf("Expected ErrCollectionNotFound, got %v", err)
	}

	if err := store.PutCollection("requests", []byte(`[{"id":"1"}]`)); err != nil {
		t.Fatalf("PutCollection failed: %v", err)
	}
	doc, err := store.GetCollection("requests")
	if err != nil || string(doc) != `[{"id":"1"}]` {
		t.Errorf("Round trip mismatch: %s, %v", doc, err)
	}

	// Replace, not append.
	if err := store.PutCollection("requests", []byte(`[]`)); err != nil {
		t.Fatalf("PutCollection failed: %v", err)
	}
	doc, _ = store.GetCollection("requests")
	if string(doc) != `[]` {
		t.Errorf("Expected replaced document, got %s", doc)
	}

	if err := store.DeleteCollection("requests"); err != nil {
		t.Fatalf("DeleteCollection failed: %v", err)
	}
	if _, err := store.GetCollection("requests"); !errors.Is(err, ErrCollectionNotFound) {
		t.Errorf("Expected ErrCollectionNotFound after delete, got %v", err)
	}
}

func TestSQLiteStoreCollectionsSorted(t *testing.T) {
	store := openTestDB(t)
	store.PutCollection("users", []byte(`[]`))
	store.PutCollection("chat_messages", []byte(`[]`))
	store.PutCollection("otp:1", []byte(`{}`))

	names, err := store.Collections()
	if err != nil {
		t.Fatalf("Collections failed: %v", err)
	}
	want := []string{"chat_messages", "otp:1", "users"}
	if len(names) != len(want) {
		t.Fatalf("Expected %v, got %v", want, names)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("Expected %v, got %v", want, names)
			break
		}
	}
}

func TestMigrateMemToSQLite(t *testing.T) {
	src := NewMemStore(nil, nil)
	src.PutCollection("requests", []byte(`[{"id":"1"}]`))
	src.PutCollection("otp:1", []byte(`{"code":"4821"}`))

	dst := openTestDB(t)
	if err := Migrate(src, dst); err != nil {
		t.Fatalf("Migrate failed: %v", err)
	}

	doc, err := dst.GetCollection("otp:1")
	if err != nil || string(doc) != `{"code":"4821"}` {
		t.Errorf("Migrated document mismatch: %s, %v", doc, err)
	}
}
