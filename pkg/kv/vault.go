package kv

import (
	"strings"

	"github.com/liquex-dev/liquex/internal/vault"
)

// EncryptedStore wraps a Store and transparently encrypts the documents of
// collections whose names match one of the configured prefixes. It is used
// to keep passcode records unreadable at rest when LIQUEX_VAULT_KEY is set.
type EncryptedStore struct {
	inner    Store
	key      []byte
	prefixes []string
}

// Encrypted wraps a store with at-rest encryption for the given collection
// name prefixes. The key must be 32 bytes (AES-256).
func Encrypted(inner Store, key []byte, prefixes ...string) *EncryptedStore {
	return &EncryptedStore{inner: inner, key: key, prefixes: prefixes}
}

func (e *EncryptedStore) protected(name string) bool {
	for _, p := range e.prefixes {
		if strings.HasPrefix(name, p) {
			return true
		}
	}
	return false
}

func (e *EncryptedStore) GetCollection(name string) ([]byte, error) {
	doc, err := e.inner.GetCollection(name)
	if err != nil {
		return nil, err
	}
	if !e.protected(name) {
		return doc, nil
	}
	plain, err := vault.Decrypt(string(doc), e.key)
	if err != nil {
		return nil, err
	}
	return []byte(plain), nil
}

func (e *EncryptedStore) PutCollection(name string, doc []byte) error {
	if !e.protected(name) {
		return e.inner.PutCollection(name, doc)
	}
	ciphertext, err := vault.Encrypt(string(doc), e.key)
	if err != nil {
		return err
	}
	return e.inner.PutCollection(name, []byte(ciphertext))
}

func (e *EncryptedStore) DeleteCollection(name string) error {
	return e.inner.DeleteCollection(name)
}

func (e *EncryptedStore) Collections() ([]string, error) {
	return e.inner.Collections()
}

func (e *EncryptedStore) Close() error {
	return e.inner.Close()
}
