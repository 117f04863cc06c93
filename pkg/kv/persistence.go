package kv

import (
	"log"
	"net/url"
	"os"
	"path/filepath"
	"sync"
)

// Persistence handles the disk I/O for the MemStore. Each collection lives
// in its own JSON file in the data directory.
type Persistence struct {
	DataDir string
	mu      sync.Mutex // Protects concurrent writes to the filesystem
}

// NewPersistence initializes a persistence handler.
func NewPersistence(dir string) (*Persistence, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	return &Persistence{DataDir: dir}, nil
}

// Collection names may contain characters like ':' that are not portable
// as file names, so files are stored query-escaped.
func (p *Persistence) filePath(name string) string {
	return filepath.Join(p.DataDir, url.QueryEscape(name)+".json")
}

// SaveCollection writes a collection's document to its file atomically:
// write to a temp file, then rename. A crash leaves either the old file or
// the new one, never a corrupt mix.
func (p *Persistence) SaveCollection(name string, doc []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	filePath := p.filePath(name)
	tempPath := filePath + ".tmp"

	if err := os.WriteFile(tempPath, doc, 0644); err != nil {
		return err
	}
	return os.Rename(tempPath, filePath)
}

// RemoveCollection deletes a collection's file. Missing files are not an error.
func (p *Persistence) RemoveCollection(name string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	err := os.Remove(p.filePath(name))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// LoadAll returns all collection documents found in the data directory.
func (p *Persistence) LoadAll() (map[string][]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	allData := make(map[string][]byte)

	files, err := os.ReadDir(p.DataDir)
	if err != nil {
		return nil, err
	}

	for _, file := range files {
		if filepath.Ext(file.Name()) != ".json" {
			continue
		}
		escaped := file.Name()[:len(file.Name())-5]
		name, err := url.QueryUnescape(escaped)
		if err != nil {
			log.Printf("Warning: Skipping collection file with bad name %s: %v", file.Name(), err)
			continue
		}

		doc, err := os.ReadFile(filepath.Join(p.DataDir, file.Name()))
		if err != nil {
			log.Printf("Warning: Could not read collection file %s: %v", file.Name(), err)
			continue
		}
		allData[name] = doc
	}
	return allData, nil
}
