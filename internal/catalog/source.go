package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// Source supplies catalog documents. Implementations must be safe for
// concurrent use.
type Source interface {
	// Load returns the current catalog document.
	Load(ctx context.Context) (Document, error)

	// Describe names the source for logs.
	Describe() string
}

// NewSource creates a source of the given kind.
// Supported kinds: "file" (location is a path), "memory" (location ignored).
func NewSource(kind, location string) (Source, error) {
	switch kind {
	case "file":
		if location == "" {
			return nil, errors.New("file source requires a path")
		}
		return &FileSource{Path: location}, nil
	case "memory":
		return NewMemorySource(Document{}), nil
	default:
		return nil, fmt.Errorf("unsupported catalog source: %s", kind)
	}
}

// LoadSnapshot loads a document from src and builds a snapshot from it.
func LoadSnapshot(ctx context.Context, src Source) (*Snapshot, error) {
	doc, err := src.Load(ctx)
	if err != nil {
		return nil, err
	}
	snap, err := NewSnapshot(doc)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", src.Describe(), err)
	}
	return snap, nil
}

// FileSource reads a YAML or JSON document from disk. Files ending in .json
// are decoded as JSON, everything else as YAML. Unknown fields are rejected.
type FileSource struct {
	Path string
}

// Load reads and decodes the file.
func (f *FileSource) Load(ctx context.Context) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return Document{}, fmt.Errorf("read catalog: %w", err)
	}
	if strings.EqualFold(filepath.Ext(f.Path), ".json") {
		return DecodeJSON(bytes.NewReader(data))
	}
	return DecodeYAML(bytes.NewReader(data))
}

// Describe returns the file path.
func (f *FileSource) Describe() string { return "file:" + f.Path }

// DecodeYAML decodes a catalog document in YAML form.
func DecodeYAML(r io.Reader) (Document, error) {
	var doc Document
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return Document{}, fmt.Errorf("%w: decode yaml: %w", ErrInvalidCatalog, err)
	}
	return doc, nil
}

// DecodeJSON decodes a catalog document in JSON form.
func DecodeJSON(r io.Reader) (Document, error) {
	var doc Document
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&doc); err != nil {
		return Document{}, fmt.Errorf("%w: decode json: %w", ErrInvalidCatalog, err)
	}
	return doc, nil
}

// MemorySource holds a document in memory. It is intended for tests and
// for callers that assemble catalogs programmatically.
type MemorySource struct {
	mu  sync.RWMutex
	doc Document
}

// NewMemorySource creates a memory source seeded with doc.
func NewMemorySource(doc Document) *MemorySource {
	return &MemorySource{doc: doc}
}

// Load returns the stored document.
func (m *MemorySource) Load(ctx context.Context) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.doc, nil
}

// Set replaces the stored document.
func (m *MemorySource) Set(doc Document) {
	m.mu.Lock()
	m.doc = doc
	m.mu.Unlock()
}

// Describe returns "memory".
func (m *MemorySource) Describe() string { return "memory" }
