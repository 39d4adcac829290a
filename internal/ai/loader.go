package ai

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"path"
	"strings"
	"sync"

	"github.com/qri-io/jsonschema"
)

//go:embed schemas/*.json
var schemaFS embed.FS

// SchemaJobAnalysis is the schema version model analyses are validated against.
const SchemaJobAnalysis = "job_analysis.v1"

// Loader compiles and caches the JSON schemas shipped with the binary.
type Loader struct {
	fsys  fs.FS
	mu    sync.RWMutex
	cache map[string]*jsonschema.Schema
}

// NewLoader compiles every schemas/*.json file in fsys. A nil fsys uses the
// embedded schemas.
func NewLoader(ctx context.Context, fsys fs.FS) (*Loader, error) {
	if fsys == nil {
		fsys = schemaFS
	}
	l := &Loader{
		fsys:  fsys,
		cache: make(map[string]*jsonschema.Schema),
	}
	if err := l.Reload(ctx); err != nil {
		return nil, err
	}

	return l, nil
}

// GetSchema returns a compiled schema by name (file name without extension).
func (l *Loader) GetSchema(name string) (*jsonschema.Schema, bool) {
	l.mu.RLock()
	s, ok := l.cache[name]
	l.mu.RUnlock()

	return s, ok
}

// Reload recompiles all schemas.
func (l *Loader) Reload(ctx context.Context) error {
	entries, err := fs.ReadDir(l.fsys, "schemas")
	if err != nil {
		return fmt.Errorf("read schemas: %w", err)
	}

	newCache := make(map[string]*jsonschema.Schema)
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		b, err := fs.ReadFile(l.fsys, path.Join("schemas", e.Name()))
		if err != nil {
			return fmt.Errorf("read schema %s: %w", e.Name(), err)
		}
		rs := &jsonschema.Schema{}
		if err := json.Unmarshal(b, rs); err != nil {
			return fmt.Errorf("compile schema %s: %w", e.Name(), err)
		}
		newCache[strings.TrimSuffix(e.Name(), ".json")] = rs
	}

	l.mu.Lock()
	l.cache = newCache
	l.mu.Unlock()
	return nil
}
